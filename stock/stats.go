/*
stats.go - Aggregate views over a slice of DailyRecords (StatisticsAggregator)

PURPOSE:
  Totals per article, stable rankings, time-bucketed series and busiest /
  quietest days. Everything here is a pure function of the records passed
  in; Ledger.Statistics fetches the slice for a TimeRange and runs them.

BUCKETS:
  day   - 2024-01-05   label "05.01."
  week  - 2024-W01     label "T01/24" (ISO week and ISO week-year)
  month - 2024-01      label "01/24"

  Every bucket between the earliest and latest record date appears, with
  zeros where nothing moved, so charts keep a continuous axis.

RANKING:
  Articles are taken in Order, then stable-sorted by total descending.
  Ties therefore keep catalog order. Articles with no movement for the
  metric are left out of the ranking.

SEE ALSO:
  - numeric.go: Add4 for every accumulation
  - date.go: TimeRange presets
*/
package stock

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// METRICS AND TOTALS
// =============================================================================

// Metric selects which side of a movement line is aggregated.
type Metric string

const (
	MetricOut Metric = "out" // sold / issued
	MetricIn  Metric = "in"  // received
)

func (m Metric) of(line MovementLine) decimal.Decimal {
	if m == MetricIn {
		return line.In
	}
	return line.Out
}

// TotalOut sums Out for slug across records.
func TotalOut(slug ArticleSlug, records []DailyRecord) decimal.Decimal {
	return total(slug, records, MetricOut)
}

// TotalIn sums In for slug across records.
func TotalIn(slug ArticleSlug, records []DailyRecord) decimal.Decimal {
	return total(slug, records, MetricIn)
}

func total(slug ArticleSlug, records []DailyRecord, m Metric) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range records {
		for _, line := range rec.Lines {
			if line.Slug == slug {
				sum = Add4(sum, m.of(line))
			}
		}
	}
	return sum
}

// Totals sums the metric for every slug with a non-zero movement.
func Totals(records []DailyRecord, m Metric) map[ArticleSlug]decimal.Decimal {
	totals := make(map[ArticleSlug]decimal.Decimal)
	for _, rec := range records {
		for _, line := range rec.Lines {
			v := m.of(line)
			if v.IsZero() {
				continue
			}
			totals[line.Slug] = Add4(totals[line.Slug], v)
		}
	}
	return totals
}

// =============================================================================
// RANKING
// =============================================================================

// RankedArticle pairs an article with its aggregated total.
type RankedArticle struct {
	Article Article
	Total   decimal.Decimal
}

// Rank orders articles present in totals by total descending. The sort is
// stable over catalog order, so equal totals keep their Order.
func Rank(articles []Article, totals map[ArticleSlug]decimal.Decimal) []RankedArticle {
	ranked := []RankedArticle{}
	for _, a := range SortArticles(articles) {
		t, ok := totals[a.Slug]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedArticle{Article: a, Total: t})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total.GreaterThan(ranked[j].Total)
	})
	return ranked
}

// TopAndBottom returns the first n of ranked and the last n in ascending
// order. With fewer than 2n articles the two slices overlap.
func TopAndBottom(ranked []RankedArticle, n int) (top, bottom []RankedArticle) {
	if n <= 0 {
		return []RankedArticle{}, []RankedArticle{}
	}
	k := min(n, len(ranked))
	top = append([]RankedArticle{}, ranked[:k]...)
	bottom = make([]RankedArticle, 0, k)
	for i := len(ranked) - 1; i >= len(ranked)-k; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

// ShareSlice is one slice of a share breakdown.
type ShareSlice struct {
	Label string
	Slug  ArticleSlug // empty for the remainder slice
	Total decimal.Decimal
}

// OthersLabel names the remainder slice of a share breakdown.
const OthersLabel = "Ostali"

// Share returns the first n ranked articles plus one remainder slice
// summing everything after them.
func Share(ranked []RankedArticle, n int) []ShareSlice {
	k := min(max(n, 0), len(ranked))
	slices := make([]ShareSlice, 0, k+1)
	for _, r := range ranked[:k] {
		slices = append(slices, ShareSlice{Label: r.Article.Name, Slug: r.Article.Slug, Total: r.Total})
	}
	rest := decimal.Zero
	for _, r := range ranked[k:] {
		rest = Add4(rest, r.Total)
	}
	return append(slices, ShareSlice{Label: OthersLabel, Total: rest})
}

// =============================================================================
// BUCKETED SERIES
// =============================================================================

// Granularity is the bucket width of a series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity validates s. Empty means month.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	case "":
		return GranularityMonth, nil
	default:
		return "", &ValidationError{Code: "invalid_granularity", Message: fmt.Sprintf("unknown granularity %q", s)}
	}
}

// BucketKey returns the sortable bucket key of d.
func BucketKey(d Date, g Granularity) string {
	t := d.Time()
	switch g {
	case GranularityDay:
		return d.String()
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}

// BucketLabel returns the short display label of the bucket containing d.
func BucketLabel(d Date, g Granularity) string {
	t := d.Time()
	switch g {
	case GranularityDay:
		return t.Format("02.01.")
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("T%02d/%02d", week, year%100)
	default:
		return t.Format("01/06")
	}
}

// Series is a zero-filled time series per article.
type Series struct {
	Granularity Granularity
	Metric      Metric
	Keys        []string
	Labels      []string
	Values      map[ArticleSlug][]decimal.Decimal
	Total       []decimal.Decimal // sum over the selected slugs per bucket
}

// BucketSeries aggregates the metric of the selected slugs into buckets
// covering every calendar bucket from the earliest to the latest record.
func BucketSeries(records []DailyRecord, slugs []ArticleSlug, g Granularity, m Metric) Series {
	s := Series{
		Granularity: g,
		Metric:      m,
		Keys:        []string{},
		Labels:      []string{},
		Values:      make(map[ArticleSlug][]decimal.Decimal, len(slugs)),
		Total:       []decimal.Decimal{},
	}
	for _, slug := range slugs {
		s.Values[slug] = []decimal.Decimal{}
	}
	if len(records) == 0 {
		return s
	}

	sorted := SortRecords(records)
	first, last := sorted[0].Date, sorted[len(sorted)-1].Date

	index := make(map[string]int)
	for d := first; d <= last; d = d.AddDays(1) {
		key := BucketKey(d, g)
		if _, ok := index[key]; ok {
			continue
		}
		index[key] = len(s.Keys)
		s.Keys = append(s.Keys, key)
		s.Labels = append(s.Labels, BucketLabel(d, g))
	}

	selected := make(map[ArticleSlug]bool, len(slugs))
	for _, slug := range slugs {
		selected[slug] = true
		s.Values[slug] = zeros(len(s.Keys))
	}
	s.Total = zeros(len(s.Keys))

	for _, rec := range sorted {
		i := index[BucketKey(rec.Date, g)]
		for _, line := range rec.Lines {
			if !selected[line.Slug] {
				continue
			}
			v := m.of(line)
			s.Values[line.Slug][i] = Add4(s.Values[line.Slug][i], v)
			s.Total[i] = Add4(s.Total[i], v)
		}
	}
	return s
}

func zeros(n int) []decimal.Decimal {
	z := make([]decimal.Decimal, n)
	for i := range z {
		z[i] = decimal.Zero
	}
	return z
}

// =============================================================================
// EXTREMAL DAYS
// =============================================================================

// DayTotal is the total Out of all articles on one date.
type DayTotal struct {
	Date  Date
	Total decimal.Decimal
}

// ExtremalDays returns the day with the highest total Out and the day with
// the lowest strictly positive total Out. Both are nil when no day sold
// anything. Ties go to the earlier date.
func ExtremalDays(records []DailyRecord) (maxDay, minDay *DayTotal) {
	var days []DayTotal
	index := make(map[Date]int)
	for _, rec := range SortRecords(records) {
		i, ok := index[rec.Date]
		if !ok {
			i = len(days)
			index[rec.Date] = i
			days = append(days, DayTotal{Date: rec.Date, Total: decimal.Zero})
		}
		for _, line := range rec.Lines {
			days[i].Total = Add4(days[i].Total, line.Out)
		}
	}

	for i := range days {
		d := days[i]
		if !d.Total.IsPositive() {
			continue
		}
		if maxDay == nil || d.Total.GreaterThan(maxDay.Total) {
			maxDay = &d
		}
		if minDay == nil || d.Total.LessThan(minDay.Total) {
			minDay = &d
		}
	}
	return maxDay, minDay
}

// =============================================================================
// STATISTICS REPORT - Store-backed
// =============================================================================

// StatsQuery selects the records and views of a statistics report.
type StatsQuery struct {
	Range       TimeRange
	Today       Date
	Granularity Granularity
	Metric      Metric
	Slugs       []ArticleSlug // series selection; empty means the first DefaultSeriesArticles
	TopN        int
	ShareN      int
}

// Defaults applied to zero-valued StatsQuery fields.
const (
	DefaultSeriesArticles = 3
	DefaultTopN           = 5
	DefaultShareN         = 5
)

// Summary holds headline counts and totals.
type Summary struct {
	Articles int
	Records  int
	TotalIn  decimal.Decimal
	TotalOut decimal.Decimal
}

// StatsReport bundles every statistics view for one query.
type StatsReport struct {
	Range   DateRange
	Summary Summary
	Ranking []RankedArticle
	Top     []RankedArticle
	Bottom  []RankedArticle
	Share   []ShareSlice
	Series  Series
	MaxDay  *DayTotal
	MinDay  *DayTotal
}

// Statistics fetches the records in the query's range and aggregates them.
func (l *Ledger) Statistics(ctx context.Context, q StatsQuery) (StatsReport, error) {
	if q.Today.IsZero() {
		q.Today = Today()
	}
	if q.Granularity == "" {
		q.Granularity = GranularityMonth
	}
	if q.Metric == "" {
		q.Metric = MetricOut
	}
	if q.TopN <= 0 {
		q.TopN = DefaultTopN
	}
	if q.ShareN <= 0 {
		q.ShareN = DefaultShareN
	}

	r, err := q.Range.Resolve(q.Today)
	if err != nil {
		return StatsReport{}, err
	}
	articles, err := l.store.ListArticles(ctx)
	if err != nil {
		return StatsReport{}, WrapStorage("list articles", err)
	}
	records, err := l.store.ListDailyRecords(ctx, r)
	if err != nil {
		return StatsReport{}, WrapStorage("list daily records", err)
	}

	articles = SortArticles(articles)
	slugs := q.Slugs
	if len(slugs) == 0 {
		for _, a := range articles[:min(DefaultSeriesArticles, len(articles))] {
			slugs = append(slugs, a.Slug)
		}
	}

	report := StatsReport{Range: r}
	report.Summary = Summary{Articles: len(articles), Records: len(records), TotalIn: decimal.Zero, TotalOut: decimal.Zero}
	for _, t := range Totals(records, MetricIn) {
		report.Summary.TotalIn = Add4(report.Summary.TotalIn, t)
	}
	for _, t := range Totals(records, MetricOut) {
		report.Summary.TotalOut = Add4(report.Summary.TotalOut, t)
	}

	report.Ranking = Rank(articles, Totals(records, q.Metric))
	report.Top, report.Bottom = TopAndBottom(report.Ranking, q.TopN)
	report.Share = Share(report.Ranking, q.ShareN)
	report.Series = BucketSeries(records, slugs, q.Granularity, q.Metric)
	report.MaxDay, report.MinDay = ExtremalDays(records)
	return report, nil
}
