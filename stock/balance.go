/*
balance.go - Running-stock computation (BalanceEngine)

PURPOSE:
  Computes per-article stock as of a date by folding committed DailyRecords
  in chronological order. Pure functions over a snapshot; the Ledger type
  adds the store reads around them.

FOLD RULE:
  balance = seed
  for each record with date <= asOf, ascending by date:
      balance = Round4(balance + Round4(sum(in) - sum(out)))

  Multiple lines for the same slug within one record are summed before the
  step. The fold re-sorts its input, so callers may pass records unsorted.

BASELINE + WINDOW:
  Weekly views and reports fold all records strictly before the window
  start once (the opening balance) and then fold only the window on top.
  BalanceFrom takes that opening balance as its seed.

SEE ALSO:
  - sheet.go: Day-by-day grid built on these folds
  - alerts.go: Consumes Balances
  - numeric.go: Add4/Sub4
*/
package stock

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PURE FOLDS
// =============================================================================

// Delta is the movement of one article within exactly one record.
type Delta struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

// Net returns In - Out, rounded.
func (d Delta) Net() decimal.Decimal { return Sub4(d.In, d.Out) }

// SortRecords returns a copy of records sorted ascending by date.
func SortRecords(records []DailyRecord) []DailyRecord {
	sorted := make([]DailyRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}

// DailyDelta sums every line for slug within rec. In and Out are kept apart.
func DailyDelta(slug ArticleSlug, rec DailyRecord) Delta {
	d := Delta{In: decimal.Zero, Out: decimal.Zero}
	for _, line := range rec.Lines {
		if line.Slug != slug {
			continue
		}
		d.In = Add4(d.In, line.In)
		d.Out = Add4(d.Out, line.Out)
	}
	return d
}

// BalanceAsOf returns the stock of slug at the end of asOf.
func BalanceAsOf(slug ArticleSlug, asOf Date, records []DailyRecord) decimal.Decimal {
	return BalanceFrom(decimal.Zero, slug, asOf, records)
}

// BalanceFrom folds records on top of seed, the balance before the earliest
// record passed in.
func BalanceFrom(seed decimal.Decimal, slug ArticleSlug, asOf Date, records []DailyRecord) decimal.Decimal {
	balance := Round4(seed)
	for _, rec := range SortRecords(records) {
		if rec.Date > asOf {
			break
		}
		balance = Add4(balance, DailyDelta(slug, rec).Net())
	}
	return balance
}

// Balances computes the balance of every slug that appears in records as of
// asOf. An empty asOf includes every record.
func Balances(records []DailyRecord, asOf Date) map[ArticleSlug]decimal.Decimal {
	balances := make(map[ArticleSlug]decimal.Decimal)
	for _, rec := range SortRecords(records) {
		if !asOf.IsZero() && rec.Date > asOf {
			break
		}
		deltas := make(map[ArticleSlug]Delta)
		var order []ArticleSlug
		for _, line := range rec.Lines {
			d, seen := deltas[line.Slug]
			if !seen {
				d = Delta{In: decimal.Zero, Out: decimal.Zero}
				order = append(order, line.Slug)
			}
			d.In = Add4(d.In, line.In)
			d.Out = Add4(d.Out, line.Out)
			deltas[line.Slug] = d
		}
		for _, slug := range order {
			balances[slug] = Add4(balances[slug], deltas[slug].Net())
		}
	}
	return balances
}

// SortArticles returns a copy of articles ordered by Order.
func SortArticles(articles []Article) []Article {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// =============================================================================
// LEDGER - Store-backed balance queries
// =============================================================================

// Ledger fetches snapshots from the store and runs the pure folds on them.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// BalanceAt returns the balance of one article at the end of date.
func (l *Ledger) BalanceAt(ctx context.Context, slug ArticleSlug, date Date) (decimal.Decimal, error) {
	records, err := l.store.ListDailyRecords(ctx, Until(date))
	if err != nil {
		return decimal.Zero, WrapStorage("list daily records", err)
	}
	return BalanceAsOf(slug, date, records), nil
}

// CurrentBalances returns every article's balance at the end of asOf.
// Articles without movements are reported as zero.
func (l *Ledger) CurrentBalances(ctx context.Context, asOf Date) ([]Article, map[ArticleSlug]decimal.Decimal, error) {
	articles, err := l.store.ListArticles(ctx)
	if err != nil {
		return nil, nil, WrapStorage("list articles", err)
	}
	records, err := l.store.ListDailyRecords(ctx, Until(asOf))
	if err != nil {
		return nil, nil, WrapStorage("list daily records", err)
	}
	balances := Balances(records, asOf)
	for _, a := range articles {
		if _, ok := balances[a.Slug]; !ok {
			balances[a.Slug] = decimal.Zero
		}
	}
	return SortArticles(articles), balances, nil
}

// Sheet builds the day-by-day grid for period.
func (l *Ledger) Sheet(ctx context.Context, period Period) (StockSheet, error) {
	articles, err := l.store.ListArticles(ctx)
	if err != nil {
		return StockSheet{}, WrapStorage("list articles", err)
	}
	baseline, err := l.store.ListDailyRecords(ctx, StrictlyBefore(period.Start))
	if err != nil {
		return StockSheet{}, WrapStorage("list daily records", err)
	}
	window, err := l.store.ListDailyRecords(ctx, period.Range())
	if err != nil {
		return StockSheet{}, WrapStorage("list daily records", err)
	}
	return BuildStockSheet(articles, baseline, window, period), nil
}

// FullPeriod returns the span from the first to the last committed record.
// ok is false when there are no records.
func (l *Ledger) FullPeriod(ctx context.Context) (Period, bool, error) {
	records, err := l.store.ListDailyRecords(ctx, AllDates())
	if err != nil {
		return Period{}, false, WrapStorage("list daily records", err)
	}
	if len(records) == 0 {
		return Period{}, false, nil
	}
	return Period{Start: records[0].Date, End: records[len(records)-1].Date}, true, nil
}
