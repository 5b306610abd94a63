/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the stock domain model from the external API contract:
  - Quantities travel as decimal strings ("2.5"), never floats
  - Dates travel as YYYY-MM-DD strings
  - Field names are snake_case

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Articles:    ArticleDTO, CreateArticleRequest, UpdateArticleRequest
  Records:     DailyRecordDTO, MovementLineDTO, EntryRequest, ImportRequest
  Commits:     CommitPlanDTO, CommitResponse
  Change log:  ChangeLogEntryDTO, ChangeLogPageDTO, CopyResponse
  Stock:       BalancesResponse, SheetDTO, AlertsResponse
  Statistics:  StatsReportDTO
  Settings:    SettingsDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request shapes are checked with go-playground/validator struct tags.
  Domain rules (unknown articles, duplicates, thresholds) stay in the stock
  package and come back as *stock.ValidationError.

SEE ALSO:
  - handlers.go: Uses these types
  - stock/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// ARTICLES
// =============================================================================

// ArticleDTO represents an article in API responses.
type ArticleDTO struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Order    int    `json:"order"`
	MinStock string `json:"min_stock"`
}

// CreateArticleRequest is the request to create an article.
type CreateArticleRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"required,max=20"`
	MinStock string `json:"min_stock" validate:"omitempty,numeric"`
}

// UpdateArticleRequest changes only the fields present in the body.
type UpdateArticleRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Code     *string `json:"code" validate:"omitempty,min=1,max=20"`
	MinStock *string `json:"min_stock" validate:"omitempty,numeric"`
}

func toArticleDTO(a stock.Article) ArticleDTO {
	return ArticleDTO{
		ID:       string(a.ID),
		Code:     a.Code,
		Name:     a.Name,
		Slug:     string(a.Slug),
		Order:    a.Order,
		MinStock: a.Threshold().String(),
	}
}

func toArticleDTOs(articles []stock.Article) []ArticleDTO {
	out := make([]ArticleDTO, len(articles))
	for i, a := range articles {
		out[i] = toArticleDTO(a)
	}
	return out
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

// MovementLineDTO is one article's movement on one date.
type MovementLineDTO struct {
	Slug string `json:"slug"`
	In   string `json:"in"`
	Out  string `json:"out"`
}

// DailyRecordDTO is a committed day.
type DailyRecordDTO struct {
	Date  string            `json:"date"`
	Lines []MovementLineDTO `json:"lines"`
}

// EntryLineRequest is one manually entered line. In and Out accept numbers
// or numeric strings; anything else counts as zero.
type EntryLineRequest struct {
	Article string `json:"article" validate:"required"`
	In      any    `json:"in"`
	Out     any    `json:"out"`
}

// EntryRequest is the body of PUT /api/records/{date}.
type EntryRequest struct {
	Lines []EntryLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ImportRowDTO is one raw import row, as read from a spreadsheet.
type ImportRowDTO struct {
	Article string `json:"article"`
	In      any    `json:"in"`
	Out     any    `json:"out"`
}

// ImportRequest is the JSON form of POST /api/imports.
type ImportRequest struct {
	Date            string         `json:"date" validate:"required"`
	Rows            []ImportRowDTO `json:"rows" validate:"required,min=1"`
	MergeDuplicates bool           `json:"merge_duplicates"`
}

func qty(d decimal.Decimal) string {
	return stock.FormatQuantity(d)
}

func toMovementLineDTOs(lines []stock.MovementLine) []MovementLineDTO {
	out := make([]MovementLineDTO, len(lines))
	for i, l := range lines {
		out[i] = MovementLineDTO{Slug: string(l.Slug), In: qty(l.In), Out: qty(l.Out)}
	}
	return out
}

func toDailyRecordDTO(rec stock.DailyRecord) DailyRecordDTO {
	return DailyRecordDTO{Date: rec.Date.String(), Lines: toMovementLineDTOs(rec.Lines)}
}

func (r EntryRequest) movementLines() []stock.MovementLine {
	lines := make([]stock.MovementLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = stock.MovementLine{
			Slug: stock.NormalizeSlug(l.Article),
			In:   stock.ParseQuantity(l.In),
			Out:  stock.ParseQuantity(l.Out),
		}
	}
	return lines
}

func (r ImportRequest) importRows() []stock.ImportRow {
	rows := make([]stock.ImportRow, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = stock.ImportRow{Article: row.Article, In: row.In, Out: row.Out}
	}
	return rows
}

// =============================================================================
// COMMITS
// =============================================================================

// CommitPlanDTO describes a planned write. When requires_confirmation is true
// the client repeats the request with ?confirm=true.
type CommitPlanDTO struct {
	Type                 string            `json:"type"`
	Date                 string            `json:"date"`
	Lines                []MovementLineDTO `json:"lines"`
	Existing             []MovementLineDTO `json:"existing,omitempty"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
}

// CommitResponse is returned after a successful write.
type CommitResponse struct {
	Plan  CommitPlanDTO     `json:"plan"`
	Entry ChangeLogEntryDTO `json:"entry"`
}

func toCommitPlanDTO(p stock.CommitPlan) CommitPlanDTO {
	dto := CommitPlanDTO{
		Type:                 string(p.Type),
		Date:                 p.Date.String(),
		Lines:                toMovementLineDTOs(p.Lines),
		RequiresConfirmation: p.RequiresConfirmation,
	}
	if len(p.Existing) > 0 {
		dto.Existing = toMovementLineDTOs(p.Existing)
	}
	return dto
}

// =============================================================================
// CHANGE LOG
// =============================================================================

// LoggedLineDTO is a change-log line with the article details of its time.
type LoggedLineDTO struct {
	Slug string `json:"slug"`
	Code string `json:"code"`
	Name string `json:"name"`
	In   string `json:"in"`
	Out  string `json:"out"`
}

// ChangeLogEntryDTO is one audit entry.
type ChangeLogEntryDTO struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Date      string          `json:"date"`
	Timestamp time.Time       `json:"timestamp"`
	LineCount int             `json:"line_count"`
	Lines     []LoggedLineDTO `json:"lines"`
}

// ChangeLogPageDTO is one page of the change log, newest first.
type ChangeLogPageDTO struct {
	Entries []ChangeLogEntryDTO `json:"entries"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"has_more"`
}

// CopyResponse prefills a new entry from a change-log entry.
type CopyResponse struct {
	Date  string            `json:"date"`
	Lines []MovementLineDTO `json:"lines"`
}

func toChangeLogEntryDTO(e stock.ChangeLogEntry) ChangeLogEntryDTO {
	lines := make([]LoggedLineDTO, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = LoggedLineDTO{
			Slug: string(l.Slug),
			Code: l.Code,
			Name: l.Name,
			In:   qty(l.In),
			Out:  qty(l.Out),
		}
	}
	return ChangeLogEntryDTO{
		ID:        e.ID,
		Type:      string(e.Type),
		Date:      e.Date.String(),
		Timestamp: e.Timestamp,
		LineCount: e.LineCount,
		Lines:     lines,
	}
}

func toChangeLogPageDTO(p stock.ChangeLogPage) ChangeLogPageDTO {
	entries := make([]ChangeLogEntryDTO, len(p.Entries))
	for i, e := range p.Entries {
		entries[i] = toChangeLogEntryDTO(e)
	}
	return ChangeLogPageDTO{
		Entries: entries,
		Total:   p.Total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasMore(),
	}
}

// =============================================================================
// STOCK VIEWS
// =============================================================================

// BalanceDTO is one article's end-of-day balance.
type BalanceDTO struct {
	Article  ArticleDTO `json:"article"`
	Balance  string     `json:"balance"`
	BelowMin bool       `json:"below_min"`
}

// BalancesResponse lists every article's balance as of a date.
type BalancesResponse struct {
	AsOf     string       `json:"as_of"`
	Balances []BalanceDTO `json:"balances"`
}

// SheetCellDTO is one article on one day.
type SheetCellDTO struct {
	Date    string `json:"date"`
	In      string `json:"in"`
	Out     string `json:"out"`
	Balance string `json:"balance"`
}

// SheetRowDTO is one article across the sheet's period.
type SheetRowDTO struct {
	Article ArticleDTO     `json:"article"`
	Opening string         `json:"opening"`
	Closing string         `json:"closing"`
	Cells   []SheetCellDTO `json:"cells"`
}

// SheetDayDTO heads one column group of the sheet.
type SheetDayDTO struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

// SheetDTO is the weekly (or arbitrary period) stock grid.
type SheetDTO struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Days  []SheetDayDTO `json:"days"`
	Rows  []SheetRowDTO `json:"rows"`
}

// AlertDTO is an article below its minimum stock.
type AlertDTO struct {
	ArticleID    string `json:"article_id"`
	Slug         string `json:"slug"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
}

// AlertsResponse lists active alerts.
type AlertsResponse struct {
	AsOf    string     `json:"as_of"`
	Enabled bool       `json:"enabled"`
	Alerts  []AlertDTO `json:"alerts"`
}

func toSheetDTO(sheet stock.StockSheet, weekday func(stock.Date) string) SheetDTO {
	dto := SheetDTO{
		Start: sheet.Period.Start.String(),
		End:   sheet.Period.End.String(),
		Days:  make([]SheetDayDTO, len(sheet.Days)),
		Rows:  make([]SheetRowDTO, len(sheet.Rows)),
	}
	for i, d := range sheet.Days {
		dto.Days[i] = SheetDayDTO{Date: d.String(), Weekday: weekday(d)}
	}
	for i, row := range sheet.Rows {
		cells := make([]SheetCellDTO, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = SheetCellDTO{Date: c.Date.String(), In: qty(c.In), Out: qty(c.Out), Balance: qty(c.Balance)}
		}
		dto.Rows[i] = SheetRowDTO{
			Article: toArticleDTO(row.Article),
			Opening: qty(row.Opening),
			Closing: qty(row.Closing()),
			Cells:   cells,
		}
	}
	return dto
}

func toAlertDTOs(alerts []stock.Alert) []AlertDTO {
	out := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		out[i] = AlertDTO{
			ArticleID:    string(a.ArticleID),
			Slug:         string(a.Slug),
			Code:         a.Code,
			Name:         a.Name,
			CurrentStock: qty(a.CurrentStock),
			MinStock:     qty(a.MinStock),
		}
	}
	return out
}

// =============================================================================
// STATISTICS
// =============================================================================

// RankedArticleDTO is an article with its aggregated total.
type RankedArticleDTO struct {
	Slug  string `json:"slug"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Total string `json:"total"`
}

// ShareSliceDTO is one slice of the share breakdown.
type ShareSliceDTO struct {
	Label string `json:"label"`
	Slug  string `json:"slug,omitempty"`
	Total string `json:"total"`
}

// SeriesDTO is a bucketed time series.
type SeriesDTO struct {
	Granularity string              `json:"granularity"`
	Metric      string              `json:"metric"`
	Keys        []string            `json:"keys"`
	Labels      []string            `json:"labels"`
	Values      map[string][]string `json:"values"`
	Total       []string            `json:"total"`
}

// DayTotalDTO is a day's total Out.
type DayTotalDTO struct {
	Date  string `json:"date"`
	Total string `json:"total"`
}

// SummaryDTO holds headline counts and totals.
type SummaryDTO struct {
	Articles int    `json:"articles"`
	Records  int    `json:"records"`
	TotalIn  string `json:"total_in"`
	TotalOut string `json:"total_out"`
}

// StatsReportDTO bundles every statistics view.
type StatsReportDTO struct {
	From    string             `json:"from,omitempty"`
	To      string             `json:"to,omitempty"`
	Summary SummaryDTO         `json:"summary"`
	Ranking []RankedArticleDTO `json:"ranking"`
	Top     []RankedArticleDTO `json:"top"`
	Bottom  []RankedArticleDTO `json:"bottom"`
	Share   []ShareSliceDTO    `json:"share"`
	Series  SeriesDTO          `json:"series"`
	MaxDay  *DayTotalDTO       `json:"max_day"`
	MinDay  *DayTotalDTO       `json:"min_day"`
}

func toRankedDTOs(ranked []stock.RankedArticle) []RankedArticleDTO {
	out := make([]RankedArticleDTO, len(ranked))
	for i, r := range ranked {
		out[i] = RankedArticleDTO{
			Slug:  string(r.Article.Slug),
			Code:  r.Article.Code,
			Name:  r.Article.Name,
			Total: qty(r.Total),
		}
	}
	return out
}

func qtys(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = qty(v)
	}
	return out
}

func toDayTotalDTO(d *stock.DayTotal) *DayTotalDTO {
	if d == nil {
		return nil
	}
	return &DayTotalDTO{Date: d.Date.String(), Total: qty(d.Total)}
}

func toStatsReportDTO(r stock.StatsReport) StatsReportDTO {
	values := make(map[string][]string, len(r.Series.Values))
	for slug, v := range r.Series.Values {
		values[string(slug)] = qtys(v)
	}
	share := make([]ShareSliceDTO, len(r.Share))
	for i, s := range r.Share {
		share[i] = ShareSliceDTO{Label: s.Label, Slug: string(s.Slug), Total: qty(s.Total)}
	}
	return StatsReportDTO{
		From: r.Range.From.String(),
		To:   r.Range.To.String(),
		Summary: SummaryDTO{
			Articles: r.Summary.Articles,
			Records:  r.Summary.Records,
			TotalIn:  qty(r.Summary.TotalIn),
			TotalOut: qty(r.Summary.TotalOut),
		},
		Ranking: toRankedDTOs(r.Ranking),
		Top:     toRankedDTOs(r.Top),
		Bottom:  toRankedDTOs(r.Bottom),
		Share:   share,
		Series: SeriesDTO{
			Granularity: string(r.Series.Granularity),
			Metric:      string(r.Series.Metric),
			Keys:        r.Series.Keys,
			Labels:      r.Series.Labels,
			Values:      values,
			Total:       qtys(r.Series.Total),
		},
		MaxDay: toDayTotalDTO(r.MaxDay),
		MinDay: toDayTotalDTO(r.MinDay),
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// LockSettingsDTO configures the client-side app lock.
type LockSettingsDTO struct {
	Enabled        bool `json:"enabled"`
	TimeoutMinutes int  `json:"timeout_minutes" validate:"gte=0"`
}

// StockAlertSettingsDTO toggles low-stock alerts.
type StockAlertSettingsDTO struct {
	Enabled bool `json:"enabled"`
}

// SettingsDTO is the settings document, used for both GET and PUT.
type SettingsDTO struct {
	Lock        LockSettingsDTO       `json:"lock"`
	StockAlerts StockAlertSettingsDTO `json:"stock_alerts"`
}

func toSettingsDTO(s stock.AppSettings) SettingsDTO {
	return SettingsDTO{
		Lock:        LockSettingsDTO{Enabled: s.Lock.Enabled, TimeoutMinutes: s.Lock.TimeoutMinutes},
		StockAlerts: StockAlertSettingsDTO{Enabled: s.StockAlerts.Enabled},
	}
}

func (s SettingsDTO) appSettings() stock.AppSettings {
	return stock.AppSettings{
		Lock:        stock.LockSettings{Enabled: s.Lock.Enabled, TimeoutMinutes: s.Lock.TimeoutMinutes},
		StockAlerts: stock.StockAlertSettings{Enabled: s.StockAlerts.Enabled},
	}
}

// =============================================================================
// BACKUPS
// =============================================================================

// BackupStatusDTO describes the backup scheduler.
type BackupStatusDTO struct {
	Enabled  bool       `json:"enabled"`
	Running  bool       `json:"running"`
	Dir      string     `json:"dir,omitempty"`
	Interval string     `json:"interval,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

func toBackupStatusDTO(bs *BackupScheduler) BackupStatusDTO {
	if bs == nil {
		return BackupStatusDTO{}
	}
	dto := BackupStatusDTO{
		Enabled:  bs.Enabled,
		Running:  bs.Running(),
		Dir:      bs.Dir,
		Interval: bs.Interval.String(),
	}
	if t := bs.LastRun(); !t.IsZero() {
		dto.LastRun = &t
	}
	if t := bs.NextRun(); !t.IsZero() {
		dto.NextRun = &t
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// DuplicateDTO names an article that appears on more than one import row.
type DuplicateDTO struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Rows []int  `json:"rows"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string         `json:"error"`
	Details    string         `json:"details,omitempty"`
	Code       string         `json:"code,omitempty"`
	Unknown    []string       `json:"unknown,omitempty"`
	Duplicates []DuplicateDTO `json:"duplicates,omitempty"`
	Plan       *CommitPlanDTO `json:"plan,omitempty"`
}
