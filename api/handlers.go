/*
handlers.go - HTTP API handlers for the stock engine

PURPOSE:
  Exposes the stock engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the stock package.

ENDPOINTS:
  Articles:
    GET    /api/articles                 List articles in display order
    POST   /api/articles                 Create article
    GET    /api/articles/export          Catalog as seed JSON
    POST   /api/articles/seed            Replace the catalog from seed JSON
    GET    /api/articles/{id}            Get article
    PUT    /api/articles/{id}            Update article
    DELETE /api/articles/{id}            Delete article

  Records:
    GET    /api/records?from&to          List daily records
    GET    /api/records/{date}           Get one daily record
    PUT    /api/records/{date}           Manual entry (?confirm, ?dry_run)
    DELETE /api/records/{date}           Delete a daily record
    POST   /api/imports                  Import xlsx upload or JSON rows

  Views:
    GET    /api/stock/balances?as_of     Balances of every article
    GET    /api/stock/week?date          Weekly stock sheet
    GET    /api/stock/sheet?start&end    Stock sheet for any period
    GET    /api/alerts?as_of             Low-stock alerts
    GET    /api/statistics               Aggregated statistics

  Exports:
    GET    /api/reports/stock.xlsx       Stock report spreadsheet
    GET    /api/changelog/{id}/export    One change-log entry as spreadsheet

  Change log:
    GET    /api/changelog?limit&offset   History, newest first
    GET    /api/changelog/{id}           One entry
    GET    /api/changelog/{id}/copy      Lines to prefill a new entry

  Settings:
    GET    /api/settings                 Current settings
    PUT    /api/settings                 Replace settings

  Admin:
    GET    /api/admin/backup             Backup scheduler status
    POST   /api/admin/backup             Write a backup now
    POST   /api/admin/reset              Clear all data

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate request shape (validator tags on DTOs)
  3. Call the stock package (catalog, reconciler, ledger)
  4. Serialize response
  5. Map domain errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Confirmation required; the body carries the commit plan
  - 500: Storage errors

SECURITY NOTE:
  No authentication or authorization. Run behind a trusted network.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/stock-engine/factory"
	"github.com/warp/stock-engine/spreadsheet"
	"github.com/warp/stock-engine/stock"
)

// maxUploadBytes bounds multipart import uploads.
const maxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: the stock store plus a full reset
// for demo scenarios.
type Store interface {
	stock.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Store
	Catalog    *stock.Catalog
	Reconciler *stock.Reconciler
	Ledger     *stock.Ledger
	Settings   *stock.SettingsService
	Factory    *factory.CatalogFactory

	// Backups is nil when scheduled backups are disabled.
	Backups *BackupScheduler

	logger   *zap.Logger
	validate *validator.Validate
	today    func() stock.Date

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store. A nil logger
// disables logging.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Catalog:    stock.NewCatalog(store, logger.Named("catalog")),
		Reconciler: stock.NewReconciler(store, logger.Named("reconciler")),
		Ledger:     stock.NewLedger(store),
		Settings:   stock.NewSettingsService(store),
		Factory:    factory.NewCatalogFactory(),
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		today:      stock.Today,
	}
}

// Health reports whether the store is reachable.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ARTICLE ENDPOINTS
// =============================================================================

// ListArticles returns all articles in display order.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.Catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleDTOs(articles))
}

// GetArticle returns one article.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.Catalog.Get(r.Context(), stock.ArticleID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get article", err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleDTO(a))
}

// CreateArticle appends an article to the catalog.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.Catalog.Create(r.Context(), stock.ArticleInput{
		Name:     req.Name,
		Code:     req.Code,
		MinStock: req.MinStock,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create article", err)
		return
	}
	writeJSON(w, http.StatusCreated, toArticleDTO(a))
}

// UpdateArticle changes the fields present in the body. Renaming re-derives
// the slug; movements recorded under the old slug stay with it.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req UpdateArticleRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.Catalog.Update(r.Context(), stock.ArticleID(chi.URLParam(r, "id")), stock.ArticleUpdate{
		Name:     req.Name,
		Code:     req.Code,
		MinStock: req.MinStock,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update article", err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleDTO(a))
}

// DeleteArticle removes an article and renumbers the rest.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), stock.ArticleID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, "Failed to delete article", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExportCatalog returns the catalog in seed-file format.
func (h *Handler) ExportCatalog(w http.ResponseWriter, r *http.Request) {
	articles, err := h.Catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(articles))
}

// SeedCatalog replaces the whole catalog from seed JSON.
func (h *Handler) SeedCatalog(w http.ResponseWriter, r *http.Request) {
	var req factory.CatalogJSON
	if !h.decode(w, r, &req) {
		return
	}
	defs, err := h.Factory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid catalog", err)
		return
	}

	articles, err := h.Catalog.Seed(r.Context(), defs)
	if err != nil {
		h.writeDomainError(w, "Failed to seed catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleDTOs(articles))
}

// =============================================================================
// RECORD ENDPOINTS
// =============================================================================

// ListRecords returns the daily records in [from, to], ascending by date.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from", "")
	if err != nil {
		h.writeDomainError(w, "Invalid from date", err)
		return
	}
	to, err := queryDate(r, "to", "")
	if err != nil {
		h.writeDomainError(w, "Invalid to date", err)
		return
	}

	records, err := h.Store.ListDailyRecords(r.Context(), stock.DateRange{From: from, To: to})
	if err != nil {
		h.writeDomainError(w, "Failed to list records", stock.WrapStorage("list daily records", err))
		return
	}
	dtos := make([]DailyRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toDailyRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRecord returns the record committed for one date.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	date, err := stock.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, "Invalid date", err)
		return
	}

	rec, err := h.Store.GetDailyRecord(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, "Failed to get record", stock.WrapStorage("get daily record", err))
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Record not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toDailyRecordDTO(*rec))
}

// PutRecord commits manually entered lines for a date. Overwriting an
// existing record answers 409 with the plan until ?confirm=true is sent.
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	date, err := stock.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, "Invalid date", err)
		return
	}
	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.Reconciler.Entry(r.Context(), date, req.movementLines())
	if err != nil {
		h.writeDomainError(w, "Invalid entry", err)
		return
	}
	h.commit(w, r, plan)
}

// DeleteRecord removes the record for a date and logs the removed lines.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	date, err := stock.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeDomainError(w, "Invalid date", err)
		return
	}

	entry, err := h.Reconciler.CommitDelete(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, "Failed to delete record", err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeLogEntryDTO(entry))
}

// ImportRecords imports one day of movements, either as a multipart xlsx
// upload (fields: file, date, merge_duplicates) or as JSON rows.
func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	var (
		date stock.Date
		rows []stock.ImportRow
		opts stock.ImportOptions
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload", err)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing file", err)
			return
		}
		defer file.Close()

		rows, err = spreadsheet.ReadImportRows(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid spreadsheet", err)
			return
		}
		if date, err = stock.ParseDate(r.FormValue("date")); err != nil {
			h.writeDomainError(w, "Invalid date", err)
			return
		}
		opts.MergeDuplicates = formBool(r, "merge_duplicates")
	} else {
		var req ImportRequest
		if !h.decode(w, r, &req) {
			return
		}
		var err error
		if date, err = stock.ParseDate(req.Date); err != nil {
			h.writeDomainError(w, "Invalid date", err)
			return
		}
		rows = req.importRows()
		opts.MergeDuplicates = req.MergeDuplicates
	}

	plan, err := h.Reconciler.Import(r.Context(), date, rows, opts)
	if err != nil {
		h.writeDomainError(w, "Invalid import", err)
		return
	}
	h.commit(w, r, plan)
}

// commit finishes the plan-then-confirm flow shared by entry and import.
// ?dry_run=true returns the plan without writing.
func (h *Handler) commit(w http.ResponseWriter, r *http.Request, plan stock.CommitPlan) {
	if formBool(r, "dry_run") {
		writeJSON(w, http.StatusOK, toCommitPlanDTO(plan))
		return
	}
	if formBool(r, "confirm") {
		plan = plan.Confirm()
	}

	entry, err := h.Reconciler.Commit(r.Context(), plan)
	if err != nil {
		h.writeDomainError(w, "Failed to commit record", err)
		return
	}

	status := http.StatusOK
	if plan.Type == stock.ChangeCreate {
		status = http.StatusCreated
	}
	writeJSON(w, status, CommitResponse{
		Plan:  toCommitPlanDTO(plan),
		Entry: toChangeLogEntryDTO(entry),
	})
}

// =============================================================================
// STOCK VIEW ENDPOINTS
// =============================================================================

// GetBalances returns every article's balance at the end of as_of (today by
// default).
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of", h.today())
	if err != nil {
		h.writeDomainError(w, "Invalid as_of date", err)
		return
	}

	articles, balances, err := h.Ledger.CurrentBalances(r.Context(), asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balances", err)
		return
	}
	resp := BalancesResponse{AsOf: asOf.String(), Balances: make([]BalanceDTO, len(articles))}
	for i, a := range articles {
		bal := stock.Round4(balances[a.Slug])
		resp.Balances[i] = BalanceDTO{
			Article:  toArticleDTO(a),
			Balance:  qty(bal),
			BelowMin: bal.LessThan(a.Threshold()),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetWeek returns the Monday-Sunday sheet containing date (today by default).
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date", h.today())
	if err != nil {
		h.writeDomainError(w, "Invalid date", err)
		return
	}
	h.writeSheet(w, r, stock.WeekOf(date))
}

// GetSheet returns the sheet for an explicit start/end period.
func (h *Handler) GetSheet(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		h.writeDomainError(w, "Invalid period", err)
		return
	}
	h.writeSheet(w, r, period)
}

func (h *Handler) writeSheet(w http.ResponseWriter, r *http.Request, period stock.Period) {
	sheet, err := h.Ledger.Sheet(r.Context(), period)
	if err != nil {
		h.writeDomainError(w, "Failed to build stock sheet", err)
		return
	}
	writeJSON(w, http.StatusOK, toSheetDTO(sheet, spreadsheet.WeekdayName))
}

// GetAlerts returns articles strictly below their minimum stock as of as_of.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of", h.today())
	if err != nil {
		h.writeDomainError(w, "Invalid as_of date", err)
		return
	}
	settings, err := h.Settings.Load(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load settings", err)
		return
	}

	alerts, err := h.Ledger.Alerts(r.Context(), settings, asOf)
	if err != nil {
		h.writeDomainError(w, "Failed to evaluate alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, AlertsResponse{
		AsOf:    asOf.String(),
		Enabled: settings.StockAlerts.Enabled,
		Alerts:  toAlertDTOs(alerts),
	})
}

// GetStatistics aggregates records in a preset range.
// Query: range, granularity, metric, articles (comma-separated), top, share.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := stock.StatsQuery{
		Range: stock.TimeRange(q.Get("range")),
		Today: h.today(),
	}

	g, err := stock.ParseGranularity(q.Get("granularity"))
	if err != nil {
		h.writeDomainError(w, "Invalid granularity", err)
		return
	}
	query.Granularity = g

	switch m := stock.Metric(q.Get("metric")); m {
	case "", stock.MetricIn, stock.MetricOut:
		query.Metric = m
	default:
		h.writeDomainError(w, "Invalid metric", &stock.ValidationError{
			Code:    "invalid_metric",
			Message: fmt.Sprintf("unknown metric %q", m),
		})
		return
	}

	if raw := q.Get("articles"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if slug := stock.NormalizeSlug(s); slug != "" {
				query.Slugs = append(query.Slugs, slug)
			}
		}
	}
	if query.TopN, err = queryInt(r, "top"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	if query.ShareN, err = queryInt(r, "share"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid share", err)
		return
	}

	report, err := h.Ledger.Statistics(r.Context(), query)
	if err != nil {
		h.writeDomainError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsReportDTO(report))
}

// =============================================================================
// EXPORT ENDPOINTS
// =============================================================================

// ExportStockReport streams the stock report spreadsheet. Without start and
// end it covers every committed record.
func (h *Handler) ExportStockReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var period stock.Period
	if q.Get("start") == "" && q.Get("end") == "" {
		full, ok, err := h.Ledger.FullPeriod(ctx)
		if err != nil {
			h.writeDomainError(w, "Failed to resolve report period", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "No records to export", nil)
			return
		}
		period = full
	} else {
		p, err := queryPeriod(r)
		if err != nil {
			h.writeDomainError(w, "Invalid period", err)
			return
		}
		period = p
	}

	sheet, err := h.Ledger.Sheet(ctx, period)
	if err != nil {
		h.writeDomainError(w, "Failed to build stock sheet", err)
		return
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteStockReport(&buf, sheet); err != nil {
		h.writeDomainError(w, "Failed to write report", err)
		return
	}
	writeFile(w, spreadsheet.ContentType, spreadsheet.ReportFileName(period), buf.Bytes())
}

// ExportChangeLogEntry streams one change-log entry as a spreadsheet.
func (h *Handler) ExportChangeLogEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Reconciler.LogEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get change log entry", err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteChangeLogEntry(&buf, entry); err != nil {
		h.writeDomainError(w, "Failed to write change log entry", err)
		return
	}
	writeFile(w, spreadsheet.ContentType, spreadsheet.ChangeLogFileName(entry), buf.Bytes())
}

// =============================================================================
// CHANGE LOG ENDPOINTS
// =============================================================================

// ListChangeLog pages through the change log, newest first.
func (h *Handler) ListChangeLog(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offset", err)
		return
	}

	page, err := h.Reconciler.History(r.Context(), limit, offset)
	if err != nil {
		h.writeDomainError(w, "Failed to list change log", err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeLogPageDTO(page))
}

// GetChangeLogEntry returns one change-log entry.
func (h *Handler) GetChangeLogEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Reconciler.LogEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get change log entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeLogEntryDTO(entry))
}

// CopyChangeLogEntry returns the date and lines of an entry for prefilling.
func (h *Handler) CopyChangeLogEntry(w http.ResponseWriter, r *http.Request) {
	date, lines, err := h.Reconciler.CopyFromLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to copy change log entry", err)
		return
	}
	writeJSON(w, http.StatusOK, CopyResponse{Date: date.String(), Lines: toMovementLineDTOs(lines)})
}

// =============================================================================
// SETTINGS ENDPOINTS
// =============================================================================

// GetSettings returns the settings, creating defaults on first read.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Load(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// PutSettings replaces the settings document.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if !h.decode(w, r, &req) {
		return
	}

	settings := req.appSettings()
	if err := h.Settings.Save(r.Context(), settings); err != nil {
		h.writeDomainError(w, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// GetBackupStatus reports whether scheduled backups run and when.
// GET /api/admin/backup
func (h *Handler) GetBackupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toBackupStatusDTO(h.Backups))
}

// RunBackup writes a full-period report backup immediately.
// POST /api/admin/backup
func (h *Handler) RunBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "Backups are disabled", nil)
		return
	}
	path, err := h.Backups.Backup(r.Context())
	if err != nil {
		h.writeDomainError(w, "Backup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "file": path})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	h.logger.Info("database reset")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeDomainError maps stock errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var (
		conflict   *stock.ConflictError
		validation *stock.ValidationError
	)
	switch {
	case errors.As(err, &conflict):
		plan := toCommitPlanDTO(conflict.Plan)
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Confirmation required",
			Details: conflict.Error(),
			Code:    "confirmation_required",
			Plan:    &plan,
		})
	case errors.As(err, &validation):
		resp := ErrorResponse{Error: message, Details: validation.Error(), Code: validation.Code}
		for _, s := range validation.Unknown {
			resp.Unknown = append(resp.Unknown, string(s))
		}
		for _, d := range validation.Duplicates {
			resp.Duplicates = append(resp.Duplicates, DuplicateDTO{Slug: string(d.Slug), Name: d.DisplayName, Rows: d.Rows})
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case stock.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid request",
				Details: strings.Join(fields, "; "),
				Code:    "invalid_request",
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

func queryDate(r *http.Request, name string, fallback stock.Date) (stock.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return stock.ParseDate(raw)
}

func queryPeriod(r *http.Request) (stock.Period, error) {
	start, err := stock.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		return stock.Period{}, err
	}
	end, err := stock.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		return stock.Period{}, err
	}
	return stock.NewPeriod(start, end)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func formBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.FormValue(name))
	return b
}
