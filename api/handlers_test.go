package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/warp/stock-engine/spreadsheet"
	"github.com/warp/stock-engine/stock"
	"github.com/warp/stock-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testToday = stock.Date("2024-01-10")

func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, zaptest.NewLogger(t))
	h.today = func() stock.Date { return testToday }
	return h, NewRouter(h, zaptest.NewLogger(t), nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedColaAndVoda loads a two-article catalog: cola (min 10) and voda (min 5).
func seedColaAndVoda(t *testing.T, router http.Handler) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/articles/seed", map[string]any{
		"articles": []map[string]any{
			{"name": "Cola", "code": "C1", "min_stock": 10},
			{"name": "Voda", "code": "V1", "min_stock": 5},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func entry(lines ...map[string]any) EntryRequest {
	req := EntryRequest{}
	for _, l := range lines {
		req.Lines = append(req.Lines, EntryLineRequest{Article: l["article"].(string), In: l["in"], Out: l["out"]})
	}
	return req
}

// =============================================================================
// ARTICLES
// =============================================================================

func TestArticles_CRUD(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/articles", CreateArticleRequest{Name: "Coca Cola", Code: "CC", MinStock: "2.50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeAs[ArticleDTO](t, rec)
	assert.Equal(t, "coca-cola", created.Slug)
	assert.Equal(t, "2.5", created.MinStock)

	rec = do(t, router, http.MethodPost, "/api/articles", CreateArticleRequest{Name: "Voda", Code: "V"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeAs[[]ArticleDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Coca Cola", list[0].Name)
	assert.Equal(t, "10", list[1].MinStock)

	name := "Pepsi"
	rec = do(t, router, http.MethodPut, "/api/articles/"+created.ID, UpdateArticleRequest{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pepsi", decodeAs[ArticleDTO](t, rec).Slug)

	rec = do(t, router, http.MethodDelete, "/api/articles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/articles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArticles_Rejections(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/api/articles", CreateArticleRequest{Name: "Cola", Code: "C"}).Code)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing code", CreateArticleRequest{Name: "Sok"}, "invalid_request"},
		{"non-numeric min stock", CreateArticleRequest{Name: "Sok", Code: "S", MinStock: "ten"}, "invalid_request"},
		{"duplicate slug", CreateArticleRequest{Name: " cola ", Code: "X"}, "duplicate_slug"},
		{"duplicate code", CreateArticleRequest{Name: "Pepsi", Code: "c"}, "duplicate_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/articles", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeAs[ErrorResponse](t, rec).Code)
		})
	}
}

func TestArticles_ExportMatchesSeed(t *testing.T) {
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	rec := do(t, router, http.MethodGet, "/api/articles/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Articles []struct {
			Name     string      `json:"name"`
			Code     string      `json:"code"`
			MinStock json.Number `json:"min_stock"`
		} `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Articles, 2)
	assert.Equal(t, "Voda", body.Articles[1].Name)
	assert.Equal(t, "5", body.Articles[1].MinStock.String())
}

// =============================================================================
// RECORDS - PLAN / CONFIRM
// =============================================================================

func TestRecords_OverwriteNeedsConfirmation(t *testing.T) {
	// GIVEN: a committed record for 2024-01-08
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	rec := do(t, router, http.MethodPut, "/api/records/2024-01-08", entry(map[string]any{"article": "Cola", "in": 20}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeAs[CommitResponse](t, rec)
	assert.Equal(t, "CREATE", created.Plan.Type)
	assert.Equal(t, "CREATE", created.Entry.Type)

	// WHEN: writing the same date again without confirmation
	replacement := entry(map[string]any{"article": "cola", "out": "5"})
	rec = do(t, router, http.MethodPut, "/api/records/2024-01-08", replacement)

	// THEN: 409 carries the plan with the lines that would be replaced
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decodeAs[ErrorResponse](t, rec)
	assert.Equal(t, "confirmation_required", conflict.Code)
	require.NotNil(t, conflict.Plan)
	assert.Equal(t, "UPDATE", conflict.Plan.Type)
	assert.True(t, conflict.Plan.RequiresConfirmation)
	require.Len(t, conflict.Plan.Existing, 1)
	assert.Equal(t, "20", conflict.Plan.Existing[0].In)

	// WHEN: confirming
	rec = do(t, router, http.MethodPut, "/api/records/2024-01-08?confirm=true", replacement)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the record is fully replaced and both writes are logged
	rec = do(t, router, http.MethodGet, "/api/records/2024-01-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decodeAs[DailyRecordDTO](t, rec)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "0", stored.Lines[0].In)
	assert.Equal(t, "5", stored.Lines[0].Out)

	rec = do(t, router, http.MethodGet, "/api/changelog", nil)
	page := decodeAs[ChangeLogPageDTO](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "UPDATE", page.Entries[0].Type)
	assert.False(t, page.HasMore)
}

func TestRecords_DryRunWritesNothing(t *testing.T) {
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	rec := do(t, router, http.MethodPut, "/api/records/2024-01-08?dry_run=true", entry(map[string]any{"article": "Cola", "in": 3}))
	require.Equal(t, http.StatusOK, rec.Code)
	plan := decodeAs[CommitPlanDTO](t, rec)
	assert.Equal(t, "CREATE", plan.Type)
	assert.False(t, plan.RequiresConfirmation)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/records/2024-01-08", nil).Code)
}

func TestRecords_EntryValidation(t *testing.T) {
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	tests := []struct {
		name string
		path string
		body any
		code string
	}{
		{"bad date", "/api/records/2024-13-01", entry(map[string]any{"article": "Cola", "in": 1}), "invalid_date"},
		{"no lines", "/api/records/2024-01-08", EntryRequest{}, "invalid_request"},
		{"only zero lines", "/api/records/2024-01-08", entry(map[string]any{"article": "Cola", "in": 0, "out": "abc"}), "empty_batch"},
		{"unknown article", "/api/records/2024-01-08", entry(map[string]any{"article": "Pivo", "in": 1}), "unknown_articles"},
		{"duplicate line", "/api/records/2024-01-08", entry(
			map[string]any{"article": "Cola", "in": 1},
			map[string]any{"article": "COLA", "out": 1},
		), "duplicate_rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPut, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeAs[ErrorResponse](t, rec).Code)
		})
	}
}

func TestRecords_DeleteLogsRemovedLines(t *testing.T) {
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/records/2024-01-08", nil).Code)

	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPut, "/api/records/2024-01-08",
		entry(map[string]any{"article": "Cola", "in": 4}, map[string]any{"article": "Voda", "in": 2})).Code)

	rec := do(t, router, http.MethodDelete, "/api/records/2024-01-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decodeAs[ChangeLogEntryDTO](t, rec)
	assert.Equal(t, "DELETE", deleted.Type)
	assert.Equal(t, 2, deleted.LineCount)
	assert.Equal(t, "Cola", deleted.Lines[0].Name)

	rec = do(t, router, http.MethodGet, "/api/records?from=2024-01-01&to=2024-01-31", nil)
	assert.Empty(t, decodeAs[[]DailyRecordDTO](t, rec))
}

// =============================================================================
// IMPORTS
// =============================================================================

func TestImports_JSONRows(t *testing.T) {
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	t.Run("unknown articles are listed", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/imports", ImportRequest{
			Date: "2024-01-08",
			Rows: []ImportRowDTO{{Article: "Cola", In: 1}, {Article: "Pivo", In: 2}},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeAs[ErrorResponse](t, rec)
		assert.Equal(t, "unknown_articles", resp.Code)
		assert.Equal(t, []string{"pivo"}, resp.Unknown)
	})

	t.Run("duplicates are rejected with row numbers", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/imports", ImportRequest{
			Date: "2024-01-08",
			Rows: []ImportRowDTO{{Article: "Cola", In: 1}, {Article: "Voda", In: 1}, {Article: "cola", Out: 1}},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeAs[ErrorResponse](t, rec)
		assert.Equal(t, "duplicate_rows", resp.Code)
		require.Len(t, resp.Duplicates, 1)
		assert.Equal(t, "cola", resp.Duplicates[0].Slug)
		assert.Len(t, resp.Duplicates[0].Rows, 2)
	})

	t.Run("merge sums duplicates", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/imports", ImportRequest{
			Date:            "2024-01-08",
			Rows:            []ImportRowDTO{{Article: "Cola", In: "1.5"}, {Article: "cola", In: 2, Out: "0.25"}},
			MergeDuplicates: true,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decodeAs[CommitResponse](t, rec)
		require.Len(t, resp.Plan.Lines, 1)
		assert.Equal(t, "3.5", resp.Plan.Lines[0].In)
		assert.Equal(t, "0.25", resp.Plan.Lines[0].Out)
	})
}

func TestImports_MultipartSpreadsheet(t *testing.T) {
	_, router := newTestServer(t)
	seedColaAndVoda(t, router)

	// GIVEN: a workbook with a header row and two article rows
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]any{{"Artikl", "Ulaz", "Izlaz"}, {"Cola", 12, 0}, {"Voda", 3, 1}} {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	var xlsx bytes.Buffer
	require.NoError(t, f.Write(&xlsx))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("date", "2024-01-08"))
	part, err := mw.CreateFormFile("file", "unos.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	// WHEN
	req := httptest.NewRequest(http.MethodPost, "/api/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// THEN
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodGet, "/api/stock/balances?as_of=2024-01-08", nil)
	balances := decodeAs[BalancesResponse](t, rec)
	require.Len(t, balances.Balances, 2)
	assert.Equal(t, "12", balances.Balances[0].Balance)
	assert.Equal(t, "2", balances.Balances[1].Balance)
	assert.True(t, balances.Balances[1].BelowMin)
}

func TestImports_RejectsNonWorkbook(t *testing.T) {
	_, router := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("date", "2024-01-08"))
	part, err := mw.CreateFormFile("file", "unos.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a workbook"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// VIEWS
// =============================================================================

func commitColaWeek(t *testing.T, router http.Handler) {
	t.Helper()
	seedColaAndVoda(t, router)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPut, "/api/records/2024-01-08",
		entry(map[string]any{"article": "Cola", "in": 20}, map[string]any{"article": "Voda", "in": 6})).Code)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPut, "/api/records/2024-01-09",
		entry(map[string]any{"article": "Cola", "out": 15}, map[string]any{"article": "Voda", "out": "0.5"})).Code)
}

func TestAlerts_FollowSettings(t *testing.T) {
	_, router := newTestServer(t)
	commitColaWeek(t, router)

	// cola 20-15=5 < 10 is flagged, voda 5.5 >= 5 is not
	rec := do(t, router, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	alerts := decodeAs[AlertsResponse](t, rec)
	assert.Equal(t, testToday.String(), alerts.AsOf)
	assert.True(t, alerts.Enabled)
	require.Len(t, alerts.Alerts, 1)
	assert.Equal(t, "cola", alerts.Alerts[0].Slug)
	assert.Equal(t, "5", alerts.Alerts[0].CurrentStock)
	assert.Equal(t, "10", alerts.Alerts[0].MinStock)

	// before the sales day nothing is low
	rec = do(t, router, http.MethodGet, "/api/alerts?as_of=2024-01-08", nil)
	assert.Empty(t, decodeAs[AlertsResponse](t, rec).Alerts)

	// disabling alerts empties the list
	settings := SettingsDTO{Lock: LockSettingsDTO{Enabled: true, TimeoutMinutes: 30}}
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPut, "/api/settings", settings).Code)
	rec = do(t, router, http.MethodGet, "/api/alerts", nil)
	disabled := decodeAs[AlertsResponse](t, rec)
	assert.False(t, disabled.Enabled)
	assert.Empty(t, disabled.Alerts)
}

func TestWeekSheet(t *testing.T) {
	_, router := newTestServer(t)
	commitColaWeek(t, router)

	rec := do(t, router, http.MethodGet, "/api/stock/week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decodeAs[SheetDTO](t, rec)

	assert.Equal(t, "2024-01-08", sheet.Start)
	assert.Equal(t, "2024-01-14", sheet.End)
	require.Len(t, sheet.Days, 7)
	assert.Equal(t, "Ponedjeljak", sheet.Days[0].Weekday)
	require.Len(t, sheet.Rows, 2)

	cola := sheet.Rows[0]
	assert.Equal(t, "0", cola.Opening)
	assert.Equal(t, "20", cola.Cells[0].Balance)
	assert.Equal(t, "5", cola.Cells[1].Balance)
	assert.Equal(t, "5", cola.Cells[6].Balance, "balance carries across days without records")
	assert.Equal(t, "5", cola.Closing)

	rec = do(t, router, http.MethodGet, "/api/stock/sheet?start=2024-01-09&end=2024-01-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", decodeAs[SheetDTO](t, rec).Rows[0].Opening)

	rec = do(t, router, http.MethodGet, "/api/stock/sheet?start=2024-01-09&end=2024-01-08", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSheetAndReport_RejectOverlongPeriod(t *testing.T) {
	_, router := newTestServer(t)
	commitColaWeek(t, router)

	for _, path := range []string{
		"/api/stock/sheet?start=0001-01-01&end=9999-12-31",
		"/api/reports/stock.xlsx?start=0001-01-01&end=9999-12-31",
	} {
		rec := do(t, router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "period_too_long", decodeAs[ErrorResponse](t, rec).Code, path)
	}
}

func TestStatistics(t *testing.T) {
	_, router := newTestServer(t)
	commitColaWeek(t, router)

	rec := do(t, router, http.MethodGet, "/api/statistics?range=current_year&granularity=day", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeAs[StatsReportDTO](t, rec)
	assert.Equal(t, "2024-01-01", report.From)
	assert.Equal(t, 2, report.Summary.Records)
	assert.Equal(t, "26", report.Summary.TotalIn)
	assert.Equal(t, "15.5", report.Summary.TotalOut)
	require.Len(t, report.Ranking, 2)
	assert.Equal(t, "cola", report.Ranking[0].Slug)
	assert.Equal(t, []string{"2024-01-08", "2024-01-09"}, report.Series.Keys)
	require.NotNil(t, report.MaxDay)
	assert.Equal(t, "2024-01-09", report.MaxDay.Date)

	for _, query := range []string{"range=decade", "granularity=hour", "metric=profit", "top=-1"} {
		rec := do(t, router, http.MethodGet, "/api/statistics?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

// =============================================================================
// EXPORTS AND CHANGE LOG
// =============================================================================

func TestExportStockReport(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/reports/stock.xlsx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	commitColaWeek(t, router)
	rec = do(t, router, http.MethodGet, "/api/reports/stock.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, spreadsheet.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Stanje-artikala_2024-01-08_2024-01-09.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, spreadsheet.ReportSheetName, f.GetSheetName(0))
	name, err := f.GetCellValue(spreadsheet.ReportSheetName, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Cola", name)
}

func TestChangeLog_GetCopyExport(t *testing.T) {
	_, router := newTestServer(t)
	commitColaWeek(t, router)

	page := decodeAs[ChangeLogPageDTO](t, do(t, router, http.MethodGet, "/api/changelog?limit=1", nil))
	require.Len(t, page.Entries, 1)
	assert.True(t, page.HasMore)
	latest := page.Entries[0]
	assert.Equal(t, "2024-01-09", latest.Date)

	rec := do(t, router, http.MethodGet, "/api/changelog/"+latest.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, latest.ID, decodeAs[ChangeLogEntryDTO](t, rec).ID)

	rec = do(t, router, http.MethodGet, "/api/changelog/"+latest.ID+"/copy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	copied := decodeAs[CopyResponse](t, rec)
	assert.Equal(t, "2024-01-09", copied.Date)
	require.Len(t, copied.Lines, 2)
	assert.Equal(t, "0.5", copied.Lines[1].Out)

	rec = do(t, router, http.MethodGet, "/api/changelog/"+latest.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Unos_09-01-2024_CREATE.xlsx")

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/changelog/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/changelog/missing/copy", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/changelog?offset=x", nil).Code)
}

// =============================================================================
// SETTINGS AND ADMIN
// =============================================================================

func TestSettings(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	defaults := decodeAs[SettingsDTO](t, rec)
	assert.True(t, defaults.Lock.Enabled)
	assert.Equal(t, 30, defaults.Lock.TimeoutMinutes)
	assert.True(t, defaults.StockAlerts.Enabled)

	bad := SettingsDTO{Lock: LockSettingsDTO{Enabled: true, TimeoutMinutes: 45}}
	rec = do(t, router, http.MethodPut, "/api/settings", bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_lock_timeout", decodeAs[ErrorResponse](t, rec).Code)

	good := SettingsDTO{Lock: LockSettingsDTO{Enabled: true, TimeoutMinutes: 60}, StockAlerts: StockAlertSettingsDTO{Enabled: true}}
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPut, "/api/settings", good).Code)
	assert.Equal(t, good, decodeAs[SettingsDTO](t, do(t, router, http.MethodGet, "/api/settings", nil)))
}

func TestHealthAndBackupDisabled(t *testing.T) {
	_, router := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/health", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/api/admin/backup", nil).Code)
}
