package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/stock"
	"github.com/warp/stock-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "stock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func movement(slug, in, out string) stock.MovementLine {
	return stock.MovementLine{Slug: stock.ArticleSlug(slug), In: stock.MustQuantity(in), Out: stock.MustQuantity(out)}
}

// =============================================================================
// ARTICLES
// =============================================================================

func TestStore_ArticlesUpsertAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveArticles(ctx,
		stock.Article{ID: "b", Code: "S", Name: "Sok", Slug: "sok", Order: 1, MinStock: "2.5"},
		stock.Article{ID: "a", Code: "C", Name: "Cola", Slug: "cola", Order: 0, MinStock: "10"},
	))

	articles, err := s.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, stock.ArticleSlug("cola"), articles[0].Slug)
	assert.Equal(t, "2.5", articles[1].MinStock)

	// upsert keeps the row count
	require.NoError(t, s.SaveArticles(ctx, stock.Article{ID: "a", Code: "C", Name: "Cola Zero", Slug: "cola-zero", Order: 2}))
	got, err := s.GetArticle(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cola Zero", got.Name)
	assert.Equal(t, 2, got.Order)

	require.NoError(t, s.DeleteArticle(ctx, "a"))
	missing, err := s.GetArticle(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

func TestStore_DailyRecordsReplaceAndRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, rec := range []stock.DailyRecord{
		{Date: "2024-01-03", Lines: []stock.MovementLine{movement("cola", "0", "5")}},
		{Date: "2024-01-01", Lines: []stock.MovementLine{movement("cola", "20", "0"), movement("sok", "1.2345", "0")}},
		{Date: "2024-01-02", Lines: []stock.MovementLine{movement("sok", "0", "0.5")}},
	} {
		require.NoError(t, s.PutDailyRecord(ctx, rec))
	}

	all, err := s.ListDailyRecords(ctx, stock.AllDates())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, stock.Date("2024-01-01"), all[0].Date)
	require.Len(t, all[0].Lines, 2)
	assert.Equal(t, "1.2345", all[0].Lines[1].In.String())

	window, err := s.ListDailyRecords(ctx, stock.DateRange{From: "2024-01-02", To: "2024-01-02"})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, stock.Date("2024-01-02"), window[0].Date)

	// replacing a record drops its old lines
	require.NoError(t, s.PutDailyRecord(ctx, stock.DailyRecord{
		Date:  "2024-01-01",
		Lines: []stock.MovementLine{movement("voda", "3", "0")},
	}))
	rec, err := s.GetDailyRecord(ctx, "2024-01-01")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, stock.ArticleSlug("voda"), rec.Lines[0].Slug)

	require.NoError(t, s.DeleteDailyRecord(ctx, "2024-01-01"))
	gone, err := s.GetDailyRecord(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// =============================================================================
// CHANGE LOG
// =============================================================================

func TestStore_ChangeLogNewestFirstWithTotal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.AppendChangeLog(ctx, stock.ChangeLogEntry{
			ID:        id,
			Type:      stock.ChangeCreate,
			Date:      "2024-01-01",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			LineCount: 1,
			Lines: []stock.LoggedLine{{
				MovementLine: movement("cola", "2", "0.25"),
				Code:         "C",
				Name:         "Cola",
			}},
		}))
	}

	page, total, err := s.ListChangeLog(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "e3", page[0].ID)
	assert.Equal(t, "e2", page[1].ID)

	rest, _, err := s.ListChangeLog(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "e1", rest[0].ID)

	entry, err := s.GetChangeLog(ctx, "e2")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Timestamp.Equal(base.Add(time.Minute)))
	require.Len(t, entry.Lines, 1)
	assert.Equal(t, "Cola", entry.Lines[0].Name)
	assert.Equal(t, "0.25", entry.Lines[0].Out.String())

	missing, err := s.GetChangeLog(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// SETTINGS AND TRANSACTIONS
// =============================================================================

func TestStore_Settings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	none, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	want := stock.AppSettings{
		Lock:        stock.LockSettings{Enabled: false, TimeoutMinutes: 15},
		StockAlerts: stock.StockAlertSettings{Enabled: true},
	}
	require.NoError(t, s.SaveSettings(ctx, want))
	require.NoError(t, s.SaveSettings(ctx, want))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestStore_WithTxRollsBackRecordAndLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx stock.Store) error {
		require.NoError(t, tx.PutDailyRecord(ctx, stock.DailyRecord{
			Date:  "2024-01-01",
			Lines: []stock.MovementLine{movement("cola", "1", "0")},
		}))
		require.NoError(t, tx.AppendChangeLog(ctx, stock.ChangeLogEntry{ID: "x", Type: stock.ChangeCreate, Date: "2024-01-01", Timestamp: time.Now()}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := s.GetDailyRecord(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, rec)
	_, total, err := s.ListChangeLog(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestStore_ReconcilerCommitEndToEnd(t *testing.T) {
	// GIVEN: a seeded catalog in SQLite
	ctx := context.Background()
	s := newTestStore(t)
	_, err := stock.NewCatalog(s, nil).Seed(ctx, []stock.ArticleInput{
		{Name: "Cola", Code: "C01"},
		{Name: "Voda", Code: "V01", MinStock: "5"},
	})
	require.NoError(t, err)
	reconciler := stock.NewReconciler(s, nil)

	// WHEN: importing two days
	for _, day := range []struct {
		date string
		rows []stock.ImportRow
	}{
		{"2024-01-01", []stock.ImportRow{{Article: "Cola", In: 20, Out: 0}, {Article: "Voda", In: "4", Out: nil}}},
		{"2024-01-02", []stock.ImportRow{{Article: "cola", In: 0, Out: 15}}},
	} {
		plan, err := reconciler.Import(ctx, stock.MustParseDate(day.date), day.rows, stock.ImportOptions{})
		require.NoError(t, err)
		_, err = reconciler.Commit(ctx, plan)
		require.NoError(t, err)
	}

	// THEN: balances and alerts come out of the persisted state
	ledger := stock.NewLedger(s)
	alerts, err := ledger.Alerts(ctx, stock.DefaultSettings(), stock.MustParseDate("2024-01-02"))
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "5", alerts[0].CurrentStock.String())
	assert.Equal(t, "4", alerts[1].CurrentStock.String())

	page, err := reconciler.History(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveArticles(ctx, stock.Article{ID: "a", Code: "C", Name: "Cola", Slug: "cola"}))
	require.NoError(t, s.PutDailyRecord(ctx, stock.DailyRecord{Date: "2024-01-01", Lines: []stock.MovementLine{movement("cola", "1", "0")}}))

	require.NoError(t, s.Reset(ctx))

	articles, err := s.ListArticles(ctx)
	require.NoError(t, err)
	assert.Empty(t, articles)
	records, err := s.ListDailyRecords(ctx, stock.AllDates())
	require.NoError(t, err)
	assert.Empty(t, records)
}
