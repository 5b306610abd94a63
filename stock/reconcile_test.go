package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/stock"
	"github.com/warp/stock-engine/stock/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newReconcileFixture(t *testing.T) (*store.Memory, *stock.Reconciler) {
	t.Helper()
	mem := store.NewMemory()
	_, err := stock.NewCatalog(mem, nil).Seed(context.Background(), []stock.ArticleInput{
		{Name: "Cola", Code: "C01"},
		{Name: "Sok od jabuke", Code: "S01"},
		{Name: "Voda", Code: "V01", MinStock: "5"},
	})
	require.NoError(t, err)
	return mem, stock.NewReconciler(mem, nil)
}

func rows(triples ...[3]any) []stock.ImportRow {
	out := make([]stock.ImportRow, len(triples))
	for i, tr := range triples {
		out[i] = stock.ImportRow{Article: tr[0].(string), In: tr[1], Out: tr[2]}
	}
	return out
}

func slugs(lines []stock.MovementLine) []stock.ArticleSlug {
	out := make([]stock.ArticleSlug, len(lines))
	for i, l := range lines {
		out[i] = l.Slug
	}
	return out
}

// =============================================================================
// PURE BATCH CHECKS
// =============================================================================

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, stock.ArticleSlug("sok-od-jabuke"), stock.NormalizeSlug("  Sok od Jabuke "))
	assert.Equal(t, stock.ArticleSlug("čokolada"), stock.NormalizeSlug("ČOKOLADA"))
	assert.Equal(t, stock.ArticleSlug("a--b"), stock.NormalizeSlug("a  b"))
}

func TestDetectDuplicates_HeaderAdjustedRows(t *testing.T) {
	// GIVEN: "cola" on batch indexes 1 and 5 (spreadsheet rows 3 and 7)
	batch := rows(
		[3]any{"Voda", 1, 0},
		[3]any{"Cola", 2, 0},
		[3]any{"Sok od jabuke", 0, 1},
		[3]any{"Pivo", 0, 1},
		[3]any{"Vino", 0, 1},
		[3]any{" cola ", 0, 3},
	)

	// WHEN
	dups := stock.DetectDuplicates(batch)

	// THEN
	require.Len(t, dups, 1)
	assert.Equal(t, stock.ArticleSlug("cola"), dups[0].Slug)
	assert.Equal(t, "Cola", dups[0].DisplayName)
	assert.Equal(t, []int{3, 7}, dups[0].Rows)
}

func TestDetectDuplicates_PrefersSourceRows(t *testing.T) {
	batch := []stock.ImportRow{
		{Article: "Cola", In: 1, Row: 2},
		{Article: "cola", Out: 1, Row: 9},
	}

	dups := stock.DetectDuplicates(batch)

	require.Len(t, dups, 1)
	assert.Equal(t, []int{2, 9}, dups[0].Rows)
}

func TestDetectDuplicates_NoneReturnsEmpty(t *testing.T) {
	dups := stock.DetectDuplicates(rows([3]any{"Cola", 1, 0}, [3]any{"Voda", 1, 0}))
	assert.NotNil(t, dups)
	assert.Empty(t, dups)
}

func TestValidateArticles_CollectsAllUnknown(t *testing.T) {
	known := stock.SlugSet([]stock.Article{{Slug: "cola"}, {Slug: "voda"}})
	batch := rows(
		[3]any{"Pivo", 1, 0},
		[3]any{"Cola", 1, 0},
		[3]any{"Vino", 1, 0},
		[3]any{"pivo", 2, 0},
	)

	unknown := stock.ValidateArticles(batch, known)

	assert.Equal(t, []stock.ArticleSlug{"pivo", "vino"}, unknown)
}

func TestBuildRecord_CoercesAndDropsZeroLines(t *testing.T) {
	batch := rows(
		[3]any{"Cola", "abc", "4"},
		[3]any{"Voda", "", nil},
		[3]any{"Sok od jabuke", 2.5, "x"},
	)

	rec := stock.BuildRecord(stock.MustParseDate("2024-01-01"), batch)

	require.Len(t, rec.Lines, 2)
	assert.Equal(t, []stock.ArticleSlug{"cola", "sok-od-jabuke"}, slugs(rec.Lines))
	assertQty(t, "0", rec.Lines[0].In)
	assertQty(t, "4", rec.Lines[0].Out)
	assertQty(t, "2.5", rec.Lines[1].In)
}

func TestPlanCommit_CreateVersusUpdate(t *testing.T) {
	date := stock.MustParseDate("2024-02-01")
	lines := []stock.MovementLine{line("cola", "1", "0")}

	create := stock.PlanCommit(date, lines, nil)
	assert.Equal(t, stock.ChangeCreate, create.Type)
	assert.False(t, create.RequiresConfirmation)
	assert.True(t, create.Confirmed())

	existing := record("2024-02-01", line("voda", "3", "0"))
	update := stock.PlanCommit(date, lines, &existing)
	assert.Equal(t, stock.ChangeUpdate, update.Type)
	assert.True(t, update.RequiresConfirmation)
	assert.False(t, update.Confirmed())
	assert.True(t, update.Confirm().Confirmed())
	assert.Equal(t, existing.Lines, update.Existing)
}

// =============================================================================
// IMPORT FLOW
// =============================================================================

func TestImport_ZeroLineBatchRejectedBeforeWrite(t *testing.T) {
	// GIVEN: every row nets to zero after parsing
	ctx := context.Background()
	mem, rec := newReconcileFixture(t)
	batch := rows([3]any{"Cola", 0, 0}, [3]any{"Voda", "n/a", ""})

	// WHEN
	_, err := rec.Import(ctx, stock.MustParseDate("2024-01-01"), batch, stock.ImportOptions{})

	// THEN: validation error, nothing written
	var verr *stock.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "empty_batch", verr.Code)
	assert.True(t, stock.IsClientError(err))

	got, err := mem.GetDailyRecord(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, got)
	_, total, err := mem.ListChangeLog(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestImport_RejectsDuplicatesUnlessMerging(t *testing.T) {
	ctx := context.Background()
	_, rec := newReconcileFixture(t)
	date := stock.MustParseDate("2024-01-01")
	batch := rows([3]any{"Cola", 2, 0}, [3]any{"Voda", 1, 0}, [3]any{"COLA", 3, 1})

	_, err := rec.Import(ctx, date, batch, stock.ImportOptions{})
	var verr *stock.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "duplicate_rows", verr.Code)
	require.Len(t, verr.Duplicates, 1)
	assert.Equal(t, []int{2, 4}, verr.Duplicates[0].Rows)

	plan, err := rec.Import(ctx, date, batch, stock.ImportOptions{MergeDuplicates: true})
	require.NoError(t, err)
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, stock.ArticleSlug("cola"), plan.Lines[0].Slug)
	assertQty(t, "5", plan.Lines[0].In)
	assertQty(t, "1", plan.Lines[0].Out)
}

func TestImport_ReportsEveryUnknownArticle(t *testing.T) {
	ctx := context.Background()
	_, rec := newReconcileFixture(t)
	batch := rows([3]any{"Pivo", 1, 0}, [3]any{"Cola", 1, 0}, [3]any{"Vino", 1, 0})

	_, err := rec.Import(ctx, stock.MustParseDate("2024-01-01"), batch, stock.ImportOptions{})

	var verr *stock.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []stock.ArticleSlug{"pivo", "vino"}, verr.Unknown)
	assert.Contains(t, err.Error(), "pivo, vino")
}

func TestImport_ExistingDateRequiresConfirmationThenReplaces(t *testing.T) {
	// GIVEN: a committed record for 2024-02-01
	ctx := context.Background()
	mem, rec := newReconcileFixture(t)
	date := stock.MustParseDate("2024-02-01")
	first, err := rec.Import(ctx, date, rows([3]any{"Cola", 10, 0}, [3]any{"Sok od jabuke", 4, 0}), stock.ImportOptions{})
	require.NoError(t, err)
	require.Equal(t, stock.ChangeCreate, first.Type)
	_, err = rec.Commit(ctx, first)
	require.NoError(t, err)

	// WHEN: importing again for the same date
	plan, err := rec.Import(ctx, date, rows([3]any{"Voda", 6, 1}), stock.ImportOptions{})
	require.NoError(t, err)

	// THEN: the plan needs confirmation
	assert.Equal(t, stock.ChangeUpdate, plan.Type)
	assert.True(t, plan.RequiresConfirmation)
	assert.Equal(t, []stock.ArticleSlug{"cola", "sok-od-jabuke"}, slugs(plan.Existing))

	// AND: committing without confirmation is refused and changes nothing
	_, err = rec.Commit(ctx, plan)
	var conflict *stock.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, stock.NeedsConfirmation(err))
	stored, err := mem.GetDailyRecord(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []stock.ArticleSlug{"cola", "sok-od-jabuke"}, slugs(stored.Lines))

	// AND: the confirmed commit replaces every old line and logs one UPDATE
	entry, err := rec.Commit(ctx, plan.Confirm())
	require.NoError(t, err)
	assert.Equal(t, stock.ChangeUpdate, entry.Type)
	assert.Equal(t, 1, entry.LineCount)

	stored, err = mem.GetDailyRecord(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []stock.ArticleSlug{"voda"}, slugs(stored.Lines))

	entries, total, err := mem.ListChangeLog(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, stock.ChangeUpdate, entries[0].Type)
	assert.Equal(t, stock.ChangeCreate, entries[1].Type)
}

func TestCommit_AnnotatesLoggedLines(t *testing.T) {
	ctx := context.Background()
	_, rec := newReconcileFixture(t)
	plan, err := rec.Entry(ctx, stock.MustParseDate("2024-03-01"), []stock.MovementLine{line("sok-od-jabuke", "2", "0")})
	require.NoError(t, err)

	entry, err := rec.Commit(ctx, plan)
	require.NoError(t, err)

	require.Len(t, entry.Lines, 1)
	assert.Equal(t, "S01", entry.Lines[0].Code)
	assert.Equal(t, "Sok od jabuke", entry.Lines[0].Name)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestCommit_RollsBackWhenLogAppendFails(t *testing.T) {
	// GIVEN: a store whose change-log append fails
	ctx := context.Background()
	mem, rec := newReconcileFixture(t)
	plan, err := rec.Entry(ctx, stock.MustParseDate("2024-03-01"), []stock.MovementLine{line("cola", "2", "0")})
	require.NoError(t, err)
	mem.FailOn("AppendChangeLog", errors.New("disk full"))

	// WHEN
	_, err = rec.Commit(ctx, plan)

	// THEN: a storage error, and the record write is not observable
	require.Error(t, err)
	assert.ErrorIs(t, err, stock.ErrStorage)
	assert.Contains(t, err.Error(), "disk full")
	got, err := mem.GetDailyRecord(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCommit_EnforcesOneLinePerKnownArticle(t *testing.T) {
	ctx := context.Background()
	mem, rec := newReconcileFixture(t)
	date := stock.MustParseDate("2024-03-01")

	tests := []struct {
		name  string
		lines []stock.MovementLine
		code  string
	}{
		{"repeated slug", []stock.MovementLine{line("cola", "1", "0"), line("cola", "0", "2")}, "duplicate_rows"},
		{"only zero lines", []stock.MovementLine{line("cola", "0", "0")}, "empty_batch"},
		{"unknown slug", []stock.MovementLine{line("pivo", "1", "0")}, "unknown_articles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: a plan built directly, bypassing Import and Entry
			plan := stock.PlanCommit(date, tt.lines, nil)

			// WHEN
			_, err := rec.Commit(ctx, plan)

			// THEN: nothing is written
			var verr *stock.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)
			got, err := mem.GetDailyRecord(ctx, date)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}

	// zero lines alongside real ones are dropped
	entry, err := rec.Commit(ctx, stock.PlanCommit(date, []stock.MovementLine{line("cola", "0", "0"), line("voda", "1", "0")}, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, entry.LineCount)
	got, err := mem.GetDailyRecord(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []stock.ArticleSlug{"voda"}, slugs(got.Lines))
}

// =============================================================================
// MANUAL ENTRY, DELETE, COPY
// =============================================================================

func TestEntry_FiltersZeroLinesAndRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	_, rec := newReconcileFixture(t)
	date := stock.MustParseDate("2024-03-01")

	plan, err := rec.Entry(ctx, date, []stock.MovementLine{line("cola", "0", "0"), line("voda", "1", "0")})
	require.NoError(t, err)
	assert.Equal(t, []stock.ArticleSlug{"voda"}, slugs(plan.Lines))

	_, err = rec.Entry(ctx, date, []stock.MovementLine{line("cola", "0", "0")})
	assert.True(t, stock.IsClientError(err))

	_, err = rec.Entry(ctx, date, []stock.MovementLine{line("pivo", "1", "0")})
	var verr *stock.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []stock.ArticleSlug{"pivo"}, verr.Unknown)
}

func TestCommitDelete_MissingRecordIsNotFound(t *testing.T) {
	_, rec := newReconcileFixture(t)

	_, err := rec.CommitDelete(context.Background(), stock.MustParseDate("2024-05-05"))

	var nf *stock.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, stock.IsNotFound(err))
}

func TestCommitDelete_LogsRemovedLines(t *testing.T) {
	ctx := context.Background()
	mem, rec := newReconcileFixture(t)
	date := stock.MustParseDate("2024-05-05")
	plan, err := rec.Entry(ctx, date, []stock.MovementLine{line("cola", "3", "1"), line("voda", "2", "0")})
	require.NoError(t, err)
	_, err = rec.Commit(ctx, plan)
	require.NoError(t, err)

	entry, err := rec.CommitDelete(ctx, date)
	require.NoError(t, err)

	assert.Equal(t, stock.ChangeDelete, entry.Type)
	assert.Equal(t, 2, entry.LineCount)
	assert.Equal(t, "Cola", entry.Lines[0].Name)
	got, err := mem.GetDailyRecord(ctx, date)
	require.NoError(t, err)
	assert.Nil(t, got)

	page, err := rec.History(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore())
	assert.Equal(t, stock.ChangeDelete, page.Entries[0].Type)
}

func TestCopyFromLog_ReturnsLoggedLines(t *testing.T) {
	ctx := context.Background()
	_, rec := newReconcileFixture(t)
	date := stock.MustParseDate("2024-06-01")
	plan, err := rec.Entry(ctx, date, []stock.MovementLine{line("cola", "3", "1")})
	require.NoError(t, err)
	entry, err := rec.Commit(ctx, plan)
	require.NoError(t, err)

	gotDate, lines, err := rec.CopyFromLog(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, date, gotDate)
	require.Len(t, lines, 1)
	assertQty(t, "3", lines[0].In)

	_, _, err = rec.CopyFromLog(ctx, "missing")
	assert.True(t, stock.IsNotFound(err))
}
