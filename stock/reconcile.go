/*
reconcile.go - Turning raw batches into committed DailyRecords

PURPOSE:
  The ReconciliationService. Takes a raw import batch or a manual entry plus
  a target date, validates it, and produces a CommitPlan. Committing a plan
  replaces the DailyRecord for that date and appends a change-log entry in
  one transaction.

IMPORT FLOW (Reconciler.Import):
  1. DetectDuplicates  - same article on more than one row
  2. ValidateArticles  - every row must name a known article
  3. BuildRecord       - lenient numeric coercion, zero lines dropped
  4. Zero-line check   - "at least one entry required"
  5. Plan              - CREATE, or UPDATE needing confirmation

REPLACE, NEVER MERGE:
  An existing record is discarded and replaced by the new lines. Because
  this destroys data, an UPDATE plan must be confirmed before Commit
  accepts it. A CREATE plan never needs confirmation.

LAST WRITE WINS:
  Commit does not re-check whether the date gained a record since the plan
  was made. Two concurrent commits for the same date both succeed and the
  later write is what remains.

ROW NUMBERS:
  Reported row numbers are 1-based spreadsheet rows with the header row
  counted. Rows read from a sheet carry their own number, so blank rows
  skipped by the reader do not shift it. Other batches use index + 2.

SEE ALSO:
  - errors.go: ValidationError, ConflictError, NotFoundError
  - store.go: TxStore.WithTx
  - spreadsheet/import.go: Produces ImportRows from an xlsx file
*/
package stock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// RAW INPUT
// =============================================================================

// ImportRow is one parsed spreadsheet row: article text and raw quantities.
type ImportRow struct {
	Article string
	In      any
	Out     any
	// Row is the 1-based sheet row. Zero means the batch position decides.
	Row int
}

// SourceRow is the row number reported for the i-th row of a batch.
func (r ImportRow) SourceRow(i int) int {
	if r.Row > 0 {
		return r.Row
	}
	return i + HeaderRows + 1
}

// HeaderRows is the number of rows skipped before the first ImportRow.
const HeaderRows = 1

var lowerCaser = cases.Lower(language.Und)

// NormalizeSlug derives the lookup key from article text: trimmed,
// lowercased, each space replaced by a hyphen.
func NormalizeSlug(raw string) ArticleSlug {
	s := lowerCaser.String(strings.TrimSpace(raw))
	return ArticleSlug(strings.ReplaceAll(s, " ", "-"))
}

// SlugSet indexes the slugs of articles.
func SlugSet(articles []Article) map[ArticleSlug]Article {
	set := make(map[ArticleSlug]Article, len(articles))
	for _, a := range articles {
		set[a.Slug] = a
	}
	return set
}

// =============================================================================
// BATCH CHECKS - Pure
// =============================================================================

// Duplicate is an article referenced on more than one row of a batch.
type Duplicate struct {
	Slug        ArticleSlug
	DisplayName string
	Rows        []int
}

// DetectDuplicates returns every slug that appears on more than one row, in
// order of first appearance. Rows are sheet rows when known, otherwise
// header-adjusted batch positions.
func DetectDuplicates(batch []ImportRow) []Duplicate {
	rows := make(map[ArticleSlug][]int)
	names := make(map[ArticleSlug]string)
	var order []ArticleSlug
	for i, row := range batch {
		slug := NormalizeSlug(row.Article)
		if _, seen := rows[slug]; !seen {
			order = append(order, slug)
			names[slug] = strings.TrimSpace(row.Article)
		}
		rows[slug] = append(rows[slug], row.SourceRow(i))
	}

	dups := []Duplicate{}
	for _, slug := range order {
		if len(rows[slug]) > 1 {
			dups = append(dups, Duplicate{Slug: slug, DisplayName: names[slug], Rows: rows[slug]})
		}
	}
	return dups
}

// ValidateArticles collects every row reference that does not match a known
// slug. Each unknown slug is reported once, in order of first appearance.
func ValidateArticles(batch []ImportRow, known map[ArticleSlug]Article) []ArticleSlug {
	unknown := []ArticleSlug{}
	reported := make(map[ArticleSlug]bool)
	for _, row := range batch {
		slug := NormalizeSlug(row.Article)
		if _, ok := known[slug]; ok || reported[slug] {
			continue
		}
		reported[slug] = true
		unknown = append(unknown, slug)
	}
	return unknown
}

// BuildRecord maps rows to movement lines. Bad quantities become zero and
// lines with nothing in and nothing out are dropped.
func BuildRecord(date Date, batch []ImportRow) DailyRecord {
	rec := DailyRecord{Date: date, Lines: []MovementLine{}}
	for _, row := range batch {
		line := MovementLine{
			Slug: NormalizeSlug(row.Article),
			In:   ParseQuantity(row.In),
			Out:  ParseQuantity(row.Out),
		}
		if line.IsZero() {
			continue
		}
		rec.Lines = append(rec.Lines, line)
	}
	return rec
}

// MergeLines sums lines that share a slug, keeping first-appearance order.
func MergeLines(lines []MovementLine) []MovementLine {
	index := make(map[ArticleSlug]int)
	merged := make([]MovementLine, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.Slug]; ok {
			merged[i].In = Add4(merged[i].In, line.In)
			merged[i].Out = Add4(merged[i].Out, line.Out)
			continue
		}
		index[line.Slug] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// =============================================================================
// COMMIT PLAN - CREATE, or UPDATE awaiting confirmation
// =============================================================================

// CommitPlan is the discriminated result of planning a write for one date.
type CommitPlan struct {
	Type                 ChangeType // ChangeCreate or ChangeUpdate
	Date                 Date
	Lines                []MovementLine
	Existing             []MovementLine // lines that would be discarded (UPDATE only)
	RequiresConfirmation bool

	confirmed bool
}

// Confirm marks an UPDATE plan as approved for overwrite.
func (p CommitPlan) Confirm() CommitPlan {
	p.confirmed = true
	return p
}

// Confirmed reports whether Commit will accept the plan.
func (p CommitPlan) Confirmed() bool {
	return !p.RequiresConfirmation || p.confirmed
}

// PlanCommit decides between CREATE and UPDATE for date.
func PlanCommit(date Date, lines []MovementLine, existing *DailyRecord) CommitPlan {
	if existing == nil {
		return CommitPlan{Type: ChangeCreate, Date: date, Lines: lines}
	}
	return CommitPlan{
		Type:                 ChangeUpdate,
		Date:                 date,
		Lines:                lines,
		Existing:             existing.Lines,
		RequiresConfirmation: true,
	}
}

// =============================================================================
// RECONCILER - Store-backed import, entry, commit and delete
// =============================================================================

// ImportOptions tunes the import flow.
type ImportOptions struct {
	// MergeDuplicates sums rows naming the same article instead of
	// rejecting the batch.
	MergeDuplicates bool
}

// Reconciler runs the reconciliation flow against a transactional store.
type Reconciler struct {
	store  TxStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewReconciler creates a reconciler. A nil logger disables logging.
func NewReconciler(store TxStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  newEntryID,
	}
}

func newEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Import validates a raw batch for date and plans its commit.
func (r *Reconciler) Import(ctx context.Context, date Date, rows []ImportRow, opts ImportOptions) (CommitPlan, error) {
	if dups := DetectDuplicates(rows); len(dups) > 0 && !opts.MergeDuplicates {
		return CommitPlan{}, &ValidationError{
			Code:       "duplicate_rows",
			Message:    "articles appear on more than one row",
			Duplicates: dups,
		}
	}

	articles, err := r.store.ListArticles(ctx)
	if err != nil {
		return CommitPlan{}, WrapStorage("list articles", err)
	}
	if unknown := ValidateArticles(rows, SlugSet(articles)); len(unknown) > 0 {
		return CommitPlan{}, &ValidationError{
			Code:    "unknown_articles",
			Message: "batch references unknown articles",
			Unknown: unknown,
		}
	}

	rec := BuildRecord(date, rows)
	if opts.MergeDuplicates {
		rec.Lines = MergeLines(rec.Lines)
	}
	if len(rec.Lines) == 0 {
		return CommitPlan{}, errEmptyBatch()
	}
	return r.Plan(ctx, date, rec.Lines)
}

// Entry validates manually entered lines for date and plans their commit.
func (r *Reconciler) Entry(ctx context.Context, date Date, lines []MovementLine) (CommitPlan, error) {
	filtered := make([]MovementLine, 0, len(lines))
	batch := make([]ImportRow, 0, len(lines))
	for _, line := range lines {
		line.In = ParseQuantity(line.In)
		line.Out = ParseQuantity(line.Out)
		if line.IsZero() {
			continue
		}
		filtered = append(filtered, line)
		batch = append(batch, ImportRow{Article: string(line.Slug)})
	}
	if len(filtered) == 0 {
		return CommitPlan{}, errEmptyBatch()
	}
	if dups := DetectDuplicates(batch); len(dups) > 0 {
		return CommitPlan{}, &ValidationError{
			Code:       "duplicate_rows",
			Message:    "articles appear on more than one line",
			Duplicates: dups,
		}
	}

	articles, err := r.store.ListArticles(ctx)
	if err != nil {
		return CommitPlan{}, WrapStorage("list articles", err)
	}
	known := SlugSet(articles)
	unknown := []ArticleSlug{}
	for _, line := range filtered {
		if _, ok := known[line.Slug]; !ok {
			unknown = append(unknown, line.Slug)
		}
	}
	if len(unknown) > 0 {
		return CommitPlan{}, &ValidationError{
			Code:    "unknown_articles",
			Message: "entry references unknown articles",
			Unknown: unknown,
		}
	}
	return r.Plan(ctx, date, filtered)
}

// Plan looks up the existing record for date and plans the write.
func (r *Reconciler) Plan(ctx context.Context, date Date, lines []MovementLine) (CommitPlan, error) {
	existing, err := r.store.GetDailyRecord(ctx, date)
	if err != nil {
		return CommitPlan{}, WrapStorage("get daily record", err)
	}
	return PlanCommit(date, lines, existing), nil
}

// Commit writes the planned record and its change-log entry atomically.
// Zero lines are dropped. A plan naming an article twice, or an article not
// in the catalog, is rejected.
func (r *Reconciler) Commit(ctx context.Context, plan CommitPlan) (ChangeLogEntry, error) {
	lines, err := commitLines(plan.Lines)
	if err != nil {
		return ChangeLogEntry{}, err
	}
	if !plan.Confirmed() {
		return ChangeLogEntry{}, &ConflictError{Date: plan.Date, Plan: plan}
	}

	var entry ChangeLogEntry
	err = r.store.WithTx(ctx, func(s Store) error {
		articles, err := s.ListArticles(ctx)
		if err != nil {
			return WrapStorage("list articles", err)
		}
		known := SlugSet(articles)
		var unknown []ArticleSlug
		for _, line := range lines {
			if _, ok := known[line.Slug]; !ok {
				unknown = append(unknown, line.Slug)
			}
		}
		if len(unknown) > 0 {
			return &ValidationError{
				Code:    "unknown_articles",
				Message: "plan references unknown articles",
				Unknown: unknown,
			}
		}
		if err := s.PutDailyRecord(ctx, DailyRecord{Date: plan.Date, Lines: lines}); err != nil {
			return WrapStorage("put daily record", err)
		}
		entry = r.newEntry(plan.Type, plan.Date, lines, known)
		if err := s.AppendChangeLog(ctx, entry); err != nil {
			return WrapStorage("append change log", err)
		}
		return nil
	})
	if err != nil {
		return ChangeLogEntry{}, err
	}

	r.logger.Info("daily record committed",
		zap.String("date", plan.Date.String()),
		zap.String("change_type", string(plan.Type)),
		zap.Int("lines", len(lines)),
		zap.String("entry_id", entry.ID),
	)
	return entry, nil
}

// commitLines drops zero lines and rejects a slug appearing twice, so a
// committed record holds at most one line per article.
func commitLines(planned []MovementLine) ([]MovementLine, error) {
	lines := make([]MovementLine, 0, len(planned))
	batch := make([]ImportRow, 0, len(planned))
	for _, line := range planned {
		if line.IsZero() {
			continue
		}
		lines = append(lines, line)
		batch = append(batch, ImportRow{Article: string(line.Slug)})
	}
	if len(lines) == 0 {
		return nil, errEmptyBatch()
	}
	if dups := DetectDuplicates(batch); len(dups) > 0 {
		return nil, &ValidationError{
			Code:       "duplicate_rows",
			Message:    "plan names an article on more than one line",
			Duplicates: dups,
		}
	}
	return lines, nil
}

// CommitDelete removes the record for date and logs the removed lines.
func (r *Reconciler) CommitDelete(ctx context.Context, date Date) (ChangeLogEntry, error) {
	var entry ChangeLogEntry
	err := r.store.WithTx(ctx, func(s Store) error {
		existing, err := s.GetDailyRecord(ctx, date)
		if err != nil {
			return WrapStorage("get daily record", err)
		}
		if existing == nil {
			return &NotFoundError{Kind: "daily_record", Key: date.String()}
		}
		articles, err := s.ListArticles(ctx)
		if err != nil {
			return WrapStorage("list articles", err)
		}
		if err := s.DeleteDailyRecord(ctx, date); err != nil {
			return WrapStorage("delete daily record", err)
		}
		entry = r.newEntry(ChangeDelete, date, existing.Lines, SlugSet(articles))
		if err := s.AppendChangeLog(ctx, entry); err != nil {
			return WrapStorage("append change log", err)
		}
		return nil
	})
	if err != nil {
		return ChangeLogEntry{}, err
	}

	r.logger.Info("daily record deleted",
		zap.String("date", date.String()),
		zap.Int("lines", entry.LineCount),
		zap.String("entry_id", entry.ID),
	)
	return entry, nil
}

// CopyFromLog returns the lines and date of a change-log entry so they can
// prefill a new entry.
func (r *Reconciler) CopyFromLog(ctx context.Context, entryID string) (Date, []MovementLine, error) {
	entry, err := r.store.GetChangeLog(ctx, entryID)
	if err != nil {
		return "", nil, WrapStorage("get change log", err)
	}
	if entry == nil {
		return "", nil, &NotFoundError{Kind: "change_log", Key: entryID}
	}
	lines := make([]MovementLine, len(entry.Lines))
	for i, l := range entry.Lines {
		lines[i] = l.MovementLine
	}
	return entry.Date, lines, nil
}

func (r *Reconciler) newEntry(t ChangeType, date Date, lines []MovementLine, known map[ArticleSlug]Article) ChangeLogEntry {
	logged := make([]LoggedLine, len(lines))
	for i, line := range lines {
		logged[i] = LoggedLine{MovementLine: line, Name: string(line.Slug)}
		if a, ok := known[line.Slug]; ok {
			logged[i].Code = a.Code
			logged[i].Name = a.Name
		}
	}
	return ChangeLogEntry{
		ID:        r.newID(),
		Type:      t,
		Date:      date,
		Timestamp: r.now().UTC(),
		LineCount: len(lines),
		Lines:     logged,
	}
}

func errEmptyBatch() error {
	return &ValidationError{Code: "empty_batch", Message: "at least one entry required"}
}
