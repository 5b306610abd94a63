/*
Package sqlite provides a SQLite-backed implementation of stock.TxStore.

PURPOSE:
  Persists articles, daily records, the change log and the settings
  document. The engine reads snapshots through this store and commits a
  record together with its change-log entry inside WithTx.

KEY TABLES:
  articles:       Catalog, ordered by sort_order
  daily_records:  One row per calendar date
  movement_lines: Lines of a daily record, replaced wholesale on write
  change_log:     Append-only audit entries, lines kept as JSON
  settings:       Single-row settings document

APPEND-ONLY ENFORCEMENT:
  change_log is only ever INSERTed. There is no UPDATE or DELETE path
  apart from Reset.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so an
  in-memory database is shared by every call.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) and foreign keys enabled.

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  reconciler := stock.NewReconciler(store, logger)

SEE ALSO:
  - stock/store.go: Interface definitions
  - stock/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/stock"
)

// Store implements stock.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ stock.TxStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// builder uses "?" placeholders, which SQLite expects.
var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		min_stock TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_order
		ON articles(sort_order, id);
	CREATE INDEX IF NOT EXISTS idx_articles_slug
		ON articles(slug);

	CREATE TABLE IF NOT EXISTS daily_records (
		date TEXT PRIMARY KEY,
		updated_at TEXT NOT NULL
	);

	-- Quantities are canonical decimal strings, never floats
	CREATE TABLE IF NOT EXISTS movement_lines (
		date TEXT NOT NULL REFERENCES daily_records(date) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		slug TEXT NOT NULL,
		qty_in TEXT NOT NULL,
		qty_out TEXT NOT NULL,
		PRIMARY KEY (date, position)
	);

	CREATE INDEX IF NOT EXISTS idx_movement_lines_slug
		ON movement_lines(slug, date);

	-- Change log (append-only); seq gives a stable newest-first order
	CREATE TABLE IF NOT EXISTS change_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		change_type TEXT NOT NULL,
		date TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		line_count INTEGER NOT NULL,
		lines_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_log_date
		ON change_log(date);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		lock_enabled BOOLEAN NOT NULL,
		lock_timeout_minutes INTEGER NOT NULL,
		stock_alerts_enabled BOOLEAN NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ARTICLES
// =============================================================================

// ListArticles returns all articles sorted by Order.
func (s *Store) ListArticles(ctx context.Context) ([]stock.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listArticles(ctx, s.db)
}

// GetArticle retrieves an article by ID.
func (s *Store) GetArticle(ctx context.Context, id stock.ArticleID) (*stock.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getArticle(ctx, s.db, id)
}

// SaveArticles upserts articles atomically.
func (s *Store) SaveArticles(ctx context.Context, articles ...stock.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return saveArticles(ctx, q, articles) })
}

// DeleteArticle removes an article.
func (s *Store) DeleteArticle(ctx context.Context, id stock.ArticleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteArticle(ctx, s.db, id)
}

func listArticles(ctx context.Context, q querier) ([]stock.Article, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, code, name, slug, sort_order, min_stock FROM articles ORDER BY sort_order, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := []stock.Article{}
	for rows.Next() {
		var a stock.Article
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Slug, &a.Order, &a.MinStock); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func getArticle(ctx context.Context, q querier, id stock.ArticleID) (*stock.Article, error) {
	var a stock.Article
	err := q.QueryRowContext(ctx,
		"SELECT id, code, name, slug, sort_order, min_stock FROM articles WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Code, &a.Name, &a.Slug, &a.Order, &a.MinStock)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func saveArticles(ctx context.Context, q querier, articles []stock.Article) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range articles {
		_, err := q.ExecContext(ctx, `
			INSERT INTO articles (id, code, name, slug, sort_order, min_stock, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				code = excluded.code,
				name = excluded.name,
				slug = excluded.slug,
				sort_order = excluded.sort_order,
				min_stock = excluded.min_stock,
				updated_at = excluded.updated_at
		`, a.ID, a.Code, a.Name, a.Slug, a.Order, a.MinStock, now)
		if err != nil {
			return fmt.Errorf("failed to save article %s: %w", a.ID, err)
		}
	}
	return nil
}

func deleteArticle(ctx context.Context, q querier, id stock.ArticleID) error {
	_, err := q.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", id)
	return err
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

// ListDailyRecords returns records within r sorted ascending by date.
func (s *Store) ListDailyRecords(ctx context.Context, r stock.DateRange) ([]stock.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDailyRecords(ctx, s.db, r)
}

// GetDailyRecord retrieves the record for a date.
func (s *Store) GetDailyRecord(ctx context.Context, date stock.Date) (*stock.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getDailyRecord(ctx, s.db, date)
}

// PutDailyRecord replaces the record for rec.Date.
func (s *Store) PutDailyRecord(ctx context.Context, rec stock.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return putDailyRecord(ctx, q, rec) })
}

// DeleteDailyRecord removes the record for a date and its lines.
func (s *Store) DeleteDailyRecord(ctx context.Context, date stock.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteDailyRecord(ctx, s.db, date)
}

func listDailyRecords(ctx context.Context, q querier, r stock.DateRange) ([]stock.DailyRecord, error) {
	query := builder.
		Select("r.date", "l.slug", "l.qty_in", "l.qty_out").
		From("daily_records r").
		LeftJoin("movement_lines l ON l.date = r.date").
		OrderBy("r.date", "l.position")
	if !r.From.IsZero() {
		query = query.Where(squirrel.GtOrEq{"r.date": r.From.String()})
	}
	if !r.To.IsZero() {
		query = query.Where(squirrel.LtOrEq{"r.date": r.To.String()})
	}
	return queryRecords(ctx, q, query)
}

func getDailyRecord(ctx context.Context, q querier, date stock.Date) (*stock.DailyRecord, error) {
	query := builder.
		Select("r.date", "l.slug", "l.qty_in", "l.qty_out").
		From("daily_records r").
		LeftJoin("movement_lines l ON l.date = r.date").
		Where(squirrel.Eq{"r.date": date.String()}).
		OrderBy("l.position")

	records, err := queryRecords(ctx, q, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// queryRecords folds joined (date, line) rows into records. Rows arrive
// grouped by date.
func queryRecords(ctx context.Context, q querier, query squirrel.SelectBuilder) ([]stock.DailyRecord, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build record query: %w", err)
	}
	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []stock.DailyRecord{}
	for rows.Next() {
		var (
			date            string
			slug, qin, qout sql.NullString
		)
		if err := rows.Scan(&date, &slug, &qin, &qout); err != nil {
			return nil, fmt.Errorf("failed to scan record line: %w", err)
		}
		if n := len(records); n == 0 || records[n-1].Date != stock.Date(date) {
			records = append(records, stock.DailyRecord{Date: stock.Date(date)})
		}
		if !slug.Valid {
			continue
		}
		line := stock.MovementLine{
			Slug: stock.ArticleSlug(slug.String),
			In:   parseQuantity(qin.String),
			Out:  parseQuantity(qout.String),
		}
		last := &records[len(records)-1]
		last.Lines = append(last.Lines, line)
	}
	return records, rows.Err()
}

func putDailyRecord(ctx context.Context, q querier, rec stock.DailyRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := q.ExecContext(ctx, `
		INSERT INTO daily_records (date, updated_at) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET updated_at = excluded.updated_at
	`, rec.Date, now); err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.Date, err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM movement_lines WHERE date = ?", rec.Date); err != nil {
		return fmt.Errorf("failed to clear lines of %s: %w", rec.Date, err)
	}
	for i, l := range rec.Lines {
		_, err := q.ExecContext(ctx,
			"INSERT INTO movement_lines (date, position, slug, qty_in, qty_out) VALUES (?, ?, ?, ?, ?)",
			rec.Date, i, l.Slug, stock.FormatQuantity(l.In), stock.FormatQuantity(l.Out),
		)
		if err != nil {
			return fmt.Errorf("failed to save line %d of %s: %w", i, rec.Date, err)
		}
	}
	return nil
}

func deleteDailyRecord(ctx context.Context, q querier, date stock.Date) error {
	// Lines go with the record through ON DELETE CASCADE.
	_, err := q.ExecContext(ctx, "DELETE FROM daily_records WHERE date = ?", date)
	return err
}

// =============================================================================
// CHANGE LOG (append-only)
// =============================================================================

// loggedLineJSON is the stored form of a change-log line.
type loggedLineJSON struct {
	Slug string `json:"slug"`
	Code string `json:"code"`
	Name string `json:"name"`
	In   string `json:"in"`
	Out  string `json:"out"`
}

// AppendChangeLog adds an entry.
func (s *Store) AppendChangeLog(ctx context.Context, entry stock.ChangeLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendChangeLog(ctx, s.db, entry)
}

// GetChangeLog retrieves an entry by ID.
func (s *Store) GetChangeLog(ctx context.Context, id string) (*stock.ChangeLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getChangeLog(ctx, s.db, id)
}

// ListChangeLog pages entries newest first and returns the total count.
func (s *Store) ListChangeLog(ctx context.Context, limit, offset int) ([]stock.ChangeLogEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listChangeLog(ctx, s.db, limit, offset)
}

func appendChangeLog(ctx context.Context, q querier, entry stock.ChangeLogEntry) error {
	lines := make([]loggedLineJSON, len(entry.Lines))
	for i, l := range entry.Lines {
		lines[i] = loggedLineJSON{
			Slug: l.Slug.String(),
			Code: l.Code,
			Name: l.Name,
			In:   stock.FormatQuantity(l.In),
			Out:  stock.FormatQuantity(l.Out),
		}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode change log lines: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO change_log (id, change_type, date, timestamp, line_count, lines_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Type, entry.Date, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.LineCount, string(linesJSON))
	if err != nil {
		return fmt.Errorf("failed to append change log entry: %w", err)
	}
	return nil
}

func getChangeLog(ctx context.Context, q querier, id string) (*stock.ChangeLogEntry, error) {
	entries, err := queryChangeLog(ctx, q, changeLogSelect().Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func listChangeLog(ctx context.Context, q querier, limit, offset int) ([]stock.ChangeLogEntry, int, error) {
	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM change_log").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count change log: %w", err)
	}

	query := changeLogSelect().OrderBy("seq DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	if offset > 0 {
		if limit <= 0 {
			// SQLite only accepts OFFSET after a LIMIT.
			query = query.Limit(uint64(total))
		}
		query = query.Offset(uint64(offset))
	}

	entries, err := queryChangeLog(ctx, q, query)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func changeLogSelect() squirrel.SelectBuilder {
	return builder.
		Select("id", "change_type", "date", "timestamp", "line_count", "lines_json").
		From("change_log")
}

func queryChangeLog(ctx context.Context, q querier, query squirrel.SelectBuilder) ([]stock.ChangeLogEntry, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build change log query: %w", err)
	}
	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	entries := []stock.ChangeLogEntry{}
	for rows.Next() {
		var (
			e         stock.ChangeLogEntry
			timestamp string
			linesJSON string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Date, &timestamp, &e.LineCount, &linesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan change log entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)

		var lines []loggedLineJSON
		if err := json.Unmarshal([]byte(linesJSON), &lines); err != nil {
			return nil, fmt.Errorf("failed to decode lines of entry %s: %w", e.ID, err)
		}
		e.Lines = make([]stock.LoggedLine, len(lines))
		for i, l := range lines {
			e.Lines[i] = stock.LoggedLine{
				MovementLine: stock.MovementLine{
					Slug: stock.ArticleSlug(l.Slug),
					In:   parseQuantity(l.In),
					Out:  parseQuantity(l.Out),
				},
				Code: l.Code,
				Name: l.Name,
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings returns nil when settings were never saved.
func (s *Store) GetSettings(ctx context.Context) (*stock.AppSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSettings(ctx, s.db)
}

// SaveSettings replaces the settings row.
func (s *Store) SaveSettings(ctx context.Context, settings stock.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSettings(ctx, s.db, settings)
}

func getSettings(ctx context.Context, q querier) (*stock.AppSettings, error) {
	var settings stock.AppSettings
	err := q.QueryRowContext(ctx,
		"SELECT lock_enabled, lock_timeout_minutes, stock_alerts_enabled FROM settings WHERE id = 1",
	).Scan(&settings.Lock.Enabled, &settings.Lock.TimeoutMinutes, &settings.StockAlerts.Enabled)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func saveSettings(ctx context.Context, q querier, settings stock.AppSettings) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (id, lock_enabled, lock_timeout_minutes, stock_alerts_enabled, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lock_enabled = excluded.lock_enabled,
			lock_timeout_minutes = excluded.lock_timeout_minutes,
			stock_alerts_enabled = excluded.stock_alerts_enabled,
			updated_at = excluded.updated_at
	`, settings.Lock.Enabled, settings.Lock.TimeoutMinutes, settings.StockAlerts.Enabled,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (stock.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store stock.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error {
		return fn(&txStore{q: q})
	})
}

// inTx runs fn in a SQL transaction. Caller holds the write lock.
func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every call through the open transaction. The parent lock
// is already held by WithTx.
type txStore struct {
	q querier
}

func (ts *txStore) ListArticles(ctx context.Context) ([]stock.Article, error) {
	return listArticles(ctx, ts.q)
}

func (ts *txStore) GetArticle(ctx context.Context, id stock.ArticleID) (*stock.Article, error) {
	return getArticle(ctx, ts.q, id)
}

func (ts *txStore) SaveArticles(ctx context.Context, articles ...stock.Article) error {
	return saveArticles(ctx, ts.q, articles)
}

func (ts *txStore) DeleteArticle(ctx context.Context, id stock.ArticleID) error {
	return deleteArticle(ctx, ts.q, id)
}

func (ts *txStore) ListDailyRecords(ctx context.Context, r stock.DateRange) ([]stock.DailyRecord, error) {
	return listDailyRecords(ctx, ts.q, r)
}

func (ts *txStore) GetDailyRecord(ctx context.Context, date stock.Date) (*stock.DailyRecord, error) {
	return getDailyRecord(ctx, ts.q, date)
}

func (ts *txStore) PutDailyRecord(ctx context.Context, rec stock.DailyRecord) error {
	return putDailyRecord(ctx, ts.q, rec)
}

func (ts *txStore) DeleteDailyRecord(ctx context.Context, date stock.Date) error {
	return deleteDailyRecord(ctx, ts.q, date)
}

func (ts *txStore) AppendChangeLog(ctx context.Context, entry stock.ChangeLogEntry) error {
	return appendChangeLog(ctx, ts.q, entry)
}

func (ts *txStore) GetChangeLog(ctx context.Context, id string) (*stock.ChangeLogEntry, error) {
	return getChangeLog(ctx, ts.q, id)
}

func (ts *txStore) ListChangeLog(ctx context.Context, limit, offset int) ([]stock.ChangeLogEntry, int, error) {
	return listChangeLog(ctx, ts.q, limit, offset)
}

func (ts *txStore) GetSettings(ctx context.Context) (*stock.AppSettings, error) {
	return getSettings(ctx, ts.q)
}

func (ts *txStore) SaveSettings(ctx context.Context, settings stock.AppSettings) error {
	return saveSettings(ctx, ts.q, settings)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"movement_lines", "daily_records", "change_log", "articles", "settings"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// parseQuantity reads a stored decimal string. Stored values are always
// canonical, so a parse failure yields zero.
func parseQuantity(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
