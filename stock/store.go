/*
store.go - Persistence interface for articles, records, change log and settings

PURPOSE:
  Defines the boundary between the engine and the document store. The
  engine never holds state of its own; every read fetches a snapshot and
  every write goes through one of these methods.

KEY INTERFACES:
  Store:   Reads and individually-atomic writes
  TxStore: Store plus WithTx for multi-write atomicity

RECORD CONTRACT:
  - One DailyRecord per date. PutDailyRecord replaces it wholesale.
  - ListDailyRecords returns records sorted ascending by date.
  - Getters return (nil, nil) when the document is absent.

CHANGE LOG CONTRACT:
  Append-only. No update or delete. ListChangeLog pages newest first and
  also returns the total entry count.

ATOMIC COMMITS:
  A record write and its change-log append must be observed together or
  not at all. Callers wrap both in WithTx; the store rolls back if fn fails.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - stock/store/memory.go: In-memory for tests

SEE ALSO:
  - reconcile.go: Commit and CommitDelete use WithTx
  - catalog.go: Article renumbering uses WithTx
*/
package stock

import "context"

// =============================================================================
// STORE - Document store operations
// =============================================================================

// Store persists articles, daily records, change log entries and settings.
type Store interface {
	// ListArticles returns all articles sorted by Order.
	ListArticles(ctx context.Context) ([]Article, error)

	// GetArticle returns nil when no article has the given ID.
	GetArticle(ctx context.Context, id ArticleID) (*Article, error)

	// SaveArticles inserts or replaces articles by ID.
	SaveArticles(ctx context.Context, articles ...Article) error

	// DeleteArticle removes one article. Deleting a missing ID is a no-op.
	DeleteArticle(ctx context.Context, id ArticleID) error

	// ListDailyRecords returns records in r, sorted ascending by date.
	ListDailyRecords(ctx context.Context, r DateRange) ([]DailyRecord, error)

	// GetDailyRecord returns nil when no record exists for date.
	GetDailyRecord(ctx context.Context, date Date) (*DailyRecord, error)

	// PutDailyRecord replaces the record for rec.Date.
	PutDailyRecord(ctx context.Context, rec DailyRecord) error

	// DeleteDailyRecord removes the record for date.
	DeleteDailyRecord(ctx context.Context, date Date) error

	// AppendChangeLog appends an entry. This is the only change-log write.
	AppendChangeLog(ctx context.Context, entry ChangeLogEntry) error

	// GetChangeLog returns nil when no entry has the given ID.
	GetChangeLog(ctx context.Context, id string) (*ChangeLogEntry, error)

	// ListChangeLog pages entries newest first. limit <= 0 means no limit.
	ListChangeLog(ctx context.Context, limit, offset int) ([]ChangeLogEntry, int, error)

	// GetSettings returns nil when settings were never saved.
	GetSettings(ctx context.Context) (*AppSettings, error)

	// SaveSettings replaces the settings document.
	SaveSettings(ctx context.Context, settings AppSettings) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
