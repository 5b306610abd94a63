/*
types.go - Core domain types for the stock engine

PURPOSE:
  Defines the vocabulary shared by every component: articles, daily movement
  records, change-log entries and application settings. All quantities are
  shopspring decimals so that rounding is exact rather than emulated.

KEY CONCEPTS:
  Article:        A stock-keeping unit. Joined to movements by Slug, not ID.
  MovementLine:   In/out quantities for one article on one day.
  DailyRecord:    All movement lines for one calendar date (unique per date).
  ChangeLogEntry: Append-only audit entry written with every record commit.
  AppSettings:    Lock policy and stock-alert toggle, passed explicitly.

JOIN KEY:
  Movement lines reference articles through ArticleSlug. The slug is derived
  from the article name at creation/rename time. Historical lines are never
  rewritten, so renaming an article detaches its earlier movements.

SEE ALSO:
  - numeric.go: Rounding and formatting of quantities
  - date.go: Date keys and periods
  - reconcile.go: Builds DailyRecords from raw batches
*/
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ArticleSlug is the normalized lookup key derived from an article name.
// It is the join key between movement lines and articles.
type ArticleSlug string

func (s ArticleSlug) String() string { return string(s) }

// ArticleID is the opaque identifier of an article.
type ArticleID string

// =============================================================================
// ARTICLE
// =============================================================================

// DefaultMinStock is used when an article has no (or an unparseable) threshold.
var DefaultMinStock = decimal.NewFromInt(10)

// Article is a trackable stock-keeping unit.
type Article struct {
	ID    ArticleID
	Code  string // short human-readable code ("šifra"), unique
	Name  string
	Slug  ArticleSlug
	Order int // display and report column order

	// MinStock is kept as a decimal string; it is parsed at comparison time.
	MinStock string
}

// Threshold returns the parsed minimum stock, falling back to DefaultMinStock.
func (a Article) Threshold() decimal.Decimal {
	if a.MinStock == "" {
		return DefaultMinStock
	}
	d, err := decimal.NewFromString(a.MinStock)
	if err != nil {
		return DefaultMinStock
	}
	return Round4(d)
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// MovementLine is the in/out quantity of one article within one DailyRecord.
type MovementLine struct {
	Slug ArticleSlug
	In   decimal.Decimal
	Out  decimal.Decimal
}

// IsZero reports whether the line moves nothing.
func (l MovementLine) IsZero() bool { return l.In.IsZero() && l.Out.IsZero() }

// DailyRecord holds every movement line committed for a single date.
type DailyRecord struct {
	Date  Date
	Lines []MovementLine
}

// =============================================================================
// CHANGE LOG
// =============================================================================

// ChangeType identifies the kind of write a change-log entry records.
type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// LoggedLine is a movement line annotated with article details at commit time.
type LoggedLine struct {
	MovementLine
	Code string
	Name string
}

// ChangeLogEntry is an append-only audit entry.
type ChangeLogEntry struct {
	ID        string
	Type      ChangeType
	Date      Date
	Timestamp time.Time
	LineCount int
	Lines     []LoggedLine
}

// =============================================================================
// SETTINGS
// =============================================================================

// LockSettings configures the client-side app lock. The engine only stores it.
type LockSettings struct {
	Enabled        bool
	TimeoutMinutes int
}

// StockAlertSettings toggles low-stock alerts.
type StockAlertSettings struct {
	Enabled bool
}

// AppSettings is the single settings document.
type AppSettings struct {
	Lock        LockSettings
	StockAlerts StockAlertSettings
}

// AllowedLockTimeouts lists the auto-lock timeouts an operator may choose.
var AllowedLockTimeouts = []int{15, 30, 60}

// DefaultSettings returns the settings created on first read.
func DefaultSettings() AppSettings {
	return AppSettings{
		Lock:        LockSettings{Enabled: true, TimeoutMinutes: 30},
		StockAlerts: StockAlertSettings{Enabled: true},
	}
}
