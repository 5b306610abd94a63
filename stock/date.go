package stock

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day key (YYYY-MM-DD)
// =============================================================================

// DateLayout is the only accepted date key format. Lexicographic order of
// keys in this layout equals chronological order.
const DateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", &ValidationError{
			Code:    "invalid_date",
			Message: fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", s),
		}
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for constants in tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date { return Date(t.Format(DateLayout)) }

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Today returns the current local calendar day.
func Today() Date { return DateOf(time.Now()) }

// Time returns midnight UTC of d. An invalid Date yields the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

func (d Date) String() string            { return string(d) }
func (d Date) IsZero() bool              { return d == "" }
func (d Date) AddDays(n int) Date        { return DateOf(d.Time().AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date      { return DateOf(d.Time().AddDate(0, n, 0)) }
func (d Date) Before(other Date) bool    { return d < other }
func (d Date) After(other Date) bool     { return d > other }
func (d Date) Weekday() time.Weekday     { return d.Time().Weekday() }
func (d Date) BeforeOrEqual(o Date) bool { return d <= o }

// =============================================================================
// DATE RANGE - Inclusive query bounds
// =============================================================================

// DateRange bounds a record query. Empty From or To means unbounded.
type DateRange struct {
	From Date
	To   Date
}

// AllDates is the unbounded range.
func AllDates() DateRange { return DateRange{} }

// Until returns the range of every date up to and including d.
func Until(d Date) DateRange { return DateRange{To: d} }

// StrictlyBefore returns the range of every date before d, excluding d.
func StrictlyBefore(d Date) DateRange { return DateRange{To: d.AddDays(-1)} }

func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d < r.From {
		return false
	}
	if !r.To.IsZero() && d > r.To {
		return false
	}
	return true
}

// =============================================================================
// PERIOD - Concrete span of days (weekly view, report window)
// =============================================================================

// Period is an inclusive span of calendar days.
type Period struct {
	Start Date
	End   Date
}

// MaxPeriodDays bounds the length of a requested period, about ten years.
const MaxPeriodDays = 3660

// NewPeriod validates that end is not before start and that the period
// spans at most MaxPeriodDays days.
func NewPeriod(start, end Date) (Period, error) {
	if end < start {
		return Period{}, &ValidationError{
			Code:    "invalid_period",
			Message: fmt.Sprintf("period end %s is before start %s", end, start),
		}
	}
	p := Period{Start: start, End: end}
	if p.Len() > MaxPeriodDays {
		return Period{}, &ValidationError{
			Code:    "period_too_long",
			Message: fmt.Sprintf("period %s spans %d days, at most %d allowed", p, p.Len(), MaxPeriodDays),
		}
	}
	return p, nil
}

// WeekOf returns the Monday-to-Sunday week containing d.
func WeekOf(d Date) Period {
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDays(-offset)
	return Period{Start: start, End: start.AddDays(6)}
}

func (p Period) Contains(d Date) bool { return p.Start <= d && d <= p.End }
func (p Period) Range() DateRange     { return DateRange{From: p.Start, To: p.End} }
func (p Period) String() string       { return fmt.Sprintf("%s to %s", p.Start, p.End) }

// Len is the number of calendar days in the period, both ends included.
func (p Period) Len() int {
	return int((p.End.Time().Unix()-p.Start.Time().Unix())/86400) + 1
}

// Days lists every calendar day of the period in order.
func (p Period) Days() []Date {
	var days []Date
	for d := p.Start; d <= p.End; d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// =============================================================================
// TIME RANGE PRESETS - Statistics filters
// =============================================================================

// TimeRange is a named statistics window relative to today.
type TimeRange string

const (
	RangeAll          TimeRange = "all"
	RangeCurrentYear  TimeRange = "current_year"
	RangeLast12Months TimeRange = "last_12_months"
	RangeLast6Months  TimeRange = "last_6_months"
	RangeLastMonth    TimeRange = "last_month"
)

// Resolve turns the preset into a query range. Presets have an open upper bound.
func (tr TimeRange) Resolve(today Date) (DateRange, error) {
	switch tr {
	case RangeAll, "":
		return AllDates(), nil
	case RangeCurrentYear:
		return DateRange{From: NewDate(today.Time().Year(), time.January, 1)}, nil
	case RangeLast12Months:
		return DateRange{From: today.AddMonths(-12)}, nil
	case RangeLast6Months:
		return DateRange{From: today.AddMonths(-6)}, nil
	case RangeLastMonth:
		return DateRange{From: today.AddMonths(-1)}, nil
	default:
		return DateRange{}, &ValidationError{
			Code:    "invalid_time_range",
			Message: fmt.Sprintf("unknown time range %q", tr),
		}
	}
}
