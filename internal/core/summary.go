package core

import "time"

// CategoryTotal is the sum of amounts for one category of one transaction type.
type CategoryTotal struct {
	Category string
	Total    Money
}

// Totals pairs the per-type sums of a single transaction set.
type Totals struct {
	Income  Money
	Expense Money
}

// Net returns income minus expense.
func (t Totals) Net() Money {
	return t.Income.Sub(t.Expense)
}

// DateLayout is the day format used in reports, the HTTP API and the CLI.
const DateLayout = "2006-01-02"

// Millis returns t as epoch milliseconds, the storage representation of dates.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis; the result is in UTC.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseDay parses a YYYY-MM-DD day at midnight in loc (UTC when nil).
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// EndOfDay returns the last millisecond of the day containing t.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Millisecond)
}
