package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	// Month identifies a calendar month.
	Month struct {
		Year  int
		Month int // 1-12
	}

	// Expense is a single recorded spending entry. Category is a plain
	// string copy, not a reference into the categories table: an expense
	// may name a category that was never registered.
	Expense struct {
		ID          int64
		Amount      Money
		Category    string
		Description string
		Date        Date
		CreatedAt   time.Time
	}

	// Category is a registered spending category with a display color.
	Category struct {
		ID    int64
		Name  string
		Color string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
	ErrNotFound      = errors.New("not found")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, the storage and wire representation.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// In reports whether the date falls inside the given month.
func (d Date) In(m Month) bool {
	return d.Year() == m.Year && int(d.Time.Month()) == m.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, ErrInvalidDate
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

// String formats the month as YYYY-MM, the grouping key used by aggregations.
func (m Month) String() string {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Prev returns the preceding calendar month.
func (m Month) Prev() Month {
	t := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return MonthOf(t)
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	t := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return MonthOf(t)
}

// Validate checks the invariants required before an expense is stored.
// Description is optional and accepted as-is; the category string is not
// checked against the registered category set.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
