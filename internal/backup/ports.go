// Package backup defines the ports for the off-site expense backup log.
//
// The backup is append-only: every created expense becomes a row, and
// deletions are recorded as marker rows rather than removed, so the log
// doubles as a change history.
package backup

import (
	"context"
	"time"
)

// Record is one row of the backup log.
type Record struct {
	Kind        string // "created" or "deleted"
	ExpenseID   int64
	Date        string // YYYY-MM-DD, empty on deletion markers
	Category    string
	Description string
	Amount      string // decimal string, e.g. "12.34"
	LoggedAt    time.Time
}

// Appender writes records to the backup log.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}
