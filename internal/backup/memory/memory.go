// Package memory is an in-memory backup log used by tests and local runs
// without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"spendtrack/internal/backup"
)

// Log records appended backup rows in memory.
type Log struct {
	mu      sync.Mutex
	records []backup.Record
}

var _ backup.Appender = (*Log)(nil)

func New() *Log {
	return &Log{}
}

func (l *Log) Append(_ context.Context, rec backup.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (l *Log) Records() []backup.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]backup.Record, len(l.records))
	copy(out, l.records)
	return out
}
