// Package worker turns expense events into backup log rows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backup"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
)

// ExpenseGetter is the slice of storage the worker needs.
type ExpenseGetter interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
}

// BackupWorker consumes expense events and appends them to a backup log.
type BackupWorker struct {
	store    ExpenseGetter
	appender backup.Appender
	now      func() time.Time
}

// Option configures a BackupWorker.
type Option func(*BackupWorker)

// WithClock replaces the timestamp clock, letting tests pin "now".
func WithClock(now func() time.Time) Option {
	return func(w *BackupWorker) { w.now = now }
}

func NewBackupWorker(store ExpenseGetter, appender backup.Appender, opts ...Option) *BackupWorker {
	w := &BackupWorker{
		store:    store,
		appender: appender,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent processes one expense event. Returning an error requeues the
// event; events referencing expenses that no longer exist are logged and
// dropped, the row was deleted before the backup caught up.
func (w *BackupWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	switch ev.Kind {
	case amqp.KindExpenseCreated:
		return w.handleCreated(ctx, ev)
	case amqp.KindExpenseDeleted:
		return w.handleDeleted(ctx, ev)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", applog.FieldEventKind, ev.Kind, applog.FieldExpenseID, ev.ID)
		return nil
	}
}

func (w *BackupWorker) handleCreated(ctx context.Context, ev *amqp.ExpenseEvent) error {
	e, err := w.store.GetExpense(ctx, ev.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Expense gone before backup, skipping", applog.FieldExpenseID, ev.ID)
			return nil
		}
		return fmt.Errorf("load expense %d: %w", ev.ID, err)
	}

	rec := backup.Record{
		Kind:        "created",
		ExpenseID:   e.ID,
		Date:        e.Date.String(),
		Category:    e.Category,
		Description: e.Description,
		Amount:      e.Amount.String(),
		LoggedAt:    w.now(),
	}
	if err := w.appender.Append(ctx, rec); err != nil {
		return fmt.Errorf("append created record: %w", err)
	}

	slog.InfoContext(ctx, "Expense backed up", applog.FieldExpenseID, e.ID, applog.FieldAmountCents, e.Amount.Cents)
	return nil
}

func (w *BackupWorker) handleDeleted(ctx context.Context, ev *amqp.ExpenseEvent) error {
	rec := backup.Record{
		Kind:      "deleted",
		ExpenseID: ev.ID,
		LoggedAt:  w.now(),
	}
	if err := w.appender.Append(ctx, rec); err != nil {
		return fmt.Errorf("append deleted record: %w", err)
	}

	slog.InfoContext(ctx, "Expense deletion recorded in backup", applog.FieldExpenseID, ev.ID)
	return nil
}
