package worker

import (
	"context"
	"testing"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backup/memory"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

func newTestWorker(t *testing.T) (*BackupWorker, *storage.Repository, *memory.Log) {
	t.Helper()

	repo, err := storage.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	log := memory.New()
	clock := func() time.Time {
		return time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	}
	return NewBackupWorker(repo, log, WithClock(clock)), repo, log
}

func TestHandleCreatedEvent(t *testing.T) {
	w, repo, log := newTestWorker(t)
	ctx := context.Background()

	id, err := repo.CreateExpense(ctx, core.Expense{
		Amount:      core.Money{Cents: 1250},
		Category:    "Food & Dining",
		Description: "lunch",
		Date:        core.NewDate(2024, 5, 10),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	ev := amqp.NewExpenseCreated(id)
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	records := log.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Kind != "created" {
		t.Errorf("Kind = %q, want %q", rec.Kind, "created")
	}
	if rec.ExpenseID != id {
		t.Errorf("ExpenseID = %d, want %d", rec.ExpenseID, id)
	}
	if rec.Amount != "12.50" {
		t.Errorf("Amount = %q, want %q", rec.Amount, "12.50")
	}
	if rec.Date != "2024-05-10" {
		t.Errorf("Date = %q, want %q", rec.Date, "2024-05-10")
	}
	if rec.Category != "Food & Dining" {
		t.Errorf("Category = %q, want %q", rec.Category, "Food & Dining")
	}
	if !rec.LoggedAt.Equal(time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("LoggedAt = %v, unexpected", rec.LoggedAt)
	}
}

func TestHandleCreatedEventExpenseGone(t *testing.T) {
	w, _, log := newTestWorker(t)

	ev := amqp.NewExpenseCreated(999)
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent should drop events for missing expenses, got %v", err)
	}
	if len(log.Records()) != 0 {
		t.Fatalf("expected no records, got %d", len(log.Records()))
	}
}

func TestHandleDeletedEvent(t *testing.T) {
	w, _, log := newTestWorker(t)

	ev := amqp.NewExpenseDeleted(42)
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	records := log.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Kind != "deleted" {
		t.Errorf("Kind = %q, want %q", records[0].Kind, "deleted")
	}
	if records[0].ExpenseID != 42 {
		t.Errorf("ExpenseID = %d, want 42", records[0].ExpenseID)
	}
}

func TestHandleUnknownEventKind(t *testing.T) {
	w, _, log := newTestWorker(t)

	ev := &amqp.ExpenseEvent{Kind: "expense.updated", ID: 1}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unknown kinds should be dropped, got %v", err)
	}
	if len(log.Records()) != 0 {
		t.Fatalf("expected no records, got %d", len(log.Records()))
	}
}
