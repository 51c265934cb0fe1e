package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func fixedClock(year, month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	}
}

func newTestService(t *testing.T, pub EventPublisher, opts ...Option) *ExpenseService {
	t.Helper()
	repo, err := storage.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewExpenseService(repo, pub, opts...)
}

func TestCreateExpense(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, CreateInput{
		Amount:      "10.00",
		Category:    "Food & Dining",
		Description: "groceries",
		Date:        "2024-01-05",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if pub.events[0].Kind != amqp.KindExpenseCreated || pub.events[0].ID != id {
		t.Errorf("event = %+v", pub.events[0])
	}

	page, err := svc.ListExpenses(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 1 || page.Items[0].ID != id {
		t.Errorf("created expense missing from listing: %+v", page)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateInput
		wantErr error
	}{
		{
			name:    "non-numeric amount",
			input:   CreateInput{Amount: "abc", Category: "Other", Date: "2024-01-05"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			input:   CreateInput{Amount: "-3", Category: "Other", Date: "2024-01-05"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "malformed date",
			input:   CreateInput{Amount: "5.00", Category: "Other", Date: "01/05/2024"},
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "missing category",
			input:   CreateInput{Amount: "5.00", Category: "", Date: "2024-01-05"},
			wantErr: core.ErrEmptyCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No partial writes on validation failure.
	page, err := svc.ListExpenses(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 0 {
		t.Errorf("store holds %d rows after rejected inputs, want 0", page.TotalCount)
	}
}

func TestCreateExpenseSurvivesPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, pub)

	id, err := svc.CreateExpense(context.Background(), CreateInput{
		Amount:   "5.00",
		Category: "Other",
		Date:     "2024-01-05",
	})
	if err != nil {
		t.Fatalf("create should not fail when the event bus is down: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d", id)
	}
}

func TestDeleteExpense(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, CreateInput{Amount: "5.00", Category: "Other", Date: "2024-01-05"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Double delete stays a silent no-op.
	if err := svc.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	// One created + one deleted event; no event for the no-op.
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	if pub.events[1].Kind != amqp.KindExpenseDeleted {
		t.Errorf("second event kind = %q, want %q", pub.events[1].Kind, amqp.KindExpenseDeleted)
	}

	page, err := svc.ListExpenses(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 0 {
		t.Errorf("listing still holds %d rows after delete", page.TotalCount)
	}
}

func TestDashboardSummary(t *testing.T) {
	svc := newTestService(t, nil, WithClock(fixedClock(2024, 1, 20)))
	ctx := context.Background()

	for _, in := range []CreateInput{
		{Amount: "10.00", Category: "Food & Dining", Date: "2024-01-05"},
		{Amount: "20.00", Category: "Food & Dining", Date: "2024-01-07"},
		{Amount: "5.00", Category: "Transportation", Date: "2024-01-10"},
		{Amount: "99.00", Category: "Other", Date: "2023-12-31"}, // previous month
	} {
		if _, err := svc.CreateExpense(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	dash, err := svc.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if dash.Month != (core.Month{Year: 2024, Month: 1}) {
		t.Errorf("month = %+v, want 2024-01", dash.Month)
	}
	if dash.MonthlyTotal.Cents != 3500 {
		t.Errorf("monthly total = %d cents, want 3500 (December excluded)", dash.MonthlyTotal.Cents)
	}
	if len(dash.Recent) != 4 {
		t.Errorf("recent = %d items, want 4", len(dash.Recent))
	}
	if len(dash.CategoryTotals) != 2 {
		t.Fatalf("category totals = %d rows, want 2", len(dash.CategoryTotals))
	}
	if dash.CategoryTotals[0].Category != "Food & Dining" {
		t.Errorf("largest category = %q, want Food & Dining", dash.CategoryTotals[0].Category)
	}
}

func TestAnalyticsSummary(t *testing.T) {
	svc := newTestService(t, nil, WithClock(fixedClock(2024, 3, 15)))
	ctx := context.Background()

	for _, in := range []CreateInput{
		{Amount: "10.00", Category: "Food & Dining", Date: "2024-03-05"},
		{Amount: "30.00", Category: "Food & Dining", Date: "2024-03-05"},
		{Amount: "20.00", Category: "Other", Date: "2024-01-10"},
		{Amount: "50.00", Category: "Other", Date: "2023-08-01"}, // before window
	} {
		if _, err := svc.CreateExpense(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	a, err := svc.AnalyticsSummary(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}

	// Trailing 6 months from 2024-03-15 reaches back to 2023-09-15: the
	// August row is out, January and March remain.
	if len(a.MonthlyTrend) != 2 {
		t.Fatalf("trend = %d months, want 2", len(a.MonthlyTrend))
	}
	if a.MonthlyTrend[0].Month.String() != "2024-01" || a.MonthlyTrend[1].Month.String() != "2024-03" {
		t.Errorf("trend months = %s, %s", a.MonthlyTrend[0].Month, a.MonthlyTrend[1].Month)
	}

	if len(a.CategoryStats) != 1 {
		t.Fatalf("category stats = %d rows, want 1 (current month only)", len(a.CategoryStats))
	}
	cs := a.CategoryStats[0]
	if cs.Count != 2 || cs.Total.Cents != 4000 || cs.Average.Cents != 2000 {
		t.Errorf("stats = %+v", cs)
	}

	if len(a.DailyTotals) != 1 || a.DailyTotals[0].Total.Cents != 4000 {
		t.Errorf("daily totals = %+v", a.DailyTotals)
	}
}

func TestTodayUsesClock(t *testing.T) {
	svc := newTestService(t, nil, WithClock(fixedClock(2024, 6, 15)))

	if got := svc.Today().String(); got != "2024-06-15" {
		t.Fatalf("Today() = %q, want %q", got, "2024-06-15")
	}
}

func TestCategoryBreakdownUsesClock(t *testing.T) {
	svc := newTestService(t, nil, WithClock(fixedClock(2024, 2, 10)))
	ctx := context.Background()

	if _, err := svc.CreateExpense(ctx, CreateInput{Amount: "7.50", Category: "Shopping", Date: "2024-02-01"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, CreateInput{Amount: "9.99", Category: "Shopping", Date: "2024-01-01"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	totals, err := svc.CategoryBreakdown(ctx)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(totals) != 1 || totals[0].Total.Cents != 750 {
		t.Errorf("breakdown = %+v, want only February's 7.50", totals)
	}
}

func TestCategories(t *testing.T) {
	svc := newTestService(t, nil)

	cats, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 7 {
		t.Errorf("got %d categories, want the 7 seeded defaults", len(cats))
	}
}
