// Package service coordinates expense operations across storage and the
// event bus, and owns the reference clock used by "current month" and
// trailing-window queries so those stay deterministic under test.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
	"spendtrack/internal/storage"
)

// TrendWindowMonths is how far the analytics trend looks back from the
// reference instant.
const TrendWindowMonths = 6

// RecentLimit is the number of expenses shown on the dashboard.
const RecentLimit = 10

// Store is the slice of the storage layer the service depends on.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	ListExpenses(ctx context.Context, f storage.Filter) (core.ExpensePage, error)
	RecentExpenses(ctx context.Context, limit int) ([]core.ExpenseRow, error)
	MonthlyTotal(ctx context.Context, m core.Month) (core.Money, error)
	CategoryTotals(ctx context.Context, m core.Month) ([]core.CategoryTotal, error)
	CategoryStats(ctx context.Context, m core.Month) ([]core.CategoryStat, error)
	DailyTotals(ctx context.Context, m core.Month) ([]core.DayTotal, error)
	MonthlyTotals(ctx context.Context, since core.Date) ([]core.MonthTotal, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// EventPublisher publishes expense lifecycle events. The AMQP client
// satisfies it; a nil publisher disables events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService orchestrates expense operations.
type ExpenseService struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

// WithClock replaces the reference clock, letting tests pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func NewExpenseService(store Store, events EventPublisher, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:  store,
		events: events,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the raw form input for a new expense.
type CreateInput struct {
	Amount      string
	Category    string
	Description string
	Date        string
}

// CreateExpense validates the input, stores the expense and publishes a
// created event. Event publishing is best-effort: a bus failure is logged
// and never fails the request, the expense is already saved.
func (s *ExpenseService) CreateExpense(ctx context.Context, in CreateInput) (int64, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", in.Amount, err)
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return 0, fmt.Errorf("date %q: %w", in.Date, err)
	}

	e := core.Expense{
		Amount:      amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseCreated(id))
	return id, nil
}

// DeleteExpense removes the expense with the given id. A missing id is a
// no-op, matching the listing's view that the expense is already gone; the
// deleted event is only published when a row was actually removed.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !deleted {
		slog.InfoContext(ctx, "Delete of missing expense ignored", applog.FieldExpenseID, id)
		return nil
	}

	s.publish(ctx, amqp.NewExpenseDeleted(id))
	return nil
}

// ListExpenses returns one page of the filtered listing.
func (s *ExpenseService) ListExpenses(ctx context.Context, f storage.Filter) (core.ExpensePage, error) {
	page, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	return page, nil
}

// Categories returns all registered categories ordered by name.
func (s *ExpenseService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Today returns the current date on the service clock, used to prefill
// date inputs.
func (s *ExpenseService) Today() core.Date {
	return core.Date{Time: s.now()}
}

// Dashboard is the summary shown on the index page.
type Dashboard struct {
	Month          core.Month
	Recent         []core.ExpenseRow
	MonthlyTotal   core.Money
	CategoryTotals []core.CategoryTotal
}

// DashboardSummary gathers the current month's spending overview relative
// to the service clock.
func (s *ExpenseService) DashboardSummary(ctx context.Context) (Dashboard, error) {
	month := core.MonthOf(s.now())

	recent, err := s.store.RecentExpenses(ctx, RecentLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent expenses: %w", err)
	}
	total, err := s.store.MonthlyTotal(ctx, month)
	if err != nil {
		return Dashboard{}, fmt.Errorf("monthly total: %w", err)
	}
	byCategory, err := s.store.CategoryTotals(ctx, month)
	if err != nil {
		return Dashboard{}, fmt.Errorf("category totals: %w", err)
	}

	return Dashboard{
		Month:          month,
		Recent:         recent,
		MonthlyTotal:   total,
		CategoryTotals: byCategory,
	}, nil
}

// Analytics is the data behind the analytics page and chart endpoints.
type Analytics struct {
	Month         core.Month
	MonthlyTrend  []core.MonthTotal
	CategoryStats []core.CategoryStat
	DailyTotals   []core.DayTotal
}

// AnalyticsSummary gathers the trailing monthly trend plus the current
// month's category statistics and daily series.
func (s *ExpenseService) AnalyticsSummary(ctx context.Context) (Analytics, error) {
	now := s.now()
	month := core.MonthOf(now)

	trend, err := s.MonthlyTrend(ctx)
	if err != nil {
		return Analytics{}, err
	}
	stats, err := s.store.CategoryStats(ctx, month)
	if err != nil {
		return Analytics{}, fmt.Errorf("category stats: %w", err)
	}
	daily, err := s.store.DailyTotals(ctx, month)
	if err != nil {
		return Analytics{}, fmt.Errorf("daily totals: %w", err)
	}

	return Analytics{
		Month:         month,
		MonthlyTrend:  trend,
		CategoryStats: stats,
		DailyTotals:   daily,
	}, nil
}

// MonthlyTrend returns per-month totals for the trailing window measured
// from the service clock.
func (s *ExpenseService) MonthlyTrend(ctx context.Context) ([]core.MonthTotal, error) {
	since := core.Date{Time: s.now().AddDate(0, -TrendWindowMonths, 0)}
	trend, err := s.store.MonthlyTotals(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	return trend, nil
}

// CategoryBreakdown returns the current month's category rollup.
func (s *ExpenseService) CategoryBreakdown(ctx context.Context) ([]core.CategoryTotal, error) {
	totals, err := s.store.CategoryTotals(ctx, core.MonthOf(s.now()))
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return totals, nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			applog.FieldEventKind, ev.Kind,
			applog.FieldExpenseID, ev.ID,
			applog.FieldError, err)
	}
}
