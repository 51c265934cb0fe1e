// Package storage implements the SQLite persistence and query layer.
//
// All aggregations group the expenses table directly; the categories table
// is only ever LEFT JOINed on the category name to attach a display color,
// so expenses whose category was never registered still show up (with a
// NULL color). Month grouping uses strftime('%Y-%m', date) over the
// TEXT-encoded YYYY-MM-DD date column.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendtrack/internal/core"
	applog "spendtrack/internal/log"

	_ "modernc.org/sqlite"
)

// PageSize is the fixed number of expenses per listing page.
const PageSize = 20

// Repository provides expense and category persistence over a single
// SQLite database file.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the database at dbPath and
// applies migrations. The path ":memory:" yields a private in-memory
// database, used by tests.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && !strings.HasPrefix(dbPath, ":") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// Ping verifies the database connection, backing the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense inserts a new expense row and returns its assigned id.
// created_at is stamped by the database.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, category, description, date) VALUES (?, ?, ?, ?)`,
		e.Amount.Cents, e.Category, e.Description, e.Date.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		applog.FieldExpenseID, id,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategory, e.Category,
		applog.FieldDate, e.Date.String())

	return id, nil
}

// DeleteExpense removes the expense with the given id. Deleting a missing
// id is a no-op; the returned bool reports whether a row was removed.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete expense rows affected: %w", err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Delete matched no expense", applog.FieldExpenseID, id)
	}
	return n > 0, nil
}

// GetExpense retrieves a single expense by id. Returns core.ErrNotFound
// when no row matches.
func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, category, description, date, created_at FROM expenses WHERE id = ?`, id)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
		}
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// Filter narrows an expense listing. Zero values impose no constraint;
// set filters are AND-combined.
type Filter struct {
	Category string
	From     core.Date // inclusive lower bound
	To       core.Date // inclusive upper bound
	Page     int       // 1-indexed; values < 1 are treated as 1
}

func (f Filter) where() (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if f.Category != "" {
		clauses = append(clauses, "e.category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "e.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "e.date <= ?")
		args = append(args, f.To.String())
	}
	return strings.Join(clauses, " AND "), args
}

// ListExpenses returns one page of the filtered listing, newest first
// (date, then created_at, then id as the insertion-order tie-break), plus
// the pagination math computed from the filter-wide row count. A page past
// the end yields an empty page, not an error.
func (r *Repository) ListExpenses(ctx context.Context, f Filter) (core.ExpensePage, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}

	where, args := f.where()

	var total int
	countArgs := make([]any, len(args))
	copy(countArgs, args)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e WHERE `+where, countArgs...,
	).Scan(&total)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("count expenses: %w", err)
	}

	query := `SELECT e.id, e.amount_cents, e.category, e.description, e.date, e.created_at, c.color
		FROM expenses e
		LEFT JOIN categories c ON e.category = c.name
		WHERE ` + where + `
		ORDER BY e.date DESC, e.created_at DESC, e.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, PageSize, (page-1)*PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	items, err := scanExpenseRows(rows)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}

	totalPages := (total + PageSize - 1) / PageSize
	return core.ExpensePage{
		Items:       items,
		Page:        page,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}, nil
}

// RecentExpenses returns the latest expenses with their category colors,
// newest first.
func (r *Repository) RecentExpenses(ctx context.Context, limit int) ([]core.ExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.amount_cents, e.category, e.description, e.date, e.created_at, c.color
		FROM expenses e
		LEFT JOIN categories c ON e.category = c.name
		ORDER BY e.date DESC, e.created_at DESC, e.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	defer rows.Close()

	items, err := scanExpenseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	return items, nil
}

// MonthlyTotal sums all expenses dated within the given month. Months with
// no expenses total zero, not an absent row.
func (r *Repository) MonthlyTotal(ctx context.Context, m core.Month) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE strftime('%Y-%m', date) = ?`,
		m.String(),
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("monthly total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CategoryTotals sums the month's expenses per distinct category string,
// largest first, attaching the registered color when one matches.
func (r *Repository) CategoryTotals(ctx context.Context, m core.Month) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.category, SUM(e.amount_cents) AS total, c.color
		FROM expenses e
		LEFT JOIN categories c ON e.category = c.name
		WHERE strftime('%Y-%m', e.date) = ?
		GROUP BY e.category
		ORDER BY total DESC`, m.String())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			color sql.NullString
		)
		if err := rows.Scan(&ct.Category, &ct.Total.Cents, &color); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if color.Valid {
			ct.Color = &color.String
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return totals, nil
}

// CategoryStats is CategoryTotals enriched with per-category expense count
// and average amount, for analytics views.
func (r *Repository) CategoryStats(ctx context.Context, m core.Month) ([]core.CategoryStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.category, SUM(e.amount_cents) AS total, COUNT(*) AS cnt, AVG(e.amount_cents), c.color
		FROM expenses e
		LEFT JOIN categories c ON e.category = c.name
		WHERE strftime('%Y-%m', e.date) = ?
		GROUP BY e.category
		ORDER BY total DESC`, m.String())
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()

	var stats []core.CategoryStat
	for rows.Next() {
		var (
			cs    core.CategoryStat
			avg   float64
			color sql.NullString
		)
		if err := rows.Scan(&cs.Category, &cs.Total.Cents, &cs.Count, &avg, &color); err != nil {
			return nil, fmt.Errorf("scan category stat: %w", err)
		}
		cs.Average = core.Money{Cents: int64(avg + 0.5)}
		if color.Valid {
			cs.Color = &color.String
		}
		stats = append(stats, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return stats, nil
}

// DailyTotals sums the month's expenses per exact date, chronologically.
// Days with no expenses are omitted, not zero-filled.
func (r *Repository) DailyTotals(ctx context.Context, m core.Month) ([]core.DayTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, SUM(amount_cents)
		FROM expenses
		WHERE strftime('%Y-%m', date) = ?
		GROUP BY date
		ORDER BY date`, m.String())
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var totals []core.DayTotal
	for rows.Next() {
		var (
			dt      core.DayTotal
			dateStr string
		)
		if err := rows.Scan(&dateStr, &dt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		if dt.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("daily total date %q: %w", dateStr, err)
		}
		totals = append(totals, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	return totals, nil
}

// MonthlyTotals sums expenses per calendar month for all dates on or after
// since, chronologically. Months with no expenses are omitted. The caller
// derives since from its injected clock; no wall-clock reads happen here.
func (r *Repository) MonthlyTotals(ctx context.Context, since core.Date) ([]core.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', date) AS month, SUM(amount_cents)
		FROM expenses
		WHERE date >= ?
		GROUP BY month
		ORDER BY month`, since.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []core.MonthTotal
	for rows.Next() {
		var (
			mt       core.MonthTotal
			monthStr string
		)
		if err := rows.Scan(&monthStr, &mt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		if mt.Month, err = core.ParseMonth(monthStr); err != nil {
			return nil, fmt.Errorf("monthly total month %q: %w", monthStr, err)
		}
		totals = append(totals, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return totals, nil
}

// ListCategories returns all registered categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e           core.Expense
		description sql.NullString
		dateStr     string
		createdAt   time.Time
	)
	if err := row.Scan(&e.ID, &e.Amount.Cents, &e.Category, &description, &dateStr, &createdAt); err != nil {
		return core.Expense{}, err
	}
	e.Description = description.String
	e.CreatedAt = createdAt
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense date %q: %w", dateStr, err)
	}
	e.Date = d
	return e, nil
}

func scanExpenseRows(rows *sql.Rows) ([]core.ExpenseRow, error) {
	var items []core.ExpenseRow
	for rows.Next() {
		var (
			item        core.ExpenseRow
			description sql.NullString
			dateStr     string
			createdAt   time.Time
			color       sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Amount.Cents, &item.Category, &description, &dateStr, &createdAt, &color); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		item.Description = description.String
		item.CreatedAt = createdAt
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("expense date %q: %w", dateStr, err)
		}
		item.Date = d
		if color.Valid {
			item.Color = &color.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
