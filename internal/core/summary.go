package core

// ExpenseRow is an expense joined to its category's display color for
// listing views. Color is nil when the expense's category string matches
// no registered category.
type ExpenseRow struct {
	Expense
	Color *string
}

// CategoryTotal is the amount spent in one category over a month, joined to
// the registered category's display color. Color is nil when the category
// string on the expenses never matched a registered category.
type CategoryTotal struct {
	Category string
	Total    Money
	Color    *string
}

// CategoryStat extends CategoryTotal with count and average for analytics.
type CategoryStat struct {
	Category string
	Total    Money
	Count    int64
	Average  Money
	Color    *string
}

// DayTotal is the amount spent on a single calendar date.
type DayTotal struct {
	Date  Date
	Total Money
}

// MonthTotal is the amount spent in a single calendar month.
type MonthTotal struct {
	Month Month
	Total Money
}

// ExpensePage is one page of a filtered expense listing together with the
// pagination math computed from the filter-wide row count.
type ExpensePage struct {
	Items       []ExpenseRow
	Page        int
	TotalCount  int
	TotalPages  int
	HasPrevious bool
	HasNext     bool
}
