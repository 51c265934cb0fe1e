package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "2024-01-05", "2024-01-05", false},
		{"trimmed", " 2024-12-31 ", "2024-12-31", false},
		{"wrong layout", "05/01/2024", "", true},
		{"month overflow", "2024-13-01", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("ParseDate(%q) error = %v, want ErrInvalidDate", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseDate(%q).String() = %q, want %q", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-01")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if m.Year != 2024 || m.Month != 1 {
		t.Errorf("ParseMonth = %+v, want 2024-01", m)
	}
	if _, err := ParseMonth("2024-1"); err == nil {
		t.Error("ParseMonth should reject single-digit months")
	}
}

func TestMonthNavigation(t *testing.T) {
	jan := Month{Year: 2024, Month: 1}
	if got := jan.Prev(); got != (Month{Year: 2023, Month: 12}) {
		t.Errorf("Prev() = %+v, want 2023-12", got)
	}
	if got := (Month{Year: 2024, Month: 12}).Next(); got != (Month{Year: 2025, Month: 1}) {
		t.Errorf("Next() = %+v, want 2025-01", got)
	}
	if got := jan.String(); got != "2024-01" {
		t.Errorf("String() = %q, want 2024-01", got)
	}
}

func TestDateIn(t *testing.T) {
	d := NewDate(2024, 1, 15)
	if !d.In(Month{Year: 2024, Month: 1}) {
		t.Error("date should fall in its own month")
	}
	if d.In(Month{Year: 2024, Month: 2}) {
		t.Error("date should not fall in the next month")
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Amount:   Money{Cents: 1000},
		Category: "Food & Dining",
		Date:     NewDate(2024, 1, 5),
	}

	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr error
	}{
		{"valid expense", func(e *Expense) {}, nil},
		{"empty description allowed", func(e *Expense) { e.Description = "" }, nil},
		{"unregistered category allowed", func(e *Expense) { e.Category = "Never Seeded" }, nil},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"blank category", func(e *Expense) { e.Category = "   " }, ErrEmptyCategory},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonthOf(t *testing.T) {
	m := MonthOf(time.Date(2024, time.March, 31, 23, 59, 0, 0, time.UTC))
	if m != (Month{Year: 2024, Month: 3}) {
		t.Errorf("MonthOf = %+v, want 2024-03", m)
	}
}
