package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendtrack/internal/core"
	"spendtrack/internal/service"
	"spendtrack/internal/storage"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return "$" + m.String() },
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "JSON encoding failed", "error", err, "url", r.URL.Path)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// "/" is the mux catch-all; anything else under it is a miss.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	dash, err := s.service.DashboardSummary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard summary error", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "index.html", dash)
}

// addFormData backs the add-expense form, carrying the previous input and
// error back on validation failure.
type addFormData struct {
	Categories []core.Category
	Today      string
	Error      string
	Input      service.CreateInput
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderAddForm(w, r, addFormData{})
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderAddForm(w http.ResponseWriter, r *http.Request, data addFormData) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list error", "error", err)
	}
	data.Categories = cats
	if data.Today == "" {
		data.Today = s.service.Today().String()
	}
	s.render(w, r, "add_expense.html", data)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in := service.CreateInput{
		Amount:      strings.TrimSpace(r.Form.Get("amount")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Description: sanitizeInput(r.Form.Get("description")),
		Date:        strings.TrimSpace(r.Form.Get("date")),
	}

	id, err := s.service.CreateExpense(r.Context(), in)
	if err != nil {
		if isValidationError(err) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.renderAddForm(w, r, addFormData{Error: validationMessage(err), Input: in, Today: in.Date})
			return
		}
		slog.ErrorContext(r.Context(), "Create expense error", "error", err)
		http.Error(w, "failed to save expense", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Expense created", "id", id, "category", in.Category)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// expensesPageData backs the filtered listing page.
type expensesPageData struct {
	Page       core.ExpensePage
	Categories []core.Category
	Filter     storage.Filter
	From       string
	To         string
	SelfURL    string
	PrevURL    string
	NextURL    string
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := s.service.ListExpenses(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses error", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list error", "error", err)
	}

	data := expensesPageData{
		Page:       page,
		Categories: cats,
		Filter:     f,
	}
	if !f.From.IsZero() {
		data.From = f.From.String()
	}
	if !f.To.IsZero() {
		data.To = f.To.String()
	}
	data.SelfURL = listingURL(f, page.Page)
	if page.HasPrevious {
		data.PrevURL = listingURL(f, page.Page-1)
	}
	if page.HasNext {
		data.NextURL = listingURL(f, page.Page+1)
	}
	s.render(w, r, "expenses.html", data)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(r.Form.Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	if err := s.service.DeleteExpense(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete expense error", "error", err, "id", id)
		http.Error(w, "failed to delete expense", http.StatusInternalServerError)
		return
	}

	// Send the client back to the page it was on, filters intact.
	target := r.Form.Get("return")
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		target = "/expenses"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	analytics, err := s.service.AnalyticsSummary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Analytics summary error", "error", err)
		http.Error(w, "failed to load analytics", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "analytics.html", analytics)
}

type monthlyPoint struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

func (s *Server) handleMonthlyData(w http.ResponseWriter, r *http.Request) {
	trend, err := s.service.MonthlyTrend(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly trend error", "error", err)
		http.Error(w, "failed to load monthly data", http.StatusInternalServerError)
		return
	}

	points := make([]monthlyPoint, 0, len(trend))
	for _, mt := range trend {
		points = append(points, monthlyPoint{Month: mt.Month.String(), Total: mt.Total.Amount()})
	}
	writeJSON(w, r, points)
}

type categoryPoint struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Color    *string `json:"color"`
}

func (s *Server) handleCategoryData(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.CategoryBreakdown(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Category breakdown error", "error", err)
		http.Error(w, "failed to load category data", http.StatusInternalServerError)
		return
	}

	points := make([]categoryPoint, 0, len(totals))
	for _, ct := range totals {
		points = append(points, categoryPoint{Category: ct.Category, Total: ct.Total.Amount(), Color: ct.Color})
	}
	writeJSON(w, r, points)
}

// parseFilter reads the listing filters from the query string. Unset
// parameters impose no constraint; a malformed date or page is an error
// rather than silently ignored.
func parseFilter(q url.Values) (storage.Filter, error) {
	f := storage.Filter{
		Category: sanitizeInput(q.Get("category")),
		Page:     1,
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return storage.Filter{}, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		f.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return storage.Filter{}, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		f.To = d
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return storage.Filter{}, errors.New("invalid page number")
		}
		f.Page = p
	}
	return f, nil
}

// listingURL rebuilds the /expenses URL for the given page, keeping the
// active filters.
func listingURL(f storage.Filter, page int) string {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.String())
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.String())
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return "/expenses"
	}
	return "/expenses?" + q.Encode()
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrEmptyCategory)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter a positive amount like 12.50."
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter the date as YYYY-MM-DD."
	case errors.Is(err, core.ErrEmptyCategory):
		return "Pick a category."
	default:
		return "Invalid input."
	}
}
