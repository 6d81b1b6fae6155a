package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/roomservice/api/internal/database"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetWeeklyItemTotals(ctx context.Context, arg database.GetWeeklyItemTotalsParams) ([]database.GetWeeklyItemTotalsRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted behind admin authentication at /api/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weekly", h.Weekly)
}

// weeklyReportRow is one week with the quantity ordered per item name.
type weeklyReportRow struct {
	WeekEnding string           `json:"week_ending"`
	Items      map[string]int64 `json:"items"`
}

// Weekly returns per-item quantity totals grouped into weeks ending Sunday.
// Deleted orders are not counted.
func (h *ReportsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetWeeklyItemTotals(r.Context(), database.GetWeeklyItemTotalsParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: get weekly item totals: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, pivotWeekly(rows))
}

// pivotWeekly folds (week, item, total) rows, sorted by week, into one entry
// per week.
func pivotWeekly(rows []database.GetWeeklyItemTotalsRow) []weeklyReportRow {
	resp := []weeklyReportRow{}
	for _, row := range rows {
		week := row.WeekEnding.Format("2006-01-02")
		if n := len(resp); n == 0 || resp[n-1].WeekEnding != week {
			resp = append(resp, weeklyReportRow{WeekEnding: week, Items: map[string]int64{}})
		}
		resp[len(resp)-1].Items[row.ItemName] += row.TotalQuantity
	}
	return resp
}

// parseDateRange reads ?from= and ?to= (YYYY-MM-DD, UTC, both inclusive).
// Defaults to the last 12 weeks.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -7*12)
	to := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		from = t
	}

	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		to = t.AddDate(0, 0, 1)
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}
