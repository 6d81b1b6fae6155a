package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/enum"
)

// OrderStore defines the database methods needed by the admin order endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ConfirmOrder(ctx context.Context, arg database.ConfirmOrderParams) (database.Order, error)
	SoftDeleteOrder(ctx context.Context, arg database.SoftDeleteOrderParams) (database.Order, error)
	ListOrderLines(ctx context.Context, arg database.ListOrderLinesParams) ([]database.ListOrderLinesRow, error)
}

// StatusNotifier is told about confirmed and deleted orders.
// Satisfied by *notify.Dispatcher.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, o database.Order)
}

// OrderHandler handles admin order endpoints.
type OrderHandler struct {
	store    OrderStore
	notifier StatusNotifier
}

// NewOrderHandler creates a new OrderHandler. notifier may be nil.
func NewOrderHandler(store OrderStore, notifier StatusNotifier) *OrderHandler {
	return &OrderHandler{store: store, notifier: notifier}
}

// RegisterRoutes registers order endpoints.
// Expected to be mounted behind admin authentication at /api/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/confirm", h.Confirm)
	r.Delete("/{id}", h.Delete)
}

type orderCommentRequest struct {
	Comment string `json:"comment"`
}

// --- Handlers ---

// List returns orders, newest first, optionally filtered by ?status=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status pgtype.Text
	if s := q.Get("status"); s != "" {
		switch s {
		case enum.OrderStatusPending, enum.OrderStatusConfirmed, enum.OrderStatusDeleted:
			status = pgtype.Text{String: s, Valid: true}
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	limit, offset, err := parsePaging(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		resp = append(resp, toOrderResponse(o, items))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with its line items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.respondWithOrder(w, r, http.StatusOK, order)
}

// Confirm moves a pending order to confirmed.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	comment, ok := decodeComment(w, r)
	if !ok {
		return
	}

	order, err := h.store.ConfirmOrder(r.Context(), database.ConfirmOrderParams{ID: id, AdminComment: comment})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.explainStatusConflict(w, r, id, "confirmed")
			return
		}
		log.Printf("ERROR: confirm order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.statusChanged(r.Context(), order)
	h.respondWithOrder(w, r, http.StatusOK, order)
}

// Delete soft-deletes an order. Deleted orders drop out of reports.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	comment, ok := decodeComment(w, r)
	if !ok {
		return
	}

	order, err := h.store.SoftDeleteOrder(r.Context(), database.SoftDeleteOrderParams{ID: id, AdminComment: comment})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.explainStatusConflict(w, r, id, "deleted")
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.statusChanged(r.Context(), order)
	h.respondWithOrder(w, r, http.StatusOK, order)
}

// ExportCSV streams one row per order line in the date range.
func (h *OrderHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, err := h.store.ListOrderLines(r.Context(), database.ListOrderLinesParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "customer_name", "item_name", "quantity"})
	for _, l := range lines {
		cw.Write([]string{
			l.CreatedAt.Format("2006-01-02T15:04:05"),
			l.CustomerName,
			l.ItemName,
			strconv.Itoa(int(l.Quantity)),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("ERROR: write orders csv: %v", err)
	}
}

// --- Helpers ---

// explainStatusConflict distinguishes a missing order from one whose status
// forbids the change.
func (h *OrderHandler) explainStatusConflict(w http.ResponseWriter, r *http.Request, id uuid.UUID, target string) {
	current, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order for status change: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeError(w, http.StatusConflict, fmt.Sprintf("order is %s and cannot be %s", current.Status, target))
}

func (h *OrderHandler) statusChanged(ctx context.Context, o database.Order) {
	if h.notifier != nil {
		h.notifier.OrderStatusChanged(ctx, o)
	}
}

func (h *OrderHandler) respondWithOrder(w http.ResponseWriter, r *http.Request, status int, o database.Order) {
	items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, status, toOrderResponse(o, items))
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

// decodeComment reads an optional {comment} body. An empty body is allowed.
func decodeComment(w http.ResponseWriter, r *http.Request) (pgtype.Text, bool) {
	var req orderCommentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return pgtype.Text{}, false
		}
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return pgtype.Text{}, true
	}
	return pgtype.Text{String: comment, Valid: true}, true
}

func parsePaging(limitStr, offsetStr string) (int32, int32, error) {
	limit := int32(50)
	if limitStr != "" {
		n, err := strconv.ParseInt(limitStr, 10, 32)
		if err != nil || n < 1 || n > 200 {
			return 0, 0, fmt.Errorf("limit must be between 1 and 200")
		}
		limit = int32(n)
	}
	offset := int32(0)
	if offsetStr != "" {
		n, err := strconv.ParseInt(offsetStr, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
		offset = int32(n)
	}
	return limit, offset, nil
}
