package handler

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/draft"
	"github.com/roomservice/api/internal/enum"
	"github.com/roomservice/api/internal/middleware"
	"github.com/roomservice/api/internal/service"
)

// DraftStore is the session draft store used by the storefront.
// Satisfied by *draft.Store.
type DraftStore interface {
	Save(ctx context.Context, sessionKey string, d draft.Draft) error
	Load(ctx context.Context, sessionKey string) (draft.Draft, error)
	Clear(ctx context.Context, sessionKey string) error
}

// OrderFinalizer commits a session draft as an order.
// Satisfied by *service.OrderService.
type OrderFinalizer interface {
	Finalize(ctx context.Context, sessionKey string) (*service.OrderResult, error)
}

// StorefrontHandler serves the guest-facing order page endpoints. Every
// request is expected to carry a session key from middleware.Session.
type StorefrontHandler struct {
	catalog CatalogServicer
	drafts  DraftStore
	orders  OrderFinalizer
}

// NewStorefrontHandler creates a new StorefrontHandler.
func NewStorefrontHandler(catalog CatalogServicer, drafts DraftStore, orders OrderFinalizer) *StorefrontHandler {
	return &StorefrontHandler{catalog: catalog, drafts: drafts, orders: orders}
}

// RegisterRoutes registers storefront endpoints at the root.
func (h *StorefrontHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/", h.Submit)
	r.Post("/save-progress", h.SaveProgress)
	r.Post("/clear-session", h.ClearSession)
}

// --- Response types ---

type storefrontResponse struct {
	Items       []itemResponse `json:"items"`
	AllItems    []itemResponse `json:"all_items"`
	SearchQuery string         `json:"search_query"`
	FormData    draft.Draft    `json:"form_data"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	RoomNumber    string              `json:"room_number"`
	Status        string              `json:"status"`
	AdminComment  *string             `json:"admin_comment"`
	CreatedAt     time.Time           `json:"created_at"`
	ConfirmedAt   *time.Time          `json:"confirmed_at"`
	DeletedAt     *time.Time          `json:"deleted_at"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int32  `json:"quantity"`
}

type submitResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		RoomNumber:    o.RoomNumber,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		Items:         make([]orderItemResponse, len(items)),
	}
	if o.AdminComment.Valid {
		resp.AdminComment = &o.AdminComment.String
	}
	if o.ConfirmedAt.Valid {
		resp.ConfirmedAt = &o.ConfirmedAt.Time
	}
	if o.DeletedAt.Valid {
		resp.DeletedAt = &o.DeletedAt.Time
	}
	for i, it := range items {
		resp.Items[i] = orderItemResponse{ItemID: it.ItemID, ItemName: it.ItemName, Quantity: it.Quantity}
	}
	return resp
}

// --- Handlers ---

// Index returns the catalog, optionally filtered by ?search=, together with
// the session's saved draft.
func (h *StorefrontHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	all, err := h.catalog.ListItems(ctx)
	if err != nil {
		writeServiceError(w, "list items", err)
		return
	}
	items := all
	if search != "" {
		if items, err = h.catalog.Search(ctx, search); err != nil {
			writeServiceError(w, "search items", err)
			return
		}
	}

	d, err := h.drafts.Load(ctx, middleware.SessionKeyFromContext(ctx))
	if err != nil {
		writeServiceError(w, "load draft", err)
		return
	}

	writeJSON(w, http.StatusOK, storefrontResponse{
		Items:       toItemResponses(items),
		AllItems:    toItemResponses(all),
		SearchQuery: search,
		FormData:    d,
	})
}

// Submit places the order. A JSON or form body replaces the saved draft
// first; an empty body submits the draft as saved.
func (h *StorefrontHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := middleware.SessionKeyFromContext(ctx)

	d, hasBody, err := decodeDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if hasBody {
		if err := h.drafts.Save(ctx, key, d); err != nil {
			writeServiceError(w, "save draft", err)
			return
		}
	}

	result, err := h.orders.Finalize(ctx, key)
	if err != nil {
		writeServiceError(w, "finalize order", err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Status:  enum.ResultSuccess,
		Message: fmt.Sprintf("Order %s placed", result.Order.OrderNumber),
		Order:   toOrderResponse(result.Order, result.Items),
	})
}

// SaveProgress replaces the session draft with the posted one.
func (h *StorefrontHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "no data received")
		return
	}

	// null and {} carry no fields and must not wipe the saved draft.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no data received")
		return
	}
	var d draft.Draft
	if err := json.Unmarshal(body, &d); err != nil {
		writeError(w, http.StatusBadRequest, "no data received")
		return
	}
	if d.HasNULByte() {
		writeError(w, http.StatusBadRequest, errNULByte.Error())
		return
	}
	if d.Quantities == nil {
		d.Quantities = map[string]draft.Quantity{}
	}

	ctx := r.Context()
	if err := h.drafts.Save(ctx, middleware.SessionKeyFromContext(ctx), d); err != nil {
		writeServiceError(w, "save progress", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  enum.ResultSuccess,
		"message": "Progress saved",
	})
}

// ClearSession drops the session draft.
func (h *StorefrontHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.drafts.Clear(ctx, middleware.SessionKeyFromContext(ctx)); err != nil {
		writeServiceError(w, "clear session", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  enum.ResultSuccess,
		"message": "Session cleared",
	})
}

// errNULByte rejects text Postgres cannot store in TEXT or JSONB columns.
var errNULByte = errors.New("draft contains a NUL character")

// decodeDraft reads a draft from a JSON body or a classic form post, where
// quantities arrive as qty_<id> fields. An empty or null body reports no
// draft, so the saved one is submitted.
func decodeDraft(r *http.Request) (draft.Draft, bool, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(1 << 20)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return draft.Draft{}, false, err
		}
		if len(r.PostForm) == 0 {
			return draft.Draft{}, false, nil
		}
		d := draft.Empty()
		d.CustomerName = strings.TrimSpace(r.PostForm.Get("customer_name"))
		d.CustomerPhone = strings.TrimSpace(r.PostForm.Get("customer_phone"))
		d.RoomNumber = strings.TrimSpace(r.PostForm.Get("room_number"))
		for key, vals := range r.PostForm {
			if strings.HasPrefix(key, draft.LegacyKeyPrefix) && len(vals) > 0 {
				d.Quantities[key] = draft.Quantity(vals[0])
			}
		}
		if d.HasNULByte() {
			return draft.Draft{}, false, errNULByte
		}
		return d, true, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return draft.Draft{}, false, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return draft.Draft{}, false, nil
	}
	var d draft.Draft
	if err := json.Unmarshal(body, &d); err != nil {
		return draft.Draft{}, false, err
	}
	if d.HasNULByte() {
		return draft.Draft{}, false, errNULByte
	}
	if d.Quantities == nil {
		d.Quantities = map[string]draft.Quantity{}
	}
	return d, true, nil
}
