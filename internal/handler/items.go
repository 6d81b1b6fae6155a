package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/enum"
	"github.com/roomservice/api/internal/service"
)

// CatalogServicer defines the catalog operations used by the item API and
// the storefront. Satisfied by *service.CatalogService.
type CatalogServicer interface {
	AddItem(ctx context.Context, name string) (database.Item, error)
	EditItem(ctx context.Context, id int64, name string) (database.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	BulkAdd(ctx context.Context, text string) (*service.BulkAddResult, error)
	Search(ctx context.Context, query string) ([]database.Item, error)
	ListItems(ctx context.Context) ([]database.Item, error)
}

// ItemHandler handles the admin item API.
type ItemHandler struct {
	svc CatalogServicer
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(svc CatalogServicer) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// RegisterRoutes registers item endpoints. Expected to be mounted at /api
// behind admin authentication.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Post("/item/add", h.Add)
	r.Put("/item/edit/{id}", h.Edit)
	r.Delete("/item/delete/{id}", h.Delete)
	r.Post("/item/bulk_add", h.BulkAdd)
	r.Get("/items/search", h.Search)
}

// --- Request / Response types ---

type itemRequest struct {
	Name string `json:"name"`
}

type bulkAddRequest struct {
	ItemsText string `json:"items_text"`
}

type itemResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type itemResult struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Item    *itemResponse `json:"item,omitempty"`
}

type bulkAddResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Created int            `json:"created"`
	Skipped int            `json:"skipped"`
	Items   []itemResponse `json:"items"`
}

func toItemResponse(it database.Item) itemResponse {
	return itemResponse{ID: it.ID, Name: it.Name}
}

func toItemResponses(items []database.Item) []itemResponse {
	resp := make([]itemResponse, len(items))
	for i, it := range items {
		resp[i] = toItemResponse(it)
	}
	return resp
}

// --- Handlers ---

// Add creates a catalog item.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.AddItem(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, "add item", err)
		return
	}

	resp := toItemResponse(item)
	writeJSON(w, http.StatusCreated, itemResult{
		Status:  enum.ResultSuccess,
		Message: fmt.Sprintf("Item %q added", item.Name),
		Item:    &resp,
	})
}

// Edit renames a catalog item.
func (h *ItemHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.EditItem(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, "edit item", err)
		return
	}

	resp := toItemResponse(item)
	writeJSON(w, http.StatusOK, itemResult{
		Status:  enum.ResultSuccess,
		Message: fmt.Sprintf("Item renamed to %q", item.Name),
		Item:    &resp,
	})
}

// Delete removes a catalog item.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		writeServiceError(w, "delete item", err)
		return
	}

	writeJSON(w, http.StatusOK, itemResult{
		Status:  enum.ResultSuccess,
		Message: "Item deleted",
	})
}

// BulkAdd creates one item per non-blank line of items_text.
func (h *ItemHandler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	var req bulkAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ItemsText) == "" {
		writeError(w, http.StatusBadRequest, "enter at least one item name")
		return
	}

	result, err := h.svc.BulkAdd(r.Context(), req.ItemsText)
	if err != nil {
		writeServiceError(w, "bulk add items", err)
		return
	}

	writeJSON(w, http.StatusCreated, bulkAddResult{
		Status:  enum.ResultSuccess,
		Message: fmt.Sprintf("%d items added", result.Created),
		Created: result.Created,
		Skipped: result.Skipped,
		Items:   toItemResponses(result.Items),
	})
}

// Search returns matching items in catalog order. A blank q resets the admin
// listing, so it returns the whole catalog.
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		items []database.Item
		err   error
	)
	if q == "" {
		items, err = h.svc.ListItems(r.Context())
	} else {
		items, err = h.svc.Search(r.Context(), q)
	}
	if err != nil {
		writeServiceError(w, "search items", err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponses(items))
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}
