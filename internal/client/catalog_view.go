package client

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// CatalogAPI is the subset of Client used by CatalogView.
type CatalogAPI interface {
	AddItem(ctx context.Context, name string) (Item, error)
	EditItem(ctx context.Context, id int64, name string) (Item, error)
	DeleteItem(ctx context.Context, id int64) error
	BulkAdd(ctx context.Context, text string) (BulkResult, error)
	SearchItems(ctx context.Context, q string) ([]Item, error)
}

// CatalogView is the admin's local listing of the catalog. Mutations are
// sent to the server first and applied locally only once it confirms them,
// so a failed call leaves the view unchanged.
type CatalogView struct {
	api CatalogAPI

	mu    sync.RWMutex
	query string
	items []Item
}

// NewCatalogView creates an empty view. Call Refresh to populate it.
func NewCatalogView(api CatalogAPI) *CatalogView {
	return &CatalogView{api: api}
}

// Items returns a copy of the listing in catalog order.
func (v *CatalogView) Items() []Item {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Item, len(v.items))
	copy(out, v.items)
	return out
}

// Query returns the active search filter.
func (v *CatalogView) Query() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.query
}

// Refresh reloads the listing for q. A blank q shows the whole catalog.
func (v *CatalogView) Refresh(ctx context.Context, q string) error {
	q = strings.TrimSpace(q)
	items, err := v.api.SearchItems(ctx, q)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
	v.items = items
	sortItems(v.items)
	return nil
}

// Add creates an item and shows it when it matches the active filter.
func (v *CatalogView) Add(ctx context.Context, name string) (Item, error) {
	item, err := v.api.AddItem(ctx, name)
	if err != nil {
		return Item{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.matches(item) {
		v.items = append(v.items, item)
		sortItems(v.items)
	}
	return item, nil
}

// Edit renames an item. An item that no longer matches the filter leaves
// the listing.
func (v *CatalogView) Edit(ctx context.Context, id int64, name string) (Item, error) {
	item, err := v.api.EditItem(ctx, id, name)
	if err != nil {
		return Item{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	idx := v.indexOf(id)
	switch {
	case idx >= 0 && v.matches(item):
		v.items[idx] = item
	case idx >= 0:
		v.items = append(v.items[:idx], v.items[idx+1:]...)
	case v.matches(item):
		v.items = append(v.items, item)
		sortItems(v.items)
	}
	return item, nil
}

// Delete removes an item.
func (v *CatalogView) Delete(ctx context.Context, id int64) error {
	if err := v.api.DeleteItem(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if idx := v.indexOf(id); idx >= 0 {
		v.items = append(v.items[:idx], v.items[idx+1:]...)
	}
	return nil
}

// BulkAdd creates items from text and shows the ones matching the filter.
func (v *CatalogView) BulkAdd(ctx context.Context, text string) (BulkResult, error) {
	res, err := v.api.BulkAdd(ctx, text)
	if err != nil {
		return BulkResult{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, item := range res.Items {
		if v.matches(item) && v.indexOf(item.ID) < 0 {
			v.items = append(v.items, item)
		}
	}
	sortItems(v.items)
	return res, nil
}

func (v *CatalogView) matches(item Item) bool {
	return v.query == "" || strings.Contains(strings.ToLower(item.Name), strings.ToLower(v.query))
}

func (v *CatalogView) indexOf(id int64) int {
	for i, it := range v.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
