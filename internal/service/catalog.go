package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/roomservice/api/internal/apperr"
	"github.com/roomservice/api/internal/database"
)

// CatalogStore defines the DB methods needed to manage catalog items.
// Satisfied by *database.Queries (and its WithTx variant).
type CatalogStore interface {
	CreateItem(ctx context.Context, name string) (database.Item, error)
	UpdateItemName(ctx context.Context, arg database.UpdateItemNameParams) (database.Item, error)
	DeleteItem(ctx context.Context, id int64) (int64, error)
	ListItems(ctx context.Context) ([]database.Item, error)
	SearchItems(ctx context.Context, query string) ([]database.Item, error)
}

// NewCatalogStore creates a CatalogStore from a DBTX (pool or tx).
type NewCatalogStore func(db database.DBTX) CatalogStore

// BulkAddResult reports how many lines of a bulk add became items.
type BulkAddResult struct {
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
	Items   []database.Item `json:"items"`
}

// CatalogService manages the process-wide item catalog. Concurrent admin
// edits are last write wins.
type CatalogService struct {
	pool     TxBeginner
	store    CatalogStore
	newStore NewCatalogStore
}

// NewCatalogService creates a CatalogService. store serves single statements;
// newStore is used to bind a store to a transaction for bulk adds.
func NewCatalogService(pool TxBeginner, store CatalogStore, newStore NewCatalogStore) *CatalogService {
	return &CatalogService{pool: pool, store: store, newStore: newStore}
}

// AddItem creates an item. Surrounding whitespace is trimmed from name.
func (s *CatalogService) AddItem(ctx context.Context, name string) (database.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Item{}, ErrEmptyName
	}
	item, err := s.store.CreateItem(ctx, name)
	if err != nil {
		return database.Item{}, apperr.Storage(fmt.Errorf("create item: %w", err))
	}
	return item, nil
}

// EditItem renames an item.
func (s *CatalogService) EditItem(ctx context.Context, id int64, name string) (database.Item, error) {
	if id <= 0 {
		return database.Item{}, ErrInvalidItemID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Item{}, ErrEmptyName
	}
	item, err := s.store.UpdateItemName(ctx, database.UpdateItemNameParams{Name: name, ID: id})
	if err != nil {
		if isNoRows(err) {
			return database.Item{}, ErrItemNotFound
		}
		return database.Item{}, apperr.Storage(fmt.Errorf("update item: %w", err))
	}
	return item, nil
}

// DeleteItem removes an item. Orders that reference it keep their snapshot.
func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidItemID
	}
	if _, err := s.store.DeleteItem(ctx, id); err != nil {
		if isNoRows(err) {
			return ErrItemNotFound
		}
		return apperr.Storage(fmt.Errorf("delete item: %w", err))
	}
	return nil
}

// BulkAdd creates one item per non-blank line of text, in input order, in a
// single transaction. Blank lines are counted as skipped; duplicates are kept.
func (s *CatalogService) BulkAdd(ctx context.Context, text string) (*BulkAddResult, error) {
	names, skipped := ParseBulkNames(text)
	result := &BulkAddResult{Skipped: skipped, Items: []database.Item{}}
	if len(names) == 0 {
		return result, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	for _, name := range names {
		item, err := store.CreateItem(ctx, name)
		if err != nil {
			return nil, apperr.Storage(fmt.Errorf("create item %q: %w", name, err))
		}
		result.Items = append(result.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage(fmt.Errorf("commit tx: %w", err))
	}
	result.Created = len(result.Items)
	return result, nil
}

// ParseBulkNames splits text into trimmed, non-empty names and counts the
// blank lines it dropped.
func ParseBulkNames(text string) (names []string, skipped int) {
	if strings.TrimSpace(text) == "" {
		return nil, 0
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			skipped++
			continue
		}
		names = append(names, name)
	}
	return names, skipped
}

// Search returns items whose name contains query, case-insensitively, in
// catalog order. A blank query matches nothing.
func (s *CatalogService) Search(ctx context.Context, query string) ([]database.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []database.Item{}, nil
	}
	items, err := s.store.SearchItems(ctx, query)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("search items: %w", err))
	}
	return items, nil
}

// ListItems returns the whole catalog in id order.
func (s *CatalogService) ListItems(ctx context.Context) ([]database.Item, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("list items: %w", err))
	}
	return items, nil
}
