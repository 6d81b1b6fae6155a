package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/roomservice/api/internal/apperr"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/draft"
	"github.com/roomservice/api/internal/enum"
)

// OrderStore defines the DB methods needed to finalize a draft into an order.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetDraftForUpdate(ctx context.Context, sessionKey string) (database.Draft, error)
	GetItemsByIDs(ctx context.Context, ids []int64) ([]database.Item, error)
	NextOrderNumber(ctx context.Context) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DeleteDraft(ctx context.Context, sessionKey string) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// SubmitGuard prevents two submissions of the same session from running at
// once. Satisfied by *redisx.SubmitGuard.
type SubmitGuard interface {
	Acquire(ctx context.Context, sessionKey string) (token string, ok bool, err error)
	Release(ctx context.Context, sessionKey, token string) error
}

// OrderNotifier is told about every committed order.
// Satisfied by *notify.Dispatcher.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order OrderResult)
}

// OrderResult is a committed order with its line items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService turns session drafts into orders.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	guard    SubmitGuard
	notifier OrderNotifier
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// WithSubmitGuard enables duplicate-submit protection.
func (s *OrderService) WithSubmitGuard(g SubmitGuard) *OrderService {
	s.guard = g
	return s
}

// WithNotifier sets the receiver of order-created notifications.
func (s *OrderService) WithNotifier(n OrderNotifier) *OrderService {
	s.notifier = n
	return s
}

// Finalize commits the session's stored draft as an order. The order, its
// line items and the draft deletion are written in one transaction, so either
// the order exists and the draft is gone, or nothing changed.
//
// Only lines with a positive integer quantity for an item that still exists
// are kept. If none remain, ErrNoItemsSelected is returned and the draft is
// left as it was.
func (s *OrderService) Finalize(ctx context.Context, sessionKey string) (*OrderResult, error) {
	if sessionKey == "" {
		return nil, draft.ErrNoSession
	}

	if s.guard != nil {
		token, ok, err := s.guard.Acquire(ctx, sessionKey)
		switch {
		case err != nil:
			// Fail open: the draft row lock still serialises submits.
			log.Printf("WARN: submit guard unavailable: %v", err)
		case !ok:
			return nil, ErrSubmitInProgress
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), sessionKey, token); err != nil {
					log.Printf("WARN: release submit guard: %v", err)
				}
			}()
		}
	}

	result, err := s.finalizeTx(ctx, sessionKey)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, *result)
	}
	return result, nil
}

// finalizeTx executes the draft → order transition in a single transaction.
func (s *OrderService) finalizeTx(ctx context.Context, sessionKey string) (*OrderResult, error) {
	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Lock the draft so concurrent saves wait for the outcome ---
	row, err := store.GetDraftForUpdate(ctx, sessionKey)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNoItemsSelected
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	d := draft.FromRow(row)

	lines := d.Lines()
	if len(lines) == 0 {
		return nil, ErrNoItemsSelected
	}

	// --- Resolve item names; unknown ids are dropped ---
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}
	items, err := store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	names := make(map[int64]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}

	var kept []draft.Line
	for _, l := range lines {
		if _, ok := names[l.ItemID]; ok {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoItemsSelected
	}

	// --- Insert order ---
	num, err := store.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		ID:            uuid.New(),
		OrderNumber:   FormatOrderNumber(num),
		SessionKey:    sessionKey,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		RoomNumber:    d.RoomNumber,
		Status:        enum.OrderStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert line items with name snapshots ---
	orderItems := make([]database.OrderItem, 0, len(kept))
	for i, l := range kept {
		oi, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:  order.ID,
			ItemID:   l.ItemID,
			ItemName: names[l.ItemID],
			Quantity: l.Quantity,
			Position: int32(i),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		orderItems = append(orderItems, oi)
	}

	// --- Clear the draft ---
	if err := store.DeleteDraft(ctx, sessionKey); err != nil {
		return nil, fmt.Errorf("delete draft: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: orderItems}, nil
}

// FormatOrderNumber renders a sequence value as a human-facing order number.
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("RS-%06d", n)
}
