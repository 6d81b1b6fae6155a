package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/roomservice/api/internal/apperr"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/draft"
	"github.com/roomservice/api/internal/enum"
)

// --- Mock implementations ---

// mockOrderStore keeps drafts, catalog and orders in memory. It does not model
// rollback; tests check the mockTx flags instead.
type mockOrderStore struct {
	drafts     map[string]database.Draft
	items      map[int64]string
	orders     []database.Order
	orderItems []database.OrderItem
	seq        int64

	createOrderErr error
	deleteDraftErr error
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		drafts: make(map[string]database.Draft),
		items: map[int64]string{
			1: "Towel",
			2: "Hand Towel",
			3: "Soap",
		},
	}
}

func (m *mockOrderStore) GetDraftForUpdate(_ context.Context, key string) (database.Draft, error) {
	d, ok := m.drafts[key]
	if !ok {
		return database.Draft{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockOrderStore) GetItemsByIDs(_ context.Context, ids []int64) ([]database.Item, error) {
	var result []database.Item
	for _, id := range ids {
		if name, ok := m.items[id]; ok {
			result = append(result, database.Item{ID: id, Name: name})
		}
	}
	return result, nil
}

func (m *mockOrderStore) NextOrderNumber(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *mockOrderStore) CreateOrder(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if m.createOrderErr != nil {
		return database.Order{}, m.createOrderErr
	}
	o := database.Order{
		ID:            arg.ID,
		OrderNumber:   arg.OrderNumber,
		SessionKey:    arg.SessionKey,
		CustomerName:  arg.CustomerName,
		CustomerPhone: arg.CustomerPhone,
		RoomNumber:    arg.RoomNumber,
		Status:        arg.Status,
	}
	m.orders = append(m.orders, o)
	return o, nil
}

func (m *mockOrderStore) CreateOrderItem(_ context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	oi := database.OrderItem{
		ID:       int64(len(m.orderItems) + 1),
		OrderID:  arg.OrderID,
		ItemID:   arg.ItemID,
		ItemName: arg.ItemName,
		Quantity: arg.Quantity,
		Position: arg.Position,
	}
	m.orderItems = append(m.orderItems, oi)
	return oi, nil
}

func (m *mockOrderStore) DeleteDraft(_ context.Context, key string) error {
	if m.deleteDraftErr != nil {
		return m.deleteDraftErr
	}
	delete(m.drafts, key)
	return nil
}

type mockGuard struct {
	held     map[string]bool
	err      error
	released []string
}

func (g *mockGuard) Acquire(_ context.Context, key string) (string, bool, error) {
	if g.err != nil {
		return "", false, g.err
	}
	if g.held[key] {
		return "", false, nil
	}
	g.held[key] = true
	return "token-" + key, true, nil
}

func (g *mockGuard) Release(_ context.Context, key, token string) error {
	delete(g.held, key)
	g.released = append(g.released, token)
	return nil
}

type recordingNotifier struct {
	orders []OrderResult
}

func (r *recordingNotifier) OrderCreated(_ context.Context, o OrderResult) {
	r.orders = append(r.orders, o)
}

// --- Test helpers ---

func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

func putDraft(store *mockOrderStore, key string, quantities map[string]string) {
	store.drafts[key] = database.Draft{
		SessionKey:    key,
		CustomerName:  "Nino",
		CustomerPhone: "555-0101",
		RoomNumber:    "12",
		Quantities:    quantities,
	}
}

// =====================
// Validation tests
// =====================

func TestFinalize_NoPositiveQuantities(t *testing.T) {
	cases := map[string]map[string]string{
		"empty":      {},
		"zeros":      {"1": "0", "2": "0"},
		"negative":   {"1": "-3"},
		"non-number": {"1": "two", "3": ""},
	}
	for name, quantities := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMockOrderStore()
			putDraft(store, "s", quantities)
			svc, tx := newTestOrderService(store)

			_, err := svc.Finalize(context.Background(), "s")
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("got %v, want validation error", err)
			}
			if len(store.orders) != 0 {
				t.Error("no order should be created")
			}
			if _, ok := store.drafts["s"]; !ok {
				t.Error("draft must be left untouched")
			}
			if tx.committed {
				t.Error("transaction must not be committed")
			}
		})
	}
}

func TestFinalize_MissingDraft(t *testing.T) {
	svc, _ := newTestOrderService(newMockOrderStore())

	_, err := svc.Finalize(context.Background(), "nobody")
	if !errors.Is(err, ErrNoItemsSelected) {
		t.Errorf("got %v, want ErrNoItemsSelected", err)
	}
}

func TestFinalize_EmptySessionKey(t *testing.T) {
	svc, _ := newTestOrderService(newMockOrderStore())

	_, err := svc.Finalize(context.Background(), "")
	if !errors.Is(err, draft.ErrNoSession) {
		t.Errorf("got %v, want ErrNoSession", err)
	}
}

func TestFinalize_OnlyUnknownItems(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"42": "3"})
	svc, _ := newTestOrderService(store)

	_, err := svc.Finalize(context.Background(), "s")
	if !errors.Is(err, ErrNoItemsSelected) {
		t.Fatalf("got %v, want ErrNoItemsSelected", err)
	}
	if _, ok := store.drafts["s"]; !ok {
		t.Error("draft must be left untouched")
	}
}

// =====================
// Success tests
// =====================

func TestFinalize_CreatesOrderWithPositiveLines(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{
		"3":     "1",
		"1":     "2",
		"2":     "0",
		"qty_9": "4",
		"x":     "1",
	})
	svc, tx := newTestOrderService(store)

	result, err := svc.Finalize(context.Background(), "s")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if len(store.orders) != 1 {
		t.Fatalf("orders: got %d, want 1", len(store.orders))
	}
	o := result.Order
	if o.CustomerName != "Nino" || o.CustomerPhone != "555-0101" || o.RoomNumber != "12" {
		t.Errorf("header not copied: %+v", o)
	}
	if o.Status != enum.OrderStatusPending {
		t.Errorf("status: got %q, want pending", o.Status)
	}
	if o.OrderNumber != "RS-000001" {
		t.Errorf("order number: got %q", o.OrderNumber)
	}

	type line struct {
		id   int64
		name string
		qty  int32
	}
	var got []line
	for _, it := range result.Items {
		got = append(got, line{it.ItemID, it.ItemName, it.Quantity})
		if it.OrderID != o.ID {
			t.Errorf("line %d points at order %v", it.ItemID, it.OrderID)
		}
	}
	want := []line{{1, "Towel", 2}, {3, "Soap", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines: got %v, want %v", got, want)
	}

	if _, ok := store.drafts["s"]; ok {
		t.Error("draft should be cleared after finalize")
	}
	if !tx.committed {
		t.Error("expected commit")
	}
}

func TestFinalize_LegacyFormKeys(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"qty_2": "5"})
	svc, _ := newTestOrderService(store)

	result, err := svc.Finalize(context.Background(), "s")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ItemName != "Hand Towel" || result.Items[0].Quantity != 5 {
		t.Errorf("unexpected lines: %+v", result.Items)
	}
}

func TestFinalize_SnapshotSurvivesItemDeletion(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	svc, _ := newTestOrderService(store)

	result, err := svc.Finalize(context.Background(), "s")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	delete(store.items, 1)

	if store.orderItems[0].ItemName != "Towel" || result.Items[0].ItemName != "Towel" {
		t.Errorf("snapshot name changed: %+v", store.orderItems[0])
	}
}

func TestFinalize_SecondCallFindsNothing(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	svc, _ := newTestOrderService(store)

	if _, err := svc.Finalize(context.Background(), "s"); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := svc.Finalize(context.Background(), "s"); !errors.Is(err, ErrNoItemsSelected) {
		t.Errorf("second finalize: got %v, want ErrNoItemsSelected", err)
	}
	if len(store.orders) != 1 {
		t.Errorf("orders: got %d, want exactly 1", len(store.orders))
	}
}

// =====================
// Failure / atomicity tests
// =====================

func TestFinalize_DeleteDraftFailureAbortsCommit(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	store.deleteDraftErr = errors.New("disk full")
	svc, tx := newTestOrderService(store)

	_, err := svc.Finalize(context.Background(), "s")
	if err == nil || !strings.Contains(err.Error(), "delete draft") {
		t.Fatalf("got %v, want delete draft error", err)
	}
	if tx.committed {
		t.Error("order must not be committed when the draft cannot be cleared")
	}
	if !tx.rolledBack {
		t.Error("expected rollback")
	}
}

func TestFinalize_CommitFailure(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	tx := &mockTx{commitErr: context.DeadlineExceeded}
	notifier := &recordingNotifier{}
	svc := NewOrderService(&mockTxBeginner{tx: tx}, func(db database.DBTX) OrderStore { return store }).
		WithNotifier(notifier)

	_, err := svc.Finalize(context.Background(), "s")
	if !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatalf("got %v, want storage unavailable", err)
	}
	if len(notifier.orders) != 0 {
		t.Error("notifier must not hear about uncommitted orders")
	}
}

func TestFinalize_CreateOrderFailure(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	store.createOrderErr = errors.New("boom")
	svc, tx := newTestOrderService(store)

	if _, err := svc.Finalize(context.Background(), "s"); err == nil {
		t.Fatal("expected error")
	}
	if tx.committed {
		t.Error("transaction must not be committed")
	}
}

// =====================
// Guard / notifier tests
// =====================

func TestFinalize_GuardRejectsConcurrentSubmit(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	guard := &mockGuard{held: map[string]bool{"s": true}}
	svc, _ := newTestOrderService(store)
	svc.WithSubmitGuard(guard)

	_, err := svc.Finalize(context.Background(), "s")
	if !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("got %v, want ErrSubmitInProgress", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Error("expected conflict kind")
	}
	if len(store.orders) != 0 {
		t.Error("no order should be created")
	}
}

func TestFinalize_GuardReleasedAfterSuccess(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	guard := &mockGuard{held: map[string]bool{}}
	svc, _ := newTestOrderService(store)
	svc.WithSubmitGuard(guard)

	if _, err := svc.Finalize(context.Background(), "s"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if guard.held["s"] {
		t.Error("guard still held")
	}
	if !reflect.DeepEqual(guard.released, []string{"token-s"}) {
		t.Errorf("released: got %v", guard.released)
	}
}

func TestFinalize_GuardErrorFailsOpen(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"1": "1"})
	guard := &mockGuard{held: map[string]bool{}, err: errors.New("redis down")}
	svc, _ := newTestOrderService(store)
	svc.WithSubmitGuard(guard)

	if _, err := svc.Finalize(context.Background(), "s"); err != nil {
		t.Fatalf("finalize should proceed without the guard: %v", err)
	}
	if len(store.orders) != 1 {
		t.Errorf("orders: got %d, want 1", len(store.orders))
	}
}

func TestFinalize_NotifiesOnce(t *testing.T) {
	store := newMockOrderStore()
	putDraft(store, "s", map[string]string{"2": "3"})
	notifier := &recordingNotifier{}
	svc, _ := newTestOrderService(store)
	svc.WithNotifier(notifier)

	result, err := svc.Finalize(context.Background(), "s")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(notifier.orders) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.orders))
	}
	if notifier.orders[0].Order.ID != result.Order.ID {
		t.Error("notified a different order")
	}
}

func TestFormatOrderNumber(t *testing.T) {
	if got := FormatOrderNumber(42); got != "RS-000042" {
		t.Errorf("got %q", got)
	}
}
