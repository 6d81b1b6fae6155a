package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roomservice/api/internal/database"
)

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
	rolledBack  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return m.rollbackErr
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockCatalogStore is a map-backed CatalogStore with sequential ids.
type mockCatalogStore struct {
	items     map[int64]database.Item
	nextID    int64
	createErr error
	failAfter int // fail CreateItem once this many items were created (0 = never)
	created   int
}

func newMockCatalogStore(names ...string) *mockCatalogStore {
	m := &mockCatalogStore{items: make(map[int64]database.Item), nextID: 1}
	for _, n := range names {
		_, _ = m.CreateItem(context.Background(), n)
	}
	m.created = 0
	return m
}

func (m *mockCatalogStore) CreateItem(_ context.Context, name string) (database.Item, error) {
	if m.createErr != nil {
		return database.Item{}, m.createErr
	}
	if m.failAfter > 0 && m.created >= m.failAfter {
		return database.Item{}, context.DeadlineExceeded
	}
	it := database.Item{ID: m.nextID, Name: name, CreatedAt: time.Now()}
	m.items[it.ID] = it
	m.nextID++
	m.created++
	return it, nil
}

func (m *mockCatalogStore) UpdateItemName(_ context.Context, arg database.UpdateItemNameParams) (database.Item, error) {
	it, ok := m.items[arg.ID]
	if !ok {
		return database.Item{}, pgx.ErrNoRows
	}
	it.Name = arg.Name
	m.items[it.ID] = it
	return it, nil
}

func (m *mockCatalogStore) DeleteItem(_ context.Context, id int64) (int64, error) {
	if _, ok := m.items[id]; !ok {
		return 0, pgx.ErrNoRows
	}
	delete(m.items, id)
	return id, nil
}

func (m *mockCatalogStore) ListItems(_ context.Context) ([]database.Item, error) {
	result := []database.Item{}
	for _, it := range m.items {
		result = append(result, it)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCatalogStore) SearchItems(ctx context.Context, query string) ([]database.Item, error) {
	all, _ := m.ListItems(ctx)
	result := []database.Item{}
	q := strings.ToLower(query)
	for _, it := range all {
		if strings.Contains(strings.ToLower(it.Name), q) {
			result = append(result, it)
		}
	}
	return result, nil
}

func (m *mockCatalogStore) names() []string {
	all, _ := m.ListItems(context.Background())
	names := make([]string, len(all))
	for i, it := range all {
		names[i] = it.Name
	}
	return names
}
