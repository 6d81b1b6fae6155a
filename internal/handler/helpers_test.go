package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/service"
)

const testSecret = "test-secret"

// --- Mock catalog ---

type mockCatalog struct {
	mu     sync.Mutex
	items  map[int64]database.Item
	nextID int64
	err    error // returned by every call when set
}

func newMockCatalog(names ...string) *mockCatalog {
	m := &mockCatalog{items: make(map[int64]database.Item)}
	for _, n := range names {
		m.nextID++
		m.items[m.nextID] = database.Item{ID: m.nextID, Name: n}
	}
	return m
}

func (m *mockCatalog) AddItem(_ context.Context, name string) (database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return database.Item{}, m.err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Item{}, service.ErrEmptyName
	}
	m.nextID++
	it := database.Item{ID: m.nextID, Name: name}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockCatalog) EditItem(_ context.Context, id int64, name string) (database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return database.Item{}, m.err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Item{}, service.ErrEmptyName
	}
	it, ok := m.items[id]
	if !ok {
		return database.Item{}, service.ErrItemNotFound
	}
	it.Name = name
	m.items[id] = it
	return it, nil
}

func (m *mockCatalog) DeleteItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return service.ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockCatalog) BulkAdd(ctx context.Context, text string) (*service.BulkAddResult, error) {
	names, skipped := service.ParseBulkNames(text)
	res := &service.BulkAddResult{Skipped: skipped, Items: []database.Item{}}
	for _, n := range names {
		it, err := m.AddItem(ctx, n)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, it)
	}
	res.Created = len(res.Items)
	return res, nil
}

func (m *mockCatalog) Search(ctx context.Context, query string) ([]database.Item, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []database.Item{}, nil
	}
	all, err := m.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	out := []database.Item{}
	for _, it := range all {
		if strings.Contains(strings.ToLower(it.Name), query) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockCatalog) ListItems(_ context.Context) ([]database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]database.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Helpers ---

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
