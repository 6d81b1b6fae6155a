package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/roomservice/api/internal/client"
	"github.com/roomservice/api/internal/draft"
	"github.com/roomservice/api/internal/middleware"
)

const testToken = "token-123"

// fakeServer mimics the API closely enough to exercise the client: it keeps
// one draft per session cookie and a small catalog.
type fakeServer struct {
	mu     sync.Mutex
	drafts map[string]draft.Draft
	items  []client.Item
	nextID int64
	failOn string // path that answers 503
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{drafts: map[string]draft.Draft{}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.failOn != "" && r.URL.Path == f.failOn {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "storage unavailable"})
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session("rs_session", 0, false))
		r.Post("/save-progress", func(w http.ResponseWriter, r *http.Request) {
			var d draft.Draft
			if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "no data received"})
				return
			}
			f.mu.Lock()
			f.drafts[middleware.SessionKeyFromContext(r.Context())] = d
			f.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Progress saved"})
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			d, ok := f.drafts[middleware.SessionKeyFromContext(r.Context())]
			f.mu.Unlock()
			if !ok {
				d = draft.Empty()
			}
			writeJSON(w, http.StatusOK, client.Storefront{Items: f.items, AllItems: f.items, SearchQuery: r.URL.Query().Get("search"), FormData: d})
		})
		r.Post("/clear-session", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			delete(f.drafts, middleware.SessionKeyFromContext(r.Context()))
			f.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			key := middleware.SessionKeyFromContext(r.Context())
			f.mu.Lock()
			defer f.mu.Unlock()
			d, ok := f.drafts[key]
			if !ok || len(d.Lines()) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "no items selected"})
				return
			}
			delete(f.drafts, key)
			writeJSON(w, http.StatusCreated, map[string]any{
				"status": "success",
				"order":  client.Order{OrderNumber: "RS-000001", CustomerName: d.CustomerName},
			})
		})
	})

	r.Post("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "invalid password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "access_token": testToken})
	})
	r.Post("/admin/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer "+testToken {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "missing token"})
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Post("/item/add", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Name string }
			_ = json.NewDecoder(r.Body).Decode(&req)
			if strings.TrimSpace(req.Name) == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "item name is required"})
				return
			}
			f.mu.Lock()
			f.nextID++
			it := client.Item{ID: f.nextID, Name: req.Name}
			f.items = append(f.items, it)
			f.mu.Unlock()
			writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "item": it})
		})
		r.Put("/item/edit/{id}", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Name string }
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, it := range f.items {
				if chi.URLParam(r, "id") == itoa(it.ID) {
					f.items[i].Name = req.Name
					writeJSON(w, http.StatusOK, map[string]any{"status": "success", "item": f.items[i]})
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "item not found"})
		})
		r.Delete("/item/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, it := range f.items {
				if chi.URLParam(r, "id") == itoa(it.ID) {
					f.items = append(f.items[:i], f.items[i+1:]...)
					writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "item not found"})
		})
		r.Post("/item/bulk_add", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ItemsText string `json:"items_text"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			res := client.BulkResult{}
			f.mu.Lock()
			for _, line := range strings.Split(req.ItemsText, "\n") {
				name := strings.TrimSpace(line)
				if name == "" {
					res.Skipped++
					continue
				}
				f.nextID++
				it := client.Item{ID: f.nextID, Name: name}
				f.items = append(f.items, it)
				res.Items = append(res.Items, it)
				res.Created++
			}
			f.mu.Unlock()
			writeJSON(w, http.StatusCreated, res)
		})
		r.Get("/items/search", func(w http.ResponseWriter, r *http.Request) {
			q := strings.ToLower(r.URL.Query().Get("q"))
			f.mu.Lock()
			defer f.mu.Unlock()
			out := []client.Item{}
			for _, it := range f.items {
				if q == "" || strings.Contains(strings.ToLower(it.Name), q) {
					out = append(out, it)
				}
			}
			writeJSON(w, http.StatusOK, out)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newClient(t *testing.T, url string) *client.Client {
	t.Helper()
	c, err := client.New(url, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClient_SessionDraftRoundTrip(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	d := draft.Empty()
	d.CustomerName = "Ana"
	d.Quantities["1"] = "2"
	if err := c.SaveProgress(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}

	sf, err := c.Storefront(ctx, "")
	if err != nil {
		t.Fatalf("storefront: %v", err)
	}
	if sf.FormData.CustomerName != "Ana" || sf.FormData.Quantities["1"] != "2" {
		t.Errorf("draft not restored through the session cookie: %+v", sf.FormData)
	}

	if err := c.ClearSession(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	sf, err = c.Storefront(ctx, "")
	if err != nil {
		t.Fatalf("storefront: %v", err)
	}
	if !sf.FormData.IsEmpty() {
		t.Errorf("expected empty draft after clear, got %+v", sf.FormData)
	}
}

func TestClient_SessionsAreIsolated(t *testing.T) {
	_, srv := newFakeServer(t)
	a := newClient(t, srv.URL)
	b := newClient(t, srv.URL)
	ctx := context.Background()

	d := draft.Empty()
	d.CustomerName = "Ana"
	if err := a.SaveProgress(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	sf, err := b.Storefront(ctx, "")
	if err != nil {
		t.Fatalf("storefront: %v", err)
	}
	if sf.FormData.CustomerName != "" {
		t.Errorf("second session sees first session's draft: %+v", sf.FormData)
	}
}

func TestClient_SubmitOrder(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.SubmitOrder(ctx, nil)
	if !client.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected 400 for empty draft, got %v", err)
	}

	d := draft.Empty()
	d.CustomerName = "Ana"
	d.Quantities["1"] = "1"
	if err := c.SaveProgress(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	order, err := c.SubmitOrder(ctx, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.OrderNumber != "RS-000001" || order.CustomerName != "Ana" {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestClient_APIErrorCarriesMessage(t *testing.T) {
	f, srv := newFakeServer(t)
	f.failOn = "/save-progress"
	c := newClient(t, srv.URL)

	err := c.SaveProgress(context.Background(), draft.Empty())
	var apiErr *client.APIError
	if !asAPIError(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable || apiErr.Message != "storage unavailable" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClient_AdminRequiresLogin(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.AddItem(ctx, "Tea"); !client.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 before login, got %v", err)
	}
	if err := c.Login(ctx, "wrong"); !client.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 for bad password, got %v", err)
	}
	if err := c.Login(ctx, "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Token() != testToken {
		t.Errorf("token: got %q", c.Token())
	}

	item, err := c.AddItem(ctx, "Tea")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.ID != 1 || item.Name != "Tea" {
		t.Errorf("unexpected item: %+v", item)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := c.SearchItems(ctx, ""); !client.IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("expected 401 after logout, got %v", err)
	}
}

func TestClient_ItemCRUD(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()
	if err := c.Login(ctx, "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := c.BulkAdd(ctx, "Coffee\n\nOrange juice\n")
	if err != nil {
		t.Fatalf("bulk add: %v", err)
	}
	if res.Created != 2 || len(res.Items) != 2 {
		t.Errorf("unexpected bulk result: %+v", res)
	}

	edited, err := c.EditItem(ctx, 1, "Espresso")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Name != "Espresso" {
		t.Errorf("edit name: got %q", edited.Name)
	}

	found, err := c.SearchItems(ctx, "juice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != 2 {
		t.Errorf("search: got %+v", found)
	}

	if err := c.DeleteItem(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeleteItem(ctx, 2); !client.IsStatus(err, http.StatusNotFound) {
		t.Errorf("expected 404 on second delete, got %v", err)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := client.New("not a url", nil); err == nil {
		t.Error("expected error for invalid base url")
	}
}
