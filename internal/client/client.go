// Package client is a Go client for the room-service HTTP API. It keeps the
// storefront session cookie in a jar and, after Login, sends the admin token
// as a Bearer header.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roomservice/api/internal/draft"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Item is a catalog entry.
type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BulkResult is the outcome of BulkAdd.
type BulkResult struct {
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Items   []Item `json:"items"`
}

// OrderLine is a placed order line.
type OrderLine struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int32  `json:"quantity"`
}

// Order is a placed order as returned by the storefront.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	OrderNumber   string      `json:"order_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	RoomNumber    string      `json:"room_number"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderLine `json:"items"`
}

// Storefront is the order page state: the (filtered) catalog and the saved draft.
type Storefront struct {
	Items       []Item      `json:"items"`
	AllItems    []Item      `json:"all_items"`
	SearchQuery string      `json:"search_query"`
	FormData    draft.Draft `json:"form_data"`
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL. When httpClient is nil a client with a
// cookie jar is created so the session cookie survives between calls.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// SetToken sets the admin access token sent on every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current admin access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// --- Storefront ---

// Storefront loads the order page state, optionally filtered by search.
func (c *Client) Storefront(ctx context.Context, search string) (*Storefront, error) {
	path := "/"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var out Storefront
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProgress replaces the session draft on the server.
func (c *Client) SaveProgress(ctx context.Context, d draft.Draft) error {
	return c.do(ctx, http.MethodPost, "/save-progress", d, nil)
}

// ClearSession drops the session draft.
func (c *Client) ClearSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/clear-session", nil, nil)
}

// SubmitOrder places the order. A nil draft submits what was last saved.
func (c *Client) SubmitOrder(ctx context.Context, d *draft.Draft) (*Order, error) {
	var body any
	if d != nil {
		body = d
	}
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/", body, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// --- Admin ---

// Login exchanges the admin password for an access token and keeps it.
func (c *Client) Login(ctx context.Context, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/login", map[string]string{"password": password}, &out); err != nil {
		return err
	}
	c.SetToken(out.AccessToken)
	return nil
}

// Logout forgets the access token and expires the admin cookie.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/admin/logout", nil, nil)
	c.SetToken("")
	return err
}

type itemResult struct {
	Item *Item `json:"item"`
}

// AddItem creates a catalog item.
func (c *Client) AddItem(ctx context.Context, name string) (Item, error) {
	var out itemResult
	if err := c.do(ctx, http.MethodPost, "/api/item/add", map[string]string{"name": name}, &out); err != nil {
		return Item{}, err
	}
	if out.Item == nil {
		return Item{}, errors.New("api: add item: missing item in response")
	}
	return *out.Item, nil
}

// EditItem renames a catalog item.
func (c *Client) EditItem(ctx context.Context, id int64, name string) (Item, error) {
	var out itemResult
	path := fmt.Sprintf("/api/item/edit/%d", id)
	if err := c.do(ctx, http.MethodPut, path, map[string]string{"name": name}, &out); err != nil {
		return Item{}, err
	}
	if out.Item == nil {
		return Item{}, errors.New("api: edit item: missing item in response")
	}
	return *out.Item, nil
}

// DeleteItem removes a catalog item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/item/delete/%d", id), nil, nil)
}

// BulkAdd creates one item per non-blank line of text.
func (c *Client) BulkAdd(ctx context.Context, text string) (BulkResult, error) {
	var out BulkResult
	if err := c.do(ctx, http.MethodPost, "/api/item/bulk_add", map[string]string{"items_text": text}, &out); err != nil {
		return BulkResult{}, err
	}
	return out, nil
}

// SearchItems returns items matching q. A blank q returns the whole catalog.
func (c *Client) SearchItems(ctx context.Context, q string) ([]Item, error) {
	var out []Item
	if err := c.do(ctx, http.MethodGet, "/api/items/search?q="+url.QueryEscape(q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Transport ---

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
