// Package client is a typed HTTP client for the zaloga API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/erazemk/zaloga/internal/model"
)

const (
	versionHeader       = "X-Catalog-Version"
	authorizationHeader = "Authorization"
)

// APIError is a non-2xx answer from the server. It unwraps to the matching
// model error so callers can use errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the status code, and for 409 the message, to a model error.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return model.ErrInvalidInput
	case http.StatusUnauthorized:
		return model.ErrInvalidCredentials
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusConflict:
		for _, kind := range []error{model.ErrInsufficientStock, model.ErrDuplicateUsername, model.ErrConflict} {
			if strings.Contains(e.Message, kind.Error()) {
				return kind
			}
		}
		return model.ErrConflict
	}
	return nil
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for the server at baseURL. If httpClient is nil,
// http.DefaultClient is used.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// LoginResult is the public user view returned on login.
type LoginResult struct {
	model.PublicUser
	Token string `json:"token"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg model.Registration) error {
	_, err := c.do(ctx, http.MethodPost, "/api/register", nil, reg, nil)
	return err
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/login", nil, body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Items returns the catalog and the version it was read at.
func (c *Client) Items(ctx context.Context) ([]model.Item, int64, error) {
	var items []model.Item
	h, err := c.do(ctx, http.MethodGet, "/api/items", nil, nil, &items)
	if err != nil {
		return nil, 0, err
	}
	version, err := parseVersion(h)
	if err != nil {
		return nil, 0, err
	}
	return items, version, nil
}

// LowStock returns the items below their minimum stock.
func (c *Client) LowStock(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	_, err := c.do(ctx, http.MethodGet, "/api/items/low-stock", nil, nil, &items)
	return items, err
}

// ReplaceItems replaces the whole catalog. With expected set the write only
// applies if the catalog is still at that version.
func (c *Client) ReplaceItems(ctx context.Context, items []model.Item, expected *int64) (int64, error) {
	if items == nil {
		items = []model.Item{}
	}
	header := http.Header{}
	if expected != nil {
		header.Set("If-Match", strconv.FormatInt(*expected, 10))
	}
	var res struct {
		Version int64 `json:"version"`
	}
	if _, err := c.do(ctx, http.MethodPut, "/api/items", header, items, &res); err != nil {
		return 0, err
	}
	return res.Version, nil
}

// GoodsOut returns the ledger, newest first.
func (c *Client) GoodsOut(ctx context.Context) ([]model.GoodsOutRecord, error) {
	var records []model.GoodsOutRecord
	_, err := c.do(ctx, http.MethodGet, "/api/goods-out", nil, nil, &records)
	return records, err
}

// AppendGoodsOut writes a ledger record without touching stock.
func (c *Client) AppendGoodsOut(ctx context.Context, receiver string, lines []model.GoodsOutLine) (*model.GoodsOutRecord, error) {
	var rec model.GoodsOutRecord
	body := map[string]any{"receiver": receiver, "items": lines}
	if _, err := c.do(ctx, http.MethodPost, "/api/goods-out", nil, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteGoodsOut removes one ledger record. It needs a token.
func (c *Client) DeleteGoodsOut(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/goods-out/"+strconv.FormatInt(id, 10), nil, nil, nil)
	return err
}

// Receivers returns the receivers seen in the ledger, most recent first.
func (c *Client) Receivers(ctx context.Context) ([]string, error) {
	var receivers []string
	_, err := c.do(ctx, http.MethodGet, "/api/receivers", nil, nil, &receivers)
	return receivers, err
}

// RecordGoodsOut decrements stock and writes the ledger record in one
// server-side transaction.
func (c *Client) RecordGoodsOut(ctx context.Context, receiver string, lines []model.StockLine) (*model.GoodsOutRecord, int64, error) {
	var rec model.GoodsOutRecord
	body := map[string]any{"receiver": receiver, "items": lines}
	h, err := c.do(ctx, http.MethodPost, "/api/stock/goods-out", nil, body, &rec)
	if err != nil {
		return nil, 0, err
	}
	version, err := parseVersion(h)
	if err != nil {
		return nil, 0, err
	}
	return &rec, version, nil
}

// RecordGoodsIn increments stock in one server-side transaction.
func (c *Client) RecordGoodsIn(ctx context.Context, lines []model.StockLine) (int64, error) {
	var res struct {
		Version int64 `json:"version"`
	}
	body := map[string]any{"items": lines}
	if _, err := c.do(ctx, http.MethodPost, "/api/stock/goods-in", nil, body, &res); err != nil {
		return 0, err
	}
	return res.Version, nil
}

// Issues returns the issue log, newest first.
func (c *Client) Issues(ctx context.Context) ([]model.IssueRecord, error) {
	var issues []model.IssueRecord
	_, err := c.do(ctx, http.MethodGet, "/api/issues", nil, nil, &issues)
	return issues, err
}

// CreateIssue files an issue report.
func (c *Client) CreateIssue(ctx context.Context, issue model.IssueRecord) (*model.IssueRecord, error) {
	var created model.IssueRecord
	body := map[string]string{
		"title":       issue.Title,
		"description": issue.Description,
		"status":      issue.Status,
		"createdAt":   issue.CreatedAt,
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/issues", nil, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// do sends one request and decodes a successful JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) (http.Header, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building url: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set(authorizationHeader, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return resp.Header, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func parseVersion(h http.Header) (int64, error) {
	raw := h.Get(versionHeader)
	if raw == "" {
		return 0, errors.New("response has no catalog version")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing catalog version %q: %w", raw, err)
	}
	return v, nil
}
