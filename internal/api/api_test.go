package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T, cfg Config) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	cfg.JWTSecret = testJWTSecret
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	server := httptest.NewServer(NewRouter(database, cfg))
	t.Cleanup(server.Close)
	return server, database
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func registerAndLogin(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	resp := doJSON(t, "POST", server.URL+"/api/register", "", map[string]string{
		"username": username, "password": "password", "fullName": "Test User",
	})
	expectStatus(t, resp, http.StatusCreated)

	resp = doJSON(t, "POST", server.URL+"/api/login", "", map[string]string{
		"username": username, "password": "password",
	})
	expectStatus(t, resp, http.StatusOK)
	var login map[string]any
	decodeBody(t, resp, &login)
	token, _ := login["token"].(string)
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

func seedCatalog(t *testing.T, server *httptest.Server, items []model.Item) {
	t.Helper()
	resp := doJSON(t, "POST", server.URL+"/api/items", "", items)
	expectStatus(t, resp, http.StatusOK)
}

func TestRegisterAndLogin(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	resp := doJSON(t, "POST", server.URL+"/api/register", "", map[string]string{
		"username": "ana", "password": "pw", "fullName": "Ana Novak", "hint1": "cat",
	})
	expectStatus(t, resp, http.StatusCreated)

	resp = doJSON(t, "POST", server.URL+"/api/login", "", map[string]string{"username": "ana", "password": "pw"})
	expectStatus(t, resp, http.StatusOK)

	var login map[string]any
	decodeBody(t, resp, &login)
	if login["username"] != "ana" || login["fullName"] != "Ana Novak" || login["hint1"] != "cat" {
		t.Errorf("unexpected login view: %v", login)
	}
	if _, ok := login["passwordHash"]; ok {
		t.Error("login response must not expose the password hash")
	}
	if login["token"] == "" {
		t.Error("expected a token")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	body := map[string]string{"username": "ana", "password": "pw"}
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/register", "", body), http.StatusCreated)
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/register", "", body), http.StatusConflict)

	// The original password still works.
	resp := doJSON(t, "POST", server.URL+"/api/login", "", body)
	expectStatus(t, resp, http.StatusOK)
}

func TestRegisterMissingFields(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	for _, body := range []map[string]string{
		{"username": "", "password": "pw"},
		{"username": "ana", "password": ""},
		{"username": "   ", "password": "pw"},
	} {
		resp := doJSON(t, "POST", server.URL+"/api/register", "", body)
		expectStatus(t, resp, http.StatusBadRequest)

		// Login rejects the same bodies as malformed rather than as bad credentials.
		resp = doJSON(t, "POST", server.URL+"/api/login", "", body)
		expectStatus(t, resp, http.StatusBadRequest)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	server, _ := setupTestServer(t, Config{})
	registerAndLogin(t, server, "ana")

	read := func(body map[string]string) (int, string) {
		resp := doJSON(t, "POST", server.URL+"/api/login", "", body)
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	wrongStatus, wrongBody := read(map[string]string{"username": "ana", "password": "wrong"})
	unknownStatus, unknownBody := read(map[string]string{"username": "nobody", "password": "password"})

	if wrongStatus != http.StatusUnauthorized || unknownStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrongStatus, unknownStatus)
	}
	if wrongBody != unknownBody {
		t.Errorf("responses differ: %q vs %q", wrongBody, unknownBody)
	}
}

func TestItemsReplaceAndList(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	items := []model.Item{
		{ID: 1, Name: "Widget", MinStock: 2, Stock: 5},
		{ID: 2, Name: "Gadget", MinStock: 3, Stock: 1},
	}
	resp := doJSON(t, "PUT", server.URL+"/api/items", "", items)
	expectStatus(t, resp, http.StatusOK)
	var saved versionResponse
	decodeBody(t, resp, &saved)

	resp = doJSON(t, "GET", server.URL+"/api/items", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get(VersionHeader); got != strconv.FormatInt(saved.Version, 10) {
		t.Errorf("expected version header %d, got %q", saved.Version, got)
	}
	var listed []model.Item
	decodeBody(t, resp, &listed)
	if len(listed) != 2 || listed[0] != items[0] || listed[1] != items[1] {
		t.Errorf("expected %v, got %v", items, listed)
	}

	resp = doJSON(t, "GET", server.URL+"/api/items/low-stock", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var low []model.Item
	decodeBody(t, resp, &low)
	if len(low) != 1 || low[0].ID != 2 {
		t.Errorf("expected only Gadget low on stock, got %v", low)
	}
}

func TestItemsReplaceInvalid(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", "", map[string]string{"id": "1"}), http.StatusBadRequest)
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", "", nil), http.StatusBadRequest)
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", "", []model.Item{{ID: 1, Name: ""}}), http.StatusBadRequest)
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", "", []model.Item{
		{ID: 1, Name: "A", ImageURL: "data:image/gif;base64,R0lGODlh"},
	}), http.StatusBadRequest)
}

func TestItemsReplaceMissingFields(t *testing.T) {
	server, database := setupTestServer(t, Config{})
	seedCatalog(t, server, []model.Item{{ID: 1, Name: "Widget", MinStock: 2, Stock: 5}})

	for _, body := range []string{
		`[{"id":1,"name":"Widget"}]`,
		`[{"id":1,"name":"Widget","minStock":2}]`,
		`[{"id":1,"name":"Widget","stock":5}]`,
		`[{"name":"Widget","minStock":2,"stock":5}]`,
	} {
		resp := doJSON(t, "POST", server.URL+"/api/items", "", json.RawMessage(body))
		expectStatus(t, resp, http.StatusBadRequest)
	}

	items, err := store.ListItems(context.Background(), database)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].MinStock != 2 || items[0].Stock != 5 {
		t.Errorf("catalog should be unchanged, got %+v", items)
	}

	// Explicit zeros are accepted.
	resp := doJSON(t, "POST", server.URL+"/api/items", "", json.RawMessage(`[{"id":1,"name":"Widget","minStock":0,"stock":0}]`))
	expectStatus(t, resp, http.StatusOK)
}

func TestItemsReplaceIfMatch(t *testing.T) {
	server, _ := setupTestServer(t, Config{})
	seedCatalog(t, server, []model.Item{{ID: 1, Name: "Widget", Stock: 5}})

	resp := doJSON(t, "GET", server.URL+"/api/items", "", nil)
	read := resp.Header.Get(VersionHeader)

	put := func(stock int) *http.Response {
		data, _ := json.Marshal([]model.Item{{ID: 1, Name: "Widget", Stock: stock}})
		req, _ := http.NewRequest("PUT", server.URL+"/api/items", bytes.NewReader(data))
		req.Header.Set("If-Match", `"`+read+`"`)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	expectStatus(t, put(6), http.StatusOK)
	expectStatus(t, put(7), http.StatusConflict)

	req, _ := http.NewRequest("PUT", server.URL+"/api/items", strings.NewReader("[]"))
	req.Header.Set("If-Match", "abc")
	bad, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed If-Match, got %d", bad.StatusCode)
	}
}

func TestGoodsOutLedgerFlow(t *testing.T) {
	server, _ := setupTestServer(t, Config{})
	token := registerAndLogin(t, server, "ana")

	resp := doJSON(t, "POST", server.URL+"/api/goods-out", "", map[string]any{
		"id":       12345,
		"receiver": "Bor",
		"items":    []model.GoodsOutLine{{ItemID: 1, Name: "Widget", Quantity: 2}},
	})
	expectStatus(t, resp, http.StatusOK)
	var rec model.GoodsOutRecord
	decodeBody(t, resp, &rec)
	if rec.ID == 12345 || rec.ID == 0 {
		t.Errorf("expected a store-assigned id, got %d", rec.ID)
	}

	expectStatus(t, doJSON(t, "POST", server.URL+"/api/goods-out", "", map[string]any{
		"receiver": "", "items": []model.GoodsOutLine{{ItemID: 1, Name: "Widget", Quantity: 2}},
	}), http.StatusBadRequest)

	resp = doJSON(t, "GET", server.URL+"/api/receivers", "", nil)
	var receivers []string
	decodeBody(t, resp, &receivers)
	if len(receivers) != 1 || receivers[0] != "Bor" {
		t.Errorf("expected [Bor], got %v", receivers)
	}

	url := server.URL + "/api/goods-out/" + strconv.FormatInt(rec.ID, 10)
	expectStatus(t, doJSON(t, "DELETE", url, "", nil), http.StatusUnauthorized)
	expectStatus(t, doJSON(t, "DELETE", url, token, nil), http.StatusOK)
	expectStatus(t, doJSON(t, "DELETE", url, token, nil), http.StatusNotFound)
	expectStatus(t, doJSON(t, "DELETE", server.URL+"/api/goods-out/abc", token, nil), http.StatusBadRequest)

	resp = doJSON(t, "GET", server.URL+"/api/goods-out", "", nil)
	var records []model.GoodsOutRecord
	decodeBody(t, resp, &records)
	if len(records) != 0 {
		t.Errorf("expected empty ledger, got %v", records)
	}
}

func TestStockGoodsOut(t *testing.T) {
	server, database := setupTestServer(t, Config{})
	seedCatalog(t, server, []model.Item{{ID: 1, Name: "Widget", Stock: 3}})

	resp := doJSON(t, "POST", server.URL+"/api/stock/goods-out", "", map[string]any{
		"receiver": "Bor",
		"items":    []model.StockLine{{ItemID: 1, Quantity: 2}},
	})
	expectStatus(t, resp, http.StatusCreated)
	if resp.Header.Get(VersionHeader) == "" {
		t.Error("expected a version header")
	}
	var rec model.GoodsOutRecord
	decodeBody(t, resp, &rec)
	if len(rec.Items) != 1 || rec.Items[0].Name != "Widget" {
		t.Errorf("expected snapshot line for Widget, got %+v", rec.Items)
	}

	// Over-withdrawal is rejected and nothing changes.
	resp = doJSON(t, "POST", server.URL+"/api/stock/goods-out", "", map[string]any{
		"receiver": "Bor",
		"items":    []model.StockLine{{ItemID: 1, Quantity: 5}},
	})
	expectStatus(t, resp, http.StatusConflict)

	item, _ := store.GetItem(context.Background(), database, 1)
	if item.Stock != 1 {
		t.Errorf("expected stock 1, got %d", item.Stock)
	}
	records, _ := store.ListGoodsOut(context.Background(), database)
	if len(records) != 1 {
		t.Errorf("expected 1 ledger record, got %d", len(records))
	}
}

func TestStockGoodsIn(t *testing.T) {
	server, database := setupTestServer(t, Config{})
	seedCatalog(t, server, []model.Item{{ID: 1, Name: "Widget", Stock: 3}})

	resp := doJSON(t, "POST", server.URL+"/api/stock/goods-in", "", map[string]any{
		"items": []model.StockLine{{ItemID: 1, Quantity: 4}},
	})
	expectStatus(t, resp, http.StatusOK)

	item, _ := store.GetItem(context.Background(), database, 1)
	if item.Stock != 7 {
		t.Errorf("expected stock 7, got %d", item.Stock)
	}

	expectStatus(t, doJSON(t, "POST", server.URL+"/api/stock/goods-in", "", map[string]any{
		"items": []model.StockLine{{ItemID: 1, Quantity: 0}},
	}), http.StatusBadRequest)
}

func TestIssuesFlow(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	for _, createdAt := range []string{"2024-01-01T00:00:00.000Z", "2024-02-01T00:00:00.000Z"} {
		resp := doJSON(t, "POST", server.URL+"/api/issues", "", map[string]string{
			"title": "Broken", "description": "Shelf", "status": "open", "createdAt": createdAt,
		})
		expectStatus(t, resp, http.StatusCreated)
	}

	expectStatus(t, doJSON(t, "POST", server.URL+"/api/issues", "", map[string]string{
		"title": "Broken", "status": "open", "createdAt": "2024-01-01T00:00:00.000Z",
	}), http.StatusBadRequest)

	resp := doJSON(t, "GET", server.URL+"/api/issues", "", nil)
	var issues []model.IssueRecord
	decodeBody(t, resp, &issues)
	if len(issues) != 2 || issues[0].CreatedAt != "2024-02-01T00:00:00.000Z" {
		t.Errorf("expected newest first, got %+v", issues)
	}
}

func TestRequireToken(t *testing.T) {
	server, _ := setupTestServer(t, Config{RequireToken: true})

	items := []model.Item{{ID: 1, Name: "Widget", Stock: 1}}
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", "", items), http.StatusUnauthorized)

	// Reads stay public.
	expectStatus(t, doJSON(t, "GET", server.URL+"/api/items", "", nil), http.StatusOK)

	token := registerAndLogin(t, server, "ana")
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", token, items), http.StatusOK)
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _ := setupTestServer(t, Config{RequireToken: true})
	token := registerAndLogin(t, server, "ana")

	expectStatus(t, doJSON(t, "POST", server.URL+"/api/logout", token, nil), http.StatusOK)
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/items", token, []model.Item{}), http.StatusUnauthorized)
	expectStatus(t, doJSON(t, "POST", server.URL+"/api/logout", token, nil), http.StatusUnauthorized)
}

type denyAll struct{ keys []string }

func (d *denyAll) Allow(key string) bool {
	d.keys = append(d.keys, key)
	return false
}

func TestRateLimitedLogin(t *testing.T) {
	limiter := &denyAll{}
	server, _ := setupTestServer(t, Config{Limiter: limiter})

	resp := doJSON(t, "POST", server.URL+"/api/login", "", map[string]string{"username": "a", "password": "b"})
	expectStatus(t, resp, http.StatusTooManyRequests)
	if len(limiter.keys) != 1 || !strings.HasPrefix(limiter.keys[0], "auth:") {
		t.Errorf("unexpected limiter keys %v", limiter.keys)
	}

	// Other routes are not throttled.
	expectStatus(t, doJSON(t, "GET", server.URL+"/api/items", "", nil), http.StatusOK)
}

func TestBodyTooLarge(t *testing.T) {
	server, _ := setupTestServer(t, Config{MaxBodyBytes: 64})

	resp := doJSON(t, "POST", server.URL+"/api/issues", "", map[string]string{
		"title": strings.Repeat("x", 200), "description": "d", "status": "open", "createdAt": "now",
	})
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)
}

func TestRequestIDHeader(t *testing.T) {
	server, _ := setupTestServer(t, Config{})

	resp := doJSON(t, "GET", server.URL+"/api/issues", "", nil)
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}
