package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// VersionHeader carries the catalog version on reads and mutations.
const VersionHeader = "X-Catalog-Version"

// ItemsHandler handles catalog endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, version, err := store.ListItemsVersion(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to fetch items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	setVersion(w, version)
	jsonResponse(w, http.StatusOK, items)
}

// LowStock handles GET /api/items/low-stock.
func (h *ItemsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListLowStock(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to fetch items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Replace handles POST and PUT /api/items. The body is the complete new
// catalog. An If-Match header makes the write conditional on the version the
// caller read.
func (h *ItemsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	expected, err := parseIfMatch(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req []itemRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}
	if req == nil {
		jsonError(w, http.StatusBadRequest, "invalid items array")
		return
	}
	items := make([]model.Item, 0, len(req))
	for i, ir := range req {
		item, err := ir.item(i)
		if err != nil {
			writeError(w, r, err, "failed to save items")
			return
		}
		items = append(items, item)
	}

	for i := range items {
		ref, err := imaging.NormalizeImageRef(items[i].ImageURL)
		if err != nil {
			writeError(w, r, fmt.Errorf("item %d: %w", items[i].ID, err), "failed to save items")
			return
		}
		items[i].ImageURL = ref
	}

	version, err := store.ReplaceItems(r.Context(), h.DB, items, expected)
	if err != nil {
		writeError(w, r, err, "failed to save items")
		return
	}

	slog.Info("catalog replaced", "items", len(items), "version", version)
	setVersion(w, version)
	jsonResponse(w, http.StatusOK, versionResponse{Message: "items saved", Version: version})
}

// itemRequest is one catalog entry as submitted. Pointer fields tell a
// missing value apart from zero.
type itemRequest struct {
	ID       *int64 `json:"id"`
	Name     string `json:"name"`
	MinStock *int   `json:"minStock"`
	Stock    *int   `json:"stock"`
	ImageURL string `json:"imageUrl"`
}

func (ir itemRequest) item(index int) (model.Item, error) {
	if ir.ID == nil || ir.MinStock == nil || ir.Stock == nil {
		return model.Item{}, fmt.Errorf("%w: item at index %d: id, minStock and stock are required",
			model.ErrInvalidInput, index)
	}
	return model.Item{
		ID:       *ir.ID,
		Name:     ir.Name,
		MinStock: *ir.MinStock,
		Stock:    *ir.Stock,
		ImageURL: ir.ImageURL,
	}, nil
}

// parseIfMatch returns the expected catalog version, or nil when the request
// is unconditional. Quoted entity tags are accepted.
func parseIfMatch(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.Trim(strings.TrimPrefix(raw, "W/"), `"`), 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid If-Match version %q", raw)
	}
	return &v, nil
}

func setVersion(w http.ResponseWriter, version int64) {
	w.Header().Set(VersionHeader, strconv.FormatInt(version, 10))
}
