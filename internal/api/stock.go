package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// StockHandler handles the combined stock movement endpoints.
type StockHandler struct {
	DB *sql.DB
}

type stockMoveRequest struct {
	Receiver string            `json:"receiver"`
	Items    []model.StockLine `json:"items"`
}

// GoodsOut handles POST /api/stock/goods-out: stock is decremented and the
// ledger record written together.
func (h *StockHandler) GoodsOut(w http.ResponseWriter, r *http.Request) {
	var req stockMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	rec, version, err := store.RecordGoodsOut(r.Context(), h.DB, req.Receiver, req.Items)
	if err != nil {
		writeError(w, r, err, "failed to record goods out")
		return
	}

	slog.Info("goods out issued", "id", rec.ID, "receiver", rec.Receiver, "lines", len(rec.Items), "version", version)
	setVersion(w, version)
	jsonResponse(w, http.StatusCreated, rec)
}

// GoodsIn handles POST /api/stock/goods-in.
func (h *StockHandler) GoodsIn(w http.ResponseWriter, r *http.Request) {
	var req stockMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	version, err := store.RecordGoodsIn(r.Context(), h.DB, req.Items)
	if err != nil {
		writeError(w, r, err, "failed to record goods in")
		return
	}

	slog.Info("goods in received", "lines", len(req.Items), "version", version)
	setVersion(w, version)
	jsonResponse(w, http.StatusOK, versionResponse{Message: "stock updated", Version: version})
}
