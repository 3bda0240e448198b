package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// GoodsOutHandler handles ledger endpoints.
type GoodsOutHandler struct {
	DB *sql.DB
}

type appendGoodsOutRequest struct {
	Receiver string               `json:"receiver"`
	Items    []model.GoodsOutLine `json:"items"`
}

// List handles GET /api/goods-out.
func (h *GoodsOutHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := store.ListGoodsOut(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to fetch goods out records")
		return
	}
	if records == nil {
		records = []model.GoodsOutRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}

// Append handles POST /api/goods-out. It only writes the ledger; stock is
// left to the caller.
func (h *GoodsOutHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req appendGoodsOutRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	rec, err := store.AppendGoodsOut(r.Context(), h.DB, req.Receiver, req.Items)
	if err != nil {
		writeError(w, r, err, "failed to save goods out record")
		return
	}

	slog.Info("goods out recorded", "id", rec.ID, "receiver", rec.Receiver, "lines", len(rec.Items))
	jsonResponse(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/goods-out/{id}.
func (h *GoodsOutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := store.DeleteGoodsOut(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err, "failed to delete goods out record")
		return
	}

	user := ""
	if claims := GetClaims(r.Context()); claims != nil {
		user = claims.Username
	}
	slog.Info("goods out record deleted", "id", id, "user", user)
	jsonResponse(w, http.StatusOK, messageResponse{Message: "record deleted"})
}

// Receivers handles GET /api/receivers.
func (h *GoodsOutHandler) Receivers(w http.ResponseWriter, r *http.Request) {
	receivers, err := store.ListReceivers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to fetch receivers")
		return
	}
	if receivers == nil {
		receivers = []string{}
	}
	jsonResponse(w, http.StatusOK, receivers)
}
