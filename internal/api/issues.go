package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// IssuesHandler handles issue report endpoints.
type IssuesHandler struct {
	DB *sql.DB
}

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// List handles GET /api/issues.
func (h *IssuesHandler) List(w http.ResponseWriter, r *http.Request) {
	issues, err := store.ListIssues(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to fetch issues")
		return
	}
	if issues == nil {
		issues = []model.IssueRecord{}
	}
	jsonResponse(w, http.StatusOK, issues)
}

// Create handles POST /api/issues.
func (h *IssuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	issue, err := store.CreateIssue(r.Context(), h.DB, req.Title, req.Description, req.Status, req.CreatedAt)
	if err != nil {
		writeError(w, r, err, "failed to save issue")
		return
	}
	jsonResponse(w, http.StatusCreated, issue)
}
