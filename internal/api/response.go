package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

type messageResponse struct {
	Message string `json:"message"`
}

type versionResponse struct {
	Message string `json:"message"`
	Version int64  `json:"version"`
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// badBody answers a request whose body could not be decoded.
func badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	jsonError(w, http.StatusBadRequest, "invalid request body")
}

// errorStatus maps domain errors to HTTP status codes. Zero means the error
// is not a domain error.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, imaging.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateUsername),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrInsufficientStock):
		return http.StatusConflict
	}
	return 0
}

// writeError answers with the status for a domain error, or logs the error
// and answers with an opaque 500 carrying fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if status := errorStatus(err); status != 0 {
		jsonError(w, status, err.Error())
		return
	}
	slog.Error(fallback, "error", err, "request_id", RequestIDFrom(r.Context()))
	jsonError(w, http.StatusInternalServerError, fallback)
}
