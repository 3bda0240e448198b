package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	DB         *sql.DB
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	model.PublicUser
	Token string `json:"token"`
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeJSON(r, &reg); err != nil {
		badBody(w, err)
		return
	}

	if err := reg.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, "missing username or password")
		return
	}

	imageURL, err := imaging.NormalizeImageRef(reg.ImageURL)
	if err != nil {
		writeError(w, r, err, "registration failed")
		return
	}
	reg.ImageURL = imageURL

	hash, err := auth.HashPassword(reg.Password, h.BcryptCost)
	if err != nil {
		writeError(w, r, err, "registration failed")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, reg, hash)
	if err != nil {
		writeError(w, r, err, "registration failed")
		return
	}

	slog.Info("user registered", "user", user.Username, "id", user.ID)
	jsonResponse(w, http.StatusCreated, messageResponse{Message: "user registered"})
}

// Login handles POST /api/login. Unknown users and wrong passwords get the
// same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "missing username or password")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		writeError(w, r, err, "login failed")
		return
	}
	if user == nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		writeError(w, r, model.ErrInvalidCredentials, "login failed")
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		writeError(w, r, err, "login failed")
		return
	}
	if !ok {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		writeError(w, r, model.ErrInvalidCredentials, "login failed")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Username, h.TokenTTL)
	if err != nil {
		writeError(w, r, err, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.Username)
	jsonResponse(w, http.StatusOK, loginResponse{PublicUser: user.Public(), Token: token})
}

// Logout handles POST /api/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, err, "failed to log out")
		return
	}

	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, messageResponse{Message: "logged out"})
}
