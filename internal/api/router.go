package api

import (
	"database/sql"
	"net/http"
	"time"
)

// DefaultMaxBodyBytes bounds request bodies, which may carry inline images.
const DefaultMaxBodyBytes = 10 << 20

// Config holds the router settings.
type Config struct {
	JWTSecret string
	// TokenTTL is the session token lifetime; zero uses auth.TokenExpiry.
	TokenTTL time.Duration
	// BcryptCost is the password hashing cost; zero uses bcrypt.DefaultCost.
	BcryptCost int
	// RequireToken protects the mutating catalog, ledger and issue routes.
	RequireToken bool
	// Limiter throttles register and login per client. Nil disables it.
	Limiter      Limiter
	MaxBodyBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL, BcryptCost: cfg.BcryptCost}
	itemsHandler := &ItemsHandler{DB: db}
	goodsOutHandler := &GoodsOutHandler{DB: db}
	stockHandler := &StockHandler{DB: db}
	issuesHandler := &IssuesHandler{DB: db}

	authMW := AuthMiddleware(cfg.JWTSecret, db)
	throttle := RateLimit(cfg.Limiter, "auth")

	// mutating wraps write routes that need a token only when configured.
	mutating := func(h http.HandlerFunc) http.Handler {
		if cfg.RequireToken {
			return authMW(h)
		}
		return h
	}

	// Accounts.
	mux.Handle("POST /api/register", throttle(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/login", throttle(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Catalog.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/low-stock", itemsHandler.LowStock)
	mux.Handle("POST /api/items", mutating(itemsHandler.Replace))
	mux.Handle("PUT /api/items", mutating(itemsHandler.Replace))

	// Ledger.
	mux.HandleFunc("GET /api/goods-out", goodsOutHandler.List)
	mux.Handle("POST /api/goods-out", mutating(goodsOutHandler.Append))
	mux.Handle("DELETE /api/goods-out/{id}", authMW(http.HandlerFunc(goodsOutHandler.Delete)))
	mux.HandleFunc("GET /api/receivers", goodsOutHandler.Receivers)

	// Combined stock movements.
	mux.Handle("POST /api/stock/goods-out", mutating(stockHandler.GoodsOut))
	mux.Handle("POST /api/stock/goods-in", mutating(stockHandler.GoodsIn))

	// Issues.
	mux.HandleFunc("GET /api/issues", issuesHandler.List)
	mux.Handle("POST /api/issues", mutating(issuesHandler.Create))

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	var h http.Handler = mux
	h = MaxBody(maxBody)(h)
	h = Recover(h)
	h = LoggingMiddleware(h)
	h = RequestID(h)
	return h
}
