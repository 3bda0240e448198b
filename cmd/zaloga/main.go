package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/ratelimit"
	"github.com/erazemk/zaloga/internal/store"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("zaloga", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var firstUser string
	fs.StringVar(&firstUser, "user", "", "")
	fs.StringVar(&firstUser, "u", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: zaloga [flags]

Flags:
  -c, -config <path>      YAML config file (default: zaloga.yaml if present)
  -d, -db <path>          SQLite database path (default: zaloga.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        create this account when the database is new
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment variables ZALOGA_* override the config file; flags override both.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logPath != "" {
		cfg.LogFile = logPath
	}

	level, _ := cfg.Level()
	closeLog, err := setupLogger(cfg.LogFile, level)
	if err != nil {
		return err
	}
	defer closeLog()

	// A new database optionally gets a first account with a generated password.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) && firstUser != "" {
		database, password, err := initDatabase(cfg.DBPath, firstUser, cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, firstUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := store.PurgeExpiredTokens(ctx, database); err != nil {
		slog.Warn("failed to purge expired token revocations", "error", err)
	} else if n > 0 {
		slog.Info("purged expired token revocations", "count", n)
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Stored in the database and generated on first start.
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("getting JWT secret: %w", err)
		}
	}

	tokenTTL, _ := cfg.TokenLifetime()
	routerCfg := api.Config{
		JWTSecret:    jwtSecret,
		TokenTTL:     tokenTTL,
		BcryptCost:   cfg.BcryptCost,
		RequireToken: cfg.RequireToken,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	if cfg.RateLimitEnabled() {
		limiter, err := ratelimit.NewFixedWindow(ratelimit.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Limit:    cfg.LoginRateLimitPerMinute,
			Window:   time.Minute,
		})
		if err != nil {
			return fmt.Errorf("creating rate limiter: %w", err)
		}
		defer limiter.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = limiter.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		routerCfg.Limiter = limiter
		slog.Info("login rate limiting enabled", "redis", cfg.RedisAddr, "per_minute", cfg.LoginRateLimitPerMinute)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(database, routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	grace, _ := cfg.ShutdownGrace()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr, "require_token", cfg.RequireToken)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// initDatabase creates a new database, migrates it and creates the first
// account.
func initDatabase(path, username string, cost int) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(database); err != nil {
		return fail(fmt.Errorf("running migrations: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return fail(err)
	}

	reg := model.Registration{Username: username, Password: password}
	if _, err := store.CreateUser(context.Background(), database, reg, hash); err != nil {
		return fail(fmt.Errorf("creating first user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
