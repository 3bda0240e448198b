package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const catalogVersionKey = "catalog_version"

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// CatalogVersion returns the current catalog version. A catalog that was
// never saved has version 0.
func CatalogVersion(ctx context.Context, db *sql.DB) (int64, error) {
	return readCatalogVersion(ctx, db)
}

func readCatalogVersion(ctx context.Context, q querier) (int64, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, catalogVersionKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading catalog version: %w", err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing catalog version %q: %w", raw, err)
	}
	return v, nil
}

// bumpCatalogVersion stores current+1 and returns it. Must run inside the
// transaction that mutated the catalog.
func bumpCatalogVersion(ctx context.Context, q querier, current int64) (int64, error) {
	next := current + 1
	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		catalogVersionKey, strconv.FormatInt(next, 10),
	)
	if err != nil {
		return 0, fmt.Errorf("bumping catalog version: %w", err)
	}
	return next, nil
}
