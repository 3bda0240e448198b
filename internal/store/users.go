package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/zaloga/internal/model"
)

// CreateUser creates a new user from a registration and an already hashed
// password. A taken username yields model.ErrDuplicateUsername and leaves the
// existing row untouched.
func CreateUser(ctx context.Context, db *sql.DB, reg model.Registration, passwordHash string) (*model.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("%w: password hash required", model.ErrInvalidInput)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, full_name, hint1, hint2, image_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reg.Username, passwordHash,
		nullString(reg.FullName), nullString(reg.Hint1), nullString(reg.Hint2), nullString(reg.ImageURL),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating user %q: %w", reg.Username, model.ErrDuplicateUsername)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, or nil if there is none.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, full_name, hint1, hint2, image_url, created_at
		 FROM users WHERE id = ?`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by exact (case-sensitive) username, or nil.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, full_name, hint1, hint2, image_url, created_at
		 FROM users WHERE username = ?`, username,
	))
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	var fullName, hint1, hint2, imageURL sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &fullName, &hint1, &hint2, &imageURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	u.Hint1 = hint1.String
	u.Hint2 = hint2.String
	u.ImageURL = imageURL.String
	return u, nil
}

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
