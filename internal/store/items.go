package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

const itemColumns = `id, name, min_stock, stock, image_url`

// ListItems returns the full catalog in the order it was last saved.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListItemsVersion returns the catalog together with the version it was read
// at, both from one transaction. The transaction is read-only, so it starts
// deferred and does not queue behind writers.
func ListItemsVersion(ctx context.Context, db *sql.DB) ([]model.Item, int64, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY position`,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	items, err := scanItems(rows)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}

	version, err := readCatalogVersion(ctx, tx)
	if err != nil {
		return nil, 0, err
	}
	return items, version, nil
}

// ListLowStock returns the items whose stock is below their minimum.
func ListLowStock(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE stock < min_stock ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing low stock items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItem returns an item by ID, or nil if it is not in the catalog.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	var item model.Item
	var imageURL sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.MinStock, &item.Stock, &imageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.ImageURL = imageURL.String
	return &item, nil
}

// ReplaceItems atomically replaces the whole catalog and returns the new
// catalog version.
//
// With expectedVersion nil the last writer wins. Otherwise the replacement is
// rejected with model.ErrConflict when the stored version has moved on since
// the caller read it.
func ReplaceItems(ctx context.Context, db *sql.DB, items []model.Item, expectedVersion *int64) (int64, error) {
	if err := model.ValidateCatalog(items); err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := readCatalogVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	if expectedVersion != nil && *expectedVersion != current {
		return 0, fmt.Errorf("%w: read version %d, stored version %d", model.ErrConflict, *expectedVersion, current)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return 0, fmt.Errorf("clearing items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (id, name, min_stock, stock, image_url, position) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, item.ID, item.Name, item.MinStock, item.Stock, nullString(item.ImageURL), i); err != nil {
			return 0, fmt.Errorf("inserting item %d: %w", item.ID, err)
		}
	}

	next, err := bumpCatalogVersion(ctx, tx, current)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing catalog: %w", err)
	}
	return next, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		var item model.Item
		var imageURL sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.MinStock, &item.Stock, &imageURL); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.ImageURL = imageURL.String
		items = append(items, item)
	}
	return items, rows.Err()
}
