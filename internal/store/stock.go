package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// RecordGoodsOut decrements stock and appends the matching ledger record in a
// single transaction, so either both are visible or neither is.
//
// Lines for the same item are merged first. Every item must exist and hold at
// least the requested quantity, otherwise nothing is written. Line names are
// snapshotted from the catalog. Returns the stored record and the new
// catalog version.
func RecordGoodsOut(ctx context.Context, db *sql.DB, receiver string, lines []model.StockLine) (*model.GoodsOutRecord, int64, error) {
	merged, err := mergeValidLines(lines)
	if err != nil {
		return nil, 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	snapshot := make([]model.GoodsOutLine, 0, len(merged))
	for _, l := range merged {
		name, stock, err := itemStock(ctx, tx, l.ItemID)
		if err != nil {
			return nil, 0, err
		}
		if stock < l.Quantity {
			return nil, 0, fmt.Errorf("%w: item %d (%s): have %d, need %d",
				model.ErrInsufficientStock, l.ItemID, name, stock, l.Quantity)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET stock = stock - ? WHERE id = ?`, l.Quantity, l.ItemID,
		); err != nil {
			return nil, 0, fmt.Errorf("decrementing item %d: %w", l.ItemID, err)
		}
		snapshot = append(snapshot, model.GoodsOutLine{ItemID: l.ItemID, Name: name, Quantity: l.Quantity})
	}

	rec, err := model.NewGoodsOut(receiver, snapshot)
	if err != nil {
		return nil, 0, err
	}
	if err := insertGoodsOut(ctx, tx, &rec); err != nil {
		return nil, 0, err
	}

	version, err := bumpStockVersion(ctx, tx)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("committing goods out: %w", err)
	}
	return &rec, version, nil
}

// RecordGoodsIn increments stock for every line in a single transaction and
// returns the new catalog version. No ledger entry is written.
func RecordGoodsIn(ctx context.Context, db *sql.DB, lines []model.StockLine) (int64, error) {
	merged, err := mergeValidLines(lines)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range merged {
		_, stock, err := itemStock(ctx, tx, l.ItemID)
		if err != nil {
			return 0, err
		}
		next, err := model.AddStock(stock, l.Quantity)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", l.ItemID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET stock = ? WHERE id = ?`, next, l.ItemID,
		); err != nil {
			return 0, fmt.Errorf("incrementing item %d: %w", l.ItemID, err)
		}
	}

	version, err := bumpStockVersion(ctx, tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing goods in: %w", err)
	}
	return version, nil
}

func mergeValidLines(lines []model.StockLine) ([]model.StockLine, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", model.ErrInvalidInput)
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	merged := model.MergeStockLines(lines)
	for _, l := range merged {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// itemStock reads an item's name and stock inside tx. Unknown items are
// invalid input: the caller referenced something not in the catalog.
func itemStock(ctx context.Context, tx *sql.Tx, id int64) (string, int, error) {
	var name string
	var stock int
	err := tx.QueryRowContext(ctx,
		`SELECT name, stock FROM items WHERE id = ?`, id,
	).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("%w: item %d is not in the catalog", model.ErrInvalidInput, id)
	}
	if err != nil {
		return "", 0, fmt.Errorf("reading item %d: %w", id, err)
	}
	return name, stock, nil
}

func bumpStockVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	current, err := readCatalogVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	return bumpCatalogVersion(ctx, tx, current)
}
