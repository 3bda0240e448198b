package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// dateLayout is fixed-width so that the stored text sorts chronologically.
const dateLayout = "2006-01-02T15:04:05.000Z"

// now is the ledger clock.
var now = time.Now

// AppendGoodsOut validates and appends one goods-out record. It does not
// touch the catalog; see RecordGoodsOut for the combined operation.
func AppendGoodsOut(ctx context.Context, db *sql.DB, receiver string, lines []model.GoodsOutLine) (*model.GoodsOutRecord, error) {
	rec, err := model.NewGoodsOut(receiver, lines)
	if err != nil {
		return nil, err
	}
	if err := insertGoodsOut(ctx, db, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// insertGoodsOut stamps rec with the current time and stores it, filling in
// the assigned ID.
func insertGoodsOut(ctx context.Context, q querier, rec *model.GoodsOutRecord) error {
	rec.Date = now().UTC().Truncate(time.Millisecond)

	lines, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encoding goods out lines: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO goods_out (date, receiver, items) VALUES (?, ?, ?)`,
		rec.Date.Format(dateLayout), rec.Receiver, string(lines),
	)
	if err != nil {
		return fmt.Errorf("recording goods out: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting goods out id: %w", err)
	}
	return nil
}

// GetGoodsOut returns a ledger record by ID, or nil if there is none.
func GetGoodsOut(ctx context.Context, db *sql.DB, id int64) (*model.GoodsOutRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, date, receiver, items FROM goods_out WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting goods out: %w", err)
	}
	defer rows.Close()

	records, err := scanGoodsOut(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListGoodsOut returns the whole ledger, newest first.
func ListGoodsOut(ctx context.Context, db *sql.DB) ([]model.GoodsOutRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, date, receiver, items FROM goods_out ORDER BY date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing goods out: %w", err)
	}
	defer rows.Close()

	return scanGoodsOut(rows)
}

// DeleteGoodsOut removes exactly one ledger record. Deleting an ID that does
// not exist returns model.ErrNotFound.
func DeleteGoodsOut(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM goods_out WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting goods out: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted goods out: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goods out record %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// ListReceivers returns the distinct receivers in the ledger, most recently
// used first.
func ListReceivers(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT receiver FROM goods_out GROUP BY receiver ORDER BY MAX(date) DESC, receiver`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing receivers: %w", err)
	}
	defer rows.Close()

	var receivers []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scanning receiver: %w", err)
		}
		receivers = append(receivers, r)
	}
	return receivers, rows.Err()
}

func scanGoodsOut(rows *sql.Rows) ([]model.GoodsOutRecord, error) {
	var records []model.GoodsOutRecord
	for rows.Next() {
		var rec model.GoodsOutRecord
		var date, lines string
		if err := rows.Scan(&rec.ID, &date, &rec.Receiver, &lines); err != nil {
			return nil, fmt.Errorf("scanning goods out: %w", err)
		}

		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing goods out %d date: %w", rec.ID, err)
		}
		rec.Date = t

		if err := json.Unmarshal([]byte(lines), &rec.Items); err != nil {
			return nil, fmt.Errorf("decoding goods out %d lines: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
