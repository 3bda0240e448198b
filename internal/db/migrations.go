package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: the report view lists by receiver as well as by date.
	`CREATE INDEX IF NOT EXISTS idx_goods_out_receiver ON goods_out(receiver)`,
	// Migration 2: issues are always listed newest first.
	`CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues(created_at)`,
}

// Migrate ensures the schema and then runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
