package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// CreateIssue validates and stores an issue report.
func CreateIssue(ctx context.Context, db *sql.DB, title, description, status, createdAt string) (*model.IssueRecord, error) {
	issue, err := model.NewIssue(title, description, status, createdAt)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO issues (title, description, status, created_at) VALUES (?, ?, ?, ?)`,
		issue.Title, issue.Description, issue.Status, issue.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}

	issue.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting issue id: %w", err)
	}
	return &issue, nil
}

// ListIssues returns all issues, newest first by their reported creation time.
func ListIssues(ctx context.Context, db *sql.DB) ([]model.IssueRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, description, status, created_at
		 FROM issues ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var issues []model.IssueRecord
	for rows.Next() {
		var i model.IssueRecord
		if err := rows.Scan(&i.ID, &i.Title, &i.Description, &i.Status, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}
