package model

import (
	"fmt"
	"strings"
)

// Issue statuses used by the report form. The store accepts any non-empty value.
const (
	IssueStatusOpen   = "open"
	IssueStatusClosed = "closed"
)

// IssueRecord is a free-text problem report.
type IssueRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// NewIssue builds an unsaved issue, rejecting empty fields.
func NewIssue(title, description, status, createdAt string) (IssueRecord, error) {
	issue := IssueRecord{Title: title, Description: description, Status: status, CreatedAt: createdAt}
	fields := []struct{ name, value string }{
		{"title", title},
		{"description", description},
		{"status", status},
		{"createdAt", createdAt},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return IssueRecord{}, fmt.Errorf("%w: %s required", ErrInvalidInput, f.name)
		}
	}
	return issue, nil
}
