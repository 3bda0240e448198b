package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

func TestCreateIssue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	issue, err := CreateIssue(ctx, database, "Broken shelf", "Shelf 3 is loose", model.IssueStatusOpen, "2024-05-01T08:00:00.000Z")
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if issue.ID == 0 {
		t.Error("expected an assigned ID")
	}

	issues, _ := ListIssues(ctx, database)
	if len(issues) != 1 || issues[0] != *issue {
		t.Errorf("expected stored issue %+v, got %+v", issue, issues)
	}
}

func TestCreateIssueInvalid(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateIssue(ctx, database, "Title", "", "open", "2024-05-01T08:00:00.000Z")
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	issues, _ := ListIssues(ctx, database)
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %d", len(issues))
	}
}

func TestListIssuesNewestFirst(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, createdAt := range []string{
		"2024-05-02T08:00:00.000Z",
		"2024-05-01T08:00:00.000Z",
		"2024-05-03T08:00:00.000Z",
	} {
		if _, err := CreateIssue(ctx, database, "t", "d", "open", createdAt); err != nil {
			t.Fatalf("CreateIssue: %v", err)
		}
	}

	issues, err := ListIssues(ctx, database)
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	want := []string{"2024-05-03T08:00:00.000Z", "2024-05-02T08:00:00.000Z", "2024-05-01T08:00:00.000Z"}
	for i, w := range want {
		if issues[i].CreatedAt != w {
			t.Errorf("position %d: expected %s, got %s", i, w, issues[i].CreatedAt)
		}
	}
}
