package summary

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

func TestRefresh_WritesContextMarkdown(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(ctx, filepath.Join(dir, "filigree.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tmpls, err := templates.NewManager("")
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}

	issue := &types.Issue{
		ID: "demo-0000000001", Title: "ready task", Status: "open", Priority: 1, Type: "task",
	}
	issue.ContentHash = issue.ComputeContentHash()
	if err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return sqlite.InsertIssue(ctx, tx, issue)
	}); err != nil {
		t.Fatalf("inserting issue: %v", err)
	}

	contextPath := filepath.Join(dir, "context.md")
	gen := New(store, tmpls, contextPath)
	if err := gen.Refresh(ctx); err != nil {
		t.Fatalf("refreshing context.md: %v", err)
	}

	data, err := os.ReadFile(contextPath)
	if err != nil {
		t.Fatalf("reading context.md: %v", err)
	}
	doc := string(data)
	if !strings.Contains(doc, "demo-0000000001") {
		t.Errorf("expected context.md to mention the ready issue, got:\n%s", doc)
	}
	if !strings.Contains(doc, "## Ready queue") {
		t.Errorf("expected a Ready queue section")
	}
}

func TestRefresh_RecentChangesShowsLatestActivityPastTheLimit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(ctx, filepath.Join(dir, "filigree.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tmpls, err := templates.NewManager("")
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}

	const total = 25 // exceeds summary.recentEventsSize (20)
	var ids []string
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("demo-issue-%03d", i)
		issue := &types.Issue{ID: id, Title: "issue " + id, Status: "open", Priority: 2, Type: "task"}
		issue.ContentHash = issue.ComputeContentHash()
		if err := store.WithTx(ctx, func(tx *sql.Tx) error {
			if err := sqlite.InsertIssue(ctx, tx, issue); err != nil {
				return err
			}
			_, err := sqlite.InsertEvent(ctx, tx, &types.Event{
				IssueID: id, EventType: types.EventCreated, Actor: "alice", CreatedAt: time.Now().UTC(),
			})
			return err
		}); err != nil {
			t.Fatalf("inserting issue/event %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	contextPath := filepath.Join(dir, "context.md")
	gen := New(store, tmpls, contextPath)
	if err := gen.Refresh(ctx); err != nil {
		t.Fatalf("refreshing context.md: %v", err)
	}

	data, err := os.ReadFile(contextPath)
	if err != nil {
		t.Fatalf("reading context.md: %v", err)
	}
	doc := string(data)
	section := doc
	if idx := strings.Index(doc, "## Recent changes"); idx >= 0 {
		section = doc[idx:]
	}
	if !strings.Contains(section, ids[total-1]) {
		t.Errorf("expected context.md's recent changes to include the latest event (%s), got:\n%s", ids[total-1], section)
	}
	if strings.Contains(section, ids[0]) {
		t.Errorf("expected context.md's recent changes to exclude the earliest event (%s) once activity exceeds the window", ids[0])
	}
}

func TestRefresh_EmptyProjectStillRenders(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(ctx, filepath.Join(dir, "filigree.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tmpls, err := templates.NewManager("")
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}

	contextPath := filepath.Join(dir, "context.md")
	gen := New(store, tmpls, contextPath)
	if err := gen.Refresh(ctx); err != nil {
		t.Fatalf("refreshing context.md: %v", err)
	}

	data, err := os.ReadFile(contextPath)
	if err != nil {
		t.Fatalf("reading context.md: %v", err)
	}
	if !strings.Contains(string(data), "Nothing ready") {
		t.Errorf("expected an empty project to render the ready-queue placeholder")
	}
}
