package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

// newTestEngine opens a fresh SQLite-backed engine against a temp-dir
// database, loaded with only the built-in template packs.
func newTestEngine(t *testing.T) (*Engine, context.Context) {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "filigree.db")
	store, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tmpls, err := templates.NewManager("")
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}

	return New(store, tmpls, "demo"), ctx
}

func mustCreateIssue(t *testing.T, e *Engine, ctx context.Context, in CreateIssueInput) *types.Issue {
	t.Helper()
	issue, err := e.CreateIssue(ctx, in)
	if err != nil {
		t.Fatalf("creating issue: %v", err)
	}
	return issue
}
