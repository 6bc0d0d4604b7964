package toolcall

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/templates"
)

func newTestEngine(t *testing.T) (*engine.Engine, context.Context) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "filigree.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tmpls, err := templates.NewManager("")
	if err != nil {
		t.Fatalf("loading templates: %v", err)
	}

	return engine.New(store, tmpls, "demo"), ctx
}
