// Package engine implements Filigree's workflow operations: issue
// mutation, dependency graph maintenance, hierarchical planning, file and
// scan-finding tracking, and flow analytics. Every exported method opens
// its own transaction (or composes several storage calls under one via
// sqlite.Store.WithTx) and is safe to call concurrently from multiple
// adapters sharing the same Store.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/idgen"
	"github.com/tachyon-beep/filigree/internal/metrics"
	"github.com/tachyon-beep/filigree/internal/storage/sqlite"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

// SummaryRefresher regenerates the project's context.md snapshot. It is
// satisfied by internal/summary.Generator; Engine depends on the
// interface rather than the concrete package to avoid a storage->summary
// ->engine import cycle.
type SummaryRefresher interface {
	Refresh(ctx context.Context) error
}

// noopRefresher is used until a real refresher is wired in, so engines
// built without a summary generator (e.g. in unit tests) work unmodified.
type noopRefresher struct{}

func (noopRefresher) Refresh(context.Context) error { return nil }

// Engine bundles the storage handle and template registry every
// sub-engine needs, plus an optional summary refresher triggered after
// mutations that change visible project state.
type Engine struct {
	Store     *sqlite.Store
	Templates *templates.Manager
	Summary   SummaryRefresher
	Metrics   *metrics.Recorder

	issuePrefix string
}

// New builds an Engine. issuePrefix seeds generated issue and file ids;
// pass the project's configured "issue_prefix" (see internal/project).
func New(store *sqlite.Store, tmpls *templates.Manager, issuePrefix string) *Engine {
	return &Engine{
		Store:       store,
		Templates:   tmpls,
		Summary:     noopRefresher{},
		issuePrefix: issuePrefix,
	}
}

// refreshSummary regenerates context.md. A failure is logged through
// slog's default logger and returned; the mutations that call it discard
// the returned error, so a refresh failure never fails the mutation that
// triggered it.
func (e *Engine) refreshSummary(ctx context.Context) error {
	if e.Summary == nil {
		return nil
	}
	if err := e.Summary.Refresh(ctx); err != nil {
		slog.Warn("refreshing context.md failed", "error", err)
		return err
	}
	return nil
}

// newIssueID mints an issue id using the engine's configured prefix.
func (e *Engine) newIssueID() (string, error) {
	return idgen.NewIssueID(e.issuePrefix, e.Store.IssueExists)
}

// newFileID mints a file id using the engine's configured prefix.
func (e *Engine) newFileID() (string, error) {
	return idgen.NewFileID(e.issuePrefix, e.fileExists)
}

func (e *Engine) fileExists(id string) (bool, error) {
	_, err := e.Store.GetFile(context.Background(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// templateFor looks up the workflow template for an issue type, reporting
// whether the type is known to the currently loaded registry.
func (e *Engine) templateFor(issueType string) (types.Template, bool) {
	return e.Templates.Current().Template(issueType)
}

// strPtr is a small helper for building Event.OldValue/NewValue pointers
// from plain strings without repeating `&s` against a loop variable.
func strPtr(s string) *string {
	return &s
}

// emitEvent appends an event row inside tx and returns its id.
func emitEvent(ctx context.Context, tx *sql.Tx, issueID string, eventType types.EventType, actor string, oldValue, newValue, comment *string) (int64, error) {
	return sqlite.InsertEvent(ctx, tx, &types.Event{
		IssueID:   issueID,
		EventType: eventType,
		Actor:     actor,
		OldValue:  oldValue,
		NewValue:  newValue,
		Comment:   comment,
		CreatedAt: idgen.Now(),
	})
}

// wrapStorageErr translates a sentinel storage error into the matching
// ferrors code, leaving already-typed ferrors.Error values untouched.
func wrapStorageErr(kind, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sqlite.ErrNotFound):
		return ferrors.NotFound(kind, id)
	case errors.Is(err, sqlite.ErrConflict):
		return ferrors.New(ferrors.CodeConflict, "%s %q was modified concurrently", kind, id)
	case errors.Is(err, sqlite.ErrAlreadyClaimed):
		return ferrors.New(ferrors.CodeAlreadyClaimed, "%s %q is already claimed", kind, id)
	case errors.Is(err, sqlite.ErrCycle):
		return ferrors.New(ferrors.CodeWouldCreateCycle, "%s %q would create a dependency cycle", kind, id)
	default:
		return ferrors.Wrap(ferrors.CodeInternal, err, "%s %q", kind, id)
	}
}

// ensureIssue loads an issue or returns a typed not_found error.
func (e *Engine) ensureIssue(ctx context.Context, id string) (*types.Issue, error) {
	issue, err := e.Store.GetIssue(ctx, id)
	if err != nil {
		return nil, wrapStorageErr("issue", id, err)
	}
	return issue, nil
}

// marshalJSON renders a fields map as JSON for storage and for the
// fields_changed event's new_value.
func marshalJSON(v map[string]interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fmtMissingFields(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("missing required fields: %v", missing)
}
