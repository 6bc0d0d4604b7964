package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/types"
)

func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, ctx
}

func insertIssue(t *testing.T, store *Store, ctx context.Context, id string) *types.Issue {
	t.Helper()
	issue := &types.Issue{
		ID: id, Title: "title for " + id, Status: "open", Priority: 2, Type: "task",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	issue.ContentHash = issue.ComputeContentHash()
	if err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return InsertIssue(ctx, tx, issue)
	}); err != nil {
		t.Fatalf("inserting issue %s: %v", id, err)
	}
	return issue
}

func TestStore_InsertAndGetIssue(t *testing.T) {
	store, ctx := newTestStore(t)
	insertIssue(t, store, ctx, "demo-0000000001")

	got, err := store.GetIssue(ctx, "demo-0000000001")
	if err != nil {
		t.Fatalf("getting issue: %v", err)
	}
	assert.Equal(t, "open", got.Status)
	assert.Equal(t, 2, got.Priority)
}

func TestStore_GetIssue_NotFound(t *testing.T) {
	store, ctx := newTestStore(t)
	_, err := store.GetIssue(ctx, "demo-missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_ClaimIssueTx_SecondClaimerGetsAlreadyClaimed(t *testing.T) {
	store, ctx := newTestStore(t)
	insertIssue(t, store, ctx, "demo-claimrace")

	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return ClaimIssueTx(ctx, tx, "demo-claimrace", "agent-a", []string{"open"})
	})
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}

	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		return ClaimIssueTx(ctx, tx, "demo-claimrace", "agent-b", []string{"open"})
	})
	assert.True(t, errors.Is(err, ErrAlreadyClaimed))
}

func TestStore_ClaimIssueTx_SameActorReclaimSucceeds(t *testing.T) {
	store, ctx := newTestStore(t)
	insertIssue(t, store, ctx, "demo-reclaim")

	claim := func(actor string) error {
		return store.WithTx(ctx, func(tx *sql.Tx) error {
			return ClaimIssueTx(ctx, tx, "demo-reclaim", actor, []string{"open"})
		})
	}
	if err := claim("agent-a"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := claim("agent-a"); err != nil {
		t.Fatalf("re-claiming as the same actor should succeed: %v", err)
	}
}

func TestStore_ClaimIssueTx_OutOfCategoryReturnsConflict(t *testing.T) {
	store, ctx := newTestStore(t)
	insertIssue(t, store, ctx, "demo-closedclaim")
	if err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return UpdateIssueFields(ctx, tx, "demo-closedclaim", map[string]interface{}{"status": "done"}, "x")
	}); err != nil {
		t.Fatalf("closing issue: %v", err)
	}

	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return ClaimIssueTx(ctx, tx, "demo-closedclaim", "agent-a", []string{"open"})
	})
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestStore_AllDependencyEdges_RoundTrips(t *testing.T) {
	store, ctx := newTestStore(t)
	insertIssue(t, store, ctx, "demo-a")
	insertIssue(t, store, ctx, "demo-b")

	dep := &types.Dependency{IssueID: "demo-a", DependsOnID: "demo-b", Type: types.DefaultDependencyType, CreatedAt: time.Now().UTC()}
	if err := store.WithTx(ctx, func(tx *sql.Tx) error {
		_, _, err := InsertDependency(ctx, tx, dep)
		return err
	}); err != nil {
		t.Fatalf("inserting dependency: %v", err)
	}

	edges, err := store.AllDependencyEdges(ctx)
	if err != nil {
		t.Fatalf("listing edges: %v", err)
	}
	if assert.Len(t, edges, 1) {
		assert.Equal(t, "demo-a", edges[0].IssueID)
		assert.Equal(t, "demo-b", edges[0].DependsOnID)
	}

	if err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return DeleteDependency(ctx, tx, "demo-a", "demo-b")
	}); err != nil {
		t.Fatalf("removing dependency: %v", err)
	}

	edges, err = store.AllDependencyEdges(ctx)
	if err != nil {
		t.Fatalf("listing edges after removal: %v", err)
	}
	assert.Empty(t, edges)
}

func TestStore_RecentEvents_ReturnsLatestPastTheLimit(t *testing.T) {
	store, ctx := newTestStore(t)
	var lastID int64
	for i := 0; i < 5; i++ {
		id := insertIssue(t, store, ctx, fmt.Sprintf("demo-recent%d", i)).ID
		if err := store.WithTx(ctx, func(tx *sql.Tx) error {
			eventID, err := InsertEvent(ctx, tx, &types.Event{IssueID: id, EventType: types.EventCreated, Actor: "alice", CreatedAt: time.Now().UTC()})
			lastID = eventID
			return err
		}); err != nil {
			t.Fatalf("inserting event %d: %v", i, err)
		}
	}

	recent, err := store.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("getting recent events: %v", err)
	}
	if assert.Len(t, recent, 2) {
		assert.Equal(t, lastID, recent[0].ID, "the newest event should be first")
		assert.Greater(t, recent[0].ID, recent[1].ID)
	}
}

func TestStore_DeleteDependency_MissingIsNotFound(t *testing.T) {
	store, ctx := newTestStore(t)
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return DeleteDependency(ctx, tx, "demo-nope", "demo-also-nope")
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}
