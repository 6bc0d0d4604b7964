package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/types"
)

func TestAddDependency_RejectsSelfDependency(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "solo", Actor: "alice"})

	err := e.AddDependency(ctx, task.ID, task.ID, "", "alice")
	assert.Equal(t, ferrors.CodeValidation, ferrors.CodeOf(err))
}

func TestAddDependency_RejectsCycle(t *testing.T) {
	e, ctx := newTestEngine(t)
	a := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "a", Actor: "alice"})
	b := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "b", Actor: "alice"})
	c := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "c", Actor: "alice"})

	// a depends on b, b depends on c: a -> b -> c
	if err := e.AddDependency(ctx, a.ID, b.ID, "", "alice"); err != nil {
		t.Fatalf("a->b: %v", err)
	}
	if err := e.AddDependency(ctx, b.ID, c.ID, "", "alice"); err != nil {
		t.Fatalf("b->c: %v", err)
	}

	// c depending on a would close the cycle a->b->c->a.
	err := e.AddDependency(ctx, c.ID, a.ID, "", "alice")
	assert.Equal(t, ferrors.CodeWouldCreateCycle, ferrors.CodeOf(err))
}

func countEvents(t *testing.T, e *Engine, issueID string, eventType types.EventType) int {
	t.Helper()
	events, err := e.GetIssueEvents(context.Background(), issueID, 50)
	if err != nil {
		t.Fatalf("getting events: %v", err)
	}
	n := 0
	for _, ev := range events {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}

func TestAddDependency_ExactDuplicateIsNoOp(t *testing.T) {
	e, ctx := newTestEngine(t)
	a := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "a", Actor: "alice"})
	b := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "b", Actor: "alice"})

	if err := e.AddDependency(ctx, a.ID, b.ID, "blocks", "alice"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := e.AddDependency(ctx, a.ID, b.ID, "blocks", "alice"); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}

	assert.Equal(t, 1, countEvents(t, e, a.ID, types.EventDependencyAdded),
		"an exact duplicate edge must not record a second dependency_added event")
}

func TestAddDependency_TypeChangeRecordsOldValue(t *testing.T) {
	e, ctx := newTestEngine(t)
	a := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "a", Actor: "alice"})
	b := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "b", Actor: "alice"})

	if err := e.AddDependency(ctx, a.ID, b.ID, "blocks", "alice"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := e.AddDependency(ctx, a.ID, b.ID, "related", "alice"); err != nil {
		t.Fatalf("retyping edge: %v", err)
	}

	events, err := e.GetIssueEvents(ctx, a.ID, 50)
	if err != nil {
		t.Fatalf("getting events: %v", err)
	}
	assert.Equal(t, 2, countEvents(t, e, a.ID, types.EventDependencyAdded),
		"changing an edge's type is a distinct recordable change from its initial creation")
	for _, ev := range events {
		if ev.EventType == types.EventDependencyAdded && ev.OldValue != nil && *ev.OldValue == "blocks" {
			return
		}
	}
	t.Fatalf("expected a dependency_added event recording the edge's previous type, got: %+v", events)
}

func TestGetReady_FiltersBlockedIssues(t *testing.T) {
	e, ctx := newTestEngine(t)
	blocker := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "must land first", Actor: "alice"})
	blocked := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "depends on blocker", Actor: "alice"})

	if err := e.AddDependency(ctx, blocked.ID, blocker.ID, "", "alice"); err != nil {
		t.Fatalf("adding dependency: %v", err)
	}

	ready, err := e.GetReady(ctx, types.WorkFilter{})
	if err != nil {
		t.Fatalf("getting ready: %v", err)
	}
	readyIDs := idsOf(ready)
	assert.Contains(t, readyIDs, blocker.ID)
	assert.NotContains(t, readyIDs, blocked.ID)

	if _, _, err := e.CloseIssue(ctx, blocker.ID, "", "alice"); err != nil {
		t.Fatalf("closing blocker: %v", err)
	}

	ready, err = e.GetReady(ctx, types.WorkFilter{})
	if err != nil {
		t.Fatalf("getting ready after unblock: %v", err)
	}
	assert.Contains(t, idsOf(ready), blocked.ID, "closing the blocker should unblock the dependent")
}

func TestCloseIssue_ReportsNewlyUnblocked(t *testing.T) {
	e, ctx := newTestEngine(t)
	blocker := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "blocker", Actor: "alice"})
	blocked := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "dependent", Actor: "alice"})
	if err := e.AddDependency(ctx, blocked.ID, blocker.ID, "", "alice"); err != nil {
		t.Fatalf("adding dependency: %v", err)
	}

	_, unblocked, err := e.CloseIssue(ctx, blocker.ID, "", "alice")
	if err != nil {
		t.Fatalf("closing blocker: %v", err)
	}
	if assert.Len(t, unblocked, 1) {
		assert.Equal(t, blocked.ID, unblocked[0].ID)
	}
}

func idsOf(issues []*types.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}
