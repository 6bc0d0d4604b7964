package engine

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/types"
)

var issueIDPattern = regexp.MustCompile(`^demo-[0-9a-f]{10}$`)

func TestCreateIssue_BugStartsInTriage(t *testing.T) {
	e, ctx := newTestEngine(t)

	bug := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "null pointer on save", Type: "bug", Actor: "alice"})

	assert.True(t, issueIDPattern.MatchString(bug.ID), "id %q should match demo-<10 hex>", bug.ID)
	assert.Equal(t, "triage", bug.Status)
	assert.Nil(t, bug.ClosedAt)

	events, err := e.Store.ListEvents(ctx, bug.ID, 100)
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if assert.Len(t, events, 1) {
		assert.Equal(t, types.EventCreated, events[0].EventType)
	}
}

func TestCreateIssue_UnknownTypeRejected(t *testing.T) {
	e, ctx := newTestEngine(t)

	_, err := e.CreateIssue(ctx, CreateIssueInput{Title: "x", Type: "not-a-type", Actor: "alice"})
	assert.Equal(t, ferrors.CodeValidation, ferrors.CodeOf(err))
}

func TestUpdateIssue_BugTriageToConfirmedRequiresSeverity(t *testing.T) {
	e, ctx := newTestEngine(t)
	bug := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "crash on boot", Type: "bug", Actor: "alice"})

	status := "confirmed"
	_, _, err := e.UpdateIssue(ctx, bug.ID, UpdateIssueInput{Status: &status, Actor: "alice"})
	if ferr, ok := err.(*ferrors.Error); ok {
		assert.Equal(t, ferrors.CodeInvalidTransition, ferr.Code)
		assert.Contains(t, ferr.MissingFields, "severity")
		assert.Contains(t, ferr.ValidTransitions, "wont_fix")
	} else {
		t.Fatalf("expected a *ferrors.Error, got %T: %v", err, err)
	}

	updated, _, err := e.UpdateIssue(ctx, bug.ID, UpdateIssueInput{
		Status: &status,
		Fields: map[string]interface{}{"severity": "high"},
		Actor:  "alice",
	})
	if err != nil {
		t.Fatalf("updating with severity set: %v", err)
	}
	assert.Equal(t, "confirmed", updated.Status)
}

func TestCloseIssue_SetsClosedAtExactlyWhenDone(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "write docs", Actor: "alice"})
	assert.Nil(t, task.ClosedAt)

	closed, _, err := e.CloseIssue(ctx, task.ID, "shipped", "alice")
	if err != nil {
		t.Fatalf("closing issue: %v", err)
	}
	assert.Equal(t, "done", closed.Status)
	if assert.NotNil(t, closed.ClosedAt) {
		assert.False(t, closed.ClosedAt.IsZero())
	}

	reopened, err := e.ReopenIssue(ctx, task.ID, "alice")
	if err != nil {
		t.Fatalf("reopening issue: %v", err)
	}
	assert.Equal(t, "open", reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
}

func TestReopenIssue_RejectsNonDoneIssue(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "in flight", Actor: "alice"})

	_, err := e.ReopenIssue(ctx, task.ID, "alice")
	assert.Equal(t, ferrors.CodeInvalid, ferrors.CodeOf(err))
}

func TestClaimIssue_ConcurrentRaceHasExactlyOneWinner(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "shared work", Actor: "alice"})

	var wg sync.WaitGroup
	results := make([]error, 2)
	claimants := []string{"agent-a", "agent-b"}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.ClaimIssue(ctx, task.ID, claimants[i], claimants[i])
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case ferrors.CodeOf(err) == ferrors.CodeAlreadyClaimed:
			failures++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	final, err := e.GetIssue(ctx, task.ID)
	if err != nil {
		t.Fatalf("reloading issue: %v", err)
	}
	assert.Contains(t, claimants, final.Assignee)
	assert.Equal(t, "open", final.Status, "claiming never changes status")
}

func TestClaimIssue_RejectsNonOpenCategory(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "already done", Actor: "alice"})
	if _, _, err := e.CloseIssue(ctx, task.ID, "", "alice"); err != nil {
		t.Fatalf("closing: %v", err)
	}

	_, err := e.ClaimIssue(ctx, task.ID, "agent-a", "agent-a")
	assert.Equal(t, ferrors.CodeInvalid, ferrors.CodeOf(err))
}

func TestUndoLast_RevertsStatusChange(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "undo me", Actor: "alice"})

	status := "in_progress"
	if _, _, err := e.UpdateIssue(ctx, task.ID, UpdateIssueInput{Status: &status, Actor: "alice"}); err != nil {
		t.Fatalf("updating status: %v", err)
	}

	before, err := e.GetIssue(ctx, task.ID)
	if err != nil {
		t.Fatalf("loading issue: %v", err)
	}
	assert.Equal(t, "in_progress", before.Status)

	result, err := e.UndoLast(ctx, task.ID, "alice")
	if err != nil {
		t.Fatalf("undoing: %v", err)
	}
	assert.True(t, result.Undone)
	assert.Equal(t, string(types.EventStatusChanged), result.EventType)

	after, err := e.GetIssue(ctx, task.ID)
	if err != nil {
		t.Fatalf("reloading issue: %v", err)
	}
	assert.Equal(t, "open", after.Status)
}

func TestUndoLast_NoReversibleEventReportsFalse(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "fresh", Actor: "alice"})

	result, err := e.UndoLast(ctx, task.ID, "alice")
	if err != nil {
		t.Fatalf("undoing: %v", err)
	}
	assert.False(t, result.Undone)
}

func TestUndoLast_CommentAddedReportsUndoneFalse(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "commented", Actor: "alice"})

	if _, err := e.AddComment(ctx, task.ID, "alice", "looks good"); err != nil {
		t.Fatalf("adding comment: %v", err)
	}

	result, err := e.UndoLast(ctx, task.ID, "alice")
	if err != nil {
		t.Fatalf("undoing: %v", err)
	}
	assert.False(t, result.Undone, "a comment has no inverse, so undo_last must not falsely report success")

	comments, err := e.ListComments(ctx, task.ID)
	if err != nil {
		t.Fatalf("listing comments: %v", err)
	}
	assert.Len(t, comments, 1, "the comment must still be present after a no-op undo attempt")
}

func TestAddComment_RecordsEventAndComment(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "discuss", Actor: "alice"})

	comment, err := e.AddComment(ctx, task.ID, "bob", "looks good")
	if err != nil {
		t.Fatalf("adding comment: %v", err)
	}
	assert.NotZero(t, comment.ID)

	comments, err := e.ListComments(ctx, task.ID)
	if err != nil {
		t.Fatalf("listing comments: %v", err)
	}
	if assert.Len(t, comments, 1) {
		assert.Equal(t, "looks good", comments[0].Text)
	}
}

func TestAddLabel_TolerantOfDuplicate(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "tag me", Actor: "alice"})

	if err := e.AddLabel(ctx, task.ID, "urgent", "alice"); err != nil {
		t.Fatalf("adding label: %v", err)
	}
	if err := e.AddLabel(ctx, task.ID, "urgent", "alice"); err != nil {
		t.Fatalf("re-adding label: %v", err)
	}

	labels, err := e.ListLabels(ctx, task.ID)
	if err != nil {
		t.Fatalf("listing labels: %v", err)
	}
	assert.Equal(t, []string{"urgent"}, labels)

	events, err := e.GetIssueEvents(ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("getting events: %v", err)
	}
	count := 0
	for _, ev := range events {
		if ev.EventType == types.EventLabelAdded {
			count++
		}
	}
	assert.Equal(t, 1, count, "re-adding an already-present label must not record a second label_added event")
}
