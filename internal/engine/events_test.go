package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIssueEvents_NewestFirst(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "tracked", Actor: "alice"})

	status := "in_progress"
	if _, _, err := e.UpdateIssue(ctx, task.ID, UpdateIssueInput{Status: &status, Actor: "alice"}); err != nil {
		t.Fatalf("updating: %v", err)
	}

	events, err := e.GetIssueEvents(ctx, task.ID, 10)
	if err != nil {
		t.Fatalf("getting events: %v", err)
	}
	if assert.Len(t, events, 2) {
		assert.Equal(t, "status_changed", string(events[0].EventType))
		assert.Equal(t, "created", string(events[1].EventType))
	}
}

func TestGetRecentEvents_ReturnsTheLatestEventsNewestFirstPastTheLimit(t *testing.T) {
	e, ctx := newTestEngine(t)
	for i := 0; i < 5; i++ {
		mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "issue", Actor: "alice"})
	}

	recent, err := e.GetRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("getting recent events: %v", err)
	}
	if assert.Len(t, recent, 2) {
		assert.Greater(t, recent[0].ID, recent[1].ID, "recent events should be newest first")
		all, err := e.GetEventsSince(ctx, 0, 100)
		if err != nil {
			t.Fatalf("getting all events: %v", err)
		}
		assert.Equal(t, all[len(all)-1].ID, recent[0].ID, "the limited recent-events window should contain the latest activity, not the earliest")
	}
}

func TestGetEventsSince_OnlyReturnsNewerEvents(t *testing.T) {
	e, ctx := newTestEngine(t)
	first := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "first", Actor: "alice"})

	initial, err := e.GetEventsSince(ctx, 0, 100)
	if err != nil {
		t.Fatalf("getting initial events: %v", err)
	}
	cursor := initial[len(initial)-1].ID

	mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "second", Actor: "alice"})

	after, err := e.GetEventsSince(ctx, cursor, 100)
	if err != nil {
		t.Fatalf("getting events since cursor: %v", err)
	}
	for _, ev := range after {
		assert.Greater(t, ev.ID, cursor)
		assert.NotEqual(t, first.ID, ev.IssueID)
	}
	assert.NotEmpty(t, after)
}
