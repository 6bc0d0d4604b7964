package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/types"
)

func TestComputeFlowMetrics_CountsClosedIssueThroughput(t *testing.T) {
	e, ctx := newTestEngine(t)
	task := mustCreateIssue(t, e, ctx, CreateIssueInput{Title: "flows through", Actor: "alice"})

	status := "in_progress"
	if _, _, err := e.UpdateIssue(ctx, task.ID, UpdateIssueInput{Status: &status, Actor: "alice"}); err != nil {
		t.Fatalf("moving to in_progress: %v", err)
	}
	if _, _, err := e.CloseIssue(ctx, task.ID, "", "alice"); err != nil {
		t.Fatalf("closing: %v", err)
	}

	metrics, err := e.ComputeFlowMetrics(ctx, 30)
	if err != nil {
		t.Fatalf("computing flow metrics: %v", err)
	}

	total := 0
	for _, n := range metrics.Throughput {
		total += n
	}
	assert.Equal(t, 1, total)
	assert.GreaterOrEqual(t, metrics.LeadTimeMean, 0.0)
}

func TestFindFirstTransitions_RecognizesTemplateSpecificTerminalStateName(t *testing.T) {
	e, _ := newTestEngine(t)

	start := time.Now().UTC()
	middle := start.Add(time.Hour)
	end := start.Add(3 * time.Hour)

	planned, inProgress, frozen, released := "planned", "in_progress", "frozen", "released"
	events := []*types.Event{
		{EventType: types.EventStatusChanged, OldValue: &planned, NewValue: &inProgress, CreatedAt: start},
		{EventType: types.EventStatusChanged, OldValue: &inProgress, NewValue: &frozen, CreatedAt: middle},
		{EventType: types.EventStatusChanged, OldValue: &frozen, NewValue: &released, CreatedAt: end},
	}
	// ListEvents (and thus findFirstTransitions' input) is newest-first.
	newestFirst := []*types.Event{events[2], events[1], events[0]}

	firstOut, firstDone := e.findFirstTransitions("release", newestFirst)
	if assert.NotNil(t, firstOut) {
		assert.Equal(t, start, firstOut.CreatedAt)
	}
	if assert.NotNil(t, firstDone, `"released" is a done-category state for the release template even though it is not one of the generic done/closed/completed names`) {
		assert.Equal(t, end, firstDone.CreatedAt)
	}
}

func TestComputeFlowMetrics_EmptyWindowYieldsZeroMeans(t *testing.T) {
	e, ctx := newTestEngine(t)

	metrics, err := e.ComputeFlowMetrics(ctx, 7)
	if err != nil {
		t.Fatalf("computing flow metrics: %v", err)
	}
	assert.Equal(t, 0.0, metrics.CycleTimeMean)
	assert.Equal(t, 0.0, metrics.LeadTimeMean)
	assert.Empty(t, metrics.Throughput)
}
