package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/types"
)

func TestCreatePlan_ResolvesSiblingStepDeps(t *testing.T) {
	e, ctx := newTestEngine(t)

	in := types.PlanInput{
		Milestone: types.PlanMilestoneInput{Title: "ship v2"},
		Phases: []types.PlanPhaseInput{
			{
				Title: "build",
				Steps: []types.PlanStepInput{
					{Title: "design schema"},
					{Title: "implement migration", Deps: []string{"design schema"}},
				},
			},
		},
	}

	view, err := e.CreatePlan(ctx, in, "alice")
	if err != nil {
		t.Fatalf("creating plan: %v", err)
	}

	assert.Equal(t, "ship v2", view.Title)
	assert.Equal(t, 0.0, view.ProgressPct)
	if assert.Len(t, view.Phases, 1) {
		phase := view.Phases[0]
		assert.Equal(t, 2, phase.Total)
		assert.Equal(t, 1, phase.Ready, "only the step with no unmet deps should be ready")
	}

	ready, err := e.GetReady(ctx, types.WorkFilter{})
	if err != nil {
		t.Fatalf("getting ready: %v", err)
	}
	// The milestone and phase are open and unblocked too, so they precede
	// the one ready step in creation order.
	assert.Len(t, ready, 3)
	assert.Equal(t, "design schema", ready[2].Title)
}

func TestCreatePlan_UnknownSiblingDepFailsAllOrNothing(t *testing.T) {
	e, ctx := newTestEngine(t)

	in := types.PlanInput{
		Milestone: types.PlanMilestoneInput{Title: "bad plan"},
		Phases: []types.PlanPhaseInput{
			{
				Title: "only phase",
				Steps: []types.PlanStepInput{
					{Title: "lonely step", Deps: []string{"nonexistent step"}},
				},
			},
		},
	}

	_, err := e.CreatePlan(ctx, in, "alice")
	if err == nil {
		t.Fatalf("expected plan creation to fail on an unresolved sibling dependency")
	}

	all, _, err := e.ListIssues(ctx, types.IssueFilter{}, types.PageRequest{Limit: 1000})
	if err != nil {
		t.Fatalf("listing issues: %v", err)
	}
	assert.Empty(t, all, "a failed plan creation must leave no partial issues behind")
}

func TestCreatePlan_DuplicateStepTitleRejected(t *testing.T) {
	e, ctx := newTestEngine(t)

	in := types.PlanInput{
		Milestone: types.PlanMilestoneInput{Title: "dup"},
		Phases: []types.PlanPhaseInput{
			{
				Title: "phase",
				Steps: []types.PlanStepInput{
					{Title: "same"},
					{Title: "same"},
				},
			},
		},
	}

	_, err := e.CreatePlan(ctx, in, "alice")
	if err == nil {
		t.Fatalf("expected duplicate step titles within a phase to be rejected")
	}
}
