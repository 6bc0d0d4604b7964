package engine

import (
	"context"
	"math"

	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/types"
)

// CreatePlan validates and materializes a milestone -> phase -> step tree
// in one logical unit: every issue and dependency is created through the
// issue/dependency engines, and the first failure aborts the whole plan
// by surfacing its error without attempting further items (P7's
// all-or-nothing guarantee). Titles must be unique within a phase so
// sibling-step `deps` references resolve unambiguously.
func (e *Engine) CreatePlan(ctx context.Context, in types.PlanInput, actor string) (*types.PlanView, error) {
	if in.Milestone.Title == "" {
		return nil, ferrors.New(ferrors.CodeValidation, "milestone title is required")
	}
	for pi, phase := range in.Phases {
		if phase.Title == "" {
			return nil, ferrors.New(ferrors.CodeValidation, "phase %d title is required", pi)
		}
		seen := map[string]bool{}
		for si, step := range phase.Steps {
			if step.Title == "" {
				return nil, ferrors.New(ferrors.CodeValidation, "phase %d step %d title is required", pi, si)
			}
			if seen[step.Title] {
				return nil, ferrors.New(ferrors.CodeValidation, "phase %d has duplicate step title %q", pi, step.Title)
			}
			seen[step.Title] = true
		}
	}

	var created []string
	fail := func(err error) (*types.PlanView, error) {
		if len(created) > 0 {
			_ = e.Store.PurgeIssues(ctx, created)
		}
		return nil, err
	}

	milestone, err := e.CreateIssue(ctx, CreateIssueInput{
		Title:       in.Milestone.Title,
		Type:        "milestone",
		Description: in.Milestone.Description,
		Actor:       actor,
	})
	if err != nil {
		return nil, err
	}
	created = append(created, milestone.ID)

	for _, phaseInput := range in.Phases {
		phase, err := e.CreateIssue(ctx, CreateIssueInput{
			Title:       phaseInput.Title,
			Type:        "phase",
			Description: phaseInput.Description,
			ParentID:    milestone.ID,
			Actor:       actor,
		})
		if err != nil {
			return fail(err)
		}
		created = append(created, phase.ID)

		titleToID := map[string]string{}
		for _, stepInput := range phaseInput.Steps {
			priority := 2
			if stepInput.Priority != nil {
				priority = *stepInput.Priority
			}
			step, err := e.CreateIssue(ctx, CreateIssueInput{
				Title:       stepInput.Title,
				Type:        "step",
				Description: stepInput.Description,
				ParentID:    phase.ID,
				Priority:    &priority,
				Fields:      stepInput.Fields,
				Actor:       actor,
			})
			if err != nil {
				return fail(err)
			}
			created = append(created, step.ID)
			titleToID[stepInput.Title] = step.ID
		}

		for _, stepInput := range phaseInput.Steps {
			stepID := titleToID[stepInput.Title]
			for _, depTitle := range stepInput.Deps {
				depID, ok := titleToID[depTitle]
				if !ok {
					return fail(ferrors.New(ferrors.CodeValidation,
						"phase %q step %q depends on unknown sibling step %q", phaseInput.Title, stepInput.Title, depTitle))
				}
				if err := e.AddDependency(ctx, stepID, depID, types.DefaultDependencyType, actor); err != nil {
					return fail(err)
				}
			}
		}
	}

	return e.GetPlan(ctx, milestone.ID)
}

// GetPlan returns the milestone's phase tree with per-phase step progress
// and an overall completion percentage.
func (e *Engine) GetPlan(ctx context.Context, milestoneID string) (*types.PlanView, error) {
	milestone, err := e.ensureIssue(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.Type != "milestone" {
		return nil, ferrors.New(ferrors.CodeValidation, "issue %q is not a milestone", milestoneID)
	}

	milestoneIDPtr := milestoneID
	phases, _, err := e.Store.ListIssues(ctx, types.IssueFilter{ParentID: &milestoneIDPtr}, types.PageRequest{Limit: 1000})
	if err != nil {
		return nil, wrapStorageErr("issue", milestoneID, err)
	}

	var progress []types.PhaseProgress
	totalSteps, totalCompleted := 0, 0
	for _, phase := range phases {
		phaseIDPtr := phase.ID
		steps, _, err := e.Store.ListIssues(ctx, types.IssueFilter{ParentID: &phaseIDPtr}, types.PageRequest{Limit: 1000})
		if err != nil {
			return nil, wrapStorageErr("issue", phase.ID, err)
		}
		pp := types.PhaseProgress{PhaseID: phase.ID, Title: phase.Title, Total: len(steps)}
		for _, step := range steps {
			pp.StepIDs = append(pp.StepIDs, step.ID)
			if e.categoryOf(step) == types.CategoryDone {
				pp.Completed++
			}
			blocked, err := e.isBlocked(ctx, step.ID)
			if err != nil {
				return nil, err
			}
			if e.categoryOf(step) == types.CategoryOpen && !blocked {
				pp.Ready++
			}
		}
		totalSteps += pp.Total
		totalCompleted += pp.Completed
		progress = append(progress, pp)
	}

	pct := 0.0
	if totalSteps > 0 {
		pct = math.Round(float64(totalCompleted)/float64(totalSteps)*1000) / 10
	}

	return &types.PlanView{
		MilestoneID: milestoneID,
		Title:       milestone.Title,
		Phases:      progress,
		ProgressPct: pct,
	}, nil
}
