package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/types"
)

// registerPlanningTools wires the milestone -> phase -> step planning
// surface and the flow-analytics queries built over the closed event log.
func registerPlanningTools(r *Registry, e *engine.Engine) {
	r.Register(&funcTool{
		name:        "create_plan",
		description: "Materialize a milestone/phase/step tree in one all-or-nothing call.",
		schema:      schema(`{"type":"object","properties":{"milestone":{"type":"object"},"phases":{"type":"array"},"actor":{"type":"string"}},"required":["milestone","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				types.PlanInput
				Actor string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.CreatePlan(ctx, in.PlanInput, in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "get_plan",
		description: "Fetch a milestone's phase tree with per-phase step progress.",
		schema:      schema(`{"type":"object","properties":{"milestone_id":{"type":"string"}},"required":["milestone_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				MilestoneID string `json:"milestone_id"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetPlan(ctx, in.MilestoneID)
		},
	})

	r.Register(&funcTool{
		name:        "get_flow_metrics",
		description: "Derive cycle time, lead time, and throughput over a trailing window.",
		schema:      schema(`{"type":"object","properties":{"window_days":{"type":"integer"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				WindowDays int `json:"window_days"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.ComputeFlowMetrics(ctx, in.WindowDays)
		},
	})
}
