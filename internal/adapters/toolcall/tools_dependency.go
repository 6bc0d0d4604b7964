package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/types"
)

// registerDependencyTools wires the dependency-graph operations: add,
// remove, and the ready/blocked/critical-path queries built on top of it.
func registerDependencyTools(r *Registry, e *engine.Engine) {
	r.Register(&funcTool{
		name:        "add_dependency",
		description: "Record a blocking edge from issue_id to depends_on_id, rejecting cycles.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"depends_on_id":{"type":"string"},"type":{"type":"string"},"actor":{"type":"string"}},"required":["issue_id","depends_on_id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID     string `json:"issue_id"`
				DependsOnID string `json:"depends_on_id"`
				Type        string `json:"type"`
				Actor       string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			if err := e.AddDependency(ctx, in.IssueID, in.DependsOnID, in.Type, in.Actor); err != nil {
				return nil, err
			}
			return struct {
				OK bool `json:"ok"`
			}{true}, nil
		},
	})

	r.Register(&funcTool{
		name:        "remove_dependency",
		description: "Delete a blocking edge, tolerating one already absent.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"depends_on_id":{"type":"string"},"actor":{"type":"string"}},"required":["issue_id","depends_on_id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID     string `json:"issue_id"`
				DependsOnID string `json:"depends_on_id"`
				Actor       string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			if err := e.RemoveDependency(ctx, in.IssueID, in.DependsOnID, in.Actor); err != nil {
				return nil, err
			}
			return struct {
				OK bool `json:"ok"`
			}{true}, nil
		},
	})

	r.Register(&funcTool{
		name:        "get_ready",
		description: "List open-category issues with no outstanding blocker.",
		schema:      schema(`{"type":"object","properties":{"type":{"type":"string"},"priority_min":{"type":"integer"},"priority_max":{"type":"integer"},"limit":{"type":"integer"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Type        string `json:"type"`
				PriorityMin *int   `json:"priority_min"`
				PriorityMax *int   `json:"priority_max"`
				Limit       int    `json:"limit"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetReady(ctx, types.WorkFilter{
				Type: in.Type, PriorityMin: in.PriorityMin, PriorityMax: in.PriorityMax, Limit: in.Limit,
			})
		},
	})

	r.Register(&funcTool{
		name:        "get_blocked",
		description: "List open-category issues with at least one outstanding blocker.",
		schema:      schema(`{"type":"object","properties":{}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			return e.GetBlocked(ctx)
		},
	})

	r.Register(&funcTool{
		name:        "get_critical_path",
		description: "Compute the longest dependency chain over the non-done subgraph.",
		schema:      schema(`{"type":"object","properties":{}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			return e.GetCriticalPath(ctx)
		},
	})
}
