package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/types"
)

// registerEventTools wires the append-only event log: per-issue history,
// the cross-issue activity feed, cursor-based resumption, and the
// retention operations that prune it.
func registerEventTools(r *Registry, e *engine.Engine) {
	r.Register(&funcTool{
		name:        "get_issue_events",
		description: "List an issue's event history, newest first.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"limit":{"type":"integer"}},"required":["issue_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
				Limit   int    `json:"limit"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetIssueEvents(ctx, in.IssueID, in.Limit)
		},
	})

	r.Register(&funcTool{
		name:        "get_recent_events",
		description: "List the most recent events across every issue, newest first.",
		schema:      schema(`{"type":"object","properties":{"limit":{"type":"integer"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetRecentEvents(ctx, in.Limit)
		},
	})

	r.Register(&funcTool{
		name:        "get_events_since",
		description: "List every event with id greater than a cursor, ascending, for session resumption.",
		schema:      schema(`{"type":"object","properties":{"cursor":{"type":"integer"},"limit":{"type":"integer"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Cursor int64 `json:"cursor"`
				Limit  int   `json:"limit"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetEventsSince(ctx, in.Cursor, in.Limit)
		},
	})

	r.Register(&funcTool{
		name:        "archive_closed",
		description: "Export and delete every issue closed before a cutoff, along with its dependent rows.",
		schema:      schema(`{"type":"object","properties":{"older_than_days":{"type":"integer"}},"required":["older_than_days"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				OlderThanDays int `json:"older_than_days"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			archived, err := e.ArchiveClosed(ctx, in.OlderThanDays)
			if err != nil {
				return nil, err
			}
			return struct {
				Archived []*types.Issue `json:"archived"`
			}{archived}, nil
		},
	})

	r.Register(&funcTool{
		name:        "compact_events",
		description: "Truncate event rows older than a cutoff across all issues regardless of status.",
		schema:      schema(`{"type":"object","properties":{"older_than_days":{"type":"integer"}},"required":["older_than_days"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				OlderThanDays int `json:"older_than_days"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			n, err := e.CompactEvents(ctx, in.OlderThanDays)
			if err != nil {
				return nil, err
			}
			return struct {
				Deleted int64 `json:"deleted"`
			}{n}, nil
		},
	})
}
