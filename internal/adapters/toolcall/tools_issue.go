package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/types"
)

// registerIssueTools wires every issue CRUD, claim, batch, comment, and
// label operation the tool-call surface names.
func registerIssueTools(r *Registry, e *engine.Engine) {
	r.Register(&funcTool{
		name:        "create_issue",
		description: "Create a new issue.",
		schema:      schema(`{"type":"object","properties":{"title":{"type":"string"},"type":{"type":"string"},"priority":{"type":"integer"},"parent_id":{"type":"string"},"assignee":{"type":"string"},"description":{"type":"string"},"notes":{"type":"string"},"fields":{"type":"object"},"status":{"type":"string"},"actor":{"type":"string"}},"required":["title","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Title       string                 `json:"title"`
				Type        string                 `json:"type"`
				Priority    *int                   `json:"priority"`
				ParentID    string                 `json:"parent_id"`
				Assignee    string                 `json:"assignee"`
				Description string                 `json:"description"`
				Notes       string                 `json:"notes"`
				Fields      map[string]interface{} `json:"fields"`
				Status      string                 `json:"status"`
				Actor       string                 `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.CreateIssue(ctx, engine.CreateIssueInput{
				Title: in.Title, Type: in.Type, Priority: in.Priority, ParentID: in.ParentID,
				Assignee: in.Assignee, Description: in.Description, Notes: in.Notes,
				Fields: in.Fields, Status: in.Status, Actor: in.Actor,
			})
		},
	})

	r.Register(&funcTool{
		name:        "get_issue",
		description: "Fetch a single issue by id.",
		schema:      schema(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				ID string `json:"id"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.GetIssue(ctx, in.ID)
		},
	})

	r.Register(&funcTool{
		name:        "list_issues",
		description: "List issues matching an optional filter, paginated.",
		schema:      schema(`{"type":"object","properties":{"status":{"type":"string"},"type":{"type":"string"},"priority":{"type":"integer"},"assignee":{"type":"string"},"parent_id":{"type":"string"},"labels":{"type":"array","items":{"type":"string"}},"labels_any":{"type":"array","items":{"type":"string"}},"limit":{"type":"integer"},"offset":{"type":"integer"},"sort":{"type":"string"},"direction":{"type":"string"}}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Status    *string  `json:"status"`
				Type      *string  `json:"type"`
				Priority  *int     `json:"priority"`
				Assignee  *string  `json:"assignee"`
				ParentID  *string  `json:"parent_id"`
				Labels    []string `json:"labels"`
				LabelsAny []string `json:"labels_any"`
				Limit     int      `json:"limit"`
				Offset    int      `json:"offset"`
				Sort      string   `json:"sort"`
				Direction string   `json:"direction"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			issues, total, err := e.ListIssues(ctx, types.IssueFilter{
				Status: in.Status, Type: in.Type, Priority: in.Priority, Assignee: in.Assignee,
				ParentID: in.ParentID, Labels: in.Labels, LabelsAny: in.LabelsAny,
			}, types.PageRequest{Sort: in.Sort, Direction: in.Direction, Limit: in.Limit, Offset: in.Offset})
			if err != nil {
				return nil, err
			}
			return struct {
				Issues []*types.Issue `json:"issues"`
				Total  int            `json:"total"`
			}{issues, total}, nil
		},
	})

	r.Register(&funcTool{
		name:        "update_issue",
		description: "Apply field changes to an issue, validating any status transition.",
		schema:      schema(`{"type":"object","properties":{"id":{"type":"string"},"status":{"type":"string"},"priority":{"type":"integer"},"title":{"type":"string"},"assignee":{"type":"string"},"description":{"type":"string"},"notes":{"type":"string"},"parent_id":{"type":"string"},"fields":{"type":"object"},"actor":{"type":"string"},"skip_transition_check":{"type":"boolean"}},"required":["id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				ID                  string                 `json:"id"`
				Status              *string                `json:"status"`
				Priority            *int                   `json:"priority"`
				Title               *string                `json:"title"`
				Assignee            *string                `json:"assignee"`
				Description         *string                `json:"description"`
				Notes               *string                `json:"notes"`
				ParentID            *string                `json:"parent_id"`
				Fields              map[string]interface{} `json:"fields"`
				Actor               string                 `json:"actor"`
				SkipTransitionCheck bool                   `json:"skip_transition_check"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			issue, warnings, err := e.UpdateIssue(ctx, in.ID, engine.UpdateIssueInput{
				Status: in.Status, Priority: in.Priority, Title: in.Title, Assignee: in.Assignee,
				Description: in.Description, Notes: in.Notes, ParentID: in.ParentID, Fields: in.Fields,
				Actor: in.Actor, SkipTransitionCheck: in.SkipTransitionCheck,
			})
			if err != nil {
				return nil, err
			}
			return struct {
				Issue    *types.Issue      `json:"issue"`
				Warnings []ferrors.Warning `json:"warnings,omitempty"`
			}{issue, warnings}, nil
		},
	})

	r.Register(&funcTool{
		name:        "close_issue",
		description: "Transition an issue to its terminal state, optionally with a reason.",
		schema:      schema(`{"type":"object","properties":{"id":{"type":"string"},"reason":{"type":"string"},"actor":{"type":"string"}},"required":["id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				ID     string `json:"id"`
				Reason string `json:"reason"`
				Actor  string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			issue, unblocked, err := e.CloseIssue(ctx, in.ID, in.Reason, in.Actor)
			if err != nil {
				return nil, err
			}
			return struct {
				Issue          *types.Issue   `json:"issue"`
				NewlyUnblocked []*types.Issue `json:"newly_unblocked,omitempty"`
			}{issue, unblocked}, nil
		},
	})

	r.Register(&funcTool{
		name:        "reopen_issue",
		description: "Reset a done-category issue back to its type's initial state.",
		schema:      schema(`{"type":"object","properties":{"id":{"type":"string"},"actor":{"type":"string"}},"required":["id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				ID    string `json:"id"`
				Actor string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.ReopenIssue(ctx, in.ID, in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "claim_issue",
		description: "Assign an unclaimed, open-category issue to assignee.",
		schema:      schema(`{"type":"object","properties":{"id":{"type":"string"},"assignee":{"type":"string"},"actor":{"type":"string"}},"required":["id","assignee","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				ID       string `json:"id"`
				Assignee string `json:"assignee"`
				Actor    string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.ClaimIssue(ctx, in.ID, in.Assignee, in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "claim_next",
		description: "Claim the highest-priority ready issue matching an optional filter.",
		schema:      schema(`{"type":"object","properties":{"assignee":{"type":"string"},"type":{"type":"string"},"priority_min":{"type":"integer"},"priority_max":{"type":"integer"},"actor":{"type":"string"}},"required":["assignee","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Assignee    string `json:"assignee"`
				Type        string `json:"type"`
				PriorityMin *int   `json:"priority_min"`
				PriorityMax *int   `json:"priority_max"`
				Actor       string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.ClaimNext(ctx, in.Assignee, types.WorkFilter{
				Type: in.Type, PriorityMin: in.PriorityMin, PriorityMax: in.PriorityMax,
			}, in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "release_claim",
		description: "Clear an issue's assignee if actor currently holds the claim.",
		schema:      schema(`{"type":"object","properties":{"id":{"type":"string"},"actor":{"type":"string"}},"required":["id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				ID    string `json:"id"`
				Actor string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.ReleaseClaim(ctx, in.ID, in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "batch_close",
		description: "Close multiple issues, collecting per-item errors without aborting the batch.",
		schema:      schema(`{"type":"object","properties":{"ids":{"type":"array","items":{"type":"string"}},"reason":{"type":"string"},"actor":{"type":"string"}},"required":["ids","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IDs    []string `json:"ids"`
				Reason string   `json:"reason"`
				Actor  string   `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			closed, errs := e.BatchClose(ctx, in.IDs, in.Reason, in.Actor)
			return struct {
				Closed []*types.Issue          `json:"closed"`
				Errors []engine.BatchItemError `json:"errors,omitempty"`
			}{closed, errs}, nil
		},
	})

	r.Register(&funcTool{
		name:        "batch_update",
		description: "Apply the same field changes to multiple issues.",
		schema:      schema(`{"type":"object","properties":{"ids":{"type":"array","items":{"type":"string"}},"fields":{"type":"object"},"actor":{"type":"string"}},"required":["ids","fields","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IDs    []string               `json:"ids"`
				Fields map[string]interface{} `json:"fields"`
				Actor  string                 `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			updated, errs := e.BatchUpdate(ctx, in.IDs, in.Fields, in.Actor)
			return struct {
				Updated []*types.Issue          `json:"updated"`
				Errors  []engine.BatchItemError `json:"errors,omitempty"`
			}{updated, errs}, nil
		},
	})

	r.Register(&funcTool{
		name:        "undo_last",
		description: "Undo the most recent reversible event recorded against an issue.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"actor":{"type":"string"}},"required":["issue_id","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
				Actor   string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.UndoLast(ctx, in.IssueID, in.Actor)
		},
	})

	r.Register(&funcTool{
		name:        "add_comment",
		description: "Append a comment to an issue.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"text":{"type":"string"},"actor":{"type":"string"}},"required":["issue_id","text","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
				Text    string `json:"text"`
				Actor   string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			return e.AddComment(ctx, in.IssueID, in.Actor, in.Text)
		},
	})

	r.Register(&funcTool{
		name:        "list_comments",
		description: "List an issue's comments in chronological order.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"}},"required":["issue_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.ListComments(ctx, in.IssueID)
		},
	})

	r.Register(&funcTool{
		name:        "add_label",
		description: "Attach a label to an issue.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"label":{"type":"string"},"actor":{"type":"string"}},"required":["issue_id","label","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
				Label   string `json:"label"`
				Actor   string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			if err := e.AddLabel(ctx, in.IssueID, in.Label, in.Actor); err != nil {
				return nil, err
			}
			return struct {
				OK bool `json:"ok"`
			}{true}, nil
		},
	})

	r.Register(&funcTool{
		name:        "remove_label",
		description: "Detach a label from an issue.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"},"label":{"type":"string"},"actor":{"type":"string"}},"required":["issue_id","label","actor"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
				Label   string `json:"label"`
				Actor   string `json:"actor"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			if err := validateActor(in.Actor); err != nil {
				return nil, err
			}
			if err := e.RemoveLabel(ctx, in.IssueID, in.Label, in.Actor); err != nil {
				return nil, err
			}
			return struct {
				OK bool `json:"ok"`
			}{true}, nil
		},
	})

	r.Register(&funcTool{
		name:        "list_labels",
		description: "List every label attached to an issue.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"}},"required":["issue_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return e.ListLabels(ctx, in.IssueID)
		},
	})
}
