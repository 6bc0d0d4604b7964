package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/engine"
	"github.com/tachyon-beep/filigree/internal/ferrors"
	"github.com/tachyon-beep/filigree/internal/templates"
	"github.com/tachyon-beep/filigree/internal/types"
)

// registerTemplateTools wires read-only introspection over the loaded
// workflow packs: types, their states and transitions, and the
// issue-specific resolution of what moves are currently legal.
func registerTemplateTools(r *Registry, e *engine.Engine) {
	templateFor := func(issueType string) (types.Template, error) {
		tmpl, ok := e.Templates.Current().Template(issueType)
		if !ok {
			return types.Template{}, ferrors.New(ferrors.CodeNotFound, "unknown issue type %q", issueType)
		}
		return tmpl, nil
	}

	r.Register(&funcTool{
		name:        "list_types",
		description: "List every issue type declared by the loaded workflow packs.",
		schema:      schema(`{"type":"object","properties":{}}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			return struct {
				Types []string `json:"types"`
			}{e.Templates.Current().Types()}, nil
		},
	})

	r.Register(&funcTool{
		name:        "get_type_info",
		description: "Fetch a type's full workflow definition: states, transitions, and field schema.",
		schema:      schema(`{"type":"object","properties":{"type":{"type":"string"}},"required":["type"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Type string `json:"type"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			return templateFor(in.Type)
		},
	})

	r.Register(&funcTool{
		name:        "get_valid_transitions",
		description: "Resolve the outbound moves legal for an issue's current state, flagging which are field-ready.",
		schema:      schema(`{"type":"object","properties":{"issue_id":{"type":"string"}},"required":["issue_id"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				IssueID string `json:"issue_id"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			issue, err := e.GetIssue(ctx, in.IssueID)
			if err != nil {
				return nil, err
			}
			tmpl, err := templateFor(issue.Type)
			if err != nil {
				return nil, err
			}
			return struct {
				Transitions []types.ValidTransition `json:"transitions"`
			}{templates.ValidTransitions(tmpl, issue.Status, issue.Fields)}, nil
		},
	})

	r.Register(&funcTool{
		name:        "explain_state",
		description: "Describe a named state within a type's workflow: its category and outbound transitions.",
		schema:      schema(`{"type":"object","properties":{"type":{"type":"string"},"state":{"type":"string"}},"required":["type","state"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Type  string `json:"type"`
				State string `json:"state"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			tmpl, err := templateFor(in.Type)
			if err != nil {
				return nil, err
			}
			_, terminal := tmpl.TerminalState()
			return struct {
				State       string             `json:"state"`
				Category    types.Category     `json:"category"`
				IsTerminal  bool               `json:"is_terminal"`
				Transitions []types.Transition `json:"outbound_transitions"`
			}{
				State:       in.State,
				Category:    tmpl.StateCategory(in.State),
				IsTerminal:  terminal == in.State,
				Transitions: tmpl.OutboundTransitions(in.State),
			}, nil
		},
	})

	r.Register(&funcTool{
		name:        "get_workflow_guide",
		description: "Fetch the prose guide for the pack that declares a type, if one was authored.",
		schema:      schema(`{"type":"object","properties":{"type":{"type":"string"}},"required":["type"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Type string `json:"type"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			tmpl, err := templateFor(in.Type)
			if err != nil {
				return nil, err
			}
			for _, p := range e.Templates.Current().Packs() {
				if p.Name == tmpl.Pack {
					return struct {
						Pack  string `json:"pack"`
						Guide string `json:"guide"`
					}{p.Name, p.Guide}, nil
				}
			}
			return nil, ferrors.New(ferrors.CodeNotFound, "pack %q not found", tmpl.Pack)
		},
	})

	r.Register(&funcTool{
		name:        "get_workflow_states",
		description: "List the declared states for a type, each tagged with its universal category.",
		schema:      schema(`{"type":"object","properties":{"type":{"type":"string"}},"required":["type"]}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in struct {
				Type string `json:"type"`
			}
			if err := decodeParams(raw, &in); err != nil {
				return nil, err
			}
			tmpl, err := templateFor(in.Type)
			if err != nil {
				return nil, err
			}
			return struct {
				States []types.State `json:"states"`
			}{tmpl.States}, nil
		},
	})
}
