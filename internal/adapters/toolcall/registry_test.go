package toolcall

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.Register(&funcTool{
		name:        "ping",
		description: "replies pong",
		schema:      schema(`{"type":"object"}`),
		fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			return "pong", nil
		},
	})

	defs := r.List()
	if assert.Len(t, defs, 1) {
		assert.Equal(t, "ping", defs[0].Name)
		assert.Equal(t, "replies pong", defs[0].Description)
	}
	assert.NotNil(t, r.Get("ping"))
	assert.Nil(t, r.Get("missing"))
}

func TestRegistry_Register_PanicsOnDuplicateName(t *testing.T) {
	r := NewRegistry()
	mk := func() *funcTool {
		return &funcTool{name: "dup", schema: schema(`{}`), fn: func(ctx context.Context, raw json.RawMessage) (any, error) {
			return nil, nil
		}}
	}
	r.Register(mk())

	defer func() {
		if recover() == nil {
			t.Fatalf("expected registering a duplicate tool name to panic")
		}
	}()
	r.Register(mk())
}

func TestRegisterAll_WiresExpectedTools(t *testing.T) {
	e, _ := newTestEngine(t)
	r := NewRegistry()
	RegisterAll(r, e)

	for _, name := range []string{
		"create_issue", "get_issue", "list_issues", "update_issue", "close_issue",
		"claim_issue", "claim_next", "add_dependency", "remove_dependency", "get_ready",
		"create_plan", "get_plan", "register_file", "process_scan_results",
		"list_types", "get_events_since",
	} {
		if r.Get(name) == nil {
			t.Errorf("expected tool %q to be registered by RegisterAll", name)
		}
	}
}

func TestFuncTool_Execute_TranslatesEngineErrorsToToolError(t *testing.T) {
	e, ctx := newTestEngine(t)
	r := NewRegistry()
	RegisterAll(r, e)

	tool := r.Get("get_issue")
	if tool == nil {
		t.Fatalf("get_issue not registered")
	}

	result, err := tool.Execute(ctx, json.RawMessage(`{"id":"demo-missing"}`))
	if err != nil {
		t.Fatalf("Execute returned a transport error: %v", err)
	}
	assert.True(t, result.IsError)
	if assert.Len(t, result.Content, 1) {
		var body toolError
		if err := json.Unmarshal([]byte(result.Content[0].Text), &body); err != nil {
			t.Fatalf("decoding tool error body: %v", err)
		}
		assert.Equal(t, "not_found", body.Code)
	}
}

func TestFuncTool_Execute_SucceedsAndEnvelopesJSON(t *testing.T) {
	e, ctx := newTestEngine(t)
	r := NewRegistry()
	RegisterAll(r, e)

	tool := r.Get("create_issue")
	if tool == nil {
		t.Fatalf("create_issue not registered")
	}

	result, err := tool.Execute(ctx, json.RawMessage(`{"title":"wired through the tool registry","actor":"alice"}`))
	if err != nil {
		t.Fatalf("Execute returned a transport error: %v", err)
	}
	assert.False(t, result.IsError)
	if assert.Len(t, result.Content, 1) {
		assert.Contains(t, result.Content[0].Text, "wired through the tool registry")
	}
}
