package toolcall

import (
	"context"
	"encoding/json"

	"github.com/tachyon-beep/filigree/internal/ferrors"
)

// funcTool adapts a plain Go function into a Tool, handling the
// params-decode -> call -> envelope-translate boilerplate every tool
// otherwise repeats. Decode failures (including a JSON type mismatch like
// a float or bool where an int is expected) surface as validation_error,
// matching the boundary's shape rule without needing extra checks per
// field.
type funcTool struct {
	name        string
	description string
	schema      json.RawMessage
	fn          func(ctx context.Context, raw json.RawMessage) (any, error)
}

func (t *funcTool) Name() string                  { return t.name }
func (t *funcTool) Description() string           { return t.description }
func (t *funcTool) InputSchema() json.RawMessage  { return t.schema }
func (t *funcTool) Execute(ctx context.Context, params json.RawMessage) (*ToolsCallResult, error) {
	result, err := t.fn(ctx, params)
	if err != nil {
		return ErrorResult(envelopeFor(err)), nil
	}
	return JSONResult(result)
}

// decodeParams unmarshals raw into dst, translating a malformed or
// mistyped argument object into a validation_error rather than an
// internal one.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return ferrors.Wrap(ferrors.CodeValidation, err, "decoding arguments")
	}
	return nil
}

// envelopeFor translates an engine failure into the tool-call contract's
// {error, code} body, passing through the valid_transitions and
// missing_fields hints of the first *ferrors.Error in the wrap chain.
func envelopeFor(err error) toolError {
	te := toolError{Error: err.Error(), Code: string(ferrors.CodeOf(err))}
	var fe *ferrors.Error
	cur := err
	for cur != nil {
		if asFe, ok := cur.(*ferrors.Error); ok {
			fe = asFe
			break
		}
		u, ok := cur.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cur = u.Unwrap()
	}
	if fe != nil {
		te.ValidTransitions = fe.ValidTransitions
		te.MissingFields = fe.MissingFields
	}
	return te
}

func schema(v string) json.RawMessage { return json.RawMessage(v) }
