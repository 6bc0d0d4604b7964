package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tachyon-beep/filigree/internal/ferrors"
)

type errorBody struct {
	Error struct {
		Message          string   `json:"message"`
		Code             string   `json:"code"`
		ValidTransitions []string `json:"valid_transitions,omitempty"`
		MissingFields    []string `json:"missing_fields,omitempty"`
	} `json:"error"`
}

// statusFor maps a ferrors.Code onto the spec's three response classes:
// 400 for a malformed request, 404 for a missing resource, 422 for a
// request that is well-formed but violates a workflow rule. Codes with no
// clean fit default to 500.
func statusFor(code ferrors.Code) int {
	switch code {
	case ferrors.CodeValidation, ferrors.CodeInvalidPath:
		return http.StatusBadRequest
	case ferrors.CodeNotFound:
		return http.StatusNotFound
	case ferrors.CodeInvalid, ferrors.CodeInvalidTransition, ferrors.CodeAlreadyClaimed,
		ferrors.CodeWouldCreateCycle, ferrors.CodeConflict:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the {error: {message, code}} body the
// contract specifies, at the status statusFor derives from its code.
func writeError(w http.ResponseWriter, err error) {
	code := ferrors.CodeOf(err)
	var body errorBody
	body.Error.Message = err.Error()
	body.Error.Code = string(code)

	var fe *ferrors.Error
	cur := error(err)
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
		body.Error.ValidTransitions = fe.ValidTransitions
		body.Error.MissingFields = fe.MissingFields
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, ferrors.New(ferrors.CodeValidation, "%s", message))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return ferrors.Wrap(ferrors.CodeValidation, err, "decoding request body")
	}
	return nil
}
