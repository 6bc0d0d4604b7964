package templates

import "github.com/tachyon-beep/filigree/internal/types"

// MissingFields returns which of a transition's required fields are absent
// or empty in the issue's current field map.
func MissingFields(requires []string, fields map[string]interface{}) []string {
	var missing []string
	for _, name := range requires {
		v, ok := fields[name]
		if !ok || v == nil || v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// ValidateTransition checks whether moving an issue of the given type from
// one state to another is permitted. A transition undeclared by the
// template is always rejected. A declared soft transition with missing
// required fields is permitted but reports the gaps as warnings; a hard
// transition with missing required fields is rejected.
func ValidateTransition(tmpl types.Template, from, to string, fields map[string]interface{}) (ok bool, missing []string, err error) {
	if from == to {
		return true, nil, nil
	}
	tr, declared := tmpl.FindTransition(from, to)
	if !declared {
		return false, nil, nil
	}
	missing = MissingFields(tr.RequiresFields, fields)
	if len(missing) > 0 && tr.Enforcement == types.EnforcementHard {
		return false, missing, nil
	}
	return true, missing, nil
}

// ValidTransitions computes the full set of outbound transitions available
// from an issue's current state, annotated with readiness against its
// current field values. This is the backing computation for
// get_valid_transitions.
func ValidTransitions(tmpl types.Template, from string, fields map[string]interface{}) []types.ValidTransition {
	out := make([]types.ValidTransition, 0, 4)
	for _, tr := range tmpl.OutboundTransitions(from) {
		missing := MissingFields(tr.RequiresFields, fields)
		ready := true
		if len(missing) > 0 && tr.Enforcement == types.EnforcementHard {
			ready = false
		}
		out = append(out, types.ValidTransition{
			To:             tr.ToState,
			Category:       tmpl.StateCategory(tr.ToState),
			Enforcement:    tr.Enforcement,
			RequiresFields: tr.RequiresFields,
			MissingFields:  missing,
			Ready:          ready,
		})
	}
	return out
}
