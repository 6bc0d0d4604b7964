package types

// Enforcement governs whether a missing required field blocks a transition
// (hard) or merely produces a warning (soft).
type Enforcement string

const (
	EnforcementHard Enforcement = "hard"
	EnforcementSoft Enforcement = "soft"
)

// FieldType enumerates the value kinds a template's field schema may declare.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldEnum   FieldType = "enum"
	FieldList   FieldType = "list"
)

// State is a single named state in a type's workflow, classified into one
// of the three universal categories.
type State struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Transition is a directed edge between two states under a type.
type Transition struct {
	FromState      string      `json:"from_state"`
	ToState        string      `json:"to_state"`
	Enforcement    Enforcement `json:"enforcement"`
	RequiresFields []string    `json:"requires_fields,omitempty"`
}

// FieldDef describes one entry in a type's field schema.
type FieldDef struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	EnumValues  []string  `json:"enum_values,omitempty"`
	RequiredAt  string    `json:"required_at,omitempty"` // state name, empty = never required
}

// Template is the type-scoped workflow definition.
type Template struct {
	Type         string       `json:"type"`
	DisplayName  string       `json:"display_name"`
	Description  string       `json:"description,omitempty"`
	Pack         string       `json:"pack"`
	InitialState string       `json:"initial_state"`
	States       []State      `json:"states"`
	Transitions  []Transition `json:"transitions"`
	FieldSchema  []FieldDef   `json:"field_schema,omitempty"`
}

// StateCategory looks up the category of a named state, falling back to
// InferCategory when the state is not declared by the template.
func (t *Template) StateCategory(name string) Category {
	for _, s := range t.States {
		if s.Name == name {
			return s.Category
		}
	}
	return InferCategory(name)
}

// FindTransition returns the declared transition for (from, to), if any.
func (t *Template) FindTransition(from, to string) (Transition, bool) {
	for _, tr := range t.Transitions {
		if tr.FromState == from && tr.ToState == to {
			return tr, true
		}
	}
	return Transition{}, false
}

// TerminalState returns the first declared state with category done, used
// by close_issue to pick the status to transition into.
func (t *Template) TerminalState() (string, bool) {
	for _, s := range t.States {
		if s.Category == CategoryDone {
			return s.Name, true
		}
	}
	return "", false
}

// FieldByName looks up a field schema entry by name.
func (t *Template) FieldByName(name string) (FieldDef, bool) {
	for _, f := range t.FieldSchema {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// OutboundTransitions returns the transitions leading out of a given state.
func (t *Template) OutboundTransitions(from string) []Transition {
	var out []Transition
	for _, tr := range t.Transitions {
		if tr.FromState == from {
			out = append(out, tr)
		}
	}
	return out
}

// Pack groups templates under a named, versioned bundle.
type Pack struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	Enabled           bool     `json:"enabled"`
	IsBuiltin         bool     `json:"is_builtin"`
	Types             []string `json:"types"`
	Guide             string   `json:"guide,omitempty"`
	SuggestedChildren []string `json:"suggested_children,omitempty"`
}

// ValidTransition is the resolved, issue-specific view of one outbound
// transition returned by get_valid_transitions.
type ValidTransition struct {
	To             string      `json:"to"`
	Category       Category    `json:"category"`
	Enforcement    Enforcement `json:"enforcement"`
	RequiresFields []string    `json:"requires_fields,omitempty"`
	MissingFields  []string    `json:"missing_fields,omitempty"`
	Ready          bool        `json:"ready"`
}
