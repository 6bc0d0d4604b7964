package types

import "testing"

func TestComputeContentHash_ChangesWithSubstantiveFields(t *testing.T) {
	base := &Issue{Title: "fix bug", Status: "open", Priority: 2, Type: "task"}
	h1 := base.ComputeContentHash()

	changed := &Issue{Title: "fix bug", Status: "in_progress", Priority: 2, Type: "task"}
	h2 := changed.ComputeContentHash()
	if h1 == h2 {
		t.Fatalf("expected content hash to change when status changes")
	}

	again := &Issue{Title: "fix bug", Status: "open", Priority: 2, Type: "task"}
	if again.ComputeContentHash() != h1 {
		t.Fatalf("expected identical substantive fields to hash identically")
	}
}

func TestComputeContentHash_IgnoresFieldsAndParent(t *testing.T) {
	a := &Issue{Title: "t", Status: "open", Priority: 1, Type: "task", ParentID: "demo-1"}
	b := &Issue{Title: "t", Status: "open", Priority: 1, Type: "task", ParentID: "demo-2",
		Fields: map[string]interface{}{"severity": "high"}}
	if a.ComputeContentHash() != b.ComputeContentHash() {
		t.Fatalf("content hash must not depend on ParentID or Fields")
	}
}

func TestIssueValidate(t *testing.T) {
	tests := []struct {
		name    string
		issue   Issue
		wantErr bool
	}{
		{"valid", Issue{Title: "ok", Priority: 2}, false},
		{"empty title", Issue{Title: "", Priority: 2}, true},
		{"priority too low", Issue{Title: "ok", Priority: -1}, true},
		{"priority too high", Issue{Title: "ok", Priority: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.issue.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected an error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		state string
		want  Category
	}{
		{"closed", CategoryDone},
		{"done", CategoryDone},
		{"completed", CategoryDone},
		{"open", CategoryOpen},
		{"triage", CategoryOpen},
		{"anything-else", CategoryOpen},
	}
	for _, tt := range tests {
		if got := InferCategory(tt.state); got != tt.want {
			t.Errorf("InferCategory(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestFindingStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status FindingStatus
		want   bool
	}{
		{FindingOpen, false},
		{FindingAcknowledged, false},
		{FindingUnseenInLatest, false},
		{FindingFixed, true},
		{FindingFalsePositive, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAssocType_Valid(t *testing.T) {
	for _, valid := range []AssocType{AssocBugIn, AssocTaskFor, AssocScanFinding, AssocMentionedIn} {
		if !valid.Valid() {
			t.Errorf("expected %q to be a valid association type", valid)
		}
	}
	if AssocType("made_up").Valid() {
		t.Errorf("expected an unknown association type to be invalid")
	}
}
