package templates

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tachyon-beep/filigree/internal/types"
)

func TestNewManager_LoadsBuiltinPacks(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("loading manager: %v", err)
	}
	reg := mgr.Current()

	for _, issueType := range []string{"task", "feature", "chore", "bug", "release", "milestone", "phase", "step"} {
		if _, ok := reg.Template(issueType); !ok {
			t.Errorf("expected built-in type %q to be registered", issueType)
		}
	}
}

func TestValidateTransition_BugHardTransitionRequiresSeverity(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("loading manager: %v", err)
	}
	bug, ok := mgr.Current().Template("bug")
	if !ok {
		t.Fatalf("bug template not registered")
	}

	ok2, missing, err := ValidateTransition(bug, "triage", "confirmed", nil)
	if err != nil {
		t.Fatalf("validating transition: %v", err)
	}
	assert.False(t, ok2)
	assert.Equal(t, []string{"severity"}, missing)

	ok3, missing, err := ValidateTransition(bug, "triage", "confirmed", map[string]interface{}{"severity": "high"})
	if err != nil {
		t.Fatalf("validating transition with severity: %v", err)
	}
	assert.True(t, ok3)
	assert.Empty(t, missing)
}

func TestValidateTransition_ReleaseFrozenRequiresVersion(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("loading manager: %v", err)
	}
	release, ok := mgr.Current().Template("release")
	if !ok {
		t.Fatalf("release template not registered")
	}

	ok2, missing, err := ValidateTransition(release, "in_progress", "frozen", nil)
	if err != nil {
		t.Fatalf("validating transition: %v", err)
	}
	assert.False(t, ok2)
	assert.Equal(t, []string{"version"}, missing)
}

func TestValidateTransition_UndeclaredTransitionRejected(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("loading manager: %v", err)
	}
	task, ok := mgr.Current().Template("task")
	if !ok {
		t.Fatalf("task template not registered")
	}
	ok2, _, err := ValidateTransition(task, "open", "not-a-state", nil)
	if err != nil {
		t.Fatalf("validating transition: %v", err)
	}
	assert.False(t, ok2)
}

func TestReload_OverlayOverridesBuiltinTemplate(t *testing.T) {
	dir := t.TempDir()
	packsDir := filepath.Join(dir, "packs")
	if err := os.MkdirAll(packsDir, 0o755); err != nil {
		t.Fatalf("creating overlay dir: %v", err)
	}

	overlay := struct {
		Pack      types.Pack       `json:"pack"`
		Templates []types.Template `json:"templates"`
	}{
		Pack: types.Pack{Name: "core", Version: "2.0.0", Enabled: true, Types: []string{"task"}},
		Templates: []types.Template{{
			Type:         "task",
			DisplayName:  "Task",
			Pack:         "core",
			InitialState: "backlog",
			States: []types.State{
				{Name: "backlog", Category: types.CategoryOpen},
				{Name: "done", Category: types.CategoryDone},
			},
			Transitions: []types.Transition{
				{FromState: "backlog", ToState: "done", Enforcement: types.EnforcementSoft},
			},
		}},
	}
	data, err := json.Marshal(overlay)
	if err != nil {
		t.Fatalf("marshaling overlay: %v", err)
	}
	if err := os.WriteFile(filepath.Join(packsDir, "core.json"), data, 0o644); err != nil {
		t.Fatalf("writing overlay file: %v", err)
	}

	mgr, err := NewManager(dir)
	if err != nil {
		t.Fatalf("loading manager with overlay: %v", err)
	}
	task, ok := mgr.Current().Template("task")
	if !ok {
		t.Fatalf("task template not registered")
	}
	assert.Equal(t, "backlog", task.InitialState, "project overlay should replace the built-in task template wholesale")
}

func TestMergePackFile_RejectsUndeclaredInitialState(t *testing.T) {
	bad := `{"pack":{"name":"bad","version":"1.0.0","enabled":true,"types":["x"]},
		"templates":[{"type":"x","pack":"bad","initial_state":"nope","states":[{"name":"open","category":"open"}]}]}`
	reg := &Registry{packs: map[string]types.Pack{}, templates: map[string]types.Template{}}
	err := mergePackFile(reg, []byte(bad))
	if err == nil {
		t.Fatalf("expected an error for an initial_state absent from the declared states")
	}
}
