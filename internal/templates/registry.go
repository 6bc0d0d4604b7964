// Package templates loads and serves the type-scoped workflow
// definitions (templates, grouped into packs) that the issue engine
// consults to validate status transitions and required fields.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/tachyon-beep/filigree/internal/types"
)

// packFile is the on-disk/embedded JSON shape of one pack bundle.
type packFile struct {
	Pack      types.Pack       `json:"pack"`
	Templates []types.Template `json:"templates"`
}

// Registry is an immutable, fully-resolved view of every loaded pack and
// template. New registries are built wholesale and swapped in atomically;
// nothing mutates a Registry in place.
type Registry struct {
	packs     map[string]types.Pack
	templates map[string]types.Template // keyed by issue type
	packOrder []string
}

// Packs returns the loaded packs in load order.
func (r *Registry) Packs() []types.Pack {
	out := make([]types.Pack, 0, len(r.packOrder))
	for _, name := range r.packOrder {
		out = append(out, r.packs[name])
	}
	return out
}

// Template looks up the workflow definition for an issue type.
func (r *Registry) Template(issueType string) (types.Template, bool) {
	t, ok := r.templates[issueType]
	return t, ok
}

// Types returns every issue type known to the registry.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.templates))
	for t := range r.templates {
		out = append(out, t)
	}
	return out
}

// Manager holds the live registry and knows how to rebuild it from the
// built-in packs layered with a project's overlay directories.
type Manager struct {
	projectDir string // the .filigree directory; empty disables overlay loading
	current    atomic.Pointer[Registry]
}

// NewManager builds a Manager and performs the initial load. projectDir
// is the path to a project's .filigree directory; pass "" to load only
// the built-in packs.
func NewManager(projectDir string) (*Manager, error) {
	m := &Manager{projectDir: projectDir}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Current returns the currently active, immutable registry.
func (m *Manager) Current() *Registry {
	return m.current.Load()
}

// Reload rebuilds the registry from built-ins plus the project's
// packs/ and templates/ overlay directories, then atomically swaps it
// in. Concurrent readers never observe a partially built registry.
func (m *Manager) Reload() error {
	reg := &Registry{
		packs:     map[string]types.Pack{},
		templates: map[string]types.Template{},
	}

	for _, name := range builtinPackFiles {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading builtin pack %s: %w", name, err)
		}
		if err := mergePackFile(reg, data); err != nil {
			return fmt.Errorf("loading builtin pack %s: %w", name, err)
		}
	}

	if m.projectDir != "" {
		if err := mergeOverlayDir(reg, filepath.Join(m.projectDir, "packs")); err != nil {
			return err
		}
		if err := mergeOverlayDir(reg, filepath.Join(m.projectDir, "templates")); err != nil {
			return err
		}
	}

	m.current.Store(reg)
	return nil
}

// mergeOverlayDir loads every *.json file in dir, if it exists, applying
// each as a layer over the registry built so far. A missing directory is
// not an error: most projects never create an overlay.
func mergeOverlayDir(reg *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading overlay dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading overlay file %s: %w", path, err)
		}
		if err := mergePackFile(reg, data); err != nil {
			return fmt.Errorf("loading overlay file %s: %w", path, err)
		}
	}
	return nil
}

// mergePackFile decodes one pack bundle and layers it into reg: a pack or
// template by the same name replaces the earlier layer's entry, so a
// project overlay can override a built-in definition wholesale.
func mergePackFile(reg *Registry, data []byte) error {
	var pf packFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("decoding pack bundle: %w", err)
	}
	if pf.Pack.Name == "" {
		return fmt.Errorf("pack bundle missing pack.name")
	}
	if !pf.Pack.Enabled {
		return nil
	}
	if _, exists := reg.packs[pf.Pack.Name]; !exists {
		reg.packOrder = append(reg.packOrder, pf.Pack.Name)
	}
	reg.packs[pf.Pack.Name] = pf.Pack
	for _, t := range pf.Templates {
		if err := validateTemplate(t); err != nil {
			return fmt.Errorf("template %q: %w", t.Type, err)
		}
		reg.templates[t.Type] = t
	}
	return nil
}

// validateTemplate checks the structural invariants every template must
// satisfy regardless of who authored it: every transition references
// declared states, and every requires_fields entry appears in the field
// schema.
func validateTemplate(t types.Template) error {
	states := map[string]bool{}
	for _, s := range t.States {
		states[s.Name] = true
	}
	if !states[t.InitialState] {
		return fmt.Errorf("initial_state %q is not a declared state", t.InitialState)
	}
	validFieldTypes := map[types.FieldType]bool{
		types.FieldText: true, types.FieldNumber: true, types.FieldDate: true,
		types.FieldEnum: true, types.FieldList: true,
	}
	fields := map[string]bool{}
	for _, f := range t.FieldSchema {
		fields[f.Name] = true
		if !validFieldTypes[f.Type] {
			return fmt.Errorf("field %q declares unknown type %q", f.Name, f.Type)
		}
	}
	for _, tr := range t.Transitions {
		if !states[tr.FromState] {
			return fmt.Errorf("transition references undeclared from_state %q", tr.FromState)
		}
		if !states[tr.ToState] {
			return fmt.Errorf("transition references undeclared to_state %q", tr.ToState)
		}
		for _, rf := range tr.RequiresFields {
			if !fields[rf] {
				return fmt.Errorf("transition %s->%s requires undeclared field %q", tr.FromState, tr.ToState, rf)
			}
		}
	}
	return nil
}
