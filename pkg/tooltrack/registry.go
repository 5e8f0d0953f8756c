package tooltrack

import (
	"fmt"

	"github.com/rollbackagent/engine/pkg/registry"
)

// Registry holds registered tool specifications, keyed by name.
type Registry struct {
	base *registry.BaseRegistry[*ToolSpec]
}

func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[*ToolSpec]()}
}

// Register records spec under its name. Re-registration replaces any
// prior spec for the same name, per spec.md §4.2's registration contract
// — the generic BaseRegistry rejects duplicates, so a replace here first
// removes any existing entry.
func (r *Registry) Register(spec *ToolSpec) error {
	if err := spec.Validate(); err != nil {
		return &RegistryError{Component: "tooltrack", Action: "register", Message: fmt.Sprintf("tool %q", spec.Name), Err: err}
	}

	_ = r.base.Remove(spec.Name) // ignore "not found": replacing is allowed
	if err := r.base.Register(spec.Name, spec); err != nil {
		return &RegistryError{Component: "tooltrack", Action: "register", Message: fmt.Sprintf("tool %q", spec.Name), Err: err}
	}
	return nil
}

func (r *Registry) Get(name string) (*ToolSpec, bool) {
	return r.base.Get(name)
}

func (r *Registry) List() []*ToolSpec {
	return r.base.List()
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	return r.base.Names()
}
