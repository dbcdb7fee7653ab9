// Package modules defines the platform modules known to gcgit and the
// content-type descriptors that drive the pull engine. Modules are
// registered at startup from a closed, compile-time set; there is no
// runtime plugin loading, so no unreviewed code ever runs with credential
// access.
package modules

import "fmt"

// ErrUnknownModule reports a lookup for a module that is not registered.
type ErrUnknownModule struct {
	ID string
}

func (e *ErrUnknownModule) Error() string {
	return fmt.Sprintf("unknown module %q", e.ID)
}

// Registry maps module identifiers to their definitions. Registration order
// is preserved: it defines the order modules are presented in the CLI and
// the order content types are synced, which keeps diffs stable across runs.
type Registry struct {
	order   []string
	modules map[string]Module
}

// NewRegistry returns a registry with all built-in modules registered.
func NewRegistry() *Registry {
	r := &Registry{}

	// Built-in modules, in sync order.
	must(r.Register(&XsiamModule{}))
	must(r.Register(&AppSecModule{}))

	return r
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Register adds a module to the registry. A duplicate identifier is an
// error; module identifiers are unique by invariant.
func (r *Registry) Register(m Module) error {
	if r.modules == nil {
		r.modules = make(map[string]Module)
	}
	id := m.ID()
	if _, exists := r.modules[id]; exists {
		return fmt.Errorf("module %q is already registered", id)
	}
	r.modules[id] = m
	r.order = append(r.order, id)
	return nil
}

// Get returns the module with the given identifier.
func (r *Registry) Get(id string) (Module, error) {
	m, ok := r.modules[id]
	if !ok {
		return nil, &ErrUnknownModule{ID: id}
	}
	return m, nil
}

// All returns every registered module in registration order.
func (r *Registry) All() []Module {
	out := make([]Module, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modules[id])
	}
	return out
}

// IDs returns every registered module identifier in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
