package permission

import (
	"fmt"
	"sort"
)

// Registry names guards so they can be selected from configuration.
type Registry struct {
	guards map[string]Guard
}

// NewRegistry returns a registry holding the built-in guards:
// login_required and superuser_required.
func NewRegistry() *Registry {
	r := &Registry{guards: make(map[string]Guard)}
	r.Register("login_required", LoginRequired)
	r.Register("superuser_required", SuperuserRequired)
	return r
}

// Register adds or replaces a named guard.
func (r *Registry) Register(name string, g Guard) {
	r.guards[name] = g
}

// Names lists registered guard names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.guards))
	for name := range r.guards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps names to guards, preserving order.
func (r *Registry) Resolve(names []string) ([]Guard, error) {
	guards := make([]Guard, 0, len(names))
	for _, name := range names {
		g, ok := r.guards[name]
		if !ok {
			return nil, fmt.Errorf("unknown guard %q (known: %v)", name, r.Names())
		}
		guards = append(guards, g)
	}
	return guards, nil
}
