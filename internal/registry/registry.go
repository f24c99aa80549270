// Package registry holds the declared module records a validation run resolves
// connection endpoints against.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Module is one declared unit of ownership.
type Module struct {
	Name         string            `json:"name" yaml:"name"`
	Owner        string            `json:"owner" yaml:"owner"`
	Status       string            `json:"status" yaml:"status"` // active|deprecated|planned
	Interface    map[string]string `json:"interface,omitempty" yaml:"interface"`
	Dependencies []string          `json:"dependencies,omitempty" yaml:"dependencies"`
}

var nameRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidName reports whether name is kebab-case.
func ValidName(name string) bool { return nameRe.MatchString(name) }

// DuplicateModuleError reports a re-registration under a different identity.
type DuplicateModuleError struct {
	Name          string
	ExistingOwner string
	IncomingOwner string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q already registered by %q (incoming owner %q)",
		e.Name, e.ExistingOwner, e.IncomingOwner)
}

// Registry maps module names to records. Reload-and-replace is a write, so a
// long-lived holder (the API server) goes through the RWMutex; one-shot CLI
// runs pay nothing for it.
type Registry struct {
	mu   sync.RWMutex
	mods map[string]Module
}

func New() *Registry {
	return &Registry{mods: map[string]Module{}}
}

// Register stores a module record. Re-registering an existing name with the
// same owner replaces the whole record (idempotent reloads from disk);
// a different owner is a conflict.
func (r *Registry) Register(m Module) error {
	if !ValidName(m.Name) {
		return fmt.Errorf("module name %q is not kebab-case", m.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.mods[m.Name]; ok && prev.Owner != m.Owner {
		return &DuplicateModuleError{Name: m.Name, ExistingOwner: prev.Owner, IncomingOwner: m.Owner}
	}
	r.mods[m.Name] = m
	return nil
}

// Resolve looks a module up by name.
func (r *Registry) Resolve(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mods[name]
	return m, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mods)
}

// Names returns registered module names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.mods))
	for n := range r.mods {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Modules returns all records sorted by name.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Module, 0, len(r.mods))
	for _, m := range r.mods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
