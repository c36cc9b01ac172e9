package example

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered examples keyed by service and name.
type Registry struct {
	mu       sync.RWMutex
	examples map[string]Example
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{examples: make(map[string]Example)}
}

// Register adds an example. Duplicates and incomplete examples are rejected.
func (r *Registry) Register(e Example) error {
	if e.Service == "" || e.Name == "" {
		return fmt.Errorf("example must have a service and a name (got %q)", e.ID())
	}
	if e.Run == nil {
		return fmt.Errorf("example %s has no run function", e.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.examples[e.ID()]; ok {
		return fmt.Errorf("example %s already registered", e.ID())
	}
	r.examples[e.ID()] = e
	return nil
}

// RegisterAll adds every example, stopping at the first error.
func (r *Registry) RegisterAll(examples []Example) error {
	for _, e := range examples {
		if err := r.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// Get returns an example by service and name.
func (r *Registry) Get(service, name string) (Example, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.examples[service+"/"+name]
	return e, ok
}

// All returns every example, sorted by service then name.
func (r *Registry) All() []Example {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Example, 0, len(r.examples))
	for _, e := range r.examples {
		out = append(out, e)
	}
	sortExamples(out)
	return out
}

// Service returns the examples of one service, sorted by name.
func (r *Registry) Service(service string) []Example {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Example
	for _, e := range r.examples {
		if e.Service == service {
			out = append(out, e)
		}
	}
	sortExamples(out)
	return out
}

// Services returns the distinct service names, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range r.examples {
		seen[e.Service] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func sortExamples(examples []Example) {
	sort.Slice(examples, func(i, j int) bool {
		if examples[i].Service != examples[j].Service {
			return examples[i].Service < examples[j].Service
		}
		return examples[i].Name < examples[j].Name
	})
}
