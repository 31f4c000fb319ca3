// Package modes holds the static catalog of text transformation directions
// offered by the bot. The catalog is built once at startup from configuration
// and never mutated afterwards; every inline button the bot renders maps back
// to exactly one Mode in the registry.
package modes

import "fmt"

// Mode is a single transformation direction. Key is the stable identity used
// in callback data, Label is what the user sees on the button, and
// Instruction is the task description inserted verbatim into the generation
// prompt.
type Mode struct {
	Key         string
	Label       string
	Instruction string
}

// Registry is an immutable, insertion-ordered collection of modes.
type Registry struct {
	ordered []Mode
	byKey   map[string]Mode
}

// NewRegistry builds a registry from the given modes. It fails if the list is
// empty, if any mode is missing a key, label or instruction, or if two modes
// share a key.
func NewRegistry(list []Mode) (*Registry, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("at least one mode is required")
	}

	byKey := make(map[string]Mode, len(list))
	ordered := make([]Mode, 0, len(list))
	for i, m := range list {
		if m.Key == "" {
			return nil, fmt.Errorf("mode %d has an empty key", i)
		}
		if m.Label == "" {
			return nil, fmt.Errorf("mode %q has an empty label", m.Key)
		}
		if m.Instruction == "" {
			return nil, fmt.Errorf("mode %q has an empty instruction", m.Key)
		}
		if _, exists := byKey[m.Key]; exists {
			return nil, fmt.Errorf("duplicate mode key: %q", m.Key)
		}
		byKey[m.Key] = m
		ordered = append(ordered, m)
	}

	return &Registry{ordered: ordered, byKey: byKey}, nil
}

// List returns the modes in their configured order. The returned slice is a
// copy; callers may not mutate registry state through it.
func (r *Registry) List() []Mode {
	out := make([]Mode, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Lookup returns the mode registered under key, if any.
func (r *Registry) Lookup(key string) (Mode, bool) {
	m, ok := r.byKey[key]
	return m, ok
}

// Len returns the number of registered modes.
func (r *Registry) Len() int {
	return len(r.ordered)
}
