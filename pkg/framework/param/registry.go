package param

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownParameter is returned when a key or ID is not registered.
var ErrUnknownParameter = errors.New("unknown parameter")

// Registry manages the parameter set. Lookups take a read lock, so the
// audio thread must resolve the *Parameter it needs once, up front, and
// read values through it.
type Registry struct {
	params map[uint32]*Parameter
	keys   map[string]uint32
	order  []uint32 // Maintain order for indexed access
	mu     sync.RWMutex
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[uint32]*Parameter),
		keys:   make(map[string]uint32),
		order:  make([]uint32, 0),
	}
}

// Add registers new parameters. IDs and keys must be unique.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if existing, exists := r.params[p.ID]; exists {
			return fmt.Errorf("parameter ID %d already used by %q", p.ID, existing.Name)
		}
		key := strings.ToUpper(p.Key)
		if key != "" {
			if _, exists := r.keys[key]; exists {
				return fmt.Errorf("parameter key %q already registered", p.Key)
			}
			r.keys[key] = p.ID
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}

	return nil
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// Lookup retrieves a parameter by key, ignoring case
func (r *Registry) Lookup(key string) (*Parameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return r.params[id], nil
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= int32(len(r.order)) {
		return nil
	}

	return r.params[r.order[index]]
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int32(len(r.order))
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}

	return result
}

// Set parses a "key=value" assignment and applies it.
func (r *Registry) Set(assignment string) error {
	key, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", assignment)
	}
	p, err := r.Lookup(key)
	if err != nil {
		return err
	}
	return p.SetString(strings.TrimSpace(value))
}

// ResetAll restores every parameter to its default.
func (r *Registry) ResetAll() {
	for _, p := range r.All() {
		p.Reset()
	}
}
