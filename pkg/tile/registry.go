// Package tile holds the registry of tile types shared by every map.
package tile

import (
	"errors"
	"fmt"
	"sync"
)

// Index is the compact handle of a tile type stored in every map tile.
type Index uint16

// MaxTypes is the number of distinct tile types an Index can address.
const MaxTypes = int(^Index(0)) + 1

// Unknown is always registered first, at index 0.
const (
	UnknownName  = "unknown"
	UnknownIndex = Index(0)
)

var (
	ErrAlreadyLoaded = errors.New("tile: tile types have already been loaded")
	ErrInvalidType   = errors.New("tile: invalid tile type data")
	ErrDuplicateName = errors.New("tile: duplicate tile type name")
	ErrRegistryFull  = errors.New("tile: tile types already filled")
)

// Type describes one kind of tile. Data is opaque to the engine and carried
// for front ends (sprite names, colours and the like).
type Type struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data,omitempty"`
}

// AddedFunc is called before a type is inserted; returning an error aborts
// the insertion.
type AddedFunc func(index Index, t *Type) error

// Registry stores tile types by insertion order and by name.
type Registry struct {
	mu     sync.RWMutex
	types  []Type
	byName map[string]Index
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Index)}
}

// Add validates and inserts t, returning its index.
func (r *Registry) Add(t Type, onAdded AddedFunc) (Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(t, onAdded)
}

func (r *Registry) addLocked(t Type, onAdded AddedFunc) (Index, error) {
	if t.Name == "" {
		return 0, fmt.Errorf("%w: name is empty", ErrInvalidType)
	}
	if _, exists := r.byName[t.Name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateName, t.Name)
	}
	if len(r.types) >= MaxTypes {
		return 0, fmt.Errorf("%w: max of %d when inserting %s", ErrRegistryFull, MaxTypes, t.Name)
	}
	idx := Index(len(r.types))
	if onAdded != nil {
		if err := onAdded(idx, &t); err != nil {
			return 0, fmt.Errorf("tile added callback failed for %s: %w", t.Name, err)
		}
	}
	r.types = append(r.types, t)
	r.byName[t.Name] = idx
	return idx, nil
}

// Lookup returns the index registered for name.
func (r *Registry) Lookup(name string) (Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	return idx, ok
}

// Get returns the type at idx.
func (r *Registry) Get(idx Index) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(idx) >= len(r.types) {
		return Type{}, false
	}
	return r.types[idx], true
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Names returns type names in index order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.types))
	for i, t := range r.types {
		out[i] = t.Name
	}
	return out
}

// Types returns a copy of all types in index order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, len(r.types))
	copy(out, r.types)
	return out
}

// Resolve maps each name to its index, failing on the first missing name.
func (r *Registry) Resolve(names ...string) ([]Index, error) {
	out := make([]Index, 0, len(names))
	for _, name := range names {
		idx, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("missing tile type: %s", name)
		}
		out = append(out, idx)
	}
	return out, nil
}
