package registry

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
)

// ErrFrozen is returned when a frozen registry is modified.
var ErrFrozen = errors.New("registry is frozen")

// DuplicateKeyError is returned by Register for a key that already exists.
type DuplicateKeyError struct {
	Key any
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("registry: %v already registered", e.Key)
}

// NotFoundError is returned by Find. Known lists the registered keys.
type NotFoundError struct {
	Key   any
	Known []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("registry: %v not registered", e.Key)
	}
	return fmt.Sprintf("registry: %v not registered (known: %v)", e.Key, e.Known)
}

// Registry is a thread-safe registry for values indexed by an ordered key.
// Iteration is always in key order.
type Registry[K cmp.Ordered, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	frozen  bool
}

// New creates a new empty registry.
func New[K cmp.Ordered, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds a value. It fails with *DuplicateKeyError if key exists
// and with ErrFrozen after Freeze.
func (r *Registry[K, V]) Register(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if _, ok := r.entries[key]; ok {
		return &DuplicateKeyError{Key: key}
	}
	r.entries[key] = value
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry[K, V]) MustRegister(key K, value V) {
	if err := r.Register(key, value); err != nil {
		panic(err)
	}
}

// Replace adds or overwrites a value.
func (r *Registry[K, V]) Replace(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	r.entries[key] = value
	return nil
}

// Delete removes a key from the registry.
func (r *Registry[K, V]) Delete(key K) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	delete(r.entries, key)
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry[K, V]) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze was called.
func (r *Registry[K, V]) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Find returns the value for a key or a *NotFoundError naming the known keys.
func (r *Registry[K, V]) Find(key K) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.entries[key]; ok {
		return v, nil
	}
	var zero V
	known := make([]string, 0, len(r.entries))
	for _, k := range slices.Sorted(maps.Keys(r.entries)) {
		known = append(known, fmt.Sprint(k))
	}
	return zero, &NotFoundError{Key: key, Known: known}
}

// MustGet returns the value for a key, panicking if not found.
func (r *Registry[K, V]) MustGet(key K) V {
	v, err := r.Find(key)
	if err != nil {
		panic(err)
	}
	return v
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Keys returns all keys in sorted order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All iterates over a snapshot of the registry in key order, so the
// registry may be modified during iteration.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	r.mu.RLock()
	snapshot := maps.Clone(r.entries)
	r.mu.RUnlock()

	return func(yield func(K, V) bool) {
		for _, k := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(k, snapshot[k]) {
				return
			}
		}
	}
}

// GetOrCreate returns the value for a key, creating it with the factory
// function if it doesn't exist. The factory is called at most once per key,
// even under concurrent access. A frozen registry never creates entries;
// the factory's value is returned without being stored.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.entries[key]; ok {
		return v
	}
	v = factory()
	if !r.frozen {
		r.entries[key] = v
	}
	return v
}
