// Package registry tracks containers so they can be reset together, for
// example when a user signs out.
package registry

import (
	"sync"

	"go.uber.org/zap"
)

// Clearable is anything that can drop its data. store.Container and
// synq.Store both qualify.
type Clearable interface {
	Clear()
}

// StatusResetter is implemented by containers that track a sync status.
type StatusResetter interface {
	ResetStatus()
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.log = logger
		}
	}
}

// Registry holds references to containers. It never mutates container state
// directly; resets go through Clear and ResetStatus. A single-record
// container is left absent after a reset, a collection is left empty.
type Registry struct {
	mu     sync.Mutex
	stores []Clearable
	log    *zap.Logger
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{log: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Add registers s. Registering the same container twice is not detected.
func (r *Registry) Add(s Clearable) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.stores = append(r.stores, s)
	r.mu.Unlock()
}

// Empty resets s if it is registered and reports whether it was found.
func (r *Registry) Empty(s Clearable) bool {
	r.mu.Lock()
	found := false
	for _, registered := range r.stores {
		if registered == s {
			found = true
			break
		}
	}
	r.mu.Unlock()

	if !found {
		return false
	}
	reset(s)
	return true
}

// ClearAll resets every registered container.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	stores := make([]Clearable, len(r.stores))
	copy(stores, r.stores)
	r.mu.Unlock()

	for _, s := range stores {
		reset(s)
	}
	r.log.Info("cleared registered stores", zap.Int("count", len(stores)))
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func reset(s Clearable) {
	if sr, ok := s.(StatusResetter); ok {
		sr.ResetStatus()
	}
	s.Clear()
}
