package synq

import (
	"sync"

	"github.com/five82/synq/internal/store"
)

// Status describes the outcome of the most recent remote interaction.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// StatusListener is called after every status change.
type StatusListener func(Status)

type statusCell struct {
	mu        sync.RWMutex
	value     Status
	listeners map[uint64]StatusListener
	nextID    uint64
}

func (c *statusCell) get() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *statusCell) set(next Status) {
	c.mu.Lock()
	if c.value == next {
		c.mu.Unlock()
		return
	}
	c.value = next
	listeners := make([]StatusListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

func (c *statusCell) subscribe(fn StatusListener) store.Unsubscribe {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	if c.listeners == nil {
		c.listeners = make(map[uint64]StatusListener)
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Status returns the current sync status.
func (s *Store[T]) Status() Status { return s.status.get() }

// IsLoading reports whether a fetch is in flight.
func (s *Store[T]) IsLoading() bool { return s.status.get() == StatusLoading }

// IsError reports whether the last remote interaction failed.
func (s *Store[T]) IsError() bool { return s.status.get() == StatusError }

// IsSuccess reports whether the last remote interaction succeeded.
func (s *Store[T]) IsSuccess() bool { return s.status.get() == StatusSuccess }

// ResetStatus returns the status to idle.
func (s *Store[T]) ResetStatus() { s.status.set(StatusIdle) }

// SubscribeStatus registers fn for status changes. Setting the status to its
// current value does not notify.
func (s *Store[T]) SubscribeStatus(fn StatusListener) store.Unsubscribe {
	return s.status.subscribe(fn)
}
