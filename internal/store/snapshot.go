package store

// Mode is the shape a Container holds for its whole lifetime.
type Mode int

const (
	ModeCollection Mode = iota
	ModeSingle
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	default:
		return "collection"
	}
}

// Snapshot is an immutable view of container state. A nil *Snapshot is the
// Absent state. Two states are the same state only when their pointers are
// equal; SetState relies on that for its redundancy guard.
type Snapshot[T any] struct {
	collection bool
	record     T
	items      []T
}

// Single wraps one record.
func Single[T any](record T) *Snapshot[T] {
	return &Snapshot[T]{record: record}
}

// Collection wraps records. The slice is shared, not copied; callers must not
// modify it afterwards.
func Collection[T any](items []T) *Snapshot[T] {
	return &Snapshot[T]{collection: true, items: items}
}

// IsAbsent reports whether the snapshot holds no data.
func (s *Snapshot[T]) IsAbsent() bool {
	return s == nil
}

// IsCollection reports whether the snapshot holds a sequence of records.
func (s *Snapshot[T]) IsCollection() bool {
	return s != nil && s.collection
}

// Items returns the shared record slice. It is nil for single and absent
// snapshots.
func (s *Snapshot[T]) Items() []T {
	if s == nil || !s.collection {
		return nil
	}
	return s.items
}

// Record returns the lone record of a single snapshot.
func (s *Snapshot[T]) Record() (T, bool) {
	if s == nil || s.collection {
		var zero T
		return zero, false
	}
	return s.record, true
}

// Len returns the number of records held.
func (s *Snapshot[T]) Len() int {
	switch {
	case s == nil:
		return 0
	case s.collection:
		return len(s.items)
	default:
		return 1
	}
}
