// Package store provides the reactive in-memory container that synq builds on.
//
// # Overview
//
// A Container holds exactly one state value: a single record, an ordered
// collection of records keyed by an identity field, or nothing at all. Every
// effective change is pushed synchronously to subscribers before the mutating
// call returns. The container knows nothing about remote systems; the synq
// package layers optimistic synchronization on top of these primitives.
//
// # State Model
//
// State is a *Snapshot[T]:
//
//	nil                    Absent (no data yet, or cleared in single mode)
//	store.Single(record)   exactly one record
//	store.Collection(xs)   zero or more records
//
// Snapshots are never modified after they are built. Mutators construct a new
// snapshot and swap it in, so a snapshot handed to a listener stays valid
// forever. Snapshot() returns the shared pointer rather than a copy.
//
// The mode (single or collection) is fixed at construction from the initial
// snapshot, or from WithMode when the initial state is absent. Mutators keep
// the mode: Clear on a single-mode container produces Absent, not an empty
// collection.
//
// # Identity
//
// Collections are keyed by an identity field, "id" unless WithKey says
// otherwise. FieldIdentity matches struct fields by JSON tag, then by Go field
// name, and map records by key. At most one record per identity value exists
// after Add and AddMany. Records without an identity are accepted without
// duplicate detection.
//
// # Mutations
//
//	Add(item)                 insert, ignoring duplicates (or replacing, WithUpsert)
//	AddMany(items)            append the records not already present
//	Update(change, id)        Merge, Patch, or Transform one record, appending if missing
//	Replace(id, item)         swap a record for its authoritative version
//	Remove(selector)          delete by ID(id) or Where(predicate)
//	SetState(next)            replace the state outright
//	Clear()                   empty the container
//
// Change functions and predicates run while the container is locked and must
// not call back into the same container.
//
// # Notification
//
// SetState(x) with x equal to the current pointer is a no-op. Any other value
// notifies every listener registered at that moment exactly once. Dispatch
// happens outside the lock, so listeners may subscribe, unsubscribe, or read
// the snapshot. Notifications from concurrent mutators are not ordered
// relative to each other.
//
// # Filters
//
// CompileFilter turns an expr-lang expression into a Predicate:
//
//	pred, err := store.CompileFilter[Todo](`!completed && priority >= 2`)
//	open := c.Filter(pred)
package store
