// Package synq keeps a store.Container in step with a remote source.
//
// Mutations apply locally first so readers see them at once, then the matching
// Remote operation is called. Success swaps the optimistic data for the
// server's records; failure rolls back where a structural undo exists:
//
//	Fetch     restore the pre-fetch snapshot
//	Add       drop the provisional record (single mode: restore the old one)
//	AddMany   restore the pre-call snapshot
//	Update    keep the local edit (single mode: restore the old record)
//	Remove    restore the pre-removal snapshot
//
// Operations block until the remote call settles and never return errors. The
// outcome is visible through Status and SubscribeStatus.
//
// Overlapping operations on the same record are not serialized. A slow
// rollback can overwrite a later edit.
package synq
