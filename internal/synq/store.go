package synq

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/synq/internal/store"
)

const tempPrefix = "temp-"

// Store is a container kept in sync with a remote source. Mutations apply
// locally first and are then reconciled with, or rolled back from, the
// server's answer. Every method blocks until the remote call settles and
// reports failure only through Status.
//
// The read-side and subscription methods of the embedded container are
// available directly. Fetch, Add, AddMany, Update and Remove shadow the
// container's local-only versions.
type Store[T any] struct {
	*store.Container[T]

	remote    Remote[T]
	idFactory func() string
	baseCtx   context.Context
	log       *zap.Logger

	status statusCell

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a store around initial. Background work (autofetch, polling)
// starts before New returns; registration with WithRegistry happens last.
func New[T any](initial *store.Snapshot[T], remote Remote[T], opts ...Option[T]) *Store[T] {
	var o options[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.baseCtx == nil {
		o.baseCtx = context.Background()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	s := &Store[T]{
		Container: store.New(initial, o.container...),
		remote:    remote,
		idFactory: o.idFactory,
		baseCtx:   o.baseCtx,
		log:       o.logger,
	}

	if o.autoFetch {
		go s.Fetch(s.baseCtx)
	}
	if o.interval > 0 && remote.Fetch != nil {
		s.stop = make(chan struct{})
		go s.poll(o.interval)
	}
	if o.registry != nil {
		o.registry.Add(s)
	}
	return s
}

// Fetch replaces the state with the server's data. On failure the state
// captured before the call is restored.
func (s *Store[T]) Fetch(ctx context.Context) {
	if s.remote.Fetch == nil {
		return
	}
	s.status.set(StatusLoading)
	backup := s.Snapshot()

	items, err := s.remote.Fetch(ctx)
	if err != nil {
		s.log.Warn("fetch failed", zap.Error(err))
		s.SetState(backup)
		s.status.set(StatusError)
		return
	}
	s.SetState(s.fetched(items))
	s.status.set(StatusSuccess)
	s.log.Debug("fetched", zap.Int("count", len(items)))
}

func (s *Store[T]) fetched(items []T) *store.Snapshot[T] {
	if s.Mode() == store.ModeSingle {
		if len(items) == 0 {
			return nil
		}
		return store.Single(items[0])
	}
	out := make([]T, len(items))
	copy(out, items)
	return store.Collection(out)
}

// Add inserts partial optimistically and asks the server to create it.
func (s *Store[T]) Add(ctx context.Context, partial T) {
	s.AddWith(ctx, partial, nil)
}

// AddWith is Add with an extra payload forwarded to the remote Add.
//
// In collection mode the optimistic record carries a provisional identity
// that is swapped for the server's record on success, or removed on failure.
// In single mode the record replaces the state and failure restores the
// previous one.
func (s *Store[T]) AddWith(ctx context.Context, partial T, extra any) {
	if s.Mode() == store.ModeSingle {
		s.addSingle(ctx, partial, extra)
		return
	}

	backup := s.Snapshot()
	tempID := s.newTempID()
	provisional := s.WithIdentityValue(partial, tempID)
	// Records whose identity field cannot hold the provisional id are
	// reconciled against the pre-call snapshot instead.
	tracked := s.IdentityOf(provisional) == tempID
	s.Container.Add(provisional)
	if s.remote.Add == nil {
		return
	}

	saved, err := s.remote.Add(ctx, partial, extra)
	if err != nil {
		s.log.Warn("add failed", zap.String("temp_id", tempID), zap.Error(err))
		if tracked {
			s.Container.Remove(store.ID[T](tempID))
		} else {
			s.SetState(backup)
		}
		s.status.set(StatusError)
		return
	}
	if tracked {
		s.Replace(tempID, saved)
	} else {
		s.SetState(s.Appended(backup, []T{saved}))
	}
	s.status.set(StatusSuccess)
}

func (s *Store[T]) addSingle(ctx context.Context, partial T, extra any) {
	backup := s.Snapshot()
	s.Container.Add(partial)
	if s.remote.Add == nil {
		return
	}

	saved, err := s.remote.Add(ctx, partial, extra)
	if err != nil {
		s.log.Warn("add failed", zap.Error(err))
		s.SetState(backup)
		s.status.set(StatusError)
		return
	}
	s.SetState(store.Single(saved))
	s.status.set(StatusSuccess)
}

// AddMany appends items optimistically. On success the server's records are
// appended to the state captured before the call; on failure that state is
// restored.
func (s *Store[T]) AddMany(ctx context.Context, items []T) {
	backup := s.Snapshot()
	if err := s.Container.AddMany(items); err != nil {
		s.log.Warn("add many rejected", zap.Int("count", len(items)), zap.Error(err))
		s.status.set(StatusError)
		return
	}
	if s.remote.AddMany == nil {
		return
	}

	saved, err := s.remote.AddMany(ctx, items)
	if err != nil {
		s.log.Warn("add many failed", zap.Int("count", len(items)), zap.Error(err))
		s.SetState(backup)
		s.status.set(StatusError)
		return
	}
	if s.Mode() == store.ModeSingle {
		if len(saved) > 0 {
			s.SetState(store.Single(saved[0]))
		}
	} else {
		s.SetState(s.Appended(backup, saved))
	}
	s.status.set(StatusSuccess)
}

// Update applies change optimistically and sends the resulting record to the
// server. An empty id is taken from a Merge change's partial record.
//
// A failed remote update leaves a collection record as edited locally. In
// single mode the previous record is restored.
func (s *Store[T]) Update(ctx context.Context, change store.Change[T], id string) {
	if id == "" {
		if partial, ok := change.Partial(); ok {
			id = s.IdentityOf(partial)
		}
	}

	backup := s.Snapshot()
	updated, err := s.Container.Update(change, id)
	if err != nil {
		s.status.set(StatusError)
		return
	}
	if s.remote.Update == nil {
		return
	}

	saved, err := s.remote.Update(ctx, updated)
	if err != nil {
		s.log.Warn("update failed", zap.String("id", id), zap.Error(err))
		if s.Mode() == store.ModeSingle {
			s.SetState(backup)
		}
		s.status.set(StatusError)
		return
	}
	if id == "" {
		id = s.IdentityOf(updated)
	}
	if id == "" && s.Mode() == store.ModeCollection {
		// The edit was appended without an identity; swap it for the
		// server's record.
		s.SetState(s.Appended(backup, []T{saved}))
	} else {
		s.Replace(id, saved)
	}
	s.status.set(StatusSuccess)
}

// Remove deletes the selected records optimistically and asks the server to
// delete each affected identity. The remote calls run concurrently; if any
// fails the state captured before the removal is restored.
func (s *Store[T]) Remove(ctx context.Context, sel store.Selector[T]) {
	ids := s.affected(sel)
	backup := s.Snapshot()
	s.Container.Remove(sel)
	if s.remote.Remove == nil || len(ids) == 0 {
		return
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return s.remote.Remove(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("remove failed", zap.Strings("ids", ids), zap.Error(err))
		s.SetState(backup)
		s.status.set(StatusError)
		return
	}
	s.status.set(StatusSuccess)
}

// affected lists the identities sel will remove, computed before mutating.
func (s *Store[T]) affected(sel store.Selector[T]) []string {
	if id, ok := sel.Identity(); ok {
		if id == "" {
			return nil
		}
		return []string{id}
	}

	pred := sel.Predicate()
	if pred == nil {
		return nil
	}
	var ids []string
	for _, item := range s.Filter(pred) {
		if id := s.IdentityOf(item); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dispose stops the poll loop. In-flight calls are not cancelled. It is safe
// to call more than once.
func (s *Store[T]) Dispose() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
	})
}

func (s *Store[T]) poll(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			s.Fetch(s.baseCtx)
		}
	}
}

// newTempID returns a provisional id that no current record carries.
func (s *Store[T]) newTempID() string {
	if s.idFactory != nil {
		if id := s.idFactory(); id != "" {
			if _, taken := s.Find(id); !taken {
				return id
			}
			s.log.Warn("provisional id already in use", zap.String("id", id))
		}
	}
	return tempPrefix + uuid.NewString()
}
