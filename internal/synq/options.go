package synq

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/synq/internal/registry"
	"github.com/five82/synq/internal/store"
)

// Remote is the set of server operations a Store reconciles against. Every
// field is optional; a missing operation makes the local mutation final.
type Remote[T any] struct {
	Fetch   func(ctx context.Context) ([]T, error)
	Add     func(ctx context.Context, partial T, extra any) (T, error)
	Update  func(ctx context.Context, item T) (T, error)
	Remove  func(ctx context.Context, id string) error
	AddMany func(ctx context.Context, items []T) ([]T, error)
}

// Option configures a Store.
type Option[T any] func(*options[T])

type options[T any] struct {
	interval  time.Duration
	autoFetch bool
	idFactory func() string
	registry  *registry.Registry
	baseCtx   context.Context
	logger    *zap.Logger
	container []store.Option[T]
}

// WithInterval refetches every d while the store is alive. It has no effect
// without a Fetch operation.
func WithInterval[T any](d time.Duration) Option[T] {
	return func(o *options[T]) { o.interval = d }
}

// WithAutoFetch starts a fetch in the background as soon as the store is built.
func WithAutoFetch[T any]() Option[T] {
	return func(o *options[T]) { o.autoFetch = true }
}

// WithIDFactory supplies provisional identities for optimistic adds.
func WithIDFactory[T any](fn func() string) Option[T] {
	return func(o *options[T]) { o.idFactory = fn }
}

// WithRegistry registers the store once it is fully built.
func WithRegistry[T any](reg *registry.Registry) Option[T] {
	return func(o *options[T]) { o.registry = reg }
}

// WithBaseContext sets the context used by background fetches (autofetch and
// polling). It defaults to context.Background.
func WithBaseContext[T any](ctx context.Context) Option[T] {
	return func(o *options[T]) { o.baseCtx = ctx }
}

// WithLogger attaches a logger to the store and its container.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(o *options[T]) {
		o.logger = logger
		o.container = append(o.container, store.WithLogger[T](logger))
	}
}

// WithMode sets the container mode used when the initial state is absent.
func WithMode[T any](mode store.Mode) Option[T] {
	return func(o *options[T]) {
		o.container = append(o.container, store.WithMode[T](mode))
	}
}

// WithKey names the identity field.
func WithKey[T any](field string) Option[T] {
	return func(o *options[T]) {
		o.container = append(o.container, store.WithKey[T](field))
	}
}

// WithIdentity replaces field-based identity resolution.
func WithIdentity[T any](id store.Identity[T]) Option[T] {
	return func(o *options[T]) {
		o.container = append(o.container, store.WithIdentity(id))
	}
}

// WithUpsert makes plain adds replace records with the same identity.
func WithUpsert[T any]() Option[T] {
	return func(o *options[T]) {
		o.container = append(o.container, store.WithUpsert[T]())
	}
}
