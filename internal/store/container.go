package store

import (
	"errors"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ErrMultipleInSingle is returned by AddMany when a single-mode container is
// given more than one record.
var ErrMultipleInSingle = errors.New("store: multiple records for single-mode container")

// Listener receives the new state after every effective change.
type Listener[T any] func(*Snapshot[T])

// Unsubscribe removes the listener it was returned for. Calling it more than
// once is harmless.
type Unsubscribe func()

// Option configures a Container.
type Option[T any] func(*config[T])

type config[T any] struct {
	mode     Mode
	modeSet  bool
	key      string
	identity *Identity[T]
	upsert   bool
	logger   *zap.Logger
}

// WithMode sets the mode used when the initial state is absent. It is ignored
// when the initial snapshot already has a shape.
func WithMode[T any](mode Mode) Option[T] {
	return func(cfg *config[T]) {
		cfg.mode = mode
		cfg.modeSet = true
	}
}

// WithKey names the identity field (default "id").
func WithKey[T any](field string) Option[T] {
	return func(cfg *config[T]) {
		cfg.key = field
	}
}

// WithIdentity replaces field-based identity resolution.
func WithIdentity[T any](id Identity[T]) Option[T] {
	return func(cfg *config[T]) {
		if id.Get == nil {
			return
		}
		cfg.identity = &id
	}
}

// WithUpsert makes Add replace an existing record with the same identity
// instead of ignoring the new one.
func WithUpsert[T any]() Option[T] {
	return func(cfg *config[T]) {
		cfg.upsert = true
	}
}

// WithLogger attaches a logger.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(cfg *config[T]) {
		cfg.logger = logger
	}
}

// Container holds one state value and notifies subscribers when it changes.
type Container[T any] struct {
	mode     Mode
	key      string
	identity Identity[T]
	upsert   bool
	log      *zap.Logger

	mu        sync.Mutex
	state     *Snapshot[T]
	listeners map[uint64]Listener[T]
	nextID    uint64
}

// New builds a container around initial. The mode follows the shape of
// initial; an absent initial state uses WithMode, defaulting to collection.
func New[T any](initial *Snapshot[T], opts ...Option[T]) *Container[T] {
	cfg := config[T]{key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	mode := cfg.mode
	switch {
	case initial.IsCollection():
		mode = ModeCollection
	case !initial.IsAbsent():
		mode = ModeSingle
	case !cfg.modeSet:
		mode = ModeCollection
	}

	identity := FieldIdentity[T](cfg.key)
	if cfg.identity != nil {
		identity = *cfg.identity
		if identity.Set == nil {
			identity.Set = func(*T, string) {}
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Container[T]{
		mode:      mode,
		key:       cfg.key,
		identity:  identity,
		upsert:    cfg.upsert,
		log:       logger,
		state:     initial,
		listeners: make(map[uint64]Listener[T]),
	}
}

// Snapshot returns the current state. It is shared, not copied.
func (c *Container[T]) Snapshot() *Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the container's fixed mode.
func (c *Container[T]) Mode() Mode {
	return c.mode
}

// Key returns the identity field name.
func (c *Container[T]) Key() string {
	return c.key
}

// IdentityOf returns item's identity value.
func (c *Container[T]) IdentityOf(item T) string {
	return c.identity.Get(item)
}

// WithIdentityValue returns a copy of item carrying id.
func (c *Container[T]) WithIdentityValue(item T, id string) T {
	c.identity.Set(&item, id)
	return item
}

// Add inserts item. In collection mode a record with the same identity
// suppresses the insert (or is replaced, with WithUpsert). In single mode
// item replaces the state.
func (c *Container[T]) Add(item T) {
	c.mutate(func(cur *Snapshot[T]) *Snapshot[T] {
		if c.mode == ModeSingle {
			return Single(item)
		}
		items := cur.Items()
		id := c.identity.Get(item)
		if idx := c.indexOf(items, id); idx >= 0 {
			if !c.upsert {
				return cur
			}
			next := cloneItems(items, 0)
			next[idx] = item
			return Collection(next)
		}
		next := cloneItems(items, 1)
		return Collection(append(next, item))
	})
}

// AddMany appends the records whose identity is not already present. In
// single mode one record replaces the state and more than one is rejected.
func (c *Container[T]) AddMany(items []T) error {
	if c.mode == ModeSingle {
		switch len(items) {
		case 0:
			return nil
		case 1:
			c.SetState(Single(items[0]))
			return nil
		default:
			return ErrMultipleInSingle
		}
	}
	c.mutate(func(cur *Snapshot[T]) *Snapshot[T] {
		next := c.Appended(cur, items)
		if next.Len() == cur.Len() {
			return cur
		}
		return next
	})
	return nil
}

// Appended returns a collection holding base's records followed by those of
// items whose identity is not yet present. Nothing is stored.
func (c *Container[T]) Appended(base *Snapshot[T], items []T) *Snapshot[T] {
	existing := base.Items()
	next := cloneItems(existing, len(items))
	seen := make(map[string]struct{}, len(existing)+len(items))
	for _, item := range existing {
		if id := c.identity.Get(item); id != "" {
			seen[id] = struct{}{}
		}
	}
	for _, item := range items {
		id := c.identity.Get(item)
		if id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		next = append(next, item)
	}
	return Collection(next)
}

// Update derives the next record with change and returns it. In collection
// mode id selects the record; when none matches the computed record is
// appended. In single mode id is ignored. The only error is a Patch change
// that cannot be applied, in which case the state is left untouched.
func (c *Container[T]) Update(change Change[T], id string) (T, error) {
	var (
		updated  T
		applyErr error
	)
	c.mutate(func(cur *Snapshot[T]) *Snapshot[T] {
		if c.mode == ModeSingle {
			var current *T
			if record, ok := cur.Record(); ok {
				current = &record
			}
			next, err := change.apply(current)
			if err != nil {
				applyErr = err
				return cur
			}
			updated = next
			return Single(next)
		}

		items := cur.Items()
		idx := c.indexOf(items, id)
		var current *T
		if idx >= 0 {
			record := items[idx]
			current = &record
		}
		next, err := change.apply(current)
		if err != nil {
			applyErr = err
			return cur
		}
		updated = next
		out := cloneItems(items, 1)
		if idx >= 0 {
			out[idx] = next
		} else {
			out = append(out, next)
		}
		return Collection(out)
	})
	if applyErr != nil {
		c.log.Warn("update skipped", zap.String("id", id), zap.Error(applyErr))
	}
	return updated, applyErr
}

// Replace swaps the record identified by id for item. Any other record that
// already carries item's identity is dropped, so identities stay unique. When
// id matches nothing item is appended unless its identity is already present,
// in which case that record is replaced. In single mode item becomes the state.
func (c *Container[T]) Replace(id string, item T) {
	c.mutate(func(cur *Snapshot[T]) *Snapshot[T] {
		if c.mode == ModeSingle {
			return Single(item)
		}
		items := cur.Items()
		target := c.indexOf(items, id)
		newID := c.identity.Get(item)
		if target < 0 {
			target = c.indexOf(items, newID)
		}
		out := make([]T, 0, len(items)+1)
		placed := false
		for i, existing := range items {
			switch {
			case i == target:
				out = append(out, item)
				placed = true
			case newID != "" && c.identity.Get(existing) == newID:
			default:
				out = append(out, existing)
			}
		}
		if !placed {
			out = append(out, item)
		}
		return Collection(out)
	})
}

// Remove deletes the records sel matches and returns them. In single mode a
// predicate clears the state only when it accepts the record, while an ID
// selector always clears it.
func (c *Container[T]) Remove(sel Selector[T]) []T {
	var removed []T
	c.mutate(func(cur *Snapshot[T]) *Snapshot[T] {
		if c.mode == ModeSingle {
			record, ok := cur.Record()
			if !ok {
				return cur
			}
			if !sel.byID && (sel.pred == nil || !sel.pred(record)) {
				return cur
			}
			removed = []T{record}
			return nil
		}

		items := cur.Items()
		kept := make([]T, 0, len(items))
		for _, item := range items {
			if sel.matches(item, c.identity.Get) {
				removed = append(removed, item)
				continue
			}
			kept = append(kept, item)
		}
		if len(removed) == 0 {
			return cur
		}
		return Collection(kept)
	})
	return removed
}

// Find returns the record with identity id.
func (c *Container[T]) Find(id string) (T, bool) {
	return c.FindBy(func(item T) bool {
		return c.identity.Get(item) == id
	})
}

// FindBy returns the first record pred accepts.
func (c *Container[T]) FindBy(pred Predicate[T]) (T, bool) {
	var zero T
	if pred == nil {
		return zero, false
	}
	snap := c.Snapshot()
	if record, ok := snap.Record(); ok {
		if pred(record) {
			return record, true
		}
		return zero, false
	}
	for _, item := range snap.Items() {
		if pred(item) {
			return item, true
		}
	}
	return zero, false
}

// FindByKey returns the first record whose field equals value.
func (c *Container[T]) FindByKey(field string, value any) (T, bool) {
	r := &fieldResolver{field: field}
	return c.FindBy(func(item T) bool {
		got := indirect(r.lookup(reflect.ValueOf(&item).Elem()))
		if !got.IsValid() {
			return value == nil
		}
		return equalValue(got.Interface(), value)
	})
}

// Filter returns every record pred accepts, in state order.
func (c *Container[T]) Filter(pred Predicate[T]) []T {
	snap := c.Snapshot()
	if record, ok := snap.Record(); ok {
		if pred == nil || pred(record) {
			return []T{record}
		}
		return nil
	}
	var out []T
	for _, item := range snap.Items() {
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// SetState replaces the state and notifies subscribers, unless next is the
// current snapshot.
func (c *Container[T]) SetState(next *Snapshot[T]) {
	c.mutate(func(*Snapshot[T]) *Snapshot[T] {
		return next
	})
}

// Clear empties the container: an empty collection in collection mode, the
// absent state in single mode.
func (c *Container[T]) Clear() {
	if c.mode == ModeSingle {
		c.SetState(nil)
		return
	}
	c.SetState(Collection([]T{}))
}

// Subscribe registers listener for every effective state change.
func (c *Container[T]) Subscribe(listener Listener[T]) Unsubscribe {
	if listener == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// mutate swaps in fn's result under the lock and, when it differs from the
// current snapshot, notifies the listeners registered at that moment. Dispatch
// runs outside the lock so listeners may call back into the container.
func (c *Container[T]) mutate(fn func(*Snapshot[T]) *Snapshot[T]) {
	c.mu.Lock()
	next := fn(c.state)
	if next == c.state {
		c.mu.Unlock()
		return
	}
	c.state = next
	listeners := make([]Listener[T], 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

func (c *Container[T]) indexOf(items []T, id string) int {
	if id == "" {
		return -1
	}
	for i, item := range items {
		if c.identity.Get(item) == id {
			return i
		}
	}
	return -1
}

func cloneItems[T any](items []T, extra int) []T {
	out := make([]T, len(items), len(items)+extra)
	copy(out, items)
	return out
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		vb := reflect.ValueOf(b)
		if kindFamily(ta.Kind()) != kindFamily(tb.Kind()) || !vb.CanConvert(ta) {
			return false
		}
		b = vb.Convert(ta).Interface()
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	default:
		return 0
	}
}
