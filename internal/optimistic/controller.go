package optimistic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"optask/internal/service"
)

var (
	// ErrEmptyTitle is returned by Create for a blank title.
	ErrEmptyTitle = errors.New("title required")

	// ErrLoading is returned for mutations issued while a load is running.
	ErrLoading = errors.New("collection is loading")

	// ErrBusy is returned when the item already has an operation in flight,
	// or when Load is called while mutations are in flight.
	ErrBusy = errors.New("operation already in flight")

	// ErrNotFound is returned for IDs that are not in the collection.
	ErrNotFound = errors.New("item not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

// Operation kinds, used as metric labels and log fields.
const (
	KindLoad   = "load"
	KindCreate = "create"
	KindToggle = "toggle"
	KindDelete = "delete"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller owns the visible collection and reconciles it with a Store.
type Controller struct {
	store   service.Store
	log     zerolog.Logger
	metrics *Metrics

	life   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	items    []service.Item
	loading  bool
	loadErr  error
	loadGen  uint64
	version  uint64
	lastTemp int64
	busy     map[int64]string // item ID -> kind of the in-flight operation
	closed   bool

	subsMu  sync.Mutex
	subs    map[int]*subscriber
	nextSub int

	// emitMu serializes deliveries and guards subscriber.last.
	emitMu sync.Mutex
}

type subscriber struct {
	fn   func(Snapshot)
	last uint64 // version of the newest snapshot delivered
}

// New creates a Controller with an empty collection. Call Load to populate it.
func New(store service.Store, opts ...Option) *Controller {
	life, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:  store,
		log:    log.Logger,
		life:   life,
		cancel: cancel,
		busy:   make(map[int64]string),
		subs:   make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "optimistic").Logger()
	return c
}

// Close cancels every in-flight operation. Their rollbacks still run, but
// none of them reports an error. Later calls return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every published snapshot and returns a func
// that removes it. fn is called once immediately with the current snapshot,
// and after that only with snapshots newer than the last one it was given.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.emitMu.Lock()
	snap := c.Snapshot()
	sub := &subscriber{fn: fn, last: snap.Version}
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.subsMu.Unlock()
	fn(snap)
	c.emitMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// Load fetches the collection from the Store and replaces the local one.
// A failure is recorded in the snapshot and returned; a cancellation
// records nothing and returns nil. A Load superseded by a later Load
// is discarded.
//
// Starting a Load clears the recorded failure, so a retry that is then
// canceled leaves Err nil and the collection unchanged.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if len(c.busy) > 0 {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loadGen++
	gen := c.loadGen
	c.loading = true
	c.loadErr = nil
	c.publishAndUnlock()

	op := c.begin(KindLoad, 0)
	ctx, done := c.opContext(ctx)
	defer done()
	items, err := c.store.List(ctx)

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		op.log.Debug().Msg("superseded load discarded")
		op.finish(c, service.ErrCanceled)
		return nil
	}
	c.loading = false
	switch {
	case err == nil:
		for i := range items {
			items[i].Pending = false
		}
		c.items = items
	case service.IsCanceled(err):
	default:
		c.loadErr = err
	}
	c.publishAndUnlock()
	return op.finish(c, err)
}

// RetryLoad repeats the initial load after a failure.
func (c *Controller) RetryLoad(ctx context.Context) error {
	return c.Load(ctx)
}

// Create prepends a pending placeholder for title, then replaces it with the
// Store's item on success or removes it on failure. A canceled create
// removes the placeholder and returns the zero Item with a nil error.
func (c *Controller) Create(ctx context.Context, title string) (service.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Item{}, ErrEmptyTitle
	}

	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return service.Item{}, err
	}
	c.lastTemp--
	placeholder := service.Item{ID: c.lastTemp, Title: title, Pending: true}
	c.items = prepend(c.items, placeholder)
	c.busy[placeholder.ID] = KindCreate
	c.publishAndUnlock()

	op := c.begin(KindCreate, placeholder.ID)
	ctx, done := c.opContext(ctx)
	defer done()
	created, err := c.store.Create(ctx, title)

	c.mu.Lock()
	delete(c.busy, placeholder.ID)
	i := indexOf(c.items, placeholder.ID)
	if err == nil {
		created.Pending = false
		switch {
		case i >= 0:
			c.items[i] = created
		case indexOf(c.items, created.ID) < 0:
			c.items = prepend(c.items, created)
		}
	} else if i >= 0 {
		c.items = removeAt(c.items, i)
	}
	c.publishAndUnlock()

	if err != nil {
		return service.Item{}, op.finish(c, err)
	}
	op.finish(c, nil)
	return created, nil
}

// Toggle flips an item's Done flag locally, then keeps the Store's value on
// success or restores the captured value on failure.
func (c *Controller) Toggle(ctx context.Context, id int64) error {
	c.mu.Lock()
	i, err := c.claimLocked(id, KindToggle)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	wasDone := c.items[i].Done
	c.items[i].Done = !wasDone
	c.items[i].Pending = true
	c.publishAndUnlock()

	op := c.begin(KindToggle, id)
	ctx, done := c.opContext(ctx)
	defer done()
	confirmed, err := c.store.Toggle(ctx, id)

	c.mu.Lock()
	delete(c.busy, id)
	if i := indexOf(c.items, id); i >= 0 {
		if err == nil {
			confirmed.Pending = false
			c.items[i] = confirmed
		} else {
			c.items[i].Done = wasDone
			c.items[i].Pending = false
		}
	}
	c.publishAndUnlock()
	return op.finish(c, err)
}

// Delete removes an item locally, then reinserts exactly the captured item
// at the front if the Store fails.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	i, err := c.claimLocked(id, KindDelete)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	removed := c.items[i]
	c.items = removeAt(c.items, i)
	c.publishAndUnlock()

	op := c.begin(KindDelete, id)
	ctx, done := c.opContext(ctx)
	defer done()
	err = c.store.Delete(ctx, id)

	c.mu.Lock()
	delete(c.busy, id)
	i = indexOf(c.items, id)
	switch {
	case err == nil && i >= 0:
		c.items = removeAt(c.items, i)
	case err != nil && i < 0:
		c.items = prepend(c.items, removed)
	}
	c.publishAndUnlock()
	return op.finish(c, err)
}

func (c *Controller) checkMutableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.loading {
		return ErrLoading
	}
	return nil
}

// claimLocked returns the index of id and marks it busy with kind.
func (c *Controller) claimLocked(id int64, kind string) (int, error) {
	if err := c.checkMutableLocked(); err != nil {
		return -1, err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return -1, ErrNotFound
	}
	if _, ok := c.busy[id]; ok {
		return -1, ErrBusy
	}
	c.busy[id] = kind
	return i, nil
}

// opContext derives the context for a Store call. It is canceled by the
// caller's ctx or by Close, whichever comes first.
func (c *Controller) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version: c.version,
		Items:   service.Clone(c.items),
		Loading: c.loading,
		Err:     c.loadErr,
	}
}

// publishAndUnlock bumps the version, releases mu and delivers the snapshot.
// A subscriber that already holds a newer snapshot is skipped.
func (c *Controller) publishAndUnlock() {
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.subsMu.Lock()
	subs := make([]*subscriber, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subsMu.Unlock()

	for _, sub := range subs {
		if sub.last >= snap.Version {
			continue
		}
		sub.last = snap.Version
		sub.fn(snap)
	}
}

type opTrace struct {
	kind    string
	started time.Time
	log     zerolog.Logger
}

func (c *Controller) begin(kind string, id int64) *opTrace {
	c.metrics.start()
	l := c.log.With().Str("op", kind).Str("op_id", uuid.NewString()).Logger()
	if id != 0 {
		l = l.With().Int64("item", id).Logger()
	}
	l.Debug().Msg("applied locally")
	return &opTrace{kind: kind, started: time.Now(), log: l}
}

// finish records the outcome and maps it to the caller-visible error:
// cancellations become nil.
func (o *opTrace) finish(c *Controller, err error) error {
	elapsed := time.Since(o.started)
	switch {
	case err == nil:
		c.metrics.finish(o.kind, OutcomeCommitted, elapsed)
		o.log.Debug().Dur("elapsed", elapsed).Msg("committed")
		return nil
	case service.IsCanceled(err):
		c.metrics.finish(o.kind, OutcomeCanceled, elapsed)
		o.log.Debug().Dur("elapsed", elapsed).Msg("canceled, rolled back")
		return nil
	default:
		c.metrics.finish(o.kind, OutcomeFailed, elapsed)
		o.log.Warn().Err(err).Dur("elapsed", elapsed).Msg("failed, rolled back")
		return err
	}
}
