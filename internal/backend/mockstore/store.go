// Package mockstore implements service.Store in memory with simulated
// latency and random failure injection.
package mockstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"optask/internal/service"
)

const (
	// DefaultLatency is the delay every call incurs before resolving.
	DefaultLatency = 600 * time.Millisecond

	// DefaultFailRate is the probability that a call fails.
	DefaultFailRate = 0.15
)

// DefaultSeed is the fixture the store starts with unless overridden.
func DefaultSeed() []service.Item {
	return []service.Item{
		{ID: 1, Title: "Buy milk", Done: false},
		{ID: 2, Title: "Read hooks docs", Done: true},
		{ID: 3, Title: "Write Task Three", Done: false},
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLatency sets the simulated latency.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithFailRate sets the failure probability, clamped to [0, 1].
func WithFailRate(p float64) Option {
	return func(s *Store) {
		switch {
		case p < 0:
			p = 0
		case p > 1:
			p = 1
		}
		s.failRate = p
	}
}

// WithRand sets the random source used for failure trials.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithSeed replaces the initial items. IDs are kept as given; new IDs are
// issued above the highest seeded ID.
func WithSeed(items []service.Item) Option {
	return func(s *Store) { s.seed = items }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store is an in-memory service.Store.
type Store struct {
	latency  time.Duration
	failRate float64
	seed     []service.Item
	log      zerolog.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	items  []service.Item
	lastID int64
}

// New creates a Store seeded with DefaultSeed unless WithSeed is given.
func New(opts ...Option) *Store {
	s := &Store{
		latency:  DefaultLatency,
		failRate: DefaultFailRate,
		seed:     DefaultSeed(),
		log:      log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.log = s.log.With().Str("component", "mockstore").Logger()

	for _, it := range s.seed {
		it.Pending = false
		s.items = append(s.items, it)
		if it.ID > s.lastID {
			s.lastID = it.ID
		}
	}
	s.seed = nil
	return s
}

// Items returns a copy of the authoritative list.
func (s *Store) Items() []service.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return service.Clone(s.items)
}

// List implements service.Store.
func (s *Store) List(ctx context.Context) ([]service.Item, error) {
	if err := s.roundTrip(ctx, "list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return service.Clone(s.items), nil
}

// Create implements service.Store.
func (s *Store) Create(ctx context.Context, title string) (service.Item, error) {
	if err := s.roundTrip(ctx, "create"); err != nil {
		return service.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	it := service.Item{ID: s.lastID, Title: title}
	s.items = append([]service.Item{it}, s.items...)
	return it, nil
}

// Toggle implements service.Store.
func (s *Store) Toggle(ctx context.Context, id int64) (service.Item, error) {
	if err := s.roundTrip(ctx, "toggle"); err != nil {
		return service.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Done = !s.items[i].Done
			return s.items[i], nil
		}
	}
	return service.Item{}, fmt.Errorf("toggle %d: %w", id, service.ErrNotFound)
}

// Delete implements service.Store.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.roundTrip(ctx, "delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %d: %w", id, service.ErrNotFound)
}

// roundTrip waits out the latency, then decides the call's fate:
// canceled if ctx is done, failed with probability failRate, otherwise nil.
func (s *Store) roundTrip(ctx context.Context, op string) error {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			s.log.Debug().Str("op", op).Msg("canceled in flight")
			return fmt.Errorf("%s: %w", op, service.ErrCanceled)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, service.ErrCanceled)
	}
	if s.fail() {
		s.log.Debug().Str("op", op).Msg("injected failure")
		return fmt.Errorf("%s: %w", op, service.ErrNetworkFailure)
	}
	return nil
}

func (s *Store) fail() bool {
	if s.failRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.failRate
}
