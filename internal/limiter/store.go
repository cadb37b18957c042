package limiter

import (
	"context"
	"sync"
	"time"
)

// Entry is the window state tracked for a single identifier.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Result reports the outcome of Check or Peek.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// Used is the number of admitted calls in the current window.
	Used  int
	Limit int
}

// RetryAfter returns the time left until the window resets, never negative.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Stats summarizes the entries currently held by a Store.
type Stats struct {
	TotalKeys  int `json:"totalKeys"`
	ActiveKeys int `json:"activeKeys"`
}

// Store is an in-memory fixed-window counter keyed by identifier.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry

	name       string
	limit      int
	window     time.Duration
	sweepEvery time.Duration
	clock      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source used for window arithmetic.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSweepEvery sets the janitor interval. Zero disables the janitor.
func WithSweepEvery(d time.Duration) Option {
	return func(s *Store) { s.sweepEvery = d }
}

// NewStore creates a store admitting limit calls per window.
func NewStore(name string, limit int, window time.Duration, opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*Entry),
		name:       name,
		limit:      limit,
		window:     window,
		sweepEvery: 5 * time.Minute,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string              { return s.name }
func (s *Store) Limit() int                { return s.limit }
func (s *Store) Window() time.Duration     { return s.window }
func (s *Store) SweepEvery() time.Duration { return s.sweepEvery }
func (s *Store) Now() time.Time            { return s.clock() }

// Check admits or denies one call for id. A denied call does not consume quota.
func (s *Store) Check(id string) Result {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[id]
	if !ok || expired(ent, now) {
		ent = &Entry{Count: 1, ResetAt: now.Add(s.window)}
		s.entries[id] = ent
		return Result{
			Allowed:   true,
			Remaining: s.limit - 1,
			ResetAt:   ent.ResetAt,
			Used:      1,
			Limit:     s.limit,
		}
	}

	if ent.Count >= s.limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   ent.ResetAt,
			Used:      ent.Count,
			Limit:     s.limit,
		}
	}

	ent.Count++
	return Result{
		Allowed:   true,
		Remaining: s.limit - ent.Count,
		ResetAt:   ent.ResetAt,
		Used:      ent.Count,
		Limit:     s.limit,
	}
}

// Peek reports the state for id without creating or mutating an entry.
//
// With no live window the reset time is a hypothetical now+window.
func (s *Store) Peek(id string) Result {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[id]
	if !ok || expired(ent, now) {
		return Result{
			Allowed:   s.limit > 0,
			Remaining: s.limit,
			ResetAt:   now.Add(s.window),
			Used:      0,
			Limit:     s.limit,
		}
	}

	remaining := s.limit - ent.Count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   remaining > 0,
		Remaining: remaining,
		ResetAt:   ent.ResetAt,
		Used:      ent.Count,
		Limit:     s.limit,
	}
}

// Sweep deletes expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if expired(ent, now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Stats counts total and unexpired entries.
func (s *Store) Stats() Stats {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{TotalKeys: len(s.entries)}
	for _, ent := range s.entries {
		if !expired(ent, now) {
			st.ActiveKeys++
		}
	}
	return st
}

// RunSweeper calls Sweep on every tick until ctx is done. It blocks.
func (s *Store) RunSweeper(ctx context.Context, ticks <-chan time.Time, onSweep func(removed int)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			removed := s.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}

// StartJanitor sweeps on the configured interval in a background goroutine.
// Stop it by cancelling ctx.
func (s *Store) StartJanitor(ctx context.Context, onSweep func(removed int)) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		s.RunSweeper(ctx, t.C, onSweep)
	}()
}

func expired(ent *Entry, now time.Time) bool {
	return now.After(ent.ResetAt)
}
