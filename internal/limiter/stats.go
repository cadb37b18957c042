package limiter

import (
	"context"
	"sync"
	"time"
)

// Event is one admission decision made by a Store.
//
// Keep key tracking off for public deployments: every visitor IP becomes a
// separate series.
type Event struct {
	Limiter string
	Key     string
	Allowed bool
	At      time.Time
}

// Recorder persists admission events. Callers treat errors as best-effort.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Counters holds allowed/denied tallies.
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// MemoryRecorder keeps admission counters in process memory. Nothing expires.
type MemoryRecorder struct {
	mu        sync.Mutex
	total     Counters
	byLimiter map[string]Counters
	byKey     map[string]Counters

	trackKeys bool
}

// MemoryOption configures a MemoryRecorder.
type MemoryOption func(*MemoryRecorder)

// WithTrackKeys enables per-identifier counters.
func WithTrackKeys(track bool) MemoryOption {
	return func(m *MemoryRecorder) { m.trackKeys = track }
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder(opts ...MemoryOption) *MemoryRecorder {
	m := &MemoryRecorder{
		byLimiter: make(map[string]Counters),
		byKey:     make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryRecorder) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bump := func(c Counters) Counters {
		if ev.Allowed {
			c.Allowed++
		} else {
			c.Denied++
		}
		return c
	}

	m.total = bump(m.total)
	m.byLimiter[ev.Limiter] = bump(m.byLimiter[ev.Limiter])
	if m.trackKeys && ev.Key != "" {
		m.byKey[ev.Key] = bump(m.byKey[ev.Key])
	}
	return nil
}

func (m *MemoryRecorder) Total() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

func (m *MemoryRecorder) ByLimiter() map[string]Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Counters, len(m.byLimiter))
	for k, v := range m.byLimiter {
		out[k] = v
	}
	return out
}

func (m *MemoryRecorder) ByKey() map[string]Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Counters, len(m.byKey))
	for k, v := range m.byKey {
		out[k] = v
	}
	return out
}

// Summarizer reports per-limiter counters for status output.
type Summarizer interface {
	Summary(ctx context.Context) (map[string]Counters, error)
}

// Summary implements Summarizer.
func (m *MemoryRecorder) Summary(context.Context) (map[string]Counters, error) {
	return m.ByLimiter(), nil
}
