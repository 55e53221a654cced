package application

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore deduplicates forced refreshes by X-Idempotency-Key.
type IdempotencyStore interface {
	// TryReserve reports whether key was free and is now held.
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NoopIdempotency accepts every key.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

// MemoryIdempotency holds keys in process for a fixed TTL. Expired keys are
// dropped on the next reservation.
type MemoryIdempotency struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock Clock
	keys  map[string]time.Time
}

func NewMemoryIdempotency(ttl time.Duration, clock Clock) *MemoryIdempotency {
	if clock == nil {
		clock = realClock{}
	}
	return &MemoryIdempotency{ttl: ttl, clock: clock, keys: make(map[string]time.Time)}
}

func (m *MemoryIdempotency) TryReserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for k, exp := range m.keys {
		if !now.Before(exp) {
			delete(m.keys, k)
		}
	}
	if _, held := m.keys[key]; held {
		return false, nil
	}
	m.keys[key] = now.Add(m.ttl)
	return true, nil
}
