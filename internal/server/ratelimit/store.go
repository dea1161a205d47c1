package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// sweepOneIn is the inverse probability of running an expired-entry sweep on
// a given Incr call. Cleanup is best-effort: a stale record is replaced on
// its next access anyway, the sweep only bounds memory under churning keys.
const sweepOneIn = 100

type record struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a mutex-guarded fixed-window counter map. The increment and
// read happen under one lock acquisition, satisfying Store's atomicity
// contract.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*record

	now func() time.Time // test seam
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*record),
		now:     time.Now,
	}
}

// Incr implements Store.
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || !now.Before(ent.resetAt) {
		// Fresh window: replace, never carry a count across the boundary.
		ent = &record{count: 0, resetAt: now.Add(window)}
		s.entries[key] = ent
	}
	ent.count++

	if rand.IntN(sweepOneIn) == 0 {
		s.sweepLocked(now)
	}

	return ent.count, ent.resetAt, nil
}

// Len reports the number of tracked keys, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes all expired records immediately.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, ent := range s.entries {
		if !now.Before(ent.resetAt) {
			delete(s.entries, k)
		}
	}
}
