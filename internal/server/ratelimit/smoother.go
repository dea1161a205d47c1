package ratelimit

import (
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Smoother is a per-key token-bucket layered on top of the fixed window for
// callers that cannot tolerate boundary bursts. It caches one rate.Limiter
// per key; limiters idle past idleTTL are swept opportunistically on a small
// fraction of Allow calls, so the cache stays bounded under churning keys
// without a dedicated janitor goroutine.
type Smoother struct {
	mu      sync.Mutex
	entries map[string]*smootherEntry

	rps     rate.Limit
	burst   int
	idleTTL time.Duration

	now func() time.Time // test seam
}

type smootherEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type SmootherOption func(*Smoother)

func WithIdleTTL(d time.Duration) SmootherOption {
	return func(s *Smoother) { s.idleTTL = d }
}

func NewSmoother(rps float64, burst int, opts ...SmootherOption) *Smoother {
	s := &Smoother{
		entries: make(map[string]*smootherEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow reports whether one event for key may happen now.
func (s *Smoother) Allow(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &smootherEntry{lim: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = ent
	}
	ent.lastSeen = now

	if rand.IntN(sweepOneIn) == 0 {
		s.cleanupLocked(now)
	}

	return ent.lim.Allow()
}

// Cleanup drops limiters that have been idle past the configured TTL.
func (s *Smoother) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked(s.now())
}

func (s *Smoother) cleanupLocked(now time.Time) {
	cutoff := now.Add(-s.idleTTL)
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}
