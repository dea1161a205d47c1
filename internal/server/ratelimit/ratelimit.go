// Package ratelimit implements fixed-window request throttling keyed by
// (endpoint path, client key). The counting store is injected, so tests get
// an isolated store per case and deployments can swap the in-memory map for
// Redis without touching callers.
//
// Fixed-window counting admits bursts at window boundaries; that is a known
// tradeoff for simplicity. Callers needing smoother shaping can layer a
// Smoother on top.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Config holds the ceiling for one throttled surface.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Named presets used by the HTTP layer.
var (
	PresetAuth   = Config{Window: 15 * time.Minute, MaxRequests: 5}
	PresetAPI    = Config{Window: 15 * time.Minute, MaxRequests: 100}
	PresetUpload = Config{Window: time.Hour, MaxRequests: 10}
	PresetDeploy = Config{Window: 24 * time.Hour, MaxRequests: 5}
	PresetAdmin  = Config{Window: time.Hour, MaxRequests: 50}
)

// Decision is the outcome of one Admit call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the whole-second wait to report when denied.
	RetryAfter int
}

// Store is an atomic counting backend. Incr must increment the counter for
// key and return the post-increment count and the window reset time in one
// atomic step, starting a fresh window when none exists or the previous one
// expired. Two concurrent calls for the same key must observe distinct
// counts.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter makes fixed-window admit decisions over a Store.
type Limiter struct {
	store Store
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Admit counts one request for (endpointPath, clientKey) and decides whether
// it may proceed under cfg. The increment and the read are a single atomic
// store operation, so concurrent requests for one key cannot both slip under
// the ceiling.
func (l *Limiter) Admit(ctx context.Context, endpointPath, clientKey string, cfg Config) (Decision, error) {
	key := fmt.Sprintf("%s|%s", endpointPath, clientKey)

	count, resetAt, err := l.store.Incr(ctx, key, cfg.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit store: %w", err)
	}

	d := Decision{Limit: cfg.MaxRequests, ResetAt: resetAt}

	if count > int64(cfg.MaxRequests) {
		until := time.Until(resetAt)
		retry := int((until + time.Second - 1) / time.Second)
		if retry < 1 {
			retry = 1
		}
		d.RetryAfter = retry
		return d, nil
	}

	d.Allowed = true
	d.Remaining = cfg.MaxRequests - int(count)
	return d, nil
}
