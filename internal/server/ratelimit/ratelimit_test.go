package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmit_AllowsUpToLimitThenDenies(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	lim := NewLimiter(store)
	cfg := Config{Window: 15 * time.Minute, MaxRequests: 5}
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := lim.Admit(ctx, "/api/auth/login", "1.2.3.4", cfg)
		require.NoError(t, err)
		require.True(t, d.Allowed, "call %d should be allowed", i)
		assert.Equal(t, 5-i, d.Remaining, "call %d remaining", i)
		assert.Equal(t, 5, d.Limit)
	}

	d, err := lim.Admit(ctx, "/api/auth/login", "1.2.3.4", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "6th call should be denied")
	assert.Greater(t, d.RetryAfter, 0)
}

func TestAdmit_FreshWindowAfterExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	lim := NewLimiter(store)
	cfg := Config{Window: time.Minute, MaxRequests: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := lim.Admit(ctx, "/p", "k", cfg)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := lim.Admit(ctx, "/p", "k", cfg)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// Window elapses: the record is replaced, not incremented.
	now = now.Add(time.Minute + time.Second)
	d, err = lim.Admit(ctx, "/p", "k", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)
}

func TestAdmit_KeysArePartitioned(t *testing.T) {
	t.Parallel()

	lim := NewLimiter(NewMemoryStore())
	cfg := Config{Window: time.Minute, MaxRequests: 1}
	ctx := context.Background()

	d, err := lim.Admit(ctx, "/a", "client-1", cfg)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Same client, different endpoint: separate counter.
	d, err = lim.Admit(ctx, "/b", "client-1", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Same endpoint, different client: separate counter.
	d, err = lim.Admit(ctx, "/a", "client-2", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Same endpoint and client: over the ceiling.
	d, err = lim.Admit(ctx, "/a", "client-1", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

// Two concurrent requests for one key must never both observe "below limit"
// when the true post-increment count exceeds it: increment-and-check is one
// atomic store step.
func TestAdmit_ConcurrentRequestsNeverOverAdmit(t *testing.T) {
	t.Parallel()

	lim := NewLimiter(NewMemoryStore())
	cfg := Config{Window: time.Minute, MaxRequests: 50}
	ctx := context.Background()

	const workers = 200
	var wg sync.WaitGroup
	allowed := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := lim.Admit(ctx, "/burst", "shared", cfg)
			if err != nil {
				t.Error(err)
				return
			}
			if d.Allowed {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for range allowed {
		n++
	}
	assert.Equal(t, cfg.MaxRequests, n, "exactly MaxRequests calls may pass")
}

func TestPresets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		preset Config
		window time.Duration
		max    int
	}{
		{"auth", PresetAuth, 15 * time.Minute, 5},
		{"api", PresetAPI, 15 * time.Minute, 100},
		{"upload", PresetUpload, time.Hour, 10},
		{"deploy", PresetDeploy, 24 * time.Hour, 5},
		{"admin", PresetAdmin, time.Hour, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.window, tc.preset.Window)
			assert.Equal(t, tc.max, tc.preset.MaxRequests)
		})
	}
}
