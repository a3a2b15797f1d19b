package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64), expires: make(map[string]time.Duration)}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	rdb := newFakeCounter()
	l := NewRedisLimiter(rdb, "track", 3, time.Minute, zerolog.Nop())
	now := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, err := l.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)

	// other clients have their own budget
	ok, _ = l.Allow(ctx, "198.51.100.2")
	assert.True(t, ok)

	// the next window starts fresh
	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "203.0.113.7")
	assert.True(t, ok)

	assert.Len(t, rdb.expires, 3)
	for _, d := range rdb.expires {
		assert.Equal(t, 2*time.Minute, d)
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	rdb := newFakeCounter()
	rdb.err = errors.New("dial tcp: connection refused")
	l := NewRedisLimiter(rdb, "track", 1, time.Minute, zerolog.Nop())

	ok, err := l.Allow(context.Background(), "203.0.113.7")

	assert.True(t, ok)
	assert.Error(t, err)
}

func TestUnlimited(t *testing.T) {
	ok, err := Unlimited{}.Allow(context.Background(), "anyone")
	assert.True(t, ok)
	assert.NoError(t, err)
}
