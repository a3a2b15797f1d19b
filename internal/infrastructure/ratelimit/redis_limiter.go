package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Counter is the subset of *redis.Client the limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Limiter allows at most limit hits per key in each fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter in Redis. Each window gets its own
// key, which expires shortly after the window closes.
type RedisLimiter struct {
	rdb    Counter
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

func NewRedisLimiter(rdb Counter, prefix string, limit int, window time.Duration, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow counts a hit. When Redis is unreachable the hit is allowed and the
// error returned for logging.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	n, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("incr %s: %w", redisKey, err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, redisKey, 2*l.window).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", redisKey).Msg("set window expiry")
		}
	}
	return n <= l.limit, nil
}

// Unlimited allows everything. Used when no Redis address is configured.
type Unlimited struct{}

func (Unlimited) Allow(ctx context.Context, key string) (bool, error) { return true, nil }
