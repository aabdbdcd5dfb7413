package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard stores token digests with SET NX PX.
type RedisGuard struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisOption customises a RedisGuard.
type RedisOption func(*RedisGuard)

// WithKeyPrefix overrides the key namespace (default "gcr").
func WithKeyPrefix(prefix string) RedisOption {
	return func(g *RedisGuard) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// WithClock sets the time source used to derive entry TTLs.
func WithClock(now func() time.Time) RedisOption {
	return func(g *RedisGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewRedisGuard returns a Guard backed by redisClient.
func NewRedisGuard(redisClient redis.UniversalClient, opts ...RedisOption) *RedisGuard {
	g := &RedisGuard{
		redis:  redisClient,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RedisGuard) key(token string) string {
	return g.prefix + ":" + Digest(token)
}

// Consume implements Guard.
func (g *RedisGuard) Consume(ctx context.Context, token string, expiry time.Time) error {
	ok, err := g.redis.SetNX(ctx, g.key(token), 1, entryTTL(expiry, g.now())).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrReplayed
	}
	return nil
}
