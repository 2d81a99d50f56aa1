// Package redislock serializes booking requests across API instances with a
// Redis key per booking.
package redislock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hotelsync/pkg/config"
)

const (
	keyPrefix    = "hotelsync:lock:booking:"
	retryBackoff = 25 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

type Locker struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Locker{rdb: rdb, ttl: ttl, log: log}
}

// NewClient connects to Redis and pings it. Callers fall back to the
// in-process lock when it fails.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Lock blocks until the booking key is free or ctx ends. The key expires
// after the TTL even if unlock is never called.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	rkey := keyPrefix + key
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		t := time.NewTimer(retryBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release on a fresh context; the request context may already be done.
			rctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{rkey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.log.Warn("redis lock release failed", "key", rkey, "err", err)
			}
		})
	}, nil
}
