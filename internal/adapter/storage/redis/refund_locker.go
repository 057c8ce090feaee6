package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrLockWaitExceeded is returned when the lock stays held past the wait budget.
var ErrLockWaitExceeded = errors.New("refund lock wait exceeded")

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RefundLocker implements ports.RefundLocker with SET NX PX, so refunds on the
// same transaction serialize across every node sharing the Redis instance.
type RefundLocker struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration // auto-release if the holder dies
	wait   time.Duration // max time Lock blocks
	retry  time.Duration
	log    zerolog.Logger
}

// NewRefundLocker creates a Redis-backed refund lock.
func NewRefundLocker(client *goredis.Client, log zerolog.Logger) *RefundLocker {
	return &RefundLocker{
		client: client,
		prefix: keyPrefix + "refund-lock:",
		ttl:    10 * time.Second,
		wait:   3 * time.Second,
		retry:  25 * time.Millisecond,
		log:    log,
	}
}

// Lock acquires the per-transaction lock, polling until it is free, the wait
// budget is spent, or ctx is done.
func (l *RefundLocker) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	key := l.prefix + id.String()
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.tryAcquire(ctx, key, token)
		if err != nil {
			return nil, err
		}
		if acquired {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockWaitExceeded
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *RefundLocker) tryAcquire(ctx context.Context, key, token string) (bool, error) {
	result, err := l.client.SetArgs(ctx, key, token, goredis.SetArgs{
		Mode: "NX",
		TTL:  l.ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, someone else holds the lock
			return false, nil
		}
		return false, fmt.Errorf("redis refund lock: %w", err)
	}
	return result == "OK", nil
}

func (l *RefundLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("failed to release refund lock")
	}
}
