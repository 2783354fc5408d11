package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	redisKeyPrefix    = "taskboard:owner-lock:"
	redisRetryDelay   = 25 * time.Millisecond
	redisUnlockBudget = 2 * time.Second
)

// Deletes the key only if it still holds our token, so an expired lock
// re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a Locker shared by every process using the same Redis.
// ttl bounds how long a crashed holder can block the owner.
func NewRedis(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisLocker) Lock(ctx context.Context, ownerID string) (func(), error) {
	key := redisKeyPrefix + ownerID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, lockCtxErr(ctxErr)
			}
			return nil, fmt.Errorf("failed to acquire owner lock: %w", err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(redisRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lockCtxErr(ctx.Err())
		case <-timer.C:
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), redisUnlockBudget)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

func lockCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return err
}
