package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockRepository guards AI turns of a room. The lock expires on its own if the holder dies.
type LockRepository interface {
	Acquire(ctx context.Context, roomID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, roomID, owner string) error
}

type dbLock struct {
	client *redis.Client
}

func NewLockRepository(client *redis.Client) LockRepository {
	return &dbLock{
		client: client,
	}
}

func (that *dbLock) Acquire(ctx context.Context, roomID, owner string, ttl time.Duration) (bool, error) {
	ok, err := that.client.SetNX(ctx, botLockKey(roomID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire bot lock: %w", err)
	}

	return ok, nil
}

// Release deletes the lock only if owner still holds it.
func (that *dbLock) Release(ctx context.Context, roomID, owner string) error {
	if err := releaseLockScript.Run(ctx, that.client, []string{botLockKey(roomID)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release bot lock: %w", err)
	}

	return nil
}
