package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// runLockKey serializes the collections pass across replicas.
const runLockKey = "collectra:collections:run"

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RunLocker holds the distributed run lock. A nil locker (no Redis
// configured) degrades to single-instance mode where every TryLock succeeds.
type RunLocker struct {
	client *redis.Client
	script *redis.Script
}

func NewRunLocker(client *redis.Client) *RunLocker {
	if client == nil {
		return nil
	}
	return &RunLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *RunLocker) TryLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, runLockKey, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RunLocker) Release(ctx context.Context, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{runLockKey}, token).Err()
}
