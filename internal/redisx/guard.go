package redisx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitGuard is a per-session lock held for the duration of an order
// submission. The TTL bounds how long a crashed submit can block the session.
type SubmitGuard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewSubmitGuard(rdb redis.Cmdable) *SubmitGuard {
	return &SubmitGuard{rdb: rdb, ttl: TTLSubmitLock}
}

// Acquire takes the lock. ok is false when another submit holds it.
func (g *SubmitGuard) Acquire(ctx context.Context, sessionKey string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, SubmitLockKey(sessionKey), token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock if token still owns it.
func (g *SubmitGuard) Release(ctx context.Context, sessionKey, token string) error {
	return releaseScript.Run(ctx, g.rdb, []string{SubmitLockKey(sessionKey)}, token).Err()
}
