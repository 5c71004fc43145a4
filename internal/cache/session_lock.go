package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("session is locked by another request")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// SessionLocker serializes writers of one session across service replicas
// with a SET NX lease. Without redis every Acquire succeeds.
type SessionLocker struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewSessionLocker(cm *CacheManager, ttl time.Duration) *SessionLocker {
	if ttl <= 0 {
		ttl = LockConfig.TTL
	}
	return &SessionLocker{helper: cm.Lock, ttl: ttl}
}

// Acquire takes the lease for sessionID. The returned release func is safe
// to call more than once and only deletes a lease this call still owns.
func (l *SessionLocker) Acquire(ctx context.Context, sessionID uint) (func(), error) {
	if !l.helper.Available() {
		return func() {}, nil
	}

	key := l.helper.GetCacheKey(fmt.Sprintf("session:%d", sessionID))
	token := uuid.NewString()

	ok, err := l.helper.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.helper.client, []string{key}, token).Err(); err != nil {
			slog.ErrorContext(ctx, "Failed to release session lock", "error", err, "session_id", sessionID)
		}
	}, nil
}
