// Package lock provides the lease preventing overlapping sync passes.
// Redis is the primary backend with an in-process fallback, so a Redis
// outage degrades to single-instance mutual exclusion instead of
// disabling syncs entirely.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld means another sync pass currently owns the lease. Callers
// treat this as "sync in progress", not as a failure.
var ErrHeld = errors.New("lock: already held")

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lease with SETNX and a TTL bounding how long a
// crashed holder can block the next pass. The returned owner token is
// required for release.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", ErrHeld
	}
	return owner, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release deletes the lease only when owner still holds it, so a pass
// that outlived its TTL cannot release a successor's lease.
func (l *RedisLocker) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

type memoryLease struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker is the in-process fallback. Only meaningful when a single
// instance runs the sync engine.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]memoryLease)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if lease, ok := l.leases[key]; ok && now.Before(lease.expiresAt) {
		return "", ErrHeld
	}

	owner := uuid.NewString()
	l.leases[key] = memoryLease{owner: owner, expiresAt: now.Add(ttl)}
	return owner, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, ok := l.leases[key]; ok && lease.owner == owner {
		delete(l.leases, key)
	}
	return nil
}
