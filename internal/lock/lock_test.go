package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	locker := NewRedisLocker(client)
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		owner, err := locker.Acquire(ctx, "sync:lease", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, owner)

		_, err = locker.Acquire(ctx, "sync:lease", time.Minute)
		assert.ErrorIs(t, err, ErrHeld)

		require.NoError(t, locker.Release(ctx, "sync:lease", owner))

		_, err = locker.Acquire(ctx, "sync:lease", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("ReleaseWithWrongOwnerKeepsLease", func(t *testing.T) {
		owner, err := locker.Acquire(ctx, "sync:lease2", time.Minute)
		require.NoError(t, err)

		require.NoError(t, locker.Release(ctx, "sync:lease2", "not-the-owner"))

		_, err = locker.Acquire(ctx, "sync:lease2", time.Minute)
		assert.ErrorIs(t, err, ErrHeld)

		require.NoError(t, locker.Release(ctx, "sync:lease2", owner))
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		_, err := locker.Acquire(ctx, "sync:lease3", time.Second)
		require.NoError(t, err)

		s.FastForward(2 * time.Second)

		_, err = locker.Acquire(ctx, "sync:lease3", time.Second)
		assert.NoError(t, err)
	})
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	owner, err := locker.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	// Lease expires without an explicit release.
	time.Sleep(20 * time.Millisecond)
	_, err = locker.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)

	_ = owner
}

func TestFailoverLocker(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	logger := zerolog.Nop()
	failover := NewFailoverLocker(NewRedisLocker(client), NewMemoryLocker(), &logger)
	ctx := context.Background()

	owner, err := failover.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, failover.Release(ctx, "k", owner))

	// Primary down: acquisition still works via the memory fallback.
	s.Close()
	owner, err = failover.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	_, err = failover.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, failover.Release(ctx, "k", owner))
}
