package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gys/internal/domain"
)

// FailoverLocker uses the primary locker until it errors, then serves
// from the fallback and probes the primary again after a minute.
// ErrHeld is a verdict, not an infrastructure error, and never triggers
// failover.
type FailoverLocker struct {
	primary   domain.Locker
	fallback  domain.Locker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverLocker(primary, fallback domain.Locker, logger *zerolog.Logger) *FailoverLocker {
	return &FailoverLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (l *FailoverLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !l.isDown.Load() {
		owner, err := l.primary.Acquire(ctx, key, ttl)
		if err == nil || errors.Is(err, ErrHeld) {
			return owner, err
		}
		l.logger.Error().Err(err).Msg("primary locker failed, falling back to memory")
		l.markDown()
	}

	if l.shouldProbe() {
		owner, err := l.primary.Acquire(ctx, key, ttl)
		if err == nil || errors.Is(err, ErrHeld) {
			l.isDown.Store(false)
			return owner, err
		}
		l.lastCheck.Store(time.Now().UnixNano())
	}

	return l.fallback.Acquire(ctx, key, ttl)
}

func (l *FailoverLocker) Release(ctx context.Context, key, owner string) error {
	if !l.isDown.Load() {
		if err := l.primary.Release(ctx, key, owner); err == nil {
			return nil
		} else {
			l.logger.Error().Err(err).Msg("primary locker failed, falling back to memory")
			l.markDown()
		}
	}
	return l.fallback.Release(ctx, key, owner)
}

func (l *FailoverLocker) markDown() {
	l.isDown.Store(true)
	l.lastCheck.Store(time.Now().UnixNano())
}

func (l *FailoverLocker) shouldProbe() bool {
	return l.isDown.Load() && time.Since(time.Unix(0, l.lastCheck.Load())) > time.Minute
}
