// Package sync reconciles the studio's Google Calendar into the booking
// collection. Three triggers share one engine: scheduled full resyncs,
// token-based incremental passes and webhook push notifications.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gys/internal/calendar"
	"gys/internal/domain"
	"gys/internal/events"
	"gys/internal/lock"
	"gys/internal/metrics"
	"gys/internal/models"
)

// ErrSyncInProgress means another pass holds the sync lease. Callers
// report it as a distinct outcome, not a failure.
var ErrSyncInProgress = errors.New("sync: another sync is in progress")

const lockKey = "gys:sync:lease"

// Store is the persistence surface the engine needs: booking records,
// the sync cursor and webhook channel records.
type Store interface {
	domain.GelinStore
	domain.CursorStore
	domain.ChannelStore
}

type Config struct {
	Abbreviations   map[string]string
	LockTTL         time.Duration
	GraceWindow     time.Duration
	ChannelLookback int
	YearsBack       int
	YearsAhead      int
}

func (c *Config) applyDefaults() {
	if c.LockTTL <= 0 {
		c.LockTTL = models.SyncLockTTLSeconds * time.Second
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = models.ChannelGraceMinutes * time.Minute
	}
	if c.ChannelLookback <= 0 {
		c.ChannelLookback = models.ChannelLookback
	}
	if c.YearsBack <= 0 {
		c.YearsBack = models.FullSyncYearsBack
	}
	if c.YearsAhead <= 0 {
		c.YearsAhead = models.FullSyncYearsAhead
	}
}

type Engine struct {
	provider domain.EventProvider
	store    Store
	locker   domain.Locker
	bus      domain.EventPublisher
	cfg      Config
	logger   *zerolog.Logger
	now      func() time.Time
}

func New(provider domain.EventProvider, store Store, locker domain.Locker, bus domain.EventPublisher, cfg Config, logger *zerolog.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		provider: provider,
		store:    store,
		locker:   locker,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// FullSync wipes the collection and rebuilds it from a bounded
// multi-year window. Idempotent for an unchanged event set.
func (e *Engine) FullSync(ctx context.Context) (*models.FullSyncResult, error) {
	start := e.now()
	owner, err := e.locker.Acquire(ctx, lockKey, e.cfg.LockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := e.locker.Release(ctx, lockKey, owner); err != nil {
			e.logger.Warn().Err(err).Msg("release sync lease")
		}
	}()

	res := &models.FullSyncResult{}

	ids, err := e.store.ListIDs(ctx)
	if err != nil {
		return res, e.fail("full", err)
	}

	// Deletions respect the store's per-batch write limit.
	for i := 0; i < len(ids); i += models.DeleteBatchSize {
		end := min(i+models.DeleteBatchSize, len(ids))
		batch := e.store.Batch()
		for _, id := range ids[i:end] {
			batch.Delete(id)
		}
		if err := batch.Commit(ctx); err != nil {
			return res, e.fail("full", err)
		}
		res.Deleted += end - i
	}
	metrics.AddRecordsDeleted(res.Deleted)

	from := start.AddDate(-e.cfg.YearsBack, 0, 0)
	to := start.AddDate(e.cfg.YearsAhead, 0, 0)
	evs, token, err := e.provider.ListWindow(ctx, from, to)
	if err != nil {
		return res, e.fail("full", err)
	}
	res.Fetched = len(evs)

	// Write batches stay smaller than delete batches: each record
	// carries the full parsed description payload.
	batch := e.store.Batch()
	for _, ev := range evs {
		if ev.Status == models.EventStatusCancelled || !ev.HasStart {
			continue
		}
		batch.Set(ev.ID, recordFields(ev, e.cfg.Abbreviations, e.now()))
		res.Added++
		if batch.Len() >= models.WriteBatchSize {
			if err := batch.Commit(ctx); err != nil {
				return res, e.fail("full", err)
			}
			batch = e.store.Batch()
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return res, e.fail("full", err)
	}
	metrics.AddRecordsWritten(res.Added)

	// Persisting the bootstrapped token moves subsequent passes onto
	// the delta path, the only carrier of cancellation signals.
	if err := e.store.SaveCursor(ctx, &models.SyncCursor{Token: token}); err != nil {
		return res, e.fail("full", err)
	}

	metrics.IncSync("full", "ok")
	metrics.ObserveSyncDuration("full", e.now().Sub(start))
	e.logger.Info().
		Int("deleted", res.Deleted).
		Int("fetched", res.Fetched).
		Int("added", res.Added).
		Msg("full sync completed")
	e.publish(events.EventSyncCompleted, events.SyncPayload{Mode: "full", Deleted: res.Deleted, Written: res.Added})
	return res, nil
}

// IncrementalSync applies the provider delta since syncToken as a single
// batch. With no token it falls back to a bounded window fetch of merge
// upserts and bootstraps a fresh token. The caller persists the returned
// token; a rejected token surfaces as calendar.ErrSyncTokenInvalid so
// the caller can schedule a full resync instead.
func (e *Engine) IncrementalSync(ctx context.Context, syncToken string) (*models.IncrementalSyncResult, error) {
	start := e.now()
	owner, err := e.locker.Acquire(ctx, lockKey, e.cfg.LockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := e.locker.Release(ctx, lockKey, owner); err != nil {
			e.logger.Warn().Err(err).Msg("release sync lease")
		}
	}()

	var (
		evs  []*models.CalendarEvent
		next string
	)
	if syncToken == "" {
		from := start.AddDate(-e.cfg.YearsBack, 0, 0)
		to := start.AddDate(e.cfg.YearsAhead, 0, 0)
		evs, next, err = e.provider.ListWindow(ctx, from, to)
	} else {
		evs, next, err = e.provider.Changes(ctx, syncToken)
	}
	if errors.Is(err, calendar.ErrSyncTokenInvalid) {
		metrics.IncSync("incremental", "token_invalid")
		return nil, err
	}
	if err != nil {
		metrics.IncSync("incremental", "error")
		e.publish(events.EventSyncFailed, events.SyncPayload{Mode: "incremental", Error: err.Error()})
		return nil, err
	}

	res := &models.IncrementalSyncResult{NextToken: next}
	batch := e.store.Batch()
	for _, ev := range evs {
		switch {
		case ev.Status == models.EventStatusCancelled:
			batch.Delete(ev.ID)
			res.Deleted++
		case ev.HasStart:
			batch.SetMerge(ev.ID, recordFields(ev, e.cfg.Abbreviations, e.now()))
			res.Upserted++
		}
	}
	if err := batch.Commit(ctx); err != nil {
		metrics.IncSync("incremental", "error")
		e.publish(events.EventSyncFailed, events.SyncPayload{Mode: "incremental", Error: err.Error()})
		return res, fmt.Errorf("commit incremental batch: %w", err)
	}

	metrics.AddRecordsWritten(res.Upserted)
	metrics.AddRecordsDeleted(res.Deleted)
	metrics.IncSync("incremental", "ok")
	metrics.ObserveSyncDuration("incremental", e.now().Sub(start))
	e.logger.Info().
		Int("upserted", res.Upserted).
		Int("deleted", res.Deleted).
		Bool("window_fallback", syncToken == "").
		Msg("incremental sync completed")
	e.publish(events.EventSyncCompleted, events.SyncPayload{Mode: "incremental", Written: res.Upserted, Deleted: res.Deleted})
	return res, nil
}

// RunIncremental loads the persisted cursor, runs an incremental pass
// and persists the new token. A rejected token flags the cursor for a
// full resync and still propagates ErrSyncTokenInvalid.
func (e *Engine) RunIncremental(ctx context.Context) (*models.IncrementalSyncResult, error) {
	cursor, err := e.store.GetCursor(ctx)
	if err != nil {
		return nil, err
	}
	token := ""
	if cursor != nil {
		token = cursor.Token
	}

	res, err := e.IncrementalSync(ctx, token)
	if errors.Is(err, calendar.ErrSyncTokenInvalid) {
		if saveErr := e.store.SaveCursor(ctx, &models.SyncCursor{FullResyncNeeded: true}); saveErr != nil {
			e.logger.Error().Err(saveErr).Msg("flag full resync")
		}
		return nil, err
	}
	if err != nil {
		return res, err
	}

	next := &models.SyncCursor{Token: res.NextToken}
	if cursor != nil {
		// A pending full resync survives interleaved incremental
		// passes; only FullSync clears the flag.
		next.FullResyncNeeded = cursor.FullResyncNeeded
	}
	if err := e.store.SaveCursor(ctx, next); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) fail(mode string, err error) error {
	metrics.IncSync(mode, "error")
	e.publish(events.EventSyncFailed, events.SyncPayload{Mode: mode, Error: err.Error()})
	return fmt.Errorf("%s sync: %w", mode, err)
}

func (e *Engine) publish(eventType string, payload interface{}) {
	if e.bus == nil {
		return
	}
	if err := e.bus.PublishJSON(eventType, payload); err != nil {
		e.logger.Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}
