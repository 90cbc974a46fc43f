package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"gys/internal/calendar"
	"gys/internal/domain"
	"gys/internal/events"
	"gys/internal/models"
	"gys/internal/sync"
)

// SyncRunner is the slice of the sync engine the scheduler drives.
type SyncRunner interface {
	FullSync(ctx context.Context) (*models.FullSyncResult, error)
	RunIncremental(ctx context.Context) (*models.IncrementalSyncResult, error)
	EnsureChannel(ctx context.Context, address string, channelTTL, renewAhead time.Duration) (*models.WebhookChannel, error)
}

type Config struct {
	SyncInterval     time.Duration
	ChannelInterval  time.Duration
	FeeAlertInterval time.Duration
	WebhookAddress   string
	ChannelTTL       time.Duration
	RenewAhead       time.Duration
	FeeLookAheadDays int
}

func (c *Config) applyDefaults() {
	if c.SyncInterval <= 0 {
		c.SyncInterval = 15 * time.Minute
	}
	if c.ChannelInterval <= 0 {
		c.ChannelInterval = time.Hour
	}
	if c.FeeAlertInterval <= 0 {
		c.FeeAlertInterval = 24 * time.Hour
	}
	if c.ChannelTTL <= 0 {
		c.ChannelTTL = 7 * 24 * time.Hour
	}
	if c.RenewAhead <= 0 {
		c.RenewAhead = 24 * time.Hour
	}
	if c.FeeLookAheadDays <= 0 {
		c.FeeLookAheadDays = 14
	}
}

// Scheduler keeps the store fresh in the background: periodic
// incremental passes, full resyncs when the cursor demands one,
// webhook channel renewal and the unprocessed-fee digest.
type Scheduler struct {
	engine   SyncRunner
	cursors  domain.CursorStore
	gelinler domain.GelinStore
	notifier domain.Notifier
	bus      domain.EventPublisher
	retry    RetryPolicy
	cfg      Config
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewScheduler(
	engine SyncRunner,
	cursors domain.CursorStore,
	gelinler domain.GelinStore,
	notifier domain.Notifier,
	bus domain.EventPublisher,
	retry RetryPolicy,
	cfg Config,
	logger *zerolog.Logger,
) *Scheduler {
	cfg.applyDefaults()
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 5 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}

	return &Scheduler{
		engine:   engine,
		cursors:  cursors,
		gelinler: gelinler,
		notifier: notifier,
		bus:      bus,
		retry:    retry,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().
		Dur("sync_interval", s.cfg.SyncInterval).
		Msg("scheduler started")
	defer s.logger.Info().Msg("scheduler stopped")

	syncTicker := time.NewTicker(s.cfg.SyncInterval)
	defer syncTicker.Stop()
	channelTicker := time.NewTicker(s.cfg.ChannelInterval)
	defer channelTicker.Stop()
	feeTicker := time.NewTicker(s.cfg.FeeAlertInterval)
	defer feeTicker.Stop()

	// Prime the channel subscription before the first tick.
	s.RenewChannel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			s.RunSync(ctx)
		case <-channelTicker.C:
			s.RenewChannel(ctx)
		case <-feeTicker.C:
			s.RunFeeScan(ctx)
		}
	}
}

// RunSync performs one scheduled pass: a full sync when the cursor is
// flagged for resync, an incremental pass otherwise. Transient errors
// are retried with backoff; exhausted retries alert the managers.
func (s *Scheduler) RunSync(ctx context.Context) {
	cursor, err := s.cursors.GetCursor(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("load sync cursor")
		return
	}

	mode := "incremental"
	run := s.runIncremental
	if cursor != nil && cursor.FullResyncNeeded {
		mode = "full"
		run = s.runFull
	}

	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxRetries; attempt++ {
		lastErr = run(ctx)
		if lastErr == nil {
			return
		}
		if errors.Is(lastErr, sync.ErrSyncInProgress) {
			// Another instance holds the lease; nothing to retry.
			s.logger.Debug().Str("mode", mode).Msg("sync lease held elsewhere")
			return
		}
		if errors.Is(lastErr, calendar.ErrSyncTokenInvalid) {
			// The cursor is already flagged; retrying in-pass would
			// run a window fallback that skips the full resync.
			s.logger.Warn().Msg("sync token rejected, full resync on next pass")
			return
		}
		if ctx.Err() != nil {
			return
		}
		delay := s.retry.NextDelay(attempt)
		s.logger.Warn().
			Err(lastErr).
			Str("mode", mode).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("sync attempt failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	s.logger.Error().Err(lastErr).Str("mode", mode).Msg("sync failed after retries")
	if s.notifier != nil {
		if err := s.notifier.NotifySyncFailure(ctx, mode, lastErr); err != nil {
			s.logger.Error().Err(err).Msg("notify sync failure")
		}
	}
}

func (s *Scheduler) runIncremental(ctx context.Context) error {
	_, err := s.engine.RunIncremental(ctx)
	return err
}

func (s *Scheduler) runFull(ctx context.Context) error {
	_, err := s.engine.FullSync(ctx)
	return err
}

// RenewChannel keeps the push subscription alive.
func (s *Scheduler) RenewChannel(ctx context.Context) {
	if s.cfg.WebhookAddress == "" {
		return
	}
	if _, err := s.engine.EnsureChannel(ctx, s.cfg.WebhookAddress, s.cfg.ChannelTTL, s.cfg.RenewAhead); err != nil {
		s.logger.Error().Err(err).Msg("ensure webhook channel")
	}
}

// RunFeeScan publishes the digest of upcoming bookings whose fee was
// never processed and forwards it to the managers.
func (s *Scheduler) RunFeeScan(ctx context.Context) {
	from := s.now().Format("2006-01-02")
	to := s.now().AddDate(0, 0, s.cfg.FeeLookAheadDays).Format("2006-01-02")
	gelinler, err := s.gelinler.List(ctx, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list gelinler for fee scan")
		return
	}

	var unprocessed []*models.Gelin
	for _, g := range gelinler {
		if g.AnlasilanUcret == models.FeeUnknown || !g.UcretKaydedildi {
			unprocessed = append(unprocessed, g)
		}
	}
	if len(unprocessed) == 0 {
		return
	}

	ids := make([]string, len(unprocessed))
	for i, g := range unprocessed {
		ids[i] = g.ID
	}
	if s.bus != nil {
		if err := s.bus.PublishJSON(events.EventFeeAlert, events.FeeAlertPayload{IDs: ids, Count: len(ids)}); err != nil {
			s.logger.Warn().Err(err).Msg("publish fee alert")
		}
	}

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUnprocessedFees(ctx, unprocessed); err != nil {
		s.logger.Error().Err(err).Msg("notify unprocessed fees")
	}
}
