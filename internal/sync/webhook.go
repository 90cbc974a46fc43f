package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gys/internal/domain"
	"gys/internal/events"
	"gys/internal/metrics"
	"gys/internal/models"
)

// HandleNotification validates a push delivery and, when accepted, runs
// an incremental pass with the persisted cursor. Validation failures are
// a silent ignore: nothing about the check leaks back to the sender.
func (e *Engine) HandleNotification(ctx context.Context, n models.Notification) (*models.IncrementalSyncResult, error) {
	ok, err := e.validateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IncWebhook("rejected")
		e.logger.Debug().
			Str("channel_id", n.ChannelID).
			Int64("sequence", n.Sequence).
			Msg("webhook notification rejected")
		return nil, nil
	}
	metrics.IncWebhook("accepted")

	// The initial "sync" delivery only confirms the channel works.
	if n.ResourceState == models.ResourceStateSync {
		e.logger.Info().Str("channel_id", n.ChannelID).Msg("webhook channel confirmed")
		return nil, nil
	}

	return e.RunIncremental(ctx)
}

// validateNotification checks the notification's channel/resource/token
// triple against the most recent channel records. The newest channel is
// valid for its whole lifetime; superseded ones stay valid only within
// the grace window after their creation was displaced by the renewal.
// Sequence numbers advance monotonically per channel, so replays and
// out-of-order deliveries fail the check.
func (e *Engine) validateNotification(ctx context.Context, n models.Notification) (bool, error) {
	chans, err := e.store.RecentChannels(ctx, e.cfg.ChannelLookback)
	if err != nil {
		return false, err
	}

	now := e.now()
	for i, ch := range chans {
		if ch.ChannelID != n.ChannelID || ch.ResourceID != n.ResourceID || ch.Token != n.Token {
			continue
		}
		if !ch.Expiration.IsZero() && now.After(ch.Expiration) {
			return false, nil
		}
		if i > 0 && now.Sub(chans[0].CreatedAt) > e.cfg.GraceWindow {
			// Superseded longer than the grace window ago.
			return false, nil
		}
		if n.Sequence > 0 {
			// The conditional advance is the duplicate check, so two
			// simultaneous deliveries of one sequence cannot both pass.
			err := e.store.AdvanceSequence(ctx, ch.ChannelID, n.Sequence)
			if errors.Is(err, domain.ErrStaleSequence) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
		}
		return true, nil
	}
	return false, nil
}

// EnsureChannel renews the push subscription when none exists or the
// current one expires within renewAhead. Expired leftovers are stopped
// and removed best-effort.
func (e *Engine) EnsureChannel(ctx context.Context, address string, channelTTL, renewAhead time.Duration) (*models.WebhookChannel, error) {
	chans, err := e.store.RecentChannels(ctx, e.cfg.ChannelLookback)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if len(chans) > 0 && chans[0].Expiration.After(now.Add(renewAhead)) {
		return chans[0], nil
	}

	ch, err := e.provider.Watch(ctx, uuid.NewString(), uuid.NewString(), address, channelTTL)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveChannel(ctx, ch); err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("channel_id", ch.ChannelID).
		Time("expiration", ch.Expiration).
		Msg("webhook channel renewed")
	e.publish(events.EventChannelRenewed, events.ChannelPayload{ChannelID: ch.ChannelID, Expiration: ch.Expiration})

	for _, old := range chans {
		if now.Before(old.Expiration) {
			continue
		}
		if err := e.provider.StopChannel(ctx, old.ChannelID, old.ResourceID); err != nil {
			e.logger.Warn().Err(err).Str("channel_id", old.ChannelID).Msg("stop expired channel")
		}
		if err := e.store.DeleteChannel(ctx, old.ChannelID); err != nil {
			e.logger.Warn().Err(err).Str("channel_id", old.ChannelID).Msg("delete expired channel")
		}
	}

	return ch, nil
}
