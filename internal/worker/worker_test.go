package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gys/internal/calendar"
	"gys/internal/events"
	"gys/internal/models"
	"gys/internal/store"
	"gys/internal/sync"
)

type fakeRunner struct {
	fullCalls    int
	incCalls     int
	channelCalls int
	incErr       error
	fullErr      error
}

func (f *fakeRunner) FullSync(ctx context.Context) (*models.FullSyncResult, error) {
	f.fullCalls++
	return &models.FullSyncResult{}, f.fullErr
}

func (f *fakeRunner) RunIncremental(ctx context.Context) (*models.IncrementalSyncResult, error) {
	f.incCalls++
	return &models.IncrementalSyncResult{}, f.incErr
}

func (f *fakeRunner) EnsureChannel(ctx context.Context, address string, ttl, renewAhead time.Duration) (*models.WebhookChannel, error) {
	f.channelCalls++
	return &models.WebhookChannel{ChannelID: "chan-1"}, nil
}

type fakeNotifier struct {
	failures []string
	digests  [][]*models.Gelin
}

func (f *fakeNotifier) NotifySyncFailure(ctx context.Context, kind string, err error) error {
	f.failures = append(f.failures, kind)
	return nil
}

func (f *fakeNotifier) NotifyUnprocessedFees(ctx context.Context, gelinler []*models.Gelin) error {
	f.digests = append(f.digests, gelinler)
	return nil
}

func newScheduler(runner *fakeRunner, mem *store.MemoryStore, notifier *fakeNotifier) *Scheduler {
	logger := zerolog.Nop()
	retry := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	cfg := Config{WebhookAddress: "https://gys.example/webhook/calendar"}
	return NewScheduler(runner, mem, mem, notifier, nil, retry, cfg, &logger)
}

func TestRunSync(t *testing.T) {
	ctx := context.Background()

	t.Run("IncrementalByDefault", func(t *testing.T) {
		runner := &fakeRunner{}
		mem := store.NewMemory()
		s := newScheduler(runner, mem, &fakeNotifier{})

		s.RunSync(ctx)
		assert.Equal(t, 1, runner.incCalls)
		assert.Equal(t, 0, runner.fullCalls)
	})

	t.Run("FullWhenFlagged", func(t *testing.T) {
		runner := &fakeRunner{}
		mem := store.NewMemory()
		require.NoError(t, mem.SaveCursor(ctx, &models.SyncCursor{FullResyncNeeded: true}))
		s := newScheduler(runner, mem, &fakeNotifier{})

		s.RunSync(ctx)
		assert.Equal(t, 1, runner.fullCalls)
		assert.Equal(t, 0, runner.incCalls)
	})

	t.Run("RetriesThenAlerts", func(t *testing.T) {
		runner := &fakeRunner{incErr: errors.New("quota exceeded")}
		mem := store.NewMemory()
		notifier := &fakeNotifier{}
		s := newScheduler(runner, mem, notifier)

		s.RunSync(ctx)
		assert.Equal(t, 2, runner.incCalls)
		assert.Equal(t, []string{"incremental"}, notifier.failures)
	})

	t.Run("RejectedTokenDefersToFullResync", func(t *testing.T) {
		runner := &fakeRunner{incErr: calendar.ErrSyncTokenInvalid}
		mem := store.NewMemory()
		notifier := &fakeNotifier{}
		s := newScheduler(runner, mem, notifier)

		// No in-pass retry: a rerun would window-fall-back, overwrite
		// the cursor and skip the full resync the engine just flagged.
		s.RunSync(ctx)
		assert.Equal(t, 1, runner.incCalls)
		assert.Equal(t, 0, runner.fullCalls)
		assert.Empty(t, notifier.failures)

		// The engine flagged the cursor; the next pass goes full.
		require.NoError(t, mem.SaveCursor(ctx, &models.SyncCursor{FullResyncNeeded: true}))
		runner.incErr = nil
		s.RunSync(ctx)
		assert.Equal(t, 1, runner.fullCalls)
		assert.Equal(t, 1, runner.incCalls)
	})

	t.Run("HeldLeaseIsNotRetried", func(t *testing.T) {
		runner := &fakeRunner{incErr: sync.ErrSyncInProgress}
		mem := store.NewMemory()
		notifier := &fakeNotifier{}
		s := newScheduler(runner, mem, notifier)

		s.RunSync(ctx)
		assert.Equal(t, 1, runner.incCalls)
		assert.Empty(t, notifier.failures)
	})
}

func TestRenewChannel(t *testing.T) {
	t.Run("CallsEnsure", func(t *testing.T) {
		runner := &fakeRunner{}
		s := newScheduler(runner, store.NewMemory(), &fakeNotifier{})
		s.RenewChannel(context.Background())
		assert.Equal(t, 1, runner.channelCalls)
	})

	t.Run("SkippedWithoutAddress", func(t *testing.T) {
		runner := &fakeRunner{}
		s := newScheduler(runner, store.NewMemory(), &fakeNotifier{})
		s.cfg.WebhookAddress = ""
		s.RenewChannel(context.Background())
		assert.Equal(t, 0, runner.channelCalls)
	})
}

func TestRunFeeScan(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	mem := store.NewMemory()
	b := mem.Batch()
	b.Set("ev-1", map[string]interface{}{
		"id": "ev-1", "ad": "Ayşe", "tarih": "2026-06-05", "saat": "10:00",
		"anlasilanUcret": -1,
	})
	b.Set("ev-2", map[string]interface{}{
		"id": "ev-2", "ad": "Elif", "tarih": "2026-06-06", "saat": "11:00",
		"anlasilanUcret": 12000, "ucretKaydedildi": true,
	})
	b.Set("ev-3", map[string]interface{}{
		"id": "ev-3", "ad": "Zeynep", "tarih": "2026-09-01", "saat": "12:00",
		"anlasilanUcret": -1,
	})
	require.NoError(t, b.Commit(ctx))

	notifier := &fakeNotifier{}
	s := newScheduler(&fakeRunner{}, mem, notifier)
	s.now = func() time.Time { return base }

	bus := events.NewEventBus()
	s.bus = bus
	var alerts []events.FeeAlertPayload
	bus.Subscribe(events.EventFeeAlert, func(ev *events.Event) error {
		var p events.FeeAlertPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		alerts = append(alerts, p)
		return nil
	})

	s.RunFeeScan(ctx)

	// Only the unprocessed record inside the look-ahead window shows up.
	require.Len(t, notifier.digests, 1)
	require.Len(t, notifier.digests[0], 1)
	assert.Equal(t, "ev-1", notifier.digests[0][0].ID)

	// The digest is also published on the bus.
	require.Len(t, alerts, 1)
	assert.Equal(t, 1, alerts[0].Count)
	assert.Equal(t, []string{"ev-1"}, alerts[0].IDs)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	// Clamped to MaxDelay.
	assert.Equal(t, 5*time.Second, p.NextDelay(4))
	// Attempts below 1 behave like the first.
	assert.Equal(t, time.Second, p.NextDelay(0))
}

func TestSchedulerStartStops(t *testing.T) {
	runner := &fakeRunner{}
	s := newScheduler(runner, store.NewMemory(), &fakeNotifier{})
	s.cfg.SyncInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}

	// The startup channel renewal plus at least one sync tick ran.
	assert.GreaterOrEqual(t, runner.channelCalls, 1)
	assert.GreaterOrEqual(t, runner.incCalls, 1)
}
