package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"gys/internal/calendar"
	"gys/internal/config"
	"gys/internal/domain"
	"gys/internal/events"
	"gys/internal/lock"
	"gys/internal/logging"
	"gys/internal/metrics"
	"gys/internal/models"
	"gys/internal/notify"
	"gys/internal/store"
	"gys/internal/sync"
	"gys/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	abbrevs, err := loadStaff(&logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs, err := store.NewFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile, store.CollectionNames{
		Gelinler: cfg.Firestore.Collections.Gelinler,
		Meta:     cfg.Firestore.Collections.Meta,
		Channels: cfg.Firestore.Collections.Channels,
	})
	if err != nil {
		logger.Error().Err(err).Msg("init firestore")
		return err
	}
	defer fs.Close()

	cal, err := calendar.NewClient(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Calendar.Timezone)
	if err != nil {
		logger.Error().Err(err).Msg("init calendar client")
		return err
	}

	locker := initLocker(cfg, &logger)
	bus := events.NewEventBus()
	subscribeSyncEvents(bus, &logger)

	engine := sync.New(cal, fs, locker, bus, sync.Config{
		Abbreviations:   abbrevs,
		LockTTL:         time.Duration(cfg.Sync.LockTTLSeconds) * time.Second,
		GraceWindow:     time.Duration(cfg.Sync.GraceMinutes) * time.Minute,
		ChannelLookback: cfg.Sync.ChannelLookback,
		YearsBack:       cfg.Sync.YearsBack,
		YearsAhead:      cfg.Sync.YearsAhead,
	}, &logger)

	notifier := initNotifier(cfg, &logger)

	scheduler := worker.NewScheduler(engine, fs, fs, notifier, bus, worker.RetryPolicy{}, worker.Config{
		SyncInterval:   time.Duration(cfg.Sync.IntervalMinutes) * time.Minute,
		WebhookAddress: cfg.Calendar.WebhookAddress,
		ChannelTTL:     time.Duration(cfg.Calendar.ChannelTTLHours) * time.Hour,
		RenewAhead:     time.Duration(cfg.Calendar.RenewAheadHours) * time.Hour,
	}, &logger)

	startMetrics(ctx, cfg, &logger)

	logger.Info().Msg("syncd started")
	scheduler.Start(ctx)
	logger.Info().Msg("syncd stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "syncd-main").Logger()

	return cfg, logger, closer, nil
}

func loadStaff(logger *zerolog.Logger) (map[string]string, error) {
	staffPath := os.Getenv("STAFF_PATH")
	if staffPath == "" {
		staffPath = "configs/staff.yaml"
	}
	staffData, err := os.ReadFile(staffPath)
	if err != nil {
		logger.Error().Err(err).Str("staff_path", staffPath).Msg("read staff")
		return nil, err
	}

	var staffConfig struct {
		Staff []models.Staff `yaml:"staff"`
	}
	if err := yaml.Unmarshal(staffData, &staffConfig); err != nil {
		logger.Error().Err(err).Str("staff_path", staffPath).Msg("parse staff")
		return nil, err
	}
	if err := config.ValidateStaff(staffConfig.Staff); err != nil {
		return nil, err
	}

	abbrevs := make(map[string]string, len(staffConfig.Staff))
	for _, s := range staffConfig.Staff {
		abbrevs[s.Initials] = s.Name
	}
	return abbrevs, nil
}

// subscribeSyncEvents attaches audit logging to the sync event stream.
func subscribeSyncEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventSyncCompleted, func(ev *events.Event) error {
		logger.Info().RawJSON("payload", ev.Payload).Msg("sync completed")
		return nil
	})
	bus.Subscribe(events.EventSyncFailed, func(ev *events.Event) error {
		logger.Warn().RawJSON("payload", ev.Payload).Msg("sync failed")
		return nil
	})
	bus.Subscribe(events.EventChannelRenewed, func(ev *events.Event) error {
		logger.Info().RawJSON("payload", ev.Payload).Msg("webhook channel renewed")
		return nil
	})
	bus.Subscribe(events.EventFeeAlert, func(ev *events.Event) error {
		logger.Info().RawJSON("payload", ev.Payload).Msg("unprocessed fee digest")
		return nil
	})
}

// initNotifier returns nil when telegram is not configured; the
// scheduler treats a nil notifier as alerts disabled.
func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" || len(cfg.Managers) == 0 {
		logger.Warn().Msg("telegram not configured, manager alerts disabled")
		return nil
	}

	notifier, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.Debug, cfg.Managers, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without alerts")
		return nil
	}
	return notifier
}

func initLocker(cfg *config.Config, logger *zerolog.Logger) domain.Locker {
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis not configured, sync lease is process-local")
		return lock.NewMemoryLocker()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, sync lease is process-local")
		return lock.NewMemoryLocker()
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return lock.NewFailoverLocker(lock.NewRedisLocker(redisClient), lock.NewMemoryLocker(), logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9091
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
