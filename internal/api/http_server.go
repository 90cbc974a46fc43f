package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gys/internal/config"
	"gys/internal/domain"
	"gys/internal/metrics"
	"gys/internal/models"
)

// SyncService is the slice of the sync engine the HTTP layer drives.
type SyncService interface {
	FullSync(ctx context.Context) (*models.FullSyncResult, error)
	RunIncremental(ctx context.Context) (*models.IncrementalSyncResult, error)
	HandleNotification(ctx context.Context, n models.Notification) (*models.IncrementalSyncResult, error)
}

// Exporter writes a spreadsheet for the given records and returns its path.
type Exporter interface {
	Export(gelinler []*models.Gelin, from, to string) (string, error)
}

// HTTPServer exposes the studio API: sync triggers, the calendar
// webhook, booking reads, personnel management and exports.
type HTTPServer struct {
	cfg       config.APIConfig
	syncer    SyncService
	store     domain.GelinStore
	personnel domain.PersonnelRepository
	exporter  Exporter
	logger    *zerolog.Logger
	server    *http.Server
	auth      *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	syncer SyncService,
	store domain.GelinStore,
	personnel domain.PersonnelRepository,
	exporter Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:       cfg,
		syncer:    syncer,
		store:     store,
		personnel: personnel,
		exporter:  exporter,
		logger:    logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/sync/full", srv.handleSyncFull)
	mux.HandleFunc("/api/v1/sync/incremental", srv.handleSyncIncremental)
	mux.HandleFunc("/webhook/calendar", srv.handleWebhook)
	mux.HandleFunc("/api/v1/gelinler", srv.handleGelinler)
	mux.HandleFunc("/api/v1/gelinler/unprocessed", srv.handleUnprocessedFees)
	mux.HandleFunc("/api/v1/gelinler/", srv.handleGelin)
	mux.HandleFunc("/api/v1/personnel", srv.handlePersonnelCollection)
	mux.HandleFunc("/api/v1/personnel/", srv.handlePersonnelItem)
	mux.HandleFunc("/api/v1/attendance/checkin", srv.handleCheckIn)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(r.URL.Path)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
