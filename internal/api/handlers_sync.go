package api

import (
	"errors"
	"net/http"
	"strconv"

	"gys/internal/models"
	"gys/internal/sync"
)

func (s *HTTPServer) handleSyncFull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := s.syncer.FullSync(r.Context())
	if errors.Is(err, sync.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("full sync failed")
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleSyncIncremental(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := s.syncer.RunIncremental(r.Context())
	if errors.Is(err, sync.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("incremental sync failed")
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleWebhook receives Google Calendar push deliveries. Rejections
// and in-progress runs still get a 2xx so the sender does not hammer
// a dead channel; real failures get a 5xx to trigger redelivery.
func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n := models.Notification{
		ChannelID:     r.Header.Get("X-Goog-Channel-ID"),
		ResourceID:    r.Header.Get("X-Goog-Resource-ID"),
		ResourceState: r.Header.Get("X-Goog-Resource-State"),
		Token:         r.Header.Get("X-Goog-Channel-Token"),
	}
	if raw := r.Header.Get("X-Goog-Message-Number"); raw != "" {
		if seq, err := strconv.ParseInt(raw, 10, 64); err == nil {
			n.Sequence = seq
		}
	}

	_, err := s.syncer.HandleNotification(r.Context(), n)
	if errors.Is(err, sync.ErrSyncInProgress) {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("channel_id", n.ChannelID).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}
