package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gys/internal/config"
	"gys/internal/database"
	"gys/internal/models"
	"gys/internal/store"
	syncpkg "gys/internal/sync"
)

type fakeSyncService struct {
	fullRes *models.FullSyncResult
	incRes  *models.IncrementalSyncResult
	err     error

	notifications []models.Notification
}

func (f *fakeSyncService) FullSync(ctx context.Context) (*models.FullSyncResult, error) {
	return f.fullRes, f.err
}

func (f *fakeSyncService) RunIncremental(ctx context.Context) (*models.IncrementalSyncResult, error) {
	return f.incRes, f.err
}

func (f *fakeSyncService) HandleNotification(ctx context.Context, n models.Notification) (*models.IncrementalSyncResult, error) {
	f.notifications = append(f.notifications, n)
	return f.incRes, f.err
}

type fakeExporter struct {
	path string
	err  error
}

func (f *fakeExporter) Export(gelinler []*models.Gelin, from, to string) (string, error) {
	return f.path, f.err
}

func testConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "test-key", Name: "tests"},
				{Key: "limited-key", Name: "limited", Permissions: []string{"read:gelinler"}},
			},
		},
	}
}

func newTestServer(t *testing.T, syncer *fakeSyncService) (*HTTPServer, *store.MemoryStore, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	mem := store.NewMemory()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := NewHTTPServer(testConfig(), syncer, mem, db, &fakeExporter{}, &logger)
	return srv, mem, db
}

func doRequest(srv *HTTPServer, method, path string, body []byte, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if authed {
		req.Header.Set("x-api-key", "test-key")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthNoAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeSyncService{})
	rec := doRequest(srv, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeSyncService{fullRes: &models.FullSyncResult{}})

	t.Run("MissingKey", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler", nil, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/gelinler", nil)
		req.Header.Set("x-api-key", "wrong")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidKey", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/full", nil)
		req.Header.Set("x-api-key", "limited-key")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("PermissionGranted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/gelinler", nil)
		req.Header.Set("x-api-key", "limited-key")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 2}
	logger := zerolog.Nop()
	mem := store.NewMemory()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()
	srv := NewHTTPServer(cfg, &fakeSyncService{}, mem, db, &fakeExporter{}, &logger)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler", nil, true)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestSyncEndpoints(t *testing.T) {
	t.Run("FullSyncOK", func(t *testing.T) {
		syncer := &fakeSyncService{fullRes: &models.FullSyncResult{Deleted: 2, Fetched: 5, Added: 4}}
		srv, _, _ := newTestServer(t, syncer)

		rec := doRequest(srv, http.MethodPost, "/api/v1/sync/full", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var res models.FullSyncResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 4, res.Added)
	})

	t.Run("FullSyncConflict", func(t *testing.T) {
		syncer := &fakeSyncService{err: syncpkg.ErrSyncInProgress}
		srv, _, _ := newTestServer(t, syncer)

		rec := doRequest(srv, http.MethodPost, "/api/v1/sync/full", nil, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("IncrementalOK", func(t *testing.T) {
		syncer := &fakeSyncService{incRes: &models.IncrementalSyncResult{Upserted: 3}}
		srv, _, _ := newTestServer(t, syncer)

		rec := doRequest(srv, http.MethodPost, "/api/v1/sync/incremental", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("GetNotAllowed", func(t *testing.T) {
		srv, _, _ := newTestServer(t, &fakeSyncService{})
		rec := doRequest(srv, http.MethodGet, "/api/v1/sync/full", nil, true)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestWebhook(t *testing.T) {
	t.Run("ForwardsHeaders", func(t *testing.T) {
		syncer := &fakeSyncService{incRes: &models.IncrementalSyncResult{}}
		srv, _, _ := newTestServer(t, syncer)

		req := httptest.NewRequest(http.MethodPost, "/webhook/calendar", nil)
		req.Header.Set("X-Goog-Channel-ID", "chan-1")
		req.Header.Set("X-Goog-Resource-ID", "res-1")
		req.Header.Set("X-Goog-Resource-State", "exists")
		req.Header.Set("X-Goog-Channel-Token", "tok-1")
		req.Header.Set("X-Goog-Message-Number", "42")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, syncer.notifications, 1)
		n := syncer.notifications[0]
		assert.Equal(t, "chan-1", n.ChannelID)
		assert.Equal(t, "res-1", n.ResourceID)
		assert.Equal(t, "exists", n.ResourceState)
		assert.Equal(t, "tok-1", n.Token)
		assert.Equal(t, int64(42), n.Sequence)
	})

	t.Run("NoAPIKeyNeeded", func(t *testing.T) {
		syncer := &fakeSyncService{incRes: &models.IncrementalSyncResult{}}
		srv, _, _ := newTestServer(t, syncer)

		rec := doRequest(srv, http.MethodPost, "/webhook/calendar", nil, false)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("InProgressStillAcked", func(t *testing.T) {
		syncer := &fakeSyncService{err: syncpkg.ErrSyncInProgress}
		srv, _, _ := newTestServer(t, syncer)

		rec := doRequest(srv, http.MethodPost, "/webhook/calendar", nil, false)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGelinEndpoints(t *testing.T) {
	ctx := context.Background()
	srv, mem, _ := newTestServer(t, &fakeSyncService{})

	b := mem.Batch()
	b.Set("ev-1", map[string]interface{}{
		"id": "ev-1", "ad": "Ayşe", "tarih": "2026-06-12", "saat": "10:30",
		"anlasilanUcret": 15000, "ucretKaydedildi": true,
	})
	b.Set("ev-2", map[string]interface{}{
		"id": "ev-2", "ad": "Elif", "tarih": "2026-07-01", "saat": "09:00",
		"anlasilanUcret": -1,
	})
	require.NoError(t, b.Commit(ctx))

	t.Run("List", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("ListRange", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler?from=2026-06-01&to=2026-06-30", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("ListBadDate", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler?from=12.06.2026", nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("GetByID", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler/ev-1", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var g models.Gelin
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
		assert.Equal(t, "Ayşe", g.Ad)
	})

	t.Run("GetMissing", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler/ev-404", nil, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("UnprocessedFees", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/gelinler/unprocessed", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Gelinler []models.Gelin `json:"gelinler"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Gelinler, 1)
		assert.Equal(t, "ev-2", resp.Gelinler[0].ID)
	})
}

func TestPersonnelEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeSyncService{})

	body, _ := json.Marshal(map[string]any{"ad": "Saliha", "rol": "makyaj"})
	rec := doRequest(srv, http.MethodPost, "/api/v1/personnel", body, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Personnel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	assert.True(t, created.Aktif)

	t.Run("MissingName", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"rol": "sac"})
		rec := doRequest(srv, http.MethodPost, "/api/v1/personnel", body, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("List", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/personnel?active=true", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("Update", func(t *testing.T) {
		created.Rol = "sac"
		body, _ := json.Marshal(created)
		rec := doRequest(srv, http.MethodPut, "/api/v1/personnel/1", body, true)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("CheckInAndReplay", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]any{
			"personnel_id": created.ID, "direction": "giris", "nonce": "qr-abc",
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/attendance/checkin", payload, true)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(srv, http.MethodPost, "/api/v1/attendance/checkin", payload, true)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("CheckInBadDirection", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]any{
			"personnel_id": created.ID, "direction": "sideways", "nonce": "qr-x",
		})
		rec := doRequest(srv, http.MethodPost, "/api/v1/attendance/checkin", payload, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("AttendanceList", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/personnel/1/attendance", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("Deactivate", func(t *testing.T) {
		rec := doRequest(srv, http.MethodDelete, "/api/v1/personnel/1", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(srv, http.MethodGet, "/api/v1/personnel?active=true", nil, true)
		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
	})
}

func TestExportEndpoint(t *testing.T) {
	logger := zerolog.Nop()
	mem := store.NewMemory()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx-bytes"), 0o644))
	srv := NewHTTPServer(testConfig(), &fakeSyncService{}, mem, db, &fakeExporter{path: path}, &logger)

	t.Run("MissingRange", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/export", nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ServesFile", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/export?from=2026-06-01&to=2026-06-30", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "xlsx-bytes", rec.Body.String())
	})
}
