package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/autosearch"
	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/decisioning"
	"github.com/matchday/matchday/internal/downloader/queue"
	"github.com/matchday/matchday/internal/events"
	"github.com/matchday/matchday/internal/indexer/search"
	"github.com/matchday/matchday/internal/indexer/status"
	"github.com/matchday/matchday/internal/profiles"
	"github.com/matchday/matchday/internal/rsssync"
	"github.com/matchday/matchday/internal/websocket"
)

type noopIndexerSource struct{}

func (noopIndexerSource) Entries(ctx context.Context) ([]search.IndexerEntry, error) { return nil, nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "matchday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	eventsStore := events.New(db.Conn())
	queueStore := queue.New(db.Conn())
	profilesStore := profiles.New(db.Conn())
	tracker := status.NewTracker()
	nopLogger := zerolog.Nop()
	hub := websocket.NewHub(&nopLogger)

	orchestrator := search.New(tracker, zerolog.Nop())
	rss := rsssync.NewService(noopIndexerSource{}, orchestrator, nil, eventsStore, profilesStore, nil, nil, decisioning.NewGrabLock(), hub, zerolog.Nop())
	as := autosearch.NewService(eventsStore, noopIndexerSource{}, orchestrator, profilesStore, nil, nil, decisioning.NewGrabLock(), hub, zerolog.Nop())
	settingsHandler := rsssync.NewSettingsHandler(db.Conn(), rsssync.Settings{Enabled: true, IntervalMin: rsssync.DefaultIntervalMinutes})

	return NewServer(eventsStore, queueStore, tracker, rss, settingsHandler, as, hub, "test-api-key", zerolog.Nop())
}

func TestRoutes_RejectMissingApiKey(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_ListEventsWithValidKey(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer test-api-key")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "null\n", rec.Body.String())
}

func TestRoutes_IndexerStatusWithValidKey(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/status", nil)
	req.Header.Set("Authorization", "Bearer test-api-key")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_RssSyncSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/settings/rsssync", nil)
	getReq.Header.Set("Authorization", "Bearer test-api-key")
	getRec := httptest.NewRecorder()
	s.echo.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	putReq := httptest.NewRequest(http.MethodPut, "/api/v1/settings/rsssync", strings.NewReader(`{"enabled":false,"intervalMin":30}`))
	putReq.Header.Set("Authorization", "Bearer test-api-key")
	putReq.Header.Set("Content-Type", "application/json")
	putRec := httptest.NewRecorder()
	s.echo.ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)
	require.JSONEq(t, `{"enabled":false,"intervalMin":30}`, putRec.Body.String())
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
