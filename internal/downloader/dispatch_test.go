package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/downloader/queue"
)

func TestDispatch_SubmitsToTransmissionAndEnqueues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","arguments":{"torrent-added":{"hashString":"abc123"}}}`))
	}))
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "matchday.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	conn := db.Conn()
	u, err2 := url.Parse(srv.URL)
	require.NoError(t, err2)
	host := u.Hostname()
	port, _ := strconv.Atoi(u.Port())

	_, err = conn.Exec(`
		INSERT INTO download_clients (id, name, type, protocol, host, port, username, password, api_key, use_ssl, category, priority, enabled)
		VALUES (1, 'tr', 'transmission', 'torrent', ?, ?, '', '', '', 0, 'matchday', 50, 1)
	`, host, port)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO quality_profiles (id, name, cutoff, created_at, updated_at) VALUES (1, 'HD', 3, 'now', 'now')`)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO events (id, title, sport, event_date, quality_profile_id, created_at, updated_at) VALUES (7, 'UFC 310', 'ufc', 'now', 1, 'now', 'now')`)
	require.NoError(t, err)

	dispatch := NewDispatch(NewClientStore(conn), queue.New(conn), nil, zerolog.Nop())

	event := &domain.Event{ID: 7}
	release := &domain.ReleaseSearchResult{
		GUID: "g1", Title: "UFC 310 1080p", DownloadURL: "magnet:?xt=urn:btih:abc123",
		Protocol: domain.ProtocolTorrent, SizeBytes: 4_000_000_000, PublishDate: time.Now(),
	}

	item, err := dispatch.Dispatch(context.Background(), event, "", release)
	require.NoError(t, err)
	require.NotZero(t, item.ID)

	stored, err := queue.New(conn).Get(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DownloadStatusQueued, stored.Status)
	require.Equal(t, "g1", stored.ReleaseGUID)
}
