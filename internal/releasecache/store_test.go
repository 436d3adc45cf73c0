package releasecache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "matchday.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	// indexer row for the FK the release_cache table requires
	_, err = db.Conn().Exec(`INSERT INTO indexers (id, name, type, base_url, priority, enabled) VALUES (1, 'test', 'torznab', 'http://x', 25, 1)`)
	require.NoError(t, err)

	return New(db.Conn(), zerolog.Nop())
}

func TestIngest_InsertsNewAndRefreshesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	release := &domain.ReleaseSearchResult{
		GUID:        "guid-1",
		IndexerID:   1,
		Title:       "UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL-GROUP",
		DownloadURL: "http://example/1",
		Protocol:    domain.ProtocolTorrent,
		SizeBytes:   5_000_000_000,
		Seeders:     10,
		PublishDate: time.Now(),
	}
	require.NoError(t, store.Ingest(ctx, []*domain.ReleaseSearchResult{release}, false))

	release.Seeders = 99
	require.NoError(t, store.Ingest(ctx, []*domain.ReleaseSearchResult{release}, false))

	var seeders int
	require.NoError(t, store.db.QueryRow(`SELECT seeders FROM release_cache WHERE guid = ?`, "guid-1").Scan(&seeders))
	require.Equal(t, 99, seeders)
}

func TestFindMatching_ReturnsOnlyMatchedReleases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	good := &domain.ReleaseSearchResult{
		GUID: "good", IndexerID: 1, Title: "UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL-GROUP",
		DownloadURL: "http://x/1", Protocol: domain.ProtocolTorrent, PublishDate: time.Now(),
	}
	bad := &domain.ReleaseSearchResult{
		GUID: "bad", IndexerID: 1, Title: "UFC 309 Someone vs Other 2024 1080p WEB-DL-GROUP",
		DownloadURL: "http://x/2", Protocol: domain.ProtocolTorrent, PublishDate: time.Now(),
	}
	require.NoError(t, store.Ingest(ctx, []*domain.ReleaseSearchResult{good, bad}, false))

	event := &domain.Event{
		Title:         "UFC 310: Pantoja vs Asakura",
		Sport:         domain.SportUFC,
		EpisodeNumber: 310,
		EventDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	matches, err := store.FindMatching(ctx, event, "", false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "good", matches[0].GUID)
}

func TestFindMatching_FootballMatchesAnyLeaguePrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	release := &domain.ReleaseSearchResult{
		GUID: "epl", IndexerID: 1, Title: "Arsenal vs Chelsea Premier League 2024",
		DownloadURL: "http://x/1", Protocol: domain.ProtocolTorrent, PublishDate: time.Now(),
	}
	require.NoError(t, store.Ingest(ctx, []*domain.ReleaseSearchResult{release}, false))

	var prefix string
	require.NoError(t, store.db.QueryRow(`SELECT sport_prefix FROM release_cache WHERE guid = ?`, "epl").Scan(&prefix))
	require.Equal(t, "EPL", prefix)

	event := &domain.Event{
		Title:     "Arsenal vs Chelsea Premier League 2024",
		Sport:     domain.SportFootball,
		HomeTeam:  "Arsenal",
		AwayTeam:  "Chelsea",
		EventDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	matches, err := store.FindMatching(ctx, event, "", false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "epl", matches[0].GUID)
}

func TestSweepExpired_RemovesOnlyPastExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	release := &domain.ReleaseSearchResult{
		GUID: "stale", IndexerID: 1, Title: "UFC 310 Prelims 720p WEB-DL",
		DownloadURL: "http://x/1", Protocol: domain.ProtocolTorrent, PublishDate: time.Now(),
	}
	require.NoError(t, store.Ingest(ctx, []*domain.ReleaseSearchResult{release}, false))
	_, err := store.db.Exec(`UPDATE release_cache SET expires_at = ? WHERE guid = ?`, time.Now().Add(-time.Hour).Format(time.RFC3339), "stale")
	require.NoError(t, err)

	deleted, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}
