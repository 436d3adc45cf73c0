package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/history"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "matchday.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func seedEvent(t *testing.T, db *database.DB) int64 {
	t.Helper()
	conn := db.Conn()
	_, err := conn.Exec(`INSERT INTO quality_profiles (id, name, cutoff, created_at, updated_at) VALUES (1, 'HD', 3, 'now', 'now')`)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO leagues (id, name, sport, created_at, updated_at) VALUES (1, 'UFC', 'ufc', 'now', 'now')`)
	require.NoError(t, err)
	res, err := conn.Exec(`
		INSERT INTO events (league_id, title, sport, event_date, season, round, home_team, away_team, quality_profile_id, created_at, updated_at)
		VALUES (1, 'UFC 310', 'ufc', ?, 2024, '', 'Team A', 'Team B', 1, 'now', 'now')
	`, time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedRootFolder(t *testing.T, db *database.DB, path string) int64 {
	t.Helper()
	res, err := db.Conn().Exec(`INSERT INTO root_folders (path, accessible, free_bytes) VALUES (?, 1, 999999999999)`, path)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func newService(t *testing.T, db *database.DB) *Service {
	t.Helper()
	events := NewEventStore(db.Conn())
	roots := NewRootFolderStore(db.Conn())
	hist := history.New(db.Conn())
	cfg := Config{LinkMode: LinkModeCopy, MinimumFreeSpaceMB: 10, DeleteEmptySourceDir: true}
	return NewService(events, roots, hist, nil, DefaultNamingConfig(), cfg, func(string) (int64, error) {
		return 999999999999, nil
	}, zerolog.Nop())
}

func writeDownload(t *testing.T, size int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ufc.310.1080p.mkv")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestImport_CopiesLargestVideoFileAndRecordsHistory(t *testing.T) {
	db := newTestDB(t)
	eventID := seedEvent(t, db)
	rootPath := t.TempDir()
	seedRootFolder(t, db, rootPath)

	downloadPath := writeDownload(t, 2048)
	svc := newService(t, db)

	item := domain.DownloadQueueItem{
		EventID: eventID, Part: "Main Card", QualityID: 5,
		DownloadPath: downloadPath, DownloadClientID: 1,
	}

	require.NoError(t, svc.Import(context.Background(), item))

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM event_files WHERE event_id = ?`, eventID).Scan(&count))
	require.Equal(t, 1, count)

	var hasFile int
	require.NoError(t, db.Conn().QueryRow(`SELECT has_file FROM events WHERE id = ?`, eventID).Scan(&hasFile))
	require.Equal(t, 1, hasFile)

	var histCount int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM import_history WHERE event_id = ?`, eventID).Scan(&histCount))
	require.Equal(t, 1, histCount)

	var destPath string
	require.NoError(t, db.Conn().QueryRow(`SELECT path FROM event_files WHERE event_id = ?`, eventID).Scan(&destPath))
	_, err := os.Stat(destPath)
	require.NoError(t, err)
	require.Contains(t, destPath, "Main Card")
}

func TestImport_DestinationCollisionGetsUniqueSuffix(t *testing.T) {
	db := newTestDB(t)
	eventID := seedEvent(t, db)
	rootPath := t.TempDir()
	seedRootFolder(t, db, rootPath)

	svc := newService(t, db)
	tokens := EventTokens{EventTitle: "UFC 310", League: "UFC", Year: 2024, Part: "Main Card", QualityFull: "Q5"}
	destDir := filepath.Join(rootPath, svc.naming.FormatFolder(tokens))
	require.NoError(t, os.MkdirAll(destDir, 0o755))
	existing := filepath.Join(destDir, svc.naming.FormatFile(tokens)+".mkv")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	downloadPath := writeDownload(t, 1024)
	item := domain.DownloadQueueItem{
		EventID: eventID, Part: "Main Card", QualityID: 5,
		DownloadPath: downloadPath, DownloadClientID: 1,
	}
	require.NoError(t, svc.Import(context.Background(), item))

	var destPath string
	require.NoError(t, db.Conn().QueryRow(`SELECT path FROM event_files WHERE event_id = ?`, eventID).Scan(&destPath))
	require.Contains(t, destPath, "(1)")
	require.NotEqual(t, existing, destPath)
}

func TestImport_NoVideoFileReturnsError(t *testing.T) {
	db := newTestDB(t)
	eventID := seedEvent(t, db)
	seedRootFolder(t, db, t.TempDir())

	svc := newService(t, db)
	emptyDir := t.TempDir()
	item := domain.DownloadQueueItem{EventID: eventID, DownloadPath: emptyDir, DownloadClientID: 1}

	err := svc.Import(context.Background(), item)
	require.Error(t, err)
}

func TestImport_NoRootFolderWithEnoughSpaceReturnsError(t *testing.T) {
	db := newTestDB(t)
	eventID := seedEvent(t, db)
	seedRootFolder(t, db, t.TempDir())

	downloadPath := writeDownload(t, 1024)
	events := NewEventStore(db.Conn())
	roots := NewRootFolderStore(db.Conn())
	hist := history.New(db.Conn())
	cfg := Config{LinkMode: LinkModeCopy, MinimumFreeSpaceMB: 10}
	svc := NewService(events, roots, hist, nil, DefaultNamingConfig(), cfg, func(string) (int64, error) {
		return 0, nil
	}, zerolog.Nop())

	item := domain.DownloadQueueItem{EventID: eventID, DownloadPath: downloadPath, DownloadClientID: 1}
	err := svc.Import(context.Background(), item)
	require.ErrorIs(t, err, ErrNoRootFolder)
}

func TestImport_RemotePathMappingTranslatesPath(t *testing.T) {
	db := newTestDB(t)
	eventID := seedEvent(t, db)
	rootPath := t.TempDir()
	seedRootFolder(t, db, rootPath)

	remoteDownloadsDir := t.TempDir()
	downloadFile := filepath.Join(remoteDownloadsDir, "ufc.310.1080p.mkv")
	require.NoError(t, os.WriteFile(downloadFile, make([]byte, 512), 0o644))

	_, err := db.Conn().Exec(`
		INSERT INTO download_clients (name, type, protocol, host, port, category, priority, enabled)
		VALUES ('qb', 'qbittorrent', 'torrent', 'localhost', 8080, 'matchday', 50, 1)
	`)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`
		INSERT INTO remote_path_mappings (download_client_id, host, remote_prefix, local_prefix)
		VALUES (1, 'localhost', '/remote/downloads', ?)
	`, remoteDownloadsDir)
	require.NoError(t, err)

	svc := newService(t, db)
	item := domain.DownloadQueueItem{
		EventID: eventID, Part: "Main Card",
		DownloadPath: "/remote/downloads/ufc.310.1080p.mkv", DownloadClientID: 1,
	}
	require.NoError(t, svc.Import(context.Background(), item))

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM event_files WHERE event_id = ?`, eventID).Scan(&count))
	require.Equal(t, 1, count)
}
