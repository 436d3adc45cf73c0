package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "matchday.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	conn := db.Conn()
	_, err = conn.Exec(`INSERT INTO quality_profiles (id, name, cutoff, created_at, updated_at) VALUES (1, 'HD', 3, 'now', 'now')`)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO events (id, title, sport, event_date, quality_profile_id, created_at, updated_at) VALUES (1, 'UFC 310', 'ufc', 'now', 1, 'now', 'now')`)
	require.NoError(t, err)

	return New(conn)
}

func TestRecordGrab_ThenListGrabs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RecordGrab(ctx, domain.GrabHistory{
		EventID: 1, ReleaseGUID: "g1", Title: "UFC 310 1080p", IndexerID: 1, Score: 150,
		GrabbedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	grabs, err := store.ListGrabs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, grabs, 1)
	assert.Equal(t, "g1", grabs[0].ReleaseGUID)
	assert.Equal(t, 150, grabs[0].Score)
}

func TestRecordImport_ThenListImports(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RecordImport(ctx, domain.ImportHistory{
		EventID: 1, SourcePath: "/downloads/a.mkv", DestPath: "/library/a.mkv",
		LinkMode: "hardlink", QualityID: 3,
	})
	require.NoError(t, err)

	imports, err := store.ListImports(ctx, 1)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "/library/a.mkv", imports[0].DestPath)
}
