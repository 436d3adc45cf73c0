package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "matchday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	_, err = db.Conn().Exec(`INSERT INTO quality_profiles (id, name, cutoff, created_at, updated_at) VALUES (1, 'HD', 3, 'now', 'now')`)
	require.NoError(t, err)
	return db
}

func TestCreateAndGet_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	id, err := s.Create(context.Background(), CreateInput{
		Title: "UFC 310", Sport: "ufc", EventDate: time.Date(2024, 12, 7, 0, 0, 0, 0, time.UTC),
		QualityProfileID: 1, Monitored: true, MonitoredParts: []string{"Early Prelims", "Prelims", "Main Card"},
		Tags: []string{"ppv"},
	})
	require.NoError(t, err)

	event, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "UFC 310", event.Title)
	require.True(t, event.Monitored)
	require.Equal(t, []string{"Early Prelims", "Prelims", "Main Card"}, event.MonitoredParts)
	require.Equal(t, []string{"ppv"}, event.Tags)
}

func TestListMonitored_ExcludesUnmonitored(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	_, err := s.Create(context.Background(), CreateInput{
		Title: "Monitored Event", Sport: "ufc", EventDate: time.Now(), QualityProfileID: 1, Monitored: true,
	})
	require.NoError(t, err)
	_, err = s.Create(context.Background(), CreateInput{
		Title: "Unmonitored Event", Sport: "ufc", EventDate: time.Now(), QualityProfileID: 1, Monitored: false,
	})
	require.NoError(t, err)

	events, err := s.ListMonitored(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Monitored Event", events[0].Title)
}

func TestExistingParts_ReflectsImportedFiles(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	id, err := s.Create(context.Background(), CreateInput{
		Title: "UFC 310", Sport: "ufc", EventDate: time.Now(), QualityProfileID: 1,
	})
	require.NoError(t, err)

	_, err = db.Conn().Exec(`INSERT INTO event_files (event_id, part, path, size_bytes, quality_id, imported_at) VALUES (?, 'Main Card', '/x', 100, 1, 'now')`, id)
	require.NoError(t, err)

	parts, err := s.ExistingParts(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []string{"Main Card"}, parts)
}

func TestRecentlyGrabbed_TrueWithinWindow(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	id, err := s.Create(context.Background(), CreateInput{
		Title: "UFC 310", Sport: "ufc", EventDate: time.Now(), QualityProfileID: 1,
	})
	require.NoError(t, err)

	_, err = db.Conn().Exec(`
		INSERT INTO grab_history (event_id, release_guid, title, indexer_id, score, grabbed_at)
		VALUES (?, 'g1', 'UFC 310', 1, 10, ?)
	`, id, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, err)

	recently, err := s.RecentlyGrabbed(context.Background(), id, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, recently)

	recently, err = s.RecentlyGrabbed(context.Background(), id, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.False(t, recently)
}
