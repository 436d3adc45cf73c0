package rsssync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/decisioning"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/indexer/search"
	"github.com/matchday/matchday/internal/indexer/status"
	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/matchday/matchday/internal/quality"
	"github.com/matchday/matchday/internal/releasecache"
)

func newTestCache(t *testing.T) *releasecache.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "matchday.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec(`INSERT INTO indexers (id, name, type, base_url, priority, enabled) VALUES (1, 'test', 'torznab', 'http://x', 25, 1)`)
	require.NoError(t, err)

	return releasecache.New(db.Conn(), zerolog.Nop())
}

type fakeRSSClient struct {
	releases []*domain.ReleaseSearchResult
}

func (f *fakeRSSClient) Test(ctx context.Context) error { return nil }
func (f *fakeRSSClient) Search(ctx context.Context, criteria types.SearchCriteria) ([]*domain.ReleaseSearchResult, error) {
	return f.releases, nil
}
func (f *fakeRSSClient) FetchRSS(ctx context.Context, limit int) ([]*domain.ReleaseSearchResult, error) {
	return f.releases, nil
}
func (f *fakeRSSClient) Capabilities(ctx context.Context) (types.Capabilities, error) {
	return types.Capabilities{SupportsRSS: true}, nil
}

type fakeIndexerSource struct {
	entries []search.IndexerEntry
}

func (f *fakeIndexerSource) Entries(ctx context.Context) ([]search.IndexerEntry, error) {
	return f.entries, nil
}

type fakeEventStore struct {
	events []*domain.Event
	files  map[int64]*domain.EventFile // keyed by event ID, part ""
}

func (f *fakeEventStore) ListMonitored(ctx context.Context) ([]*domain.Event, error) {
	return f.events, nil
}
func (f *fakeEventStore) ExistingParts(ctx context.Context, eventID int64) ([]string, error) {
	return nil, nil
}
func (f *fakeEventStore) ExistingFile(ctx context.Context, eventID int64, part string) (*domain.EventFile, error) {
	if part != "" {
		return nil, nil
	}
	return f.files[eventID], nil
}
func (f *fakeEventStore) RecentlyGrabbed(ctx context.Context, eventID int64, since time.Time) (bool, error) {
	return false, nil
}

type fakeProfileStore struct {
	profile domain.QualityProfile
}

func (f *fakeProfileStore) QualityProfile(ctx context.Context, id int64) (domain.QualityProfile, error) {
	return f.profile, nil
}
func (f *fakeProfileStore) CustomFormats(ctx context.Context) ([]domain.CustomFormat, error) {
	return nil, nil
}
func (f *fakeProfileStore) DelayProfiles(ctx context.Context) ([]domain.DelayProfile, error) {
	return nil, nil
}
func (f *fakeProfileStore) Blocklist(ctx context.Context, eventID int64) ([]domain.BlocklistEntry, error) {
	return nil, nil
}

type fakeDispatcher struct {
	calls []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event *domain.Event, part string, release *domain.ReleaseSearchResult) (domain.DownloadQueueItem, error) {
	f.calls = append(f.calls, release.GUID)
	return domain.DownloadQueueItem{ID: 1, EventID: event.ID, DownloadClientID: 7, ReleaseGUID: release.GUID}, nil
}

type fakeHistory struct {
	recorded []domain.GrabHistory
}

func (f *fakeHistory) RecordGrab(ctx context.Context, h domain.GrabHistory) error {
	f.recorded = append(f.recorded, h)
	return nil
}

func TestRun_MatchesAndGrabsApprovedRelease(t *testing.T) {
	cache := newTestCache(t)

	release := &domain.ReleaseSearchResult{
		GUID: "g1", IndexerID: 1, IndexerName: "test",
		Title: "UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL-GROUP",
		DownloadURL: "http://x/1", Protocol: domain.ProtocolTorrent,
		SizeBytes: 5_000_000_000, Seeders: 50, PublishDate: time.Now(),
	}

	entries := []search.IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "test", Enabled: true}, ClientEnabled: true, Client: &fakeRSSClient{releases: []*domain.ReleaseSearchResult{release}}},
	}

	event := &domain.Event{
		ID: 42, Title: "UFC 310: Pantoja vs Asakura", Sport: domain.SportUFC,
		EpisodeNumber: 310, EventDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Monitored: true, QualityProfileID: 1,
	}

	dispatcher := &fakeDispatcher{}
	hist := &fakeHistory{}

	svc := NewService(
		&fakeIndexerSource{entries: entries},
		search.New(status.NewTracker(), zerolog.Nop()),
		cache,
		&fakeEventStore{events: []*domain.Event{event}},
		&fakeProfileStore{profile: quality.DefaultProfile()},
		dispatcher,
		hist,
		decisioning.NewGrabLock(),
		nil,
		zerolog.Nop(),
	)

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "g1", dispatcher.calls[0])
	require.Len(t, hist.recorded, 1)
	assert.Equal(t, int64(42), hist.recorded[0].EventID)

	status := svc.LastStatus()
	assert.Equal(t, 1, status.Grabbed)
	assert.Equal(t, 1, status.EventsChecked)
	assert.False(t, status.Running)
}

// upgradeTestProfile lists WEBDL-1080p (ID 9) ahead of HDTV-720p (ID 3) —
// Position 0 is the most-preferred allowed item (§3: "rank is the inverse
// position among allowed items") — so the cutoff at ID 9 correctly sits
// above ID 3 in rank.
func upgradeTestProfile(cutoff int) domain.QualityProfile {
	return domain.QualityProfile{
		ID: 1, Name: "Upgrade Test", Cutoff: cutoff, UpgradeAllowed: true,
		Items: []domain.QualityItem{
			{Quality: quality.GetQualityByID(9), Allowed: true, Position: 0},
			{Quality: quality.GetQualityByID(3), Allowed: true, Position: 1},
		},
	}
}

func TestRun_UpgradesExistingFileToBetterQuality(t *testing.T) {
	cache := newTestCache(t)

	release := &domain.ReleaseSearchResult{
		GUID: "g2", IndexerID: 1, IndexerName: "test",
		Title: "UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL-GROUP",
		DownloadURL: "http://x/2", Protocol: domain.ProtocolTorrent,
		SizeBytes: 5_000_000_000, Seeders: 50, PublishDate: time.Now(),
	}

	entries := []search.IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "test", Enabled: true}, ClientEnabled: true, Client: &fakeRSSClient{releases: []*domain.ReleaseSearchResult{release}}},
	}

	event := &domain.Event{
		ID: 43, Title: "UFC 310: Pantoja vs Asakura", Sport: domain.SportUFC,
		EpisodeNumber: 310, EventDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Monitored: true, QualityProfileID: 1, HasFile: true,
	}

	dispatcher := &fakeDispatcher{}
	hist := &fakeHistory{}

	svc := NewService(
		&fakeIndexerSource{entries: entries},
		search.New(status.NewTracker(), zerolog.Nop()),
		cache,
		&fakeEventStore{
			events: []*domain.Event{event},
			// existing file is HDTV-720p (quality ID 3); the cached
			// release resolves to WEBDL-1080p (ID 9), a strict upgrade.
			files: map[int64]*domain.EventFile{43: {EventID: 43, Part: "", QualityID: 3}},
		},
		&fakeProfileStore{profile: upgradeTestProfile(9)},
		dispatcher,
		hist,
		decisioning.NewGrabLock(),
		nil,
		zerolog.Nop(),
	)

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "g2", dispatcher.calls[0])
}

func TestRun_NoUpgradeWhenExistingFileAlreadyAtCutoff(t *testing.T) {
	cache := newTestCache(t)

	release := &domain.ReleaseSearchResult{
		GUID: "g3", IndexerID: 1, IndexerName: "test",
		Title: "UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL-GROUP",
		DownloadURL: "http://x/3", Protocol: domain.ProtocolTorrent,
		SizeBytes: 5_000_000_000, Seeders: 50, PublishDate: time.Now(),
	}

	entries := []search.IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "test", Enabled: true}, ClientEnabled: true, Client: &fakeRSSClient{releases: []*domain.ReleaseSearchResult{release}}},
	}

	event := &domain.Event{
		ID: 44, Title: "UFC 310: Pantoja vs Asakura", Sport: domain.SportUFC,
		EpisodeNumber: 310, EventDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Monitored: true, QualityProfileID: 1, HasFile: true,
	}

	dispatcher := &fakeDispatcher{}
	hist := &fakeHistory{}

	svc := NewService(
		&fakeIndexerSource{entries: entries},
		search.New(status.NewTracker(), zerolog.Nop()),
		cache,
		&fakeEventStore{
			events: []*domain.Event{event},
			// existing file is already at the test profile's cutoff
			// (WEBDL-1080p, ID 9) and the candidate is the same quality
			// with no custom-format score, so it is not an upgrade.
			files: map[int64]*domain.EventFile{44: {EventID: 44, Part: "", QualityID: 9}},
		},
		&fakeProfileStore{profile: upgradeTestProfile(9)},
		dispatcher,
		hist,
		decisioning.NewGrabLock(),
		nil,
		zerolog.Nop(),
	)

	require.NoError(t, svc.Run(context.Background()))
	assert.Empty(t, dispatcher.calls)
}

func TestRun_NoIndexersIsNoop(t *testing.T) {
	cache := newTestCache(t)
	svc := NewService(
		&fakeIndexerSource{},
		search.New(status.NewTracker(), zerolog.Nop()),
		cache,
		&fakeEventStore{},
		&fakeProfileStore{profile: quality.DefaultProfile()},
		&fakeDispatcher{},
		&fakeHistory{},
		decisioning.NewGrabLock(),
		nil,
		zerolog.Nop(),
	)

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 0, svc.LastStatus().Grabbed)
}

func TestClampInterval_OutOfRangeFallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultIntervalMinutes, ClampInterval(1))
	assert.Equal(t, DefaultIntervalMinutes, ClampInterval(500))
	assert.Equal(t, 30, ClampInterval(30))
}

func TestCronExpr_EveryNMinutes(t *testing.T) {
	assert.Equal(t, "*/20 * * * *", CronExpr(20))
	assert.Equal(t, "*/15 * * * *", CronExpr(999))
}
