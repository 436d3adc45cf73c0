package autosearch

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/decisioning"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/indexer/search"
	"github.com/matchday/matchday/internal/indexer/status"
	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/matchday/matchday/internal/quality"
)

type fakeEvents struct {
	event   *domain.Event
	parts   []string
}

func (f *fakeEvents) Get(ctx context.Context, id int64) (*domain.Event, error) { return f.event, nil }
func (f *fakeEvents) ExistingParts(ctx context.Context, eventID int64) ([]string, error) {
	return f.parts, nil
}

type fakeProfiles struct{ profile domain.QualityProfile }

func (f *fakeProfiles) QualityProfile(ctx context.Context, id int64) (domain.QualityProfile, error) {
	return f.profile, nil
}
func (f *fakeProfiles) CustomFormats(ctx context.Context) ([]domain.CustomFormat, error) { return nil, nil }
func (f *fakeProfiles) DelayProfiles(ctx context.Context) ([]domain.DelayProfile, error) { return nil, nil }
func (f *fakeProfiles) Blocklist(ctx context.Context, eventID int64) ([]domain.BlocklistEntry, error) {
	return nil, nil
}

type fakeClient struct{ releases []*domain.ReleaseSearchResult }

func (c fakeClient) Test(ctx context.Context) error { return nil }
func (c fakeClient) Search(ctx context.Context, criteria types.SearchCriteria) ([]*domain.ReleaseSearchResult, error) {
	return c.releases, nil
}
func (c fakeClient) FetchRSS(ctx context.Context, limit int) ([]*domain.ReleaseSearchResult, error) {
	return c.releases, nil
}
func (c fakeClient) Capabilities(ctx context.Context) (types.Capabilities, error) {
	return types.Capabilities{SupportsSearch: true}, nil
}

type fakeIndexers struct{ entries []search.IndexerEntry }

func (f *fakeIndexers) Entries(ctx context.Context) ([]search.IndexerEntry, error) { return f.entries, nil }

type fakeDispatcher struct{ called bool }

func (f *fakeDispatcher) Dispatch(ctx context.Context, event *domain.Event, part string, release *domain.ReleaseSearchResult) (domain.DownloadQueueItem, error) {
	f.called = true
	return domain.DownloadQueueItem{ID: 1, DownloadClientID: 7}, nil
}

func TestSearchEvent_GrabsBestApprovedRelease(t *testing.T) {
	profile := quality.DefaultProfile()
	event := &domain.Event{ID: 1, Title: "UFC 310", QualityProfileID: 1, Monitored: true}

	release := &domain.ReleaseSearchResult{
		GUID: "g1", Title: "UFC.310.1080p.WEB", Protocol: domain.ProtocolTorrent, Seeders: 20, SizeBytes: 4 << 30,
		Parsed: &domain.ParsedTitle{Resolution: 1080, Source: "WEB-DL"},
	}

	entries := []search.IndexerEntry{{
		Indexer:       domain.Indexer{ID: 1, Name: "torz", Enabled: true, Type: domain.IndexerTypeTorznab},
		Client:        fakeClient{releases: []*domain.ReleaseSearchResult{release}},
		ClientEnabled: true,
	}}

	dispatcher := &fakeDispatcher{}
	svc := NewService(
		&fakeEvents{event: event},
		&fakeIndexers{entries: entries},
		search.New(status.NewTracker(), zerolog.Nop()),
		&fakeProfiles{profile: profile},
		dispatcher,
		nil,
		decisioning.NewGrabLock(),
		nil,
		zerolog.Nop(),
	)

	result, err := svc.SearchEvent(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, dispatcher.called)
	require.Len(t, result.Grabbed, 1)
	require.Equal(t, "UFC.310.1080p.WEB", result.Grabbed[0].Title)
}

func TestSearchEvent_NoIndexersReturnsErrNoResults(t *testing.T) {
	event := &domain.Event{ID: 1, Title: "UFC 310", QualityProfileID: 1}
	svc := NewService(
		&fakeEvents{event: event},
		&fakeIndexers{},
		search.New(status.NewTracker(), zerolog.Nop()),
		&fakeProfiles{profile: quality.DefaultProfile()},
		&fakeDispatcher{},
		nil,
		decisioning.NewGrabLock(),
		nil,
		zerolog.Nop(),
	)

	_, err := svc.SearchEvent(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoResults)
}
