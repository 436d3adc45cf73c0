package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/indexer/status"
	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/matchday/matchday/internal/parser"
	"github.com/matchday/matchday/internal/quality"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	releases []*domain.ReleaseSearchResult
	err      error
}

func (f *fakeClient) Test(ctx context.Context) error { return nil }
func (f *fakeClient) Search(ctx context.Context, criteria types.SearchCriteria) ([]*domain.ReleaseSearchResult, error) {
	return f.releases, f.err
}
func (f *fakeClient) FetchRSS(ctx context.Context, limit int) ([]*domain.ReleaseSearchResult, error) {
	return f.releases, f.err
}
func (f *fakeClient) Capabilities(ctx context.Context) (types.Capabilities, error) {
	return types.Capabilities{SupportsSearch: true}, nil
}

func makeRelease(title string, seeders int) *domain.ReleaseSearchResult {
	return &domain.ReleaseSearchResult{
		GUID: title, Title: title, Seeders: seeders,
		Protocol: domain.ProtocolTorrent, Parsed: parser.Parse(title),
	}
}

func TestSearch_SkipsIndexersWithoutEnabledClient(t *testing.T) {
	tracker := status.NewTracker()
	orch := New(tracker, zerolog.Nop())

	entries := []IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "a", Enabled: true}, Client: &fakeClient{releases: []*domain.ReleaseSearchResult{makeRelease("UFC 310 1080p WEB-DL", 10)}}, ClientEnabled: false},
	}

	results := orch.Search(context.Background(), entries, "UFC 310", EvalParams{Event: &domain.Event{}, Profile: quality.DefaultProfile()})
	assert.Empty(t, results)
}

func TestSearch_AggregatesAcrossIndexersAndRanksByScore(t *testing.T) {
	tracker := status.NewTracker()
	orch := New(tracker, zerolog.Nop())

	entries := []IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "a", Enabled: true}, ClientEnabled: true, Client: &fakeClient{releases: []*domain.ReleaseSearchResult{makeRelease("UFC 310 720p WEB-DL-GROUP", 5)}}},
		{Indexer: domain.Indexer{ID: 2, Name: "b", Enabled: true}, ClientEnabled: true, Client: &fakeClient{releases: []*domain.ReleaseSearchResult{makeRelease("UFC 310 1080p WEB-DL-GROUP", 50)}}},
	}

	results := orch.Search(context.Background(), entries, "UFC 310", EvalParams{Event: &domain.Event{}, Profile: quality.DefaultProfile()})
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_MinSeedersFiltersTorrents(t *testing.T) {
	tracker := status.NewTracker()
	orch := New(tracker, zerolog.Nop())

	entries := []IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "a", Enabled: true}, ClientEnabled: true, Client: &fakeClient{releases: []*domain.ReleaseSearchResult{makeRelease("UFC 310 1080p WEB-DL-GROUP", 1)}}},
	}

	results := orch.Search(context.Background(), entries, "UFC 310", EvalParams{Event: &domain.Event{}, Profile: quality.DefaultProfile(), MinSeeders: 5})
	assert.Empty(t, results)
}

func TestSearch_RecordsFailureOnIndexerError(t *testing.T) {
	tracker := status.NewTracker()
	orch := New(tracker, zerolog.Nop())

	entries := []IndexerEntry{
		{Indexer: domain.Indexer{ID: 1, Name: "a", Enabled: true}, ClientEnabled: true, Client: &fakeClient{err: errors.New("boom")}},
	}

	results := orch.Search(context.Background(), entries, "UFC 310", EvalParams{Event: &domain.Event{}, Profile: quality.DefaultProfile()})
	assert.Empty(t, results)

	available, reason := tracker.IsAvailable(1, time.Now())
	assert.False(t, available)
	assert.NotEmpty(t, reason)
}
