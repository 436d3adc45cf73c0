package delay

import (
	"testing"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSelectForEvent_PicksLowestOrderMatchingTag(t *testing.T) {
	profiles := []domain.DelayProfile{
		{ID: 1, Order: 2, Tags: []string{"anime"}},
		{ID: 2, Order: 1, Tags: []string{"sports"}},
		{ID: 3, Order: 0}, // untagged, applies universally
	}
	event := &domain.Event{Tags: []string{"sports"}}

	selected := SelectForEvent(profiles, event)
	assert.Equal(t, int64(2), selected.ID)
}

func TestSelectForEvent_FallsBackToUntagged(t *testing.T) {
	profiles := []domain.DelayProfile{
		{ID: 1, Order: 0, Tags: []string{"anime"}},
		{ID: 2, Order: 1},
	}
	event := &domain.Event{Tags: []string{"sports"}}

	selected := SelectForEvent(profiles, event)
	assert.Equal(t, int64(2), selected.ID)
}

func TestIsDelayed_WithinWindowIsDelayed(t *testing.T) {
	profile := domain.DelayProfile{TorrentDelay: 1 * time.Hour}
	release := &domain.ReleaseSearchResult{PublishDate: time.Now().Add(-10 * time.Minute), Protocol: domain.ProtocolTorrent}

	assert.True(t, IsDelayed(profile, release, time.Now(), false, 0))
}

func TestIsDelayed_BypassIfHighestQuality(t *testing.T) {
	profile := domain.DelayProfile{TorrentDelay: 1 * time.Hour, BypassIfHighestQuality: true}
	release := &domain.ReleaseSearchResult{PublishDate: time.Now().Add(-10 * time.Minute), Protocol: domain.ProtocolTorrent}

	assert.False(t, IsDelayed(profile, release, time.Now(), true, 0))
}

func TestIsDelayed_PastWindowNeverDelayed(t *testing.T) {
	profile := domain.DelayProfile{TorrentDelay: 1 * time.Hour}
	release := &domain.ReleaseSearchResult{PublishDate: time.Now().Add(-2 * time.Hour), Protocol: domain.ProtocolTorrent}

	assert.False(t, IsDelayed(profile, release, time.Now(), false, 0))
}

func TestScoreBonus_MatchesPreferredProtocol(t *testing.T) {
	profile := domain.DelayProfile{PreferredProtocol: domain.ProtocolUsenet}
	assert.Equal(t, ProtocolBonus, ScoreBonus(profile, domain.ProtocolUsenet))
	assert.Equal(t, 0, ScoreBonus(profile, domain.ProtocolTorrent))
}
