package profiles

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/quality"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "matchday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestQualityProfile_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	profile := quality.DefaultProfile()
	profile.Name = "HD"
	id, err := s.CreateQualityProfile(context.Background(), profile)
	require.NoError(t, err)

	loaded, err := s.QualityProfile(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "HD", loaded.Name)
	require.Equal(t, profile.Cutoff, loaded.Cutoff)
	require.Len(t, loaded.Items, len(profile.Items))
}

func TestCustomFormats_RoundTripsSpecifications(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	cf := domain.CustomFormat{
		Name:  "Main Card Only",
		Score: 50,
		Specifications: []domain.Specification{
			quality.PartSpec{Part: "Main Card"},
			quality.ReleaseTitleRegexSpec{Pattern: regexp.MustCompile(`(?i)proper`), Negate: true},
		},
	}
	_, err := s.CreateCustomFormat(context.Background(), cf)
	require.NoError(t, err)

	loaded, err := s.CustomFormats(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "Main Card Only", loaded[0].Name)
	require.Len(t, loaded[0].Specifications, 2)

	part, ok := loaded[0].Specifications[0].(quality.PartSpec)
	require.True(t, ok)
	require.Equal(t, "Main Card", part.Part)

	regexSpec, ok := loaded[0].Specifications[1].(quality.ReleaseTitleRegexSpec)
	require.True(t, ok)
	require.True(t, regexSpec.Negate)
	require.Equal(t, "(?i)proper", regexSpec.Pattern.String())
}

func TestDelayProfiles_OrderedAndRoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	_, err := s.CreateDelayProfile(context.Background(), domain.DelayProfile{
		Name: "Second", Order: 2, PreferredProtocol: domain.ProtocolTorrent,
	})
	require.NoError(t, err)
	_, err = s.CreateDelayProfile(context.Background(), domain.DelayProfile{
		Name: "First", Order: 1, PreferredProtocol: domain.ProtocolUsenet, Tags: []string{"anime"},
	})
	require.NoError(t, err)

	profiles, err := s.DelayProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, "First", profiles[0].Name)
	require.Equal(t, []string{"anime"}, profiles[0].Tags)
}

func TestBlocklist_AddAndList(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn())

	_, err := db.Conn().Exec(`INSERT INTO quality_profiles (id, name, cutoff, created_at, updated_at) VALUES (1, 'HD', 3, 'now', 'now')`)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`INSERT INTO events (id, title, sport, event_date, quality_profile_id, created_at, updated_at) VALUES (1, 'UFC 310', 'ufc', 'now', 1, 'now', 'now')`)
	require.NoError(t, err)

	require.NoError(t, s.AddToBlocklist(context.Background(), domain.BlocklistEntry{
		ReleaseGUID: "g1", EventID: 1, Reason: "failed import",
	}))

	entries, err := s.Blocklist(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "g1", entries[0].ReleaseGUID)
}
