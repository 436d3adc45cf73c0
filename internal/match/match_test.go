package match

import (
	"testing"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/parser"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_YearMismatchIsHardRejection(t *testing.T) {
	release := &domain.ReleaseSearchResult{
		Title:  "UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL",
		Parsed: parser.Parse("UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL"),
	}
	event := &domain.Event{
		Title:         "UFC 310: Pantoja vs Asakura",
		Sport:         domain.SportUFC,
		EpisodeNumber: 310,
		EventDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	result := Evaluate(release, event, "", false)
	assert.True(t, result.IsHardRejection)
	assert.False(t, result.IsMatch)
}

func TestEvaluate_UFCNumericIDMismatchIsHardRejection(t *testing.T) {
	release := &domain.ReleaseSearchResult{
		Title:  "UFC 309 Someone vs Other 1080p WEB-DL",
		Parsed: parser.Parse("UFC 309 Someone vs Other 1080p WEB-DL"),
	}
	event := &domain.Event{
		Title:         "UFC 310: Pantoja vs Asakura",
		Sport:         domain.SportUFC,
		EpisodeNumber: 310,
	}

	result := Evaluate(release, event, "", false)
	assert.True(t, result.IsHardRejection)
}

func TestEvaluate_FootballTeamMatchAccepts(t *testing.T) {
	title := "Manchester United vs Tottenham Premier League 1080p WEB-DL"
	release := &domain.ReleaseSearchResult{
		Title:  title,
		Parsed: parser.Parse(title),
	}
	event := &domain.Event{
		Title:     "Man Utd vs Spurs",
		Sport:     domain.SportFootball,
		HomeTeam:  "Man Utd",
		AwayTeam:  "Spurs",
		EventDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	result := Evaluate(release, event, "", false)
	assert.False(t, result.IsHardRejection)
	assert.True(t, result.IsMatch)
}

func TestEvaluate_FootballMissingBothTeamsIsHardRejection(t *testing.T) {
	title := "Liverpool vs Chelsea Premier League 1080p WEB-DL"
	release := &domain.ReleaseSearchResult{
		Title:  title,
		Parsed: parser.Parse(title),
	}
	event := &domain.Event{
		Title:    "Man Utd vs Spurs",
		Sport:    domain.SportFootball,
		HomeTeam: "Man Utd",
		AwayTeam: "Spurs",
	}

	result := Evaluate(release, event, "", false)
	assert.True(t, result.IsHardRejection)
}

func TestEvaluate_MotorsportVenueAliasAvoidsRejection(t *testing.T) {
	title := "F1 2025 Yas Marina Qualifying 1080p-Y"
	release := &domain.ReleaseSearchResult{
		Title:  title,
		Parsed: parser.Parse(title),
	}
	event := &domain.Event{
		Title: "Abu Dhabi Grand Prix",
		Sport: domain.SportF1,
	}

	result := Evaluate(release, event, "", false)
	assert.False(t, result.IsHardRejection)
}

func TestEvaluate_NoParsedTitleIsHardRejection(t *testing.T) {
	release := &domain.ReleaseSearchResult{Title: "something"}
	event := &domain.Event{Title: "something", Sport: domain.SportOther}

	result := Evaluate(release, event, "", false)
	assert.True(t, result.IsHardRejection)
}
