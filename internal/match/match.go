// Package match implements the Match Engine (§4.4): deciding whether a
// release corresponds to a monitored event. Grounded on the teacher's
// decisioning/selection.go rejection-then-score shape (hard filters
// short-circuit before any scoring runs), generalized from movie/TV
// candidate selection to sport-specific hard-reject rules.
package match

import (
	"strconv"
	"strings"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/match/normalize"
)

// MinAcceptScore is the minimum soft-scoring confidence to accept a match
// once no hard rejection has fired (§4.4: "design suggests ~60/100").
const MinAcceptScore = 60

// Weights for the soft-scoring sum (§4.4). Chosen so that title overlap
// dominates but venue/team/round/part agreement can each tip a borderline
// release over MinAcceptScore.
const (
	weightTitleOverlap = 40
	weightVenueMatch   = 20
	weightTeamMatch    = 20
	weightExactDate    = 15
	weightPartAgree    = 5
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true,
	"vs": true, "v": true, "at": true, "on": true, "in": true,
}

// Evaluate scores a release against a monitored event, per §4.4's
// two-stage contract: hard rejections short-circuit before any soft
// scoring is computed.
func Evaluate(release *domain.ReleaseSearchResult, event *domain.Event, requestedPart string, multiPartEnabled bool) domain.MatchResult {
	parsed := release.Parsed
	if parsed == nil {
		return domain.MatchResult{IsMatch: false, IsHardRejection: true, Reasons: []string{"release has no parsed title"}}
	}

	if reason, rejected := hardReject(parsed, release.Title, event); rejected {
		return domain.MatchResult{IsMatch: false, IsHardRejection: true, Reasons: []string{reason}}
	}

	score, reasons := softScore(parsed, release.Title, event, requestedPart, multiPartEnabled)
	return domain.MatchResult{
		IsMatch:    score >= MinAcceptScore,
		Confidence: score,
		Reasons:    reasons,
	}
}

func hardReject(parsed *domain.ParsedTitle, releaseTitle string, event *domain.Event) (string, bool) {
	if parsed.HasYear && !event.EventDate.IsZero() && parsed.Year != event.EventDate.Year() {
		return "year mismatch", true
	}
	if parsed.SportPrefix != "" && event.Sport != "" && !sportPrefixMatches(parsed.SportPrefix, event.Sport) {
		return "sport-prefix mismatch", true
	}

	switch event.Sport {
	case domain.SportF1, domain.SportMotoGP:
		if parsed.HasRound && event.Round != "" {
			if roundNum, err := strconv.Atoi(event.Round); err == nil && roundNum != parsed.RoundNumber {
				return "round number mismatch", true
			}
		}
		if !venueTokenPresent(releaseTitle, event.Title) {
			return "release lacks event venue/location token", true
		}
	case domain.SportFootball:
		if parsed.HasDate && !event.EventDate.IsZero() {
			if parsed.Date.Month() != event.EventDate.Month() || parsed.Date.Day() != event.EventDate.Day() {
				return "date mismatch", true
			}
		}
		if !teamTokenPresent(releaseTitle, event.HomeTeam) && !teamTokenPresent(releaseTitle, event.AwayTeam) {
			return "release lacks home/away team token", true
		}
	case domain.SportUFC:
		if event.EpisodeNumber > 0 {
			if num := extractNumericID(releaseTitle); num > 0 && num != event.EpisodeNumber {
				return "event numeric id mismatch", true
			}
		}
	}
	return "", false
}

func softScore(parsed *domain.ParsedTitle, releaseTitle string, event *domain.Event, requestedPart string, multiPartEnabled bool) (int, []string) {
	score := 0
	var reasons []string

	overlap := jaccard(contentTokens(releaseTitle), contentTokens(event.Title))
	titlePoints := int(overlap * float64(weightTitleOverlap))
	score += titlePoints
	if titlePoints > 0 {
		reasons = append(reasons, "title token overlap")
	}

	switch event.Sport {
	case domain.SportF1, domain.SportMotoGP:
		if venueTokenPresent(releaseTitle, event.Title) {
			score += weightVenueMatch
			reasons = append(reasons, "venue/location match")
		}
	case domain.SportFootball:
		if teamTokenPresent(releaseTitle, event.HomeTeam) && teamTokenPresent(releaseTitle, event.AwayTeam) {
			score += weightTeamMatch
			reasons = append(reasons, "both teams matched")
		}
	}

	if parsed.HasRound && event.Round != "" {
		if roundNum, err := strconv.Atoi(event.Round); err == nil && roundNum == parsed.RoundNumber {
			score += weightExactDate
			reasons = append(reasons, "exact round agreement")
		}
	} else if parsed.HasDate && !event.EventDate.IsZero() &&
		parsed.Date.Month() == event.EventDate.Month() && parsed.Date.Day() == event.EventDate.Day() {
		score += weightExactDate
		reasons = append(reasons, "exact date agreement")
	}

	if multiPartEnabled && requestedPart != "" && strings.EqualFold(parsed.Part, requestedPart) {
		score += weightPartAgree
		reasons = append(reasons, "requested part agreement")
	}

	return score, reasons
}

// sportPrefixMatches maps a parsed sport prefix onto the domain.Sport
// enum's broader category (the parser distinguishes leagues; Event only
// tracks the parent sport).
func sportPrefixMatches(prefix string, sport domain.Sport) bool {
	switch sport {
	case domain.SportUFC:
		return prefix == "UFC" || prefix == "Bellator" || prefix == "PFL"
	case domain.SportF1:
		return prefix == "Formula1"
	case domain.SportMotoGP:
		return prefix == "MotoGP"
	case domain.SportFootball:
		return prefix == "EPL" || prefix == "UCL" || prefix == "LaLiga" || prefix == "MLS"
	default:
		return true
	}
}

// venueTokenPresent reports whether the release text contains any
// alias-expansion of the event's title as a substring — venue/org names
// are often multi-word ("Yas Marina"), so matching is done over folded
// substrings rather than single split tokens.
func venueTokenPresent(releaseTitle, eventTitle string) bool {
	folded := normalize.Fold(releaseTitle)
	for _, phrase := range splitPhrases(eventTitle) {
		for _, variant := range normalize.Expand(phrase) {
			if variant != "" && strings.Contains(folded, variant) {
				return true
			}
		}
	}
	return false
}

func teamTokenPresent(releaseTitle, teamName string) bool {
	if teamName == "" {
		return false
	}
	folded := normalize.Fold(releaseTitle)
	for _, variant := range normalize.Expand(teamName) {
		if variant != "" && strings.Contains(folded, variant) {
			return true
		}
	}
	return false
}

// splitPhrases breaks a title into candidate multi-word phrases (its
// stopword-stripped content words, plus 2-word windows) so venue aliases
// like "Abu Dhabi" can be recognised from an event title that also
// contains other words ("Abu Dhabi Grand Prix").
func splitPhrases(title string) []string {
	words := contentTokens(title)
	phrases := append([]string{}, words...)
	for i := 0; i+1 < len(words); i++ {
		phrases = append(phrases, words[i]+" "+words[i+1])
	}
	return phrases
}

// contentTokens tokenizes and strips stopwords, case/diacritic-folded.
func contentTokens(s string) []string {
	fields := strings.FieldsFunc(normalize.Fold(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// jaccard computes the Jaccard similarity of two token sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA)
	for t := range setB {
		if !setA[t] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// extractNumericID pulls a bare numeric event id (e.g. the "310" in
// "UFC 310") out of a release title.
func extractNumericID(title string) int {
	tokens := strings.Fields(normalize.Fold(title))
	for _, t := range tokens {
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}
