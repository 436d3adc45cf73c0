// Package quality implements the Quality Resolver (§4.2): a totally
// ordered quality ladder, per-event quality profiles, and the custom-format
// specification catalogue (§4.14). Grounded on the teacher's
// internal/library/quality/profile.go (predefined quality table, Profile
// struct, IsAcceptable/IsUpgrade rank comparison).
package quality

import (
	"sort"
	"strings"

	"github.com/matchday/matchday/internal/domain"
)

// PredefinedQualities is the totally-ordered ladder of known
// source/resolution combinations, weight ascending (higher weight wins a
// comparison). Unknown is the zero-weight bottom rung.
var PredefinedQualities = []domain.Quality{
	{ID: 0, Name: "Unknown", Source: "", Resolution: 0, Weight: 0},
	{ID: 1, Name: "SDTV", Source: "SDTV", Resolution: 480, Weight: 1},
	{ID: 2, Name: "DVDRip", Source: "DVDRip", Resolution: 480, Weight: 2},
	{ID: 3, Name: "HDTV-720p", Source: "HDTV", Resolution: 720, Weight: 3},
	{ID: 4, Name: "WEBRip-720p", Source: "WEBRip", Resolution: 720, Weight: 4},
	{ID: 5, Name: "WEBDL-720p", Source: "WEB-DL", Resolution: 720, Weight: 5},
	{ID: 6, Name: "BluRay-720p", Source: "BluRay", Resolution: 720, Weight: 6},
	{ID: 7, Name: "HDTV-1080p", Source: "HDTV", Resolution: 1080, Weight: 7},
	{ID: 8, Name: "WEBRip-1080p", Source: "WEBRip", Resolution: 1080, Weight: 8},
	{ID: 9, Name: "WEBDL-1080p", Source: "WEB-DL", Resolution: 1080, Weight: 9},
	{ID: 10, Name: "BluRay-1080p", Source: "BluRay", Resolution: 1080, Weight: 10},
	{ID: 11, Name: "Remux-1080p", Source: "Remux", Resolution: 1080, Weight: 11},
	{ID: 12, Name: "HDTV-2160p", Source: "HDTV", Resolution: 2160, Weight: 12},
	{ID: 13, Name: "WEBDL-2160p", Source: "WEB-DL", Resolution: 2160, Weight: 13},
	{ID: 14, Name: "BluRay-2160p", Source: "BluRay", Resolution: 2160, Weight: 14},
	{ID: 15, Name: "Remux-2160p", Source: "Remux", Resolution: 2160, Weight: 15},
}

// GetQualityByID returns the quality with the given id, or the Unknown
// quality if not found.
func GetQualityByID(id int) domain.Quality {
	for _, q := range PredefinedQualities {
		if q.ID == id {
			return q
		}
	}
	return PredefinedQualities[0]
}

// ResolveFromParsed maps a parsed title's resolution/source onto the
// nearest quality ladder rung. Exact {resolution, source} combinations
// match directly; an unrecognised source with a recognised resolution
// falls back to the highest-weight known source at that resolution
// (group-aware match per §4.2 — "WEB 1080p" matches WEB-DL or WEBRip).
func ResolveFromParsed(p *domain.ParsedTitle) domain.Quality {
	if p.Resolution == 0 && p.Source == "" {
		return PredefinedQualities[0]
	}
	// Exact match first — "exact form beats grouped" (§4.2 tie-break).
	for _, q := range PredefinedQualities {
		if q.Resolution == p.Resolution && strings.EqualFold(q.Source, p.Source) {
			return q
		}
	}
	// Grouped fallback: same resolution, best source rung available; a bare
	// "WEB" source only considers the WEB-DL and WEBRip rungs.
	web := strings.EqualFold(p.Source, "WEB")
	var best domain.Quality
	for _, q := range PredefinedQualities {
		if web && q.Source != "WEB-DL" && q.Source != "WEBRip" {
			continue
		}
		if q.Resolution == p.Resolution && q.Weight > best.Weight {
			best = q
		}
	}
	if best.Weight > 0 {
		return best
	}
	return PredefinedQualities[0]
}

// DefaultProfile is a permissive profile allowing every known quality, with
// cutoff at 1080p WEB-DL — a reasonable default for events with no
// configured profile. Position is assigned descending from best (§3:
// "rank is the inverse position among allowed items" — position 0 is the
// most preferred), so the best-known quality (Remux-2160p) ranks highest
// even though PredefinedQualities itself is stored weight-ascending.
func DefaultProfile() domain.QualityProfile {
	items := make([]domain.QualityItem, len(PredefinedQualities))
	for i, q := range PredefinedQualities {
		items[i] = domain.QualityItem{Quality: q, Allowed: true, Position: len(PredefinedQualities) - 1 - i}
	}
	return domain.QualityProfile{ID: 1, Name: "Default", Cutoff: 9, Items: items, UpgradeAllowed: true}
}

// rank returns the profile-relative rank of a quality: higher is better,
// and -1 means "not allowed by this profile" (§3: "quality rank is the
// inverse position among allowed items"). Items are walked in Position
// order rather than slice order, so a profile loaded with its items out of
// storage order still ranks correctly.
func rank(profile domain.QualityProfile, qualityID int) int {
	items := orderedItems(profile.Items)

	allowedCount := 0
	for _, item := range items {
		if item.Allowed {
			allowedCount++
		}
	}

	position := 0
	for _, item := range items {
		if !item.Allowed {
			continue
		}
		position++
		if item.Quality.ID == qualityID {
			// Inverse position: first allowed item (best) gets the
			// highest rank.
			return allowedCount - position + 1
		}
	}
	return -1
}

// orderedItems returns profile items sorted by Position, ascending.
func orderedItems(items []domain.QualityItem) []domain.QualityItem {
	out := make([]domain.QualityItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// IsAllowed reports whether qualityID is one of the profile's allowed
// items and at or above its minimum-quality floor (§4.5 rejection:
// "quality not in allowed items or below minimum-quality").
func IsAllowed(profile domain.QualityProfile, qualityID int) bool {
	r := rank(profile, qualityID)
	if r < 0 {
		return false
	}
	if profile.MinimumQuality != 0 {
		minRank := rank(profile, profile.MinimumQuality)
		if minRank >= 0 && r < minRank {
			return false
		}
	}
	return true
}

// Rank exposes the profile-relative rank of a quality for callers outside
// this package (the evaluator's quality-score input, §4.5): higher is
// better, 0 means "not allowed by this profile".
func Rank(profile domain.QualityProfile, qualityID int) int {
	if r := rank(profile, qualityID); r > 0 {
		return r
	}
	return 0
}

// IsAcceptable reports whether qualityID meets the profile's minimum bar:
// allowed, and at or above the lowest-ranked allowed item (mirrors the
// teacher's Profile.IsAcceptable).
func IsAcceptable(profile domain.QualityProfile, qualityID int) bool {
	return IsAllowed(profile, qualityID)
}

// IsUpgrade reports whether candidateID outranks currentID under the
// profile, and the profile hasn't already reached its cutoff with
// currentID (mirrors the teacher's Profile.IsUpgrade). A profile with
// UpgradeAllowed=false never reports an upgrade (§3: "upgrade-allowed").
func IsUpgrade(profile domain.QualityProfile, currentID, candidateID int) bool {
	if !profile.UpgradeAllowed {
		return false
	}
	currentRank := rank(profile, currentID)
	candidateRank := rank(profile, candidateID)
	if candidateRank < 0 {
		return false
	}
	if currentRank >= 0 && currentRank >= rank(profile, profile.Cutoff) {
		return false // already at or past cutoff, no further upgrades wanted
	}
	return candidateRank > currentRank
}
