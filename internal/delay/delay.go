// Package delay implements the Delay Profile / Selector (§3, §4.5's
// protocol bonus, §9 design note): protocol preference, propagation
// delay, and the final highest-priority-profile-for-event selection. No
// direct teacher equivalent (the teacher has no propagation-delay
// concept); grounded on the evaluator's scoring-context shape and the
// quality profile's ordered-list-with-cutoff pattern.
package delay

import (
	"sort"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// ProtocolBonus is added to a release's total score when its protocol
// matches the selected delay profile's PreferredProtocol (§4.5: "protocol
// bonus set by the selector, not here").
const ProtocolBonus = 10

// SelectForEvent picks the delay profile that governs an event, per the
// §9 design-note fix: profiles are considered in ascending Order (lowest
// Order = highest priority), and the first whose Tags intersects the
// event's Tags wins. When no tagged profile matches, the first profile
// with no Tags at all (which applies universally) is used instead.
func SelectForEvent(profiles []domain.DelayProfile, event *domain.Event) domain.DelayProfile {
	ordered := make([]domain.DelayProfile, len(profiles))
	copy(ordered, profiles)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for _, p := range ordered {
		if len(p.Tags) > 0 && tagsIntersect(p.Tags, event.Tags) {
			return p
		}
	}
	for _, p := range ordered {
		if len(p.Tags) == 0 {
			return p
		}
	}
	return domain.DelayProfile{PreferredProtocol: domain.ProtocolTorrent}
}

func tagsIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if set[t] {
			return true
		}
	}
	return false
}

// IsDelayed reports whether a release must still wait out its protocol's
// propagation delay under the given profile, and whether any bypass
// condition exempts it (§3: "a release is delayed iff now - publish-date
// < delay[protocol] and no bypass condition holds").
func IsDelayed(profile domain.DelayProfile, release *domain.ReleaseSearchResult, now time.Time, isHighestQuality bool, customFormatScore int) bool {
	elapsed := now.Sub(release.PublishDate)
	threshold := profile.TorrentDelay
	if release.Protocol == domain.ProtocolUsenet {
		threshold = profile.UsenetDelay
	}
	if elapsed >= threshold {
		return false
	}
	if profile.BypassIfHighestQuality && isHighestQuality {
		return false
	}
	if profile.BypassIfAboveCFScore && customFormatScore >= profile.MinCFScore {
		return false
	}
	return true
}

// ScoreBonus returns the protocol-preference bonus a release earns under
// the given profile.
func ScoreBonus(profile domain.DelayProfile, protocol domain.Protocol) int {
	if protocol == profile.PreferredProtocol {
		return ProtocolBonus
	}
	return 0
}
