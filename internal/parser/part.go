package parser

import "regexp"

// Fighting-sport part detection (§4.3). Scope is restricted to fighting
// sports; callers pass the detected sport prefix and we check membership
// against the fighting-sport set before attempting detection at all.
var fightingSportPrefixes = map[string]bool{
	"UFC":      true,
	"Bellator": true,
	"PFL":      true,
}

// Pattern ordering matters: EarlyPrelims must be checked before Prelims,
// since "Prelims" alone would otherwise also match an "Early Prelims"
// title (§4.1 rule 6 / §4.3: "more-specific first").
var partPatterns = []struct {
	part    string
	pattern *regexp.Regexp
}{
	{"Early Prelims", regexp.MustCompile(`(?i)\bearly[. ]prelims?\b`)},
	{"Prelims", regexp.MustCompile(`(?i)\bprelims?\b`)},
	{"Main Card", regexp.MustCompile(`(?i)\bmain[. ]card\b|\bmc\b|\bppv\b`)},
	{"Post Show", regexp.MustCompile(`(?i)\bpost[. ]show\b`)},
}

var fullEventPattern = regexp.MustCompile(`(?i)\bfull[. ]event\b`)

// partOrder assigns the part-number used for tie-breaking/ordering,
// distinguishing the PPV four-segment ladder from the Fight-Night
// three-segment ladder (no Early Prelims) per §4.3.
var partOrderPPV = map[string]int{
	"Early Prelims": 1,
	"Prelims":       2,
	"Main Card":     3,
	"Post Show":     4,
}

var partOrderFightNight = map[string]int{
	"Prelims":   1,
	"Main Card": 2,
}

// DetectPart looks for a fight-card segment in a normalized (lowercased,
// separator-collapsed) title. Returns ("", false) when the sport isn't a
// fighting sport, when "Full Event" is present (stored as no-part, the
// sentinel for "whole card in one file"), or when no segment is found —
// single-part events (e.g. Contender Series) are intentionally undetected.
func DetectPart(working, sportPrefix string) (part string, isFullEvent bool) {
	if !fightingSportPrefixes[sportPrefix] {
		return "", false
	}
	if fullEventPattern.MatchString(working) {
		return "", true
	}
	for _, pp := range partPatterns {
		if pp.pattern.MatchString(working) {
			return pp.part, false
		}
	}
	return "", false
}

// PartOrder returns the part's position for ordering/import-suffix
// purposes. eventType selects which ladder (PPV vs Fight Night) applies;
// an unrecognised part sorts last (order 99) rather than blocking import
// of the parts that were recognised.
func PartOrder(part string, eventType EventType) int {
	table := partOrderPPV
	if eventType == EventTypeFightNight {
		table = partOrderFightNight
	}
	if n, ok := table[part]; ok {
		return n
	}
	return 99
}

// EventType classifies a fighting-sport event's card structure, inferred
// from the event title per §4.3.
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypePPV
	EventTypeFightNight
	EventTypeContenderSeries
)

var (
	ufcNumberedPattern = regexp.MustCompile(`(?i)\bufc[. ]?\d+\b`)
	fightNightPattern  = regexp.MustCompile(`(?i)\bufc[. ]fight[. ]night\b|\bufc[. ]on[. ](?:espn|abc|fox)\b`)
	contenderPattern   = regexp.MustCompile(`(?i)\bcontender[. ]series\b|\bdwcs\b`)
)

// InferEventType classifies an event's title into a card structure
// (§4.3's event-type inference rules).
func InferEventType(eventTitle string) EventType {
	working := normalize(eventTitle)
	switch {
	case contenderPattern.MatchString(working):
		return EventTypeContenderSeries
	case fightNightPattern.MatchString(working):
		return EventTypeFightNight
	case ufcNumberedPattern.MatchString(working):
		return EventTypePPV
	default:
		return EventTypeUnknown
	}
}

// MotorsportSession names a single motorsport session, used only to filter
// MonitoredSessions — motorsport sessions are never "parts" of one event
// (§4.3: "not multi-part — each session is a distinct event from
// upstream").
type MotorsportSession string

const (
	SessionFP1              MotorsportSession = "FP1"
	SessionFP2              MotorsportSession = "FP2"
	SessionFP3              MotorsportSession = "FP3"
	SessionQualifying       MotorsportSession = "Qualifying"
	SessionSprintQualifying MotorsportSession = "Sprint Qualifying"
	SessionSprint           MotorsportSession = "Sprint"
	SessionRace             MotorsportSession = "Race"
)

var sessionPatterns = []struct {
	session MotorsportSession
	pattern *regexp.Regexp
}{
	{SessionSprintQualifying, regexp.MustCompile(`(?i)\bsprint[. ]qualifying\b`)},
	{SessionSprint, regexp.MustCompile(`(?i)\bsprint\b`)},
	{SessionQualifying, regexp.MustCompile(`(?i)\bqualifying\b|\bquali\b`)},
	{SessionFP1, regexp.MustCompile(`(?i)\bfp1\b|\bpractice[. ]1\b`)},
	{SessionFP2, regexp.MustCompile(`(?i)\bfp2\b|\bpractice[. ]2\b`)},
	{SessionFP3, regexp.MustCompile(`(?i)\bfp3\b|\bpractice[. ]3\b`)},
	{SessionRace, regexp.MustCompile(`(?i)\brace\b|\bgrand[. ]prix\b`)},
}

// DetectSession identifies which motorsport session a release belongs to,
// or "" if none of the known session patterns match.
func DetectSession(title string) MotorsportSession {
	working := normalize(title)
	for _, sp := range sessionPatterns {
		if sp.pattern.MatchString(working) {
			return sp.session
		}
	}
	return ""
}
