package quality

import (
	"regexp"
	"strings"

	"github.com/matchday/matchday/internal/domain"
)

// The Specification catalogue (§4.14) — each type is a single boolean
// predicate evaluated against a release's parsed title and wire metadata.
// Grounded on the teacher's custom-format specification shape
// (internal/library/quality profile matching), generalized to the sports
// release fields (sport prefix, fight-card part) the teacher never had.

// ReleaseTitleRegexSpec matches the raw release title against a regular
// expression.
type ReleaseTitleRegexSpec struct {
	Pattern *regexp.Regexp
	Negate  bool
}

func (s ReleaseTitleRegexSpec) Name() string { return "ReleaseTitleRegex" }

func (s ReleaseTitleRegexSpec) Match(parsed *domain.ParsedTitle, release *domain.ReleaseSearchResult) bool {
	title := ""
	if release != nil {
		title = release.Title
	} else if parsed != nil {
		title = parsed.OriginalTitle
	}
	matched := s.Pattern.MatchString(title)
	if s.Negate {
		return !matched
	}
	return matched
}

// SourceSpec matches the parsed source (BluRay/Remux/WEB-DL/...).
type SourceSpec struct {
	Source string
}

func (s SourceSpec) Name() string { return "Source" }

func (s SourceSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	return parsed != nil && strings.EqualFold(parsed.Source, s.Source)
}

// ResolutionSpec matches the parsed resolution in pixels.
type ResolutionSpec struct {
	Resolution int
}

func (s ResolutionSpec) Name() string { return "Resolution" }

func (s ResolutionSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	return parsed != nil && parsed.Resolution == s.Resolution
}

// CodecSpec matches the parsed video codec.
type CodecSpec struct {
	Codec string
}

func (s CodecSpec) Name() string { return "Codec" }

func (s CodecSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	return parsed != nil && strings.EqualFold(parsed.Codec, s.Codec)
}

// LanguageSpec matches the parsed language tag.
type LanguageSpec struct {
	Language string
}

func (s LanguageSpec) Name() string { return "Language" }

func (s LanguageSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	return parsed != nil && strings.EqualFold(parsed.Language, s.Language)
}

// ReleaseGroupSpec matches the parsed release-group tag, case-insensitive.
type ReleaseGroupSpec struct {
	Group string
}

func (s ReleaseGroupSpec) Name() string { return "ReleaseGroup" }

func (s ReleaseGroupSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	return parsed != nil && strings.EqualFold(parsed.ReleaseGroup, s.Group)
}

// SizeRangeSpec matches a release whose size in bytes falls within
// [MinBytes, MaxBytes]. A zero MaxBytes means unbounded above.
type SizeRangeSpec struct {
	MinBytes int64
	MaxBytes int64
}

func (s SizeRangeSpec) Name() string { return "SizeRange" }

func (s SizeRangeSpec) Match(_ *domain.ParsedTitle, release *domain.ReleaseSearchResult) bool {
	if release == nil {
		return false
	}
	if release.SizeBytes < s.MinBytes {
		return false
	}
	if s.MaxBytes > 0 && release.SizeBytes > s.MaxBytes {
		return false
	}
	return true
}

// IndexerFlagSpec matches a release carrying the Freeleech wire flag. Only
// Freeleech is modeled: the other Torznab/Newznab attribute flags this
// catalogue could key on (e.g. Internal, Scene) have no source in the
// wire format this system actually consumes (§6).
type IndexerFlagSpec struct {
	RequireFreeleech bool
}

func (s IndexerFlagSpec) Name() string { return "IndexerFlag" }

func (s IndexerFlagSpec) Match(_ *domain.ParsedTitle, release *domain.ReleaseSearchResult) bool {
	return release != nil && release.Freeleech == s.RequireFreeleech
}

// SportPrefixSpec matches the parsed sport/league prefix (e.g. "UFC"),
// letting a custom format apply only within one sport.
type SportPrefixSpec struct {
	SportPrefix string
}

func (s SportPrefixSpec) Name() string { return "SportPrefix" }

func (s SportPrefixSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	return parsed != nil && strings.EqualFold(parsed.SportPrefix, s.SportPrefix)
}

// PartSpec matches a specific fight-card segment, or the "Full Event"
// sentinel when Part is empty and FullEventOnly is set.
type PartSpec struct {
	Part          string
	FullEventOnly bool
}

func (s PartSpec) Name() string { return "Part" }

func (s PartSpec) Match(parsed *domain.ParsedTitle, _ *domain.ReleaseSearchResult) bool {
	if parsed == nil {
		return false
	}
	if s.FullEventOnly {
		return parsed.IsFullEvent
	}
	return strings.EqualFold(parsed.Part, s.Part)
}

// Evaluate reports whether every specification in a custom format matches —
// CustomFormat semantics are a logical AND over its Specifications (§4.14).
func Evaluate(cf domain.CustomFormat, parsed *domain.ParsedTitle, release *domain.ReleaseSearchResult) bool {
	if len(cf.Specifications) == 0 {
		return false
	}
	for _, spec := range cf.Specifications {
		if !spec.Match(parsed, release) {
			return false
		}
	}
	return true
}

// MatchingFormats returns the names of every custom format in the
// catalogue that matches the release, and the sum of their scores — the
// Release Evaluator's CustomFormatScore input (§4.5).
func MatchingFormats(catalogue []domain.CustomFormat, parsed *domain.ParsedTitle, release *domain.ReleaseSearchResult) (names []string, score int) {
	for _, cf := range catalogue {
		if Evaluate(cf, parsed, release) {
			names = append(names, cf.Name)
			score += cf.Score
		}
	}
	return names, score
}

// MatchingFormatsForProfile is MatchingFormats, but a matched format's
// contribution is overridden by the profile's format-items table when the
// profile scores that format differently from its catalogue default (§3
// QualityProfile.format-items).
func MatchingFormatsForProfile(profile domain.QualityProfile, catalogue []domain.CustomFormat, parsed *domain.ParsedTitle, release *domain.ReleaseSearchResult) (names []string, score int) {
	overrides := make(map[int64]int, len(profile.FormatItems))
	for _, fi := range profile.FormatItems {
		overrides[fi.CustomFormatID] = fi.Score
	}
	for _, cf := range catalogue {
		if !Evaluate(cf, parsed, release) {
			continue
		}
		names = append(names, cf.Name)
		if s, ok := overrides[cf.ID]; ok {
			score += s
		} else {
			score += cf.Score
		}
	}
	return names, score
}
