// Package evaluator implements the Release Evaluator (§4.5): pure
// rejection-then-scoring over a candidate release, grounded on the
// teacher's indexer/scoring (scorer.go, types.go) additive scoring shape
// and decisioning/selection.go's rejection-string accumulation.
package evaluator

import (
	"fmt"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/quality"
)

// WeightQuality is the per-rank multiplier for quality-score (§4.5: "W_q ≈
// 100").
const WeightQuality = 100

// SizePerHour is a rough expected bitrate table (bytes/hour) keyed by
// resolution, used to derive a [min,max] size envelope per quality; a
// quality profile's own size limits can only narrow it. Grounded loosely on the
// teacher's quality-definition size bounds (per-resolution min/max
// megabytes-per-minute table), adapted for sport broadcasts which run
// longer than a TV episode.
var SizePerHour = map[int]struct{ MinBytes, MaxBytes int64 }{
	2160: {3 * 1024 * 1024 * 1024, 18 * 1024 * 1024 * 1024},
	1080: {1500 * 1024 * 1024, 9 * 1024 * 1024 * 1024},
	720:  {800 * 1024 * 1024, 5 * 1024 * 1024 * 1024},
	480:  {300 * 1024 * 1024, 2 * 1024 * 1024 * 1024},
}

// Input bundles everything the evaluator needs to score one release
// against one event, per §4.5's input list.
type Input struct {
	Release          *domain.ReleaseSearchResult
	Event            *domain.Event
	Profile          domain.QualityProfile
	CustomFormats    []domain.CustomFormat
	MinCFScore       int
	RequestedPart    string
	MultiPartEnabled bool
	ExpectedHours    float64 // duration estimate for size-envelope scaling; 0 defaults to 1
}

// Evaluate runs the full rejection+scoring pipeline. It is pure: it never
// mutates in.Release or in.Event.
func Evaluate(in Input) domain.EvaluationResult {
	result := domain.EvaluationResult{Approved: true}

	q := quality.ResolveFromParsed(in.Release.Parsed)
	result.QualityID = q.ID

	if !quality.IsAllowed(in.Profile, q.ID) {
		result.Rejections = append(result.Rejections, "quality not in allowed items for profile")
		result.Approved = false
	}

	hours := in.ExpectedHours
	if hours <= 0 {
		hours = 1
	}
	min, max := int64(0), int64(0)
	if limits, ok := SizePerHour[q.Resolution]; ok {
		min, max = limits.MinBytes*int64(hours), limits.MaxBytes*int64(hours)
	}
	// A profile's own size-limit-min/max narrows (never widens) the
	// quality-table envelope (§4.5: "size outside [min,max] for the
	// quality").
	const gb = 1024 * 1024 * 1024
	if in.Profile.SizeLimitMinGB > 0 {
		if limit := int64(in.Profile.SizeLimitMinGB * gb); limit > min {
			min = limit
		}
	}
	if in.Profile.SizeLimitMaxGB > 0 {
		if limit := int64(in.Profile.SizeLimitMaxGB * gb); max == 0 || limit < max {
			max = limit
		}
	}
	if min > 0 && in.Release.SizeBytes < min {
		result.Rejections = append(result.Rejections, fmt.Sprintf("size %d bytes outside [%d,%d] for quality %s", in.Release.SizeBytes, min, max, q.Name))
		result.Approved = false
	} else if max > 0 && in.Release.SizeBytes > max {
		result.Rejections = append(result.Rejections, fmt.Sprintf("size %d bytes outside [%d,%d] for quality %s", in.Release.SizeBytes, min, max, q.Name))
		result.Approved = false
	}

	matchedFormats, cfScore := quality.MatchingFormatsForProfile(in.Profile, in.CustomFormats, in.Release.Parsed, in.Release)
	result.MatchedFormats = matchedFormats
	result.CustomFormatScore = cfScore
	if cfScore < in.MinCFScore {
		result.Rejections = append(result.Rejections, fmt.Sprintf("custom-format score %d below minimum %d", cfScore, in.MinCFScore))
		result.Approved = false
	}

	if in.Release.Parsed != nil {
		if in.MultiPartEnabled && in.RequestedPart != "" && in.Release.Parsed.IsFullEvent {
			result.Rejections = append(result.Rejections, "multi-part enabled but release is a full-event file")
			result.Approved = false
		}
		if !in.MultiPartEnabled && in.Release.Parsed.Part != "" {
			result.Rejections = append(result.Rejections, "multi-part disabled but release is a part file")
			result.Approved = false
		}
	}

	result.QualityScore = quality.Rank(in.Profile, q.ID) * WeightQuality
	result.SizeScore = sizeScore(in)
	result.TotalScore = result.QualityScore + result.CustomFormatScore + result.SizeScore

	return result
}

// sizeScore implements the §4.5 size-score policy: closer-to-preferred
// wins when a preferred size is configured, otherwise larger-is-better.
func sizeScore(in Input) int {
	sizeGB := float64(in.Release.SizeBytes) / (1024 * 1024 * 1024)
	if in.Profile.PreferredSizeGB > 0 {
		diff := sizeGB - in.Profile.PreferredSizeGB
		if diff < 0 {
			diff = -diff
		}
		return -int(diff)
	}
	return int(sizeGB)
}
