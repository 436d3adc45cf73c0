package decisioning

import (
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// BlocklistThreshold is the number of failed download attempts for a given
// release before it is blocklisted (§4.16, Open Question decision).
const BlocklistThreshold = 3

// RetryBackoff is the grab retry backoff table: the Nth retry waits the
// Nth entry. The release is blocklisted once BlocklistThreshold attempts
// have failed, before the later entries are reached (§4.16, ported from
// spec.md §9's own suggestion).
var RetryBackoff = []time.Duration{
	30 * time.Minute, time.Hour, 2 * time.Hour, 4 * time.Hour, 8 * time.Hour,
}

// ShouldBlocklist reports whether a release with the given failed-attempt
// count has exhausted its retries and must be blocklisted.
func ShouldBlocklist(attempts int) bool {
	return attempts >= BlocklistThreshold || attempts > len(RetryBackoff)
}

// NextRetryDelay returns how long to wait before retrying a failed grab,
// given the number of attempts so far. Callers should blocklist instead of
// retrying once ShouldBlocklist reports true.
func NextRetryDelay(attempts int) time.Duration {
	idx := attempts
	if idx < 0 {
		idx = 0
	}
	if idx >= len(RetryBackoff) {
		idx = len(RetryBackoff) - 1
	}
	return RetryBackoff[idx]
}

// IsBlocklisted reports whether a release is present in the blocklist by
// GUID or info-hash — a release can be blocklisted under either key
// depending on which one the indexer actually supplied.
func IsBlocklisted(entries []domain.BlocklistEntry, guid, infoHash string) bool {
	for _, e := range entries {
		if (guid != "" && e.ReleaseGUID == guid) || (infoHash != "" && e.InfoHash == infoHash) {
			return true
		}
	}
	return false
}
