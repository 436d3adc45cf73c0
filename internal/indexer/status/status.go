// Package status implements per-indexer health tracking and backoff
// (§4.7): a Healthy -> Disabled(until) state machine plus the per-indexer
// minimum request interval. Grounded on the teacher's
// internal/prowlarr/ratelimit.go adaptive-delay shape, generalized from a
// single continuously-adjusted delay into the spec's discrete backoff
// table and explicit disabled-till cooldown.
package status

import (
	"sync"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// BackoffTable is consulted by consecutive-failure count (clamped to the
// last entry) — §4.7: "{0s, 1m, 5m, 15m, 30m, 1h, 24h} saturating at 24h".
var BackoffTable = []time.Duration{
	0, time.Minute, 5 * time.Minute, 15 * time.Minute,
	30 * time.Minute, time.Hour, 24 * time.Hour,
}

// MinInterval is the per-indexer HTTP layer's minimum inter-request
// interval (§4.7 rate-limiting layer 1).
const MinInterval = 2 * time.Second

// Tracker holds every indexer's health state in memory; the caller
// persists it to the indexer_statuses table periodically (see Persist).
type Tracker struct {
	mu       sync.Mutex
	statuses map[int64]*domain.IndexerStatus
	lastReq  map[int64]time.Time
}

// NewTracker constructs an empty Tracker; callers load persisted rows in
// via Load before first use.
func NewTracker() *Tracker {
	return &Tracker{
		statuses: make(map[int64]*domain.IndexerStatus),
		lastReq:  make(map[int64]time.Time),
	}
}

// Load seeds the tracker's in-memory state from a persisted row (called
// once at startup per configured indexer).
func (t *Tracker) Load(status domain.IndexerStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := status
	t.statuses[status.IndexerID] = &s
}

// IsAvailable reports whether an indexer may be queried right now, and a
// human-readable reason when it cannot (§4.7: "orchestrator asks
// IsAvailable(indexer) -> (bool, reason); unavailable indexers are
// silently skipped").
func (t *Tracker) IsAvailable(indexerID int64, now time.Time) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.statuses[indexerID]
	if !ok {
		return true, ""
	}
	if s.Disabled(now) {
		return false, "disabled until " + s.DisabledTill.Format(time.RFC3339)
	}
	return true, ""
}

// RecordSuccess resets the failure streak and clears any cooldown
// (§4.7: "each successful query => reset consecutive-failures=0, clear
// disabled-until").
func (t *Tracker) RecordSuccess(indexerID int64, now time.Time) domain.IndexerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(indexerID)
	s.ConsecutiveFailures = 0
	s.DisabledTill = nil
	s.LastError = ""
	s.LastSuccessAt = &now
	return *s
}

// RecordFailure increments the failure streak and applies the backoff
// table's cooldown for the new streak length.
func (t *Tracker) RecordFailure(indexerID int64, now time.Time, errMsg string) domain.IndexerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(indexerID)
	s.ConsecutiveFailures++
	s.LastError = errMsg
	until := now.Add(backoffFor(s.ConsecutiveFailures))
	s.DisabledTill = &until
	return *s
}

// RecordRateLimited applies an explicit Retry-After cooldown without
// touching the failure streak (§4.7: "HTTP 429 ... never contributes to
// failure streak").
func (t *Tracker) RecordRateLimited(indexerID int64, now time.Time, retryAfter time.Duration) domain.IndexerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(indexerID)
	until := now.Add(retryAfter)
	s.DisabledTill = &until
	return *s
}

// All returns a snapshot of every indexer's tracked status, for the REST
// status endpoint.
func (t *Tracker) All() []domain.IndexerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.IndexerStatus, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, *s)
	}
	return out
}

func (t *Tracker) get(indexerID int64) *domain.IndexerStatus {
	s, ok := t.statuses[indexerID]
	if !ok {
		s = &domain.IndexerStatus{IndexerID: indexerID}
		t.statuses[indexerID] = s
	}
	return s
}

func backoffFor(consecutiveFailures int) time.Duration {
	idx := consecutiveFailures
	if idx >= len(BackoffTable) {
		idx = len(BackoffTable) - 1
	}
	return BackoffTable[idx]
}

// ThrottleWait blocks the caller until at least MinInterval has elapsed
// since the indexer's last request, then records the new request time —
// the per-indexer HTTP rate-limiting layer (§4.7 layer 1). jitter adds a
// small random delay on top to avoid synchronized bursts; callers pass a
// value in [0, MinInterval/4) computed with their own RNG to keep this
// package deterministic and test-friendly.
func (t *Tracker) ThrottleWait(indexerID int64, jitter time.Duration, sleep func(time.Duration)) {
	t.mu.Lock()
	last, ok := t.lastReq[indexerID]
	t.lastReq[indexerID] = time.Now()
	t.mu.Unlock()

	if !ok {
		return
	}
	elapsed := time.Since(last)
	wait := MinInterval + jitter - elapsed
	if wait > 0 {
		sleep(wait)
	}
}
