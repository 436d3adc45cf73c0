// Package search implements the Search Orchestrator (§4.8): concurrent
// fan-out across enabled indexers under a bounded semaphore, live progress
// reporting, evaluation, and final ranking. Grounded on the teacher's
// internal/prowlarr/service.go fan-out/aggregate shape and ratelimit.go's
// adaptive-delay convention, reimplemented with a plain buffered-channel
// semaphore + sync.WaitGroup rather than golang.org/x/sync/errgroup —
// the teacher's own concurrency idiom throughout the corpus is hand-rolled
// channels/WaitGroup, never errgroup, so this keeps the same shape instead
// of introducing a dependency nothing in the pack demonstrates.
package search

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/evaluator"
	"github.com/matchday/matchday/internal/indexer/status"
	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/rs/zerolog"
)

// MaxConcurrentQueries bounds simultaneous indexer queries per search
// operation (§4.7 rate-limiting layer 2, default 5).
const MaxConcurrentQueries = 5

// IndexerEntry pairs a configured indexer with its live client and
// whether a download client backs its protocol (§4.8 step 1).
type IndexerEntry struct {
	Indexer       domain.Indexer
	Client        types.Client
	ClientEnabled bool // true iff a download client of a matching protocol is enabled
}

// Orchestrator runs searches/RSS fetches across a set of indexers.
type Orchestrator struct {
	tracker *status.Tracker
	logger  zerolog.Logger

	mu     sync.Mutex
	active types.ActiveSearchStatus
}

// New constructs an Orchestrator.
func New(tracker *status.Tracker, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{tracker: tracker, logger: logger.With().Str("component", "search-orchestrator").Logger()}
}

// ActiveStatus returns a snapshot of the currently running search's
// progress, for the UI (§4.8 step 2).
func (o *Orchestrator) ActiveStatus() types.ActiveSearchStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// EvalParams bundles the per-event context the evaluator needs for each
// candidate release — passed through unchanged from the caller.
type EvalParams struct {
	Event            *domain.Event
	Profile          domain.QualityProfile
	CustomFormats    []domain.CustomFormat
	MinCFScore       int
	RequestedPart    string
	MultiPartEnabled bool
	MinSeeders       int
}

// Search runs §4.8's full fan-out-evaluate-rank pipeline against the
// enabled, client-backed subset of entries.
func (o *Orchestrator) Search(ctx context.Context, entries []IndexerEntry, query string, params EvalParams) []*domain.ReleaseSearchResult {
	usable := o.usableEntries(entries)
	results := o.fanOut(ctx, usable, func(c types.Client) ([]*domain.ReleaseSearchResult, error) {
		return c.Search(ctx, types.SearchCriteria{Query: query, Limit: 200})
	})
	return o.evaluateAndRank(results, params)
}

// FetchAllRSS runs a no-query RSS fetch across every usable indexer,
// tagging results for ingestion with from-rss=true by the caller (§4.8).
func (o *Orchestrator) FetchAllRSS(ctx context.Context, entries []IndexerEntry, perIndexerLimit int) []*domain.ReleaseSearchResult {
	usable := o.usableEntries(entries)
	return o.fanOut(ctx, usable, func(c types.Client) ([]*domain.ReleaseSearchResult, error) {
		return c.FetchRSS(ctx, perIndexerLimit)
	})
}

// usableEntries drops indexers with no enabled download client for their
// protocol (§4.8 step 1), logging each skip.
func (o *Orchestrator) usableEntries(entries []IndexerEntry) []IndexerEntry {
	usable := make([]IndexerEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Indexer.Enabled {
			continue
		}
		if !e.ClientEnabled {
			o.logger.Info().Str("indexer", e.Indexer.Name).Msg("skipping indexer: no enabled download client for its protocol")
			continue
		}
		usable = append(usable, e)
	}
	return usable
}

func (o *Orchestrator) fanOut(ctx context.Context, entries []IndexerEntry, call func(types.Client) ([]*domain.ReleaseSearchResult, error)) []*domain.ReleaseSearchResult {
	o.mu.Lock()
	o.active = types.ActiveSearchStatus{Total: len(entries), StartedAt: time.Now()}
	o.mu.Unlock()

	sem := make(chan struct{}, MaxConcurrentQueries)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var all []*domain.ReleaseSearchResult

	for _, entry := range entries {
		available, reason := o.tracker.IsAvailable(entry.Indexer.ID, time.Now())
		if !available {
			o.logger.Debug().Str("indexer", entry.Indexer.Name).Str("reason", reason).Msg("indexer unavailable, skipping")
			o.mu.Lock()
			o.active.Completed++
			o.mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		o.mu.Lock()
		o.active.Active++
		o.mu.Unlock()

		go func(entry IndexerEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			o.tracker.ThrottleWait(entry.Indexer.ID, jitter(), time.Sleep)

			releases, err := call(entry.Client)
			if err != nil {
				o.tracker.RecordFailure(entry.Indexer.ID, time.Now(), err.Error())
				o.logger.Warn().Err(err).Str("indexer", entry.Indexer.Name).Msg("indexer query failed")
			} else {
				o.tracker.RecordSuccess(entry.Indexer.ID, time.Now())
				mu.Lock()
				all = append(all, releases...)
				mu.Unlock()
			}

			o.mu.Lock()
			o.active.Active--
			o.active.Completed++
			o.active.ReleasesFound = len(all)
			o.mu.Unlock()
		}(entry)
	}

	wg.Wait()

	o.mu.Lock()
	o.active.IsComplete = true
	o.mu.Unlock()

	return all
}

// evaluateAndRank applies §4.5's evaluator to each result, filters by
// minimum seeders for torrent releases, and sorts by the §4.8 step 6
// ordering: approved desc, quality-score desc, custom-format-score desc,
// seeders desc, size-score desc.
func (o *Orchestrator) evaluateAndRank(releases []*domain.ReleaseSearchResult, params EvalParams) []*domain.ReleaseSearchResult {
	filtered := releases[:0]
	for _, r := range releases {
		if r.Protocol == domain.ProtocolTorrent && r.Seeders < params.MinSeeders {
			continue
		}
		filtered = append(filtered, r)
	}

	evals := make(map[*domain.ReleaseSearchResult]domain.EvaluationResult, len(filtered))
	for _, r := range filtered {
		result := evaluator.Evaluate(evaluator.Input{
			Release:          r,
			Event:            params.Event,
			Profile:          params.Profile,
			CustomFormats:    params.CustomFormats,
			MinCFScore:       params.MinCFScore,
			RequestedPart:    params.RequestedPart,
			MultiPartEnabled: params.MultiPartEnabled,
		})
		r.Score = result.TotalScore
		r.ScoreBreakdown.QualityScore = result.QualityScore
		r.ScoreBreakdown.CustomFormatScore = result.CustomFormatScore
		r.QualityID = result.QualityID
		evals[r] = result
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := evals[filtered[i]], evals[filtered[j]]
		if a.Approved != b.Approved {
			return a.Approved
		}
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.CustomFormatScore != b.CustomFormatScore {
			return a.CustomFormatScore > b.CustomFormatScore
		}
		if filtered[i].Seeders != filtered[j].Seeders {
			return filtered[i].Seeders > filtered[j].Seeders
		}
		return a.SizeScore > b.SizeScore
	})

	return filtered
}

func jitter() time.Duration {
	return time.Duration(rand.Intn(500)) * time.Millisecond
}
