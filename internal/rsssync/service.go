// Package rsssync implements the RSS-Sync Loop (§4.9): a periodic
// background pass that refreshes the release cache from every RSS-capable
// indexer, then matches, scores, and grabs releases for monitored events.
// Grounded on the teacher's rsssync/service.go Run/collectWanted/
// matchFeeds/scoreAndGrab shape, adapted onto matchday's per-event (and,
// for fighting sports, per-part) grab unit rather than the teacher's
// per-movie/season/episode one. Feed fetching and release matching are
// already owned by internal/indexer/search and internal/releasecache, so
// this package is slimmer than the teacher's — it is the tick loop that
// wires them together and makes the grab decision.
package rsssync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/decisioning"
	"github.com/matchday/matchday/internal/delay"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/evaluator"
	"github.com/matchday/matchday/internal/indexer/search"
	"github.com/matchday/matchday/internal/quality"
	"github.com/matchday/matchday/internal/releasecache"
	"github.com/matchday/matchday/internal/websocket"
)

// DefaultIntervalMinutes is substituted when no valid interval is configured.
const DefaultIntervalMinutes = 15

// MinIntervalMinutes and MaxIntervalMinutes bound the configurable sync
// interval (§4.9).
const (
	MinIntervalMinutes = 10
	MaxIntervalMinutes = 120
)

// PerIndexerRSSLimit bounds how many items are requested per indexer per tick.
const PerIndexerRSSLimit = 100

// RecentGrabWindow suppresses re-grabbing an event shortly after a
// successful grab, smoothing over duplicate ticks before the download
// client reports completion and HasFile flips.
const RecentGrabWindow = 30 * time.Minute

// ClampInterval enforces §4.9's [10,120]-minute bound, substituting the
// default when the configured value is out of range.
func ClampInterval(minutes int) int {
	if minutes < MinIntervalMinutes || minutes > MaxIntervalMinutes {
		return DefaultIntervalMinutes
	}
	return minutes
}

// CronExpr turns a sync interval into the every-N-minutes cron expression
// the scheduler's gocron backing expects.
func CronExpr(intervalMin int) string {
	return fmt.Sprintf("*/%d * * * *", ClampInterval(intervalMin))
}

// EventStore is the subset of event persistence the sync loop needs.
type EventStore interface {
	ListMonitored(ctx context.Context) ([]*domain.Event, error)
	ExistingParts(ctx context.Context, eventID int64) ([]string, error)
	ExistingFile(ctx context.Context, eventID int64, part string) (*domain.EventFile, error)
	RecentlyGrabbed(ctx context.Context, eventID int64, since time.Time) (bool, error)
}

// ProfileStore resolves the policy objects governing a single event's
// grab decision: quality profile, custom-format catalogue, delay
// profiles, and its own blocklist entries.
type ProfileStore interface {
	QualityProfile(ctx context.Context, id int64) (domain.QualityProfile, error)
	CustomFormats(ctx context.Context) ([]domain.CustomFormat, error)
	DelayProfiles(ctx context.Context) ([]domain.DelayProfile, error)
	Blocklist(ctx context.Context, eventID int64) ([]domain.BlocklistEntry, error)
}

// IndexerSource supplies the live, enabled indexer entries to fan RSS
// fetches out across.
type IndexerSource interface {
	Entries(ctx context.Context) ([]search.IndexerEntry, error)
}

// Dispatcher hands an approved release to the Download Dispatch layer (§4.10).
type Dispatcher interface {
	Dispatch(ctx context.Context, event *domain.Event, part string, release *domain.ReleaseSearchResult) (domain.DownloadQueueItem, error)
}

// HistoryRecorder persists the outcome of a grab decision (§4.16).
type HistoryRecorder interface {
	RecordGrab(ctx context.Context, h domain.GrabHistory) error
}

// Status reports the result of the most recent sync run.
type Status struct {
	Running       bool      `json:"running"`
	LastRun       time.Time `json:"lastRun,omitempty"`
	TotalReleases int       `json:"totalReleases"`
	EventsChecked int       `json:"eventsChecked"`
	Grabbed       int       `json:"grabbed"`
	ElapsedMs     int64     `json:"elapsedMs"`
	Error         string    `json:"error,omitempty"`
}

// Service runs the periodic RSS-sync cycle.
type Service struct {
	indexers     IndexerSource
	orchestrator *search.Orchestrator
	cache        *releasecache.Store
	events       EventStore
	profiles     ProfileStore
	dispatcher   Dispatcher
	history      HistoryRecorder
	grabLock     *decisioning.GrabLock
	hub          *websocket.Hub
	logger       zerolog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	status  Status
}

// NewService constructs a Service. history and hub may be nil — grab
// history logging and websocket broadcasts are best-effort.
func NewService(
	indexers IndexerSource,
	orchestrator *search.Orchestrator,
	cache *releasecache.Store,
	events EventStore,
	profiles ProfileStore,
	dispatcher Dispatcher,
	history HistoryRecorder,
	grabLock *decisioning.GrabLock,
	hub *websocket.Hub,
	logger zerolog.Logger,
) *Service {
	return &Service{
		indexers:     indexers,
		orchestrator: orchestrator,
		cache:        cache,
		events:       events,
		profiles:     profiles,
		dispatcher:   dispatcher,
		history:      history,
		grabLock:     grabLock,
		hub:          hub,
		logger:       logger.With().Str("component", "rsssync").Logger(),
	}
}

// IsRunning reports whether a sync cycle is currently in progress.
func (s *Service) IsRunning() bool { return s.running.Load() }

// LastStatus returns the outcome of the most recently completed cycle.
func (s *Service) LastStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Running = s.running.Load()
	return st
}

// Run executes one full sync cycle: fetch RSS feeds, ingest into the
// release cache, then match/evaluate/grab against every monitored event.
// A cycle already in progress makes this a no-op, mirroring the teacher's
// CompareAndSwap guard against overlapping ticks.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()
	s.logger.Info().Msg("rss sync starting")

	entries, err := s.indexers.Entries(ctx)
	if err != nil {
		return s.fail(start, fmt.Errorf("list indexer entries: %w", err))
	}
	if len(entries) == 0 {
		s.logger.Info().Msg("no rss-capable indexers configured")
		s.complete(start, 0, 0, 0)
		return nil
	}

	s.broadcast(websocket.EventRssSyncStarted, StartedEvent{IndexerCount: len(entries)})

	releases := s.orchestrator.FetchAllRSS(ctx, entries, PerIndexerRSSLimit)
	if err := s.cache.Ingest(ctx, releases, true); err != nil {
		return s.fail(start, fmt.Errorf("ingest rss releases: %w", err))
	}

	events, err := s.events.ListMonitored(ctx)
	if err != nil {
		return s.fail(start, fmt.Errorf("list monitored events: %w", err))
	}

	grabbed := 0
	for _, event := range events {
		grabbed += s.syncEvent(ctx, event)
	}

	s.complete(start, len(releases), len(events), grabbed)
	return nil
}

// syncEvent attempts a grab for each still-wanted part of one monitored
// event, returning how many parts were successfully grabbed this cycle.
func (s *Service) syncEvent(ctx context.Context, event *domain.Event) int {
	if !event.Monitored {
		return 0
	}

	existingParts, err := s.events.ExistingParts(ctx, event.ID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("eventID", event.ID).Msg("failed to list existing parts")
		return 0
	}

	grabbed := 0
	for _, part := range wantedParts(event) {
		var currentFile *domain.EventFile
		if part == "" && event.HasFile || part != "" && containsFold(existingParts, part) {
			f, err := s.events.ExistingFile(ctx, event.ID, part)
			if err != nil {
				s.logger.Warn().Err(err).Int64("eventID", event.ID).Str("part", part).Msg("failed to load existing file")
				continue
			}
			// f is nil when flagged present by HasFile/ExistingParts but the
			// file row is gone — treated as wanted rather than stalling.
			currentFile = f
		}

		if s.grabPart(ctx, event, part, currentFile) {
			grabbed++
		}
	}
	return grabbed
}

// wantedParts returns the part names still owed for an event: its
// explicitly monitored parts (fighting sports), or a single "" entry
// meaning "the full event" otherwise.
func wantedParts(event *domain.Event) []string {
	if len(event.MonitoredParts) > 0 {
		return event.MonitoredParts
	}
	return []string{""}
}

// grabPart runs the match-evaluate-delay-grab pipeline for one event/part
// pair against the release cache. currentFile is the part's existing
// EventFile, or nil when the part has no file yet — when non-nil, only a
// release that quality.IsUpgrade reports as an upgrade over it is grabbed
// (§4.9 step 5, §8 Scenario 3).
func (s *Service) grabPart(ctx context.Context, event *domain.Event, part string, currentFile *domain.EventFile) bool {
	multiPartEnabled := len(event.MonitoredParts) > 0

	recently, err := s.events.RecentlyGrabbed(ctx, event.ID, time.Now().Add(-RecentGrabWindow))
	if err != nil {
		s.logger.Warn().Err(err).Int64("eventID", event.ID).Msg("failed to check recent grab history")
	}
	if recently {
		return false
	}

	candidates, err := s.cache.FindMatching(ctx, event, part, multiPartEnabled)
	if err != nil {
		s.logger.Warn().Err(err).Int64("eventID", event.ID).Msg("failed to query release cache")
		return false
	}
	if len(candidates) == 0 {
		return false
	}

	profile, err := s.profiles.QualityProfile(ctx, event.QualityProfileID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("eventID", event.ID).Msg("failed to load quality profile")
		return false
	}
	formats, err := s.profiles.CustomFormats(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load custom formats")
	}
	delayProfiles, err := s.profiles.DelayProfiles(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load delay profiles")
	}
	blocklist, err := s.profiles.Blocklist(ctx, event.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load blocklist")
	}

	dp := delay.SelectForEvent(delayProfiles, event)

	best, bestResult := s.selectBest(candidates, event, profile, formats, part, multiPartEnabled, dp, blocklist, currentFile)
	if best == nil {
		return false
	}

	if !s.grabLock.TryAcquire(event.ID) {
		s.logger.Debug().Int64("eventID", event.ID).Msg("skipping: grab lock held")
		return false
	}
	defer s.grabLock.Release(event.ID)

	return s.executeGrab(ctx, event, part, best, bestResult)
}

// selectBest evaluates every match candidate and returns the
// highest-scoring one that is approved, not blocklisted, not currently
// delay-gated, and — when currentFile is non-nil — a genuine quality
// upgrade over the part's existing file (§4.9 step 5).
func (s *Service) selectBest(
	candidates []*domain.ReleaseSearchResult,
	event *domain.Event,
	profile domain.QualityProfile,
	formats []domain.CustomFormat,
	part string,
	multiPartEnabled bool,
	dp domain.DelayProfile,
	blocklist []domain.BlocklistEntry,
	currentFile *domain.EventFile,
) (*domain.ReleaseSearchResult, domain.EvaluationResult) {
	var best *domain.ReleaseSearchResult
	var bestResult domain.EvaluationResult

	for _, r := range candidates {
		if decisioning.IsBlocklisted(blocklist, r.GUID, r.InfoHash) {
			continue
		}

		result := evaluator.Evaluate(evaluator.Input{
			Release:          r,
			Event:            event,
			Profile:          profile,
			CustomFormats:    formats,
			MinCFScore:       dp.MinCFScore,
			RequestedPart:    part,
			MultiPartEnabled: multiPartEnabled,
		})
		if !result.Approved {
			continue
		}

		if currentFile != nil {
			betterQuality := quality.IsUpgrade(profile, currentFile.QualityID, result.QualityID)
			sameQualityBetterFormat := result.QualityID == currentFile.QualityID && result.CustomFormatScore > currentFile.CustomFormatScore
			if !betterQuality && !sameQualityBetterFormat {
				continue
			}
		}

		isHighestQuality := result.QualityID == profile.Cutoff
		if delay.IsDelayed(dp, r, time.Now(), isHighestQuality, result.CustomFormatScore) {
			continue
		}

		result.TotalScore += delay.ScoreBonus(dp, r.Protocol)

		if best == nil || result.TotalScore > bestResult.TotalScore {
			best, bestResult = r, result
		}
	}

	return best, bestResult
}

// executeGrab dispatches the selected release, records history, and
// broadcasts the outcome.
func (s *Service) executeGrab(ctx context.Context, event *domain.Event, part string, release *domain.ReleaseSearchResult, result domain.EvaluationResult) bool {
	item, err := s.dispatcher.Dispatch(ctx, event, part, release)
	if err != nil {
		s.logger.Warn().Err(err).Str("title", release.Title).Int64("eventID", event.ID).Msg("rss-sync grab dispatch failed")
		return false
	}

	s.logger.Info().
		Str("title", release.Title).
		Int64("eventID", event.ID).
		Str("part", part).
		Int("score", result.TotalScore).
		Msg("rss-sync grabbed release")

	if s.history != nil {
		if err := s.history.RecordGrab(ctx, domain.GrabHistory{
			EventID:     event.ID,
			ReleaseGUID: release.GUID,
			Title:       release.Title,
			IndexerID:   release.IndexerID,
			Score:       result.TotalScore,
			GrabbedAt:   time.Now(),
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record grab history")
		}
	}

	s.broadcast(websocket.EventGrabCompleted, GrabbedEvent{
		EventID:          event.ID,
		Title:            release.Title,
		Part:             part,
		DownloadClientID: item.DownloadClientID,
		Score:            result.TotalScore,
	})

	return true
}

func (s *Service) fail(start time.Time, err error) error {
	s.setStatus(Status{LastRun: start, Error: err.Error()})
	s.logger.Error().Err(err).Msg("rss sync failed")
	s.broadcast(websocket.EventRssSyncFailed, FailedEvent{Error: err.Error()})
	return err
}

func (s *Service) complete(start time.Time, totalReleases, eventsChecked, grabbed int) {
	elapsed := time.Since(start).Milliseconds()
	s.setStatus(Status{
		LastRun:       start,
		TotalReleases: totalReleases,
		EventsChecked: eventsChecked,
		Grabbed:       grabbed,
		ElapsedMs:     elapsed,
	})

	s.logger.Info().
		Int("totalReleases", totalReleases).
		Int("eventsChecked", eventsChecked).
		Int("grabbed", grabbed).
		Int64("elapsedMs", elapsed).
		Msg("rss sync completed")

	s.broadcast(websocket.EventRssSyncCompleted, CompletedEvent{
		TotalReleases: totalReleases,
		EventsChecked: eventsChecked,
		Grabbed:       grabbed,
		ElapsedMs:     elapsed,
	})
}

func (s *Service) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

func (s *Service) broadcast(eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(eventType, payload)
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
