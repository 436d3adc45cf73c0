// Package autosearch implements manual, synchronous on-demand search and
// grab for a single event (§4.16), independent of the periodic RSS-sync
// loop: it queries indexers live rather than matching against the release
// cache, then shares the same evaluator/delay/blocklist/dispatch pipeline.
// Grounded on the teacher's internal/autosearch/service.go SearchMovie/
// SearchEpisode shape, collapsed onto matchday's single Event type and
// its per-part grab unit.
package autosearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/decisioning"
	"github.com/matchday/matchday/internal/delay"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/evaluator"
	"github.com/matchday/matchday/internal/indexer/search"
	"github.com/matchday/matchday/internal/websocket"
)

// ErrNoResults is returned when a search finds no release that evaluation
// approves for grab.
var ErrNoResults = errors.New("no suitable releases found")

// EventLoader resolves the event a manual search targets.
type EventLoader interface {
	Get(ctx context.Context, id int64) (*domain.Event, error)
	ExistingParts(ctx context.Context, eventID int64) ([]string, error)
}

// ProfileStore resolves the policy objects governing a grab decision,
// identical to rsssync's collaborator of the same name.
type ProfileStore interface {
	QualityProfile(ctx context.Context, id int64) (domain.QualityProfile, error)
	CustomFormats(ctx context.Context) ([]domain.CustomFormat, error)
	DelayProfiles(ctx context.Context) ([]domain.DelayProfile, error)
	Blocklist(ctx context.Context, eventID int64) ([]domain.BlocklistEntry, error)
}

// IndexerSource supplies the live, enabled indexer entries to search across.
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

// Result reports the outcome of a manual search for one event.
type Result struct {
	ReleasesFound int                 `json:"releasesFound"`
	Grabbed       []GrabbedPart       `json:"grabbed"`
}

// GrabbedPart describes one part successfully grabbed by a manual search.
type GrabbedPart struct {
	Part  string `json:"part"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// Service runs manual, synchronous searches against live indexers.
type Service struct {
	events       EventLoader
	indexers     IndexerSource
	orchestrator *search.Orchestrator
	profiles     ProfileStore
	dispatcher   Dispatcher
	history      HistoryRecorder
	grabLock     *decisioning.GrabLock
	hub          *websocket.Hub
	logger       zerolog.Logger
}

// NewService constructs a Service. history and hub may be nil.
func NewService(
	events EventLoader,
	indexers IndexerSource,
	orchestrator *search.Orchestrator,
	profiles ProfileStore,
	dispatcher Dispatcher,
	history HistoryRecorder,
	grabLock *decisioning.GrabLock,
	hub *websocket.Hub,
	logger zerolog.Logger,
) *Service {
	return &Service{
		events:       events,
		indexers:     indexers,
		orchestrator: orchestrator,
		profiles:     profiles,
		dispatcher:   dispatcher,
		history:      history,
		grabLock:     grabLock,
		hub:          hub,
		logger:       logger.With().Str("component", "autosearch").Logger(),
	}
}

// SearchEvent queries every enabled indexer live for the given event and
// grabs the best approved release for each still-wanted part.
func (s *Service) SearchEvent(ctx context.Context, eventID int64) (Result, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return Result{}, fmt.Errorf("load event: %w", err)
	}

	entries, err := s.indexers.Entries(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list indexer entries: %w", err)
	}
	if len(entries) == 0 {
		return Result{}, ErrNoResults
	}

	existingParts, err := s.events.ExistingParts(ctx, event.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list existing parts: %w", err)
	}

	profile, err := s.profiles.QualityProfile(ctx, event.QualityProfileID)
	if err != nil {
		return Result{}, fmt.Errorf("load quality profile: %w", err)
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

	query := searchQuery(event)
	releases := s.orchestrator.Search(ctx, entries, query, search.EvalParams{
		Event:            event,
		Profile:          profile,
		CustomFormats:    formats,
		MinCFScore:       dp.MinCFScore,
		MultiPartEnabled: len(event.MonitoredParts) > 0,
	})

	result := Result{ReleasesFound: len(releases)}
	if len(releases) == 0 {
		return result, ErrNoResults
	}

	multiPartEnabled := len(event.MonitoredParts) > 0
	for _, part := range wantedParts(event, existingParts) {
		if s.grabPart(ctx, event, part, releases, profile, formats, dp, blocklist, multiPartEnabled, &result) {
			continue
		}
	}

	if len(result.Grabbed) == 0 {
		return result, ErrNoResults
	}
	return result, nil
}

// wantedParts mirrors rsssync.wantedParts, filtered to parts not already
// imported.
func wantedParts(event *domain.Event, existingParts []string) []string {
	if len(event.MonitoredParts) == 0 {
		return []string{""}
	}
	var wanted []string
	for _, part := range event.MonitoredParts {
		if !containsFold(existingParts, part) {
			wanted = append(wanted, part)
		}
	}
	return wanted
}

func (s *Service) grabPart(
	ctx context.Context,
	event *domain.Event,
	part string,
	releases []*domain.ReleaseSearchResult,
	profile domain.QualityProfile,
	formats []domain.CustomFormat,
	dp domain.DelayProfile,
	blocklist []domain.BlocklistEntry,
	multiPartEnabled bool,
	result *Result,
) bool {
	var best *domain.ReleaseSearchResult
	var bestResult domain.EvaluationResult

	for _, r := range releases {
		if decisioning.IsBlocklisted(blocklist, r.GUID, r.InfoHash) {
			continue
		}

		eval := evaluator.Evaluate(evaluator.Input{
			Release:          r,
			Event:            event,
			Profile:          profile,
			CustomFormats:    formats,
			MinCFScore:       dp.MinCFScore,
			RequestedPart:    part,
			MultiPartEnabled: multiPartEnabled,
		})
		if !eval.Approved {
			continue
		}

		isHighestQuality := eval.QualityID == profile.Cutoff
		if delay.IsDelayed(dp, r, time.Now(), isHighestQuality, eval.CustomFormatScore) {
			continue
		}
		eval.TotalScore += delay.ScoreBonus(dp, r.Protocol)

		if best == nil || eval.TotalScore > bestResult.TotalScore {
			best, bestResult = r, eval
		}
	}

	if best == nil {
		return false
	}

	if !s.grabLock.TryAcquire(event.ID) {
		s.logger.Debug().Int64("eventID", event.ID).Msg("skipping manual grab: grab lock held")
		return false
	}
	defer s.grabLock.Release(event.ID)

	item, err := s.dispatcher.Dispatch(ctx, event, part, best)
	if err != nil {
		s.logger.Warn().Err(err).Str("title", best.Title).Int64("eventID", event.ID).Msg("manual search grab dispatch failed")
		s.broadcastEvent(websocket.EventGrabFailed, GrabFailedPayload{EventID: event.ID, Part: part, Error: err.Error()})
		return false
	}

	s.logger.Info().Str("title", best.Title).Int64("eventID", event.ID).Str("part", part).Int("score", bestResult.TotalScore).Msg("manual search grabbed release")

	if s.history != nil {
		if err := s.history.RecordGrab(ctx, domain.GrabHistory{
			EventID:     event.ID,
			ReleaseGUID: best.GUID,
			Title:       best.Title,
			IndexerID:   best.IndexerID,
			Score:       bestResult.TotalScore,
			GrabbedAt:   time.Now(),
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record grab history")
		}
	}

	s.broadcastEvent(websocket.EventGrabCompleted, GrabbedPayload{
		EventID: event.ID, Title: best.Title, Part: part, DownloadClientID: item.DownloadClientID, Score: bestResult.TotalScore,
	})

	result.Grabbed = append(result.Grabbed, GrabbedPart{Part: part, Title: best.Title, Score: bestResult.TotalScore})
	return true
}

func (s *Service) broadcastEvent(eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(eventType, payload)
}

// GrabbedPayload is the websocket event body for a completed manual grab.
type GrabbedPayload struct {
	EventID          int64  `json:"eventId"`
	Title            string `json:"title"`
	Part             string `json:"part,omitempty"`
	DownloadClientID int64  `json:"downloadClientId"`
	Score            int    `json:"score"`
}

// GrabFailedPayload is the websocket event body for a failed manual grab attempt.
type GrabFailedPayload struct {
	EventID int64  `json:"eventId"`
	Part    string `json:"part,omitempty"`
	Error   string `json:"error"`
}

// searchQuery builds the free-text query sent to indexers from an event's
// title and participants.
func searchQuery(event *domain.Event) string {
	parts := []string{event.Title}
	if event.HomeTeam != "" && event.AwayTeam != "" {
		parts = append(parts, event.HomeTeam+" vs "+event.AwayTeam)
	}
	return strings.Join(parts, " ")
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
