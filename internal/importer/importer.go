// Package importer implements the File Importer (§4.12): given a
// completed download queue item, it resolves the local download path,
// picks the largest video file, chooses a root folder with enough free
// space, builds a destination path from naming tokens, transfers the
// file (hardlink/copy/move), and records the result. Grounded on the
// teacher's internal/library/organizer package (MoveFile/CopyFile,
// hardlink-then-copy-fallback in fileops.go) generalized from movie/
// episode naming onto event/part naming.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/domain"
)

// ErrNoVideoFile is returned when a download path contains no importable
// video file.
var ErrNoVideoFile = fmt.Errorf("no video file found in download")

// ErrNoRootFolder is returned when no configured root folder has enough
// free space to accept an import.
var ErrNoRootFolder = fmt.Errorf("no accessible root folder with sufficient free space")

// QueueStore is the slice of the download queue the importer updates on
// success (mirrors downloader/queue.Store; kept as an interface so the
// importer doesn't import the downloader package just for this).
type QueueStore interface {
	Remove(ctx context.Context, id int64) error
}

// HistoryRecorder records a completed import, satisfied by
// internal/history.Store.
type HistoryRecorder interface {
	RecordImport(ctx context.Context, h domain.ImportHistory) error
}

// Config controls import behavior, mirroring config.ImportConfig.
type Config struct {
	LinkMode             LinkMode
	MinimumFreeSpaceMB   int64
	SkipFreeSpaceCheck   bool
	DeleteEmptySourceDir bool
}

// Service orchestrates the import pipeline.
type Service struct {
	events      *EventStore
	rootFolders *RootFolderStore
	history     HistoryRecorder
	queue       QueueStore
	naming      NamingConfig
	cfg         Config
	freeBytes   func(path string) (int64, error)
	logger      zerolog.Logger
}

// NewService constructs an importer Service. When freeBytes is nil, each
// root folder's stored free-space value is used instead; tests may pass a
// stub to avoid relying on the host's actual disks.
func NewService(events *EventStore, rootFolders *RootFolderStore, history HistoryRecorder, queue QueueStore, naming NamingConfig, cfg Config, freeBytes func(string) (int64, error), logger zerolog.Logger) *Service {
	return &Service{
		events: events, rootFolders: rootFolders, history: history, queue: queue,
		naming: naming, cfg: cfg, freeBytes: freeBytes,
		logger: logger.With().Str("component", "importer").Logger(),
	}
}

// Import runs the full §4.12 pipeline for one completed download queue
// item. item.DownloadPath must be the vendor-reported save path; it is
// remapped through remote-path-mapping before use.
func (s *Service) Import(ctx context.Context, item domain.DownloadQueueItem) error {
	localPath, err := remotePathMapping(ctx, s.events.db, item.DownloadClientID, item.DownloadPath)
	if err != nil {
		s.logger.Warn().Err(err).Int64("queue_id", item.ID).Msg("remote path mapping lookup failed, using reported path as-is")
		localPath = item.DownloadPath
	}

	sourcePath, size, err := largestVideoFile(localPath)
	if err != nil {
		return fmt.Errorf("locate video file: %w", err)
	}

	event, err := s.events.Get(ctx, item.EventID)
	if err != nil {
		return fmt.Errorf("load event %d: %w", item.EventID, err)
	}

	root, err := s.chooseRootFolder(ctx, size)
	if err != nil {
		return err
	}

	leagueName, err := s.events.LeagueName(ctx, event.LeagueID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("league_id", event.LeagueID).Msg("failed to resolve league name")
	}

	tokens := EventTokens{
		EventTitle: event.Title, League: leagueName, Year: event.EventDate.Year(),
		Season: event.Season, Round: event.Round, HomeTeam: event.HomeTeam, AwayTeam: event.AwayTeam,
		Part: item.Part, QualityFull: qualityLabel(item.QualityID),
	}

	destDir := filepath.Join(root.Path, s.naming.FormatFolder(tokens))
	filename := s.naming.FormatFile(tokens)
	ext := filepath.Ext(sourcePath)
	destPath := uniqueDestPath(filepath.Join(destDir, filename+ext))

	mode, err := transfer(sourcePath, destPath, s.cfg.LinkMode)
	if err != nil {
		return fmt.Errorf("transfer file: %w", err)
	}

	if s.cfg.DeleteEmptySourceDir {
		cleanEmptyParent(filepath.Dir(sourcePath))
	}

	eventFile := domain.EventFile{
		EventID: event.ID, Part: item.Part, Path: destPath, SizeBytes: size,
		QualityID: item.QualityID, ImportedAt: time.Now().UTC(),
	}
	if _, err := s.events.InsertEventFile(ctx, eventFile); err != nil {
		return fmt.Errorf("record imported file: %w", err)
	}

	if s.history != nil {
		if err := s.history.RecordImport(ctx, domain.ImportHistory{
			EventID: event.ID, SourcePath: sourcePath, DestPath: destPath,
			LinkMode: string(mode), QualityID: item.QualityID, ImportedAt: time.Now().UTC(),
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record import history")
		}
	}

	if s.queue != nil {
		if err := s.queue.Remove(ctx, item.ID); err != nil {
			s.logger.Warn().Err(err).Int64("queue_id", item.ID).Msg("failed to remove completed queue item")
		}
	}

	s.logger.Info().Int64("event_id", event.ID).Str("part", item.Part).Str("dest", destPath).
		Str("mode", string(mode)).Msg("imported event file")
	return nil
}

// chooseRootFolder picks the accessible root folder with the most free
// space that can fit requiredSize plus the configured minimum headroom
// (§4.12 step 4).
func (s *Service) chooseRootFolder(ctx context.Context, requiredSize int64) (domain.RootFolder, error) {
	folders, err := s.rootFolders.List(ctx)
	if err != nil {
		return domain.RootFolder{}, fmt.Errorf("list root folders: %w", err)
	}

	needed := requiredSize + s.cfg.MinimumFreeSpaceMB*1024*1024
	var candidates []domain.RootFolder
	for _, rf := range folders {
		if !rf.Accessible {
			continue
		}
		free := rf.FreeBytes
		if s.freeBytes != nil {
			if actual, err := s.freeBytes(rf.Path); err == nil {
				free = actual
			}
		}
		if s.cfg.SkipFreeSpaceCheck || free >= needed {
			rf.FreeBytes = free
			candidates = append(candidates, rf)
		}
	}
	if len(candidates) == 0 {
		return domain.RootFolder{}, ErrNoRootFolder
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].FreeBytes > candidates[j].FreeBytes })
	return candidates[0], nil
}

func qualityLabel(qualityID int) string {
	if qualityID == 0 {
		return ""
	}
	return fmt.Sprintf("Q%d", qualityID)
}
