// Package monitor implements the Download Monitor (§4.11): it polls
// every enabled download client for the queue items it is tracking,
// advances their progress, detects completion/failure/stall, and hands
// completed downloads off to the importer. Grounded on the teacher's
// internal/downloader/completion.go concurrent-per-client polling shape
// (CheckForCompletedDownloads/CheckForDisappearedDownloads), adapted from
// its movie/episode/mapping-table model onto matchday's single
// download_queue table.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/crypto"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/downloader"
	"github.com/matchday/matchday/internal/downloader/queue"
	"github.com/matchday/matchday/internal/downloader/types"
	"github.com/matchday/matchday/internal/websocket"
)

// PerClientTimeout bounds how long a single client's List call may take
// before the poll moves on.
const PerClientTimeout = 10 * time.Second

// StallThreshold is how long a download may sit at unchanged progress
// before the monitor flags it as stalled (§4.11 edge case).
const StallThreshold = 2 * time.Hour

// Importer hands a completed download off to the File Importer (§4.12).
type Importer interface {
	Import(ctx context.Context, item domain.DownloadQueueItem) error
}

// Service polls configured download clients for the state of every
// active queue item.
type Service struct {
	clients  *downloader.ClientStore
	queue    *queue.Store
	importer Importer
	secrets  *crypto.SecretStore
	hub      *websocket.Hub
	logger   zerolog.Logger

	mu         sync.Mutex
	lastSeenAt map[int64]time.Time
	lastProg   map[int64]float64
}

// NewService constructs a monitor Service. secrets may be nil when
// credentials are stored unencrypted; hub may be nil to disable
// broadcasts.
func NewService(clients *downloader.ClientStore, q *queue.Store, importer Importer, secrets *crypto.SecretStore, hub *websocket.Hub, logger zerolog.Logger) *Service {
	return &Service{
		clients: clients, queue: q, importer: importer, secrets: secrets, hub: hub,
		logger:     logger.With().Str("component", "monitor").Logger(),
		lastSeenAt: make(map[int64]time.Time),
		lastProg:   make(map[int64]float64),
	}
}

// Poll checks every active queue item against its download client:
// downloads are progress-updated, completed downloads are imported, and
// downloads that have vanished from their client are marked failed.
func (s *Service) Poll(ctx context.Context) error {
	active, err := s.queue.Active(ctx)
	if err != nil {
		return fmt.Errorf("list active downloads: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	byClient := make(map[int64][]domain.DownloadQueueItem)
	for _, item := range active {
		byClient[item.DownloadClientID] = append(byClient[item.DownloadClientID], item)
	}

	var wg sync.WaitGroup
	for clientID, items := range byClient {
		wg.Add(1)
		go func(clientID int64, items []domain.DownloadQueueItem) {
			defer wg.Done()
			clientCtx, cancel := context.WithTimeout(ctx, PerClientTimeout)
			defer cancel()
			s.pollClient(clientCtx, clientID, items)
		}(clientID, items)
	}
	wg.Wait()
	return nil
}

func (s *Service) pollClient(ctx context.Context, clientID int64, items []domain.DownloadQueueItem) {
	dc, err := s.clients.Get(ctx, clientID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("client_id", clientID).Msg("failed to load download client")
		return
	}
	downloader.DecryptClient(&dc, s.secrets)

	client, err := downloader.NewClient(dc)
	if err != nil {
		s.logger.Warn().Err(err).Int64("client_id", clientID).Msg("failed to construct client adapter")
		return
	}

	downloads, err := client.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Int64("client_id", clientID).Str("client", dc.Name).Msg("failed to list downloads")
		return
	}

	byID := make(map[string]types.DownloadItem, len(downloads))
	for _, d := range downloads {
		byID[d.ID] = d
	}

	for _, item := range items {
		s.reconcile(ctx, item, byID)
	}
}

func (s *Service) reconcile(ctx context.Context, item domain.DownloadQueueItem, byID map[string]types.DownloadItem) {
	d, found := byID[item.ClientDownloadID]
	if !found {
		s.logger.Warn().Int64("queue_id", item.ID).Str("client_download_id", item.ClientDownloadID).
			Msg("download disappeared from client, marking failed")
		_ = s.queue.MarkFailed(ctx, item.ID, "download removed from client")
		s.broadcast(item.ID, domain.DownloadStatusFailed)
		return
	}

	if isComplete(d) {
		s.completeDownload(ctx, item, d)
		return
	}

	if s.isStalled(item.ID, d.Progress) {
		s.logger.Warn().Int64("queue_id", item.ID).Msg("download stalled, marking failed")
		_ = s.queue.MarkFailed(ctx, item.ID, "download stalled: no progress for "+StallThreshold.String())
		s.broadcast(item.ID, domain.DownloadStatusFailed)
		return
	}

	_ = s.queue.UpdateProgress(ctx, item.ID, domain.DownloadStatusDownloading, d.Progress, d.DownloadDir)
	s.broadcast(item.ID, domain.DownloadStatusDownloading)
}

func (s *Service) completeDownload(ctx context.Context, item domain.DownloadQueueItem, d types.DownloadItem) {
	if err := s.queue.UpdateProgress(ctx, item.ID, domain.DownloadStatusImporting, 100, d.DownloadDir); err != nil {
		s.logger.Warn().Err(err).Int64("queue_id", item.ID).Msg("failed to mark download importing")
		return
	}
	s.broadcast(item.ID, domain.DownloadStatusImporting)

	item.DownloadPath = d.DownloadDir
	item.Progress = 100
	if s.importer == nil {
		return
	}
	if err := s.importer.Import(ctx, item); err != nil {
		s.logger.Warn().Err(err).Int64("queue_id", item.ID).Msg("import failed")
		_ = s.queue.MarkFailed(ctx, item.ID, err.Error())
		s.broadcast(item.ID, domain.DownloadStatusFailed)
	}
}

func isComplete(d types.DownloadItem) bool {
	if d.Status == types.StatusCompleted || d.Status == types.StatusSeeding {
		return true
	}
	return d.Status == types.StatusPaused && d.Progress >= 100
}

func (s *Service) isStalled(queueID int64, progress float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, hasProg := s.lastProg[queueID]
	now := time.Now()
	if !hasProg || progress > last {
		s.lastProg[queueID] = progress
		s.lastSeenAt[queueID] = now
		return false
	}
	seenAt, ok := s.lastSeenAt[queueID]
	if !ok {
		s.lastSeenAt[queueID] = now
		return false
	}
	return now.Sub(seenAt) > StallThreshold
}

func (s *Service) broadcast(queueID int64, status domain.DownloadStatus) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(websocket.EventQueueUpdated, map[string]interface{}{"queueId": queueID, "status": status})
}
