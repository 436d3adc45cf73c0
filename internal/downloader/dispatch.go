package downloader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/crypto"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/downloader/queue"
	"github.com/matchday/matchday/internal/downloader/types"
)

// Dispatch wires a configured download client, the queue store, and the
// vendor-adapter factory together into the rsssync.Dispatcher port: it
// resolves a client for the release's protocol, submits the release, and
// records the resulting queue row (§4.10 steps 1-4).
type Dispatch struct {
	clients *ClientStore
	queue   *queue.Store
	secrets *crypto.SecretStore
	logger  zerolog.Logger
}

// NewDispatch constructs a Dispatch. secrets may be nil if
// password/api-key fields are stored unencrypted (e.g. in tests).
func NewDispatch(clients *ClientStore, q *queue.Store, secrets *crypto.SecretStore, logger zerolog.Logger) *Dispatch {
	return &Dispatch{clients: clients, queue: q, secrets: secrets, logger: logger.With().Str("component", "downloader").Logger()}
}

// Dispatch submits a matched, approved release to a download client and
// enqueues it for monitoring (§4.10).
func (d *Dispatch) Dispatch(ctx context.Context, event *domain.Event, part string, release *domain.ReleaseSearchResult) (domain.DownloadQueueItem, error) {
	dc, err := d.clients.PreferredForProtocol(ctx, release.Protocol)
	if err != nil {
		return domain.DownloadQueueItem{}, fmt.Errorf("no enabled %s download client configured: %w", release.Protocol, err)
	}

	DecryptClient(&dc, d.secrets)

	client, err := NewClient(dc)
	if err != nil {
		return domain.DownloadQueueItem{}, err
	}

	opts := types.AddOptions{
		URL:            release.DownloadURL,
		Name:           release.Title,
		Category:       dc.Category,
		SeedRatioLimit: release.MinRatio,
		SeedTimeLimit:  release.MinSeedTime,
	}
	clientDownloadID, err := client.Add(ctx, opts)
	if err != nil {
		return domain.DownloadQueueItem{}, fmt.Errorf("dispatch to %s: %w", dc.Name, err)
	}

	item := domain.DownloadQueueItem{
		EventID: event.ID, DownloadClientID: dc.ID, ReleaseGUID: release.GUID,
		ClientDownloadID: clientDownloadID, Part: part, QualityID: release.QualityID,
		Title: release.Title, Protocol: release.Protocol, SizeBytes: release.SizeBytes,
	}
	id, err := d.queue.Insert(ctx, item)
	if err != nil {
		return domain.DownloadQueueItem{}, fmt.Errorf("record download queue entry: %w", err)
	}
	item.ID = id

	d.logger.Info().Int64("event_id", event.ID).Str("part", part).Str("client", dc.Name).
		Str("release", release.Title).Msg("dispatched release to download client")

	return item, nil
}

// DecryptClient resolves a configured download client's encrypted
// password/API key fields in place. secrets may be nil, in which case
// the fields are left as stored (e.g. in tests that seed plaintext).
func DecryptClient(dc *domain.DownloadClient, secrets *crypto.SecretStore) {
	if secrets == nil {
		return
	}
	if crypto.IsEncrypted(dc.Password) {
		dc.Password = secrets.MustDecrypt(dc.Password)
	}
	if crypto.IsEncrypted(dc.APIKey) {
		dc.APIKey = secrets.MustDecrypt(dc.APIKey)
	}
}
