// Package queue persists the download queue (§4.10/§4.11): one row per
// grabbed release, tracked from dispatch through import. Grounded on
// internal/releasecache's hand-rolled *sql.DB idiom, adopted for the
// same reason (no sqlc query layer in the retrieval pack).
package queue

import (
	"context"
	"database/sql"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// Store is the download queue's persistence layer.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an already-migrated database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert records a newly dispatched download.
func (s *Store) Insert(ctx context.Context, item domain.DownloadQueueItem) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO download_queue
			(event_id, download_client_id, release_guid, client_download_id, part, quality_id, title, protocol, status, progress, size_bytes, download_path, error_message, attempts, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, '', '', 0, ?, ?)
	`, item.EventID, item.DownloadClientID, item.ReleaseGUID, item.ClientDownloadID, item.Part, item.QualityID, item.Title, string(item.Protocol), string(domain.DownloadStatusQueued), item.SizeBytes, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns every queue item, most recently added first.
func (s *Store) List(ctx context.Context) ([]domain.DownloadQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, download_client_id, release_guid, client_download_id, part, quality_id, title, protocol, status, progress, size_bytes, download_path, error_message, attempts, added_at, updated_at
		FROM download_queue ORDER BY added_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// Active returns queue items that are still queued or downloading,
// for the Download Monitor (§4.11) to poll.
func (s *Store) Active(ctx context.Context) ([]domain.DownloadQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, download_client_id, release_guid, client_download_id, part, quality_id, title, protocol, status, progress, size_bytes, download_path, error_message, attempts, added_at, updated_at
		FROM download_queue WHERE status IN (?, ?) ORDER BY added_at ASC
	`, string(domain.DownloadStatusQueued), string(domain.DownloadStatusDownloading))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// Get retrieves one queue item by id.
func (s *Store) Get(ctx context.Context, id int64) (domain.DownloadQueueItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, download_client_id, release_guid, client_download_id, part, quality_id, title, protocol, status, progress, size_bytes, download_path, error_message, attempts, added_at, updated_at
		FROM download_queue WHERE id = ?
	`, id)
	return scanOne(row)
}

// UpdateProgress updates a queue item's status, progress, and path as
// the Download Monitor observes it (§4.11).
func (s *Store) UpdateProgress(ctx context.Context, id int64, status domain.DownloadStatus, progress float64, downloadPath string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE download_queue SET status = ?, progress = ?, download_path = ?, updated_at = ?
		WHERE id = ?
	`, string(status), progress, downloadPath, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// SetClientDownloadID records the vendor-reported id for a queue item
// once the dispatch's Add call returns it.
func (s *Store) SetClientDownloadID(ctx context.Context, id int64, clientDownloadID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE download_queue SET client_download_id = ?, updated_at = ?
		WHERE id = ?
	`, clientDownloadID, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// MarkFailed records a download failure and increments the retry count.
func (s *Store) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE download_queue SET status = ?, error_message = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ?
	`, string(domain.DownloadStatusFailed), errMsg, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// Remove deletes a queue item, e.g. after a successful import.
func (s *Store) Remove(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM download_queue WHERE id = ?`, id)
	return err
}

func scanAll(rows *sql.Rows) ([]domain.DownloadQueueItem, error) {
	var items []domain.DownloadQueueItem
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOne(row *sql.Row) (domain.DownloadQueueItem, error) {
	return scanInto(row)
}

func scanRow(rows *sql.Rows) (domain.DownloadQueueItem, error) {
	return scanInto(rows)
}

func scanInto(s scanner) (domain.DownloadQueueItem, error) {
	var item domain.DownloadQueueItem
	var protocol, status, addedAt, updatedAt string
	err := s.Scan(
		&item.ID, &item.EventID, &item.DownloadClientID, &item.ReleaseGUID, &item.ClientDownloadID, &item.Part, &item.QualityID, &item.Title,
		&protocol, &status, &item.Progress, &item.SizeBytes, &item.DownloadPath,
		&item.ErrorMessage, &item.Attempts, &addedAt, &updatedAt,
	)
	if err != nil {
		return domain.DownloadQueueItem{}, err
	}
	item.Protocol = domain.Protocol(protocol)
	item.Status = domain.DownloadStatus(status)
	item.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return item, nil
}
