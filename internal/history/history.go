// Package history persists grab and import history (§4.9/§4.12/§4.16),
// grounded on internal/releasecache's hand-rolled *sql.DB idiom (no sqlc
// query layer in the retrieval pack).
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// Store is the grab/import history persistence layer. It satisfies
// rsssync.HistoryRecorder via RecordGrab.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an already-migrated database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordGrab logs a successful grab decision.
func (s *Store) RecordGrab(ctx context.Context, h domain.GrabHistory) error {
	grabbedAt := h.GrabbedAt
	if grabbedAt.IsZero() {
		grabbedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grab_history (event_id, release_guid, title, indexer_id, score, grabbed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.EventID, h.ReleaseGUID, h.Title, h.IndexerID, h.Score, grabbedAt.Format(time.RFC3339))
	return err
}

// RecordImport logs a completed file import (§4.12 step 8).
func (s *Store) RecordImport(ctx context.Context, h domain.ImportHistory) error {
	importedAt := h.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_history (event_id, source_path, dest_path, link_mode, quality_id, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.EventID, h.SourcePath, h.DestPath, h.LinkMode, h.QualityID, importedAt.Format(time.RFC3339))
	return err
}

// ListGrabs returns the most recent grabs for an event.
func (s *Store) ListGrabs(ctx context.Context, eventID int64) ([]domain.GrabHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, release_guid, title, indexer_id, score, grabbed_at
		FROM grab_history WHERE event_id = ? ORDER BY grabbed_at DESC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GrabHistory
	for rows.Next() {
		var h domain.GrabHistory
		var grabbedAt string
		if err := rows.Scan(&h.ID, &h.EventID, &h.ReleaseGUID, &h.Title, &h.IndexerID, &h.Score, &grabbedAt); err != nil {
			return nil, err
		}
		h.GrabbedAt, _ = time.Parse(time.RFC3339, grabbedAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListImports returns the most recent imports for an event.
func (s *Store) ListImports(ctx context.Context, eventID int64) ([]domain.ImportHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, source_path, dest_path, link_mode, quality_id, imported_at
		FROM import_history WHERE event_id = ? ORDER BY imported_at DESC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ImportHistory
	for rows.Next() {
		var h domain.ImportHistory
		var importedAt string
		if err := rows.Scan(&h.ID, &h.EventID, &h.SourcePath, &h.DestPath, &h.LinkMode, &h.QualityID, &importedAt); err != nil {
			return nil, err
		}
		h.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
		out = append(out, h)
	}
	return out, rows.Err()
}
