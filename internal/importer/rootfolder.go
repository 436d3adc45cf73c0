package importer

import (
	"context"
	"database/sql"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// RootFolderStore persists configured library root folders. Grounded on
// the teacher's library/rootfolder/service.go CRUD shape, trimmed of its
// per-media-type distinction (matchday has a single library kind).
type RootFolderStore struct {
	db *sql.DB
}

// NewRootFolderStore constructs a RootFolderStore.
func NewRootFolderStore(db *sql.DB) *RootFolderStore {
	return &RootFolderStore{db: db}
}

// List returns every configured root folder.
func (s *RootFolderStore) List(ctx context.Context) ([]domain.RootFolder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, accessible, free_bytes, checked_at FROM root_folders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RootFolder
	for rows.Next() {
		rf, err := scanRootFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

// Get retrieves a single root folder by id.
func (s *RootFolderStore) Get(ctx context.Context, id int64) (domain.RootFolder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, path, accessible, free_bytes, checked_at FROM root_folders WHERE id = ?`, id)
	return scanRootFolder(row)
}

// Create registers a new root folder.
func (s *RootFolderStore) Create(ctx context.Context, path string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO root_folders (path, accessible, free_bytes, checked_at) VALUES (?, 1, 0, ?)`,
		path, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateHealth records the result of an accessibility/free-space check.
func (s *RootFolderStore) UpdateHealth(ctx context.Context, id int64, accessible bool, freeBytes int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE root_folders SET accessible = ?, free_bytes = ?, checked_at = ? WHERE id = ?`,
		boolToInt(accessible), freeBytes, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRootFolder(s rowScanner) (domain.RootFolder, error) {
	var rf domain.RootFolder
	var accessible int
	var checkedAt sql.NullString
	if err := s.Scan(&rf.ID, &rf.Path, &accessible, &rf.FreeBytes, &checkedAt); err != nil {
		return domain.RootFolder{}, err
	}
	rf.Accessible = accessible != 0
	if checkedAt.Valid {
		rf.CheckedAt, _ = time.Parse(time.RFC3339, checkedAt.String)
	}
	return rf, nil
}
