package importer

import (
	"context"
	"database/sql"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// EventStore is the slice of event persistence the importer needs: read
// an event (with its league name for naming tokens), and record a
// completed import (new EventFile row, Event.has_file flip). Scoped
// narrowly to import concerns rather than full event CRUD, grounded on
// the teacher's hand-rolled *sql.DB idiom used throughout this port (no
// sqlc layer in the retrieval pack).
type EventStore struct {
	db *sql.DB
}

// NewEventStore constructs an EventStore.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// Get loads one event by id.
func (s *EventStore) Get(ctx context.Context, id int64) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, league_id, title, sport, event_date, season, round, episode_number,
		       home_team, away_team, quality_profile_id, root_folder_id, monitored, has_file
		FROM events WHERE id = ?
	`, id)

	var e domain.Event
	var sport, eventDate string
	var leagueID, rootFolderID sql.NullInt64
	var monitored, hasFile int
	err := row.Scan(&e.ID, &leagueID, &e.Title, &sport, &eventDate, &e.Season, &e.Round, &e.EpisodeNumber,
		&e.HomeTeam, &e.AwayTeam, &e.QualityProfileID, &rootFolderID, &monitored, &hasFile)
	if err != nil {
		return domain.Event{}, err
	}
	e.Sport = domain.Sport(sport)
	e.EventDate, _ = time.Parse(time.RFC3339, eventDate)
	e.LeagueID = leagueID.Int64
	e.RootFolderID = rootFolderID.Int64
	e.Monitored = monitored != 0
	e.HasFile = hasFile != 0
	return e, nil
}

// LeagueName returns a league's display name, or "" if the event has none.
func (s *EventStore) LeagueName(ctx context.Context, leagueID int64) (string, error) {
	if leagueID == 0 {
		return "", nil
	}
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM leagues WHERE id = ?`, leagueID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return name, err
}

// InsertEventFile records a newly imported file and flips the owning
// event's has_file flag (§4.12 step 8).
func (s *EventStore) InsertEventFile(ctx context.Context, ef domain.EventFile) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO event_files (event_id, part, path, size_bytes, quality_id, custom_format_score, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ef.EventID, ef.Part, ef.Path, ef.SizeBytes, ef.QualityID, ef.CustomFormatScore, ef.ImportedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE events SET has_file = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), ef.EventID); err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

// remotePathMapping translates a download client's reported save path to
// the path matchday sees locally (§4.12 step 1), picking the
// longest-matching remote prefix configured for that client.
func remotePathMapping(ctx context.Context, db *sql.DB, downloadClientID int64, remotePath string) (string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT remote_prefix, local_prefix FROM remote_path_mappings WHERE download_client_id = ?
	`, downloadClientID)
	if err != nil {
		return remotePath, err
	}
	defer rows.Close()

	bestPrefixLen := -1
	localPath := remotePath
	for rows.Next() {
		var remotePrefix, localPrefix string
		if err := rows.Scan(&remotePrefix, &localPrefix); err != nil {
			return remotePath, err
		}
		if len(remotePrefix) > bestPrefixLen && hasPathPrefix(remotePath, remotePrefix) {
			bestPrefixLen = len(remotePrefix)
			localPath = localPrefix + remotePath[len(remotePrefix):]
		}
	}
	return localPath, rows.Err()
}

func hasPathPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}
