// Package events persists monitored sporting events, satisfying
// rsssync.EventStore (the sync loop's view: which events are monitored,
// which parts they already have, whether they were grabbed recently) and
// exposing the read/write surface the REST layer needs. Grounded on the
// teacher's hand-rolled *sql.DB idiom used throughout this port
// (internal/releasecache, internal/history) — no sqlc query layer in the
// retrieval pack.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// Store is the event persistence layer.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an already-migrated database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	id, league_id, title, sport, event_date, season, round, episode_number,
	home_team, away_team, quality_profile_id, root_folder_id, monitored, has_file,
	monitored_parts, monitored_sessions, tags, created_at, updated_at
`

func scanEvent(row interface{ Scan(dest ...interface{}) error }) (*domain.Event, error) {
	var e domain.Event
	var sport, eventDate string
	var leagueID, rootFolderID sql.NullInt64
	var monitored, hasFile int
	var monitoredPartsJSON, tagsJSON string
	var monitoredSessionsJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&e.ID, &leagueID, &e.Title, &sport, &eventDate, &e.Season, &e.Round, &e.EpisodeNumber,
		&e.HomeTeam, &e.AwayTeam, &e.QualityProfileID, &rootFolderID, &monitored, &hasFile,
		&monitoredPartsJSON, &monitoredSessionsJSON, &tagsJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.LeagueID = leagueID.Int64
	e.RootFolderID = rootFolderID.Int64
	e.Sport = domain.Sport(sport)
	e.EventDate, _ = time.Parse(time.RFC3339, eventDate)
	e.Monitored = monitored != 0
	e.HasFile = hasFile != 0
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if err := json.Unmarshal([]byte(monitoredPartsJSON), &e.MonitoredParts); err != nil {
		return nil, fmt.Errorf("unmarshal monitored_parts: %w", err)
	}
	if monitoredSessionsJSON.Valid {
		if err := json.Unmarshal([]byte(monitoredSessionsJSON.String), &e.MonitoredSessions); err != nil {
			return nil, fmt.Errorf("unmarshal monitored_sessions: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &e, nil
}

// Get loads one event by id.
func (s *Store) Get(ctx context.Context, id int64) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// List returns every event, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM events ORDER BY event_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListMonitored returns every monitored event, the candidate set the
// RSS-sync loop considers each tick (§4.9).
func (s *Store) ListMonitored(ctx context.Context) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM events WHERE monitored = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExistingParts returns the part names already imported for an event
// (§4.9's "still wanted" filter for fighting-sport multi-part events).
func (s *Store) ExistingParts(ctx context.Context, eventID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT part FROM event_files WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var part string
		if err := rows.Scan(&part); err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, rows.Err()
}

// ExistingFile returns the imported file for eventID/part, or nil if no such
// file has been imported yet — the RSS-sync loop's source of the "current"
// quality an upgrade candidate must outrank (§4.9 step 5, §8 Scenario 3).
func (s *Store) ExistingFile(ctx context.Context, eventID int64, part string) (*domain.EventFile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, part, path, size_bytes, quality_id, custom_format_score, imported_at
		FROM event_files WHERE event_id = ? AND part = ?
	`, eventID, part)

	var f domain.EventFile
	var importedAt string
	err := row.Scan(&f.ID, &f.EventID, &f.Part, &f.Path, &f.SizeBytes, &f.QualityID, &f.CustomFormatScore, &importedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	return &f, nil
}

// RecentlyGrabbed reports whether this event has a grab_history row newer
// than since, smoothing over duplicate grabs across ticks (§4.9).
func (s *Store) RecentlyGrabbed(ctx context.Context, eventID int64, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM grab_history WHERE event_id = ? AND grabbed_at >= ?
	`, eventID, since.UTC().Format(time.RFC3339)).Scan(&count)
	return count > 0, err
}

// CreateInput carries the fields needed to register a new event.
type CreateInput struct {
	LeagueID          int64
	Title             string
	Sport             domain.Sport
	EventDate         time.Time
	Season            int
	Round             string
	EpisodeNumber     int
	HomeTeam          string
	AwayTeam          string
	QualityProfileID  int64
	RootFolderID      int64
	Monitored         bool
	MonitoredParts    []string
	MonitoredSessions []string
	Tags              []string
}

// Create registers a new event.
func (s *Store) Create(ctx context.Context, in CreateInput) (int64, error) {
	monitoredParts, err := json.Marshal(in.MonitoredParts)
	if err != nil {
		return 0, err
	}
	tags, err := json.Marshal(in.Tags)
	if err != nil {
		return 0, err
	}
	var monitoredSessions interface{}
	if in.MonitoredSessions != nil {
		data, err := json.Marshal(in.MonitoredSessions)
		if err != nil {
			return 0, err
		}
		monitoredSessions = string(data)
	}

	var leagueID interface{}
	if in.LeagueID != 0 {
		leagueID = in.LeagueID
	}
	var rootFolderID interface{}
	if in.RootFolderID != 0 {
		rootFolderID = in.RootFolderID
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (league_id, title, sport, event_date, season, round, episode_number,
			home_team, away_team, quality_profile_id, root_folder_id, monitored,
			monitored_parts, monitored_sessions, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, leagueID, in.Title, string(in.Sport), in.EventDate.UTC().Format(time.RFC3339), in.Season, in.Round, in.EpisodeNumber,
		in.HomeTeam, in.AwayTeam, in.QualityProfileID, rootFolderID, boolToInt(in.Monitored),
		string(monitoredParts), monitoredSessions, string(tags), now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetMonitored updates an event's monitored flag.
func (s *Store) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE events SET monitored = ?, updated_at = ? WHERE id = ?`,
		boolToInt(monitored), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
