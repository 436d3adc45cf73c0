// Package profiles persists the policy objects a grab decision consults:
// quality profiles, the custom-format catalogue, delay profiles, and the
// per-event blocklist. Grounded on the teacher's hand-rolled *sql.DB idiom
// (internal/releasecache, internal/history) rather than its sqlc-generated
// query layer, which isn't in this retrieval pack. Satisfies
// rsssync.ProfileStore.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/quality"
)

// Store is the persistence layer for quality profiles, custom formats,
// delay profiles, and blocklist entries.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an already-migrated database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type qualityItemRow struct {
	QualityID int  `json:"qualityId"`
	Allowed   bool `json:"allowed"`
	Position  int  `json:"position"`
}

type formatItemRow struct {
	CustomFormatID int64 `json:"customFormatId"`
	Score          int   `json:"score"`
}

// QualityProfile loads one quality profile by id (§4.2).
func (s *Store) QualityProfile(ctx context.Context, id int64) (domain.QualityProfile, error) {
	var profile domain.QualityProfile
	var itemsJSON, formatItemsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cutoff, items, format_items, minimum_quality, upgrade_allowed,
		       preferred_size_gb, size_limit_min_gb, size_limit_max_gb
		FROM quality_profiles WHERE id = ?
	`, id).Scan(
		&profile.ID, &profile.Name, &profile.Cutoff, &itemsJSON, &formatItemsJSON, &profile.MinimumQuality,
		&profile.UpgradeAllowed, &profile.PreferredSizeGB, &profile.SizeLimitMinGB, &profile.SizeLimitMaxGB,
	)
	if err != nil {
		return domain.QualityProfile{}, err
	}

	var rows []qualityItemRow
	if err := json.Unmarshal([]byte(itemsJSON), &rows); err != nil {
		return domain.QualityProfile{}, fmt.Errorf("unmarshal quality profile items: %w", err)
	}
	profile.Items = make([]domain.QualityItem, len(rows))
	for i, r := range rows {
		profile.Items[i] = domain.QualityItem{Quality: quality.GetQualityByID(r.QualityID), Allowed: r.Allowed, Position: r.Position}
	}

	var formatRows []formatItemRow
	if err := json.Unmarshal([]byte(formatItemsJSON), &formatRows); err != nil {
		return domain.QualityProfile{}, fmt.Errorf("unmarshal quality profile format items: %w", err)
	}
	profile.FormatItems = make([]domain.FormatItem, len(formatRows))
	for i, r := range formatRows {
		profile.FormatItems[i] = domain.FormatItem{CustomFormatID: r.CustomFormatID, Score: r.Score}
	}

	return profile, nil
}

// CreateQualityProfile inserts a new quality profile.
func (s *Store) CreateQualityProfile(ctx context.Context, p domain.QualityProfile) (int64, error) {
	itemsJSON, err := marshalQualityItems(p.Items)
	if err != nil {
		return 0, err
	}
	formatItemsJSON, err := marshalFormatItems(p.FormatItems)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quality_profiles (
			name, cutoff, items, format_items, minimum_quality, upgrade_allowed,
			preferred_size_gb, size_limit_min_gb, size_limit_max_gb, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Cutoff, itemsJSON, formatItemsJSON, p.MinimumQuality, boolToInt(p.UpgradeAllowed),
		p.PreferredSizeGB, p.SizeLimitMinGB, p.SizeLimitMaxGB, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListQualityProfiles returns every configured quality profile.
func (s *Store) ListQualityProfiles(ctx context.Context) ([]domain.QualityProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM quality_profiles`)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.QualityProfile, 0, len(ids))
	for _, id := range ids {
		p, err := s.QualityProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func marshalQualityItems(items []domain.QualityItem) (string, error) {
	rows := make([]qualityItemRow, len(items))
	for i, it := range items {
		rows[i] = qualityItemRow{QualityID: it.Quality.ID, Allowed: it.Allowed, Position: it.Position}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalFormatItems(items []domain.FormatItem) (string, error) {
	rows := make([]formatItemRow, len(items))
	for i, it := range items {
		rows[i] = formatItemRow{CustomFormatID: it.CustomFormatID, Score: it.Score}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CustomFormats returns the full custom-format catalogue (§4.14).
func (s *Store) CustomFormats(ctx context.Context) ([]domain.CustomFormat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, score, specifications FROM custom_formats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CustomFormat
	for rows.Next() {
		var cf domain.CustomFormat
		var specsJSON string
		if err := rows.Scan(&cf.ID, &cf.Name, &cf.Score, &specsJSON); err != nil {
			return nil, err
		}
		specs, err := quality.UnmarshalSpecifications([]byte(specsJSON))
		if err != nil {
			return nil, fmt.Errorf("custom format %d: %w", cf.ID, err)
		}
		cf.Specifications = specs
		out = append(out, cf)
	}
	return out, rows.Err()
}

// CreateCustomFormat inserts a new custom format definition.
func (s *Store) CreateCustomFormat(ctx context.Context, cf domain.CustomFormat) (int64, error) {
	specsJSON, err := quality.MarshalSpecifications(cf.Specifications)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_formats (name, score, specifications, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`, cf.Name, cf.Score, string(specsJSON), now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DelayProfiles returns every delay profile, ordered for highest-priority-first
// selection (§4.5, §9 design note).
func (s *Store) DelayProfiles(ctx context.Context) ([]domain.DelayProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, preferred_protocol, torrent_delay_mins, usenet_delay_mins,
		       bypass_if_highest_quality, bypass_if_above_cf_score, min_cf_score, tags, "order"
		FROM delay_profiles ORDER BY "order" ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DelayProfile
	for rows.Next() {
		var dp domain.DelayProfile
		var protocol, tagsJSON string
		var torrentMins, usenetMins int
		var bypassHighest, bypassScore int
		if err := rows.Scan(&dp.ID, &dp.Name, &protocol, &torrentMins, &usenetMins,
			&bypassHighest, &bypassScore, &dp.MinCFScore, &tagsJSON, &dp.Order); err != nil {
			return nil, err
		}
		dp.PreferredProtocol = domain.Protocol(protocol)
		dp.TorrentDelay = time.Duration(torrentMins) * time.Minute
		dp.UsenetDelay = time.Duration(usenetMins) * time.Minute
		dp.BypassIfHighestQuality = bypassHighest != 0
		dp.BypassIfAboveCFScore = bypassScore != 0
		if err := json.Unmarshal([]byte(tagsJSON), &dp.Tags); err != nil {
			return nil, fmt.Errorf("delay profile %d: unmarshal tags: %w", dp.ID, err)
		}
		out = append(out, dp)
	}
	return out, rows.Err()
}

// CreateDelayProfile inserts a new delay profile.
func (s *Store) CreateDelayProfile(ctx context.Context, dp domain.DelayProfile) (int64, error) {
	tagsJSON, err := json.Marshal(dp.Tags)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO delay_profiles (name, preferred_protocol, torrent_delay_mins, usenet_delay_mins,
			bypass_if_highest_quality, bypass_if_above_cf_score, min_cf_score, tags, "order")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, dp.Name, string(dp.PreferredProtocol), int(dp.TorrentDelay.Minutes()), int(dp.UsenetDelay.Minutes()),
		boolToInt(dp.BypassIfHighestQuality), boolToInt(dp.BypassIfAboveCFScore), dp.MinCFScore, string(tagsJSON), dp.Order)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Blocklist returns the blocklist entries scoped to one event.
func (s *Store) Blocklist(ctx context.Context, eventID int64) ([]domain.BlocklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, release_guid, info_hash, event_id, reason, blocked_at
		FROM blocklist WHERE event_id = ?
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BlocklistEntry
	for rows.Next() {
		var b domain.BlocklistEntry
		var blockedAt string
		if err := rows.Scan(&b.ID, &b.ReleaseGUID, &b.InfoHash, &b.EventID, &b.Reason, &blockedAt); err != nil {
			return nil, err
		}
		b.BlockedAt, _ = time.Parse(time.RFC3339, blockedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddToBlocklist records a release so it is never grabbed again for this event.
func (s *Store) AddToBlocklist(ctx context.Context, b domain.BlocklistEntry) error {
	blockedAt := b.BlockedAt
	if blockedAt.IsZero() {
		blockedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocklist (release_guid, info_hash, event_id, reason, blocked_at) VALUES (?, ?, ?, ?, ?)
	`, b.ReleaseGUID, b.InfoHash, b.EventID, b.Reason, blockedAt.Format(time.RFC3339))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
