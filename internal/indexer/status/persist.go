package status

import (
	"context"
	"database/sql"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// Persist writes every tracked status into the indexer_statuses table, so
// backoff/disable state survives a restart instead of resetting every
// indexer to healthy. Intended to run on a periodic scheduler tick (the
// Tracker itself only ever lives in memory between calls).
func (t *Tracker) Persist(ctx context.Context, db *sql.DB) error {
	for _, s := range t.All() {
		var disabledTill, lastSuccessAt sql.NullString
		if s.DisabledTill != nil {
			disabledTill = sql.NullString{String: s.DisabledTill.Format(time.RFC3339), Valid: true}
		}
		if s.LastSuccessAt != nil {
			lastSuccessAt = sql.NullString{String: s.LastSuccessAt.Format(time.RFC3339), Valid: true}
		}

		_, err := db.ExecContext(ctx, `
			INSERT INTO indexer_statuses (indexer_id, disabled_till, current_delay_ms, consecutive_failures, last_error, last_success_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(indexer_id) DO UPDATE SET
				disabled_till = excluded.disabled_till,
				current_delay_ms = excluded.current_delay_ms,
				consecutive_failures = excluded.consecutive_failures,
				last_error = excluded.last_error,
				last_success_at = excluded.last_success_at
		`, s.IndexerID, disabledTill, s.CurrentDelay.Milliseconds(), s.ConsecutiveFailures, s.LastError, lastSuccessAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadPersisted reads every row from the indexer_statuses table, for
// seeding a fresh Tracker via Load at startup.
func LoadPersisted(ctx context.Context, db *sql.DB) ([]domain.IndexerStatus, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT indexer_id, disabled_till, current_delay_ms, consecutive_failures, last_error, last_success_at
		FROM indexer_statuses
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IndexerStatus
	for rows.Next() {
		var s domain.IndexerStatus
		var disabledTill, lastSuccessAt sql.NullString
		var delayMs int64
		if err := rows.Scan(&s.IndexerID, &disabledTill, &delayMs, &s.ConsecutiveFailures, &s.LastError, &lastSuccessAt); err != nil {
			return nil, err
		}
		s.CurrentDelay = time.Duration(delayMs) * time.Millisecond
		if disabledTill.Valid {
			if t, err := time.Parse(time.RFC3339, disabledTill.String); err == nil {
				s.DisabledTill = &t
			}
		}
		if lastSuccessAt.Valid {
			if t, err := time.Parse(time.RFC3339, lastSuccessAt.String); err == nil {
				s.LastSuccessAt = &t
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
