// Package releasecache implements the Release Cache (§4.6): a persistent,
// guid-keyed store of indexer search results with TTL expiry and
// alias-expanded search terms. The retrieval pack's sqlc-generated query
// layer (internal/database/sqlc) was not present in the corpus handed to
// this project, so this package talks to *sql.DB directly instead of
// through generated queries — the connection/migration machinery
// (internal/database) is still the teacher's.
package releasecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/match"
	"github.com/matchday/matchday/internal/match/normalize"
	"github.com/matchday/matchday/internal/parser"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long an ingested release stays live before
// SweepExpired removes it (§4.6: "expires-at = now + 7d").
const DefaultTTL = 7 * 24 * time.Hour

// FindMatchingLimit bounds how many candidate rows FindMatching loads
// before applying the match engine in memory (§4.6: "limit 1000").
const FindMatchingLimit = 1000

// Store is the Release Cache's persistence layer.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New constructs a Store over an already-migrated database connection.
func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "releasecache").Logger()}
}

// Ingest de-duplicates a batch of search results by guid: existing rows
// have their seeders/leechers/expiry refreshed, new rows are parsed and
// inserted with search-terms computed (§4.6 Ingest contract).
func (s *Store) Ingest(ctx context.Context, releases []*domain.ReleaseSearchResult, fromRSS bool) error {
	now := time.Now().UTC()
	for _, r := range releases {
		if err := s.ingestOne(ctx, r, fromRSS, now); err != nil {
			return fmt.Errorf("ingest guid %q: %w", r.GUID, err)
		}
	}
	return nil
}

func (s *Store) ingestOne(ctx context.Context, r *domain.ReleaseSearchResult, fromRSS bool, now time.Time) error {
	existing, err := s.findByGUID(ctx, r.GUID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		return s.refresh(ctx, existing.GUID, r.Seeders, r.Leechers, now.Add(DefaultTTL))
	}

	parsed := parser.Parse(r.Title)
	normalizedTitle := normalize.Fold(r.Title)
	terms := searchTerms(r.Title, parsed)

	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO release_cache (
			guid, indexer_id, indexer_name, indexer_priority, title, normalized_title,
			search_terms, download_url, info_hash, protocol, size_bytes, seeders, leechers,
			min_seed_time_sec, min_ratio, freeleech, publish_date, sport_prefix, year,
			parsed_json, from_rss, cached_at, expires_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(guid) DO UPDATE SET
			seeders = excluded.seeders,
			leechers = excluded.leechers,
			expires_at = excluded.expires_at
	`,
		r.GUID, r.IndexerID, r.IndexerName, r.IndexerPriority, r.Title, normalizedTitle,
		string(termsJSON), r.DownloadURL, r.InfoHash, string(r.Protocol), r.SizeBytes, r.Seeders, r.Leechers,
		int64(r.MinSeedTime.Seconds()), r.MinRatio, boolToInt(r.Freeleech), r.PublishDate.UTC().Format(time.RFC3339),
		parsed.SportPrefix, parsed.Year, string(parsedJSON), boolToInt(fromRSS),
		now.Format(time.RFC3339), now.Add(DefaultTTL).Format(time.RFC3339),
	)
	return err
}

func (s *Store) refresh(ctx context.Context, guid string, seeders, leechers int, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE release_cache SET seeders = ?, leechers = ?, expires_at = ?
		WHERE guid = ?
	`, seeders, leechers, expiresAt.Format(time.RFC3339), guid)
	return err
}

func (s *Store) findByGUID(ctx context.Context, guid string) (*domain.CachedRelease, error) {
	row := s.db.QueryRowContext(ctx, `SELECT guid FROM release_cache WHERE guid = ?`, guid)
	var g string
	if err := row.Scan(&g); err != nil {
		return nil, err
	}
	return &domain.CachedRelease{ReleaseSearchResult: domain.ReleaseSearchResult{GUID: g}}, nil
}

// FindMatching loads candidates pre-filtered by {year, sport-prefix,
// not-expired}, applies the match engine against event in memory, and
// returns only matches sorted by confidence descending (§4.6).
func (s *Store) FindMatching(ctx context.Context, event *domain.Event, requestedPart string, multiPartEnabled bool) ([]*domain.ReleaseSearchResult, error) {
	year := event.EventDate.Year()
	prefixes := sportPrefixesFor(event.Sport)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(prefixes)), ",")
	args := make([]interface{}, 0, len(prefixes)+3)
	args = append(args, year)
	for _, p := range prefixes {
		args = append(args, p)
	}
	args = append(args, time.Now().UTC().Format(time.RFC3339), FindMatchingLimit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT guid, indexer_id, indexer_name, indexer_priority, title, download_url, info_hash,
		       protocol, size_bytes, seeders, leechers, min_seed_time_sec, min_ratio, freeleech,
		       publish_date, parsed_json
		FROM release_cache
		WHERE year = ? AND sport_prefix IN (%s) AND expires_at > ?
		ORDER BY publish_date DESC
		LIMIT ?
	`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates, err := scanReleases(rows)
	if err != nil {
		return nil, err
	}

	type scored struct {
		release *domain.ReleaseSearchResult
		result  domain.MatchResult
	}
	var matched []scored
	for _, c := range candidates {
		result := match.Evaluate(c, event, requestedPart, multiPartEnabled)
		if result.IsMatch {
			matched = append(matched, scored{c, result})
		}
	}
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].result.Confidence > matched[i].result.Confidence {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	out := make([]*domain.ReleaseSearchResult, len(matched))
	for i, m := range matched {
		out[i] = m.release
	}
	return out, nil
}

// FindByQuery matches a broad, free-text query against normalized_title
// and search_terms: every query term must occur somewhere in the row's
// term set (§4.6).
func (s *Store) FindByQuery(ctx context.Context, query string, max int) ([]*domain.ReleaseSearchResult, error) {
	queryTerms := strings.Fields(normalize.Fold(query))
	if len(queryTerms) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT guid, indexer_id, indexer_name, indexer_priority, title, download_url, info_hash,
		       protocol, size_bytes, seeders, leechers, min_seed_time_sec, min_ratio, freeleech,
		       publish_date, parsed_json, normalized_title, search_terms
		FROM release_cache
		WHERE expires_at > ?
		ORDER BY publish_date DESC
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ReleaseSearchResult
	for rows.Next() {
		release, normalizedTitle, termsJSON, err := scanReleaseWithTerms(rows)
		if err != nil {
			return nil, err
		}
		var terms []string
		_ = json.Unmarshal([]byte(termsJSON), &terms)

		haystack := normalizedTitle + " " + strings.Join(terms, " ")
		if allTermsPresent(queryTerms, haystack) {
			out = append(out, release)
			if max > 0 && len(out) >= max {
				break
			}
		}
	}
	return out, rows.Err()
}

// SweepExpired bulk-deletes every row past its expiry.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM release_cache WHERE expires_at < ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func allTermsPresent(terms []string, haystack string) bool {
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// searchTerms computes the alias-expanded token set stored alongside a
// cached release, used by FindByQuery's broad matching.
func searchTerms(title string, parsed *domain.ParsedTitle) []string {
	base := strings.Fields(normalize.Fold(title))
	set := map[string]bool{}
	for _, t := range base {
		for _, variant := range normalize.Expand(t) {
			set[variant] = true
		}
	}
	if parsed.SportPrefix != "" {
		set[normalize.Fold(parsed.SportPrefix)] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

// sportPrefixesFor returns every sport_prefix value a cached release for
// sport can carry. Most sports parse to exactly one prefix token; football
// has no prefix of its own and instead parses to whichever league token
// (EPL, UCL, LaLiga, MLS, ...) appears in the release title, so its
// candidates are matched against the whole set.
func sportPrefixesFor(sport domain.Sport) []string {
	switch sport {
	case domain.SportUFC:
		return []string{"UFC"}
	case domain.SportF1:
		return []string{"Formula1"}
	case domain.SportMotoGP:
		return []string{"MotoGP"}
	case domain.SportFootball:
		return parser.FootballPrefixes
	default:
		return []string{""}
	}
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

func scanReleases(rows *sql.Rows) ([]*domain.ReleaseSearchResult, error) {
	var out []*domain.ReleaseSearchResult
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRelease(sc rowScanner) (*domain.ReleaseSearchResult, error) {
	var (
		r                    domain.ReleaseSearchResult
		protocol             string
		publishDate          string
		minSeedTimeSec       int64
		freeleech            int
		parsedJSON           string
	)
	if err := sc.Scan(
		&r.GUID, &r.IndexerID, &r.IndexerName, &r.IndexerPriority, &r.Title, &r.DownloadURL, &r.InfoHash,
		&protocol, &r.SizeBytes, &r.Seeders, &r.Leechers, &minSeedTimeSec, &r.MinRatio, &freeleech,
		&publishDate, &parsedJSON,
	); err != nil {
		return nil, err
	}
	r.Protocol = domain.Protocol(protocol)
	r.MinSeedTime = time.Duration(minSeedTimeSec) * time.Second
	r.Freeleech = freeleech != 0
	if t, err := time.Parse(time.RFC3339, publishDate); err == nil {
		r.PublishDate = t
	}
	var parsed domain.ParsedTitle
	if err := json.Unmarshal([]byte(parsedJSON), &parsed); err == nil {
		r.Parsed = &parsed
	}
	return &r, nil
}

func scanReleaseWithTerms(rows *sql.Rows) (*domain.ReleaseSearchResult, string, string, error) {
	var (
		r                    domain.ReleaseSearchResult
		protocol             string
		publishDate          string
		minSeedTimeSec       int64
		freeleech            int
		parsedJSON           string
		normalizedTitle      string
		termsJSON            string
	)
	if err := rows.Scan(
		&r.GUID, &r.IndexerID, &r.IndexerName, &r.IndexerPriority, &r.Title, &r.DownloadURL, &r.InfoHash,
		&protocol, &r.SizeBytes, &r.Seeders, &r.Leechers, &minSeedTimeSec, &r.MinRatio, &freeleech,
		&publishDate, &parsedJSON, &normalizedTitle, &termsJSON,
	); err != nil {
		return nil, "", "", err
	}
	r.Protocol = domain.Protocol(protocol)
	r.MinSeedTime = time.Duration(minSeedTimeSec) * time.Second
	r.Freeleech = freeleech != 0
	if t, err := time.Parse(time.RFC3339, publishDate); err == nil {
		r.PublishDate = t
	}
	var parsed domain.ParsedTitle
	if err := json.Unmarshal([]byte(parsedJSON), &parsed); err == nil {
		r.Parsed = &parsed
	}
	return &r, normalizedTitle, termsJSON, nil
}
