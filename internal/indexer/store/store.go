// Package store persists configured indexers and builds the live
// search.IndexerEntry set the Search Orchestrator and RSS-Sync loop fan
// out across, satisfying rsssync.IndexerSource. Grounded on
// internal/downloader.ClientStore's hand-rolled *sql.DB + vendor-dispatch
// shape, adapted from download-client dispatch onto indexer-client
// dispatch (torznab/newznab instead of qbittorrent/transmission/...).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/crypto"
	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/indexer/newznab"
	"github.com/matchday/matchday/internal/indexer/search"
	"github.com/matchday/matchday/internal/indexer/torznab"
	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/matchday/matchday/internal/indexer/wireclient"
)

// ProtocolChecker reports whether an enabled download client exists for a
// given protocol, used to set IndexerEntry.ClientEnabled (§4.8 step 1:
// the search orchestrator skips an indexer whose protocol has no
// download client backing it).
type ProtocolChecker interface {
	PreferredForProtocol(ctx context.Context, protocol domain.Protocol) (domain.DownloadClient, error)
}

// Store persists indexer configuration and constructs live wire clients.
type Store struct {
	db      *sql.DB
	secrets *crypto.SecretStore
	clients ProtocolChecker
	logger  zerolog.Logger
}

// New constructs a Store over an already-migrated database connection.
func New(db *sql.DB, secrets *crypto.SecretStore, clients ProtocolChecker, logger zerolog.Logger) *Store {
	return &Store{db: db, secrets: secrets, clients: clients, logger: logger.With().Str("component", "indexerstore").Logger()}
}

// List returns every configured indexer.
func (s *Store) List(ctx context.Context) ([]domain.Indexer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, base_url, api_key, categories, priority, enabled FROM indexers ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Indexer
	for rows.Next() {
		ix, err := scanIndexer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, rows.Err()
}

// Create registers a new indexer, encrypting its API key at rest.
func (s *Store) Create(ctx context.Context, ix domain.Indexer) (int64, error) {
	apiKey := ix.APIKey
	if apiKey != "" && s.secrets != nil {
		enc, err := s.secrets.Encrypt(apiKey)
		if err != nil {
			return 0, fmt.Errorf("encrypt indexer api key: %w", err)
		}
		apiKey = enc
	}
	categories, err := json.Marshal(ix.Categories)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO indexers (name, type, base_url, api_key, categories, priority, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ix.Name, string(ix.Type), ix.BaseURL, apiKey, string(categories), ix.Priority, boolToInt(ix.Enabled))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanIndexer(row interface{ Scan(dest ...interface{}) error }) (domain.Indexer, error) {
	var ix domain.Indexer
	var typeStr, categoriesJSON string
	var enabled int
	if err := row.Scan(&ix.ID, &ix.Name, &typeStr, &ix.BaseURL, &ix.APIKey, &categoriesJSON, &ix.Priority, &enabled); err != nil {
		return domain.Indexer{}, err
	}
	ix.Type = domain.IndexerType(typeStr)
	ix.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(categoriesJSON), &ix.Categories); err != nil {
		return domain.Indexer{}, fmt.Errorf("unmarshal indexer categories: %w", err)
	}
	return ix, nil
}

// Entries builds the live IndexerEntry set for every enabled indexer,
// decrypting credentials and constructing the matching torznab/newznab
// client (§4.8 step 1). Satisfies rsssync.IndexerSource.
func (s *Store) Entries(ctx context.Context) ([]search.IndexerEntry, error) {
	indexers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var entries []search.IndexerEntry
	for _, ix := range indexers {
		if !ix.Enabled {
			continue
		}

		apiKey := ix.APIKey
		if crypto.IsEncrypted(apiKey) && s.secrets != nil {
			decrypted, err := s.secrets.Decrypt(apiKey)
			if err != nil {
				s.logger.Warn().Err(err).Int64("indexer_id", ix.ID).Msg("failed to decrypt indexer api key, skipping")
				continue
			}
			apiKey = decrypted
		}

		client, err := s.buildClient(ix, apiKey)
		if err != nil {
			s.logger.Warn().Err(err).Int64("indexer_id", ix.ID).Msg("failed to build indexer client, skipping")
			continue
		}

		entries = append(entries, search.IndexerEntry{
			Indexer:       ix,
			Client:        client,
			ClientEnabled: s.hasClientForProtocol(ctx, ix),
		})
	}
	return entries, nil
}

func (s *Store) buildClient(ix domain.Indexer, apiKey string) (types.Client, error) {
	wire, err := wireclient.New(wireclient.Config{BaseURL: ix.BaseURL, APIKey: apiKey, Logger: s.logger})
	if err != nil {
		return nil, err
	}

	switch ix.Type {
	case domain.IndexerTypeTorznab:
		return torznab.New(wire, ix.ID, ix.Name, ix.Priority, ix.Categories), nil
	case domain.IndexerTypeNewznab:
		return newznab.New(wire, ix.ID, ix.Name, ix.Priority, ix.Categories), nil
	default:
		return nil, fmt.Errorf("unsupported indexer type %q", ix.Type)
	}
}

func (s *Store) hasClientForProtocol(ctx context.Context, ix domain.Indexer) bool {
	if s.clients == nil {
		return false
	}
	protocol := domain.ProtocolTorrent
	if ix.Type == domain.IndexerTypeNewznab {
		protocol = domain.ProtocolUsenet
	}
	_, err := s.clients.PreferredForProtocol(ctx, protocol)
	return err == nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
