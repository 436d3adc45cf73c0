package downloader

import (
	"context"
	"database/sql"

	"github.com/matchday/matchday/internal/domain"
)

// ClientStore persists configured download-client connections, grounded
// on internal/releasecache's hand-rolled *sql.DB idiom.
type ClientStore struct {
	db *sql.DB
}

// NewClientStore constructs a ClientStore over an already-migrated
// database connection.
func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

// List returns every configured download client.
func (s *ClientStore) List(ctx context.Context) ([]domain.DownloadClient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, protocol, host, port, username, password, api_key, use_ssl, category, priority, enabled
		FROM download_clients ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClients(rows)
}

// PreferredForProtocol returns the highest-priority enabled client that
// speaks the given protocol, used by the dispatcher to pick a client for
// a grabbed release (§4.10 step 1).
func (s *ClientStore) PreferredForProtocol(ctx context.Context, protocol domain.Protocol) (domain.DownloadClient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, protocol, host, port, username, password, api_key, use_ssl, category, priority, enabled
		FROM download_clients WHERE protocol = ? AND enabled = 1
		ORDER BY priority DESC, id ASC LIMIT 1
	`, string(protocol))

	var dc domain.DownloadClient
	var clientType, protoStr string
	var enabled int
	err := row.Scan(&dc.ID, &dc.Name, &clientType, &protoStr, &dc.Host, &dc.Port, &dc.Username, &dc.Password, &dc.APIKey, &dc.UseSSL, &dc.Category, &dc.Priority, &enabled)
	if err != nil {
		return domain.DownloadClient{}, err
	}
	dc.Type = domain.DownloadClientType(clientType)
	dc.Protocol = domain.Protocol(protoStr)
	dc.Enabled = enabled != 0
	return dc, nil
}

// Get retrieves a single configured download client by id.
func (s *ClientStore) Get(ctx context.Context, id int64) (domain.DownloadClient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, protocol, host, port, username, password, api_key, use_ssl, category, priority, enabled
		FROM download_clients WHERE id = ?
	`, id)

	var dc domain.DownloadClient
	var clientType, protoStr string
	var enabled int
	err := row.Scan(&dc.ID, &dc.Name, &clientType, &protoStr, &dc.Host, &dc.Port, &dc.Username, &dc.Password, &dc.APIKey, &dc.UseSSL, &dc.Category, &dc.Priority, &enabled)
	if err != nil {
		return domain.DownloadClient{}, err
	}
	dc.Type = domain.DownloadClientType(clientType)
	dc.Protocol = domain.Protocol(protoStr)
	dc.Enabled = enabled != 0
	return dc, nil
}

func scanClients(rows *sql.Rows) ([]domain.DownloadClient, error) {
	var out []domain.DownloadClient
	for rows.Next() {
		var dc domain.DownloadClient
		var clientType, protoStr string
		var enabled int
		if err := rows.Scan(&dc.ID, &dc.Name, &clientType, &protoStr, &dc.Host, &dc.Port, &dc.Username, &dc.Password, &dc.APIKey, &dc.UseSSL, &dc.Category, &dc.Priority, &enabled); err != nil {
			return nil, err
		}
		dc.Type = domain.DownloadClientType(clientType)
		dc.Protocol = domain.Protocol(protoStr)
		dc.Enabled = enabled != 0
		out = append(out, dc)
	}
	return out, rows.Err()
}
