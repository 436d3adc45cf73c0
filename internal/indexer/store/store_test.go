package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/crypto"
	"github.com/matchday/matchday/internal/database"
	"github.com/matchday/matchday/internal/domain"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "matchday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func newTestSecrets(t *testing.T) *crypto.SecretStore {
	t.Helper()
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	return crypto.NewSecretStore("test-pin", salt)
}

type stubProtocolChecker struct{ ok bool }

func (s stubProtocolChecker) PreferredForProtocol(context.Context, domain.Protocol) (domain.DownloadClient, error) {
	if s.ok {
		return domain.DownloadClient{ID: 1}, nil
	}
	return domain.DownloadClient{}, context.DeadlineExceeded
}

func TestEntries_BuildsClientsAndDecryptsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss><channel></channel></rss>`))
	}))
	defer srv.Close()

	db := newTestDB(t)
	secrets := newTestSecrets(t)
	s := New(db.Conn(), secrets, stubProtocolChecker{ok: true}, zerolog.Nop())

	encrypted, err := secrets.Encrypt("supersecret")
	require.NoError(t, err)
	_, err = db.Conn().Exec(`
		INSERT INTO indexers (name, type, base_url, api_key, categories, priority, enabled)
		VALUES ('torz', 'torznab', ?, ?, '[5000]', 25, 1)
	`, srv.URL, encrypted)
	require.NoError(t, err)

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "torz", entries[0].Indexer.Name)
	require.True(t, entries[0].ClientEnabled)
	require.NotNil(t, entries[0].Client)
}

func TestEntries_SkipsDisabledIndexers(t *testing.T) {
	db := newTestDB(t)
	s := New(db.Conn(), newTestSecrets(t), stubProtocolChecker{}, zerolog.Nop())

	_, err := db.Conn().Exec(`
		INSERT INTO indexers (name, type, base_url, categories, priority, enabled)
		VALUES ('disabled', 'torznab', 'http://example.invalid', '[]', 25, 0)
	`)
	require.NoError(t, err)

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCreate_EncryptsAPIKeyAtRest(t *testing.T) {
	db := newTestDB(t)
	secrets := newTestSecrets(t)
	s := New(db.Conn(), secrets, stubProtocolChecker{}, zerolog.Nop())

	id, err := s.Create(context.Background(), domain.Indexer{
		Name: "nzb", Type: domain.IndexerTypeNewznab, BaseURL: "http://nzb.example", APIKey: "plain-key", Priority: 25, Enabled: true,
	})
	require.NoError(t, err)

	var stored string
	require.NoError(t, db.Conn().QueryRow(`SELECT api_key FROM indexers WHERE id = ?`, id).Scan(&stored))
	require.True(t, crypto.IsEncrypted(stored))
	require.NotEqual(t, "plain-key", stored)
}
