package sabnzbd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchday/matchday/internal/downloader/types"
)

func makeTestConfig(serverURL string) types.Config {
	u, _ := url.Parse(serverURL)
	port, _ := strconv.Atoi(u.Port())
	return types.Config{Host: u.Hostname(), Port: port, APIKey: "secret"}
}

func TestClient_Test(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "version", r.URL.Query().Get("mode"))
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		_ = json.NewEncoder(w).Encode(map[string]string{"version": "4.0.0"})
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	require.NoError(t, client.Test(context.Background()))
}

func TestClient_Test_BadAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "error": "API Key Incorrect"})
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	err := client.Test(context.Background())
	assert.ErrorIs(t, err, types.ErrAuthFailed)
}

func TestClient_Add(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "addurl", r.URL.Query().Get("mode"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": true, "nzo_ids": []string{"SABnzbd_nzo_1"}})
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	id, err := client.Add(context.Background(), types.AddOptions{URL: "http://indexer/release.nzb", Category: "sports"})
	require.NoError(t, err)
	assert.Equal(t, "SABnzbd_nzo_1", id)
}

func TestClient_List_MergesQueueAndHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("mode") {
		case "queue":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"queue": map[string]interface{}{"slots": []map[string]interface{}{
					{"nzo_id": "nzo1", "filename": "Event1", "status": "Downloading", "percentage": "40", "mb": "1000", "mbleft": "600"},
				}},
			})
		case "history":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"history": map[string]interface{}{"slots": []map[string]interface{}{
					{"nzo_id": "nzo2", "name": "Event2", "status": "Completed", "bytes": 500000, "storage": "/downloads/Event2"},
				}},
			})
		}
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	items, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "nzo1", items[0].ID)
	assert.Equal(t, types.StatusDownloading, items[0].Status)
	assert.Equal(t, "nzo2", items[1].ID)
	assert.Equal(t, types.StatusCompleted, items[1].Status)
}

func TestClient_Get_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("mode") {
		case "queue":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"queue": map[string]interface{}{"slots": []map[string]interface{}{}}})
		case "history":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"history": map[string]interface{}{"slots": []map[string]interface{}{}}})
		}
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
