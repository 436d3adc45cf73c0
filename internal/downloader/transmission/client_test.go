package transmission

import (
	"context"
	"encoding/json"
	"errors"
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
	return types.Config{Host: u.Hostname(), Port: port}
}

func rpcServer(t *testing.T, handle func(method string, args map[string]interface{}) rpcResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := handle(req.Method, req.Arguments)
		if resp.Result == "" {
			resp.Result = "success"
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Test(t *testing.T) {
	srv := rpcServer(t, func(method string, args map[string]interface{}) rpcResponse {
		assert.Equal(t, "session-get", method)
		return rpcResponse{}
	})
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	require.NoError(t, client.Test(context.Background()))
}

func TestClient_Add_ReturnsHashFromTorrentAdded(t *testing.T) {
	srv := rpcServer(t, func(method string, args map[string]interface{}) rpcResponse {
		if method == "torrent-add" {
			return rpcResponse{Arguments: map[string]interface{}{
				"torrent-added": map[string]interface{}{"hashString": "ABCD1234"},
			}}
		}
		return rpcResponse{}
	})
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	hash, err := client.Add(context.Background(), types.AddOptions{URL: "magnet:?xt=urn:btih:ABCD1234"})
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", hash)
}

func TestClient_Add_DuplicateTorrentStillReturnsHash(t *testing.T) {
	srv := rpcServer(t, func(method string, args map[string]interface{}) rpcResponse {
		return rpcResponse{Arguments: map[string]interface{}{
			"torrent-duplicate": map[string]interface{}{"hashString": "DUPE1234"},
		}}
	})
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	hash, err := client.Add(context.Background(), types.AddOptions{URL: "magnet:?xt=urn:btih:DUPE1234"})
	require.NoError(t, err)
	assert.Equal(t, "DUPE1234", hash)
}

func TestClient_List(t *testing.T) {
	srv := rpcServer(t, func(method string, args map[string]interface{}) rpcResponse {
		assert.Equal(t, "torrent-get", method)
		return rpcResponse{Arguments: map[string]interface{}{
			"torrents": []interface{}{
				map[string]interface{}{
					"hashString": "HASH1", "name": "Fight Night", "status": float64(4),
					"percentDone": 0.5, "sizeWhenDone": float64(1000), "downloadedEver": float64(500),
				},
			},
		}}
	})
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	items, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "HASH1", items[0].ID)
	assert.Equal(t, types.StatusDownloading, items[0].Status)
	assert.Equal(t, float64(50), items[0].Progress)
}

func TestClient_Get_NotFound(t *testing.T) {
	srv := rpcServer(t, func(method string, args map[string]interface{}) rpcResponse {
		return rpcResponse{Arguments: map[string]interface{}{"torrents": []interface{}{}}}
	})
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClient_SessionRenewalOn409(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set(sessionIDHeader, "new-session-id")
			w.WriteHeader(http.StatusConflict)
			return
		}
		assert.Equal(t, "new-session-id", r.Header.Get(sessionIDHeader))
		_ = json.NewEncoder(w).Encode(rpcResponse{Result: "success"})
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	require.NoError(t, client.Test(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestClient_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(makeTestConfig(srv.URL))
	err := client.Test(context.Background())
	assert.True(t, errors.Is(err, types.ErrAuthFailed))
}

func TestMapStatus(t *testing.T) {
	cases := map[int]types.Status{
		0: types.StatusPaused, 1: types.StatusQueued, 2: types.StatusDownloading,
		3: types.StatusQueued, 4: types.StatusDownloading, 5: types.StatusSeeding,
		6: types.StatusSeeding, 99: types.StatusUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, mapStatus(code))
	}
}
