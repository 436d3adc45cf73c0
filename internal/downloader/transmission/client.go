// Package transmission implements a client for Transmission's JSON-RPC
// API, grounded directly on the teacher's real transmission/client.go
// (the teacher's own qbittorrent/sabnzbd clients are stubs, but its
// transmission client is a complete, working implementation).
package transmission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matchday/matchday/internal/downloader/types"
)

const sessionIDHeader = "X-Transmission-Session-Id"

var _ types.Client = (*Client)(nil)

// Client is a Transmission RPC client.
type Client struct {
	cfg        types.Config
	httpClient *http.Client
	sessionID  string
}

// New constructs a Transmission client for the given connection config.
func New(cfg types.Config) *Client {
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// Test verifies connectivity by requesting session info.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.call(ctx, "session-get", nil)
	return err
}

// Add submits a magnet link, torrent URL, or nzb URL to Transmission
// (§4.10 step 3). Transmission only speaks torrents; its client is never
// selected for usenet releases since domain.ProtocolForClient reserves it
// for torrent clients.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	args := map[string]interface{}{"filename": opts.URL}
	if opts.DownloadDir != "" {
		args["download-dir"] = opts.DownloadDir
	}
	if opts.Paused {
		args["paused"] = true
	}

	resp, err := c.call(ctx, "torrent-add", args)
	if err != nil {
		return "", err
	}

	id, err := c.extractTorrentID(resp)
	if err != nil {
		return "", err
	}

	if opts.SeedRatioLimit > 0 || opts.SeedTimeLimit > 0 {
		_ = c.setSeedLimits(ctx, id, opts.SeedRatioLimit, opts.SeedTimeLimit)
	}
	return id, nil
}

func (c *Client) setSeedLimits(ctx context.Context, id string, ratio float64, seedTime time.Duration) error {
	args := map[string]interface{}{"ids": []string{id}}
	if ratio > 0 {
		args["seedRatioLimit"] = ratio
		args["seedRatioMode"] = 1
	}
	if seedTime > 0 {
		args["seedIdleLimit"] = int(seedTime.Minutes())
		args["seedIdleMode"] = 1
	}
	_, err := c.call(ctx, "torrent-set", args)
	return err
}

// List returns every torrent Transmission is currently tracking.
func (c *Client) List(ctx context.Context) ([]types.DownloadItem, error) {
	args := map[string]interface{}{
		"fields": []string{
			"id", "name", "status", "percentDone", "totalSize",
			"downloadDir", "hashString", "rateDownload", "rateUpload",
			"downloadedEver", "sizeWhenDone", "error", "errorString",
		},
	}
	resp, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return nil, err
	}

	torrentsRaw, _ := resp.Arguments["torrents"].([]interface{})
	out := make([]types.DownloadItem, 0, len(torrentsRaw))
	for _, raw := range torrentsRaw {
		torrent, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, mapToDownloadItem(torrent))
	}
	return out, nil
}

// Get retrieves a single torrent by info hash.
func (c *Client) Get(ctx context.Context, id string) (*types.DownloadItem, error) {
	args := map[string]interface{}{
		"ids": []string{id},
		"fields": []string{
			"id", "name", "status", "percentDone", "totalSize",
			"downloadDir", "hashString", "rateDownload", "rateUpload",
			"downloadedEver", "sizeWhenDone", "error", "errorString",
		},
	}
	resp, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return nil, err
	}

	torrentsRaw, ok := resp.Arguments["torrents"].([]interface{})
	if !ok || len(torrentsRaw) == 0 {
		return nil, types.ErrNotFound
	}
	torrent, ok := torrentsRaw[0].(map[string]interface{})
	if !ok {
		return nil, types.ErrNotFound
	}
	item := mapToDownloadItem(torrent)
	return &item, nil
}

// Remove deletes a torrent, optionally along with its downloaded files.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	args := map[string]interface{}{"ids": []string{id}, "delete-local-data": deleteFiles}
	_, err := c.call(ctx, "torrent-remove", args)
	return err
}

// Pause stops a torrent.
func (c *Client) Pause(ctx context.Context, id string) error {
	_, err := c.call(ctx, "torrent-stop", map[string]interface{}{"ids": []string{id}})
	return err
}

// Resume starts a stopped torrent.
func (c *Client) Resume(ctx context.Context, id string) error {
	_, err := c.call(ctx, "torrent-start", map[string]interface{}{"ids": []string{id}})
	return err
}

type rpcRequest struct {
	Method    string                 `json:"method"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type rpcResponse struct {
	Result    string                 `json:"result"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, args map[string]interface{}) (*rpcResponse, error) {
	req, err := c.buildRPCRequest(ctx, method, args)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transmission: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		c.sessionID = resp.Header.Get(sessionIDHeader)
		if c.sessionID == "" {
			return nil, fmt.Errorf("transmission: received 409 but no session id in response")
		}
		return c.call(ctx, method, args)
	}

	return parseRPCResponse(resp)
}

func (c *Client) buildRPCRequest(ctx context.Context, method string, args map[string]interface{}) (*http.Request, error) {
	scheme := "http"
	if c.cfg.UseSSL {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d/transmission/rpc", scheme, c.cfg.Host, c.cfg.Port)

	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("transmission: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(sessionIDHeader, c.sessionID)
	}
	if c.cfg.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.Username + ":" + c.cfg.Password))
		req.Header.Set("Authorization", "Basic "+auth)
	}
	return req, nil
}

func parseRPCResponse(resp *http.Response) (*rpcResponse, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, types.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transmission: unexpected status code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transmission: failed to read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("transmission: failed to unmarshal response: %w", err)
	}
	if rpcResp.Result != "success" {
		return nil, fmt.Errorf("transmission: rpc error: %s", rpcResp.Result)
	}
	return &rpcResp, nil
}

func mapToDownloadItem(torrent map[string]interface{}) types.DownloadItem {
	status := mapStatus(getInt(torrent, "status"))
	item := types.DownloadItem{
		ID:             getString(torrent, "hashString"),
		Name:           getString(torrent, "name"),
		Status:         status,
		Progress:       getFloat(torrent, "percentDone") * 100,
		SizeBytes:      int64(getFloat(torrent, "sizeWhenDone")),
		DownloadedSize: int64(getFloat(torrent, "downloadedEver")),
		DownloadDir:    getString(torrent, "downloadDir"),
	}
	if errNum := getInt(torrent, "error"); errNum > 0 {
		item.ErrorMessage = getString(torrent, "errorString")
		item.Status = types.StatusError
	}
	return item
}

func (c *Client) extractTorrentID(resp *rpcResponse) (string, error) {
	if added, ok := resp.Arguments["torrent-added"].(map[string]interface{}); ok {
		if hash, ok := added["hashString"].(string); ok {
			return hash, nil
		}
	}
	if dupe, ok := resp.Arguments["torrent-duplicate"].(map[string]interface{}); ok {
		if hash, ok := dupe["hashString"].(string); ok {
			return hash, nil
		}
	}
	return "", fmt.Errorf("transmission: could not extract torrent id from response")
}

func mapStatus(status int) types.Status {
	switch status {
	case 0:
		return types.StatusPaused
	case 1, 3:
		return types.StatusQueued
	case 2, 4:
		return types.StatusDownloading
	case 5, 6:
		return types.StatusSeeding
	default:
		return types.StatusUnknown
	}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
