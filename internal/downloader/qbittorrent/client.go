// Package qbittorrent implements a client for qBittorrent's WebUI API v2,
// grounded on the teacher's utorrent/client.go cookie-jar + form-POST
// session idiom, adapted onto qBittorrent's JSON-over-REST surface.
package qbittorrent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matchday/matchday/internal/downloader/types"
)

var _ types.Client = (*Client)(nil)

// Client is a qBittorrent WebUI API v2 client.
type Client struct {
	cfg        types.Config
	httpClient *http.Client
	baseURL    string
}

// New constructs a qBittorrent client for the given connection config.
func New(cfg types.Config) *Client {
	jar, _ := cookiejar.New(nil)
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		baseURL:    fmt.Sprintf("%s://%s:%d/api/v2", scheme, cfg.Host, cfg.Port),
	}
}

// Test verifies connectivity by logging in.
func (c *Client) Test(ctx context.Context) error {
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{"username": {c.cfg.Username}, "password": {c.cfg.Password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qbittorrent: login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "Ok." {
		return types.ErrAuthFailed
	}
	return nil
}

// Add submits a torrent URL or magnet link to qBittorrent (§4.10 step 3).
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	if err := c.login(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("urls", opts.URL)
	if opts.Category != "" {
		_ = mw.WriteField("category", opts.Category)
	}
	if opts.DownloadDir != "" {
		_ = mw.WriteField("savepath", opts.DownloadDir)
	}
	if opts.Paused {
		_ = mw.WriteField("paused", "true")
	}
	if opts.SeedRatioLimit > 0 {
		_ = mw.WriteField("ratioLimit", strconv.FormatFloat(opts.SeedRatioLimit, 'f', 2, 64))
	}
	if opts.SeedTimeLimit > 0 {
		_ = mw.WriteField("seedingTimeLimit", strconv.FormatInt(int64(opts.SeedTimeLimit.Minutes()), 10))
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/torrents/add", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qbittorrent: add request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("qbittorrent: add failed with status %d: %s", resp.StatusCode, body)
	}

	// qBittorrent's add endpoint doesn't echo the new hash. For a magnet
	// link the hash is read from the link itself; for a direct .torrent URL
	// the returned id is "" and no List lookup is made to find the torrent.
	return magnetHash(opts.URL), nil
}

// List returns every torrent qBittorrent is currently tracking.
func (c *Client) List(ctx context.Context) ([]types.DownloadItem, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/torrents/info", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw []struct {
		Hash     string  `json:"hash"`
		Name     string  `json:"name"`
		State    string  `json:"state"`
		Progress float64 `json:"progress"`
		Size     int64   `json:"size"`
		Downloaded int64 `json:"downloaded"`
		SavePath string  `json:"save_path"`
	}
	if err := decodeJSON(resp.Body, &raw); err != nil {
		return nil, err
	}

	out := make([]types.DownloadItem, 0, len(raw))
	for _, t := range raw {
		out = append(out, types.DownloadItem{
			ID: t.Hash, Name: t.Name, Status: mapState(t.State),
			Progress: t.Progress * 100, SizeBytes: t.Size,
			DownloadedSize: t.Downloaded, DownloadDir: t.SavePath,
		})
	}
	return out, nil
}

// Get retrieves a single torrent by info hash.
func (c *Client) Get(ctx context.Context, id string) (*types.DownloadItem, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, types.ErrNotFound
}

// Remove deletes a torrent, optionally along with its downloaded files.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	form := url.Values{"hashes": {id}, "deleteFiles": {strconv.FormatBool(deleteFiles)}}
	return c.post(ctx, "/torrents/delete", form)
}

// Pause stops a torrent.
func (c *Client) Pause(ctx context.Context, id string) error {
	return c.post(ctx, "/torrents/stop", url.Values{"hashes": {id}})
}

// Resume starts a paused torrent.
func (c *Client) Resume(ctx context.Context, id string) error {
	return c.post(ctx, "/torrents/start", url.Values{"hashes": {id}})
}

func (c *Client) post(ctx context.Context, path string, form url.Values) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qbittorrent: request to %s failed with status %d", path, resp.StatusCode)
	}
	return nil
}

func decodeJSON(r io.Reader, v interface{}) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func mapState(state string) types.Status {
	switch state {
	case "downloading", "metaDL", "allocating", "stalledDL":
		return types.StatusDownloading
	case "pausedDL", "pausedUP":
		return types.StatusPaused
	case "uploading", "stalledUP", "queuedUP":
		return types.StatusSeeding
	case "queuedDL", "checkingDL":
		return types.StatusQueued
	case "error", "missingFiles":
		return types.StatusError
	case "pausedUP_seed", "completed":
		return types.StatusCompleted
	default:
		return types.StatusUnknown
	}
}

// magnetHash extracts the BTIH info hash from a magnet link, or returns
// "" for direct .torrent URLs, which carry no hash in the URL.
func magnetHash(magnet string) string {
	const prefix = "urn:btih:"
	idx := strings.Index(magnet, prefix)
	if idx == -1 {
		return ""
	}
	rest := magnet[idx+len(prefix):]
	if amp := strings.IndexByte(rest, '&'); amp != -1 {
		rest = rest[:amp]
	}
	return strings.ToLower(rest)
}
