// Package sabnzbd implements a client for SABnzbd's JSON API. The
// teacher's own sabnzbd client is a documented stub ("full functionality
// will be added later"); matchday names SABnzbd directly in its
// download-client vendor list (domain.ClientSABnzbd) so this adapter is
// made real, kept compact since SABnzbd's API is a single query-param
// endpoint rather than a session protocol.
package sabnzbd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matchday/matchday/internal/downloader/types"
)

var _ types.Client = (*Client)(nil)

// Client is a SABnzbd JSON API client.
type Client struct {
	cfg        types.Config
	httpClient *http.Client
	baseURL    string
}

// New constructs a SABnzbd client for the given connection config.
func New(cfg types.Config) *Client {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("%s://%s:%d/api", scheme, cfg.Host, cfg.Port),
	}
}

// Test verifies connectivity and the API key via the version call.
func (c *Client) Test(ctx context.Context) error {
	var out struct {
		Version string `json:"version"`
	}
	return c.call(ctx, url.Values{"mode": {"version"}}, &out)
}

// Add submits an NZB URL to SABnzbd (§4.10 step 3).
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	form := url.Values{
		"mode": {"addurl"},
		"name": {opts.URL},
	}
	if opts.Category != "" {
		form.Set("cat", opts.Category)
	}
	if opts.Paused {
		form.Set("priority", "-2")
	}

	var out struct {
		Status bool     `json:"status"`
		NzoIDs []string `json:"nzo_ids"`
	}
	if err := c.call(ctx, form, &out); err != nil {
		return "", err
	}
	if !out.Status || len(out.NzoIDs) == 0 {
		return "", fmt.Errorf("sabnzbd: add did not return an nzo id")
	}
	return out.NzoIDs[0], nil
}

// List returns every queued and historical download SABnzbd is tracking.
func (c *Client) List(ctx context.Context) ([]types.DownloadItem, error) {
	queued, err := c.queue(ctx)
	if err != nil {
		return nil, err
	}
	history, err := c.history(ctx)
	if err != nil {
		return nil, err
	}
	return append(queued, history...), nil
}

// Get retrieves a single download by nzo id.
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

// Remove deletes a download from the queue or history.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	form := url.Values{"mode": {"queue"}, "name": {"delete"}, "value": {id}}
	if deleteFiles {
		form.Set("del_files", "1")
	}
	var out struct {
		Status bool `json:"status"`
	}
	return c.call(ctx, form, &out)
}

// Pause pauses a single queued download.
func (c *Client) Pause(ctx context.Context, id string) error {
	var out struct {
		Status bool `json:"status"`
	}
	return c.call(ctx, url.Values{"mode": {"queue"}, "name": {"pause"}, "value": {id}}, &out)
}

// Resume resumes a single paused download.
func (c *Client) Resume(ctx context.Context, id string) error {
	var out struct {
		Status bool `json:"status"`
	}
	return c.call(ctx, url.Values{"mode": {"queue"}, "name": {"resume"}, "value": {id}}, &out)
}

func (c *Client) queue(ctx context.Context) ([]types.DownloadItem, error) {
	var out struct {
		Queue struct {
			Slots []struct {
				NzoID     string `json:"nzo_id"`
				Filename  string `json:"filename"`
				Status    string `json:"status"`
				Percentage string `json:"percentage"`
				MB        string `json:"mb"`
				MBLeft    string `json:"mbleft"`
			} `json:"slots"`
		} `json:"queue"`
	}
	if err := c.call(ctx, url.Values{"mode": {"queue"}}, &out); err != nil {
		return nil, err
	}

	items := make([]types.DownloadItem, 0, len(out.Queue.Slots))
	for _, s := range out.Queue.Slots {
		totalMB, _ := strconv.ParseFloat(s.MB, 64)
		leftMB, _ := strconv.ParseFloat(s.MBLeft, 64)
		progress, _ := strconv.ParseFloat(s.Percentage, 64)
		items = append(items, types.DownloadItem{
			ID: s.NzoID, Name: s.Filename, Status: mapQueueStatus(s.Status),
			Progress: progress, SizeBytes: int64(totalMB * 1024 * 1024),
			DownloadedSize: int64((totalMB - leftMB) * 1024 * 1024),
		})
	}
	return items, nil
}

func (c *Client) history(ctx context.Context) ([]types.DownloadItem, error) {
	var out struct {
		History struct {
			Slots []struct {
				NzoID   string `json:"nzo_id"`
				Name    string `json:"name"`
				Status  string `json:"status"`
				Bytes   int64  `json:"bytes"`
				Storage string `json:"storage"`
				FailMessage string `json:"fail_message"`
			} `json:"slots"`
		} `json:"history"`
	}
	if err := c.call(ctx, url.Values{"mode": {"history"}}, &out); err != nil {
		return nil, err
	}

	items := make([]types.DownloadItem, 0, len(out.History.Slots))
	for _, s := range out.History.Slots {
		item := types.DownloadItem{
			ID: s.NzoID, Name: s.Name, Status: mapHistoryStatus(s.Status),
			Progress: 100, SizeBytes: s.Bytes, DownloadedSize: s.Bytes,
			DownloadDir: s.Storage,
		}
		if s.FailMessage != "" {
			item.Status = types.StatusError
			item.ErrorMessage = s.FailMessage
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) call(ctx context.Context, form url.Values, out interface{}) error {
	form.Set("apikey", c.cfg.APIKey)
	form.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+form.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sabnzbd: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return types.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sabnzbd: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var apiErr struct {
		Status bool   `json:"status"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		if apiErr.Error == "API Key Incorrect" {
			return types.ErrAuthFailed
		}
		return fmt.Errorf("sabnzbd: %s", apiErr.Error)
	}

	return json.Unmarshal(body, out)
}

func mapQueueStatus(status string) types.Status {
	switch status {
	case "Downloading":
		return types.StatusDownloading
	case "Paused":
		return types.StatusPaused
	case "Queued":
		return types.StatusQueued
	default:
		return types.StatusUnknown
	}
}

func mapHistoryStatus(status string) types.Status {
	switch status {
	case "Completed":
		return types.StatusCompleted
	case "Failed":
		return types.StatusError
	default:
		return types.StatusUnknown
	}
}
