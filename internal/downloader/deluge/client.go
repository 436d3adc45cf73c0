// Package deluge implements a client for Deluge's WebUI RPC API.
// This is a stub implementation - full functionality will be added later,
// matching the teacher's own practice of shipping lower-priority vendor
// adapters as documented stubs (its qbittorrent and sabnzbd clients).
package deluge

import (
	"context"

	"github.com/matchday/matchday/internal/downloader/types"
)

var _ types.Client = (*Client)(nil)

// Client is a stub Deluge client.
type Client struct {
	cfg types.Config
}

// New constructs a stub Deluge client for the given connection config.
func New(cfg types.Config) *Client {
	return &Client{cfg: cfg}
}

// Test is not implemented.
func (c *Client) Test(ctx context.Context) error {
	return types.ErrNotImplemented
}

// Add is not implemented.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	return "", types.ErrNotImplemented
}

// List is not implemented.
func (c *Client) List(ctx context.Context) ([]types.DownloadItem, error) {
	return nil, types.ErrNotImplemented
}

// Get is not implemented.
func (c *Client) Get(ctx context.Context, id string) (*types.DownloadItem, error) {
	return nil, types.ErrNotImplemented
}

// Remove is not implemented.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	return types.ErrNotImplemented
}

// Pause is not implemented.
func (c *Client) Pause(ctx context.Context, id string) error {
	return types.ErrNotImplemented
}

// Resume is not implemented.
func (c *Client) Resume(ctx context.Context, id string) error {
	return types.ErrNotImplemented
}
