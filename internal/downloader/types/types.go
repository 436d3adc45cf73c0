// Package types defines the shared shapes every download-client vendor
// adapter produces and consumes, and the capability interfaces the
// dispatcher and monitor dispatch against. Grounded on the teacher's
// internal/downloader/types/types.go Client/TorrentClient/UsenetClient
// split, trimmed to the five vendors matchday's domain model names
// (§6, domain.DownloadClientType).
package types

import (
	"context"
	"errors"
	"time"
)

// Common errors every vendor adapter returns for unsupported operations
// or connection failures.
var (
	ErrNotImplemented = errors.New("operation not implemented")
	ErrNotConnected   = errors.New("client not connected")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotFound       = errors.New("download not found")
)

// Config holds the connection settings common to every vendor, mirroring
// domain.DownloadClient's encrypted-at-rest fields.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	APIKey   string
	UseSSL   bool
	Category string
}

// AddOptions specifies how to add a new download (§4.10 step 3).
type AddOptions struct {
	URL            string // magnet link, .torrent URL, or .nzb URL
	Name           string
	DownloadDir    string
	Category       string
	Paused         bool
	SeedRatioLimit float64       // torrent only; 0 = client default
	SeedTimeLimit  time.Duration // torrent only; 0 = client default
}

// Status is the vendor-normalized state of a single download.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusSeeding     Status = "seeding"
	StatusError       Status = "error"
	StatusUnknown     Status = "unknown"
)

// DownloadItem is a single download as reported by a vendor client.
type DownloadItem struct {
	ID             string
	Name           string
	Status         Status
	Progress       float64 // 0-100
	SizeBytes      int64
	DownloadedSize int64
	DownloadDir    string
	ErrorMessage   string
	AddedAt        time.Time
	CompletedAt    time.Time
}

// Client is the common operation set every vendor adapter implements
// (§4.10/§4.11): add, poll, and control a download.
type Client interface {
	Test(ctx context.Context) error
	Add(ctx context.Context, opts AddOptions) (string, error)
	List(ctx context.Context) ([]DownloadItem, error)
	Get(ctx context.Context, id string) (*DownloadItem, error)
	Remove(ctx context.Context, id string, deleteFiles bool) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
}
