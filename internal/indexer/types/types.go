// Package types holds the wire-level shapes every indexer protocol
// implementation (torznab, newznab) produces and consumes, and the
// capability interface the search orchestrator dispatches against.
// Grounded on the teacher's internal/indexer/types/types.go shape.
package types

import (
	"context"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

// SearchCriteria is the normalized query the orchestrator passes to every
// indexer's Search method.
type SearchCriteria struct {
	Query      string
	Categories []int
	Limit      int
}

// Capabilities describes what an indexer supports, fetched once via
// t=caps and cached for the lifetime of the Indexer config row.
type Capabilities struct {
	SupportsSearch bool
	SupportsRSS    bool
	Categories     []int
}

// Client is the polymorphic capability set every indexer protocol
// implements; dispatch is tag-driven off domain.Indexer.Type (§9 design
// note: "concrete implementations behind interfaces").
type Client interface {
	Test(ctx context.Context) error
	Search(ctx context.Context, criteria SearchCriteria) ([]*domain.ReleaseSearchResult, error)
	FetchRSS(ctx context.Context, limit int) ([]*domain.ReleaseSearchResult, error)
	Capabilities(ctx context.Context) (Capabilities, error)
}

// ActiveSearchStatus is the live-progress snapshot the search orchestrator
// publishes to the UI during a fan-out (§4.8).
type ActiveSearchStatus struct {
	Total         int
	Active        int
	Completed     int
	ReleasesFound int
	StartedAt     time.Time
	IsComplete    bool
}
