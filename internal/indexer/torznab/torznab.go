// Package torznab implements the Torznab indexer protocol client (§6):
// RSS 2.0 with torznab:attr extensions, over the shared wireclient
// transport. Grounded on the teacher's genericrss feed-parsing shape
// (RSS/XML decode) combined with prowlarr/client.go's request-building
// convention.
package torznab

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matchday/matchday/internal/domain"
	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/matchday/matchday/internal/indexer/wireclient"
)

// Client implements indexer/types.Client for a single Torznab indexer.
type Client struct {
	wire            *wireclient.Client
	indexerID       int64
	indexerName     string
	indexerPriority int
	categories      []int
}

// New constructs a Torznab client wrapping an already-built wireclient.
func New(wire *wireclient.Client, indexerID int64, indexerName string, priority int, categories []int) *Client {
	return &Client{wire: wire, indexerID: indexerID, indexerName: indexerName, indexerPriority: priority, categories: categories}
}

// rss is the RSS 2.0 envelope with torznab:attr extensions (§6).
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []item `xml:"item"`
	} `xml:"channel"`
}

type item struct {
	Title   string     `xml:"title"`
	GUID    string     `xml:"guid"`
	Link    string     `xml:"link"`
	PubDate string      `xml:"pubDate"`
	Size    int64      `xml:"size"`
	Attrs   []torznabAttr `xml:"attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (it item) attr(name string) string {
	for _, a := range it.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Test issues a lightweight caps query to confirm the indexer is
// reachable and the API key is accepted.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.wire.Get(ctx, url.Values{"t": {"caps"}})
	return err
}

// Capabilities fetches t=caps and reports a conservative default when the
// response can't be parsed in detail — callers only need SupportsSearch/
// SupportsRSS to decide whether to include this indexer in a fan-out.
func (c *Client) Capabilities(ctx context.Context) (types.Capabilities, error) {
	if _, err := c.wire.Get(ctx, url.Values{"t": {"caps"}}); err != nil {
		return types.Capabilities{}, err
	}
	return types.Capabilities{SupportsSearch: true, SupportsRSS: true, Categories: c.categories}, nil
}

// Search issues t=search (§6).
func (c *Client) Search(ctx context.Context, criteria types.SearchCriteria) ([]*domain.ReleaseSearchResult, error) {
	params := url.Values{"t": {"search"}, "q": {criteria.Query}}
	if len(criteria.Categories) > 0 {
		params.Set("cat", joinInts(criteria.Categories))
	}
	if criteria.Limit > 0 {
		params.Set("limit", strconv.Itoa(criteria.Limit))
	}
	return c.fetch(ctx, params)
}

// FetchRSS issues a no-query RSS fetch (§4.8: "FetchAllRss").
func (c *Client) FetchRSS(ctx context.Context, limit int) ([]*domain.ReleaseSearchResult, error) {
	params := url.Values{"t": {"search"}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return c.fetch(ctx, params)
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]*domain.ReleaseSearchResult, error) {
	body, err := c.wire.Get(ctx, params)
	if err != nil {
		return nil, err
	}

	var feed rss
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode torznab response: %w", err)
	}

	out := make([]*domain.ReleaseSearchResult, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		out = append(out, c.toRelease(it))
	}
	return out, nil
}

func (c *Client) toRelease(it item) *domain.ReleaseSearchResult {
	seeders, _ := strconv.Atoi(it.attr("seeders"))
	leechers, _ := strconv.Atoi(it.attr("leechers"))
	sizeBytes := it.Size
	if sizeBytes == 0 {
		sizeBytes, _ = strconv.ParseInt(it.attr("size"), 10, 64)
	}
	publishDate, _ := time.Parse(time.RFC1123Z, it.PubDate)

	return &domain.ReleaseSearchResult{
		GUID:            firstNonEmpty(it.GUID, it.Link),
		IndexerID:       c.indexerID,
		IndexerName:     c.indexerName,
		IndexerPriority: c.indexerPriority,
		Title:           it.Title,
		DownloadURL:     it.Link,
		InfoHash:        it.attr("infohash"),
		Protocol:        domain.ProtocolTorrent,
		SizeBytes:       sizeBytes,
		Seeders:         seeders,
		Leechers:        leechers,
		PublishDate:     publishDate,
		Freeleech:       strings.Contains(strings.ToLower(it.attr("indexerflags")), "freeleech"),
	}
}

func joinInts(ints []int) string {
	parts := make([]string, len(ints))
	for i, n := range ints {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
