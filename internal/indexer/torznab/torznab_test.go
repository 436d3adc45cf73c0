package torznab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matchday/matchday/internal/indexer/types"
	"github.com/matchday/matchday/internal/indexer/wireclient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss xmlns:torznab="http://torznab.com/schemas/2015/feed">
  <channel>
    <item>
      <title>UFC 310 Pantoja vs Asakura 2024 1080p WEB-DL-GROUP</title>
      <guid>abc123</guid>
      <link>http://indexer.example/download/abc123</link>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <size>5368709120</size>
      <torznab:attr name="seeders" value="42"/>
      <torznab:attr name="leechers" value="3"/>
      <torznab:attr name="infohash" value="deadbeef"/>
      <torznab:attr name="indexerflags" value="freeleech"/>
    </item>
  </channel>
</rss>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	wire, err := wireclient.New(wireclient.Config{BaseURL: server.URL, APIKey: "key", Logger: zerolog.Nop()})
	require.NoError(t, err)
	return New(wire, 1, "test-indexer", 25, []int{5000})
}

func TestSearch_ParsesAttrsAndProtocol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleFeed))
	})

	releases, err := client.Search(context.Background(), types.SearchCriteria{Query: "UFC 310"})
	require.NoError(t, err)
	require.Len(t, releases, 1)

	r := releases[0]
	require.Equal(t, "abc123", r.GUID)
	require.Equal(t, 42, r.Seeders)
	require.Equal(t, 3, r.Leechers)
	require.Equal(t, "deadbeef", r.InfoHash)
	require.True(t, r.Freeleech)
	require.Equal(t, int64(5368709120), r.SizeBytes)
}
