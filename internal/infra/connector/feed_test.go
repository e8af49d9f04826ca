package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catchup-feed/internal/domain/entity"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Sample Feed</title>
  <item>
    <title>First Item</title>
    <link>https://example.com/first</link>
    <guid>https://example.com/first</guid>
    <description>First item body</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>Second Item</title>
    <link>https://example.com/second</link>
    <guid>https://example.com/second</guid>
    <description>Second item body</description>
    <pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestFeedDriver_Validate_RequiresURL(t *testing.T) {
	d := NewFeedDriver(nil, nil)
	ch := testChannel(entity.ConnectorFeed, map[string]string{})
	if err := d.Validate(ch); err == nil {
		t.Fatal("expected error for missing url config")
	}
}

func TestFeedDriver_Fetch_ParsesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	d := NewFeedDriver(&http.Client{Timeout: 5 * time.Second}, nil)
	ch := testChannel(entity.ConnectorFeed, map[string]string{
		ConfigKeyURL:            server.URL,
		ConfigKeyDenyPrivateIPs: "false",
	})

	items, err := d.Fetch(context.Background(), ch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Title != "First Item" {
		t.Errorf("items[0].Title = %q, want %q", items[0].Title, "First Item")
	}
	if items[0].ExternalID != "https://example.com/first" {
		t.Errorf("items[0].ExternalID = %q, want %q", items[0].ExternalID, "https://example.com/first")
	}
	if items[0].Content != "First item body" {
		t.Errorf("items[0].Content = %q, want %q", items[0].Content, "First item body")
	}
}

func TestFeedDriver_Fetch_MissingURL(t *testing.T) {
	d := NewFeedDriver(nil, nil)
	ch := testChannel(entity.ConnectorFeed, map[string]string{})
	if _, err := d.Fetch(context.Background(), ch); err == nil {
		t.Fatal("expected error for missing url config")
	}
}

func TestFeedDriver_Fetch_FollowLinksFetchesFullContent(t *testing.T) {
	var articleServerURL string
	articleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><article><h1>Full Article</h1>
<p>This is a much longer article body than the RSS description snippet was.</p>
<p>It has several paragraphs of real content for readability to extract cleanly.</p>
</article></body></html>`))
	}))
	defer articleServer.Close()
	articleServerURL = articleServer.URL

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel>
<item><title>Linked</title><link>` + articleServerURL + `</link><guid>` + articleServerURL + `</guid>
<description>short</description></item>
</channel></rss>`))
	}))
	defer feedServer.Close()

	linkFetcher := NewReadabilityFetcher(5*time.Second, defaultMaxBodyBytes, false)
	d := NewFeedDriver(&http.Client{Timeout: 5 * time.Second}, linkFetcher)
	ch := testChannel(entity.ConnectorFeed, map[string]string{
		ConfigKeyURL:            feedServer.URL,
		ConfigKeyFollowLinks:    "true",
		ConfigKeyDenyPrivateIPs: "false",
	})

	items, err := d.Fetch(context.Background(), ch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if len(items[0].Content) <= len("short") {
		t.Errorf("expected follow-links content longer than feed snippet, got %q", items[0].Content)
	}
}
