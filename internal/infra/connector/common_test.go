package connector

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestPublishedAtOrNow_PrefersPublished(t *testing.T) {
	published := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entry := &gofeed.Item{PublishedParsed: &published, UpdatedParsed: &updated}

	got := publishedAtOrNow(entry)
	if !got.Equal(published) {
		t.Errorf("got = %v, want %v", got, published)
	}
}

func TestPublishedAtOrNow_FallsBackToUpdated(t *testing.T) {
	updated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entry := &gofeed.Item{UpdatedParsed: &updated}

	got := publishedAtOrNow(entry)
	if !got.Equal(updated) {
		t.Errorf("got = %v, want %v", got, updated)
	}
}

func TestPublishedAtOrNow_FallsBackToNow(t *testing.T) {
	entry := &gofeed.Item{}
	before := time.Now().UTC()
	got := publishedAtOrNow(entry)
	after := time.Now().UTC()

	if got.Before(before) || got.After(after) {
		t.Errorf("got = %v, want between %v and %v", got, before, after)
	}
}
