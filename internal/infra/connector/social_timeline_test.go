package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catchup-feed/internal/domain/entity"
)

func TestSocialTimelineDriver_Validate_RequiresURL(t *testing.T) {
	d := NewSocialTimelineDriver(SocialVariantShortPost, nil)
	ch := testChannel(entity.ConnectorShortPost, map[string]string{})
	if err := d.Validate(ch); err == nil {
		t.Fatal("expected error for missing url config")
	}
}

func TestSocialTimelineDriver_Fetch_DefaultJSONFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1","author":"alice","text":"first post","url":"https://example.com/1","created_at":"2026-01-01T00:00:00Z"},
			{"id":"2","author":"bob","text":"second post","url":"https://example.com/2","created_at":"2026-01-02T00:00:00Z"}
		]`))
	}))
	defer server.Close()

	d := NewSocialTimelineDriver(SocialVariantFederatedHandle, nil)
	ch := testChannel(entity.ConnectorFederatedHandle, map[string]string{
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
	if items[0].Author != "alice" {
		t.Errorf("items[0].Author = %q, want %q", items[0].Author, "alice")
	}
	if items[0].Metadata["social-variant"] != string(SocialVariantFederatedHandle) {
		t.Errorf("items[0].Metadata[social-variant] = %q, want %q", items[0].Metadata["social-variant"], SocialVariantFederatedHandle)
	}
}

func TestSocialTimelineDriver_Fetch_CustomPostsFetcher(t *testing.T) {
	called := false
	fetcher := func(ctx context.Context, channel *entity.Channel) ([]socialPost, error) {
		called = true
		return []socialPost{{ID: "x", Author: "carol", Text: "hi", CreatedAt: time.Now().UTC()}}, nil
	}
	d := NewSocialTimelineDriver(SocialVariantLongPost, fetcher)
	ch := testChannel(entity.ConnectorLongPost, map[string]string{ConfigKeyURL: "https://example.com/timeline"})

	items, err := d.Fetch(context.Background(), ch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !called {
		t.Error("expected custom postsFetcher to be invoked")
	}
	if len(items) != 1 || items[0].Author != "carol" {
		t.Errorf("items = %+v, want one post authored by carol", items)
	}
}

func TestSocialTimelineDriver_Fetch_MissingURL(t *testing.T) {
	d := NewSocialTimelineDriver(SocialVariantShortPost, nil)
	ch := testChannel(entity.ConnectorShortPost, map[string]string{})
	if _, err := d.Fetch(context.Background(), ch); err == nil {
		t.Fatal("expected error for missing url config")
	}
}
