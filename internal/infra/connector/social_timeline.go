package connector

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// SocialVariant tags the five timeline-shaped connector kinds that share
// SocialTimelineDriver. They differ only in upstream semantics (short posts,
// paraphrased third-party handles, federated handles, long-form posts,
// channel posts) — the fetch/parse/assemble mechanics are identical.
type SocialVariant string

const (
	SocialVariantShortPost         SocialVariant = "short-post"
	SocialVariantParaphrasedHandle SocialVariant = "paraphrased-handle"
	SocialVariantFederatedHandle   SocialVariant = "federated-handle"
	SocialVariantLongPost          SocialVariant = "long-post"
	SocialVariantChannelPost       SocialVariant = "channel-post"
)

// socialPost is the JSON-over-HTTP wire shape the default postsFetcher
// expects from a timeline endpoint. Channels whose upstream speaks a
// different wire shape supply their own postsFetcher closure instead.
type socialPost struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// SocialTimelineDriver implements Driver for all five social-timeline
// connector kinds. Transport is a pluggable postsFetcher closure so callers
// can swap in a platform-specific SDK client without changing the driver;
// the zero value uses a JSON-over-HTTP client built the same way as the
// teacher's web-scraper client (TLS 1.2+, SSRF-checked redirects).
type SocialTimelineDriver struct {
	variant        SocialVariant
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	postsFetcher   func(ctx context.Context, channel *entity.Channel) ([]socialPost, error)
}

// NewSocialTimelineDriver builds a SocialTimelineDriver for variant. A nil
// postsFetcher installs the default JSON-over-HTTP implementation.
func NewSocialTimelineDriver(variant SocialVariant, postsFetcher func(ctx context.Context, channel *entity.Channel) ([]socialPost, error)) *SocialTimelineDriver {
	d := &SocialTimelineDriver{
		variant:        variant,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.WebScraperConfig(),
	}
	d.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects: %d", len(via))
			}
			return validateURL(req.URL.String(), true)
		},
	}
	if postsFetcher != nil {
		d.postsFetcher = postsFetcher
	} else {
		d.postsFetcher = d.fetchJSON
	}
	return d
}

func (d *SocialTimelineDriver) Validate(channel *entity.Channel) error {
	_, err := requireConfig(channel, ConfigKeyURL)
	return err
}

func (d *SocialTimelineDriver) Fetch(ctx context.Context, channel *entity.Channel) ([]FetchedItem, error) {
	if _, err := requireConfig(channel, ConfigKeyURL); err != nil {
		return nil, err
	}

	var posts []socialPost
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.postsFetcher(ctx, channel)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("social timeline circuit breaker open",
					slog.String("variant", string(d.variant)),
					slog.Int64("channel_id", channel.ID))
			}
			return err
		}
		posts = cbResult.([]socialPost)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	items := make([]FetchedItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, FetchedItem{
			ExternalID:  p.ID,
			Title:       p.Text,
			Content:     p.Text,
			URL:         p.URL,
			Author:      p.Author,
			PublishedAt: p.CreatedAt,
			Metadata:    map[string]string{"social-variant": string(d.variant)},
		})
	}
	return items, nil
}

func (d *SocialTimelineDriver) fetchJSON(ctx context.Context, channel *entity.Channel) ([]socialPost, error) {
	timelineURL := channel.Config[ConfigKeyURL]
	if err := validateURL(timelineURL, denyPrivateIPs(channel)); err != nil {
		return nil, fmt.Errorf("url validation failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, timelineURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot/2.0")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	limited := io.LimitReader(resp.Body, maxBodyBytes(channel))
	var posts []socialPost
	if err := json.NewDecoder(limited).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode timeline response: %w", err)
	}
	return posts, nil
}
