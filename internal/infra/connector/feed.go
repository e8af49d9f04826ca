package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// FeedDriver implements Driver for entity.ConnectorFeed using gofeed to
// parse RSS/Atom documents. When the channel's follow_links config is set,
// each entry's link is additionally resolved through go-readability via
// an injected linkFetcher (kept nil-able so search-alert, which embeds
// this driver, can opt out).
type FeedDriver struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	linkFetcher    *ReadabilityFetcher
}

// NewFeedDriver builds a FeedDriver with the teacher's feed-fetch circuit
// breaker and retry profiles.
func NewFeedDriver(client *http.Client, linkFetcher *ReadabilityFetcher) *FeedDriver {
	if client == nil {
		client = http.DefaultClient
	}
	return &FeedDriver{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		linkFetcher:    linkFetcher,
	}
}

func (d *FeedDriver) Validate(channel *entity.Channel) error {
	_, err := requireConfig(channel, ConfigKeyURL)
	return err
}

func (d *FeedDriver) Fetch(ctx context.Context, channel *entity.Channel) ([]FetchedItem, error) {
	feedURL, err := requireConfig(channel, ConfigKeyURL)
	if err != nil {
		return nil, err
	}

	var items []FetchedItem
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.doFetch(ctx, feedURL, denyPrivateIPs(channel))
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed connector circuit breaker open, request rejected",
					slog.Int64("channel_id", channel.ID),
					slog.String("url", feedURL),
					slog.String("state", d.circuitBreaker.State().String()))
			}
			return err
		}
		items = cbResult.([]FetchedItem)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	if configBool(channel, ConfigKeyFollowLinks, false) && d.linkFetcher != nil {
		d.followLinks(ctx, channel, items)
	}

	return items, nil
}

func (d *FeedDriver) doFetch(ctx context.Context, feedURL string, denyPrivateIPs bool) ([]FetchedItem, error) {
	if err := validateURL(feedURL, denyPrivateIPs); err != nil {
		return nil, fmt.Errorf("feed url validation: %w", err)
	}

	fp := gofeed.NewParser()
	fp.UserAgent = "CatchUpFeedBot/2.0"
	fp.Client = d.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]FetchedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		content := entry.Content
		if content == "" {
			content = entry.Description
		}
		pubAt := publishedAtOrNow(entry)
		externalID := entry.GUID
		if externalID == "" {
			externalID = entry.Link
		}
		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}
		items = append(items, FetchedItem{
			ExternalID:  externalID,
			Title:       entry.Title,
			Content:     content,
			URL:         entry.Link,
			Author:      author,
			PublishedAt: pubAt,
		})
	}
	return items, nil
}

func (d *FeedDriver) followLinks(ctx context.Context, channel *entity.Channel, items []FetchedItem) {
	for i := range items {
		if items[i].URL == "" {
			continue
		}
		content, err := d.linkFetcher.FetchContent(ctx, items[i].URL)
		if err != nil {
			slog.Debug("follow-links fetch failed, keeping feed content",
				slog.Int64("channel_id", channel.ID),
				slog.String("url", items[i].URL),
				slog.Any("error", err))
			continue
		}
		if len(content) > len(items[i].Content) {
			items[i].Content = content
		}
	}
}
