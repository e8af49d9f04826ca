package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
)

// HTMLPageDriver implements Driver for entity.ConnectorHTMLPage: CSS
// selector-driven extraction generalized from the teacher's fixed Webflow
// template (infra/scraper/webflow.go) to an arbitrary configured selector
// set. When no item_selector is configured it falls back to a single
// go-readability extraction of the whole page.
type HTMLPageDriver struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	fallback       *ReadabilityFetcher
}

func NewHTMLPageDriver(client *http.Client, fallback *ReadabilityFetcher) *HTMLPageDriver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTMLPageDriver{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.WebScraperConfig(),
		fallback:       fallback,
	}
}

func (d *HTMLPageDriver) Validate(channel *entity.Channel) error {
	_, err := requireConfig(channel, ConfigKeyURL)
	return err
}

func (d *HTMLPageDriver) Fetch(ctx context.Context, channel *entity.Channel) ([]FetchedItem, error) {
	pageURL, err := requireConfig(channel, ConfigKeyURL)
	if err != nil {
		return nil, err
	}

	if channel.Config[ConfigKeyItemSelector] == "" {
		return d.fetchWholePage(ctx, channel, pageURL)
	}

	var items []FetchedItem
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.doFetch(ctx, channel, pageURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("html-page connector circuit breaker open",
					slog.Int64("channel_id", channel.ID),
					slog.String("url", pageURL))
			}
			return err
		}
		items = cbResult.([]FetchedItem)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return items, nil
}

func (d *HTMLPageDriver) fetchWholePage(ctx context.Context, channel *entity.Channel, pageURL string) ([]FetchedItem, error) {
	if d.fallback == nil {
		return nil, fmt.Errorf("channel %d: no item_selector configured and no readability fallback available", channel.ID)
	}
	content, err := d.fallback.FetchContent(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability fallback: %w", err)
	}
	return []FetchedItem{{
		ExternalID:  pageURL,
		Title:       pageURL,
		Content:     content,
		URL:         pageURL,
		PublishedAt: time.Now().UTC(),
	}}, nil
}

func (d *HTMLPageDriver) doFetch(ctx context.Context, channel *entity.Channel, pageURL string) ([]FetchedItem, error) {
	if err := validateURL(pageURL, denyPrivateIPs(channel)); err != nil {
		return nil, fmt.Errorf("url validation failed: %w", err)
	}

	doc, err := d.fetchHTML(ctx, pageURL, maxBodyBytes(channel))
	if err != nil {
		return nil, fmt.Errorf("fetch html: %w", err)
	}

	items := d.extractItems(doc, channel)
	if len(items) == 0 {
		return nil, fmt.Errorf("no items found with selector %q", channel.Config[ConfigKeyItemSelector])
	}
	return items, nil
}

func (d *HTMLPageDriver) fetchHTML(ctx context.Context, urlStr string, limitBytes int64) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot/2.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	return goquery.NewDocumentFromReader(io.LimitReader(resp.Body, limitBytes))
}

func (d *HTMLPageDriver) extractItems(doc *goquery.Document, channel *entity.Channel) []FetchedItem {
	itemSelector := channel.Config[ConfigKeyItemSelector]
	titleSelector := channel.Config[ConfigKeyTitleSelector]
	urlSelector := channel.Config[ConfigKeyURLSelector]
	dateSelector := channel.Config[ConfigKeyDateSelector]
	dateFormat := channel.Config[ConfigKeyDateFormat]
	urlPrefix := channel.Config[ConfigKeyURLPrefix]

	var items []FetchedItem
	doc.Find(itemSelector).Each(func(i int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(titleSelector).Text())
		if title == "" {
			return
		}

		itemURL := ""
		if urlSelector != "" {
			if href, ok := el.Find(urlSelector).Attr("href"); ok {
				itemURL = strings.TrimSpace(href)
			}
		}
		if itemURL == "" {
			return
		}
		itemURL = makeAbsoluteURL(itemURL, urlPrefix)

		publishedAt := parseDate(strings.TrimSpace(el.Find(dateSelector).Text()), dateFormat)

		items = append(items, FetchedItem{
			ExternalID:  itemURL,
			Title:       title,
			URL:         itemURL,
			PublishedAt: publishedAt,
		})
	})
	return items
}

func parseDate(dateStr, format string) time.Time {
	if dateStr == "" {
		return time.Now().UTC()
	}
	if format == "" {
		format = "Jan 2, 2006"
	}
	if t, err := time.Parse(format, dateStr); err == nil {
		return t
	}
	for _, f := range []string{"2006-01-02", "2006-01-02T15:04:05Z", time.RFC3339, "Jan 2, 2006", "January 2, 2006"} {
		if t, err := time.Parse(f, dateStr); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func makeAbsoluteURL(urlStr, prefix string) string {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr
	}
	if prefix == "" {
		return urlStr
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(urlStr, "/")
}
