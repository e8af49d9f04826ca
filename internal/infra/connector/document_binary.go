package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
)

// DocumentBinaryDriver implements Driver for entity.ConnectorDocumentBinary.
// Extraction is content-type sniffed: text/html is run through the shared
// ReadabilityFetcher, text/plain is passed through verbatim. True binary
// document parsing (PDF, DOCX) is out of scope: no such parsing library
// appears anywhere in the retrieved pack, so only the two content types its
// libraries actually cover are implemented (see DESIGN.md).
type DocumentBinaryDriver struct {
	client   *http.Client
	readable *ReadabilityFetcher
}

func NewDocumentBinaryDriver(client *http.Client, readable *ReadabilityFetcher) *DocumentBinaryDriver {
	if client == nil {
		client = http.DefaultClient
	}
	return &DocumentBinaryDriver{client: client, readable: readable}
}

func (d *DocumentBinaryDriver) Validate(channel *entity.Channel) error {
	_, err := requireConfig(channel, ConfigKeyURL)
	return err
}

func (d *DocumentBinaryDriver) Fetch(ctx context.Context, channel *entity.Channel) ([]FetchedItem, error) {
	docURL, err := requireConfig(channel, ConfigKeyURL)
	if err != nil {
		return nil, err
	}
	if err := validateURL(docURL, denyPrivateIPs(channel)); err != nil {
		return nil, fmt.Errorf("url validation failed: %w", err)
	}

	contentType, err := d.headContentType(ctx, docURL)
	if err != nil {
		return nil, fmt.Errorf("probe content type: %w", err)
	}

	var content string
	switch {
	case strings.Contains(contentType, "text/html"):
		if d.readable == nil {
			return nil, fmt.Errorf("channel %d: text/html document but no readability fetcher configured", channel.ID)
		}
		content, err = d.readable.FetchContent(ctx, docURL)
		if err != nil {
			return nil, fmt.Errorf("readability extraction: %w", err)
		}
	case strings.Contains(contentType, "text/plain"):
		content, err = d.fetchPlainText(ctx, docURL, maxBodyBytes(channel))
		if err != nil {
			return nil, fmt.Errorf("fetch plain text: %w", err)
		}
	default:
		return nil, fmt.Errorf("channel %d: unsupported document content type %q (only text/html and text/plain are implemented)", channel.ID, contentType)
	}

	title := path.Base(docURL)
	return []FetchedItem{{
		ExternalID:  docURL,
		Title:       title,
		Content:     content,
		URL:         docURL,
		PublishedAt: time.Now().UTC(),
	}}, nil
}

func (d *DocumentBinaryDriver) headContentType(ctx context.Context, docURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, docURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot/2.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return "text/html", nil
	}
	return ct, nil
}

func (d *DocumentBinaryDriver) fetchPlainText(ctx context.Context, docURL string, limitBytes int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot/2.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limitBytes))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(body), nil
}
