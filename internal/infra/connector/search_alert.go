package connector

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// SearchAlertDriver implements Driver for entity.ConnectorSearchAlert.
// Search-alert endpoints (saved-search feeds) are themselves Atom/RSS
// documents, so this wraps FeedDriver's parsing path unchanged and only
// tags the yielded items with their source domain so C5's suggestion
// surfacing can distinguish alert-originated items from ordinary feeds.
type SearchAlertDriver struct {
	feed *FeedDriver
}

func NewSearchAlertDriver(feed *FeedDriver) *SearchAlertDriver {
	return &SearchAlertDriver{feed: feed}
}

func (d *SearchAlertDriver) Validate(channel *entity.Channel) error {
	return d.feed.Validate(channel)
}

func (d *SearchAlertDriver) Fetch(ctx context.Context, channel *entity.Channel) ([]FetchedItem, error) {
	items, err := d.feed.Fetch(ctx, channel)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Metadata == nil {
			items[i].Metadata = make(map[string]string, 1)
		}
		items[i].Metadata["source-domain"] = "search-alert"
	}
	return items, nil
}
