package connector

import (
	"time"

	"github.com/mmcdole/gofeed"
)

func publishedAtOrNow(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Now().UTC()
}
