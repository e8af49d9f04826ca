package scheduler

import (
	"time"

	"catchup-feed/internal/domain/entity"
)

// Config holds the reference tuning values for the fetch scheduler (spec
// §4.2): the wall-clock tick period, per-connector-kind concurrency caps,
// and per-connector-kind fetch deadlines.
type Config struct {
	TickInterval time.Duration

	// ConcurrencyByKind caps in-flight fetches per connector kind. Kinds
	// absent from the map fall back to DefaultConcurrency.
	ConcurrencyByKind map[entity.ConnectorKind]int
	DefaultConcurrency int

	// DeadlineByKind bounds a single fetch's wall-clock time per connector
	// kind. Kinds absent from the map fall back to DefaultDeadline.
	DeadlineByKind map[entity.ConnectorKind]time.Duration
	DefaultDeadline time.Duration
}

// DefaultConfig returns the reference tuning values named in spec §4.2: a
// 1-minute tick, feed-style 8 / html-page 4 / social-timeline 2 /
// document-binary 2 concurrency, 60s deadlines for feed-style and
// html-page, 300s for the social-timeline variants, 120s for documents.
func DefaultConfig() Config {
	return Config{
		TickInterval:       time.Minute,
		DefaultConcurrency: 2,
		DefaultDeadline:    60 * time.Second,
		ConcurrencyByKind: map[entity.ConnectorKind]int{
			entity.ConnectorFeed:              8,
			entity.ConnectorHTMLPage:          4,
			entity.ConnectorShortPost:         2,
			entity.ConnectorParaphrasedHandle: 2,
			entity.ConnectorFederatedHandle:   2,
			entity.ConnectorLongPost:          2,
			entity.ConnectorChannelPost:       2,
			entity.ConnectorSearchAlert:       4,
			entity.ConnectorDocumentBinary:    2,
		},
		DeadlineByKind: map[entity.ConnectorKind]time.Duration{
			entity.ConnectorFeed:              60 * time.Second,
			entity.ConnectorHTMLPage:          60 * time.Second,
			entity.ConnectorSearchAlert:       60 * time.Second,
			entity.ConnectorShortPost:         300 * time.Second,
			entity.ConnectorParaphrasedHandle: 300 * time.Second,
			entity.ConnectorFederatedHandle:   300 * time.Second,
			entity.ConnectorLongPost:          300 * time.Second,
			entity.ConnectorChannelPost:       300 * time.Second,
			entity.ConnectorDocumentBinary:    120 * time.Second,
		},
	}
}

func (c Config) concurrencyFor(kind entity.ConnectorKind) int {
	if n, ok := c.ConcurrencyByKind[kind]; ok {
		return n
	}
	return c.DefaultConcurrency
}

func (c Config) deadlineFor(kind entity.ConnectorKind) time.Duration {
	if d, ok := c.DeadlineByKind[kind]; ok {
		return d
	}
	return c.DefaultDeadline
}
