// Package connector implements the C1 connector drivers: one Driver per
// entity.ConnectorKind, fetching raw items from a channel's upstream
// source and handing them to the ingestion pipeline (C3) unmodified.
package connector

import (
	"context"
	"errors"
	"time"

	"catchup-feed/internal/domain/entity"
)

// ErrUnsupportedKind is returned by Factory when no driver is registered
// for a channel's connector kind.
var ErrUnsupportedKind = errors.New("connector: unsupported connector kind")

// FetchedItem is the raw, connector-produced representation of an item
// before it enters the ingestion pipeline's identity and dedupe stages.
type FetchedItem struct {
	ExternalID  string
	Title       string
	Content     string
	URL         string
	Author      string
	PublishedAt time.Time
	Metadata    map[string]string
}

// Driver is the capability contract every connector kind implements. A
// closed, tagged variant set behind one interface replaces dynamic
// per-kind dispatch (spec §9 REDESIGN FLAG).
type Driver interface {
	// Validate checks that channel.Config carries everything this driver
	// needs before it is ever scheduled.
	Validate(channel *entity.Channel) error

	// Fetch retrieves the current set of items visible at the channel's
	// upstream source. It does not decide what is new — that is C3's job.
	Fetch(ctx context.Context, channel *entity.Channel) ([]FetchedItem, error)
}
