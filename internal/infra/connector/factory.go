package connector

import (
	"net/http"
	"time"

	"catchup-feed/internal/domain/entity"
)

// Factory builds the one Driver a channel's connector kind needs. Drivers
// are constructed lazily and cached per kind since they hold no per-channel
// state beyond what Fetch receives as an argument.
type Factory struct {
	drivers map[entity.ConnectorKind]Driver
}

// NewFactory wires every connector kind to its driver, sharing one
// ReadabilityFetcher and one plain http.Client across drivers that need
// them. denyPrivateIPs/timeout/maxBodyBytes are the defaults used when a
// channel does not override them via its own config.
func NewFactory(timeout time.Duration, maxBodyBytes int64, denyPrivateIPs bool) *Factory {
	client := &http.Client{Timeout: timeout}
	readable := NewReadabilityFetcher(timeout, maxBodyBytes, denyPrivateIPs)
	feed := NewFeedDriver(client, readable)

	f := &Factory{drivers: make(map[entity.ConnectorKind]Driver, 9)}
	f.drivers[entity.ConnectorFeed] = feed
	f.drivers[entity.ConnectorHTMLPage] = NewHTMLPageDriver(client, readable)
	f.drivers[entity.ConnectorSearchAlert] = NewSearchAlertDriver(NewFeedDriver(client, nil))
	f.drivers[entity.ConnectorDocumentBinary] = NewDocumentBinaryDriver(client, readable)

	f.drivers[entity.ConnectorShortPost] = NewSocialTimelineDriver(SocialVariantShortPost, nil)
	f.drivers[entity.ConnectorParaphrasedHandle] = NewSocialTimelineDriver(SocialVariantParaphrasedHandle, nil)
	f.drivers[entity.ConnectorFederatedHandle] = NewSocialTimelineDriver(SocialVariantFederatedHandle, nil)
	f.drivers[entity.ConnectorLongPost] = NewSocialTimelineDriver(SocialVariantLongPost, nil)
	f.drivers[entity.ConnectorChannelPost] = NewSocialTimelineDriver(SocialVariantChannelPost, nil)

	return f
}

// For returns the Driver registered for kind, or ErrUnsupportedKind if none
// is registered.
func (f *Factory) For(kind entity.ConnectorKind) (Driver, error) {
	d, ok := f.drivers[kind]
	if !ok {
		return nil, ErrUnsupportedKind
	}
	return d, nil
}
