package entity

import (
	"fmt"
	"time"
)

// ConnectorKind is the closed set of connector drivers the core supports.
// Dispatch on a channel's connector kind is by tag, never by dynamic type
// assertion — every driver shares the same {Validate, Fetch} contract.
type ConnectorKind string

const (
	ConnectorFeed              ConnectorKind = "feed-style"
	ConnectorHTMLPage          ConnectorKind = "html-page"
	ConnectorShortPost         ConnectorKind = "short-post"
	ConnectorParaphrasedHandle ConnectorKind = "paraphrased-handle"
	ConnectorFederatedHandle   ConnectorKind = "federated-handle"
	ConnectorLongPost          ConnectorKind = "long-post"
	ConnectorChannelPost       ConnectorKind = "channel-post"
	ConnectorSearchAlert       ConnectorKind = "search-alert"
	ConnectorDocumentBinary    ConnectorKind = "document-binary"
)

// IsValid reports whether k is one of the connector kinds the core supports.
func (k ConnectorKind) IsValid() bool {
	switch k {
	case ConnectorFeed, ConnectorHTMLPage, ConnectorShortPost, ConnectorParaphrasedHandle,
		ConnectorFederatedHandle, ConnectorLongPost, ConnectorChannelPost,
		ConnectorSearchAlert, ConnectorDocumentBinary:
		return true
	default:
		return false
	}
}

// IsSocialTimeline reports whether k is one of the social-timeline variants,
// which share a single transport-agnostic driver (spec §4.1).
func (k ConnectorKind) IsSocialTimeline() bool {
	switch k {
	case ConnectorShortPost, ConnectorParaphrasedHandle, ConnectorFederatedHandle,
		ConnectorLongPost, ConnectorChannelPost:
		return true
	default:
		return false
	}
}

// Channel is a concrete pollable endpoint of one connector kind belonging to
// a Source. Config is an opaque string map; unknown keys are ignored by the
// connector driver that consumes them (spec §6).
type Channel struct {
	ID                int64
	SourceID          int64
	Kind              ConnectorKind
	Config            map[string]string
	Enabled           bool
	PollIntervalMin   int
	LastPolledAt      *time.Time
	LastError         string
}

// Validate checks the Channel's structural invariants. It does not validate
// Config against the connector's own schema; that is the driver's Validate.
func (c *Channel) Validate() error {
	if !c.Kind.IsValid() {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown connector kind %q", c.Kind)}
	}
	if c.PollIntervalMin <= 0 {
		return &ValidationError{Field: "poll_interval_minutes", Message: "must be positive"}
	}
	return nil
}

// Due reports whether the channel is eligible for a scheduled fetch at now,
// per spec §4.2: enabled and last-poll + interval <= now.
func (c *Channel) Due(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.LastPolledAt == nil {
		return true
	}
	return !c.LastPolledAt.Add(time.Duration(c.PollIntervalMin) * time.Minute).After(now)
}
