package llm

import (
	"context"
	"fmt"

	"catchup-feed/internal/repository"
)

// SourceResolver resolves an item's channel to a human-readable source
// display name for the LLM prompt (spec §4.6).
type SourceResolver interface {
	DisplayName(ctx context.Context, channelID int64) (string, error)
}

// sourceResolver is the default SourceResolver, hopping channel -> source
// the same way a UI "display source name" field would (spec §6's item
// record exchange also names this derived field).
type sourceResolver struct {
	Channels repository.ChannelRepository
	Sources  repository.SourceRepository
}

// NewSourceResolver builds the default SourceResolver.
func NewSourceResolver(channels repository.ChannelRepository, sources repository.SourceRepository) SourceResolver {
	return &sourceResolver{Channels: channels, Sources: sources}
}

func (r *sourceResolver) DisplayName(ctx context.Context, channelID int64) (string, error) {
	channel, err := r.Channels.Get(ctx, channelID)
	if err != nil {
		return "", fmt.Errorf("get channel: %w", err)
	}
	source, err := r.Sources.Get(ctx, channel.SourceID)
	if err != nil {
		return "", fmt.Errorf("get source: %w", err)
	}
	return source.Name, nil
}
