package repository

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// ChannelRepository persists Channel entities and supports the scheduler's
// due-channel query (C2, spec §4.2).
type ChannelRepository interface {
	Get(ctx context.Context, id int64) (*entity.Channel, error)
	List(ctx context.Context) ([]*entity.Channel, error)
	ListBySource(ctx context.Context, sourceID int64) ([]*entity.Channel, error)

	// ListDue returns every enabled channel whose last-poll plus its poll
	// interval is at or before now. The scheduler calls this once per tick.
	ListDue(ctx context.Context, now time.Time) ([]*entity.Channel, error)

	Create(ctx context.Context, channel *entity.Channel) error
	Update(ctx context.Context, channel *entity.Channel) error
	Delete(ctx context.Context, id int64) error

	// MarkPolled records a successful fetch attempt at t and clears LastError.
	MarkPolled(ctx context.Context, id int64, t time.Time) error

	// MarkFailed records a failed fetch attempt; the channel remains due on
	// the schedule but carries the error message for observability.
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}
