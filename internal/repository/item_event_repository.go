package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// ItemEventRepository persists the append-only audit trail. Appends never
// conflict (spec §5) so this interface exposes no Update/Delete.
type ItemEventRepository interface {
	Append(ctx context.Context, event *entity.ItemEvent) error
	ListByItem(ctx context.Context, itemID int64) ([]*entity.ItemEvent, error)
}
