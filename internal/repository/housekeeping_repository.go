package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// HousekeepingConfigRepository persists the single active housekeeping
// configuration consulted by the retention sweep (C8).
type HousekeepingConfigRepository interface {
	Get(ctx context.Context) (*entity.HousekeepingConfig, error)
	Save(ctx context.Context, cfg *entity.HousekeepingConfig) error
}

// ItemPurger atomically deletes an item and both of its embedding-index
// entries, per spec §5: "the store delete and the two index deletes either
// all commit or the item stays." A backing store that holds items and
// embeddings in the same database can implement this in a single
// transaction; stores that cannot are not required to implement it, and the
// retention sweep falls back to a best-effort sequential delete.
type ItemPurger interface {
	PurgeItem(ctx context.Context, itemID int64) error
}
