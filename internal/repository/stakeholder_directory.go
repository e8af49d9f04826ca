package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// StakeholderDirectory is the read path the rule engine consults for its
// implicit mention-based boosts (spec §4.7). It is intentionally read-only
// from the rule engine's point of view; maintenance of the directory is a
// separate administrative concern.
type StakeholderDirectory interface {
	List(ctx context.Context) ([]*entity.StakeholderEntry, error)
	Get(ctx context.Context, id int64) (*entity.StakeholderEntry, error)
	Create(ctx context.Context, s *entity.StakeholderEntry) error
	Update(ctx context.Context, s *entity.StakeholderEntry) error
	Delete(ctx context.Context, id int64) error
}
