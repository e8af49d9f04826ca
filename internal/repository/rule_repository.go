package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// RuleRepository persists user-authored rules consulted by the rule engine
// (C7).
type RuleRepository interface {
	Get(ctx context.Context, id int64) (*entity.Rule, error)

	// ListEnabledOrdered returns every enabled rule in ascending ordering
	// key, the exact iteration order the rule engine applies them in
	// (spec §4.7).
	ListEnabledOrdered(ctx context.Context) ([]*entity.Rule, error)

	List(ctx context.Context) ([]*entity.Rule, error)
	Create(ctx context.Context, rule *entity.Rule) error
	Update(ctx context.Context, rule *entity.Rule) error
	Delete(ctx context.Context, id int64) error
}
