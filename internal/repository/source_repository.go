package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// SourceRepository persists Source entities (organizations/publishers owning
// channels).
type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListEnabled(ctx context.Context) ([]*entity.Source, error)
	ListStakeholders(ctx context.Context) ([]*entity.Source, error)
	Search(ctx context.Context, keyword string) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	Update(ctx context.Context, source *entity.Source) error
	Delete(ctx context.Context, id int64) error
}
