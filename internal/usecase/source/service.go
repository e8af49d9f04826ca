// Package source provides use cases for managing the organizations/publishers
// (entity.Source) that own one or more pollable channels. This is a thin,
// out-of-core-scope CRUD layer per spec §1 — the core pipeline only reads
// sources through repository.SourceRepository.
package source

import (
	"context"
	"fmt"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// CreateInput represents the input parameters for creating a new source.
type CreateInput struct {
	Name          string
	IsStakeholder bool
}

// UpdateInput represents the input parameters for updating an existing source.
// Empty string fields and nil pointer fields are left unchanged.
type UpdateInput struct {
	ID            int64
	Name          string
	Enabled       *bool
	IsStakeholder *bool
}

// Service provides source management use cases, delegating persistence to
// the repository.
type Service struct {
	Repo repository.SourceRepository
}

// List retrieves all sources from the repository.
func (s *Service) List(ctx context.Context) ([]*entity.Source, error) {
	sources, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// Search finds sources matching the given keyword against their names.
func (s *Service) Search(ctx context.Context, keyword string) ([]*entity.Source, error) {
	sources, err := s.Repo.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}
	return sources, nil
}

// Create creates a new, enabled source with the provided input.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Source, error) {
	src := &entity.Source{
		Name:          in.Name,
		Enabled:       true,
		IsStakeholder: in.IsStakeholder,
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// Update modifies an existing source with the provided input. Nil pointer
// fields and an empty Name are left unchanged.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	if in.ID <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	src, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}
	if src == nil {
		return ErrSourceNotFound
	}

	if in.Name != "" {
		src.Name = in.Name
	}
	if in.Enabled != nil {
		src.Enabled = *in.Enabled
	}
	if in.IsStakeholder != nil {
		src.IsStakeholder = *in.IsStakeholder
	}

	if err := src.Validate(); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, src); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// Delete removes a source by its ID.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
