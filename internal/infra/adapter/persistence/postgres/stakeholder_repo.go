package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// StakeholderRepo implements repository.StakeholderDirectory.
type StakeholderRepo struct{ db *sql.DB }

func NewStakeholderRepo(db *sql.DB) repository.StakeholderDirectory {
	return &StakeholderRepo{db: db}
}

func scanStakeholder(scanner interface {
	Scan(dest ...any) error
}) (*entity.StakeholderEntry, error) {
	var s entity.StakeholderEntry
	var aliasesJSON []byte
	var sourceID sql.NullInt64

	if err := scanner.Scan(&s.ID, &s.Name, &aliasesJSON, &s.IsMember, &sourceID); err != nil {
		return nil, err
	}
	if len(aliasesJSON) > 0 {
		if err := json.Unmarshal(aliasesJSON, &s.Aliases); err != nil {
			return nil, fmt.Errorf("unmarshal aliases: %w", err)
		}
	}
	if sourceID.Valid {
		id := sourceID.Int64
		s.SourceID = &id
	}
	return &s, nil
}

func (repo *StakeholderRepo) List(ctx context.Context) ([]*entity.StakeholderEntry, error) {
	const query = `SELECT id, name, aliases, is_member, source_id FROM stakeholders ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.StakeholderEntry, 0, 32)
	for rows.Next() {
		s, err := scanStakeholder(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		entries = append(entries, s)
	}
	return entries, rows.Err()
}

func (repo *StakeholderRepo) Get(ctx context.Context, id int64) (*entity.StakeholderEntry, error) {
	const query = `SELECT id, name, aliases, is_member, source_id FROM stakeholders WHERE id = $1 LIMIT 1`
	s, err := scanStakeholder(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return s, nil
}

func (repo *StakeholderRepo) Create(ctx context.Context, s *entity.StakeholderEntry) error {
	if s.Name == "" {
		return fmt.Errorf("Create: %w", &entity.ValidationError{Field: "name", Message: "name is required"})
	}
	aliasesJSON, err := json.Marshal(nonNilStrings(s.Aliases))
	if err != nil {
		return fmt.Errorf("Create: marshal aliases: %w", err)
	}
	const query = `
INSERT INTO stakeholders (name, aliases, is_member, source_id)
VALUES ($1, $2, $3, $4)
RETURNING id`
	err = repo.db.QueryRowContext(ctx, query, s.Name, aliasesJSON, s.IsMember, nullInt64(s.SourceID)).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *StakeholderRepo) Update(ctx context.Context, s *entity.StakeholderEntry) error {
	if s.Name == "" {
		return fmt.Errorf("Update: %w", &entity.ValidationError{Field: "name", Message: "name is required"})
	}
	aliasesJSON, err := json.Marshal(nonNilStrings(s.Aliases))
	if err != nil {
		return fmt.Errorf("Update: marshal aliases: %w", err)
	}
	const query = `
UPDATE stakeholders SET name = $1, aliases = $2, is_member = $3, source_id = $4
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, s.Name, aliasesJSON, s.IsMember, nullInt64(s.SourceID), s.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *StakeholderRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM stakeholders WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
