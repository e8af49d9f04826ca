package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) repository.RuleRepository {
	return &RuleRepo{db: db}
}

const ruleColumns = `id, name, kind, pattern, priority_delta, forced_target_priority, enabled, ordering_key`

func scanRule(scanner interface {
	Scan(dest ...any) error
}) (*entity.Rule, error) {
	var r entity.Rule
	var kind string
	var forced sql.NullString

	if err := scanner.Scan(&r.ID, &r.Name, &kind, &r.Pattern, &r.PriorityDelta, &forced, &r.Enabled, &r.OrderingKey); err != nil {
		return nil, err
	}
	r.Kind = entity.RuleKind(kind)
	if forced.Valid {
		r.ForcedTargetPriority = entity.Priority(forced.String)
	}
	return &r, nil
}

func (repo *RuleRepo) Get(ctx context.Context, id int64) (*entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1 LIMIT 1`
	r, err := scanRule(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return r, nil
}

func (repo *RuleRepo) ListEnabledOrdered(ctx context.Context) ([]*entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE enabled = TRUE ORDER BY ordering_key ASC, id ASC`
	return repo.queryRules(ctx, query)
}

func (repo *RuleRepo) List(ctx context.Context) ([]*entity.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules ORDER BY ordering_key ASC, id ASC`
	return repo.queryRules(ctx, query)
}

func (repo *RuleRepo) queryRules(ctx context.Context, query string, args ...any) ([]*entity.Rule, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queryRules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := make([]*entity.Rule, 0, 32)
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("queryRules: Scan: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (repo *RuleRepo) Create(ctx context.Context, rule *entity.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	const query = `
INSERT INTO rules (name, kind, pattern, priority_delta, forced_target_priority, enabled, ordering_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		rule.Name, string(rule.Kind), rule.Pattern, rule.PriorityDelta,
		nullString(string(rule.ForcedTargetPriority)), rule.Enabled, rule.OrderingKey,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *RuleRepo) Update(ctx context.Context, rule *entity.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	const query = `
UPDATE rules SET
	name = $1, kind = $2, pattern = $3, priority_delta = $4,
	forced_target_priority = $5, enabled = $6, ordering_key = $7
WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, query,
		rule.Name, string(rule.Kind), rule.Pattern, rule.PriorityDelta,
		nullString(string(rule.ForcedTargetPriority)), rule.Enabled, rule.OrderingKey, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *RuleRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM rules WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
