package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// HousekeepingRepo implements repository.HousekeepingConfigRepository
// against the singleton housekeeping_config row seeded by the migration.
type HousekeepingRepo struct{ db *sql.DB }

// NewHousekeepingRepo returns the concrete *HousekeepingRepo rather than
// the narrower repository.HousekeepingConfigRepository interface so callers
// can also wire it in as a repository.ItemPurger for the retention sweep's
// atomic purge (spec §5).
func NewHousekeepingRepo(db *sql.DB) *HousekeepingRepo {
	return &HousekeepingRepo{db: db}
}

func (repo *HousekeepingRepo) Get(ctx context.Context) (*entity.HousekeepingConfig, error) {
	const query = `
SELECT retention_days_high, retention_days_medium, retention_days_low, retention_days_none,
       auto_purge_enabled, exclude_starred
FROM housekeeping_config
WHERE id = 1
LIMIT 1`
	var cfg entity.HousekeepingConfig
	err := repo.db.QueryRowContext(ctx, query).Scan(
		&cfg.RetentionDaysHigh, &cfg.RetentionDaysMedium, &cfg.RetentionDaysLow, &cfg.RetentionDaysNone,
		&cfg.AutoPurgeEnabled, &cfg.ExcludeStarred,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &cfg, nil
}

// PurgeItem implements repository.ItemPurger: it deletes the item row and
// every item_embeddings row for it (both the dedupe and retrieval kinds,
// which share one table keyed by item_id) inside a single transaction, so
// a failure partway through rolls back the whole purge and leaves the item
// in place, per spec §5's atomic-purge contract.
func (repo *HousekeepingRepo) PurgeItem(ctx context.Context, itemID int64) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("PurgeItem: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("PurgeItem: delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_embeddings WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("PurgeItem: delete embeddings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("PurgeItem: commit: %w", err)
	}
	return nil
}

func (repo *HousekeepingRepo) Save(ctx context.Context, cfg *entity.HousekeepingConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	const query = `
UPDATE housekeeping_config SET
	retention_days_high = $1, retention_days_medium = $2, retention_days_low = $3,
	retention_days_none = $4, auto_purge_enabled = $5, exclude_starred = $6
WHERE id = 1`
	_, err := repo.db.ExecContext(ctx, query,
		cfg.RetentionDaysHigh, cfg.RetentionDaysMedium, cfg.RetentionDaysLow, cfg.RetentionDaysNone,
		cfg.AutoPurgeEnabled, cfg.ExcludeStarred,
	)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}
