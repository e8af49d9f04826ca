package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// ItemEventRepo implements repository.ItemEventRepository. The underlying
// table is append-only: there is deliberately no Update or Delete.
type ItemEventRepo struct{ db *sql.DB }

func NewItemEventRepo(db *sql.DB) repository.ItemEventRepository {
	return &ItemEventRepo{db: db}
}

func (repo *ItemEventRepo) Append(ctx context.Context, event *entity.ItemEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	const query = `
INSERT INTO item_events (item_id, kind, detail, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query, event.ItemID, string(event.Kind), event.Detail).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (repo *ItemEventRepo) ListByItem(ctx context.Context, itemID int64) ([]*entity.ItemEvent, error) {
	const query = `
SELECT id, item_id, kind, detail, created_at
FROM item_events
WHERE item_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := repo.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("ListByItem: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*entity.ItemEvent, 0, 16)
	for rows.Next() {
		var e entity.ItemEvent
		var kind string
		if err := rows.Scan(&e.ID, &e.ItemID, &kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByItem: Scan: %w", err)
		}
		e.Kind = entity.EventKind(kind)
		events = append(events, &e)
	}
	return events, rows.Err()
}
