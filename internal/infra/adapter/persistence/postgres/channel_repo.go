package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, source_id, kind, config, enabled, poll_interval_min, last_polled_at, last_error`

func scanChannel(scanner interface {
	Scan(dest ...any) error
}) (*entity.Channel, error) {
	var c entity.Channel
	var kind string
	var configJSON []byte
	var lastPolledAt sql.NullTime
	var lastError sql.NullString

	if err := scanner.Scan(&c.ID, &c.SourceID, &kind, &configJSON, &c.Enabled, &c.PollIntervalMin, &lastPolledAt, &lastError); err != nil {
		return nil, err
	}
	c.Kind = entity.ConnectorKind(kind)
	c.LastError = lastError.String
	if lastPolledAt.Valid {
		t := lastPolledAt.Time
		c.LastPolledAt = &t
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &c.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	return &c, nil
}

func (repo *ChannelRepo) Get(ctx context.Context, id int64) (*entity.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = $1 LIMIT 1`
	c, err := scanChannel(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (repo *ChannelRepo) List(ctx context.Context) ([]*entity.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels ORDER BY id ASC`
	return repo.queryChannels(ctx, query)
}

func (repo *ChannelRepo) ListBySource(ctx context.Context, sourceID int64) ([]*entity.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE source_id = $1 ORDER BY id ASC`
	return repo.queryChannels(ctx, query, sourceID)
}

func (repo *ChannelRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Channel, error) {
	query := `SELECT ` + channelColumns + `
FROM channels
WHERE enabled = TRUE
  AND (last_polled_at IS NULL OR last_polled_at + (poll_interval_min || ' minutes')::interval <= $1)
ORDER BY id ASC`
	return repo.queryChannels(ctx, query, now)
}

func (repo *ChannelRepo) queryChannels(ctx context.Context, query string, args ...any) ([]*entity.Channel, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queryChannels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	channels := make([]*entity.Channel, 0, 32)
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("queryChannels: Scan: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (repo *ChannelRepo) Create(ctx context.Context, channel *entity.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	configJSON, err := json.Marshal(nonNilConfig(channel.Config))
	if err != nil {
		return fmt.Errorf("Create: marshal config: %w", err)
	}
	const query = `
INSERT INTO channels (source_id, kind, config, enabled, poll_interval_min, last_polled_at, last_error)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	err = repo.db.QueryRowContext(ctx, query,
		channel.SourceID, string(channel.Kind), configJSON, channel.Enabled,
		channel.PollIntervalMin, nullTime(derefTime(channel.LastPolledAt)), nullString(channel.LastError),
	).Scan(&channel.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ChannelRepo) Update(ctx context.Context, channel *entity.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	configJSON, err := json.Marshal(nonNilConfig(channel.Config))
	if err != nil {
		return fmt.Errorf("Update: marshal config: %w", err)
	}
	const query = `
UPDATE channels SET
	source_id = $1, kind = $2, config = $3, enabled = $4,
	poll_interval_min = $5, last_polled_at = $6, last_error = $7
WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, query,
		channel.SourceID, string(channel.Kind), configJSON, channel.Enabled,
		channel.PollIntervalMin, nullTime(derefTime(channel.LastPolledAt)), nullString(channel.LastError), channel.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *ChannelRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM channels WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *ChannelRepo) MarkPolled(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE channels SET last_polled_at = $1, last_error = '' WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	if err != nil {
		return fmt.Errorf("MarkPolled: %w", err)
	}
	return nil
}

func (repo *ChannelRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	const query = `UPDATE channels SET last_error = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, errMsg, id)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return nil
}

func nonNilConfig(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
