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

type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

const itemColumns = `
id, channel_id, external_id, title, content, url, author, published_at,
first_seen_at, content_hash, summary, detailed_analysis, priority,
priority_score, assigned_groups, tags, is_read, is_starred, is_archived,
needs_llm_processing, metadata, similar_to, revision`

func scanItem(scanner interface {
	Scan(dest ...any) error
}) (*entity.Item, error) {
	var it entity.Item
	var priority string
	var assignedGroupsJSON, tagsJSON, metadataJSON []byte
	var url, author sql.NullString
	var publishedAt sql.NullTime
	var similarTo sql.NullInt64

	if err := scanner.Scan(
		&it.ID, &it.ChannelID, &it.ExternalID, &it.Title, &it.Content, &url, &author,
		&publishedAt, &it.FirstSeenAt, &it.ContentHash, &it.Summary, &it.DetailedAnalysis,
		&priority, &it.PriorityScore, &assignedGroupsJSON, &tagsJSON, &it.IsRead,
		&it.IsStarred, &it.IsArchived, &it.NeedsLLMProcessing, &metadataJSON, &similarTo, &it.Revision,
	); err != nil {
		return nil, err
	}

	it.Priority = entity.Priority(priority)
	it.URL = url.String
	it.Author = author.String
	if publishedAt.Valid {
		it.PublishedAt = publishedAt.Time
	}
	if similarTo.Valid {
		id := similarTo.Int64
		it.SimilarTo = &id
	}
	if len(assignedGroupsJSON) > 0 {
		if err := json.Unmarshal(assignedGroupsJSON, &it.AssignedGroups); err != nil {
			return nil, fmt.Errorf("unmarshal assigned_groups: %w", err)
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &it.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &it.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &it, nil
}

func (repo *ItemRepo) Get(ctx context.Context, id int64) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 LIMIT 1`
	it, err := scanItem(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return it, nil
}

func (repo *ItemRepo) FindByIdentity(ctx context.Context, channelID int64, externalID string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE channel_id = $1 AND external_id = $2 LIMIT 1`
	it, err := scanItem(repo.db.QueryRowContext(ctx, query, channelID, externalID))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByIdentity: %w", err)
	}
	return it, nil
}

func (repo *ItemRepo) FindByContentHash(ctx context.Context, hash string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE content_hash = $1 ORDER BY first_seen_at ASC LIMIT 1`
	it, err := scanItem(repo.db.QueryRowContext(ctx, query, hash))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByContentHash: %w", err)
	}
	return it, nil
}

func (repo *ItemRepo) TitleCandidates(ctx context.Context, channelID int64, prefix string, since time.Time) ([]repository.TitleCandidate, error) {
	const query = `
SELECT id, title, published_at
FROM items
WHERE channel_id = $1
  AND published_at >= $2
  AND lower(left(title, 50)) = lower($3)
ORDER BY first_seen_at ASC`
	rows, err := repo.db.QueryContext(ctx, query, channelID, since, prefix)
	if err != nil {
		return nil, fmt.Errorf("TitleCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]repository.TitleCandidate, 0, 8)
	for rows.Next() {
		var c repository.TitleCandidate
		if err := rows.Scan(&c.ItemID, &c.Title, &c.PublishedAt); err != nil {
			return nil, fmt.Errorf("TitleCandidates: Scan: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (repo *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	groupsJSON, err := json.Marshal(nonNilStrings(item.AssignedGroups))
	if err != nil {
		return fmt.Errorf("Create: marshal assigned_groups: %w", err)
	}
	tagsJSON, err := json.Marshal(nonNilStrings(item.Tags))
	if err != nil {
		return fmt.Errorf("Create: marshal tags: %w", err)
	}
	metadataJSON, err := json.Marshal(nonNilMetadata(item.Metadata))
	if err != nil {
		return fmt.Errorf("Create: marshal metadata: %w", err)
	}

	const query = `
INSERT INTO items (
	channel_id, external_id, title, content, url, author, published_at,
	first_seen_at, content_hash, summary, detailed_analysis, priority,
	priority_score, assigned_groups, tags, is_read, is_starred, is_archived,
	needs_llm_processing, metadata, similar_to, revision
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
	$13, $14, $15, $16, $17, $18, $19, $20, $21, $22
)
ON CONFLICT (channel_id, external_id) DO NOTHING
RETURNING id, first_seen_at`

	err = repo.db.QueryRowContext(ctx, query,
		item.ChannelID, item.ExternalID, item.Title, item.Content, nullString(item.URL), nullString(item.Author),
		nullTime(item.PublishedAt), firstSeenOrNow(item.FirstSeenAt), item.ContentHash, item.Summary,
		item.DetailedAnalysis, string(item.Priority), item.PriorityScore, groupsJSON, tagsJSON,
		item.IsRead, item.IsStarred, item.IsArchived, item.NeedsLLMProcessing, metadataJSON,
		nullInt64(item.SimilarTo), item.Revision,
	).Scan(&item.ID, &item.FirstSeenAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("Create: %w", entity.ErrValidationFailed)
	}
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	groupsJSON, err := json.Marshal(nonNilStrings(item.AssignedGroups))
	if err != nil {
		return fmt.Errorf("Update: marshal assigned_groups: %w", err)
	}
	tagsJSON, err := json.Marshal(nonNilStrings(item.Tags))
	if err != nil {
		return fmt.Errorf("Update: marshal tags: %w", err)
	}
	metadataJSON, err := json.Marshal(nonNilMetadata(item.Metadata))
	if err != nil {
		return fmt.Errorf("Update: marshal metadata: %w", err)
	}

	const query = `
UPDATE items SET
	title = $1, content = $2, url = $3, author = $4, published_at = $5,
	content_hash = $6, summary = $7, detailed_analysis = $8, priority = $9,
	priority_score = $10, assigned_groups = $11, tags = $12, is_read = $13,
	is_starred = $14, is_archived = $15, needs_llm_processing = $16,
	metadata = $17, similar_to = $18, revision = revision + 1
WHERE id = $19 AND revision = $20`

	res, err := repo.db.ExecContext(ctx, query,
		item.Title, item.Content, nullString(item.URL), nullString(item.Author), nullTime(item.PublishedAt),
		item.ContentHash, item.Summary, item.DetailedAnalysis, string(item.Priority), item.PriorityScore,
		groupsJSON, tagsJSON, item.IsRead, item.IsStarred, item.IsArchived, item.NeedsLLMProcessing,
		metadataJSON, nullInt64(item.SimilarTo), item.ID, item.Revision,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	item.Revision++
	return nil
}

func (repo *ItemRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM items WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *ItemRepo) MarkSimilarTo(ctx context.Context, duplicateID, canonicalID int64) error {
	const query = `UPDATE items SET similar_to = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, canonicalID, duplicateID)
	if err != nil {
		return fmt.Errorf("MarkSimilarTo: %w", err)
	}
	return nil
}

func (repo *ItemRepo) ListClassifierBacklog(ctx context.Context, limit int) ([]*entity.Item, error) {
	const query = `SELECT ` + itemColumns + `
FROM items
WHERE metadata->>'` + entity.MetaRetryPriority + `' IS NULL
  AND similar_to IS NULL
ORDER BY first_seen_at ASC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListClassifierBacklog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (repo *ItemRepo) ListLLMBacklog(ctx context.Context, limit int) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
FROM items
WHERE needs_llm_processing = TRUE
  AND metadata->>'` + entity.MetaRetryPriority + `' IS NOT NULL
  AND metadata->>'` + entity.MetaRetryPriority + `' != $1
ORDER BY
  CASE metadata->>'` + entity.MetaRetryPriority + `'
    WHEN $2 THEN 0
    WHEN $3 THEN 1
    WHEN $4 THEN 2
    ELSE 3
  END,
  first_seen_at ASC
LIMIT $5`
	rows, err := repo.db.QueryContext(ctx, query,
		string(entity.RetryPriorityLow),
		string(entity.RetryPriorityHigh), string(entity.RetryPriorityUnknown), string(entity.RetryPriorityEdgeCase),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListLLMBacklog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (repo *ItemRepo) ListPurgeCandidates(ctx context.Context, priority entity.Priority, cutoff time.Time, excludeStarred bool) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
FROM items
WHERE priority = $1 AND first_seen_at < $2`
	args := []any{string(priority), cutoff}
	if excludeStarred {
		query += ` AND is_starred = FALSE`
	}
	query += `
ORDER BY first_seen_at ASC`
	return repo.queryItems(ctx, query, args...)
}

func (repo *ItemRepo) ExistsByIdentityBatch(ctx context.Context, channelID int64, externalIDs []string) (map[string]bool, error) {
	if len(externalIDs) == 0 {
		return make(map[string]bool), nil
	}
	const query = `SELECT external_id FROM items WHERE channel_id = $1 AND external_id = ANY($2)`
	rows, err := repo.db.QueryContext(ctx, query, channelID, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("ExistsByIdentityBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(externalIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistsByIdentityBatch: Scan: %w", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (repo *ItemRepo) ListBriefingCandidates(ctx context.Context, minPriority entity.Priority, since time.Time, includeRead bool) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
FROM items
WHERE similar_to IS NULL
  AND first_seen_at >= $1
  AND CASE priority
        WHEN '` + string(entity.PriorityHigh) + `' THEN 3
        WHEN '` + string(entity.PriorityMedium) + `' THEN 2
        WHEN '` + string(entity.PriorityLow) + `' THEN 1
        ELSE 0
      END >= $2`
	args := []any{since, entity.PriorityRank(minPriority)}
	if !includeRead {
		query += ` AND is_read = FALSE`
	}
	query += `
ORDER BY
  CASE priority
    WHEN '` + string(entity.PriorityHigh) + `' THEN 3
    WHEN '` + string(entity.PriorityMedium) + `' THEN 2
    WHEN '` + string(entity.PriorityLow) + `' THEN 1
    ELSE 0
  END DESC,
  first_seen_at DESC`

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListBriefingCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (repo *ItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]*entity.Item, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queryItems: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]*entity.Item, error) {
	items := make([]*entity.Item, 0, 64)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("collectItems: Scan: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func firstSeenOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
