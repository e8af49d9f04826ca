package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"

	"github.com/pgvector/pgvector-go"
)

// DefaultSearchTimeout bounds nearest-neighbor queries against either
// embedding index.
const DefaultSearchTimeout = 5 * time.Second

// ItemEmbeddingRepo implements repository.ItemEmbeddingRepository for
// PostgreSQL + pgvector. Both indices (dedupe, retrieval) share the same
// table, partitioned by the kind column and by partial ivfflat indexes so a
// query against one kind never scans the other's vectors.
type ItemEmbeddingRepo struct {
	db *sql.DB
}

func NewItemEmbeddingRepo(db *sql.DB) repository.ItemEmbeddingRepository {
	return &ItemEmbeddingRepo{db: db}
}

func (repo *ItemEmbeddingRepo) Upsert(ctx context.Context, embedding *entity.ItemEmbedding) error {
	if embedding == nil {
		return fmt.Errorf("Upsert: embedding is nil")
	}
	if err := embedding.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	vector := pgvector.NewVector(embedding.Vector)

	const query = `
INSERT INTO item_embeddings (item_id, kind, provider, model, dimension, embedding, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (item_id, kind)
DO UPDATE SET
	provider = EXCLUDED.provider,
	model = EXCLUDED.model,
	dimension = EXCLUDED.dimension,
	embedding = EXCLUDED.embedding,
	updated_at = NOW()
RETURNING id, created_at, updated_at`

	err := repo.db.QueryRowContext(ctx, query,
		embedding.ItemID, string(embedding.Kind), string(embedding.Provider),
		embedding.Model, embedding.Dimension, vector,
	).Scan(&embedding.ID, &embedding.CreatedAt, &embedding.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *ItemEmbeddingRepo) FindByItemID(ctx context.Context, itemID int64, kind entity.EmbeddingKind) (*entity.ItemEmbedding, error) {
	const query = `
SELECT id, item_id, kind, provider, model, dimension, embedding, created_at, updated_at
FROM item_embeddings
WHERE item_id = $1 AND kind = $2
LIMIT 1`

	var emb entity.ItemEmbedding
	var vector pgvector.Vector
	var kindStr, providerStr string

	err := repo.db.QueryRowContext(ctx, query, itemID, string(kind)).Scan(
		&emb.ID, &emb.ItemID, &kindStr, &providerStr, &emb.Model, &emb.Dimension,
		&vector, &emb.CreatedAt, &emb.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByItemID: %w", err)
	}
	emb.Kind = entity.EmbeddingKind(kindStr)
	emb.Provider = entity.EmbeddingProvider(providerStr)
	emb.Vector = vector.Slice()
	return &emb, nil
}

func (repo *ItemEmbeddingRepo) SearchNearest(ctx context.Context, kind entity.EmbeddingKind, vec []float32, limit int) ([]repository.SimilarItem, error) {
	searchCtx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	vector := pgvector.NewVector(vec)

	const query = `
SELECT item_id, 1 - (embedding <=> $1) AS similarity
FROM item_embeddings
WHERE kind = $2
ORDER BY embedding <=> $1
LIMIT $3`

	rows, err := repo.db.QueryContext(searchCtx, query, vector, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("SearchNearest: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarItem, 0, limit)
	for rows.Next() {
		var r repository.SimilarItem
		if err := rows.Scan(&r.ItemID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("SearchNearest: Scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (repo *ItemEmbeddingRepo) DeleteByItemID(ctx context.Context, itemID int64, kind entity.EmbeddingKind) error {
	const query = `DELETE FROM item_embeddings WHERE item_id = $1 AND kind = $2`
	_, err := repo.db.ExecContext(ctx, query, itemID, string(kind))
	if err != nil {
		return fmt.Errorf("DeleteByItemID: %w", err)
	}
	return nil
}

func (repo *ItemEmbeddingRepo) DeleteByItemIDs(ctx context.Context, itemIDs []int64, kind entity.EmbeddingKind) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM item_embeddings WHERE item_id = ANY($1) AND kind = $2`
	res, err := repo.db.ExecContext(ctx, query, itemIDs, string(kind))
	if err != nil {
		return 0, fmt.Errorf("DeleteByItemIDs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByItemIDs: RowsAffected: %w", err)
	}
	return n, nil
}
