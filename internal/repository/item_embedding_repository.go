package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// SimilarItem is the result of a nearest-neighbor vector search: the
// matched item id and its cosine similarity to the query vector, in [0,1].
type SimilarItem struct {
	ItemID     int64
	Similarity float64
}

// ItemEmbeddingRepository manages one of the two independent vector indices
// (dedupe, retrieval — see entity.EmbeddingKind). Both are keyed by item id
// and support batch add/delete (spec §4.4): the dedupe index must never be
// searched with a retrieval vector or vice versa, so callers always pass an
// explicit entity.EmbeddingKind rather than relying on a shared table scan.
type ItemEmbeddingRepository interface {
	// Upsert stores or replaces the embedding for (item id, kind). Only one
	// row exists per (item_id, kind) pair.
	Upsert(ctx context.Context, embedding *entity.ItemEmbedding) error

	FindByItemID(ctx context.Context, itemID int64, kind entity.EmbeddingKind) (*entity.ItemEmbedding, error)

	// SearchNearest returns the closest items by cosine distance within the
	// given kind's index, ordered by similarity descending.
	SearchNearest(ctx context.Context, kind entity.EmbeddingKind, vector []float32, limit int) ([]SimilarItem, error)

	// DeleteByItemID removes the embedding for (item id, kind). Used both by
	// the housekeeping sweep (both kinds) and by dedupe re-indexing.
	DeleteByItemID(ctx context.Context, itemID int64, kind entity.EmbeddingKind) error

	// DeleteByItemIDs is the batch form used by the housekeeping sweep so a
	// purge pass can clear both indices for many items in one round trip.
	DeleteByItemIDs(ctx context.Context, itemIDs []int64, kind entity.EmbeddingKind) (int64, error)
}
