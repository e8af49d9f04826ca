package repository

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// TitleCandidate is a narrow projection used by the C4 Stage B title-similarity
// dedupe check: same-channel items published recently whose case-folded title
// prefix matches the incoming item's.
type TitleCandidate struct {
	ItemID      int64
	Title       string
	PublishedAt time.Time
}

// RetryPriorityOrder is the backlog-queue ordering used by ListLLMBacklog:
// high items first, then unknown, then edge_case (spec §4.6). Items with
// retry-priority "low" are never selected.
var RetryPriorityOrder = []entity.RetryPriority{
	entity.RetryPriorityHigh,
	entity.RetryPriorityUnknown,
	entity.RetryPriorityEdgeCase,
}

// ItemRepository persists Item entities and backs every dedupe, classifier,
// and LLM-worker query the pipeline needs.
type ItemRepository interface {
	Get(ctx context.Context, id int64) (*entity.Item, error)

	// FindByIdentity implements C4 Stage A: exact (channel id, external id)
	// lookup. Returns entity.ErrNotFound if no item exists.
	FindByIdentity(ctx context.Context, channelID int64, externalID string) (*entity.Item, error)

	// FindByContentHash looks up any item — on any channel — sharing the
	// same normalized content hash (C3 step 2). Returns the earliest such
	// item (by first-seen) as the canonical, or entity.ErrNotFound.
	FindByContentHash(ctx context.Context, hash string) (*entity.Item, error)

	// TitleCandidates returns same-channel items published within the given
	// window whose case-folded title prefix equals prefix, ordered by
	// first-seen ascending (earliest first, per spec §4.4 Stage B).
	TitleCandidates(ctx context.Context, channelID int64, prefix string, since time.Time) ([]TitleCandidate, error)

	// Create inserts a new item. Must be atomic with the (channel_id,
	// external_id) uniqueness constraint: a conflict is surfaced as
	// entity.ErrValidationFailed so the caller can treat it as
	// already-exists (spec §4.3).
	Create(ctx context.Context, item *entity.Item) error

	Update(ctx context.Context, item *entity.Item) error
	Delete(ctx context.Context, id int64) error

	// MarkSimilarTo records that item duplicateID is a duplicate of
	// canonicalID without deleting it (spec §4.3/§4.4: duplicates are kept,
	// tagged, and excluded from classifier/LLM queues).
	MarkSimilarTo(ctx context.Context, duplicateID, canonicalID int64) error

	// ListClassifierBacklog returns items with no classifier result yet,
	// consulted when the in-memory classifier queue (§4.3 step 6) is empty.
	ListClassifierBacklog(ctx context.Context, limit int) ([]*entity.Item, error)

	// ListLLMBacklog returns items with needs-llm-processing = true and
	// retry-priority != low, ordered per RetryPriorityOrder then by
	// first-seen ascending, batched per spec §4.6 (reference batch size 50).
	ListLLMBacklog(ctx context.Context, limit int) ([]*entity.Item, error)

	// ListPurgeCandidates returns items of the given priority whose
	// first-seen predates cutoff, for the housekeeping sweep (C8). The
	// starred exemption is applied by the caller via entity.Eligible, or
	// by passing excludeStarred to filter in SQL.
	ListPurgeCandidates(ctx context.Context, priority entity.Priority, cutoff time.Time, excludeStarred bool) ([]*entity.Item, error)

	// CountByChannelAndExternalIDs supports batch identity-dedupe checks
	// during high-throughput fetch fan-in, mirroring the teacher's
	// ExistsByURLBatch N+1 avoidance pattern.
	ExistsByIdentityBatch(ctx context.Context, channelID int64, externalIDs []string) (map[string]bool, error)

	// ListBriefingCandidates returns items eligible for the briefing export
	// (spec §6): first-seen at or after since, priority rank at or above
	// minPriority, and (includeRead or not is-read). Duplicates (SimilarTo
	// set) are excluded. Ordered by priority descending then first-seen
	// descending, per spec §6.
	ListBriefingCandidates(ctx context.Context, minPriority entity.Priority, since time.Time, includeRead bool) ([]*entity.Item, error)
}
