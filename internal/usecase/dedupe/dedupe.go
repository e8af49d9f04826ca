// Package dedupe implements C4 Stages B and C of the deduplication layer:
// same-channel title similarity and cross-source paraphrase detection.
// Stage A (exact channel id / external id identity) lives directly in the
// ingestion pipeline (C3) since it is a single repository lookup with no
// further logic of its own.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agext/levenshtein"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/utils/text"
)

// ErrParaphraseUnavailable wraps any error from the embedding provider or
// the paraphrase vector index. Callers treat it as "skip Stage C, continue
// ingestion" per spec §4.4's failure semantics, emitting
// entity.EventDedupeParaphraseSkip rather than failing the fetch.
var ErrParaphraseUnavailable = errors.New("dedupe: paraphrase stage unavailable")

// Config holds the tunable dedupe thresholds. The paraphrase threshold is
// an explicit Open Question in spec §9: "assumed tunable, default 0.75" —
// modeled here as a plain field rather than a hardcoded constant so a
// deployment can override it without a code change.
type Config struct {
	// TitleSimilarityThreshold is the Stage B cutoff (spec §4.4: >= 0.85).
	TitleSimilarityThreshold float64
	// TitleWindow bounds how far back Stage B looks for candidates
	// (spec §4.4: published within the last 7 days).
	TitleWindow time.Duration
	// TitlePrefixLen is the case-folded title prefix length Stage B
	// candidates must share (spec §4.4: first 50 characters).
	TitlePrefixLen int
	// ParaphraseThreshold is the Stage C cosine-similarity cutoff
	// (spec §4.4: >= 0.75, tunable per the Open Question above).
	ParaphraseThreshold float64
	// ParaphraseContentChars bounds how much of an item's content feeds
	// the paraphrase embedding (spec §4.4: title + first 2000 chars).
	ParaphraseContentChars int
}

// DefaultConfig returns the reference thresholds named in spec §4.4.
func DefaultConfig() Config {
	return Config{
		TitleSimilarityThreshold: 0.85,
		TitleWindow:              7 * 24 * time.Hour,
		TitlePrefixLen:           50,
		ParaphraseThreshold:      0.75,
		ParaphraseContentChars:   2000,
	}
}

// EmbeddingProvider produces the paraphrase-purpose vector consulted by
// Stage C. It is intentionally narrower than the full embedding.Provider
// contract (spec §6 also defines embed-retrieval, which Stage C never
// touches — mixing the two semantic spaces is an explicit invariant
// violation per spec §4.4).
type EmbeddingProvider interface {
	EmbedParaphrase(ctx context.Context, text string) ([]float32, error)
}

// Stage implements Stage B (title similarity) and Stage C (paraphrase)
// lookups for the ingestion pipeline.
type Stage struct {
	Items      repository.ItemRepository
	Embeddings repository.ItemEmbeddingRepository
	Provider   EmbeddingProvider
	Config     Config
}

// New builds a Stage with the given collaborators and DefaultConfig.
func New(items repository.ItemRepository, embeddings repository.ItemEmbeddingRepository, provider EmbeddingProvider) *Stage {
	return &Stage{Items: items, Embeddings: embeddings, Provider: provider, Config: DefaultConfig()}
}

func titlePrefix(title string, n int) string {
	return strings.ToLower(text.TruncateRunes(title, n))
}

// TitleDuplicate implements Stage B: for same-channel items published
// within the configured window whose case-folded title prefix matches,
// compute a normalized Levenshtein similarity and return the earliest
// candidate at or above the threshold. Candidates are returned by the
// repository ordered first-seen ascending, so the first match at or above
// threshold is the canonical (spec §4.4: "similar-to points to the
// earliest matching candidate").
func (s *Stage) TitleDuplicate(ctx context.Context, channelID int64, title string, published time.Time) (canonicalID int64, found bool, err error) {
	prefix := titlePrefix(title, s.Config.TitlePrefixLen)
	since := published.Add(-s.Config.TitleWindow)

	candidates, err := s.Items.TitleCandidates(ctx, channelID, prefix, since)
	if err != nil {
		return 0, false, fmt.Errorf("title candidates: %w", err)
	}

	params := levenshtein.NewParams()
	for _, c := range candidates {
		similarity := levenshtein.Match(title, c.Title, params)
		if similarity >= s.Config.TitleSimilarityThreshold {
			return c.ItemID, true, nil
		}
	}
	return 0, false, nil
}

// ParaphraseDuplicate implements the lookup half of Stage C: embed title +
// first 2000 chars of content in the paraphrase semantic space and look up
// the nearest neighbor in the dedupe index, reporting a match at or above
// the configured cosine threshold. It never mutates the index — when no
// duplicate is found, the caller inserts the new item and then calls
// IndexParaphrase with the returned vector and the item's own id (spec
// §4.4: "On insertion of a non-duplicate, add its paraphrase vector to the
// index"), since the vector cannot be keyed before the item has an id. Any
// embedding-provider or index failure is wrapped in
// ErrParaphraseUnavailable so the caller can skip the stage rather than
// fail ingestion.
func (s *Stage) ParaphraseDuplicate(ctx context.Context, title, content string) (canonicalID int64, found bool, vector []float32, err error) {
	corpus := title + " " + text.TruncateRunes(content, s.Config.ParaphraseContentChars)

	vector, err = s.Provider.EmbedParaphrase(ctx, corpus)
	if err != nil {
		return 0, false, nil, fmt.Errorf("%w: %v", ErrParaphraseUnavailable, err)
	}

	neighbors, err := s.Embeddings.SearchNearest(ctx, entity.EmbeddingKindDedupe, vector, 1)
	if err != nil {
		return 0, false, nil, fmt.Errorf("%w: %v", ErrParaphraseUnavailable, err)
	}

	if len(neighbors) > 0 && neighbors[0].Similarity >= s.Config.ParaphraseThreshold {
		return neighbors[0].ItemID, true, vector, nil
	}
	return 0, false, vector, nil
}

// IndexParaphrase adds a non-duplicate item's paraphrase vector to the
// dedupe index, keyed by its item id, completing Stage C for that item.
func (s *Stage) IndexParaphrase(ctx context.Context, itemID int64, vector []float32) error {
	embedding := &entity.ItemEmbedding{
		ItemID:    itemID,
		Kind:      entity.EmbeddingKindDedupe,
		Provider:  entity.EmbeddingProviderOpenAI,
		Model:     "paraphrase",
		Dimension: int32(len(vector)),
		Vector:    vector,
	}
	if err := s.Embeddings.Upsert(ctx, embedding); err != nil {
		return fmt.Errorf("%w: index upsert: %v", ErrParaphraseUnavailable, err)
	}
	return nil
}
