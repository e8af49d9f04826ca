// Package ingest implements C3, the ingestion pipeline: the single entry
// point through which every connector-yielded item passes on its way into
// storage. It runs the identity and content-hash checks directly (each is
// a single repository lookup with no further logic of its own), delegates
// Stage B and Stage C of deduplication to the dedupe package, and hands
// canonical items to the classifier queue.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/connector"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/usecase/dedupe"
)

// ClassifierQueue accepts a freshly-ingested canonical item for C5
// classification. Implementations should prefer an in-memory "fresh" queue
// over forcing the item through the database backlog poll, per the fresh-
// queue-preempts-backlog ordering spec §4.6 requires downstream in the LLM
// worker.
type ClassifierQueue interface {
	Enqueue(ctx context.Context, item *entity.Item) error
}

// Pipeline implements scheduler.Ingester against a store, an audit trail,
// the dedupe stages, and the classifier queue.
type Pipeline struct {
	Items      repository.ItemRepository
	Events     repository.ItemEventRepository
	Dedupe     *dedupe.Stage
	Classifier ClassifierQueue
	Metrics    *Metrics
}

// New builds a Pipeline from its collaborators.
func New(items repository.ItemRepository, events repository.ItemEventRepository, dedupeStage *dedupe.Stage, classifier ClassifierQueue, metrics *Metrics) *Pipeline {
	return &Pipeline{Items: items, Events: events, Dedupe: dedupeStage, Classifier: classifier, Metrics: metrics}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// emptyContentHash is the "distinguished sentinel" spec §4.3 calls for when
// content is empty. It deliberately isn't sha256 of the empty string: two
// unrelated items that both happen to have no content (a bare link post, a
// failed extraction) share no real similarity, so the sentinel is treated
// as "no content-hash dedupe key" rather than a hash every empty item
// collides on.
const emptyContentHash = "sentinel:empty-content"

// normalizedContentHash computes the content-hash dedupe key: lowercase,
// whitespace-collapsed content, sha256-hex encoded. The exact normalization
// is an implementer's choice (spec §9 Open Question); the only invariant
// that must hold is that identical visible text always hashes identically
// regardless of surrounding whitespace or case. Empty (post-normalization)
// content maps to emptyContentHash instead of hashing, so unrelated
// empty-body items never collapse into the same dedupe group.
func normalizedContentHash(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(whitespaceRun.ReplaceAllString(content, " ")))
	if normalized == "" {
		return emptyContentHash
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func sourceDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Ingest runs one connector-yielded item through identity dedupe,
// content-hash dedupe, Stage B and Stage C, in that order, stopping at the
// first match found (spec §4.3). A non-duplicate is inserted, audited,
// indexed into the paraphrase space, and handed to the classifier queue.
func (p *Pipeline) Ingest(ctx context.Context, channel *entity.Channel, fi connector.FetchedItem) error {
	if existing, err := p.Items.FindByIdentity(ctx, channel.ID, fi.ExternalID); err == nil {
		p.recordEvent(ctx, existing.ID, entity.EventDeduplicated, "identity")
		p.Metrics.RecordDuplicate("identity")
		return nil
	} else if !errors.Is(err, entity.ErrNotFound) {
		return fmt.Errorf("identity lookup: %w", err)
	}

	published := fi.PublishedAt
	if published.IsZero() {
		published = time.Now()
	}

	item := &entity.Item{
		ChannelID:          channel.ID,
		ExternalID:         fi.ExternalID,
		Title:              fi.Title,
		Content:            fi.Content,
		URL:                fi.URL,
		Author:             fi.Author,
		PublishedAt:        published,
		ContentHash:        normalizedContentHash(fi.Content),
		Priority:           entity.PriorityNone,
		PriorityScore:      0,
		NeedsLLMProcessing: true,
		Metadata:           map[string]string{},
	}
	if domain := sourceDomain(fi.URL); domain != "" {
		item.Metadata[entity.MetaSourceDomain] = domain
	}

	if item.ContentHash != emptyContentHash {
		if canonical, err := p.Items.FindByContentHash(ctx, item.ContentHash); err == nil {
			return p.insertDuplicate(ctx, item, canonical.ID, "content-hash")
		} else if !errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("content hash lookup: %w", err)
		}
	}

	if canonicalID, found, err := p.Dedupe.TitleDuplicate(ctx, channel.ID, fi.Title, published); err != nil {
		return fmt.Errorf("title dedupe: %w", err)
	} else if found {
		return p.insertDuplicate(ctx, item, canonicalID, "title-similarity")
	}

	canonicalID, found, vector, err := p.Dedupe.ParaphraseDuplicate(ctx, fi.Title, fi.Content)
	switch {
	case err != nil && errors.Is(err, dedupe.ErrParaphraseUnavailable):
		slog.WarnContext(ctx, "paraphrase dedupe unavailable, ingesting without it",
			slog.Int64("channel_id", channel.ID), slog.String("error", err.Error()))
		return p.insertCanonical(ctx, item, nil, true)
	case err != nil:
		return fmt.Errorf("paraphrase dedupe: %w", err)
	case found:
		return p.insertDuplicate(ctx, item, canonicalID, "paraphrase")
	default:
		return p.insertCanonical(ctx, item, vector, false)
	}
}

// insertDuplicate stores item as a tagged duplicate of canonicalID: it is
// kept and auditable, but excluded from classifier/LLM processing (spec
// §4.3/§4.4).
func (p *Pipeline) insertDuplicate(ctx context.Context, item *entity.Item, canonicalID int64, reason string) error {
	canonical := canonicalID
	item.SimilarTo = &canonical
	item.NeedsLLMProcessing = false

	if err := p.Items.Create(ctx, item); err != nil {
		if errors.Is(err, entity.ErrValidationFailed) {
			// Another concurrent fetch already claimed this (channel_id,
			// external_id) pair; the store conflict is itself an identity
			// duplicate (spec §4.3: a store conflict is treated as an
			// identity duplicate).
			p.Metrics.RecordDuplicate("identity-race")
			return nil
		}
		return fmt.Errorf("create duplicate item: %w", err)
	}

	p.recordEvent(ctx, item.ID, entity.EventDeduplicated, reason)
	p.Metrics.RecordDuplicate(reason)
	return nil
}

// insertCanonical stores item as a fresh, non-duplicate item: audited,
// indexed into the paraphrase space (unless skipped is true), and enqueued
// for classification.
func (p *Pipeline) insertCanonical(ctx context.Context, item *entity.Item, vector []float32, skipped bool) error {
	if err := p.Items.Create(ctx, item); err != nil {
		if errors.Is(err, entity.ErrValidationFailed) {
			p.Metrics.RecordDuplicate("identity-race")
			return nil
		}
		return fmt.Errorf("create item: %w", err)
	}

	p.recordEvent(ctx, item.ID, entity.EventIngested, "")
	p.Metrics.RecordIngested()

	if skipped {
		p.recordEvent(ctx, item.ID, entity.EventDedupeParaphraseSkip, "provider or index unavailable")
	} else if vector != nil {
		if err := p.Dedupe.IndexParaphrase(ctx, item.ID, vector); err != nil {
			slog.WarnContext(ctx, "failed to index paraphrase vector",
				slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		}
	}

	if err := p.Classifier.Enqueue(ctx, item); err != nil {
		slog.WarnContext(ctx, "classifier enqueue failed, item remains visible to the classifier backlog poll",
			slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
	}
	return nil
}

func (p *Pipeline) recordEvent(ctx context.Context, itemID int64, kind entity.EventKind, detail string) {
	event := &entity.ItemEvent{ItemID: itemID, Kind: kind, Detail: detail, CreatedAt: time.Now()}
	if err := p.Events.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to append item event",
			slog.Int64("item_id", itemID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}
