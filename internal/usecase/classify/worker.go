// Package classify implements the C5 classifier worker (spec §4.5): a
// single long-lived worker that computes a retrieval embedding per item,
// feeds it to a multi-output classifier, and derives a retry-priority
// bucket that gates the C6 LLM worker. It follows the teacher's
// usecase/notify.Service lifecycle shape via the shared workerctl
// controller, and the teacher's processFeedItems per-item error isolation:
// one item's failure never aborts the worker loop, it only counts toward
// the repeated-failure latch.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/classifier"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/usecase/workerctl"
	"catchup-feed/internal/utils/text"
)

// EmbeddingProvider produces the retrieval-purpose vector the classifier
// consumes. Intentionally narrower than the full embedding.Provider
// contract, mirroring dedupe.EmbeddingProvider's narrowing for Stage C.
type EmbeddingProvider interface {
	EmbedRetrieval(ctx context.Context, text string) ([]float32, error)
}

// LLMQueue accepts a classified item for C6 analysis. Implementations
// should prefer an in-memory fresh queue, per spec §4.6's fresh-queue-
// preempts-backlog ordering.
type LLMQueue interface {
	Enqueue(ctx context.Context, item *entity.Item) error
}

// RuleEngine applies C7's rule evaluation to an item. The classifier worker
// invokes it directly for retry-priority "low" items, which never reach
// the LLM worker (spec §4.7: "or, for items with retry-priority = low,
// directly after classification").
type RuleEngine interface {
	Apply(ctx context.Context, item *entity.Item) error
}

// Worker drains Queue and, once it is empty, polls the database backlog for
// items with no classifier result yet.
type Worker struct {
	Items      repository.ItemRepository
	Events     repository.ItemEventRepository
	Embeddings EmbeddingProvider
	Classifier classifier.Provider
	Queue      *Queue
	LLM        LLMQueue
	Rules      RuleEngine
	Config     Config
	ClassifierConfig classifier.Config
	Metrics    *Metrics

	ctl *workerctl.Controller
}

// New builds a Worker with DefaultConfig and classifier.DefaultConfig.
func New(items repository.ItemRepository, events repository.ItemEventRepository, embeddings EmbeddingProvider, classifierProvider classifier.Provider, queue *Queue, llmQueue LLMQueue, rules RuleEngine, metrics *Metrics) *Worker {
	return &Worker{
		Items:            items,
		Events:           events,
		Embeddings:       embeddings,
		Classifier:       classifierProvider,
		Queue:            queue,
		LLM:              llmQueue,
		Rules:            rules,
		Config:           DefaultConfig(),
		ClassifierConfig: classifier.DefaultConfig(),
		Metrics:          metrics,
		ctl:              workerctl.NewController(),
	}
}

func (w *Worker) Pause()  { w.ctl.Pause() }
func (w *Worker) Resume() { w.ctl.Resume() }
func (w *Worker) Stop(ctx context.Context) error { return w.ctl.Stop(ctx) }
func (w *Worker) Status() workerctl.Status       { return w.ctl.Status() }

// Run starts the drain-then-poll loop and blocks until ctx is cancelled or
// the worker latches after too many consecutive failures. Intended to be
// launched on its own goroutine by cmd/worker.
func (w *Worker) Run(ctx context.Context) {
	runCtx := w.ctl.Start()
	consecutiveFailures := 0

	for {
		select {
		case <-runCtx.Done():
			return
		case <-ctx.Done():
			return
		default:
		}

		if w.ctl.IsPaused() {
			time.Sleep(time.Second)
			continue
		}

		if w.Metrics != nil {
			w.Metrics.RecordQueueDepth(w.Queue.Len())
		}

		item, ok := w.dequeue(runCtx)
		if !ok {
			continue
		}

		if err := w.processItem(runCtx, item); err != nil {
			consecutiveFailures++
			w.ctl.RecordError(err)
			if w.Metrics != nil {
				w.Metrics.RecordConsecutiveFailures(consecutiveFailures)
			}
			slog.ErrorContext(runCtx, "classify item failed",
				slog.Int64("item_id", item.ID), slog.Int("consecutive_failures", consecutiveFailures),
				slog.String("error", err.Error()))
			if consecutiveFailures >= w.Config.MaxConsecutiveFailures {
				w.ctl.Latch(fmt.Errorf("classifier latched after %d consecutive failures: %w", consecutiveFailures, err))
				slog.ErrorContext(runCtx, "classifier worker latched, manual restart required",
					slog.Int("consecutive_failures", consecutiveFailures))
				return
			}
			continue
		}

		consecutiveFailures = 0
		w.ctl.RecordSuccess(time.Now())
		if w.Metrics != nil {
			w.Metrics.RecordConsecutiveFailures(0)
		}
	}
}

// dequeue takes one item from the fresh queue if available, else polls the
// database backlog. The backlog poll blocks briefly (BacklogPollInterval)
// when it returns nothing, to avoid a tight busy loop.
func (w *Worker) dequeue(ctx context.Context) (*entity.Item, bool) {
	select {
	case item := <-w.Queue.ch:
		return item, true
	default:
	}

	backlog, err := w.Items.ListClassifierBacklog(ctx, w.Config.BacklogBatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "list classifier backlog failed", slog.String("error", err.Error()))
		time.Sleep(w.Config.BacklogPollInterval)
		return nil, false
	}
	if len(backlog) == 0 {
		select {
		case item := <-w.Queue.ch:
			return item, true
		case <-time.After(w.Config.BacklogPollInterval):
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
	return backlog[0], true
}

// deriveRetryPriority maps a classifier outcome to a retry-priority bucket
// per the table in spec §4.5.
func deriveRetryPriority(out classifier.Output, threshold float64) entity.RetryPriority {
	if out.Confidence < threshold {
		return entity.RetryPriorityEdgeCase
	}
	if out.Relevant {
		return entity.RetryPriorityHigh
	}
	return entity.RetryPriorityLow
}

// processItem computes the retrieval embedding, classifies it, writes the
// classifier's suggestions into metadata without touching the item's
// first-class priority/assigned-groups (those stay authoritative only
// after §4.6/§4.7), persists, audits, and hands the item to the LLM worker
// unless its retry-priority is low.
func (w *Worker) processItem(ctx context.Context, item *entity.Item) error {
	corpus := item.Title + " " + text.TruncateRunes(item.Content, w.Config.ContentChars)

	var retryPriority entity.RetryPriority
	var confidence float64
	var suggestedGroups []string
	var suggestedPriority entity.Priority

	vector, err := w.Embeddings.EmbedRetrieval(ctx, corpus)
	switch {
	case err != nil:
		slog.WarnContext(ctx, "embed retrieval failed, marking unknown",
			slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		retryPriority = entity.RetryPriorityUnknown
	default:
		output, clsErr := w.Classifier.Classify(ctx, vector)
		if clsErr != nil {
			slog.WarnContext(ctx, "classifier model unavailable, marking unknown",
				slog.Int64("item_id", item.ID), slog.String("error", clsErr.Error()))
			retryPriority = entity.RetryPriorityUnknown
		} else {
			retryPriority = deriveRetryPriority(output, w.ClassifierConfig.ConfidenceThreshold)
			confidence = output.Confidence
			suggestedGroups = output.SuggestedGroups
			suggestedPriority = output.Priority
		}
	}

	if item.Metadata == nil {
		item.Metadata = map[string]string{}
	}
	item.Metadata[entity.MetaRetryPriority] = string(retryPriority)
	item.Metadata[entity.MetaClassifierConfidence] = fmt.Sprintf("%.4f", confidence)
	if len(suggestedGroups) > 0 {
		item.Metadata[entity.MetaSuggestedGroups] = strings.Join(suggestedGroups, ",")
	}
	if suggestedPriority != "" {
		item.Metadata[entity.MetaSuggestedPriority] = string(suggestedPriority)
	}
	item.RecomputeNeedsLLMProcessing(false)

	if err := w.Items.Update(ctx, item); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	w.recordEvent(ctx, item.ID, entity.EventClassified, string(retryPriority))
	if w.Metrics != nil {
		w.Metrics.RecordClassified(string(retryPriority))
	}

	if retryPriority != entity.RetryPriorityLow {
		if err := w.LLM.Enqueue(ctx, item); err != nil {
			slog.WarnContext(ctx, "llm enqueue failed, item remains visible to the llm backlog poll",
				slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		}
	} else if w.Rules != nil {
		if err := w.Rules.Apply(ctx, item); err != nil {
			slog.WarnContext(ctx, "rule engine failed for low-priority item",
				slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (w *Worker) recordEvent(ctx context.Context, itemID int64, kind entity.EventKind, detail string) {
	event := &entity.ItemEvent{ItemID: itemID, Kind: kind, Detail: detail, CreatedAt: time.Now()}
	if err := w.Events.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to append item event",
			slog.Int64("item_id", itemID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}
