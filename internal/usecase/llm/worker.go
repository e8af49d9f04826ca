// Package llm implements the C6 LLM worker (spec §4.6): a single long-lived
// worker that takes items off a fresh in-memory queue (fed directly by the
// classifier worker) or, when that is empty, a database-polled backlog,
// builds a fixed-schema analysis prompt, and calls a provider fallback
// chain. It shares the drain-then-poll shape of the classify package and
// the run/pause/stop lifecycle of workerctl.Controller.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/usecase/workerctl"
)

// Provider is the chat-completion backend the worker calls per item. It is
// satisfied by llmprovider.Chain (and by either concrete provider alone).
type Provider interface {
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// NamedProvider is implemented by providers that can attribute a successful
// completion to themselves (spec §4.6: "records which provider produced
// the result"). llmprovider.Chain and its concrete providers all satisfy
// this; the worker degrades gracefully to an empty attribution when a
// Provider does not.
type NamedProvider interface {
	LastProviderName() string
}

// RuleEngine applies C7's rule evaluation to an item after a successful
// analysis (spec §4.7).
type RuleEngine interface {
	Apply(ctx context.Context, item *entity.Item) error
}

// Worker implements the C6 LLM analysis cycle.
type Worker struct {
	Items    repository.ItemRepository
	Events   repository.ItemEventRepository
	Provider Provider
	Sources  SourceResolver
	Queue    *Queue
	Rules    RuleEngine
	Config   Config
	Metrics  *Metrics

	ctl *workerctl.Controller
}

// New builds a Worker with DefaultConfig.
func New(items repository.ItemRepository, events repository.ItemEventRepository, provider Provider, sources SourceResolver, queue *Queue, rules RuleEngine, metrics *Metrics) *Worker {
	return &Worker{
		Items:    items,
		Events:   events,
		Provider: provider,
		Sources:  sources,
		Queue:    queue,
		Rules:    rules,
		Config:   DefaultConfig(),
		Metrics:  metrics,
		ctl:      workerctl.NewController(),
	}
}

func (w *Worker) Pause()                         { w.ctl.Pause() }
func (w *Worker) Resume()                        { w.ctl.Resume() }
func (w *Worker) Stop(ctx context.Context) error { return w.ctl.Stop(ctx) }
func (w *Worker) Status() workerctl.Status       { return w.ctl.Status() }

// Run starts the fresh-then-backlog loop and blocks until ctx is cancelled
// or the worker latches after too many consecutive failures.
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

		outcome, err := w.processItem(runCtx, item)
		if err != nil {
			consecutiveFailures++
			w.ctl.RecordError(err)
			if w.Metrics != nil {
				w.Metrics.RecordConsecutiveFailures(consecutiveFailures)
			}
			slog.ErrorContext(runCtx, "llm analysis failed",
				slog.Int64("item_id", item.ID), slog.String("outcome", outcome),
				slog.Int("consecutive_failures", consecutiveFailures), slog.String("error", err.Error()))

			if outcome == "provider_unreachable" {
				slog.WarnContext(runCtx, "llm provider unreachable, pausing for cooldown",
					slog.Duration("cooldown", w.Config.ProviderUnreachableCooldown))
				w.ctl.Pause()
				time.Sleep(w.Config.ProviderUnreachableCooldown)
				w.ctl.Resume()
			}

			if consecutiveFailures >= w.Config.MaxConsecutiveFailures {
				w.ctl.Latch(fmt.Errorf("llm worker latched after %d consecutive failures: %w", consecutiveFailures, err))
				slog.ErrorContext(runCtx, "llm worker latched, manual restart required",
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
// database backlog (spec §4.6: "backlog is only processed when fresh is
// empty at the start of a cycle").
func (w *Worker) dequeue(ctx context.Context) (*entity.Item, bool) {
	select {
	case item := <-w.Queue.ch:
		return item, true
	default:
	}

	backlog, err := w.Items.ListLLMBacklog(ctx, w.Config.BacklogBatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "list llm backlog failed", slog.String("error", err.Error()))
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

// scoreForPriority seeds priority-score from the LLM's categorical
// priority so the rule engine's additive deltas (spec §4.7) have a
// sensible baseline within entity.PriorityForScore's own bucket.
func scoreForPriority(p entity.Priority) int {
	switch p {
	case entity.PriorityHigh:
		return 75
	case entity.PriorityMedium:
		return 45
	case entity.PriorityLow:
		return 15
	default:
		return 0
	}
}

// processItem runs one full analysis cycle for item, returning an outcome
// label ("success", "malformed_json", "provider_unreachable") for metrics
// and logging.
func (w *Worker) processItem(ctx context.Context, item *entity.Item) (string, error) {
	sourceName := "unknown source"
	if w.Sources != nil {
		if name, err := w.Sources.DisplayName(ctx, item.ChannelID); err == nil {
			sourceName = name
		}
	}

	raw, err := w.Provider.Complete(ctx, systemPrompt, buildUserPrompt(item, sourceName), w.Config.Temperature, w.Config.MaxTokens)
	if err != nil {
		if w.Metrics != nil {
			w.Metrics.RecordAnalysis("provider_unreachable")
		}
		return "provider_unreachable", fmt.Errorf("llm completion: %w", err)
	}

	parsed, parseErr := parseAnalysis(raw)
	if parseErr != nil {
		w.recordEvent(ctx, item.ID, entity.EventLLMFailed, parseErr.Error())
		if w.Metrics != nil {
			w.Metrics.RecordAnalysis("malformed_json")
		}
		return "malformed_json", parseErr
	}

	providerName := ""
	if np, ok := w.Provider.(NamedProvider); ok {
		providerName = np.LastProviderName()
	}

	priority := entity.Priority(parsed.Priority)
	switch priority {
	case entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow, entity.PriorityNone:
	default:
		priority = entity.PriorityNone
	}

	item.Summary = parsed.Summary
	item.DetailedAnalysis = parsed.DetailedAnalysis
	item.Priority = priority
	item.PriorityScore = entity.ClampScore(scoreForPriority(priority))
	item.AssignedGroups = filterKnownGroups(parsed.AssignedGroups)
	item.Tags = mergeTags(item.Tags, parsed.Tags)
	if item.Metadata == nil {
		item.Metadata = map[string]string{}
	}
	item.Metadata[entity.MetaLLMProvider] = providerName
	item.Metadata[entity.MetaLLMRawAnalysis] = raw
	item.RecomputeNeedsLLMProcessing(true)

	if err := w.Items.Update(ctx, item); err != nil {
		return "persist_failed", fmt.Errorf("update item: %w", err)
	}

	w.recordEvent(ctx, item.ID, entity.EventLLMAnalyzed, providerName)
	if w.Metrics != nil {
		w.Metrics.RecordAnalysis("success")
		w.Metrics.RecordProvider(providerName)
	}

	if w.Rules != nil {
		if err := w.Rules.Apply(ctx, item); err != nil {
			slog.WarnContext(ctx, "rule engine failed after llm analysis",
				slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		}
	}
	return "success", nil
}

// mergeTags appends new tags not already present in existing, preserving
// existing order.
func mergeTags(existing, additional []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	merged := existing
	for _, t := range additional {
		if !seen[t] {
			merged = append(merged, t)
			seen[t] = true
		}
	}
	return merged
}

func (w *Worker) recordEvent(ctx context.Context, itemID int64, kind entity.EventKind, detail string) {
	event := &entity.ItemEvent{ItemID: itemID, Kind: kind, Detail: detail, CreatedAt: time.Now()}
	if err := w.Events.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to append item event",
			slog.Int64("item_id", itemID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}
