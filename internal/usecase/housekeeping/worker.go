// Package housekeeping implements the C8 retention sweep (spec §4.8): a
// daily scan that purges items whose age has exceeded their priority
// bucket's retention window, exempting starred items when configured,
// deleting each one from the durable store and both embedding indices.
// Scheduling reuses robfig/cron/v3 the same way scheduler.Service does;
// lifecycle control reuses workerctl.Controller the same way classify and
// llm do.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/usecase/workerctl"
)

// allPriorities is the full set of buckets the sweep considers, swept in a
// fixed order purely for deterministic logging; order has no semantic
// effect since each bucket's candidates are independent.
var allPriorities = []entity.Priority{
	entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow, entity.PriorityNone,
}

// Stats summarizes one sweep's outcome.
type Stats struct {
	ItemsPurged int
	Duration    time.Duration
}

// Worker runs the retention sweep on a cron schedule.
type Worker struct {
	Items      repository.ItemRepository
	Events     repository.ItemEventRepository
	Embeddings repository.ItemEmbeddingRepository
	Settings   repository.HousekeepingConfigRepository
	Config     Config
	Metrics    *Metrics

	// Purger, when set, performs the store delete and both embedding-index
	// deletes in one transaction (spec §5's atomic-purge contract). Left
	// nil, purgeOne falls back to the sequential best-effort delete; set it
	// whenever Items and Embeddings are backed by the same database.
	Purger repository.ItemPurger

	ctl *workerctl.Controller
	cr  *cron.Cron
}

// New builds a Worker with DefaultConfig.
func New(items repository.ItemRepository, events repository.ItemEventRepository, embeddings repository.ItemEmbeddingRepository, settings repository.HousekeepingConfigRepository, metrics *Metrics) *Worker {
	return &Worker{
		Items:      items,
		Events:     events,
		Embeddings: embeddings,
		Settings:   settings,
		Config:     DefaultConfig(),
		Metrics:    metrics,
		ctl:        workerctl.NewController(),
	}
}

// Start begins the cron-driven sweep schedule.
func (w *Worker) Start() {
	runCtx := w.ctl.Start()

	w.cr = cron.New()
	_, err := w.cr.AddFunc(w.Config.Schedule, func() {
		if w.ctl.IsPaused() {
			return
		}
		w.ctl.Track()
		defer w.ctl.Done()

		stats, err := w.Sweep(runCtx)
		if err != nil {
			w.ctl.RecordError(err)
			if w.Metrics != nil {
				w.Metrics.RecordSweep("failure", 0)
			}
			slog.ErrorContext(runCtx, "housekeeping sweep failed", slog.String("error", err.Error()))
			return
		}
		w.ctl.RecordSuccess(time.Now())
		if w.Metrics != nil {
			w.Metrics.RecordSweep("success", stats.Duration.Seconds())
		}
		slog.InfoContext(runCtx, "housekeeping sweep completed",
			slog.Int("items_purged", stats.ItemsPurged), slog.Duration("duration", stats.Duration))
	})
	if err != nil {
		w.ctl.Latch(fmt.Errorf("register housekeeping schedule: %w", err))
		return
	}
	w.cr.Start()
}

// Stop halts the cron schedule and waits for an in-flight sweep (if any) to
// finish, or for ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cr != nil {
		stopCtx := w.cr.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.ctl.Stop(ctx)
}

func (w *Worker) Pause()  { w.ctl.Pause() }
func (w *Worker) Resume() { w.ctl.Resume() }

// Status returns the worker's current operational state.
func (w *Worker) Status() workerctl.Status { return w.ctl.Status() }

// Sweep runs one retention pass across every priority bucket. It can also
// be called directly (e.g. from an operational-control manual-trigger
// endpoint) without going through the cron schedule.
func (w *Worker) Sweep(ctx context.Context) (Stats, error) {
	start := time.Now()

	cfg, err := w.Settings.Get(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get housekeeping config: %w", err)
	}
	if !cfg.AutoPurgeEnabled {
		return Stats{Duration: time.Since(start)}, nil
	}

	now := time.Now()
	stats := Stats{}
	for _, priority := range allPriorities {
		retentionDays := cfg.RetentionDaysFor(priority)
		cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

		candidates, err := w.Items.ListPurgeCandidates(ctx, priority, cutoff, cfg.ExcludeStarred)
		if err != nil {
			slog.ErrorContext(ctx, "list purge candidates failed",
				slog.String("priority", string(priority)), slog.String("error", err.Error()))
			continue
		}

		purged := 0
		for _, item := range candidates {
			if err := w.purgeOne(ctx, item); err != nil {
				slog.WarnContext(ctx, "purge item failed, item left in place",
					slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
				continue
			}
			purged++
		}
		stats.ItemsPurged += purged
		if w.Metrics != nil {
			w.Metrics.RecordPurged(string(priority), purged)
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// purgeOne deletes one item and both of its embedding-index entries (spec
// §4.8: "Deletes them from the store and from both embedding indices"),
// atomically when w.Purger is set (spec §5: "the store delete and the two
// index deletes either all commit or the item stays").
func (w *Worker) purgeOne(ctx context.Context, item *entity.Item) error {
	if w.Purger != nil {
		if err := w.Purger.PurgeItem(ctx, item.ID); err != nil {
			return fmt.Errorf("purge item: %w", err)
		}
		w.recordEvent(ctx, item.ID, entity.EventPurged, string(item.Priority))
		return nil
	}
	return w.purgeOneSequential(ctx, item)
}

// purgeOneSequential is the fallback path used when no transactional
// repository.ItemPurger is wired in. The store delete runs first: if it
// fails, nothing else is attempted and the item is left fully in place,
// satisfying the "a failure leaves the item in place" contract in spec §7.
// A failure purging the embeddings after a successful store delete is
// logged but not treated as sweep failure, since both embedding indices
// are explicitly documented as rebuildable from the durable store (spec
// §4.8) — an orphaned vector for an item id that no longer exists is
// inert, never returned by any future lookup keyed off the store.
func (w *Worker) purgeOneSequential(ctx context.Context, item *entity.Item) error {
	if err := w.Items.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	for _, kind := range []entity.EmbeddingKind{entity.EmbeddingKindDedupe, entity.EmbeddingKindRetrieval} {
		if _, err := w.Embeddings.DeleteByItemIDs(ctx, []int64{item.ID}, kind); err != nil {
			slog.WarnContext(ctx, "failed to purge embedding index entry",
				slog.Int64("item_id", item.ID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
		}
	}

	w.recordEvent(ctx, item.ID, entity.EventPurged, string(item.Priority))
	return nil
}

func (w *Worker) recordEvent(ctx context.Context, itemID int64, kind entity.EventKind, detail string) {
	event := &entity.ItemEvent{ItemID: itemID, Kind: kind, Detail: detail, CreatedAt: time.Now()}
	if err := w.Events.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to append item event",
			slog.Int64("item_id", itemID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}
