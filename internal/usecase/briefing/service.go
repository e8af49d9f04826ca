// Package briefing implements the daily briefing export named in spec §6:
// a read-only query over items plus plain-text/HTML rendering, out-of-core
// per spec §1 ("email-briefing rendering" is listed as a thin external
// layer) but built here as a first-class usecase package with its own CLI
// entry point, in the teacher's cmd/ai/summarize spirit of a small,
// flag-driven report generator sitting on top of the core store.
package briefing

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// Request is the caller-supplied briefing parameters (spec §6): recipient
// list, minimum priority, lookback window in hours, and whether already-read
// items are included.
type Request struct {
	Recipients  []string
	MinPriority entity.Priority
	HoursBack   int
	IncludeRead bool
}

// Briefing is a fully rendered export, ready to hand to an email transport
// or a CLI's stdout.
type Briefing struct {
	Subject     string
	PlainText   string
	HTML        string
	Recipients  []string
	ItemCount   int
}

// Service builds briefings from the item store.
type Service struct {
	Items   repository.ItemRepository
	Config  Config
	Metrics *Metrics
}

// New builds a Service with DefaultConfig.
func New(items repository.ItemRepository, metrics *Metrics) *Service {
	return &Service{Items: items, Config: DefaultConfig(), Metrics: metrics}
}

// Build selects eligible items and renders a Briefing (spec §6). now is
// passed in by the caller (e.g. the CLI's main, or an HTTP handler) rather
// than read from time.Now() here, so scheduled/manual triggers agree on the
// export's local date regardless of caller.
func (s *Service) Build(ctx context.Context, req Request, now time.Time) (*Briefing, error) {
	if len(req.Recipients) == 0 {
		return nil, fmt.Errorf("briefing: at least one recipient is required")
	}

	minPriority := req.MinPriority
	if minPriority == "" {
		minPriority = s.Config.DefaultMinPriority
	}
	hoursBack := req.HoursBack
	if hoursBack <= 0 {
		hoursBack = s.Config.DefaultHoursBack
	}
	since := now.Add(-time.Duration(hoursBack) * time.Hour)

	items, err := s.Items.ListBriefingCandidates(ctx, minPriority, since, req.IncludeRead)
	if err != nil {
		return nil, fmt.Errorf("list briefing candidates: %w", err)
	}

	data := templateData{Groups: groupByPriority(items)}

	var plainBuf, htmlBuf bytes.Buffer
	if err := plainBodyTemplate.Execute(&plainBuf, data); err != nil {
		return nil, fmt.Errorf("render plain-text body: %w", err)
	}
	if err := htmlBodyTemplate.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	if s.Metrics != nil {
		s.Metrics.RecordBuilt(len(items))
	}

	return &Briefing{
		Subject:    fmt.Sprintf("Briefing — %s", now.Format("2006-01-02")),
		PlainText:  plainBuf.String(),
		HTML:       htmlBuf.String(),
		Recipients: req.Recipients,
		ItemCount:  len(items),
	}, nil
}

// priorityOrder is the descending render order the template walks (spec
// §6: "grouped by priority descending").
var priorityOrder = []entity.Priority{
	entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow, entity.PriorityNone,
}

// groupByPriority buckets items (already ordered priority desc, first-seen
// desc by the store query) into one priorityGroup per non-empty bucket.
func groupByPriority(items []*entity.Item) []priorityGroup {
	buckets := make(map[entity.Priority][]renderItem, len(priorityOrder))
	for _, item := range items {
		buckets[item.Priority] = append(buckets[item.Priority], renderItem{
			Title:   item.Title,
			URL:     item.URL,
			Summary: item.Summary,
		})
	}

	groups := make([]priorityGroup, 0, len(priorityOrder))
	for _, p := range priorityOrder {
		rendered := buckets[p]
		if len(rendered) == 0 {
			continue
		}
		groups = append(groups, priorityGroup{Priority: string(p), Items: rendered})
	}
	return groups
}
