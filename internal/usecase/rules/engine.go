// Package rules implements the C7 rule engine (spec §4.7): the implicit
// stakeholder mention-boost pre-pass followed by every enabled user rule,
// evaluated in ascending ordering-key order, re-bucketing the item's
// priority from its accumulated score. It follows the teacher's
// usecase/notify.Service pattern of iterating a configured, ordered slice
// of collaborators (there, notification channels; here, rules) and
// accumulating a result across the iteration.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// LLMProvider is the chat-completion backend the semantic rule kind calls.
// Satisfied by llmprovider.Chain or either of its concrete providers.
type LLMProvider interface {
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// Notifier delivers an out-of-band alert about an item. Satisfied by
// notify.Service; left nil, stakeholder mentions are scored but never
// dispatched anywhere.
type Notifier interface {
	NotifyNewItem(ctx context.Context, item *entity.Item, source *entity.Source) error
}

// Engine evaluates the stakeholder boost pre-pass and every enabled rule
// against an item, persisting the result.
type Engine struct {
	Items        repository.ItemRepository
	Events       repository.ItemEventRepository
	Rules        repository.RuleRepository
	Stakeholders repository.StakeholderDirectory
	LLM          LLMProvider
	Config       Config
	Metrics      *Metrics

	// Notifier, Channels and Sources are optional. When all three are set,
	// a direct or member-organization stakeholder mention fans the item
	// out to the configured notification channels (spec §4.7's mention
	// boosts are the only rule-engine signal visible outside the item
	// record itself).
	Notifier Notifier
	Channels repository.ChannelRepository
	Sources  repository.SourceRepository
}

// New builds an Engine with DefaultConfig.
func New(items repository.ItemRepository, events repository.ItemEventRepository, rules repository.RuleRepository, stakeholders repository.StakeholderDirectory, llmProvider LLMProvider, metrics *Metrics) *Engine {
	return &Engine{
		Items:        items,
		Events:       events,
		Rules:        rules,
		Stakeholders: stakeholders,
		LLM:          llmProvider,
		Config:       DefaultConfig(),
		Metrics:      metrics,
	}
}

// Apply runs the full C7 evaluation against item and persists the result.
// It is invoked by the LLM worker after a successful analysis, and by the
// classifier worker directly for retry-priority "low" items (spec §4.7).
func (e *Engine) Apply(ctx context.Context, item *entity.Item) error {
	if e.Metrics != nil {
		e.Metrics.RecordItemProcessed()
	}

	rawCorpus := item.Title + " " + item.Content
	foldedCorpus := strings.ToLower(rawCorpus)

	stakeholders, err := e.Stakeholders.List(ctx)
	if err != nil {
		slog.WarnContext(ctx, "stakeholder directory unavailable, skipping mention boosts",
			slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
	} else if boost := e.stakeholderBoosts(foldedCorpus, stakeholders); boost != 0 {
		item.PriorityScore = entity.ClampScore(item.PriorityScore + boost)
		e.notifyMention(ctx, item)
	}

	enabledRules, err := e.Rules.ListEnabledOrdered(ctx)
	if err != nil {
		return fmt.Errorf("list enabled rules: %w", err)
	}

	forced := false
	for _, rule := range enabledRules {
		matched, err := e.evaluate(ctx, rule, item, rawCorpus, foldedCorpus)
		if err != nil {
			slog.WarnContext(ctx, "rule evaluation failed, skipping rule",
				slog.Int64("item_id", item.ID), slog.String("rule", rule.Name), slog.String("error", err.Error()))
			continue
		}
		if !matched {
			continue
		}

		if rule.HasForcedTarget() {
			if !forced {
				item.Priority = rule.ForcedTargetPriority
				forced = true
			}
		} else {
			item.PriorityScore = entity.ClampScore(item.PriorityScore + rule.PriorityDelta)
		}
		item.Tags = append(item.Tags, fmt.Sprintf("rule:%s", rule.Name))

		if e.Metrics != nil {
			e.Metrics.RecordRuleMatch(rule.Name)
		}
		e.recordEvent(ctx, item.ID, entity.EventRuleApplied, rule.Name)
	}

	if !forced {
		item.Priority = entity.PriorityForScore(item.PriorityScore)
	}

	if err := e.Items.Update(ctx, item); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// evaluate dispatches a single rule to its kind-specific matcher (spec
// §4.7).
func (e *Engine) evaluate(ctx context.Context, rule *entity.Rule, item *entity.Item, rawCorpus, foldedCorpus string) (bool, error) {
	switch rule.Kind {
	case entity.RuleKindKeyword:
		return matchKeyword(rule.Pattern, foldedCorpus), nil
	case entity.RuleKindRegex:
		return matchRegex(rule.Pattern, rawCorpus)
	case entity.RuleKindSemantic:
		return e.matchSemantic(ctx, rule.Pattern, item)
	default:
		return false, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

// matchKeyword splits pattern on commas and matches if any case-folded
// token is a substring of the case-folded corpus (spec §4.7).
func matchKeyword(pattern, foldedCorpus string) bool {
	for _, token := range strings.Split(pattern, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if strings.Contains(foldedCorpus, token) {
			return true
		}
	}
	return false
}

// matchRegex compiles pattern as a multi-line, case-insensitive regular
// expression and matches it against the corpus (spec §4.7).
func matchRegex(pattern, corpus string) (bool, error) {
	re, err := regexp.Compile("(?im)" + pattern)
	if err != nil {
		return false, fmt.Errorf("compile regex rule: %w", err)
	}
	return re.MatchString(corpus), nil
}

// firstLine returns the text up to the first newline, trimmed.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// matchSemantic submits the rule's question text plus the item's title and
// content to the LLM and accepts a case-insensitive "ja"/"yes" match
// anywhere in the first line of the reply (spec §4.7).
func (e *Engine) matchSemantic(ctx context.Context, question string, item *entity.Item) (bool, error) {
	if e.LLM == nil {
		return false, fmt.Errorf("semantic rule kind requires an llm provider")
	}
	system := "Answer the question about the following news item with a single word, " +
		"\"yes\" or \"no\", as the first line of your reply."
	user := fmt.Sprintf("Question: %s\n\nTitle: %s\n\nContent: %s", question, item.Title, item.Content)

	reply, err := e.LLM.Complete(ctx, system, user, e.Config.SemanticTemperature, e.Config.SemanticMaxTokens)
	if err != nil {
		return false, fmt.Errorf("semantic rule llm call: %w", err)
	}

	line := strings.ToLower(firstLine(reply))
	return strings.Contains(line, "ja") || strings.Contains(line, "yes"), nil
}

// notifyMention fans a stakeholder-mentioned item out to the configured
// notification channels. It never fails the rule evaluation: resolution
// or delivery errors are logged and swallowed, same as the teacher's
// notify.Service treats channel failures as best-effort.
func (e *Engine) notifyMention(ctx context.Context, item *entity.Item) {
	if e.Notifier == nil || e.Channels == nil || e.Sources == nil {
		return
	}
	channel, err := e.Channels.Get(ctx, item.ChannelID)
	if err != nil {
		slog.WarnContext(ctx, "stakeholder mention notify: channel lookup failed",
			slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		return
	}
	source, err := e.Sources.Get(ctx, channel.SourceID)
	if err != nil {
		slog.WarnContext(ctx, "stakeholder mention notify: source lookup failed",
			slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
		return
	}
	if err := e.Notifier.NotifyNewItem(ctx, item, source); err != nil {
		slog.WarnContext(ctx, "stakeholder mention notify failed",
			slog.Int64("item_id", item.ID), slog.String("error", err.Error()))
	}
}

func (e *Engine) recordEvent(ctx context.Context, itemID int64, kind entity.EventKind, detail string) {
	event := &entity.ItemEvent{ItemID: itemID, Kind: kind, Detail: detail, CreatedAt: time.Now()}
	if err := e.Events.Append(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to append item event",
			slog.Int64("item_id", itemID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}
