// Package entity defines the core domain entities and validation logic for
// the application: the news items flowing through ingestion, deduplication,
// classification, LLM analysis and rule adjustment, and their audit trail.
package entity

import "time"

// Priority is the urgency bucket an item is assigned, either provisionally
// by the classifier or authoritatively by the LLM worker / rule engine.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// RetryPriority is the classifier-assigned disposition gating LLM work.
type RetryPriority string

const (
	RetryPriorityHigh     RetryPriority = "high"
	RetryPriorityEdgeCase RetryPriority = "edge_case"
	RetryPriorityUnknown  RetryPriority = "unknown"
	RetryPriorityLow      RetryPriority = "low"
)

// Metadata keys used within Item.Metadata. Kept as constants because the
// metadata map is opaque to the store but its keys are a contract between
// C5 (classifier), C6 (LLM worker) and C7 (rule engine).
const (
	MetaClassifierConfidence = "classifier_confidence"
	MetaRetryPriority        = "retry_priority"
	MetaSourceDomain         = "source_domain"
	MetaLLMProvider          = "llm_provider"
	MetaLLMRawAnalysis       = "llm_raw_analysis"
	MetaSuggestedGroups      = "suggested_groups"
	MetaSuggestedPriority    = "suggested_priority"
)

// Item is a single news unit, enriched progressively by the classifier, the
// LLM worker, the rule engine, and reader actions.
type Item struct {
	ID              int64
	ChannelID       int64
	ExternalID      string
	Title           string
	Content         string
	URL             string
	Author          string
	PublishedAt     time.Time
	FirstSeenAt     time.Time
	ContentHash     string

	Summary             string
	DetailedAnalysis    string
	Priority            Priority
	PriorityScore       int
	AssignedGroups      []string
	Tags                []string
	IsRead              bool
	IsStarred           bool
	IsArchived          bool
	NeedsLLMProcessing  bool
	Metadata            map[string]string

	// SimilarTo is the canonical item this one was identified as a duplicate
	// of. Nil for canonical items (see the canonical anti-chain invariant).
	SimilarTo *int64

	// Revision is a monotonically increasing counter used for optimistic
	// concurrency when multiple workers mutate the same item (spec §5).
	Revision int64
}

// closedGroupVocabulary is the set of working-group tags the classifier and
// LLM may assign. Kept as a var (not const) so a deployment can extend it
// without a code change; see DESIGN.md Open Question on group vocabulary.
var closedGroupVocabulary = map[string]bool{
	"AK1": true, "AK2": true, "AK3": true, "AK4": true, "AK5": true, "QAG": true,
}

// IsKnownGroup reports whether tag is part of the closed working-group
// vocabulary.
func IsKnownGroup(tag string) bool {
	return closedGroupVocabulary[tag]
}

// PriorityForScore re-buckets a numeric priority score into a Priority per
// the thresholds in spec §4.7: >=67 high, >=34 medium, >=10 low, else none.
func PriorityForScore(score int) Priority {
	switch {
	case score >= 67:
		return PriorityHigh
	case score >= 34:
		return PriorityMedium
	case score >= 10:
		return PriorityLow
	default:
		return PriorityNone
	}
}

// priorityRank orders Priority values from lowest to highest urgency, used
// to compare priorities (e.g. "min-priority" filters in the briefing
// export) without relying on string ordering.
var priorityRank = map[Priority]int{
	PriorityNone:   0,
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
}

// PriorityRank returns p's position in the none < low < medium < high
// ordering. Unknown values rank below PriorityNone.
func PriorityRank(p Priority) int {
	if rank, ok := priorityRank[p]; ok {
		return rank
	}
	return -1
}

// ClampScore keeps a priority score within [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Validate checks the Item's structural invariants before insert.
func (it *Item) Validate() error {
	if it.ChannelID == 0 {
		return &ValidationError{Field: "channel_id", Message: "channel_id is required"}
	}
	if it.ExternalID == "" {
		return &ValidationError{Field: "external_id", Message: "external_id is required"}
	}
	if it.PriorityScore < 0 || it.PriorityScore > 100 {
		return &ValidationError{Field: "priority_score", Message: "must be within [0,100]"}
	}
	return nil
}

// RecomputeNeedsLLMProcessing applies the invariant from spec §3:
// needs-llm-processing is true iff no LLM analysis has ever succeeded for
// this item and its retry-priority bucket is not "low".
func (it *Item) RecomputeNeedsLLMProcessing(hasSucceededOnce bool) {
	retry := RetryPriority(it.Metadata[MetaRetryPriority])
	it.NeedsLLMProcessing = !hasSucceededOnce && retry != RetryPriorityLow
}
