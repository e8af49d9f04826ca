package entity

// RuleKind is the closed set of matching strategies a Rule may use.
type RuleKind string

const (
	RuleKindKeyword  RuleKind = "keyword"
	RuleKindRegex    RuleKind = "regex"
	RuleKindSemantic RuleKind = "semantic"
)

// IsValid reports whether k is one of the supported rule kinds.
func (k RuleKind) IsValid() bool {
	switch k {
	case RuleKindKeyword, RuleKindRegex, RuleKindSemantic:
		return true
	default:
		return false
	}
}

// Rule is a user-authored classification adjustment evaluated by the rule
// engine (C7) against every item after LLM analysis (or directly after
// classification, for items whose retry-priority is "low").
type Rule struct {
	ID      int64
	Name    string
	Kind    RuleKind
	Pattern string

	// PriorityDelta is added to priority-score when the rule matches and no
	// forced target is set. Range -50..+50.
	PriorityDelta int

	// ForcedTargetPriority, when non-empty, overrides priority-score
	// re-bucketing entirely: the first matching forced rule (in ordering
	// key order) wins and later matching forced rules no longer force the
	// priority. A forced match never contributes its PriorityDelta to
	// priority-score (re-running the same forced rule must not drift the
	// score); its tag and rule-applied event are still recorded.
	ForcedTargetPriority Priority

	Enabled     bool
	OrderingKey int
}

// HasForcedTarget reports whether the rule sets an authoritative priority
// rather than an additive delta.
func (r *Rule) HasForcedTarget() bool {
	return r.ForcedTargetPriority != ""
}

// Validate checks the Rule's structural invariants.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !r.Kind.IsValid() {
		return &ValidationError{Field: "kind", Message: "unknown rule kind"}
	}
	if r.Pattern == "" {
		return &ValidationError{Field: "pattern", Message: "pattern is required"}
	}
	if r.PriorityDelta < -50 || r.PriorityDelta > 50 {
		return &ValidationError{Field: "priority_delta", Message: "must be within [-50,50]"}
	}
	if r.HasForcedTarget() {
		switch r.ForcedTargetPriority {
		case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		default:
			return &ValidationError{Field: "forced_target_priority", Message: "unknown priority"}
		}
	}
	return nil
}

// Mention-boost point values for the implicit stakeholder rules evaluated
// before user rules (spec §4.7). These are additive in the same
// re-bucketing step as user rule deltas.
const (
	BoostDirectOrganizationMention = 25
	BoostMemberOrganizationMention = 15
	BoostQuestionToStakeholder     = 10
	BoostCriticism                 = 10
)

// StakeholderEntry is a single tracked organization or person consulted by
// the rule engine's mention-based boosts.
type StakeholderEntry struct {
	ID           int64
	Name         string
	Aliases      []string
	IsMember     bool // belongs to a member organization rather than a direct one
	SourceID     *int64
}
