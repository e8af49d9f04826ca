package rules

// Config holds tuning values for the rule engine not fixed by spec §4.7's
// explicit thresholds (those live in entity.PriorityForScore and
// entity.Boost* constants, which Config deliberately does not duplicate).
type Config struct {
	// SemanticTemperature and SemanticMaxTokens bound the semantic rule
	// kind's yes/no LLM call. A near-zero temperature and a small token
	// budget are appropriate for a single-word verdict.
	SemanticTemperature float64
	SemanticMaxTokens   int

	// CriticismKeywords is the fixed keyword list consulted by the
	// criticism mention-boost (spec §4.7 names the boost but leaves its
	// detection method to the implementer; this mirrors the keyword rule
	// kind's own case-folded substring matching).
	CriticismKeywords []string
}

// DefaultConfig returns reasonable reference values for the parts of the
// rule engine spec §4.7 leaves as an implementer's choice.
func DefaultConfig() Config {
	return Config{
		SemanticTemperature: 0.0,
		SemanticMaxTokens:   20,
		CriticismKeywords: []string{
			"criticize", "criticism", "criticized", "condemn", "condemned",
			"scandal", "failure", "failed", "rebuke", "backlash", "outrage",
		},
	}
}
