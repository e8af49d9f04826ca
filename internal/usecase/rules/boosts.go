package rules

import (
	"strings"

	"catchup-feed/internal/domain/entity"
)

// matchesStakeholder reports whether a stakeholder entry's name or any of
// its aliases appears in the (already case-folded) corpus.
func matchesStakeholder(foldedCorpus string, s *entity.StakeholderEntry) bool {
	if s.Name != "" && strings.Contains(foldedCorpus, strings.ToLower(s.Name)) {
		return true
	}
	for _, alias := range s.Aliases {
		if alias != "" && strings.Contains(foldedCorpus, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

// containsCriticism reports whether the corpus contains any of the
// configured criticism keywords.
func containsCriticism(foldedCorpus string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(foldedCorpus, kw) {
			return true
		}
	}
	return false
}

// stakeholderBoosts computes the implicit mention-based score boosts from
// spec §4.7: direct organization mention (+25), member-organization
// mention (+15), question to a tracked stakeholder (+10), criticism (+10).
// These are evaluated before user rules and are purely additive; they do
// not force a priority and do not append a tag, unlike user rules.
func (e *Engine) stakeholderBoosts(foldedCorpus string, stakeholders []*entity.StakeholderEntry) int {
	total := 0
	hasQuestion := strings.Contains(foldedCorpus, "?")
	criticized := containsCriticism(foldedCorpus, e.Config.CriticismKeywords)

	for _, s := range stakeholders {
		if !matchesStakeholder(foldedCorpus, s) {
			continue
		}
		if s.IsMember {
			total += entity.BoostMemberOrganizationMention
			e.recordBoost("member")
		} else {
			total += entity.BoostDirectOrganizationMention
			e.recordBoost("direct")
		}
		if hasQuestion {
			total += entity.BoostQuestionToStakeholder
			e.recordBoost("question")
		}
		if criticized {
			total += entity.BoostCriticism
			e.recordBoost("criticism")
		}
	}
	return total
}

func (e *Engine) recordBoost(kind string) {
	if e.Metrics != nil {
		e.Metrics.RecordBoost(kind)
	}
}
