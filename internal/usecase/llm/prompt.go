package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
)

// systemPrompt is the fixed system prompt named in spec §4.6: organization
// context, group definitions, priority criteria, and the output schema.
// The working-group vocabulary mirrors entity.IsKnownGroup's closed set.
const systemPrompt = `You are an analyst for a welfare-policy monitoring desk. You read one news
item at a time and produce a structured analysis for internal triage.

Working groups (assign zero or more):
  AK1, AK2, AK3, AK4, AK5 - topical working groups tracking specific policy areas
  QAG - the cross-cutting quality-assurance group

Priority criteria:
  high   - requires attention within the current working day
  medium - relevant, should be reviewed this week
  low    - background relevance only
  none   - not relevant to the desk's mandate

Respond with a single JSON object and nothing else, matching exactly this
schema:
{
  "summary": "2-4 sentence summary",
  "detailed_analysis": "5-10 sentence analysis",
  "priority": "high|medium|low|none",
  "assigned_groups": ["AK1", "..."],
  "tags": ["..."],
  "reasoning": "short justification for the priority and groups chosen"
}`

// buildUserPrompt combines the item's title, source display name,
// timestamp, and content into the user turn (spec §4.6).
func buildUserPrompt(item *entity.Item, sourceDisplayName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Source: %s\n", sourceDisplayName)
	fmt.Fprintf(&b, "Published: %s\n\n", item.PublishedAt.Format(time.RFC3339))
	b.WriteString(item.Content)
	return b.String()
}

// analysis is the parsed shape of the LLM's JSON response (spec §4.6).
type analysis struct {
	Summary          string   `json:"summary"`
	DetailedAnalysis string   `json:"detailed_analysis"`
	Priority         string   `json:"priority"`
	AssignedGroups   []string `json:"assigned_groups"`
	Tags             []string `json:"tags"`
	Reasoning        string   `json:"reasoning"`
}

// stripCodeFence removes a single leading/trailing markdown code fence
// (```json ... ``` or ``` ... ```), the one reparse transformation spec
// §4.6 names before giving up on a malformed response.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(s[:nl])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseAnalysis parses raw into an analysis, retrying once with the leading
// code fence stripped if the first attempt fails (spec §4.6).
func parseAnalysis(raw string) (*analysis, error) {
	var a analysis
	if err := json.Unmarshal([]byte(raw), &a); err == nil {
		return &a, nil
	}
	stripped := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(stripped), &a); err != nil {
		return nil, fmt.Errorf("parse llm json response: %w", err)
	}
	return &a, nil
}

// filterKnownGroups drops any group tag outside the closed vocabulary
// (spec §4.6: "assigned_groups (subset of closed vocabulary)").
func filterKnownGroups(groups []string) []string {
	var filtered []string
	for _, g := range groups {
		if entity.IsKnownGroup(g) {
			filtered = append(filtered, g)
		}
	}
	return filtered
}
