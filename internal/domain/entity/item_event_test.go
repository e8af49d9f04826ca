package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventKind_IsValid(t *testing.T) {
	valid := []EventKind{
		EventIngested, EventDeduplicated, EventClassified, EventLLMAnalyzed,
		EventLLMFailed, EventRuleApplied, EventReadMarked, EventStarMarked,
		EventArchived, EventPurged,
	}
	for _, k := range valid {
		assert.True(t, k.IsValid(), "%s should be valid", k)
	}
	assert.False(t, EventKind("bogus").IsValid())
}

func TestItemEvent_Validate(t *testing.T) {
	t.Run("valid event passes", func(t *testing.T) {
		e := &ItemEvent{ItemID: 1, Kind: EventIngested}
		assert.NoError(t, e.Validate())
	})

	t.Run("zero item id fails", func(t *testing.T) {
		e := &ItemEvent{ItemID: 0, Kind: EventIngested}
		assert.Error(t, e.Validate())
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		e := &ItemEvent{ItemID: 1, Kind: EventKind("bogus")}
		assert.Error(t, e.Validate())
	})
}
