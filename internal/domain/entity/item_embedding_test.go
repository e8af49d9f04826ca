package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingKind_IsValid(t *testing.T) {
	assert.True(t, EmbeddingKindDedupe.IsValid())
	assert.True(t, EmbeddingKindRetrieval.IsValid())
	assert.False(t, EmbeddingKind("").IsValid())
	assert.False(t, EmbeddingKind("summary").IsValid())
}

func TestEmbeddingProvider_IsValid(t *testing.T) {
	assert.True(t, EmbeddingProviderOpenAI.IsValid())
	assert.True(t, EmbeddingProviderVoyage.IsValid())
	assert.False(t, EmbeddingProvider("").IsValid())
}

func TestItemEmbedding_Validate(t *testing.T) {
	valid := func() *ItemEmbedding {
		return &ItemEmbedding{
			ItemID:    1,
			Kind:      EmbeddingKindRetrieval,
			Provider:  EmbeddingProviderOpenAI,
			Model:     "text-embedding-3-small",
			Dimension: 3,
			Vector:    []float32{0.1, 0.2, 0.3},
		}
	}

	t.Run("valid embedding passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("zero item id fails", func(t *testing.T) {
		e := valid()
		e.ItemID = 0
		assert.Error(t, e.Validate())
	})

	t.Run("invalid kind fails", func(t *testing.T) {
		e := valid()
		e.Kind = EmbeddingKind("bogus")
		assert.ErrorIs(t, e.Validate(), ErrInvalidEmbeddingKind)
	})

	t.Run("invalid provider fails", func(t *testing.T) {
		e := valid()
		e.Provider = EmbeddingProvider("bogus")
		assert.ErrorIs(t, e.Validate(), ErrInvalidEmbeddingProvider)
	})

	t.Run("empty vector fails", func(t *testing.T) {
		e := valid()
		e.Vector = nil
		assert.ErrorIs(t, e.Validate(), ErrEmptyEmbedding)
	})

	t.Run("dimension mismatch fails", func(t *testing.T) {
		e := valid()
		e.Dimension = 99
		assert.ErrorIs(t, e.Validate(), ErrInvalidEmbeddingDimension)
	})
}
