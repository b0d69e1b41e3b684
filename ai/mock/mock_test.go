package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
)

var _ ai.AIProvider = (*MockProvider)(nil)

func TestVectorIsDeterministicUnit(t *testing.T) {
	a := Vector("RTA", 64)
	b := Vector("RTA", 64)
	c := Vector("Etcher", 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedderCallCount(t *testing.T) {
	m := NewMockEmbedder()
	_, err := m.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	vecs, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestMockRecommender(t *testing.T) {
	cands := []*core.Equipment{
		{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "C"}, {ID: "4", Name: "D"},
	}
	m := NewMockRecommender()

	result, err := m.Recommend(context.Background(), "q", cands)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, DefaultRecommendations)
	assert.Equal(t, "1", result.Recommendations[0].EquipmentID)

	ch, err := m.RecommendStream(context.Background(), "q", cands)
	require.NoError(t, err)
	var chunks []string
	for c := range ch {
		chunks = append(chunks, c.Content)
	}
	assert.Equal(t, []string{"A\n", "B\n", "C\n"}, chunks)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockProviderAccessors(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	intent, err := p.IntentParser().ParseIntent(context.Background(), "질의")
	require.NoError(t, err)
	assert.Equal(t, "질의", intent.SearchQuery)
	assert.Equal(t, 1, p.GetMockIntentParser().CallCount())
	assert.NoError(t, p.Close())
}
