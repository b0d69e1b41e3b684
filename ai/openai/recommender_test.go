package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
)

func testEquipment() []*core.Equipment {
	return []*core.Equipment{
		{
			ID: "EQ-1", Name: "급속열처리장비", Category: "열처리",
			WaferSizes: []string{"6 inch"}, Materials: []string{"Si"},
			TempMin: core.Float(300), TempMax: core.Float(1100),
			Institution: "나노종합기술원",
		},
		{ID: "EQ-2", Name: "ICP Etcher", Category: "식각"},
	}
}

func newTestRecommender(model *fakeModel) *Recommender {
	return newRecommenderWithModel(model, ai.DefaultConfig())
}

func TestRecommend(t *testing.T) {
	t.Run("decodes fenced JSON", func(t *testing.T) {
		model := &fakeModel{content: "```json\n" +
			`{"recommendations":[{"equipment_id":"EQ-1","reason":"6인치 실리콘 공정에 적합"}],"explanation":"열처리 장비입니다"}` +
			"\n```"}
		r := newTestRecommender(model)

		result, err := r.Recommend(context.Background(), "6인치 RTA", testEquipment())
		require.NoError(t, err)
		require.Len(t, result.Recommendations, 1)
		assert.Equal(t, "EQ-1", result.Recommendations[0].EquipmentID)
		assert.Equal(t, "열처리 장비입니다", result.Explanation)

		opts := model.lastOptions()
		assert.True(t, opts.JSONMode)
		assert.Equal(t, 1024, opts.MaxTokens)
		assert.Contains(t, model.lastText(), "[EQ-1] 급속열처리장비")
		assert.Contains(t, model.lastText(), "300~1100℃")
	})

	t.Run("repairs trailing commas", func(t *testing.T) {
		model := &fakeModel{content: `결과: {"recommendations":[{"equipment_id":"EQ-2","reason":"식각",},],"explanation":"ok",}`}
		result, err := newTestRecommender(model).Recommend(context.Background(), "etch", testEquipment())
		require.NoError(t, err)
		require.Len(t, result.Recommendations, 1)
		assert.Equal(t, "EQ-2", result.Recommendations[0].EquipmentID)
	})

	t.Run("sanitizes ideographs in reasons", func(t *testing.T) {
		model := &fakeModel{content: `{"recommendations":[{"equipment_id":"EQ-1","reason":"适合 실리콘"}],"explanation":"추천합니다。"}`}
		result, err := newTestRecommender(model).Recommend(context.Background(), "q", testEquipment())
		require.NoError(t, err)
		assert.Equal(t, "실리콘", result.Recommendations[0].Reason)
		assert.Equal(t, "추천합니다.", result.Explanation)
	})

	t.Run("plain text becomes explanation", func(t *testing.T) {
		model := &fakeModel{content: "적합한 장비가 없습니다"}
		result, err := newTestRecommender(model).Recommend(context.Background(), "q", testEquipment())
		require.NoError(t, err)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, "적합한 장비가 없습니다", result.Explanation)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		model := &fakeModel{content: `{"recommendations": [oops]}`}
		_, err := newTestRecommender(model).Recommend(context.Background(), "q", testEquipment())
		assert.ErrorIs(t, err, ai.ErrMalformedOutput)
	})

	t.Run("no candidates skips the model", func(t *testing.T) {
		model := &fakeModel{err: errors.New("should not be called")}
		result, err := newTestRecommender(model).Recommend(context.Background(), "q", nil)
		require.NoError(t, err)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, ai.NoCandidatesExplanation, result.Explanation)
	})

	t.Run("model error", func(t *testing.T) {
		boom := errors.New("connection refused")
		_, err := newTestRecommender(&fakeModel{err: boom}).Recommend(context.Background(), "q", testEquipment())
		assert.ErrorIs(t, err, boom)
	})
}

func collect(ch <-chan ai.StreamChunk) ([]string, error) {
	var out []string
	var err error
	for chunk := range ch {
		if chunk.Err != nil {
			err = chunk.Err
			continue
		}
		out = append(out, chunk.Content)
	}
	return out, err
}

func TestRecommendStream(t *testing.T) {
	t.Run("sanitizes and drops empty chunks", func(t *testing.T) {
		model := &fakeModel{chunks: []string{"EQ-1 ", "（推荐）", "장비입니다"}}
		ch, err := newTestRecommender(model).RecommendStream(context.Background(), "q", testEquipment())
		require.NoError(t, err)

		chunks, err := collect(ch)
		require.NoError(t, err)
		assert.Equal(t, []string{"EQ-1 ", "장비입니다"}, chunks)
		assert.Contains(t, model.lastText(), "(총 2개)")
	})

	t.Run("delimiter tokens survive", func(t *testing.T) {
		model := &fakeModel{chunks: []string{"추천 장비", ":", " RTA", ",", " MOCVD"}}
		ch, err := newTestRecommender(model).RecommendStream(context.Background(), "q", testEquipment())
		require.NoError(t, err)

		chunks, err := collect(ch)
		require.NoError(t, err)
		assert.Equal(t, "추천 장비: RTA, MOCVD", strings.Join(chunks, ""))
	})

	t.Run("error is the last chunk", func(t *testing.T) {
		boom := errors.New("stream broke")
		ch, err := newTestRecommender(&fakeModel{err: boom}).RecommendStream(context.Background(), "q", testEquipment())
		require.NoError(t, err)

		_, err = collect(ch)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no candidates", func(t *testing.T) {
		ch, err := newTestRecommender(&fakeModel{}).RecommendStream(context.Background(), "q", nil)
		require.NoError(t, err)
		chunks, err := collect(ch)
		require.NoError(t, err)
		assert.Equal(t, []string{emptyStreamMessage}, chunks)
	})

	t.Run("cancelled context closes channel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		model := &fakeModel{chunks: []string{"a1", "b2", "c3"}}
		ch, err := newTestRecommender(model).RecommendStream(ctx, "q", testEquipment())
		require.NoError(t, err)
		cancel()
		for range ch {
		}
	})
}
