package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/ai/mock"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/patterns"
)

func TestClassifierCheck(t *testing.T) {
	c, err := NewClassifier(nil)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  Check
	}{
		{"6인치 RTA 장비", Check{}},
		{"실리콘 말고 GaN 식각 장비", Check{Negative: true}},
		{"500도 미만 열처리", Check{Negative: true}},
		{"식각이거나 증착 장비", Check{Compound: true}},
		{"CVD와 ALD 둘 다 되는 장비", Check{Compound: true}},
		{"어떤 장비가 좋을까", Check{Abstract: true}},
		{"Si 제외하고 동시에 증착", Check{Negative: true, Compound: true}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Check(tt.query)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != Check{}, got.NeedsParsing())
		})
	}
}

func TestClassifierCustomRules(t *testing.T) {
	c, err := NewClassifier([]patterns.Spec{{Label: "negative", Pattern: `except`}})
	require.NoError(t, err)
	assert.True(t, c.Check("everything EXCEPT Si").Negative)
	assert.False(t, c.Check("말고").Negative)

	_, err = NewClassifier([]patterns.Spec{{Label: "negative", Pattern: `(`}})
	assert.Error(t, err)
}

func TestParserFallback(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		confidence float64
	}{
		{"malformed", ai.ErrMalformedOutput, MalformedConfidence},
		{"wrapped malformed", errors.Join(errors.New("decode"), ai.ErrMalformedOutput), MalformedConfidence},
		{"upstream", errors.New("timeout"), FailedConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mock.NewMockIntentParser()
			m.ParseIntentFunc = func(ctx context.Context, query string) (*core.Intent, error) {
				return nil, tt.err
			}
			intent := NewParser(m, nil).Parse(context.Background(), "q")
			assert.Equal(t, tt.confidence, intent.Confidence)
			assert.Equal(t, "q", intent.SearchQuery)
			assert.Equal(t, core.QueryTypeSimple, intent.Type)
		})
	}
}

func TestParserSuccess(t *testing.T) {
	m := mock.NewMockIntentParser()
	m.ParseIntentFunc = func(ctx context.Context, query string) (*core.Intent, error) {
		return &core.Intent{Type: core.QueryTypeNegative, Confidence: 0.9}, nil
	}
	intent := NewParser(m, nil).Parse(context.Background(), "실리콘 말고")
	assert.Equal(t, core.QueryTypeNegative, intent.Type)
	assert.Equal(t, "실리콘 말고", intent.SearchQuery)
}

func candidate(id, name, category string, tmin, tmax *float64, materials ...string) *core.Candidate {
	c := core.NewCandidate(&core.Equipment{
		ID: id, Name: name, Category: category, TempMin: tmin, TempMax: tmax, Materials: materials,
	})
	c.Combined = 0.5
	return c
}

func ids(cands []*core.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID()
	}
	return out
}

func TestApplyExclusions(t *testing.T) {
	cands := []*core.Candidate{
		candidate("hot", "Furnace", "열처리", core.Float(600), core.Float(1200), "Si"),
		candidate("cold", "Etcher", "식각", core.Float(20), core.Float(200), "GaN"),
		candidate("unknown", "Aligner", "노광", nil, nil),
		candidate("zero", "Sputter", "증착", core.Float(0), core.Float(0), "si"),
	}

	t.Run("nil intent", func(t *testing.T) {
		assert.Equal(t, cands, Apply(cands, nil))
	})
	t.Run("exclude min temperature", func(t *testing.T) {
		got := Apply(cands, &core.Intent{Exclude: core.Facets{TempMin: core.Float(500)}})
		assert.Equal(t, []string{"cold", "unknown", "zero"}, ids(got))
	})
	t.Run("exclude max temperature", func(t *testing.T) {
		got := Apply(cands, &core.Intent{Exclude: core.Facets{TempMax: core.Float(300)}})
		assert.Equal(t, []string{"hot", "unknown", "zero"}, ids(got))
	})
	t.Run("exclude material case insensitive", func(t *testing.T) {
		got := Apply(cands, &core.Intent{Exclude: core.Facets{Materials: []string{"SI"}}})
		assert.Equal(t, []string{"cold", "unknown"}, ids(got))
	})
	t.Run("exclude category substring", func(t *testing.T) {
		got := Apply(cands, &core.Intent{Exclude: core.Facets{Categories: []string{"식각"}}})
		assert.Equal(t, []string{"hot", "unknown", "zero"}, ids(got))
	})
}

func TestApplyOrBoost(t *testing.T) {
	cands := []*core.Candidate{
		candidate("a", "ICP Etcher", "식각", nil, nil),
		candidate("b", "RTA", "열처리", nil, nil),
	}
	cands[1].Combined = 0.95

	got := Apply(cands, &core.Intent{Or: []core.OrCondition{{Process: "etcher"}, {Category: "열처리"}, {Category: "식각"}}})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, ids(got))
	assert.InDelta(t, 0.7, got[0].Combined, 1e-9)
	assert.Equal(t, 1.0, got[1].Combined)
}
