package lexical

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/core"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"joins number and unit", "6 inch wafer", []string{"6inch", "wafer"}},
		{"korean unit stays separate", "6 인치 웨이퍼", []string{"인치", "웨이퍼"}},
		{"english lowercase", "RTA for Si wafer", []string{"rta", "si", "wafer"}},
		{"drops stopwords", "the 장비 는", []string{"장비"}},
		{"drops single runes", "a b 가 c", nil},
		{"temperature unit", "1000 ℃ 이상", []string{"1000℃", "이상"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func testCorpus() []*core.Equipment {
	return []*core.Equipment{
		{ID: "EQ001", Name: "급속열처리장비", NameEN: "RTA", Category: "열처리", Materials: []string{"Si"}},
		{ID: "EQ002", Name: "플라즈마 식각장비", NameEN: "ICP Etcher", Category: "식각"},
		{ID: "EQ003", Name: "전자빔 증착기", NameEN: "E-beam Evaporator", Category: "증착"},
		{ID: "EQ004", Name: "확산로", NameEN: "Diffusion Furnace", Category: "열처리"},
	}
}

func TestIndex_Search(t *testing.T) {
	idx := NewIndex()
	idx.Build(testCorpus())
	require.Equal(t, 4, idx.Len())

	t.Run("best hit normalized to one", func(t *testing.T) {
		hits := idx.Search("RTA 장비", 10)
		require.NotEmpty(t, hits)
		assert.Equal(t, "EQ001", hits[0].Equipment.ID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	})

	t.Run("scores descending and non-zero", func(t *testing.T) {
		hits := idx.Search("열처리 furnace", 10)
		require.NotEmpty(t, hits)
		for i, hit := range hits {
			assert.Greater(t, hit.Score, 0.0)
			if i > 0 {
				assert.LessOrEqual(t, hit.Score, hits[i-1].Score)
			}
		}
	})

	t.Run("top k", func(t *testing.T) {
		hits := idx.Search("rta etcher", 1)
		assert.Len(t, hits, 1)
	})

	t.Run("no matching terms", func(t *testing.T) {
		assert.Empty(t, idx.Search("lithography", 10))
		assert.Empty(t, idx.Search("", 10))
	})

	t.Run("get", func(t *testing.T) {
		e, ok := idx.Get("EQ003")
		require.True(t, ok)
		assert.Equal(t, "증착", e.Category)
		_, ok = idx.Get("missing")
		assert.False(t, ok)
	})
}

func TestIndex_EmptyAndRebuild(t *testing.T) {
	idx := NewIndex()
	assert.Empty(t, idx.Search("RTA", 5))

	idx.Build(testCorpus())
	assert.NotEmpty(t, idx.Search("RTA", 5))

	idx.Build(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Search("RTA", 5))
}

func TestIndex_ConcurrentSearchDuringRebuild(t *testing.T) {
	idx := NewIndex()
	idx.Build(testCorpus())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					idx.Build(testCorpus())
				} else {
					hits := idx.Search("rta", 10)
					assert.NotEmpty(t, hits)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestBM25_NegativeIDFClamped(t *testing.T) {
	// "장비" appears in every document and would otherwise score below zero.
	model := newBM25([][]string{
		{"장비", "rta"},
		{"장비", "식각"},
		{"장비", "증착"},
		{"장비", "노광"},
		{"장비", "세정"},
	})
	assert.Greater(t, model.idf["장비"], 0.0)
	assert.Greater(t, model.idf["rta"], model.idf["장비"])
}
