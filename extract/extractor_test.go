package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMapper []string

func (m stubMapper) MapCategories(string) []string { return m }

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := NewExtractor(opts...)
	require.NoError(t, err)
	return e
}

func TestExtractor_WaferSizes(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"6인치 웨이퍼", []string{"6 inch"}},
		{"8 inch and 6\" wafer", []string{"6 inch", "8 inch"}},
		{"200mm 웨이퍼 PECVD", []string{"8 inch"}},
		{"6인치 150 mm", []string{"6 inch"}},
		{"5인치 웨이퍼", nil},
		{"1500mm 길이", nil},
		{"웨이퍼 크기 무관", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := e.WaferSizes(tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_Temperature(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		query    string
		min, max *float64
	}{
		{"200~1200도 열처리", ptr(200), ptr(1200)},
		{"300-500℃ 범위", ptr(300), ptr(500)},
		{"400도 이상 열처리 가능한 장비", ptr(400), nil},
		{"800도 이하로만", nil, ptr(800)},
		{"~300°C 공정", nil, ptr(300)},
		{"1000℃ 초과 100도 미만", ptr(1000), ptr(100)},
		{"고온 산화 공정용 확산로", ptr(500), nil},
		{"저온 증착", nil, ptr(200)},
		{"고온 700도 이하", ptr(500), ptr(700)},
		{"RTA 장비", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			minT, maxT := e.Temperature(tt.query)
			assert.Equal(t, tt.min, minT)
			assert.Equal(t, tt.max, maxT)
		})
	}
}

func TestExtractor_Dictionaries(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("latin material needs word boundary", func(t *testing.T) {
		assert.Equal(t, []string{"Si"}, e.Materials("6인치 Si 웨이퍼용"))
		assert.Equal(t, []string{"SiC"}, e.Materials("SiC 기판"))
		assert.Empty(t, e.Materials("single wafer"))
	})

	t.Run("hangul material substring", func(t *testing.T) {
		assert.Equal(t, []string{"Sapphire"}, e.Materials("사파이어기판 에피 성장"))
	})

	t.Run("categories deduplicated", func(t *testing.T) {
		assert.Equal(t, []string{"열처리"}, e.Categories("RTA 열처리 장비"))
	})

	t.Run("institutions case sensitive", func(t *testing.T) {
		assert.Equal(t, []string{"나노종합기술원"}, e.Institutions("나노종합기술원 SEM 장비"))
		assert.Empty(t, e.Institutions("nnfc 장비"))
	})
}

func TestExtractor_Extract(t *testing.T) {
	e := newTestExtractor(t, WithCategoryMapper(stubMapper{"RTA", "FURNACE"}))

	c := e.Extract("6인치 Si 웨이퍼용 RTA 장비")
	assert.Equal(t, "6인치 Si 웨이퍼용 RTA 장비", c.Original)
	assert.Equal(t, "6인치 si 웨이퍼용 rta 장비", c.Normalized)
	assert.Equal(t, []string{"6 inch"}, c.WaferSizes)
	assert.Equal(t, []string{"Si"}, c.Materials)
	assert.Equal(t, []string{"열처리"}, c.Categories)
	assert.Equal(t, []string{"RTA", "FURNACE"}, c.MappedCategories)
	assert.Contains(t, c.Keywords, "rta")
	assert.Nil(t, c.TempMin)
	assert.Nil(t, c.TempMax)

	empty := newTestExtractor(t).Extract("안녕하세요")
	assert.True(t, empty.IsEmpty())
}

func TestExtractor_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filter_rules.json")
	content := `{
  "wafer_sizes": {"valid_sizes": ["4 inch"]},
  "temperature": {"high_temp_threshold": 900},
  "materials": {"inp": "InP"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	e := newTestExtractor(t)
	require.NoError(t, e.Reload(path))

	assert.Empty(t, e.WaferSizes("6인치"))
	assert.Equal(t, []string{"4 inch"}, e.WaferSizes("4인치"))
	assert.Equal(t, []string{"8 inch"}, e.WaferSizes("200mm"), "mm table falls back to defaults")
	minT, _ := e.Temperature("고온")
	assert.Equal(t, ptr(900), minT)
	assert.Equal(t, []string{"InP"}, e.Materials("InP 기판"))
	assert.Empty(t, e.Materials("Si 기판"))

	t.Run("malformed file installs defaults", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
		err := e.Reload(bad)
		assert.ErrorIs(t, err, ErrInvalidRules)
		assert.Equal(t, []string{"6 inch"}, e.WaferSizes("6인치"))
		assert.Equal(t, []string{"Si"}, e.Materials("Si 기판"))
	})

	t.Run("missing file installs defaults", func(t *testing.T) {
		err := e.Reload(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
		assert.Equal(t, []string{"6 inch"}, e.WaferSizes("6인치"))
	})
}

func TestSemanticFilter(t *testing.T) {
	e := newTestExtractor(t)
	assert.Nil(t, SemanticFilter(nil))
	assert.Nil(t, SemanticFilter(e.Extract("RTA 장비")))

	f := SemanticFilter(e.Extract("KANC 식각 장비"))
	require.Len(t, f, 1)
	assert.Equal(t, "한국나노기술원", f[0].Value)
}

func TestNewExtractor_NilRules(t *testing.T) {
	_, err := NewExtractor(WithRules(nil))
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }
