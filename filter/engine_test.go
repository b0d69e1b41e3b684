package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/core"
)

func rta() *core.Equipment {
	return &core.Equipment{
		ID: "EQ001", Name: "급속열처리장비", NameEN: "RTA", Category: "열처리",
		WaferSizes: []string{"4 inch", "6 inch", "8 inch"}, Materials: []string{"Si"},
		TempMin: core.Float(200), TempMax: core.Float(1200), Institution: "한국나노기술원",
	}
}

func mocvd() *core.Equipment {
	return &core.Equipment{
		ID: "EQ009", Name: "MOCVD", Category: "증착",
		WaferSizes: []string{"2 inch", "3 inch", "4 inch"}, Materials: []string{"GaN", "AlGaN"},
		TempMin: core.Float(400), TempMax: core.Float(1200), Institution: "나노종합기술원",
	}
}

func TestWaferSize(t *testing.T) {
	e := &core.Equipment{WaferSizes: []string{"6 inch", "8 inch"}}

	assert.True(t, WaferSize(e, []string{"6 inch"}).Passed)
	assert.True(t, WaferSize(e, nil).Passed)
	res := WaferSize(e, []string{"4 inch"})
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "미지원")
	assert.False(t, WaferSize(&core.Equipment{}, []string{"6 inch"}).Passed)
}

func TestTemperature(t *testing.T) {
	e := &core.Equipment{TempMin: core.Float(200), TempMax: core.Float(1200)}

	tests := []struct {
		name     string
		min, max *float64
		want     bool
	}{
		{"nothing requested", nil, nil, true},
		{"min within range", core.Float(400), nil, true},
		{"max below equipment min", nil, core.Float(100), false},
		{"min above equipment max", core.Float(1300), nil, false},
		{"window overlaps", core.Float(100), core.Float(300), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Temperature(e, tt.min, tt.max).Passed)
		})
	}

	t.Run("unknown equipment range fails", func(t *testing.T) {
		half := &core.Equipment{TempMax: core.Float(900)}
		res := Temperature(half, core.Float(400), nil)
		assert.False(t, res.Passed)
		assert.Equal(t, "온도 정보 없음", res.Reason)
	})
}

func TestMaterialsAndInstitution(t *testing.T) {
	e := mocvd()
	assert.True(t, Materials(e, []string{"gan"}).Passed)
	assert.False(t, Materials(e, []string{"Si"}).Passed)
	assert.True(t, Materials(&core.Equipment{}, []string{"Si"}).Passed, "no material data passes")

	assert.True(t, Institution(e, []string{"나노종합"}).Passed)
	assert.False(t, Institution(e, []string{"한국나노기술원"}).Passed)
}

func TestCategory(t *testing.T) {
	e := rta()
	assert.True(t, Category(e, []string{"식각"}, nil).Passed)
	assert.NotEmpty(t, Category(e, []string{"식각"}, nil).Reason)
	assert.Empty(t, Category(e, []string{"열처리"}, nil).Reason)
	assert.Empty(t, Category(e, nil, []string{"rta"}).Reason, "mapped category found in name")
}

func TestEngine_Apply(t *testing.T) {
	cond := &core.Conditions{WaferSizes: []string{"6 inch"}, Materials: []string{"Si"}}

	newCandidates := func() []*core.Candidate {
		a := core.NewCandidate(mocvd())
		a.Fused = 0.9
		b := core.NewCandidate(rta())
		b.Fused = 0.6
		return []*core.Candidate{a, b}
	}

	t.Run("failing candidates moved last", func(t *testing.T) {
		out := Engine{}.Apply(newCandidates(), cond)
		require.Len(t, out, 2)
		assert.Equal(t, "EQ001", out[0].ID())
		assert.True(t, out[0].FilterPassed)
		assert.False(t, out[1].FilterPassed)
		assert.Len(t, out[1].FailedChecks(), 2)
	})

	t.Run("strict drops failing", func(t *testing.T) {
		out := Engine{Strict: true}.Apply(newCandidates(), cond)
		require.Len(t, out, 1)
		assert.Equal(t, "EQ001", out[0].ID())
	})

	t.Run("adding a constraint never increases passing count", func(t *testing.T) {
		loose := Engine{Strict: true}.Apply(newCandidates(), &core.Conditions{Materials: []string{"Si"}})
		tight := Engine{Strict: true}.Apply(newCandidates(), &core.Conditions{Materials: []string{"Si"}, TempMin: core.Float(1300)})
		assert.LessOrEqual(t, len(tight), len(loose))
	})
}

func TestMatchScore(t *testing.T) {
	t.Run("nothing requested", func(t *testing.T) {
		assert.Equal(t, 1.0, MatchScore(rta(), &core.Conditions{}))
	})

	t.Run("all facets satisfied", func(t *testing.T) {
		cond := &core.Conditions{
			WaferSizes: []string{"6 inch"}, Materials: []string{"si"}, Categories: []string{"열처리"},
			TempMin: core.Float(400), Institutions: []string{"한국나노"},
		}
		assert.InDelta(t, 1.0, MatchScore(rta(), cond), 1e-9)
	})

	t.Run("partial", func(t *testing.T) {
		cond := &core.Conditions{WaferSizes: []string{"6 inch"}, Materials: []string{"GaN"}}
		assert.InDelta(t, 0.5, MatchScore(rta(), cond), 1e-9)
	})

	t.Run("process-mapped categories count toward the category weight", func(t *testing.T) {
		cond := &core.Conditions{WaferSizes: []string{"4 inch"}, MappedCategories: []string{"열처리"}}
		assert.InDelta(t, 1.0, MatchScore(rta(), cond), 1e-9)
		// wafer .25 earned out of wafer .25 + category .15
		assert.InDelta(t, 0.625, MatchScore(mocvd(), cond), 1e-9)
	})

	t.Run("material without data earns nothing", func(t *testing.T) {
		cond := &core.Conditions{Materials: []string{"Si"}}
		assert.Equal(t, 0.0, MatchScore(&core.Equipment{}, cond))
	})
}

func TestScore(t *testing.T) {
	cond := &core.Conditions{WaferSizes: []string{"6 inch"}}
	en := Engine{}

	pass := core.NewCandidate(rta())
	pass.Fused = 0.5
	en.Evaluate(pass, cond)
	Score(pass, cond)
	assert.InDelta(t, 0.5*0.4+1*0.6, pass.Combined, 1e-9)

	failing := core.NewCandidate(mocvd())
	failing.Fused = 1
	en.Evaluate(failing, cond)
	Score(failing, cond)
	assert.InDelta(t, (1*0.4+0)*0.3, failing.Combined, 1e-9)

	for _, c := range []*core.Candidate{pass, failing} {
		assert.GreaterOrEqual(t, c.Combined, 0.0)
		assert.LessOrEqual(t, c.Combined, 1.0)
		assert.GreaterOrEqual(t, c.Match, 0.0)
		assert.LessOrEqual(t, c.Match, 1.0)
	}

	list := []*core.Candidate{failing, pass}
	SortByCombined(list)
	assert.Equal(t, "EQ001", list[0].ID())
}
