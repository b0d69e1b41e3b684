package rerank

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/policy"
)

type stubPolicy struct {
	settings policy.Settings
	err      error
	ranks    map[string]int
}

func (s *stubPolicy) Settings() (policy.Settings, error) {
	return s.settings, s.err
}

func (s *stubPolicy) InstitutionRank(institution string) int {
	if rank, ok := s.ranks[institution]; ok {
		return rank
	}
	return policy.DefaultRank
}

func setting(key string, value any) policy.Setting {
	return policy.Setting{Key: key, Value: value}
}

func candidate(id, institution string, fused float64) *core.Candidate {
	c := core.NewCandidate(&core.Equipment{ID: id, Name: id, Institution: institution})
	c.Fused = fused
	return c
}

func ids(cands []*core.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID()
	}
	return out
}

func newReranker(t *testing.T, p PolicySource) *PolicyReranker {
	t.Helper()
	r, err := NewPolicyReranker(WithPolicy(p))
	require.NoError(t, err)
	return r
}

func TestRerank_MaxRecommendations(t *testing.T) {
	p := &stubPolicy{
		settings: policy.Settings{policy.KeyMaxRecommendations: setting(policy.KeyMaxRecommendations, float64(3))},
		ranks:    map[string]int{"A": 1, "B": 2},
	}
	var cands []*core.Candidate
	for i := 0; i < 10; i++ {
		inst := "C"
		switch i {
		case 2, 7:
			inst = "A"
		case 5:
			inst = "B"
		}
		cands = append(cands, candidate(fmt.Sprintf("EQ%02d", i), inst, 1-float64(i)*0.05))
	}

	out := newReranker(t, p).Rerank(cands, nil, "")
	require.Len(t, out, 3)
	assert.Equal(t, []string{"EQ02", "EQ07", "EQ05"}, ids(out))
	assert.Equal(t, 1, out[0].PriorityRank)
}

func TestRerank_DefaultCap(t *testing.T) {
	var cands []*core.Candidate
	for i := 0; i < 15; i++ {
		cands = append(cands, candidate(fmt.Sprintf("EQ%02d", i), "", 0.5))
	}
	out := newReranker(t, &stubPolicy{settings: policy.Settings{}}).Rerank(cands, nil, "")
	assert.Len(t, out, DefaultMaxRecommendations)
}

func TestRerank_UserInstitutionFirst(t *testing.T) {
	p := &stubPolicy{settings: policy.Settings{}, ranks: map[string]int{"A": 1}}
	cands := []*core.Candidate{
		candidate("EQ1", "A", 0.9),
		candidate("EQ2", "MINE", 0.1),
	}
	out := newReranker(t, p).Rerank(cands, nil, "MINE")
	assert.Equal(t, []string{"EQ2", "EQ1"}, ids(out))
	assert.Equal(t, 0, out[0].PriorityRank)
}

func TestRerank_Exclusions(t *testing.T) {
	p := &stubPolicy{settings: policy.Settings{
		policy.KeyMaintenanceExclude: setting(policy.KeyMaintenanceExclude, true),
		policy.KeyExternalVisible:    setting(policy.KeyExternalVisible, "false"),
		policy.KeyMinRAGScore:        setting(policy.KeyMinRAGScore, 0.3),
	}}
	maint := candidate("MAINT", "", 0.9)
	maint.Equipment.Maintenance = true
	ext := candidate("EXT", "", 0.9)
	ext.Equipment.External = true
	low := candidate("LOW", "", 0.2)
	ok := candidate("OK", "", 0.5)

	out := newReranker(t, p).Rerank([]*core.Candidate{maint, ext, low, ok}, nil, "")
	assert.Equal(t, []string{"OK"}, ids(out))
}

func TestRerank_SettingsFailureSkipsPolicy(t *testing.T) {
	p := &stubPolicy{err: errors.New("broken"), settings: policy.Settings{}}
	maint := candidate("MAINT", "", 0.9)
	maint.Equipment.Maintenance = true

	var cands []*core.Candidate
	cands = append(cands, maint)
	for i := 0; i < 12; i++ {
		cands = append(cands, candidate(fmt.Sprintf("EQ%02d", i), "", 0.5))
	}
	out := newReranker(t, p).Rerank(cands, nil, "")
	assert.Len(t, out, 13)
	assert.Equal(t, "MAINT", out[0].ID())
}

func TestRerank_FilteredCandidatesDemoted(t *testing.T) {
	good := core.NewCandidate(&core.Equipment{ID: "RTA", WaferSizes: []string{"6 inch"}})
	good.Fused = 0.4
	bad := core.NewCandidate(&core.Equipment{ID: "MOCVD", WaferSizes: []string{"2 inch"}})
	bad.Fused = 0.9

	r, err := NewPolicyReranker()
	require.NoError(t, err)
	out := r.Rerank([]*core.Candidate{bad, good}, &core.Conditions{WaferSizes: []string{"6 inch"}}, "")
	require.Len(t, out, 2)
	assert.Equal(t, "RTA", out[0].ID())
	assert.False(t, out[1].FilterPassed)
	assert.Less(t, out[1].Combined, out[0].Combined)
}
