// Package filter applies hard and soft equipment constraints to retrieval
// candidates and computes how well each candidate matches the request.
package filter

import (
	"cmp"
	"slices"

	"github.com/poiesic/fabmatch/core"
)

// Facet weights of the match score.
const (
	weightWafer       = 0.25
	weightTemperature = 0.25
	weightMaterials   = 0.25
	weightCategory    = 0.15
	weightInstitution = 0.10
)

// Blend of the combined score and the demotion applied to failing candidates.
const (
	fusedShare   = 0.4
	matchShare   = 0.6
	failedWeight = 0.3
)

// Engine evaluates candidates against extracted conditions.
type Engine struct {
	// Strict drops failing candidates instead of moving them to the end.
	Strict bool
}

// Evaluate records every check on the candidate and sets FilterPassed.
// The category check never affects FilterPassed.
func (Engine) Evaluate(c *core.Candidate, cond *core.Conditions) {
	e := c.Equipment
	c.Checks = []core.CheckResult{
		WaferSize(e, cond.WaferSizes),
		Temperature(e, cond.TempMin, cond.TempMax),
		Materials(e, cond.Materials),
		Institution(e, cond.Institutions),
		Category(e, cond.Categories, cond.MappedCategories),
	}
	c.FilterPassed = true
	for _, check := range c.Checks {
		if !check.Passed {
			c.FilterPassed = false
		}
	}
}

// Apply evaluates all candidates and returns them with passing candidates
// first, each group by fused score descending. In strict mode failing
// candidates are dropped.
func (en Engine) Apply(candidates []*core.Candidate, cond *core.Conditions) []*core.Candidate {
	out := make([]*core.Candidate, 0, len(candidates))
	for _, c := range candidates {
		en.Evaluate(c, cond)
		if en.Strict && !c.FilterPassed {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b *core.Candidate) int {
		if a.FilterPassed != b.FilterPassed {
			if a.FilterPassed {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Fused, a.Fused)
	})
	return out
}

// MatchScore is the weighted fraction of requested facets the equipment
// satisfies. It is 1 when nothing was requested.
func MatchScore(e *core.Equipment, cond *core.Conditions) float64 {
	var score, total float64
	award := func(weight float64, ok bool) {
		total += weight
		if ok {
			score += weight
		}
	}

	if len(cond.WaferSizes) > 0 {
		award(weightWafer, WaferSize(e, cond.WaferSizes).Passed)
	}
	if cond.TempMin != nil || cond.TempMax != nil {
		award(weightTemperature, Temperature(e, cond.TempMin, cond.TempMax).Passed)
	}
	if len(cond.Materials) > 0 {
		award(weightMaterials, hasMaterial(e, cond.Materials))
	}
	if len(cond.Categories) > 0 || len(cond.MappedCategories) > 0 {
		award(weightCategory, categoryMatches(e, cond.Categories, cond.MappedCategories))
	}
	if len(cond.Institutions) > 0 {
		award(weightInstitution, hasInstitution(e, cond.Institutions))
	}

	if total == 0 {
		return 1
	}
	return score / total
}

// Score sets Match and Combined on an evaluated candidate.
func Score(c *core.Candidate, cond *core.Conditions) {
	c.Match = MatchScore(c.Equipment, cond)
	weight := 1.0
	if !c.FilterPassed {
		weight = failedWeight
	}
	c.Combined = clamp01((c.Fused*fusedShare + c.Match*matchShare) * weight)
}

// SortByCombined orders candidates by Combined descending, keeping the
// previous order among ties.
func SortByCombined(candidates []*core.Candidate) {
	slices.SortStableFunc(candidates, func(a, b *core.Candidate) int {
		return cmp.Compare(b.Combined, a.Combined)
	})
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
