package intent

import (
	"strings"

	"github.com/poiesic/fabmatch/core"
)

// orBoost is added to Combined for every satisfied OR clause.
const orBoost = 0.1

// Apply drops candidates matching an exclusion and boosts those satisfying
// OR clauses. The input order is preserved; a nil intent returns cands as is.
func Apply(cands []*core.Candidate, intent *core.Intent) []*core.Candidate {
	if intent == nil || len(cands) == 0 {
		return cands
	}

	out := make([]*core.Candidate, 0, len(cands))
	for _, c := range cands {
		if excluded(c.Equipment, &intent.Exclude) {
			continue
		}
		if boost := orScore(c.Equipment, intent.Or); boost > 0 {
			c.Combined = min(1.0, c.Combined+boost)
		}
		out = append(out, c)
	}
	return out
}

func excluded(e *core.Equipment, ex *core.Facets) bool {
	// A zero bound is treated as unknown.
	if ex.TempMin != nil && e.TempMin != nil && *e.TempMin != 0 && *e.TempMin >= *ex.TempMin {
		return true
	}
	if ex.TempMax != nil && e.TempMax != nil && *e.TempMax != 0 && *e.TempMax <= *ex.TempMax {
		return true
	}
	for _, m := range ex.Materials {
		for _, have := range e.Materials {
			if strings.EqualFold(m, have) {
				return true
			}
		}
	}
	category := strings.ToLower(e.Category)
	for _, cat := range ex.Categories {
		if cat != "" && strings.Contains(category, strings.ToLower(cat)) {
			return true
		}
	}
	return false
}

func orScore(e *core.Equipment, clauses []core.OrCondition) float64 {
	var boost float64
	name := strings.ToLower(e.Name)
	category := strings.ToLower(e.Category)
	for _, clause := range clauses {
		if clause.Process != "" && strings.Contains(name, strings.ToLower(clause.Process)) {
			boost += orBoost
		}
		if clause.Category != "" && strings.Contains(category, strings.ToLower(clause.Category)) {
			boost += orBoost
		}
	}
	return boost
}
