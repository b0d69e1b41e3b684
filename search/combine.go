package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/lexical"
	"github.com/poiesic/fabmatch/storage"
)

// Weights balance the semantic and lexical scores during fusion.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights weigh both sides equally.
var DefaultWeights = Weights{Semantic: 0.5, Lexical: 0.5}

// Validate checks the weights are usable.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Lexical < 0 || w.Semantic+w.Lexical == 0 {
		return ErrInvalidWeights
	}
	return nil
}

// Combine fuses the two ranked lists by equipment ID. A side that did not
// return an item contributes 0. When both sides return the same ID the
// semantic record is kept. The result is sorted by Fused descending, ties
// keeping semantic order first, and truncated to topK.
func Combine(semantic []*storage.SimilarEquipment, lexicalHits []lexical.Hit, w Weights, topK int) []*core.Candidate {
	byID := make(map[string]*core.Candidate, len(semantic)+len(lexicalHits))
	order := make([]*core.Candidate, 0, len(semantic)+len(lexicalHits))

	for _, s := range semantic {
		if _, dup := byID[s.Equipment.ID]; dup {
			continue
		}
		c := core.NewCandidate(s.Equipment)
		c.Semantic = s.Similarity
		byID[s.Equipment.ID] = c
		order = append(order, c)
	}
	for _, h := range lexicalHits {
		c, ok := byID[h.Equipment.ID]
		if !ok {
			c = core.NewCandidate(h.Equipment)
			byID[h.Equipment.ID] = c
			order = append(order, c)
		}
		c.Lexical = h.Score
	}

	for _, c := range order {
		c.Fused = w.Semantic*c.Semantic + w.Lexical*c.Lexical
	}
	slices.SortStableFunc(order, func(a, b *core.Candidate) int {
		return cmp.Compare(b.Fused, a.Fused)
	})
	if topK > 0 && len(order) > topK {
		order = order[:topK]
	}
	return order
}
