// Package lexical provides the keyword side of hybrid retrieval: a
// Korean/English tokenizer and an in-memory Okapi BM25 index over
// equipment documents.
//
// The index is rebuilt wholesale and swapped atomically, so searches never
// observe a partially built corpus.
package lexical

import (
	"slices"
	"sync/atomic"

	"github.com/poiesic/fabmatch/core"
)

// Hit is a lexical search result. Score is normalized to (0,1] by the
// best score of the query.
type Hit struct {
	Equipment *core.Equipment
	Score     float64
}

type snapshot struct {
	docs  []*core.Equipment
	byID  map[string]*core.Equipment
	model *bm25
}

// Index is a BM25 index that is safe for concurrent use.
type Index struct {
	current atomic.Pointer[snapshot]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(&snapshot{byID: map[string]*core.Equipment{}, model: newBM25(nil)})
	return idx
}

// Build replaces the indexed corpus.
func (idx *Index) Build(docs []*core.Equipment) {
	corpus := make([][]string, len(docs))
	byID := make(map[string]*core.Equipment, len(docs))
	for i, doc := range docs {
		corpus[i] = Tokenize(doc.Document())
		byID[doc.ID] = doc
	}
	idx.current.Store(&snapshot{
		docs:  slices.Clone(docs),
		byID:  byID,
		model: newBM25(corpus),
	})
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.current.Load().docs)
}

// Get returns an indexed document by ID.
func (idx *Index) Get(id string) (*core.Equipment, bool) {
	e, ok := idx.current.Load().byID[id]
	return e, ok
}

// Search returns up to topK documents with a non-zero score, best first.
func (idx *Index) Search(query string, topK int) []Hit {
	snap := idx.current.Load()
	if topK <= 0 || len(snap.docs) == 0 {
		return nil
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scores := snap.model.scores(terms)
	best := slices.Max(scores)
	if best <= 0 {
		return nil
	}

	hits := make([]Hit, 0, len(scores))
	for i, score := range scores {
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Equipment: snap.docs[i], Score: score / best})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
