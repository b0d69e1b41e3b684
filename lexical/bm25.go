package lexical

import "math"

// Okapi BM25 parameters.
const (
	k1      = 1.5
	b       = 0.75
	epsilon = 0.25
)

// bm25 holds corpus statistics for Okapi BM25 scoring.
type bm25 struct {
	docFreqs []map[string]int
	docLens  []int
	avgDL    float64
	idf      map[string]float64
}

func newBM25(corpus [][]string) *bm25 {
	m := &bm25{
		docFreqs: make([]map[string]int, len(corpus)),
		docLens:  make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}

	df := make(map[string]int)
	total := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		for term := range freqs {
			df[term]++
		}
		m.docFreqs[i] = freqs
		m.docLens[i] = len(doc)
		total += len(doc)
	}
	if len(corpus) > 0 {
		m.avgDL = float64(total) / float64(len(corpus))
	}

	// Very common terms get a negative idf; clamp them to a fraction of the
	// average so they still contribute a little.
	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for term, freq := range df {
		idf := math.Log(n-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		m.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(m.idf) > 0 {
		floor := epsilon * idfSum / float64(len(m.idf))
		for _, term := range negative {
			m.idf[term] = floor
		}
	}
	return m
}

// scores returns the raw BM25 score of every document for the query terms.
func (m *bm25) scores(query []string) []float64 {
	out := make([]float64, len(m.docFreqs))
	if m.avgDL == 0 {
		return out
	}
	for _, term := range query {
		idf, ok := m.idf[term]
		if !ok {
			continue
		}
		for i, freqs := range m.docFreqs {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			norm := k1 * (1 - b + b*float64(m.docLens[i])/m.avgDL)
			out[i] += idf * tf * (k1 + 1) / (tf + norm)
		}
	}
	return out
}
