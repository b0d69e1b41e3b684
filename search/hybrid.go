package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/lexical"
	"github.com/poiesic/fabmatch/storage"
)

// LexicalSearcher returns BM25 hits with scores normalized to [0,1].
type LexicalSearcher interface {
	Search(query string, topK int) []lexical.Hit
}

var _ LexicalSearcher = (*lexical.Index)(nil)

// HybridSearcher fuses semantic and lexical retrieval.
type HybridSearcher struct {
	semantic SemanticRetriever
	lexical  LexicalSearcher
	weights  Weights
	logger   *slog.Logger
}

// Option configures a HybridSearcher.
type Option func(*HybridSearcher) error

// WithWeights sets the fusion weights.
func WithWeights(w Weights) Option {
	return func(s *HybridSearcher) error {
		if err := w.Validate(); err != nil {
			return err
		}
		s.weights = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *HybridSearcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewHybridSearcher creates a new searcher.
func NewHybridSearcher(semantic SemanticRetriever, lex LexicalSearcher, opts ...Option) (*HybridSearcher, error) {
	if semantic == nil || lex == nil {
		return nil, ErrRetrieverRequired
	}
	s := &HybridSearcher{
		semantic: semantic,
		lexical:  lex,
		weights:  DefaultWeights,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search returns up to k fused candidates for query. The filter applies to
// the semantic side only.
func (s *HybridSearcher) Search(ctx context.Context, query string, filter core.MetadataFilter, k int) ([]*core.Candidate, error) {
	return s.SearchWithMonitor(ctx, query, filter, k, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *HybridSearcher) SearchWithMonitor(ctx context.Context, query string, filter core.MetadataFilter, k int, monitor SearchMonitor) ([]*core.Candidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	var (
		semantic []*storage.SimilarEquipment
		lexHits  []lexical.Hit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = s.semantic.Retrieve(gctx, query, k*2, filter)
		return err
	})
	g.Go(func() error {
		lexHits = s.lexical.Search(query, k*2)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	semanticIDs := make([]string, len(semantic))
	for i, m := range semantic {
		semanticIDs[i] = m.Equipment.ID
	}
	monitor.AfterSemanticSearch(semanticIDs)

	lexicalIDs := make([]string, len(lexHits))
	for i, h := range lexHits {
		lexicalIDs[i] = h.Equipment.ID
	}
	monitor.AfterLexicalSearch(lexicalIDs)

	results := Combine(semantic, lexHits, s.weights, k)
	s.logger.Debug("hybrid search", "semantic", len(semantic), "lexical", len(lexHits), "fused", len(results))
	monitor.Finish(results)
	return results, nil
}
