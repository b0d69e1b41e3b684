package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/storage"
)

// SemanticRetriever returns equipment ordered by similarity to a query.
type SemanticRetriever interface {
	Retrieve(ctx context.Context, query string, k int, filter core.MetadataFilter) ([]*storage.SimilarEquipment, error)
}

// VectorRetriever embeds the query and searches the equipment repository.
type VectorRetriever struct {
	repo     storage.EquipmentRepository
	embedder ai.Embedder
	retry    ai.RetryPolicy
	logger   *slog.Logger
}

var _ SemanticRetriever = (*VectorRetriever)(nil)

// RetrieverOption configures a VectorRetriever.
type RetrieverOption func(*VectorRetriever) error

// WithRetryPolicy sets how embedding failures are retried.
func WithRetryPolicy(p ai.RetryPolicy) RetrieverOption {
	return func(r *VectorRetriever) error {
		if p.MaxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		r.retry = p
		return nil
	}
}

// WithRetrieverLogger sets a custom logger.
// Default is slog.Default().
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *VectorRetriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewVectorRetriever creates a retriever over repo.
func NewVectorRetriever(repo storage.EquipmentRepository, embedder ai.Embedder, opts ...RetrieverOption) (*VectorRetriever, error) {
	if repo == nil {
		return nil, ErrEquipmentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	r := &VectorRetriever{
		repo:     repo,
		embedder: embedder,
		retry:    ai.DefaultRetryPolicy,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve embeds query and returns up to k records matching filter.
// Embedding failures that survive every retry wrap ErrEmbeddingFailed.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int, filter core.MetadataFilter) ([]*storage.SimilarEquipment, error) {
	var vector []float32
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		vector, err = r.embedder.EmbedText(ctx, query)
		return err
	})
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	matches, err := r.repo.FindSimilar(ctx, vector, filter, k)
	if err != nil {
		r.logger.Error("error querying for similar equipment", "filter", filter, "err", err)
		return nil, err
	}
	return matches, nil
}
