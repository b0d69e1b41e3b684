package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/storage"
)

// embeddingProcessor generates embeddings for equipment documents.
type embeddingProcessor struct {
	repo     storage.EquipmentRepository
	embedder ai.Embedder
	retry    ai.RetryPolicy
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(repo storage.EquipmentRepository, embedder ai.Embedder, retry ai.RetryPolicy, logger *slog.Logger) *embeddingProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		repo:     repo,
		embedder: embedder,
		retry:    retry,
		logger:   logger.With("processor", "embeddings"),
	}
}

// process embeds the batch and stores the normalized vectors.
func (ep *embeddingProcessor) process(ctx context.Context, batch []*core.Equipment) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	texts := make([]string, len(batch))
	for i, e := range batch {
		texts[i] = e.Document()
	}

	ep.logger.Debug("generating embeddings", "records", len(texts))
	var embeddings [][]float32
	err := ep.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = ep.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", ep.retry.MaxAttempts, err)
	}
	if len(embeddings) != len(batch) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
	}

	vectors := make(map[string][]float32, len(batch))
	for i, e := range batch {
		vectors[e.ID] = NormalizeVector(embeddings[i])
	}
	if err := ep.repo.UpdateVectors(ctx, vectors); err != nil {
		return 0, fmt.Errorf("failed to update vectors: %w", err)
	}
	return len(batch), nil
}

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
