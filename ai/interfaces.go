package ai

import (
	"context"

	"github.com/poiesic/fabmatch/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Recommender writes equipment recommendations for a query using a
// generative model. Implementations must be thread-safe for concurrent use.
type Recommender interface {
	// Recommend selects equipment from candidates and explains the choice.
	// An empty candidate list yields an empty result with an explanation,
	// not an error. Returned text has been passed through SanitizeCJK.
	Recommend(ctx context.Context, query string, candidates []*core.Equipment) (*RecommendationResult, error)

	// RecommendStream produces the recommendation as free text. The channel
	// is closed after the last chunk; a chunk carrying Err is always last.
	// Cancelling ctx stops generation and closes the channel.
	RecommendStream(ctx context.Context, query string, candidates []*core.Equipment) (<-chan StreamChunk, error)
}

// IntentParser interprets complex queries (negations, disjunctions, abstract
// requests) into a structured Intent.
type IntentParser interface {
	// ParseIntent returns the structured intent of query. Model output that
	// cannot be decoded is reported as ErrMalformedOutput.
	ParseIntent(ctx context.Context, query string) (*core.Intent, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Recommender returns the recommendation generator.
	Recommender() Recommender

	// IntentParser returns the query intent parser.
	IntentParser() IntentParser

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
