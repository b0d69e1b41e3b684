// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder, MockRecommender and MockIntentParser let pipeline tests run
// without a model server. Every mock is safe for concurrent use, counts its
// calls, and accepts a function field to override the default behavior.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	parser := mock.NewMockIntentParser()
//	parser.ParseIntentFunc = func(ctx context.Context, query string) (*core.Intent, error) {
//	    return nil, ai.ErrMalformedOutput
//	}
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors derived from an FNV hash of the text
//   - MockRecommender: recommends the first three candidates in order
//   - MockIntentParser: a simple search intent echoing the query
package mock
