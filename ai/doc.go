// Package ai provides abstractions for the model services used by fabmatch.
//
// The package defines interfaces for text embeddings, recommendation
// generation and query intent parsing, so that retrieval and ranking code
// depends on abstractions rather than on a particular model server.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - Recommender: Writes equipment recommendations, structured or streamed
//   - IntentParser: Turns complex queries into a structured core.Intent
//   - AIProvider: Aggregates the services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs (Ollama, vLLM)
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors in ai/openai return INTERFACE types to prevent coupling
// to a concrete implementation:
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Mock constructors return CONCRETE types so tests can inject behavior and
// assert on calls:
//
//	embedder := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	embedder.WithEmbedTextFunc(...)
//	count := embedder.CallCount()
//
// Generated text is passed through SanitizeCJK before it reaches callers.
package ai
