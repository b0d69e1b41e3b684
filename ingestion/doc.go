// Package ingestion loads equipment records into the store and keeps their
// embeddings current.
//
// The Pipeline type manages the seeding workflow:
//   - Decoding and validating equipment records from a JSON data file
//   - Writing records to storage, keeping stored vectors for unchanged content
//   - Embedding records that lack a vector in batches on a worker pool
//   - Recording a checkpoint so an unchanged data file is not reprocessed
//
// Reembed regenerates every stored vector, typically after the embedding
// model changes.
package ingestion
