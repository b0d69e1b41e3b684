// Package recommend sequences the retrieval and rerank stages into a
// single request/response pipeline.
//
// For each request the Pipeline:
//  1. validates the query and resolves the conversation session
//  2. detects follow-ups, extracts conditions and merges them with the
//     previous turn
//  3. deep-parses complex queries (negations, disjunctions, abstract asks)
//  4. runs hybrid retrieval for twice the requested count
//  5. applies policy reranking and the intent filter, then selects passing
//     candidates, falling back to the best candidates when none pass
//  6. asks the generator for reasons (cached), degrading to default reasons
//  7. records the turn
//
// Stream performs the same steps and delivers the generated text as a
// channel of events.
package recommend
