// Package knowledge provides disease-level similarity search.
//
// A KnowledgeBase owns the canonical description of every disease in the
// catalog and an index of their embeddings. Build embeds all descriptions in
// a single batch and publishes a new immutable snapshot atomically; Search
// embeds the query with the same embedder and returns the k most similar
// diseases by inner product of unit vectors.
//
// Once built, any number of goroutines may Search concurrently. A failed
// Build leaves the previous snapshot, if any, in effect.
package knowledge
