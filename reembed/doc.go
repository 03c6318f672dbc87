// Package reembed warms the embedding cache ahead of serving.
//
// A Job pairs an embedder with the texts it will be asked for at runtime:
// the canonical disease descriptions for the search model and the distinct
// precaution strings for the ranking model. Texts are embedded in batches,
// failed batches are retried with exponential backoff, and progress is
// reported to a writer. When the embedder is cache-backed, every vector
// computed here is persisted, so a later Bootstrap embeds nothing.
//
// Retries exist only here; query-time code never retries.
package reembed
