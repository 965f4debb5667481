// Package embedding provides the embedding-provider contract, an
// OpenAI-compatible HTTP adapter, an LRU cache, and a deterministic mock.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must fail
// explicitly on provider error, connectivity failure, or timeout rather than
// silently return a zero vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
	Close() error
}
