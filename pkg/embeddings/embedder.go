// Package embeddings defines the embedding boundary used to turn
// question text into vectors for the knowledge index.
package embeddings

import "context"

// Embedder converts text into dense vectors. Implementations wrap a
// remote embedding service, so Embed takes a context for cancellation.
type Embedder interface {
	// Embed returns the vector for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
