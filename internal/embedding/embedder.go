// Package embedding turns text into vectors. Embedding is an external
// capability: both implementations call out to an embeddings API and the
// index receives the resulting vectors explicitly, so the backing model
// can be swapped without touching the index.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	// Name identifies the embedding model, for logging and health output.
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}
