package port

import "context"

// Embedder maps text to fixed-dimension vectors.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingCache remembers vectors already computed for a model and text.
type EmbeddingCache interface {
	Get(model, text string) ([]float32, bool)

	Put(model, text string, vector []float32) error
}
