package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// MockEmbedder hashes each word into a fixed-size bag of words. Texts
// sharing words get positive similarity and identical texts get identical
// vectors, which is enough for offline runs and tests.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for _, word := range strings.Fields(strings.ReplaceAll(text, "::", " ")) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%uint32(e.dimension)] += 1
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
