package cache

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"skillmatch/internal/port"
)

// CachedEmbedder memoizes an Embedder: an in-process LRU in front of an
// optional persistent cache.
type CachedEmbedder struct {
	embedder   port.Embedder
	memory     *lru.Cache[string, []float32]
	persistent port.EmbeddingCache
	logger     *slog.Logger
}

// NewCachedEmbedder wraps embedder. persistent may be nil.
func NewCachedEmbedder(embedder port.Embedder, size int, persistent port.EmbeddingCache, logger *slog.Logger) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	memory, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &CachedEmbedder{
		embedder:   embedder,
		memory:     memory,
		persistent: persistent,
		logger:     logger,
	}, nil
}

// Embed returns cached vectors where available and embeds only the misses.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := c.embedder.ModelName()
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.lookup(model, text); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	for j, vec := range vectors {
		out[missIdx[j]] = vec
		c.store(model, missTexts[j], vec)
	}

	return out, nil
}

func (c *CachedEmbedder) lookup(model, text string) ([]float32, bool) {
	key := model + "\x00" + text
	if vec, ok := c.memory.Get(key); ok {
		return vec, true
	}
	if c.persistent == nil {
		return nil, false
	}
	vec, ok := c.persistent.Get(model, text)
	if !ok || len(vec) != c.embedder.Dimension() {
		return nil, false
	}
	c.memory.Add(key, vec)
	return vec, true
}

func (c *CachedEmbedder) store(model, text string, vec []float32) {
	c.memory.Add(model+"\x00"+text, vec)
	if c.persistent == nil {
		return
	}
	if err := c.persistent.Put(model, text, vec); err != nil {
		c.logger.Warn("failed to persist embedding", "model", model, "error", err)
	}
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimension() int {
	return c.embedder.Dimension()
}

// ModelName returns the wrapped embedder's model name.
func (c *CachedEmbedder) ModelName() string {
	return c.embedder.ModelName()
}

// Len returns the number of vectors held in memory.
func (c *CachedEmbedder) Len() int {
	return c.memory.Len()
}

// Purge drops the in-memory entries.
func (c *CachedEmbedder) Purge() {
	c.memory.Purge()
}
