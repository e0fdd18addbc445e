package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), texts...))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int   { return 2 }
func (e *countingEmbedder) ModelName() string { return "counting" }

type mapCache struct {
	mu sync.Mutex
	m  map[string][]float32
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string][]float32)} }

func (c *mapCache) Get(model, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[model+"|"+text]
	return v, ok
}

func (c *mapCache) Put(model, text string, v []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[model+"|"+text] = v
	return nil
}

func TestCachedEmbedder_EmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 10, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 1}}, first)

	second, err := c.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 1}, {3, 1}, {1, 1}}, second)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])
	assert.Equal(t, 3, c.Len())
}

func TestCachedEmbedder_PersistentTier(t *testing.T) {
	persistent := newMapCache()
	ctx := context.Background()

	warm, err := NewCachedEmbedder(&countingEmbedder{}, 10, persistent, nil)
	require.NoError(t, err)
	_, err = warm.Embed(ctx, []string{"welding"})
	require.NoError(t, err)

	inner := &countingEmbedder{}
	cold, err := NewCachedEmbedder(inner, 10, persistent, nil)
	require.NoError(t, err)
	vecs, err := cold.Embed(ctx, []string{"welding"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{7, 1}}, vecs)
	assert.Empty(t, inner.calls, "persistent hit must not reach the model")
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model offline")}
	c, err := NewCachedEmbedder(inner, 10, nil, nil)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCachedEmbedder_Delegates(t *testing.T) {
	c, err := NewCachedEmbedder(&countingEmbedder{}, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Dimension())
	assert.Equal(t, "counting", c.ModelName())

	out, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
