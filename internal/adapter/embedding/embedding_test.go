package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillmatch/config"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"go programming::", "go programming::", "welding::"})
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Len(t, a[0], 32)
	assert.Equal(t, a[0], a[1])
	assert.NotEqual(t, a[0], a[2])
	assert.Equal(t, 32, e.Dimension())
	assert.Equal(t, "mock", e.ModelName())
}

func TestMockEmbedder_SeparatorIsNotAWord(t *testing.T) {
	e := NewMockEmbedder(16)
	out, err := e.Embed(context.Background(), []string{"welding::", "welding"})
	require.NoError(t, err)
	assert.Equal(t, out[0], out[1])
}

func TestMockEmbedder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockEmbedder(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, config.EmbeddingConfig{Provider: ProviderMock, Dimension: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, e.Dimension())

	e, err = New(ctx, config.EmbeddingConfig{Provider: ProviderOllama, Model: "all-minilm"})
	require.NoError(t, err)
	assert.Equal(t, 384, e.Dimension())
	assert.Equal(t, "all-minilm", e.ModelName())

	t.Setenv("SKILLMATCH_TEST_KEY", "")
	_, err = New(ctx, config.EmbeddingConfig{Provider: ProviderOpenAI, APIKeyEnv: "SKILLMATCH_TEST_KEY", Model: "text-embedding-3-small"})
	assert.Error(t, err)

	t.Setenv("SKILLMATCH_TEST_KEY", "sk-test")
	e, err = New(ctx, config.EmbeddingConfig{Provider: ProviderOpenAI, APIKeyEnv: "SKILLMATCH_TEST_KEY", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimension())

	_, err = New(ctx, config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}
