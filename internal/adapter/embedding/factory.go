package embedding

import (
	"context"
	"fmt"

	"skillmatch/config"
	"skillmatch/internal/port"
)

// Provider names accepted in embedding.provider.
const (
	ProviderHugot  = "hugot"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// New builds the embedder selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case ProviderHugot, "":
		return NewHugotEmbedder(ctx, cfg.Model, cfg.ModelsDir, cfg.OrtLibraryPath, cfg.Dimension)
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Dimension)
	case ProviderOllama:
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension), nil
	case ProviderMock:
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
