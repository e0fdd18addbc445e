package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"skillmatch/config"
	"skillmatch/internal/adapter/cache"
	"skillmatch/internal/adapter/embedding"
	"skillmatch/internal/adapter/store"
	"skillmatch/internal/domain"
	"skillmatch/internal/port"
	"skillmatch/internal/usecase"
)

// app bundles the components a command needs and the cleanup they require.
type app struct {
	store   *store.FileCategoryStore
	matcher *usecase.Matcher
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}
}

// newApp wires the store and, when withModel is set, the embedding model.
// Commands that only read stored records skip loading the model.
func newApp(ctx context.Context, cfg *config.Config, withModel bool) (*app, error) {
	a := &app{store: store.NewFileCategoryStoreFromConfig(cfg, logger)}

	var emb port.Embedder
	if withModel {
		var err error
		emb, err = newEmbedder(ctx, cfg, a)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.matcher = usecase.NewMatcher(matcherConfig(cfg), emb, a.store, logger)
	return a, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config, a *app) (port.Embedder, error) {
	emb, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if c, ok := emb.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	logger.Debug("embedder ready", "provider", cfg.Embedding.Provider, "model", emb.ModelName(), "dimension", emb.Dimension())

	if !cfg.Cache.Enabled {
		return emb, nil
	}

	var persistent port.EmbeddingCache
	if cfg.Cache.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		bolt, err := store.NewBoltCache(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bolt)

		result, err := bolt.Migrate(emb.ModelName(), emb.Dimension())
		if err != nil {
			return nil, fmt.Errorf("failed to migrate embedding cache: %w", err)
		}
		if result.NeedsRebuild {
			logger.Warn("embedding cache cleared", "reason", result.Reason)
		}
		persistent = bolt
	}

	return cache.NewCachedEmbedder(emb, cfg.Cache.Size, persistent, logger)
}

func matcherConfig(cfg *config.Config) usecase.MatcherConfig {
	names := cfg.CategoryNames()
	cats := make([]domain.Category, len(names))
	for i, n := range names {
		cats[i] = domain.Category(n)
	}
	thresholds := make(map[domain.Category]float64, len(names))
	for name, th := range cfg.Thresholds() {
		thresholds[domain.Category(name)] = th
	}
	return usecase.MatcherConfig{
		Categories: cats,
		Thresholds: thresholds,
		MaxSkills:  cfg.Filter.MaxSkills,
		Step:       cfg.Filter.Step,
		Normalize:  cfg.Embedding.Normalize,
	}
}

// reporter prints status messages on stderr so stdout stays parseable.
func reporter() domain.Reporter {
	return func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}
}
