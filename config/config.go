package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for skillmatch.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Filter    FilterConfig    `yaml:"filter"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig describes where category files live.
type StoreConfig struct {
	DataDir     string                    `yaml:"data_dir"`
	LockTimeout time.Duration             `yaml:"lock_timeout"`
	Categories  map[string]CategoryConfig `yaml:"categories"`
}

// CategoryConfig maps one category key to its three files and base threshold.
type CategoryConfig struct {
	Vectors   string  `yaml:"vectors"`
	Keys      string  `yaml:"keys"`
	Titles    string  `yaml:"titles"`
	Threshold float64 `yaml:"threshold"`
}

// FilterConfig holds adaptive threshold filter settings.
type FilterConfig struct {
	MaxSkills         int     `yaml:"max_skills"`
	Step              float64 `yaml:"step"`
	NewSkillThreshold float64 `yaml:"new_skill_threshold"` // BestMatch cutoff below which a name counts as new
	TopK              int     `yaml:"top_k"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`    // "hugot", "openai", "ollama", "mock"
	Model          string `yaml:"model"`       // e.g., "sentence-transformers/multi-qa-mpnet-base-cos-v1"
	APIKeyEnv      string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	Normalize      bool   `yaml:"normalize"` // L2-normalize vectors so dot product equals cosine
	ModelsDir      string `yaml:"models_dir"`
	OrtLibraryPath string `yaml:"ort_library_path"`
}

// CacheConfig holds embedding cache configuration.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Size    int    `yaml:"size"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultCategories returns the built-in category layout.
// Courses and Professions are reserved and stay empty unless something
// adds to them.
func DefaultCategories() map[string]CategoryConfig {
	thresholds := map[string]float64{
		"Professional": 0.45,
		"IT":           0.5,
		"Soft":         0.5,
		"Language":     0.6,
		"Courses":      0.5,
		"Professions":  0.5,
	}
	out := make(map[string]CategoryConfig, len(thresholds))
	for name, th := range thresholds {
		dir := filepath.Join("embeddings", name)
		out[name] = CategoryConfig{
			Vectors:   filepath.Join(dir, "vectors.f32"),
			Keys:      filepath.Join(dir, "keys.jsonl"),
			Titles:    filepath.Join(dir, "titles.jsonl"),
			Threshold: th,
		}
	}
	return out
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:     "data",
			LockTimeout: 10 * time.Second,
			Categories:  DefaultCategories(),
		},
		Filter: FilterConfig{
			MaxSkills:         150,
			Step:              0.01,
			NewSkillThreshold: 0.8,
			TopK:              5,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hugot",
			Model:     "sentence-transformers/multi-qa-mpnet-base-cos-v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 768,
			Normalize: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
			Path:    filepath.Join(".skillmatch", "embeddings.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	// Categories from the file replace the defaults instead of merging into them.
	cfg.Store.Categories = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Store.Categories) == 0 {
		cfg.Store.Categories = DefaultCategories()
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for skillmatch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "skillmatch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".skillmatch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// MinFilterStep is the smallest accepted filter.step. Scores and base
// thresholds live in [-1, 1], so the filter never needs more than a few
// million raises at this step.
const MinFilterStep = 1e-6

// Validate reports configuration errors that would make the core misbehave.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Store.Categories) == 0 {
		errs = append(errs, errors.New("store.categories: at least one category is required"))
	}
	for _, name := range c.CategoryNames() {
		cat := c.Store.Categories[name]
		if cat.Vectors == "" || cat.Keys == "" || cat.Titles == "" {
			errs = append(errs, fmt.Errorf("store.categories.%s: vectors, keys and titles paths are required", name))
		}
	}
	if !(c.Filter.Step >= MinFilterStep) || math.IsInf(c.Filter.Step, 0) {
		errs = append(errs, fmt.Errorf("filter.step must be a finite number of at least %g, got %g", MinFilterStep, c.Filter.Step))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension))
	}
	return errors.Join(errs...)
}

// CategoryNames returns the configured category keys in sorted order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Store.Categories))
	for name := range c.Store.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Thresholds returns the base similarity threshold per category.
func (c *Config) Thresholds() map[string]float64 {
	out := make(map[string]float64, len(c.Store.Categories))
	for name, cat := range c.Store.Categories {
		out[name] = cat.Threshold
	}
	return out
}

// Resolve makes data, cache and model paths absolute relative to root.
// Category file paths stay relative to the data dir.
func (c *Config) Resolve(root string) {
	c.Store.DataDir = resolve(root, c.Store.DataDir)
	c.Cache.Path = resolve(root, c.Cache.Path)
	if c.Embedding.ModelsDir != "" {
		c.Embedding.ModelsDir = resolve(root, c.Embedding.ModelsDir)
	}
}

// CategoryFiles returns the absolute vectors, keys and titles paths of a category.
func (c *Config) CategoryFiles(name string) (vectors, keys, titles string, ok bool) {
	cat, ok := c.Store.Categories[name]
	if !ok {
		return "", "", "", false
	}
	return resolve(c.Store.DataDir, cat.Vectors),
		resolve(c.Store.DataDir, cat.Keys),
		resolve(c.Store.DataDir, cat.Titles),
		true
}

// LockPath returns the single-writer lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Store.DataDir, ".skillmatch.lock")
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Store.DataDir, 0755)
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
