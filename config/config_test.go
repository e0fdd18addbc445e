package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Filter.MaxSkills != 150 {
		t.Errorf("expected MaxSkills=150, got %d", cfg.Filter.MaxSkills)
	}
	if cfg.Filter.Step != 0.01 {
		t.Errorf("expected Step=0.01, got %f", cfg.Filter.Step)
	}
	if cfg.Embedding.Dimension != 768 {
		t.Errorf("expected Dimension=768, got %d", cfg.Embedding.Dimension)
	}
	if !cfg.Embedding.Normalize {
		t.Error("expected Normalize=true by default")
	}
	if len(cfg.Store.Categories) != 6 {
		t.Errorf("expected 6 default categories, got %d", len(cfg.Store.Categories))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "skillmatch.yaml")

	content := `
store:
  lock_timeout: 3s
  categories:
    IT:
      vectors: it/v.f32
      keys: it/k.jsonl
      titles: it/t.jsonl
      threshold: 0.3
filter:
  max_skills: 40
  step: 0.05
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Filter.MaxSkills != 40 {
		t.Errorf("expected MaxSkills=40, got %d", cfg.Filter.MaxSkills)
	}
	if cfg.Filter.Step != 0.05 {
		t.Errorf("expected Step=0.05, got %f", cfg.Filter.Step)
	}
	if cfg.Store.LockTimeout != 3*time.Second {
		t.Errorf("expected LockTimeout=3s, got %v", cfg.Store.LockTimeout)
	}
	if len(cfg.Store.Categories) != 1 {
		t.Fatalf("expected file categories to replace defaults, got %v", cfg.CategoryNames())
	}
	if cfg.Store.Categories["IT"].Threshold != 0.3 {
		t.Errorf("expected IT threshold 0.3, got %f", cfg.Store.Categories["IT"].Threshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Embedding.Provider != "hugot" {
		t.Errorf("expected default provider, got %s", cfg.Embedding.Provider)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".skillmatch"), 0755); err != nil {
		t.Fatal(err)
	}
	content := `
filter:
  top_k: 9
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".skillmatch", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Filter.TopK != 9 {
		t.Errorf("expected TopK=9, got %d", cfg.Filter.TopK)
	}
	if len(cfg.Store.Categories) != 6 {
		t.Errorf("expected default categories when none configured, got %d", len(cfg.Store.Categories))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero step", func(c *Config) { c.Filter.Step = 0 }, true},
		{"negative step", func(c *Config) { c.Filter.Step = -0.1 }, true},
		{"tiny step", func(c *Config) { c.Filter.Step = 1e-300 }, true},
		{"infinite step", func(c *Config) { c.Filter.Step = math.Inf(1) }, true},
		{"smallest step", func(c *Config) { c.Filter.Step = MinFilterStep }, false},
		{"no categories", func(c *Config) { c.Store.Categories = nil }, true},
		{"missing path", func(c *Config) {
			c.Store.Categories["IT"] = CategoryConfig{Vectors: "v", Keys: "k"}
		}, true},
		{"mock without dimension", func(c *Config) {
			c.Embedding.Provider = "mock"
			c.Embedding.Dimension = 0
		}, true},
		{"hugot without dimension", func(c *Config) {
			c.Embedding.Provider = "hugot"
			c.Embedding.Dimension = 0
		}, true},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestResolveAndCategoryFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve("/srv/project")

	if cfg.Store.DataDir != filepath.Join("/srv/project", "data") {
		t.Errorf("unexpected data dir %s", cfg.Store.DataDir)
	}

	vectors, keys, titles, ok := cfg.CategoryFiles("IT")
	if !ok {
		t.Fatal("expected IT category")
	}
	base := filepath.Join("/srv/project", "data", "embeddings", "IT")
	if vectors != filepath.Join(base, "vectors.f32") || keys != filepath.Join(base, "keys.jsonl") || titles != filepath.Join(base, "titles.jsonl") {
		t.Errorf("unexpected paths %s %s %s", vectors, keys, titles)
	}

	if _, _, _, ok := cfg.CategoryFiles("Unknown"); ok {
		t.Error("expected unknown category to be missing")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillmatch.yaml")
	cfg := DefaultConfig()
	cfg.Filter.MaxSkills = 12

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Filter.MaxSkills != 12 {
		t.Errorf("expected MaxSkills=12, got %d", loaded.Filter.MaxSkills)
	}
	if len(loaded.Store.Categories) != len(cfg.Store.Categories) {
		t.Errorf("expected %d categories, got %d", len(cfg.Store.Categories), len(loaded.Store.Categories))
	}
}
