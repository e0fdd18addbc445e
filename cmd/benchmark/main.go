package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"skillmatch/config"
	"skillmatch/internal/adapter/embedding"
	"skillmatch/internal/adapter/store"
	"skillmatch/internal/domain"
	"skillmatch/internal/logging"
	"skillmatch/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding skillmatch.yaml and the data dir")
	title := flag.String("q", "", "Title to test")
	description := flag.String("desc", "", "Optional description")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *title == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"title\" [-desc \"description\"]")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model load, category files)")
		fmt.Println("  2. Semantic similarity (query vs stored titles)")
		fmt.Println("  3. Adaptive filter (how far thresholds had to rise)")
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(*dir)
	logger := logging.New(os.Stderr, "warn", "text")
	ctx := context.Background()

	loadStart := time.Now()
	emb, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder not available: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(loadStart)

	st := store.NewFileCategoryStoreFromConfig(cfg, logger)
	matcher := usecase.NewMatcher(matcherConfig(cfg), emb, st, logger)

	fmt.Println("SEMANTIC MATCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	stats, err := matcher.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Store error: %v\n", err)
		os.Exit(1)
	}
	total := 0
	for _, s := range stats {
		total += s.Records
	}
	fmt.Printf("Records stored: %d in %d categories\n", total, len(stats))
	fmt.Printf("Model: %s (%s), loaded in %v\n", emb.ModelName(), cfg.Embedding.Provider, loadTime.Round(time.Millisecond))
	fmt.Printf("Dimension: %d\n\n", emb.Dimension())

	fmt.Printf("Query: \"%s\"\n", *title)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	results, err := matcher.FindTopSimilar(ctx, *title, *description, *topK, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	searchTime := time.Since(start)
	if len(results) == 0 {
		fmt.Println("No records stored. Add some with 'skillmatch add' first.")
		os.Exit(1)
	}

	fmt.Printf("Top %d semantic matches (%v):\n\n", len(results), searchTime.Round(time.Microsecond))
	totalScore := 0.0
	for i, r := range results {
		totalScore += r.Score
		fmt.Printf("%2d. [%s %.3f] %s (%s)\n", i+1, rating(r.Score), r.Score, r.Title, r.Category)
	}

	start = time.Now()
	filtered, err := matcher.FilterSkills(ctx, *title, *description, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Filter error: %v\n", err)
		os.Exit(1)
	}
	filterTime := time.Since(start)

	avgScore := totalScore / float64(len(results))
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
	fmt.Printf("  Filter kept:        %d of %d (cap %d, %v)\n", len(filtered), total, cfg.Filter.MaxSkills, filterTime.Round(time.Microsecond))

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic matching working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need a better model or a reembed")
	}
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

func matcherConfig(cfg *config.Config) usecase.MatcherConfig {
	var cats []domain.Category
	thresholds := make(map[domain.Category]float64)
	for _, name := range cfg.CategoryNames() {
		cats = append(cats, domain.Category(name))
		thresholds[domain.Category(name)] = cfg.Store.Categories[name].Threshold
	}
	return usecase.MatcherConfig{
		Categories: cats,
		Thresholds: thresholds,
		MaxSkills:  cfg.Filter.MaxSkills,
		Step:       cfg.Filter.Step,
		Normalize:  cfg.Embedding.Normalize,
	}
}

