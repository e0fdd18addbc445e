package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"skillmatch/internal/adapter/analyzer"
	"skillmatch/internal/adapter/similarity"
	"skillmatch/internal/domain"
	"skillmatch/internal/port"
)

// MatcherConfig is the static configuration of a Matcher.
type MatcherConfig struct {
	// Categories lists the known category keys in query order.
	Categories []domain.Category
	// Thresholds holds the base similarity threshold of each category.
	Thresholds map[domain.Category]float64
	MaxSkills  int
	Step       float64
	// Normalize stores and queries unit-length vectors, so scores are cosine.
	Normalize bool
}

// Matcher maintains the per-category embedding records and answers
// similarity queries against them.
type Matcher struct {
	cfg      MatcherConfig
	known    map[domain.Category]bool
	embedder port.Embedder
	store    port.CategoryStore
	logger   *slog.Logger
}

// NewMatcher creates a matcher. The embedder is loaded once by the caller and
// reused for every operation.
func NewMatcher(cfg MatcherConfig, embedder port.Embedder, store port.CategoryStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[domain.Category]bool, len(cfg.Categories))
	for _, c := range cfg.Categories {
		known[c] = true
	}
	return &Matcher{
		cfg:      cfg,
		known:    known,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Categories returns the configured category keys in query order.
func (m *Matcher) Categories() []domain.Category {
	return append([]domain.Category(nil), m.cfg.Categories...)
}

// Add embeds title and description and appends the record to category.
// A key already present is reported and left unchanged.
func (m *Matcher) Add(ctx context.Context, title, description string, category domain.Category, report domain.Reporter) error {
	if err := m.checkCategory(category, report); err != nil {
		return err
	}
	unlock, err := m.lock(ctx, report)
	if err != nil {
		return err
	}
	defer unlock()
	return m.add(ctx, title, description, category, report)
}

func (m *Matcher) add(ctx context.Context, title, description string, category domain.Category, report domain.Reporter) error {
	key := analyzer.JoinKey(title, description)

	records, err := m.load(ctx, category, report)
	if err != nil {
		return err
	}
	if records.IndexOf(key) >= 0 {
		report.Report("'%s' already exists in embeddings.", key)
		return fmt.Errorf("%w: %q in %s", ErrDuplicate, key, category)
	}

	vector, err := m.embedOne(ctx, key, report)
	if err != nil {
		return err
	}
	if dim := records.Dimension(); dim != 0 && dim != len(vector) {
		report.Report("Embedding dimension %d does not match stored dimension %d; re-embed %s first.", len(vector), dim, category)
		return fmt.Errorf("%w: dimension %d, %s stores %d", ErrEmbedding, len(vector), category, dim)
	}

	records.Append(domain.Record{Vector: vector, Key: key, Title: title})
	if err := m.save(ctx, category, records, report); err != nil {
		return err
	}

	m.logger.Debug("record added", "category", category, "key", key, "records", records.Len())
	report.Report("'%s' added to embeddings.", key)
	return nil
}

// Delete removes the record of title and description from category.
// A missing record is reported and nothing is written.
func (m *Matcher) Delete(ctx context.Context, title, description string, category domain.Category, report domain.Reporter) error {
	if err := m.checkCategory(category, report); err != nil {
		return err
	}

	// A missing key never takes the lock, so deleting from a fresh data
	// directory leaves it untouched. The key is checked again under the lock.
	key := analyzer.JoinKey(title, description)
	records, err := m.load(ctx, category, report)
	if err != nil {
		return err
	}
	if records.IndexOf(key) < 0 {
		report.Report("'%s' does not exist in embeddings.", key)
		return fmt.Errorf("%w: %q in %s", ErrNotFound, key, category)
	}

	unlock, err := m.lock(ctx, report)
	if err != nil {
		return err
	}
	defer unlock()
	return m.delete(ctx, title, description, category, report)
}

func (m *Matcher) delete(ctx context.Context, title, description string, category domain.Category, report domain.Reporter) error {
	key := analyzer.JoinKey(title, description)

	records, err := m.load(ctx, category, report)
	if err != nil {
		return err
	}
	idx := records.IndexOf(key)
	if idx < 0 {
		report.Report("'%s' does not exist in embeddings.", key)
		return fmt.Errorf("%w: %q in %s", ErrNotFound, key, category)
	}

	records.RemoveAt(idx)
	if err := m.save(ctx, category, records, report); err != nil {
		return err
	}

	m.logger.Debug("record deleted", "category", category, "key", key, "records", records.Len())
	report.Report("'%s' deleted from embeddings.", key)
	return nil
}

// Update deletes the old record and adds the new one. It is not atomic: when
// the add fails the old record stays deleted. A missing old record does not
// stop the add. An empty newCategory means oldCategory.
func (m *Matcher) Update(ctx context.Context, oldTitle, oldDescription, newTitle, newDescription string, oldCategory, newCategory domain.Category, report domain.Reporter) error {
	if newCategory == "" {
		newCategory = oldCategory
	}
	if err := m.checkCategory(oldCategory, report); err != nil {
		return err
	}
	if err := m.checkCategory(newCategory, report); err != nil {
		return err
	}
	unlock, err := m.lock(ctx, report)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.delete(ctx, oldTitle, oldDescription, oldCategory, report); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return m.add(ctx, newTitle, newDescription, newCategory, report)
}

// FilterSkills scores title and description against every category and
// returns the matches that survive the adaptive threshold filter, at most
// MaxSkills of them. On failure it returns nil and the error.
func (m *Matcher) FilterSkills(ctx context.Context, title, description string, report domain.Reporter) ([]domain.Match, error) {
	result, err := m.filter(ctx, title, description, report)
	if err != nil {
		report.Report("Failed to filter skills: %v", err)
		return nil, err
	}
	m.logger.Debug("skills filtered",
		"selected", len(result.Selected),
		"iterations", result.Iterations)
	return result.Selected, nil
}

func (m *Matcher) filter(ctx context.Context, title, description string, report domain.Reporter) (FilterResult, error) {
	if !(m.cfg.Step > 0) {
		return FilterResult{}, fmt.Errorf("%w: got %v", ErrInvalidStep, m.cfg.Step)
	}

	ranked, err := m.scoreAll(ctx, analyzer.JoinKey(title, description))
	if err != nil {
		return FilterResult{}, err
	}

	for c := range ranked {
		similarity.SortByScore(ranked[c])
	}
	return AdaptiveFilter(ranked, m.cfg.Categories, m.cfg.Thresholds, m.cfg.MaxSkills, m.cfg.Step)
}

// FindTopSimilar pools every category and returns the topK best matches by
// descending score. Equal scores keep category order then stored order.
func (m *Matcher) FindTopSimilar(ctx context.Context, title, description string, topK int, report domain.Reporter) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	ranked, err := m.scoreAll(ctx, analyzer.JoinKey(title, description))
	if err != nil {
		report.Report("Failed to find top similar skills: %v", err)
		return nil, err
	}

	var pooled []domain.Match
	for _, c := range m.cfg.Categories {
		pooled = append(pooled, ranked[c]...)
	}
	similarity.SortByScore(pooled)
	if len(pooled) > topK {
		pooled = pooled[:topK]
	}
	return pooled, nil
}

// BestMatch returns the single most similar stored title for name and whether
// its score clears minScore. ok is false when nothing is stored.
func (m *Matcher) BestMatch(ctx context.Context, name string, minScore float64, report domain.Reporter) (match domain.Match, ok bool, err error) {
	top, err := m.FindTopSimilar(ctx, name, "", 1, report)
	if err != nil || len(top) == 0 {
		return domain.Match{}, false, err
	}
	return top[0], top[0].Score >= minScore, nil
}

// Records returns a copy of the stored records of category.
func (m *Matcher) Records(ctx context.Context, category domain.Category) (domain.Records, error) {
	if !m.known[category] {
		return domain.Records{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	records, err := m.store.Load(ctx, category)
	if err != nil {
		return domain.Records{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return records, nil
}

// Locate returns every category that stores the key of title and description.
func (m *Matcher) Locate(ctx context.Context, title, description string) ([]domain.Category, error) {
	key := analyzer.JoinKey(title, description)
	var found []domain.Category
	for _, c := range m.cfg.Categories {
		records, err := m.Records(ctx, c)
		if err != nil {
			return nil, err
		}
		if records.IndexOf(key) >= 0 {
			found = append(found, c)
		}
	}
	return found, nil
}

// CategoryStats describes one category.
type CategoryStats struct {
	Category  domain.Category `json:"category"`
	Records   int             `json:"records"`
	Dimension int             `json:"dimension"`
	Threshold float64         `json:"threshold"`
	Persisted bool            `json:"persisted"`
}

// Stats returns per-category counts in configured order.
func (m *Matcher) Stats(ctx context.Context) ([]CategoryStats, error) {
	out := make([]CategoryStats, 0, len(m.cfg.Categories))
	for _, c := range m.cfg.Categories {
		records, err := m.Records(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryStats{
			Category:  c,
			Records:   records.Len(),
			Dimension: records.Dimension(),
			Threshold: m.cfg.Thresholds[c],
			Persisted: m.store.Exists(c),
		})
	}
	return out, nil
}

// scoreAll embeds key once and scores it against every category, in stored order.
func (m *Matcher) scoreAll(ctx context.Context, key string) (map[domain.Category][]domain.Match, error) {
	query, err := m.embedOne(ctx, key, nil)
	if err != nil {
		return nil, err
	}

	ranked := make(map[domain.Category][]domain.Match, len(m.cfg.Categories))
	for _, c := range m.cfg.Categories {
		records, err := m.store.Load(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if records.Len() == 0 {
			continue
		}
		scores, err := similarity.DotScores(query, records.Vectors)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEmbedding, c, err)
		}
		matches := make([]domain.Match, records.Len())
		for i, s := range scores {
			matches[i] = domain.Match{Title: records.Titles[i], Score: s, Category: c}
		}
		ranked[c] = matches
	}
	return ranked, nil
}

func (m *Matcher) embedOne(ctx context.Context, text string, report domain.Reporter) ([]float32, error) {
	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err == nil && len(vectors) != 1 {
		err = fmt.Errorf("model returned %d vectors for 1 text", len(vectors))
	}
	if err != nil {
		m.logger.Warn("embedding failed", "model", m.embedder.ModelName(), "error", err)
		report.Report("Failed to compute embedding: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	return m.prepare(vectors[0]), nil
}

func (m *Matcher) prepare(v []float32) []float32 {
	if m.cfg.Normalize {
		return similarity.NormalizeL2(v)
	}
	return v
}

func (m *Matcher) checkCategory(category domain.Category, report domain.Reporter) error {
	if m.known[category] {
		return nil
	}
	report.Report("Invalid path key provided: %s", category)
	return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
}

func (m *Matcher) lock(ctx context.Context, report domain.Reporter) (func(), error) {
	unlock, err := m.store.Lock(ctx)
	if err != nil {
		report.Report("Could not lock embeddings: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return unlock, nil
}

func (m *Matcher) load(ctx context.Context, category domain.Category, report domain.Reporter) (domain.Records, error) {
	records, err := m.store.Load(ctx, category)
	if err != nil {
		m.logger.Warn("failed to load category", "category", category, "error", err)
		report.Report("Error loading files: %v", err)
		return domain.Records{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return records, nil
}

func (m *Matcher) save(ctx context.Context, category domain.Category, records domain.Records, report domain.Reporter) error {
	if err := m.store.Save(ctx, category, records); err != nil {
		m.logger.Warn("failed to save category", "category", category, "error", err)
		report.Report("Error saving files: %v", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
