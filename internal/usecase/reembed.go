package usecase

import (
	"context"
	"fmt"

	"skillmatch/internal/domain"
)

const reembedBatch = 32

// ReembedResult contains the results of a re-embedding run.
type ReembedResult struct {
	Category  domain.Category
	Records   int
	Dimension int
}

// Reembed recomputes every vector of category from its stored key with the
// current model. Keys and titles are kept; the category is saved once at the
// end, so a failure leaves the persisted files untouched. progress, when
// non-nil, is called after every batch.
func (m *Matcher) Reembed(ctx context.Context, category domain.Category, progress func(done, total int), report domain.Reporter) (*ReembedResult, error) {
	if err := m.checkCategory(category, report); err != nil {
		return nil, err
	}
	unlock, err := m.lock(ctx, report)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records, err := m.load(ctx, category, report)
	if err != nil {
		return nil, err
	}

	total := records.Len()
	if total == 0 {
		report.Report("Nothing to re-embed in %s.", category)
		return &ReembedResult{Category: category}, nil
	}

	vectors := make([][]float32, 0, total)
	for start := 0; start < total; start += reembedBatch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+reembedBatch, total)

		batch, err := m.embedder.Embed(ctx, records.Keys[start:end])
		if err == nil && len(batch) != end-start {
			err = fmt.Errorf("model returned %d vectors for %d texts", len(batch), end-start)
		}
		if err != nil {
			report.Report("Failed to re-embed %s: %v", category, err)
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		for _, v := range batch {
			vectors = append(vectors, m.prepare(v))
		}

		if progress != nil {
			progress(end, total)
		}
	}

	records.Vectors = vectors
	if err := m.save(ctx, category, records, report); err != nil {
		return nil, err
	}

	m.logger.Info("category re-embedded", "category", category, "records", total, "model", m.embedder.ModelName())
	report.Report("Re-embedded %d records in %s.", total, category)
	return &ReembedResult{Category: category, Records: total, Dimension: records.Dimension()}, nil
}
