package usecase

import (
	"fmt"
	"math"
	"sort"

	"skillmatch/internal/domain"
)

// MaxThresholdSteps bounds how many times thresholds may be raised.
const MaxThresholdSteps = 10_000_000

// FilterResult is the outcome of AdaptiveFilter.
type FilterResult struct {
	Selected   []domain.Match
	Thresholds map[domain.Category]float64
	Iterations int
}

// AdaptiveFilter raises every category threshold in lockstep until at most
// maxSkills matches score strictly above their category threshold.
//
// ranked holds each category's matches, usually sorted by descending score.
// order fixes the category order of the selection; categories in ranked but
// not in order are appended in no particular order. The threshold at
// iteration i is base+i*step.
func AdaptiveFilter(ranked map[domain.Category][]domain.Match, order []domain.Category, base map[domain.Category]float64, maxSkills int, step float64) (FilterResult, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return FilterResult{}, fmt.Errorf("%w: got %v", ErrInvalidStep, step)
	}

	cats := categoryOrder(ranked, order)
	for _, c := range cats {
		if _, ok := base[c]; !ok {
			return FilterResult{}, fmt.Errorf("%w: no base threshold for %s", ErrUnknownCategory, c)
		}
	}

	thresholdsAt := func(i int) map[domain.Category]float64 {
		out := make(map[domain.Category]float64, len(base))
		for c, b := range base {
			out[c] = b + float64(i)*step
		}
		return out
	}

	if maxSkills <= 0 {
		return FilterResult{Thresholds: thresholdsAt(0)}, nil
	}

	// Infinite scores cannot be thresholded away, so they do not widen the
	// search range; NaN scores never pass a threshold.
	maxScore := math.Inf(-1)
	minBase := math.Inf(1)
	for _, c := range cats {
		minBase = math.Min(minBase, base[c])
		for _, m := range ranked[c] {
			if !math.IsInf(m.Score, 0) && m.Score > maxScore {
				maxScore = m.Score
			}
		}
	}

	// At limit every threshold exceeds every finite score.
	limit := 0
	if !math.IsInf(maxScore, -1) && maxScore >= minBase {
		span := math.Ceil((maxScore - minBase) / step)
		if !(span <= MaxThresholdSteps) {
			return FilterResult{}, fmt.Errorf("%w: step %v needs more than %d raises to cover scores %v..%v",
				ErrInvalidStep, step, MaxThresholdSteps, minBase, maxScore)
		}
		limit = int(span) + 1
	}

	// The count is non-increasing in the iteration, so the first iteration
	// under the cap is found by bisection.
	iter := sort.Search(limit, func(i int) bool {
		return countAbove(ranked, cats, base, i, step) <= maxSkills
	})

	if countAbove(ranked, cats, base, iter, step) > maxSkills {
		return FilterResult{Thresholds: thresholdsAt(iter), Iterations: iter}, nil
	}

	thresholds := thresholdsAt(iter)
	var selected []domain.Match
	for _, c := range cats {
		for _, m := range ranked[c] {
			if m.Score > thresholds[c] {
				selected = append(selected, m)
			}
		}
	}

	return FilterResult{Selected: selected, Thresholds: thresholds, Iterations: iter}, nil
}

func countAbove(ranked map[domain.Category][]domain.Match, cats []domain.Category, base map[domain.Category]float64, iter int, step float64) int {
	n := 0
	for _, c := range cats {
		th := base[c] + float64(iter)*step
		for _, m := range ranked[c] {
			if m.Score > th {
				n++
			}
		}
	}
	return n
}

func categoryOrder(ranked map[domain.Category][]domain.Match, order []domain.Category) []domain.Category {
	seen := make(map[domain.Category]bool, len(ranked))
	cats := make([]domain.Category, 0, len(ranked))
	for _, c := range order {
		if _, ok := ranked[c]; ok && !seen[c] {
			cats = append(cats, c)
			seen[c] = true
		}
	}
	for c := range ranked {
		if !seen[c] {
			cats = append(cats, c)
		}
	}
	return cats
}
