package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/viterin/vek/vek32"

	"skillmatch/internal/domain"
)

// ErrDimensionMismatch indicates a stored vector and the query differ in length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// DotScores computes the dot product of query against every vector.
// The result is index-aligned with vectors.
func DotScores(query []float32, vectors [][]float32) ([]float64, error) {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != len(query) {
			return nil, fmt.Errorf("%w: row %d has %d, query has %d", ErrDimensionMismatch, i, len(v), len(query))
		}
		scores[i] = float64(vek32.Dot(query, v))
	}
	return scores, nil
}

// NormalizeL2 returns a unit-length copy of v. Zero vectors are copied unchanged.
func NormalizeL2(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	if len(v) == 0 {
		return out
	}

	norm := math.Sqrt(float64(vek32.Dot(v, v)))
	if norm == 0 {
		return out
	}
	vek32.MulNumber_Inplace(out, float32(1/norm))
	return out
}

// Rank pairs titles with scores and sorts them by descending score.
// Equal scores keep their original order.
func Rank(titles []string, scores []float64, category domain.Category) []domain.Match {
	n := len(titles)
	if len(scores) < n {
		n = len(scores)
	}

	matches := make([]domain.Match, n)
	for i := 0; i < n; i++ {
		matches[i] = domain.Match{Title: titles[i], Score: scores[i], Category: category}
	}
	SortByScore(matches)
	return matches
}

// SortByScore stable-sorts matches by descending score.
func SortByScore(matches []domain.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
