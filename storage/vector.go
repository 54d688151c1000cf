package storage

import (
	"math"
	"slices"

	"github.com/civiclens/bioindex/core"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	if magnitude == 0 {
		return make([]float32, len(v))
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// DotProduct calculates the dot product of two vectors. For unit vectors
// this equals their cosine similarity.
func DotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// RankMatches orders matches by descending score, ties broken by ascending
// chunk ID, and truncates to topK. Every Index implementation ranks through
// this function so the two backend variants stay interchangeable.
func RankMatches(matches []*core.Match, topK int) []*core.Match {
	slices.SortFunc(matches, func(a, b *core.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Record.ID < b.Record.ID {
			return -1
		}
		if a.Record.ID > b.Record.ID {
			return 1
		}
		return 0
	})

	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
