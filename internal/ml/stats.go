// Package ml holds the small tree ensembles used for expense forecasting and
// anomaly detection. Models are trained from scratch on every call and are
// deterministic for a given seed.
package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrNonFinite        = errors.New("non-finite value in input")
	ErrNotFitted        = errors.New("model is not fitted")
	ErrFeatureMismatch  = errors.New("feature count mismatch")
)

const eulerGamma = 0.5772156649015329

// Median returns the middle value, averaging the two central values for
// even-length input. The input is not modified.
func Median(xs []float64) float64 {
	return Percentile(xs, 50)
}

// Percentile returns the p-th percentile (0..100) using linear interpolation
// between closest ranks.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree built from n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// checkMatrix validates a row-major feature matrix and returns its width.
func checkMatrix(x [][]float64) (int, error) {
	if len(x) == 0 {
		return 0, ErrEmptyTrainingSet
	}
	width := len(x[0])
	if width == 0 {
		return 0, fmt.Errorf("row 0: %w", ErrFeatureMismatch)
	}
	for i, row := range x {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, want %d: %w", i, len(row), width, ErrFeatureMismatch)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("row %d feature %d: %w", i, j, ErrNonFinite)
			}
		}
	}
	return width, nil
}

func checkTargets(y []float64, rows int) error {
	if len(y) != rows {
		return fmt.Errorf("got %d targets for %d rows: %w", len(y), rows, ErrFeatureMismatch)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}
