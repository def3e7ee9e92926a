package ml

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

// regressionTree is a CART regressor splitting on squared error.
type regressionTree struct {
	minSamplesSplit int
	maxDepth        int
	root            *treeNode
}

func (t *regressionTree) fit(x [][]float64, y []float64, rows []int, rng *rand.Rand) {
	t.root = t.build(x, y, rows, 0, rng)
}

func (t *regressionTree) build(x [][]float64, y []float64, rows []int, depth int, rng *rand.Rand) *treeNode {
	targets := make([]float64, len(rows))
	for i, r := range rows {
		targets[i] = y[r]
	}
	mean := stat.Mean(targets, nil)

	if len(rows) < t.minSamplesSplit || (t.maxDepth > 0 && depth >= t.maxDepth) || constant(targets) {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := bestSplit(x, y, rows, rng)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	var left, right []int
	for _, r := range rows {
		if x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.build(x, y, left, depth+1, rng),
		right:     t.build(x, y, right, depth+1, rng),
	}
}

// bestSplit scans every feature, in random order, for the threshold that
// minimises the summed squared error of both children.
func bestSplit(x [][]float64, y []float64, rows []int, rng *rand.Rand) (int, float64, bool) {
	n := len(rows)
	width := len(x[rows[0]])
	bestErr := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, n)
	for _, f := range rng.Perm(width) {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return x[sorted[i]][f] < x[sorted[j]][f] })

		var totalSum, totalSq float64
		for _, r := range sorted {
			totalSum += y[r]
			totalSq += y[r] * y[r]
		}

		var leftSum, leftSq float64
		for i := 1; i < n; i++ {
			prev := sorted[i-1]
			leftSum += y[prev]
			leftSq += y[prev] * y[prev]

			a, b := x[prev][f], x[sorted[i]][f]
			if a == b {
				continue
			}
			nl, nr := float64(i), float64(n-i)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < bestErr {
				bestErr = sse
				bestFeature = f
				bestThreshold = a + (b-a)/2
				if bestThreshold == b {
					bestThreshold = a
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *regressionTree) predict(row []float64) float64 {
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
