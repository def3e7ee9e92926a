package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// IsolationForestConfig holds the detector hyper-parameters.
type IsolationForestConfig struct {
	Trees         int
	MaxSamples    int // 0 uses min(256, n)
	Contamination float64
	Seed          int64
}

func DefaultIsolationForestConfig() IsolationForestConfig {
	return IsolationForestConfig{
		Trees:         100,
		Contamination: 0.2,
		Seed:          42,
	}
}

const (
	Inlier  = 1
	Outlier = -1
)

type isolationNode struct {
	feature int
	split   float64
	left    *isolationNode
	right   *isolationNode
	size    int
	leaf    bool
}

// IsolationForest scores points by how quickly random axis-aligned splits
// isolate them. Lower scores are more anomalous.
type IsolationForest struct {
	config     IsolationForestConfig
	trees      []*isolationNode
	sampleSize int
	nFeatures  int
	offset     float64
}

func NewIsolationForest(config IsolationForestConfig) *IsolationForest {
	if config.Trees <= 0 {
		config.Trees = 100
	}
	return &IsolationForest{config: config}
}

// Fit grows the trees and fixes the decision offset so that a
// Contamination share of the training points falls below it.
func (f *IsolationForest) Fit(x [][]float64) error {
	width, err := checkMatrix(x)
	if err != nil {
		return fmt.Errorf("fit isolation forest: %w", err)
	}
	if c := f.config.Contamination; c <= 0 || c > 0.5 {
		return fmt.Errorf("fit isolation forest: contamination %v must be in (0, 0.5]", c)
	}

	n := len(x)
	sampleSize := f.config.MaxSamples
	if sampleSize <= 0 || sampleSize > n {
		sampleSize = min(256, n)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))

	rng := rand.New(rand.NewSource(f.config.Seed))
	trees := make([]*isolationNode, 0, f.config.Trees)
	for i := 0; i < f.config.Trees; i++ {
		treeRng := rand.New(rand.NewSource(rng.Int63()))
		sample := treeRng.Perm(n)[:sampleSize]
		trees = append(trees, growIsolationTree(x, sample, 0, heightLimit, treeRng))
	}

	f.trees = trees
	f.sampleSize = sampleSize
	f.nFeatures = width

	scores, err := f.ScoreSamples(x)
	if err != nil {
		return err
	}
	f.offset = Percentile(scores, 100*f.config.Contamination)
	return nil
}

func growIsolationTree(x [][]float64, rows []int, depth, limit int, rng *rand.Rand) *isolationNode {
	if depth >= limit || len(rows) <= 1 {
		return &isolationNode{leaf: true, size: len(rows)}
	}

	values := make([]float64, len(rows))
	for _, feature := range rng.Perm(len(x[rows[0]])) {
		for i, r := range rows {
			values[i] = x[r][feature]
		}
		lo, hi := floats.Min(values), floats.Max(values)
		if lo == hi {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right []int
		for _, r := range rows {
			if x[r][feature] < split {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		return &isolationNode{
			feature: feature,
			split:   split,
			left:    growIsolationTree(x, left, depth+1, limit, rng),
			right:   growIsolationTree(x, right, depth+1, limit, rng),
		}
	}
	return &isolationNode{leaf: true, size: len(rows)}
}

func (n *isolationNode) pathLength(row []float64) float64 {
	depth := 0
	for !n.leaf {
		if row[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// ScoreSamples returns the opposite of the anomaly score for each row, in
// the range [-1, 0).
func (f *IsolationForest) ScoreSamples(x [][]float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	width, err := checkMatrix(x)
	if err != nil {
		return nil, fmt.Errorf("score samples: %w", err)
	}
	if width != f.nFeatures {
		return nil, fmt.Errorf("score samples: got %d features, want %d: %w", width, f.nFeatures, ErrFeatureMismatch)
	}

	norm := averagePathLength(f.sampleSize)
	depths := make([]float64, len(f.trees))
	scores := make([]float64, len(x))
	for i, row := range x {
		for t, tree := range f.trees {
			depths[t] = tree.pathLength(row)
		}
		if norm == 0 {
			scores[i] = -0.5
			continue
		}
		scores[i] = -math.Pow(2, -stat.Mean(depths, nil)/norm)
	}
	return scores, nil
}

// Predict labels each row Outlier when its score falls strictly below the
// offset learned during Fit, Inlier otherwise.
func (f *IsolationForest) Predict(x [][]float64) ([]int, error) {
	scores, err := f.ScoreSamples(x)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(scores))
	for i, s := range scores {
		if s < f.offset {
			labels[i] = Outlier
		} else {
			labels[i] = Inlier
		}
	}
	return labels, nil
}

// FitPredict fits on x and labels the same rows.
func (f *IsolationForest) FitPredict(x [][]float64) ([]int, error) {
	if err := f.Fit(x); err != nil {
		return nil, err
	}
	return f.Predict(x)
}

// Offset returns the decision threshold learned during Fit.
func (f *IsolationForest) Offset() float64 {
	return f.offset
}
