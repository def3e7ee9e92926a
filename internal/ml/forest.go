package ml

import (
	"fmt"
	"math/rand"
)

// RandomForestConfig holds the ensemble hyper-parameters.
type RandomForestConfig struct {
	Trees           int
	MinSamplesSplit int
	MaxDepth        int // 0 grows trees until leaves are pure
	Seed            int64
}

// DefaultRandomForestConfig mirrors the settings used by the forecaster.
func DefaultRandomForestConfig() RandomForestConfig {
	return RandomForestConfig{
		Trees:           100,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

// RandomForestRegressor averages bootstrap-trained regression trees.
type RandomForestRegressor struct {
	config    RandomForestConfig
	trees     []*regressionTree
	nFeatures int
}

func NewRandomForestRegressor(config RandomForestConfig) *RandomForestRegressor {
	if config.Trees <= 0 {
		config.Trees = 100
	}
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}
	return &RandomForestRegressor{config: config}
}

// Fit trains the ensemble on x (rows by features) and y.
func (f *RandomForestRegressor) Fit(x [][]float64, y []float64) error {
	width, err := checkMatrix(x)
	if err != nil {
		return fmt.Errorf("fit random forest: %w", err)
	}
	if err := checkTargets(y, len(x)); err != nil {
		return fmt.Errorf("fit random forest: %w", err)
	}

	rng := rand.New(rand.NewSource(f.config.Seed))
	n := len(x)
	trees := make([]*regressionTree, 0, f.config.Trees)
	for i := 0; i < f.config.Trees; i++ {
		treeRng := rand.New(rand.NewSource(rng.Int63()))

		sample := make([]int, n)
		for j := range sample {
			sample[j] = treeRng.Intn(n)
		}

		tree := &regressionTree{
			minSamplesSplit: f.config.MinSamplesSplit,
			maxDepth:        f.config.MaxDepth,
		}
		tree.fit(x, y, sample, treeRng)
		trees = append(trees, tree)
	}

	f.trees = trees
	f.nFeatures = width
	return nil
}

// Predict returns the mean of all tree predictions for a single row.
func (f *RandomForestRegressor) Predict(row []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, ErrNotFitted
	}
	if _, err := checkMatrix([][]float64{row}); err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if len(row) != f.nFeatures {
		return 0, fmt.Errorf("predict: got %d features, want %d: %w", len(row), f.nFeatures, ErrFeatureMismatch)
	}

	var sum float64
	for _, t := range f.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.trees)), nil
}
