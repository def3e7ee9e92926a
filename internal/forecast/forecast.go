// Package forecast projects monthly expense totals three months ahead from
// lagged monthly history.
package forecast

import (
	"fmt"
	"time"

	"finml/internal/core"
	"finml/internal/ml"
)

const (
	// Window is the number of lag features per training row.
	Window = 3
	// Horizon is the number of future months produced.
	Horizon = 3
	// MinMonths is the smallest history that trains a model. Shorter
	// histories repeat the last observed total.
	MinMonths = Window + 1
)

// Result is the response shape consumed by the dashboard.
type Result struct {
	Predicted     []core.MonthAmount `json:"predicted_next_3_months_expense"`
	TotalPrevious float64            `json:"total_expense_previous_months"`
	Previous      []core.MonthAmount `json:"previous_months_expense"`
	// Fallback is set when the history was too short to train on.
	Fallback bool `json:"-"`
}

// Config controls the regression ensemble.
type Config struct {
	Trees int
	Seed  int64
}

func DefaultConfig() Config {
	forest := ml.DefaultRandomForestConfig()
	return Config{Trees: forest.Trees, Seed: forest.Seed}
}

type Forecaster struct {
	config Config
}

func New(config Config) *Forecaster {
	if config.Trees <= 0 {
		config.Trees = DefaultConfig().Trees
	}
	return &Forecaster{config: config}
}

// Forecast predicts the next Horizon months after the last bucket. Lags are
// taken over observed months, so a gap month does not count as zero.
func (f *Forecaster) Forecast(buckets []core.MonthlyBucket) (Result, error) {
	previous := core.RenderMonths(buckets)
	result := Result{
		Predicted: []core.MonthAmount{},
		Previous:  previous,
	}
	for _, m := range previous {
		result.TotalPrevious += m.Amount
	}
	if len(buckets) == 0 {
		return result, nil
	}

	amounts := make([]float64, len(buckets))
	for i, b := range buckets {
		v, ok := core.FloatAmount(b.Total)
		if !ok {
			return Result{}, fmt.Errorf("month %s: %w", core.MonthLabel(b.Month), ml.ErrNonFinite)
		}
		amounts[i] = v
	}
	last := buckets[len(buckets)-1].Month

	var values []float64
	if len(buckets) < MinMonths {
		result.Fallback = true
		values = repeatLast(amounts)
	} else {
		var err error
		values, err = f.regress(amounts)
		if err != nil {
			return Result{}, fmt.Errorf("forecast: %w", err)
		}
	}

	for i, v := range values {
		result.Predicted = append(result.Predicted, core.MonthAmount{
			Month:  core.MonthLabel(addMonths(last, i+1)),
			Amount: v,
		})
	}
	return result, nil
}

func (f *Forecaster) regress(amounts []float64) ([]float64, error) {
	x, y := lagMatrix(amounts, Window)

	model := ml.NewRandomForestRegressor(ml.RandomForestConfig{
		Trees:           f.config.Trees,
		MinSamplesSplit: 2,
		Seed:            f.config.Seed,
	})
	if err := model.Fit(x, y); err != nil {
		return nil, err
	}

	return rollForward(model, amounts, Horizon)
}

type rowPredictor interface {
	Predict(row []float64) (float64, error)
}

// rollForward predicts steps months ahead, feeding each prediction back in
// as lag1. window[0] is the most recent month, matching lag1 in training rows.
func rollForward(model rowPredictor, amounts []float64, steps int) ([]float64, error) {
	window := make([]float64, Window)
	for k := 0; k < Window; k++ {
		window[k] = amounts[len(amounts)-1-k]
	}

	out := make([]float64, 0, steps)
	for step := 0; step < steps; step++ {
		next, err := model.Predict(window)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		copy(window[1:], window[:Window-1])
		window[0] = next
	}
	return out, nil
}

// lagMatrix builds rows [lag1, lag2, ..., lagN] with the current value as
// target, skipping the first N observations that lack a full window.
func lagMatrix(amounts []float64, lags int) ([][]float64, []float64) {
	var x [][]float64
	var y []float64
	for t := lags; t < len(amounts); t++ {
		row := make([]float64, lags)
		for k := 1; k <= lags; k++ {
			row[k-1] = amounts[t-k]
		}
		x = append(x, row)
		y = append(y, amounts[t])
	}
	return x, y
}

func repeatLast(amounts []float64) []float64 {
	last := amounts[len(amounts)-1]
	out := make([]float64, Horizon)
	for i := range out {
		out[i] = last
	}
	return out
}

func addMonths(month time.Time, n int) time.Time {
	return time.Date(month.Year(), month.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}
