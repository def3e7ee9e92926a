// Package anomaly flags transactions whose amounts are atypical for the
// rest of the set.
package anomaly

import (
	"fmt"

	"finml/internal/core"
	"finml/internal/ml"
)

// MinRecords is the smallest input the detector will evaluate.
const MinRecords = 5

// InsufficientDataMessage is reported when fewer than MinRecords are given.
const InsufficientDataMessage = "Not enough data for anomaly detection."

// Record is a single flagged transaction.
type Record struct {
	ID        core.TransactionID `json:"id"`
	Amount    float64            `json:"amount"`
	Category  string             `json:"category"`
	Date      string             `json:"date"`
	Overspent float64            `json:"overspent"`
}

// Result separates "not enough data" from "no anomalies found".
type Result struct {
	Sufficient    bool
	Evaluated     int
	TypicalAmount float64
	Anomalies     []Record
}

type Config struct {
	Trees         int
	Contamination float64
	Seed          int64
}

func DefaultConfig() Config {
	forest := ml.DefaultIsolationForestConfig()
	return Config{
		Trees:         forest.Trees,
		Contamination: forest.Contamination,
		Seed:          forest.Seed,
	}
}

type Detector struct {
	config Config
}

func New(config Config) *Detector {
	def := DefaultConfig()
	if config.Trees <= 0 {
		config.Trees = def.Trees
	}
	if config.Contamination <= 0 {
		config.Contamination = def.Contamination
	}
	return &Detector{config: config}
}

// Detect evaluates every record it is given; callers decide which
// transaction types are eligible. Anomalies keep input order.
func (d *Detector) Detect(txs []core.Transaction) (Result, error) {
	if len(txs) < MinRecords {
		return Result{Sufficient: false, Evaluated: len(txs)}, nil
	}

	amounts := make([]float64, len(txs))
	x := make([][]float64, len(txs))
	for i, tx := range txs {
		v, ok := core.FloatAmount(tx.Amount)
		if !ok {
			return Result{}, fmt.Errorf("transaction %d: %w", i, ml.ErrNonFinite)
		}
		amounts[i] = v
		x[i] = []float64{v}
	}
	typical := ml.Median(amounts)

	forest := ml.NewIsolationForest(ml.IsolationForestConfig{
		Trees:         d.config.Trees,
		Contamination: d.config.Contamination,
		Seed:          d.config.Seed,
	})
	labels, err := forest.FitPredict(x)
	if err != nil {
		return Result{}, fmt.Errorf("detect anomalies: %w", err)
	}

	anomalies := []Record{}
	for i, label := range labels {
		if label != ml.Outlier {
			continue
		}
		tx := txs[i]
		anomalies = append(anomalies, Record{
			ID:        tx.ID,
			Amount:    amounts[i],
			Category:  tx.Category,
			Date:      tx.Date.String(),
			Overspent: amounts[i] - typical,
		})
	}

	return Result{
		Sufficient:    true,
		Evaluated:     len(txs),
		TypicalAmount: typical,
		Anomalies:     anomalies,
	}, nil
}
