package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyBucket is the exact expense total for one calendar month.
type MonthlyBucket struct {
	Month time.Time // first day of the month, UTC
	Total decimal.Decimal
}

// MonthAmount is a bucket rendered for output.
type MonthAmount struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// MonthStart truncates t to the first instant of its calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel formats a month as "January 2024".
func MonthLabel(month time.Time) string {
	return month.Format("January 2006")
}

// AggregateMonthly sums EXPENSE amounts per calendar month and returns the
// buckets in ascending order. Months without expenses are not emitted.
func AggregateMonthly(txs []Transaction) []MonthlyBucket {
	totals := make(map[time.Time]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		key := MonthStart(tx.Date.Time)
		totals[key] = totals[key].Add(tx.Amount)
	}

	buckets := make([]MonthlyBucket, 0, len(totals))
	for month, total := range totals {
		buckets = append(buckets, MonthlyBucket{Month: month, Total: total})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month.Before(buckets[j].Month)
	})
	return buckets
}

// RenderMonths converts buckets to their labelled float form, preserving order.
func RenderMonths(buckets []MonthlyBucket) []MonthAmount {
	out := make([]MonthAmount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, MonthAmount{Month: MonthLabel(b.Month), Amount: b.Total.InexactFloat64()})
	}
	return out
}

// CategoryAmount is an expense total for a single category.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// TotalsByCategory sums EXPENSE amounts per category, largest first.
func TotalsByCategory(txs []Transaction) []CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		name := tx.Category
		if name == "" {
			name = "Uncategorized"
		}
		totals[name] = totals[name].Add(tx.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TotalsByType sums amounts per transaction type.
func TotalsByType(txs []Transaction) map[TransactionType]decimal.Decimal {
	out := make(map[TransactionType]decimal.Decimal)
	for _, tx := range txs {
		out[tx.Type] = out[tx.Type].Add(tx.Amount)
	}
	return out
}
