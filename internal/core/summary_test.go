package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func expense(y, m, d int, amount string) Transaction {
	return Transaction{Date: NewDate(y, m, d), Amount: decimal.RequireFromString(amount), Type: Expense}
}

func TestAggregateMonthly(t *testing.T) {
	txs := []Transaction{
		expense(2024, 3, 5, "10.10"),
		expense(2024, 1, 31, "0.1"),
		expense(2024, 1, 1, "0.2"),
		{Date: NewDate(2024, 2, 1), Amount: decimal.NewFromInt(999), Type: Income},
		expense(2023, 12, 24, "50"),
		expense(2024, 3, 20, "4.90"),
	}
	got := AggregateMonthly(txs)

	want := []struct {
		month time.Time
		total string
	}{
		{time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), "50"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "0.3"},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "15"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if !got[i].Month.Equal(w.month) {
			t.Fatalf("bucket %d month = %v, want %v", i, got[i].Month, w.month)
		}
		if !got[i].Total.Equal(decimal.RequireFromString(w.total)) {
			t.Fatalf("bucket %d total = %s, want %s", i, got[i].Total, w.total)
		}
	}
}

func TestAggregateMonthlyNoExpenses(t *testing.T) {
	txs := []Transaction{{Date: NewDate(2024, 1, 1), Amount: decimal.NewFromInt(10), Type: Income}}
	if got := AggregateMonthly(txs); len(got) != 0 {
		t.Fatalf("expected no buckets, got %+v", got)
	}
	if got := AggregateMonthly(nil); len(got) != 0 {
		t.Fatalf("expected no buckets for nil input")
	}
}

func TestAggregateMonthlyTotalsMatchInput(t *testing.T) {
	txs := []Transaction{
		expense(2024, 1, 2, "19.99"),
		expense(2024, 2, 2, "5.01"),
		expense(2024, 2, 28, "100"),
		expense(2024, 5, 1, "3.33"),
	}
	sum := decimal.Zero
	for _, b := range AggregateMonthly(txs) {
		sum = sum.Add(b.Total)
	}
	if !sum.Equal(decimal.RequireFromString("128.33")) {
		t.Fatalf("sum of buckets = %s, want 128.33", sum)
	}
}

func TestRenderMonths(t *testing.T) {
	buckets := AggregateMonthly([]Transaction{
		expense(2024, 1, 10, "100"),
		expense(2024, 2, 10, "120.5"),
	})
	got := RenderMonths(buckets)
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0].Month != "January 2024" || got[0].Amount != 100 {
		t.Fatalf("row 0 = %+v", got[0])
	}
	if got[1].Month != "February 2024" || got[1].Amount != 120.5 {
		t.Fatalf("row 1 = %+v", got[1])
	}
}

func TestTotalsByCategory(t *testing.T) {
	a := expense(2024, 1, 1, "5")
	a.Category = "Food"
	b := expense(2024, 1, 2, "20")
	b.Category = "Rent"
	c := expense(2024, 1, 3, "7")
	c.Category = "Food"
	d := expense(2024, 1, 4, "1")

	got := TotalsByCategory([]Transaction{a, b, c, d})
	if len(got) != 3 {
		t.Fatalf("got %d categories", len(got))
	}
	if got[0].Name != "Rent" || got[1].Name != "Food" || got[2].Name != "Uncategorized" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[1].Amount.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("Food total = %s", got[1].Amount)
	}
}
