package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"finml/internal/core"
)

func TestStorePutAndList(t *testing.T) {
	s := New()
	s.Put("u1", []core.Transaction{{ID: "1", Date: core.NewDate(2024, 1, 1), Amount: decimal.NewFromInt(5), Type: core.Expense}}, nil, nil)

	txs, err := s.ListTransactions(context.Background(), "u1", "")
	if err != nil || len(txs) != 1 || txs[0].ID != "1" {
		t.Fatalf("unexpected list: %v err=%v", txs, err)
	}

	// Unknown users have no data.
	txs, err = s.ListTransactions(context.Background(), "nobody", "")
	if err != nil || len(txs) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", txs, err)
	}
}

func TestNewFromFilesLoadsUserDirectory(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "42")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(userDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("transactions.json", `[{"id":1,"amount":"12.30","date":"2024-02-01","type":"EXPENSE","category":"Food"}]`)
	mustWrite("goals.json", `[{"name":"Car","targetAmount":5000}]`)

	s := NewFromFiles(dir)
	txs, err := s.ListTransactions(context.Background(), "42", "")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 || !txs[0].Amount.Equal(decimal.RequireFromString("12.3")) {
		t.Fatalf("unexpected transactions: %+v", txs)
	}

	budgets, err := s.ListBudgets(context.Background(), "42", "")
	if err != nil || len(budgets) != 0 {
		t.Fatalf("missing budgets file should be empty, got %v err=%v", budgets, err)
	}

	goals, err := s.ListGoals(context.Background(), "42", "")
	if err != nil || len(goals) != 1 {
		t.Fatalf("unexpected goals: %v err=%v", goals, err)
	}
}

func TestNewFromFilesRejectsMalformedTransactions(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "7")
	os.MkdirAll(userDir, 0o755)
	os.WriteFile(filepath.Join(userDir, "transactions.json"), []byte(`[{"id":1,"amount":3}]`), 0o644)

	_, err := NewFromFiles(dir).ListTransactions(context.Background(), "7", "")
	var se *core.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected schema error, got %v", err)
	}
}
