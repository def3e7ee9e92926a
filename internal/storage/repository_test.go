package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finml/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finml.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestImportAndListTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	txs := []core.Transaction{
		{ID: "2", Date: core.NewDate(2024, 2, 1), Amount: decimal.RequireFromString("19.99"), Category: "Food", Type: core.Expense},
		{ID: "1", Date: core.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("1200"), Category: "Salary", Type: core.Income},
	}
	n, err := repo.ImportTransactions(ctx, "u1", txs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.ListTransactions(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.TransactionID("1"), got[0].ID, "transactions are returned oldest first")
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, core.Expense, got[1].Type)

	other, err := repo.ListTransactions(ctx, "u2", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestImportTransactionsUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx := core.Transaction{ID: "9", Date: core.NewDate(2024, 3, 1), Amount: decimal.NewFromInt(10), Type: core.Expense}
	_, err := repo.ImportTransactions(ctx, "u1", []core.Transaction{tx})
	require.NoError(t, err)

	tx.Amount = decimal.NewFromInt(25)
	_, err = repo.ImportTransactions(ctx, "u1", []core.Transaction{tx})
	require.NoError(t, err)

	got, err := repo.ListTransactions(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(25)))

	latest, ok, err := repo.LastImport(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2024, latest.Year())
}

func TestImportTransactionsRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.ImportTransactions(context.Background(), "u1", []core.Transaction{{ID: "1", Amount: decimal.NewFromInt(1)}})
	require.Error(t, err)
	var se *core.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestBudgetsAndGoalsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.ImportBudgets(ctx, "u1", []core.Budget{core.Budget(`{"category":"Food","amount":300}`)}))
	require.NoError(t, repo.ImportGoals(ctx, "u1", []core.Goal{core.Goal(`{"name":"Trip"}`), core.Goal(`{"name":"Car"}`)}))

	budgets, err := repo.ListBudgets(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.JSONEq(t, `{"category":"Food","amount":300}`, string(budgets[0]))

	// Importing again replaces rather than appends.
	require.NoError(t, repo.ImportGoals(ctx, "u1", []core.Goal{core.Goal(`{"name":"House"}`)}))
	goals, err := repo.ListGoals(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Contains(t, string(goals[0]), "House")
}

func TestLastImportEmpty(t *testing.T) {
	repo := newTestRepo(t)
	_, ok, err := repo.LastImport(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
