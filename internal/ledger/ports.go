// Package ledger declares the read ports the insight services depend on.
// Implementations live in accounts (remote service), storage (sqlite),
// ledger/memory and ledger/google.
package ledger

import (
	"context"

	"finml/internal/core"
)

// Ports for outbound adapters. The token is the caller's bearer credential
// and is ignored by sources that do not authenticate.
type (
	TransactionReader interface {
		ListTransactions(ctx context.Context, userID, token string) ([]core.Transaction, error)
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context, userID, token string) ([]core.Budget, error)
	}

	GoalReader interface {
		ListGoals(ctx context.Context, userID, token string) ([]core.Goal, error)
	}

	// Reader is everything the advisor needs to build a financial context.
	Reader interface {
		TransactionReader
		BudgetReader
		GoalReader
	}
)
