package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"finml/internal/core"
	"finml/internal/ledger"
	"finml/internal/llm"
)

// SystemPrompt frames every chat completion.
const SystemPrompt = "You are a financial advisor chatbot. Provide helpful financial advice."

// recentMonths bounds the monthly history included in the chat context.
const recentMonths = 6

var ErrEmptyMessage = errors.New("message is required")

// AdvisorService answers free-form questions with the user's own numbers
// attached as context.
type AdvisorService struct {
	reader    ledger.Reader
	completer llm.Completer
}

func NewAdvisorService(reader ledger.Reader, completer llm.Completer) *AdvisorService {
	return &AdvisorService{reader: reader, completer: completer}
}

// Reply fetches transactions, budgets and goals concurrently and forwards
// them with the message to the language model.
func (s *AdvisorService) Reply(ctx context.Context, userID, token, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	var (
		txs     []core.Transaction
		budgets []core.Budget
		goals   []core.Goal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if txs, err = s.reader.ListTransactions(gctx, userID, token); err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if budgets, err = s.reader.ListBudgets(gctx, userID, token); err != nil {
			return fmt.Errorf("fetch budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if goals, err = s.reader.ListGoals(gctx, userID, token); err != nil {
			return fmt.Errorf("fetch goals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	prompt := BuildContext(txs, budgets, goals) + "\nQuestion: " + message
	reply, err := s.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("ask advisor: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// BuildContext renders a compact plain-text summary of the user's finances.
func BuildContext(txs []core.Transaction, budgets []core.Budget, goals []core.Goal) string {
	var b strings.Builder
	b.WriteString("Financial context:\n")

	totals := core.TotalsByType(txs)
	fmt.Fprintf(&b, "- Transactions: %d\n", len(txs))
	fmt.Fprintf(&b, "- Total income: %s\n", totals[core.Income].StringFixed(2))
	fmt.Fprintf(&b, "- Total expenses: %s\n", totals[core.Expense].StringFixed(2))

	if cats := core.TotalsByCategory(txs); len(cats) > 0 {
		b.WriteString("- Expenses by category:\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "  - %s: %s\n", c.Name, c.Amount.StringFixed(2))
		}
	}

	months := core.AggregateMonthly(txs)
	if len(months) > recentMonths {
		months = months[len(months)-recentMonths:]
	}
	if len(months) > 0 {
		b.WriteString("- Recent monthly expenses:\n")
		for _, m := range months {
			fmt.Fprintf(&b, "  - %s: %s\n", core.MonthLabel(m.Month), m.Total.StringFixed(2))
		}
	}

	writeJSON(&b, "Budgets", budgets)
	writeJSON(&b, "Savings goals", goals)
	return b.String()
}

func writeJSON[T any](b *strings.Builder, label string, items []T) {
	if len(items) == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, data)
}
