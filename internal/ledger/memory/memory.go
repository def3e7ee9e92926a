package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finml/internal/core"
	"finml/internal/ledger"
)

var _ ledger.Reader = (*Store)(nil)

// Store serves per-user data held in memory. NewFromFiles lazily loads
// <base>/<userID>/{transactions,budgets,goals}.json the first time a user is
// read; a missing file is an empty list.
type Store struct {
	mu    sync.Mutex
	base  string
	users map[string]*userData
}

type userData struct {
	transactions []core.Transaction
	budgets      []core.Budget
	goals        []core.Goal
}

func New() *Store {
	return &Store{users: make(map[string]*userData)}
}

func NewFromFiles(base string) *Store {
	s := New()
	s.base = base
	return s
}

// Put replaces a user's data. It is mainly used to seed tests and demos.
func (s *Store) Put(userID string, txs []core.Transaction, budgets []core.Budget, goals []core.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = &userData{
		transactions: append([]core.Transaction(nil), txs...),
		budgets:      append([]core.Budget(nil), budgets...),
		goals:        append([]core.Goal(nil), goals...),
	}
}

// ListTransactions implements ledger.TransactionReader.
func (s *Store) ListTransactions(_ context.Context, userID, _ string) ([]core.Transaction, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), u.transactions...), nil
}

// ListBudgets implements ledger.BudgetReader.
func (s *Store) ListBudgets(_ context.Context, userID, _ string) ([]core.Budget, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return append([]core.Budget(nil), u.budgets...), nil
}

// ListGoals implements ledger.GoalReader.
func (s *Store) ListGoals(_ context.Context, userID, _ string) ([]core.Goal, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return append([]core.Goal(nil), u.goals...), nil
}

func (s *Store) user(userID string) (*userData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	if s.base == "" {
		return &userData{}, nil
	}

	u, err := loadUser(filepath.Join(s.base, filepath.Base(userID)))
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	s.users[userID] = u
	return u, nil
}

func loadUser(dir string) (*userData, error) {
	u := &userData{}

	data, err := readOptional(filepath.Join(dir, "transactions.json"))
	if err != nil {
		return nil, err
	}
	if data != nil {
		if u.transactions, err = core.DecodeTransactions(data); err != nil {
			return nil, err
		}
	}

	if err := decodeOptional(filepath.Join(dir, "budgets.json"), &u.budgets); err != nil {
		return nil, err
	}
	if err := decodeOptional(filepath.Join(dir, "goals.json"), &u.goals); err != nil {
		return nil, err
	}
	return u, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func decodeOptional(path string, v any) error {
	data, err := readOptional(path)
	if err != nil || data == nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
