package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"finml/internal/core"
	"finml/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Reader = (*SQLiteRepository)(nil)

const timeLayout = "2006-01-02T15:04:05.999999999"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions implements ledger.TransactionReader, oldest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID, _ string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, occurred_at, amount, category, description, type, status, payment_method
		FROM transactions
		WHERE user_id = ?
		ORDER BY occurred_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var id, occurred, amt, txType string
		if err := rows.Scan(&id, &occurred, &amt, &tx.Category, &tx.Description, &txType, &tx.Status, &tx.PaymentMethod); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		date, err := core.ParseDate(occurred)
		if err != nil {
			return nil, &core.SchemaError{Index: len(out), Field: "date", Value: occurred, Err: err}
		}
		amount, err := decimal.NewFromString(amt)
		if err != nil {
			return nil, &core.SchemaError{Index: len(out), Field: "amount", Value: amt, Err: err}
		}
		tx.ID = core.TransactionID(id)
		tx.Date = date
		tx.Amount = amount
		tx.Type = core.TransactionType(txType)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// ListBudgets implements ledger.BudgetReader.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID, _ string) ([]core.Budget, error) {
	payloads, err := r.listPayloads(ctx, "budgets", userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, len(payloads))
	for i, p := range payloads {
		out[i] = core.Budget(p)
	}
	return out, nil
}

// ListGoals implements ledger.GoalReader.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID, _ string) ([]core.Goal, error) {
	payloads, err := r.listPayloads(ctx, "goals", userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Goal, len(payloads))
	for i, p := range payloads {
		out[i] = core.Goal(p)
	}
	return out, nil
}

// table is one of the fixed names "budgets" or "goals".
func (r *SQLiteRepository) listPayloads(ctx context.Context, table, userID string) ([][]byte, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT payload FROM "+table+" WHERE user_id = ? ORDER BY rowid_pk", userID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, []byte(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// ImportTransactions upserts a user's transactions in one database
// transaction. Records without an id get a positional one.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, userID string, txs []core.Transaction) (int, error) {
	if err := core.ValidateTransactions(txs); err != nil {
		return 0, fmt.Errorf("validate transactions: %w", err)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (user_id, id, occurred_at, amount, category, description, type, status, payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			occurred_at = excluded.occurred_at,
			amount = excluded.amount,
			category = excluded.category,
			description = excluded.description,
			type = excluded.type,
			status = excluded.status,
			payment_method = excluded.payment_method`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, tx := range txs {
		id := string(tx.ID)
		if id == "" {
			id = fmt.Sprintf("import-%d", i+1)
		}
		if _, err := stmt.ExecContext(ctx,
			userID, id,
			tx.Date.Time.UTC().Format(timeLayout),
			tx.Amount.String(),
			tx.Category, tx.Description, string(tx.Type), tx.Status, tx.PaymentMethod,
		); err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", id, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported to SQLite", "user_id", userID, "count", len(txs))
	return len(txs), nil
}

// ImportBudgets replaces a user's budgets.
func (r *SQLiteRepository) ImportBudgets(ctx context.Context, userID string, budgets []core.Budget) error {
	payloads := make([][]byte, len(budgets))
	for i, b := range budgets {
		payloads[i] = b
	}
	return r.replacePayloads(ctx, "budgets", userID, payloads)
}

// ImportGoals replaces a user's goals.
func (r *SQLiteRepository) ImportGoals(ctx context.Context, userID string, goals []core.Goal) error {
	payloads := make([][]byte, len(goals))
	for i, g := range goals {
		payloads[i] = g
	}
	return r.replacePayloads(ctx, "goals", userID, payloads)
}

func (r *SQLiteRepository) replacePayloads(ctx context.Context, table, userID string, payloads [][]byte) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, p := range payloads {
		if _, err := dbTx.ExecContext(ctx, "INSERT INTO "+table+" (user_id, payload) VALUES (?, ?)", userID, string(p)); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LastImport returns the most recent transaction date stored for a user.
func (r *SQLiteRepository) LastImport(ctx context.Context, userID string) (time.Time, bool, error) {
	var latest sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT MAX(occurred_at) FROM transactions WHERE user_id = ?", userID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest transaction: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	d, err := core.ParseDate(latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse latest transaction date: %w", err)
	}
	return d.Time, true, nil
}
