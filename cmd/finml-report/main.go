// Command finml-report prints the monthly history, forecast and anomaly
// tables for a transactions export, and can seed a local SQLite ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"finml/internal/anomaly"
	"finml/internal/cli"
	"finml/internal/core"
	"finml/internal/forecast"
	"finml/internal/report"
	"finml/internal/storage"
)

type options struct {
	Input    string
	Format   string
	Chart    string
	ImportDB string
	UserID   string
	Budgets  string
	Goals    string
	Trees    int
	Seed     int64
}

func main() {
	var opts options
	flag.StringVar(&opts.Input, "input", "", "Transactions JSON file (required)")
	flag.StringVar(&opts.Format, "format", report.FormatText, "Table format: text or markdown")
	flag.StringVar(&opts.Chart, "chart", "", "Write a PNG bar chart of history and forecast to this path")
	flag.StringVar(&opts.ImportDB, "import-db", "", "Import the transactions into this SQLite database")
	flag.StringVar(&opts.UserID, "user", "", "User ID for -import-db")
	flag.StringVar(&opts.Budgets, "budgets", "", "Budgets JSON array to import with -import-db")
	flag.StringVar(&opts.Goals, "goals", "", "Savings goals JSON array to import with -import-db")
	flag.IntVar(&opts.Trees, "trees", 100, "Trees per ensemble")
	flag.Int64Var(&opts.Seed, "seed", 42, "Random seed")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if err := run(context.Background(), logger, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	if opts.Input == "" {
		return fmt.Errorf("-input is required")
	}
	if !report.ValidFormat(opts.Format) {
		return fmt.Errorf("unknown format %q", opts.Format)
	}
	if opts.ImportDB != "" && opts.UserID == "" {
		return fmt.Errorf("-user is required with -import-db")
	}

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	txs, err := core.DecodeTransactions(data)
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if err := core.ValidateTransactions(txs); err != nil {
		return err
	}
	logger.Debug("Loaded transactions", "count", len(txs), "input", opts.Input)

	buckets := core.AggregateMonthly(txs)
	fc, err := forecast.New(forecast.Config{Trees: opts.Trees, Seed: opts.Seed}).Forecast(buckets)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	det, err := anomaly.New(anomaly.Config{Trees: opts.Trees, Seed: opts.Seed}).Detect(core.EligibleForDetection(txs))
	if err != nil {
		return fmt.Errorf("detect anomalies: %w", err)
	}

	out := os.Stdout
	fmt.Fprintln(out, "Monthly expenses")
	report.Monthly(out, opts.Format, core.RenderMonths(buckets))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Forecast")
	report.Forecast(out, opts.Format, fc)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Anomalies")
	report.Anomalies(out, opts.Format, det, txs)

	if opts.Chart != "" {
		if err := writeChart(opts.Chart, fc); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nChart saved to: %s\n", opts.Chart)
	}

	if opts.ImportDB != "" {
		n, err := importLedger(ctx, opts, txs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d transactions for user %s into %s\n", n, opts.UserID, opts.ImportDB)
	}
	return nil
}

func writeChart(path string, fc forecast.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := report.ForecastChart(f, fc); err != nil {
		return err
	}
	return f.Close()
}

func importLedger(ctx context.Context, opts options, txs []core.Transaction) (int, error) {
	var budgets []core.Budget
	if err := readJSONArray(opts.Budgets, &budgets); err != nil {
		return 0, fmt.Errorf("read budgets: %w", err)
	}
	var goals []core.Goal
	if err := readJSONArray(opts.Goals, &goals); err != nil {
		return 0, fmt.Errorf("read goals: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(opts.ImportDB)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	n, err := repo.ImportTransactions(ctx, opts.UserID, txs)
	if err != nil {
		return 0, err
	}
	if opts.Budgets != "" {
		if err := repo.ImportBudgets(ctx, opts.UserID, budgets); err != nil {
			return n, err
		}
	}
	if opts.Goals != "" {
		if err := repo.ImportGoals(ctx, opts.UserID, goals); err != nil {
			return n, err
		}
	}
	return n, nil
}

// readJSONArray leaves v untouched when path is empty.
func readJSONArray(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
