package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finml/internal/core"
	"finml/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ledger.Reader = (*Client)(nil)

// Config selects the spreadsheet and the service account used to read it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// valuesGetter is the slice of the Sheets API the client uses.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type sheetsValues struct {
	svc *gsheet.Service
}

func (s sheetsValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Client reads a transactions ledger kept in a Google Sheet. The first row
// is a header naming at least Date and Amount; ID, Category, Description,
// Type and User columns are optional. Rows are filtered by User when that
// column exists.
type Client struct {
	values        valuesGetter
	spreadsheetID string
	sheetName     string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		values:        sheetsValues{svc: svc},
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
		slog.InfoContext(ctx, "Read service account credentials", "path", credentialsFile, "size", len(data))
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ListTransactions implements ledger.TransactionReader.
func (c *Client) ListTransactions(ctx context.Context, userID, _ string) ([]core.Transaction, error) {
	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	txs, err := parseTransactions(values, userID)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	return txs, nil
}

// ListBudgets implements ledger.BudgetReader. Spreadsheet ledgers carry no
// budgets.
func (c *Client) ListBudgets(context.Context, string, string) ([]core.Budget, error) {
	return nil, nil
}

// ListGoals implements ledger.GoalReader. Spreadsheet ledgers carry no goals.
func (c *Client) ListGoals(context.Context, string, string) ([]core.Goal, error) {
	return nil, nil
}
