// Package accounts is an HTTP client for the account-data service that owns
// users' transactions, budgets and savings goals.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finml/internal/core"
	"finml/internal/ledger"
)

var (
	_ ledger.TransactionReader = (*Client)(nil)
	_ ledger.BudgetReader      = (*Client)(nil)
	_ ledger.GoalReader        = (*Client)(nil)
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 2048

// maxResponseBody caps a successful response. Years of transactions fit well
// under it.
const maxResponseBody = 32 << 20

// ErrResponseTooLarge is returned when a response body exceeds the cap.
var ErrResponseTooLarge = errors.New("account service response too large")

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Resource string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("account service %s request failed: status %d", e.Resource, e.Status)
	}
	return fmt.Sprintf("account service %s request failed: status %d, body: %s", e.Resource, e.Status, e.Body)
}

// Client fetches per-user data with the caller's bearer token. It never
// retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxBody:    maxResponseBody,
	}
}

// ListTransactions implements ledger.TransactionReader.
func (c *Client) ListTransactions(ctx context.Context, userID, token string) ([]core.Transaction, error) {
	body, err := c.get(ctx, "transactions", userID, token)
	if err != nil {
		return nil, err
	}
	txs, err := core.DecodeTransactions(body)
	if err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}

// ListBudgets implements ledger.BudgetReader.
func (c *Client) ListBudgets(ctx context.Context, userID, token string) ([]core.Budget, error) {
	body, err := c.get(ctx, "budgets", userID, token)
	if err != nil {
		return nil, err
	}
	var budgets []core.Budget
	if err := json.Unmarshal(body, &budgets); err != nil {
		return nil, fmt.Errorf("decode budgets: %w", err)
	}
	return budgets, nil
}

// ListGoals implements ledger.GoalReader.
func (c *Client) ListGoals(ctx context.Context, userID, token string) ([]core.Goal, error) {
	body, err := c.get(ctx, "goals", userID, token)
	if err != nil {
		return nil, err
	}
	var goals []core.Goal
	if err := json.Unmarshal(body, &goals); err != nil {
		return nil, fmt.Errorf("decode goals: %w", err)
	}
	return goals, nil
}

// Ping checks that the service is reachable. Any HTTP answer counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, resource, userID, token string) ([]byte, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}
	endpoint := fmt.Sprintf("%s/api/%s/%s", c.baseURL, resource, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Resource: resource, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", resource, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("read %s response: %w (limit %d bytes)", resource, ErrResponseTooLarge, c.maxBody)
	}
	return body, nil
}
