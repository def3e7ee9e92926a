package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"
)

type (
	TransactionType string

	// TransactionID keeps the identifier as sent by the account service.
	// Numeric identifiers are emitted back as JSON numbers.
	TransactionID string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID            TransactionID
		Date          Date
		Amount        decimal.Decimal
		Category      string
		Description   string
		Type          TransactionType
		Status        string
		PaymentMethod string
	}

	// Budget and Goal are passed through to the advisor untouched.
	Budget json.RawMessage
	Goal   json.RawMessage
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingDate     = errors.New("missing date")
	ErrMissingAmount   = errors.New("missing amount")
	ErrNonFiniteAmount = errors.New("amount is not a finite number")
)

// SchemaError reports a transaction that does not match the expected shape.
type SchemaError struct {
	Index int
	Field string
	Value string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("transaction %d: field %q (%q): %v", e.Index, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("transaction %d: field %q: %v", e.Index, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// dateLayouts are tried in order when parsing transaction dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts plain dates, local date-times and RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String renders the date the way anomaly reports show it.
func (d Date) String() string {
	return d.Time.Format("2006-01-02 15:04:05")
}

func (id TransactionID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *TransactionID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = TransactionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	*id = TransactionID(n.String())
	return nil
}

type transactionJSON struct {
	ID            TransactionID    `json:"id"`
	Date          *string          `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	Category      string           `json:"category"`
	Description   string           `json:"description,omitempty"`
	Type          TransactionType  `json:"type,omitempty"`
	Status        string           `json:"status,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	date := t.Date.Time.Format("2006-01-02T15:04:05")
	amount := t.Amount
	return json.Marshal(transactionJSON{
		ID:            t.ID,
		Date:          &date,
		Amount:        &amount,
		Category:      t.Category,
		Description:   t.Description,
		Type:          t.Type,
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
	})
}

// UnmarshalJSON enforces the ingestion schema: date and amount are required
// and must parse.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return &SchemaError{Field: "record", Err: err}
	}
	if raw.Date == nil {
		return &SchemaError{Field: "date", Err: ErrMissingDate}
	}
	date, err := ParseDate(*raw.Date)
	if err != nil {
		return &SchemaError{Field: "date", Value: *raw.Date, Err: err}
	}
	if raw.Amount == nil {
		return &SchemaError{Field: "amount", Err: ErrMissingAmount}
	}
	*t = Transaction{
		ID:            raw.ID,
		Date:          date,
		Amount:        *raw.Amount,
		Category:      raw.Category,
		Description:   raw.Description,
		Type:          TransactionType(strings.ToUpper(strings.TrimSpace(string(raw.Type)))),
		Status:        raw.Status,
		PaymentMethod: raw.PaymentMethod,
	}
	return nil
}

// DecodeTransactions parses a JSON array of transactions, reporting the
// position of the first malformed record.
func DecodeTransactions(data []byte) ([]Transaction, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]Transaction, 0, len(items))
	for i, item := range items {
		var tx Transaction
		if err := json.Unmarshal(item, &tx); err != nil {
			var se *SchemaError
			if errors.As(err, &se) {
				se.Index = i
				return nil, se
			}
			return nil, &SchemaError{Index: i, Field: "record", Err: err}
		}
		out = append(out, tx)
	}
	return out, nil
}

func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

// Validate checks the invariants that decoding cannot express on its own.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if _, ok := FloatAmount(t.Amount); !ok {
		return ErrNonFiniteAmount
	}
	return nil
}

// ValidateTransactions validates every record, returning the first failure
// as a SchemaError.
func ValidateTransactions(txs []Transaction) error {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			field := "amount"
			if errors.Is(err, ErrMissingDate) {
				field = "date"
			}
			return &SchemaError{Index: i, Field: field, Err: err}
		}
	}
	return nil
}

// FilterExpenses keeps only records typed as EXPENSE.
func FilterExpenses(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsExpense() {
			out = append(out, tx)
		}
	}
	return out
}

// EligibleForDetection decides on the type column as a whole. If any record
// carries a type, only EXPENSE records are kept. A ledger with no types at all
// is treated as expense-only and returned unfiltered.
func EligibleForDetection(txs []Transaction) []Transaction {
	typed := false
	for _, tx := range txs {
		if tx.Type != "" {
			typed = true
			break
		}
	}
	if !typed {
		return append(make([]Transaction, 0, len(txs)), txs...)
	}
	return FilterExpenses(txs)
}

// FloatAmount converts a decimal amount for numeric models.
func FloatAmount(d decimal.Decimal) (float64, bool) {
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f, false
	}
	return f, true
}

func (b Budget) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *Budget) UnmarshalJSON(data []byte) error {
	*b = append((*b)[:0], data...)
	return nil
}

func (g Goal) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

func (g *Goal) UnmarshalJSON(data []byte) error {
	*g = append((*g)[:0], data...)
	return nil
}
