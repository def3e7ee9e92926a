package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finml/internal/core"
)

// parseTransactions converts a values matrix (as returned by the Sheets API)
// into transactions. Blank rows are skipped; a row with an unreadable date
// or amount fails the whole read.
func parseTransactions(values [][]interface{}, userID string) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, "ID")
	colDate := indexOf(headers, "Date")
	colAmount := indexOf(headers, "Amount")
	colCategory := indexOf(headers, "Category")
	colDescription := indexOf(headers, "Description")
	colType := indexOf(headers, "Type")
	colUser := indexOf(headers, "User")
	if colDate == -1 || colAmount == -1 {
		missing := make([]string, 0, 2)
		if colDate == -1 {
			missing = append(missing, "Date")
		}
		if colAmount == -1 {
			missing = append(missing, "Amount")
		}
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []core.Transaction
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if blank(row) {
			continue
		}
		if colUser != -1 && safeGet(row, colUser) != userID {
			continue
		}

		index := i - 1
		rawDate := safeGet(row, colDate)
		date, err := core.ParseDate(rawDate)
		if err != nil {
			return nil, &core.SchemaError{Index: index, Field: "date", Value: rawDate, Err: err}
		}
		rawAmount := safeGet(row, colAmount)
		amount, err := parseAmount(rawAmount)
		if err != nil {
			return nil, &core.SchemaError{Index: index, Field: "amount", Value: rawAmount, Err: err}
		}

		id := safeGet(row, colID)
		if id == "" {
			id = fmt.Sprintf("row-%d", i+1)
		}
		out = append(out, core.Transaction{
			ID:          core.TransactionID(id),
			Date:        date,
			Amount:      amount,
			Category:    safeGet(row, colCategory),
			Description: safeGet(row, colDescription),
			Type:        core.TransactionType(strings.ToUpper(safeGet(row, colType))),
		})
	}
	return out, nil
}

// parseAmount accepts plain numbers, a decimal comma and a leading currency
// symbol, e.g. "12.50", "12,50", "€ 1.234,50". The last separator is the
// decimal one.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, core.ErrMissingAmount
	}
	s = strings.TrimLeft(s, "€$£ ")
	s = strings.ReplaceAll(s, " ", "")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	if comma > dot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	return decimal.NewFromString(s)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
