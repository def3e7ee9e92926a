// Package report renders forecasts and anomalies for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"finml/internal/anomaly"
	"finml/internal/core"
	"finml/internal/forecast"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// ValidFormat reports whether format can be rendered.
func ValidFormat(format string) bool {
	return format == FormatText || format == FormatMarkdown
}

func newTable(w io.Writer, format string, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if format == FormatMarkdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}
	return table
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Monthly writes one row per calendar month of expense history.
func Monthly(w io.Writer, format string, months []core.MonthAmount) {
	table := newTable(w, format, []string{"Month", "Expenses"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	var total float64
	for _, m := range months {
		table.Append([]string{m.Month, money(m.Amount)})
		total += m.Amount
	}
	table.SetFooter([]string{"Total", money(total)})
	table.Render()
}

// Forecast writes the recent history followed by the predicted months.
func Forecast(w io.Writer, format string, res forecast.Result) {
	table := newTable(w, format, []string{"Month", "Expenses", "Kind"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

	for _, m := range res.Previous {
		table.Append([]string{m.Month, money(m.Amount), "actual"})
	}
	kind := "predicted"
	if res.Fallback {
		kind = "carried forward"
	}
	for _, m := range res.Predicted {
		table.Append([]string{m.Month, money(m.Amount), kind})
	}
	table.Render()
}

// Anomalies writes flagged transactions. Descriptions are looked up from txs.
func Anomalies(w io.Writer, format string, res anomaly.Result, txs []core.Transaction) {
	if !res.Sufficient {
		fmt.Fprintln(w, anomaly.InsufficientDataMessage)
		return
	}
	if len(res.Anomalies) == 0 {
		fmt.Fprintf(w, "No anomalies among %d transactions.\n", res.Evaluated)
		return
	}

	descriptions := make(map[core.TransactionID]string, len(txs))
	for _, tx := range txs {
		descriptions[tx.ID] = tx.Description
	}

	table := newTable(w, format, []string{"ID", "Date", "Category", "Description", "Amount", "Overspent"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, rec := range res.Anomalies {
		table.Append([]string{
			string(rec.ID),
			rec.Date,
			rec.Category,
			strings.TrimSpace(descriptions[rec.ID]),
			money(rec.Amount),
			money(rec.Overspent),
		})
	}
	table.Render()
}
