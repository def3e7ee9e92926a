package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finml/internal/anomaly"
	"finml/internal/core"
	"finml/internal/forecast"
)

func sampleForecast() forecast.Result {
	return forecast.Result{
		Previous: []core.MonthAmount{
			{Month: "2024-01", Amount: 1200},
			{Month: "2024-02", Amount: 950.5},
			{Month: "2024-03", Amount: 1100},
		},
		TotalPrevious: 3250.5,
		Predicted: []core.MonthAmount{
			{Month: "2024-04", Amount: 1010},
			{Month: "2024-05", Amount: 1040},
			{Month: "2024-06", Amount: 1075},
		},
	}
}

func TestMonthly(t *testing.T) {
	var buf bytes.Buffer
	Monthly(&buf, FormatText, sampleForecast().Previous)

	out := buf.String()
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "950.50")
	assert.Contains(t, out, "3250.50")
}

func TestForecast_Markdown(t *testing.T) {
	var buf bytes.Buffer
	Forecast(&buf, FormatMarkdown, sampleForecast())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "|"), "markdown table should start with a pipe: %q", out)
	assert.Contains(t, out, "actual")
	assert.Contains(t, out, "predicted")
}

func TestForecast_FallbackLabel(t *testing.T) {
	res := sampleForecast()
	res.Fallback = true

	var buf bytes.Buffer
	Forecast(&buf, FormatText, res)
	assert.Contains(t, buf.String(), "carried forward")
}

func TestAnomalies(t *testing.T) {
	txs := []core.Transaction{
		{ID: "7", Amount: decimal.NewFromInt(900), Category: "Travel", Description: "Flight to Lisbon"},
	}

	t.Run("insufficient", func(t *testing.T) {
		var buf bytes.Buffer
		Anomalies(&buf, FormatText, anomaly.Result{Sufficient: false}, txs)
		assert.Equal(t, anomaly.InsufficientDataMessage+"\n", buf.String())
	})

	t.Run("none found", func(t *testing.T) {
		var buf bytes.Buffer
		Anomalies(&buf, FormatText, anomaly.Result{Sufficient: true, Evaluated: 12}, txs)
		assert.Contains(t, buf.String(), "No anomalies among 12 transactions")
	})

	t.Run("rows include description", func(t *testing.T) {
		var buf bytes.Buffer
		Anomalies(&buf, FormatText, anomaly.Result{
			Sufficient: true,
			Evaluated:  12,
			Anomalies:  []anomaly.Record{{ID: "7", Amount: 900, Category: "Travel", Date: "2024-03-02 00:00:00", Overspent: 820}},
		}, txs)
		out := buf.String()
		assert.Contains(t, out, "Flight to Lisbon")
		assert.Contains(t, out, "820.00")
	})
}

func TestForecastChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ForecastChart(&buf, sampleForecast()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "expected PNG output")

	err := ForecastChart(&buf, forecast.Result{})
	assert.ErrorIs(t, err, ErrNothingToChart)
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat(FormatText))
	assert.True(t, ValidFormat(FormatMarkdown))
	assert.False(t, ValidFormat("html"))
}
