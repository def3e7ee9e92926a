package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"finml/internal/forecast"
)

var ErrNothingToChart = errors.New("no months to chart")

var (
	actualColor    = drawing.ColorFromHex("4f81bd")
	predictedColor = drawing.ColorFromHex("f79646")
)

// ForecastChart renders history and predicted months as a PNG bar chart.
func ForecastChart(w io.Writer, res forecast.Result) error {
	bars := make([]chart.Value, 0, len(res.Previous)+len(res.Predicted))
	for _, m := range res.Previous {
		bars = append(bars, chart.Value{
			Label: m.Month,
			Value: m.Amount,
			Style: chart.Style{FillColor: actualColor, StrokeColor: actualColor},
		})
	}
	for _, m := range res.Predicted {
		bars = append(bars, chart.Value{
			Label: m.Month,
			Value: m.Amount,
			Style: chart.Style{FillColor: predictedColor, StrokeColor: predictedColor},
		})
	}
	if len(bars) == 0 {
		return ErrNothingToChart
	}

	barChart := chart.BarChart{
		Title: "Monthly expenses and forecast",
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:    120 * len(bars),
		Height:   400,
		BarWidth: 60,
		Bars:     bars,
	}
	if barChart.Width < 480 {
		barChart.Width = 480
	}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return fmt.Sprintf("%.0f", vf)
		}
		return ""
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
