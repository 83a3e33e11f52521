// Package reports renders PNG charts of a group's finances.
package reports

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"conti/internal/stats"
)

var ErrNoData = errors.New("no data to chart")

// minShare is the smallest pie slice, in percent, that is still drawn.
const minShare = 1.0

var (
	incomeColor  = drawing.ColorFromHex("22c55e")
	expenseColor = drawing.ColorFromHex("ef4444")
)

// Slice is one category of the expense pie.
type Slice struct {
	Label string
	Value float64
	Share float64
}

// PieSlices orders categories by amount, largest first, and drops those
// below one percent of the total.
func PieSlices(byCategory map[string]decimal.Decimal) []Slice {
	total := decimal.Zero
	for _, v := range byCategory {
		if v.IsPositive() {
			total = total.Add(v)
		}
	}
	if !total.IsPositive() {
		return nil
	}

	slices := make([]Slice, 0, len(byCategory))
	for name, v := range byCategory {
		if !v.IsPositive() {
			continue
		}
		share, _ := v.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		if share < minShare {
			continue
		}
		value, _ := v.Float64()
		slices = append(slices, Slice{Label: name, Value: value, Share: share})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Label < slices[j].Label
	})
	return slices
}

// ExpensePie renders the expense distribution by category.
func ExpensePie(byCategory map[string]decimal.Decimal) ([]byte, error) {
	slices := PieSlices(byCategory)
	if len(slices) == 0 {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %.2f (%.1f%%)", s.Label, s.Value, s.Share),
			Value: s.Value,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}

	pie := chart.PieChart{
		Title:  "Expenses by category",
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render expense pie: %w", err)
	}
	return buffer.Bytes(), nil
}

// MonthlyBars renders income and expenses side by side for every month
// that has any activity.
func MonthlyBars(rows []stats.MonthlyFinancialData) ([]byte, error) {
	bars := make([]chart.Value, 0, len(rows)*2)
	top := 0.0
	for _, row := range rows {
		if row.Income.IsZero() && row.Expenses.IsZero() {
			continue
		}
		income, _ := row.Income.Float64()
		expenses, _ := row.Expenses.Float64()
		bars = append(bars,
			chart.Value{Label: row.Month + " in", Value: income, Style: chart.Style{FillColor: incomeColor, StrokeColor: incomeColor}},
			chart.Value{Label: row.Month + " out", Value: expenses, Style: chart.Style{FillColor: expenseColor, StrokeColor: expenseColor}},
		)
		top = max(top, income, expenses)
	}
	if len(bars) == 0 || top <= 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:      "Income and expenses by month",
		Width:      max(600, len(bars)*50+100),
		Height:     500,
		BarWidth:   30,
		BarSpacing: 15,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render monthly bars: %w", err)
	}
	return buffer.Bytes(), nil
}

