// Package render writes backtest results for terminals and downloads.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"

	"github.com/newthinker/optlab/internal/dto"
)

// FetchFailed is shown when the backend cannot be reached or returns an
// unreadable body
const FetchFailed = "Failed to fetch results from the backend."

const barWidth = 40

// Number prints v in its shortest form (120, 1234.5)
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Text writes the results block. A response with an error only shows the
// error, and a nil response shows FetchFailed.
func Text(w io.Writer, resp *dto.BacktestResponse) error {
	if resp == nil {
		_, err := fmt.Fprintf(w, "Error: %s\n", FetchFailed)
		return err
	}
	if resp.Failed() {
		_, err := fmt.Fprintf(w, "Error: %s\n", resp.Error)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Backtest Results for %s\n", resp.Ticker)
	fmt.Fprintf(&b, "Parameters: %s\n", resp.Parameters)
	fmt.Fprintf(&b, "Total Profit: $%s\n", Number(resp.TotalProfit))
	fmt.Fprintf(&b, "Trades Executed: %d\n", resp.TradeCount)
	b.WriteString("\nTrade Log:\n")
	for _, line := range resp.TradeLog {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Stats writes the summary statistics table
func Stats(w io.Writer, s *dto.Stats) {
	if s == nil {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"Wins", strconv.Itoa(s.Wins)},
		{"Losses", strconv.Itoa(s.Losses)},
		{"Win Rate", Number(s.WinRate) + "%"},
		{"Average Profit", "$" + Number(s.AverageProfit)},
		{"Best Trade", "$" + Number(s.BestTrade)},
		{"Worst Trade", "$" + Number(s.WorstTrade)},
		{"Max Drawdown", "$" + Number(s.MaxDrawdown)},
		{"Sharpe Ratio", Number(s.SharpeRatio)},
	})
	table.Render()
}

// Chart draws one bar per trade, scaled to the largest absolute profit.
// Losses use a lighter glyph.
func Chart(w io.Writer, data dto.ChartData) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Profit", ""})
	table.SetBorder(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

	scale := 0.0
	for _, v := range data.Data {
		scale = math.Max(scale, math.Abs(v))
	}

	for i, label := range data.Labels {
		if i >= len(data.Data) {
			break
		}
		v := data.Data[i]
		table.Append([]string{label, Number(v), Bar(v, scale, barWidth)})
	}
	table.Render()
}

// Bar renders v as a run of glyphs proportional to v/scale
func Bar(v, scale float64, width int) string {
	if scale <= 0 || v == 0 {
		return ""
	}
	n := int(math.Round(math.Abs(v) / scale * float64(width)))
	if n == 0 {
		n = 1
	}
	glyph := "█"
	if v < 0 {
		glyph = "░"
	}
	return strings.Repeat(glyph, n)
}

// Row is one line of the CSV export
type Row struct {
	Date   string  `csv:"date"`
	Profit float64 `csv:"profit"`
	Entry  string  `csv:"entry"`
}

// Rows pairs chart points with their trade log lines
func Rows(resp *dto.BacktestResponse) []*Row {
	rows := make([]*Row, 0, len(resp.ChartData.Labels))
	for i, label := range resp.ChartData.Labels {
		row := &Row{Date: label}
		if i < len(resp.ChartData.Data) {
			row.Profit = resp.ChartData.Data[i]
		}
		if i < len(resp.TradeLog) {
			row.Entry = resp.TradeLog[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// CSV writes the trades as date,profit,entry rows
func CSV(w io.Writer, resp *dto.BacktestResponse) error {
	rows := Rows(resp)
	if len(rows) == 0 {
		_, err := io.WriteString(w, "date,profit,entry\n")
		return err
	}
	return gocsv.Marshal(&rows, w)
}
