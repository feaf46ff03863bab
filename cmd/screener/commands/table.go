package commands

import (
	"os"
	"screener-backend/internal/scan"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderOutcomes(batch scan.Batch) {
	t := newTable()
	t.SetTitle("Screeners")
	t.AppendHeader(table.Row{"Screener", "Stocks", "Error"})
	for _, o := range batch.Outcomes {
		t.AppendRow(table.Row{o.Target.Name, len(o.Rows), o.ErrorString()})
	}
	t.Render()
}

func renderTally(batch scan.Batch, n int) {
	t := newTable()
	t.SetTitle("Top " + strconv.Itoa(n))
	t.AppendHeader(table.Row{"#", "Symbol", "Screeners"})
	for i, r := range batch.Tally.Top(n) {
		t.AppendRow(table.Row{i + 1, r.Symbol, r.Count})
	}
	t.Render()
}
