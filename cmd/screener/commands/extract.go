package commands

import (
	"screener-backend/internal/components/telemetry"
	"screener-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <screener url>",
	Short: "Extracts the result rows of a single screener.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := newEngine(cfg, telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to create engine", err)
		}
		rows, err := engine.Extract(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("extraction failed", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Symbol", "Name", "NSE", "BSE", "Close", "Volume"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.Symbol, r.Name, r.NseCode, r.BseCode, r.ClosePrice, int64(r.Volume)})
		}
		t.AppendFooter(table.Row{"", "", "", "", "Total", len(rows)})
		t.Render()
	},
}
