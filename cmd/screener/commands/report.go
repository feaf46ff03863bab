package commands

import (
	"errors"
	"fmt"
	"screener-backend/internal/service"
	"screener-backend/lib/serviceutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <job id>",
	Short: "Prints the results of a scan job.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, done := openService(cmd)
		defer done()

		results, err := s.JobResults(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to read job", err)
		}
		fmt.Printf("job %s: %s (%d%%)\n", results.Job.ID, results.Job.Status, results.Job.Progress)

		t := newTable()
		t.AppendHeader(table.Row{"Screener", "Symbol", "Name", "Close", "Volume", "High conviction"})
		for _, group := range results.Screeners {
			for _, stock := range group.Stocks {
				t.AppendRow(table.Row{
					group.ScreenerName,
					stock.Symbol,
					stock.Name,
					stock.ClosePrice,
					stock.Volume,
					stock.HighConviction,
				})
			}
			t.AppendSeparator()
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
		t.Render()

		if len(results.HighConviction) > 0 {
			fmt.Println("high conviction:", strings.Join(results.HighConviction, ", "))
		}

		report, err := s.GetReport(cmd.Context(), args[0])
		if errors.Is(err, service.ErrReportNotFound) {
			return
		}
		if err != nil {
			serviceutil.Fatal("failed to read report", err)
		}
		fmt.Println("csv:", report.Path)
	},
}
