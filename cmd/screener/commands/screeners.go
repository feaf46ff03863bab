package commands

import (
	"fmt"
	"screener-backend/internal/components/telemetry"
	"screener-backend/internal/service"
	"screener-backend/lib/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	addName     string
	addInactive bool
)

func init() {
	screenersAddCmd.Flags().StringVar(&addName, "name", "", "The display name, derived from the url when empty.")
	screenersAddCmd.Flags().BoolVar(&addInactive, "inactive", false, "Register the screener without running it in scans.")

	screenersCmd.AddCommand(screenersListCmd)
	screenersCmd.AddCommand(screenersAddCmd)
	screenersCmd.AddCommand(screenersImportCmd)
	rootCmd.AddCommand(screenersCmd)
}

var screenersCmd = &cobra.Command{
	Use:   "screeners",
	Short: "Manages the stored screeners.",
}

func openService(cmd *cobra.Command) (*service.Service, func()) {
	s, database, err := newService(cmd.Context(), cfg, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to create service", err)
	}
	return s, func() { database.Close() }
}

func renderScreeners(screeners []service.Screener) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Active", "Url", "Added"})
	for _, s := range screeners {
		t.AppendRow(table.Row{
			s.ID,
			s.Name,
			s.Active,
			s.Url,
			time.Unix(s.CreatedAt, 0).Format(time.DateOnly),
		})
	}
	t.Render()
}

var screenersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every stored screener, active ones first.",
	Run: func(cmd *cobra.Command, args []string) {
		s, done := openService(cmd)
		defer done()

		screeners, err := s.ListScreeners(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list screeners", err)
		}
		renderScreeners(screeners)
	},
}

var screenersAddCmd = &cobra.Command{
	Use:   "add <screener url> [--name <name>] [--inactive]",
	Short: "Stores a screener.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, done := openService(cmd)
		defer done()

		screener, err := s.AddScreener(cmd.Context(), args[0], addName, !addInactive)
		if err != nil {
			serviceutil.Fatal("failed to add screener", err)
		}
		renderScreeners([]service.Screener{screener})
	},
}

var screenersImportCmd = &cobra.Command{
	Use:   "import <path/to/screeners.(json|json5|yaml)>",
	Short: "Stores every screener listed in a file that is not stored yet.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, done := openService(cmd)
		defer done()

		result, err := s.ImportScreenersFile(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to import screeners", err)
		}
		if len(result.Added) > 0 {
			renderScreeners(result.Added)
		}
		fmt.Printf("added %d, skipped %d already stored\n", len(result.Added), len(result.Skipped))
		for _, u := range result.Invalid {
			fmt.Println("invalid url:", u)
		}
	},
}
