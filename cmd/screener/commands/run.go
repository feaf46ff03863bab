package commands

import (
	"fmt"
	"log/slog"
	"os"
	"screener-backend/internal/components/db"
	"screener-backend/internal/components/telemetry"
	"screener-backend/internal/scan"
	"screener-backend/internal/service"
	"screener-backend/lib/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var (
	runUrls []string
	runCsv  string
)

func init() {
	runCmd.Flags().StringArrayVar(&runUrls, "url", nil, "A screener url to run, repeatable. Without it the configured or stored screeners run.")
	runCmd.Flags().StringVar(&runCsv, "csv", "", "Write the rows of every screener to this csv file.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--url <screener url>]... [--csv <path/to/report.csv>]",
	Short: "Runs one batch of screeners and prints how often each stock was found.",
	Run: func(cmd *cobra.Command, args []string) {
		tel := telemetry.SlogAPI{}

		urls := runUrls
		if len(urls) == 0 {
			urls = cfg.Screeners
		}

		var batch scan.Batch
		if len(urls) > 0 {
			orchestrator, err := newOrchestrator(cfg, tel)
			if err != nil {
				serviceutil.Fatal("failed to create scan pipeline", err)
			}
			targets := make([]scan.Target, len(urls))
			for i, u := range urls {
				targets[i] = scan.Target{
					ID:   int64(i + 1),
					Name: service.ScreenerNameFromUrl(u),
					URL:  u,
				}
			}
			batch, err = orchestrator.Run(cmd.Context(), targets, progressLogger{})
			if err != nil {
				slog.Warn("batch interrupted", "err", err, "completed", len(batch.Outcomes))
			}
		} else {
			s, database, err := newService(cmd.Context(), cfg, tel)
			if err != nil {
				serviceutil.Fatal("failed to create service", err)
			}
			defer database.Close()

			jobID, err := s.CreateJob(cmd.Context())
			if err != nil {
				serviceutil.Fatal("failed to create scan job", err)
			}
			slog.Info("running scan job", "job_id", jobID)
			batch, err = s.RunJob(cmd.Context(), jobID)
			if err != nil {
				serviceutil.Fatal("scan job failed", err)
			}
		}

		renderOutcomes(batch)
		renderTally(batch, 10)

		if runCsv == "" {
			return
		}
		f, err := os.Create(runCsv)
		if err != nil {
			serviceutil.Fatal("failed to create csv", err)
		}
		defer f.Close()
		err = service.WriteBatchCsv(f, batch, time.Now(), db.DefaultRankingThreshold)
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}
		fmt.Println("wrote", runCsv)
	},
}

type progressLogger struct{}

func (progressLogger) QueryStarted(index, total int, target scan.Target) {
	slog.Info("scanning", "screener", target.Name, "n", fmt.Sprintf("%d/%d", index+1, total))
}

func (progressLogger) QueryFinished(index, total int, outcome scan.Outcome) {
	if outcome.Err != nil {
		slog.Warn("screener failed", "screener", outcome.Target.Name, "err", outcome.Err)
		return
	}
	slog.Info("screener done", "screener", outcome.Target.Name, "stocks", len(outcome.Rows))
}
