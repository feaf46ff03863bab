package commands

import (
	"log/slog"
	"screener-backend/internal/components/chrono"
	"screener-backend/internal/components/telemetry"
	"screener-backend/lib/serviceutil"
	libtelemetry "screener-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the json api and runs the configured scan schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		tel := telemetry.SlogAPI{}

		libtelemetry.InstrumentPerfStats(ctx)

		s, database, err := newService(ctx, cfg, tel)
		if err != nil {
			serviceutil.Fatal("failed to create service", err)
		}
		defer database.Close()
		defer s.Wait()

		if cfg.Schedule != "" {
			tz, err := cfg.timeAPI()
			if err != nil {
				serviceutil.Fatal("failed to load timezone", err)
			}
			err = s.Schedule(chrono.NewStandardCron(ctx, tz, tel), cfg.Schedule)
			if err != nil {
				serviceutil.Fatal("failed to register schedule", err)
			}
			slog.Info("scans scheduled", "cron", cfg.Schedule, "timezone", tz.Location().String())
		}

		slog.Info("listening", "port", cfg.Http.Port)
		err = serviceutil.StartHttpServer(
			ctx,
			cfg.Http.Port,
			s.Handler(serviceutil.VerifyAccessToken(cfg.Http.AccessToken)),
		)
		if err != nil {
			serviceutil.Fatal("http server stopped", err)
		}
	},
}
