package main

import (
	"context"
	"fmt"
	"os"
	"screener-backend/cmd/screener/commands"
	"screener-backend/lib/serviceutil"
	"screener-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	otel, err := telemetry.SetupFromEnv(ctx, "screener")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownErr := otel.Shutdown(context.Background())
	if shutdownErr != nil {
		fmt.Fprintln(os.Stderr, "telemetry shutdown:", shutdownErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
