package chrono

import (
	"context"
	"fmt"
	"screener-backend/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

const report_cron = "cron"

// CronAPI runs callbacks on standard 5 field cron specs.
//
// note: fault injection point
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron is CronAPI over robfig/cron in the location of a TimeAPI.
// A callback that panics is recovered and reported, a tick that lands while
// the previous run of the same callback is still going is skipped.
type StandardCron struct {
	cron   *cron.Cron
	logger cron.Logger
}

// NewStandardCron starts the scheduler, it stops once ctx is done.
func NewStandardCron(ctx context.Context, time TimeAPI, tel telemetry.API) StandardCron {
	logger := cronLogger{tel: tel}
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(time.Location()),
		cron.WithChain(cron.Recover(logger)),
	)
	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return StandardCron{cron: scheduler, logger: logger}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(s.logger)).Then(cron.FuncJob(callback)))
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return nil
}

// cronLogger adapts telemetry.API to cron.Logger.
type cronLogger struct {
	tel telemetry.API
}

func pairs(keysAndValues []any) []any {
	out := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	return out
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug("cron "+msg, pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, pairs(keysAndValues)...)
	l.tel.ReportBroken(report_cron, params...)
}
