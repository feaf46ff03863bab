package service

import (
	"context"
	"screener-backend/internal/components/db"
	"screener-backend/internal/scrapers/screener"
	"testing"

	"github.com/stretchr/testify/require"
)

type manualCron struct {
	spec     string
	callback func()
}

func (c *manualCron) Cron(spec string, callback func()) error {
	c.spec = spec
	c.callback = callback
	return nil
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	url := "https://chartink.com/screener/alpha"
	extractor := fakeExtractor{rows: map[string][]screener.ResultRow{
		url: {stock("TCS", 3500)},
	}}
	s := setupService(t, newRunner(extractor), Options{})

	cron := &manualCron{}
	require.Nil(t, s.Schedule(cron, "30 15 * * 1-5"))
	require.Equal(t, "30 15 * * 1-5", cron.spec)

	cron.callback()
	require.True(t, s.tel.Has("warning", report_schedule_start))

	_, err := s.AddScreener(ctx, url, "", true)
	require.Nil(t, err)
	cron.callback()
	s.Wait()

	jobs, err := s.qry.ListCompletedScanJobs(ctx, 10)
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, db.JOB_COMPLETED, jobs[0].Status)
}
