package service

import (
	"errors"
	"screener-backend/internal/components/chrono"
)

const report_schedule_start = "schedule.start"

// Schedule starts a scan on every tick of spec. Ticks that land while a job
// is still running are skipped.
func (s *Service) Schedule(cron chrono.CronAPI, spec string) error {
	return cron.Cron(spec, func() {
		id, err := s.StartScan(s.lifetime)
		if errors.Is(err, ErrJobRunning) || errors.Is(err, ErrNoActiveScreeners) {
			s.tel.ReportWarning(report_schedule_start, err)
			return
		}
		if err != nil {
			s.tel.ReportBroken(report_schedule_start, err)
			return
		}
		s.tel.ReportDebug("scheduled scan started", id)
	})
}
