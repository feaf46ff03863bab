package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"screener-backend/internal/components/db"
	"screener-backend/internal/scan"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrJobRunning        = errors.New("a scan job is already running")
	ErrNoActiveScreeners = errors.New("no active screeners found")
	ErrJobNotFound       = errors.New("scan job not found")
)

type Job struct {
	ID          string       `json:"id"`
	Status      db.JobStatus `json:"status"`
	Progress    int64        `json:"progress"`
	CreatedAt   int64        `json:"created_at"`
	StartedAt   int64        `json:"started_at,omitempty"`
	CompletedAt int64        `json:"completed_at,omitempty"`
	Log         string       `json:"log"`
}

func jobFromRow(row db.ScanJob) Job {
	return Job{
		ID:          row.ID,
		Status:      row.Status,
		Progress:    row.Progress,
		CreatedAt:   row.CreatedAt,
		StartedAt:   row.StartedAt.Int64,
		CompletedAt: row.CompletedAt.Int64,
		Log:         row.Log,
	}
}

func (s *Service) GetJob(ctx context.Context, id string) (Job, error) {
	row, err := s.qry.GetScanJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("GetScanJob: %w", err))
		return Job{}, err
	}
	return jobFromRow(row), nil
}

// CreateJob reserves the single job slot of this process and records a
// PENDING job. The slot is released by RunJob.
func (s *Service) CreateJob(ctx context.Context) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running != "" {
		return "", ErrJobRunning
	}

	active, err := s.qry.CountActiveScreeners(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("CountActiveScreeners: %w", err))
		return "", err
	}
	if active == 0 {
		return "", ErrNoActiveScreeners
	}

	id := s.ids.NewId()
	err = s.qry.CreateScanJob(ctx, db.CreateScanJobParams{
		ID:        id,
		CreatedAt: s.time.Now().Unix(),
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("CreateScanJob: %w", err))
		return "", err
	}
	s.running = id
	return id, nil
}

// StartScan creates a job and runs it in the background.
func (s *Service) StartScan(ctx context.Context) (string, error) {
	id, err := s.CreateJob(ctx)
	if err != nil {
		return "", err
	}
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.RunJob(s.lifetime, id)
	}()
	return id, nil
}

func (s *Service) releaseSlot(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running == id {
		s.running = ""
	}
}

func (s *Service) appendLog(ctx context.Context, jobID, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s\n", s.time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	err := s.qry.AppendScanJobLog(ctx, db.AppendScanJobLogParams{
		ID:   jobID,
		Line: line,
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("AppendScanJobLog: %w", err), jobID)
	}
}

func (s *Service) setProgress(ctx context.Context, jobID string, progress int64) {
	err := s.qry.SetScanJobProgress(ctx, db.SetScanJobProgressParams{
		ID:       jobID,
		Progress: progress,
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("SetScanJobProgress: %w", err), jobID)
	}
}

func (s *Service) finish(ctx context.Context, jobID string, status db.JobStatus, progress int64) error {
	err := s.qry.FinishScanJob(ctx, db.FinishScanJobParams{
		ID:          jobID,
		Status:      status,
		Progress:    progress,
		CompletedAt: s.time.Now().Unix(),
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("FinishScanJob: %w", err), jobID)
	}
	return err
}

// RunJob runs every active screener for a job created by CreateJob and
// records the results. Any failure of the run itself leaves the job FAILED.
func (s *Service) RunJob(ctx context.Context, jobID string) (batch scan.Batch, err error) {
	defer s.releaseSlot(jobID)

	ctx, span := tracer.Start(ctx, "RunJob")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	// status writes must land even if the run was cancelled
	dbctx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if err != nil {
			s.tel.ReportBroken(report_job_run, err, jobID)
			span.RecordError(err)
			span.SetStatus(codes.Error, "job failed")
			s.appendLog(dbctx, jobID, "Scan failed: %v", err)
			failErr := s.qry.FailScanJob(dbctx, db.FailScanJobParams{
				ID:          jobID,
				CompletedAt: s.time.Now().Unix(),
			})
			if failErr != nil {
				s.tel.ReportBroken(report_db_query, fmt.Errorf("FailScanJob: %w", failErr), jobID)
			}
		}
	}()

	err = s.qry.StartScanJob(dbctx, db.StartScanJobParams{
		ID:        jobID,
		StartedAt: s.time.Now().Unix(),
	})
	if err != nil {
		return scan.Batch{}, err
	}
	s.appendLog(dbctx, jobID, "Scan started")

	screeners, err := s.qry.ListActiveScreeners(dbctx)
	if err != nil {
		return scan.Batch{}, err
	}
	if len(screeners) == 0 {
		s.appendLog(dbctx, jobID, "No active screeners")
		return scan.Batch{}, s.finish(dbctx, jobID, db.JOB_COMPLETED, 100)
	}

	targets := make([]scan.Target, len(screeners))
	for i, row := range screeners {
		targets[i] = scan.Target{ID: row.ID, Name: row.Name, URL: row.Url}
	}

	batch, err = s.runner.Run(ctx, targets, jobReporter{s: s, ctx: dbctx, jobID: jobID})
	if err != nil {
		return batch, err
	}

	s.setProgress(dbctx, jobID, 95)
	threshold, err := s.threshold(dbctx)
	if err != nil {
		return batch, err
	}
	highConviction := batch.Tally.HighConviction(int(threshold))
	for _, r := range highConviction {
		err = s.qry.MarkHighConviction(dbctx, db.MarkHighConvictionParams{
			JobID:  jobID,
			Symbol: r.Symbol,
		})
		if err != nil {
			return batch, err
		}
	}
	s.appendLog(
		dbctx, jobID,
		"Scan completed, %d unique stocks, %d seen in at least %d screeners",
		len(batch.Tally), len(highConviction), threshold,
	)
	err = s.finish(dbctx, jobID, db.JOB_COMPLETED, 100)
	if err != nil {
		return batch, err
	}

	report, reportErr := s.WriteReport(dbctx, jobID)
	if reportErr != nil {
		s.tel.ReportBroken(report_job_report, reportErr, jobID)
		s.appendLog(dbctx, jobID, "Report failed: %v", reportErr)
	}
	notifyErr := s.notify(dbctx, jobID, batch, highConviction, report)
	if notifyErr != nil {
		s.tel.ReportWarning(report_job_notify, notifyErr, jobID)
	}

	return batch, nil
}

type jobReporter struct {
	s     *Service
	ctx   context.Context
	jobID string
}

func (r jobReporter) QueryStarted(index, total int, target scan.Target) {
	r.s.appendLog(r.ctx, r.jobID, "Scanning %s (%d/%d)", target.Name, index+1, total)
	r.s.setProgress(r.ctx, r.jobID, int64(index*90/total))
}

func (r jobReporter) QueryFinished(index, total int, outcome scan.Outcome) {
	defer r.s.setProgress(r.ctx, r.jobID, int64((index+1)*90/total))

	if outcome.Err != nil {
		r.s.appendLog(r.ctx, r.jobID, "Error scanning %s: %v", outcome.Target.Name, outcome.Err)
		return
	}
	err := r.s.saveOutcome(r.ctx, r.jobID, outcome)
	if err != nil {
		r.s.tel.ReportBroken(report_job_persist, err, r.jobID, outcome.Target.URL)
		r.s.appendLog(r.ctx, r.jobID, "Error saving results of %s: %v", outcome.Target.Name, err)
		return
	}
	r.s.appendLog(r.ctx, r.jobID, "Found %d stocks in %s", len(outcome.Rows), outcome.Target.Name)
}

func (s *Service) saveOutcome(ctx context.Context, jobID string, outcome scan.Outcome) error {
	if len(outcome.Rows) == 0 {
		return nil
	}

	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	scrapedAt := s.time.Now().Unix()
	for _, row := range outcome.Rows {
		err = txqry.AddStockResult(ctx, db.AddStockResultParams{
			JobID:      jobID,
			ScreenerID: outcome.Target.ID,
			Symbol:     row.Symbol,
			Name:       row.Name,
			NseCode:    sql.NullString{String: row.NseCode, Valid: row.NseCode != ""},
			BseCode:    sql.NullString{String: row.BseCode, Valid: row.BseCode != ""},
			ClosePrice: sql.NullFloat64{Float64: row.ClosePrice, Valid: true},
			Volume:     sql.NullInt64{Int64: int64(row.Volume), Valid: true},
			ScrapedAt:  scrapedAt,
		})
		if err != nil {
			return err
		}
	}
	return commit()
}

func (s *Service) threshold(ctx context.Context) (int64, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.MinRankingThreshold, nil
}
