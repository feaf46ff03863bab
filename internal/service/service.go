package service

import (
	"context"
	"database/sql"
	"screener-backend/internal/components/assert"
	"screener-backend/internal/components/chrono"
	"screener-backend/internal/components/db"
	"screener-backend/internal/components/telemetry"
	"screener-backend/internal/scan"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("service")

const (
	report_db_query      = "db.query"
	report_job_run       = "job.run"
	report_job_persist   = "job.persist"
	report_job_report    = "job.report"
	report_job_notify    = "job.notify"
	report_screener_add  = "screener.add"
	report_http_response = "http.response"
)

// IdAPI generates job ids.
//
// note: fault injection point
type IdAPI interface {
	NewId() string
}

type uuidIdAPI struct{}

func (uuidIdAPI) NewId() string {
	return uuid.NewString()
}

// BatchRunner is satisfied by scan.Orchestrator.
type BatchRunner interface {
	Run(ctx context.Context, targets []scan.Target, reporter scan.Reporter) (scan.Batch, error)
}

type Options struct {
	// ReportsDir is where csv reports are written, reports are skipped when
	// it is empty.
	ReportsDir string
	// Notify is the list of addresses that receive a summary after every
	// completed job.
	Notify []string
}

type serviceConfig struct {
	tel    telemetry.API
	time   chrono.TimeAPI
	ids    IdAPI
	mailer Mailer
}

type ServiceOption func(cfg *serviceConfig)

func WithCustomTelemetryAPI(tel telemetry.API) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func WithCustomTimeAPI(time chrono.TimeAPI) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.time = time
	}
}

func WithCustomIdAPI(ids IdAPI) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.ids = ids
	}
}

func WithMailer(mailer Mailer) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.mailer = mailer
	}
}

// Service owns screeners, scan jobs, their results and reports.
type Service struct {
	qry    *db.Queries
	makeTx db.MakeTx
	runner BatchRunner
	opts   Options

	tel    telemetry.API
	time   chrono.TimeAPI
	ids    IdAPI
	mailer Mailer

	// lifetime is the parent context of background jobs
	lifetime context.Context
	jobs     sync.WaitGroup
	mutex    sync.Mutex
	running  string
}

func NewService(lifetime context.Context, database *sql.DB, runner BatchRunner, opts Options, options ...ServiceOption) *Service {
	assert.NotNil(lifetime)
	assert.NotNil(database)
	assert.NotNil(runner)

	cfg := serviceConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	s := &Service{
		qry:      db.New(database),
		makeTx:   db.NewMakeTx(database),
		runner:   runner,
		opts:     opts,
		tel:      telemetry.SlogAPI{},
		ids:      uuidIdAPI{},
		mailer:   cfg.mailer,
		lifetime: lifetime,
	}
	if cfg.tel != nil {
		s.tel = cfg.tel
	}
	if cfg.time != nil {
		s.time = cfg.time
	} else {
		// the local timezone always loads
		s.time, _ = chrono.NewStandardTime("")
	}
	if cfg.ids != nil {
		s.ids = cfg.ids
	}
	s.tel = telemetry.NewScopedAPI("service", s.tel)

	return s
}

// Wait blocks until every background job started by StartScan returns.
func (s *Service) Wait() {
	s.jobs.Wait()
}
