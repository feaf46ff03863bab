package scan

import (
	"context"
	"fmt"
	"screener-backend/internal/components/assert"
	"screener-backend/internal/components/telemetry"
	"screener-backend/internal/scrapers/screener"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scan")

const DefaultPacing = time.Second * 2

const (
	report_orchestrator_query = "orchestrator.query"
	report_orchestrator_run   = "orchestrator.run"
)

type Target struct {
	// ID is the persisted screener id, 0 when the target did not come from
	// the database.
	ID   int64
	Name string
	URL  string
}

type Outcome struct {
	Target Target
	Rows   []screener.ResultRow
	Err    error
}

// ErrorString is the outcome's error message or "".
func (o Outcome) ErrorString() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

type Batch struct {
	Outcomes []Outcome
	Tally    Tally
}

// Extractor is satisfied by *screener.Engine.
type Extractor interface {
	Extract(ctx context.Context, queryUrl string) ([]screener.ResultRow, error)
}

// Reporter receives progress for a running batch, index is zero based.
type Reporter interface {
	QueryStarted(index, total int, target Target)
	QueryFinished(index, total int, outcome Outcome)
}

type Options struct {
	// Pacing is waited between two queries, never after the last one.
	Pacing time.Duration
}

type Orchestrator struct {
	extractor Extractor
	opts      Options
	tel       telemetry.API
}

func NewOrchestrator(extractor Extractor, opts Options, tel telemetry.API) Orchestrator {
	assert.NotNil(extractor)
	assert.NotNil(tel)
	if opts.Pacing < 0 {
		opts.Pacing = 0
	}
	return Orchestrator{
		extractor: extractor,
		opts:      opts,
		tel:       telemetry.NewScopedAPI("scan", tel),
	}
}

// Run extracts every target in order, one at a time. A failing query is
// recorded on its outcome and the batch moves on. The only error returned
// is ctx's, checked between queries, together with the outcomes gathered
// so far.
func (o Orchestrator) Run(ctx context.Context, targets []Target, reporter Reporter) (Batch, error) {
	ctx, span := tracer.Start(ctx, "run")
	defer span.End()
	span.SetAttributes(attribute.Int("targets", len(targets)))

	outcomes := make([]Outcome, 0, len(targets))
	for i, target := range targets {
		if i > 0 {
			err := o.pace(ctx)
			if err != nil {
				return o.abort(span, outcomes, err)
			}
		}
		if ctx.Err() != nil {
			return o.abort(span, outcomes, ctx.Err())
		}

		if reporter != nil {
			reporter.QueryStarted(i, len(targets), target)
		}
		outcome := o.runOne(ctx, target)
		outcomes = append(outcomes, outcome)
		if outcome.Err != nil {
			o.tel.ReportWarning(report_orchestrator_query, target.URL, outcome.Err)
		}
		if reporter != nil {
			reporter.QueryFinished(i, len(targets), outcome)
		}
	}

	tally := NewTally(outcomes)
	o.tel.ReportCount(report_orchestrator_run, int64(len(tally)))
	return Batch{Outcomes: outcomes, Tally: tally}, nil
}

func (o Orchestrator) runOne(ctx context.Context, target Target) (outcome Outcome) {
	outcome.Target = target
	defer func() {
		if r := recover(); r != nil {
			outcome.Rows = nil
			outcome.Err = fmt.Errorf("panic while extracting %s: %v", target.URL, r)
			o.tel.ReportBroken(report_orchestrator_query, target.URL, outcome.Err)
		}
	}()

	rows, err := o.extractor.Extract(ctx, target.URL)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Rows = rows
	return outcome
}

func (o Orchestrator) pace(ctx context.Context) error {
	if o.opts.Pacing == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(o.opts.Pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o Orchestrator) abort(span trace.Span, outcomes []Outcome, err error) (Batch, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "batch aborted")
	o.tel.ReportWarning(report_orchestrator_run, "batch aborted", len(outcomes), err)
	return Batch{Outcomes: outcomes, Tally: NewTally(outcomes)}, err
}
