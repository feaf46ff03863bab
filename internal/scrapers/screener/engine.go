package screener

import (
	"context"
	"errors"
	"fmt"
	"screener-backend/internal/components/assert"
	"screener-backend/internal/components/telemetry"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("scrapers/screener")
var meter = otel.Meter("scrapers/screener")

var extractCounter, _ = meter.Int64Counter(
	"screener_extractions",
	metric.WithDescription("extractions by how the scan clause was obtained"),
)

const (
	DefaultPageLoadTimeout = time.Second * 60
	DefaultCaptureAttempts = 10
	DefaultCaptureInterval = time.Millisecond * 500
	DefaultSettleDelay     = time.Millisecond * 500
)

const (
	report_engine_launch    = "engine.launch"
	report_engine_install   = "engine.install"
	report_engine_navigate  = "engine.navigate"
	report_engine_capture   = "engine.capture"
	report_engine_fallback  = "engine.fallback"
	report_engine_token     = "engine.token"
	report_engine_bridge    = "engine.bridge"
	report_engine_normalize = "engine.normalize"
	report_engine_replay    = "engine.replay"
	report_engine_rows      = "engine.rows"
	report_engine_teardown  = "engine.teardown"
)

type Options struct {
	CaptureAttempts int
	CaptureInterval time.Duration
	// SettleDelay is waited after activating the run control and before
	// capturing again.
	SettleDelay time.Duration
	Locators    []Locator
}

// Engine turns a saved screener url into result rows by capturing the
// scan clause the page sends and replaying it over plain http.
type Engine struct {
	browser Browser
	replay  *ReplayClient
	opts    Options
	tel     telemetry.API

	// one browser instance at a time, the replay cookie jar is shared
	mutex sync.Mutex
}

func NewEngine(browser Browser, replay *ReplayClient, opts Options, tel telemetry.API) *Engine {
	assert.NotNil(browser)
	assert.NotNil(replay)
	assert.NotNil(tel)

	if opts.CaptureAttempts <= 0 {
		opts.CaptureAttempts = DefaultCaptureAttempts
	}
	if opts.CaptureInterval <= 0 {
		opts.CaptureInterval = DefaultCaptureInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Locators == nil {
		opts.Locators = RunScanLocators
	}

	return &Engine{
		browser: browser,
		replay:  replay,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("screener_engine", tel),
	}
}

// Extract runs a single query url through a fresh browser instance. A page
// that never sends its query, or that has no csrf token, yields no rows and
// no error. Failures to launch, navigate or replay return an
// *ExtractionError. The browser is always closed before returning.
func (e *Engine) Extract(ctx context.Context, queryUrl string) (rows []ResultRow, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	ctx, span := tracer.Start(ctx, "extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", queryUrl))

	fail := func(stage Stage, report string, err error) error {
		e.tel.ReportBroken(report, queryUrl, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage))
		return &ExtractionError{Stage: stage, URL: queryUrl, Err: err}
	}

	session, err := e.browser.Open(ctx)
	if err != nil {
		return nil, fail(STAGE_LAUNCH, report_engine_launch, err)
	}
	defer func() {
		closeErr := session.Close()
		if closeErr != nil {
			e.tel.ReportWarning(report_engine_teardown, queryUrl, closeErr)
		}
	}()

	err = session.Install(ctx, InterceptorScript)
	if err != nil {
		return nil, fail(STAGE_INSTALL, report_engine_install, err)
	}

	err = session.Navigate(ctx, queryUrl)
	if err != nil {
		return nil, fail(STAGE_NAVIGATE, report_engine_navigate, err)
	}

	raw, captured, err := e.capture(ctx, session)
	if err != nil {
		return nil, fail(STAGE_CAPTURE, report_engine_capture, err)
	}
	how := "auto"

	if !captured {
		how = "fallback"
		raw, captured, err = e.fallback(ctx, session, queryUrl)
		if err != nil {
			return nil, fail(STAGE_CAPTURE, report_engine_fallback, err)
		}
	}

	html, err := session.HTML(ctx)
	if err != nil {
		e.tel.ReportWarning(report_engine_token, queryUrl, fmt.Errorf("read page html: %w", err))
	}
	token := ReadCsrfToken(html)

	if !captured {
		e.tel.ReportWarning(report_engine_capture, queryUrl, "scan clause was never sent")
		extractCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "no-capture")))
		return []ResultRow{}, nil
	}
	if token == "" {
		e.tel.ReportWarning(report_engine_token, queryUrl, "csrf token missing")
		extractCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "no-token")))
		return []ResultRow{}, nil
	}

	clause, shape := NormalizeShaped(raw)
	if shape == SHAPE_PASSTHROUGH {
		e.tel.ReportWarning(report_engine_normalize, queryUrl, "payload matched no known shape, passing through", raw)
	}
	e.tel.ReportDebug("normalized scan clause", queryUrl, shape, clause)

	cookies, err := session.Cookies(ctx)
	if err != nil {
		e.tel.ReportWarning(report_engine_bridge, queryUrl, err)
	}
	bridged := Bridge(cookies, e.replay.Jar, e.replay.Endpoint)
	e.tel.ReportDebug("bridged cookies", queryUrl, bridged)

	rows, err = e.replay.Replay(ctx, clause, token)
	if err != nil {
		return nil, fail(STAGE_REPLAY, report_engine_replay, err)
	}

	extractCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", how)))
	e.tel.ReportCount(report_engine_rows, int64(len(rows)))
	return rows, nil
}

func (e *Engine) capture(ctx context.Context, session Session) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "capture")
	defer span.End()

	loop := CaptureLoop{
		Attempts: e.opts.CaptureAttempts,
		Interval: e.opts.CaptureInterval,
	}
	raw, ok, err := loop.Poll(ctx, session)
	span.SetAttributes(attribute.Bool("captured", ok))
	return raw, ok, err
}

// fallback clicks the run control once and captures again. Only context
// cancellation is returned as an error.
func (e *Engine) fallback(ctx context.Context, session Session, queryUrl string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "fallback")
	defer span.End()

	result, err := ActivateRunControl(ctx, session, e.opts.Locators)
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	if err != nil {
		e.tel.ReportWarning(report_engine_fallback, queryUrl, err)
		span.RecordError(err)
		return "", false, nil
	}
	if result.Locator == "" {
		e.tel.ReportWarning(report_engine_fallback, queryUrl, "run control not found")
		return "", false, nil
	}
	span.SetAttributes(
		attribute.String("locator", result.Locator),
		attribute.Bool("forced", result.Forced),
	)
	e.tel.ReportDebug("activated run control", queryUrl, result.Locator, result.Forced)

	if e.opts.SettleDelay > 0 {
		timer := time.NewTimer(e.opts.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		}
	}

	return e.capture(ctx, session)
}

// IsExtractionStage reports whether err is an *ExtractionError of stage.
func IsExtractionStage(err error, stage Stage) bool {
	var extractErr *ExtractionError
	return errors.As(err, &extractErr) && extractErr.Stage == stage
}
