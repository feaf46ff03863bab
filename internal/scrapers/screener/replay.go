package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"screener-backend/internal/components/assert"
	"screener-backend/internal/components/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint  = "https://chartink.com/screener/process"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

const (
	report_replay_request = "replay.request"
	report_replay_decode  = "replay.decode"
)

type ReplayOptions struct {
	Endpoint          string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// ReplayClient posts scan clauses to the process endpoint using a cookie
// jar that the session bridge fills from the browser.
type ReplayClient struct {
	Endpoint *url.URL
	Http     *resty.Client
	Jar      http.CookieJar

	tel telemetry.API
}

func NewReplayClient(opts ReplayOptions, tel telemetry.API) (*ReplayClient, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("replay_client", tel)

	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}

	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse replay endpoint: %w", err)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if endpoint.Scheme == "https" {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("User-Agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)

	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "scrapers/screener/http", tel)

	return &ReplayClient{
		Endpoint: endpoint,
		Http:     httpClient,
		Jar:      jar,
		tel:      tel,
	}, nil
}

// Replay posts the scan clause with the csrf token and decodes the result
// rows. A missing or empty data field yields no rows and no error.
func (c *ReplayClient) Replay(ctx context.Context, clause, token string) ([]ResultRow, error) {
	ctx, span := tracer.Start(ctx, "replay")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("X-Csrf-Token", token).
		SetFormData(map[string]string{
			scanClauseKey: clause,
		}).
		Post(c.Endpoint.String())
	if err != nil {
		c.tel.ReportBroken(report_replay_request, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, &ReplayError{Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))

	if !res.IsSuccess() {
		err := &ReplayError{
			Status: res.StatusCode(),
			Body:   truncate(res.String(), 512),
		}
		c.tel.ReportBroken(report_replay_request, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-success status")
		return nil, err
	}

	var body processResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		rerr := &ReplayError{
			Status: res.StatusCode(),
			Body:   truncate(res.String(), 512),
			Err:    fmt.Errorf("decode response: %w", err),
		}
		c.tel.ReportBroken(report_replay_decode, rerr)
		span.RecordError(rerr)
		span.SetStatus(codes.Error, "decode failed")
		return nil, rerr
	}

	rows := make([]ResultRow, len(body.Data))
	for i, r := range body.Data {
		rows[i] = r.resultRow()
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
