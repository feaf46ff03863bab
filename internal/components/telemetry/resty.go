package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_error    = "resty.error"
)

// dumped bodies are cut to this many bytes
const maxDumpBody = 2048

// headers whose values never reach a report
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
	"X-Csrf-Token":  true,
}

type restyHooks struct {
	tel    API
	tracer trace.Tracer
	nextId *atomic.Uint64
}

type exchangeKey struct{}

type exchange struct {
	id    uint64
	start time.Time
}

// InstrumentResty opens a span under tracerName for every request the
// client makes and reports its latency and status through tel. Failed
// exchanges are dumped with credentials redacted.
func InstrumentResty(client *resty.Client, tracerName string, tel API) {
	hooks := restyHooks{
		tel:    tel,
		tracer: otel.Tracer(tracerName),
		nextId: &atomic.Uint64{},
	}
	client.OnBeforeRequest(hooks.before)
	client.OnAfterResponse(hooks.after)
	client.OnError(hooks.failed)
}

func (h restyHooks) before(_ *resty.Client, req *resty.Request) error {
	ctx, _ := h.tracer.Start(req.Context(), "http "+req.Method)
	ex := exchange{id: h.nextId.Add(1), start: time.Now()}
	req.SetContext(context.WithValue(ctx, exchangeKey{}, ex))
	h.tel.ReportDebug(report_resty_request, ex.id, req.Method, req.URL)
	return nil
}

func exchangeOf(ctx context.Context) (exchange, bool) {
	ex, ok := ctx.Value(exchangeKey{}).(exchange)
	return ex, ok
}

func (h restyHooks) after(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// RawRequest only exists once the request was sent
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}

	ex, ok := exchangeOf(ctx)
	if !ok {
		return nil
	}
	elapsed := time.Since(ex.start)
	span.SetAttributes(attribute.Int64("http.elapsed_ms", elapsed.Milliseconds()))
	h.tel.ReportDebug(report_resty_response, ex.id, res.Status(), elapsed.String())

	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		h.tel.ReportDebug(report_resty_response, ex.id, dumpExchange(res))
	}
	return nil
}

func (h restyHooks) failed(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	var elapsed time.Duration
	if ex, ok := exchangeOf(ctx); ok {
		elapsed = time.Since(ex.start)
	}
	h.tel.ReportWarning(report_resty_error, err, req.Method, req.URL, elapsed.String())
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			if redactedHeaders[http.CanonicalHeaderKey(k)] {
				v = "<redacted>"
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func clip(body string) string {
	if len(body) <= maxDumpBody {
		return body
	}
	return fmt.Sprintf("%s... (%d bytes)", body[:maxDumpBody], len(body))
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<no body>"
	}
	body, err := req.GetBody()
	if err != nil {
		return "<unreadable body: " + err.Error() + ">"
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return "<unreadable body: " + err.Error() + ">"
	}
	return clip(string(data))
}

// dumpExchange renders a request and its response as text.
func dumpExchange(res *resty.Response) string {
	var out strings.Builder
	fmt.Fprintf(&out, "> %s %s\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		writeHeaders(&out, res.Request.RawRequest.Header)
	}
	out.WriteString("\n")
	out.WriteString(requestBody(res.Request.RawRequest))
	fmt.Fprintf(&out, "\n\n< %s\n", res.Status())
	writeHeaders(&out, res.Header())
	out.WriteString("\n")
	out.WriteString(clip(res.String()))
	return out.String()
}
