package screener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"screener-backend/internal/components/telemetry"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const pageWithToken = `<html><head>
<meta name="csrf-token" content="abc123">
</head><body><button class="btn btn-primary">Run Scan</button></body></html>`

type processServer struct {
	*httptest.Server
	requests atomic.Int64
	lastForm atomic.Value
}

func newProcessServer(t *testing.T, status int, body string) *processServer {
	t.Helper()
	s := &processServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		err := r.ParseForm()
		if err != nil {
			t.Errorf("parse form: %v", err)
		}
		s.lastForm.Store(fmt.Sprintf(
			"%s|%s|%s|%s|%s",
			r.Method,
			r.PostForm.Get("scan_clause"),
			r.Header.Get("X-Csrf-Token"),
			r.Header.Get("X-Requested-With"),
			r.Header.Get("User-Agent"),
		))
		cookie, err := r.Cookie("ci_session")
		if err == nil {
			s.lastForm.Store(s.lastForm.Load().(string) + "|" + cookie.Value)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestEngine(t *testing.T, browser Browser, endpoint string, tel telemetry.API) *Engine {
	t.Helper()
	replay, err := NewReplayClient(ReplayOptions{
		Endpoint:          endpoint + "/screener/process",
		Timeout:           time.Second * 5,
		RequestsPerSecond: 100,
	}, tel)
	require.Nil(t, err)
	return NewEngine(browser, replay, Options{
		CaptureAttempts: 3,
		CaptureInterval: time.Millisecond,
	}, tel)
}

func TestExtractEndToEnd(t *testing.T) {
	server := newProcessServer(t, http.StatusOK, `{"data":[{"nsecode":"TCS","name":"Tata Consultancy","close":3500.5,"volume":120000}]}`)
	session := &fakeSession{
		payload: "scan_clause%3D%7B%22cash%22%3Atrue%7D",
		html:    pageWithToken,
		cookies: []*http.Cookie{{Name: "ci_session", Value: "xyz"}},
	}
	browser := &fakeBrowser{session: session}
	engine := newTestEngine(t, browser, server.URL, &telemetry.Recorder{})

	rows, err := engine.Extract(context.Background(), "https://chartink.com/screener/cash-test")
	require.Nil(t, err)

	expected := []ResultRow{{
		Symbol:     "TCS",
		Name:       "Tata Consultancy",
		NseCode:    "TCS",
		ClosePrice: 3500.5,
		Volume:     120000,
	}}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, int64(1), server.requests.Load())
	require.Equal(
		t,
		`POST|{"cash":true}|abc123|XMLHttpRequest|`+DefaultUserAgent+`|xyz`,
		server.lastForm.Load(),
	)
	require.Equal(t, []string{InterceptorScript}, session.installed)
	require.Equal(t, []string{"https://chartink.com/screener/cash-test"}, session.navigated)
	require.Equal(t, 1, session.closed)
}

func TestExtractNoCaptureNoControl(t *testing.T) {
	server := newProcessServer(t, http.StatusOK, `{"data":[]}`)
	session := &fakeSession{html: pageWithToken}
	tel := &telemetry.Recorder{}
	engine := newTestEngine(t, &fakeBrowser{session: session}, server.URL, tel)

	rows, err := engine.Extract(context.Background(), "https://chartink.com/screener/empty")
	require.Nil(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)

	// the capture loop runs once, there is no control so it is not repeated
	require.Equal(t, 3, session.evals)
	require.Equal(t, int64(0), server.requests.Load())
	require.Equal(t, 1, session.closed)
	require.True(t, tel.Has("warning", report_engine_fallback))
	require.True(t, tel.Has("warning", report_engine_capture))
}

func TestExtractFallback(t *testing.T) {
	testCases := []struct {
		name      string
		clickErr  error
		forceErr  error
		expectErr bool
		forced    int
		rows      int
	}{
		{name: "direct click", rows: 1},
		{name: "forced click", clickErr: errors.New("element covered"), forced: 1, rows: 1},
		{
			name:     "both fail",
			clickErr: errors.New("element covered"),
			forceErr: errors.New("detached"),
			forced:   1,
			rows:     0,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			server := newProcessServer(t, http.StatusOK, `{"data":[{"bsecode":"500325","name":"Reliance","close":"2900.10","volume":null}]}`)
			el := &fakeElement{clickErr: test.clickErr, forceErr: test.forceErr}
			session := &fakeSession{
				clickPayload: `{"scan_clause":"( {cash} ( latest close > 100 ) )"}`,
				html:         pageWithToken,
				elements: map[string]*fakeElement{
					RunScanLocators[1].XPath: el,
				},
			}
			engine := newTestEngine(t, &fakeBrowser{session: session}, server.URL, &telemetry.Recorder{})

			rows, err := engine.Extract(context.Background(), "https://chartink.com/screener/fallback")
			require.Nil(t, err)
			require.Len(t, rows, test.rows)
			require.Equal(t, 1, el.scrolled)
			require.Equal(t, 1, el.clicked)
			require.Equal(t, test.forced, el.forced)
			require.Equal(t, 1, session.closed)

			if test.rows > 0 {
				require.Equal(t, "500325", rows[0].Symbol)
				require.Equal(t, 2900.10, rows[0].ClosePrice)
				require.Equal(t, float64(0), rows[0].Volume)
				require.Equal(t, `POST|( {cash} ( latest close > 100 ) )|abc123|XMLHttpRequest|`+DefaultUserAgent, server.lastForm.Load())
			} else {
				require.Equal(t, int64(0), server.requests.Load())
			}
		})
	}
}

func TestExtractMissingToken(t *testing.T) {
	server := newProcessServer(t, http.StatusOK, `{"data":[{"nsecode":"TCS"}]}`)
	session := &fakeSession{
		payload: "scan_clause=abc",
		html:    "<html><head></head><body></body></html>",
	}
	tel := &telemetry.Recorder{}
	engine := newTestEngine(t, &fakeBrowser{session: session}, server.URL, tel)

	rows, err := engine.Extract(context.Background(), "https://chartink.com/screener/no-token")
	require.Nil(t, err)
	require.Empty(t, rows)
	require.Equal(t, int64(0), server.requests.Load())
	require.Equal(t, 1, session.closed)
	require.True(t, tel.Has("warning", report_engine_token))
}

func TestExtractReplayFailure(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "forbidden", status: http.StatusForbidden, body: `csrf mismatch`},
		{name: "bad json", status: http.StatusOK, body: `<html>cloudflare</html>`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			server := newProcessServer(t, test.status, test.body)
			session := &fakeSession{payload: "scan_clause=abc", html: pageWithToken}
			tel := &telemetry.Recorder{}
			engine := newTestEngine(t, &fakeBrowser{session: session}, server.URL, tel)

			rows, err := engine.Extract(context.Background(), "https://chartink.com/screener/failing")
			require.Nil(t, rows)
			require.NotNil(t, err)
			require.True(t, IsExtractionStage(err, STAGE_REPLAY))

			var replayErr *ReplayError
			require.True(t, errors.As(err, &replayErr))
			require.Equal(t, test.status, replayErr.Status)
			require.Equal(t, 1, session.closed)
			require.True(t, tel.Has("broken", report_engine_replay))
		})
	}
}

func TestExtractEmptyData(t *testing.T) {
	for _, body := range []string{`{"data":[]}`, `{}`, `{"data":null}`} {
		server := newProcessServer(t, http.StatusOK, body)
		session := &fakeSession{payload: "scan_clause=abc", html: pageWithToken}
		engine := newTestEngine(t, &fakeBrowser{session: session}, server.URL, &telemetry.Recorder{})

		rows, err := engine.Extract(context.Background(), "https://chartink.com/screener/none")
		require.Nil(t, err, body)
		require.Empty(t, rows, body)
	}
}

func TestExtractTeardown(t *testing.T) {
	t.Run("navigate failure", func(t *testing.T) {
		session := &fakeSession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
		engine := newTestEngine(t, &fakeBrowser{session: session}, "http://127.0.0.1:1", &telemetry.Recorder{})

		_, err := engine.Extract(context.Background(), "https://chartink.com/screener/dns")
		require.True(t, IsExtractionStage(err, STAGE_NAVIGATE))
		require.Equal(t, 1, session.closed)
		require.Equal(t, 0, session.evals)
	})

	t.Run("launch failure", func(t *testing.T) {
		browser := &fakeBrowser{openErr: errors.New("chrome not found")}
		engine := newTestEngine(t, browser, "http://127.0.0.1:1", &telemetry.Recorder{})

		_, err := engine.Extract(context.Background(), "https://chartink.com/screener/x")
		require.True(t, IsExtractionStage(err, STAGE_LAUNCH))
		require.Equal(t, 1, browser.opened)
	})

	t.Run("panic", func(t *testing.T) {
		session := &fakeSession{panicOnEval: true}
		engine := newTestEngine(t, &fakeBrowser{session: session}, "http://127.0.0.1:1", &telemetry.Recorder{})

		require.Panics(t, func() {
			engine.Extract(context.Background(), "https://chartink.com/screener/crash")
		})
		require.Equal(t, 1, session.closed)
	})

	t.Run("cancelled", func(t *testing.T) {
		session := &fakeSession{html: pageWithToken}
		engine := newTestEngine(t, &fakeBrowser{session: session}, "http://127.0.0.1:1", &telemetry.Recorder{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.Extract(ctx, "https://chartink.com/screener/cancel")
		require.True(t, errors.Is(err, context.Canceled))
		require.Equal(t, 1, session.closed)
	})
}
