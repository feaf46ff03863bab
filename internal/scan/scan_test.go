package scan

import (
	"context"
	"errors"
	"screener-backend/internal/components/telemetry"
	"screener-backend/internal/scrapers/screener"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	rows   map[string][]screener.ResultRow
	errs   map[string]error
	panics map[string]bool
	calls  []string
	at     []time.Time
	// cancel is invoked after the call with this index
	cancelAfter int
	cancel      context.CancelFunc
}

func (f *fakeExtractor) Extract(ctx context.Context, queryUrl string) ([]screener.ResultRow, error) {
	f.calls = append(f.calls, queryUrl)
	f.at = append(f.at, time.Now())
	if f.cancel != nil && len(f.calls) == f.cancelAfter {
		f.cancel()
	}
	if f.panics[queryUrl] {
		panic("browser exploded")
	}
	if err := f.errs[queryUrl]; err != nil {
		return nil, err
	}
	return f.rows[queryUrl], nil
}

func rows(symbols ...string) []screener.ResultRow {
	out := make([]screener.ResultRow, len(symbols))
	for i, s := range symbols {
		out[i] = screener.ResultRow{Symbol: s, Name: s}
	}
	return out
}

type recordingReporter struct {
	started  []int
	finished []Outcome
}

func (r *recordingReporter) QueryStarted(index, total int, target Target) {
	r.started = append(r.started, index)
}

func (r *recordingReporter) QueryFinished(index, total int, outcome Outcome) {
	r.finished = append(r.finished, outcome)
}

func targets(urls ...string) []Target {
	out := make([]Target, len(urls))
	for i, u := range urls {
		out[i] = Target{ID: int64(i + 1), URL: u}
	}
	return out
}

func TestNewTally(t *testing.T) {
	outcomes := []Outcome{
		{Rows: rows("X", "A", "X")},
		{Rows: rows("A", "B")},
		{Rows: rows("X", screener.UnknownSymbol, screener.UnknownSymbol)},
		{Err: errors.New("failed")},
	}

	tally := NewTally(outcomes)
	require.Equal(t, Tally{"X": 2, "A": 2, "B": 1}, tally)
	require.Equal(t, []Ranked{{"A", 2}, {"X", 2}, {"B", 1}}, tally.Ranked())
	require.Equal(t, []Ranked{{"A", 2}}, tally.Top(1))
	require.Equal(t, []Ranked{{"A", 2}, {"X", 2}}, tally.HighConviction(2))
	require.Empty(t, tally.HighConviction(3))
}

func TestRunBatch(t *testing.T) {
	extractor := &fakeExtractor{
		rows: map[string][]screener.ResultRow{
			"q1": rows("X", "Y"),
			"q2": rows("Y"),
			"q3": rows("X", "Z"),
		},
	}
	reporter := &recordingReporter{}
	orchestrator := NewOrchestrator(extractor, Options{}, &telemetry.Recorder{})

	batch, err := orchestrator.Run(context.Background(), targets("q1", "q2", "q3"), reporter)
	require.Nil(t, err)
	require.Len(t, batch.Outcomes, 3)
	require.Equal(t, 2, batch.Tally["X"])
	require.Equal(t, 2, batch.Tally["Y"])
	require.Equal(t, 1, batch.Tally["Z"])
	require.Equal(t, []string{"q1", "q2", "q3"}, extractor.calls)
	require.Equal(t, []int{0, 1, 2}, reporter.started)
	require.Len(t, reporter.finished, 3)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	replayErr := &screener.ExtractionError{
		Stage: screener.STAGE_REPLAY,
		URL:   "q2",
		Err:   &screener.ReplayError{Status: 500},
	}
	extractor := &fakeExtractor{
		rows: map[string][]screener.ResultRow{
			"q1": rows("TCS"),
			"q4": rows("TCS", "INFY"),
		},
		errs:   map[string]error{"q2": replayErr},
		panics: map[string]bool{"q3": true},
	}
	tel := &telemetry.Recorder{}
	orchestrator := NewOrchestrator(extractor, Options{}, tel)

	batch, err := orchestrator.Run(context.Background(), targets("q1", "q2", "q3", "q4"), nil)
	require.Nil(t, err)
	require.Len(t, batch.Outcomes, 4)

	require.Nil(t, batch.Outcomes[0].Err)
	require.Len(t, batch.Outcomes[0].Rows, 1)

	require.Empty(t, batch.Outcomes[1].Rows)
	var replay *screener.ReplayError
	require.True(t, errors.As(batch.Outcomes[1].Err, &replay))
	require.Equal(t, 500, replay.Status)

	require.NotNil(t, batch.Outcomes[2].Err)
	require.Contains(t, batch.Outcomes[2].ErrorString(), "browser exploded")
	require.Empty(t, batch.Outcomes[2].Rows)

	require.Len(t, batch.Outcomes[3].Rows, 2)
	require.Equal(t, Tally{"TCS": 2, "INFY": 1}, batch.Tally)
	require.True(t, tel.Has("broken", report_orchestrator_query))
	require.True(t, tel.Has("warning", report_orchestrator_query))
}

func TestRunBatchEmptyRowsAreNotErrors(t *testing.T) {
	extractor := &fakeExtractor{rows: map[string][]screener.ResultRow{"q1": {}}}
	orchestrator := NewOrchestrator(extractor, Options{}, &telemetry.Recorder{})

	batch, err := orchestrator.Run(context.Background(), targets("q1"), nil)
	require.Nil(t, err)
	require.Len(t, batch.Outcomes, 1)
	require.Nil(t, batch.Outcomes[0].Err)
	require.Empty(t, batch.Outcomes[0].Rows)
	require.Empty(t, batch.Tally)
}

func TestRunBatchCancelledBetweenQueries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := &fakeExtractor{
		rows:        map[string][]screener.ResultRow{"q1": rows("A"), "q2": rows("A")},
		cancelAfter: 1,
		cancel:      cancel,
	}
	orchestrator := NewOrchestrator(extractor, Options{Pacing: DefaultPacing}, &telemetry.Recorder{})

	batch, err := orchestrator.Run(ctx, targets("q1", "q2", "q3"), nil)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, []string{"q1"}, extractor.calls)
	require.Len(t, batch.Outcomes, 1)
	require.Equal(t, Tally{"A": 1}, batch.Tally)
}

func TestRunBatchPacing(t *testing.T) {
	const pacing = 80 * time.Millisecond

	extractor := &fakeExtractor{}
	orchestrator := NewOrchestrator(extractor, Options{Pacing: pacing}, &telemetry.Recorder{})

	start := time.Now()
	batch, err := orchestrator.Run(context.Background(), targets("q1", "q2", "q3"), nil)
	end := time.Now()
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 3)
	require.Len(t, extractor.at, 3)

	// no wait before the first query
	require.Less(t, extractor.at[0].Sub(start), pacing)
	for i := 1; i < len(extractor.at); i++ {
		require.GreaterOrEqual(t, extractor.at[i].Sub(extractor.at[i-1]), pacing)
	}
	// nor after the last one
	require.Less(t, end.Sub(extractor.at[2]), pacing)
}

func TestRunBatchWithoutPacing(t *testing.T) {
	extractor := &fakeExtractor{}
	orchestrator := NewOrchestrator(extractor, Options{}, &telemetry.Recorder{})

	start := time.Now()
	_, err := orchestrator.Run(context.Background(), targets("q1", "q2", "q3"), nil)
	require.NoError(t, err)
	require.Less(t, time.Since(start), DefaultPacing)
	require.Equal(t, []string{"q1", "q2", "q3"}, extractor.calls)
}
