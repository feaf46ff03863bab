package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedSession struct {
	fakeSession
	results []evalResult
}

type evalResult struct {
	value string
	ok    bool
	err   error
}

func (s *scriptedSession) Eval(ctx context.Context, js string) (string, bool, error) {
	s.evals++
	if len(s.results) == 0 {
		return "", false, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.value, r.ok, r.err
}

func TestCaptureLoop(t *testing.T) {
	table := []struct {
		name     string
		results  []evalResult
		attempts int
		expected string
		ok       bool
		evals    int
	}{
		{
			name:     "immediate",
			results:  []evalResult{{value: "scan_clause=a", ok: true}},
			attempts: 10,
			expected: "scan_clause=a",
			ok:       true,
			evals:    1,
		},
		{
			name: "after errors and nulls",
			results: []evalResult{
				{err: errors.New("execution context was destroyed")},
				{ok: false},
				{value: "scan_clause=b", ok: true},
			},
			attempts: 10,
			expected: "scan_clause=b",
			ok:       true,
			evals:    3,
		},
		{
			name:     "exhausted",
			attempts: 4,
			ok:       false,
			evals:    4,
		},
		{
			name:     "too late",
			results:  []evalResult{{}, {}, {value: "scan_clause=c", ok: true}},
			attempts: 2,
			ok:       false,
			evals:    2,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			session := &scriptedSession{results: row.results}
			loop := CaptureLoop{Attempts: row.attempts, Interval: time.Millisecond}

			value, ok, err := loop.Poll(context.Background(), session)
			require.Nil(t, err)
			require.Equal(t, row.ok, ok)
			require.Equal(t, row.expected, value)
			require.Equal(t, row.evals, session.evals)
		})
	}
}

func TestCaptureLoopCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
	defer cancel()

	session := &scriptedSession{}
	loop := CaptureLoop{Attempts: 1000, Interval: time.Millisecond * 5}

	_, ok, err := loop.Poll(ctx, session)
	require.False(t, ok)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, session.evals, 1000)
}
