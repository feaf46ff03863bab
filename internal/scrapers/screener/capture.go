package screener

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

//go:embed interceptor.js
var InterceptorScript string

// captureExpr reads the slot written by InterceptorScript, non-string
// bodies (FormData, json objects) are stringified.
const captureExpr = `() => {
	const v = window._captured_scan_clause;
	if (v === null || v === undefined) {
		return null;
	}
	return typeof v === "string" ? v : JSON.stringify(v);
}`

var errNotCaptured = errors.New("payload not captured yet")

// CaptureLoop polls a session for the payload recorded by the interception
// script.
type CaptureLoop struct {
	Attempts int
	Interval time.Duration
}

// Poll returns the captured payload and true, or false once every attempt
// came back empty. Eval errors count as empty attempts. The only error
// returned is ctx's.
func (l CaptureLoop) Poll(ctx context.Context, session Session) (string, bool, error) {
	attempts := l.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var captured string
	op := func() error {
		value, ok, err := session.Eval(ctx, captureExpr)
		if err != nil || !ok || value == "" {
			return errNotCaptured
		}
		captured = value
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.Interval), uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(op, policy)
	if err == nil {
		return captured, true, nil
	}
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	return "", false, nil
}
