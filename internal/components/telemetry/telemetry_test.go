package telemetry

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	tel := NewScopedAPI("replay_client", NewScopedAPI("screener_engine", rec))
	tel.ReportBroken("replay.request", errors.New("500"))
	tel.ReportCount("rows", 3)

	broken := rec.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "screener_engine.replay_client.replay.request", broken[0].ID)
	require.True(t, rec.Has("count", "replay_client.rows"))
	require.False(t, rec.Has("warning", "replay.request"))
}

func TestSlogAPI(t *testing.T) {
	var buf bytes.Buffer
	tel := SlogAPI{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	tel.ReportWarning("engine.capture", "https://chartink.com/screener/a", errors.New("no clause"))
	require.Contains(t, buf.String(), "id=engine.capture")
	require.Contains(t, buf.String(), "p0=https://chartink.com/screener/a")
	require.Contains(t, buf.String(), `err="no clause"`)
}
