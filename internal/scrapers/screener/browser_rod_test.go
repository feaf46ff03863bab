package screener

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/stretchr/testify/require"
)

// recordingCDP answers devtools calls without a chrome behind it.
type recordingCDP struct {
	mu      sync.Mutex
	methods []string
	params  []any
}

func (c *recordingCDP) Event() <-chan *cdp.Event {
	return nil
}

func (c *recordingCDP) Call(_ context.Context, _, method string, params any) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = append(c.methods, method)
	c.params = append(c.params, params)
	if method == "Target.createBrowserContext" {
		return []byte(`{"browserContextId":"ctx-1"}`), nil
	}
	return []byte(`{}`), nil
}

type closeCounter struct {
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestRodSessionClose(t *testing.T) {
	cases := []struct {
		name    string
		remote  bool
		methods []string
	}{
		{
			name:    "remote chrome only disposes its context",
			remote:  true,
			methods: []string{"Target.createBrowserContext", "Target.disposeBrowserContext"},
		},
		{
			name:    "launched chrome is closed",
			remote:  false,
			methods: []string{"Browser.close"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client := &recordingCDP{}
			root := rod.New().ControlURL("").Client(client)

			browser, err := isolate(root, c.remote)
			require.NoError(t, err)

			conn := &closeCounter{}
			session := &rodSession{browser: browser, conn: conn}
			require.NoError(t, session.Close())

			require.Equal(t, c.methods, client.methods)
			require.Equal(t, 1, conn.closed)
		})
	}
}

func TestIsolateGivesEachSessionItsOwnContext(t *testing.T) {
	client := &recordingCDP{}
	root := rod.New().ControlURL("").Client(client)

	first, err := isolate(root, true)
	require.NoError(t, err)
	require.EqualValues(t, "ctx-1", first.BrowserContextID)
	require.Empty(t, root.BrowserContextID)

	session := &rodSession{browser: first}
	require.NoError(t, session.Close())

	last := client.params[len(client.params)-1]
	encoded, err := json.Marshal(last)
	require.NoError(t, err)
	require.JSONEq(t, `{"browserContextId":"ctx-1"}`, string(encoded))
}
