package screener

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"
)

// xhrStub stands in for the browser's XMLHttpRequest, remembering what the
// unpatched open and send saw.
const xhrStub = `
var window = this;
var opened = [];
var sent = [];
function XMLHttpRequest() {}
XMLHttpRequest.prototype.open = function (method, url) {
	opened.push(method + " " + url);
};
XMLHttpRequest.prototype.send = function (body) {
	sent.push(body);
	return "sent";
};
`

func newInterceptorVM(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(xhrStub)
	require.NoError(t, err)
	_, err = vm.RunString(InterceptorScript)
	require.NoError(t, err)
	return vm
}

func request(t *testing.T, vm *goja.Runtime, method, url string, body any) goja.Value {
	t.Helper()
	require.NoError(t, vm.Set("reqMethod", method))
	require.NoError(t, vm.Set("reqUrl", url))
	require.NoError(t, vm.Set("reqBody", body))
	result, err := vm.RunString(`
		var xhr = new XMLHttpRequest();
		xhr.open(reqMethod, reqUrl);
		xhr.send(reqBody);
	`)
	require.NoError(t, err)
	return result
}

func TestInterceptorScript(t *testing.T) {
	table := []struct {
		name     string
		method   string
		url      string
		body     string
		captured any
	}{
		{
			name:     "screener post",
			method:   "POST",
			url:      "https://chartink.com/screener/process",
			body:     "scan_clause=%28+%7Bcash%7D+%29",
			captured: "scan_clause=%28+%7Bcash%7D+%29",
		},
		{
			name:     "lowercase method and relative url",
			method:   "post",
			url:      "/screener/process",
			body:     "scan_clause=x",
			captured: "scan_clause=x",
		},
		{
			name:     "get is ignored",
			method:   "GET",
			url:      "https://chartink.com/screener/process",
			body:     "scan_clause=x",
			captured: nil,
		},
		{
			name:     "other paths are ignored",
			method:   "POST",
			url:      "https://chartink.com/widget/process",
			body:     "scan_clause=x",
			captured: nil,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			vm := newInterceptorVM(t)
			require.Nil(t, vm.Get("_captured_scan_clause").Export())

			result := request(t, vm, row.method, row.url, row.body)
			require.Equal(t, "sent", result.Export())

			require.Equal(t, row.captured, vm.Get("_captured_scan_clause").Export())
			require.Equal(t, []any{row.method + " " + row.url}, vm.Get("opened").Export())
			require.Equal(t, []any{row.body}, vm.Get("sent").Export())
		})
	}
}

func TestCaptureExpr(t *testing.T) {
	vm := newInterceptorVM(t)
	read := func() any {
		v, err := vm.RunString("(" + captureExpr + ")()")
		require.NoError(t, err)
		return v.Export()
	}

	require.Nil(t, read())

	request(t, vm, "POST", "/screener/process", "scan_clause=x")
	require.Equal(t, "scan_clause=x", read())

	obj, err := vm.RunString(`({scan_clause: "( {cash} )"})`)
	require.NoError(t, err)
	request(t, vm, "POST", "/screener/process", obj)
	require.Equal(t, `{"scan_clause":"( {cash} )"}`, read())
}
