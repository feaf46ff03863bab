package serviceutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyAccessToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name     string
		token    string
		header   string
		expected int
	}{
		{name: "disabled", token: "", header: "", expected: http.StatusNoContent},
		{name: "valid", token: "secret", header: "Bearer secret", expected: http.StatusNoContent},
		{name: "missing", token: "secret", header: "", expected: http.StatusUnauthorized},
		{name: "wrong", token: "secret", header: "Bearer nope", expected: http.StatusUnauthorized},
		{name: "prefix of token", token: "secret", header: "Bearer secre", expected: http.StatusUnauthorized},
		{name: "token with suffix", token: "secret", header: "Bearer secret2", expected: http.StatusUnauthorized},
		{name: "empty bearer", token: "secret", header: "Bearer ", expected: http.StatusUnauthorized},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			rec := httptest.NewRecorder()
			VerifyAccessToken(test.token)(ok).ServeHTTP(rec, req)
			require.Equal(t, test.expected, rec.Code)
		})
	}
}
