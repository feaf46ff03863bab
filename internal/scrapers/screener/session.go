package screener

import (
	"net/http"
	"net/url"
)

// Bridge copies browser cookies into jar by name and value, scoped to the
// host of target. Existing cookies with the same name are replaced.
func Bridge(cookies []*http.Cookie, jar http.CookieJar, target *url.URL) int {
	bridged := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		bridged = append(bridged, &http.Cookie{
			Name:  c.Name,
			Value: c.Value,
			Path:  "/",
		})
	}
	if len(bridged) > 0 {
		jar.SetCookies(target, bridged)
	}
	return len(bridged)
}
