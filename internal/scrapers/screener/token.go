package screener

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadCsrfToken returns the content of the csrf-token meta tag or "".
func ReadCsrfToken(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("meta[name='csrf-token']").AttrOr("content", ""))
}
