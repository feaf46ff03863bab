package screener

import (
	"context"
	"net/http"
)

// Browser hands out isolated browser sessions, every session owns its own
// browser process (or remote connection) and cookie store.
//
// note: fault injection point
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a single page inside a browser instance. Close must release
// the whole instance, not just the page.
type Session interface {
	// Install registers a script to run on every new document before any
	// page script.
	Install(ctx context.Context, script string) error
	// Navigate loads url, returning once DOMContentLoaded has fired.
	Navigate(ctx context.Context, url string) error
	// Eval evaluates a javascript function expression in the page, ok is
	// false when the result is null or undefined.
	Eval(ctx context.Context, js string) (value string, ok bool, err error)
	// Locate returns the first visible element matching the xpath or
	// ErrElementNotFound.
	Locate(ctx context.Context, xpath string) (Element, error)
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close() error
}

type Element interface {
	ScrollIntoView(ctx context.Context) error
	// Click dispatches a real mouse click at the element.
	Click(ctx context.Context) error
	// ForceClick calls the element's click() from script, which works even
	// when the element is covered.
	ForceClick(ctx context.Context) error
}
