package screener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type RodOptions struct {
	// Bin is the chrome binary, empty lets the launcher find or download one.
	Bin string
	// RemoteURL connects to an already running chrome over its devtools
	// websocket instead of launching one.
	RemoteURL       string
	Headless        bool
	NoSandbox       bool
	Stealth         bool
	PageLoadTimeout time.Duration
}

// RodBrowser launches one chrome process per Open call. With RemoteURL set
// it instead gives each Open its own incognito context on the shared
// chrome, so no cookies cross queries and closing a session leaves the
// remote process running.
type RodBrowser struct {
	opts RodOptions
}

func NewRodBrowser(opts RodOptions) RodBrowser {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = DefaultPageLoadTimeout
	}
	return RodBrowser{opts: opts}
}

func (b RodBrowser) launch(ctx context.Context) (*launcher.Launcher, string, error) {
	lnch := launcher.New().
		Context(ctx).
		Headless(b.opts.Headless).
		NoSandbox(b.opts.NoSandbox).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-blink-features", "AutomationControlled")
	if b.opts.Bin != "" {
		lnch = lnch.Bin(b.opts.Bin)
	}
	u, err := lnch.Launch()
	if err != nil {
		return nil, "", fmt.Errorf("launch chrome: %w", err)
	}
	return lnch, u, nil
}

func (b RodBrowser) Open(ctx context.Context) (Session, error) {
	remote := b.opts.RemoteURL != ""
	controlUrl := b.opts.RemoteURL
	var lnch *launcher.Launcher
	if !remote {
		var err error
		lnch, controlUrl, err = b.launch(ctx)
		if err != nil {
			return nil, err
		}
	}

	session := &rodSession{launcher: lnch, pageLoadTimeout: b.opts.PageLoadTimeout}

	ws := &cdp.WebSocket{}
	err := ws.Connect(ctx, controlUrl, nil)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect chrome: %w", err), session.Close())
	}
	session.conn = ws

	root := rod.New().ControlURL("").Client(cdp.New().Start(ws))
	err = root.Connect()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect chrome: %w", err), session.Close())
	}

	session.browser, err = isolate(root, remote)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create browser context: %w", err), session.Close())
	}

	if b.opts.Stealth {
		session.page, err = stealth.Page(session.browser)
	} else {
		session.page, err = session.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create page: %w", err), session.Close())
	}
	return session, nil
}

// isolate returns the browser a session's page should live in. A chrome
// launched for this session is already private to it, a remote one gets a
// fresh incognito context.
func isolate(root *rod.Browser, remote bool) (*rod.Browser, error) {
	if !remote {
		return root, nil
	}
	return root.Incognito()
}

type rodSession struct {
	// browser is the launched chrome itself, or the incognito context on a
	// remote one. Closing it closes exactly what this session owns.
	browser         *rod.Browser
	conn            io.Closer
	launcher        *launcher.Launcher
	page            *rod.Page
	pageLoadTimeout time.Duration
}

func (s *rodSession) Install(ctx context.Context, script string) error {
	_, err := s.page.Context(ctx).EvalOnNewDocument(script)
	return err
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.pageLoadTimeout)
	defer page.CancelTimeout()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	err := page.Navigate(url)
	if err != nil {
		return err
	}
	wait()
	return page.GetContext().Err()
}

func (s *rodSession) Eval(ctx context.Context, js string) (string, bool, error) {
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

func (s *rodSession) Locate(ctx context.Context, xpath string) (Element, error) {
	elements, err := s.page.Context(ctx).ElementsX(xpath)
	if err != nil {
		return nil, err
	}
	for _, el := range elements {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		return rodElement{el: el}, nil
	}
	return nil, ErrElementNotFound
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *rodSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
	}
	return out, nil
}

// Close disposes the session's browser context (or the whole launched
// chrome), drops the devtools connection and, for a local chrome, kills
// the process and removes its profile directory.
func (s *rodSession) Close() error {
	var errs []error
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.conn != nil {
		s.conn.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e rodElement) ForceClick(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}
