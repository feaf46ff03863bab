package screener

import (
	"context"
	"net/http"
	"sync"
)

type fakeBrowser struct {
	session *fakeSession
	openErr error
	opened  int
}

func (b *fakeBrowser) Open(ctx context.Context) (Session, error) {
	b.opened++
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.session, nil
}

type fakeSession struct {
	mu sync.Mutex

	// payload is what the interception slot holds, empty means null
	payload string
	// clickPayload is written to payload once an element is activated
	clickPayload string
	elements     map[string]*fakeElement
	html         string
	cookies      []*http.Cookie

	navigateErr error
	panicOnEval bool

	installed []string
	navigated []string
	evals     int
	closed    int
}

func (s *fakeSession) Install(ctx context.Context, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = append(s.installed, script)
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	return s.navigateErr
}

func (s *fakeSession) Eval(ctx context.Context, js string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicOnEval {
		panic("renderer crashed")
	}
	s.evals++
	return s.payload, s.payload != "", nil
}

func (s *fakeSession) Locate(ctx context.Context, xpath string) (Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[xpath]
	if !ok {
		return nil, ErrElementNotFound
	}
	el.session = s
	return el, nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	return s.html, nil
}

func (s *fakeSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	return s.cookies, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeElement struct {
	session  *fakeSession
	clickErr error
	forceErr error

	scrolled int
	clicked  int
	forced   int
}

func (e *fakeElement) activate() {
	e.session.mu.Lock()
	defer e.session.mu.Unlock()
	e.session.payload = e.session.clickPayload
}

func (e *fakeElement) ScrollIntoView(ctx context.Context) error {
	e.scrolled++
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.clicked++
	if e.clickErr != nil {
		return e.clickErr
	}
	e.activate()
	return nil
}

func (e *fakeElement) ForceClick(ctx context.Context) error {
	e.forced++
	if e.forceErr != nil {
		return e.forceErr
	}
	e.activate()
	return nil
}
