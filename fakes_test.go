package scribd2pdf

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Fake Implementations
// ---------------------------------------------------------------------------

// minimalPDF only needs the header; structural checks are stubbed in tests.
var minimalPDF = []byte("%PDF-1.4\n%fake\n%%EOF\n")

var errBoom = errors.New("boom")

type fakeElement struct {
	session *fakeSession
	index   int
}

func (e *fakeElement) ScrollIntoView(ctx context.Context) error {
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolled = append(s.scrolled, e.index)
	if s.scrollErrAt >= 0 && e.index == s.scrollErrAt {
		return errBoom
	}
	return nil
}

// fakeSession records every call. Zero value fields mean success.
type fakeSession struct {
	mu sync.Mutex

	pages       int
	scrollErrAt int // -1 disables
	navErr      error
	navBlock    bool // Navigate waits for ctx
	elemErr     error
	evalErr     error
	evalResult  int
	printErr    error
	payload     *string // nil returns base64(minimalPDF)
	htmlDoc     string
	htmlErr     error
	panicOn     string
	closeErr    error

	navigated []string
	selectors []string
	scripts   []string
	printed   []PrintOptions
	scrolled  []int
	closes    int
}

func newFakeSession(pages int) *fakeSession {
	return &fakeSession{pages: pages, scrollErrAt: -1}
}

func (s *fakeSession) maybePanic(op string) {
	if s.panicOn == op {
		panic("fake panic in " + op)
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.navigated = append(s.navigated, url)
	block := s.navBlock
	err := s.navErr
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *fakeSession) PageElements(ctx context.Context, selector string) ([]PageElement, error) {
	s.maybePanic("elements")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectors = append(s.selectors, selector)
	if s.elemErr != nil {
		return nil, s.elemErr
	}
	elems := make([]PageElement, s.pages)
	for i := range elems {
		elems[i] = &fakeElement{session: s, index: i}
	}
	return elems, nil
}

func (s *fakeSession) Eval(ctx context.Context, js string) (int, error) {
	s.maybePanic("eval")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, js)
	return s.evalResult, s.evalErr
}

func (s *fakeSession) PrintToPDF(ctx context.Context, opts PrintOptions) (string, error) {
	s.maybePanic("print")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printed = append(s.printed, opts)
	if s.printErr != nil {
		return "", s.printErr
	}
	if s.payload != nil {
		return *s.payload, nil
	}
	return base64.StdEncoding.EncodeToString(minimalPDF), nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	return s.htmlDoc, s.htmlErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// fakeFactory hands out one prepared session, or fails.
type fakeFactory struct {
	mu       sync.Mutex
	session  *fakeSession
	err      error
	requests int
}

func (f *fakeFactory) NewSession(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeFactory) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// fakeValidator replaces pdfcpu in unit tests.
type fakeValidator struct {
	pages int
	err   error
}

func (v fakeValidator) Validate([]byte) (int, error) { return v.pages, v.err }

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func strPtr(s string) *string { return &s }
