package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Stub browser driver
// ---------------------------------------------------------------------------

const stubPDF = "%PDF-1.4\n%stub\n%%EOF\n"

type stubElement struct{}

func (stubElement) ScrollIntoView(context.Context) error { return nil }

// stubSession answers every call with a successful, canned result.
type stubSession struct {
	printErr error
	closed   *counter
}

func (s *stubSession) Navigate(context.Context, string) error { return nil }

func (s *stubSession) PageElements(context.Context, string) ([]scribd2pdf.PageElement, error) {
	return []scribd2pdf.PageElement{stubElement{}, stubElement{}}, nil
}

func (s *stubSession) Eval(context.Context, string) (int, error) { return 0, nil }

func (s *stubSession) PrintToPDF(context.Context, scribd2pdf.PrintOptions) (string, error) {
	if s.printErr != nil {
		return "", s.printErr
	}
	return base64.StdEncoding.EncodeToString([]byte(stubPDF)), nil
}

func (s *stubSession) HTML(context.Context) (string, error) {
	return "<html><body><div class=\"page\">text</div></body></html>", nil
}

func (s *stubSession) Close() error {
	s.closed.inc()
	return nil
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// stubDriver records the environment it was built for and counts sessions.
type stubDriver struct {
	mu         sync.Mutex
	env        scribd2pdf.DriverEnvironment
	factoryErr error
	sessionErr error
	printErr   error
	opened     counter
	closed     counter
}

func (d *stubDriver) newFactory(env scribd2pdf.DriverEnvironment) (scribd2pdf.SessionFactory, error) {
	d.mu.Lock()
	d.env = env
	d.mu.Unlock()
	if d.factoryErr != nil {
		return nil, d.factoryErr
	}
	return scribd2pdf.SessionFactoryFunc(func(context.Context) (scribd2pdf.Session, error) {
		if d.sessionErr != nil {
			return nil, d.sessionErr
		}
		d.opened.inc()
		return &stubSession{printErr: d.printErr, closed: &d.closed}, nil
	}), nil
}

func (d *stubDriver) environment() scribd2pdf.DriverEnvironment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.env
}

// newTestEnv returns an Environment with captured output and a private
// variable table, so tests never read the process environment.
func newTestEnv(vars map[string]string, driver *stubDriver) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	if driver == nil {
		driver = &stubDriver{}
	}
	env := &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) },
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(k string) string { return vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewFactory: driver.newFactory,
	}
	return env, &stdout, &stderr
}

// fastConfig writes a config without pacing delays or pdfcpu checks.
func fastConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fast.yaml")
	content := `timing:
  navigationSettle: 0s
  scrollStep: 0s
  scrollSettle: 0s
  navigationTimeout: 5s
  renderTimeout: 5s
output:
  skipValidation: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

var errDriverBroken = fmt.Errorf("%w: driver broken", scribd2pdf.ErrDriverUnavailable)
