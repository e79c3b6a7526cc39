package scribd2pdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-scribd2pdf/internal/process"
)

// cleanupTimeout bounds the wait for a launched browser to exit.
const cleanupTimeout = 5 * time.Second

// printToPDFMethod is the protocol command issued by PrintToPDF.
const printToPDFMethod = "Page.printToPDF"

// rodSession drives one page through go-rod. When the session launched its
// own browser, launcher is set and Close tears the process down; otherwise
// browser is an incognito context on a shared connection.
type rodSession struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	log      *zap.Logger
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *rodSession) PageElements(ctx context.Context, selector string) ([]PageElement, error) {
	found, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	elems := make([]PageElement, 0, len(found))
	for _, el := range found {
		elems = append(elems, &rodElement{el: el})
	}
	return elems, nil
}

func (s *rodSession) Eval(ctx context.Context, js string) (int, error) {
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// PrintToPDF sends the raw protocol command so the base64 payload reaches
// the emitter unchanged.
func (s *rodSession) PrintToPDF(ctx context.Context, opts PrintOptions) (string, error) {
	m := opts.Margins
	params := proto.PagePrintToPDF{
		PrintBackground:   opts.PrintBackground,
		PreferCSSPageSize: opts.PreferCSSPageSize,
		MarginTop:         &m.Top,
		MarginBottom:      &m.Bottom,
		MarginLeft:        &m.Left,
		MarginRight:       &m.Right,
	}

	raw, err := s.page.Call(ctx, string(s.page.SessionID), printToPDFMethod, params)
	if err != nil {
		return "", err
	}

	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", printToPDFMethod, err)
	}
	return resp.Data, nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Close releases the page, then the browser or incognito context. A
// launched browser that refuses to close is killed with its process group,
// and its user data directory is removed.
func (s *rodSession) Close() error {
	var errs []error

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.log.Debug("closing page", zap.Error(err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
			if s.launcher != nil {
				process.KillProcessGroup(s.launcher.PID())
			}
		}
	}
	if s.launcher != nil {
		s.cleanupLauncher()
	}

	return errors.Join(errs...)
}

// cleanupLauncher waits for the browser process to exit and removes its
// profile directory, killing the process group if it lingers.
func (s *rodSession) cleanupLauncher() {
	done := make(chan struct{})
	go func() {
		s.launcher.Cleanup()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(cleanupTimeout):
	}

	s.log.Warn("browser did not exit, killing process group", zap.Int("pid", s.launcher.PID()))
	process.KillProcessGroup(s.launcher.PID())
	select {
	case <-done:
	case <-time.After(cleanupTimeout):
		s.log.Error("browser process still running after kill", zap.Int("pid", s.launcher.PID()))
	}
}

// rodElement is one page fragment.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}
