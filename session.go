package scribd2pdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session is one headless browser bound to a single conversion.
// Sessions are never shared between conversions.
type Session interface {
	// Navigate loads url and returns once the browser reports the load.
	Navigate(ctx context.Context, url string) error
	// PageElements returns elements matching selector in document order.
	PageElements(ctx context.Context, selector string) ([]PageElement, error)
	// Eval evaluates a JavaScript function expression and returns its
	// integer result.
	Eval(ctx context.Context, js string) (int, error)
	// PrintToPDF issues the protocol print command and returns the
	// base64-encoded payload as received.
	PrintToPDF(ctx context.Context, opts PrintOptions) (string, error)
	// HTML returns the current serialized document.
	HTML(ctx context.Context) (string, error)
	// Close releases the browser. Implementations may assume a single call.
	Close() error
}

// PageElement is a live reference to one page fragment.
type PageElement interface {
	ScrollIntoView(ctx context.Context) error
}

// SessionFactory produces fresh sessions.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (Session, error)

// NewSession calls f.
func (f SessionFactoryFunc) NewSession(ctx context.Context) (Session, error) {
	return f(ctx)
}

// managedSession guarantees the underlying session is closed exactly once,
// however many times Close is called.
type managedSession struct {
	Session
	once sync.Once
	err  error
}

func (m *managedSession) Close() error {
	m.once.Do(func() {
		m.err = m.Session.Close()
	})
	return m.err
}

// sessionManager opens sessions and navigates them to the viewer.
type sessionManager struct {
	factory SessionFactory
	timing  Timing
	sleep   sleepFunc
	log     *zap.Logger
}

// open acquires a session and navigates it to url. On any failure the
// session is already closed when open returns.
func (m *sessionManager) open(ctx context.Context, url string) (*managedSession, error) {
	raw, err := m.factory.NewSession(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: factory returned no session", ErrDriverUnavailable)
	}
	s := &managedSession{Session: raw}

	start := time.Now()
	navCtx, cancel := context.WithTimeout(ctx, m.timing.NavigationTimeout)
	err = s.Navigate(navCtx, url)
	cancel()
	if err != nil {
		m.closeQuietly(s)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response from %s within %v", ErrNavigationTimeout, url, m.timing.NavigationTimeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}
	m.log.Debug("navigated", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))

	if err := m.sleep(ctx, m.timing.NavigationSettle); err != nil {
		m.closeQuietly(s)
		return nil, err
	}
	return s, nil
}

func (m *sessionManager) closeQuietly(s *managedSession) {
	if err := s.Close(); err != nil {
		m.log.Warn("closing session", zap.Error(err))
	}
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the production sleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
