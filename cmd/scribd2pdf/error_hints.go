package main

import (
	"context"
	"errors"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
	"github.com/alnah/go-scribd2pdf/internal/fileutil"
	"github.com/alnah/go-scribd2pdf/internal/hints"
)

// hintFor returns an actionable hint for err, or "" when none applies.
// cfg may be nil when the error happened before configuration resolved.
func hintFor(err error, cfg *config.Config) string {
	if err == nil {
		return ""
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	switch {
	case errors.Is(err, scribd2pdf.ErrInvalidURLFormat):
		return hints.ForInvalidURL()
	case errors.Is(err, scribd2pdf.ErrDriverUnavailable):
		return hints.ForDriverUnavailable(cfg.Browser.Strategy, cfg.Browser.NoSandbox)
	case errors.Is(err, scribd2pdf.ErrNavigationTimeout):
		return hints.ForNavigationTimeout()
	case errors.Is(err, scribd2pdf.ErrRenderFailure):
		if errors.Is(err, context.DeadlineExceeded) {
			return hints.ForRenderTimeout()
		}
		return ""
	case errors.Is(err, ErrListen):
		return hints.ForListenAddress()
	case errors.Is(err, fileutil.ErrNotDirectory):
		return hints.ForOutputDirectory()
	}
	return ""
}
