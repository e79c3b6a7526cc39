package scribd2pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-scribd2pdf/internal/sanitize"
)

// Compile-time interface implementation checks.
var (
	_ Session        = (*managedSession)(nil)
	_ SessionFactory = SessionFactoryFunc(nil)
	_ Session        = (*rodSession)(nil)
	_ PageElement    = (*rodElement)(nil)
	_ SessionFactory = (*FixedPathFactory)(nil)
	_ SessionFactory = (*DynamicFactory)(nil)
)

// Converter runs the capture pipeline: open a session on the embed viewer,
// scroll every page into view, strip the viewer chrome and print to PDF.
// A Converter holds no browser between calls and is safe for concurrent use;
// every Convert call gets its own session from the factory.
type Converter struct {
	cfg       converterConfig
	sleep     sleepFunc
	validator pdfValidator
	sessions  *sessionManager
	scroller  *scroller
	sanitizer *sanitizer
	emitter   *emitter
}

// NewConverter creates a Converter that draws sessions from factory.
// Returns an error if an option carries invalid timing, margins, scroll
// marker or sanitizer rules.
func NewConverter(factory SessionFactory, opts ...Option) (*Converter, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil session factory", ErrDriverUnavailable)
	}

	c := &Converter{
		cfg:   defaultConverterConfig(),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.cfg.timing.Validate(); err != nil {
		return nil, err
	}
	if err := c.cfg.print.Margins.Validate(); err != nil {
		return nil, err
	}
	if err := validateScrollMarker(c.cfg.scrollAttr, c.cfg.scrollMarker); err != nil {
		return nil, err
	}

	san, err := newSanitizer(c.cfg.rules, c.cfg.printCSS)
	if err != nil {
		return nil, fmt.Errorf("compiling sanitizer rules: %w", err)
	}
	c.sanitizer = san
	c.cfg.logger.Debug("sanitizer rules", zap.String("rules", sanitize.Describe(c.cfg.rules)))

	if c.validator == nil && c.cfg.validatePDF {
		c.validator = pdfcpuValidator{}
	}
	if !c.cfg.validatePDF {
		c.validator = nil
	}

	c.sessions = &sessionManager{
		factory: factory,
		timing:  c.cfg.timing,
		sleep:   c.sleep,
		log:     c.cfg.logger,
	}
	c.scroller = &scroller{
		attribute:   c.cfg.scrollAttr,
		marker:      c.cfg.scrollMarker,
		stepDelay:   c.cfg.timing.ScrollStep,
		settleDelay: c.cfg.timing.ScrollSettle,
		sleep:       c.sleep,
	}
	c.emitter = &emitter{
		timeout:   c.cfg.timing.RenderTimeout,
		validator: c.validator,
	}
	return c, nil
}

// Convert renders the document named by input.URL. The session opened for
// the call is closed exactly once before Convert returns, on every path.
// On failure the reporter is reset if it implements Resetter.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *RenderResult, err error) {
	start := time.Now()
	rep := input.Reporter
	if rep == nil {
		rep = NopReporter{}
	}
	log := c.cfg.logger

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		if err != nil {
			result = nil
			if rs, ok := rep.(Resetter); ok {
				rs.Reset()
			}
			log.Warn("conversion failed", zap.String("url", input.URL), zap.Error(err))
		}
	}()

	ref, err := ParseReference(input.URL)
	if err != nil {
		return nil, err
	}
	printOpts := c.cfg.print
	if input.Print != nil {
		if err := input.Print.Margins.Validate(); err != nil {
			return nil, err
		}
		printOpts = *input.Print
	}
	log = log.With(zap.Uint64("doc_id", ref.ID()), zap.String("embed_url", ref.EmbedURL()))

	rep.Stage(StageLaunching)
	sess, err := c.sessions.open(ctx, ref.EmbedURL())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("closing session", zap.Error(cerr))
		}
	}()

	rep.Stage(StageScrolling)
	fragments, err := c.scroller.run(ctx, sess, rep)
	if err != nil {
		return nil, err
	}
	if fragments == 0 {
		log.Warn("no page fragments found, render may be incomplete")
	}

	rep.Stage(StageSanitizing)
	changed, err := c.sanitizer.run(ctx, sess)
	if err != nil {
		return nil, err
	}
	log.Debug("sanitized", zap.Int("fragments", fragments), zap.Int("changed", changed))

	res := &RenderResult{Reference: ref}
	if input.CaptureHTML {
		res.HTML, err = c.sanitizer.snapshot(ctx, sess)
		if err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rep.Stage(StagePrinting)
	pdf, pages, err := c.emitter.emit(ctx, sess, RenderRequest{URL: ref.EmbedURL(), Print: printOpts})
	if err != nil {
		return nil, err
	}

	res.PDF = pdf
	res.Pages = pages
	res.Duration = time.Since(start)
	rep.Stage(StageDone)

	log.Info("converted",
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", pages),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// IsInputError reports whether err was caused by the caller's input rather
// than the browser or the document.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidURLFormat) || errors.Is(err, ErrInvalidMargin)
}

// withSleep replaces the pacing function (tests).
func withSleep(fn sleepFunc) Option {
	return func(c *Converter) {
		c.sleep = fn
	}
}

// withValidator replaces the PDF structural check (tests).
func withValidator(v pdfValidator) Option {
	return func(c *Converter) {
		c.validator = v
	}
}
