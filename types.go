package scribd2pdf

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-scribd2pdf/internal/sanitize"
)

// Margins are page margins in inches.
type Margins struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// maxMarginInches bounds margins to something a page can hold.
const maxMarginInches = 3.0

// Validate checks that every margin is within 0 and 3 inches.
func (m Margins) Validate() error {
	for _, side := range []struct {
		name  string
		value float64
	}{{"top", m.Top}, {"bottom", m.Bottom}, {"left", m.Left}, {"right", m.Right}} {
		if side.value < 0 || side.value > maxMarginInches {
			return fmt.Errorf("%w: %s %.2f (must be between 0 and %.1f inches)", ErrInvalidMargin, side.name, side.value, maxMarginInches)
		}
	}
	return nil
}

// PrintOptions are the parameters of the print-to-PDF command.
type PrintOptions struct {
	PrintBackground   bool
	PreferCSSPageSize bool
	Margins           Margins
}

// DefaultPrintOptions prints backgrounds, honors the document's CSS page
// size and uses zero margins.
func DefaultPrintOptions() PrintOptions {
	return PrintOptions{PrintBackground: true, PreferCSSPageSize: true}
}

// RenderRequest is what the emitter sends to a session.
type RenderRequest struct {
	URL   string
	Print PrintOptions
}

// Timing holds the fixed waits of the pipeline. The viewer exposes no
// page-ready signal, so pacing stands in for one.
type Timing struct {
	NavigationSettle  time.Duration // wait after navigation returns
	ScrollStep        time.Duration // wait after each page is scrolled into view
	ScrollSettle      time.Duration // wait after the last page
	NavigationTimeout time.Duration // bound on the navigation call
	RenderTimeout     time.Duration // bound on the print call
}

// Default pipeline timing.
const (
	defaultNavigationSettle  = 3 * time.Second
	defaultScrollStep        = 400 * time.Millisecond
	defaultScrollSettle      = 1 * time.Second
	defaultNavigationTimeout = 30 * time.Second
	defaultRenderTimeout     = 60 * time.Second
)

// DefaultTiming returns the pacing used by the document viewer.
func DefaultTiming() Timing {
	return Timing{
		NavigationSettle:  defaultNavigationSettle,
		ScrollStep:        defaultScrollStep,
		ScrollSettle:      defaultScrollSettle,
		NavigationTimeout: defaultNavigationTimeout,
		RenderTimeout:     defaultRenderTimeout,
	}
}

// Validate rejects negative waits and non-positive timeouts.
func (t Timing) Validate() error {
	if t.NavigationSettle < 0 || t.ScrollStep < 0 || t.ScrollSettle < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidTiming)
	}
	if t.NavigationTimeout <= 0 {
		return fmt.Errorf("%w: navigation timeout must be positive, got %v", ErrInvalidTiming, t.NavigationTimeout)
	}
	if t.RenderTimeout <= 0 {
		return fmt.Errorf("%w: render timeout must be positive, got %v", ErrInvalidTiming, t.RenderTimeout)
	}
	return nil
}

// Input is one conversion request.
type Input struct {
	URL         string        // document page URL
	Reporter    Reporter      // optional progress sink
	Print       *PrintOptions // nil uses the converter's print options
	CaptureHTML bool          // also return the sanitized page HTML
}

// RenderResult is the outcome of a successful conversion.
type RenderResult struct {
	PDF       []byte
	Reference DocumentReference
	Pages     int    // 0 when structural validation is disabled
	HTML      []byte // set when Input.CaptureHTML is true
	Duration  time.Duration
}

// Filename returns the suggested file name for the PDF.
func (r *RenderResult) Filename() string { return r.Reference.Filename() }

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timing       Timing
	print        PrintOptions
	scrollAttr   string
	scrollMarker string
	rules        []sanitize.Rule
	printCSS     string
	validatePDF  bool
	logger       *zap.Logger
}

func defaultConverterConfig() converterConfig {
	return converterConfig{
		timing:       DefaultTiming(),
		print:        DefaultPrintOptions(),
		scrollAttr:   defaultScrollAttribute,
		scrollMarker: defaultScrollMarker,
		rules:        sanitize.DefaultRules(),
		printCSS:     sanitize.PrintCSS,
		validatePDF:  true,
		logger:       zap.NewNop(),
	}
}

// WithTiming replaces all pipeline waits and timeouts. Validated by NewConverter.
func WithTiming(t Timing) Option {
	return func(c *Converter) {
		c.cfg.timing = t
	}
}

// WithScrollDelay sets the wait after each page is scrolled into view.
func WithScrollDelay(d time.Duration) Option {
	return func(c *Converter) {
		c.cfg.timing.ScrollStep = d
	}
}

// WithNavigationTimeout bounds the navigation call.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithNavigationTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("scribd2pdf: WithNavigationTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timing.NavigationTimeout = d
	}
}

// WithRenderTimeout bounds the print call.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithRenderTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("scribd2pdf: WithRenderTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timing.RenderTimeout = d
	}
}

// WithMargins overrides the default zero margins.
func WithMargins(m Margins) Option {
	return func(c *Converter) {
		c.cfg.print.Margins = m
	}
}

// WithPrintOptions replaces the print parameters.
func WithPrintOptions(p PrintOptions) Option {
	return func(c *Converter) {
		c.cfg.print = p
	}
}

// WithScrollMarker changes the page-fragment heuristic: elements whose attr
// value contains marker are scrolled through.
func WithScrollMarker(attr, marker string) Option {
	return func(c *Converter) {
		c.cfg.scrollAttr = attr
		c.cfg.scrollMarker = marker
	}
}

// WithRules replaces the sanitizer rules and print stylesheet.
func WithRules(rules []sanitize.Rule, printCSS string) Option {
	return func(c *Converter) {
		c.cfg.rules = rules
		c.cfg.printCSS = printCSS
	}
}

// WithPDFValidation toggles the structural check of the printed PDF.
func WithPDFValidation(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.validatePDF = enabled
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.cfg.logger = l
		}
	}
}
