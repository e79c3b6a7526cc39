package scribd2pdf

// Notes:
// - Converter is tested against fakeSession/fakeFactory so every stage can
//   fail on demand without a browser.
// - Delays are recorded by sleepRecorder instead of elapsing.
// - The pdfcpu check is replaced by fakeValidator via withValidator; the
//   real validator runs in the integration tests.

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alnah/go-scribd2pdf/internal/sanitize"
)

const sampleURL = "https://www.scribd.com/document/99887766/Sample"

func newTestConverter(t *testing.T, f SessionFactory, opts ...Option) (*Converter, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	base := []Option{withSleep(rec.sleep), withValidator(fakeValidator{pages: 3})}
	c, err := NewConverter(f, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error: %v", err)
	}
	return c, rec
}

// ---------------------------------------------------------------------------
// Happy path
// ---------------------------------------------------------------------------

func TestConvert_EndToEnd(t *testing.T) {
	t.Parallel()

	sess := newFakeSession(3)
	sess.evalResult = 5
	c, rec := newTestConverter(t, &fakeFactory{session: sess})
	rep := &RecordingReporter{}

	res, err := c.Convert(context.Background(), Input{URL: sampleURL, Reporter: rep})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	if res.Reference.EmbedURL() != "https://www.scribd.com/embeds/99887766/content" {
		t.Errorf("embed URL = %q", res.Reference.EmbedURL())
	}
	if res.Filename() != "scribd_doc_99887766.pdf" {
		t.Errorf("filename = %q", res.Filename())
	}
	if string(res.PDF) != string(minimalPDF) {
		t.Errorf("PDF = %q", res.PDF)
	}
	if res.Pages != 3 {
		t.Errorf("pages = %d, want 3", res.Pages)
	}
	if res.HTML != nil {
		t.Error("HTML captured without CaptureHTML")
	}

	if sess.navigated[0] != res.Reference.EmbedURL() {
		t.Errorf("navigated to %v", sess.navigated)
	}
	if len(sess.scripts) != 1 || !strings.Contains(sess.scripts[0], sanitize.CookieNoticeText) {
		t.Error("sanitizer script not evaluated")
	}
	if sess.closeCount() != 1 {
		t.Errorf("close count = %d, want 1", sess.closeCount())
	}

	wantStages := []string{StageLaunching, StageScrolling, StageSanitizing, StagePrinting, StageDone}
	if got := rep.Stages(); !reflect.DeepEqual(got, wantStages) {
		t.Errorf("stages = %v, want %v", got, wantStages)
	}
	if f := rep.Fractions(); len(f) != 3 || f[2] != 1.0 {
		t.Errorf("fractions = %v", f)
	}

	// navigation settle, three scroll steps, scroll settle
	want := []time.Duration{3 * time.Second, 400 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond, time.Second}
	if got := rec.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("delays = %v, want %v", got, want)
	}
}

func TestConvert_CaptureHTML(t *testing.T) {
	t.Parallel()

	sess := newFakeSession(1)
	sess.htmlDoc = `<html><head></head><body><div class="toolbar_top">x</div><div class="outer_page">p</div></body></html>`
	c, _ := newTestConverter(t, &fakeFactory{session: sess})

	res, err := c.Convert(context.Background(), Input{URL: sampleURL, CaptureHTML: true})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	got := string(res.HTML)
	if strings.Contains(got, `class="toolbar_top"`) {
		t.Error("snapshot not sanitized")
	}
	if !strings.Contains(got, "outer_page") || !strings.Contains(got, sanitize.PrintStyleID) {
		t.Errorf("unexpected snapshot: %s", got)
	}
}

func TestConvert_PrintOptions(t *testing.T) {
	t.Parallel()

	t.Run("converter margins", func(t *testing.T) {
		t.Parallel()
		sess := newFakeSession(0)
		c, _ := newTestConverter(t, &fakeFactory{session: sess}, WithMargins(Margins{Top: 0.5}))
		if _, err := c.Convert(context.Background(), Input{URL: sampleURL}); err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		if sess.printed[0].Margins.Top != 0.5 || !sess.printed[0].PrintBackground {
			t.Errorf("printed with %+v", sess.printed[0])
		}
	})

	t.Run("per input override", func(t *testing.T) {
		t.Parallel()
		sess := newFakeSession(0)
		c, _ := newTestConverter(t, &fakeFactory{session: sess})
		opts := PrintOptions{PrintBackground: false, Margins: Margins{Left: 1}}
		if _, err := c.Convert(context.Background(), Input{URL: sampleURL, Print: &opts}); err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		if sess.printed[0] != opts {
			t.Errorf("printed with %+v, want %+v", sess.printed[0], opts)
		}
	})

	t.Run("invalid override rejected before launch", func(t *testing.T) {
		t.Parallel()
		f := &fakeFactory{session: newFakeSession(0)}
		c, _ := newTestConverter(t, f)
		_, err := c.Convert(context.Background(), Input{URL: sampleURL, Print: &PrintOptions{Margins: Margins{Top: -1}}})
		if !errors.Is(err, ErrInvalidMargin) {
			t.Errorf("Convert() error = %v, want ErrInvalidMargin", err)
		}
		if f.requestCount() != 0 {
			t.Error("session opened for invalid input")
		}
	})
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestConvert_InvalidURLOpensNoSession(t *testing.T) {
	t.Parallel()

	f := &fakeFactory{session: newFakeSession(1)}
	c, _ := newTestConverter(t, f)
	rep := &RecordingReporter{}

	_, err := c.Convert(context.Background(), Input{URL: "https://example.com/not-a-document", Reporter: rep})
	if !errors.Is(err, ErrInvalidURLFormat) {
		t.Fatalf("Convert() error = %v, want ErrInvalidURLFormat", err)
	}
	if f.requestCount() != 0 {
		t.Errorf("factory called %d times, want 0", f.requestCount())
	}
	if stages := rep.Stages(); len(stages) != 0 {
		t.Errorf("stages reported for invalid URL: %v", stages)
	}
}

func TestConvert_ClosesExactlyOnceOnEveryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(*fakeSession)
		wantErr error
	}{
		{name: "success", setup: func(*fakeSession) {}},
		{name: "scroll failure", setup: func(s *fakeSession) { s.scrollErrAt = 0 }, wantErr: ErrScrollFailure},
		{name: "sanitize failure", setup: func(s *fakeSession) { s.evalErr = errBoom }, wantErr: ErrSanitizeFailure},
		{name: "print failure", setup: func(s *fakeSession) { s.printErr = errBoom }, wantErr: ErrRenderFailure},
		{name: "empty payload", setup: func(s *fakeSession) { s.payload = strPtr("") }, wantErr: ErrRenderFailure},
		{name: "navigation failure", setup: func(s *fakeSession) { s.navErr = errBoom }, wantErr: ErrNavigationTimeout},
		{name: "close error after success", setup: func(s *fakeSession) { s.closeErr = errBoom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := newFakeSession(2)
			tt.setup(sess)
			c, _ := newTestConverter(t, &fakeFactory{session: sess})
			rep := &RecordingReporter{}

			res, err := c.Convert(context.Background(), Input{URL: sampleURL, Reporter: rep})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Convert() error = %v, want %v", err, tt.wantErr)
				}
				if res != nil {
					t.Error("Convert() returned a result alongside an error")
				}
				events := rep.Events()
				if len(events) == 0 || !events[len(events)-1].Reset {
					t.Errorf("reporter not reset after failure: %+v", events)
				}
			} else if err != nil {
				t.Fatalf("Convert() unexpected error: %v", err)
			}

			if n := sess.closeCount(); n != 1 {
				t.Errorf("session closed %d times, want 1", n)
			}
		})
	}
}

func TestConvert_DriverUnavailable(t *testing.T) {
	t.Parallel()

	c, _ := newTestConverter(t, &fakeFactory{err: errBoom})
	_, err := c.Convert(context.Background(), Input{URL: sampleURL})
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Errorf("Convert() error = %v, want ErrDriverUnavailable", err)
	}
}

func TestConvert_RecoversPanicAfterClose(t *testing.T) {
	t.Parallel()

	for _, op := range []string{"elements", "eval", "print"} {
		t.Run(op, func(t *testing.T) {
			t.Parallel()

			sess := newFakeSession(1)
			sess.panicOn = op
			c, _ := newTestConverter(t, &fakeFactory{session: sess})

			_, err := c.Convert(context.Background(), Input{URL: sampleURL})
			if !errors.Is(err, ErrInternal) {
				t.Fatalf("Convert() error = %v, want ErrInternal", err)
			}
			if !strings.Contains(err.Error(), "fake panic in "+op) {
				t.Errorf("error lost panic value: %v", err)
			}
			if sess.closeCount() != 1 {
				t.Errorf("session closed %d times, want 1", sess.closeCount())
			}
		})
	}
}

func TestConvert_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := newFakeSession(2)
	c, _ := newTestConverter(t, &fakeFactory{session: sess})

	_, err := c.Convert(ctx, Input{URL: sampleURL})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
	if sess.closeCount() != 1 {
		t.Errorf("session closed %d times, want 1", sess.closeCount())
	}
}

func TestConvert_LogsOutcome(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sess := newFakeSession(0)
	c, _ := newTestConverter(t, &fakeFactory{session: sess}, WithLogger(zap.New(core)))

	if _, err := c.Convert(context.Background(), Input{URL: sampleURL}); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	if logs.FilterMessage("no page fragments found, render may be incomplete").Len() != 1 {
		t.Error("expected warning for empty fragment list")
	}
	converted := logs.FilterMessage("converted").All()
	if len(converted) != 1 {
		t.Fatalf("got %d converted entries, want 1", len(converted))
	}
	if converted[0].ContextMap()["doc_id"] != uint64(99887766) {
		t.Errorf("doc_id field = %v", converted[0].ContextMap()["doc_id"])
	}
	rules := logs.FilterMessage("sanitizer rules").All()
	if len(rules) != 1 || !strings.Contains(rules[0].ContextMap()["rules"].(string), "toolbar-top:remove") {
		t.Errorf("sanitizer rules entry = %v", rules)
	}
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewConverter_Validation(t *testing.T) {
	t.Parallel()

	f := &fakeFactory{session: newFakeSession(0)}
	tests := []struct {
		name    string
		factory SessionFactory
		opts    []Option
		wantErr error
	}{
		{name: "nil factory", factory: nil, wantErr: ErrDriverUnavailable},
		{name: "negative delay", factory: f, opts: []Option{WithScrollDelay(-time.Second)}, wantErr: ErrInvalidTiming},
		{name: "zero timeouts", factory: f, opts: []Option{WithTiming(Timing{})}, wantErr: ErrInvalidTiming},
		{name: "margin too large", factory: f, opts: []Option{WithMargins(Margins{Right: 4})}, wantErr: ErrInvalidMargin},
		{name: "bad marker", factory: f, opts: []Option{WithScrollMarker("class", "")}, wantErr: ErrInvalidMarker},
		{name: "bad rule", factory: f, opts: []Option{WithRules([]sanitize.Rule{{Strategy: sanitize.ExactSelector, Selector: "div p"}}, "")}, wantErr: sanitize.ErrInvalidSelector},
		{name: "defaults", factory: f},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewConverter(tt.factory, tt.opts...)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewConverter() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewConverter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewConverter_ValidationToggle(t *testing.T) {
	t.Parallel()

	f := &fakeFactory{session: newFakeSession(0)}
	on, err := NewConverter(f)
	if err != nil {
		t.Fatalf("NewConverter() error: %v", err)
	}
	if _, ok := on.emitter.validator.(pdfcpuValidator); !ok {
		t.Errorf("default validator = %T, want pdfcpuValidator", on.emitter.validator)
	}

	off, err := NewConverter(f, WithPDFValidation(false))
	if err != nil {
		t.Fatalf("NewConverter() error: %v", err)
	}
	if off.emitter.validator != nil {
		t.Errorf("validator = %T, want nil", off.emitter.validator)
	}
}

func TestTimeoutOptionsPanicOnNonPositive(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"navigation": func() { WithNavigationTimeout(0) },
		"render":     func() { WithRenderTimeout(-time.Second) },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestIsInputError(t *testing.T) {
	t.Parallel()

	if !IsInputError(ErrInvalidURLFormat) || !IsInputError(ErrInvalidMargin) {
		t.Error("input errors not recognized")
	}
	if IsInputError(ErrRenderFailure) || IsInputError(nil) {
		t.Error("non-input error classified as input error")
	}
}
