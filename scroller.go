package scribd2pdf

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Default page-fragment heuristic: every element whose class contains "page".
const (
	defaultScrollAttribute = "class"
	defaultScrollMarker    = "page"
)

var scrollAttributePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// scroller pages through lazily rendered fragments so their images load
// before the document is printed.
type scroller struct {
	attribute   string
	marker      string
	stepDelay   time.Duration
	settleDelay time.Duration
	sleep       sleepFunc
}

// validateScrollMarker checks that attr and marker form a safe selector.
func validateScrollMarker(attr, marker string) error {
	if !scrollAttributePattern.MatchString(attr) {
		return fmt.Errorf("%w: attribute %q", ErrInvalidMarker, attr)
	}
	if marker == "" || strings.ContainsAny(marker, "'\"\\\n") {
		return fmt.Errorf("%w: marker %q", ErrInvalidMarker, marker)
	}
	return nil
}

// selector returns the attribute-substring selector for page fragments.
func (s *scroller) selector() string {
	return fmt.Sprintf("[%s*='%s']", s.attribute, s.marker)
}

// run scrolls every fragment into view in document order, reporting
// (i+1)/total after each one. With no fragments nothing is reported and the
// pipeline continues; the render may then be incomplete. One settle delay
// follows in every case.
func (s *scroller) run(ctx context.Context, sess Session, rep Reporter) (int, error) {
	elems, err := sess.PageElements(ctx, s.selector())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: finding pages: %v", ErrScrollFailure, err)
	}

	total := len(elems)
	for i, el := range elems {
		if err := el.ScrollIntoView(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return i, ctxErr
			}
			return i, fmt.Errorf("%w: page %d of %d: %v", ErrScrollFailure, i+1, total, err)
		}
		if err := s.sleep(ctx, s.stepDelay); err != nil {
			return i, err
		}
		rep.Progress(float64(i+1) / float64(total))
	}

	if err := s.sleep(ctx, s.settleDelay); err != nil {
		return total, err
	}
	return total, nil
}
