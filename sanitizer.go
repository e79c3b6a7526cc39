package scribd2pdf

import (
	"context"
	"fmt"

	"github.com/alnah/go-scribd2pdf/internal/sanitize"
)

// sanitizer strips viewer chrome from the live document and injects the
// print stylesheet.
type sanitizer struct {
	rules  []sanitize.Rule
	css    string
	script string
}

// newSanitizer compiles rules once so every conversion evaluates the same
// script.
func newSanitizer(rules []sanitize.Rule, css string) (*sanitizer, error) {
	script, err := sanitize.Script(rules, css)
	if err != nil {
		return nil, err
	}
	return &sanitizer{rules: rules, css: css, script: script}, nil
}

// run applies the rules to the live page and returns the number of changed
// elements.
func (s *sanitizer) run(ctx context.Context, sess Session) (int, error) {
	changed, err := sess.Eval(ctx, s.script)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %v", ErrSanitizeFailure, err)
	}
	return changed, nil
}

// snapshot returns the page HTML with the same rules applied offline. The
// live page is already clean; the second pass covers nodes the viewer
// re-inserted after the script ran.
func (s *sanitizer) snapshot(ctx context.Context, sess Session) ([]byte, error) {
	doc, err := sess.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading page HTML: %v", ErrSanitizeFailure, err)
	}
	cleaned, _, err := sanitize.CleanHTML([]byte(doc), s.rules, s.css)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSanitizeFailure, err)
	}
	return cleaned, nil
}
