// Package sanitize describes the DOM cleanup applied to the document viewer
// before printing. The same ordered rules are compiled into a script for the
// live page (Script) and applied to parsed HTML snapshots (ApplyHTML).
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for rule validation.
var (
	ErrInvalidRule     = errors.New("invalid sanitize rule")
	ErrInvalidSelector = errors.New("invalid selector")
)

// Strategy selects how a rule locates its targets.
type Strategy int

const (
	// ExactSelector matches a single class (".name") or id ("#name").
	ExactSelector Strategy = iota
	// SubstringMarker matches elements whose attribute value contains Marker.
	SubstringMarker
	// TextMatch matches every Tags element whose text contains Text.
	TextMatch
)

// String returns the strategy name used in scripts and logs.
func (s Strategy) String() string {
	switch s {
	case ExactSelector:
		return "exact"
	case SubstringMarker:
		return "substring"
	case TextMatch:
		return "text"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Action is the mutation applied to every matched element.
type Action int

const (
	// Remove detaches the element from the document.
	Remove Action = iota
	// Hide forces display:none on the element.
	Hide
	// ResetClass empties the class attribute, keeping the element.
	ResetClass
)

// String returns the action name used in scripts and logs.
func (a Action) String() string {
	switch a {
	case Remove:
		return "remove"
	case Hide:
		return "hide"
	case ResetClass:
		return "reset-class"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Rule is one cleanup step. Rules run in slice order.
type Rule struct {
	Name      string
	Strategy  Strategy
	Selector  string   // ExactSelector: ".class" or "#id"
	Attribute string   // SubstringMarker: attribute to inspect
	Marker    string   // SubstringMarker: substring to find
	Tags      []string // TextMatch: candidate element names
	Text      string   // TextMatch: substring of the element text
	Guard     string   // TextMatch: skip candidates holding a descendant whose class contains this
	Action    Action
}

// CookieNoticeText identifies the consent footer that survives the id rules.
const CookieNoticeText = "This website utilizes technologies such as cookies"

// PageFragmentClass marks document pages. Text rules never remove an
// element that holds one.
const PageFragmentClass = "page"

// PrintStyleID is the id of the injected print stylesheet. Re-injection
// replaces the existing element.
const PrintStyleID = "scribd2pdf-print-style"

// PrintCSS zeroes page margins and hides residual chrome at print time.
const PrintCSS = `@media print {
  @page { margin: 0; }
  body { background-color: white; }
  .toolbar_top, .toolbar_bottom, .promo_banner, #onetrust-consent-sdk { display: none !important; }
}`

// DefaultRules returns the cleanup rules for the document viewer.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "toolbar-top", Strategy: ExactSelector, Selector: ".toolbar_top", Action: Remove},
		{Name: "toolbar-bottom", Strategy: ExactSelector, Selector: ".toolbar_bottom", Action: Remove},
		{Name: "document-scroller", Strategy: ExactSelector, Selector: ".document_scroller", Action: ResetClass},
		{Name: "promo", Strategy: SubstringMarker, Attribute: "class", Marker: "promo", Action: Remove},
		{Name: "consent-sdk", Strategy: ExactSelector, Selector: "#onetrust-consent-sdk", Action: Remove},
		{Name: "consent-banner", Strategy: ExactSelector, Selector: "#onetrust-banner-sdk", Action: Remove},
		{Name: "cookie-notice", Strategy: TextMatch, Tags: []string{"div", "footer", "section"}, Text: CookieNoticeText, Guard: PageFragmentClass, Action: Remove},
	}
}

var (
	simpleSelectorPattern = regexp.MustCompile(`^[.#][A-Za-z_][A-Za-z0-9_-]*$`)
	attributePattern      = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	tagPattern            = regexp.MustCompile(`^[a-z][a-z0-9]*$`)
)

// Validate checks that the rule can be expressed both as a CSS selector and
// as an offline tree match.
func (r Rule) Validate() error {
	switch r.Strategy {
	case ExactSelector:
		if !simpleSelectorPattern.MatchString(r.Selector) {
			return fmt.Errorf("%w: %q (want .class or #id)", ErrInvalidSelector, r.Selector)
		}
	case SubstringMarker:
		if !attributePattern.MatchString(r.Attribute) {
			return fmt.Errorf("%w: attribute %q", ErrInvalidSelector, r.Attribute)
		}
		if r.Marker == "" || strings.ContainsAny(r.Marker, "\"\\\n") {
			return fmt.Errorf("%w: marker %q", ErrInvalidSelector, r.Marker)
		}
	case TextMatch:
		if len(r.Tags) == 0 {
			return fmt.Errorf("%w: %s: no candidate tags", ErrInvalidRule, r.Name)
		}
		for _, tag := range r.Tags {
			if !tagPattern.MatchString(tag) {
				return fmt.Errorf("%w: tag %q", ErrInvalidSelector, tag)
			}
		}
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: %s: empty text", ErrInvalidRule, r.Name)
		}
		if strings.ContainsAny(r.Guard, "\"\\\n") {
			return fmt.Errorf("%w: guard %q", ErrInvalidSelector, r.Guard)
		}
	default:
		return fmt.Errorf("%w: %s: unknown strategy %v", ErrInvalidRule, r.Name, r.Strategy)
	}

	switch r.Action {
	case Remove, Hide, ResetClass:
		return nil
	default:
		return fmt.Errorf("%w: %s: unknown action %v", ErrInvalidRule, r.Name, r.Action)
	}
}

// ValidateRules validates every rule in order.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// cssSelector returns the querySelectorAll argument for the rule.
func (r Rule) cssSelector() string {
	switch r.Strategy {
	case SubstringMarker:
		return fmt.Sprintf(`[%s*="%s"]`, r.Attribute, r.Marker)
	case TextMatch:
		return strings.Join(r.Tags, ", ")
	default:
		return r.Selector
	}
}
