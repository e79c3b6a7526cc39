package sanitize

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const hiddenStyle = "display: none !important"

// ApplyHTML applies rules to a parsed document tree in place and injects the
// print stylesheet into <head>. It returns the number of changed elements.
// Running it twice on the same tree changes nothing the second time.
func ApplyHTML(root *html.Node, rules []Rule, css string) (int, error) {
	if err := ValidateRules(rules); err != nil {
		return 0, err
	}

	changed := 0
	for _, r := range rules {
		for _, n := range matches(root, r) {
			if applyAction(root, n, r.Action) {
				changed++
			}
		}
	}

	if css != "" {
		injectStyle(root, css)
	}
	return changed, nil
}

// CleanHTML parses a serialized document, applies rules and returns the
// rendered result along with the number of changed elements.
func CleanHTML(doc []byte, rules []Rule, css string) ([]byte, int, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, 0, fmt.Errorf("parsing HTML: %w", err)
	}

	changed, err := ApplyHTML(root, rules, css)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, 0, fmt.Errorf("rendering HTML: %w", err)
	}
	return buf.Bytes(), changed, nil
}

// matches returns the elements a rule targets, in document order.
func matches(root *html.Node, r Rule) []*html.Node {
	var found []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && matchOne(n, r) {
			found = append(found, n)
		}
	})
	if r.Strategy != TextMatch || r.Guard == "" {
		return found
	}

	kept := found[:0:0]
	for _, n := range found {
		if !guarded(n, r.Guard) {
			kept = append(kept, n)
		}
	}
	return kept
}

// guarded reports whether a descendant of n has a class containing marker.
func guarded(n *html.Node, marker string) bool {
	hit := false
	walk(n, func(d *html.Node) {
		if !hit && d != n && d.Type == html.ElementNode && strings.Contains(attr(d, "class"), marker) {
			hit = true
		}
	})
	return hit
}

func matchOne(n *html.Node, r Rule) bool {
	switch r.Strategy {
	case ExactSelector:
		name := r.Selector[1:]
		if r.Selector[0] == '#' {
			return attr(n, "id") == name
		}
		for _, class := range strings.Fields(attr(n, "class")) {
			if class == name {
				return true
			}
		}
		return false
	case SubstringMarker:
		return strings.Contains(attr(n, r.Attribute), r.Marker)
	case TextMatch:
		for _, tag := range r.Tags {
			if n.Data == tag {
				return strings.Contains(textContent(n), r.Text)
			}
		}
		return false
	default:
		return false
	}
}

// applyAction mutates n and reports whether anything changed.
func applyAction(root, n *html.Node, action Action) bool {
	if !attached(root, n) {
		return false
	}
	switch action {
	case Remove:
		n.Parent.RemoveChild(n)
		return true
	case Hide:
		style := attr(n, "style")
		if strings.Contains(style, hiddenStyle) {
			return false
		}
		if style != "" && !strings.HasSuffix(strings.TrimSpace(style), ";") {
			style += ";"
		}
		setAttr(n, "style", strings.TrimSpace(style+" "+hiddenStyle))
		return true
	case ResetClass:
		if attr(n, "class") == "" {
			return false
		}
		setAttr(n, "class", "")
		return true
	default:
		return false
	}
}

// injectStyle adds or replaces the print stylesheet in <head>.
func injectStyle(root *html.Node, css string) {
	var head, existing *html.Node
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if head == nil && n.DataAtom == atom.Head {
			head = n
		}
		if existing == nil && n.DataAtom == atom.Style && attr(n, "id") == PrintStyleID {
			existing = n
		}
	})

	if existing != nil {
		for c := existing.FirstChild; c != nil; c = existing.FirstChild {
			existing.RemoveChild(c)
		}
		existing.AppendChild(&html.Node{Type: html.TextNode, Data: css})
		return
	}
	if head == nil {
		// html.Parse always synthesizes <head>; fragments built by hand may not.
		head = &html.Node{Type: html.ElementNode, DataAtom: atom.Head, Data: "head"}
		root.AppendChild(head)
	}

	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "id", Val: PrintStyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	head.AppendChild(style)
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func contains(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func attached(root, n *html.Node) bool {
	return n == root || contains(root, n)
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
