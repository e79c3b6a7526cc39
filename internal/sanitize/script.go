package sanitize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// scriptRule is the JSON shape consumed by scriptBody.
type scriptRule struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	Selector string `json:"selector"`
	Text     string `json:"text,omitempty"`
	Guard    string `json:"guard,omitempty"`
	Action   string `json:"action"`
}

// scriptBody mutates the live document and returns the number of changed
// elements. Elements already in the target state are not counted, so a
// second run returns 0.
const scriptBody = `() => {
  const rules = %s;
  const css = %s;
  const styleID = %s;
  let changed = 0;
  const apply = (el, action) => {
    if (!el.isConnected) return;
    switch (action) {
    case "remove":
      el.remove();
      changed++;
      break;
    case "hide":
      if (el.style.getPropertyValue("display") === "none") return;
      el.style.setProperty("display", "none", "important");
      changed++;
      break;
    case "reset-class":
      if (el.getAttribute("class") === "") return;
      el.setAttribute("class", "");
      changed++;
      break;
    }
  };
  for (const rule of rules) {
    const found = Array.from(document.querySelectorAll(rule.selector));
    if (rule.strategy === "text") {
      found.filter((el) => (el.textContent || "").includes(rule.text))
        .filter((el) => !rule.guard || !el.querySelector('[class*="' + rule.guard + '"]'))
        .forEach((el) => apply(el, rule.action));
      continue;
    }
    found.forEach((el) => apply(el, rule.action));
  }
  if (css !== "") {
    let style = document.getElementById(styleID);
    if (!style) {
      style = document.createElement("style");
      style.id = styleID;
      (document.head || document.documentElement).appendChild(style);
    }
    style.textContent = css;
  }
  return changed;
}`

// Script compiles rules and the print stylesheet into a JavaScript function
// expression suitable for page evaluation. The function returns the number
// of elements it changed. An empty css skips style injection.
func Script(rules []Rule, css string) (string, error) {
	if err := ValidateRules(rules); err != nil {
		return "", err
	}

	encoded := make([]scriptRule, 0, len(rules))
	for _, r := range rules {
		encoded = append(encoded, scriptRule{
			Name:     r.Name,
			Strategy: r.Strategy.String(),
			Selector: r.cssSelector(),
			Text:     r.Text,
			Guard:    r.Guard,
			Action:   r.Action.String(),
		})
	}

	rulesJSON, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("encoding rules: %w", err)
	}
	cssJSON, err := json.Marshal(css)
	if err != nil {
		return "", fmt.Errorf("encoding stylesheet: %w", err)
	}
	idJSON, err := json.Marshal(PrintStyleID)
	if err != nil {
		return "", fmt.Errorf("encoding style id: %w", err)
	}

	return fmt.Sprintf(scriptBody, rulesJSON, cssJSON, idJSON), nil
}

// Describe returns a compact, human-readable summary of rules for logs.
func Describe(rules []Rule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, fmt.Sprintf("%s:%s(%s)", r.Name, r.Action, r.cssSelector()))
	}
	return strings.Join(parts, " ")
}
