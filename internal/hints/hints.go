// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-scribd2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI runner is detected.
func inCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForDriverUnavailable returns hints for a browser that could not be
// launched, downloaded or attached to.
func ForDriverUnavailable(strategy string, noSandbox bool) string {
	var hints []string

	if (inCI() || IsInContainer()) && !noSandbox {
		hints = append(hints, "use --no-sandbox (or SCRIBD2PDF_NO_SANDBOX=1) for Docker/CI")
	}

	switch strategy {
	case "fixed":
		if os.Getenv("ROD_BROWSER_BIN") == "" {
			hints = append(hints, "point --browser-bin or ROD_BROWSER_BIN at a Chromium executable")
		} else {
			hints = append(hints, "check that ROD_BROWSER_BIN is executable")
		}
	case "dynamic":
		hints = append(hints, "the first run downloads Chromium; check network access or use --strategy fixed")
	}

	return formatHints(hints)
}

// ForNavigationTimeout returns a hint for a viewer that did not load.
func ForNavigationTimeout() string {
	return format("check network access, or raise timing.navigationTimeout in the config file")
}

// ForRenderTimeout returns a hint about increasing timeout for long documents.
func ForRenderTimeout() string {
	return format("for long documents, use --timeout")
}

// ForInvalidURL returns the expected shape of a document URL.
func ForInvalidURL() string {
	return format("expected https://www.scribd.com/document/<id>/<title>")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-scribd2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "go-scribd2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForListenAddress returns a hint for a service that cannot bind.
func ForListenAddress() string {
	return format("choose another port with --addr or SCRIBD2PDF_ADDR")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
