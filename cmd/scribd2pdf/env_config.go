package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-scribd2pdf/internal/config"
)

// envPrefix namespaces every variable read by the CLI.
const envPrefix = "SCRIBD2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string // SCRIBD2PDF_CONFIG: config file name or path
	Strategy   string // SCRIBD2PDF_STRATEGY: fixed, dynamic
	BrowserBin string // SCRIBD2PDF_BROWSER_BIN, then ROD_BROWSER_BIN
	ControlURL string // SCRIBD2PDF_CONTROL_URL: DevTools URL
	NoSandbox  bool   // SCRIBD2PDF_NO_SANDBOX: 1, true

	// Tier 2 - Pacing and output
	Timeout     string // SCRIBD2PDF_TIMEOUT: print timeout
	ScrollDelay string // SCRIBD2PDF_SCROLL_DELAY: wait per page
	OutputDir   string // SCRIBD2PDF_OUTPUT_DIR: default output directory
	Workers     int    // SCRIBD2PDF_WORKERS: parallel conversions

	// Tier 3 - Service
	Addr string // SCRIBD2PDF_ADDR: listen address
}

// knownEnvVars lists valid SCRIBD2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"SCRIBD2PDF_CONFIG":       true,
	"SCRIBD2PDF_STRATEGY":     true,
	"SCRIBD2PDF_BROWSER_BIN":  true,
	"SCRIBD2PDF_CONTROL_URL":  true,
	"SCRIBD2PDF_NO_SANDBOX":   true,
	"SCRIBD2PDF_TIMEOUT":      true,
	"SCRIBD2PDF_SCROLL_DELAY": true,
	"SCRIBD2PDF_OUTPUT_DIR":   true,
	"SCRIBD2PDF_WORKERS":      true,
	"SCRIBD2PDF_ADDR":         true,
	"SCRIBD2PDF_CONTAINER":    true, // read by doctor only
}

// loadEnvConfig reads configuration from environment variables.
// Malformed booleans and integers are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:  getenv("SCRIBD2PDF_CONFIG"),
		Strategy:    getenv("SCRIBD2PDF_STRATEGY"),
		BrowserBin:  getenv("SCRIBD2PDF_BROWSER_BIN"),
		ControlURL:  getenv("SCRIBD2PDF_CONTROL_URL"),
		Timeout:     getenv("SCRIBD2PDF_TIMEOUT"),
		ScrollDelay: getenv("SCRIBD2PDF_SCROLL_DELAY"),
		OutputDir:   getenv("SCRIBD2PDF_OUTPUT_DIR"),
		Addr:        getenv("SCRIBD2PDF_ADDR"),
	}

	if cfg.BrowserBin == "" {
		cfg.BrowserBin = getenv("ROD_BROWSER_BIN")
	}

	if v := getenv("SCRIBD2PDF_NO_SANDBOX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NoSandbox = b
		}
	}

	if workers := getenv("SCRIBD2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars writes warnings for unrecognized SCRIBD2PDF_* variables.
// Helps catch typos like SCRIBD2PDF_WORKER instead of SCRIBD2PDF_WORKERS.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overlays set environment values on cfg.
// Order: CLI flags > env vars > config file > defaults
// (CLI flags are applied later by mergeBrowserFlags and mergeTimingFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Strategy != "" {
		cfg.Browser.Strategy = env.Strategy
	}
	if env.BrowserBin != "" {
		cfg.Browser.Bin = env.BrowserBin
	}
	if env.ControlURL != "" {
		cfg.Browser.ControlURL = env.ControlURL
	}
	if env.NoSandbox {
		cfg.Browser.NoSandbox = true
	}

	if env.Timeout != "" {
		cfg.Timing.RenderTimeout = env.Timeout
	}
	if env.ScrollDelay != "" {
		cfg.Timing.ScrollStep = env.ScrollDelay
	}
	if env.OutputDir != "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.Workers > 0 {
		cfg.Output.Workers = env.Workers
	}

	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
}
