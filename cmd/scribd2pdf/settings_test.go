package main

// Notes:
// - resolveConfig is tested for precedence (flags > env > file > defaults)
//   and the implied fixed strategy. The process environment is never read.
// - newConverter is tested through the stub driver to see the descriptor it
//   builds; launching is covered by the root package integration tests.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------------------------------------------------------------------------
// TestResolveConfig - Precedence
// ---------------------------------------------------------------------------

func TestResolveConfig(t *testing.T) {
	t.Parallel()

	fileCfg := `browser:
  strategy: dynamic
  revision: 1300000
timing:
  renderTimeout: 30s
  scrollStep: 200ms
output:
  defaultDir: from-file
`

	t.Run("defaults without file", func(t *testing.T) {
		t.Parallel()
		env, _, _ := newTestEnv(nil, nil)
		cfg, err := resolveConfig(commonFlags{}, browserFlags{}, timingFlags{}, env)
		if err != nil {
			t.Fatalf("resolveConfig() error: %v", err)
		}
		if cfg.Browser.Strategy != "dynamic" || cfg.Server.Addr != ":8080" {
			t.Errorf("cfg = %+v", cfg)
		}
		if env.Config != cfg {
			t.Error("env.Config not set")
		}
	})

	t.Run("file then env then flags", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, fileCfg)
		env, _, _ := newTestEnv(map[string]string{
			"SCRIBD2PDF_TIMEOUT":    "90s",
			"SCRIBD2PDF_OUTPUT_DIR": "from-env",
		}, nil)

		cfg, err := resolveConfig(commonFlags{config: path}, browserFlags{stealth: true}, timingFlags{scrollDelay: "50ms"}, env)
		if err != nil {
			t.Fatalf("resolveConfig() error: %v", err)
		}
		if cfg.Browser.Revision != 1300000 {
			t.Errorf("Revision = %d, want file value", cfg.Browser.Revision)
		}
		if cfg.Timing.RenderTimeout != "90s" {
			t.Errorf("RenderTimeout = %q, want env value", cfg.Timing.RenderTimeout)
		}
		if cfg.Output.DefaultDir != "from-env" {
			t.Errorf("DefaultDir = %q, want env value", cfg.Output.DefaultDir)
		}
		if cfg.Timing.ScrollStep != "50ms" {
			t.Errorf("ScrollStep = %q, want flag value", cfg.Timing.ScrollStep)
		}
		if !cfg.Browser.Stealth {
			t.Error("Stealth flag not applied")
		}
	})

	t.Run("config path from env", func(t *testing.T) {
		t.Parallel()
		env, _, _ := newTestEnv(map[string]string{"SCRIBD2PDF_CONFIG": writeConfig(t, fileCfg)}, nil)
		cfg, err := resolveConfig(commonFlags{}, browserFlags{}, timingFlags{}, env)
		if err != nil {
			t.Fatalf("resolveConfig() error: %v", err)
		}
		if cfg.Output.DefaultDir != "from-file" {
			t.Errorf("DefaultDir = %q", cfg.Output.DefaultDir)
		}
	})

	t.Run("invalid flag value", func(t *testing.T) {
		t.Parallel()
		env, _, _ := newTestEnv(nil, nil)
		_, err := resolveConfig(commonFlags{}, browserFlags{}, timingFlags{settle: "-1s"}, env)
		if !errors.Is(err, scribd2pdf.ErrInvalidTiming) {
			t.Errorf("error = %v, want ErrInvalidTiming", err)
		}
	})

	t.Run("config name not found", func(t *testing.T) {
		t.Parallel()
		env, _, _ := newTestEnv(nil, nil)
		_, err := resolveConfig(commonFlags{config: "no-such-config-name"}, browserFlags{}, timingFlags{}, env)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "hint: use --config") {
			t.Errorf("error has no hint: %v", err)
		}
	})

	t.Run("config path not found has no hint", func(t *testing.T) {
		t.Parallel()
		env, _, _ := newTestEnv(nil, nil)
		_, err := resolveConfig(commonFlags{config: filepath.Join(t.TempDir(), "x.yaml")}, browserFlags{}, timingFlags{}, env)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if strings.Contains(err.Error(), "hint:") {
			t.Errorf("unexpected hint: %v", err)
		}
	})
}

func TestResolveConfig_ImpliedStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		vars    map[string]string
		browser browserFlags
		want    string
	}{
		{name: "nothing set", want: "dynamic"},
		{name: "bin flag", browser: browserFlags{bin: "/opt/chrome"}, want: "fixed"},
		{name: "control url flag", browser: browserFlags{controlURL: "http://127.0.0.1:9222"}, want: "fixed"},
		{name: "ROD_BROWSER_BIN", vars: map[string]string{"ROD_BROWSER_BIN": "/usr/bin/chromium"}, want: "fixed"},
		{name: "explicit strategy wins", browser: browserFlags{bin: "/opt/chrome", strategy: "dynamic"}, want: "dynamic"},
		{name: "explicit env strategy wins", vars: map[string]string{"SCRIBD2PDF_STRATEGY": "dynamic", "SCRIBD2PDF_BROWSER_BIN": "/opt/chrome"}, want: "dynamic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, _, _ := newTestEnv(tt.vars, nil)
			cfg, err := resolveConfig(commonFlags{}, tt.browser, timingFlags{}, env)
			if err != nil {
				t.Fatalf("resolveConfig() error: %v", err)
			}
			if cfg.Browser.Strategy != tt.want {
				t.Errorf("Strategy = %q, want %q", cfg.Browser.Strategy, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestNewConverter - Driver descriptor and options
// ---------------------------------------------------------------------------

func TestNewConverter(t *testing.T) {
	t.Parallel()

	t.Run("descriptor from config", func(t *testing.T) {
		t.Parallel()
		driver := &stubDriver{}
		env, _, _ := newTestEnv(nil, driver)
		cfg := config.DefaultConfig()
		cfg.Browser.Revision = 1300000
		cfg.Browser.DownloadDir = "/cache"
		cfg.Browser.Headful = true

		if _, err := newConverter(cfg, env, zap.NewNop()); err != nil {
			t.Fatalf("newConverter() error: %v", err)
		}
		got := driver.environment()
		if got.Strategy != scribd2pdf.DriverDynamic || got.Revision != 1300000 || got.DownloadDir != "/cache" || !got.Headful {
			t.Errorf("environment = %+v", got)
		}
		if got.Logger == nil {
			t.Error("logger not passed to the driver")
		}
	})

	t.Run("factory error", func(t *testing.T) {
		t.Parallel()
		env, _, _ := newTestEnv(nil, &stubDriver{factoryErr: errDriverBroken})
		_, err := newConverter(config.DefaultConfig(), env, zap.NewNop())
		if !errors.Is(err, scribd2pdf.ErrDriverUnavailable) {
			t.Errorf("error = %v, want ErrDriverUnavailable", err)
		}
	})
}

func TestConverterOptions(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Timing.RenderTimeout = "2m"
	cfg.Print.MarginTop = 0.5
	opts, err := converterOptions(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("converterOptions() error: %v", err)
	}
	if _, err := scribd2pdf.NewConverter(scribd2pdf.SessionFactoryFunc(nil), opts...); err != nil {
		t.Errorf("NewConverter() rejected the options: %v", err)
	}

	cfg.Timing.RenderTimeout = "soon"
	if _, err := converterOptions(cfg, zap.NewNop()); !errors.Is(err, config.ErrInvalidValue) {
		t.Errorf("error = %v, want ErrInvalidValue", err)
	}
}

// Durations in config files are strings; a parsed value is a time.Duration.
func TestConfigTimingRoundTrip(t *testing.T) {
	t.Parallel()

	env, _, _ := newTestEnv(nil, nil)
	cfg, err := resolveConfig(commonFlags{config: fastConfig(t)}, browserFlags{}, timingFlags{timeout: "45s"}, env)
	if err != nil {
		t.Fatal(err)
	}
	timing, err := cfg.ConverterTiming()
	if err != nil {
		t.Fatal(err)
	}
	if timing.RenderTimeout != 45*time.Second || timing.ScrollStep != 0 {
		t.Errorf("timing = %+v", timing)
	}
}
