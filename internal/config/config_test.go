package config

// Notes:
// - Name resolution tests change the working directory and XDG_CONFIG_HOME,
//   so they do not run in parallel.
// - The user config directory case relies on os.UserConfigDir honoring
//   XDG_CONFIG_HOME, which holds on Linux and the BSDs only.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// TestDefaultConfig - Built-in defaults
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error: %v", err)
	}
	if cfg.Browser.Strategy != "dynamic" {
		t.Errorf("Browser.Strategy = %q, want dynamic", cfg.Browser.Strategy)
	}
	if cfg.Scroll.Attribute != "class" || cfg.Scroll.Marker != "page" {
		t.Errorf("Scroll = %+v", cfg.Scroll)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.MaxConcurrent != 2 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Margins() != (scribd2pdf.Margins{}) {
		t.Errorf("Margins() = %+v, want zero", cfg.Margins())
	}

	timing, err := cfg.ConverterTiming()
	if err != nil {
		t.Fatalf("ConverterTiming() error: %v", err)
	}
	if timing != scribd2pdf.DefaultTiming() {
		t.Errorf("ConverterTiming() = %+v, want library defaults", timing)
	}
}

// ---------------------------------------------------------------------------
// TestConfig_Validate - Field checks
// ---------------------------------------------------------------------------

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	if err := validateFieldLength("f", "1234567890", 10); err != nil {
		t.Errorf("value at limit: unexpected error %v", err)
	}
	err := validateFieldLength("browser.bin", "12345678901", 10)
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("error = %v, want ErrFieldTooLong", err)
	}
	if !strings.Contains(err.Error(), "browser.bin (11 chars, max 10)") {
		t.Errorf("error message = %q", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "fixed strategy", mutate: func(c *Config) { c.Browser.Strategy = "fixed" }},
		{name: "unknown strategy", mutate: func(c *Config) { c.Browser.Strategy = "probe" }, wantErr: scribd2pdf.ErrInvalidStrategy},
		{name: "bin too long", mutate: func(c *Config) { c.Browser.Bin = strings.Repeat("x", MaxPathLength+1) }, wantErr: ErrFieldTooLong},
		{name: "control URL too long", mutate: func(c *Config) { c.Browser.ControlURL = strings.Repeat("x", MaxURLLength+1) }, wantErr: ErrFieldTooLong},
		{name: "negative revision", mutate: func(c *Config) { c.Browser.Revision = -1 }, wantErr: ErrInvalidValue},
		{name: "duration override", mutate: func(c *Config) { c.Timing.ScrollStep = "750ms" }},
		{name: "unparsable duration", mutate: func(c *Config) { c.Timing.ScrollStep = "fast" }, wantErr: ErrInvalidValue},
		{name: "negative delay", mutate: func(c *Config) { c.Timing.ScrollSettle = "-1s" }, wantErr: scribd2pdf.ErrInvalidTiming},
		{name: "zero render timeout", mutate: func(c *Config) { c.Timing.RenderTimeout = "0s" }, wantErr: scribd2pdf.ErrInvalidTiming},
		{name: "duration too long", mutate: func(c *Config) { c.Timing.NavigationSettle = strings.Repeat("1", 21) + "s" }, wantErr: ErrFieldTooLong},
		{name: "marker too long", mutate: func(c *Config) { c.Scroll.Marker = strings.Repeat("p", MaxMarkerLength+1) }, wantErr: ErrFieldTooLong},
		{name: "margin out of range", mutate: func(c *Config) { c.Print.MarginLeft = 3.5 }, wantErr: scribd2pdf.ErrInvalidMargin},
		{name: "too many workers", mutate: func(c *Config) { c.Output.Workers = MaxWorkers + 1 }, wantErr: ErrInvalidValue},
		{name: "negative concurrency", mutate: func(c *Config) { c.Server.MaxConcurrent = -1 }, wantErr: ErrInvalidValue},
		{name: "addr too long", mutate: func(c *Config) { c.Server.Addr = strings.Repeat("a", MaxAddrLength+1) }, wantErr: ErrFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Mapping to library types
// ---------------------------------------------------------------------------

func TestConfig_ConverterTiming(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Timing = TimingConfig{ScrollStep: "1s", RenderTimeout: "2m"}

	got, err := cfg.ConverterTiming()
	if err != nil {
		t.Fatalf("ConverterTiming() error: %v", err)
	}
	want := scribd2pdf.DefaultTiming()
	want.ScrollStep = time.Second
	want.RenderTimeout = 2 * time.Minute
	if got != want {
		t.Errorf("ConverterTiming() = %+v, want %+v", got, want)
	}
}

func TestConfig_DriverEnvironment(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Browser = BrowserConfig{
		Strategy:  " Fixed ",
		Bin:       "/usr/bin/chromium",
		NoSandbox: true,
		Stealth:   true,
	}

	env := cfg.DriverEnvironment()
	if env.Strategy != scribd2pdf.DriverFixedPath {
		t.Errorf("Strategy = %q, want fixed", env.Strategy)
	}
	if env.BrowserBin != "/usr/bin/chromium" || !env.NoSandbox || !env.Stealth || env.Headful {
		t.Errorf("DriverEnvironment() = %+v", env)
	}
	if err := env.Validate(); err != nil {
		t.Errorf("mapped environment invalid: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig - File loading
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), "c.yaml", `
browser:
  strategy: fixed
  bin: /opt/chromium/chrome
  noSandbox: true
timing:
  scrollStep: 600ms
print:
  marginTop: 0.25
output:
  defaultDir: ./pdfs
  workers: 3
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if cfg.Browser.Strategy != "fixed" || cfg.Browser.Bin != "/opt/chromium/chrome" || !cfg.Browser.NoSandbox {
			t.Errorf("Browser = %+v", cfg.Browser)
		}
		if cfg.Timing.ScrollStep != "600ms" {
			t.Errorf("Timing.ScrollStep = %q", cfg.Timing.ScrollStep)
		}
		if cfg.Margins().Top != 0.25 {
			t.Errorf("Margins().Top = %v", cfg.Margins().Top)
		}
		if cfg.Output.DefaultDir != "./pdfs" || cfg.Output.Workers != 3 {
			t.Errorf("Output = %+v", cfg.Output)
		}
		if cfg.Scroll.Marker != "page" || cfg.Server.Addr != ":8080" {
			t.Errorf("defaults not applied: scroll=%+v server=%+v", cfg.Scroll, cfg.Server)
		}
	})

	t.Run("unknown key is a parse error", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), "c.yaml", "browser:\n  sandbox: false\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("LoadConfig() error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value fails validation", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), "c.yaml", "timing:\n  renderTimeout: soon\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("LoadConfig() error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("missing file path", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfig() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadConfig(""); !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("LoadConfig(\"\") error = %v, want ErrEmptyConfigName", err)
		}
	})
}

func TestLoadConfig_ByName(t *testing.T) {
	t.Run("current directory, yml extension", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "work.yml", "output:\n  html: true\n")
		t.Chdir(dir)
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := LoadConfig("work")
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if !cfg.Output.HTML {
			t.Error("Output.HTML = false, want true")
		}
	})

	t.Run("user config directory", func(t *testing.T) {
		if runtime.GOOS != "linux" {
			t.Skip("XDG_CONFIG_HOME only drives os.UserConfigDir on Linux")
		}
		t.Chdir(t.TempDir())
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		if err := os.MkdirAll(filepath.Join(home, appDirName), 0o750); err != nil {
			t.Fatal(err)
		}
		writeConfig(t, filepath.Join(home, appDirName), "ci.yaml", "server:\n  maxConcurrent: 6\n")

		cfg, err := LoadConfig("ci")
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if cfg.Server.MaxConcurrent != 6 {
			t.Errorf("Server.MaxConcurrent = %d, want 6", cfg.Server.MaxConcurrent)
		}
	})

	t.Run("not found lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		_, err := LoadConfig("nowhere")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "nowhere.yaml") || !strings.Contains(err.Error(), "nowhere.yml") {
			t.Errorf("error does not list tried paths: %v", err)
		}
	})
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	paths := SearchPaths("work")
	if len(paths) < 2 || paths[0] != "work.yaml" || paths[1] != "work.yml" {
		t.Fatalf("SearchPaths() = %v, want local .yaml then .yml first", paths)
	}
	if runtime.GOOS == "linux" {
		if len(paths) != 4 || paths[2] != filepath.Join("/tmp/xdg", appDirName, "work.yaml") {
			t.Errorf("SearchPaths() = %v, want user config entries", paths)
		}
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Timing.ScrollStep = "500ms"
	cfg.Output.Workers = 4

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	path := writeConfig(t, t.TempDir(), "round.yaml", string(data))
	back, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig(Marshal()) error: %v\n%s", err, data)
	}
	if *back != *cfg {
		t.Errorf("round trip = %+v, want %+v", back, cfg)
	}
}
