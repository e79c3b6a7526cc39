package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/fileutil"
	"github.com/alnah/go-scribd2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096 // PATH_MAX on Linux
	MaxURLLength      = 2048 // Browser limit
	MaxAddrLength     = 255  // host:port
	MaxMarkerLength   = 100  // attribute name or class fragment
	MaxDurationLength = 20   // "1m30s"
	MaxWorkers        = 32
	MaxConcurrent     = 64
)

// appDirName is the directory searched under os.UserConfigDir.
const appDirName = "go-scribd2pdf"

// Config holds all configuration for the CLI and the service.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Timing  TimingConfig  `yaml:"timing"`
	Scroll  ScrollConfig  `yaml:"scroll"`
	Print   PrintConfig   `yaml:"print"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
}

// BrowserConfig selects and tunes the browser driver.
type BrowserConfig struct {
	Strategy    string `yaml:"strategy"`    // "fixed" or "dynamic" (default: "dynamic")
	Bin         string `yaml:"bin"`         // fixed: browser executable
	ControlURL  string `yaml:"controlURL"`  // fixed: DevTools endpoint of a running browser
	Revision    int    `yaml:"revision"`    // dynamic: 0 = rod default
	DownloadDir string `yaml:"downloadDir"` // dynamic: empty = rod cache dir
	NoSandbox   bool   `yaml:"noSandbox"`
	Headful     bool   `yaml:"headful"`
	Stealth     bool   `yaml:"stealth"`
}

// TimingConfig holds pipeline waits as duration strings ("400ms", "1m").
// Empty fields keep the built-in defaults.
type TimingConfig struct {
	NavigationSettle  string `yaml:"navigationSettle"`
	ScrollStep        string `yaml:"scrollStep"`
	ScrollSettle      string `yaml:"scrollSettle"`
	NavigationTimeout string `yaml:"navigationTimeout"`
	RenderTimeout     string `yaml:"renderTimeout"`
}

// ScrollConfig defines which elements count as page fragments.
type ScrollConfig struct {
	Attribute string `yaml:"attribute"` // default: "class"
	Marker    string `yaml:"marker"`    // default: "page"
}

// PrintConfig defines print margins in inches (default: all zero).
type PrintConfig struct {
	MarginTop    float64 `yaml:"marginTop"`
	MarginBottom float64 `yaml:"marginBottom"`
	MarginLeft   float64 `yaml:"marginLeft"`
	MarginRight  float64 `yaml:"marginRight"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir     string `yaml:"defaultDir"`     // Empty = current directory
	HTML           bool   `yaml:"html"`           // Also write the sanitized HTML snapshot
	Workers        int    `yaml:"workers"`        // 0 = sized from GOMAXPROCS
	SkipValidation bool   `yaml:"skipValidation"` // Do not parse the PDF with pdfcpu
}

// ServerConfig defines the HTTP service.
type ServerConfig struct {
	Addr          string `yaml:"addr"`          // default: ":8080"
	MaxConcurrent int    `yaml:"maxConcurrent"` // default: 2
}

// Validate checks every field. Called automatically by LoadConfig, but
// available for callers who build a Config by hand or overlay flags on it.
func (c *Config) Validate() error {
	if _, err := scribd2pdf.ParseDriverStrategy(c.Browser.Strategy); err != nil {
		return fmt.Errorf("browser.strategy: %w", err)
	}
	if err := validateFieldLength("browser.bin", c.Browser.Bin, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("browser.controlURL", c.Browser.ControlURL, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("browser.downloadDir", c.Browser.DownloadDir, MaxPathLength); err != nil {
		return err
	}
	if c.Browser.Revision < 0 {
		return fmt.Errorf("%w: browser.revision must not be negative, got %d", ErrInvalidValue, c.Browser.Revision)
	}

	if _, err := c.ConverterTiming(); err != nil {
		return err
	}

	if err := validateFieldLength("scroll.attribute", c.Scroll.Attribute, MaxMarkerLength); err != nil {
		return err
	}
	if err := validateFieldLength("scroll.marker", c.Scroll.Marker, MaxMarkerLength); err != nil {
		return err
	}

	if err := c.Margins().Validate(); err != nil {
		return fmt.Errorf("print: %w", err)
	}

	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if c.Output.Workers < 0 || c.Output.Workers > MaxWorkers {
		return fmt.Errorf("%w: output.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Output.Workers)
	}

	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.MaxConcurrent < 0 || c.Server.MaxConcurrent > MaxConcurrent {
		return fmt.Errorf("%w: server.maxConcurrent must be between 0 and %d, got %d", ErrInvalidValue, MaxConcurrent, c.Server.MaxConcurrent)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// ConverterTiming parses the timing section over the library defaults.
func (c *Config) ConverterTiming() (scribd2pdf.Timing, error) {
	t := scribd2pdf.DefaultTiming()
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timing.navigationSettle", c.Timing.NavigationSettle, &t.NavigationSettle},
		{"timing.scrollStep", c.Timing.ScrollStep, &t.ScrollStep},
		{"timing.scrollSettle", c.Timing.ScrollSettle, &t.ScrollSettle},
		{"timing.navigationTimeout", c.Timing.NavigationTimeout, &t.NavigationTimeout},
		{"timing.renderTimeout", c.Timing.RenderTimeout, &t.RenderTimeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if err := validateFieldLength(f.name, f.raw, MaxDurationLength); err != nil {
			return scribd2pdf.Timing{}, err
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return scribd2pdf.Timing{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.name, err)
		}
		*f.dst = d
	}
	if err := t.Validate(); err != nil {
		return scribd2pdf.Timing{}, fmt.Errorf("timing: %w", err)
	}
	return t, nil
}

// Margins returns the print section as library margins.
func (c *Config) Margins() scribd2pdf.Margins {
	return scribd2pdf.Margins{
		Top:    c.Print.MarginTop,
		Bottom: c.Print.MarginBottom,
		Left:   c.Print.MarginLeft,
		Right:  c.Print.MarginRight,
	}
}

// DriverEnvironment returns the browser section as a driver descriptor.
// The strategy must already be valid (see Validate).
func (c *Config) DriverEnvironment() scribd2pdf.DriverEnvironment {
	strategy, _ := scribd2pdf.ParseDriverStrategy(c.Browser.Strategy)
	return scribd2pdf.DriverEnvironment{
		Strategy:    strategy,
		BrowserBin:  c.Browser.Bin,
		ControlURL:  c.Browser.ControlURL,
		Revision:    c.Browser.Revision,
		DownloadDir: c.Browser.DownloadDir,
		NoSandbox:   c.Browser.NoSandbox,
		Headful:     c.Browser.Headful,
		Stealth:     c.Browser.Stealth,
	}
}

// DefaultConfig returns the configuration used when no file is given:
// dynamic driver, default pacing, zero margins.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{Strategy: string(scribd2pdf.DriverDynamic)},
		Scroll:  ScrollConfig{Attribute: "class", Marker: "page"},
		Server:  ServerConfig{Addr: ":8080", MaxConcurrent: 2},
	}
}

// fillDefaults sets empty fields that have a non-zero default.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Browser.Strategy == "" {
		c.Browser.Strategy = def.Browser.Strategy
	}
	if c.Scroll.Attribute == "" {
		c.Scroll.Attribute = def.Scroll.Attribute
	}
	if c.Scroll.Marker == "" {
		c.Scroll.Marker = def.Scroll.Marker
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.MaxConcurrent == 0 {
		c.Server.MaxConcurrent = def.Server.MaxConcurrent
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var cfg Config
	if err := yamlutil.ReadStrict(f, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Marshal renders cfg as YAML, in the format LoadConfig reads.
func Marshal(cfg *Config) ([]byte, error) {
	return yamlutil.Marshal(cfg)
}

// SearchPaths returns the locations LoadConfig tries for a config name,
// in order: current directory, then ~/.config/go-scribd2pdf/, each with
// .yaml before .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file among SearchPaths.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
