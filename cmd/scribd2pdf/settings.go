package main

import (
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
	"github.com/alnah/go-scribd2pdf/internal/fileutil"
	"github.com/alnah/go-scribd2pdf/internal/hints"
)

// resolveConfig builds the effective configuration.
// Order: CLI flags > env vars > config file > defaults.
func resolveConfig(common commonFlags, browser browserFlags, timing timingFlags, env *Environment) (*config.Config, error) {
	envCfg := loadEnvConfig(env.Getenv)

	cfg := config.DefaultConfig()
	name := common.config
	if name == "" {
		name = envCfg.ConfigPath
	}
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	mergeBrowserFlags(browser, cfg)
	mergeTimingFlags(timing, cfg)

	// A binary or endpoint given on the command line or in the environment
	// selects the fixed driver unless a strategy was named there too.
	explicitStrategy := browser.strategy != "" || envCfg.Strategy != ""
	explicitTarget := browser.bin != "" || browser.controlURL != "" ||
		envCfg.BrowserBin != "" || envCfg.ControlURL != ""
	if !explicitStrategy && explicitTarget {
		cfg.Browser.Strategy = string(scribd2pdf.DriverFixedPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	env.Config = cfg
	return cfg, nil
}

// mergeBrowserFlags merges driver flags into config. CLI values override config values.
func mergeBrowserFlags(f browserFlags, cfg *config.Config) {
	if f.strategy != "" {
		cfg.Browser.Strategy = f.strategy
	}
	if f.bin != "" {
		cfg.Browser.Bin = f.bin
	}
	if f.controlURL != "" {
		cfg.Browser.ControlURL = f.controlURL
	}
	if f.noSandbox {
		cfg.Browser.NoSandbox = true
	}
	if f.stealth {
		cfg.Browser.Stealth = true
	}
	if f.headful {
		cfg.Browser.Headful = true
	}
}

// mergeTimingFlags merges pacing flags into config.
func mergeTimingFlags(f timingFlags, cfg *config.Config) {
	if f.timeout != "" {
		cfg.Timing.RenderTimeout = f.timeout
	}
	if f.scrollDelay != "" {
		cfg.Timing.ScrollStep = f.scrollDelay
	}
	if f.settle != "" {
		cfg.Timing.NavigationSettle = f.settle
	}
}

// converterOptions maps a validated config to library options.
func converterOptions(cfg *config.Config, log *zap.Logger) ([]scribd2pdf.Option, error) {
	timing, err := cfg.ConverterTiming()
	if err != nil {
		return nil, err
	}
	return []scribd2pdf.Option{
		scribd2pdf.WithTiming(timing),
		scribd2pdf.WithMargins(cfg.Margins()),
		scribd2pdf.WithScrollMarker(cfg.Scroll.Attribute, cfg.Scroll.Marker),
		scribd2pdf.WithPDFValidation(!cfg.Output.SkipValidation),
		scribd2pdf.WithLogger(log),
	}, nil
}

// newConverter builds the session factory and converter for cfg.
func newConverter(cfg *config.Config, env *Environment, log *zap.Logger) (*scribd2pdf.Converter, error) {
	if data, err := config.Marshal(cfg); err == nil {
		log.Debug("effective configuration", zap.ByteString("config", data))
	}
	denv := cfg.DriverEnvironment()
	denv.Logger = log
	if denv.Strategy == scribd2pdf.DriverFixedPath && denv.BrowserBin == "" && denv.ControlURL == "" {
		if p, ok := launcher.LookPath(); ok {
			log.Info("using browser found on PATH", zap.String("bin", p))
			denv.BrowserBin = p
		}
	}
	factory, err := env.NewFactory(denv)
	if err != nil {
		return nil, err
	}
	opts, err := converterOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	return scribd2pdf.NewConverter(factory, opts...)
}
