package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
)

// Driver modes reported by doctor.
const (
	modeLaunch   = "launch"   // fixed: start a local binary
	modeRemote   = "remote"   // fixed: attach to a running browser
	modeDownload = "download" // dynamic: rod-managed revision
)

// versionTimeout bounds "<browser> --version".
const versionTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Driver   driverInfo `json:"driver"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// driverInfo describes how the configured strategy resolves a browser.
type driverInfo struct {
	Strategy     string `json:"strategy"`
	Mode         string `json:"mode"`
	Path         string `json:"path,omitempty"`
	Version      string `json:"version,omitempty"`
	ControlURL   string `json:"control_url,omitempty"`
	WebSocketURL string `json:"websocket_url,omitempty"`
	Revision     int    `json:"revision,omitempty"`
	Cached       bool   `json:"cached"`
	Sandbox      bool   `json:"sandbox"`
	Stealth      bool   `json:"stealth"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable   bool   `json:"temp_writable"`
	OutputDir      string `json:"output_dir"`
	OutputWritable bool   `json:"output_writable"`
}

// doctorProbe holds the host lookups doctor performs, replaceable in tests.
type doctorProbe struct {
	getenv     func(string) string
	stat       func(string) (os.FileInfo, error)
	lookPath   func() (string, bool)
	version    func(ctx context.Context, bin string) (string, error)
	resolveURL func(string) (string, error)
	dynamicBin func(revision int, dir string) (path string, revisionUsed int)
	tempDir    func() string
}

// defaultProbe returns the probe backed by the host and rod's launcher.
func defaultProbe(getenv func(string) string) *doctorProbe {
	return &doctorProbe{
		getenv:     getenv,
		stat:       os.Stat,
		lookPath:   launcher.LookPath,
		version:    browserVersion,
		resolveURL: launcher.ResolveURL,
		dynamicBin: func(revision int, dir string) (string, int) {
			b := launcher.NewBrowser()
			if revision > 0 {
				b.Revision = revision
			}
			if dir != "" {
				b.RootDir = dir
			}
			return b.BinPath(), b.Revision
		},
		tempDir: os.TempDir,
	}
}

// browserVersion runs "<bin> --version".
func browserVersion(ctx context.Context, bin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "--version").Output() // #nosec G204 -- bin comes from the user's own config
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	cfg, err := resolveConfig(flags.common, flags.browser, timingFlags{}, env)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err, nil))
		return exitCodeFor(err)
	}

	result := runDoctor(ctx, cfg, defaultProbe(env.Getenv))

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, p *doctorProbe) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkDriver(ctx, cfg, p, result)
	checkEnvironment(cfg, p, result)
	checkSystem(cfg, p, result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkDriver reports how the configured strategy would obtain a browser.
// It never launches or downloads one.
func checkDriver(ctx context.Context, cfg *config.Config, p *doctorProbe, result *doctorResult) {
	d := &result.Driver
	d.Strategy = cfg.Browser.Strategy
	d.Sandbox = !cfg.Browser.NoSandbox
	d.Stealth = cfg.Browser.Stealth

	strategy, err := scribd2pdf.ParseDriverStrategy(cfg.Browser.Strategy)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}

	switch {
	case strategy == scribd2pdf.DriverFixedPath && cfg.Browser.ControlURL != "":
		d.Mode = modeRemote
		d.ControlURL = cfg.Browser.ControlURL
		ws, err := p.resolveURL(cfg.Browser.ControlURL)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Browser at %s not reachable: %v", cfg.Browser.ControlURL, err))
			return
		}
		d.WebSocketURL = ws

	case strategy == scribd2pdf.DriverFixedPath:
		d.Mode = modeLaunch
		bin := cfg.Browser.Bin
		if bin == "" {
			var found bool
			bin, found = p.lookPath()
			if !found {
				result.Errors = append(result.Errors,
					"Chrome/Chromium not found. Set --browser-bin or SCRIBD2PDF_BROWSER_BIN, or use --strategy dynamic")
				return
			}
		}
		if _, err := p.stat(bin); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Browser not found at %s", bin))
			return
		}
		d.Path = bin
		if v, err := p.version(ctx, bin); err == nil {
			d.Version = v
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get browser version: %v", err))
		}

	default:
		d.Mode = modeDownload
		d.Path, d.Revision = p.dynamicBin(cfg.Browser.Revision, cfg.Browser.DownloadDir)
		if _, err := p.stat(d.Path); err == nil {
			d.Cached = true
		} else {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Browser revision %d not downloaded yet; the first conversion fetches it", d.Revision))
		}
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(cfg *config.Config, p *doctorProbe, result *doctorResult) {
	// Detect container (multi-signal approach)
	result.Env.Container, result.Env.ContainerHint = isContainer(p)

	// Detect CI environments
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if p.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	// Warn if container/CI without sandbox disabled
	launches := result.Driver.Mode == modeLaunch || result.Driver.Mode == modeDownload
	if launches && (result.Env.Container || result.Env.CI) && !cfg.Browser.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is enabled. Use --no-sandbox or SCRIBD2PDF_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(p *doctorProbe) (bool, string) {
	// Explicit override (highest priority)
	if p.getenv("SCRIBD2PDF_CONTAINER") == "1" {
		return true, "SCRIBD2PDF_CONTAINER=1"
	}
	// Docker
	if _, err := p.stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := p.getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if p.getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp and output directories are writable.
// Browser profiles live under the temp directory.
func checkSystem(cfg *config.Config, p *doctorProbe, result *doctorResult) {
	tmpDir := p.tempDir()
	if dirWritable(tmpDir) {
		result.System.TempWritable = true
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	}

	outDir := resolveOutputDir("", cfg)
	result.System.OutputDir = outDir
	if _, err := p.stat(outDir); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Output directory %s does not exist yet; it is created on first use", outDir))
		return
	}
	if dirWritable(outDir) {
		result.System.OutputWritable = true
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("Output directory not writable: %s", outDir))
	}
}

// dirWritable reports whether a file can be created in dir.
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".scribd2pdf-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "scribd2pdf doctor")
	fmt.Fprintln(w)

	// Driver section
	fmt.Fprintf(w, "Browser driver (%s)\n", r.Driver.Strategy)
	switch r.Driver.Mode {
	case modeRemote:
		if r.Driver.WebSocketURL != "" {
			fmt.Fprintf(w, "  [OK] Connected to %s\n", r.Driver.ControlURL)
		} else {
			fmt.Fprintf(w, "  [ERROR] Not reachable: %s\n", r.Driver.ControlURL)
		}
	case modeLaunch:
		if r.Driver.Path != "" {
			fmt.Fprintf(w, "  [OK] Found at %s\n", r.Driver.Path)
			if r.Driver.Version != "" {
				fmt.Fprintf(w, "  [OK] Version: %s\n", r.Driver.Version)
			}
		} else {
			fmt.Fprintln(w, "  [ERROR] Not found")
		}
	case modeDownload:
		if r.Driver.Cached {
			fmt.Fprintf(w, "  [OK] Revision %d cached at %s\n", r.Driver.Revision, r.Driver.Path)
		} else {
			fmt.Fprintf(w, "  [WARN] Revision %d not downloaded yet\n", r.Driver.Revision)
		}
	default:
		fmt.Fprintln(w, "  [ERROR] Unknown strategy")
	}
	if r.Driver.Mode != modeRemote && r.Driver.Mode != "" {
		if r.Driver.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (--no-sandbox)")
		}
	}
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	// System section
	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	if r.System.OutputWritable {
		fmt.Fprintf(w, "  [OK] Output directory: %s writable\n", r.System.OutputDir)
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
