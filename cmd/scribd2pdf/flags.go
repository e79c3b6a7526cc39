package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrInvalidFlags wraps flag parsing failures so they exit with ExitUsage.
var ErrInvalidFlags = errors.New("invalid flags")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// browserFlags select and tune the browser driver.
type browserFlags struct {
	strategy   string
	bin        string
	controlURL string
	noSandbox  bool
	stealth    bool
	headful    bool
}

// timingFlags override pipeline pacing. Empty means "keep config value".
type timingFlags struct {
	timeout     string
	scrollDelay string
	settle      string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common  commonFlags
	browser browserFlags
	timing  timingFlags
	output  string
	workers int
	html    bool
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common        commonFlags
	browser       browserFlags
	timing        timingFlags
	addr          string
	maxConcurrent int
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common  commonFlags
	browser browserFlags
	json    bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed progress and timing")
}

// addBrowserFlags adds driver selection flags to a FlagSet.
func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVar(&f.strategy, "strategy", "", "browser driver: fixed, dynamic")
	fs.StringVar(&f.bin, "browser-bin", "", "browser executable (fixed strategy)")
	fs.StringVar(&f.controlURL, "control-url", "", "DevTools URL of a running browser (fixed strategy)")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the browser sandbox (Docker/CI)")
	fs.BoolVar(&f.stealth, "stealth", false, "apply headless-detection evasions")
	fs.BoolVar(&f.headful, "headful", false, "show the browser window")
}

// addTimingFlags adds pacing flags to a FlagSet.
func addTimingFlags(fs *flag.FlagSet, f *timingFlags) {
	fs.StringVarP(&f.timeout, "timeout", "t", "", "print timeout (e.g., 60s, 2m)")
	fs.StringVar(&f.scrollDelay, "scroll-delay", "", "wait after each page is scrolled (e.g., 400ms)")
	fs.StringVar(&f.settle, "settle", "", "wait after navigation (e.g., 3s)")
}

// newConvertFlagSet registers every convert flag on a new FlagSet.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.StringVarP(&f.output, "output", "o", "", "output directory, or .pdf file for a single URL")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversions (0 = auto)")
	fs.BoolVar(&f.html, "html", false, "also write the sanitized HTML snapshot")
	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	addTimingFlags(fs, &f.timing)
	return fs
}

// newServeFlagSet registers every serve flag on a new FlagSet.
func newServeFlagSet(f *serveFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&f.addr, "addr", "", "listen address (default :8080)")
	fs.IntVar(&f.maxConcurrent, "max-concurrent", 0, "concurrent conversions (default 2)")
	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	addTimingFlags(fs, &f.timing)
	return fs
}

// newDoctorFlagSet registers every doctor flag on a new FlagSet.
func newDoctorFlagSet(f *doctorFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)
	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := newConvertFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printConvertUsage(stderr) }
	if err := parseFlagSet(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newServeFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printServeUsage(stderr) }
	if err := parseFlagSet(fs, args); err != nil {
		return nil, err
	}
	return f, nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, stderr io.Writer) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newDoctorFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printDoctorUsage(stderr) }
	if err := parseFlagSet(fs, args); err != nil {
		return nil, err
	}
	return f, nil
}

// parseFlagSet parses args, passing flag.ErrHelp through unchanged.
func parseFlagSet(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidFlags, err)
}
