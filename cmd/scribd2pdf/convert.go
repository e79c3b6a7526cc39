package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
	"github.com/alnah/go-scribd2pdf/internal/fileutil"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput             = errors.New("no document URL specified")
	ErrWritePDF            = errors.New("failed to write PDF file")
	ErrWriteHTML           = errors.New("failed to write HTML file")
	ErrInvalidWorkerCount  = errors.New("invalid worker count")
	ErrOutputFileWithBatch = errors.New("a .pdf output path accepts exactly one URL")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// CLIConverter is the interface for the conversion service.
type CLIConverter interface {
	Convert(ctx context.Context, input scribd2pdf.Input) (*scribd2pdf.RenderResult, error)
}

// Compile-time interface implementation check.
var _ CLIConverter = (*scribd2pdf.Converter)(nil)

// DocumentToConvert represents a single document to process.
type DocumentToConvert struct {
	URL        string
	Reference  scribd2pdf.DocumentReference
	OutputPath string
}

// batchError reports failed conversions whose details were already printed.
// It unwraps to the first failure so the exit code reflects its cause.
type batchError struct {
	failed int
	first  error
}

func (e *batchError) Error() string { return fmt.Sprintf("%d conversion(s) failed", e.failed) }
func (e *batchError) Unwrap() error { return e.first }

// runConvert orchestrates the conversion process.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, urls, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return ErrNoInput
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, err := resolveConfig(flags.common, flags.browser, flags.timing, env)
	if err != nil {
		return err
	}
	if flags.html {
		cfg.Output.HTML = true
	}

	log := newCLILogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	defer func() { _ = log.Sync() }()

	docs, err := planDocuments(urls, flags.output, cfg, log)
	if err != nil {
		return err
	}

	conv, err := newConverter(cfg, env, log)
	if err != nil {
		return err
	}

	workers := cfg.Output.Workers
	if flags.workers > 0 {
		workers = flags.workers
	}
	poolSize := resolvePoolSize(workers)
	log.Info("starting conversion", zap.Int("documents", len(docs)), zap.Int("workers", poolSize))

	params := &batchParams{
		html:    cfg.Output.HTML,
		workers: poolSize,
		newReporter: func(doc DocumentToConvert) scribd2pdf.Reporter {
			if flags.common.quiet {
				return scribd2pdf.NopReporter{}
			}
			return newTerminalReporter(env.Stderr, doc.Reference.Filename(), flags.common.verbose)
		},
	}
	results := convertBatch(ctx, conv, docs, params)

	failedCount := printResultsWithWriter(results, flags.common.quiet, flags.common.verbose, env)
	if failedCount > 0 {
		return &batchError{failed: failedCount, first: firstError(results)}
	}
	return nil
}

// planDocuments parses every URL and assigns its output path.
// A -o value ending in .pdf names the file for a single URL; any other
// value is a directory. URLs naming the same document are converted once.
func planDocuments(urls []string, output string, cfg *config.Config, log *zap.Logger) ([]DocumentToConvert, error) {
	refs := make([]scribd2pdf.DocumentReference, 0, len(urls))
	seen := make(map[uint64]bool, len(urls))
	for _, raw := range urls {
		ref, err := scribd2pdf.ParseReference(raw)
		if err != nil {
			return nil, err
		}
		if seen[ref.ID()] {
			log.Warn("skipping duplicate document", zap.String("url", raw), zap.Uint64("doc_id", ref.ID()))
			continue
		}
		seen[ref.ID()] = true
		refs = append(refs, ref)
	}

	if fileutil.HasExtension(output, ".pdf") {
		if len(refs) != 1 {
			return nil, fmt.Errorf("%w: got %d", ErrOutputFileWithBatch, len(refs))
		}
		if err := fileutil.EnsureDir(filepath.Dir(output), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
		return []DocumentToConvert{{URL: refs[0].SourceURL(), Reference: refs[0], OutputPath: output}}, nil
	}

	dir := resolveOutputDir(output, cfg)
	if err := fileutil.EnsureDir(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	docs := make([]DocumentToConvert, 0, len(refs))
	for _, ref := range refs {
		docs = append(docs, DocumentToConvert{
			URL:        ref.SourceURL(),
			Reference:  ref,
			OutputPath: filepath.Join(dir, ref.Filename()),
		})
	}
	return docs, nil
}

// resolveOutputDir determines the output directory.
// Priority: -o flag, then output.defaultDir, then the current directory.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	if cfg.Output.DefaultDir != "" {
		return cfg.Output.DefaultDir
	}
	return "."
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}

// resolvePoolSize determines the number of parallel conversions.
// Each one runs its own browser, so the auto value stays small.
func resolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	n := runtime.GOMAXPROCS(0) / 2

	// Minimum 1, maximum 8
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
