package main

import (
	"context"
	"errors"
	"os"

	flag "github.com/spf13/pflag"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
	"github.com/alnah/go-scribd2pdf/internal/config"
	"github.com/alnah/go-scribd2pdf/internal/fileutil"
)

// Exit codes for scribd2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0   // Successful conversion
	ExitGeneral   = 1   // General/unexpected error
	ExitUsage     = 2   // Invalid flags, config, URL, or validation
	ExitIO        = 3   // Output not writable
	ExitBrowser   = 4   // Browser could not start, load, or print
	ExitInterrupt = 130 // SIGINT, per shell convention
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Browser errors (exit 4)
	if errors.Is(err, scribd2pdf.ErrDriverUnavailable) ||
		errors.Is(err, scribd2pdf.ErrNavigationTimeout) ||
		errors.Is(err, scribd2pdf.ErrRenderFailure) ||
		errors.Is(err, scribd2pdf.ErrScrollFailure) ||
		errors.Is(err, scribd2pdf.ErrSanitizeFailure) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrWriteHTML) ||
		errors.Is(err, fileutil.ErrNotDirectory) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, scribd2pdf.ErrInvalidURLFormat) ||
		errors.Is(err, scribd2pdf.ErrInvalidStrategy) ||
		errors.Is(err, scribd2pdf.ErrInvalidTiming) ||
		errors.Is(err, scribd2pdf.ErrInvalidMargin) ||
		errors.Is(err, scribd2pdf.ErrInvalidMarker) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrOutputFileWithBatch) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, ErrInvalidFlags) ||
		errors.Is(err, flag.ErrHelp) {
		return ExitUsage
	}

	return ExitGeneral
}
