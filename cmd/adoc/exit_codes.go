package main

import (
	"errors"
	"os"

	flag "github.com/spf13/pflag"

	adoc "github.com/alnah/go-adoc"
	"github.com/alnah/go-adoc/internal/config"
	"github.com/alnah/go-adoc/internal/pdfprint"
)

// Exit codes for the adoc CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess      = 0 // All documents converted
	ExitGeneral      = 1 // General/unexpected error
	ExitUsage        = 2 // Invalid flags, config, or option values
	ExitIO           = 3 // File not found, permission denied, unwritable output
	ExitBrowser      = 4 // Browser/Chrome errors during --pdf
	ExitFailureLevel = 5 // Diagnostics reached --failure-level
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, pdfprint.ErrBrowserConnect) ||
		errors.Is(err, pdfprint.ErrPageCreate) ||
		errors.Is(err, pdfprint.ErrPageLoad) ||
		errors.Is(err, pdfprint.ErrPDFGeneration) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, adoc.ErrReadSource) ||
		errors.Is(err, adoc.ErrIncludeNotFound) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, flag.ErrHelp) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, adoc.ErrInvalidSafeMode) ||
		errors.Is(err, adoc.ErrInvalidDoctype) ||
		errors.Is(err, adoc.ErrUnknownBackend) ||
		errors.Is(err, pdfprint.ErrPageSize) ||
		errors.Is(err, ErrUnknownExtension) ||
		errors.Is(err, ErrInvalidFailureLevel) ||
		errors.Is(err, ErrInvalidWorkerCount) {
		return ExitUsage
	}

	if errors.Is(err, ErrFailureLevel) {
		return ExitFailureLevel
	}

	return ExitGeneral
}
