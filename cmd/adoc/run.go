package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	adoc "github.com/alnah/go-adoc"
	"github.com/alnah/go-adoc/internal/config"
	"github.com/alnah/go-adoc/internal/hints"
	"github.com/alnah/go-adoc/internal/pdfprint"
)

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, env *Environment) int {
	if len(args) > 0 {
		switch args[0] {
		case "help":
			printUsage(env.Stdout)
			return ExitSuccess
		case "doctor":
			return runDoctorCmd(args[1:], env)
		}
	}

	f, inputs, err := parseFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(env.Stdout)
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "adoc: %v\n", err)
		fmt.Fprintln(env.Stderr, "Run 'adoc --help' for usage.")
		return ExitUsage
	}
	if f.help {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	if f.version {
		fmt.Fprintf(env.Stdout, "adoc %s\n", adoc.Version)
		return ExitSuccess
	}

	if err := run(ctx, f, inputs, env); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(env.Stderr, "adoc: %v%s\n", err, hintFor(err, f.safeMode))
		}
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// errReported marks an error whose details were already printed per file.
var errReported = errors.New("conversion failed")

func run(ctx context.Context, f *cliFlags, inputs []string, env *Environment) error {
	if f.workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkerCount, f.workers)
	}
	if f.outFile != "" && len(inputs) > 1 {
		return fmt.Errorf("%w: --out-file cannot be used with multiple inputs", ErrUsage)
	}

	cfg := config.DefaultConfig()
	if f.config != "" {
		loaded, err := config.LoadConfig(f.config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	mergeFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	failure, err := parseFailureLevel(cfg.FailureLevel)
	if err != nil {
		return err
	}
	logger, counter := newLogger(env.Stderr, env.Terminal, displayLevel(f.quiet, f.verbose), failure)

	params, err := buildParams(cfg, f, logger)
	if err != nil {
		return err
	}
	timeout, err := pdfTimeout(cfg)
	if err != nil {
		return err
	}

	files, err := discoverFiles(inputs)
	if err != nil {
		return err
	}
	if f.outFile != "" && len(files) > 1 {
		return fmt.Errorf("%w: --out-file cannot be used with multiple inputs", ErrUsage)
	}

	pool := NewPrinterPool(resolvePoolSize(cfg.Workers), func() Printer { return env.NewPrinter(timeout) })
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing PDF printers")
		}
	}()
	logger.Info().Int("files", len(files)).Int("workers", pool.Size()).Bool("pdf", params.pdf).Msg("converting")

	results := convertBatch(ctx, pool, files, params, env)
	if err := printResults(results, f.quiet, f.verbose, env, cfg.SafeMode); err != nil {
		return fmt.Errorf("%w: %w", errReported, err)
	}

	if counter.Reached() {
		level := cfg.FailureLevel
		fmt.Fprintf(env.Stderr, "adoc: %v%s\n", ErrFailureLevel, hints.ForFailureLevel(level))
		return fmt.Errorf("%w: %w", errReported, ErrFailureLevel)
	}
	return nil
}

// hintFor returns the actionable hint for err, if any.
func hintFor(err error, safeMode string) string {
	switch {
	case errors.Is(err, pdfprint.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, pdfprint.ErrPageLoad):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths(configName(err)))
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	case errors.Is(err, adoc.ErrSecurity), errors.Is(err, adoc.ErrUnsupportedURIRead):
		return hints.ForSafeMode(strings.ToLower(safeMode))
	case errors.Is(err, adoc.ErrUnknownBackend):
		return hints.ForUnknownName(adoc.DefaultConverterFactory().Backends())
	case errors.Is(err, ErrUnknownExtension):
		return hints.ForUnknownName(config.Extensions)
	}
	return ""
}

// configName extracts the searched name from a config lookup error, which
// ends with the list of tried files.
func configName(err error) string {
	msg := err.Error()
	_, tried, ok := strings.Cut(msg, "tried ")
	if !ok {
		return config.AppName
	}
	first, _, _ := strings.Cut(tried, ",")
	return strings.TrimSuffix(strings.TrimSuffix(first, ".yaml"), ".yml")
}
