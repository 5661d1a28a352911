package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	adoc "github.com/alnah/go-adoc"
	"github.com/alnah/go-adoc/extensions/markdown"
	"github.com/alnah/go-adoc/internal/assets"
	"github.com/alnah/go-adoc/internal/config"
	"github.com/alnah/go-adoc/internal/fileutil"
	"github.com/alnah/go-adoc/internal/pdfprint"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput             = errors.New("no input specified")
	ErrWriteOutput         = errors.New("failed to write output file")
	ErrUsage               = errors.New("invalid usage")
	ErrUnknownExtension    = errors.New("unknown extension")
	ErrInvalidFailureLevel = errors.New("invalid failure level")
	ErrInvalidWorkerCount  = errors.New("invalid worker count")
	ErrFailureLevel        = errors.New("failure level reached")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// stdinName is the input argument reading the document from standard input.
const stdinName = "-"

// sourceExtensions are the file extensions picked up when a directory is
// given as input.
var sourceExtensions = []string{".adoc", ".asciidoc", ".asc", ".ad"}

// FileToConvert represents a single document to process. Root is the
// directory argument the file was found under, if any.
type FileToConvert struct {
	InputPath string
	Root      string
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// conversionParams groups the settings shared by every file of a run.
type conversionParams struct {
	options    []adoc.Option
	outFile    string
	destDir    string
	pdf        bool
	pdfOptions pdfprint.Options
	logger     zerolog.Logger
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(f *cliFlags, cfg *config.Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.Backend, f.backend)
	setString(&cfg.Doctype, f.doctype)
	setString(&cfg.SafeMode, f.safeMode)
	setString(&cfg.BaseDir, f.baseDir)
	setString(&cfg.DestinationDir, f.destinationDir)
	setString(&cfg.FailureLevel, f.failureLevel)
	setString(&cfg.PDF.Page.Size, f.pageSize)
	if f.changed["embedded"] {
		cfg.Embedded = f.embedded
	}
	if f.changed["sourcemap"] {
		cfg.Sourcemap = f.sourcemap
	}
	if f.changed["pdf"] {
		cfg.PDF.Enabled = f.pdf
	}
	if f.pdfTimeout > 0 {
		cfg.PDF.Timeout = f.pdfTimeout.String()
	}
	if f.changed["workers"] {
		cfg.Workers = f.workers
	}
	for _, name := range f.requires {
		if !slices.Contains(cfg.Extensions, name) {
			cfg.Extensions = append(cfg.Extensions, name)
		}
	}
}

// buildParams turns the merged configuration into load options.
func buildParams(cfg *config.Config, f *cliFlags, logger zerolog.Logger) (*conversionParams, error) {
	safe := adoc.SafeModeUnsafe
	if cfg.SafeMode != "" {
		var err error
		if safe, err = adoc.ParseSafeMode(cfg.SafeMode); err != nil {
			return nil, err
		}
	}

	opts := []adoc.Option{
		adoc.WithSafeMode(safe),
		adoc.WithStandalone(!cfg.Embedded),
		adoc.WithSourcemap(cfg.Sourcemap),
		adoc.WithLogger(logger),
	}
	if cfg.Backend != "" {
		opts = append(opts, adoc.WithBackend(strings.ToLower(cfg.Backend)))
	}
	if cfg.Doctype != "" {
		opts = append(opts, adoc.WithDoctype(strings.ToLower(cfg.Doctype)))
	}
	if cfg.BaseDir != "" {
		opts = append(opts, adoc.WithBaseDir(cfg.BaseDir))
	}
	if len(cfg.Attributes) > 0 {
		opts = append(opts, adoc.WithAttributeMap(cfg.Attributes))
	}
	for _, a := range f.attributes {
		if name, value, ok := strings.Cut(a, "="); ok {
			opts = append(opts, adoc.WithAttribute(name, value))
		} else {
			opts = append(opts, adoc.WithAttributes(a))
		}
	}

	exts, err := buildExtensions(cfg.Extensions)
	if err != nil {
		return nil, err
	}
	opts = append(opts, adoc.WithExtensions(exts))

	p := &conversionParams{
		options: opts,
		outFile: f.outFile,
		destDir: cfg.DestinationDir,
		pdf:     cfg.PDF.Enabled,
		logger:  logger,
	}
	if p.pdf {
		p.pdfOptions = pdfprint.Options{
			PageSize:     cfg.PDF.Page.Size,
			MarginInches: cfg.PDF.Page.Margin,
		}
		if cfg.PDF.Footer.Enabled {
			p.pdfOptions.Footer = &pdfprint.Footer{
				ShowPageNumber: cfg.PDF.Footer.ShowPageNumber,
				Text:           cfg.PDF.Footer.Text,
				Position:       cfg.PDF.Footer.Position,
			}
		}
	}
	return p, nil
}

// buildExtensions returns a private extension set with the named bundled
// extensions registered.
func buildExtensions(names []string) (*adoc.Extensions, error) {
	exts := adoc.NewExtensions()
	for _, name := range names {
		switch strings.ToLower(name) {
		case markdown.Name:
			markdown.Register(exts)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
		}
	}
	return exts, nil
}

// pdfTimeout parses the configured timeout, where empty means the default.
func pdfTimeout(cfg *config.Config) (time.Duration, error) {
	if cfg.PDF.Timeout == "" {
		return pdfprint.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(cfg.PDF.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: pdf.timeout: %q", config.ErrInvalidValue, cfg.PDF.Timeout)
	}
	return d, nil
}

// discoverFiles expands the input arguments. Directories are walked for
// AsciiDoc sources, skipping files whose name starts with an underscore,
// which by convention are partials meant to be included.
func discoverFiles(inputs []string) ([]FileToConvert, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}
	var files []FileToConvert
	for _, in := range inputs {
		if in == stdinName {
			files = append(files, FileToConvert{InputPath: stdinName})
			continue
		}
		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, FileToConvert{InputPath: in})
			continue
		}
		err = filepath.WalkDir(in, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), "_") {
				return nil
			}
			if slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(path))) {
				files = append(files, FileToConvert{InputPath: path, Root: in})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no AsciiDoc files found in %s", ErrNoInput, strings.Join(inputs, ", "))
	}
	return files, nil
}

// resolveOutputPath determines where the output of f goes. An empty
// result means standard output.
func resolveOutputPath(f FileToConvert, outFile, destDir, suffix string) string {
	switch {
	case outFile == stdinName:
		return ""
	case outFile != "":
		if destDir != "" && !filepath.IsAbs(outFile) {
			return filepath.Join(destDir, outFile)
		}
		return outFile
	case f.InputPath == stdinName:
		return ""
	}

	base := fileutil.ReplaceExt(filepath.Base(f.InputPath), suffix)
	if destDir == "" {
		return filepath.Join(filepath.Dir(f.InputPath), base)
	}
	if f.Root != "" {
		if rel, err := filepath.Rel(f.Root, filepath.Dir(f.InputPath)); err == nil {
			return filepath.Join(destDir, rel, base)
		}
	}
	return filepath.Join(destDir, base)
}

// convertBatch converts files concurrently. Printers are only acquired
// when the run prints PDFs.
func convertBatch(ctx context.Context, pool *PrinterPool, files []FileToConvert, params *conversionParams, env *Environment) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(files))
	results := make([]ConversionResult, len(files))
	var wg sync.WaitGroup
	var stdoutMu sync.Mutex
	jobs := make(chan int, len(files))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var printer Printer
			if params.pdf {
				printer = pool.Acquire()
				defer pool.Release(printer)
			}

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = convertFile(ctx, files[idx], printer, params, env, &stdoutMu)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertFile converts a single document and writes its output.
func convertFile(ctx context.Context, f FileToConvert, printer Printer, params *conversionParams, env *Environment, stdoutMu *sync.Mutex) ConversionResult {
	start := time.Now()
	result := ConversionResult{InputPath: f.InputPath}
	fail := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	doc, err := loadDocument(f, params, env)
	if err != nil {
		return fail(err)
	}
	output, err := doc.Convert()
	if err != nil {
		return fail(err)
	}

	suffix := doc.Outfilesuffix()
	if params.pdf {
		suffix = ".pdf"
	}
	outPath := resolveOutputPath(f, params.outFile, params.destDir, suffix)
	result.OutputPath = outPath

	data := []byte(output)
	if params.pdf {
		if data, err = printer.Print(ctx, output, doc.BaseDir(), params.pdfOptions); err != nil {
			return fail(err)
		}
	}

	if outPath == "" {
		stdoutMu.Lock()
		err = writeStdout(env.Stdout, data, params.pdf)
		stdoutMu.Unlock()
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrWriteOutput, err))
		}
		result.OutputPath = "<stdout>"
		result.Duration = time.Since(start)
		return result
	}

	if err := os.MkdirAll(filepath.Dir(outPath), dirPermissions); err != nil {
		return fail(fmt.Errorf("%w: creating output directory: %v", ErrWriteOutput, err))
	}
	// #nosec G306 -- converted documents are meant to be readable
	if err := os.WriteFile(outPath, data, filePermissions); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrWriteOutput, err))
	}
	if !params.pdf {
		if err := copyStylesheet(doc, filepath.Dir(outPath)); err != nil {
			params.logger.Warn().Str("source", f.InputPath).Err(err).Msg("could not copy stylesheet")
		}
	}

	result.Duration = time.Since(start)
	return result
}

func loadDocument(f FileToConvert, params *conversionParams, env *Environment) (*adoc.Document, error) {
	if f.InputPath != stdinName {
		return adoc.LoadFile(f.InputPath, params.options...)
	}
	src, err := io.ReadAll(env.Stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: standard input: %v", adoc.ErrReadSource, err)
	}
	return adoc.Load(string(src), params.options...)
}

func writeStdout(w io.Writer, data []byte, binary bool) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if binary || len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// copyStylesheet writes the default stylesheet next to a standalone output
// that links it, when the copycss attribute asks for it.
func copyStylesheet(doc *adoc.Document, outDir string) error {
	if !doc.IsAttribute("linkcss") || !doc.IsAttribute("copycss") {
		return nil
	}
	if sheet, _ := doc.Attribute("stylesheet"); sheet != "" && sheet != "DEFAULT" {
		return nil
	}
	stylesdir, _ := doc.Attribute("stylesdir")
	if fileutil.IsURL(stylesdir) || filepath.IsAbs(stylesdir) {
		return nil
	}
	css, err := assets.LoadStyle(assets.DefaultStyleName)
	if err != nil {
		return err
	}
	dir := filepath.Join(outDir, filepath.FromSlash(stylesdir))
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}
	// #nosec G306 -- stylesheets are meant to be readable
	return os.WriteFile(filepath.Join(dir, assets.DefaultStylesheetName), []byte(css), filePermissions)
}

// printResults reports failures on stderr and, when verbose, each output
// on stdout. It returns the first error.
func printResults(results []ConversionResult, quiet, verbose bool, env *Environment, safeMode string) error {
	var first error
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			if first == nil {
				first = r.Err
			}
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err, safeMode))
			continue
		}
		if verbose && !quiet {
			fmt.Fprintf(env.Stderr, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		}
	}
	if verbose && !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stderr, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return first
}
