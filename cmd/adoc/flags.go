package main

import (
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	backend        string
	doctype        string
	attributes     []string
	safeMode       string
	baseDir        string
	destinationDir string
	outFile        string
	embedded       bool
	sourcemap      bool
	config         string
	workers        int
	failureLevel   string
	pdf            bool
	pdfTimeout     time.Duration
	pageSize       string
	requires       []string
	quiet          bool
	verbose        bool
	version        bool
	help           bool

	// changed records the flags given explicitly, so that zero values
	// still override the config file.
	changed map[string]bool
}

// newFlagSet registers every flag on a new FlagSet bound to f.
func newFlagSet(f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("adoc", flag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVarP(&f.backend, "backend", "b", "", "backend: html5 (default), xhtml5")
	fs.StringVarP(&f.doctype, "doctype", "d", "", "doctype: article (default), book, manpage, inline")
	fs.StringArrayVarP(&f.attributes, "attribute", "a", nil, "set an attribute: name, name=value, name=value@, name!")
	fs.StringVarP(&f.safeMode, "safe-mode", "S", "", "safe mode: unsafe (default), safe, server, secure")
	fs.StringVarP(&f.baseDir, "base-dir", "B", "", "base directory for includes and relative paths")
	fs.StringVarP(&f.destinationDir, "destination-dir", "D", "", "directory for output files")
	fs.StringVarP(&f.outFile, "out-file", "o", "", "output file, or - for standard output")
	fs.BoolVarP(&f.embedded, "embedded", "e", false, "omit the document header and footer")
	fs.BoolVar(&f.sourcemap, "sourcemap", false, "record source file and line on blocks")
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVar(&f.failureLevel, "failure-level", "", "exit with status 5 when a diagnostic at this level is logged: info, warn, error, fatal (default)")
	fs.BoolVar(&f.pdf, "pdf", false, "print the HTML output to PDF with headless Chrome")
	fs.DurationVar(&f.pdfTimeout, "pdf-timeout", 0, "page load timeout for --pdf (e.g. 45s)")
	fs.StringVar(&f.pageSize, "page-size", "", "PDF page size: letter (default), legal, a4, a5")
	fs.StringArrayVarP(&f.requires, "require", "r", nil, "enable a bundled extension: markdown")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only log errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log informational messages and timings")
	fs.BoolVarP(&f.version, "version", "V", false, "print the version and exit")
	fs.BoolVarP(&f.help, "help", "h", false, "print this help and exit")
	return fs
}

// parseFlags parses args, without the program name, and returns the
// positional arguments.
func parseFlags(args []string, stderr io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{changed: map[string]bool{}}
	fs := newFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.changed[fl.Name] = true })
	return f, fs.Args(), nil
}
