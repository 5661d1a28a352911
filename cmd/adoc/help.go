package main

import (
	"fmt"
	"io"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: adoc [flags] <file|dir|->...")
	fmt.Fprintln(w, "       adoc doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert AsciiDoc documents to HTML, or to PDF with --pdf.")
	fmt.Fprintln(w, "Directories are scanned for .adoc, .asciidoc, .asc and .ad files;")
	fmt.Fprintln(w, "files starting with _ are skipped. Use - to read standard input.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Document:")
	fmt.Fprintln(w, "  -b, --backend <s>          Backend: html5 (default), xhtml5")
	fmt.Fprintln(w, "  -d, --doctype <s>          Doctype: article (default), book, manpage, inline")
	fmt.Fprintln(w, "  -a, --attribute <s>        Set an attribute: name, name=value, name=value@, name!")
	fmt.Fprintln(w, "  -e, --embedded             Omit the document header and footer")
	fmt.Fprintln(w, "      --sourcemap            Record source file and line on blocks")
	fmt.Fprintln(w, "  -r, --require <s>          Enable a bundled extension: markdown")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Safety:")
	fmt.Fprintln(w, "  -S, --safe-mode <s>        Safe mode: unsafe (default), safe, server, secure")
	fmt.Fprintln(w, "  -B, --base-dir <path>      Base directory for includes and relative paths")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --out-file <path>      Output file, or - for standard output")
	fmt.Fprintln(w, "  -D, --destination-dir <p>  Directory for output files")
	fmt.Fprintln(w, "  -c, --config <name>        Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>          Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PDF:")
	fmt.Fprintln(w, "      --pdf                  Print the HTML output to PDF with headless Chrome")
	fmt.Fprintln(w, "      --pdf-timeout <d>      Page load timeout (default 30s)")
	fmt.Fprintln(w, "      --page-size <s>        Page size: letter (default), legal, a4, a5")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Diagnostics:")
	fmt.Fprintln(w, "      --failure-level <s>    Exit with status 5 when a diagnostic at this level")
	fmt.Fprintln(w, "                             is logged: info, warn, error, fatal (default)")
	fmt.Fprintln(w, "  -q, --quiet                Only log errors")
	fmt.Fprintln(w, "  -v, --verbose              Log informational messages and timings")
	fmt.Fprintln(w, "  -V, --version              Print the version and exit")
	fmt.Fprintln(w, "  -h, --help                 Print this help and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit status:")
	fmt.Fprintln(w, "  0 success, 1 conversion error, 2 usage or config error, 3 I/O error,")
	fmt.Fprintln(w, "  4 browser error, 5 failure level reached")
}
