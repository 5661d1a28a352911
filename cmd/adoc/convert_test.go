package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	adoc "github.com/alnah/go-adoc"
	"github.com/alnah/go-adoc/internal/config"
	"github.com/alnah/go-adoc/internal/pdfprint"
)

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	return doc
}

func TestExecute_ConvertsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "= Greeting\n\nHello {name}!\n")
	env := newTestEnv("")

	code := execute(context.Background(), []string{"-a", "name=World", src}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("execute() = %d, want %d; stderr: %s", code, ExitSuccess, env.stderr)
	}

	out := readFile(t, filepath.Join(dir, "doc.html"))
	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Errorf("output is not a standalone document: %.60q", out)
	}
	doc := mustParse(t, out)
	if got := doc.Find("title").Text(); got != "Greeting" {
		t.Errorf("title = %q, want %q", got, "Greeting")
	}
	if got := doc.Find("div.paragraph p").Text(); got != "Hello World!" {
		t.Errorf("paragraph = %q, want %q", got, "Hello World!")
	}
	if env.stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", env.stdout)
	}
}

func TestExecute_Stdin(t *testing.T) {
	t.Parallel()
	env := newTestEnv("Hello *stdin*\n")

	code := execute(context.Background(), []string{"-e", "-"}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("execute() = %d, want %d; stderr: %s", code, ExitSuccess, env.stderr)
	}
	out := env.stdout.String()
	if strings.Contains(out, "<!DOCTYPE") {
		t.Errorf("embedded output contains a doctype: %s", out)
	}
	if !strings.Contains(out, "<p>Hello <strong>stdin</strong></p>") {
		t.Errorf("stdout = %q, want converted paragraph", out)
	}
}

func TestExecute_OutFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n")
	env := newTestEnv("")

	t.Run("stdout", func(t *testing.T) {
		code := execute(context.Background(), []string{"-e", "-o", "-", src}, env.Environment)
		if code != ExitSuccess {
			t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
		}
		if !strings.Contains(env.stdout.String(), "<p>text</p>") {
			t.Errorf("stdout = %q", env.stdout)
		}
	})

	t.Run("path under destination dir", func(t *testing.T) {
		out := filepath.Join(dir, "build")
		code := execute(context.Background(), []string{"-D", out, "-o", "page.html", src}, env.Environment)
		if code != ExitSuccess {
			t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
		}
		if !strings.Contains(readFile(t, filepath.Join(out, "page.html")), "<p>text</p>") {
			t.Error("page.html missing converted content")
		}
	})
}

func TestExecute_DirectoryInput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "docs")
	writeFile(t, src, "index.adoc", "index\n")
	writeFile(t, src, "guide/setup.asciidoc", "setup\n")
	writeFile(t, src, "_partial.adoc", "partial\n")
	writeFile(t, src, "notes.txt", "not asciidoc\n")
	out := filepath.Join(dir, "site")
	env := newTestEnv("")

	code := execute(context.Background(), []string{"-w", "2", "-D", out, src}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
	}

	var got []string
	err := filepath.WalkDir(out, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(out, path)
			got = append(got, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"guide/setup.html", "index.html"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_PDF(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "= Report\n\nBody text.\n")
	env := newTestEnv("")

	code := execute(context.Background(), []string{"--pdf", "--page-size", "a4", "--pdf-timeout", "45s", src}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
	}

	if got := readFile(t, filepath.Join(dir, "doc.pdf")); !strings.HasPrefix(got, "%PDF") {
		t.Errorf("doc.pdf = %q, want PDF content", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.html")); !os.IsNotExist(err) {
		t.Error("doc.html written alongside the PDF")
	}
	if len(env.printers) != 1 {
		t.Fatalf("printers = %d, want 1", len(env.printers))
	}
	p := env.printers[0]
	if !p.closed {
		t.Error("printer not closed after the run")
	}
	if len(p.pages) != 1 || !strings.Contains(p.pages[0], "Body text.") {
		t.Errorf("printed pages = %q", p.pages)
	}
	if p.baseDir[0] != dir {
		t.Errorf("baseDir = %q, want %q", p.baseDir[0], dir)
	}
	if p.opts[0].PageSize != "a4" {
		t.Errorf("PageSize = %q, want a4", p.opts[0].PageSize)
	}
	if env.timeouts[0] != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", env.timeouts[0])
	}
}

func TestExecute_NoPrinterWithoutPDF(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n")
	env := newTestEnv("")

	if code := execute(context.Background(), []string{src}, env.Environment); code != ExitSuccess {
		t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
	}
	if len(env.printers) != 0 {
		t.Errorf("printers = %d, want 0", len(env.printers))
	}
}

func TestExecute_FailureLevel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n\nendif::missing[]\n")

	t.Run("default does not fail", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv("")
		code := execute(context.Background(), []string{"-o", "-", src}, env.Environment)
		if code != ExitSuccess {
			t.Errorf("execute() = %d, want %d", code, ExitSuccess)
		}
		if !strings.Contains(env.stderr.String(), "unmatched preprocessor directive") {
			t.Errorf("stderr = %q, want logged diagnostic", env.stderr)
		}
	})

	t.Run("warn fails the run", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv("")
		code := execute(context.Background(), []string{"--failure-level", "warn", "-o", "-", src}, env.Environment)
		if code != ExitFailureLevel {
			t.Errorf("execute() = %d, want %d", code, ExitFailureLevel)
		}
		if !strings.Contains(env.stdout.String(), "<p>text</p>") {
			t.Error("output not written when the failure level was reached")
		}
		if !strings.Contains(env.stderr.String(), ErrFailureLevel.Error()) {
			t.Errorf("stderr = %q, want failure level message", env.stderr)
		}
	})

	t.Run("quiet still counts", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv("")
		code := execute(context.Background(), []string{"-q", "--failure-level", "error", "-o", "-", src}, env.Environment)
		if code != ExitFailureLevel {
			t.Errorf("execute() = %d, want %d", code, ExitFailureLevel)
		}
	})
}

func TestExecute_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n")
	other := writeFile(t, dir, "other.adoc", "other\n")

	tests := []struct {
		name       string
		args       []string
		want       int
		wantStderr string
	}{
		{"no input", nil, ExitIO, "no input"},
		{"missing file", []string{filepath.Join(dir, "missing.adoc")}, ExitIO, "missing.adoc"},
		{"out file with many inputs", []string{"-o", "x.html", src, other}, ExitUsage, "--out-file"},
		{"unknown flag", []string{"--bogus", src}, ExitUsage, "unknown flag"},
		{"invalid safe mode", []string{"-S", "paranoid", src}, ExitUsage, "safeMode"},
		{"invalid backend", []string{"-b", "docbook", src}, ExitUsage, "backend"},
		{"invalid failure level", []string{"--failure-level", "debug", src}, ExitUsage, "failureLevel"},
		{"unknown extension", []string{"-r", "mermaid", src}, ExitUsage, "extensions"},
		{"negative workers", []string{"-w", "-1", src}, ExitUsage, "worker"},
		{"invalid page size", []string{"--pdf", "--page-size", "b5", src}, ExitUsage, "page.size"},
		{"missing config", []string{"-c", filepath.Join(dir, "nope.yaml"), src}, ExitUsage, "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv("")
			code := execute(context.Background(), tt.args, env.Environment)
			if code != tt.want {
				t.Errorf("execute(%q) = %d, want %d; stderr: %s", tt.args, code, tt.want, env.stderr)
			}
			if !strings.Contains(env.stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", env.stderr, tt.wantStderr)
			}
		})
	}
}

func TestExecute_BrowserError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n")
	env := newTestEnv("")
	env.printErr = pdfprint.ErrBrowserConnect

	code := execute(context.Background(), []string{"--pdf", src}, env.Environment)
	if code != ExitBrowser {
		t.Errorf("execute() = %d, want %d", code, ExitBrowser)
	}
	stderr := env.stderr.String()
	if !strings.Contains(stderr, "FAILED "+src) || !strings.Contains(stderr, "hint:") {
		t.Errorf("stderr = %q, want FAILED line with hint", stderr)
	}
}

func TestExecute_ConfigFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := writeFile(t, dir, "site.yaml", `attributes:
  product: Widget
  toc: true
embedded: true
extensions:
  - markdown
`)
	src := writeFile(t, dir, "doc.adoc", "= Title\n\n== Intro\n\nAbout {product}.\n\n[markdown]\n--\nSome **bold** text.\n--\n")
	env := newTestEnv("")

	code := execute(context.Background(), []string{"-c", cfg, "-o", "-", src}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
	}
	out := env.stdout.String()
	if strings.Contains(out, "<!DOCTYPE") {
		t.Error("config embedded: true not applied")
	}
	doc := mustParse(t, out)
	if got := doc.Find("#_intro + .sectionbody p").First().Text(); got != "About Widget." {
		t.Errorf("intro paragraph = %q, want %q", got, "About Widget.")
	}
	if doc.Find(".markdown strong").Text() != "bold" {
		t.Errorf("markdown block not rendered: %s", out)
	}

	t.Run("flags override config", func(t *testing.T) {
		env := newTestEnv("")
		code := execute(context.Background(), []string{"-c", cfg, "--embedded=false", "-a", "product=Gadget", "-o", "-", src}, env.Environment)
		if code != ExitSuccess {
			t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
		}
		out := env.stdout.String()
		if !strings.HasPrefix(out, "<!DOCTYPE html>") {
			t.Error("--embedded=false did not override config")
		}
		if !strings.Contains(out, "About Gadget.") {
			t.Error("-a did not override config attribute")
		}
	})
}

func TestExecute_CopyStylesheet(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n")
	out := filepath.Join(dir, "out")
	env := newTestEnv("")

	code := execute(context.Background(), []string{"-a", "linkcss", "-a", "copycss", "-a", "stylesdir=css", "-D", out, src}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("execute() = %d; stderr: %s", code, env.stderr)
	}
	if css := readFile(t, filepath.Join(out, "css", "adoc.css")); css == "" {
		t.Error("copied stylesheet is empty")
	}
	doc := mustParse(t, readFile(t, filepath.Join(out, "doc.html")))
	if href, _ := doc.Find(`link[rel="stylesheet"]`).First().Attr("href"); href != "css/adoc.css" {
		t.Errorf("stylesheet href = %q, want %q", href, "css/adoc.css")
	}
}

func TestExecute_HelpAndVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"version", []string{"--version"}, "adoc " + adoc.Version},
		{"short version", []string{"-V"}, "adoc " + adoc.Version},
		{"help flag", []string{"-h"}, "Usage: adoc"},
		{"help command", []string{"help"}, "Exit status:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv("")
			if code := execute(context.Background(), tt.args, env.Environment); code != ExitSuccess {
				t.Errorf("execute(%q) = %d, want %d", tt.args, code, ExitSuccess)
			}
			if !strings.Contains(env.stdout.String(), tt.want) {
				t.Errorf("stdout = %q, want it to contain %q", env.stdout, tt.want)
			}
		})
	}
}

func TestExecute_Canceled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeFile(t, dir, "doc.adoc", "text\n")
	env := newTestEnv("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if code := execute(ctx, []string{src}, env.Environment); code != ExitGeneral {
		t.Errorf("execute() = %d, want %d", code, ExitGeneral)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.html")); !os.IsNotExist(err) {
		t.Error("output written after cancellation")
	}
}

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		file    FileToConvert
		outFile string
		destDir string
		want    string
	}{
		{"next to source", FileToConvert{InputPath: filepath.Join("docs", "a.adoc")}, "", "", filepath.Join("docs", "a.html")},
		{"destination dir", FileToConvert{InputPath: filepath.Join("docs", "a.adoc")}, "", "out", filepath.Join("out", "a.html")},
		{"keeps structure", FileToConvert{InputPath: filepath.Join("docs", "sub", "a.adoc"), Root: "docs"}, "", "out", filepath.Join("out", "sub", "a.html")},
		{"explicit out file", FileToConvert{InputPath: "a.adoc"}, "b.htm", "", "b.htm"},
		{"out file in destination", FileToConvert{InputPath: "a.adoc"}, "b.htm", "out", filepath.Join("out", "b.htm")},
		{"stdout out file", FileToConvert{InputPath: "a.adoc"}, "-", "out", ""},
		{"stdin to stdout", FileToConvert{InputPath: stdinName}, "", "out", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveOutputPath(tt.file, tt.outFile, tt.destDir, ".html"); got != tt.want {
				t.Errorf("resolveOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeFlags(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Backend:    "html5",
		Embedded:   true,
		Workers:    4,
		Extensions: []string{"markdown"},
		PDF:        config.PDFConfig{Timeout: "10s"},
	}
	f, _, err := parseFlags([]string{"-b", "xhtml5", "--embedded=false", "-r", "markdown", "--pdf", "--pdf-timeout", "1m"}, newTestEnv("").stderr)
	if err != nil {
		t.Fatal(err)
	}
	mergeFlags(f, cfg)

	if cfg.Backend != "xhtml5" {
		t.Errorf("Backend = %q, want xhtml5", cfg.Backend)
	}
	if cfg.Embedded {
		t.Error("Embedded = true, want false")
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if diff := cmp.Diff([]string{"markdown"}, cfg.Extensions); diff != "" {
		t.Errorf("Extensions mismatch (-want +got):\n%s", diff)
	}
	if !cfg.PDF.Enabled || cfg.PDF.Timeout != "1m0s" {
		t.Errorf("PDF = %+v, want enabled with 1m0s timeout", cfg.PDF)
	}
}

func TestBuildExtensions(t *testing.T) {
	t.Parallel()
	if _, err := buildExtensions([]string{"Markdown"}); err != nil {
		t.Errorf("buildExtensions(Markdown) error = %v", err)
	}
	if _, err := buildExtensions([]string{"mermaid"}); !errors.Is(err, ErrUnknownExtension) {
		t.Errorf("buildExtensions(mermaid) error = %v, want ErrUnknownExtension", err)
	}
}
