package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-adoc/internal/pdfprint"
)

// fakePrinter records printed pages and returns a fixed PDF body.
type fakePrinter struct {
	mu      sync.Mutex
	pages   []string
	baseDir []string
	opts    []pdfprint.Options
	err     error
	closed  bool
}

func (p *fakePrinter) Print(_ context.Context, html, baseDir string, opts pdfprint.Options) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.pages = append(p.pages, html)
	p.baseDir = append(p.baseDir, baseDir)
	p.opts = append(p.opts, opts)
	return []byte("%PDF-1.7 fake"), nil
}

func (p *fakePrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

var errFakeClose = errors.New("close failed")

type failingClosePrinter struct{ fakePrinter }

func (p *failingClosePrinter) Close() error { return errFakeClose }

// testEnv returns an environment writing to buffers. Printers made by the
// environment are appended to printers.
type testEnv struct {
	*Environment
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	mu       sync.Mutex
	printers []*fakePrinter
	timeouts []time.Duration
	printErr error
}

func newTestEnv(stdin string) *testEnv {
	te := &testEnv{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
		Stdin:  strings.NewReader(stdin),
		Stdout: te.stdout,
		Stderr: te.stderr,
		NewPrinter: func(timeout time.Duration) Printer {
			te.mu.Lock()
			defer te.mu.Unlock()
			p := &fakePrinter{err: te.printErr}
			te.printers = append(te.printers, p)
			te.timeouts = append(te.timeouts, timeout)
			return p
		},
	}
	return te
}

// writeFile creates name under dir with content, making parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}
