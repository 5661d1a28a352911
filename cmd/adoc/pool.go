package main

import (
	"context"
	"runtime"
	"sync"

	"github.com/alnah/go-adoc/internal/pdfprint"
)

// Printer prints converted HTML to PDF.
type Printer interface {
	Print(ctx context.Context, html, baseDir string, opts pdfprint.Options) ([]byte, error)
	Close() error
}

var _ Printer = (*pdfprint.Printer)(nil)

// PrinterPool manages PDF printers for parallel --pdf conversions. Each
// printer owns a browser, so printers are created lazily on first acquire
// to avoid launching browsers that are never used.
type PrinterPool struct {
	size     int
	newFn    func() Printer
	printers []Printer
	sem      chan Printer
	mu       sync.Mutex
	created  int
	closed   bool
}

// NewPrinterPool creates a pool with capacity for n printers made by newFn.
func NewPrinterPool(n int, newFn func() Printer) *PrinterPool {
	if n < 1 {
		n = 1
	}
	return &PrinterPool{
		size:     n,
		newFn:    newFn,
		printers: make([]Printer, 0, n),
		sem:      make(chan Printer, n),
	}
}

// Acquire gets a printer from the pool, creating one if needed.
// Blocks if all printers are in use.
func (p *PrinterPool) Acquire() Printer {
	select {
	case pr := <-p.sem:
		return pr
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		pr := p.newFn()

		p.mu.Lock()
		p.printers = append(p.printers, pr)
		p.mu.Unlock()
		return pr
	}
	p.mu.Unlock()

	return <-p.sem
}

// Release returns a printer to the pool.
func (p *PrinterPool) Release(pr Printer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.sem <- pr
	}
}

// Close releases all browser resources.
func (p *PrinterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	printers := p.printers
	p.mu.Unlock()

	var lastErr error
	for _, pr := range printers {
		if err := pr.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Size returns the pool capacity.
func (p *PrinterPool) Size() int {
	return p.size
}

// resolvePoolSize determines the worker count.
// Priority: explicit value > GOMAXPROCS-based calculation.
func resolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers
	n := runtime.GOMAXPROCS(0) / 2
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
