// Package pdfprint prints converted HTML documents to PDF with headless
// Chrome driven by go-rod.
package pdfprint

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-adoc/internal/fileutil"
)

// DefaultTimeout bounds page loading when the context has no deadline.
const DefaultTimeout = 30 * time.Second

const (
	defaultMarginInches    = 0.5
	footerMarginInches     = 0.75
	footerFontFamily       = `-apple-system, "Segoe UI", "Noto Sans", Helvetica, Arial, sans-serif`
	emptyTemplate          = "<span></span>"
	pageNumberPlaceholders = `<span class="pageNumber"></span>/<span class="totalPages"></span>`
)

// pageSizes maps page size names to width and height in inches.
var pageSizes = map[string][2]float64{
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
	"a4":     {8.27, 11.69},
	"a5":     {5.83, 8.27},
}

// Footer configures the footer Chrome draws on every page.
type Footer struct {
	ShowPageNumber bool
	Text           string
	// Position is left, center or right (default).
	Position string
}

// Options holds the page layout of a print.
type Options struct {
	// PageSize is letter (default), legal, a4 or a5.
	PageSize string
	// MarginInches applies to every side. Zero uses half an inch.
	MarginInches float64
	Footer       *Footer
}

// renderer renders a local HTML file to PDF bytes. It lets tests run
// without a browser.
type renderer interface {
	RenderFromFile(ctx context.Context, filePath string, opts *proto.PagePrintToPDF) ([]byte, error)
	Close() error
}

var _ renderer = (*rodRenderer)(nil)

// Printer converts HTML documents to PDF. The browser is launched on the
// first print and reused until Close. A Printer serializes its prints.
type Printer struct {
	mu       sync.Mutex
	renderer renderer
}

// New returns a Printer whose page loads are bounded by timeout, or
// DefaultTimeout when timeout is not positive.
func New(timeout time.Duration) *Printer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Printer{renderer: &rodRenderer{timeout: timeout}}
}

// Print renders htmlContent to PDF. Relative references in the document
// are resolved against baseDir, because the page is loaded from a
// temporary file.
func (p *Printer) Print(ctx context.Context, htmlContent, baseDir string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	printOpts, err := buildPDFOptions(opts)
	if err != nil {
		return nil, err
	}
	rewritten, err := RewriteRelativePaths(htmlContent, baseDir)
	if err != nil {
		return nil, err
	}
	tmpPath, cleanup, err := fileutil.WriteTempFile(rewritten, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderer.RenderFromFile(ctx, tmpPath, printOpts)
}

// Close releases the browser.
func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.renderer == nil {
		return nil
	}
	return p.renderer.Close()
}

// rodRenderer renders pages in a lazily launched Chrome. Rod downloads
// Chromium on first use when no browser is found.
type rodRenderer struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()
	// containers ship their own browser
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher, r.browser = l, browser
	return nil
}

// Close closes the browser, then kills what is left of its process group.
func (r *rodRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		if pid := r.launcher.PID(); pid > 0 {
			reapBrowser(pid)
		}
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string, opts *proto.PagePrintToPDF) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: fileutil.FileURL(filePath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := page.Context(ctx).PDF(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	buf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return buf, nil
}

// buildPDFOptions translates the page layout into Chrome print settings.
func buildPDFOptions(opts Options) (*proto.PagePrintToPDF, error) {
	name := strings.ToLower(opts.PageSize)
	if name == "" {
		name = "letter"
	}
	size, ok := pageSizes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPageSize, opts.PageSize)
	}
	margin := opts.MarginInches
	if margin <= 0 {
		margin = defaultMarginInches
	}
	bottom := margin
	if opts.Footer != nil && bottom < footerMarginInches {
		bottom = footerMarginInches
	}

	pdf := &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(size[0]),
		PaperHeight:     floatPtr(size[1]),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(bottom),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}
	if opts.Footer != nil {
		pdf.DisplayHeaderFooter = true
		pdf.HeaderTemplate = emptyTemplate
		pdf.FooterTemplate = buildFooterTemplate(opts.Footer)
	}
	return pdf, nil
}

// buildFooterTemplate renders the footer for Chrome, which fills the
// pageNumber and totalPages classes itself.
func buildFooterTemplate(f *Footer) string {
	if f == nil {
		return emptyTemplate
	}
	var parts []string
	if f.ShowPageNumber {
		parts = append(parts, pageNumberPlaceholders)
	}
	if f.Text != "" {
		parts = append(parts, html.EscapeString(f.Text))
	}
	if len(parts) == 0 {
		return emptyTemplate
	}

	align := "right"
	switch f.Position {
	case "left", "center":
		align = f.Position
	}
	return fmt.Sprintf(`<div style="font-size: 10px; font-family: %s; color: #aaa; width: 100%%; text-align: %s; padding: 0 0.5in;">%s</div>`,
		footerFontFamily, align, strings.Join(parts, " - "))
}

func floatPtr(v float64) *float64 {
	return &v
}
