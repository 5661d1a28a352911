// Package markdown renders Markdown fragments to HTML with goldmark.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrRender indicates goldmark failed to render the source.
var ErrRender = errors.New("markdown rendering failed")

// Options configures a Renderer.
type Options struct {
	// XHTML emits self-closing void elements.
	XHTML bool
	// HardWraps turns newlines inside paragraphs into <br>.
	HardWraps bool
	// Style names a chroma style to inline into code blocks. Empty emits
	// CSS classes instead.
	Style string
	// HeadingIDs generates ids for headings.
	HeadingIDs bool
}

// Renderer converts Markdown to an HTML fragment.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with GFM, footnotes and fenced code highlighting.
func New(opts Options) *Renderer {
	format := []chromahtml.Option{chromahtml.WithClasses(opts.Style == "")}
	hl := []highlighting.Option{highlighting.WithFormatOptions(format...)}
	if opts.Style != "" {
		hl = append(hl, highlighting.WithStyle(opts.Style))
	}

	var parserOpts []parser.Option
	if opts.HeadingIDs {
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}
	// raw HTML stays escaped: WithUnsafe is never set
	var rendererOpts []renderer.Option
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}
	if opts.XHTML {
		rendererOpts = append(rendererOpts, html.WithXHTML())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(hl...),
		),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Renderer{md: md}
}

// Render converts src to an HTML fragment. Goldmark has no context
// support, so the conversion runs in a goroutine and ctx only bounds the
// wait.
func (r *Renderer) Render(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(src), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}
