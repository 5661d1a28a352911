// Package markdown provides a block extension that renders Markdown
// content embedded in an AsciiDoc document.
//
//	[markdown]
//	--
//	# Heading
//
//	Some _Markdown_ text.
//	--
//
// The block becomes an open block with the markdown role whose content is
// the HTML rendered by goldmark, with GitHub Flavored Markdown, footnotes
// and chroma highlighting of fenced code.
package markdown

import (
	"context"
	"time"

	adoc "github.com/alnah/go-adoc"
	render "github.com/alnah/go-adoc/internal/markdown"
)

// Name is the block style the extension handles.
const Name = "markdown"

// DefaultTimeout bounds the rendering of a single block.
const DefaultTimeout = 10 * time.Second

// Processor renders [markdown] blocks. The zero value is not usable; use
// NewProcessor.
type Processor struct {
	html    *render.Renderer
	xhtml   *render.Renderer
	timeout time.Duration
}

// NewProcessor returns a Processor bounding each block by timeout, or
// DefaultTimeout when timeout is not positive.
func NewProcessor(timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Processor{
		html:    render.New(render.Options{HeadingIDs: true}),
		xhtml:   render.New(render.Options{HeadingIDs: true, XHTML: true}),
		timeout: timeout,
	}
}

// Process implements adoc.BlockProcessor.
func (p *Processor) Process(parent adoc.BlockNode, r *adoc.Reader, attrs map[string]string) (adoc.Node, error) {
	md := p.html
	if syntax, _ := parent.Document().Attribute("htmlsyntax"); syntax == "xml" {
		md = p.xhtml
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	out, err := md.Render(ctx, r.Read())
	if err != nil {
		return nil, err
	}

	role := Name
	if extra := attrs["role"]; extra != "" {
		role += " " + extra
	}
	wrapper := map[string]string{"role": role}
	if id := attrs["id"]; id != "" {
		wrapper["id"] = id
	}
	if title := attrs["title"]; title != "" {
		wrapper["title"] = title
	}
	block := adoc.CreateOpenBlock(parent, wrapper)
	block.Append(adoc.CreateBlock(block, adoc.ContextPass, out, nil))
	return block, nil
}

// Group returns the extension group registering the processor on open,
// listing, paragraph and pass blocks.
func Group(timeout time.Duration) adoc.Group {
	proc := NewProcessor(timeout)
	return func(reg *adoc.Registry) {
		reg.Block(Name, proc,
			adoc.Named(Name),
			adoc.OnContexts(adoc.ContextOpen, adoc.ContextListing, adoc.ContextParagraph, adoc.ContextPass),
			adoc.ContentModel(adoc.ContentRaw),
		)
	}
}

// Register adds the group to e under the extension name.
func Register(e *adoc.Extensions) {
	e.Register(Name, Group(0))
}
