package adoc

import (
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const defaultChromaStyle = "github"

// ChromaAdapter highlights source blocks on the server with chroma.
// In class mode the stylesheet for the selected style is added to the
// document head.
type ChromaAdapter struct {
	style string
}

var (
	_ SyntaxHighlighter = (*ChromaAdapter)(nil)
	_ Highlighter       = (*ChromaAdapter)(nil)
	_ DocinfoProvider   = (*ChromaAdapter)(nil)
)

func newChromaAdapter(_, _ string, doc *Document) SyntaxHighlighter {
	return &ChromaAdapter{style: doc.attrOrDefault("chroma-style", defaultChromaStyle)}
}

func (a *ChromaAdapter) HandlesHighlighting() bool { return true }

// Highlight tokenizes source with the lexer for lang, falling back to
// plain text for unknown languages.
func (a *ChromaAdapter) Highlight(_ *Block, source, lang string, opts HighlightOptions) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("%w: chroma: %v", ErrConversion, err)
	}
	var b strings.Builder
	if err := a.formatter(opts).Format(&b, a.chromaStyle(opts), it); err != nil {
		return "", fmt.Errorf("%w: chroma: %v", ErrConversion, err)
	}
	return b.String(), nil
}

func (a *ChromaAdapter) chromaStyle(opts HighlightOptions) *chroma.Style {
	name := a.style
	if opts.Style != "" {
		name = opts.Style
	}
	return styles.Get(name)
}

func (a *ChromaAdapter) formatter(opts HighlightOptions) *chromahtml.Formatter {
	fopts := []chromahtml.Option{
		chromahtml.WithClasses(opts.CSSMode != "inline"),
	}
	// Format supplies the pre element, except for table line numbering
	// where chroma lays out both columns itself.
	if opts.Linenums != "table" {
		fopts = append(fopts, chromahtml.WithPreWrapper(noPreWrapper{}))
	}
	if opts.Linenums != "" {
		fopts = append(fopts,
			chromahtml.WithLineNumbers(true),
			chromahtml.LineNumbersInTable(opts.Linenums == "table"),
			chromahtml.BaseLineNumber(opts.StartLine),
		)
	}
	if len(opts.HighlightLines) > 0 {
		ranges := make([][2]int, 0, len(opts.HighlightLines))
		for _, n := range opts.HighlightLines {
			ranges = append(ranges, [2]int{n, n})
		}
		fopts = append(fopts, chromahtml.HighlightLines(ranges))
	}
	return chromahtml.New(fopts...)
}

// noPreWrapper keeps chroma from writing its own pre and code elements.
type noPreWrapper struct{}

func (noPreWrapper) Start(bool, string) string { return "" }

func (noPreWrapper) End(bool) string { return "" }

// Format wraps the highlighted content. Table line numbering produces
// its own table markup, which is returned as is.
func (a *ChromaAdapter) Format(node *Block, lang string, opts HighlightOptions) string {
	if opts.Linenums == "table" {
		return node.Content()
	}
	class := "chroma highlight"
	if opts.Nowrap {
		class += " nowrap"
	}
	dataLang := ""
	if lang != "" {
		dataLang = fmt.Sprintf(` data-lang="%s"`, html.EscapeString(lang))
	}
	return fmt.Sprintf(`<pre class="%s"><code%s>%s</code></pre>`, class, dataLang, node.Content())
}

func (a *ChromaAdapter) HasDocinfo(location string) bool { return location == DocinfoHead }

// Docinfo returns the stylesheet of the style in class mode.
func (a *ChromaAdapter) Docinfo(location string, doc *Document) string {
	if location != DocinfoHead || doc.attrOrDefault("chroma-css", "class") != "class" {
		return ""
	}
	var b strings.Builder
	b.WriteString("<style>\n")
	f := chromahtml.New(chromahtml.WithClasses(true))
	if err := f.WriteCSS(&b, styles.Get(a.style)); err != nil {
		return ""
	}
	b.WriteString("</style>")
	return b.String()
}
