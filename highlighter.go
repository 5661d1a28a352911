package adoc

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// SyntaxHighlighter formats source blocks for a source-highlighter.
// Format returns the markup for the whole listing; it usually wraps
// node.Content() in pre and code elements.
type SyntaxHighlighter interface {
	Format(node *Block, lang string, opts HighlightOptions) string
}

// Highlighter is implemented by adapters that highlight the source
// themselves instead of leaving it to a client-side script. Highlight
// receives the source with special characters unescaped and callout
// marks removed.
type Highlighter interface {
	HandlesHighlighting() bool
	Highlight(node *Block, source, lang string, opts HighlightOptions) (string, error)
}

// DocinfoProvider contributes markup to the head or footer of a
// standalone document.
type DocinfoProvider interface {
	HasDocinfo(location string) bool
	Docinfo(location string, doc *Document) string
}

// Docinfo locations.
const (
	DocinfoHead   = "head"
	DocinfoFooter = "footer"
)

// HighlightOptions carries the per-block highlighting settings.
type HighlightOptions struct {
	// Callouts maps a 0-based line index to the marks removed from it.
	Callouts map[int][]CalloutMark
	// CSSMode is "class" or "inline".
	CSSMode string
	Style   string
	// Linenums is "table", "inline" or empty when line numbers are off.
	Linenums       string
	StartLine      int
	HighlightLines []int
	Nowrap         bool
}

// SyntaxHighlighterFactory creates an adapter for a document.
type SyntaxHighlighterFactory func(name, backend string, doc *Document) SyntaxHighlighter

var highlighters = struct {
	sync.RWMutex
	m map[string]SyntaxHighlighterFactory
}{m: map[string]SyntaxHighlighterFactory{}}

func init() {
	hljs := func(string, string, *Document) SyntaxHighlighter { return &HighlightJSAdapter{} }
	RegisterSyntaxHighlighter(hljs, "highlight.js", "highlightjs")
	RegisterSyntaxHighlighter(func(string, string, *Document) SyntaxHighlighter { return &PrettifyAdapter{} }, "prettify")
	RegisterSyntaxHighlighter(func(string, string, *Document) SyntaxHighlighter { return &HTMLPipelineAdapter{} }, "html-pipeline")
	RegisterSyntaxHighlighter(newChromaAdapter, "chroma")
}

// RegisterSyntaxHighlighter makes f available under each name for the
// source-highlighter attribute. A later registration replaces an earlier one.
func RegisterSyntaxHighlighter(f SyntaxHighlighterFactory, names ...string) {
	highlighters.Lock()
	defer highlighters.Unlock()
	for _, n := range names {
		highlighters.m[n] = f
	}
}

// UnregisterSyntaxHighlighter removes the named adapters.
func UnregisterSyntaxHighlighter(names ...string) {
	highlighters.Lock()
	defer highlighters.Unlock()
	for _, n := range names {
		delete(highlighters.m, n)
	}
}

// SyntaxHighlighterFor returns the factory registered for name, or nil.
func SyntaxHighlighterFor(name string) SyntaxHighlighterFactory {
	highlighters.RLock()
	defer highlighters.RUnlock()
	return highlighters.m[name]
}

// initSyntaxHighlighter creates the adapter named by source-highlighter.
// Unknown names leave source blocks unhighlighted.
func (d *Document) initSyntaxHighlighter() {
	if d.syntaxHighlighter != nil {
		return
	}
	name := d.attributes["source-highlighter"]
	if name == "" {
		return
	}
	f := SyntaxHighlighterFor(name)
	if f == nil {
		d.logDebug(SourceLocation{Path: stdinPath}, "unknown source highlighter: %s", name)
		return
	}
	d.syntaxHighlighter = f(name, d.Backend(), d)
}

func (d *Document) highlighterHandles() bool {
	h, ok := d.syntaxHighlighter.(Highlighter)
	return ok && h.HandlesHighlighting()
}

// highlightOptions reads the highlighting settings of block from its
// attributes and the <highlighter>-* document attributes.
func (d *Document) highlightOptions(block *Block) HighlightOptions {
	name := d.attributes["source-highlighter"]
	opts := HighlightOptions{
		CSSMode:   d.attrOrDefault(name+"-css", "class"),
		Style:     d.attributes[name+"-style"],
		StartLine: 1,
	}
	if block.IsOption("linenums") {
		opts.Linenums = d.attrOrDefault(name+"-linenums-mode", "table")
	}
	if v, ok := block.attributes["start"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			opts.StartLine = n
		}
	}
	if v, ok := block.attributes["highlight"]; ok {
		opts.HighlightLines = parseLineRanges(v)
	}
	_, prewrap := d.attributes["prewrap"]
	opts.Nowrap = block.IsOption("nowrap") || !prewrap
	return opts
}

func (d *Document) attrOrDefault(name, fallback string) string {
	if v, ok := d.attributes[name]; ok && v != "" {
		return v
	}
	return fallback
}

// parseLineRanges expands "1,3..5" or "1;3-5" into line numbers.
func parseLineRanges(spec string) []int {
	var out []int
	for _, part := range strings.FieldsFunc(spec, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		from, to, isRange := strings.Cut(part, "..")
		if !isRange {
			from, to, isRange = strings.Cut(part, "-")
		}
		a, err := strconv.Atoi(from)
		if err != nil {
			continue
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(to); err != nil {
				continue
			}
		}
		for i := a; i <= b; i++ {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// formatPre renders <pre class="{class} highlight"><code ...>content</code></pre>,
// the markup shared by the client-side adapters.
func formatPre(preClass string, node *Block, lang string, opts HighlightOptions, codeClass string) string {
	class := "highlight"
	if preClass != "" {
		class = preClass + " highlight"
	}
	if opts.Nowrap {
		class += " nowrap"
	}
	var code strings.Builder
	if codeClass != "" {
		fmt.Fprintf(&code, ` class="%s"`, codeClass)
	}
	if lang != "" {
		fmt.Fprintf(&code, ` data-lang="%s"`, html.EscapeString(lang))
	}
	return fmt.Sprintf(`<pre class="%s"><code%s>%s</code></pre>`, class, code.String(), node.Content())
}

// HighlightJSAdapter leaves highlighting to highlight.js in the browser.
type HighlightJSAdapter struct{}

var (
	_ SyntaxHighlighter = (*HighlightJSAdapter)(nil)
	_ DocinfoProvider   = (*HighlightJSAdapter)(nil)
)

func (a *HighlightJSAdapter) Format(node *Block, lang string, opts HighlightOptions) string {
	codeLang := lang
	if codeLang == "" {
		codeLang = "none"
	}
	return formatPre("highlightjs", node, lang, opts, "language-"+codeLang+" hljs")
}

func (a *HighlightJSAdapter) HasDocinfo(location string) bool { return location == DocinfoFooter }

func (a *HighlightJSAdapter) Docinfo(location string, doc *Document) string {
	if location != DocinfoFooter {
		return ""
	}
	base := doc.attrOrDefault("highlightjsdir", "https://cdnjs.cloudflare.com/ajax/libs/highlight.js/11.9.0")
	theme := doc.attrOrDefault("highlightjs-theme", "github")
	slash := ""
	if doc.attributes["htmlsyntax"] == "xml" {
		slash = "/"
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<link rel="stylesheet" href="%s/styles/%s.min.css"%s>`+"\n", base, theme, slash)
	fmt.Fprintf(&b, `<script src="%s/highlight.min.js"></script>`+"\n", base)
	if langs := doc.attributes["highlightjs-languages"]; langs != "" {
		for _, l := range strings.Split(langs, ",") {
			fmt.Fprintf(&b, `<script src="%s/languages/%s.min.js"></script>`+"\n", base, strings.TrimSpace(l))
		}
	}
	b.WriteString("<script>\n" +
		"if (!hljs.initHighlighting.called) {\n" +
		"  hljs.initHighlighting.called = true\n" +
		"  ;[].slice.call(document.querySelectorAll('pre.highlight > code[data-lang]')).forEach(function (el) { hljs.highlightBlock(el) })\n" +
		"}\n" +
		"</script>")
	return b.String()
}

// PrettifyAdapter leaves highlighting to google-code-prettify.
type PrettifyAdapter struct{}

var (
	_ SyntaxHighlighter = (*PrettifyAdapter)(nil)
	_ DocinfoProvider   = (*PrettifyAdapter)(nil)
)

func (a *PrettifyAdapter) Format(node *Block, lang string, opts HighlightOptions) string {
	preClass := "prettyprint"
	if opts.Linenums != "" {
		if start, ok := node.attributes["start"]; ok {
			preClass += " linenums:" + start
		} else {
			preClass += " linenums"
		}
	}
	codeClass := ""
	if lang != "" {
		codeClass = "language-" + lang
	}
	return formatPre(preClass, node, lang, opts, codeClass)
}

func (a *PrettifyAdapter) HasDocinfo(location string) bool { return location == DocinfoFooter }

func (a *PrettifyAdapter) Docinfo(location string, doc *Document) string {
	if location != DocinfoFooter {
		return ""
	}
	base := doc.attrOrDefault("prettifydir", "https://cdnjs.cloudflare.com/ajax/libs/prettify/r298")
	theme := doc.attrOrDefault("prettify-theme", "prettify")
	slash := ""
	if doc.attributes["htmlsyntax"] == "xml" {
		slash = "/"
	}
	return fmt.Sprintf(`<link rel="stylesheet" href="%s/%s.min.css"%s>`+"\n"+
		`<script>document.addEventListener('DOMContentLoaded', prettyPrint)</script>`+"\n"+
		`<script src="%s/prettify.min.js"></script>`, base, theme, slash, base)
}

// HTMLPipelineAdapter emits the markup expected by the html-pipeline
// syntax highlighting filter.
type HTMLPipelineAdapter struct{}

var _ SyntaxHighlighter = (*HTMLPipelineAdapter)(nil)

func (a *HTMLPipelineAdapter) Format(node *Block, lang string, _ HighlightOptions) string {
	if lang == "" {
		return "<pre><code>" + node.Content() + "</code></pre>"
	}
	return fmt.Sprintf(`<pre lang="%s"><code>%s</code></pre>`, html.EscapeString(lang), node.Content())
}
