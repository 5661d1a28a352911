package adoc

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/alnah/go-adoc/internal/assets"
	"github.com/alnah/go-adoc/internal/fileutil"
)

// HandlerFunc renders one node for a transform.
type HandlerFunc func(node Node) (string, error)

// HTML5Converter renders documents to HTML5. Handlers are looked up by
// transform name, usually the node name. A handler registered as
// "<name>.<style>" takes precedence for blocks with that style, so
// Handle("listing.source", fn) only replaces source blocks.
type HTML5Converter struct {
	handlers map[string]HandlerFunc
	xml      bool
	slash    string

	resolvingXref bool
}

// NewHTML5Converter creates a converter with the built-in handlers. XML
// syntax closes void elements.
func NewHTML5Converter(opts ConverterOptions) *HTML5Converter {
	c := &HTML5Converter{handlers: map[string]HandlerFunc{}}
	if opts.HTMLSyntax == "xml" {
		c.xml = true
		c.slash = "/"
	}
	builtin := map[string]func(Node) string{
		"document":         c.document,
		"embedded":         c.embedded,
		"outline":          func(n Node) string { return c.outline(n, -1) },
		"section":          c.section,
		"preamble":         c.preamble,
		"paragraph":        c.paragraph,
		"admonition":       c.admonition,
		"listing":          c.listing,
		"literal":          c.literal,
		"example":          c.example,
		"sidebar":          c.sidebar,
		"open":             c.open,
		"open.abstract":    c.abstract,
		"open.partintro":   c.partintro,
		"quote":            c.quote,
		"verse":            c.verse,
		"pass":             c.pass,
		"stem":             c.stem,
		"thematic_break":   c.thematicBreak,
		"page_break":       c.pageBreak,
		"floating_title":   c.floatingTitle,
		"image":            c.image,
		"video":            c.video,
		"audio":            c.audio,
		"toc":              c.toc,
		"ulist":            c.ulist,
		"olist":            c.olist,
		"colist":           c.colist,
		"dlist":            c.dlist,
		"dlist.horizontal": c.hdlist,
		"dlist.qanda":      c.qlist,
		"table":            c.table,
		"inline_anchor":    c.inlineAnchor,
		"inline_break":     c.inlineBreak,
		"inline_callout":   c.inlineCallout,
		"inline_footnote":  c.inlineFootnote,
		"inline_image":     c.inlineImage,
		"inline_indexterm": c.inlineIndexterm,
		"inline_quoted":    c.inlineQuoted,
	}
	for name, fn := range builtin {
		c.handlers[name] = func(n Node) (string, error) { return fn(n), nil }
	}
	return c
}

// Handle registers fn for a transform name, replacing any existing handler.
func (c *HTML5Converter) Handle(name string, fn HandlerFunc) {
	c.handlers[name] = fn
}

// Handler returns the handler registered for name, so a replacement can
// delegate to the one it replaces.
func (c *HTML5Converter) Handler(name string) (HandlerFunc, bool) {
	h, ok := c.handlers[name]
	return h, ok
}

// Convert renders node with the handler for transform. An empty
// transform uses the node name.
func (c *HTML5Converter) Convert(node Node, transform string) (string, error) {
	if transform == "" {
		transform = node.NodeName()
	}
	if b, ok := node.(BlockNode); ok && b.Style() != "" {
		if h, ok := c.handlers[transform+"."+b.Style()]; ok {
			return h(node)
		}
	}
	h, ok := c.handlers[transform]
	if !ok {
		return "", fmt.Errorf("%w: no %s handler for %q", ErrConversion, BackendHTML5, transform)
	}
	return h(node)
}

func idAttr(n Node) string {
	if id := n.ID(); id != "" {
		return ` id="` + id + `"`
	}
	return ""
}

// classAttr joins the non-empty class names into a class attribute.
func classAttr(names ...string) string {
	return ` class="` + joinClasses(names...) + `"`
}

func joinClasses(names ...string) string {
	out := names[:0:0]
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

func titleDiv(b BlockNode, captioned bool) string {
	if !b.HasTitle() {
		return ""
	}
	title := b.Title()
	if captioned {
		title = b.CaptionedTitle()
	}
	return `<div class="title">` + title + "</div>\n"
}

func (c *HTML5Converter) boolAttr(name string) string {
	if c.xml {
		return " " + name + `="` + name + `"`
	}
	return " " + name
}

// nodeAttr reads a node attribute, falling back to the document.
func nodeAttr(n Node, name string) (string, bool) {
	if v, ok := n.Attribute(name); ok {
		return v, true
	}
	if d := n.Document(); d != nil && n != Node(d) {
		return d.Attribute(name)
	}
	return "", false
}

func docAttr(d *Document, name, fallback string) string {
	if v, ok := d.Attribute(name); ok {
		return v
	}
	return fallback
}

func (c *HTML5Converter) document(n Node) string {
	d := n.(*Document)
	slash := c.slash
	br := "<br" + slash + ">"
	scheme := docAttr(d, "asset-uri-scheme", "https")
	if scheme != "" {
		scheme += ":"
	}
	cdn := scheme + "//cdnjs.cloudflare.com/ajax/libs"
	_, linkcss := d.Attribute("linkcss")
	maxWidth := ""
	if v, ok := d.Attribute("max-width"); ok {
		maxWidth = ` style="max-width: ` + v + `;"`
	}

	var out []string
	out = append(out, "<!DOCTYPE html>")
	lang := ""
	if !d.IsAttribute("nolang") {
		lang = ` lang="` + docAttr(d, "lang", "en") + `"`
	}
	xmlns := ""
	if c.xml {
		xmlns = ` xmlns="http://www.w3.org/1999/xhtml"`
	}
	out = append(out, "<html"+xmlns+lang+">", "<head>",
		`<meta charset="`+docAttr(d, "encoding", "UTF-8")+`"`+slash+">",
		`<meta http-equiv="X-UA-Compatible" content="IE=edge"`+slash+">",
		`<meta name="viewport" content="width=device-width, initial-scale=1.0"`+slash+">",
		`<meta name="generator" content="go-adoc `+Version+`"`+slash+">")
	for _, name := range []string{"app-name", "description", "keywords", "authors", "copyright"} {
		v, ok := d.Attribute(name)
		if !ok {
			continue
		}
		meta := name
		switch name {
		case "app-name":
			meta = "application-name"
		case "authors":
			meta = "author"
			v = xmlTagRx.ReplaceAllString(d.ApplySubs(d, v, SubReplacements), "")
		}
		out = append(out, `<meta name="`+meta+`" content="`+v+`"`+slash+">")
	}
	if v, ok := d.Attribute("favicon"); ok {
		icon := v
		if icon == "" {
			icon = "favicon.ico"
		}
		typ := "image/" + strings.TrimPrefix(path.Ext(icon), ".")
		if typ == "image/ico" || typ == "image/" {
			typ = "image/x-icon"
		}
		out = append(out, `<link rel="icon" type="`+typ+`" href="`+icon+`"`+slash+">")
	}
	out = append(out, "<title>"+xmlTagRx.ReplaceAllString(d.Doctitle(true), "")+"</title>")
	out = append(out, c.stylesheets(d, scheme, linkcss)...)
	if d.IsAttribute("icons", "font") {
		if _, remote := d.Attribute("iconfont-remote"); remote {
			href := docAttr(d, "iconfont-cdn", cdn+"/font-awesome/"+fontAwesomeVersion+"/css/font-awesome.min.css")
			out = append(out, `<link rel="stylesheet" href="`+href+`"`+slash+">")
		} else {
			href := fileutil.WebPath(docAttr(d, "iconfont-name", "font-awesome")+".css", docAttr(d, "stylesdir", ""))
			out = append(out, `<link rel="stylesheet" href="`+href+`"`+slash+">")
		}
	}
	if s := highlighterDocinfo(d, DocinfoHead); s != "" {
		out = append(out, s)
	}
	if s := docinfo(d, "head"); s != "" {
		out = append(out, s)
	}
	out = append(out, "</head>")

	classes := []string{d.Doctype()}
	sectioned := d.HasSections()
	if sectioned && d.IsAttribute("toc-class") && d.IsAttribute("toc") && d.IsAttribute("toc-placement", "auto") {
		classes = append(classes, docAttr(d, "toc-class", ""), "toc-"+docAttr(d, "toc-position", "header"))
	}
	classes = append(classes, d.Role())
	out = append(out, "<body"+idAttr(d)+classAttr(classes...)+">")
	if s := docinfo(d, "header"); s != "" {
		out = append(out, s)
	}

	if !d.IsAttribute("noheader") {
		out = append(out, `<div id="header"`+maxWidth+">")
		if d.Header() {
			if !d.IsAttribute("notitle") {
				out = append(out, "<h1>"+d.HeaderTitle()+"</h1>")
			}
			var details []string
			for i, a := range d.Authors() {
				suffix := ""
				if i > 0 {
					suffix = strconv.Itoa(i + 1)
				}
				details = append(details, `<span id="author`+suffix+`" class="author">`+d.ApplySubs(d, a.Name, SubReplacements)+"</span>"+br)
				if a.Email != "" {
					details = append(details, `<span id="email`+suffix+`" class="email">`+d.ApplySubs(d, a.Email, SubMacros)+"</span>"+br)
				}
			}
			number, date, remark := d.Revision()
			if number != "" {
				comma := ""
				if date != "" {
					comma = ","
				}
				details = append(details, `<span id="revnumber">`+strings.ToLower(docAttr(d, "version-label", ""))+" "+number+comma+"</span>")
			}
			if date != "" {
				details = append(details, `<span id="revdate">`+date+"</span>")
			}
			if remark != "" {
				details = append(details, br+`<span id="revremark">`+remark+"</span>")
			}
			if len(details) > 0 {
				out = append(out, `<div class="details">`)
				out = append(out, details...)
				out = append(out, "</div>")
			}
		}
		if sectioned && d.IsAttribute("toc") && d.IsAttribute("toc-placement", "auto") {
			out = append(out, `<div id="toc" class="`+docAttr(d, "toc-class", "toc")+`">`,
				`<div id="toctitle">`+docAttr(d, "toc-title", "")+"</div>",
				c.outline(d, -1),
				"</div>")
		}
		out = append(out, "</div>")
	}

	out = append(out, `<div id="content"`+maxWidth+">", d.Content(), "</div>")
	if fn := c.footnotes(d, maxWidth); fn != "" {
		out = append(out, fn)
	}
	if !d.IsAttribute("nofooter") {
		out = append(out, `<div id="footer"`+maxWidth+">", `<div id="footer-text">`)
		if number, _, _ := d.Revision(); number != "" {
			out = append(out, docAttr(d, "version-label", "")+" "+number+br)
		}
		if label, ok := d.Attribute("last-update-label"); ok && !d.IsAttribute("reproducible") {
			out = append(out, label+" "+docAttr(d, "docdatetime", ""))
		}
		out = append(out, "</div>", "</div>")
	}
	if s := highlighterDocinfo(d, DocinfoFooter); s != "" {
		out = append(out, s)
	}
	if s := c.mathJax(d, cdn); s != "" {
		out = append(out, s)
	}
	if s := docinfo(d, "footer"); s != "" {
		out = append(out, s)
	}
	out = append(out, "</body>", "</html>")
	return strings.Join(out, "\n")
}

const fontAwesomeVersion = "4.7.0"

var xmlTagRx = regexp.MustCompile(`<[^>]+>`)

// stylesheets returns the links or style elements for the document
// stylesheet. The default stylesheet is embedded unless linkcss is set.
func (c *HTML5Converter) stylesheets(d *Document, scheme string, linkcss bool) []string {
	sheet, ok := d.Attribute("stylesheet")
	if !ok {
		return nil
	}
	stylesdir := docAttr(d, "stylesdir", "")
	var out []string
	if sheet == "" || sheet == "DEFAULT" {
		if fonts, ok := d.Attribute("webfonts"); ok {
			if fonts == "" {
				fonts = "Open+Sans:300,300italic,400,400italic,600,600italic%7CNoto+Serif:400,400italic,700,700italic%7CDroid+Sans+Mono:400,700"
			}
			out = append(out, `<link rel="stylesheet" href="`+scheme+`//fonts.googleapis.com/css?family=`+fonts+`"`+c.slash+">")
		}
		if linkcss {
			return append(out, `<link rel="stylesheet" href="`+fileutil.WebPath(assets.DefaultStylesheetName, stylesdir)+`"`+c.slash+">")
		}
		css, err := assets.LoadStyle(assets.DefaultStyleName)
		if err != nil {
			d.logWarn(SourceLocation{Path: stdinPath}, "default stylesheet not available: %v", err)
			return out
		}
		return append(out, "<style>\n"+strings.TrimRight(css, "\n")+"\n</style>")
	}
	if linkcss {
		return []string{`<link rel="stylesheet" href="` + fileutil.WebPath(sheet, stylesdir) + `"` + c.slash + ">"}
	}
	target := sheet
	if stylesdir != "" && !isURI(sheet) && !path.IsAbs(sheet) {
		target = path.Join(stylesdir, sheet)
	}
	css, err := d.ReadContents(target)
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "stylesheet does not exist or cannot be read: %s", target)
		return nil
	}
	return []string{"<style>\n" + strings.TrimRight(css, "\n") + "\n</style>"}
}

func highlighterDocinfo(d *Document, location string) string {
	p, ok := d.SyntaxHighlighter().(DocinfoProvider)
	if !ok || !p.HasDocinfo(location) {
		return ""
	}
	return p.Docinfo(location, d)
}

// mathJax loads MathJax when the document uses stem content.
func (c *HTML5Converter) mathJax(d *Document, cdn string) string {
	if _, ok := d.Attribute("stem"); !ok {
		return ""
	}
	src, err := assets.LoadTemplate("mathjax")
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "mathjax script not available: %v", err)
		return ""
	}
	eqnums := docAttr(d, "eqnums", "none")
	if eqnums == "" {
		eqnums = "AMS"
	}
	tmpl, err := template.New("mathjax").Parse(src)
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "mathjax script: %v", err)
		return ""
	}
	var buf strings.Builder
	data := struct{ EquationNumbers, CDN string }{eqnums, cdn}
	if err := tmpl.Execute(&buf, data); err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "mathjax script: %v", err)
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}

// docinfo reads the docinfo files selected by the docinfo attribute for
// a location (head, header or footer). Files are not read in secure mode.
func docinfo(d *Document, location string) string {
	if d.Safe() >= SafeModeSecure {
		return ""
	}
	spec, ok := d.Attribute("docinfo")
	if !ok {
		if _, legacy := d.Attribute("docinfo2"); legacy {
			spec = "shared,private"
		} else if _, legacy := d.Attribute("docinfo1"); legacy {
			spec = "shared"
		} else {
			return ""
		}
	}
	if spec == "" {
		spec = "private"
	}
	suffix := ""
	if location != "head" {
		suffix = "-" + location
	}
	var shared, private bool
	for _, v := range strings.Split(spec, ",") {
		switch strings.TrimSpace(v) {
		case "shared", "shared-" + location:
			shared = true
		case "private", "private-" + location:
			private = true
		}
	}
	dir := docAttr(d, "docinfodir", "")
	var parts []string
	read := func(name string) {
		if dir != "" {
			name = path.Join(dir, name)
		}
		content, err := d.ReadContents(name)
		if err != nil {
			return
		}
		subs := []string{SubAttributes}
		if v, ok := d.Attribute("docinfosubs"); ok {
			subs = resolveSubs(v, nil, d)
		}
		parts = append(parts, strings.TrimRight(d.applySubs(d, content, subs), "\n"))
	}
	if shared {
		read("docinfo" + suffix + ".html")
	}
	if name, ok := d.Attribute("docname"); private && ok && name != "" {
		read(name + "-docinfo" + suffix + ".html")
	}
	return strings.Join(parts, "\n")
}

func (c *HTML5Converter) embedded(n Node) string {
	d := n.(*Document)
	var out []string
	_, showtitle := d.Attribute("showtitle")
	if d.Header() && showtitle && !d.IsAttribute("notitle") {
		out = append(out, "<h1"+idAttr(d)+">"+d.HeaderTitle()+"</h1>")
	}
	if d.HasSections() && d.IsAttribute("toc") {
		if p := docAttr(d, "toc-placement", ""); p != "macro" && p != "preamble" {
			out = append(out, `<div id="toc" class="toc">`,
				`<div id="toctitle">`+docAttr(d, "toc-title", "")+"</div>",
				c.outline(d, -1),
				"</div>")
		}
	}
	out = append(out, d.Content())
	if fn := c.footnotes(d, ""); fn != "" {
		out = append(out, fn)
	}
	return strings.Join(out, "\n")
}

func (c *HTML5Converter) footnotes(d *Document, maxWidth string) string {
	if !d.HasFootnotes() || d.IsAttribute("nofootnotes") {
		return ""
	}
	out := []string{`<div id="footnotes"` + maxWidth + ">", "<hr" + c.slash + ">"}
	for _, fn := range d.Footnotes() {
		i := strconv.Itoa(fn.Index)
		out = append(out, `<div class="footnote" id="_footnotedef_`+i+`">`,
			`<a href="#_footnoteref_`+i+`">`+i+"</a>. "+fn.Text,
			"</div>")
	}
	out = append(out, "</div>")
	return strings.Join(out, "\n")
}

var dropAnchorRx = regexp.MustCompile(`<(?:a\b[^>]*|/a)>`)

// outline renders the nested list of section links used by the table of
// contents. A negative toclevels reads the toclevels attribute.
func (c *HTML5Converter) outline(n Node, toclevels int) string {
	d := n.Document()
	if toclevels < 0 {
		toclevels = 2
		if v, err := strconv.Atoi(docAttr(d, "toclevels", "2")); err == nil {
			toclevels = v
		}
	}
	var sections []*Section
	switch v := n.(type) {
	case *Document:
		sections = v.Sections()
	case *Section:
		sections = v.Sections()
	}
	if len(sections) == 0 {
		return ""
	}
	out := []string{`<ul class="sectlevel` + strconv.Itoa(sections[0].Level()) + `">`}
	for _, s := range sections {
		title := s.numberedTitle()
		if strings.Contains(title, "<a") {
			title = dropAnchorRx.ReplaceAllString(title, "")
		}
		link := `<li><a href="#` + s.ID() + `">` + title + "</a>"
		if s.Level() < toclevels {
			if child := c.outline(s, toclevels); child != "" {
				out = append(out, link, child, "</li>")
				continue
			}
		}
		out = append(out, link+"</li>")
	}
	out = append(out, "</ul>")
	return strings.Join(out, "\n")
}

func (c *HTML5Converter) section(n Node) string {
	s := n.(*Section)
	d := s.Document()
	title := s.numberedTitle()
	id := ""
	if s.ID() != "" {
		id = ` id="` + s.ID() + `"`
		if d.IsAttribute("sectlinks") {
			title = `<a class="link" href="#` + s.ID() + `">` + title + "</a>"
		}
		if anchors, ok := d.Attribute("sectanchors"); ok {
			anchor := `<a class="anchor" href="#` + s.ID() + `"></a>`
			if anchors == "after" {
				title += anchor
			} else {
				title = anchor + title
			}
		}
	}
	level := s.Level()
	if level == 0 {
		return "<h1" + id + classAttr("sect0", s.Role()) + ">" + title + "</h1>\n" + s.Content()
	}
	tag := "h" + strconv.Itoa(level+1)
	content := s.Content()
	if level == 1 {
		content = "<div class=\"sectionbody\">\n" + content + "\n</div>"
	}
	return "<div" + classAttr("sect"+strconv.Itoa(level), s.Role()) + ">\n" +
		"<" + tag + id + ">" + title + "</" + tag + ">\n" +
		content + "\n</div>"
}

func (c *HTML5Converter) preamble(n Node) string {
	b := n.(BlockNode)
	d := b.Document()
	toc := ""
	if d.IsAttribute("toc-placement", "preamble") && d.HasSections() && d.IsAttribute("toc") {
		toc = "\n<div id=\"toc\" class=\"" + docAttr(d, "toc-class", "toc") + "\">\n" +
			`<div id="toctitle">` + docAttr(d, "toc-title", "") + "</div>\n" +
			c.outline(d, -1) + "\n</div>"
	}
	return "<div id=\"preamble\">\n<div class=\"sectionbody\">\n" + b.Content() + "\n</div>" + toc + "\n</div>"
}

func (c *HTML5Converter) toc(n Node) string {
	b := n.(BlockNode)
	d := b.Document()
	if !d.IsAttribute("toc-placement", "macro") || !d.HasSections() || !d.IsAttribute("toc") {
		return "<!-- toc disabled -->"
	}
	id, titleID := ` id="toc"`, ` id="toctitle"`
	if b.ID() != "" {
		id, titleID = ` id="`+b.ID()+`"`, ` id="`+b.ID()+`title"`
	}
	title := docAttr(d, "toc-title", "")
	if b.HasTitle() {
		title = b.Title()
	}
	levels := -1
	if v, ok := b.Attribute("levels"); ok {
		if l, err := strconv.Atoi(v); err == nil {
			levels = l
		}
	}
	role := b.Role()
	if role == "" {
		role = docAttr(d, "toc-class", "toc")
	}
	return "<div" + id + ` class="` + role + `">` + "\n" +
		"<div" + titleID + ` class="title">` + title + "</div>\n" +
		c.outline(d, levels) + "\n</div>"
}
