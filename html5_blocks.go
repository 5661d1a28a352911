package adoc

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-adoc/internal/svg"
)

func (c *HTML5Converter) paragraph(n Node) string {
	b := n.(BlockNode)
	attrs := idAttr(b) + classAttr("paragraph", b.Role())
	if b.HasTitle() {
		return "<div" + attrs + ">\n" + titleDiv(b, false) + "<p>" + b.Content() + "</p>\n</div>"
	}
	return "<div" + attrs + ">\n<p>" + b.Content() + "</p>\n</div>"
}

func (c *HTML5Converter) admonition(n Node) string {
	b := n.(*Block)
	d := b.Document()
	name := b.Admonition()
	textlabel, _ := b.Attribute("textlabel")
	var label string
	switch {
	case !d.IsAttribute("icons"):
		label = `<div class="title">` + textlabel + "</div>"
	case d.IsAttribute("icons", "font") && !b.HasAttribute("icon"):
		label = `<i class="fa icon-` + name + `" title="` + textlabel + `"></i>`
	default:
		label = `<img src="` + iconURI(b, name) + `" alt="` + textlabel + `"` + c.slash + ">"
	}
	return "<div" + idAttr(b) + classAttr("admonitionblock", name, b.Role()) + ">\n" +
		"<table>\n<tr>\n<td class=\"icon\">\n" + label + "\n</td>\n" +
		"<td class=\"content\">\n" + titleDiv(b, false) + b.Content() + "\n</td>\n" +
		"</tr>\n</table>\n</div>"
}

// iconURI resolves an icon image, honoring an icon attribute on the node.
func iconURI(n Node, name string) string {
	d := n.Document()
	icon, ok := n.Attribute("icon")
	if !ok {
		return d.IconURI(name)
	}
	if path.Ext(icon) == "" {
		icon += "." + docAttr(d, "icontype", "png")
	}
	return d.ImageURI(icon, "iconsdir")
}

func (c *HTML5Converter) audio(n Node) string {
	b := n.(BlockNode)
	d := b.Document()
	target, _ := b.Attribute("target")
	var opts string
	if b.IsOption("autoplay") {
		opts += c.boolAttr("autoplay")
	}
	if !b.IsOption("nocontrols") {
		opts += c.boolAttr("controls")
	}
	if b.IsOption("loop") {
		opts += c.boolAttr("loop")
	}
	return "<div" + idAttr(b) + classAttr("audioblock", b.Role()) + ">\n" +
		titleDiv(b, false) + "<div class=\"content\">\n" +
		`<audio src="` + d.MediaURI(target) + timeAnchor(b) + `"` + opts + ">\n" +
		"Your browser does not support the audio tag.\n</audio>\n</div>\n</div>"
}

func timeAnchor(n Node) string {
	start, hasStart := n.Attribute("start")
	end, hasEnd := n.Attribute("end")
	if !hasStart && !hasEnd {
		return ""
	}
	anchor := "#t=" + start
	if hasEnd {
		anchor += "," + end
	}
	return anchor
}

func (c *HTML5Converter) example(n Node) string {
	b := n.(BlockNode)
	if b.IsOption("collapsible") {
		class := ""
		if r := b.Role(); r != "" {
			class = ` class="` + r + `"`
		}
		open := ""
		if b.IsOption("open") {
			open = " open"
		}
		summary := "Details"
		if b.HasTitle() {
			summary = b.Title()
		}
		return "<details" + idAttr(b) + class + open + ">\n" +
			`<summary class="title">` + summary + "</summary>\n" +
			"<div class=\"content\">\n" + b.Content() + "\n</div>\n</details>"
	}
	return "<div" + idAttr(b) + classAttr("exampleblock", b.Role()) + ">\n" +
		titleDiv(b, true) + "<div class=\"content\">\n" + b.Content() + "\n</div>\n</div>"
}

func (c *HTML5Converter) floatingTitle(n Node) string {
	b := n.(BlockNode)
	tag := "h" + strconv.Itoa(b.Level()+1)
	return "<" + tag + idAttr(b) + classAttr(b.Style(), b.Role()) + ">" + b.Title() + "</" + tag + ">"
}

func (c *HTML5Converter) image(n Node) string {
	b := n.(*Block)
	d := b.Document()
	target, _ := b.Attribute("target")
	dims := dimensionAttrs(b)
	alt := blockAlt(b)
	img := ""
	format, _ := b.Attribute("format")
	isSVG := format == "svg" || strings.Contains(target, ".svg")
	if isSVG && d.Safe() < SafeModeSecure {
		switch {
		case b.IsOption("inline"):
			img = c.inlineSVG(b, target)
			if img == "" {
				img = `<span class="alt">` + alt + "</span>"
			}
		case b.IsOption("interactive"):
			fallback := `<span class="alt">` + alt + "</span>"
			if fb, ok := b.Attribute("fallback"); ok {
				fallback = `<img src="` + d.ImageURI(fb, "") + `" alt="` + encodeAttr(alt) + `"` + dims + c.slash + ">"
			}
			img = `<object type="image/svg+xml" data="` + d.ImageURI(target, "") + `"` + dims + ">" + fallback + "</object>"
		}
	}
	if img == "" {
		img = `<img src="` + d.ImageURI(target, "") + `" alt="` + encodeAttr(alt) + `"` + dims + c.slash + ">"
	}
	if link, ok := b.Attribute("link"); ok {
		if link == "self" {
			link = d.ImageURI(target, "")
		}
		img = `<a class="image" href="` + link + `"` + linkConstraintAttrs(b) + ">" + img + "</a>"
	}
	classes := []string{"imageblock"}
	if v, ok := b.Attribute("float"); ok {
		classes = append(classes, v)
	}
	if v, ok := b.Attribute("align"); ok {
		classes = append(classes, "text-"+v)
	}
	classes = append(classes, b.Role())
	title := ""
	if b.HasTitle() {
		title = "\n<div class=\"title\">" + b.CaptionedTitle() + "</div>"
	}
	return "<div" + idAttr(b) + classAttr(classes...) + ">\n" +
		"<div class=\"content\">\n" + img + "\n</div>" + title + "\n</div>"
}

// inlineSVG reads an SVG image relative to imagesdir and returns its
// markup, or "" when the file cannot be read.
func (c *HTML5Converter) inlineSVG(n Node, target string) string {
	d := n.Document()
	src, err := d.readContents(target, docAttr(d, "imagesdir", ""))
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "SVG does not exist or cannot be read: %s", target)
		return ""
	}
	if strings.TrimSpace(src) == "" {
		d.logWarn(SourceLocation{Path: stdinPath}, "contents of SVG is empty: %s", target)
		return ""
	}
	width, _ := n.Attribute("width")
	height, _ := n.Attribute("height")
	out, err := svg.Inline(src, width, height)
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "invalid SVG %s: %v", target, err)
		return ""
	}
	return out
}

func dimensionAttrs(n Node) string {
	var out string
	if v, ok := n.Attribute("width"); ok {
		out += ` width="` + v + `"`
	}
	if v, ok := n.Attribute("height"); ok {
		out += ` height="` + v + `"`
	}
	return out
}

// blockAlt is the alt text of an image block. Alt text derived from the
// target only gets special characters escaped.
func blockAlt(b *Block) string {
	alt, ok := b.Attribute("alt")
	if !ok {
		return ""
	}
	d := b.Document()
	if def, _ := b.Attribute("default-alt"); alt == def {
		return d.ApplySubs(b, alt, SubSpecialCharacters)
	}
	return d.ApplySubs(b, alt, SubSpecialCharacters, SubReplacements)
}

func encodeAttr(v string) string {
	return strings.ReplaceAll(v, `"`, "&quot;")
}

// linkConstraintAttrs renders rel and target for a link that opens in a
// named window.
func linkConstraintAttrs(n Node) string {
	var rel []string
	if n.IsOption("nofollow") {
		rel = append(rel, "nofollow")
	}
	window, ok := n.Attribute("window")
	if !ok {
		if len(rel) == 0 {
			return ""
		}
		return ` rel="` + strings.Join(rel, " ") + `"`
	}
	if window == "_blank" || n.IsOption("noopener") {
		rel = append(rel, "noopener")
	}
	out := ` target="` + window + `"`
	if len(rel) > 0 {
		out += ` rel="` + strings.Join(rel, " ") + `"`
	}
	return out
}

func (c *HTML5Converter) listing(n Node) string {
	b := n.(*Block)
	d := b.Document()
	nowrap := b.IsOption("nowrap") || !d.IsAttribute("prewrap")
	var body string
	if b.Style() == "source" {
		lang, _ := b.Attribute("language")
		if hl := d.SyntaxHighlighter(); hl != nil {
			body = hl.Format(b, lang, d.highlightOptions(b))
		} else {
			class := "highlight"
			if nowrap {
				class += " nowrap"
			}
			code := ""
			if lang != "" {
				code = ` class="language-` + lang + `" data-lang="` + lang + `"`
			}
			body = `<pre class="` + class + `"><code` + code + ">" + b.Content() + "</code></pre>"
		}
	} else {
		pre := "<pre>"
		if nowrap {
			pre = `<pre class="nowrap">`
		}
		body = pre + b.Content() + "</pre>"
	}
	return "<div" + idAttr(b) + classAttr("listingblock", b.Role()) + ">\n" +
		titleDiv(b, true) + "<div class=\"content\">\n" + body + "\n</div>\n</div>"
}

func (c *HTML5Converter) literal(n Node) string {
	b := n.(BlockNode)
	pre := "<pre>"
	if b.IsOption("nowrap") || !b.Document().IsAttribute("prewrap") {
		pre = `<pre class="nowrap">`
	}
	return "<div" + idAttr(b) + classAttr("literalblock", b.Role()) + ">\n" +
		titleDiv(b, false) + "<div class=\"content\">\n" + pre + b.Content() + "</pre>\n</div>\n</div>"
}

func (c *HTML5Converter) open(n Node) string {
	b := n.(BlockNode)
	style := b.Style()
	if style == "open" {
		style = ""
	}
	return "<div" + idAttr(b) + classAttr("openblock", style, b.Role()) + ">\n" +
		titleDiv(b, false) + "<div class=\"content\">\n" + b.Content() + "\n</div>\n</div>"
}

func (c *HTML5Converter) abstract(n Node) string {
	b := n.(BlockNode)
	d := b.Document()
	if b.Parent() == Node(d) && d.Doctype() == DoctypeBook {
		d.logWarn(locationOf(b), "abstract block cannot be used in a document without a title when doctype is book. Excluding block content.")
		return ""
	}
	return "<div" + idAttr(b) + classAttr("quoteblock", "abstract", b.Role()) + ">\n" +
		titleDiv(b, false) + "<blockquote>\n" + b.Content() + "\n</blockquote>\n</div>"
}

func (c *HTML5Converter) partintro(n Node) string {
	b := n.(BlockNode)
	d := b.Document()
	parent, inSection := b.Parent().(*Section)
	if !inSection || parent.Level() > 0 || d.Doctype() != DoctypeBook {
		d.logError(locationOf(b), "partintro block can only be used when doctype is book and must be a child of a book part. Excluding block content.")
		return ""
	}
	return c.open(n)
}

func locationOf(b BlockNode) SourceLocation {
	if loc := b.SourceLocation(); loc != nil {
		return *loc
	}
	return SourceLocation{Path: stdinPath}
}

func (c *HTML5Converter) pageBreak(Node) string {
	return `<div style="page-break-after: always;"></div>`
}

func (c *HTML5Converter) pass(n Node) string {
	return n.(BlockNode).Content()
}

func (c *HTML5Converter) quote(n Node) string {
	b := n.(BlockNode)
	title := ""
	if b.HasTitle() {
		title = "\n<div class=\"title\">" + b.Title() + "</div>"
	}
	return "<div" + idAttr(b) + classAttr("quoteblock", b.Role()) + ">" + title + "\n" +
		"<blockquote>\n" + b.Content() + "\n</blockquote>" + c.attribution(b) + "\n</div>"
}

func (c *HTML5Converter) verse(n Node) string {
	b := n.(BlockNode)
	title := ""
	if b.HasTitle() {
		title = "\n<div class=\"title\">" + b.Title() + "</div>"
	}
	return "<div" + idAttr(b) + classAttr("verseblock", b.Role()) + ">" + title + "\n" +
		`<pre class="content">` + b.Content() + "</pre>" + c.attribution(b) + "\n</div>"
}

func (c *HTML5Converter) attribution(b BlockNode) string {
	d := b.Document()
	attribution, hasAttribution := b.Attribute("attribution")
	citetitle, hasCitetitle := b.Attribute("citetitle")
	if !hasAttribution && !hasCitetitle {
		return ""
	}
	var text, cite string
	if hasCitetitle {
		cite = "<cite>" + d.ApplySubs(b, citetitle, normalSubs...) + "</cite>"
	}
	if hasAttribution {
		text = "&#8212; " + d.ApplySubs(b, attribution, normalSubs...)
		if hasCitetitle {
			text += "<br" + c.slash + ">\n"
		}
	}
	return "\n<div class=\"attribution\">\n" + text + cite + "\n</div>"
}

func (c *HTML5Converter) sidebar(n Node) string {
	b := n.(BlockNode)
	return "<div" + idAttr(b) + classAttr("sidebarblock", b.Role()) + ">\n" +
		"<div class=\"content\">\n" + titleDiv(b, false) + b.Content() + "\n</div>\n</div>"
}

var stemBreakRx = regexp.MustCompile(` *\\\n(?:\\?\n)*|\n\n+`)

var blockMathDelimiters = map[string][2]string{
	"asciimath": {`\$`, `\$`},
	"latexmath": {`\[`, `\]`},
}

func (c *HTML5Converter) stem(n Node) string {
	b := n.(BlockNode)
	delims, ok := blockMathDelimiters[b.Style()]
	if !ok {
		delims = blockMathDelimiters["asciimath"]
	}
	openDelim, closeDelim := delims[0], delims[1]
	equation := b.Content()
	if equation != "" {
		if b.Style() == "asciimath" && strings.Contains(equation, "\n") {
			br := "\n<br" + c.slash + ">"
			equation = stemBreakRx.ReplaceAllStringFunc(equation, func(m string) string {
				return closeDelim + strings.Repeat(br, strings.Count(m, "\n")) + "\n" + openDelim
			})
		}
		if !strings.HasPrefix(equation, openDelim) || !strings.HasSuffix(equation, closeDelim) {
			equation = openDelim + equation + closeDelim
		}
	}
	return "<div" + idAttr(b) + classAttr("stemblock", b.Role()) + ">\n" +
		titleDiv(b, false) + "<div class=\"content\">\n" + equation + "\n</div>\n</div>"
}

func (c *HTML5Converter) thematicBreak(Node) string {
	return "<hr" + c.slash + ">"
}

func (c *HTML5Converter) video(n Node) string {
	b := n.(BlockNode)
	d := b.Document()
	classes := []string{"videoblock"}
	if v, ok := b.Attribute("float"); ok {
		classes = append(classes, v)
	}
	if v, ok := b.Attribute("align"); ok {
		classes = append(classes, "text-"+v)
	}
	classes = append(classes, b.Role())
	title := ""
	if b.HasTitle() {
		title = "\n<div class=\"title\">" + b.Title() + "</div>"
	}
	head := "<div" + idAttr(b) + classAttr(classes...) + ">" + title + "\n<div class=\"content\">\n"
	const tail = "\n</div>\n</div>"
	dims := dimensionAttrs(b)
	target, _ := b.Attribute("target")
	scheme := docAttr(d, "asset-uri-scheme", "https")
	if scheme != "" {
		scheme += ":"
	}
	poster, _ := b.Attribute("poster")
	switch poster {
	case "vimeo":
		id, hash, _ := strings.Cut(target, "/")
		if hash == "" {
			hash, _ = b.Attribute("hash")
		}
		var params []string
		if hash != "" {
			params = append(params, "h="+hash)
		}
		if b.IsOption("autoplay") {
			params = append(params, "autoplay=1")
		}
		if b.IsOption("loop") {
			params = append(params, "loop=1")
		}
		if b.IsOption("muted") {
			params = append(params, "muted=1")
		}
		query := ""
		if len(params) > 0 {
			query = "?" + strings.Join(params, "&amp;")
		}
		if v, ok := b.Attribute("start"); ok {
			query += "#at=" + v
		}
		fs := ""
		if !b.IsOption("nofullscreen") {
			fs = c.boolAttr("allowfullscreen")
		}
		return head + "<iframe" + dims + ` src="` + scheme + "//player.vimeo.com/video/" + id + query + `" frameborder="0"` + fs + "></iframe>" + tail
	case "youtube":
		rel := "0"
		if b.IsOption("related") {
			rel = "1"
		}
		params := "?rel=" + rel
		if v, ok := b.Attribute("start"); ok {
			params += "&amp;start=" + v
		}
		if v, ok := b.Attribute("end"); ok {
			params += "&amp;end=" + v
		}
		if b.IsOption("autoplay") {
			params += "&amp;autoplay=1"
		}
		loop := b.IsOption("loop")
		if loop {
			params += "&amp;loop=1"
		}
		if b.IsOption("muted") {
			params += "&amp;mute=1"
		}
		if b.IsOption("nocontrols") {
			params += "&amp;controls=0"
		}
		id, list, _ := strings.Cut(target, "/")
		if list == "" {
			list, _ = b.Attribute("list")
		}
		if list != "" {
			params += "&amp;list=" + list
		} else {
			var playlist string
			id, playlist, _ = strings.Cut(id, ",")
			if playlist == "" {
				playlist, _ = b.Attribute("playlist")
			}
			switch {
			case playlist != "":
				params += "&amp;playlist=" + id + "," + playlist
			case loop:
				params += "&amp;playlist=" + id
			}
		}
		fs := c.boolAttr("allowfullscreen")
		if b.IsOption("nofullscreen") {
			params += "&amp;fs=0"
			fs = ""
		}
		if b.IsOption("modest") {
			params += "&amp;modestbranding=1"
		}
		if v, ok := b.Attribute("theme"); ok {
			params += "&amp;theme=" + v
		}
		if v, ok := b.Attribute("lang"); ok {
			params += "&amp;hl=" + v
		}
		return head + "<iframe" + dims + ` src="` + scheme + "//www.youtube.com/embed/" + id + params + `" frameborder="0"` + fs + "></iframe>" + tail
	}
	attrs := dims
	if poster != "" {
		attrs += ` poster="` + d.MediaURI(poster) + `"`
	}
	if b.IsOption("autoplay") {
		attrs += c.boolAttr("autoplay")
	}
	if !b.IsOption("nocontrols") {
		attrs += c.boolAttr("controls")
	}
	if b.IsOption("loop") {
		attrs += c.boolAttr("loop")
	}
	if b.IsOption("muted") {
		attrs += c.boolAttr("muted")
	}
	if v, ok := b.Attribute("preload"); ok && v != "" {
		attrs += ` preload="` + v + `"`
	}
	return head + `<video src="` + d.MediaURI(target) + timeAnchor(b) + `"` + attrs + ">\n" +
		"Your browser does not support the video tag.\n</video>" + tail
}
