package adoc

import "strings"

func (c *HTML5Converter) inlineAnchor(n Node) string {
	in := n.(*Inline)
	d := in.Document()
	switch in.Type() {
	case "xref":
		role := ""
		if r := in.Role(); r != "" {
			role = ` class="` + r + `"`
		}
		text := in.Text()
		if p, ok := in.Attribute("path"); ok {
			if text == "" {
				text = p
			}
			return `<a href="` + in.Target() + `"` + role + linkConstraintAttrs(in) + ">" + text + "</a>"
		}
		if text == "" {
			text = c.xrefText(in)
		}
		return `<a href="` + in.Target() + `"` + role + ">" + text + "</a>"
	case "ref":
		return `<a id="` + in.ID() + `"></a>`
	case "link":
		attrs := idAttr(in)
		if r := in.Role(); r != "" {
			attrs += ` class="` + r + `"`
		}
		if t, ok := in.Attribute("title"); ok {
			attrs += ` title="` + t + `"`
		}
		return `<a href="` + in.Target() + `"` + attrs + linkConstraintAttrs(in) + ">" + in.Text() + "</a>"
	case "bibref":
		label := in.Reftext()
		if label == "" {
			label = in.ID()
		}
		return `<a id="` + in.ID() + `"></a>[` + label + "]"
	}
	d.logWarn(SourceLocation{Path: stdinPath}, "unknown anchor type: %q", in.Type())
	return ""
}

// xrefText resolves the text of a cross reference without explicit text
// from the referenced node. A reference inside the text of another
// reference falls back to the bracketed id.
func (c *HTML5Converter) xrefText(in *Inline) string {
	d := in.Document()
	refid, _ := in.Attribute("refid")
	fallback := "[" + refid + "]"
	var ref Node
	if refid == "" {
		ref = d
	} else if r, ok := d.Catalog().Refs[refid]; ok {
		ref = r
	}
	if ref == nil || c.resolvingXref {
		return fallback
	}
	c.resolvingXref = true
	defer func() { c.resolvingXref = false }()
	style, _ := nodeAttr(in, "xrefstyle")
	var text string
	switch r := ref.(type) {
	case *Document:
		text = r.Doctitle(false)
	case xrefTexter:
		text = r.XrefText(style)
	case *Inline:
		text = r.Reftext()
	}
	if text == "" {
		if refid == "" {
			return "[^top]"
		}
		return fallback
	}
	if strings.Contains(text, "<a") {
		text = dropAnchorRx.ReplaceAllString(text, "")
	}
	return text
}

func (c *HTML5Converter) inlineBreak(n Node) string {
	return n.(*Inline).Text() + "<br" + c.slash + ">"
}

func (c *HTML5Converter) inlineCallout(n Node) string {
	in := n.(*Inline)
	d := in.Document()
	num := in.Text()
	switch {
	case d.IsAttribute("icons", "font"):
		return `<i class="conum" data-value="` + num + `"></i><b>(` + num + ")</b>"
	case d.IsAttribute("icons"):
		return `<img src="` + d.IconURI("callouts/"+num) + `" alt="` + num + `"` + c.slash + ">"
	}
	guard, _ := in.Attribute("guard")
	if guard == "xml" {
		return `&lt;!--<b class="conum">(` + num + ")</b>--&gt;"
	}
	return guard + `<b class="conum">(` + num + ")</b>"
}

func (c *HTML5Converter) inlineFootnote(n Node) string {
	in := n.(*Inline)
	index, ok := in.Attribute("index")
	if !ok {
		if in.Type() == "xref" {
			return `<sup class="footnoteref red" title="Unresolved footnote reference.">[` + in.Text() + "]</sup>"
		}
		return ""
	}
	link := `class="footnote" href="#_footnotedef_` + index + `" title="View footnote.">` + index + "</a>]</sup>"
	if in.Type() == "xref" {
		return `<sup class="footnoteref">[<a ` + link
	}
	id := ""
	if in.ID() != "" {
		id = ` id="_footnote_` + in.ID() + `"`
	}
	return `<sup class="footnote"` + id + `>[<a id="_footnoteref_` + index + `" ` + link
}

func (c *HTML5Converter) inlineImage(n Node) string {
	in := n.(*Inline)
	d := in.Document()
	typ := in.Type()
	if typ == "" {
		typ = "image"
	}
	target := in.Target()
	alt, _ := in.Attribute("alt")
	attrs := dimensionAttrs(in)
	if t, ok := in.Attribute("title"); ok {
		attrs += ` title="` + t + `"`
	}
	var img string
	if typ == "icon" {
		switch icons, _ := d.Attribute("icons"); {
		case icons == "font":
			class := "fa fa-" + target
			if v, ok := in.Attribute("size"); ok {
				class += " fa-" + v
			}
			if v, ok := in.Attribute("flip"); ok {
				class += " fa-flip-" + v
			} else if v, ok := in.Attribute("rotate"); ok {
				class += " fa-rotate-" + v
			}
			title := ""
			if t, ok := in.Attribute("title"); ok {
				title = ` title="` + t + `"`
			}
			img = `<i class="` + class + `"` + title + "></i>"
		case d.IsAttribute("icons"):
			img = `<img src="` + iconURI(in, target) + `" alt="` + encodeAttr(alt) + `"` + attrs + c.slash + ">"
		default:
			img = "[" + alt + "&#93;"
		}
	} else {
		src := d.ImageURI(target, "")
		if dir, ok := in.Attribute("imagesdir"); ok {
			src = d.imageURI(target, dir)
		}
		format, _ := in.Attribute("format")
		if (format == "svg" || strings.Contains(target, ".svg")) && d.Safe() < SafeModeSecure {
			switch {
			case in.IsOption("inline"):
				img = c.inlineSVG(in, target)
				if img == "" {
					img = `<span class="alt">` + alt + "</span>"
				}
			case in.IsOption("interactive"):
				fallback := `<span class="alt">` + alt + "</span>"
				if fb, ok := in.Attribute("fallback"); ok {
					fallback = `<img src="` + d.ImageURI(fb, "") + `" alt="` + encodeAttr(alt) + `"` + attrs + c.slash + ">"
				}
				img = `<object type="image/svg+xml" data="` + src + `"` + attrs + ">" + fallback + "</object>"
			}
		}
		if img == "" {
			img = `<img src="` + src + `" alt="` + encodeAttr(alt) + `"` + attrs + c.slash + ">"
		}
	}
	if link, ok := in.Attribute("link"); ok {
		img = `<a class="image" href="` + link + `"` + linkConstraintAttrs(in) + ">" + img + "</a>"
	}
	float, _ := in.Attribute("float")
	return `<span class="` + joinClasses(typ, float, in.Role()) + `">` + img + "</span>"
}

func (c *HTML5Converter) inlineIndexterm(n Node) string {
	in := n.(*Inline)
	if in.Type() == "visible" {
		return in.Text()
	}
	return ""
}

// quoteTags maps quoted text types to their delimiters. Entries with an
// element tag can take an id and class directly.
var quoteTags = map[string]struct {
	open, close string
	tag         bool
}{
	"monospaced":  {"<code>", "</code>", true},
	"emphasis":    {"<em>", "</em>", true},
	"strong":      {"<strong>", "</strong>", true},
	"double":      {"&#8220;", "&#8221;", false},
	"single":      {"&#8216;", "&#8217;", false},
	"mark":        {"<mark>", "</mark>", true},
	"superscript": {"<sup>", "</sup>", true},
	"subscript":   {"<sub>", "</sub>", true},
	"asciimath":   {`\$`, `\$`, false},
	"latexmath":   {`\(`, `\)`, false},
}

func (c *HTML5Converter) inlineQuoted(n Node) string {
	in := n.(*Inline)
	q := quoteTags[in.Type()]
	id, role := in.ID(), in.Role()
	if id == "" && role == "" {
		return q.open + in.Text() + q.close
	}
	attrs := ""
	if id != "" {
		attrs = ` id="` + id + `"`
	}
	if role != "" {
		attrs += ` class="` + role + `"`
	}
	if q.tag {
		return strings.TrimSuffix(q.open, ">") + attrs + ">" + in.Text() + q.close
	}
	return "<span" + attrs + ">" + q.open + in.Text() + q.close + "</span>"
}
