package adoc

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	inlineImageMacroRx   = regexp.MustCompile(`(?s)\\?i(?:mage|con):([^:\s\[](?:[^\n\[]*[^\s\[])?)\[(|.*?[^\\])\]`)
	inlineIndextermRx    = regexp.MustCompile(`(?s)\\?\(\(\((.+?)\)\)\)|\\?\(\((.+?)\)\)`)
	inlineLinkRx         = regexp.MustCompile(`(?ms)(^|link:|[ \t]|&lt;|[>\(\)\[\];"'])(\\?(?:https?|file|ftp|irc)://)(?:([^\s\[\]]+)\[(|.*?[^\\])\]|([^\s\[\]<]*([^\s,.?!\[\]<\)])))`)
	inlineLinkMacroRx    = regexp.MustCompile(`(?s)\\?(?:link|(mailto)):(|[^:\s\[][^\s\[]*)\[(|.*?[^\\])\]`)
	inlineEmailRx        = regexp.MustCompile(`([\\>:/])?[\p{L}\p{N}_](?:&amp;|[\p{L}\p{N}_\-.%+])*@[\p{L}\p{N}][\p{L}\p{N}_-]*(?:\.[\p{L}\p{N}_-]+)*(?:\.[a-z]{2,63})\b`)
	inlineFootnoteRx     = regexp.MustCompile(`(?s)\\?footnote(?:(ref):|:([\p{L}\p{N}_-]+)?)\[(?:|(.*?[^\\]))\]`)
	inlineXrefMacroRx    = regexp.MustCompile(`(?s)\\?(?:&lt;&lt;([\p{L}\p{N}_#/.:{].*?)&gt;&gt;|xref:([\p{L}\p{N}_#/.:{].*?)\[(?:\]|(.*?[^\\])\]))`)
	inlineAnchorRx       = regexp.MustCompile(`(\\)?(?:\[\[([\p{L}_:][\p{L}\p{N}_\-:.]*)(?:, *(.+?))?\]\]|anchor:([\p{L}_:][\p{L}\p{N}_\-:.]*)\[(?:\]|(.*?[^\\])\]))`)
	inlineBiblioAnchorRx = regexp.MustCompile(`^\[\[\[([\p{L}_:][\p{L}\p{N}_\-:.]*)(?:, *(.+?))?\]\]\]`)
	uriSchemeRx          = regexp.MustCompile(`^\p{L}[\p{L}\p{N}.+-]+:/{0,2}`)
)

// asciidocExtensions are the source suffixes stripped from xref paths.
var asciidocExtensions = []string{".adoc", ".asciidoc", ".asc", ".ad", ".txt"}

func (s *substitutor) subMacros(text string) string {
	foundSquare := strings.Contains(text, "[")
	foundColon := strings.Contains(text, ":")
	foundMacroish := foundSquare && foundColon

	if foundMacroish && s.doc.extensions != nil {
		text = s.subExtensionMacros(text)
	}
	if foundMacroish && (strings.Contains(text, "image:") || strings.Contains(text, "icon:")) {
		text = gsub(text, inlineImageMacroRx, s.convertImageMacro)
	}
	if strings.Contains(text, "((") && strings.Contains(text, "))") {
		text = gsub(text, inlineIndextermRx, s.convertIndexterm)
	}
	if foundColon && strings.Contains(text, "://") {
		text = gsub(text, inlineLinkRx, s.convertURL)
	}
	if foundMacroish && (strings.Contains(text, "link:") || strings.Contains(text, "ilto:")) {
		text = gsub(text, inlineLinkMacroRx, s.convertLinkMacro)
	}
	if strings.Contains(text, "@") {
		text = gsub(text, inlineEmailRx, s.convertEmail)
	}
	if foundMacroish && strings.Contains(text, "tnote") {
		text = gsub(text, inlineFootnoteRx, s.convertFootnote)
	}
	text = s.subInlineAnchors(text, foundSquare)
	return s.subInlineXrefs(text)
}

func (s *substitutor) subExtensionMacros(text string) string {
	for _, ext := range s.doc.extensions.inlineMacros() {
		proc := ext.processor.(InlineMacroProcessor)
		text = gsub(text, ext.rx, func(m []string) string {
			if strings.HasPrefix(m[0], `\`) {
				return m[0][1:]
			}
			target, content := m[1], m[2]
			attrs := map[string]string{}
			for k, v := range ext.config.defaults {
				attrs[k] = v
			}
			switch {
			case content == "":
				if ext.config.contentModel != ContentAttributes {
					attrs["text"] = ""
				}
			case ext.config.contentModel == ContentAttributes:
				content = normalizeText(content, true, true)
				mergeMacroAttributes(attrs, content, ext.config.positional)
			default:
				content = normalizeText(content, true, true)
				attrs["text"] = content
			}
			if target == "" && ext.config.format == FormatShort {
				target = content
			}
			in, err := proc.Process(s.node, target, attrs)
			if err != nil {
				s.doc.recordError(fmt.Errorf("%w: inline macro %s: %v", ErrExtension, ext.name, err))
				return m[0]
			}
			if in == nil {
				return ""
			}
			if spec, ok := in.RemoveAttribute("subs"); ok {
				if steps := resolveSubs(spec, nil, s.doc); len(steps) > 0 {
					in.text = s.doc.applySubs(in, in.text, steps)
				}
			}
			return s.convertInline(in)
		})
	}
	return text
}

// mergeMacroAttributes parses an attribute list into attrs. Positional
// values are stored under their 1-based index and under the given names.
func mergeMacroAttributes(attrs map[string]string, text string, posNames []string) {
	al := parseAttributeList(text, posNames)
	for i, v := range al.positional {
		attrs[strconv.Itoa(i+1)] = v
	}
	for k, v := range al.named {
		attrs[k] = v
	}
}

func namedMacroAttributes(text string, posNames []string) map[string]string {
	al := parseAttributeList(strings.ReplaceAll(text, `\]`, "]"), posNames)
	attrs := make(map[string]string, len(al.named))
	for k, v := range al.named {
		attrs[k] = v
	}
	return attrs
}

func (s *substitutor) convertImageMacro(m []string) string {
	if strings.HasPrefix(m[0], `\`) {
		return m[0][1:]
	}
	typ, posNames := "image", []string{"alt", "width", "height"}
	if strings.HasPrefix(m[0], "icon:") {
		typ, posNames = "icon", []string{"size"}
	}
	target := m[1]
	attrs := namedMacroAttributes(m[2], posNames)
	if typ == "image" {
		if s.doc.options.CatalogAssets {
			s.doc.catalog.registerImage(target, s.doc.attributes["imagesdir"])
		}
		attrs["imagesdir"] = s.doc.attributes["imagesdir"]
	}
	if _, ok := attrs["alt"]; !ok {
		alt := basenameAlt(target)
		attrs["alt"] = alt
		attrs["default-alt"] = alt
	}
	return s.convertInline(s.newInline("image", "", InlineOptions{Type: typ, Target: target, Attributes: attrs}))
}

func (s *substitutor) convertIndexterm(m []string) string {
	if strings.HasPrefix(m[0], `\`) {
		return m[0][1:]
	}
	if m[1] != "" {
		return s.convertInline(s.newInline("indexterm", "", InlineOptions{
			Attributes: map[string]string{"terms": m[1]},
		}))
	}
	return s.convertInline(s.newInline("indexterm", m[2], InlineOptions{Type: "visible"}))
}

func (s *substitutor) hideScheme(target string) string {
	if _, ok := s.doc.attributes["hide-uri-scheme"]; ok {
		if t := uriSchemeRx.ReplaceAllString(target, ""); t != "" {
			return t
		}
	}
	return target
}

func addBareRole(attrs map[string]string) map[string]string {
	if attrs == nil {
		attrs = map[string]string{}
	}
	if role, ok := attrs["role"]; ok && role != "" {
		attrs["role"] = "bare " + role
	} else {
		attrs["role"] = "bare"
	}
	return attrs
}

// convertURL turns bare URLs and URL macros (https://host[text]) into links.
func (s *substitutor) convertURL(m []string) string {
	rest := m[3]
	if rest == "" {
		rest = m[5]
	}
	target := m[2] + rest
	formal := m[3] != ""
	if strings.HasPrefix(target, `\`) {
		out := m[1] + target[1:]
		if formal {
			out += "[" + m[4] + "]"
		}
		return out
	}
	prefix, suffix := m[1], ""
	linkText := ""
	hasText := false
	if formal {
		if prefix == "link:" {
			prefix = ""
		}
		linkText, hasText = m[4], m[4] != ""
	} else {
		switch prefix {
		case "link:", `"`, "'":
			return m[0]
		}
		switch m[6] {
		case ";":
			if strings.HasPrefix(prefix, "&lt;") && strings.HasSuffix(target, "&gt;") {
				prefix = prefix[4:]
				target = target[:len(target)-4]
			} else if target = target[:len(target)-1]; strings.HasSuffix(target, ")") {
				target = target[:len(target)-1]
				suffix = ");"
			} else {
				suffix = ";"
			}
			if strings.HasSuffix(target, "://") {
				return m[0]
			}
		case ":":
			if target = target[:len(target)-1]; strings.HasSuffix(target, ")") {
				target = target[:len(target)-1]
				suffix = "):"
			} else {
				suffix = ":"
			}
			if strings.HasSuffix(target, "://") {
				return m[0]
			}
		}
	}

	var attrs map[string]string
	id := ""
	bare := !hasText
	if hasText {
		linkText = strings.ReplaceAll(linkText, `\]`, "]")
		if !s.doc.CompatMode() && strings.Contains(linkText, "=") {
			linkText, attrs = extractAttributesFromText(linkText)
			id = attrs["id"]
		}
		if strings.HasSuffix(linkText, "^") {
			linkText = strings.TrimSuffix(linkText, "^")
			attrs = setWindowBlank(attrs)
		}
		if linkText == "" {
			bare = true
		}
	}
	if bare {
		linkText = s.hideScheme(target)
		attrs = addBareRole(attrs)
	}
	s.registerLink(target)
	return prefix + s.convertInline(s.newInline("anchor", linkText, InlineOptions{
		Type: "link", Target: target, ID: id, Attributes: attrs,
	})) + suffix
}

func setWindowBlank(attrs map[string]string) map[string]string {
	if attrs == nil {
		attrs = map[string]string{}
	}
	if _, ok := attrs["window"]; !ok {
		attrs["window"] = "_blank"
	}
	return attrs
}

// extractAttributesFromText splits link text such as
// "Docs,role=external,window=_blank" into text and attributes. When the text
// carries no named attributes it is returned unchanged.
func extractAttributesFromText(text string) (string, map[string]string) {
	flat := strings.ReplaceAll(text, "\n", " ")
	al := parseAttributeList(flat, nil)
	first, ok := al.Positional(1)
	if !ok {
		return "", copyAttributes(al.named, al.positional)
	}
	if first == flat {
		return text, map[string]string{}
	}
	return first, copyAttributes(al.named, al.positional)
}

func copyAttributes(named map[string]string, positional []string) map[string]string {
	out := make(map[string]string, len(named)+len(positional))
	for i, v := range positional {
		out[strconv.Itoa(i+1)] = v
	}
	for k, v := range named {
		out[k] = v
	}
	return out
}

func (s *substitutor) convertLinkMacro(m []string) string {
	if strings.HasPrefix(m[0], `\`) {
		return m[0][1:]
	}
	mailto := m[1] != ""
	target := m[2]
	if mailto {
		target = "mailto:" + m[2]
	}
	text := m[3]
	var attrs map[string]string
	id := ""
	if text != "" {
		text = strings.ReplaceAll(text, `\]`, "]")
		switch {
		case mailto && !s.doc.CompatMode() && strings.Contains(text, ","):
			text, attrs = extractAttributesFromText(text)
			id = attrs["id"]
			if subject, ok := attrs["2"]; ok {
				target += "?subject=" + encodeURIComponent(subject)
				if body, ok := attrs["3"]; ok {
					target += "&amp;body=" + encodeURIComponent(body)
				}
			}
		case !mailto && !s.doc.CompatMode() && strings.Contains(text, "="):
			text, attrs = extractAttributesFromText(text)
			id = attrs["id"]
		}
		if strings.HasSuffix(text, "^") {
			text = strings.TrimSuffix(text, "^")
			attrs = setWindowBlank(attrs)
		}
	}
	if text == "" {
		if mailto {
			text = m[2]
		} else {
			text = s.hideScheme(target)
			attrs = addBareRole(attrs)
		}
	}
	s.registerLink(target)
	return s.convertInline(s.newInline("anchor", text, InlineOptions{
		Type: "link", Target: target, ID: id, Attributes: attrs,
	}))
}

func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (s *substitutor) convertEmail(m []string) string {
	if m[1] != "" {
		if m[1] == `\` {
			return m[0][1:]
		}
		return m[0]
	}
	target := "mailto:" + m[0]
	s.registerLink(target)
	return s.convertInline(s.newInline("anchor", m[0], InlineOptions{Type: "link", Target: target}))
}

func (s *substitutor) registerLink(target string) {
	if s.doc.options.CatalogAssets {
		s.doc.catalog.registerLink(target)
	}
}

func (s *substitutor) convertFootnote(m []string) string {
	if strings.HasPrefix(m[0], `\`) {
		return m[0][1:]
	}
	doc := s.doc
	var id, content string
	if m[1] != "" {
		if m[3] == "" {
			return m[0]
		}
		id, content, _ = strings.Cut(m[3], ",")
		if !doc.CompatMode() {
			doc.logWarn(s.location(), "found deprecated footnoteref macro: %s; use footnote macro with target instead", m[0])
		}
	} else {
		id, content = m[2], m[3]
	}
	typ, target := "", ""
	index := 0
	switch {
	case id != "":
		if fn, ok := doc.findFootnote(id); ok {
			index, content = fn.Index, fn.Text
			typ, target, id = "xref", id, ""
		} else if content != "" {
			content = s.restorePassthroughs(normalizeText(content, true, true))
			index = doc.registerFootnote(id, content)
		} else {
			doc.logWarn(s.location(), "invalid footnote reference: %s", id)
			typ, target, content, id = "xref", id, id, ""
		}
	case content != "":
		content = s.restorePassthroughs(normalizeText(content, true, true))
		index = doc.registerFootnote("", content)
	default:
		return m[0]
	}
	attrs := map[string]string{}
	if index > 0 {
		attrs["index"] = strconv.Itoa(index)
	}
	return s.convertInline(s.newInline("footnote", content, InlineOptions{
		Type: typ, Target: target, ID: id, Attributes: attrs,
	}))
}

func (d *Document) findFootnote(id string) (Footnote, bool) {
	for _, fn := range d.catalog.Footnotes {
		if fn.ID == id {
			return fn, true
		}
	}
	return Footnote{}, false
}

func (d *Document) registerFootnote(id, text string) int {
	index, _ := strconv.Atoi(d.Counter("footnote-number", ""))
	d.catalog.Footnotes = append(d.catalog.Footnotes, Footnote{Index: index, ID: id, Text: text})
	return index
}

func (s *substitutor) subInlineAnchors(text string, foundSquare bool) string {
	if li, ok := s.node.(*ListItem); ok {
		if l := li.List(); l != nil && l.Style() == "bibliography" {
			if m := inlineBiblioAnchorRx.FindStringSubmatchIndex(text); m != nil {
				sm := submatches(text, m)
				ref := s.convertInline(s.newInline("anchor", sm[2], InlineOptions{Type: "bibref", ID: sm[1]}))
				text = ref + text[m[1]:]
			}
		}
	}
	if !(foundSquare && strings.Contains(text, "[[")) && !strings.Contains(text, "anchor:") {
		return text
	}
	return gsub(text, inlineAnchorRx, func(m []string) string {
		if m[1] != "" {
			return m[0][1:]
		}
		id, reftext := m[2], m[3]
		if id == "" {
			id = m[4]
			reftext = strings.ReplaceAll(m[5], `\]`, "]")
		}
		return s.convertInline(s.newInline("anchor", reftext, InlineOptions{Type: "ref", ID: id}))
	})
}

func (s *substitutor) subInlineXrefs(text string) string {
	if !(strings.Contains(text, "[") && strings.Contains(text, "xref:")) && !(strings.Contains(text, "&") && strings.Contains(text, "lt;&")) {
		return text
	}
	doc := s.doc
	return gsub(text, inlineXrefMacroRx, func(m []string) string {
		if strings.HasPrefix(m[0], `\`) {
			return m[0][1:]
		}
		attrs := map[string]string{}
		refid, text := m[1], ""
		macro := false
		if refid != "" {
			if before, after, ok := strings.Cut(refid, ","); ok {
				refid, text = before, strings.TrimLeft(after, " ")
			}
		} else {
			macro = true
			refid, text = m[2], m[3]
			if text != "" {
				text = strings.ReplaceAll(text, `\]`, "]")
				if !doc.CompatMode() && strings.Contains(text, "=") {
					text, attrs = extractAttributesFromText(text)
				}
			}
		}

		var pathPart, fragment, target string
		src2src := false
		hashIdx := strings.IndexByte(refid, '#')
		switch {
		case doc.CompatMode():
			fragment = refid
		case hashIdx > 0:
			pathPart = refid[:hashIdx]
			fragment = refid[hashIdx+1:]
			pathPart, src2src = stripSourceSuffix(pathPart, macro)
		case hashIdx == 0:
			target, fragment = refid, refid[1:]
		case macro && strings.HasSuffix(refid, ".adoc"):
			pathPart, src2src = strings.TrimSuffix(refid, ".adoc"), true
		case macro && path.Ext(refid) != "":
			pathPart = refid
		default:
			fragment = refid
		}

		switch {
		case target != "":
			refid = fragment
			s.checkRef(refid)
		case pathPart != "":
			_, included := doc.catalog.Includes[pathPart]
			if src2src && (doc.attributes["docname"] == pathPart || included) {
				if fragment != "" {
					refid, pathPart, target = fragment, "", "#"+fragment
					s.checkRef(refid)
				} else {
					refid, pathPart, target = "", "", "#"
				}
			} else {
				suffix := ""
				if src2src {
					suffix = doc.Outfilesuffix()
					if v, ok := doc.attributes["relfilesuffix"]; ok {
						suffix = v
					}
				}
				refid = pathPart
				pathPart = doc.attributes["relfileprefix"] + pathPart + suffix
				if fragment != "" {
					refid, target = refid+"#"+fragment, pathPart+"#"+fragment
				} else {
					target = pathPart
				}
			}
		default:
			refid = fragment
			if _, ok := doc.catalog.Refs[refid]; !ok {
				if resolved, ok := doc.resolveID(fragment); ok {
					refid = resolved
				}
			}
			target = "#" + refid
			s.checkRef(refid)
		}
		if pathPart != "" {
			attrs["path"] = pathPart
		}
		if fragment != "" {
			attrs["fragment"] = fragment
		}
		if refid != "" {
			attrs["refid"] = refid
		}
		return s.convertInline(s.newInline("anchor", text, InlineOptions{Type: "xref", Target: target, Attributes: attrs}))
	})
}

// stripSourceSuffix drops an AsciiDoc extension from an xref path. The
// boolean reports whether the path refers to another AsciiDoc document.
func stripSourceSuffix(p string, macro bool) (string, bool) {
	if macro {
		if strings.HasSuffix(p, ".adoc") {
			return strings.TrimSuffix(p, ".adoc"), true
		}
		return p, path.Ext(p) == ""
	}
	for _, ext := range asciidocExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext), true
		}
	}
	return p, true
}

func (s *substitutor) checkRef(refid string) {
	if _, ok := s.doc.catalog.Refs[refid]; !ok {
		s.doc.logInfo(s.location(), "possible invalid reference: %s", refid)
	}
}

// resolveID finds the id of the node whose title or reftext matches text.
func (d *Document) resolveID(text string) (string, bool) {
	for _, id := range d.catalog.RefIDs() {
		node := d.catalog.Refs[id]
		if reftext, ok := node.Attribute("reftext"); ok && reftext == text {
			return id, true
		}
		if b, ok := node.(BlockNode); ok && b.HasTitle() && b.block().title == text {
			return id, true
		}
	}
	return "", false
}
