package adoc

import "strings"

// parseHeader reads the document title, author and revision lines and the
// header attribute entries.
func (p *parser) parseHeader() error {
	d := p.doc
	if d.Nested() {
		return nil
	}
	meta, err := p.parseMetadata(nil)
	if err != nil {
		return err
	}
	st, n, ok := p.peekSectionTitle()
	if !ok || st.level+d.leveloffset() != 0 || meta.style() == "discrete" || meta.style() == "float" {
		p.pending = meta
		p.finishHeader(nil)
		return nil
	}
	p.skip(n)
	d.header = true
	d.headerTitle = st.title
	d.hasTitle = true
	if st.setext {
		d.compatMode = true
	}
	switch {
	case meta.id != "":
		d.id = meta.id
	case meta.attrs.named["id"] != "":
		d.id = meta.attrs.named["id"]
	}
	if role := meta.attrs.named["role"]; role != "" {
		d.attributes["role"] = role
	}
	d.entries = meta.entries
	d.attributes["doctitle"] = d.applyHeaderSubs(st.title)

	var authors []Author
	if line, ok := p.r.PeekLine(); ok && line != "" && !isHeaderDirective(line) {
		p.r.shift()
		authors = parseAuthorLine(d.substituteAttributesFor(line, ""))
		if line, ok := p.r.PeekLine(); ok && line != "" && !isHeaderDirective(line) {
			p.r.shift()
			p.parseRevisionLine(d.substituteAttributesFor(line, ""))
		}
	}
	for {
		line, ok := p.r.PeekLine()
		if !ok || line == "" {
			break
		}
		if isLineComment(line) {
			p.r.shift()
			continue
		}
		if attributeEntryRx.MatchString(line) {
			p.r.shift()
			entry, _ := parseAttributeEntry(line, p.r)
			p.applyAttributeEntry(entry)
			continue
		}
		break
	}
	p.finishHeader(authors)
	return p.r.err
}

func isHeaderDirective(line string) bool {
	return isLineComment(line) || attributeEntryRx.MatchString(line)
}

// finishHeader derives the author attributes, from the author line when
// there was one, else from author attributes set by entries or options.
func (p *parser) finishHeader(authors []Author) {
	d := p.doc
	if len(authors) == 0 {
		authors = authorsFromAttributes(d.attributes)
	}
	if len(authors) == 0 {
		return
	}
	d.authors = authors
	for k, v := range authorAttributes(authors) {
		d.setAttribute(k, v)
	}
}

// parseRevisionLine reads "v1.0, 2024-01-01: remark". Each part is
// optional; a lone value is a date unless it starts with v.
func (p *parser) parseRevisionLine(line string) {
	d := p.doc
	rest, remark, hasRemark := strings.Cut(line, ":")
	if hasRemark {
		// a time such as 10:30 is part of the date, not a remark separator
		if i := strings.LastIndex(line, ": "); i >= 0 {
			rest, remark = line[:i], line[i+2:]
		} else if strings.HasSuffix(line, ":") {
			rest, remark = strings.TrimSuffix(line, ":"), ""
		} else {
			rest, remark, hasRemark = line, "", false
		}
	}
	rest = strings.TrimSpace(rest)
	number, date, hasDate := strings.Cut(rest, ",")
	number = strings.TrimSpace(number)
	if !hasDate && !looksLikeRevnumber(number) {
		number, date = "", rest
	}
	if number != "" {
		number = strings.TrimLeft(number, "vV")
		d.setAttribute("revnumber", number)
	}
	if date = strings.TrimSpace(date); date != "" {
		d.setAttribute("revdate", date)
	}
	if remark = strings.TrimSpace(remark); hasRemark && remark != "" {
		d.setAttribute("revremark", remark)
	}
}

func looksLikeRevnumber(s string) bool {
	if len(s) < 2 || (s[0] != 'v' && s[0] != 'V') {
		return false
	}
	return s[1] >= '0' && s[1] <= '9' && !strings.ContainsAny(s, " /")
}

// resolveTOCAttributes turns the toc attribute value into a placement, a
// position and a class. A position such as left or right places the
// outline in a sidebar; preamble and macro place it in the content.
func (d *Document) resolveTOCAttributes() {
	attrs := d.attributes
	toc, ok := attrs["toc"]
	if _, legacy := attrs["toc2"]; legacy {
		delete(attrs, "toc2")
		toc, ok = "left", true
	}
	if !ok {
		return
	}
	position := attrs["toc-position"]
	if placement, set := attrs["toc-placement"]; set && placement != "auto" {
		position = placement
	}
	if toc == "" && position == "" {
		return
	}
	if position == "" {
		position = toc
	}
	attrs["toc"] = ""
	attrs["toc-placement"] = "auto"
	class := "toc2"
	switch position {
	case "left", "<", "&lt;":
		attrs["toc-position"] = "left"
	case "right", ">", "&gt;":
		attrs["toc-position"] = "right"
	case "top", "^":
		attrs["toc-position"] = "top"
	case "bottom", "v":
		attrs["toc-position"] = "bottom"
	case "preamble", "macro":
		attrs["toc-position"] = "content"
		attrs["toc-placement"] = position
		class = ""
	default:
		delete(attrs, "toc-position")
		class = ""
	}
	if _, set := attrs["toc-class"]; !set && class != "" {
		attrs["toc-class"] = class
	}
}
