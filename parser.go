package adoc

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// parser builds the block tree of a document from a reader. Nested
// content (delimited blocks, list items, table cells) is parsed by a
// parser over a reader of just those lines.
type parser struct {
	doc     *Document
	r       *Reader
	pending *blockMetadata
	inList  bool
}

// blockMetadata collects the lines that precede a block: attribute lists,
// anchors, titles and attribute entries.
type blockMetadata struct {
	attrs    *AttributeList
	title    string
	hasTitle bool
	id       string
	reftext  string
	entries  []attributeEntry
}

func newBlockMetadata() *blockMetadata {
	return &blockMetadata{attrs: &AttributeList{named: map[string]string{}}}
}

func (m *blockMetadata) style() string { return m.attrs.named["style"] }

func (m *blockMetadata) positional(i int) string {
	v, _ := m.attrs.Positional(i)
	return v
}

// parseDocument parses the header and body of d from its reader.
func parseDocument(d *Document) error {
	p := &parser{doc: d, r: d.reader}
	if err := p.parseHeader(); err != nil {
		return err
	}
	d.resolveTOCAttributes()
	d.initSyntaxHighlighter()
	d.headerAttributes = maps.Clone(d.attributes)
	err := p.parseBody()
	d.attributes = maps.Clone(d.headerAttributes)
	return err
}

// parseMetadata consumes blank lines, comments, block attribute lines,
// anchors, titles and attribute entries. It stops at the first line of
// content, leaving it unread.
func (p *parser) parseMetadata(meta *blockMetadata) (*blockMetadata, error) {
	if meta == nil {
		meta = newBlockMetadata()
	}
	for {
		line, ok := p.r.PeekLine()
		if !ok {
			return meta, p.r.err
		}
		switch {
		case line == "":
			p.r.shift()
			continue
		case isLineComment(line):
			p.r.shift()
			continue
		case strings.HasPrefix(line, "////"):
			if db, fence, ok := matchDelimiter(line); ok && db.context == "comment" {
				loc := p.r.Cursor()
				p.r.shift()
				if _, err := p.readDelimited(fence, loc, "comment"); err != nil {
					return meta, err
				}
				continue
			}
		case line[0] == '[':
			if m := blockAnchorRx.FindStringSubmatch(line); m != nil {
				p.r.shift()
				if m[1] != "" {
					meta.id, meta.reftext = m[1], m[2]
				}
				continue
			}
			if m := blockAttrLineRx.FindStringSubmatch(line); m != nil {
				p.r.shift()
				text := m[1]
				if strings.Contains(text, "{") {
					text = p.doc.substituteAttributesFor(text, "")
				}
				al := parseAttributeList(text, nil)
				al.applyShorthand()
				meta.attrs.merge(al)
				continue
			}
		case line[0] == '.':
			if m := blockTitleRx.FindStringSubmatch(line); m != nil {
				p.r.shift()
				meta.title, meta.hasTitle = m[1], true
				continue
			}
		case line[0] == ':':
			if attributeEntryRx.MatchString(line) {
				p.r.shift()
				entry, _ := parseAttributeEntry(line, p.r)
				meta.entries = append(meta.entries, p.applyAttributeEntry(entry))
				continue
			}
		}
		return meta, nil
	}
}

// applyAttributeEntry sets or unsets a document attribute from a
// :name: value line and returns the entry with its substituted value.
func (p *parser) applyAttributeEntry(e attributeEntry) attributeEntry {
	d := p.doc
	if e.unset {
		d.RemoveAttribute(e.name)
		return e
	}
	if e.value != "" {
		e.value = d.applyHeaderSubs(e.value)
	}
	d.setAttribute(e.name, e.value)
	return e
}

// playbackAttributes reapplies the attribute entries recorded before a
// block so conversion sees the values in effect at that point.
func (d *Document) playbackAttributes(entries []attributeEntry) {
	for _, e := range entries {
		if e.unset {
			d.RemoveAttribute(e.name)
			continue
		}
		d.setAttribute(e.name, e.value)
	}
}

// peekSectionTitle checks whether the next lines form a section title and
// reports how many lines it spans.
func (p *parser) peekSectionTitle() (sectionTitle, int, bool) {
	line, ok := p.r.PeekLine()
	if !ok || line == "" {
		return sectionTitle{}, 0, false
	}
	if line[0] == '=' || line[0] == '#' {
		if st, ok := matchATXTitle(line); ok {
			return st, 1, true
		}
	}
	if !maybeSetextTitle(line) {
		return sectionTitle{}, 0, false
	}
	lines := p.r.PeekLines(2)
	if len(lines) < 2 {
		return sectionTitle{}, 0, false
	}
	if st, ok := matchSetextTitle(lines[0], lines[1]); ok {
		return st, 2, true
	}
	return sectionTitle{}, 0, false
}

func maybeSetextTitle(line string) bool {
	switch line[0] {
	case '.', ' ', '\t', '[', '/', '<', ':', '|', '*', '-', '+', '=', '_':
		return false
	}
	return true
}

func (p *parser) skip(n int) {
	for range n {
		p.r.ReadLine()
	}
}

// parseBody parses the blocks and sections that follow the header.
// Sections are kept on a stack; a title closes every open section at its
// level or deeper.
func (p *parser) parseBody() error {
	d := p.doc
	var preamble *Block
	if d.header {
		preamble = newBlock(d, ContextPreamble)
		d.Append(preamble)
	}
	stack := []BlockNode{d}
	meta := p.pending
	p.pending = nil
	for {
		var err error
		if meta, err = p.parseMetadata(meta); err != nil {
			return err
		}
		if !p.r.HasMoreLines() {
			break
		}
		if style := meta.style(); style != "discrete" && style != "float" {
			if st, n, ok := p.peekSectionTitle(); ok {
				loc := p.r.Cursor()
				p.skip(n)
				level := max(st.level+d.leveloffset(), 0)
				for len(stack) > 1 && stack[len(stack)-1].Level() >= level {
					stack = stack[:len(stack)-1]
				}
				parent := stack[len(stack)-1]
				p.checkSectionLevel(parent, level, loc)
				s := p.buildSection(parent, st.title, level, meta, loc)
				assignNumeral(parent, s)
				parent.Append(s)
				stack = append(stack, s)
				meta = nil
				continue
			}
		}
		parent := stack[len(stack)-1]
		if parent == BlockNode(d) && preamble != nil && !d.HasSections() {
			parent = preamble
		}
		node, err := p.nextBlock(parent, meta)
		if err != nil {
			return err
		}
		if node != nil {
			parent.Append(node)
		}
		meta = nil
	}
	if preamble != nil {
		switch {
		case !preamble.HasBlocks():
			d.removeChild(preamble)
		case !d.HasSections():
			d.blocks = nil
			for _, b := range preamble.blocks {
				d.Append(b)
			}
		}
	}
	return p.r.err
}

// parseBlocks parses every remaining line of the reader into parent.
func (p *parser) parseBlocks(parent BlockNode) error {
	var meta *blockMetadata
	for {
		var err error
		if meta, err = p.parseMetadata(meta); err != nil {
			return err
		}
		if !p.r.HasMoreLines() {
			return nil
		}
		node, err := p.nextBlock(parent, meta)
		if err != nil {
			return err
		}
		if node != nil {
			parent.Append(node)
		}
		meta = nil
	}
}

// parseNested parses lines that start at loc into parent.
func (p *parser) parseNested(parent BlockNode, lines []string, loc SourceLocation) error {
	_, inList := parent.(*ListItem)
	sub := &parser{doc: p.doc, r: NewReader(lines, &loc), inList: inList}
	return sub.parseBlocks(parent)
}

func (p *parser) checkSectionLevel(parent BlockNode, level int, loc SourceLocation) {
	d := p.doc
	if level == 0 && d.Doctype() != DoctypeBook {
		d.logError(loc, "level 0 sections can only be used when doctype is book")
		return
	}
	expected := parent.Level() + 1
	if parent == BlockNode(d) {
		expected = 1
		if d.Doctype() == DoctypeBook {
			expected = 0
		}
	}
	if level > expected {
		d.logWarn(loc, "section title out of sequence: expected level %d, got level %d", expected, level)
	}
}

// buildSection creates a section from its title and metadata. The style
// selects the section name: special styles such as appendix or glossary
// make a special section, and book documents name levels part, chapter
// and section.
func (p *parser) buildSection(parent BlockNode, title string, level int, meta *blockMetadata, loc SourceLocation) *Section {
	d := p.doc
	book := d.Doctype() == DoctypeBook
	s := newSection(parent, level)
	s.SetTitle(title)
	if ps, ok := parent.(*Section); ok && ps.special {
		s.special = true
	}
	style := meta.style()
	special := false
	switch {
	case style == "abstract" && book:
		s.sectname, s.level = "chapter", 1
	case strings.HasPrefix(style, "sect") && len(style) == 5 && style[4] >= '0' && style[4] <= '5':
		s.sectname = "section"
	case style != "":
		s.sectname, special = style, true
		if s.level == 0 {
			s.level = 1
		}
	case book:
		switch level {
		case 0:
			s.sectname = "part"
		case 1:
			s.sectname = "chapter"
		default:
			s.sectname = "section"
		}
	case d.Doctype() == DoctypeManpage && strings.EqualFold(title, "synopsis"):
		s.sectname, special = "synopsis", true
	default:
		s.sectname = "section"
	}

	sectnums, numbering := d.attributes["sectnums"]
	switch {
	case special:
		s.special = true
		if s.sectname == "appendix" {
			s.numbered = true
		} else if numbering && sectnums == "all" {
			s.numbered = true
			s.chapterLike = book && s.level == 1
		}
	case numbering && s.level > 0:
		if s.special {
			if ps, ok := parent.(*Section); ok {
				s.numbered = ps.numbered
			}
		} else {
			s.numbered = true
		}
	case book && s.level == 0:
		_, s.numbered = d.attributes["partnums"]
	}

	p.applyMetadata(s, meta, loc)
	if s.sectname == "appendix" {
		if label, ok := d.attributes["appendix-caption"]; ok {
			s.captionLabel = label
		}
	}
	if s.id == "" {
		if _, ok := d.attributes["sectids"]; ok {
			s.id = d.uniqueID(p.generateID(s.Title()))
			d.registerRef(s.id, s)
		}
	}
	return s
}

func (p *parser) generateID(title string) string {
	d := p.doc
	prefix, ok := d.attributes["idprefix"]
	if !ok {
		prefix = "_"
	}
	sep, ok := d.attributes["idseparator"]
	if !ok {
		sep = "_"
	}
	return generateID(title, prefix, sep)
}

// assignNumeral gives s its index among the sections of parent and, when
// numbered, its numeral: letters for appendices, a document-wide counter
// for chapters, roman numerals for parts and the ordinal otherwise.
func assignNumeral(parent BlockNode, s *Section) {
	pb := parent.block()
	s.index = pb.nextSectionIndex
	pb.nextSectionIndex++
	if !s.numbered {
		return
	}
	d := s.document
	switch {
	case s.sectname == "appendix":
		s.numeral = d.Counter("appendix-number", "A")
	case s.sectname == "chapter" || s.chapterLike:
		s.numeral = d.Counter("chapter-number", "1")
	case s.sectname == "part":
		s.numeral = intToRoman(pb.nextSectionOrdinal)
		pb.nextSectionOrdinal++
	default:
		s.numeral = strconv.Itoa(pb.nextSectionOrdinal)
		pb.nextSectionOrdinal++
	}
}

// applyMetadata copies the collected metadata onto b: named attributes,
// style, id, title, substitutions and the source location.
func (p *parser) applyMetadata(b BlockNode, meta *blockMetadata, loc SourceLocation) {
	bb := b.block()
	named := meta.attrs.named
	for k, v := range named {
		switch k {
		case "id", "subs":
			continue
		}
		bb.attributes[k] = v
	}
	bb.positional = meta.attrs.positional
	if style, ok := named["style"]; ok {
		bb.style = style
	}
	if meta.hasTitle {
		bb.SetTitle(meta.title)
	}
	if spec, ok := named["subs"]; ok {
		bb.subs = resolveSubs(spec, bb.defaultSubs, p.doc)
	}
	bb.entries = meta.entries
	if p.doc.sourcemap {
		l := loc
		bb.sourceLocation = &l
	}
	id := meta.id
	if id == "" {
		id = named["id"]
	}
	if id != "" {
		bb.id = id
		if meta.reftext != "" {
			bb.attributes["reftext"] = meta.reftext
		}
		p.doc.registerRef(id, b)
	}
}

// assignCaption sets "<Label> N. " on a titled block when the
// <key>-caption attribute is set, or uses an explicit caption attribute.
func (p *parser) assignCaption(node BlockNode, key string) {
	b := node.block()
	if caption, ok := b.attributes["caption"]; ok {
		b.caption = caption
		delete(b.attributes, "caption")
		return
	}
	if !b.hasTitle {
		return
	}
	label, ok := p.doc.attributes[key+"-caption"]
	if !ok || label == "" {
		return
	}
	b.numeral = p.doc.Counter(key+"-number", "")
	b.caption = label + " " + b.numeral + ". "
}

// nextBlock parses the block at the head of the reader. It returns nil
// when the lines produced no block, such as a comment.
func (p *parser) nextBlock(parent BlockNode, meta *blockMetadata) (Node, error) {
	line, ok := p.r.PeekLine()
	if !ok {
		return nil, p.r.err
	}
	loc := p.r.Cursor()
	style := meta.style()

	if db, fence, ok := matchDelimiter(line); ok {
		p.r.shift()
		return p.parseDelimited(parent, meta, db, fence, line, loc)
	}
	if style == "discrete" || style == "float" {
		if st, n, ok := p.peekSectionTitle(); ok {
			p.skip(n)
			return p.buildFloatingTitle(parent, st, meta, loc), nil
		}
	}
	if ctx, ok := isBreakLine(line); ok {
		p.r.shift()
		b := newBlock(parent, ctx)
		p.applyMetadata(b, meta, loc)
		return b, nil
	}
	if strings.Contains(line, "::") {
		if m := blockMacroRx.FindStringSubmatch(line); m != nil {
			node, handled, err := p.parseBlockMacro(parent, meta, m, loc)
			if handled || err != nil {
				return node, err
			}
		}
	}
	if lm, ok := matchListItem(line); ok {
		return p.parseList(parent, meta, lm, loc)
	}
	return p.parseParagraph(parent, meta, loc)
}

// readParagraphLines reads up to the next blank line, stopping early at
// a block delimiter or block attribute line (and at list items inside a
// list). Line comments are dropped.
func (p *parser) readParagraphLines() []string {
	var lines []string
	for {
		line, ok := p.r.PeekLine()
		if !ok || line == "" {
			return lines
		}
		if len(lines) > 0 {
			if _, _, ok := matchDelimiter(line); ok {
				return lines
			}
			if line[0] == '[' && (blockAttrLineRx.MatchString(line) || blockAnchorRx.MatchString(line)) {
				return lines
			}
			if p.inList {
				if line == "+" {
					return lines
				}
				if _, ok := matchListItem(line); ok {
					return lines
				}
			}
		}
		p.r.shift()
		if isLineComment(line) {
			continue
		}
		lines = append(lines, line)
	}
}

var admonitionStyles = map[string]bool{
	"NOTE": true, "TIP": true, "IMPORTANT": true, "WARNING": true, "CAUTION": true,
}

func (p *parser) parseParagraph(parent BlockNode, meta *blockMetadata, loc SourceLocation) (Node, error) {
	style := meta.style()
	if style != "" {
		if ext := p.doc.extensions.blockFor(style, ContextParagraph); ext != nil {
			lines := p.readParagraphLines()
			return p.runBlockProcessor(ext, parent, meta, lines, loc)
		}
	}
	lines := p.readParagraphLines()
	if len(lines) == 0 {
		return nil, nil
	}
	first := lines[0]

	var b *Block
	switch {
	case style == "comment":
		return nil, nil
	case style == "" && (first[0] == ' ' || first[0] == '\t'):
		b = newBlock(parent, ContextLiteral)
		p.applyMetadata(b, meta, loc)
		adjustIndentation(lines, 0, p.tabsize(b))
		b.lines = trimBlankLines(lines)
		return b, nil
	case style == "":
		if m := admonitionParagraphRx.FindStringSubmatch(first); m != nil {
			lines[0] = first[len(m[0]):]
			b = newBlock(parent, ContextAdmonition)
			b.contentModel = ContentSimple
			b.defaultSubs = normalSubs
			b.subs = append([]string(nil), normalSubs...)
			p.applyMetadata(b, meta, loc)
			p.setAdmonition(b, m[1])
			b.lines = lines
			p.catalogInlineAnchors(strings.Join(lines, "\n"), b)
			return b, nil
		}
	case admonitionStyles[style]:
		b = newBlock(parent, ContextAdmonition)
		b.contentModel = ContentSimple
		b.defaultSubs = normalSubs
		b.subs = append([]string(nil), normalSubs...)
		p.applyMetadata(b, meta, loc)
		p.setAdmonition(b, style)
		b.lines = lines
		return b, nil
	}

	context := ContextParagraph
	switch style {
	case "literal", "listing":
		context = style
	case "source":
		context = ContextListing
	case "pass":
		context = ContextPass
	case "stem", "latexmath", "asciimath":
		context = ContextStem
	case "quote", "verse":
		context = style
	case "sidebar", "example", "abstract", "partintro":
		context = style
		if style == "abstract" || style == "partintro" {
			context = ContextOpen
		}
	}
	b = newBlock(parent, context)
	if b.contentModel == ContentCompound {
		// paragraph-form example, sidebar, quote and open blocks hold text
		b.contentModel = ContentSimple
		b.defaultSubs = normalSubs
		b.subs = append([]string(nil), normalSubs...)
	}
	p.applyMetadata(b, meta, loc)
	switch context {
	case ContextListing, ContextLiteral:
		p.prepareVerbatim(b, lines)
	case ContextQuote, ContextVerse:
		p.setAttribution(b, meta)
		b.lines = lines
	case ContextStem:
		p.setStemStyle(b, style)
		b.lines = trimBlankLines(lines)
	default:
		b.lines = lines
		if context == ContextParagraph {
			p.catalogInlineAnchors(strings.Join(lines, "\n"), b)
		}
	}
	if context == ContextExample {
		p.assignCaption(b, "example")
	}
	return b, nil
}

func (p *parser) setAdmonition(b *Block, style string) {
	name := strings.ToLower(style)
	b.style = style
	b.attributes["style"] = style
	b.attributes["name"] = name
	if label, ok := p.doc.attributes[name+"-caption"]; ok {
		b.attributes["textlabel"] = label
	}
}

func (p *parser) setAttribution(b *Block, meta *blockMetadata) {
	if v := meta.positional(2); v != "" {
		if _, ok := b.attributes["attribution"]; !ok {
			b.attributes["attribution"] = v
		}
	}
	if v := meta.positional(3); v != "" {
		if _, ok := b.attributes["citetitle"]; !ok {
			b.attributes["citetitle"] = v
		}
	}
}

func (p *parser) setStemStyle(b *Block, style string) {
	switch style {
	case "latexmath", "asciimath":
		b.style = style
	default:
		b.style = "asciimath"
		if t, ok := stemTypes[p.doc.attributes["stem"]]; ok {
			b.style = t
		}
	}
	b.attributes["style"] = b.style
}

func (p *parser) tabsize(b *Block) int {
	v, ok := b.attributes["tabsize"]
	if !ok {
		v = p.doc.attributes["tabsize"]
	}
	n, _ := strconv.Atoi(v)
	return n
}

// prepareVerbatim stores the lines of a listing or literal block with
// tabs expanded and indentation adjusted, and resolves source language
// and highlighting.
func (p *parser) prepareVerbatim(b *Block, lines []string) {
	size := p.tabsize(b)
	indent := -1
	if v, ok := b.attributes["indent"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			indent = n
		}
	}
	lines = append([]string(nil), lines...)
	adjustIndentation(lines, indent, size)
	b.lines = trimBlankLines(lines)

	if b.style != "source" {
		return
	}
	if _, ok := b.attributes["language"]; !ok {
		if lang, ok := b.PositionalAttribute(2); ok && lang != "" {
			b.attributes["language"] = lang
		} else if lang, ok := p.doc.attributes["source-language"]; ok && lang != "" {
			b.attributes["language"] = lang
		}
	}
	if v, ok := b.PositionalAttribute(3); ok && v == "linenums" {
		b.attributes["linenums-option"] = ""
	}
	if p.doc.highlighterHandles() {
		for i, s := range b.subs {
			if s == SubSpecialCharacters {
				b.subs[i] = SubHighlight
			}
		}
	}
}

// readDelimited reads the lines up to the closing fence.
func (p *parser) readDelimited(fence string, loc SourceLocation, context string) ([]string, error) {
	lines, ok := p.r.readLinesUntil(func(l string) bool { return l == fence }, true)
	if !ok {
		if p.r.err != nil {
			return nil, p.r.err
		}
		return nil, newParseError(loc, fmt.Errorf("%w: %s block opened by %s", ErrUnterminatedBlock, context, fence))
	}
	return lines, nil
}

// parseDelimited builds the block opened by fence. The style may turn the
// block into another kind (masquerading), such as [source] on an open
// block or [NOTE] on an example block.
func (p *parser) parseDelimited(parent BlockNode, meta *blockMetadata, db delimitedBlock, fence, open string, loc SourceLocation) (Node, error) {
	contentLoc := p.r.Cursor()
	context := db.context
	lines, err := p.readDelimited(fence, loc, context)
	if err != nil {
		return nil, err
	}
	style := meta.style()

	if context == ContextTable {
		return p.parseTable(parent, meta, fence, lines, contentLoc, loc)
	}
	if style != "" {
		if ext := p.doc.extensions.blockFor(style, context); ext != nil {
			return p.runBlockProcessor(ext, parent, meta, lines, contentLoc)
		}
	}

	switch context {
	case "comment":
		return nil, nil
	case "fenced_code":
		context, style = ContextListing, "source"
		meta.attrs.named["style"] = "source"
		if m := fencedCodeRx.FindStringSubmatch(open); m != nil && m[1] != "" {
			meta.attrs.named["language"] = m[1]
			if m[2] == "linenums" {
				meta.attrs.named["linenums-option"] = ""
			}
		}
	}

	if style != "" && style != context {
		switch {
		case admonitionStyles[style] && containsString(db.masq, "admonition"):
			context = ContextAdmonition
		case style == "source" && containsString(db.masq, "source"):
			context = ContextListing
		case (style == "latexmath" || style == "asciimath" || style == "stem") && containsString(db.masq, style):
			context = ContextStem
		case containsString(db.masq, style):
			switch style {
			case "abstract", "partintro":
			case "comment":
				return nil, nil
			default:
				context = style
			}
		}
	}

	b := newBlock(parent, context)
	if style == "source" && context == ContextListing {
		b.style = "source"
	}
	p.applyMetadata(b, meta, loc)
	switch b.contentModel {
	case ContentVerbatim:
		p.prepareVerbatim(b, lines)
	case ContentRaw:
		if context == ContextStem {
			p.setStemStyle(b, style)
		}
		b.lines = trimBlankLines(lines)
	case ContentSimple:
		if context == ContextVerse {
			p.setAttribution(b, meta)
		}
		b.lines = trimBlankLines(lines)
	default:
		switch context {
		case ContextAdmonition:
			p.setAdmonition(b, style)
		case ContextQuote:
			p.setAttribution(b, meta)
		case ContextExample:
			p.assignCaption(b, "example")
		}
		if err := p.parseNested(b, lines, contentLoc); err != nil {
			return nil, err
		}
	}
	if context == ContextListing && b.hasTitle {
		p.assignCaption(b, "listing")
	}
	return b, nil
}

func (p *parser) buildFloatingTitle(parent BlockNode, st sectionTitle, meta *blockMetadata, loc SourceLocation) *Block {
	b := newBlock(parent, ContextFloatingTitle)
	p.applyMetadata(b, meta, loc)
	b.SetTitle(st.title)
	b.level = max(st.level+p.doc.leveloffset(), 0)
	if b.id == "" {
		if _, ok := p.doc.attributes["sectids"]; ok {
			b.id = p.doc.uniqueID(p.generateID(b.Title()))
			p.doc.registerRef(b.id, b)
		}
	}
	return b
}

// parseBlockMacro builds image, video, audio and toc blocks and runs
// extension block macros. Unknown macro names are left to the paragraph
// parser.
func (p *parser) parseBlockMacro(parent BlockNode, meta *blockMetadata, m []string, loc SourceLocation) (Node, bool, error) {
	d := p.doc
	name, target, attrlist := m[1], m[2], m[3]
	if strings.Contains(attrlist, "{") {
		attrlist = d.substituteAttributesFor(attrlist, "")
	}
	if strings.Contains(target, "{") {
		target = d.substituteAttributesFor(target, "")
	}
	switch name {
	case "image", "video", "audio":
		if target == "" {
			return nil, false, nil
		}
		p.r.shift()
		posNames := map[string][]string{
			"image": {"alt", "width", "height"},
			"video": {"poster", "width", "height"},
		}[name]
		al := parseAttributeList(attrlist, posNames)
		meta.attrs.merge(al)
		for i, n := range posNames {
			if v, ok := al.Positional(i + 1); ok && v != "" {
				meta.attrs.named[n] = v
			}
		}
		delete(meta.attrs.named, "style")
		b := newBlock(parent, name)
		p.applyMetadata(b, meta, loc)
		b.attributes["target"] = target
		if name == "image" {
			if _, ok := b.attributes["alt"]; !ok {
				alt := basenameAlt(target)
				b.attributes["alt"] = alt
				b.attributes["default-alt"] = alt
			}
			if d.options.CatalogAssets {
				d.catalog.registerImage(target, d.attributes["imagesdir"])
			}
			p.assignCaption(b, "figure")
		}
		return b, true, nil
	case "toc":
		p.r.shift()
		meta.attrs.merge(parseAttributeList(attrlist, nil))
		b := newBlock(parent, ContextTOC)
		p.applyMetadata(b, meta, loc)
		return b, true, nil
	}

	ext := d.extensions.blockMacroFor(name)
	if ext == nil {
		return nil, false, nil
	}
	p.r.shift()
	attrs := maps.Clone(ext.config.defaults)
	if attrs == nil {
		attrs = map[string]string{}
	}
	if ext.config.contentModel == ContentAttributes || ext.config.contentModel == "" {
		if attrlist != "" {
			mergeMacroAttributes(attrs, attrlist, ext.config.positional)
		}
	} else {
		attrs["text"] = attrlist
	}
	for k, v := range meta.attrs.named {
		if _, ok := attrs[k]; !ok {
			attrs[k] = v
		}
	}
	node, err := ext.processor.(BlockMacroProcessor).Process(parent, target, attrs)
	if err != nil {
		return nil, true, fmt.Errorf("%w: block macro %s: %v", ErrExtension, name, err)
	}
	p.adoptProcessorResult(node, meta, loc)
	return node, true, nil
}

// runBlockProcessor hands the lines of a styled block to the extension
// registered for that style.
func (p *parser) runBlockProcessor(ext *extension, parent BlockNode, meta *blockMetadata, lines []string, loc SourceLocation) (Node, error) {
	attrs := maps.Clone(ext.config.defaults)
	if attrs == nil {
		attrs = map[string]string{}
	}
	for i, v := range meta.attrs.positional {
		attrs[strconv.Itoa(i+1)] = v
		if i < len(ext.config.positional) && ext.config.positional[i] != "" {
			if _, ok := meta.attrs.named[ext.config.positional[i]]; !ok {
				attrs[ext.config.positional[i]] = v
			}
		}
	}
	for k, v := range meta.attrs.named {
		attrs[k] = v
	}
	if meta.hasTitle {
		attrs["title"] = meta.title
	}
	switch ext.config.contentModel {
	case ContentVerbatim, ContentRaw:
		lines = trimBlankLines(lines)
	}
	node, err := ext.processor.(BlockProcessor).Process(parent, NewReader(lines, &loc), attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %v", ErrExtension, ext.name, err)
	}
	p.adoptProcessorResult(node, meta, loc)
	return node, nil
}

// adoptProcessorResult gives a block returned by an extension the id,
// title and source location of the block it replaces, unless it set its own.
func (p *parser) adoptProcessorResult(node Node, meta *blockMetadata, loc SourceLocation) {
	b, ok := node.(BlockNode)
	if !ok || b == nil {
		return
	}
	bb := b.block()
	if !bb.hasTitle && meta.hasTitle {
		bb.SetTitle(meta.title)
	}
	if bb.id == "" && meta.id != "" {
		bb.id = meta.id
		p.doc.registerRef(meta.id, b)
	}
	if bb.sourceLocation == nil && p.doc.sourcemap {
		l := loc
		bb.sourceLocation = &l
	}
	if bb.entries == nil {
		bb.entries = meta.entries
	}
}

// catalogInlineAnchors registers the [[id]] and anchor:id[] anchors of
// text so cross references can resolve them before conversion.
func (p *parser) catalogInlineAnchors(text string, node Node) {
	if !strings.Contains(text, "[[") && !strings.Contains(text, "anchor:") {
		return
	}
	for _, m := range inlineAnchorRx.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			continue
		}
		id, reftext := m[2], m[3]
		if id == "" {
			id, reftext = m[4], m[5]
		}
		if _, taken := p.doc.catalog.Refs[id]; taken {
			continue
		}
		in := NewInline(node, "anchor", reftext, InlineOptions{Type: "ref", ID: id})
		p.doc.registerRef(id, in)
	}
}
