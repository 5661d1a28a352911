package adoc

import (
	"strconv"
	"strings"
)

// parseList reads consecutive sibling items that share the marker trait
// of first. Each item keeps the lines up to the next sibling; lines past
// the item text are parsed as the item's blocks.
func (p *parser) parseList(parent BlockNode, meta *blockMetadata, first listMarker, loc SourceLocation) (Node, error) {
	if first.context == ContextDlist {
		return p.parseDescriptionList(parent, meta, first, loc)
	}
	l := newList(parent, first.context)
	p.applyMetadata(l, meta, loc)
	trait := listTrait(first)

	for {
		line, ok := p.r.PeekLine()
		if !ok {
			break
		}
		lm, ok := matchListItem(line)
		if !ok || lm.context != first.context || listTrait(lm) != trait {
			break
		}
		itemLoc := p.r.Cursor()
		p.r.shift()
		buf := p.readItemLines(lm)
		li := newListItem(l, "")
		li.marker = lm.marker
		if p.doc.sourcemap {
			li.sourceLocation = &itemLoc
		}
		text := lm.text
		if l.context == ContextUlist {
			text = p.applyCheckbox(l, li, text)
		}
		l.Append(li)
		if err := p.fillItem(li, text, buf, itemLoc); err != nil {
			return nil, err
		}
		if !p.skipToSibling(first.context, trait) {
			break
		}
	}

	switch l.context {
	case ContextOlist:
		p.finishOrderedList(l, first.marker)
	case ContextColist:
		for i, li := range l.Items() {
			if li.marker == "<.>" {
				li.marker = "<" + strconv.Itoa(i+1) + ">"
			}
		}
	}
	return l, nil
}

// skipToSibling consumes blank lines and reports whether the next line
// is another item of the list.
func (p *parser) skipToSibling(context, trait string) bool {
	for {
		line, ok := p.r.PeekLine()
		if !ok {
			return false
		}
		if line != "" {
			lm, ok := matchListItem(line)
			return ok && lm.context == context && listTrait(lm) == trait
		}
		p.r.shift()
	}
}

func (p *parser) applyCheckbox(l *List, li *ListItem, text string) string {
	m := checklistRx.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	li.attributes["checkbox"] = ""
	if m[1] != " " {
		li.attributes["checked"] = ""
	}
	l.attributes["checklist-option"] = ""
	return m[2]
}

// finishOrderedList resolves the numbering style and start value.
func (p *parser) finishOrderedList(l *List, marker string) {
	style := l.style
	if style == "" {
		style = orderedListStyle(marker)
	}
	if style == "" {
		depth := len(marker) - 1
		style = orderedListStyles[depth%len(orderedListStyles)]
	}
	l.style = style
	l.attributes["style"] = style
	if _, ok := l.attributes["start"]; ok {
		return
	}
	var start int
	switch style {
	case "arabic":
		start, _ = strconv.Atoi(strings.TrimSuffix(marker, "."))
	case "loweralpha", "upperalpha":
		if len(marker) == 2 {
			start = int(marker[0]|0x20) - 'a' + 1
		}
	case "lowerroman", "upperroman":
		start = romanToInt(strings.TrimSuffix(marker, ")"))
	}
	if start > 1 {
		l.attributes["start"] = strconv.Itoa(start)
	}
}

func romanToInt(s string) int {
	values := map[byte]int{'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100, 'd': 500, 'm': 1000}
	s = strings.ToLower(s)
	total := 0
	for i := 0; i < len(s); i++ {
		v := values[s[i]]
		if i+1 < len(s) && values[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total
}

// readItemLines collects the lines that belong to the item opened by lm.
// A "+" line attaches the next block and is recorded as a blank line.
// Nested items with another trait stay in the buffer; a blank line ends
// the item unless a nested list or continuation follows it.
func (p *parser) readItemLines(lm listMarker) []string {
	var buf []string
	blank := false
	detachedOK := lm.context == ContextDlist && lm.text == ""
	for {
		line, ok := p.r.PeekLine()
		if !ok {
			break
		}
		if next, ok := matchListItem(line); ok && isSiblingItem(lm, next) {
			break
		}
		if line == "" {
			p.r.shift()
			blank = true
			continue
		}
		if blank {
			_, isItem := matchListItem(line)
			switch {
			case isItem:
			case detachedOK && !hasContent(buf):
			default:
				return trimBlankLines(buf)
			}
			buf = append(buf, "")
			blank = false
		}
		if line == "+" {
			p.r.shift()
			buf = append(buf, "")
			buf = p.readAttachedBlock(buf)
			continue
		}
		if _, _, ok := matchDelimiter(line); ok {
			break
		}
		if line[0] == '[' && blockAttrLineRx.MatchString(line) {
			if ahead := p.r.PeekLines(2); len(ahead) < 2 {
				break
			} else if _, ok := matchListItem(ahead[1]); !ok {
				break
			}
		}
		p.r.shift()
		buf = append(buf, line)
		if lm.context == ContextDlist && lm.text == "" {
			detachedOK = false
		}
	}
	return trimBlankLines(buf)
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if l != "" {
			return true
		}
	}
	return false
}

func isSiblingItem(lm, next listMarker) bool {
	if next.context != lm.context {
		return false
	}
	return listTrait(next) == listTrait(lm)
}

// readAttachedBlock appends the block metadata lines after a list
// continuation and, when a delimited block follows, the whole block.
func (p *parser) readAttachedBlock(buf []string) []string {
	for {
		line, ok := p.r.PeekLine()
		if !ok || line == "" {
			return buf
		}
		isMeta := (line[0] == '[' && (blockAttrLineRx.MatchString(line) || blockAnchorRx.MatchString(line))) ||
			(line[0] == '.' && blockTitleRx.MatchString(line))
		if isMeta {
			p.r.shift()
			buf = append(buf, line)
			continue
		}
		_, fence, ok := matchDelimiter(line)
		if !ok {
			return buf
		}
		p.r.shift()
		buf = append(buf, line)
		body, closed := p.r.readLinesUntil(func(l string) bool { return l == fence }, true)
		buf = append(buf, body...)
		if closed {
			buf = append(buf, fence)
		}
		return buf
	}
}

// fillItem sets the item text from the marker line and the lines that
// directly continue it, then parses the remaining lines as its blocks.
func (p *parser) fillItem(li *ListItem, text string, buf []string, loc SourceLocation) error {
	i := 0
	for ; i < len(buf); i++ {
		line := buf[i]
		if line == "" || !isItemTextLine(line) {
			break
		}
		if isLineComment(line) {
			continue
		}
		stripped := strings.TrimLeft(line, " \t")
		if text == "" {
			text = stripped
		} else {
			text += "\n" + stripped
		}
	}
	li.SetText(text)
	p.catalogInlineAnchors(text, li)
	rest := trimBlankLines(buf[i:])
	if len(rest) == 0 {
		return nil
	}
	loc.LineNumber += i + 1
	return p.parseNested(li, rest, loc)
}

func isItemTextLine(line string) bool {
	if _, ok := matchListItem(line); ok {
		return false
	}
	if _, _, ok := matchDelimiter(line); ok {
		return false
	}
	if line[0] == '[' && (blockAttrLineRx.MatchString(line) || blockAnchorRx.MatchString(line)) {
		return false
	}
	return true
}

// parseDescriptionList reads description list entries. Consecutive terms
// with no description of their own share the description that follows.
func (p *parser) parseDescriptionList(parent BlockNode, meta *blockMetadata, first listMarker, loc SourceLocation) (Node, error) {
	l := newList(parent, ContextDlist)
	p.applyMetadata(l, meta, loc)

	var terms []*ListItem
	for {
		line, ok := p.r.PeekLine()
		if !ok {
			break
		}
		lm, ok := matchListItem(line)
		if !ok || lm.context != ContextDlist || lm.marker != first.marker {
			break
		}
		itemLoc := p.r.Cursor()
		p.r.shift()
		term := newListItem(l, lm.term)
		term.marker = lm.marker
		p.catalogInlineAnchors(lm.term, term)
		terms = append(terms, term)

		if lm.text == "" {
			if next, ok := p.r.PeekLine(); ok {
				if nm, ok := matchListItem(next); ok && isSiblingItem(lm, nm) {
					continue
				}
			}
		}
		buf := p.readItemLines(lm)
		entry := &DescriptionListEntry{Terms: terms}
		if lm.text != "" || len(buf) > 0 {
			desc := newListItem(l, "")
			desc.marker = lm.marker
			if err := p.fillItem(desc, lm.text, buf, itemLoc); err != nil {
				return nil, err
			}
			entry.Description = desc
		}
		l.AppendEntry(entry)
		terms = nil
		if !p.skipToSibling(ContextDlist, first.marker) {
			break
		}
	}
	if len(terms) > 0 {
		l.AppendEntry(&DescriptionListEntry{Terms: terms})
	}
	return l, nil
}
