package adoc

import (
	"encoding/csv"
	"errors"
	"io"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 3*, 2<, .^, 15%, ~, 1e
	colSpecRx = regexp.MustCompile(`^(?:(\d+)\*)?([<^>])?(?:\.([<^>]))?(\d+%?|~)?([a-z])?$`)
	// 2+, .3+, 2.3+, 3*, ^.>, a, at the end of the text preceding a separator
	cellSpecRx = regexp.MustCompile(`(?:^|[ \t\n])((?:(\d+)?(?:\.(\d+))?([*+]))?([<^>])?(?:\.([<^>]))?([adehlms])?)$`)
)

var alignNames = map[string]string{"<": "left", "^": "center", ">": "right"}
var valignNames = map[string]string{"<": "top", "^": "middle", ">": "bottom"}

// cellSpec is the span, alignment and style written before a cell.
type cellSpec struct {
	colspan int
	rowspan int
	repeat  int
	halign  string
	valign  string
	style   string
}

// rawCell is a cell as split from the source, before it is placed in a row.
type rawCell struct {
	spec cellSpec
	text string
	line int
}

// parseTable builds a table from the lines between its fences. The fence
// character selects the format: | for prefix-separated values, , for CSV
// and : for delimiter-separated values.
func (p *parser) parseTable(parent BlockNode, meta *blockMetadata, fence string, lines []string, contentLoc, loc SourceLocation) (Node, error) {
	t := newTable(parent)
	p.applyMetadata(t, meta, loc)

	format := map[byte]string{'|': "psv", ',': "csv", ':': "dsv"}[fence[0]]
	if f, ok := t.attributes["format"]; ok {
		format = f
	}
	if cols, ok := t.attributes["cols"]; ok {
		t.columns = parseColSpecs(cols)
	}

	var cells []rawCell
	switch format {
	case "csv", "tsv":
		sep := ','
		if format == "tsv" {
			sep = '\t'
		}
		if s := t.attributes["separator"]; s != "" {
			sep = []rune(s)[0]
		}
		var err error
		if cells, err = splitCSV(lines, sep); err != nil {
			p.doc.logWarn(contentLoc, "malformed CSV table: %v", err)
		}
	case "dsv":
		sep := ":"
		if s := t.attributes["separator"]; s != "" {
			sep = s
		}
		cells = splitDSV(lines, sep)
	default:
		sep := "|"
		if fence[0] == '!' {
			sep = "!"
		}
		if s := t.attributes["separator"]; s != "" {
			sep = s
		}
		cells = splitPSV(strings.Join(lines, "\n"), sep)
	}

	if len(t.columns) == 0 {
		n := 0
		first := firstContentLine(lines)
		for _, c := range cells {
			if c.line != first {
				break
			}
			n += max(c.spec.colspan, 1) * max(c.spec.repeat, 1)
		}
		for i := range max(n, 1) {
			t.columns = append(t.columns, &Column{Number: i + 1, Width: 1, HAlign: "left", VAlign: "top"})
		}
	}

	rows := p.buildRows(t, cells, contentLoc)
	_, explicitHeader := t.attributes["header-option"]
	_, noHeader := t.attributes["noheader-option"]
	implicitHeader := !explicitHeader && !noHeader && len(rows) > 0 && hasImplicitHeader(lines, rows[0])
	if len(rows) > 0 && (explicitHeader || implicitHeader) {
		t.head = rows[:1]
		rows = rows[1:]
		for _, c := range t.head[0] {
			if c.style != "asciidoc" && c.style != "literal" {
				c.style = ""
			}
		}
		if implicitHeader {
			t.attributes["header-option"] = ""
		}
	}
	if _, ok := t.attributes["footer-option"]; ok && len(rows) > 0 {
		t.foot = rows[len(rows)-1:]
		rows = rows[:len(rows)-1]
	}
	t.body = rows

	if _, ok := t.attributes["autowidth-option"]; !ok {
		t.assignColumnWidths()
	}
	t.attributes["colcount"] = strconv.Itoa(len(t.columns))
	t.attributes["rowcount"] = strconv.Itoa(len(t.head) + len(t.body) + len(t.foot))
	pcwidth := 100
	if w, ok := t.attributes["width"]; ok {
		if n, err := strconv.Atoi(strings.TrimSuffix(w, "%")); err == nil && n > 0 && n <= 100 {
			pcwidth = n
		}
	}
	t.attributes["tablepcwidth"] = strconv.Itoa(pcwidth)
	p.assignCaption(t, "table")

	for _, row := range slicesConcat(t.head, t.body, t.foot) {
		for _, c := range row {
			if c.style == "asciidoc" {
				if err := p.parseAsciiDocCell(c); err != nil {
					return nil, err
				}
			}
		}
	}
	return t, nil
}

func slicesConcat(groups ...[][]*TableCell) [][]*TableCell {
	var out [][]*TableCell
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func firstContentLine(lines []string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			return i
		}
	}
	return 0
}

// hasImplicitHeader reports whether the first row sits alone on the first
// line of the table and a blank line follows it.
func hasImplicitHeader(lines []string, first []*TableCell) bool {
	if len(lines) < 2 || strings.TrimSpace(lines[0]) == "" || lines[1] != "" {
		return false
	}
	for _, c := range first {
		if c.line != 0 {
			return false
		}
	}
	return true
}

// parseColSpecs reads the cols attribute. A bare number is a column count.
func parseColSpecs(spec string) []*Column {
	spec = strings.TrimSpace(spec)
	if n, err := strconv.Atoi(spec); err == nil {
		cols := make([]*Column, 0, n)
		for i := range n {
			cols = append(cols, &Column{Number: i + 1, Width: 1, HAlign: "left", VAlign: "top"})
		}
		return cols
	}
	sep := ","
	if !strings.Contains(spec, ",") && strings.Contains(spec, ";") {
		sep = ";"
	}
	var cols []*Column
	for _, item := range strings.Split(spec, sep) {
		m := colSpecRx.FindStringSubmatch(strings.TrimSpace(item))
		if m == nil {
			cols = append(cols, &Column{Width: 1, HAlign: "left", VAlign: "top"})
			continue
		}
		repeat := 1
		if m[1] != "" {
			repeat, _ = strconv.Atoi(m[1])
		}
		for range repeat {
			c := &Column{Width: 1, HAlign: "left", VAlign: "top"}
			if m[2] != "" {
				c.HAlign = alignNames[m[2]]
			}
			if m[3] != "" {
				c.VAlign = valignNames[m[3]]
			}
			if m[4] != "" && m[4] != "~" {
				c.Width, _ = strconv.Atoi(strings.TrimSuffix(m[4], "%"))
			}
			if m[5] != "" {
				c.Style = cellStyles[m[5][0]]
			}
			cols = append(cols, c)
		}
	}
	for i, c := range cols {
		c.Number = i + 1
	}
	return cols
}

func parseCellSpec(m []string) cellSpec {
	s := cellSpec{}
	switch m[4] {
	case "+":
		s.colspan, _ = strconv.Atoi(m[2])
		s.rowspan, _ = strconv.Atoi(m[3])
	case "*":
		s.repeat, _ = strconv.Atoi(m[2])
	}
	if m[5] != "" {
		s.halign = alignNames[m[5]]
	}
	if m[6] != "" {
		s.valign = valignNames[m[6]]
	}
	if m[7] != "" {
		s.style = cellStyles[m[7][0]]
	}
	return s
}

// splitPSV splits text on unescaped separators. The specifier of each cell is
// written at the end of the text before its separator.
func splitPSV(text, sep string) []rawCell {
	var segments []string
	var starts []int
	var b strings.Builder
	start := 0
	for i := 0; i < len(text); {
		switch {
		case text[i] == '\\' && strings.HasPrefix(text[i+1:], sep):
			b.WriteString(sep)
			i += 1 + len(sep)
		case strings.HasPrefix(text[i:], sep):
			segments = append(segments, b.String())
			starts = append(starts, start)
			b.Reset()
			i += len(sep)
			start = i
		default:
			b.WriteByte(text[i])
			i++
		}
	}
	segments = append(segments, b.String())
	starts = append(starts, start)
	if len(segments) < 2 {
		return nil
	}

	var cells []rawCell
	spec := cellSpec{}
	if m := cellSpecRx.FindStringSubmatch(strings.TrimSpace(segments[0])); m != nil && m[1] != "" {
		spec = parseCellSpec(m)
	}
	for i := 1; i < len(segments); i++ {
		content := segments[i]
		next := cellSpec{}
		if i < len(segments)-1 {
			if m := cellSpecRx.FindStringSubmatchIndex(content); m != nil && m[3] > m[2] {
				sm := make([]string, 8)
				for g := range sm {
					if m[2*g] >= 0 {
						sm[g] = content[m[2*g]:m[2*g+1]]
					}
				}
				next = parseCellSpec(sm)
				content = content[:m[2]]
			}
		}
		line := strings.Count(text[:starts[i]], "\n")
		cells = append(cells, rawCell{spec: spec, text: content, line: line})
		spec = next
	}
	return cells
}

func splitCSV(lines []string, sep rune) ([]rawCell, error) {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	var cells []rawCell
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return cells, nil
		}
		if err != nil {
			return cells, err
		}
		line, _ := r.FieldPos(0)
		for _, f := range rec {
			cells = append(cells, rawCell{text: f, line: line - 1})
		}
	}
}

func splitDSV(lines []string, sep string) []rawCell {
	var cells []rawCell
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		for _, f := range splitUnescaped(l, sep) {
			cells = append(cells, rawCell{text: f, line: i})
		}
	}
	return cells
}

func splitUnescaped(s, sep string) []string {
	var out []string
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && strings.HasPrefix(s[i+1:], sep):
			b.WriteString(sep)
			i += 1 + len(sep)
		case strings.HasPrefix(s[i:], sep):
			out = append(out, b.String())
			b.Reset()
			i += len(sep)
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return append(out, b.String())
}

// buildRows places cells into rows of the table's column count, keeping
// track of the slots that row spans from earlier rows occupy.
func (p *parser) buildRows(t *Table, cells []rawCell, loc SourceLocation) [][]*TableCell {
	ncols := len(t.columns)
	var rows [][]*TableCell
	var row []*TableCell
	var spans []int
	used := 0
	closeRow := func() {
		rows = append(rows, row)
		row = nil
		if len(spans) > 0 {
			spans = spans[1:]
		}
		used = 0
		if len(spans) > 0 {
			used = spans[0]
		}
	}
	for _, rc := range cells {
		for range max(rc.spec.repeat, 1) {
			col := t.columns[min(used, ncols-1)]
			c := newTableCell(t, col, normalizeCellText(rc.text, rc.spec.style, col.Style))
			c.line = rc.line
			if p.doc.sourcemap {
				l := loc
				l.LineNumber += rc.line
				c.loc = &l
			}
			if rc.spec.colspan > 1 {
				c.colspan = rc.spec.colspan
				c.attributes["colspan"] = strconv.Itoa(c.colspan)
			}
			if rc.spec.rowspan > 1 {
				c.rowspan = rc.spec.rowspan
				c.attributes["rowspan"] = strconv.Itoa(c.rowspan)
			}
			if rc.spec.halign != "" {
				c.halign = rc.spec.halign
			}
			if rc.spec.valign != "" {
				c.valign = rc.spec.valign
			}
			if rc.spec.style != "" {
				c.style = rc.spec.style
			}
			row = append(row, c)
			used += c.colspan
			for k := 1; k < c.rowspan; k++ {
				for len(spans) <= k {
					spans = append(spans, 0)
				}
				spans[k] += c.colspan
			}
			if used >= ncols {
				closeRow()
			}
		}
	}
	if len(row) > 0 {
		p.doc.logWarn(loc, "dropping cells from incomplete row detected end of table")
	}
	return rows
}

// normalizeCellText trims cell text. AsciiDoc and literal cells keep
// their indentation; only surrounding blank lines go.
func normalizeCellText(text, specStyle, colStyle string) string {
	style := specStyle
	if style == "" {
		style = colStyle
	}
	switch style {
	case "asciidoc", "literal":
		return strings.Join(trimBlankLines(strings.Split(rtrim(text), "\n")), "\n")
	}
	return strings.TrimSpace(text)
}

// parseAsciiDocCell parses the text of an "a" cell as a nested document
// that inherits the attributes of its parent.
func (p *parser) parseAsciiDocCell(c *TableCell) error {
	parent := p.doc
	lines := splitLines(c.text)
	inner := newDocument(lines, Options{parent: parent})
	inner.attributes = maps.Clone(parent.attributes)
	for _, name := range []string{"doctitle", "toc", "toc-placement", "toc-position", "notitle"} {
		delete(inner.attributes, name)
	}
	inner.locked = maps.Clone(parent.locked)
	loc := SourceLocation{LineNumber: c.line + 1}
	if c.loc != nil {
		loc = *c.loc
	}
	inner.reader = NewReader(lines, &loc)
	inner.reader.doc = inner
	if err := parseDocument(inner); err != nil {
		return err
	}
	inner.parent = c
	c.inner = inner
	return nil
}
