package adoc

import (
	"regexp"
	"strings"
)

// Table is a table block with columns and head, body and foot rows.
type Table struct {
	blockBase
	columns []*Column
	head    [][]*TableCell
	body    [][]*TableCell
	foot    [][]*TableCell
}

// Column describes one table column.
type Column struct {
	Number  int
	Width   int
	Percent float64
	HAlign  string
	VAlign  string
	Style   string
}

// TableCell is a single table cell. AsciiDoc-style cells ("a") carry a
// nested document.
type TableCell struct {
	nodeBase
	text    string
	column  *Column
	colspan int
	rowspan int
	style   string
	halign  string
	valign  string
	inner   *Document
	loc     *SourceLocation
	// line of the cell source, relative to the start of the table
	line int
}

var _ BlockNode = (*Table)(nil)

func newTable(parent Node) *Table {
	t := &Table{}
	t.initBlock(t, ContextTable, parent)
	return t
}

func (t *Table) Columns() []*Column { return t.columns }

// HeadRows returns the header rows.
func (t *Table) HeadRows() [][]*TableCell { return t.head }

// BodyRows returns the body rows.
func (t *Table) BodyRows() [][]*TableCell { return t.body }

// FootRows returns the footer rows.
func (t *Table) FootRows() [][]*TableCell { return t.foot }

// HasHeader reports whether the table has header rows.
func (t *Table) HasHeader() bool { return len(t.head) > 0 }

// assignColumnWidths computes percentage widths. Each width is truncated to
// four decimals and the last column absorbs the remainder.
func (t *Table) assignColumnWidths() {
	total := 0
	for _, c := range t.columns {
		total += c.Width
	}
	if total == 0 {
		return
	}
	sum := 0.0
	for i, c := range t.columns {
		if i == len(t.columns)-1 {
			c.Percent = truncateFloat(100-sum, 4)
			if c.Percent < 0 {
				c.Percent = 0
			}
			break
		}
		c.Percent = truncateFloat(float64(c.Width)*100/float64(total), 4)
		sum += c.Percent
	}
}

func newTableCell(parent *Table, column *Column, text string) *TableCell {
	c := &TableCell{text: text, column: column, colspan: 1, rowspan: 1}
	c.initNode(c, ContextTableCell, parent)
	c.nodeName = "table_cell"
	if column != nil {
		c.style = column.Style
		c.halign = column.HAlign
		c.valign = column.VAlign
	}
	return c
}

// Column returns the column the cell starts in.
func (c *TableCell) Column() *Column { return c.column }

func (c *TableCell) Colspan() int { return c.colspan }

func (c *TableCell) Rowspan() int { return c.rowspan }

// Style is the cell style letter expanded to a name, such as "asciidoc" or "emphasis".
func (c *TableCell) Style() string { return c.style }

func (c *TableCell) HAlign() string { return c.halign }

func (c *TableCell) VAlign() string { return c.valign }

// RawText returns the cell source.
func (c *TableCell) RawText() string { return c.text }

// Text returns the cell text with normal substitutions applied.
func (c *TableCell) Text() string {
	return c.document.applySubs(c, c.text, normalSubs)
}

// InnerDocument returns the nested document of an AsciiDoc cell.
func (c *TableCell) InnerDocument() *Document { return c.inner }

var blankLineSplitRx = regexp.MustCompile(`\n[ \t]*\n+`)

// Paragraphs returns the substituted paragraphs of the cell.
func (c *TableCell) Paragraphs() []string {
	switch c.style {
	case "literal":
		return []string{c.document.applySubs(c, c.text, verbatimSubs)}
	case "asciidoc":
		return nil
	}
	var out []string
	for _, p := range blankLineSplitRx.Split(strings.TrimSpace(c.text), -1) {
		out = append(out, c.document.applySubs(c, p, normalSubs))
	}
	return out
}

var cellStyles = map[byte]string{
	'a': "asciidoc",
	'd': "none",
	'e': "emphasis",
	'h': "header",
	'l': "literal",
	'm': "monospaced",
	's': "strong",
}
