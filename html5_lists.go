package adoc

import (
	"strconv"
	"strings"
)

func listItemOpen(li *ListItem) string {
	switch {
	case li.ID() != "":
		class := ""
		if r := li.Role(); r != "" {
			class = ` class="` + r + `"`
		}
		return `<li id="` + li.ID() + `"` + class + ">"
	case li.Role() != "":
		return `<li class="` + li.Role() + `">`
	}
	return "<li>"
}

func (c *HTML5Converter) ulist(n Node) string {
	l := n.(*List)
	d := l.Document()
	checklist := l.IsOption("checklist")
	divClasses := []string{"ulist", l.Style(), l.Role()}
	ulClass := ""
	var checked, unchecked string
	if checklist {
		divClasses = []string{"ulist", "checklist", l.Style(), l.Role()}
		ulClass = ` class="checklist"`
		switch {
		case l.IsOption("interactive"):
			checked = `<input type="checkbox" data-item-complete="1"` + c.boolAttr("checked") + c.slash + "> "
			unchecked = `<input type="checkbox" data-item-complete="0"` + c.slash + "> "
		case d.IsAttribute("icons", "font"):
			checked = `<i class="fa fa-check-square-o"></i> `
			unchecked = `<i class="fa fa-square-o"></i> `
		default:
			checked = "&#10003; "
			unchecked = "&#10063; "
		}
	} else if s := l.Style(); s != "" {
		ulClass = ` class="` + s + `"`
	}
	out := []string{"<div" + idAttr(l) + classAttr(divClasses...) + ">"}
	if l.HasTitle() {
		out = append(out, `<div class="title">`+l.Title()+"</div>")
	}
	out = append(out, "<ul"+ulClass+">")
	for _, li := range l.Items() {
		out = append(out, listItemOpen(li))
		marker := ""
		if checklist && li.HasAttribute("checkbox") {
			marker = unchecked
			if li.HasAttribute("checked") {
				marker = checked
			}
		}
		out = append(out, "<p>"+marker+li.Text()+"</p>")
		if li.HasBlocks() {
			out = append(out, li.Content())
		}
		out = append(out, "</li>")
	}
	out = append(out, "</ul>", "</div>")
	return strings.Join(out, "\n")
}

var orderedListKeywords = map[string]string{
	"loweralpha": "a",
	"lowerroman": "i",
	"upperalpha": "A",
	"upperroman": "I",
}

func (c *HTML5Converter) olist(n Node) string {
	l := n.(*List)
	out := []string{"<div" + idAttr(l) + classAttr("olist", l.Style(), l.Role()) + ">"}
	if l.HasTitle() {
		out = append(out, `<div class="title">`+l.Title()+"</div>")
	}
	attrs := ""
	if kw, ok := orderedListKeywords[l.Style()]; ok {
		attrs += ` type="` + kw + `"`
	}
	if v, ok := l.Attribute("start"); ok {
		attrs += ` start="` + v + `"`
	}
	if l.IsOption("reversed") {
		attrs += c.boolAttr("reversed")
	}
	out = append(out, `<ol class="`+l.Style()+`"`+attrs+">")
	for _, li := range l.Items() {
		out = append(out, listItemOpen(li), "<p>"+li.Text()+"</p>")
		if li.HasBlocks() {
			out = append(out, li.Content())
		}
		out = append(out, "</li>")
	}
	out = append(out, "</ol>", "</div>")
	return strings.Join(out, "\n")
}

func (c *HTML5Converter) colist(n Node) string {
	l := n.(*List)
	d := l.Document()
	style := l.Style()
	if style == "" {
		style = "arabic"
	}
	out := []string{"<div" + idAttr(l) + classAttr("colist", style, l.Role()) + ">"}
	if l.HasTitle() {
		out = append(out, `<div class="title">`+l.Title()+"</div>")
	}
	if d.IsAttribute("icons") {
		font := d.IsAttribute("icons", "font")
		out = append(out, "<table>")
		for i, li := range l.Items() {
			num := strconv.Itoa(i + 1)
			label := `<img src="` + d.IconURI("callouts/"+num) + `" alt="` + num + `"` + c.slash + ">"
			if font {
				label = `<i class="conum" data-value="` + num + `"></i><b>` + num + "</b>"
			}
			body := li.Text()
			if li.HasBlocks() {
				body += "\n" + li.Content()
			}
			out = append(out, "<tr>\n<td>"+label+"</td>\n<td>"+body+"</td>\n</tr>")
		}
		out = append(out, "</table>")
	} else {
		out = append(out, "<ol>")
		for _, li := range l.Items() {
			body := "<p>" + li.Text() + "</p>"
			if li.HasBlocks() {
				body += "\n" + li.Content()
			}
			out = append(out, "<li>\n"+body+"\n</li>")
		}
		out = append(out, "</ol>")
	}
	out = append(out, "</div>")
	return strings.Join(out, "\n")
}

// descriptionBody renders the text and blocks of a description.
func descriptionBody(dd *ListItem) []string {
	if dd == nil {
		return nil
	}
	var out []string
	if dd.HasText() {
		out = append(out, "<p>"+dd.Text()+"</p>")
	}
	if dd.HasBlocks() {
		out = append(out, dd.Content())
	}
	return out
}

func (c *HTML5Converter) dlist(n Node) string {
	l := n.(*List)
	out := []string{"<div" + idAttr(l) + classAttr("dlist", l.Style(), l.Role()) + ">"}
	if l.HasTitle() {
		out = append(out, `<div class="title">`+l.Title()+"</div>")
	}
	dtClass := ""
	if l.Style() == "" {
		dtClass = ` class="hdlist1"`
	}
	out = append(out, "<dl>")
	for _, e := range l.Entries() {
		for _, dt := range e.Terms {
			out = append(out, "<dt"+dtClass+">"+dt.Text()+"</dt>")
		}
		if e.Description == nil {
			continue
		}
		out = append(out, "<dd>")
		out = append(out, descriptionBody(e.Description)...)
		out = append(out, "</dd>")
	}
	out = append(out, "</dl>", "</div>")
	return strings.Join(out, "\n")
}

func (c *HTML5Converter) hdlist(n Node) string {
	l := n.(*List)
	out := []string{"<div" + idAttr(l) + classAttr("hdlist", l.Role()) + ">"}
	if l.HasTitle() {
		out = append(out, `<div class="title">`+l.Title()+"</div>")
	}
	out = append(out, "<table>")
	labelWidth, hasLabel := l.Attribute("labelwidth")
	itemWidth, hasItem := l.Attribute("itemwidth")
	if hasLabel || hasItem {
		col := func(width string, ok bool) string {
			if !ok {
				return "<col" + c.slash + ">"
			}
			return `<col style="width: ` + strings.TrimSuffix(width, "%") + `%;"` + c.slash + ">"
		}
		out = append(out, "<colgroup>", col(labelWidth, hasLabel), col(itemWidth, hasItem), "</colgroup>")
	}
	termClass := "hdlist1"
	if l.IsOption("strong") {
		termClass += " strong"
	}
	for _, e := range l.Entries() {
		out = append(out, "<tr>", `<td class="`+termClass+`">`)
		for i, dt := range e.Terms {
			if i > 0 {
				out = append(out, "<br"+c.slash+">")
			}
			out = append(out, dt.Text())
		}
		out = append(out, "</td>", `<td class="hdlist2">`)
		out = append(out, descriptionBody(e.Description)...)
		out = append(out, "</td>", "</tr>")
	}
	out = append(out, "</table>", "</div>")
	return strings.Join(out, "\n")
}

func (c *HTML5Converter) qlist(n Node) string {
	l := n.(*List)
	out := []string{"<div" + idAttr(l) + classAttr("qlist", "qanda", l.Role()) + ">"}
	if l.HasTitle() {
		out = append(out, `<div class="title">`+l.Title()+"</div>")
	}
	out = append(out, "<ol>")
	for _, e := range l.Entries() {
		out = append(out, "<li>")
		for _, dt := range e.Terms {
			out = append(out, "<p><em>"+dt.Text()+"</em></p>")
		}
		out = append(out, descriptionBody(e.Description)...)
		out = append(out, "</li>")
	}
	out = append(out, "</ol>", "</div>")
	return strings.Join(out, "\n")
}

// tableAttr reads a table attribute, then the document fallback, then def.
func tableAttr(t *Table, name, docName, def string) string {
	if v, ok := t.Attribute(name); ok {
		return v
	}
	if v, ok := t.Document().Attribute(docName); ok {
		return v
	}
	return def
}

func (c *HTML5Converter) table(n Node) string {
	t := n.(*Table)
	d := t.Document()
	frame := tableAttr(t, "frame", "table-frame", "all")
	if frame == "topbot" {
		frame = "ends"
	}
	classes := []string{"tableblock", "frame-" + frame, "grid-" + tableAttr(t, "grid", "table-grid", "all")}
	if stripes := tableAttr(t, "stripes", "table-stripes", ""); stripes != "" {
		classes = append(classes, "stripes-"+stripes)
	}
	style := ""
	autowidth := t.IsOption("autowidth")
	switch width := tableAttr(t, "tablepcwidth", "", "100"); {
	case autowidth && !t.HasAttribute("width"):
		classes = append(classes, "fit-content")
	case width == "100":
		classes = append(classes, "stretch")
	default:
		style = ` style="width: ` + width + `%;"`
	}
	if v, ok := t.Attribute("float"); ok {
		classes = append(classes, v)
	}
	classes = append(classes, t.Role())
	out := []string{"<table" + idAttr(t) + classAttr(classes...) + style + ">"}
	if t.HasTitle() {
		out = append(out, `<caption class="title">`+t.CaptionedTitle()+"</caption>")
	}
	if rows, _ := strconv.Atoi(tableAttr(t, "rowcount", "", "0")); rows > 0 {
		out = append(out, "<colgroup>")
		for _, col := range t.Columns() {
			if autowidth || col.Percent == 0 {
				out = append(out, "<col"+c.slash+">")
				continue
			}
			out = append(out, `<col style="width: `+formatPercent(col.Percent)+`%;"`+c.slash+">")
		}
		out = append(out, "</colgroup>")
		sections := []struct {
			tag  string
			rows [][]*TableCell
		}{{"thead", t.HeadRows()}, {"tbody", t.BodyRows()}, {"tfoot", t.FootRows()}}
		for _, sec := range sections {
			if len(sec.rows) == 0 {
				continue
			}
			out = append(out, "<"+sec.tag+">")
			for _, row := range sec.rows {
				out = append(out, "<tr>")
				for _, cell := range row {
					out = append(out, c.tableCell(d, cell, sec.tag == "thead"))
				}
				out = append(out, "</tr>")
			}
			out = append(out, "</"+sec.tag+">")
		}
	}
	out = append(out, "</table>")
	return strings.Join(out, "\n")
}

var cellStyleTags = map[string][2]string{
	"emphasis":   {"<em>", "</em>"},
	"strong":     {"<strong>", "</strong>"},
	"monospaced": {"<code>", "</code>"},
}

func (c *HTML5Converter) tableCell(d *Document, cell *TableCell, head bool) string {
	var content string
	switch {
	case head:
		content = cell.Text()
	case cell.Style() == "asciidoc":
		inner := ""
		if doc := cell.InnerDocument(); doc != nil {
			inner, _ = doc.convertNode(doc, "embedded")
		}
		content = `<div class="content">` + inner + "</div>"
	case cell.Style() == "literal":
		content = `<div class="literal"><pre>` + strings.Join(cell.Paragraphs(), "") + "</pre></div>"
	default:
		paras := cell.Paragraphs()
		if tags, ok := cellStyleTags[cell.Style()]; ok {
			for i, p := range paras {
				paras[i] = tags[0] + p + tags[1]
			}
		}
		if len(paras) > 0 {
			content = `<p class="tableblock">` + strings.Join(paras, "</p>\n<p class=\"tableblock\">") + "</p>"
		}
	}
	tag := "td"
	if head || cell.Style() == "header" {
		tag = "th"
	}
	halign, valign := cell.HAlign(), cell.VAlign()
	if halign == "" {
		halign = "left"
	}
	if valign == "" {
		valign = "top"
	}
	attrs := ` class="tableblock halign-` + halign + ` valign-` + valign + `"`
	if cell.Colspan() > 1 {
		attrs += ` colspan="` + strconv.Itoa(cell.Colspan()) + `"`
	}
	if cell.Rowspan() > 1 {
		attrs += ` rowspan="` + strconv.Itoa(cell.Rowspan()) + `"`
	}
	if bg, ok := d.Attribute("cellbgcolor"); ok {
		attrs += ` style="background-color: ` + bg + `;"`
	}
	return "<" + tag + attrs + ">" + content + "</" + tag + ">"
}
