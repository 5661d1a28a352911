package adoc

import "strings"

// Reftext returns the reftext attribute with reference substitutions
// applied, or "" when it is not set.
func (n *nodeBase) Reftext() string {
	v, ok := n.attributes["reftext"]
	if !ok || v == "" || n.document == nil {
		return ""
	}
	return n.document.applySubs(n.self, v, []string{SubSpecialCharacters, SubQuotes, SubReplacements})
}

// XrefText is the text of a cross reference to the block. Styles "full",
// "short" and "basic" only apply to captioned blocks.
func (b *blockBase) XrefText(style string) string {
	if r := b.Reftext(); r != "" {
		return r
	}
	if style == "" || !b.hasTitle || b.caption == "" {
		return b.Title()
	}
	label := strings.TrimSuffix(b.caption, ". ")
	switch style {
	case "full":
		return label + ", " + quoteTitle(b.Title())
	case "short":
		return label
	}
	return b.Title()
}

// XrefText is the text of a cross reference to the section. Numbered
// sections use the <sectname>-refsig attribute in the full and short styles.
func (s *Section) XrefText(style string) string {
	if r := s.Reftext(); r != "" {
		return r
	}
	if style == "" {
		return s.Title()
	}
	chapterLike := s.sectname == "chapter" || s.sectname == "appendix"
	if !s.numbered || style == "basic" || (style != "full" && style != "short") {
		if chapterLike {
			return "<em>" + s.Title() + "</em>"
		}
		return s.Title()
	}
	signifier := s.document.attributes[s.sectname+"-refsig"]
	if style == "short" {
		num := strings.TrimSuffix(s.Sectnum(".", "."), ".")
		if signifier != "" {
			return signifier + " " + num
		}
		return num
	}
	title := quoteTitle(s.Title())
	if chapterLike {
		title = "<em>" + s.Title() + "</em>"
	}
	if signifier != "" {
		return signifier + " " + s.Sectnum(".", ",") + " " + title
	}
	return s.Sectnum(".", ",") + " " + title
}

func quoteTitle(title string) string {
	return "&#8220;" + title + "&#8221;"
}

// xrefTexter is implemented by nodes that can be cross referenced by title.
type xrefTexter interface {
	XrefText(style string) string
}

var (
	_ xrefTexter = (*Block)(nil)
	_ xrefTexter = (*Section)(nil)
)
