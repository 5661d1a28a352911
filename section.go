package adoc

import "strconv"

// Section is a titled structural division of a document.
type Section struct {
	blockBase
	index        int
	sectname     string
	special      bool
	numbered     bool
	captionLabel string
	chapterLike  bool
}

var _ BlockNode = (*Section)(nil)

func newSection(parent BlockNode, level int) *Section {
	s := &Section{sectname: "section"}
	s.initBlock(s, ContextSection, parent)
	s.level = level
	return s
}

// NewSection creates a section under parent. A negative level derives the
// level from the parent.
func NewSection(parent BlockNode, level int, numbered bool) *Section {
	if level < 0 {
		level = parent.Level() + 1
	}
	s := newSection(parent, level)
	s.numbered = numbered
	return s
}

// SetLevel changes the nesting level.
func (s *Section) SetLevel(level int) { s.level = level }

// Index is the position of the section among the sections of its parent.
func (s *Section) Index() int { return s.index }

func (s *Section) SetIndex(i int) { s.index = i }

// SectionName is the section kind: section, chapter, part, appendix, or a
// special section style such as preface or glossary.
func (s *Section) SectionName() string { return s.sectname }

func (s *Section) SetSectionName(name string) { s.sectname = name }

// Name is an alias of Title.
func (s *Section) Name() string { return s.Title() }

func (s *Section) Special() bool { return s.special }

func (s *Section) SetSpecial(special bool) { s.special = special }

func (s *Section) Numbered() bool { return s.numbered }

func (s *Section) SetNumbered(numbered bool) { s.numbered = numbered }

// Caption is computed from the current numeral, so changing the numeral of
// an appendix changes its caption.
func (s *Section) Caption() string {
	if s.caption != "" {
		return s.caption
	}
	if s.numbered && s.sectname == "appendix" && s.numeral != "" {
		if s.captionLabel != "" {
			return s.captionLabel + " " + s.numeral + ": "
		}
		return s.numeral + ". "
	}
	return ""
}

func (s *Section) CaptionedTitle() string {
	return s.Caption() + s.Title()
}

// Sectnum builds the dotted section number, such as "2.1.".
func (s *Section) Sectnum(delimiter, suffix string) string {
	if delimiter == "" {
		delimiter = "."
	}
	if suffix == "" {
		suffix = delimiter
	}
	if parent, ok := s.parent.(*Section); ok && s.level > 1 {
		return parent.Sectnum(delimiter, delimiter) + s.numeral + suffix
	}
	return s.numeral + suffix
}

// Sections returns the direct subsections.
func (s *Section) Sections() []*Section { return s.childSections() }

// numberedTitle is the title as rendered in a heading.
func (s *Section) numberedTitle() string {
	doc := s.document
	if c := s.Caption(); c != "" {
		return c + s.Title()
	}
	levels := 3
	if v, ok := doc.Attribute("sectnumlevels"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			levels = n
		}
	}
	if !s.numbered || s.level > levels {
		return s.Title()
	}
	if s.level < 2 && doc.Doctype() == DoctypeBook {
		switch s.sectname {
		case "chapter":
			if sig, ok := doc.Attribute("chapter-signifier"); ok && sig != "" {
				return sig + " " + s.Sectnum("", "") + " " + s.Title()
			}
		case "part":
			prefix := ""
			if sig, ok := doc.Attribute("part-signifier"); ok && sig != "" {
				prefix = sig + " "
			}
			return prefix + s.Sectnum("", ":") + " " + s.Title()
		}
	}
	return s.Sectnum("", "") + " " + s.Title()
}
