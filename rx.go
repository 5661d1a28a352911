package adoc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Block-level patterns. Alternatives that need a lookahead or a
// backreference are completed by the matching helpers below.
var (
	// == Title, ## Title
	atxSectionTitleRx = regexp.MustCompile(`^(={1,6}|#{1,6})[ \t]+(\S.*)$`)
	// underline of a two-line section title
	setextUnderlineRx = regexp.MustCompile(`^(?:=+|-+|~+|\^+|\++)$`)
	// .Title
	blockTitleRx = regexp.MustCompile(`^\.(\.?[^ \t.].*)$`)
	// NOTE: text
	admonitionParagraphRx = regexp.MustCompile(`^(NOTE|TIP|IMPORTANT|WARNING|CAUTION):[ \t]+`)
	// name::target[attrs]
	blockMacroRx = regexp.MustCompile(`^([\p{L}\p{N}_][\p{L}\p{N}_-]*)::(|\S|\S.*?\S)\[(.*)\]$`)
	// * item, - item
	unorderedListRx = regexp.MustCompile(`^[ \t]*(-|\*{1,5}|\x{2022}{1,5})[ \t]+(.*)$`)
	// . item, 1. item, a. item, ii) item
	orderedListRx = regexp.MustCompile(`^[ \t]*(\.{1,5}|\d+\.|[a-zA-Z]\.|[IVXivx]+\))[ \t]+(.*)$`)
	// term:: description
	descriptionListRx = regexp.MustCompile(`^[ \t]*([^ \t].*?)(:{2,4}|;;)(?:[ \t]+(.*))?$`)
	// <1> text
	calloutListRx = regexp.MustCompile(`^<(\d+|\.)>[ \t]+(.*)$`)
	// [ ] or [x] at the start of an unordered list item
	checklistRx = regexp.MustCompile(`^\[([ xX*])\][ \t]+(.*)$`)
	// a line of a table-like delimiter such as |===
	tableDelimiterRx = regexp.MustCompile(`^([|,:!])={3,}$`)
	// a fenced code opening: three backticks and an optional language
	fencedCodeRx = regexp.MustCompile("^```([^`\\s]*)(?:,[ \\t]*(.*))?$")
	// markdown-style thematic breaks
	markdownBreakRx = regexp.MustCompile(`^ {0,3}([-*_])( *)(?:[-*_]( *)){2}$`)
)

// delimitedBlock describes a delimited block recognized by its fence.
type delimitedBlock struct {
	context string
	masq    []string
}

// delimiters maps the four-character prefix of a fence to the block it opens.
var delimiters = map[string]delimitedBlock{
	"----": {ContextListing, []string{"literal", "source"}},
	"....": {ContextLiteral, []string{"listing", "source"}},
	"====": {ContextExample, []string{"admonition"}},
	"****": {ContextSidebar, nil},
	"____": {ContextQuote, []string{"verse"}},
	"++++": {ContextPass, []string{"stem", "latexmath", "asciimath"}},
	"////": {"comment", nil},
	"--":   {ContextOpen, []string{"comment", "example", "literal", "listing", "pass", "quote", "sidebar", "source", "verse", "admonition", "abstract", "partintro"}},
	"```":  {"fenced_code", nil},
}

// matchDelimiter reports the block a fence line opens. Fences of four
// characters may be extended; the closing fence must repeat the opening
// line exactly.
func matchDelimiter(line string) (delimitedBlock, string, bool) {
	n := len(line)
	if n < 2 {
		return delimitedBlock{}, "", false
	}
	if n == 2 {
		if line == "--" {
			return delimiters["--"], line, true
		}
		return delimitedBlock{}, "", false
	}
	if strings.HasPrefix(line, "```") {
		return delimiters["```"], "```", true
	}
	if m := tableDelimiterRx.FindStringSubmatch(line); m != nil {
		return delimitedBlock{context: ContextTable}, line, true
	}
	if n < 4 {
		return delimitedBlock{}, "", false
	}
	db, ok := delimiters[line[:4]]
	if !ok {
		return delimitedBlock{}, "", false
	}
	c := line[0]
	for i := 1; i < n; i++ {
		if line[i] != c {
			return delimitedBlock{}, "", false
		}
	}
	return db, line, true
}

// isLineComment reports a // comment line, excluding the //// fence.
func isLineComment(line string) bool {
	return strings.HasPrefix(line, "//") && !strings.HasPrefix(line, "///")
}

// isBreakLine reports a thematic break, written as three apostrophes or a
// markdown rule, or a page break.
func isBreakLine(line string) (string, bool) {
	switch {
	case line == "'''":
		return ContextThematicBreak, true
	case line == "<<<":
		return ContextPageBreak, true
	case len(line) >= 3 && len(line) <= 8 && markdownBreakRx.MatchString(line):
		return ContextThematicBreak, true
	}
	return "", false
}

// sectionTitle is a parsed section title line.
type sectionTitle struct {
	level  int
	title  string
	setext bool
}

// matchATXTitle parses a one-line section title.
func matchATXTitle(line string) (sectionTitle, bool) {
	m := atxSectionTitleRx.FindStringSubmatch(line)
	if m == nil {
		return sectionTitle{}, false
	}
	marker, title := m[1], m[2]
	// strip a trailing run of the same marker, as in "== Title =="
	if i := strings.LastIndexByte(title, ' '); i >= 0 {
		tail := title[i+1:]
		if tail != "" && strings.Trim(tail, marker[:1]) == "" {
			title = strings.TrimRight(title[:i], " \t")
		}
	}
	if title == "" {
		return sectionTitle{}, false
	}
	return sectionTitle{level: len(marker) - 1, title: title}, true
}

// setextLevels maps the underline character to a section level.
var setextLevels = map[byte]int{'=': 0, '-': 1, '~': 2, '^': 3, '+': 4}

// matchSetextTitle parses a two-line section title: the title and an
// underline whose length is within one character of the title's.
func matchSetextTitle(line, underline string) (sectionTitle, bool) {
	if line == "" || underline == "" || !setextUnderlineRx.MatchString(underline) {
		return sectionTitle{}, false
	}
	if line[0] == '.' || line[0] == ' ' || line[0] == '\t' || line[0] == '[' || isLineComment(line) {
		return sectionTitle{}, false
	}
	if _, _, ok := matchDelimiter(line); ok {
		return sectionTitle{}, false
	}
	if !strings.ContainsFunc(line, isWordRune) {
		return sectionTitle{}, false
	}
	diff := utf8.RuneCountInString(line) - len(underline)
	if diff < -1 || diff > 1 {
		return sectionTitle{}, false
	}
	return sectionTitle{level: setextLevels[underline[0]], title: line, setext: true}, true
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > utf8.RuneSelf
}

// listMarker is a parsed list item line.
type listMarker struct {
	context string
	marker  string
	text    string
	term    string
}

// matchListItem recognizes a list item of any kind.
func matchListItem(line string) (listMarker, bool) {
	if line == "" {
		return listMarker{}, false
	}
	if m := unorderedListRx.FindStringSubmatch(line); m != nil {
		return listMarker{context: ContextUlist, marker: m[1], text: m[2]}, true
	}
	if m := orderedListRx.FindStringSubmatch(line); m != nil {
		return listMarker{context: ContextOlist, marker: m[1], text: m[2]}, true
	}
	if m := calloutListRx.FindStringSubmatch(line); m != nil {
		return listMarker{context: ContextColist, marker: "<" + m[1] + ">", text: m[2]}, true
	}
	if !isLineComment(strings.TrimLeft(line, " \t")) {
		if m := descriptionListRx.FindStringSubmatch(line); m != nil && !strings.HasSuffix(m[1], ":") {
			return listMarker{context: ContextDlist, marker: m[2], text: m[3], term: m[1]}, true
		}
	}
	return listMarker{}, false
}

// orderedListStyle derives the numbering style of an explicit marker.
func orderedListStyle(marker string) string {
	switch {
	case strings.HasPrefix(marker, "."):
		return ""
	case marker[0] >= '0' && marker[0] <= '9':
		return "arabic"
	case strings.HasSuffix(marker, ")"):
		if marker[0] >= 'a' {
			return "lowerroman"
		}
		return "upperroman"
	case marker[0] >= 'a':
		return "loweralpha"
	}
	return "upperalpha"
}

// orderedListStyles are the implicit styles of nested "." markers.
var orderedListStyles = []string{"arabic", "loweralpha", "lowerroman", "upperalpha", "upperroman"}

// listTrait is what two item markers must share to be siblings.
func listTrait(lm listMarker) string {
	switch lm.context {
	case ContextOlist:
		if s := orderedListStyle(lm.marker); s != "" {
			return s
		}
		return lm.marker
	case ContextColist:
		return "<>"
	}
	return lm.marker
}

// expandTabs replaces tabs with spaces up to the next tab stop.
func expandTabs(line string, size int) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := size - col%size
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

// adjustIndentation expands tabs when size is positive, then, when indent
// is not negative, strips the common leading indentation and indents every
// line by indent spaces.
func adjustIndentation(lines []string, indent, size int) {
	if size > 0 {
		for i, l := range lines {
			lines[i] = expandTabs(l, size)
		}
	}
	if indent < 0 {
		return
	}
	min := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if min < 0 || n < min {
			min = n
		}
	}
	pad := strings.Repeat(" ", indent)
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			lines[i] = ""
			continue
		}
		if min > 0 {
			l = l[min:]
		}
		lines[i] = pad + l
	}
}

// trimBlankLines drops leading and trailing blank lines.
func trimBlankLines(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
