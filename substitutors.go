package adoc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Substitution step names.
const (
	SubSpecialCharacters = "specialcharacters"
	SubQuotes            = "quotes"
	SubAttributes        = "attributes"
	SubReplacements      = "replacements"
	SubMacros            = "macros"
	SubPostReplacements  = "post_replacements"
	SubCallouts          = "callouts"
	SubHighlight         = "highlight"
)

var (
	basicSubs    = []string{SubSpecialCharacters}
	headerSubs   = []string{SubSpecialCharacters, SubAttributes}
	normalSubs   = []string{SubSpecialCharacters, SubQuotes, SubAttributes, SubReplacements, SubMacros, SubPostReplacements}
	verbatimSubs = []string{SubSpecialCharacters, SubCallouts}
)

var subGroups = map[string][]string{
	"none":         {},
	"normal":       normalSubs,
	"verbatim":     verbatimSubs,
	"specialchars": basicSubs,
	"header":       headerSubs,
	"pass":         {},
}

var subAliases = map[string]string{
	"a": SubAttributes,
	"c": SubSpecialCharacters,
	"m": SubMacros,
	"n": "normal",
	"p": SubPostReplacements,
	"q": SubQuotes,
	"r": SubReplacements,
	"v": "verbatim",
}

var knownSubs = map[string]bool{
	SubSpecialCharacters: true,
	SubQuotes:            true,
	SubAttributes:        true,
	SubReplacements:      true,
	SubMacros:            true,
	SubPostReplacements:  true,
	SubCallouts:          true,
}

// Passthrough placeholders. Neither character appears in normal text.
const (
	passStart = "\u0096"
	passEnd   = "\u0097"
)

var passSlotRx = regexp.MustCompile(passStart + `(\d+)` + passEnd)

// resolveSubs expands a subs specification such as "normal",
// "quotes,macros" or "+attributes,-callouts". Incremental forms start
// from defaults; the first plain entry starts from an empty list.
func resolveSubs(spec string, defaults []string, doc *Document) []string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	var out []string
	for i, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		op := byte(0)
		switch {
		case strings.HasPrefix(tok, "+"):
			op, tok = '+', tok[1:]
		case strings.HasPrefix(tok, "-"):
			op, tok = '-', tok[1:]
		case strings.HasSuffix(tok, "+"):
			op, tok = '^', tok[:len(tok)-1]
		}
		if i == 0 && op != 0 {
			out = append([]string(nil), defaults...)
		}
		steps := expandSub(tok, doc)
		switch op {
		case '-':
			out = removeSubs(out, steps)
		case '^':
			out = append(append([]string(nil), steps...), out...)
		default:
			out = append(out, steps...)
		}
	}
	return dedupeSubs(out)
}

func expandSub(name string, doc *Document) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := subAliases[name]; ok {
		name = alias
	}
	if group, ok := subGroups[name]; ok {
		return group
	}
	if knownSubs[name] {
		return []string{name}
	}
	if doc != nil {
		doc.logWarn(SourceLocation{}, "invalid substitution type: %s", name)
	}
	return nil
}

func removeSubs(subs, drop []string) []string {
	out := subs[:0:0]
	for _, s := range subs {
		if !containsString(drop, s) {
			out = append(out, s)
		}
	}
	return out
}

func dedupeSubs(subs []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// substitutor applies substitution steps to the text of one node. It
// holds the passthroughs extracted from that text until they are restored.
type substitutor struct {
	doc          *Document
	node         Node
	passthroughs []passthrough
}

type passthrough struct {
	text       string
	subs       []string
	typ        string
	attributes map[string]string
}

// applySubs runs subs over text in order. Passthroughs are extracted
// first when macros are enabled and restored last.
func (d *Document) applySubs(node Node, text string, subs []string) string {
	if text == "" || len(subs) == 0 {
		return text
	}
	if node == nil {
		node = d
	}
	s := &substitutor{doc: d, node: node}
	return s.apply(text, subs)
}

// applyTitleSubs converts a block or section title.
func (d *Document) applyTitleSubs(title string, node Node) string {
	return d.applySubs(node, title, normalSubs)
}

// applyHeaderSubs substitutes the values of header attribute entries.
func (d *Document) applyHeaderSubs(text string) string {
	return d.applySubs(d, text, headerSubs)
}

// ApplySubs applies the named substitution steps (or groups) to text in
// the context of node.
func (d *Document) ApplySubs(node Node, text string, subs ...string) string {
	var steps []string
	for _, s := range subs {
		steps = append(steps, expandSub(s, d)...)
	}
	return d.applySubs(node, text, dedupeSubs(steps))
}

func (s *substitutor) apply(text string, subs []string) string {
	if containsString(subs, SubMacros) {
		text = s.extractPassthroughs(text)
	}
	for _, sub := range subs {
		switch sub {
		case SubSpecialCharacters:
			text = escapeSpecialChars(text)
		case SubQuotes:
			text = s.subQuotes(text)
		case SubAttributes:
			if strings.Contains(text, "{") {
				text = s.subAttributes(text, "")
			}
		case SubReplacements:
			text = s.subReplacements(text)
		case SubMacros:
			text = s.subMacros(text)
		case SubHighlight:
			text = s.highlightSource(text, containsString(subs, SubCallouts))
		case SubCallouts:
			if !containsString(subs, SubHighlight) {
				text = s.subCallouts(text)
			}
		case SubPostReplacements:
			text = s.subPostReplacements(text)
		}
	}
	if len(s.passthroughs) > 0 {
		text = s.restorePassthroughs(text)
	}
	return text
}

// convertInline renders an inline node created during substitution.
func (s *substitutor) convertInline(in *Inline) string {
	out, err := s.doc.convertNode(in, "")
	if err != nil {
		return ""
	}
	return out
}

func (s *substitutor) newInline(context, text string, opts InlineOptions) *Inline {
	return NewInline(s.node, context, text, opts)
}

var specialCharsReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeSpecialChars(text string) string {
	if !strings.ContainsAny(text, "&<>") {
		return text
	}
	return specialCharsReplacer.Replace(text)
}

// intrinsicAttributes resolve references that are not document attributes.
var intrinsicAttributes = map[string]string{
	"startsb":        "[",
	"endsb":          "]",
	"vbar":           "|",
	"caret":          "^",
	"asterisk":       "*",
	"tilde":          "~",
	"plus":           "&#43;",
	"backslash":      "\\",
	"backtick":       "`",
	"blank":          "",
	"empty":          "",
	"sp":             " ",
	"two-colons":     "::",
	"two-semicolons": ";;",
	"nbsp":           "&#160;",
	"deg":            "&#176;",
	"zwsp":           "&#8203;",
	"quot":           "&#34;",
	"apos":           "&#39;",
	"lsquo":          "&#8216;",
	"rsquo":          "&#8217;",
	"ldquo":          "&#8220;",
	"rdquo":          "&#8221;",
	"wj":             "&#8288;",
	"brvbar":         "&#166;",
	"pp":             "&#43;&#43;",
	"cpp":            "C&#43;&#43;",
	"cxx":            "C&#43;&#43;",
	"amp":            "&",
	"lt":             "<",
	"gt":             ">",
}

var attributeReferenceRx = regexp.MustCompile(`(\\)?\{([\p{L}\p{N}_][\p{L}\p{N}_-]*|(set|counter2?):[^}]+?)(\\)?\}`)

// Markers left on lines to drop once every reference has been resolved.
const (
	dropMarker     = "\x7f"
	dropLineMarker = "\x18"
)

// subAttributes resolves attribute references. missing overrides the
// attribute-missing policy when not empty.
func (s *substitutor) subAttributes(text, missing string) string {
	doc := s.doc
	drop, dropLine, dropEmpty := false, false, false
	text = attributeReferenceRx.ReplaceAllStringFunc(text, func(ref string) string {
		m := attributeReferenceRx.FindStringSubmatch(ref)
		if m[1] != "" || m[4] != "" {
			return "{" + m[2] + "}"
		}
		if m[3] != "" {
			args := strings.SplitN(m[2], ":", 3)
			switch args[0] {
			case "set":
				value := ""
				if len(args) > 2 {
					value = args[2]
				}
				name := ""
				if len(args) > 1 {
					name = args[1]
				}
				unset := strings.HasSuffix(name, "!")
				name = strings.TrimSuffix(name, "!")
				if unset {
					doc.RemoveAttribute(name)
				} else {
					doc.setAttribute(name, value)
				}
				if !unset || doc.attributeUndefinedPolicy() != "drop-line" {
					drop, dropEmpty = true, true
					return dropMarker
				}
				drop, dropLine = true, true
				return dropLineMarker
			case "counter2":
				doc.Counter(args[1], counterSeed(args))
				drop, dropEmpty = true, true
				return dropMarker
			default:
				return doc.Counter(args[1], counterSeed(args))
			}
		}
		key := strings.ToLower(m[2])
		if v, ok := doc.attributes[key]; ok {
			return v
		}
		if v, ok := intrinsicAttributes[key]; ok {
			return v
		}
		policy := missing
		if policy == "" {
			policy = doc.attributeMissingPolicy()
		}
		switch policy {
		case "drop":
			drop, dropEmpty = true, true
			return dropMarker
		case "drop-line":
			doc.logInfo(s.location(), "dropping line containing reference to missing attribute: %s", key)
			drop, dropLine = true, true
			return dropLineMarker
		case "warn":
			doc.logWarn(s.location(), "skipping reference to missing attribute: %s", key)
			return ref
		case "error":
			loc := s.location()
			doc.logError(loc, "reference to missing attribute: %s", key)
			doc.recordError(newParseError(loc, fmt.Errorf("%w: %s", ErrAttributeMissing, key)))
			return ref
		default:
			return ref
		}
	})
	if !drop {
		return text
	}
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if dropLine && strings.Contains(line, dropLineMarker) {
			continue
		}
		if dropEmpty && strings.Trim(line, dropMarker) == "" && strings.Contains(line, dropMarker) {
			continue
		}
		out = append(out, strings.ReplaceAll(line, dropMarker, ""))
	}
	return strings.Join(out, "\n")
}

func counterSeed(args []string) string {
	if len(args) > 2 {
		return args[2]
	}
	return ""
}

func (s *substitutor) location() SourceLocation {
	if b, ok := s.node.(BlockNode); ok {
		if loc := b.SourceLocation(); loc != nil {
			return *loc
		}
	}
	if r := s.doc.reader; r != nil {
		return r.Cursor()
	}
	return SourceLocation{}
}

func (d *Document) attributeMissingPolicy() string {
	if v := d.attributes["attribute-missing"]; v != "" {
		return v
	}
	return "skip"
}

func (d *Document) attributeUndefinedPolicy() string {
	if v := d.attributes["attribute-undefined"]; v != "" {
		return v
	}
	return "drop-line"
}

// substituteAttributesFor resolves attribute references in text outside of
// any block, as done for preprocessor directives.
func (d *Document) substituteAttributesFor(text, missingPolicy string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	s := &substitutor{doc: d, node: d}
	return s.subAttributes(text, missingPolicy)
}

type replacement struct {
	rx *regexp.Regexp
	// repl receives the submatches and returns the replacement text.
	repl func(m []string) string
	// lookahead marks the last group as an unconsumed lookahead.
	lookahead bool
}

func fixedReplacement(entity string) func([]string) string {
	return func(m []string) string {
		if strings.HasPrefix(m[0], `\`) {
			return m[0][1:]
		}
		return entity
	}
}

var replacements = []replacement{
	{rx: regexp.MustCompile(`\\?\(C\)`), repl: fixedReplacement("&#169;")},
	{rx: regexp.MustCompile(`\\?\(R\)`), repl: fixedReplacement("&#174;")},
	{rx: regexp.MustCompile(`\\?\(TM\)`), repl: fixedReplacement("&#8482;")},
	{
		rx: regexp.MustCompile(`(?m)(^|\n| |\\)--( |\n|$)`),
		repl: func(m []string) string {
			if m[1] == `\` {
				return "--" + m[2]
			}
			return "&#8201;&#8212;&#8201;"
		},
	},
	{
		rx: regexp.MustCompile(`([\p{L}\p{N}_])(\\?)--([\p{L}\p{N}_])`),
		repl: func(m []string) string {
			if m[2] != "" {
				return m[1] + "--"
			}
			return m[1] + "&#8212;&#8203;"
		},
		lookahead: true,
	},
	{rx: regexp.MustCompile(`\\?\.\.\.`), repl: fixedReplacement("&#8230;&#8203;")},
	{rx: regexp.MustCompile("\\\\?`'"), repl: fixedReplacement("&#8217;")},
	{
		rx: regexp.MustCompile(`([\p{L}\p{N}])(\\?)'(\p{L})`),
		repl: func(m []string) string {
			if m[2] != "" {
				return m[1] + "'"
			}
			return m[1] + "&#8217;"
		},
		lookahead: true,
	},
	{rx: regexp.MustCompile(`\\?-&gt;`), repl: fixedReplacement("&#8594;")},
	{rx: regexp.MustCompile(`\\?=&gt;`), repl: fixedReplacement("&#8658;")},
	{rx: regexp.MustCompile(`\\?&lt;-`), repl: fixedReplacement("&#8592;")},
	{rx: regexp.MustCompile(`\\?&lt;=`), repl: fixedReplacement("&#8656;")},
	{
		rx: regexp.MustCompile(`\\?&amp;((?:[a-zA-Z][a-zA-Z]+\d{0,2}|#\d\d\d{0,4}|#x[\da-fA-F][\da-fA-F][\da-fA-F]{0,3});)`),
		repl: func(m []string) string {
			if strings.HasPrefix(m[0], `\`) {
				return m[0][1:]
			}
			return "&" + m[1]
		},
	},
}

func (s *substitutor) subReplacements(text string) string {
	if !strings.ContainsAny(text, "()-.`'&") {
		return text
	}
	for _, r := range replacements {
		if r.lookahead {
			text = gsubLookahead(text, r.rx, r.repl)
		} else {
			text = gsub(text, r.rx, r.repl)
		}
	}
	return text
}

var hardLineBreakRx = regexp.MustCompile(`(?m)^(.*) \+$`)

func (s *substitutor) subPostReplacements(text string) string {
	hardbreaks := s.doc.IsAttribute("hardbreaks-option") || s.node.IsOption("hardbreaks")
	if hardbreaks {
		lines := strings.Split(text, "\n")
		if len(lines) < 2 {
			return text
		}
		last := lines[len(lines)-1]
		for i, line := range lines[:len(lines)-1] {
			line = strings.TrimSuffix(line, " +")
			lines[i] = s.convertInline(s.newInline("break", line, InlineOptions{Type: "line"}))
		}
		lines[len(lines)-1] = last
		return strings.Join(lines, "\n")
	}
	if !strings.Contains(text, " +") {
		return text
	}
	return gsub(text, hardLineBreakRx, func(m []string) string {
		return s.convertInline(s.newInline("break", m[1], InlineOptions{Type: "line"}))
	})
}

// CalloutMark is a callout number found at the end of a source line.
// Guard is the line comment that preceded it, if any.
type CalloutMark struct {
	Guard  string
	Number string
}

var (
	calloutConvertRx = regexp.MustCompile(`((?://|#|--|;;) ?)?(\\)?&lt;(!--)?(\d+|\.)(?:--)?&gt;$`)
	calloutExtractRx = regexp.MustCompile(`((?://|#|--|;;) ?)?(\\)?<(!--)?(\d+|\.)(?:--)?>$`)
)

type calloutMatch struct {
	guard   string
	escaped bool
	xml     bool
	number  string
	raw     string
	lead    string
}

// scanCallouts peels the callout marks off the end of line and returns the
// remaining text and the marks in line order.
func scanCallouts(line string, rx *regexp.Regexp) (string, []calloutMatch) {
	var marks []calloutMatch
	for {
		m := rx.FindStringSubmatchIndex(line)
		if m == nil {
			return line, marks
		}
		cm := calloutMatch{raw: line[m[0]:m[1]], number: line[m[8]:m[9]]}
		if m[2] >= 0 {
			cm.guard = line[m[2]:m[3]]
		}
		cm.escaped = m[4] >= 0
		cm.xml = m[6] >= 0
		line = line[:m[0]]
		if strings.HasSuffix(line, " ") && rx.MatchString(line[:len(line)-1]) {
			cm.lead = " "
			line = line[:len(line)-1]
			marks = append([]calloutMatch{cm}, marks...)
			continue
		}
		marks = append([]calloutMatch{cm}, marks...)
		if !rx.MatchString(line) {
			return line, marks
		}
	}
}

func (s *substitutor) subCallouts(text string) string {
	if !strings.Contains(text, "&gt;") {
		return text
	}
	autonum := 0
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		rest, marks := scanCallouts(line, calloutConvertRx)
		if len(marks) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString(rest)
		for _, cm := range marks {
			b.WriteString(cm.lead)
			if cm.escaped {
				b.WriteString(strings.Replace(cm.raw, `\`, "", 1))
				continue
			}
			num := cm.number
			if num == "." {
				autonum++
				num = strconv.Itoa(autonum)
			}
			// line comment characters in front of the mark are dropped
			attrs := map[string]string{}
			if cm.xml {
				attrs["guard"] = "xml"
			}
			b.WriteString(s.convertInline(s.newInline("callout", num, InlineOptions{Attributes: attrs})))
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// extractCallouts removes raw callout marks before highlighting. The marks
// are keyed by 0-based line index. When the last line carries a mark, a
// newline is appended so the highlighter leaves that line in place.
func extractCallouts(text string) (string, map[int][]CalloutMark) {
	marks := map[int][]CalloutMark{}
	lines := strings.Split(text, "\n")
	last := -1
	autonum := 0
	for i, line := range lines {
		rest, found := scanCallouts(line, calloutExtractRx)
		if len(found) == 0 {
			continue
		}
		var kept strings.Builder
		kept.WriteString(rest)
		for _, cm := range found {
			if cm.escaped {
				kept.WriteString(cm.lead + strings.Replace(cm.raw, `\`, "", 1))
				continue
			}
			num := cm.number
			if num == "." {
				autonum++
				num = strconv.Itoa(autonum)
			}
			guard := cm.guard
			if cm.xml {
				guard = "xml"
			}
			marks[i] = append(marks[i], CalloutMark{Guard: guard, Number: num})
			last = i
		}
		lines[i] = kept.String()
	}
	if last < 0 {
		return text, nil
	}
	text = strings.Join(lines, "\n")
	if last == len(lines)-1 {
		text += "\n"
	}
	return text, marks
}

func (s *substitutor) restoreCallouts(text string, marks map[int][]CalloutMark) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		found, ok := marks[i]
		if !ok {
			continue
		}
		var b strings.Builder
		b.WriteString(line)
		for j, cm := range found {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(s.convertInline(s.newInline("callout", cm.Number, InlineOptions{
				Attributes: map[string]string{"guard": cm.Guard},
			})))
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// highlightSource hands verbatim text to the document's syntax highlighter.
func (s *substitutor) highlightSource(text string, processCallouts bool) string {
	block, _ := s.node.(*Block)
	h, ok := s.doc.syntaxHighlighter.(Highlighter)
	if block == nil || !ok || !h.HandlesHighlighting() {
		text = escapeSpecialChars(text)
		if processCallouts {
			text = s.subCallouts(text)
		}
		return text
	}
	var marks map[int][]CalloutMark
	if processCallouts {
		text, marks = extractCallouts(text)
	}
	opts := s.doc.highlightOptions(block)
	opts.Callouts = marks
	lang, _ := block.Attribute("language")
	out, err := h.Highlight(block, text, lang, opts)
	if err != nil {
		s.doc.recordError(err)
		return escapeSpecialChars(text)
	}
	if len(marks) > 0 {
		out = s.restoreCallouts(out, marks)
	}
	return out
}

// gsub replaces every match of rx in text with repl(submatches).
func gsub(text string, rx *regexp.Regexp, repl func(m []string) string) string {
	locs := rx.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		b.WriteString(repl(submatches(text, loc)))
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// gsubLookahead is gsub for patterns whose last group stands in for a
// lookahead: the text of that group is emitted unchanged and scanning
// resumes at its start, so it can begin the next match.
func gsubLookahead(text string, rx *regexp.Regexp, repl func(m []string) string) string {
	var b strings.Builder
	pos := 0
	for pos < len(text) {
		loc := rx.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		n := len(loc) / 2
		end := loc[1]
		if la := loc[2*(n-1)]; la >= 0 {
			end = la
		}
		b.WriteString(text[pos : pos+loc[0]])
		b.WriteString(repl(submatches(text[pos:], loc)))
		if end <= loc[0] {
			if loc[0] < len(text)-pos {
				b.WriteByte(text[pos+loc[0]])
			}
			end = loc[0] + 1
		}
		pos += end
	}
	if pos < len(text) {
		b.WriteString(text[pos:])
	}
	return b.String()
}

func submatches(text string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}

// normalizeText optionally trims text and folds newlines to spaces, then
// unescapes closing square brackets when asked to.
func normalizeText(text string, foldLines, unescapeBrackets bool) string {
	if text == "" {
		return text
	}
	if foldLines {
		text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	}
	if unescapeBrackets {
		text = strings.ReplaceAll(text, `\]`, "]")
	}
	return text
}
