package adoc

import (
	"regexp"
	"strings"
)

type quoteRule struct {
	typ         string
	constrained bool
	rx          *regexp.Regexp
}

// Constrained rules capture the character before the mark and the one
// after it; the trailing group is only peeked at (see gsubLookahead).
const quoteTail = `([^\p{L}\p{N}_]|$)`

var quoteRules = []quoteRule{
	{"strong", false, regexp.MustCompile(`(?s)\\?(?:\[([^\]]+)\])?\*\*(.+?)\*\*`)},
	{"strong", true, regexp.MustCompile(`(?s)([^\p{L}\p{N}_;:}])(?:\[([^\]]+)\])?\*(\S|\S.*?\S)\*` + quoteTail)},
	{"double", true, regexp.MustCompile(`(?s)([^\p{L}\p{N}_;:}])(?:\[([^\]]+)\])?"\x60(\S|\S.*?\S)\x60"` + quoteTail)},
	{"single", true, regexp.MustCompile(`(?s)([^\p{L}\p{N}_;:\x60}])(?:\[([^\]]+)\])?'\x60(\S|\S.*?\S)\x60'` + quoteTail)},
	{"monospaced", false, regexp.MustCompile(`(?s)\\?(?:\[([^\]]+)\])?\x60\x60(.+?)\x60\x60`)},
	{"monospaced", true, regexp.MustCompile(`(?s)([^\p{L}\p{N}_;:"'\x60}])(?:\[([^\]]+)\])?\x60(\S|\S.*?\S)\x60([^\p{L}\p{N}_"'\x60]|$)`)},
	{"emphasis", false, regexp.MustCompile(`(?s)\\?(?:\[([^\]]+)\])?__(.+?)__`)},
	{"emphasis", true, regexp.MustCompile(`(?s)([^\p{L}\p{N}_;:}])(?:\[([^\]]+)\])?_(\S|\S.*?\S)_` + quoteTail)},
	{"mark", false, regexp.MustCompile(`(?s)\\?(?:\[([^\]]+)\])?##(.+?)##`)},
	{"mark", true, regexp.MustCompile(`(?s)([^\p{L}\p{N}_&;:}])(?:\[([^\]]+)\])?#(\S|\S.*?\S)#` + quoteTail)},
	{"superscript", false, regexp.MustCompile(`\\?(?:\[([^\]]+)\])?\^(\S+?)\^`)},
	{"subscript", false, regexp.MustCompile(`\\?(?:\[([^\]]+)\])?~(\S+?)~`)},
}

func (s *substitutor) subQuotes(text string) string {
	if !strings.ContainsAny(text, "*_`#^~") {
		return text
	}
	// The leading newline stands in for the start of the text so that
	// constrained marks at position 0 have a boundary character.
	text = "\n" + text
	for _, rule := range quoteRules {
		rule := rule
		if rule.constrained {
			text = gsubLookahead(text, rule.rx, func(m []string) string {
				return s.convertConstrained(m, rule.typ)
			})
		} else {
			text = gsub(text, rule.rx, func(m []string) string {
				return s.convertUnconstrained(m, rule.typ)
			})
		}
	}
	return text[1:]
}

func (s *substitutor) convertConstrained(m []string, typ string) string {
	prefix, attrlist, body := m[1], m[2], m[3]
	whole := m[0][:len(m[0])-len(m[4])]
	if prefix == `\` {
		if attrlist == "" {
			return whole[1:]
		}
		return "[" + attrlist + "]" + s.quoted(body, typ, nil)
	}
	var attrs map[string]string
	if attrlist != "" {
		attrs = s.parseQuotedTextAttributes(attrlist)
		if typ == "mark" {
			typ = "unquoted"
		}
	}
	return prefix + s.quoted(body, typ, attrs)
}

func (s *substitutor) convertUnconstrained(m []string, typ string) string {
	if strings.HasPrefix(m[0], `\`) {
		return m[0][1:]
	}
	attrlist, body := m[1], m[2]
	var attrs map[string]string
	if attrlist != "" {
		attrs = s.parseQuotedTextAttributes(attrlist)
		if typ == "mark" {
			typ = "unquoted"
		}
	}
	return s.quoted(body, typ, attrs)
}

func (s *substitutor) quoted(text, typ string, attrs map[string]string) string {
	return s.convertInline(s.newInline("quoted", text, InlineOptions{
		Type:       typ,
		ID:         attrs["id"],
		Attributes: attrs,
	}))
}

// parseQuotedTextAttributes reads the [role] or [#id.role] prefix of
// quoted text. Only the first positional entry is considered.
func (s *substitutor) parseQuotedTextAttributes(text string) map[string]string {
	if strings.Contains(text, "{") {
		text = s.subAttributes(text, "")
	}
	if i := strings.IndexByte(text, ','); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	attrs := map[string]string{}
	if text == "" {
		return attrs
	}
	if text[0] != '.' && text[0] != '#' {
		attrs["role"] = text
		return attrs
	}
	before, after, _ := strings.Cut(text, "#")
	roleOf := func(s string) string {
		return strings.TrimLeft(strings.ReplaceAll(s, ".", " "), " ")
	}
	if after == "" {
		if len(before) > 1 {
			attrs["role"] = roleOf(before)
		}
		return attrs
	}
	id, roles, _ := strings.Cut(after, ".")
	if id != "" {
		attrs["id"] = id
	}
	switch {
	case roles == "":
		if len(before) > 1 {
			attrs["role"] = roleOf(before)
		}
	case len(before) > 1:
		attrs["role"] = roleOf(before + "." + roles)
	default:
		attrs["role"] = strings.ReplaceAll(roles, ".", " ")
	}
	return attrs
}
