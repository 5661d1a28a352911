package adoc

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	inlinePassMacroRx = regexp.MustCompile(`(?s)(?:(\\?)\[([^\]]+)\])?(\\{0,2})(?:\+\+\+(.*?)\+\+\+|\+\+(.*?)\+\+|\$\$(.*?)\$\$)|(\\?)pass:([a-z\d,+-]*)\[(|.*?[^\\])\]`)
	inlinePassRx      = regexp.MustCompile(`(?s)([^\p{L}\p{N}_;:])(?:\[([^\]]+)\])?(\\?)\+(\S|\S.*?\S)\+([^\p{L}\p{N}_]|$)`)
	inlineStemMacroRx = regexp.MustCompile(`(?s)\\?(stem|(?:latex|ascii)math):([a-z]+(?:,[a-z-]+)*)?\[(.*?[^\\])\]`)
)

// stemTypes maps values of the stem attribute to an interpreter.
var stemTypes = map[string]string{
	"latexmath": "latexmath",
	"latex":     "latexmath",
	"tex":       "latexmath",
}

// extractPassthroughs replaces passthrough text with placeholders so the
// remaining substitutions cannot touch it.
func (s *substitutor) extractPassthroughs(text string) string {
	if strings.Contains(text, "++") || strings.Contains(text, "$$") || strings.Contains(text, "ss:") {
		text = gsub(text, inlinePassMacroRx, s.extractPassMacro)
	}
	if strings.Contains(text, "+") {
		text = gsubLookahead("\n"+text, inlinePassRx, s.extractInlinePass)[1:]
	}
	if strings.Contains(text, ":") && (strings.Contains(text, "stem:") || strings.Contains(text, "math:")) {
		text = gsub(text, inlineStemMacroRx, s.extractStem)
	}
	return text
}

func (s *substitutor) store(p passthrough) string {
	s.passthroughs = append(s.passthroughs, p)
	return passStart + strconv.Itoa(len(s.passthroughs)-1) + passEnd
}

func (s *substitutor) extractPassMacro(m []string) string {
	lead := m[3]
	if m[2] != "" {
		lead = m[1] + "[" + m[2] + "]" + m[3]
	}
	rest := m[0][len(lead):]
	var boundary, body string
	switch {
	case strings.HasPrefix(rest, "+++"):
		boundary, body = "+++", m[4]
	case strings.HasPrefix(rest, "++"):
		boundary, body = "++", m[5]
	case strings.HasPrefix(rest, "$$"):
		boundary, body = "$$", m[6]
	}

	if boundary == "" {
		if m[7] == `\` {
			return m[0][1:]
		}
		p := passthrough{text: normalizeText(m[9], false, true)}
		if m[8] != "" {
			p.subs = resolveSubs(m[8], nil, s.doc)
		}
		return s.store(p)
	}

	attrlist, escapes := m[2], len(m[3])
	preceding := ""
	var attrs map[string]string
	oldBehavior := false
	switch {
	case attrlist != "" && escapes > 0:
		return m[1] + "[" + attrlist + "]" + strings.Repeat(`\`, escapes-1) + boundary + body + boundary
	case attrlist != "" && m[1] == `\`:
		preceding = "[" + attrlist + "]"
	case attrlist != "" && boundary == "++" && attrlist == "x-":
		oldBehavior = true
		attrs = map[string]string{}
	case attrlist != "" && boundary == "++" && strings.HasSuffix(attrlist, " x-"):
		oldBehavior = true
		attrs = s.parseQuotedTextAttributes(strings.TrimSuffix(attrlist, " x-"))
	case attrlist != "":
		attrs = s.parseQuotedTextAttributes(attrlist)
	case escapes > 0:
		return strings.Repeat(`\`, escapes-1) + boundary + body + boundary
	}

	subs := basicSubs
	if boundary == "+++" {
		subs = nil
	}
	p := passthrough{text: body, subs: subs}
	if attrs != nil {
		if oldBehavior {
			p.subs, p.typ = normalSubs, "monospaced"
		} else {
			p.typ = "unquoted"
		}
		p.attributes = attrs
	}
	return preceding + s.store(p)
}

// extractInlinePass handles the constrained +text+ form, which passes text
// through with only special characters escaped.
func (s *substitutor) extractInlinePass(m []string) string {
	prefix, attrlist, escaped, body := m[1], m[2], m[3] != "", m[4]
	if escaped {
		if attrlist != "" {
			return prefix + "[" + attrlist + "]+" + body + "+"
		}
		return prefix + "+" + body + "+"
	}
	p := passthrough{text: body, subs: basicSubs}
	if attrlist != "" {
		p.typ = "unquoted"
		p.attributes = s.parseQuotedTextAttributes(attrlist)
	}
	return prefix + s.store(p)
}

func (s *substitutor) extractStem(m []string) string {
	if strings.HasPrefix(m[0], `\`) {
		return m[0][1:]
	}
	typ := m[1]
	if typ == "stem" {
		typ = "asciimath"
		if t, ok := stemTypes[s.doc.attributes["stem"]]; ok {
			typ = t
		}
	}
	content := normalizeText(m[3], false, true)
	if typ == "latexmath" && len(content) > 1 && strings.HasPrefix(content, "$") && strings.HasSuffix(content, "$") {
		content = content[1 : len(content)-1]
	}
	subs := basicSubs
	if m[2] != "" {
		subs = resolveSubs(m[2], nil, s.doc)
	}
	return s.store(passthrough{text: content, subs: subs, typ: typ})
}

// restorePassthroughs puts the substituted passthrough text back in place
// of its placeholders.
func (s *substitutor) restorePassthroughs(text string) string {
	return passSlotRx.ReplaceAllStringFunc(text, func(slot string) string {
		i, err := strconv.Atoi(slot[len(passStart) : len(slot)-len(passEnd)])
		if err != nil || i >= len(s.passthroughs) {
			s.doc.logError(s.location(), "unresolved passthrough detected: %s", text)
			return "??pass??"
		}
		p := s.passthroughs[i]
		out := s.doc.applySubs(s.node, p.text, p.subs)
		if p.typ != "" {
			out = s.convertInline(s.newInline("quoted", out, InlineOptions{
				Type:       p.typ,
				ID:         p.attributes["id"],
				Attributes: p.attributes,
			}))
		}
		if strings.Contains(out, passStart) {
			out = s.restorePassthroughs(out)
		}
		return out
	})
}
