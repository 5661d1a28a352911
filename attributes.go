package adoc

import (
	"regexp"
	"strings"
)

// AttributeList is a parsed bracketed attribute list such as
// [source,ruby,linenums] or [cols="1,2",options="header"].
type AttributeList struct {
	positional []string
	named      map[string]string
}

var (
	attributeEntryRx = regexp.MustCompile(`^:(!?\w[\w-]*!?):(?:[ \t]+(.*))?$`)
	blockAttrLineRx  = regexp.MustCompile(`^\[(|[\p{L}\p{N}_.#%{,"'].*)\]$`)
	blockAnchorRx    = regexp.MustCompile(`^\[\[(?:|([\p{L}_:][\p{L}\p{N}_:.-]*)(?:, *(.+))?)\]\]$`)
)

// Positional returns the 1-based positional attribute i.
func (a *AttributeList) Positional(i int) (string, bool) {
	if i < 1 || i > len(a.positional) {
		return "", false
	}
	return a.positional[i-1], true
}

// Named returns the named attributes, including options expanded to
// <name>-option keys and positional values bound to names.
func (a *AttributeList) Named() map[string]string {
	return a.named
}

// parseAttributeList splits text into positional and named attributes.
// posNames binds positional values to names when no named value exists.
func parseAttributeList(text string, posNames []string) *AttributeList {
	al := &AttributeList{named: map[string]string{}}
	s := strings.TrimSpace(text)
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}
		var name string
		quotedName := false
		if s[i] == '"' || s[i] == '\'' {
			name, i = scanQuoted(s, i)
			quotedName = true
		} else {
			start := i
			for i < len(s) && s[i] != ',' && s[i] != '=' {
				i++
			}
			name = strings.TrimSpace(s[start:i])
		}
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if !quotedName && i < len(s) && s[i] == '=' {
			i++
			for i < len(s) && s[i] == ' ' {
				i++
			}
			var value string
			if i < len(s) && (s[i] == '"' || s[i] == '\'') {
				value, i = scanQuoted(s, i)
				for i < len(s) && s[i] != ',' {
					i++
				}
			} else {
				start := i
				for i < len(s) && s[i] != ',' {
					i++
				}
				value = strings.TrimSpace(s[start:i])
			}
			al.setNamed(strings.ToLower(name), value)
		} else {
			for i < len(s) && s[i] != ',' {
				i++
			}
			al.positional = append(al.positional, name)
		}
		if i < len(s) && s[i] == ',' {
			i++
			if i == len(s) {
				al.positional = append(al.positional, "")
			}
		}
	}
	for idx, pname := range posNames {
		if idx < len(al.positional) && pname != "" {
			if _, ok := al.named[pname]; !ok && al.positional[idx] != "" {
				al.named[pname] = al.positional[idx]
			}
		}
	}
	return al
}

func (a *AttributeList) setNamed(name, value string) {
	switch name {
	case "options", "opts":
		for _, opt := range strings.Split(value, ",") {
			if opt = strings.TrimSpace(opt); opt != "" {
				a.named[opt+"-option"] = ""
			}
		}
		name = "options"
		if prev, ok := a.named[name]; ok && prev != "" {
			value = prev + "," + value
		}
	case "role", "roles":
		name = "role"
	}
	a.named[name] = value
}

func scanQuoted(s string, i int) (string, int) {
	q := s[i]
	i++
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == q {
			b.WriteByte(q)
			i += 2
			continue
		}
		if c == q {
			return b.String(), i + 1
		}
		b.WriteByte(c)
		i++
	}
	return string(q) + b.String(), i
}

// applyShorthand expands style#id.role%option syntax found in the first
// positional attribute.
func (a *AttributeList) applyShorthand() {
	if len(a.positional) == 0 {
		return
	}
	first := a.positional[0]
	if !strings.ContainsAny(first, "#.%") || strings.ContainsAny(first, " ") {
		if first != "" {
			a.named["style"] = first
		}
		return
	}
	var style string
	var roles []string
	kind := byte(0)
	var cur strings.Builder
	flush := func() {
		v := cur.String()
		cur.Reset()
		switch kind {
		case 0:
			style = v
		case '#':
			if v != "" {
				a.named["id"] = v
			}
		case '.':
			if v != "" {
				roles = append(roles, v)
			}
		case '%':
			if v != "" {
				a.named[v+"-option"] = ""
				if prev := a.named["options"]; prev != "" {
					a.named["options"] = prev + "," + v
				} else {
					a.named["options"] = v
				}
			}
		}
	}
	for i := 0; i < len(first); i++ {
		c := first[i]
		if c == '#' || c == '.' || c == '%' {
			flush()
			kind = c
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	if style != "" {
		a.named["style"] = style
		a.positional[0] = style
	} else {
		a.positional[0] = ""
	}
	if len(roles) > 0 {
		if prev := a.named["role"]; prev != "" {
			roles = append(strings.Fields(prev), roles...)
		}
		a.named["role"] = strings.Join(roles, " ")
	}
}

// merge copies b over a; positional values of b replace a's.
func (a *AttributeList) merge(b *AttributeList) {
	for k, v := range b.named {
		if k == "role" && a.named["role"] != "" && v != "" {
			a.named[k] = a.named[k] + " " + v
			continue
		}
		a.named[k] = v
	}
	if len(b.positional) > 0 {
		a.positional = b.positional
	}
}

// attributeEntry is a parsed :name: value line.
type attributeEntry struct {
	name  string
	value string
	unset bool
}

// parseAttributeEntry recognizes an attribute entry, consuming continuation
// lines (ending in " \") from the reader.
func parseAttributeEntry(line string, r *Reader) (attributeEntry, bool) {
	m := attributeEntryRx.FindStringSubmatch(line)
	if m == nil {
		return attributeEntry{}, false
	}
	name := m[1]
	value := m[2]
	for strings.HasSuffix(value, " \\") && r != nil {
		value = strings.TrimSuffix(value, " \\")
		next, ok := r.PeekLine()
		if !ok {
			break
		}
		r.shift()
		value += " " + strings.TrimSpace(next)
	}
	entry := attributeEntry{name: strings.ToLower(name), value: value}
	switch {
	case strings.HasPrefix(name, "!"):
		entry.unset = true
		entry.name = strings.ToLower(name[1:])
	case strings.HasSuffix(name, "!"):
		entry.unset = true
		entry.name = strings.ToLower(strings.TrimSuffix(name, "!"))
	}
	return entry, true
}
