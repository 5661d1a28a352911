package adoc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	conditionalDirectiveRx = regexp.MustCompile(`^(\\)?(ifdef|ifndef|ifeval|endif)::(\S*?(?:([,+])\S*?)?)\[(.+)?\]$`)
	includeDirectiveRx     = regexp.MustCompile(`^(\\)?include::([^\s\[](?:[^\[]*[^\s\[])?)\[(.+)?\]$`)
	evalExpressionRx       = regexp.MustCompile(`^(.+?) *([=!><]=|[><]) *(.+)$`)
	tagDirectiveRx         = regexp.MustCompile(`\b(tag|end)::(\S+?)\[\]$`)
)

type conditional struct {
	target string
	skip   bool
}

// processLine handles a preprocessor directive at the head of the reader.
// It returns true when the line should be returned as-is, and false when
// the reader's lines changed and the head must be peeked again.
func (r *Reader) processLine(line string) bool {
	if line == "" || (!strings.Contains(line, "::") && !r.skipping) {
		if r.skipping {
			r.shift()
			return false
		}
		return true
	}
	if strings.HasSuffix(line, "]") && !strings.HasPrefix(line, "[") && strings.Contains(line, "::") {
		if m := conditionalDirectiveRx.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				r.lines[0] = line[1:]
				return r.skipDropped()
			}
			if r.preprocessConditional(m[2], m[3], m[4], m[5]) {
				r.shift()
				return false
			}
			// Single-line conditional replaced the head.
			return r.skipDropped()
		}
		if r.skipping {
			r.shift()
			return false
		}
		if m := includeDirectiveRx.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				r.lines[0] = line[1:]
				return true
			}
			if err := r.preprocessInclude(m[2], m[3]); err != nil {
				r.fail(err)
			}
			return false
		}
		return true
	}
	if r.skipping {
		r.shift()
		return false
	}
	return true
}

func (r *Reader) skipDropped() bool {
	if r.skipping {
		r.shift()
		return false
	}
	return true
}

func (r *Reader) fail(err error) {
	r.err = err
	r.lines = nil
	r.includes = nil
}

// preprocessConditional evaluates a conditional directive. It returns true
// when the directive line should be dropped, false when the line was
// replaced by the text of a single-line conditional.
func (r *Reader) preprocessConditional(keyword, target, delimiter, text string) bool {
	if keyword == "endif" {
		if text != "" {
			r.doc.logWarn(r.Cursor(), "malformed preprocessor directive - text not permitted: endif::%s[%s]", target, text)
			return true
		}
		if len(r.conditionals) == 0 {
			r.doc.logError(r.Cursor(), "unmatched preprocessor directive: endif::%s[]", target)
			return true
		}
		top := r.conditionals[len(r.conditionals)-1]
		if target != "" && target != top.target {
			r.doc.logError(r.Cursor(), "mismatched preprocessor directive: endif::%s[], expected endif::%s[]", target, top.target)
			return true
		}
		r.conditionals = r.conditionals[:len(r.conditionals)-1]
		r.skipping = len(r.conditionals) > 0 && r.conditionals[len(r.conditionals)-1].skip
		return true
	}

	skip := false
	if !r.skipping {
		switch keyword {
		case "ifdef", "ifndef":
			if target == "" {
				r.doc.logWarn(r.Cursor(), "malformed preprocessor directive - missing target: %s::[%s]", keyword, text)
				return true
			}
			defined := r.evalDefined(target, delimiter)
			skip = defined == (keyword == "ifndef")
		case "ifeval":
			if target != "" {
				r.doc.logWarn(r.Cursor(), "malformed preprocessor directive - target not permitted: ifeval::%s[%s]", target, text)
				return true
			}
			if text == "" {
				r.doc.logWarn(r.Cursor(), "malformed preprocessor directive - missing expression: ifeval::[]")
				return true
			}
			ok, valid := r.evalExpression(text)
			if !valid {
				r.doc.logWarn(r.Cursor(), "malformed preprocessor directive - invalid expression: ifeval::[%s]", text)
				return true
			}
			skip = !ok
		}
	}

	if keyword != "ifeval" && text != "" {
		// Single-line form: the text replaces the directive when the condition holds.
		if r.skipping || skip {
			return true
		}
		r.lines[0] = text
		return false
	}
	r.conditionals = append(r.conditionals, conditional{target: target, skip: skip || r.skipping})
	r.skipping = skip || r.skipping
	return true
}

func (r *Reader) evalDefined(target, delimiter string) bool {
	attrs := r.doc.attributes
	switch delimiter {
	case ",":
		for _, name := range strings.Split(target, ",") {
			if _, ok := attrs[name]; ok {
				return true
			}
		}
		return false
	case "+":
		for _, name := range strings.Split(target, "+") {
			if _, ok := attrs[name]; !ok {
				return false
			}
		}
		return true
	default:
		_, ok := attrs[target]
		return ok
	}
}

func (r *Reader) evalExpression(expr string) (result, valid bool) {
	m := evalExpressionRx.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return false, false
	}
	lhs := r.resolveExprValue(m[1])
	rhs := r.resolveExprValue(m[3])
	return compareExprValues(lhs, m[2], rhs), true
}

type exprValue struct {
	str    string
	num    float64
	isNum  bool
	isBool bool
}

func (r *Reader) resolveExprValue(s string) exprValue {
	s = strings.TrimSpace(s)
	quoted := len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\''))
	if quoted {
		s = s[1 : len(s)-1]
	}
	s = r.doc.substituteAttributesFor(s, "drop")
	if quoted {
		return exprValue{str: s}
	}
	switch s {
	case "true", "false":
		return exprValue{str: s, isBool: true}
	case "":
		return exprValue{}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return exprValue{str: s, num: n, isNum: true}
	}
	return exprValue{str: s}
}

func compareExprValues(lhs exprValue, op string, rhs exprValue) bool {
	if lhs.isNum && rhs.isNum {
		switch op {
		case "==":
			return lhs.num == rhs.num
		case "!=":
			return lhs.num != rhs.num
		case "<":
			return lhs.num < rhs.num
		case "<=":
			return lhs.num <= rhs.num
		case ">":
			return lhs.num > rhs.num
		case ">=":
			return lhs.num >= rhs.num
		}
	}
	switch op {
	case "==":
		return lhs.str == rhs.str
	case "!=":
		return lhs.str != rhs.str
	case "<":
		return lhs.str < rhs.str
	case "<=":
		return lhs.str <= rhs.str
	case ">":
		return lhs.str > rhs.str
	case ">=":
		return lhs.str >= rhs.str
	}
	return false
}

// preprocessInclude replaces an include directive at the head of the reader
// with the lines of its target.
func (r *Reader) preprocessInclude(rawTarget, attrlist string) error {
	doc := r.doc
	loc := r.Cursor()
	target := doc.substituteAttributesFor(rawTarget, "drop-line")
	if target == "" {
		r.shift()
		doc.logInfo(loc, "include dropped due to missing attribute: include::%s[%s]", rawTarget, attrlist)
		return nil
	}

	attrs := parseAttributeList(doc.substituteAttributesFor(attrlist, "skip"), nil)

	if ext := doc.extensions; ext != nil {
		for _, p := range ext.includeProcessors() {
			ip := p.processor.(IncludeProcessor)
			if ip.Handles(doc, target) {
				r.shift()
				if err := ip.Process(doc, r, target, attrs.named); err != nil {
					return fmt.Errorf("%w: include processor %s: %v", ErrExtension, p.name, err)
				}
				return nil
			}
		}
	}

	if doc.safe >= SafeModeSecure {
		r.lines[0] = fmt.Sprintf("link:%s[role=include]", target)
		r.rawNext = true
		return nil
	}

	if max := doc.maxIncludeDepth(); r.includeDepth() >= max {
		return newParseError(loc, fmt.Errorf("%w: %d", ErrIncludeDepth, max))
	}

	var (
		content  []string
		file     string
		relpath  string
		sourceID string
	)
	if isURI(target) {
		if _, ok := doc.attributes["allow-uri-read"]; !ok {
			return newParseError(loc, fmt.Errorf("%w: cannot include %s without allow-uri-read", ErrSecurity, target))
		}
		data, err := doc.options.URIReader.ReadURI(target)
		if err != nil {
			return r.missingInclude(loc, target, rawTarget, attrlist, attrs, err)
		}
		content = splitLines(string(data))
		relpath, sourceID = target, target
	} else {
		resolved, err := doc.resolveSystemPath(target, r.dir)
		if err != nil {
			return newParseError(loc, err)
		}
		data, err := os.ReadFile(resolved) // #nosec G304 -- path jailed by safe mode
		if err != nil {
			return r.missingInclude(loc, resolved, rawTarget, attrlist, attrs, err)
		}
		content = splitLines(string(data))
		file = resolved
		relpath = doc.relativePath(resolved)
		sourceID = resolved
	}

	content = filterIncludeLines(doc, loc, content, attrs.named)
	r.shift()
	doc.catalog.Includes[strings.TrimSuffix(relpath, filepath.Ext(relpath))] = true
	doc.logDebug(loc, "include %s", sourceID)

	var after []string
	if offset, ok := attrs.named["leveloffset"]; ok {
		prev, had := doc.attributes["leveloffset"]
		content = append([]string{":leveloffset: " + offset, ""}, content...)
		if had {
			after = []string{"", ":leveloffset: " + prev}
		} else {
			after = []string{"", ":leveloffset!:"}
		}
	}
	r.pushInclude(content, file, relpath, after)
	return nil
}

func (r *Reader) missingInclude(loc SourceLocation, target, rawTarget, attrlist string, attrs *AttributeList, cause error) error {
	if _, ok := attrs.named["optional-option"]; ok {
		r.shift()
		return nil
	}
	if r.doc.options.IncludeMissing == IncludeMissingWarn {
		r.doc.logWarn(loc, "include file not found: %s", target)
		r.lines[0] = fmt.Sprintf("Unresolved directive in %s - include::%s[%s]", loc.Path, rawTarget, attrlist)
		r.rawNext = true
		return nil
	}
	return newParseError(loc, fmt.Errorf("%w: %s: %v", ErrIncludeNotFound, target, cause))
}

// filterIncludeLines applies the lines and tag(s) include attributes.
func filterIncludeLines(doc *Document, loc SourceLocation, lines []string, attrs map[string]string) []string {
	if spec, ok := attrs["lines"]; ok && spec != "" {
		return selectLineRanges(lines, spec)
	}
	tags := attrs["tags"]
	if t, ok := attrs["tag"]; ok {
		tags = t
	}
	if tags == "" {
		return lines
	}
	wanted := map[string]bool{}
	for _, t := range strings.FieldsFunc(tags, func(r rune) bool { return r == ';' || r == ',' }) {
		wanted[t] = true
	}
	var out []string
	var active []string
	found := map[string]bool{}
	for _, line := range lines {
		if m := tagDirectiveRx.FindStringSubmatch(line); m != nil {
			name := m[2]
			if m[1] == "tag" {
				active = append(active, name)
				if wanted[name] {
					found[name] = true
				}
			} else if n := len(active); n > 0 && active[n-1] == name {
				active = active[:n-1]
			}
			continue
		}
		for _, a := range active {
			if wanted[a] {
				out = append(out, line)
				break
			}
		}
	}
	for t := range wanted {
		if !found[t] {
			doc.logWarn(loc, "tag '%s' not found in include file", t)
		}
	}
	return out
}

func selectLineRanges(lines []string, spec string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(spec, func(r rune) bool { return r == ';' || r == ',' }) {
		from, to, isRange := strings.Cut(strings.TrimSpace(part), "..")
		start, err := strconv.Atoi(from)
		if err != nil || start < 1 {
			continue
		}
		end := start
		if isRange {
			if to == "" || to == "-1" {
				end = len(lines)
			} else if end, err = strconv.Atoi(to); err != nil {
				continue
			}
		}
		for i := start; i <= end && i <= len(lines); i++ {
			out = append(out, lines[i-1])
		}
	}
	return out
}
