package adoc

import (
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// rtrim strips trailing whitespace, including Unicode separators.
func rtrim(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// splitLines normalizes line endings and splits data into right-trimmed lines.
// A leading byte order mark is dropped.
func splitLines(data string) []string {
	data = strings.TrimPrefix(data, "\ufeff")
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	if data == "" {
		return nil
	}
	data = strings.TrimSuffix(data, "\n")
	lines := strings.Split(data, "\n")
	for i, l := range lines {
		lines[i] = rtrim(l)
	}
	return lines
}

var (
	invalidIDCharsRx = regexp.MustCompile(`<[^>]+>|&(?:[a-z][a-z]+\d{0,2}|#\d\d\d{0,4}|#x[\da-f][\da-f][\da-f]{0,3});|[^ \p{L}\p{N}_\-.]+`)
	idSeparatorRx    = regexp.MustCompile(`[ .\-]+`)
)

// generateID derives an element id from converted title text.
func generateID(title, prefix, separator string) string {
	id := strings.ToLower(invalidIDCharsRx.ReplaceAllString(title, ""))
	if separator != "" {
		id = idSeparatorRx.ReplaceAllString(id, separator)
		id = strings.Trim(id, separator)
	} else {
		id = strings.ReplaceAll(id, " ", "")
	}
	return prefix + id
}

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"}, {100, "C"}, {90, "XC"},
	{50, "L"}, {40, "XL"}, {10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func intToRoman(n int) string {
	var b strings.Builder
	for _, r := range romanNumerals {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}

// nextCounterValue advances a counter value. Numeric values increment;
// single letters walk the alphabet, preserving case.
func nextCounterValue(current string) string {
	if n, err := strconv.Atoi(current); err == nil {
		return strconv.Itoa(n + 1)
	}
	if len(current) == 1 {
		c := current[0]
		switch {
		case c == 'z':
			return "aa"
		case c == 'Z':
			return "AA"
		case unicode.IsLetter(rune(c)):
			return string(c + 1)
		}
	}
	return current + "1"
}

// basenameAlt turns an image target into readable alt text.
func basenameAlt(target string) string {
	base := path.Base(strings.ReplaceAll(target, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

var uriSniffRx = regexp.MustCompile(`^\p{L}[\p{L}\p{N}.+-]+:/{0,2}`)

// isURI reports whether target starts with a URI scheme.
func isURI(target string) bool {
	return strings.Contains(target, ":") && uriSniffRx.MatchString(target) && !isWindowsDrive(target)
}

func isWindowsDrive(target string) bool {
	return len(target) > 2 && target[1] == ':' && (target[2] == '\\' || target[2] == '/') && unicode.IsLetter(rune(target[0]))
}

// formatPercent renders a width percentage the way column styles expect.
func formatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s
}

// truncateFloat cuts v to the given number of decimals without rounding.
func truncateFloat(v float64, decimals int) float64 {
	p := 1.0
	for range decimals {
		p *= 10
	}
	return float64(int64(v*p)) / p
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
