// Package svg prepares SVG files for inlining into HTML output.
package svg

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoRoot indicates the content has no svg element.
var ErrNoRoot = errors.New("no svg root element")

var (
	dimensionAttrRx = regexp.MustCompile(`\s(?:width|height|style)=(?:"[^"]*"|'[^']*')`)
	digitsRx        = regexp.MustCompile(`^\d+$`)
)

// Inline returns src starting at the root svg element, dropping any XML
// declaration, doctype or comment before it. When width or height is
// non-empty, the width, height and style attributes of the start tag are
// replaced by the given dimensions. The rest of the document is kept as
// written.
func Inline(src, width, height string) (string, error) {
	src = normalize(src)
	start, tag, err := findRoot(src)
	if err != nil {
		return "", err
	}
	rest := src[start+len(tag):]
	if width == "" && height == "" {
		return tag + rest, nil
	}
	tag = dimensionAttrRx.ReplaceAllString(tag, "")
	closing := ">"
	if strings.HasSuffix(tag, "/>") {
		closing = "/>"
	}
	tag = strings.TrimRight(strings.TrimSuffix(tag, closing), " ")
	if width != "" {
		tag += ` width="` + pixels(width) + `"`
	}
	if height != "" {
		tag += ` height="` + pixels(height) + `"`
	}
	return tag + closing + rest, nil
}

// findRoot locates the start tag of the first svg element and returns its
// byte offset and raw text.
func findRoot(src string) (int, string, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return 0, "", ErrNoRoot
			}
			return 0, "", z.Err()
		}
		raw := string(z.Raw())
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			if name, _ := z.TagName(); string(name) == "svg" {
				return offset, raw, nil
			}
		}
		offset += len(raw)
	}
}

func pixels(v string) string {
	if digitsRx.MatchString(v) {
		return v + "px"
	}
	return v
}

// normalize strips trailing whitespace from each line and trailing blank lines.
func normalize(src string) string {
	src = strings.TrimPrefix(src, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
