package pdfprint

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-adoc/internal/fileutil"
)

// rewrittenAttrs lists the attributes holding local references that the
// printed page must still reach. Media and scripts are left alone since
// they do not print.
var rewrittenAttrs = map[atom.Atom]string{
	atom.Img:    "src",
	atom.A:      "href",
	atom.Link:   "href",
	atom.Object: "data",
}

// RewriteRelativePaths turns relative references to files under baseDir
// into absolute file:// URLs. References escaping baseDir, anchors, URLs
// and absolute paths are kept. An empty baseDir returns the content
// unchanged.
func RewriteRelativePaths(content, baseDir string) (string, error) {
	if baseDir == "" {
		return content, nil
	}
	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	doc, fragment, err := parseHTML(content)
	if err != nil {
		return "", err
	}
	rewriteNode(doc, absDir)
	return renderHTML(doc, fragment)
}

// parseHTML parses a complete document, or a fragment in body context.
func parseHTML(content string) (*html.Node, bool, error) {
	head := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, true, err
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, true, nil
}

func renderHTML(doc *html.Node, fragment bool) (string, error) {
	var buf strings.Builder
	if !fragment {
		if err := html.Render(&buf, doc); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func rewriteNode(n *html.Node, dir string) {
	if n.Type == html.ElementNode {
		if key, ok := rewrittenAttrs[n.DataAtom]; ok {
			rewriteAttr(n, key, dir)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, dir)
	}
}

func rewriteAttr(n *html.Node, key, dir string) {
	for i, attr := range n.Attr {
		if attr.Key != key || !isRelativePath(attr.Val) {
			continue
		}
		ref, fragment, _ := strings.Cut(attr.Val, "#")
		unescaped, err := url.PathUnescape(ref)
		if err != nil {
			unescaped = ref
		}
		abs := filepath.Join(dir, filepath.FromSlash(unescaped))
		if !fileutil.Within(abs, dir) {
			continue
		}
		val := fileutil.FileURL(abs)
		if fragment != "" {
			val += "#" + fragment
		}
		n.Attr[i].Val = val
	}
}

// isRelativePath reports whether ref is a relative file reference.
func isRelativePath(ref string) bool {
	switch {
	case ref == "",
		strings.HasPrefix(ref, "#"),
		strings.HasPrefix(ref, "//"),
		strings.HasPrefix(ref, "data:"),
		strings.HasPrefix(ref, "mailto:"),
		fileutil.IsURL(ref),
		filepath.IsAbs(ref):
		return false
	}
	return !strings.Contains(strings.SplitN(ref, "/", 2)[0], ":")
}
