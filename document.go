package adoc

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-adoc/internal/fileutil"
)

// Version is reported in the generator meta tag and the adoc-version attribute.
const Version = "0.4.0"

// Document is the root of the model. It owns the source, attributes,
// catalog, counters and the converter used to render its nodes.
type Document struct {
	blockBase

	options        Options
	safe           SafeMode
	baseDir        string
	sourceLines    []string
	reader         *Reader
	parentDocument *Document
	compatMode     bool
	sourcemap      bool

	header      bool
	headerTitle string

	// attributes as they stood at the end of the header
	headerAttributes map[string]string

	locked   map[string]bool
	authors  []Author
	catalog  *Catalog
	counters map[string]string

	extensions        *Registry
	converter         Converter
	syntaxHighlighter SyntaxHighlighter

	logger  zerolog.Logger
	docTime time.Time
	derived []string

	convertErr error
}

var (
	_ Node      = (*Document)(nil)
	_ BlockNode = (*Document)(nil)
)

// DocumentTitle is a document title split into main title and subtitle.
type DocumentTitle struct {
	Main      string
	Subtitle  string
	Combined  string
	Sanitized bool
}

// HasSubtitle reports whether the title had a subtitle part.
func (t *DocumentTitle) HasSubtitle() bool { return t.Subtitle != "" }

func newDocument(lines []string, o Options) *Document {
	d := &Document{
		options:        o,
		safe:           o.SafeMode,
		sourceLines:    lines,
		parentDocument: o.parent,
		sourcemap:      o.Sourcemap,
		locked:         map[string]bool{},
		catalog:        newCatalog(),
		counters:       map[string]string{},
		logger:         o.Logger,
	}
	d.initBlock(d, ContextDocument, nil)
	d.document = d
	d.level = 0
	if o.parent != nil {
		parent := o.parent
		d.safe = parent.safe
		d.catalog = parent.catalog
		d.extensions = parent.extensions
		d.converter = parent.converter
		d.syntaxHighlighter = parent.syntaxHighlighter
		d.sourcemap = parent.sourcemap
		d.logger = parent.logger
		d.options = parent.options
		d.options.parent = parent
		d.options.Standalone = false
		d.options.Doctype = ""
		d.baseDir = parent.baseDir
		d.counters = parent.counters
	}
	return d
}

// Doctype returns the document type, defaulting to article.
func (d *Document) Doctype() string {
	if v := d.attributes["doctype"]; v != "" {
		return v
	}
	return DoctypeArticle
}

// Backend returns the backend name, such as html5.
func (d *Document) Backend() string {
	if v := d.attributes["backend"]; v != "" {
		return v
	}
	return BackendHTML5
}

// Safe returns the safe mode of the document.
func (d *Document) Safe() SafeMode { return d.safe }

// CompatMode reports whether the source used legacy syntax, such as a
// two-line document title, or set compat-mode.
func (d *Document) CompatMode() bool {
	_, ok := d.attributes["compat-mode"]
	return d.compatMode || ok
}

// Sourcemap reports whether source locations are recorded.
func (d *Document) Sourcemap() bool { return d.sourcemap }

// SetSourcemap toggles source location tracking for subsequent parsing.
func (d *Document) SetSourcemap(enabled bool) { d.sourcemap = enabled }

// Embedded reports whether conversion produces a fragment rather than a full page.
func (d *Document) Embedded() bool {
	_, ok := d.attributes["embedded"]
	return ok
}

// Nested reports whether the document is the content of an AsciiDoc table cell.
func (d *Document) Nested() bool { return d.parentDocument != nil }

// ParentDocument returns the enclosing document of a nested document.
func (d *Document) ParentDocument() *Document { return d.parentDocument }

// Options returns the options the document was loaded with.
func (d *Document) Options() Options { return d.options }

// BaseDir is the directory relative includes resolve against.
func (d *Document) BaseDir() string { return d.baseDir }

// Outfilesuffix returns the output file extension, including the dot.
func (d *Document) Outfilesuffix() string {
	if v, ok := d.attributes["outfilesuffix"]; ok {
		return v
	}
	return ".html"
}

// Converter returns the converter bound to the document backend.
func (d *Document) Converter() Converter { return d.converter }

// Extensions returns the extension registry active for the document, or
// nil when no extensions are in use.
func (d *Document) Extensions() *Registry { return d.extensions }

// HasExtensions reports whether an extension registry is active.
func (d *Document) HasExtensions() bool { return d.extensions != nil }

// SyntaxHighlighter returns the adapter selected by source-highlighter, if any.
func (d *Document) SyntaxHighlighter() SyntaxHighlighter { return d.syntaxHighlighter }

// Logger returns the logger diagnostics of this document are written to.
func (d *Document) Logger() zerolog.Logger { return d.logger }

// Source returns the normalized source text.
func (d *Document) Source() string { return strings.Join(d.sourceLines, "\n") }

// SourceLines returns the normalized source lines.
func (d *Document) SourceLines() []string { return d.sourceLines }

// Reader returns the reader over the source. After parsing it is exhausted;
// with WithParse(false) it still holds every line.
func (d *Document) Reader() *Reader { return d.reader }

// Catalog returns the references and assets collected for the document.
func (d *Document) Catalog() *Catalog { return d.catalog }

// Authors returns copies of the document authors.
func (d *Document) Authors() []Author { return append([]Author(nil), d.authors...) }

// Author returns the name of the first author.
func (d *Document) Author() string { return d.attributes["author"] }

// Revision returns the revision number, date and remark.
func (d *Document) Revision() (number, date, remark string) {
	return d.attributes["revnumber"], d.attributes["revdate"], d.attributes["revremark"]
}

// Footnotes returns the footnotes registered during conversion.
func (d *Document) Footnotes() []Footnote { return d.catalog.Footnotes }

// HasFootnotes reports whether any footnote was registered.
func (d *Document) HasFootnotes() bool { return len(d.catalog.Footnotes) > 0 }

// Header reports whether the document has a header (a level-0 title).
func (d *Document) Header() bool { return d.header }

// Sections returns the top-level sections.
func (d *Document) Sections() []*Section { return d.childSections() }

// HasSections reports whether the document has top-level sections.
func (d *Document) HasSections() bool { return len(d.childSections()) > 0 }

// Counters returns a copy of the current counter values.
func (d *Document) Counters() map[string]string {
	out := make(map[string]string, len(d.counters))
	for k, v := range d.counters {
		out[k] = v
	}
	return out
}

// Counter advances the named counter and returns the new value. The first
// call yields seed, or "1" when seed is empty.
func (d *Document) Counter(name, seed string) string {
	if d.locked[name] {
		if v, ok := d.attributes[name]; ok {
			return v
		}
	}
	cur, ok := d.counters[name]
	var next string
	switch {
	case ok:
		next = nextCounterValue(cur)
	case seed != "":
		next = seed
	default:
		if v, exists := d.attributes[name]; exists && v != "" {
			next = nextCounterValue(v)
		} else {
			next = "1"
		}
	}
	d.counters[name] = next
	d.attributes[name] = next
	return next
}

// Attribute returns a document attribute.
func (d *Document) Attribute(name string) (string, bool) {
	v, ok := d.attributes[strings.ToLower(name)]
	return v, ok
}

// IsAttribute reports whether name is set, and equal to expected when given.
func (d *Document) IsAttribute(name string, expected ...string) bool {
	v, ok := d.Attribute(name)
	if !ok {
		return false
	}
	return len(expected) == 0 || v == expected[0]
}

// IsAttributeLocked reports whether name was fixed by a load option.
func (d *Document) IsAttributeLocked(name string) bool {
	return d.locked[strings.ToLower(name)]
}

// SetAttribute sets a document attribute unless it is locked by a load option.
func (d *Document) SetAttribute(name, value string) {
	d.setAttribute(name, value)
}

func (d *Document) setAttribute(name, value string) bool {
	name = strings.ToLower(name)
	if d.locked[name] {
		return false
	}
	switch name {
	case "backend":
		var xml bool
		value, xml = normalizeBackend(value)
		d.attributes["htmlsyntax"] = "html"
		if xml {
			d.attributes["htmlsyntax"] = "xml"
		}
	case "leveloffset":
		value = d.resolveLeveloffset(value)
	case "revdate":
		value = d.resolveRevdate(value)
	}
	d.attributes[name] = value
	if name == "doctype" || name == "backend" {
		d.updateDerivedAttributes()
	}
	return true
}

// RemoveAttribute unsets a document attribute unless it is locked.
func (d *Document) RemoveAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	if d.locked[name] {
		return "", false
	}
	v, ok := d.attributes[name]
	delete(d.attributes, name)
	return v, ok
}

// Attributes returns a copy of every document attribute.
func (d *Document) Attributes() map[string]string {
	return d.nodeBase.Attributes()
}

func (d *Document) resolveLeveloffset(value string) string {
	if strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-") {
		delta, err := strconv.Atoi(value)
		if err != nil {
			return "0"
		}
		cur, _ := strconv.Atoi(d.attributes["leveloffset"])
		return strconv.Itoa(cur + delta)
	}
	return value
}

func (d *Document) leveloffset() int {
	n, _ := strconv.Atoi(d.attributes["leveloffset"])
	return n
}

// Title returns the document title: the title attribute when set, else the
// header title, else the first section title.
func (d *Document) Title() string {
	if v, ok := d.attributes["title"]; ok {
		return v
	}
	if d.header {
		return d.applyTitleSubs(d.headerTitle, d)
	}
	for _, s := range d.childSections() {
		return s.Title()
	}
	return ""
}

// SetTitle replaces the header title.
func (d *Document) SetTitle(title string) {
	d.header = true
	d.headerTitle = title
	d.hasTitle = true
}

// HasTitle reports whether a title can be derived.
func (d *Document) HasTitle() bool {
	_, ok := d.attributes["title"]
	return ok || d.header || len(d.childSections()) > 0
}

// HeaderTitle returns the converted level-0 title, ignoring the title attribute.
func (d *Document) HeaderTitle() string {
	if !d.header {
		return ""
	}
	return d.applyTitleSubs(d.headerTitle, d)
}

func (d *Document) CaptionedTitle() string { return d.Title() }

// Doctitle returns the document title, falling back to untitled-label
// when useFallback is set and there is none.
func (d *Document) Doctitle(useFallback bool) string {
	if t := d.Title(); t != "" {
		return t
	}
	if useFallback {
		return d.attributes["untitled-label"]
	}
	return ""
}

// DoctitlePartition splits the title on the last occurrence of the
// separator followed by a space. An empty separator uses title-separator,
// itself defaulting to ":".
func (d *Document) DoctitlePartition(separator string) *DocumentTitle {
	title := d.Title()
	if separator == "" {
		separator = d.attributes["title-separator"]
		if separator == "" {
			separator = ":"
		}
	}
	dt := &DocumentTitle{Main: title, Combined: title}
	sep := separator + " "
	if i := strings.LastIndex(title, sep); i >= 0 {
		dt.Main = title[:i]
		dt.Subtitle = title[i+len(sep):]
	}
	return dt
}

// Content returns the converted body of the document.
func (d *Document) Content() string {
	return d.convertChildren(d.blocks)
}

// IconURI returns the URI of the named admonition icon.
func (d *Document) IconURI(name string) string {
	if icon, ok := d.attributes["icon"]; ok && icon != "" {
		return d.ImageURI(icon, "")
	}
	icontype := d.attributes["icontype"]
	if icontype == "" {
		icontype = "png"
	}
	return d.ImageURI(name+"."+icontype, "iconsdir")
}

// ImageURI returns the URI of an image target. With data-uri set (and
// below secure mode) local images are embedded as base64 data URIs;
// unreadable images become an empty data URI.
func (d *Document) ImageURI(target, assetDirKey string) string {
	if assetDirKey == "" {
		assetDirKey = "imagesdir"
	}
	return d.imageURI(target, d.attributes[assetDirKey])
}

// imageURI resolves target against an explicit asset directory, such as
// the imagesdir captured by an inline image.
func (d *Document) imageURI(target, assetDir string) string {
	if _, ok := d.attributes["data-uri"]; ok && d.safe < SafeModeSecure {
		if isURI(target) || (isURI(assetDir) && !filepath.IsAbs(target)) {
			return fileutil.WebPath(target, assetDir)
		}
		return d.dataURI(target, assetDir)
	}
	if isURI(target) {
		return target
	}
	return fileutil.WebPath(target, assetDir)
}

// MediaURI returns the URI of an audio or video target.
func (d *Document) MediaURI(target string) string {
	if isURI(target) {
		return target
	}
	return fileutil.WebPath(target, d.attributes["imagesdir"])
}

func (d *Document) dataURI(target, assetDir string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(target), "."))
	mimeType := "image/" + ext
	switch ext {
	case "svg":
		mimeType = "image/svg+xml"
	case "":
		mimeType = "application/octet-stream"
	default:
		if t := mime.TypeByExtension("." + ext); t != "" && !strings.HasPrefix(t, "image/jpeg") {
			mimeType = t
		}
	}
	resolved, err := d.resolveSystemPath(target, assetDir)
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "image to embed not readable: %v", err)
		return "data:" + mimeType + ";base64,"
	}
	data, err := os.ReadFile(resolved) // #nosec G304 -- path jailed by safe mode
	if err != nil {
		d.logWarn(SourceLocation{Path: stdinPath}, "image to embed not found or not readable: %s", resolved)
		return "data:" + mimeType + ";base64,"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ReadContents reads a file or, when allow-uri-read is set, a URI. File
// paths resolve against the base directory and honor the safe mode jail.
func (d *Document) ReadContents(target string) (string, error) {
	return d.readContents(target, "")
}

// readContents reads target relative to start, a directory that is itself
// relative to the base directory unless absolute.
func (d *Document) readContents(target, start string) (string, error) {
	if isURI(target) {
		if _, ok := d.attributes["allow-uri-read"]; !ok || d.safe >= SafeModeSecure {
			return "", fmt.Errorf("%w: cannot read %s without allow-uri-read", ErrSecurity, target)
		}
		data, err := d.options.URIReader.ReadURI(target)
		if err != nil {
			return "", err
		}
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
	if start != "" && !isURI(start) && !filepath.IsAbs(start) {
		start = filepath.Join(d.baseDir, start)
	}
	resolved, err := d.resolveSystemPath(target, start)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved) // #nosec G304 -- path jailed by safe mode
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReadSource, target, err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

// resolveSystemPath resolves target against start, jailed to the base
// directory from safe mode up.
func (d *Document) resolveSystemPath(target, start string) (string, error) {
	jail := ""
	if d.safe >= SafeModeSafe {
		jail = d.baseDir
	}
	if start == "" {
		start = d.baseDir
	}
	resolved, err := fileutil.SystemPath(target, start, jail)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecurity, err)
	}
	return resolved, nil
}

func (d *Document) relativePath(p string) string {
	return fileutil.RelativeTo(p, d.baseDir)
}

func (d *Document) maxIncludeDepth() int {
	if n, err := strconv.Atoi(d.attributes["max-include-depth"]); err == nil {
		return n
	}
	return 64
}

// registerRef records an id, generating a unique variant on conflicts.
func (d *Document) registerRef(id string, node Node) {
	if !d.catalog.registerRef(id, node) {
		d.logWarn(SourceLocation{Path: stdinPath}, "id assigned to block already in use: %s", id)
	}
}

// uniqueID appends _2, _3, ... until id is not registered.
func (d *Document) uniqueID(id string) string {
	if _, taken := d.catalog.Refs[id]; !taken {
		return id
	}
	sep := d.attributes["idseparator"]
	for n := 2; ; n++ {
		candidate := id + sep + strconv.Itoa(n)
		if _, taken := d.catalog.Refs[candidate]; !taken {
			return candidate
		}
	}
}

// recordError keeps the first error raised while converting.
func (d *Document) recordError(err error) {
	if err == nil {
		return
	}
	root := d
	for root.parentDocument != nil {
		root = root.parentDocument
	}
	if root.convertErr == nil {
		root.convertErr = err
	}
}

func (d *Document) logEvent(ev *zerolog.Event, loc SourceLocation, format string, args ...any) {
	if loc.Path == "" {
		loc.Path = stdinPath
	}
	ev = ev.Str("source", loc.Path)
	if loc.LineNumber > 0 {
		ev = ev.Int("line", loc.LineNumber)
	}
	ev.Msgf(format, args...)
}

func (d *Document) logDebug(loc SourceLocation, format string, args ...any) {
	d.logEvent(d.logger.Debug(), loc, format, args...)
}

func (d *Document) logInfo(loc SourceLocation, format string, args ...any) {
	d.logEvent(d.logger.Info(), loc, format, args...)
}

func (d *Document) logWarn(loc SourceLocation, format string, args ...any) {
	d.logEvent(d.logger.Warn(), loc, format, args...)
}

func (d *Document) logError(loc SourceLocation, format string, args ...any) {
	d.logEvent(d.logger.Error(), loc, format, args...)
}
