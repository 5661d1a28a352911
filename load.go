package adoc

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-adoc/internal/dateutil"
)

// Load parses source into a document.
func Load(source string, opts ...Option) (*Document, error) {
	return load(splitLines(source), buildOptions(opts))
}

// LoadFile reads and parses the file at path. The file's directory becomes
// the base directory unless WithBaseDir is given.
func LoadFile(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- caller-supplied input file
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadSource, path, err)
	}
	o := buildOptions(opts)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	o.docfile = abs
	if o.BaseDir == "" {
		o.BaseDir = filepath.Dir(abs)
	}
	return load(splitLines(string(data)), o)
}

// Convert loads source and converts it. Output is embedded unless
// WithStandalone(true) is given.
func Convert(source string, opts ...Option) (string, error) {
	doc, err := Load(source, opts...)
	if err != nil {
		return "", err
	}
	return doc.Convert()
}

// ConvertFile loads and converts the file at path. Output is standalone
// unless WithStandalone(false) is given.
func ConvertFile(path string, opts ...Option) (string, error) {
	doc, err := LoadFile(path, append([]Option{WithStandalone(true)}, opts...)...)
	if err != nil {
		return "", err
	}
	return doc.Convert()
}

func load(lines []string, o Options) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	d := newDocument(lines, o)
	if err := d.resolveBaseDir(); err != nil {
		return nil, err
	}
	if err := d.initAttributes(); err != nil {
		return nil, err
	}
	d.initExtensions()

	d.reader = newFileReader(lines, o.docfile, d.baseDir)
	d.reader.doc = d
	if err := d.runPreprocessors(); err != nil {
		return nil, err
	}

	if o.Parse {
		if err := parseDocument(d); err != nil {
			return nil, err
		}
		if d.reader.err != nil {
			return nil, d.reader.err
		}
	} else {
		d.initSyntaxHighlighter()
	}
	if err := d.initConverter(); err != nil {
		return nil, err
	}
	if o.Parse {
		return d.runTreeProcessors()
	}
	return d, nil
}

func (d *Document) resolveBaseDir() error {
	dir := d.options.BaseDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("%w: resolving working directory: %v", ErrReadSource, err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReadSource, dir, err)
	}
	d.baseDir = abs
	return nil
}

// attributeDefaults are the attributes every document starts with.
var attributeDefaults = map[string]string{
	"attribute-missing":   "skip",
	"attribute-undefined": "drop-line",
	"appendix-caption":    "Appendix",
	"appendix-refsig":     "Appendix",
	"caution-caption":     "Caution",
	"chapter-refsig":      "Chapter",
	"example-caption":     "Example",
	"figure-caption":      "Figure",
	"iconfont-remote":     "",
	"iconsdir":            "./images/icons",
	"idprefix":            "_",
	"idseparator":         "_",
	"important-caption":   "Important",
	"last-update-label":   "Last updated",
	"max-include-depth":   "64",
	"note-caption":        "Note",
	"part-refsig":         "Part",
	"prewrap":             "",
	"section-refsig":      "Section",
	"sectids":             "",
	"stylesheet":          "",
	"stylesdir":           ".",
	"table-caption":       "Table",
	"tip-caption":         "Tip",
	"toc-placement":       "auto",
	"toc-title":           "Table of Contents",
	"untitled-label":      "Untitled",
	"version-label":       "Version",
	"warning-caption":     "Warning",
}

var validDoctypes = map[string]bool{
	DoctypeArticle: true,
	DoctypeBook:    true,
	DoctypeManpage: true,
	DoctypeInline:  true,
}

func (d *Document) initAttributes() error {
	o := d.options
	attrs := d.attributes
	for k, v := range attributeDefaults {
		attrs[k] = v
	}
	attrs["adoc"] = ""
	attrs["adoc-version"] = Version

	safeName := d.safe.String()
	d.lock("safe-mode-name", safeName)
	d.lock("safe-mode-"+safeName, "")
	d.lock("safe-mode-level", strconv.Itoa(int(d.safe)))

	if o.Doctype != "" {
		if !validDoctypes[o.Doctype] {
			return fmt.Errorf("%w: %q", ErrInvalidDoctype, o.Doctype)
		}
		d.lock("doctype", o.Doctype)
	}
	if o.Backend != "" {
		name, xml := normalizeBackend(o.Backend)
		d.lock("backend", name)
		if xml {
			attrs["htmlsyntax"] = "xml"
		}
	}
	if o.Standalone {
		delete(attrs, "embedded")
	} else {
		d.lock("embedded", "")
	}

	for _, ov := range o.attributes {
		switch {
		case ov.soft && ov.unset:
			delete(attrs, ov.name)
		case ov.soft:
			attrs[ov.name] = ov.value
		case ov.unset:
			delete(attrs, ov.name)
			d.locked[ov.name] = true
		default:
			attrs[ov.name] = ov.value
			d.locked[ov.name] = true
		}
	}
	d.restrictAttributes()
	if v, ok := attrs["backend"]; ok {
		name, xml := normalizeBackend(v)
		attrs["backend"] = name
		if xml {
			attrs["htmlsyntax"] = "xml"
		}
	}
	if _, ok := attrs["htmlsyntax"]; !ok {
		attrs["htmlsyntax"] = "html"
	}
	if _, ok := attrs["doctype"]; !ok {
		attrs["doctype"] = DoctypeArticle
	}
	if _, ok := attrs["backend"]; !ok {
		attrs["backend"] = BackendHTML5
	}

	if o.docfile != "" {
		dir := filepath.Dir(o.docfile)
		ext := filepath.Ext(o.docfile)
		d.softSet("docfile", o.docfile)
		d.softSet("docdir", dir)
		if d.safe >= SafeModeServer {
			attrs["docfile"] = filepath.Base(o.docfile)
			attrs["docdir"] = ""
		}
		d.softSet("docname", strings.TrimSuffix(filepath.Base(o.docfile), ext))
		d.softSet("docfilesuffix", ext)
	} else {
		d.softSet("docdir", d.baseDir)
		if d.safe >= SafeModeServer {
			attrs["docdir"] = ""
		}
	}
	if d.safe < SafeModeServer {
		if home, err := os.UserHomeDir(); err == nil {
			d.softSet("user-home", home)
		}
	} else {
		d.softSet("user-home", ".")
	}

	d.initDates()
	d.updateDerivedAttributes()
	return nil
}

// restrictAttributes keeps documents from enabling features the safe mode
// forbids. Values given through load options still win.
func (d *Document) restrictAttributes() {
	overridden := map[string]bool{}
	for _, ov := range d.options.attributes {
		overridden[ov.name] = true
	}
	lockUnset := func(name string) {
		if !overridden[name] {
			delete(d.attributes, name)
			d.locked[name] = true
		}
	}
	if d.safe >= SafeModeServer {
		lockUnset("copycss")
		lockUnset("source-highlighter")
	}
	if d.safe >= SafeModeSecure {
		if !overridden["linkcss"] {
			d.lock("linkcss", "")
		}
		lockUnset("icons")
	}
}

// lock sets an attribute that the document cannot change.
func (d *Document) lock(name, value string) {
	d.attributes[name] = value
	d.locked[name] = true
}

// softSet sets name unless an override already provided a value.
func (d *Document) softSet(name, value string) {
	if _, ok := d.attributes[name]; ok || d.locked[name] {
		return
	}
	d.attributes[name] = value
}

// initDates captures the date attributes once. SOURCE_DATE_EPOCH pins both
// the local and the document time.
func (d *Document) initDates() {
	clock := d.options.Clock
	if clock == nil {
		clock = time.Now
	}
	local := clock()
	docTime := local
	if d.options.docfile != "" {
		if info, err := os.Stat(d.options.docfile); err == nil {
			docTime = info.ModTime()
		}
	}
	epoch, ok, err := dateutil.SourceDateEpoch(os.Getenv)
	switch {
	case err != nil:
		d.logWarn(SourceLocation{}, "%v", err)
	case ok:
		local, docTime = epoch, epoch
	}
	d.docTime = docTime

	ls, ds := dateutil.NewStamp(local), dateutil.NewStamp(docTime)
	d.softSet("localdate", ls.Date)
	d.softSet("localtime", ls.Time)
	d.softSet("localdatetime", ls.DateTime)
	d.softSet("localyear", ls.Year)
	d.softSet("docdate", ds.Date)
	d.softSet("doctime", ds.Time)
	d.softSet("docdatetime", ds.DateTime)
	d.softSet("docyear", ds.Year)
}

// resolveRevdate expands "auto" revision dates against the document time.
func (d *Document) resolveRevdate(value string) string {
	t := d.docTime
	if t.IsZero() {
		t = time.Now()
	}
	out, err := dateutil.ResolveRevdate(value, t)
	if err != nil {
		d.logWarn(SourceLocation{}, "%v", err)
		return value
	}
	return out
}

// normalizeBackend maps backend aliases to their converter name. The
// boolean reports whether XML syntax was requested (xhtml, xhtml5).
func normalizeBackend(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "html", "":
		return BackendHTML5, false
	case "xhtml", BackendXHTML5:
		return BackendHTML5, true
	}
	return name, false
}

// updateDerivedAttributes recomputes the attributes derived from the
// backend and doctype.
func (d *Document) updateDerivedAttributes() {
	attrs := d.attributes
	for _, k := range d.derived {
		if !d.locked[k] {
			delete(attrs, k)
		}
	}
	d.derived = d.derived[:0]
	set := func(k, v string) {
		if d.locked[k] {
			return
		}
		attrs[k] = v
		d.derived = append(d.derived, k)
	}
	backend := d.Backend()
	doctype := d.Doctype()
	base := backend
	if strings.HasPrefix(backend, "html") {
		base = "html"
	}
	set("backend-"+backend, "")
	set("backend-"+backend+"-doctype-"+doctype, "")
	set("basebackend", base)
	set("basebackend-"+base, "")
	set("basebackend-"+base+"-doctype-"+doctype, "")
	set("doctype-"+doctype, "")
	set("filetype", base)
	set("filetype-"+base, "")
	if _, ok := attrs["outfilesuffix"]; !ok || containsString(d.derived, "outfilesuffix") {
		set("outfilesuffix", "."+base)
	}
}

func (d *Document) initExtensions() {
	o := d.options
	if o.Registry != nil {
		d.extensions = o.Registry
		d.extensions.activate(d)
		return
	}
	e := o.Extensions
	if e == nil {
		e = DefaultExtensions
	}
	if r := e.newRegistry(); r != nil {
		d.extensions = r
		d.extensions.activate(d)
	}
}

func (d *Document) runPreprocessors() error {
	if d.extensions == nil {
		return nil
	}
	for _, ext := range d.extensions.preprocessors() {
		r, err := ext.processor.(Preprocessor).Process(d, d.reader)
		if err != nil {
			return fmt.Errorf("%w: preprocessor %s: %v", ErrExtension, ext.name, err)
		}
		if r != nil && r != d.reader {
			if r.doc == nil {
				r.doc = d
			}
			d.reader = r
		}
	}
	return nil
}

func (d *Document) runTreeProcessors() (*Document, error) {
	if d.extensions == nil {
		return d, nil
	}
	doc := d
	for _, ext := range d.extensions.treeProcessors() {
		out, err := ext.processor.(TreeProcessor).Process(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: tree processor %s: %v", ErrExtension, ext.name, err)
		}
		if out != nil {
			doc = out
		}
	}
	return doc, nil
}

func (d *Document) initConverter() error {
	if d.converter != nil {
		return nil
	}
	if d.options.Converter != nil {
		d.converter = d.options.Converter
		return nil
	}
	f := d.options.ConverterFactory
	if f == nil {
		f = DefaultConverterFactory()
	}
	c, err := f.Create(d.Backend(), ConverterOptions{
		Document:   d,
		HTMLSyntax: d.attributes["htmlsyntax"],
	})
	if err != nil {
		return err
	}
	d.converter = c
	return nil
}

// Convert renders the document. WithStandalone overrides the mode chosen at
// load time; other options are ignored.
func (d *Document) Convert(opts ...Option) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.standalone != nil {
		d.locked["embedded"] = false
		if *o.standalone {
			delete(d.attributes, "embedded")
		} else {
			d.attributes["embedded"] = ""
		}
		d.locked["embedded"] = true
	}
	if err := d.initConverter(); err != nil {
		return "", err
	}

	// body attribute entries are replayed during conversion
	saved := maps.Clone(d.attributes)
	defer func() { d.attributes = saved }()

	d.catalog.Footnotes = nil
	delete(d.counters, "footnote-number")
	delete(d.attributes, "footnote-number")
	d.convertErr = nil

	if d.Doctype() == DoctypeInline {
		out = d.inlineContent()
	} else {
		transform := "document"
		if d.Embedded() {
			transform = "embedded"
		}
		if out, err = d.convertNode(d, transform); err != nil {
			return "", err
		}
	}
	if d.convertErr != nil {
		return "", d.convertErr
	}
	return d.runPostprocessors(out)
}

// inlineContent renders the first block of an inline document without its
// wrapping markup. Compound blocks render as the empty string.
func (d *Document) inlineContent() string {
	if len(d.blocks) == 0 {
		if d.header {
			return d.HeaderTitle()
		}
		return ""
	}
	first, ok := d.blocks[0].(BlockNode)
	if !ok || first.ContentModel() == ContentCompound || first.ContentModel() == ContentEmpty {
		return ""
	}
	return first.Content()
}

func (d *Document) runPostprocessors(out string) (string, error) {
	if d.extensions == nil {
		return out, nil
	}
	for _, ext := range d.extensions.postprocessors() {
		res, err := ext.processor.(Postprocessor).Process(d, out)
		if err != nil {
			return "", fmt.Errorf("%w: postprocessor %s: %v", ErrExtension, ext.name, err)
		}
		out = res
	}
	return out, nil
}

// convertNode renders node through the document converter. An empty
// transform uses the node name.
func (d *Document) convertNode(node Node, transform string) (string, error) {
	if transform == "" {
		transform = node.NodeName()
	}
	if b, ok := node.(BlockNode); ok && node != Node(d) {
		d.playbackAttributes(b.block().entries)
	}
	c := d.converter
	if c == nil && d.parentDocument != nil {
		c = d.parentDocument.converter
	}
	if c == nil {
		if err := d.initConverter(); err != nil {
			return "", err
		}
		c = d.converter
	}
	out, err := c.Convert(node, transform)
	if err != nil {
		d.recordError(err)
	}
	return out, err
}

// convertChildren converts nodes in order and joins the results with newlines.
func (d *Document) convertChildren(nodes []Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out, err := d.convertNode(n, "")
		if err != nil {
			continue
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, "\n")
}
