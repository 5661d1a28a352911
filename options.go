package adoc

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Doctype constants.
const (
	DoctypeArticle = "article"
	DoctypeBook    = "book"
	DoctypeManpage = "manpage"
	DoctypeInline  = "inline"
)

// Backend constants.
const (
	BackendHTML5  = "html5"
	BackendXHTML5 = "xhtml5"
)

// IncludeMissingPolicy decides what happens when an include target cannot be read.
type IncludeMissingPolicy int

const (
	// IncludeMissingError aborts loading with ErrIncludeNotFound.
	IncludeMissingError IncludeMissingPolicy = iota
	// IncludeMissingWarn logs a warning and leaves an unresolved directive line.
	IncludeMissingWarn
)

// URIReader fetches remote content for includes and readContents.
type URIReader interface {
	ReadURI(uri string) ([]byte, error)
}

// defaultURITimeout bounds remote reads made by the default URIReader.
const defaultURITimeout = 30 * time.Second

type httpURIReader struct {
	client *http.Client
}

func (r *httpURIReader) ReadURI(uri string) ([]byte, error) {
	resp, err := r.client.Get(uri) // #nosec G107 -- gated by allow-uri-read
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURIRead, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnsupportedURIRead, uri, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// attributeOverride is one API-supplied attribute. Hard overrides lock the
// attribute against changes from the document; soft ones act as defaults.
type attributeOverride struct {
	name  string
	value string
	unset bool
	soft  bool
}

// Options holds the load and convert settings of a document.
// Build it with the With* functional options.
type Options struct {
	SafeMode       SafeMode
	Doctype        string
	Backend        string
	BaseDir        string
	Standalone     bool
	Sourcemap      bool
	Parse          bool
	CatalogAssets  bool
	IncludeMissing IncludeMissingPolicy

	Registry         *Registry
	Extensions       *Extensions
	ConverterFactory *ConverterFactory
	Converter        Converter
	URIReader        URIReader
	Logger           zerolog.Logger
	Clock            func() time.Time

	attributes []attributeOverride
	docfile    string
	parent     *Document
	standalone *bool
}

// Option configures a document load or conversion.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		SafeMode: SafeModeSecure,
		Parse:    true,
		Logger:   DefaultLogger,
		Clock:    time.Now,
	}
}

func buildOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.standalone != nil {
		o.Standalone = *o.standalone
	}
	if o.URIReader == nil {
		o.URIReader = &httpURIReader{client: &http.Client{Timeout: defaultURITimeout}}
	}
	return o
}

// DefaultLogger receives diagnostics of documents loaded without WithLogger.
var DefaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
	Level(zerolog.WarnLevel).With().Timestamp().Logger()

// WithSafeMode sets the safe mode. The API default is SafeModeSecure.
func WithSafeMode(m SafeMode) Option {
	return func(o *Options) { o.SafeMode = m }
}

// WithDoctype sets the doctype (article, book, manpage, inline).
func WithDoctype(doctype string) Option {
	return func(o *Options) { o.Doctype = doctype }
}

// WithBackend sets the backend used for conversion.
func WithBackend(backend string) Option {
	return func(o *Options) { o.Backend = backend }
}

// WithBaseDir sets the directory includes and assets resolve against and
// the jail enforced by safe modes.
func WithBaseDir(dir string) Option {
	return func(o *Options) { o.BaseDir = dir }
}

// WithStandalone wraps the output in a full HTML page.
func WithStandalone(standalone bool) Option {
	return func(o *Options) { o.standalone = &standalone }
}

// WithSourcemap records source locations on blocks.
func WithSourcemap(enabled bool) Option {
	return func(o *Options) { o.Sourcemap = enabled }
}

// WithParse(false) stops after reading the source; the document keeps its
// reader and has no blocks.
func WithParse(parse bool) Option {
	return func(o *Options) { o.Parse = parse }
}

// WithCatalogAssets records links and images in the document catalog.
func WithCatalogAssets(enabled bool) Option {
	return func(o *Options) { o.CatalogAssets = enabled }
}

// WithIncludeMissing selects how unreadable include targets are handled.
func WithIncludeMissing(p IncludeMissingPolicy) Option {
	return func(o *Options) { o.IncludeMissing = p }
}

// WithExtensionRegistry uses r for this document only, ignoring global groups.
func WithExtensionRegistry(r *Registry) Option {
	return func(o *Options) { o.Registry = r }
}

// WithExtensions activates the groups of e instead of DefaultExtensions.
func WithExtensions(e *Extensions) Option {
	return func(o *Options) { o.Extensions = e }
}

// WithConverterFactory resolves backends through f.
func WithConverterFactory(f *ConverterFactory) Option {
	return func(o *Options) { o.ConverterFactory = f }
}

// WithConverter bypasses backend lookup.
func WithConverter(c Converter) Option {
	return func(o *Options) { o.Converter = c }
}

// WithURIReader replaces the HTTP client used for remote reads.
func WithURIReader(r URIReader) Option {
	return func(o *Options) { o.URIReader = r }
}

// WithLogger sends diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithClock sets the time source for the local* date attributes.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Clock = now }
}

// WithAttribute sets a single attribute override. A trailing "@" on the
// value makes it a soft default the document may replace.
func WithAttribute(name, value string) Option {
	return func(o *Options) {
		o.attributes = append(o.attributes, parseOverride(name, value, true))
	}
}

// WithAttributes parses a space-separated list of attribute tokens:
// "name", "name=value", "name=value@" (soft), "name!" or "!name" (unset).
// Spaces inside values are escaped with a backslash.
func WithAttributes(list string) Option {
	return func(o *Options) {
		for _, tok := range splitAttributeTokens(list) {
			name, value, hasValue := strings.Cut(tok, "=")
			o.attributes = append(o.attributes, parseOverride(name, value, hasValue))
		}
	}
}

// WithAttributeMap sets overrides from a map. A nil or false value unsets
// the attribute, true sets it to the empty string, numbers are formatted
// in decimal, and strings follow the WithAttribute rules.
func WithAttributeMap(attrs map[string]any) Option {
	return func(o *Options) {
		for _, name := range sortedKeys(attrs) {
			switch v := attrs[name].(type) {
			case nil:
				o.attributes = append(o.attributes, attributeOverride{name: strings.ToLower(name), unset: true})
			case bool:
				if v {
					o.attributes = append(o.attributes, attributeOverride{name: strings.ToLower(name)})
				} else {
					o.attributes = append(o.attributes, attributeOverride{name: strings.ToLower(name), unset: true})
				}
			case string:
				o.attributes = append(o.attributes, parseOverride(name, v, true))
			case int:
				o.attributes = append(o.attributes, attributeOverride{name: strings.ToLower(name), value: strconv.Itoa(v)})
			case float64:
				o.attributes = append(o.attributes, attributeOverride{name: strings.ToLower(name), value: strconv.FormatFloat(v, 'f', -1, 64)})
			default:
				o.attributes = append(o.attributes, attributeOverride{name: strings.ToLower(name), value: fmt.Sprint(v)})
			}
		}
	}
}

func parseOverride(name, value string, hasValue bool) attributeOverride {
	ov := attributeOverride{}
	if !hasValue {
		if strings.HasSuffix(name, "@") {
			ov.soft = true
			name = strings.TrimSuffix(name, "@")
		}
		switch {
		case strings.HasSuffix(name, "!"):
			ov.unset = true
			name = strings.TrimSuffix(name, "!")
		case strings.HasPrefix(name, "!"):
			ov.unset = true
			name = strings.TrimPrefix(name, "!")
		}
		ov.name = strings.ToLower(strings.TrimSpace(name))
		return ov
	}
	if strings.HasSuffix(value, "@") {
		ov.soft = true
		value = strings.TrimSuffix(value, "@")
	}
	ov.name = strings.ToLower(strings.TrimSpace(name))
	ov.value = value
	return ov
}

func splitAttributeTokens(list string) []string {
	var tokens []string
	var cur strings.Builder
	escaped := false
	for _, r := range list {
		switch {
		case escaped:
			if r != ' ' {
				cur.WriteByte('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ' || r == '\t' || r == '\n':
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
