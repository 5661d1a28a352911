package adoc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// quietLogger discards diagnostics.
var quietLogger = zerolog.Nop()

func mustQuery(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	return doc
}

func mustLoad(t *testing.T, source string, opts ...Option) *Document {
	t.Helper()
	doc, err := Load(source, append([]Option{WithLogger(quietLogger)}, opts...)...)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return doc
}

func mustConvert(t *testing.T, source string, opts ...Option) string {
	t.Helper()
	out, err := Convert(source, append([]Option{WithLogger(quietLogger)}, opts...)...)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return out
}

func TestConvert_SectionID(t *testing.T) {
	t.Parallel()
	out := mustConvert(t, "== Test")
	h2 := mustQuery(t, out).Find("div.sect1 > h2")
	if id, _ := h2.Attr("id"); id != "_test" {
		t.Errorf("h2 id = %q, want %q", id, "_test")
	}
	if got := h2.Text(); got != "Test" {
		t.Errorf("h2 text = %q, want %q", got, "Test")
	}
}

func TestConvert_Standalone(t *testing.T) {
	t.Parallel()
	src := "= Doc Title\n\ncontent"

	embedded := mustConvert(t, src)
	if strings.Contains(embedded, "<html") {
		t.Errorf("Convert() is standalone by default: %.80q", embedded)
	}

	full := mustConvert(t, src, WithStandalone(true))
	doc := mustQuery(t, full)
	if got := doc.Find("head > title").Text(); got != "Doc Title" {
		t.Errorf("title = %q, want %q", got, "Doc Title")
	}
	if got := doc.Find("#header > h1").Text(); got != "Doc Title" {
		t.Errorf("header h1 = %q, want %q", got, "Doc Title")
	}

	t.Run("document convert overrides load setting", func(t *testing.T) {
		t.Parallel()
		d := mustLoad(t, src)
		out, err := d.Convert(WithStandalone(true))
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if !strings.HasPrefix(out, "<!DOCTYPE html>") {
			t.Errorf("Convert(WithStandalone(true)) = %.40q, want a full page", out)
		}
	})
}

func TestConvert_InlineDoctype(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"paragraph", "*strong* text", "<strong>strong</strong> text"},
		{"compound block", "====\nexample\n====", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mustConvert(t, tt.src, WithDoctype(DoctypeInline)); got != tt.want {
				t.Errorf("Convert() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_InvalidOptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"doctype", []Option{WithDoctype("letter")}, ErrInvalidDoctype},
		{"backend", []Option{WithBackend("docbook5")}, ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load("text", append(tt.opts, WithLogger(quietLogger))...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseSafeMode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    SafeMode
		wantErr bool
	}{
		{"unsafe", SafeModeUnsafe, false},
		{"SAFE", SafeModeSafe, false},
		{"server", SafeModeServer, false},
		{"secure", SafeModeSecure, false},
		{"10", SafeModeServer, false},
		{"paranoid", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSafeMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSafeMode) {
					t.Errorf("ParseSafeMode(%q) error = %v, want ErrInvalidSafeMode", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseSafeMode(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestAttributeOverrides(t *testing.T) {
	t.Parallel()
	src := "= Doc\n:product: Document Value\n:edition: 1\n\n{product} {edition}"
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"document wins over soft", []Option{WithAttribute("product", "API@")}, "Document Value 1"},
		{"hard override wins", []Option{WithAttribute("product", "API")}, "API 1"},
		{"token list", []Option{WithAttributes(`product=Big\ Widget edition=2`)}, "Big Widget 2"},
		{"map", []Option{WithAttributeMap(map[string]any{"edition": 3})}, "Document Value 3"},
		{"unset", []Option{WithAttributes("edition!")}, "Document Value {edition}"},
		{"map nil unsets", []Option{WithAttributeMap(map[string]any{"edition": nil})}, "Document Value {edition}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := mustConvert(t, src, tt.opts...)
			if got := mustQuery(t, out).Find("div.paragraph p").Text(); got != tt.want {
				t.Errorf("paragraph = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttributeMissingPolicy(t *testing.T) {
	t.Parallel()
	src := "before\n\nvalue {nope} here\nsecond line\n\nafter"
	tests := []struct {
		policy string
		want   string
	}{
		{"skip", "value {nope} here\nsecond line"},
		{"drop", "value  here\nsecond line"},
		{"drop-line", "second line"},
		{"warn", "value {nope} here\nsecond line"},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			t.Parallel()
			out := mustConvert(t, src, WithAttribute("attribute-missing", tt.policy))
			got := mustQuery(t, out).Find("div.paragraph p").Eq(1).Text()
			if got != tt.want {
				t.Errorf("paragraph = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		_, err := Convert(src, WithLogger(quietLogger), WithAttribute("attribute-missing", "error"))
		if !errors.Is(err, ErrAttributeMissing) {
			t.Errorf("Convert() error = %v, want ErrAttributeMissing", err)
		}
	})
}

func TestLoad_UnterminatedBlock(t *testing.T) {
	t.Parallel()
	_, err := Load("para\n\n----\nnever closed", WithLogger(quietLogger))
	if !errors.Is(err, ErrUnterminatedBlock) {
		t.Fatalf("Load() error = %v, want ErrUnterminatedBlock", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load() error = %T, want *ParseError", err)
	}
	if perr.Location.LineNumber != 3 {
		t.Errorf("LineNumber = %d, want 3", perr.Location.LineNumber)
	}
}

func TestInclude(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "chapter.adoc", "included *text*\n")
	writeTestFile(t, dir, "tagged.adoc", "skip\n// tag::keep[]\nkept\n// end::keep[]\nskip too\n")

	t.Run("resolves relative to base dir", func(t *testing.T) {
		t.Parallel()
		out := mustConvert(t, "include::chapter.adoc[]", WithSafeMode(SafeModeSafe), WithBaseDir(dir))
		if !strings.Contains(out, "<p>included <strong>text</strong></p>") {
			t.Errorf("Convert() = %q", out)
		}
	})

	t.Run("tags", func(t *testing.T) {
		t.Parallel()
		out := mustConvert(t, "include::tagged.adoc[tag=keep]", WithSafeMode(SafeModeSafe), WithBaseDir(dir))
		if got := mustQuery(t, out).Find("p").Text(); got != "kept" {
			t.Errorf("paragraph = %q, want %q", got, "kept")
		}
	})

	t.Run("missing is fatal", func(t *testing.T) {
		t.Parallel()
		_, err := Convert("include::nope.adoc[]", WithLogger(quietLogger), WithSafeMode(SafeModeSafe), WithBaseDir(dir))
		if !errors.Is(err, ErrIncludeNotFound) {
			t.Errorf("Convert() error = %v, want ErrIncludeNotFound", err)
		}
	})

	t.Run("missing as warning", func(t *testing.T) {
		t.Parallel()
		var logs bytes.Buffer
		out, err := Convert("include::nope.adoc[]",
			WithLogger(zerolog.New(&logs)), WithSafeMode(SafeModeSafe), WithBaseDir(dir),
			WithIncludeMissing(IncludeMissingWarn))
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if !strings.Contains(out, "Unresolved directive") {
			t.Errorf("Convert() = %q, want unresolved directive line", out)
		}
		if !strings.Contains(logs.String(), "include file not found") {
			t.Errorf("logs = %q", logs.String())
		}
	})

	t.Run("optional", func(t *testing.T) {
		t.Parallel()
		out := mustConvert(t, "include::nope.adoc[opts=optional]\n\nafter", WithSafeMode(SafeModeSafe), WithBaseDir(dir))
		if got := mustQuery(t, out).Find("p").Text(); got != "after" {
			t.Errorf("paragraph = %q, want %q", got, "after")
		}
	})

	t.Run("escaping the base dir is a security error", func(t *testing.T) {
		t.Parallel()
		_, err := Convert("include::../outside.adoc[]", WithLogger(quietLogger), WithSafeMode(SafeModeSafe), WithBaseDir(dir))
		if !errors.Is(err, ErrSecurity) {
			t.Errorf("Convert() error = %v, want ErrSecurity", err)
		}
	})

	t.Run("secure mode links instead", func(t *testing.T) {
		t.Parallel()
		out := mustConvert(t, "include::chapter.adoc[]", WithBaseDir(dir))
		a := mustQuery(t, out).Find("a")
		if href, _ := a.Attr("href"); href != "chapter.adoc" {
			t.Errorf("link href = %q, want %q", href, "chapter.adoc")
		}
	})

	t.Run("remote include needs allow-uri-read", func(t *testing.T) {
		t.Parallel()
		_, err := Convert("include::https://example.org/a.adoc[]", WithLogger(quietLogger), WithSafeMode(SafeModeUnsafe))
		if !errors.Is(err, ErrSecurity) {
			t.Errorf("Convert() error = %v, want ErrSecurity", err)
		}
	})
}

type fakeURIReader map[string]string

func (f fakeURIReader) ReadURI(uri string) ([]byte, error) {
	if s, ok := f[uri]; ok {
		return []byte(s), nil
	}
	return nil, os.ErrNotExist
}

func TestInclude_URIReader(t *testing.T) {
	t.Parallel()
	out := mustConvert(t, "include::https://example.org/a.adoc[]",
		WithSafeMode(SafeModeUnsafe),
		WithAttribute("allow-uri-read", ""),
		WithURIReader(fakeURIReader{"https://example.org/a.adoc": "remote text"}))
	if got := mustQuery(t, out).Find("p").Text(); got != "remote text" {
		t.Errorf("paragraph = %q, want %q", got, "remote text")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTestFile(t, dir, "guide.adoc", "= Guide\n\n{docname}{outfilesuffix}\n")

	doc, err := LoadFile(path, WithLogger(quietLogger))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if doc.BaseDir() != dir {
		t.Errorf("BaseDir() = %q, want %q", doc.BaseDir(), dir)
	}
	if doc.Outfilesuffix() != ".html" {
		t.Errorf("Outfilesuffix() = %q, want .html", doc.Outfilesuffix())
	}
	out, err := ConvertFile(path, WithLogger(quietLogger), WithStandalone(false))
	if err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}
	if got := mustQuery(t, out).Find("p").Text(); got != "guide.html" {
		t.Errorf("paragraph = %q, want %q", got, "guide.html")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.adoc")); !errors.Is(err, ErrReadSource) {
		t.Errorf("LoadFile(missing) error = %v, want ErrReadSource", err)
	}
}

func TestWithClock(t *testing.T) {
	t.Parallel()
	clock := func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) }
	doc := mustLoad(t, "text", WithClock(clock))
	if got, _ := doc.Attribute("localdate"); got != "2024-03-09" {
		t.Errorf("localdate = %q, want %q", got, "2024-03-09")
	}
	if got, _ := doc.Attribute("localyear"); got != "2024" {
		t.Errorf("localyear = %q, want %q", got, "2024")
	}
}

func TestWithParse(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "line one\nline two", WithParse(false))
	if len(doc.Blocks()) != 0 {
		t.Errorf("Blocks() = %d, want 0", len(doc.Blocks()))
	}
	if got := doc.Reader().Lines(); len(got) != 2 || got[0] != "line one" {
		t.Errorf("Reader().Lines() = %q", got)
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
