package adoc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLineRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec string
		want []int
	}{
		{"1", []int{1}},
		{"1,3..5", []int{1, 3, 4, 5}},
		{"1;3-5", []int{1, 3, 4, 5}},
		{"4,2,2", []int{2, 4}},
		{"x,2..y,7", []int{7}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, parseLineRanges(tt.spec)); diff != "" {
				t.Errorf("parseLineRanges(%q) mismatch (-want +got):\n%s", tt.spec, diff)
			}
		})
	}
}

const rubySource = "[source,ruby]\n----\nputs 'hi'\n----"

func TestClientSideHighlighters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		selector string
		footer   string
	}{
		{
			name:     "highlight.js",
			selector: `pre.highlightjs.highlight > code.language-ruby.hljs[data-lang="ruby"]`,
			footer:   "highlight.min.js",
		},
		{
			name:     "prettify",
			selector: `pre.prettyprint.highlight > code.language-ruby[data-lang="ruby"]`,
			footer:   "prettify.min.js",
		},
		{
			name:     "html-pipeline",
			selector: `pre[lang="ruby"] > code`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := mustConvert(t, rubySource, WithAttribute("source-highlighter", tt.name), WithStandalone(true))
			doc := mustQuery(t, out)
			if doc.Find(tt.selector).Length() != 1 {
				t.Errorf("no match for %q in:\n%s", tt.selector, out)
			}
			if tt.footer != "" && !strings.Contains(out, tt.footer) {
				t.Errorf("output is missing the %s script", tt.footer)
			}
		})
	}
}

func TestChromaOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs string
		want  string
	}{
		{name: "table line numbers", attrs: "linenums", want: `class="lntable"`},
		{name: "highlighted lines", attrs: "highlight=3", want: `<span class="line hl"><span class="cl"><span class="kd">func</span>`},
		{name: "plain lines", attrs: "highlight=9", want: `<span class="line"><span class="cl"><span class="kn">package</span>`},
		{name: "nowrap option", attrs: "options=nowrap", want: `class="chroma highlight nowrap"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := "[source,go," + tt.attrs + "]\n----\npackage main\n\nfunc main() {}\n----"
			out := mustConvert(t, src, WithAttribute("source-highlighter", "chroma"))
			if !strings.Contains(out, tt.want) {
				t.Errorf("Convert() = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestChroma_InlineCSS(t *testing.T) {
	t.Parallel()
	src := ":source-highlighter: chroma\n:chroma-css: inline\n\n" + strings.Replace(rubySource, "ruby", "go", 1)
	out := mustConvert(t, src, WithSafeMode(SafeModeSafe), WithStandalone(true))
	doc := mustQuery(t, out)

	if doc.Find("pre.chroma span[style]").Length() == 0 {
		t.Errorf("inline mode should style tokens directly:\n%s", out)
	}
	if strings.Contains(doc.Find("head style").Text(), ".chroma .") {
		t.Error("inline mode should not add the class stylesheet")
	}
}

func TestChroma_Callouts(t *testing.T) {
	t.Parallel()
	src := "[source,ruby,highlight=1]\n----\nputs 1 # <1>\nputs 2\n----\n<1> Prints one."
	out := mustConvert(t, src, WithAttribute("source-highlighter", "chroma"))
	line := mustQuery(t, out).Find("pre.chroma > code > span.line.hl")

	if line.Length() != 1 {
		t.Fatalf("highlighted lines = %d, want 1 in:\n%s", line.Length(), out)
	}
	if got := line.Find("b.conum").Text(); got != "(1)" {
		t.Errorf("callout in highlighted line = %q, want %q", got, "(1)")
	}
	if strings.Contains(line.Text(), "<1>") {
		t.Errorf("callout source marker left in code: %q", line.Text())
	}
}

type upperAdapter struct{}

func (upperAdapter) Format(node *Block, lang string, _ HighlightOptions) string {
	return `<pre class="upper">` + strings.ToUpper(node.Content()) + "</pre>"
}

func TestRegisterSyntaxHighlighter(t *testing.T) {
	t.Parallel()
	const name = "upper-test"
	RegisterSyntaxHighlighter(func(string, string, *Document) SyntaxHighlighter { return upperAdapter{} }, name)
	t.Cleanup(func() { UnregisterSyntaxHighlighter(name) })

	if SyntaxHighlighterFor(name) == nil {
		t.Fatalf("SyntaxHighlighterFor(%q) = nil after Register", name)
	}
	out := mustConvert(t, rubySource, WithAttribute("source-highlighter", name))
	if got := mustQuery(t, out).Find("pre.upper").Text(); got != "PUTS 'HI'" {
		t.Errorf("pre.upper = %q, want %q", got, "PUTS 'HI'")
	}

	UnregisterSyntaxHighlighter(name)
	if SyntaxHighlighterFor(name) != nil {
		t.Errorf("SyntaxHighlighterFor(%q) != nil after Unregister", name)
	}
}
