package adoc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDocument_AttributeAccessors(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "text")

	doc.SetAttribute("product", "Widget")
	if got, ok := doc.Attribute("product"); !ok || got != "Widget" {
		t.Errorf("Attribute(product) = %q, %v, want Widget, true", got, ok)
	}
	if !doc.IsAttribute("product", "Widget") || doc.IsAttribute("product", "Gadget") {
		t.Error("IsAttribute() does not compare the value")
	}

	prev, ok := doc.RemoveAttribute("product")
	if !ok || prev != "Widget" {
		t.Errorf("RemoveAttribute() = %q, %v, want Widget, true", prev, ok)
	}
	if _, ok := doc.RemoveAttribute("product"); ok {
		t.Error("second RemoveAttribute() reported a value")
	}
	if doc.IsAttribute("product") {
		t.Error("IsAttribute() = true after removal")
	}
}

func TestDocument_LockedAttribute(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, ":product: Doc\n\n{product}", WithAttribute("product", "API"))
	if !doc.IsAttributeLocked("product") {
		t.Fatal("IsAttributeLocked() = false for an API override")
	}
	doc.SetAttribute("product", "Changed")
	if got, _ := doc.Attribute("product"); got != "API" {
		t.Errorf("Attribute(product) = %q, want API", got)
	}
}

func TestBlock_AttributeAccessors(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "[role=lead]\ntext")
	b := doc.Blocks()[0]

	b.SetAttribute("data", "1")
	if got, _ := b.Attribute("data"); got != "1" {
		t.Errorf("Attribute(data) = %q, want 1", got)
	}
	if !b.HasRole("lead") {
		t.Error("HasRole(lead) = false")
	}
	if prev, ok := b.RemoveAttribute("data"); !ok || prev != "1" {
		t.Errorf("RemoveAttribute() = %q, %v", prev, ok)
	}
	if _, ok := b.RemoveAttribute("data"); ok {
		t.Error("second RemoveAttribute() reported a value")
	}
}

func TestSourcemap(t *testing.T) {
	t.Parallel()
	src := "first\n\n====\nnested\n====\n\n* item"

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		doc := mustLoad(t, src)
		for _, n := range FindBy(doc, Selector{}, nil) {
			if b, ok := n.(BlockNode); ok && b.SourceLocation() != nil {
				t.Errorf("%s has a source location without sourcemap", n.Context())
			}
		}
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		doc := mustLoad(t, src, WithSourcemap(true))
		want := map[string]int{ContextParagraph: 1, ContextExample: 3, ContextUlist: 7}
		for _, b := range doc.Blocks() {
			bn := b.(BlockNode)
			if got := bn.SourceLocation().LineNumber; got != want[b.Context()] {
				t.Errorf("%s line = %d, want %d", b.Context(), got, want[b.Context()])
			}
		}
		inner := doc.Blocks()[1].(BlockNode).Blocks()[0].(BlockNode)
		if got := inner.SourceLocation().LineNumber; got != 4 {
			t.Errorf("nested paragraph line = %d, want 4", got)
		}
	})
}

func TestAuthors(t *testing.T) {
	t.Parallel()
	fromLine := mustLoad(t, "= Doc\nDavid Heinemeier Hansson <david@example.com>\n\ntext")
	fromAttrs := mustLoad(t, "= Doc\n:author_1: David Heinemeier Hansson\n:email_1: david@example.com\n\ntext")

	want := Author{
		Name:       "David Heinemeier Hansson",
		FirstName:  "David",
		MiddleName: "Heinemeier",
		LastName:   "Hansson",
		Initials:   "DHH",
		Email:      "david@example.com",
	}
	for name, doc := range map[string]*Document{"author line": fromLine, "attributes": fromAttrs} {
		authors := doc.Authors()
		if len(authors) != 1 {
			t.Fatalf("%s: Authors() = %d entries, want 1", name, len(authors))
		}
		if diff := cmp.Diff(want, authors[0]); diff != "" {
			t.Errorf("%s: author mismatch (-want +got):\n%s", name, diff)
		}
		if got, _ := doc.Attribute("authorinitials"); got != "DHH" {
			t.Errorf("%s: authorinitials = %q, want DHH", name, got)
		}
	}

	t.Run("multiple authors", func(t *testing.T) {
		t.Parallel()
		doc := mustLoad(t, "= Doc\nAnn Lee; Bob_Ray Smith <bob@example.com>\n\ntext")
		if got, _ := doc.Attribute("authors"); got != "Ann Lee, Bob Ray Smith" {
			t.Errorf("authors = %q", got)
		}
		if got, _ := doc.Attribute("email_2"); got != "bob@example.com" {
			t.Errorf("email_2 = %q", got)
		}
		if got, _ := doc.Attribute("authorcount"); got != "2" {
			t.Errorf("authorcount = %q, want 2", got)
		}
	})
}

func TestAppendixNumerals(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "= Doc\n\n== Intro\n\n== Usage\n\n[appendix]\n== First\n\n[appendix]\n== Second\n\n[appendix]\n== Third")
	var numerals []string
	for _, s := range doc.Sections() {
		if s.SectionName() == "appendix" {
			numerals = append(numerals, s.Numeral())
		}
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, numerals); diff != "" {
		t.Errorf("appendix numerals mismatch (-want +got):\n%s", diff)
	}

	first := doc.Sections()[2]
	first.SetNumeral("Z")
	if first.Numeral() != "Z" {
		t.Errorf("Numeral() = %q after SetNumeral, want Z", first.Numeral())
	}
}

func TestSectnumsToggle(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, ":sectnums!:\n\n== One\n\n:sectnums:\n\n== Two")
	sections := doc.Sections()
	if len(sections) != 2 {
		t.Fatalf("Sections() = %d, want 2", len(sections))
	}
	if sections[0].Numbered() {
		t.Error("first section numbered, want unnumbered")
	}
	if !sections[1].Numbered() {
		t.Error("second section unnumbered, want numbered")
	}
}

func TestListItemMutation(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "* a\n* b\n* c")
	items := FindBy(doc, Selector{Context: ContextListItem}, nil)
	var texts []string
	for _, n := range items {
		texts = append(texts, n.(*ListItem).Text())
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, texts); diff != "" {
		t.Fatalf("item texts mismatch (-want +got):\n%s", diff)
	}

	items[0].(*ListItem).SetText("x")
	again := FindBy(doc, Selector{Context: ContextListItem}, nil)
	if got := again[0].(*ListItem).Text(); got != "x" {
		t.Errorf("Text() = %q after SetText, want x", got)
	}
}

func TestNode_Convert(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "= Title\n\nfirst paragraph")

	var para Node = doc.Blocks()[0]
	out, err := para.Convert()
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(out, "<p>first paragraph</p>") {
		t.Errorf("Convert() = %q, want the paragraph markup", out)
	}
	if strings.Contains(out, "<html") {
		t.Errorf("Convert() = %q, want a fragment", out)
	}

	var root Node = doc
	full, err := root.Convert(WithStandalone(true))
	if err != nil {
		t.Fatalf("Convert(WithStandalone(true)) error = %v", err)
	}
	if !strings.HasPrefix(full, "<!DOCTYPE html>") {
		t.Errorf("Convert(WithStandalone(true)) = %.80q, want a full page", full)
	}
}

func TestSubstitutionRemoval(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "....\n<foobar>\n....")
	b := doc.Blocks()[0].(*Block)
	if got := b.Content(); got != "&lt;foobar&gt;" {
		t.Errorf("Content() = %q, want escaped text", got)
	}
	b.RemoveSubstitution(SubSpecialCharacters)
	if got := b.Content(); got != "<foobar>" {
		t.Errorf("Content() = %q after removal, want raw text", got)
	}
}

func TestDoctitlePartition(t *testing.T) {
	t.Parallel()
	doc := mustLoad(t, "= Main Title: The Subtitle\n\ntext")
	title := doc.DoctitlePartition("")
	if title.Main != "Main Title" || title.Subtitle != "The Subtitle" {
		t.Errorf("DoctitlePartition() = %+v", title)
	}
	if !title.HasSubtitle() {
		t.Error("HasSubtitle() = false")
	}
}

func TestCounter(t *testing.T) {
	t.Parallel()
	out := mustConvert(t, "{counter:num} {counter:num} {counter:letter:a} {counter:letter}")
	if got := mustQuery(t, out).Find("p").Text(); got != "1 2 a b" {
		t.Errorf("counters = %q, want %q", got, "1 2 a b")
	}
}

func TestRevisionLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		line                 string
		number, date, remark string
	}{
		{"full", "v1.2, 2024-05-01: First release", "1.2", "2024-05-01", "First release"},
		{"date only", "2024-05-01", "", "2024-05-01", ""},
		{"number and date", "v2.0, June 2024", "2.0", "June 2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := mustLoad(t, "= Title\nAda Lovelace\n"+tt.line+"\n\nBody.")
			number, date, remark := doc.Revision()
			if number != tt.number || date != tt.date || remark != tt.remark {
				t.Errorf("Revision() = (%q, %q, %q), want (%q, %q, %q)",
					number, date, remark, tt.number, tt.date, tt.remark)
			}
		})
	}
}
