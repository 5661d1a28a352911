package adoc

import (
	"fmt"
	"strings"
)

// Builders for extension processors. Nodes they return are detached until
// the processor returns them or appends them to a parent.

// CreateBlock creates a block of context with source as its lines.
func CreateBlock(parent BlockNode, context, source string, attrs map[string]string) *Block {
	return NewBlock(parent, context, source, attrs)
}

// CreateParagraph creates a paragraph with normal substitutions.
func CreateParagraph(parent BlockNode, source string, attrs map[string]string) *Block {
	return NewBlock(parent, ContextParagraph, source, attrs)
}

// CreateOpenBlock creates an open block. Children are added with Append
// or ParseContent.
func CreateOpenBlock(parent BlockNode, attrs map[string]string) *Block {
	return NewBlock(parent, ContextOpen, "", attrs)
}

// CreateSection creates a section one level below parent, numbered when
// the document has sectnums set. The id is generated from the title
// unless attrs sets one.
func CreateSection(parent BlockNode, title string, attrs map[string]string) *Section {
	doc := parent.Document()
	_, numbered := doc.attributes["sectnums"]
	s := NewSection(parent, -1, numbered)
	s.SetTitle(title)
	for k, v := range attrs {
		s.SetAttribute(k, v)
	}
	if style, ok := attrs["style"]; ok {
		s.style = style
	}
	switch id, ok := attrs["id"]; {
	case ok:
		s.id = id
		delete(s.attributes, "id")
	default:
		if _, ok := doc.attributes["sectids"]; ok {
			p := &parser{doc: doc}
			s.id = doc.uniqueID(p.generateID(s.Title()))
		}
	}
	if s.id != "" {
		doc.registerRef(s.id, s)
	}
	assignNumeral(parent, s)
	return s
}

// CreateList creates an empty list of context (ulist, olist, colist, dlist).
func CreateList(parent BlockNode, context string, attrs map[string]string) *List {
	return NewList(parent, context, attrs)
}

// CreateListItem creates an item of list with the given text.
func CreateListItem(list *List, text string) *ListItem {
	return NewListItem(list, text)
}

// CreateImageBlock creates an image block. The target attribute is required.
func CreateImageBlock(parent BlockNode, attrs map[string]string) (*Block, error) {
	target := attrs["target"]
	if target == "" {
		return nil, fmt.Errorf("%w: image block requires a target attribute", ErrExtension)
	}
	b := NewBlock(parent, ContextImage, "", attrs)
	if _, ok := attrs["alt"]; !ok {
		alt := basenameAlt(target)
		b.attributes["alt"] = alt
		b.attributes["default-alt"] = alt
	}
	return b, nil
}

// CreateInline creates an inline node for an inline macro processor.
func CreateInline(parent Node, context, text string, opts InlineOptions) *Inline {
	return NewInline(parent, context, text, opts)
}

// ParseContent parses AsciiDoc source into parent, as if it were the
// content of a delimited block.
func ParseContent(parent BlockNode, source string) error {
	doc := parent.Document()
	lines := splitLines(source)
	p := &parser{doc: doc, r: NewReader(lines, nil)}
	if _, ok := parent.(*ListItem); ok {
		p.inList = true
	}
	return p.parseBlocks(parent)
}

// ParseContentLines is ParseContent for lines already split, such as
// those read from the reader handed to a block processor.
func ParseContentLines(parent BlockNode, lines []string) error {
	return ParseContent(parent, strings.Join(lines, "\n"))
}
