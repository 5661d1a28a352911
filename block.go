package adoc

// Block is a generic structural node: paragraphs, delimited blocks,
// admonitions, images, breaks and the preamble.
type Block struct {
	blockBase
}

var _ BlockNode = (*Block)(nil)

// defaultContentModels maps block contexts to the content model they are
// created with.
var defaultContentModels = map[string]string{
	ContextParagraph:     ContentSimple,
	ContextListing:       ContentVerbatim,
	ContextLiteral:       ContentVerbatim,
	ContextPass:          ContentRaw,
	ContextStem:          ContentRaw,
	ContextVerse:         ContentSimple,
	ContextFloatingTitle: ContentEmpty,
	ContextImage:         ContentEmpty,
	ContextVideo:         ContentEmpty,
	ContextAudio:         ContentEmpty,
	ContextThematicBreak: ContentEmpty,
	ContextPageBreak:     ContentEmpty,
	ContextTOC:           ContentEmpty,
}

// newBlock creates a block of the given context under parent with the
// default content model and substitutions of that context.
func newBlock(parent Node, context string) *Block {
	b := &Block{}
	b.initBlock(b, context, parent)
	if model, ok := defaultContentModels[context]; ok {
		b.contentModel = model
	}
	switch b.contentModel {
	case ContentSimple:
		b.defaultSubs = normalSubs
	case ContentVerbatim:
		b.defaultSubs = verbatimSubs
	default:
		b.defaultSubs = nil
	}
	b.subs = append([]string(nil), b.defaultSubs...)
	return b
}

// NewBlock creates a detached block with the given context and source.
// Attributes such as "subs" and "style" are applied like block attribute lines.
func NewBlock(parent BlockNode, context string, source string, attrs map[string]string) *Block {
	b := newBlock(parent, context)
	if source != "" {
		b.lines = splitLines(source)
	}
	for k, v := range attrs {
		b.SetAttribute(k, v)
	}
	if style, ok := attrs["style"]; ok {
		b.style = style
	}
	if spec, ok := attrs["subs"]; ok {
		b.subs = resolveSubs(spec, b.defaultSubs, b.document)
	}
	if model, ok := attrs["content_model"]; ok {
		b.contentModel = model
		delete(b.attributes, "content_model")
	}
	if id, ok := attrs["id"]; ok {
		b.id = id
	}
	if title, ok := attrs["title"]; ok {
		b.SetTitle(title)
		delete(b.attributes, "title")
	}
	return b
}

// Admonition returns the admonition name (NOTE, TIP, ...) of an admonition block.
func (b *Block) Admonition() string {
	return b.attributes["name"]
}
