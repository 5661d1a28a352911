package adoc

import (
	"sort"
	"strings"
)

// Context names of the nodes produced by the parser.
const (
	ContextDocument      = "document"
	ContextSection       = "section"
	ContextPreamble      = "preamble"
	ContextParagraph     = "paragraph"
	ContextListing       = "listing"
	ContextLiteral       = "literal"
	ContextAdmonition    = "admonition"
	ContextExample       = "example"
	ContextSidebar       = "sidebar"
	ContextOpen          = "open"
	ContextQuote         = "quote"
	ContextVerse         = "verse"
	ContextPass          = "pass"
	ContextStem          = "stem"
	ContextImage         = "image"
	ContextVideo         = "video"
	ContextAudio         = "audio"
	ContextThematicBreak = "thematic_break"
	ContextPageBreak     = "page_break"
	ContextFloatingTitle = "floating_title"
	ContextTOC           = "toc"
	ContextUlist         = "ulist"
	ContextOlist         = "olist"
	ContextDlist         = "dlist"
	ContextColist        = "colist"
	ContextListItem      = "list_item"
	ContextTable         = "table"
	ContextTableCell     = "table_cell"
)

// Content models describe how a block's content is parsed and rendered.
const (
	ContentCompound = "compound"
	ContentSimple   = "simple"
	ContentVerbatim = "verbatim"
	ContentRaw      = "raw"
	ContentEmpty    = "empty"
)

// Node is implemented by every element of the document model.
type Node interface {
	Context() string
	NodeName() string
	ID() string
	SetID(id string)
	Parent() Node
	Document() *Document
	Attribute(name string) (string, bool)
	HasAttribute(name string) bool
	SetAttribute(name, value string)
	RemoveAttribute(name string) (string, bool)
	Attributes() map[string]string
	Role() string
	HasRole(role string) bool
	IsOption(name string) bool
	Convert(opts ...Option) (string, error)

	base() *nodeBase
}

// BlockNode is a structural node: it may carry a title, a style and
// child nodes.
type BlockNode interface {
	Node
	Blocks() []Node
	Append(child Node)
	Title() string
	SetTitle(title string)
	HasTitle() bool
	Style() string
	SetStyle(style string)
	Caption() string
	CaptionedTitle() string
	Content() string
	ContentModel() string
	Level() int
	SourceLocation() *SourceLocation

	block() *blockBase
}

type nodeBase struct {
	self       Node
	context    string
	nodeName   string
	id         string
	parent     Node
	document   *Document
	attributes map[string]string
	positional []string
}

func (n *nodeBase) base() *nodeBase { return n }

// Context returns the kind of the node, such as "paragraph" or "section".
func (n *nodeBase) Context() string { return n.context }

// NodeName names the converter transform for the node.
func (n *nodeBase) NodeName() string { return n.nodeName }

func (n *nodeBase) ID() string { return n.id }

func (n *nodeBase) SetID(id string) { n.id = id }

func (n *nodeBase) Parent() Node { return n.parent }

func (n *nodeBase) Document() *Document { return n.document }

// Attribute returns an attribute defined on this node.
func (n *nodeBase) Attribute(name string) (string, bool) {
	v, ok := n.attributes[strings.ToLower(name)]
	return v, ok
}

func (n *nodeBase) HasAttribute(name string) bool {
	_, ok := n.attributes[strings.ToLower(name)]
	return ok
}

func (n *nodeBase) SetAttribute(name, value string) {
	if n.attributes == nil {
		n.attributes = map[string]string{}
	}
	n.attributes[strings.ToLower(name)] = value
}

// RemoveAttribute deletes name and returns its previous value.
func (n *nodeBase) RemoveAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	v, ok := n.attributes[name]
	delete(n.attributes, name)
	return v, ok
}

// Attributes returns a copy of the named attributes of the node.
// Positional attributes are not included.
func (n *nodeBase) Attributes() map[string]string {
	out := make(map[string]string, len(n.attributes))
	for k, v := range n.attributes {
		out[k] = v
	}
	return out
}

// PositionalAttribute returns the 1-based positional attribute i.
func (n *nodeBase) PositionalAttribute(i int) (string, bool) {
	if i < 1 || i > len(n.positional) {
		return "", false
	}
	return n.positional[i-1], true
}

func (n *nodeBase) Role() string { return n.attributes["role"] }

func (n *nodeBase) Roles() []string { return strings.Fields(n.attributes["role"]) }

func (n *nodeBase) HasRole(role string) bool {
	for _, r := range n.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func (n *nodeBase) AddRole(role string) {
	if n.HasRole(role) {
		return
	}
	roles := append(n.Roles(), role)
	n.SetAttribute("role", strings.Join(roles, " "))
}

func (n *nodeBase) IsOption(name string) bool {
	_, ok := n.attributes[name+"-option"]
	return ok
}

func (n *nodeBase) SetOption(name string) {
	n.SetAttribute(name+"-option", "")
}

// Convert renders the node through the document converter. Options only
// apply when converting a whole document.
func (n *nodeBase) Convert(...Option) (string, error) {
	if n.document == nil {
		return "", ErrConversion
	}
	return n.document.convertNode(n.self, "")
}

// attr reads a node attribute, falling back to the document when inherit is set.
func (n *nodeBase) attr(name string, inherit bool) (string, bool) {
	if v, ok := n.attributes[name]; ok {
		return v, true
	}
	if inherit && n.document != nil && n.self != Node(n.document) {
		return n.document.Attribute(name)
	}
	return "", false
}

func (n *nodeBase) attrOr(name, fallback string) string {
	if v, ok := n.attr(name, false); ok {
		return v
	}
	return fallback
}

func (n *nodeBase) initNode(self Node, context string, parent Node) {
	n.self = self
	n.context = context
	n.nodeName = context
	n.parent = parent
	if n.attributes == nil {
		n.attributes = map[string]string{}
	}
	if parent != nil {
		n.document = parent.Document()
	}
}

type blockBase struct {
	nodeBase
	blocks         []Node
	title          string
	hasTitle       bool
	style          string
	caption        string
	subs           []string
	defaultSubs    []string
	lines          []string
	contentModel   string
	level          int
	numeral        string
	sourceLocation *SourceLocation

	// attribute entries that precede the block, replayed on conversion
	entries []attributeEntry

	nextSectionIndex   int
	nextSectionOrdinal int
}

func (b *blockBase) block() *blockBase { return b }

func (b *blockBase) initBlock(self BlockNode, context string, parent Node) {
	b.initNode(self, context, parent)
	b.contentModel = ContentCompound
	b.nextSectionOrdinal = 1
	if pb, ok := parent.(BlockNode); ok {
		b.level = pb.Level()
	}
}

// Blocks returns the child nodes in document order.
func (b *blockBase) Blocks() []Node { return b.blocks }

// Append adds child as the last child of the block.
func (b *blockBase) Append(child Node) {
	cb := child.base()
	cb.parent = b.self
	if cb.document == nil {
		cb.document = b.document
	}
	b.blocks = append(b.blocks, child)
}

func (b *blockBase) HasBlocks() bool { return len(b.blocks) > 0 }

func (b *blockBase) Style() string { return b.style }

func (b *blockBase) SetStyle(style string) {
	b.style = style
	if style == "" {
		delete(b.attributes, "style")
	} else {
		b.SetAttribute("style", style)
	}
}

// Title returns the title with title substitutions applied.
func (b *blockBase) Title() string {
	if !b.hasTitle {
		return ""
	}
	return b.document.applyTitleSubs(b.title, b.self)
}

// RawTitle returns the title as written in the source.
func (b *blockBase) RawTitle() string { return b.title }

func (b *blockBase) SetTitle(title string) {
	b.title = title
	b.hasTitle = true
}

func (b *blockBase) HasTitle() bool { return b.hasTitle }

func (b *blockBase) Caption() string { return b.caption }

func (b *blockBase) SetCaption(caption string) { b.caption = caption }

func (b *blockBase) CaptionedTitle() string {
	return b.caption + b.Title()
}

func (b *blockBase) ContentModel() string { return b.contentModel }

func (b *blockBase) SetContentModel(model string) { b.contentModel = model }

func (b *blockBase) Level() int { return b.level }

func (b *blockBase) SourceLocation() *SourceLocation { return b.sourceLocation }

// Lines returns the raw source lines of a simple or verbatim block.
func (b *blockBase) Lines() []string { return b.lines }

func (b *blockBase) SetLines(lines []string) { b.lines = lines }

// Source returns the raw lines joined with newlines.
func (b *blockBase) Source() string { return strings.Join(b.lines, "\n") }

// Substitutions returns the ordered substitution steps applied to the content.
func (b *blockBase) Substitutions() []string {
	return append([]string(nil), b.subs...)
}

func (b *blockBase) HasSubstitution(name string) bool {
	for _, s := range b.subs {
		if s == name {
			return true
		}
	}
	return false
}

func (b *blockBase) AddSubstitution(name string) {
	if !b.HasSubstitution(name) {
		b.subs = append(b.subs, name)
	}
}

func (b *blockBase) RemoveSubstitution(name string) {
	out := b.subs[:0]
	for _, s := range b.subs {
		if s != name {
			out = append(out, s)
		}
	}
	b.subs = out
}

func (b *blockBase) SetSubstitutions(subs ...string) {
	b.subs = append([]string(nil), subs...)
}

// Content renders the block body. Compound blocks join their converted
// children; simple and verbatim blocks substitute their lines each call,
// so attribute changes made after parsing are reflected.
func (b *blockBase) Content() string {
	switch b.contentModel {
	case ContentCompound:
		return b.document.convertChildren(b.blocks)
	case ContentEmpty:
		return ""
	default:
		return b.document.applySubs(b.self, strings.Join(b.lines, "\n"), b.subs)
	}
}

// Numeral is the number or letter assigned to a numbered node.
func (b *blockBase) Numeral() string { return b.numeral }

func (b *blockBase) SetNumeral(numeral string) { b.numeral = numeral }

// childSections returns the direct section children.
func (b *blockBase) childSections() []*Section {
	var out []*Section
	for _, c := range b.blocks {
		if s, ok := c.(*Section); ok {
			out = append(out, s)
		}
	}
	return out
}

func (b *blockBase) removeChild(child Node) {
	for i, c := range b.blocks {
		if c == child {
			b.blocks = append(b.blocks[:i], b.blocks[i+1:]...)
			return
		}
	}
}

// attributeNames lists attribute names in sorted order.
func attributeNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
