package adoc

// Inline is a node created while substituting text: anchors, quoted text,
// images, footnotes, callouts, breaks. Extensions create them with
// NewInline.
type Inline struct {
	nodeBase
	text   string
	typ    string
	target string
}

var _ Node = (*Inline)(nil)

// InlineOptions configures an inline node.
type InlineOptions struct {
	Type       string
	Target     string
	ID         string
	Attributes map[string]string
}

// NewInline creates an inline node of the given context ("anchor",
// "quoted", "image", ...) attached to parent.
func NewInline(parent Node, context, text string, opts InlineOptions) *Inline {
	in := &Inline{text: text, typ: opts.Type, target: opts.Target}
	in.initNode(in, context, parent)
	in.nodeName = "inline_" + context
	in.id = opts.ID
	for k, v := range opts.Attributes {
		in.attributes[k] = v
	}
	return in
}

func (in *Inline) Text() string { return in.text }

func (in *Inline) SetText(text string) { in.text = text }

// Type distinguishes variants of a context, such as "link" or "xref" anchors.
func (in *Inline) Type() string { return in.typ }

func (in *Inline) Target() string { return in.target }

func (in *Inline) SetTarget(target string) { in.target = target }

// Reftext returns the text used when cross referencing the node.
func (in *Inline) Reftext() string {
	if in.typ == "bibref" || in.typ == "ref" {
		return in.text
	}
	return in.attributes["reftext"]
}
