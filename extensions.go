package adoc

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
)

// ExtensionKind identifies the extension point a processor plugs into.
type ExtensionKind int

const (
	KindPreprocessor ExtensionKind = iota
	KindTreeProcessor
	KindPostprocessor
	KindIncludeProcessor
	KindBlock
	KindBlockMacro
	KindInlineMacro
)

var kindNames = [...]string{
	"preprocessor", "tree_processor", "postprocessor", "include_processor",
	"block", "block_macro", "inline_macro",
}

func (k ExtensionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ExtensionKind(%d)", int(k))
}

// Macro formats and content models specific to extension processors.
const (
	FormatLong  = "long"
	FormatShort = "short"

	// ContentAttributes parses the macro text as an attribute list.
	ContentAttributes = "attributes"
	// ContentText passes the macro text through as the "text" attribute.
	ContentText = "text"
)

// Preprocessor runs on the reader before parsing. It may return a
// replacement reader, or nil to keep the current one.
type Preprocessor interface {
	Process(doc *Document, r *Reader) (*Reader, error)
}

// TreeProcessor runs on the parsed document. A non-nil result replaces it.
type TreeProcessor interface {
	Process(doc *Document) (*Document, error)
}

// Postprocessor transforms the converted output.
type Postprocessor interface {
	Process(doc *Document, output string) (string, error)
}

// IncludeProcessor resolves include directives whose target it handles.
// Process pushes the included lines onto r.
type IncludeProcessor interface {
	Handles(doc *Document, target string) bool
	Process(doc *Document, r *Reader, target string, attrs map[string]string) error
}

// BlockProcessor builds a node from a block carrying its name as style.
// Returning nil drops the block.
type BlockProcessor interface {
	Process(parent BlockNode, r *Reader, attrs map[string]string) (Node, error)
}

// BlockMacroProcessor builds a node from a name::target[attrs] line.
type BlockMacroProcessor interface {
	Process(parent BlockNode, target string, attrs map[string]string) (Node, error)
}

// InlineMacroProcessor builds an inline node from a name:target[text] macro.
// Returning nil removes the macro text.
type InlineMacroProcessor interface {
	Process(parent Node, target string, attrs map[string]string) (*Inline, error)
}

// PreprocessorFunc adapts a function to Preprocessor.
type PreprocessorFunc func(doc *Document, r *Reader) (*Reader, error)

func (f PreprocessorFunc) Process(doc *Document, r *Reader) (*Reader, error) { return f(doc, r) }

// TreeProcessorFunc adapts a function to TreeProcessor.
type TreeProcessorFunc func(doc *Document) (*Document, error)

func (f TreeProcessorFunc) Process(doc *Document) (*Document, error) { return f(doc) }

// PostprocessorFunc adapts a function to Postprocessor.
type PostprocessorFunc func(doc *Document, output string) (string, error)

func (f PostprocessorFunc) Process(doc *Document, output string) (string, error) {
	return f(doc, output)
}

// IncludeProcessorFunc adapts a function to an IncludeProcessor that
// handles every target.
type IncludeProcessorFunc func(doc *Document, r *Reader, target string, attrs map[string]string) error

func (f IncludeProcessorFunc) Handles(*Document, string) bool { return true }

func (f IncludeProcessorFunc) Process(doc *Document, r *Reader, target string, attrs map[string]string) error {
	return f(doc, r, target, attrs)
}

// BlockProcessorFunc adapts a function to BlockProcessor.
type BlockProcessorFunc func(parent BlockNode, r *Reader, attrs map[string]string) (Node, error)

func (f BlockProcessorFunc) Process(parent BlockNode, r *Reader, attrs map[string]string) (Node, error) {
	return f(parent, r, attrs)
}

// BlockMacroProcessorFunc adapts a function to BlockMacroProcessor.
type BlockMacroProcessorFunc func(parent BlockNode, target string, attrs map[string]string) (Node, error)

func (f BlockMacroProcessorFunc) Process(parent BlockNode, target string, attrs map[string]string) (Node, error) {
	return f(parent, target, attrs)
}

// InlineMacroProcessorFunc adapts a function to InlineMacroProcessor.
type InlineMacroProcessorFunc func(parent Node, target string, attrs map[string]string) (*Inline, error)

func (f InlineMacroProcessorFunc) Process(parent Node, target string, attrs map[string]string) (*Inline, error) {
	return f(parent, target, attrs)
}

var (
	_ Preprocessor         = PreprocessorFunc(nil)
	_ TreeProcessor        = TreeProcessorFunc(nil)
	_ Postprocessor        = PostprocessorFunc(nil)
	_ IncludeProcessor     = IncludeProcessorFunc(nil)
	_ BlockProcessor       = BlockProcessorFunc(nil)
	_ BlockMacroProcessor  = BlockMacroProcessorFunc(nil)
	_ InlineMacroProcessor = InlineMacroProcessorFunc(nil)
)

// extension is a registered processor with its configuration.
type extension struct {
	kind      ExtensionKind
	name      string
	processor any
	config    extensionConfig
	prepend   bool
	prefer    bool

	// rx matches the inline macro in text
	rx *regexp.Regexp
}

type extensionConfig struct {
	contexts     []string
	contentModel string
	format       string
	positional   []string
	defaults     map[string]string
}

// RegisterOption configures a processor at registration.
type RegisterOption func(*extension)

// Named sets the name used by Unregister-style lookups and error messages.
func Named(name string) RegisterOption {
	return func(e *extension) { e.name = name }
}

// Prepend places the processor before those already registered.
func Prepend() RegisterOption {
	return func(e *extension) { e.prepend = true }
}

// Prefer moves the processor to the front of its kind when the registry is
// activated, ahead of processors registered without Prefer.
func Prefer() RegisterOption {
	return func(e *extension) { e.prefer = true }
}

// OnContexts limits a block processor to blocks of the given contexts.
// The default is open and paragraph.
func OnContexts(contexts ...string) RegisterOption {
	return func(e *extension) { e.config.contexts = contexts }
}

// ContentModel sets how a block or macro processor receives its content.
func ContentModel(model string) RegisterOption {
	return func(e *extension) { e.config.contentModel = model }
}

// MatchFormat selects the long (name:target[text]) or short (name:[text])
// inline macro syntax.
func MatchFormat(format string) RegisterOption {
	return func(e *extension) { e.config.format = format }
}

// PositionalAttributes names the positional attributes of a macro or block.
func PositionalAttributes(names ...string) RegisterOption {
	return func(e *extension) { e.config.positional = names }
}

// DefaultAttributes seeds the attributes passed to the processor.
func DefaultAttributes(attrs map[string]string) RegisterOption {
	return func(e *extension) { e.config.defaults = attrs }
}

// Group registers a set of processors on a registry.
type Group func(r *Registry)

// Registry holds the processors active for one document. Processors
// registered on it directly survive activation; groups are replayed on
// every activation.
type Registry struct {
	document *Document
	groups   []Group
	static   []*extension
	exts     []*extension
	// activating routes registrations made by groups to exts only
	activating bool

	byKind map[ExtensionKind][]*extension
}

// NewRegistry returns an empty registry for use with WithExtensionRegistry.
func NewRegistry(groups ...Group) *Registry {
	return &Registry{groups: groups}
}

// Document returns the document the registry was last activated for.
func (r *Registry) Document() *Document { return r.document }

func (r *Registry) add(kind ExtensionKind, name string, processor any, opts []RegisterOption) {
	e := &extension{kind: kind, name: name, processor: processor}
	for _, opt := range opts {
		opt(e)
	}
	if e.name == "" {
		e.name = fmt.Sprintf("%s_%d", kind, len(r.exts)+1)
	}
	if kind == KindBlock && e.config.contentModel == "" {
		e.config.contentModel = ContentCompound
	}
	if kind == KindInlineMacro {
		if e.config.contentModel == "" {
			e.config.contentModel = ContentText
		}
		e.rx = inlineMacroRx(e.name, e.config.format)
	}
	if !r.activating {
		r.static = insertExtension(r.static, e)
	}
	r.exts = insertExtension(r.exts, e)
	r.byKind = nil
}

func insertExtension(list []*extension, e *extension) []*extension {
	if e.prepend {
		return append([]*extension{e}, list...)
	}
	return append(list, e)
}

func inlineMacroRx(name, format string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(name)
	if format == FormatShort {
		return regexp.MustCompile(`(?s)\\?` + quoted + `:()\[(|.*?[^\\])\]`)
	}
	return regexp.MustCompile(`(?s)\\?` + quoted + `:(\S+?)\[(|.*?[^\\])\]`)
}

// Preprocessor registers a preprocessor.
func (r *Registry) Preprocessor(p Preprocessor, opts ...RegisterOption) {
	r.add(KindPreprocessor, "", p, opts)
}

// TreeProcessor registers a tree processor.
func (r *Registry) TreeProcessor(p TreeProcessor, opts ...RegisterOption) {
	r.add(KindTreeProcessor, "", p, opts)
}

// Postprocessor registers a postprocessor.
func (r *Registry) Postprocessor(p Postprocessor, opts ...RegisterOption) {
	r.add(KindPostprocessor, "", p, opts)
}

// IncludeProcessor registers an include processor.
func (r *Registry) IncludeProcessor(p IncludeProcessor, opts ...RegisterOption) {
	r.add(KindIncludeProcessor, "", p, opts)
}

// Block registers a processor for blocks styled [name].
func (r *Registry) Block(name string, p BlockProcessor, opts ...RegisterOption) {
	r.add(KindBlock, name, p, opts)
}

// BlockMacro registers a processor for name::target[] lines.
func (r *Registry) BlockMacro(name string, p BlockMacroProcessor, opts ...RegisterOption) {
	r.add(KindBlockMacro, name, p, opts)
}

// InlineMacro registers a processor for name:target[] macros.
func (r *Registry) InlineMacro(name string, p InlineMacroProcessor, opts ...RegisterOption) {
	r.add(KindInlineMacro, name, p, opts)
}

// Prefer promotes the named processor of kind ahead of the others.
// It reports whether a processor with that name was found.
func (r *Registry) Prefer(kind ExtensionKind, name string) bool {
	for _, list := range [][]*extension{r.static, r.exts} {
		for _, e := range list {
			if e.kind == kind && e.name == name {
				e.prefer = true
			}
		}
	}
	r.byKind = nil
	return slices.ContainsFunc(r.exts, func(e *extension) bool { return e.kind == kind && e.name == name })
}

// activate rebuilds the processor lists for d: direct registrations first,
// then the groups in order.
func (r *Registry) activate(d *Document) {
	r.document = d
	r.exts = slices.Clone(r.static)
	r.activating = true
	for _, g := range r.groups {
		g(r)
	}
	r.activating = false
	r.byKind = nil
}

// ordered returns the processors of kind. Preferred processors come first;
// each one is moved to the front in registration order, so the last
// preferred runs first.
func (r *Registry) ordered(kind ExtensionKind) []*extension {
	if r == nil {
		return nil
	}
	if r.byKind == nil {
		r.byKind = map[ExtensionKind][]*extension{}
		for _, e := range r.exts {
			list := r.byKind[e.kind]
			if e.prefer {
				list = append([]*extension{e}, list...)
			} else {
				list = append(list, e)
			}
			r.byKind[e.kind] = list
		}
	}
	return r.byKind[kind]
}

// HasKind reports whether any processor of kind is registered.
func (r *Registry) HasKind(kind ExtensionKind) bool { return len(r.ordered(kind)) > 0 }

// Names lists the processors of kind in the order they run.
func (r *Registry) Names(kind ExtensionKind) []string {
	var names []string
	for _, e := range r.ordered(kind) {
		names = append(names, e.name)
	}
	return names
}

func (r *Registry) preprocessors() []*extension     { return r.ordered(KindPreprocessor) }
func (r *Registry) treeProcessors() []*extension    { return r.ordered(KindTreeProcessor) }
func (r *Registry) postprocessors() []*extension    { return r.ordered(KindPostprocessor) }
func (r *Registry) includeProcessors() []*extension { return r.ordered(KindIncludeProcessor) }
func (r *Registry) inlineMacros() []*extension      { return r.ordered(KindInlineMacro) }

var defaultBlockContexts = []string{ContextOpen, ContextParagraph}

// blockFor returns the block processor for style on a block of context.
func (r *Registry) blockFor(name, context string) *extension {
	for _, e := range r.ordered(KindBlock) {
		if e.name != name {
			continue
		}
		contexts := e.config.contexts
		if len(contexts) == 0 {
			contexts = defaultBlockContexts
		}
		if slices.Contains(contexts, context) {
			return e
		}
	}
	return nil
}

func (r *Registry) blockMacroFor(name string) *extension {
	for _, e := range r.ordered(KindBlockMacro) {
		if e.name == name {
			return e
		}
	}
	return nil
}

// Extensions is a set of named extension groups applied to every document
// loaded with it. DefaultExtensions is used when no other set is given.
// It is safe for concurrent use.
type Extensions struct {
	mu     sync.RWMutex
	groups []namedGroup
	seq    int
}

type namedGroup struct {
	name string
	fn   Group
}

// DefaultExtensions is the process-wide extension set.
var DefaultExtensions = NewExtensions()

// NewExtensions returns an empty extension set.
func NewExtensions() *Extensions { return &Extensions{} }

// Register adds a group. An empty name gets a generated one, which is
// returned.
func (e *Extensions) Register(name string, g Group) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	if name == "" {
		name = fmt.Sprintf("extgrp%d", e.seq)
	}
	e.groups = append(e.groups, namedGroup{name: name, fn: g})
	return name
}

// Unregister removes the named groups.
func (e *Extensions) Unregister(names ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups = slices.DeleteFunc(e.groups, func(g namedGroup) bool {
		return slices.Contains(names, g.name)
	})
}

// UnregisterAll removes every group.
func (e *Extensions) UnregisterAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups = nil
}

// Groups returns the group names in registration order.
func (e *Extensions) Groups() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.groups))
	for i, g := range e.groups {
		names[i] = g.name
	}
	return names
}

// newRegistry snapshots the groups into a document registry, or returns
// nil when there are none.
func (e *Extensions) newRegistry() *Registry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.groups) == 0 {
		return nil
	}
	r := &Registry{}
	for _, g := range e.groups {
		r.groups = append(r.groups, g.fn)
	}
	return r
}
