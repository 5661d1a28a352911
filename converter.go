package adoc

import (
	"fmt"
	"sort"
	"sync"
)

// Converter renders nodes of a document. transform names the rendering
// to produce; it is the node name unless the caller asks for a specific
// one, such as "embedded" or "outline" for a document.
type Converter interface {
	Convert(node Node, transform string) (string, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(node Node, transform string) (string, error)

func (f ConverterFunc) Convert(node Node, transform string) (string, error) {
	return f(node, transform)
}

// ConverterOptions is handed to a converter constructor.
type ConverterOptions struct {
	Document *Document
	// HTMLSyntax is "html" or "xml".
	HTMLSyntax string
}

// ConverterConstructor creates a converter for a backend.
type ConverterConstructor func(backend string, opts ConverterOptions) (Converter, error)

// ConverterFactory maps backend names to converter constructors.
// It is safe for concurrent use.
type ConverterFactory struct {
	mu           sync.RWMutex
	constructors map[string]ConverterConstructor
}

// Compile-time interface implementation checks.
var (
	_ Converter = (*HTML5Converter)(nil)
	_ Converter = ConverterFunc(nil)
)

// NewConverterFactory creates an empty factory.
func NewConverterFactory() *ConverterFactory {
	return &ConverterFactory{constructors: map[string]ConverterConstructor{}}
}

// Register makes c available under each backend name. A later
// registration for the same name replaces the earlier one.
func (f *ConverterFactory) Register(c ConverterConstructor, backends ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range backends {
		f.constructors[b] = c
	}
}

// Unregister removes the named backends.
func (f *ConverterFactory) Unregister(backends ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range backends {
		delete(f.constructors, b)
	}
}

// For returns the constructor registered for backend.
func (f *ConverterFactory) For(backend string) (ConverterConstructor, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.constructors[backend]
	return c, ok
}

// Backends lists the registered backend names in sorted order.
func (f *ConverterFactory) Backends() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for n := range f.constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Create builds the converter for backend. Backend aliases such as
// "xhtml5" are normalized first.
func (f *ConverterFactory) Create(backend string, opts ConverterOptions) (Converter, error) {
	name, xml := normalizeBackend(backend)
	if xml {
		opts.HTMLSyntax = "xml"
	}
	c, ok := f.For(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	conv, err := c(name, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s converter: %v", ErrConversion, name, err)
	}
	return conv, nil
}

var (
	defaultFactoryOnce sync.Once
	defaultFactory     *ConverterFactory
)

// DefaultConverterFactory returns the process-wide factory. It starts
// with the html5 backend registered.
func DefaultConverterFactory() *ConverterFactory {
	defaultFactoryOnce.Do(func() {
		defaultFactory = NewConverterFactory()
		defaultFactory.Register(func(_ string, opts ConverterOptions) (Converter, error) {
			return NewHTML5Converter(opts), nil
		}, BackendHTML5)
	})
	return defaultFactory
}
