// Package adoc parses AsciiDoc documents and converts them to HTML.
//
// # Quick Start
//
// Convert a string to an embeddable HTML fragment:
//
//	html, err := adoc.Convert("= Hello\n\nWorld *wide* web.")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Convert a file to a standalone page:
//
//	html, err := adoc.ConvertFile("guide.adoc", adoc.WithSafeMode(adoc.SafeModeSafe))
//
// # Processing Pipeline
//
// A document goes through these stages:
//
//  1. Preprocessing (include, ifdef, ifndef, ifeval) as lines are read
//  2. Header parsing (title, authors, revision, attribute entries)
//  3. Block parsing into a tree of sections, blocks, lists and tables
//  4. Tree processors registered as extensions
//  5. Conversion, applying inline substitutions lazily per block
//  6. Postprocessors registered as extensions
//
// Load stops after step 4 and returns the Document, which can be
// inspected or changed before calling Document.Convert.
//
// # Options
//
// Functional options configure a load:
//
//	doc, err := adoc.Load(src,
//	    adoc.WithSafeMode(adoc.SafeModeServer),
//	    adoc.WithAttributes("toc sectnums source-highlighter=chroma"),
//	    adoc.WithIncludeMissing(adoc.IncludeMissingWarn),
//	    adoc.WithLogger(logger),
//	)
//
// The default safe mode is SafeModeSecure: includes become links and
// nothing is read from outside the document.
//
// # Extensions
//
// Processors plug into the pipeline through a Registry:
//
//	exts := adoc.NewExtensions()
//	exts.Register("shout", func(r *adoc.Registry) {
//	    r.Block("shout", adoc.BlockProcessorFunc(
//	        func(parent adoc.BlockNode, rd *adoc.Reader, _ map[string]string) (adoc.Node, error) {
//	            return adoc.CreateParagraph(parent, strings.ToUpper(rd.Read()), nil), nil
//	        }))
//	})
//	html, err := adoc.Convert(src, adoc.WithExtensions(exts))
//
// Groups registered on DefaultExtensions apply to every document.
//
// # Backends
//
// The html5 backend (alias xhtml5) is built in. Other backends are added
// with DefaultConverterFactory().Register, and single node types can be
// overridden on an HTML5Converter with Handle.
package adoc
