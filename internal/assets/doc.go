// Package assets provides the stylesheets and HTML snippets embedded in
// converted documents.
//
// # Layout
//
// Assets are organized by type:
//
//	styles/
//	└── {name}.css      # stylesheets (default.css is the document stylesheet)
//	templates/
//	└── {name}.html     # text/template snippets such as mathjax.html
//
// # Security
//
// Asset names are validated so that a name taken from a document
// attribute cannot address files outside the embedded tree.
package assets
