package assets

// DefaultStyleName names the stylesheet used when the document does not
// select one.
const DefaultStyleName = "default"

// DefaultStylesheetName is the file name of the default stylesheet when it
// is linked or copied next to the output instead of embedded.
const DefaultStylesheetName = "adoc.css"

var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a CSS file by name using the default embedded loader.
// The name should not include the .css extension or path components.
// Returns ErrStyleNotFound if the style does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads an HTML snippet by name using the default embedded loader.
// Returns ErrTemplateNotFound if the template does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// Styles lists the names of the embedded stylesheets.
func Styles() []string {
	return defaultLoader.Styles()
}
