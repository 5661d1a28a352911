package adoc

import "sort"

// Catalog records the referenceable nodes and assets of a document.
// Links and images are only recorded when catalog assets are enabled.
type Catalog struct {
	Refs      map[string]Node
	Links     []string
	Images    []ImageReference
	Footnotes []Footnote
	Includes  map[string]bool
}

// ImageReference is an image target with the imagesdir in effect where it appeared.
type ImageReference struct {
	Target    string
	ImagesDir string
}

// Footnote is a numbered footnote collected during conversion.
type Footnote struct {
	Index int
	ID    string
	Text  string
}

func newCatalog() *Catalog {
	return &Catalog{Refs: map[string]Node{}, Includes: map[string]bool{}}
}

// RefIDs returns the registered ids in sorted order.
func (c *Catalog) RefIDs() []string {
	ids := make([]string, 0, len(c.Refs))
	for id := range c.Refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Catalog) registerLink(target string) {
	c.Links = append(c.Links, target)
}

func (c *Catalog) registerImage(target, imagesdir string) {
	c.Images = append(c.Images, ImageReference{Target: target, ImagesDir: imagesdir})
}

// registerRef records id for node; the first registration wins.
func (c *Catalog) registerRef(id string, node Node) bool {
	if _, exists := c.Refs[id]; exists {
		return false
	}
	c.Refs[id] = node
	return true
}
