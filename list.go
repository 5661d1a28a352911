package adoc

// List is an unordered, ordered, callout or description list.
type List struct {
	blockBase
	entries []*DescriptionListEntry
}

// ListItem is an entry of a list, or a term or description of a
// description list entry. It owns any blocks attached to it.
type ListItem struct {
	blockBase
	marker  string
	text    string
	hasText bool
}

// DescriptionListEntry pairs the terms of a description list entry with
// its description, which may be nil.
type DescriptionListEntry struct {
	Terms       []*ListItem
	Description *ListItem
}

var (
	_ BlockNode = (*List)(nil)
	_ BlockNode = (*ListItem)(nil)
)

func newList(parent Node, context string) *List {
	l := &List{}
	l.initBlock(l, context, parent)
	return l
}

// NewList creates a list of the given context (ulist, olist, colist, dlist).
func NewList(parent BlockNode, context string, attrs map[string]string) *List {
	l := newList(parent, context)
	for k, v := range attrs {
		l.SetAttribute(k, v)
	}
	if style, ok := attrs["style"]; ok {
		l.style = style
	}
	return l
}

// Items returns the items of an unordered, ordered or callout list.
func (l *List) Items() []*ListItem {
	items := make([]*ListItem, 0, len(l.blocks))
	for _, b := range l.blocks {
		if li, ok := b.(*ListItem); ok {
			items = append(items, li)
		}
	}
	return items
}

// HasItems reports whether the list holds at least one item or entry.
func (l *List) HasItems() bool {
	return len(l.blocks) > 0 || len(l.entries) > 0
}

// Entries returns the entries of a description list.
func (l *List) Entries() []*DescriptionListEntry { return l.entries }

// AppendEntry adds a description list entry, adopting its items.
func (l *List) AppendEntry(e *DescriptionListEntry) {
	for _, t := range e.Terms {
		t.parent = l
	}
	if e.Description != nil {
		e.Description.parent = l
	}
	l.entries = append(l.entries, e)
}

func newListItem(parent *List, text string) *ListItem {
	li := &ListItem{text: text, hasText: text != ""}
	li.initBlock(li, ContextListItem, parent)
	li.subs = append([]string(nil), normalSubs...)
	return li
}

// NewListItem creates a detached list item for parent.
func NewListItem(parent *List, text string) *ListItem {
	return newListItem(parent, text)
}

// List returns the list that holds the item.
func (li *ListItem) List() *List {
	l, _ := li.parent.(*List)
	return l
}

// Marker is the list marker as written, such as "*" or "<1>".
func (li *ListItem) Marker() string { return li.marker }

func (li *ListItem) SetMarker(marker string) { li.marker = marker }

// Text returns the item's principal text with normal substitutions applied.
func (li *ListItem) Text() string {
	return li.document.applySubs(li, li.text, li.subs)
}

// RawText returns the principal text as written.
func (li *ListItem) RawText() string { return li.text }

func (li *ListItem) SetText(text string) {
	li.text = text
	li.hasText = text != ""
}

func (li *ListItem) HasText() bool { return li.hasText }

// Simple reports whether the item has no blocks other than a single nested list.
func (li *ListItem) Simple() bool {
	switch len(li.blocks) {
	case 0:
		return true
	case 1:
		_, ok := li.blocks[0].(*List)
		return ok
	}
	return false
}

// Compound is the opposite of Simple.
func (li *ListItem) Compound() bool { return !li.Simple() }
