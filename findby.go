package adoc

// FilterResult tells FindBy what to do with a node that matched the selector.
type FilterResult int

const (
	// Accept adds the node and visits its children.
	Accept FilterResult = iota
	// Reject leaves the node out but visits its children.
	Reject
	// Prune adds the node and skips its children.
	Prune
	// Skip leaves the node and its children out.
	Skip
	// Stop ends the traversal. The node is not added.
	Stop
)

// Selector narrows FindBy to nodes with the given context, style, role or
// id. Empty fields match anything. An id selector ends the search at the
// first match.
type Selector struct {
	Context string
	Style   string
	Role    string
	ID      string

	// TraverseDocuments descends into the documents of AsciiDoc table cells.
	TraverseDocuments bool
}

// FilterFunc decides what to do with a node that matched the selector.
type FilterFunc func(Node) FilterResult

type finder struct {
	sel     Selector
	filter  FilterFunc
	result  []Node
	stopped bool
}

// FindBy walks the tree under root depth-first in document order and
// returns the nodes that match sel and are accepted by filter. A nil
// filter accepts every match.
func FindBy(root Node, sel Selector, filter FilterFunc) []Node {
	f := &finder{sel: sel, filter: filter}
	f.visit(root)
	return f.result
}

// FindBy searches the block and its descendants.
func (b *blockBase) FindBy(sel Selector, filter FilterFunc) []Node {
	return FindBy(b.self, sel, filter)
}

func (f *finder) visit(n Node) {
	if f.stopped || n == nil {
		return
	}
	if f.matches(n) {
		res := Accept
		if f.filter != nil {
			res = f.filter(n)
		}
		switch res {
		case Accept, Prune:
			f.result = append(f.result, n)
			if f.sel.ID != "" {
				f.stopped = true
				return
			}
			if res == Prune {
				return
			}
		case Skip:
			return
		case Stop:
			f.stopped = true
			return
		}
	} else if f.sel.ID != "" && n.ID() == f.sel.ID {
		// the id is unique, so nothing else can match
		f.stopped = true
		return
	}
	f.visitChildren(n)
}

func (f *finder) matches(n Node) bool {
	s := f.sel
	if s.Context != "" && n.Context() != s.Context {
		return false
	}
	if s.Style != "" {
		b, ok := n.(BlockNode)
		if !ok || b.Style() != s.Style {
			return false
		}
	}
	if s.Role != "" && !n.HasRole(s.Role) {
		return false
	}
	if s.ID != "" && n.ID() != s.ID {
		return false
	}
	return true
}

func (f *finder) visitChildren(n Node) {
	switch v := n.(type) {
	case *List:
		if v.context == ContextDlist {
			for _, e := range v.entries {
				for _, t := range e.Terms {
					f.visit(t)
				}
				if e.Description != nil {
					f.visit(e.Description)
				}
			}
			return
		}
	case *Table:
		for _, row := range slicesConcat(v.head, v.body, v.foot) {
			for _, c := range row {
				f.visit(c)
			}
		}
		return
	case *TableCell:
		if v.inner != nil && f.sel.TraverseDocuments {
			f.visit(v.inner)
		}
		return
	}
	if b, ok := n.(BlockNode); ok {
		for _, c := range b.Blocks() {
			if f.stopped {
				return
			}
			f.visit(c)
		}
	}
}
