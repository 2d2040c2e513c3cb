package htmldom

import "golang.org/x/net/html"

// NodeIter is a single-pass, stateful iterator over Node values, matching
// the "stateful callable" contract the scripted extractor's host API binds
// to a scripting runtime: each call to Next advances the cursor.
type NodeIter struct {
	document *Document
	next     *html.Node
	advance  func(*html.Node) *html.Node
	stack    []*html.Node // used by pre-order descendant iteration only
}

func siblingAdvance(n *html.Node) *html.Node { return n.NextSibling }

func newNodeIter(d *Document, start *html.Node, advance func(*html.Node) *html.Node) *NodeIter {
	return &NodeIter{document: d, next: start, advance: advance}
}

func newPreOrderIter(d *Document, root *html.Node) *NodeIter {
	it := &NodeIter{document: d}
	for c := root.LastChild; c != nil; c = c.PrevSibling {
		it.stack = append(it.stack, c)
	}
	return it
}

// Next returns the next node and true, or (nil, false) once exhausted.
func (it *NodeIter) Next() (Node, bool) {
	if it.advance != nil {
		if it.next == nil {
			return nil, false
		}
		cur := it.next
		it.next = it.advance(cur)
		return wrap(it.document, cur), true
	}
	if len(it.stack) == 0 {
		return nil, false
	}
	n := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		it.stack = append(it.stack, c)
	}
	return wrap(it.document, n), true
}

// ElementIter is a single-pass, stateful iterator over *Element values.
type ElementIter struct {
	items []*Element
	pos   int
}

// Next returns the next element and true, or (nil, false) once exhausted.
func (it *ElementIter) Next() (*Element, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	e := it.items[it.pos]
	it.pos++
	return e, true
}

// StringIter is a single-pass, stateful iterator over strings.
type StringIter struct {
	items []string
	pos   int
}

// Next returns the next string and true, or ("", false) once exhausted.
func (it *StringIter) Next() (string, bool) {
	if it.pos >= len(it.items) {
		return "", false
	}
	s := it.items[it.pos]
	it.pos++
	return s, true
}

// Attr is a single attribute name/value pair.
type Attr struct {
	Name  string
	Value string
}

// AttrIter is a single-pass, stateful iterator over an element's attributes.
type AttrIter struct {
	attrs []html.Attribute
	pos   int
}

// Next returns the next attribute and true, or (Attr{}, false) once
// exhausted.
func (it *AttrIter) Next() (Attr, bool) {
	if it.pos >= len(it.attrs) {
		return Attr{}, false
	}
	a := it.attrs[it.pos]
	it.pos++
	return Attr{Name: a.Key, Value: a.Val}, true
}
