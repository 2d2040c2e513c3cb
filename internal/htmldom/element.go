package htmldom

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Element is a Node specialization for html.ElementNode, exposing tag name,
// attributes, class membership, and selector-filtered child/descendant
// iteration in addition to the common Node navigation methods.
type Element struct {
	baseNode
}

// TagName returns the element's tag name, lowercased per HTML parsing rules
// (golang.org/x/net/html already lowercases Data for element nodes).
func (e *Element) TagName() string {
	return e.n.Data
}

// Attr looks up an attribute by name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Attrs returns a stateful iterator over the element's attributes.
func (e *Element) Attrs() *AttrIter {
	return &AttrIter{attrs: e.n.Attr}
}

// HasClass reports whether name is one of the element's space-separated
// class tokens.
func (e *Element) HasClass(name string) bool {
	classes, _ := e.Attr("class")
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

// Classes returns a stateful iterator over the element's class tokens.
func (e *Element) Classes() *StringIter {
	classes, _ := e.Attr("class")
	return &StringIter{items: strings.Fields(classes)}
}

// Text returns a stateful iterator over descendant text nodes in document
// order.
func (e *Element) Text() *StringIter {
	var items []string
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			items = append(items, cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return &StringIter{items: items}
}

// ChildElements returns a stateful iterator over direct element children.
func (e *Element) ChildElements() *ElementIter {
	var els []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			els = append(els, &Element{baseNode{document: e.document, n: c}})
		}
	}
	return &ElementIter{items: els}
}

// DescendantElements returns a stateful iterator over element descendants
// in pre-order.
func (e *Element) DescendantElements() *ElementIter {
	var els []*Element
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				els = append(els, &Element{baseNode{document: e.document, n: c}})
			}
			walk(c)
		}
	}
	walk(e.n)
	return &ElementIter{items: els}
}

// Select returns a stateful iterator over descendant elements matching sel,
// in document order.
func (e *Element) Select(sel *Selector) *ElementIter {
	matches := cascadia.QueryAll(e.n, sel.compiled)
	els := make([]*Element, len(matches))
	for i, m := range matches {
		els[i] = &Element{baseNode{document: e.document, n: m}}
	}
	return &ElementIter{items: els}
}

// OuterHTML serializes the element itself and its descendants.
func (e *Element) OuterHTML() string {
	return Render(e)
}

// InnerHTML serializes only the element's children.
func (e *Element) InnerHTML() string {
	var sb strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(Render(wrap(e.document, c)))
	}
	return sb.String()
}

// String implements text coercion: concatenated descendant text in document
// order.
func (e *Element) String() string {
	return collectText(e.n)
}
