package htmldom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// NodeType discriminates the kinds of node the DOM exposes, mirroring the
// HTML5 node variants: document, document-fragment, doctype, comment,
// text, element, and processing-instruction. golang.org/x/net/html folds
// processing instructions into bogus comments per the HTML5 parsing
// algorithm, so ProcessingInstructionNode is defined for API completeness
// but does not occur in trees produced by Parse.
type NodeType int

const (
	DocumentNode NodeType = iota
	DocumentFragmentNode
	DoctypeNode
	CommentNode
	TextNode
	ElementNode
	ProcessingInstructionNode
)

// Node is the common handle every tree position implements.
type Node interface {
	Type() NodeType
	Parent() Node
	PrevSibling() Node
	NextSibling() Node
	FirstChild() Node
	LastChild() Node
	ChildNodes() *NodeIter
	DescendantNodes() *NodeIter

	raw() *html.Node
	doc() *Document
}

// baseNode implements Node for every non-element variant (and is embedded
// by Element for the shared navigation methods).
type baseNode struct {
	document *Document
	n        *html.Node
}

func wrap(d *Document, n *html.Node) Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		return &Element{baseNode: baseNode{document: d, n: n}}
	}
	return &baseNode{document: d, n: n}
}

func (b *baseNode) raw() *html.Node { return b.n }
func (b *baseNode) doc() *Document  { return b.document }

func (b *baseNode) Type() NodeType {
	switch b.n.Type {
	case html.DocumentNode:
		return DocumentNode
	case html.DoctypeNode:
		return DoctypeNode
	case html.CommentNode:
		return CommentNode
	case html.TextNode:
		return TextNode
	case html.ElementNode:
		return ElementNode
	default:
		return DocumentFragmentNode
	}
}

func (b *baseNode) Parent() Node      { return wrap(b.document, b.n.Parent) }
func (b *baseNode) PrevSibling() Node { return wrap(b.document, b.n.PrevSibling) }
func (b *baseNode) NextSibling() Node { return wrap(b.document, b.n.NextSibling) }
func (b *baseNode) FirstChild() Node  { return wrap(b.document, b.n.FirstChild) }
func (b *baseNode) LastChild() Node   { return wrap(b.document, b.n.LastChild) }

func (b *baseNode) ChildNodes() *NodeIter {
	return newNodeIter(b.document, b.n.FirstChild, siblingAdvance)
}

func (b *baseNode) DescendantNodes() *NodeIter {
	return newPreOrderIter(b.document, b.n)
}

// Data returns the raw text for text/comment/doctype nodes, mirroring
// golang.org/x/net/html's Node.Data.
func Data(n Node) string {
	return n.raw().Data
}

// Render serializes n (and, for elements, its descendants) as HTML.
func Render(n Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n.raw())
	return buf.String()
}

// collectText concatenates descendant text nodes of n, in document order,
// separated by nothing (callers that want whitespace normalization do it
// themselves; this matches "text coercion... concatenates descendant text
// nodes in document order" literally).
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
