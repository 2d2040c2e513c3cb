// Package htmldom wraps golang.org/x/net/html into a navigable DOM with
// CSS-selector support (via andybalholm/cascadia), shared ownership across
// node handles, and the iterator shapes the scripted extractor's host API
// binds to a scripting runtime.
//
// Parsing is permissive: any byte sequence parses to a well-formed tree,
// matching the HTML5 error-recovery rules golang.org/x/net/html already
// implements.
package htmldom

import (
	"bytes"
	"io"
	"sync/atomic"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document owns a parsed HTML tree and a share count, recorded in refs; the
// document is logically alive as long as refs > 0. Node/Element handles
// created by this package do not take shares themselves: callers that need
// a handle to keep the document alive call Hold and Release, which is what
// the scripted extractor's host bindings do for every script-visible node
// (see internal/scripthost). Go's garbage collector is what actually
// reclaims the underlying tree. Tests assert the count returns to zero once
// every share, including the one Parse creates, is released.
type Document struct {
	root *html.Node
	refs int64
}

// Parse parses r into a new Document. The returned Document starts with a
// single implicit share, released by calling Close (native Go callers that
// never hand nodes across the script boundary can simply let the Document
// be garbage collected without calling Close or Hold/Release at all).
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, refs: 1}, nil
}

// ParseBytes parses a raw HTML buffer.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// Root returns the document's root node. Note that this is the parse
// tree's document node, not the <html> element: golang.org/x/net/html.Parse
// always returns an html.DocumentNode as the root, with <html> as its first
// element child. Callers that need the document's matching elements
// regardless of this distinction should use Select rather than
// Root().(*Element).Select, which only works once a caller has already
// navigated down to an element.
func (d *Document) Root() Node {
	return wrap(d, d.root)
}

// Select returns a stateful iterator over every element in the document
// matching sel, in document order. Unlike Element.Select, it walks from the
// parse tree's actual root rather than requiring the caller to first locate
// an element node, mirroring the top-level Find a caller gets from
// goquery's *Document rather than having to drill into *Selection first.
func (d *Document) Select(sel *Selector) *ElementIter {
	matches := cascadia.QueryAll(d.root, sel.compiled)
	els := make([]*Element, len(matches))
	for i, m := range matches {
		els[i] = &Element{baseNode{document: d, n: m}}
	}
	return &ElementIter{items: els}
}

// Hold increments the document's share count and returns d, so callers can
// write doc.Hold() at the point a new handle is created.
func (d *Document) Hold() *Document {
	atomic.AddInt64(&d.refs, 1)
	return d
}

// Release decrements the share count. It is safe to call more times than
// Hold was called in absolute terms only in that it will not panic, but
// doing so indicates a bookkeeping bug in the caller and Refs() will go
// negative.
func (d *Document) Release() {
	atomic.AddInt64(&d.refs, -1)
}

// Refs reports the current share count, chiefly for tests.
func (d *Document) Refs() int64 {
	return atomic.LoadInt64(&d.refs)
}

// Close releases the implicit share Parse created.
func (d *Document) Close() {
	d.Release()
}
