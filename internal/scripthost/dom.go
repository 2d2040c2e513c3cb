package scripthost

import (
	"runtime"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"feedmill/internal/htmldom"
)

const (
	documentTypeName = "Document"
	nodeTypeName     = "Node"
	selectorTypeName = "Selector"
)

// docShare holds one extra reference-count share of a *htmldom.Document on
// behalf of something that isn't itself a node handle (chiefly a live
// iterator closure). release is idempotent; the finalizer is a backstop
// for an iterator dropped before exhaustion.
type docShare struct {
	doc  *htmldom.Document
	once sync.Once
}

func newDocShare(doc *htmldom.Document) *docShare {
	doc.Hold()
	s := &docShare{doc: doc}
	runtime.SetFinalizer(s, (*docShare).release)
	return s
}

func (s *docShare) release() {
	s.once.Do(func() {
		runtime.SetFinalizer(s, nil)
		s.doc.Release()
	})
}

// nodeHandle is the Value of every Node userdata: the wrapped DOM node plus
// the Document it was produced from, so navigation methods can wrap their
// results without needing htmldom to expose an unexported node-to-document
// accessor. It carries one share of doc, released by a finalizer.
type nodeHandle struct {
	doc *htmldom.Document
	n   htmldom.Node
}

// docHandle is the Value of every Document userdata.
type docHandle struct {
	doc *htmldom.Document
}

func registerDocumentType(L *lua.LState) {
	mt := L.NewTypeMetatable(documentTypeName)
	methods := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"root":   docRoot,
		"select": docSelect,
	})
	L.SetField(mt, "__index", methods)
}

func checkDocument(L *lua.LState, n int) *docHandle {
	ud := L.CheckUserData(n)
	h, ok := ud.Value.(*docHandle)
	if !ok {
		L.ArgError(n, "Document expected")
		return nil
	}
	return h
}

func docRoot(L *lua.LState) int {
	h := checkDocument(L, 1)
	L.Push(wrapNode(L, h.doc, h.doc.Root()))
	return 1
}

// docSelect matches elements anywhere in the document, so scripts don't have
// to first navigate from root() to an element before calling select: the
// parse tree's root is the document node itself, not <html>.
func docSelect(L *lua.LState) int {
	h := checkDocument(L, 1)
	sel := checkSelectorArg(L, 2)
	L.Push(makeElementIterFunction(L, h.doc, h.doc.Select(sel)))
	return 1
}

// checkSelectorArg accepts either a precompiled Selector userdata (from
// parseSelector) or a raw CSS string, compiled inline, matching the host
// API's documented "either form" selector contract.
func checkSelectorArg(L *lua.LState, n int) *htmldom.Selector {
	switch v := L.Get(n).(type) {
	case lua.LString:
		sel, err := htmldom.ParseSelector(string(v))
		if err != nil {
			L.RaiseError("select: %v", err)
			return nil
		}
		return sel
	case *lua.LUserData:
		sel, ok := v.Value.(*htmldom.Selector)
		if !ok {
			L.ArgError(n, "Selector or string expected")
			return nil
		}
		return sel
	default:
		L.ArgError(n, "Selector or string expected")
		return nil
	}
}

// luaParseHTML implements the parseHtml(bufOrString) host function.
func luaParseHTML(L *lua.LState) int {
	var body []byte
	switch v := L.Get(1).(type) {
	case lua.LString:
		body = []byte(string(v))
	case *lua.LUserData:
		b, ok := v.Value.([]byte)
		if !ok {
			L.ArgError(1, "expected a string or SourceBuffer")
			return 0
		}
		body = b
	default:
		L.ArgError(1, "expected a string or SourceBuffer")
		return 0
	}

	doc, err := htmldom.ParseBytes(body)
	if err != nil {
		L.RaiseError("parseHtml: %v", err)
		return 0
	}

	h := &docHandle{doc: doc}
	runtime.SetFinalizer(h, func(h *docHandle) { h.doc.Release() })
	ud := L.NewUserData()
	ud.Value = h
	ud.Metatable = L.GetTypeMetatable(documentTypeName)
	L.Push(ud)
	return 1
}

func registerNodeType(L *lua.LState) {
	mt := L.NewTypeMetatable(nodeTypeName)
	methods := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"type":               nodeKind,
		"parent":             nodeNav(func(n htmldom.Node) htmldom.Node { return n.Parent() }),
		"prevSibling":        nodeNav(func(n htmldom.Node) htmldom.Node { return n.PrevSibling() }),
		"nextSibling":        nodeNav(func(n htmldom.Node) htmldom.Node { return n.NextSibling() }),
		"firstChild":         nodeNav(func(n htmldom.Node) htmldom.Node { return n.FirstChild() }),
		"lastChild":          nodeNav(func(n htmldom.Node) htmldom.Node { return n.LastChild() }),
		"childNodes":         nodeChildNodes,
		"descendantNodes":    nodeDescendantNodes,
		"data":               nodeData,
		"tagName":            elementTagName,
		"attr":               elementAttr,
		"attrs":              elementAttrs,
		"hasClass":           elementHasClass,
		"classes":            elementClasses,
		"text":               elementText,
		"childElements":      elementChildElements,
		"descendantElements": elementDescendantElements,
		"select":             elementSelect,
		"outerHTML":          elementOuterHTML,
		"innerHTML":          elementInnerHTML,
	})
	L.SetField(mt, "__index", methods)
	L.SetField(mt, "__tostring", L.NewFunction(nodeToString))
}

func checkNode(L *lua.LState, n int) *nodeHandle {
	ud := L.CheckUserData(n)
	h, ok := ud.Value.(*nodeHandle)
	if !ok {
		L.ArgError(n, "Node expected")
		return nil
	}
	return h
}

// checkElement asserts the node at n is an element, raising a Lua error
// otherwise (e.g. calling tagName() on a text node).
func checkElement(L *lua.LState, n int) (*nodeHandle, *htmldom.Element) {
	h := checkNode(L, n)
	el, ok := h.n.(*htmldom.Element)
	if !ok {
		L.RaiseError("node is not an element")
		return h, nil
	}
	return h, el
}

// wrapNode wraps n as a Node userdata, taking one share of doc. n may be
// nil (end of a navigation chain), in which case Lua nil is returned.
func wrapNode(L *lua.LState, doc *htmldom.Document, n htmldom.Node) lua.LValue {
	if n == nil {
		return lua.LNil
	}
	doc.Hold()
	h := &nodeHandle{doc: doc, n: n}
	runtime.SetFinalizer(h, func(h *nodeHandle) { h.doc.Release() })
	ud := L.NewUserData()
	ud.Value = h
	ud.Metatable = L.GetTypeMetatable(nodeTypeName)
	return ud
}

func nodeNav(proj func(htmldom.Node) htmldom.Node) lua.LGFunction {
	return func(L *lua.LState) int {
		h := checkNode(L, 1)
		L.Push(wrapNode(L, h.doc, proj(h.n)))
		return 1
	}
}

func nodeKind(L *lua.LState) int {
	h := checkNode(L, 1)
	var s string
	switch h.n.Type() {
	case htmldom.DocumentNode:
		s = "document"
	case htmldom.DocumentFragmentNode:
		s = "fragment"
	case htmldom.DoctypeNode:
		s = "doctype"
	case htmldom.CommentNode:
		s = "comment"
	case htmldom.TextNode:
		s = "text"
	case htmldom.ElementNode:
		s = "element"
	default:
		s = "processing-instruction"
	}
	L.Push(lua.LString(s))
	return 1
}

func nodeData(L *lua.LState) int {
	h := checkNode(L, 1)
	L.Push(lua.LString(htmldom.Data(h.n)))
	return 1
}

func nodeToString(L *lua.LState) int {
	h := checkNode(L, 1)
	if el, ok := h.n.(*htmldom.Element); ok {
		L.Push(lua.LString(el.String()))
		return 1
	}
	L.Push(lua.LString(htmldom.Data(h.n)))
	return 1
}

func nodeChildNodes(L *lua.LState) int {
	h := checkNode(L, 1)
	L.Push(makeNodeIterFunction(L, h.doc, h.n.ChildNodes()))
	return 1
}

func nodeDescendantNodes(L *lua.LState) int {
	h := checkNode(L, 1)
	L.Push(makeNodeIterFunction(L, h.doc, h.n.DescendantNodes()))
	return 1
}

func elementTagName(L *lua.LState) int {
	_, el := checkElement(L, 1)
	L.Push(lua.LString(el.TagName()))
	return 1
}

func elementAttr(L *lua.LState) int {
	_, el := checkElement(L, 1)
	name := L.CheckString(2)
	v, ok := el.Attr(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func elementAttrs(L *lua.LState) int {
	_, el := checkElement(L, 1)
	it := el.Attrs()
	L.Push(L.NewFunction(func(L *lua.LState) int {
		a, ok := it.Next()
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(a.Name))
		L.Push(lua.LString(a.Value))
		return 2
	}))
	return 1
}

func elementHasClass(L *lua.LState) int {
	_, el := checkElement(L, 1)
	L.Push(lua.LBool(el.HasClass(L.CheckString(2))))
	return 1
}

func elementClasses(L *lua.LState) int {
	_, el := checkElement(L, 1)
	L.Push(makeStringIterFunction(L, el.Classes()))
	return 1
}

func elementText(L *lua.LState) int {
	_, el := checkElement(L, 1)
	L.Push(makeStringIterFunction(L, el.Text()))
	return 1
}

func elementChildElements(L *lua.LState) int {
	h, el := checkElement(L, 1)
	L.Push(makeElementIterFunction(L, h.doc, el.ChildElements()))
	return 1
}

func elementDescendantElements(L *lua.LState) int {
	h, el := checkElement(L, 1)
	L.Push(makeElementIterFunction(L, h.doc, el.DescendantElements()))
	return 1
}

func elementSelect(L *lua.LState) int {
	h, el := checkElement(L, 1)
	sel := checkSelectorArg(L, 2)
	L.Push(makeElementIterFunction(L, h.doc, el.Select(sel)))
	return 1
}

func elementOuterHTML(L *lua.LState) int {
	_, el := checkElement(L, 1)
	L.Push(lua.LString(el.OuterHTML()))
	return 1
}

func elementInnerHTML(L *lua.LState) int {
	_, el := checkElement(L, 1)
	L.Push(lua.LString(el.InnerHTML()))
	return 1
}

func makeStringIterFunction(L *lua.LState, it *htmldom.StringIter) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		s, ok := it.Next()
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(s))
		return 1
	})
}

func makeNodeIterFunction(L *lua.LState, doc *htmldom.Document, it *htmldom.NodeIter) *lua.LFunction {
	share := newDocShare(doc)
	return L.NewFunction(func(L *lua.LState) int {
		n, ok := it.Next()
		if !ok {
			share.release()
			L.Push(lua.LNil)
			return 1
		}
		L.Push(wrapNode(L, doc, n))
		return 1
	})
}

func makeElementIterFunction(L *lua.LState, doc *htmldom.Document, it *htmldom.ElementIter) *lua.LFunction {
	share := newDocShare(doc)
	return L.NewFunction(func(L *lua.LState) int {
		el, ok := it.Next()
		if !ok {
			share.release()
			L.Push(lua.LNil)
			return 1
		}
		L.Push(wrapNode(L, doc, el))
		return 1
	})
}

func registerSelectorType(L *lua.LState) {
	L.NewTypeMetatable(selectorTypeName)
}

// luaParseSelector implements the parseSelector(css) host function.
func luaParseSelector(L *lua.LState) int {
	query := L.CheckString(1)
	sel, err := htmldom.ParseSelector(query)
	if err != nil {
		L.RaiseError("parseSelector: %v", err)
		return 0
	}
	ud := L.NewUserData()
	ud.Value = sel
	ud.Metatable = L.GetTypeMetatable(selectorTypeName)
	L.Push(ud)
	return 1
}

func registerSourceBuffer(L *lua.LState) {
	mt := L.NewTypeMetatable(sourceBufferTypeName)
	L.SetField(mt, "__len", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(len(checkSourceBuffer(L, 1))))
		return 1
	}))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(string(checkSourceBuffer(L, 1))))
		return 1
	}))
}

const sourceBufferTypeName = "SourceBuffer"

func newSourceBuffer(L *lua.LState, body []byte) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = body
	ud.Metatable = L.GetTypeMetatable(sourceBufferTypeName)
	return ud
}

func checkSourceBuffer(L *lua.LState, n int) []byte {
	ud := L.CheckUserData(n)
	b, ok := ud.Value.([]byte)
	if !ok {
		L.ArgError(n, "SourceBuffer expected")
		return nil
	}
	return b
}
