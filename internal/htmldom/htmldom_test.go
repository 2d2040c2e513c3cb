package htmldom

import "testing"

const samplePage = `<!doctype html>
<html><body>
<div class="item"><a class="title" href="/a">First</a></div>
<div class="item"><a class="title" href="/b">Second</a></div>
</body></html>`

func TestParseAndSelect(t *testing.T) {
	doc, err := ParseBytes([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	sel, err := ParseSelector("a.title")
	if err != nil {
		t.Fatal(err)
	}

	root, ok := doc.Root().(*Element)
	if !ok {
		root = findHTMLElement(t, doc)
	}

	it := root.Select(sel)
	var got []string
	for {
		el, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, el.String())
	}
	if len(got) != 2 || got[0] != "First" || got[1] != "Second" {
		t.Fatalf("got %v", got)
	}
}

func findHTMLElement(t *testing.T, doc *Document) *Element {
	t.Helper()
	it := doc.Root().DescendantNodes()
	for {
		n, ok := it.Next()
		if !ok {
			t.Fatal("no html element found")
		}
		if el, ok := n.(*Element); ok && el.TagName() == "html" {
			return el
		}
	}
}

func TestDocumentSelect(t *testing.T) {
	doc, err := ParseBytes([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	sel, err := ParseSelector("a.title")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := doc.Root().(*Element); ok {
		t.Fatal("expected Root() of a parsed document to not be an *Element")
	}

	it := doc.Select(sel)
	var got []string
	for {
		el, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, el.String())
	}
	if len(got) != 2 || got[0] != "First" || got[1] != "Second" {
		t.Fatalf("got %v", got)
	}
}

func TestSelectorCompileError(t *testing.T) {
	if _, err := ParseSelector("###"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestAttrsAndClasses(t *testing.T) {
	doc, err := ParseBytes([]byte(`<a href="/x" class="a b"></a>`))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	sel, _ := ParseSelector("a")
	root := findHTMLElement(t, doc)
	it := root.Select(sel)
	el, ok := it.Next()
	if !ok {
		t.Fatal("expected one match")
	}
	if !el.HasClass("a") || !el.HasClass("b") || el.HasClass("c") {
		t.Fatalf("class membership wrong")
	}
	href, ok := el.Attr("href")
	if !ok || href != "/x" {
		t.Fatalf("attr lookup wrong: %q %v", href, ok)
	}
}

func TestDocumentRefCounting(t *testing.T) {
	doc, err := ParseBytes([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Refs() != 1 {
		t.Fatalf("expected 1 ref after Parse, got %d", doc.Refs())
	}
	doc.Hold()
	doc.Hold()
	if doc.Refs() != 3 {
		t.Fatalf("expected 3 refs, got %d", doc.Refs())
	}
	doc.Release()
	doc.Release()
	doc.Close()
	if doc.Refs() != 0 {
		t.Fatalf("expected 0 refs after releasing all shares, got %d", doc.Refs())
	}
}
