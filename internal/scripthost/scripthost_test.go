package scripthost

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const page = `<!doctype html>
<html><body>
<a class="title" href="/a">First</a>
<a class="title" href="/b">Second</a>
</body></html>`

func TestExtractUsesDocumentSelect(t *testing.T) {
	path := writeScript(t, `
function extract(buf)
  local doc = parseHtml(buf)
  local sel = parseSelector("a.title")
  local iter = doc:select(sel)
  local entries = {}
  local el = iter()
  while el do
    table.insert(entries, { id = el:attr("href"), title = tostring(el), url = el:attr("href") })
    el = iter()
  end
  return entries
end
`)
	h := New(nil)
	s, err := h.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	entries, err := s.Extract(context.Background(), []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Title != "First" || entries[1].Title != "Second" {
		t.Fatalf("got %+v", entries)
	}
}

func TestExtractRootSelectRequiresNavigatingToAnElement(t *testing.T) {
	// doc:root() returns the document node, not <html>, so a script that
	// wants to call select() on a Node handle (rather than the Document
	// directly) must first walk to an element.
	path := writeScript(t, `
function extract(buf)
  local doc = parseHtml(buf)
  local root = doc:root()
  local html = root:firstChild()
  while html ~= nil and html:type() ~= "element" do
    html = html:nextSibling()
  end
  local sel = parseSelector("a.title")
  local iter = html:select(sel)
  local entries = {}
  local el = iter()
  while el do
    table.insert(entries, { id = el:attr("href"), title = tostring(el), url = el:attr("href") })
    el = iter()
  end
  return entries
end
`)
	h := New(nil)
	s, err := h.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	entries, err := s.Extract(context.Background(), []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestExtractSelectAcceptsRawString(t *testing.T) {
	// select() must accept a literal CSS string directly, not only a
	// pre-compiled Selector from parseSelector.
	path := writeScript(t, `
function extract(buf)
  local doc = parseHtml(buf)
  local iter = doc:select("a.title")
  local entries = {}
  local el = iter()
  while el do
    table.insert(entries, { id = el:attr("href"), title = tostring(el), url = el:attr("href") })
    el = iter()
  end
  return entries
end
`)
	h := New(nil)
	s, err := h.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	entries, err := s.Extract(context.Background(), []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestExtractElementSelectAcceptsRawString(t *testing.T) {
	path := writeScript(t, `
function extract(buf)
  local doc = parseHtml(buf)
  local root = doc:root()
  local html = root:firstChild()
  while html ~= nil and html:type() ~= "element" do
    html = html:nextSibling()
  end
  local iter = html:select("a.title")
  local entries = {}
  local el = iter()
  while el do
    table.insert(entries, { id = el:attr("href"), title = tostring(el), url = el:attr("href") })
    el = iter()
  end
  return entries
end
`)
	h := New(nil)
	s, err := h.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	entries, err := s.Extract(context.Background(), []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestRetainedDocumentSurvivesAcrossExtractCalls(t *testing.T) {
	// A script may cache a parsed document (or any node handle) in a global
	// and keep using it on later extract calls: the handle must still
	// reference the tree it was obtained from, even after later calls parse
	// other documents and Lua's collector has had a chance to run.
	path := writeScript(t, `
local saved = nil

function extract(buf)
  if saved == nil then
    saved = parseHtml(buf)
  end
  collectgarbage("collect")
  local iter = saved:select("a.title")
  local entries = {}
  local el = iter()
  while el do
    table.insert(entries, { id = el:attr("href"), title = tostring(el), url = el:attr("href") })
    el = iter()
  end
  return entries
end
`)
	h := New(nil)
	s, err := h.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	first, err := s.Extract(context.Background(), []byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("first call: got %d entries, want 2", len(first))
	}

	// The second body has no matching anchors; results must still come from
	// the retained first document.
	second, err := s.Extract(context.Background(), []byte(`<html><body><p>nothing here</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 2 || second[0].Title != "First" || second[1].Title != "Second" {
		t.Fatalf("retained document no longer matches its original tree: %+v", second)
	}
}

func TestExtractMissingFunction(t *testing.T) {
	path := writeScript(t, `local x = 1`)
	h := New(nil)
	s, err := h.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Extract(context.Background(), []byte(page)); err == nil {
		t.Fatal("expected an error for a script with no extract function")
	}
}
