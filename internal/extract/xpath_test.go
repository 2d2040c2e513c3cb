package extract

import (
	"context"
	"net/url"
	"testing"
)

const hnSamplePage = `<!doctype html>
<html><body>
<table>
<tr class="athing" id="111"><td><span class="titleline"><a href="https://example.com/a">First Story</a></span></td></tr>
<tr class="athing" id="222"><td><span class="titleline"><a href="/relative-b">Second Story</a></span></td></tr>
</table>
</body></html>`

func hnConfig() XPathConfig {
	return XPathConfig{
		Entry:       "//tr[@class='athing']",
		ID:          "@id",
		Title:       ".//span[@class='titleline']/a",
		Description: "''",
		URL:         ".//span[@class='titleline']/a/@href",
	}
}

func TestXPathExtractorBasic(t *testing.T) {
	x, err := newXPathExtractor("hn", hnConfig())
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse("https://news.ycombinator.com/")
	entries, err := x.Extract(context.Background(), []byte(hnSamplePage), base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "111" || entries[0].Title != "First Story" || entries[0].URL != "https://example.com/a" {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	if entries[1].ID != "222" || entries[1].URL != "https://news.ycombinator.com/relative-b" {
		t.Fatalf("entry 1 = %+v", entries[1])
	}
}

func TestXPathExtractorEmptyIDFails(t *testing.T) {
	cfg := hnConfig()
	cfg.ID = "@missing-attr"
	x, err := newXPathExtractor("hn", cfg)
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse("https://news.ycombinator.com/")
	if _, err := x.Extract(context.Background(), []byte(hnSamplePage), base); err == nil {
		t.Fatal("expected an extract error for an empty id")
	} else if !IsExtractError(err) {
		t.Fatalf("expected an *Error, got %T: %v", err, err)
	}
}

func TestXPathExtractorRequiresDescriptionExpression(t *testing.T) {
	cfg := hnConfig()
	cfg.Description = ""
	if _, err := newXPathExtractor("hn", cfg); err == nil {
		t.Fatal("expected a construction error for a missing description expression")
	}
}

func TestXPathExtractorRequiresEntryExpression(t *testing.T) {
	cfg := hnConfig()
	cfg.Entry = ""
	if _, err := newXPathExtractor("hn", cfg); err == nil {
		t.Fatal("expected a construction error for an empty entry expression")
	}
}

func TestXPathExtractorInvalidXPathRejectedAtConstruction(t *testing.T) {
	cfg := hnConfig()
	cfg.Title = "///not valid xpath((("
	if _, err := newXPathExtractor("hn", cfg); err == nil {
		t.Fatal("expected a compile error for an invalid xpath expression")
	}
}

func TestXPathExtractorPubDateRequiresTimezone(t *testing.T) {
	page := `<html><body><table><tr class="athing" id="1"><td><span class="titleline"><a href="/a">T</a></span><span class="pub">2024-01-02 15:04:05</span></td></tr></table></body></html>`
	cfg := hnConfig()
	cfg.PubDate = ".//span[@class='pub']"
	cfg.PubDateFormat = "2006-01-02 15:04:05"
	x, err := newXPathExtractor("hn", cfg)
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse("https://news.ycombinator.com/")
	if _, err := x.Extract(context.Background(), []byte(page), base); err == nil {
		t.Fatal("expected an extract error for a pub-date with no timezone")
	}
}
