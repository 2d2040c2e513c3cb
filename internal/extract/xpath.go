package extract

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"feedmill/internal/timeparse"
	"feedmill/internal/urlresolve"
)

// xpathExtractor evaluates a fixed set of XPath expressions against a
// parsed HTML document: one expression yields the entry node-set, and six
// more are evaluated relative to each entry node.
type xpathExtractor struct {
	name   string
	cfg    XPathConfig
	layout string
}

func newXPathExtractor(name string, cfg XPathConfig) (*xpathExtractor, error) {
	if strings.TrimSpace(cfg.Entry) == "" {
		return nil, newError(name, "xpath extractor requires a non-empty entry expression")
	}
	if strings.TrimSpace(cfg.ID) == "" || strings.TrimSpace(cfg.Title) == "" {
		return nil, newError(name, "xpath extractor requires non-empty id and title expressions")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, newError(name, "xpath extractor requires a non-empty url expression")
	}
	// A description expression is required even though its value may
	// evaluate to ""; a feed with nothing to say uses the literal "''".
	if strings.TrimSpace(cfg.Description) == "" {
		return nil, newError(name, "xpath extractor requires a description expression")
	}
	for _, expr := range []string{cfg.Entry, cfg.ID, cfg.Title, cfg.Description, cfg.URL, cfg.Author, cfg.PubDate} {
		if expr == "" {
			continue
		}
		if _, err := xpath.Compile(expr); err != nil {
			return nil, newError(name, "invalid xpath %q: %v", expr, err)
		}
	}
	layout := cfg.PubDateFormat
	if layout == "" {
		layout = timeparse.DefaultDateLayout
	}
	return &xpathExtractor{name: name, cfg: cfg, layout: layout}, nil
}

func (x *xpathExtractor) Extract(ctx context.Context, body []byte, sourceURL *url.URL) ([]Entry, error) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(x.name, err)
	}

	entryNodes, err := htmlquery.QueryAll(root, x.cfg.Entry)
	if err != nil {
		return nil, newError(x.name, "entry xpath %q: %v", x.cfg.Entry, err)
	}

	entries := make([]Entry, 0, len(entryNodes))
	for _, en := range entryNodes {
		entry, err := x.extractOne(en, sourceURL)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (x *xpathExtractor) extractOne(en *html.Node, sourceURL *url.URL) (Entry, error) {
	id, err := stringValue(en, x.cfg.ID)
	if err != nil {
		return Entry{}, newError(x.name, "id xpath: %v", err)
	}
	if id == "" {
		return Entry{}, newError(x.name, "id evaluated to empty string")
	}

	title, err := stringValue(en, x.cfg.Title)
	if err != nil {
		return Entry{}, newError(x.name, "title xpath: %v", err)
	}
	if title == "" {
		return Entry{}, newError(x.name, "title evaluated to empty string")
	}

	description, err := stringValue(en, x.cfg.Description)
	if err != nil {
		return Entry{}, newError(x.name, "description xpath: %v", err)
	}

	rawURL, err := stringValue(en, x.cfg.URL)
	if err != nil {
		return Entry{}, newError(x.name, "url xpath: %v", err)
	}
	resolvedURL, err := urlresolve.Resolve(sourceURL, rawURL)
	if err != nil {
		return Entry{}, wrapError(x.name, err)
	}

	var author string
	if x.cfg.Author != "" {
		author, err = stringValue(en, x.cfg.Author)
		if err != nil {
			return Entry{}, newError(x.name, "author xpath: %v", err)
		}
	}

	var published *time.Time
	if x.cfg.PubDate != "" {
		raw, err := stringValue(en, x.cfg.PubDate)
		if err != nil {
			return Entry{}, newError(x.name, "pub-date xpath: %v", err)
		}
		t, ok, err := timeparse.ParseDateTime(raw, x.layout)
		if err != nil {
			return Entry{}, wrapError(x.name, err)
		}
		if ok {
			published = &t
		}
	}

	return Entry{
		ID:          id,
		Title:       title,
		Description: description,
		URL:         resolvedURL,
		Author:      author,
		Published:   published,
	}, nil
}

// stringValue evaluates expr relative to ctx and returns the string-value
// of the resulting node-set: the string-values of each matched node,
// concatenated in document order. An empty expr evaluates to "".
func stringValue(ctx *html.Node, expr string) (string, error) {
	if expr == "" {
		return "", nil
	}
	nodes, err := htmlquery.QueryAll(ctx, expr)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(htmlquery.InnerText(n))
	}
	return sb.String(), nil
}
