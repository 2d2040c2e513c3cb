package extract

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"feedmill/internal/scripthost"
	"feedmill/internal/urlresolve"
)

// scriptExtractor runs a feed's Lua script through internal/scripthost. The
// script is loaded once, at construction time, and its extract() function
// is called once per fetch.
type scriptExtractor struct {
	name   string
	script *scripthost.Script
}

func newScriptExtractor(name string, cfg ScriptConfig) (*scriptExtractor, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, newError(name, "lua extractor requires a non-empty script path")
	}
	host := scripthost.New(slog.Default().With("feed", name, "extractor", "lua"))
	script, err := host.Load(cfg.Path)
	if err != nil {
		return nil, wrapError(name, err)
	}
	return &scriptExtractor{name: name, script: script}, nil
}

func (x *scriptExtractor) Extract(ctx context.Context, body []byte, sourceURL *url.URL) ([]Entry, error) {
	raw, err := x.script.Extract(ctx, body)
	if err != nil {
		return nil, wrapError(x.name, err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		resolved, err := urlresolve.Resolve(sourceURL, r.URL)
		if err != nil {
			return nil, newError(x.name, "entry %d: %v", i, err)
		}
		entries = append(entries, Entry{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			URL:         resolved,
			Author:      r.Author,
			Published:   r.Published,
		})
	}
	return entries, nil
}

// Close releases the script's Lua state.
func (x *scriptExtractor) Close() {
	x.script.Close()
}
