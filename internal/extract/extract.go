// Package extract turns a fetched HTML buffer into a normalized sequence of
// feed entries. Two backends implement the same Extractor capability: an
// XPath-driven one (xpath.go) and an embedded-Lua scripted one (script.go).
// Downstream components (the scheduler) depend only on the Extractor
// interface.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Entry is one normalized, transient syndication item produced by an
// extractor, before it is persisted.
type Entry struct {
	ID          string
	Title       string
	Description string
	URL         string
	Author      string
	Published   *time.Time
}

// Error is the semantic "Extract" error kind from the system's error
// handling design: an extractor produced invalid or missing required
// fields, or a script raised an error. It is always feed-update-aborting.
type Error struct {
	Feed string
	Err  error
}

func (e *Error) Error() string {
	if e.Feed != "" {
		return fmt.Sprintf("extract %s: %v", e.Feed, e.Err)
	}
	return fmt.Sprintf("extract: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError wraps err as an extraction failure.
func newError(feed string, format string, args ...any) *Error {
	return &Error{Feed: feed, Err: fmt.Errorf(format, args...)}
}

// wrapError wraps an existing error as an extraction failure.
func wrapError(feed string, err error) *Error {
	return &Error{Feed: feed, Err: err}
}

// IsExtractError reports whether err is (or wraps) an *Error.
func IsExtractError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Extractor is the single capability both extractor kinds implement: turn
// a page body plus its source URL into normalized entries, or fail.
type Extractor interface {
	Extract(ctx context.Context, body []byte, sourceURL *url.URL) ([]Entry, error)
}

// XPathConfig configures the XPath extractor (see xpath.go).
type XPathConfig struct {
	Entry         string
	ID            string
	Title         string
	Description   string
	URL           string
	Author        string
	PubDate       string
	PubDateFormat string
}

// ScriptConfig configures the scripted (Lua) extractor (see script.go).
type ScriptConfig struct {
	// Path is the absolute path to the Lua source, resolved by
	// internal/config against the config file's directory.
	Path string
}

// Config is the tagged union parsed from a feed's [feeds.<id>.extractor]
// table: exactly one of XPath or Script is set, discriminated by Kind.
type Config struct {
	Kind   string // "xpath" or "lua"
	XPath  *XPathConfig
	Script *ScriptConfig
}

// New builds the Extractor a feed's configuration describes.
func New(name string, cfg Config) (Extractor, error) {
	switch cfg.Kind {
	case "xpath":
		if cfg.XPath == nil {
			return nil, fmt.Errorf("extract: feed %s: kind=xpath requires an xpath config", name)
		}
		return newXPathExtractor(name, *cfg.XPath)
	case "lua":
		if cfg.Script == nil {
			return nil, fmt.Errorf("extract: feed %s: kind=lua requires a script config", name)
		}
		return newScriptExtractor(name, *cfg.Script)
	default:
		return nil, fmt.Errorf("extract: feed %s: unknown extractor kind %q", name, cfg.Kind)
	}
}
