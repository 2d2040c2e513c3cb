// Package urlresolve resolves entry URLs discovered during extraction
// against the page they were extracted from.
package urlresolve

import (
	"fmt"
	"net/url"
)

// Resolve parses raw and, if it is relative, resolves it against base.
// An empty raw value, one that fails to parse, or a relative one with no
// base is reported as an error so callers can surface it as an extraction
// failure rather than silently producing a broken feed entry.
func Resolve(base *url.URL, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("urlresolve: empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("urlresolve: parse %q: %w", raw, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == nil {
		return "", fmt.Errorf("urlresolve: relative url %q with no base", raw)
	}
	return base.ResolveReference(u).String(), nil
}
