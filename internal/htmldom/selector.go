package htmldom

import "github.com/andybalholm/cascadia"

// Selector is a compiled CSS selector group, reusable across documents.
type Selector struct {
	compiled cascadia.SelectorGroup
}

// ParseSelector compiles a CSS selector string (comma-separated groups
// allowed). Compilation failures are returned to the caller rather than
// panicking, since selector strings commonly come from user-supplied feed
// configuration or scripts.
func ParseSelector(query string) (*Selector, error) {
	sel, err := cascadia.ParseGroup(query)
	if err != nil {
		return nil, err
	}
	return &Selector{compiled: sel}, nil
}
