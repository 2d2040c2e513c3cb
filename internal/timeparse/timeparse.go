// Package timeparse parses the duration and datetime strings that appear in
// feedmill's configuration and extraction rules.
//
// Durations accept either a bare non-negative integer (interpreted as
// seconds) or a Go duration string such as "1h30m". Datetimes are parsed
// against a caller-supplied layout (config's pub-date-format, defaulting to
// RFC 3339) and must carry timezone information.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoTimezone is returned when a parsed datetime carries no offset or zone
// name, which feedmill treats as an invalid publication date.
var ErrNoTimezone = errors.New("timeparse: datetime has no timezone")

// ParseDuration parses s as either a bare integer number of seconds or a Go
// duration string ("1h30m", "45s"). Empty string yields a zero Duration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("timeparse: negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("timeparse: invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeparse: negative duration %q", s)
	}
	return d, nil
}

// FormatDuration renders d as the canonical form ParseDuration accepts back:
// a bare integer count of seconds. This is the inverse required by the
// round-trip law over non-negative integer-second durations.
func FormatDuration(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

// DefaultDateLayout is used when a feed config omits pub-date-format.
const DefaultDateLayout = time.RFC3339

// ParseDateTime parses s against layout and requires the result to carry
// timezone information (an explicit offset or a named zone). An empty s
// means "no publication date" and returns ok=false with no error.
func ParseDateTime(s, layout string) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	if !layoutHasZoneVerb(layout) {
		return time.Time{}, false, ErrNoTimezone
	}
	parsed, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("timeparse: parse %q with layout %q: %w", s, layout, err)
	}
	return parsed, true, nil
}

// layoutHasZoneVerb reports whether layout contains a reference-time verb
// that carries timezone information (numeric offset or named zone).
func layoutHasZoneVerb(layout string) bool {
	zoneVerbs := []string{"Z07:00", "Z0700", "-07:00", "-0700", "-07", "MST"}
	for _, v := range zoneVerbs {
		if strings.Contains(layout, v) {
			return true
		}
	}
	return false
}
