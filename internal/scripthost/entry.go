package scripthost

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// decodeEntry reads one returned entry table, matching the field set the
// scripted extractor contract defines: id/title/url required and
// non-empty, description/author optional, pubDate an optional table of
// integer date/time fields plus a zone.
func decodeEntry(L *lua.LState, t *lua.LTable) (Entry, error) {
	id, ok := fieldString(L, t, "id")
	if !ok || id == "" {
		return Entry{}, fmt.Errorf("id is required and must be a non-empty string")
	}
	title, ok := fieldString(L, t, "title")
	if !ok || title == "" {
		return Entry{}, fmt.Errorf("title is required and must be a non-empty string")
	}
	description, _ := fieldString(L, t, "description")
	rawURL, ok := fieldString(L, t, "url")
	if !ok || rawURL == "" {
		return Entry{}, fmt.Errorf("url is required and must be a non-empty string")
	}
	author, _ := fieldString(L, t, "author")

	var published *time.Time
	pd := t.RawGetString("pubDate")
	if pd != lua.LNil {
		pt, ok := pd.(*lua.LTable)
		if !ok {
			return Entry{}, fmt.Errorf("pubDate must be a table")
		}
		tm, err := decodePubDate(pt)
		if err != nil {
			return Entry{}, fmt.Errorf("pubDate: %w", err)
		}
		published = &tm
	}

	return Entry{
		ID:          id,
		Title:       title,
		Description: description,
		URL:         rawURL,
		Author:      author,
		Published:   published,
	}, nil
}

// fieldString reads t[field] and coerces it to a string the way Lua's
// tostring() would (honoring a __tostring metamethod on tables/userdata),
// matching the host contract's "string, number, or table/userdata with
// __tostring" field rule. The bool result is false only when the field is
// absent (nil).
func fieldString(L *lua.LState, t *lua.LTable, field string) (string, bool) {
	v := t.RawGetString(field)
	if v == lua.LNil {
		return "", false
	}
	return L.ToStringMeta(v).String(), true
}

func decodePubDate(t *lua.LTable) (time.Time, error) {
	year, ok := fieldInt(t, "year")
	if !ok {
		return time.Time{}, fmt.Errorf("year is required")
	}
	month, ok := fieldInt(t, "month")
	if !ok {
		return time.Time{}, fmt.Errorf("month is required")
	}
	day, ok := fieldInt(t, "day")
	if !ok {
		return time.Time{}, fmt.Errorf("day is required")
	}
	hour, ok := fieldInt(t, "hour")
	if !ok {
		return time.Time{}, fmt.Errorf("hour is required")
	}
	minute, ok := fieldInt(t, "minute")
	if !ok {
		return time.Time{}, fmt.Errorf("minute is required")
	}
	second, ok := fieldInt(t, "second")
	if !ok {
		return time.Time{}, fmt.Errorf("second is required")
	}

	// tz takes priority over utcOffset when both are present.
	if tz, ok := t.RawGetString("tz").(lua.LString); ok && string(tz) != "" {
		loc, err := time.LoadLocation(string(tz))
		if err != nil {
			return time.Time{}, fmt.Errorf("tz %q: %w", string(tz), err)
		}
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
	}

	// utcOffset is minutes from UTC, not seconds: time.FixedZone wants seconds.
	if off, ok := fieldInt(t, "utcOffset"); ok {
		loc := time.FixedZone("", off*60)
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("requires a tz or utcOffset field; a date/time with no zone is rejected")
}

func fieldInt(t *lua.LTable, field string) (int, bool) {
	n, ok := t.RawGetString(field).(lua.LNumber)
	if !ok {
		return 0, false
	}
	return int(n), true
}
