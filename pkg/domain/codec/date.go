package codec

import (
	"strings"
	"time"
)

const (
	// StorageLayout is the date layout written into attribute values.
	StorageLayout = "2006-01-02"
	// DisplayLayout is used for read-only output only; it is never parsed.
	DisplayLayout = "Jan 2, 2006"
)

// ParseDate parses a stored date. It returns false for empty or unparseable
// input. Values carrying a time suffix (e.g. RFC 3339) are truncated to their
// calendar date.
func ParseDate(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(StorageLayout, s)
	if err != nil && len(s) > len(StorageLayout) {
		d, err = time.Parse(StorageLayout, s[:len(StorageLayout)])
	}
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// FormatDate renders a date in storage layout. The zero time renders empty.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return NormalizeDate(d).Format(StorageLayout)
}

// DisplayDate renders a date for humans.
func DisplayDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return NormalizeDate(d).Format(DisplayLayout)
}

// NormalizeDate drops the clock part of t, keeping its calendar date in its
// own location, and returns that date at UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
