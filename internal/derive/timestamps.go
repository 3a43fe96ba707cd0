package derive

import (
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FromUnix converts gateway epoch seconds into UTC. Zero stays the zero time.
func FromUnix(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

// FromUnixPtr is FromUnix returning nil for unset values.
func FromUnixPtr(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := FromUnix(seconds)
	return &t
}

// ParseTimestamp accepts RFC3339 variants, plain dates, and epoch seconds or
// milliseconds. The result is always UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		// 13 digits covers milliseconds until the year 2286.
		if len(raw) >= 13 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
