package bookings

import (
	"fmt"
	"strings"
	"time"
)

// naiveLayouts are accepted without an offset and read as clinic-local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStartTime parses an ISO-like timestamp. Values carrying an offset keep
// it; values without one are interpreted in loc.
func ParseStartTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM-DDTHH:MM[:SS])", ErrInvalidTime, raw)
}
