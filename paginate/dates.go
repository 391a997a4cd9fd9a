package paginate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOMillis is the timestamp layout the API accepts for start and end.
const ISOMillis = "2006-01-02T15:04:05.000Z"

var relativeDate = regexp.MustCompile(`^(\d+)([dwm])$`)

// localLayouts are accepted without a zone and read as local time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseDate turns "today", "yesterday", "7d", "2w", "1m", a calendar date or
// an RFC 3339 timestamp into an ISO-8601 UTC string. Relative values and
// calendar dates resolve to local midnight.
func ParseDate(input string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch lower {
	case "today":
		return format(midnight), nil
	case "yesterday":
		return format(midnight.AddDate(0, 0, -1)), nil
	}

	if m := relativeDate.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", invalidDate(input)
		}
		switch m[2] {
		case "d":
			return format(midnight.AddDate(0, 0, -n)), nil
		case "w":
			return format(midnight.AddDate(0, 0, -7*n)), nil
		default:
			return format(midnight.AddDate(0, -n, 0)), nil
		}
	}

	if t, err := time.ParseInLocation(time.DateOnly, trimmed, now.Location()); err == nil {
		return format(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return format(t), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, now.Location()); err == nil {
			return format(t), nil
		}
	}
	return "", invalidDate(input)
}

func format(t time.Time) string {
	return t.UTC().Format(ISOMillis)
}

func invalidDate(input string) error {
	return fmt.Errorf(
		"invalid date: %q. Use ISO 8601 (2024-01-15) or relative (7d, 2w, 1m, today, yesterday)",
		input,
	)
}
