package registry

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first numeric forms come before
// month-first ones since the registries that use them are European.
var dateLayouts = []string{ //nolint: gochecknoglobals
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.0Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"20060102",
	"02-Jan-2006 15:04:05 MST",
	"02-Jan-2006 15:04:05",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-January-2006",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2 January 2006",
	"January 2 2006",
	"January 02 2006",
	"Jan 2 2006",
	"Jan 02 2006",
	"Mon Jan 2 15:04:05 MST 2006",
	"Mon Jan 02 2006",
	"2006-Jan-02",
}

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*$`)       //nolint: gochecknoglobals
	datePrefix    = regexp.MustCompile(`(?i)^(before|after)\s+`) //nolint: gochecknoglobals
)

// ParseDate parses the date formats registries are known to use and returns
// the instant in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = parenthetical.ReplaceAllString(s, "")
	s = datePrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSuffix(s, " UTC")
	s = strings.TrimSuffix(s, " GMT")
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// ParseDatePtr is ParseDate returning nil on failure.
func ParseDatePtr(s string) *time.Time {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}

	return &t
}
