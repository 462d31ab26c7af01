package core

import (
	"fmt"
	"strings"
	"time"
)

// ParseRFC2822 parses an email Date header, returning the moment and the
// sender's UTC offset in seconds. The offset is what keeps the dashboard's
// day buckets aligned with the user's calendar.
func ParseRFC2822(s string) (time.Time, int, error) {
	// Some emails carry a trailing zone name in parens, e.g. "(EST)".
	// That doesn't conform to the standard at worst and is obsolete at
	// best; chop it off and parse the rest.
	if i := strings.Index(s, "("); i != -1 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	t, err := time.Parse("Mon, 2 Jan 2006 15:04:05 -0700", s)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parse rfc2822 date %q: %w", s, err)
	}

	_, offset := t.Zone()
	return t, offset, nil
}
