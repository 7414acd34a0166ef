package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PKT is the site's local time. Dates shown on the site are relative to it.
var PKT = time.FixedZone("PKT", 5*60*60)

// DateLayout renders as DD-Mon-YY
const DateLayout = "02-Jan-06"

// Now returns the current instant in PKT
func Now() time.Time {
	return time.Now().In(PKT)
}

// Placeholder values the site and the worklist use for "nothing here"
var emptySentinels = map[string]struct{}{
	"no city":         {},
	"not set":         {},
	"no set":          {},
	"[no posts]":      {},
	"[no post url]":   {},
	"[error]":         {},
	"n/a":             {},
	"none":            {},
	"null":            {},
	"no age":          {},
	"no gender":       {},
	"no followers":    {},
	"not available":   {},
	"[not available]": {},
}

var spaceRun = regexp.MustCompile(`\s+`)

// CleanText trims, collapses whitespace and blanks out known sentinel values
func CleanText(v string) string {
	v = strings.ReplaceAll(v, "\u00a0", " ")
	v = strings.TrimSpace(spaceRun.ReplaceAllString(v, " "))
	if _, bad := emptySentinels[strings.ToLower(v)]; bad {
		return ""
	}
	return v
}

var (
	relativeAgo = regexp.MustCompile(`(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?)\s+ago`)
	unitLengths = map[string]time.Duration{
		"sec": time.Second,
		"min": time.Minute,
		"hou": time.Hour,
		"hr":  time.Hour,
		"day": 24 * time.Hour,
		"wee": 7 * 24 * time.Hour,
		"mon": 30 * 24 * time.Hour,
		"yea": 365 * 24 * time.Hour,
	}
)

// RelativeToAbsoluteDate turns "3 hours ago" into a DD-Mon-YY date counted back from now.
// Input it cannot parse is returned unchanged.
func RelativeToAbsoluteDate(text string, now time.Time) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	if strings.Contains(t, "just now") || strings.Contains(t, "abhi") {
		return now.Format(DateLayout)
	}
	m := relativeAgo.FindStringSubmatch(t)
	if m == nil {
		return text
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return text
	}
	unit := m[2]
	key := unit
	if len(key) > 3 {
		key = key[:3]
	}
	if strings.HasPrefix(unit, "hr") {
		key = "hr"
	}
	d, ok := unitLengths[key]
	if !ok {
		return text
	}
	return now.Add(-time.Duration(n) * d).Format(DateLayout)
}
