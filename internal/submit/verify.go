package submit

import (
	"html"
	"strings"
)

// Signal is one independent check that a reply landed on the page
type Signal struct {
	Name   string
	Passed bool
}

// Verify evaluates every confirmation signal against a freshly loaded thread page.
// A single passing signal is enough. The plain username and plain message checks are
// loose: the acting user's name appears in site chrome and an identical older reply
// also matches, so a Posted result can be a false positive.
func Verify(page, username, msg string) []Signal {
	lower := strings.ToLower(page)
	hasUser := username != ""
	hasMsg := msg != ""
	escaped := html.EscapeString(msg)

	return []Signal{
		{"username_href", hasUser && strings.Contains(page, `href="/users/`+username+`/"`)},
		{"username_bold", hasUser && strings.Contains(page, "<b>"+username+"</b>")},
		{"message_in_bdi", hasMsg && (strings.Contains(page, "<bdi>"+msg+"</bdi>") || strings.Contains(page, "<bdi>"+escaped+"</bdi>"))},
		{"recent_time", strings.Contains(lower, "sec ago") || strings.Contains(lower, "secs ago") || strings.Contains(lower, "seconds ago")},
		{"simple_username", hasUser && strings.Contains(page, username)},
		{"simple_message", hasMsg && (strings.Contains(page, msg) || strings.Contains(page, escaped))},
	}
}

func anyPassed(signals []Signal) bool {
	for _, s := range signals {
		if s.Passed {
			return true
		}
	}
	return false
}
