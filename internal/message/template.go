package message

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest reply the site accepts, in characters
const MaxLength = 350

// Fields feed the template placeholders. Empty values substitute as "".
type Fields struct {
	Name      string
	Nick      string
	City      string
	Posts     string
	Followers string
}

// Both {x} and {{x}} spellings, any letter case
var placeholder = regexp.MustCompile(`(?i)\{\{\s*(name|nick|city|posts|followers)\s*\}\}|\{\s*(name|nick|city|posts|followers)\s*\}`)

// ApplyTemplate substitutes the named placeholders in template
func ApplyTemplate(template string, f Fields) string {
	if template == "" {
		return ""
	}
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		m := placeholder.FindStringSubmatch(token)
		key := m[1]
		if key == "" {
			key = m[2]
		}
		switch strings.ToLower(key) {
		case "name":
			return f.Name
		case "nick":
			return f.Nick
		case "city":
			return f.City
		case "posts":
			return f.Posts
		case "followers":
			return f.Followers
		}
		return token
	})
}

// Truncate clips msg to at most max characters
func Truncate(msg string, max int) string {
	if utf8.RuneCountInString(msg) <= max {
		return msg
	}
	return string([]rune(msg)[:max])
}
