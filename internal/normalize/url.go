package normalize

import (
	"regexp"
	"strings"
)

var (
	textCommentID  = regexp.MustCompile(`/comments/text/(\d+)`)
	imageCommentID = regexp.MustCompile(`/comments/image/(\d+)`)
	idReplySuffix  = regexp.MustCompile(`/\d+/#reply$`)
	replySuffix    = regexp.MustCompile(`/#reply$`)
	userPath       = regexp.MustCompile(`/users/([^/?#]+)`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
)

// ToAbsoluteURL joins a relative href onto base
func ToAbsoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	base = strings.TrimRight(base, "/")
	if strings.HasPrefix(href, "/") {
		return base + href
	}
	return base + "/" + href
}

// ExtractTextCommentURL rewrites any /comments/text/<id>/ link to its canonical page
func ExtractTextCommentURL(href, base string) string {
	if m := textCommentID.FindStringSubmatch(href); m != nil {
		return strings.TrimRight(base, "/") + "/comments/text/" + m[1]
	}
	return ToAbsoluteURL(href, base)
}

// ExtractImageCommentURL rewrites an image comment link to the image's content page
func ExtractImageCommentURL(href, base string) string {
	if m := imageCommentID.FindStringSubmatch(href); m != nil {
		return strings.TrimRight(base, "/") + "/content/" + m[1] + "/g/"
	}
	return ToAbsoluteURL(href, base)
}

// CleanURL canonicalizes a result link before it is persisted
func CleanURL(u, base string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if m := textCommentID.FindStringSubmatch(u); m != nil {
		return strings.TrimRight(base, "/") + "/comments/text/" + m[1]
	}
	if m := imageCommentID.FindStringSubmatch(u); m != nil {
		return strings.TrimRight(base, "/") + "/comments/image/" + m[1]
	}
	for {
		next := strings.TrimRight(u, "/")
		next = idReplySuffix.ReplaceAllString(next, "")
		next = replySuffix.ReplaceAllString(next, "")
		next = strings.TrimRight(next, "/")
		if next == u {
			return u
		}
		u = next
	}
}

// LooksLikeURL is how a worklist cell is told apart from a nickname
func LooksLikeURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "http") || strings.Contains(v, "damadam.pk")
}

// NicknameFromUserURL pulls the handle out of a /users/<nick>/ link
func NicknameFromUserURL(u string) string {
	if m := userPath.FindStringSubmatch(strings.TrimSpace(u)); m != nil {
		return m[1]
	}
	return ""
}

// ProfileKey is the loose lookup key for nicknames: lowercase alphanumerics only
func ProfileKey(v string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(v)), "")
}
