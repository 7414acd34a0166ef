package profile

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strategy is one way of reading a field. ok=false means try the next one.
type strategy func(root *goquery.Selection) (value string, ok bool)

// firstOf runs strategies in order and keeps the first hit
func firstOf(root *goquery.Selection, strategies ...strategy) string {
	for _, s := range strategies {
		if v, ok := s(root); ok {
			return v
		}
	}
	return ""
}

func text(selector string) strategy {
	return func(root *goquery.Selection) (string, bool) {
		sel := root.Find(selector).First()
		v := strings.TrimSpace(sel.Text())
		return v, v != ""
	}
}

var digits = regexp.MustCompile(`\d+`)

func number(selector string) strategy {
	return func(root *goquery.Selection) (string, bool) {
		raw := strings.ReplaceAll(root.Find(selector).First().Text(), ",", "")
		v := digits.FindString(raw)
		return v, v != ""
	}
}

func attr(selector, name string, accept func(string) bool) strategy {
	return func(root *goquery.Selection) (string, bool) {
		v, ok := root.Find(selector).First().Attr(name)
		if !ok || v == "" || (accept != nil && !accept(v)) {
			return "", false
		}
		return v, true
	}
}

// labeled reads the span right after a <b> whose text contains label
func labeled(label string) strategy {
	return func(root *goquery.Selection) (string, bool) {
		b := root.Find("b").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), label)
		}).First()
		v := strings.TrimSpace(b.NextAllFiltered("span").First().Text())
		return v, v != ""
	}
}
