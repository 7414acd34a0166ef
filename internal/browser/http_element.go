package browser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/qepting91/threadbot/internal/domain"
)

type httpElement struct {
	session *HTTPSession
	sel     *goquery.Selection
}

var hiddenStyle = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

func (e *httpElement) tag() string {
	return goquery.NodeName(e.sel)
}

func (e *httpElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *httpElement) Attribute(name string) (string, bool, error) {
	if name == "value" && e.tag() == "textarea" {
		return e.sel.Text(), true, nil
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// IsDisplayed walks up the tree the way computed style would inherit display:none
func (e *httpElement) IsDisplayed() (bool, error) {
	if t, _ := e.sel.Attr("type"); e.tag() == "input" && strings.EqualFold(t, "hidden") {
		return false, nil
	}
	for n := e.sel; n.Length() > 0; n = n.Parent() {
		if _, ok := n.Attr("hidden"); ok {
			return false, nil
		}
		if style, ok := n.Attr("style"); ok && hiddenStyle.MatchString(style) {
			return false, nil
		}
	}
	return true, nil
}

func (e *httpElement) Clear() error {
	return e.setValue("")
}

func (e *httpElement) SendKeys(text string) error {
	current, _, _ := e.Attribute("value")
	return e.setValue(current + text)
}

func (e *httpElement) setValue(v string) error {
	switch e.tag() {
	case "textarea":
		e.sel.SetText(v)
	case "input":
		e.sel.SetAttr("value", v)
	default:
		return fmt.Errorf("cannot type into <%s>", e.tag())
	}
	return nil
}

// Click follows links and submits forms. Other elements are inert without scripts.
func (e *httpElement) Click() error {
	ctx := e.session.ctx
	switch e.tag() {
	case "a":
		href, ok := e.sel.Attr("href")
		if !ok || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return nil
		}
		return e.session.Navigate(ctx, href)
	case "button", "input":
		t := strings.ToLower(e.sel.AttrOr("type", "submit"))
		if t != "submit" && t != "image" {
			return nil
		}
		form := e.sel.Closest("form")
		if form.Length() == 0 {
			return fmt.Errorf("submit control outside a form: %w", domain.ErrElementNotFound)
		}
		values := serializeForm(form)
		if name, ok := e.sel.Attr("name"); ok && name != "" {
			values.Add(name, e.sel.AttrOr("value", ""))
		}
		action, err := e.session.resolve(form.AttrOr("action", e.session.current))
		if err != nil {
			return err
		}
		return e.session.submit(ctx, form.AttrOr("method", "GET"), action, values)
	}
	return nil
}

func (e *httpElement) ScriptClick() error {
	return e.Click()
}

func (e *httpElement) ScrollIntoView() error {
	return nil
}

func (e *httpElement) Find(selector string) (domain.Element, error) {
	return first(e.session, e.sel, selector)
}

func (e *httpElement) FindAll(selector string) ([]domain.Element, error) {
	return all(e.session, e.sel, selector), nil
}

// serializeForm collects what a browser would send for form, minus the submitter
func serializeForm(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, f *goquery.Selection) {
		if _, disabled := f.Attr("disabled"); disabled {
			return
		}
		name := f.AttrOr("name", "")
		switch goquery.NodeName(f) {
		case "textarea":
			values.Add(name, f.Text())
		case "select":
			opt := f.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = f.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		default:
			switch strings.ToLower(f.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := f.Attr("checked"); !checked {
					return
				}
				values.Add(name, f.AttrOr("value", "on"))
			default:
				values.Add(name, f.AttrOr("value", ""))
			}
		}
	})
	return values
}
