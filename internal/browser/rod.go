package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/qepting91/threadbot/internal/domain"
)

// RodSession is a headless Chromium tab opened with stealth patches
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
	logger  *slog.Logger
}

type RodOptions struct {
	Bin        string
	Headless   bool
	NavTimeout time.Duration
}

func NewRodSession(ctx context.Context, opts RodOptions, logger *slog.Logger) (*RodSession, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", "1920,1080").
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	// Element calls run on the browser context; detach it like HTTPSession
	browser := rod.New().ControlURL(u).Context(context.WithoutCancel(ctx))
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("open stealth page: %w", err)
	}
	logger.Debug("Browser started", "headless", opts.Headless)

	timeout := opts.NavTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RodSession{browser: browser, page: page, timeout: timeout, logger: logger}, nil
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (s *RodSession) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *RodSession) PageSource() (string, error) {
	return s.page.HTML()
}

func (s *RodSession) Find(selector string) (domain.Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, domain.ErrElementNotFound
	}
	return &rodElement{el: els.First()}, nil
}

func (s *RodSession) FindAll(selector string) ([]domain.Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

func (s *RodSession) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (domain.Element, error) {
	el, err := s.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", selector, domain.ErrTimeout)
		}
		return nil, err
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *RodSession) ExecuteScript(ctx context.Context, js string) error {
	_, err := s.page.Context(ctx).Eval(js)
	return err
}

func (s *RodSession) Cookies() ([]domain.Cookie, error) {
	cookies, err := s.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, domain.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return out, nil
}

func (s *RodSession) SetCookies(cookies []domain.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return s.page.SetCookies(params)
}

func (s *RodSession) Close() error {
	return s.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func wrap(els rod.Elements) []domain.Element {
	out := make([]domain.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) IsDisplayed() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Clear() error {
	if err := e.el.SelectAllText(); err != nil {
		return err
	}
	return e.el.Input("")
}

func (e *rodElement) SendKeys(text string) error {
	return e.el.Input(text)
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScriptClick() error {
	_, err := e.el.Eval(`() => this.click()`)
	return err
}

func (e *rodElement) ScrollIntoView() error {
	return e.el.ScrollIntoView()
}

func (e *rodElement) Find(selector string) (domain.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, domain.ErrElementNotFound
	}
	return &rodElement{el: els.First()}, nil
}

func (e *rodElement) FindAll(selector string) ([]domain.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}
