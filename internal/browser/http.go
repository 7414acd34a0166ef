package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/qepting91/threadbot/internal/domain"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HTTPSession drives the site without a browser. Pages are fetched with resty
// and queried with goquery; forms are submitted from their own inputs.
// Scripts are not executed.
type HTTPSession struct {
	ctx     context.Context
	http    *resty.Client
	jar     *cookiejar.Jar
	base    *url.URL
	limiter *rate.Limiter
	logger  *slog.Logger

	current string
	source  string
	doc     *goquery.Document
}

type HTTPOptions struct {
	BaseURL string
	// Minimum gap between requests. Zero disables throttling.
	Interval time.Duration
	Timeout  time.Duration
}

// NewHTTPSession keeps ctx's values but not its cancellation, so a shutdown
// signal cannot abort a form submission already under way. Close ends the session.
func NewHTTPSession(ctx context.Context, opts HTTPOptions, logger *slog.Logger) (*HTTPSession, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}

	return &HTTPSession{
		ctx:     context.WithoutCancel(ctx),
		http:    client,
		jar:     jar,
		base:    base,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (s *HTTPSession) resolve(href string) (string, error) {
	ref := s.base
	if s.current != "" {
		if cur, err := url.Parse(s.current); err == nil {
			ref = cur
		}
	}
	u, err := ref.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *HTTPSession) Navigate(ctx context.Context, target string) error {
	abs, err := s.resolve(target)
	if err != nil {
		return fmt.Errorf("navigate %q: %w", target, err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	res, err := s.http.R().SetContext(ctx).Get(abs)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", abs, err)
	}
	return s.load(res)
}

func (s *HTTPSession) submit(ctx context.Context, method, action string, form url.Values) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	req := s.http.R().SetContext(ctx).SetHeader("Referer", s.current)
	var (
		res *resty.Response
		err error
	)
	if strings.EqualFold(method, http.MethodGet) {
		res, err = req.SetQueryParamsFromValues(form).Get(action)
	} else {
		res, err = req.SetFormDataFromValues(form).Post(action)
	}
	if err != nil {
		return fmt.Errorf("submit %s: %w", action, err)
	}
	return s.load(res)
}

func (s *HTTPSession) load(res *resty.Response) error {
	s.current = res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		s.current = res.RawResponse.Request.URL.String()
	}
	s.source = string(res.Body())
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.source))
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.current, err)
	}
	s.doc = doc
	if res.StatusCode() >= 400 {
		s.logger.Debug("Page returned error status", "url", s.current, "status", res.StatusCode())
	}
	return nil
}

func (s *HTTPSession) CurrentURL() string {
	return s.current
}

func (s *HTTPSession) PageSource() (string, error) {
	if s.doc == nil {
		return "", nil
	}
	return s.source, nil
}

func (s *HTTPSession) Find(selector string) (domain.Element, error) {
	if s.doc == nil {
		return nil, domain.ErrElementNotFound
	}
	return first(s, s.doc.Selection, selector)
}

func (s *HTTPSession) FindAll(selector string) ([]domain.Element, error) {
	if s.doc == nil {
		return nil, nil
	}
	return all(s, s.doc.Selection, selector), nil
}

// WaitUntilPresent has nothing to wait for on a static document
func (s *HTTPSession) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (domain.Element, error) {
	el, err := s.Find(selector)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, domain.ErrTimeout)
	}
	return el, nil
}

func (s *HTTPSession) ExecuteScript(ctx context.Context, js string) error {
	return domain.ErrUnsupported
}

func (s *HTTPSession) Cookies() ([]domain.Cookie, error) {
	var out []domain.Cookie
	for _, c := range s.jar.Cookies(s.base) {
		out = append(out, domain.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: s.base.Hostname(),
			Path:   "/",
		})
	}
	return out, nil
}

func (s *HTTPSession) SetCookies(cookies []domain.Cookie) error {
	var hc []*http.Cookie
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		hc = append(hc, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	s.jar.SetCookies(s.base, hc)
	return nil
}

func (s *HTTPSession) Close() error {
	return nil
}

func first(s *HTTPSession, root *goquery.Selection, selector string) (domain.Element, error) {
	sel := root.Find(selector).First()
	if sel.Length() == 0 {
		return nil, domain.ErrElementNotFound
	}
	return &httpElement{session: s, sel: sel}, nil
}

func all(s *HTTPSession, root *goquery.Selection, selector string) []domain.Element {
	var out []domain.Element
	root.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &httpElement{session: s, sel: sel})
	})
	return out
}
