package thread

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/normalize"
)

type Options struct {
	BaseURL  string
	MaxPages int
	// Pause after each listing page loads
	Settle     time.Duration
	RetryDelay time.Duration
}

// Locator walks a user's post listing looking for a post that still takes replies
type Locator struct {
	session domain.Session
	opts    Options
	logger  *slog.Logger
}

func NewLocator(session domain.Session, opts Options, logger *slog.Logger) *Locator {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 4
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Locator{session: session, opts: opts, logger: logger}
}

// FindFirstOpenPost returns the first post with a reply trigger, or nil once the
// page cap or the pagination runs out.
func (l *Locator) FindFirstOpenPost(ctx context.Context, nick string) (*domain.ThreadHandle, error) {
	current := fmt.Sprintf("%s/profile/public/%s/", l.opts.BaseURL, nick)

	for page := 1; page <= l.opts.MaxPages; page++ {
		l.logger.Info("Opening posts page", "nick", nick, "page", page, "max", l.opts.MaxPages)
		if err := browser.NavigateWithRetry(ctx, l.session, current, 2, l.opts.RetryDelay); err != nil {
			return nil, fmt.Errorf("posts page %d: %w", page, err)
		}
		if err := sleep(ctx, l.opts.Settle); err != nil {
			return nil, err
		}

		source, err := l.session.PageSource()
		if err != nil {
			return nil, fmt.Errorf("posts page %d: %w", page, err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
		if err != nil {
			return nil, fmt.Errorf("posts page %d: %w", page, err)
		}

		cards := doc.Find("article.mbl")
		l.logger.Debug("Posts on page", "count", cards.Length())
		var found *domain.ThreadHandle
		cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
			link := l.replyLink(card)
			if link == "" {
				return true
			}
			found = &domain.ThreadHandle{URL: link, Index: i + 1}
			return false
		})
		if found != nil {
			l.logger.Info("Found open post", "nick", nick, "index", found.Index, "url", found.URL)
			return found, nil
		}

		next := strings.TrimSpace(doc.Find("a[rel='next']").First().AttrOr("href", ""))
		if next == "" {
			break
		}
		current = resolve(current, next)
	}

	l.logger.Info("No open posts found", "nick", nick)
	return nil, nil
}

// replyLink tries the reply triggers of one post card in priority order
func (l *Locator) replyLink(card *goquery.Selection) string {
	href := ""
	for _, find := range []func() *goquery.Selection{
		func() *goquery.Selection { return card.Find("a[href*='/comments/text/']") },
		func() *goquery.Selection { return card.Find("a[href*='/comments/image/']") },
		func() *goquery.Selection { return card.Find("button[itemprop='discussionUrl']").ParentFiltered("a") },
	} {
		if h := strings.TrimSpace(find().First().AttrOr("href", "")); h != "" {
			href = h
			break
		}
	}
	if href == "" {
		return ""
	}
	link := normalize.CleanURL(normalize.ToAbsoluteURL(href, l.opts.BaseURL), l.opts.BaseURL)
	if !normalize.LooksLikeURL(link) {
		return ""
	}
	return link
}

// resolve handles both "/profile/public/x/?page=2" and "?page=2" style next links
func resolve(current, href string) string {
	cur, err := url.Parse(current)
	if err != nil {
		return href
	}
	u, err := cur.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
