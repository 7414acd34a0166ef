package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/normalize"
)

// ErrPageTimeout means the profile never rendered. It is the only error Scrape returns
// for a page that loaded; individual fields that fail to read are left empty.
var ErrPageTimeout = errors.New("profile page did not load")

const (
	readyMarker     = "h1.cxl.clb.lsp"
	postCardMarker  = "article.mbl"
	suspendedMarker = "account suspended"
)

type Options struct {
	BaseURL     string
	PageTimeout time.Duration
	PostTimeout time.Duration
	RetryDelay  time.Duration
	// Now is injectable for tests
	Now func() time.Time
}

type Scraper struct {
	session domain.Session
	opts    Options
	logger  *slog.Logger
}

func NewScraper(session domain.Session, opts Options, logger *slog.Logger) *Scraper {
	if opts.PageTimeout == 0 {
		opts.PageTimeout = 10 * time.Second
	}
	if opts.PostTimeout == 0 {
		opts.PostTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = normalize.Now
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Scraper{session: session, opts: opts, logger: logger}
}

// Scrape reads the /users/<nick>/ page
func (s *Scraper) Scrape(ctx context.Context, nick string) (*domain.ProfileSnapshot, error) {
	profileURL := fmt.Sprintf("%s/users/%s/", s.opts.BaseURL, nick)
	if err := browser.NavigateWithRetry(ctx, s.session, profileURL, 2, s.opts.RetryDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageTimeout, err)
	}
	if _, err := s.session.WaitUntilPresent(ctx, readyMarker, s.opts.PageTimeout); err != nil {
		s.logger.Warn("Timeout scraping profile", "nick", nick, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrPageTimeout, err)
	}

	source, err := s.session.PageSource()
	if err != nil {
		return nil, fmt.Errorf("read profile page: %w", err)
	}
	now := s.opts.Now()
	snap := &domain.ProfileSnapshot{
		Nickname:   nick,
		ProfileURL: strings.TrimRight(profileURL, "/"),
		Status:     domain.StatusUnknown,
		Posts:      "0",
		CapturedAt: now,
		Friend:     friendStatus(source),
	}

	lower := strings.ToLower(source)
	if strings.Contains(lower, suspendedMarker) {
		snap.Status = domain.StatusSuspended
		return snap, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		// Unparseable markup leaves every field at its default
		s.logger.Warn("Profile markup unreadable", "nick", nick, "err", err)
		return snap, nil
	}
	root := doc.Selection

	snap.Status = domain.StatusVerified
	if strings.Contains(lower, "background:tomato") || root.Find("div[style*='tomato']").Length() > 0 {
		snap.Status = domain.StatusUnverified
	}

	snap.Intro = normalize.CleanText(firstOf(root,
		text("span.cl.sp.lsp.nos"),
		text("span.cl"),
		text(".ow span.nos"),
	))
	snap.City = normalize.CleanText(firstOf(root, labeled("City:")))
	snap.Gender = genderCode(firstOf(root, labeled("Gender:")))
	snap.Married = marriedCode(firstOf(root, labeled("Married:")))
	snap.Age = normalize.CleanText(firstOf(root, labeled("Age:")))
	snap.Joined = normalize.RelativeToAbsoluteDate(firstOf(root, labeled("Joined:")), now)
	snap.Followers = firstOf(root,
		number("span.cl.sp.clb"),
		number(".cl.sp.clb"),
	)
	if posts := firstOf(root,
		number("a[href*='/profile/public/'] button div:first-child"),
		number("a[href*='/profile/public/'] button div"),
	); posts != "" {
		snap.Posts = posts
	}

	isAvatar := func(src string) bool {
		return strings.Contains(src, "avatar") || strings.Contains(src, "cloudfront.net")
	}
	avatar := firstOf(root,
		attr("img[src*='avatar-imgs']", "src", isAvatar),
		attr("img[src*='avatar']", "src", isAvatar),
		attr("div[style*='whitesmoke'] img[src*='cloudfront.net']", "src", isAvatar),
	)
	snap.AvatarURL = strings.Replace(avatar, "/thumbnail/", "/", 1)

	snap.LastPostURL, snap.LastPostTime = s.LastPost(ctx, nick)

	s.logger.Info("Profile scraped", "nick", nick, "status", snap.Status, "city", snap.City, "posts", snap.Posts)
	return snap, nil
}

// LastPost reads the newest post card on the user's public post listing.
// It reports empty strings rather than errors.
func (s *Scraper) LastPost(ctx context.Context, nick string) (link, when string) {
	listing := fmt.Sprintf("%s/profile/public/%s", s.opts.BaseURL, nick)
	if err := browser.NavigateWithRetry(ctx, s.session, listing, 2, s.opts.RetryDelay); err != nil {
		s.logger.Debug("Post listing unavailable", "nick", nick, "err", err)
		return "", ""
	}
	if _, err := s.session.WaitUntilPresent(ctx, postCardMarker, s.opts.PostTimeout); err != nil {
		return "", ""
	}
	source, err := s.session.PageSource()
	if err != nil {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return "", ""
	}
	card := doc.Find(postCardMarker).First()

	base := s.opts.BaseURL
	link = firstOf(card,
		href("a[href*='/content/']", func(h string) string { return normalize.ToAbsoluteURL(h, base) }),
		href("a[href*='/comments/text/']", func(h string) string { return normalize.ExtractTextCommentURL(h, base) }),
		href("a[href*='/comments/image/']", func(h string) string { return normalize.ExtractImageCommentURL(h, base) }),
	)
	raw := firstOf(card,
		text("span[itemprop='datePublished']"),
		text("time[itemprop='datePublished']"),
		text("span.cxs.cgy"),
		text("time"),
	)
	return link, normalize.RelativeToAbsoluteDate(raw, s.opts.Now())
}

func href(selector string, format func(string) string) strategy {
	return func(root *goquery.Selection) (string, bool) {
		h, ok := root.Find(selector).First().Attr("href")
		if !ok || h == "" {
			return "", false
		}
		v := format(h)
		return v, v != ""
	}
}

func friendStatus(source string) string {
	lower := strings.ToLower(source)
	switch {
	case strings.Contains(lower, `action="/follow/remove/"`), strings.Contains(lower, "unfollow.svg"):
		return "Yes"
	case strings.Contains(lower, "follow.svg"):
		return "No"
	}
	return ""
}

func genderCode(v string) string {
	switch strings.ToLower(v) {
	case "female":
		return "🚺"
	case "male":
		return "🚹"
	}
	return v
}

func marriedCode(v string) string {
	switch strings.ToLower(v) {
	case "yes", "married":
		return "💖"
	case "no", "single", "unmarried":
		return "💔"
	}
	return v
}
