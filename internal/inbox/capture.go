package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/normalize"
	"github.com/qepting91/threadbot/internal/storage"
)

// Section is one notification listing and where its items are recorded
type Section struct {
	Path   string
	Sheet  string
	Label  string
	Export string
}

var (
	Inbox    = Section{Path: "/inbox/", Sheet: "Inbox", Label: "Replies", Export: "inbox.csv"}
	Activity = Section{Path: "/inbox/activity/#section0", Sheet: "Activity", Label: "Activity", Export: "activity.csv"}
)

var Header = []string{
	"DATETIME", "SECTION", "ITEM_TYPE", "AUTHOR", "SNIPPET", "TIME", "POST_LINK",
	"IMAGE_LINK", "THUMBNAIL", "CAPTION", "TID", "OBID", "POID", "TUID", "ORIGIN",
	"REL_KEY", "HAS_REPLY_FORM", "CSRF_PRESENT", "PAGE_URL",
}

const (
	itemSelector  = `div.mbl.mtl[style*="border:2px solid"]`
	oneOnOneForm  = `form[action="/1-on-1/from-single-notif/"]`
	replyForm     = `form[action="/direct-response/send/"]`
	imageLink     = `a[href^="/comments/image/"]`
	capturedStamp = "02-Jan-06 03:04 PM"
)

// Sink receives captured rows. *worklist.Client satisfies it.
type Sink interface {
	GetOrCreateSheet(ctx context.Context, name string, header []string) error
	InsertRow(ctx context.Context, sheet string, values []string, at int) error
}

type Options struct {
	BaseURL    string
	ExportDir  string
	MaxPages   int
	Settle     time.Duration
	RetryDelay time.Duration
	Now        func() time.Time
}

// Capturer copies notification items into a sheet and a CSV export
type Capturer struct {
	session domain.Session
	sink    Sink
	opts    Options
	logger  *slog.Logger
}

func NewCapturer(session domain.Session, sink Sink, opts Options, logger *slog.Logger) *Capturer {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 25
	}
	if opts.Now == nil {
		opts.Now = normalize.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "folderExport"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Capturer{session: session, sink: sink, opts: opts, logger: logger}
}

// Capture walks sec page by page following "Next" links until a page repeats.
// It returns the number of items recorded.
func (c *Capturer) Capture(ctx context.Context, sec Section) (int, error) {
	if err := c.sink.GetOrCreateSheet(ctx, sec.Sheet, Header); err != nil {
		return 0, fmt.Errorf("%s sheet: %w", sec.Sheet, err)
	}
	export := filepath.Join(c.opts.ExportDir, sec.Export)

	seen := map[string]bool{}
	current := c.opts.BaseURL + sec.Path
	total := 0
	for page := 1; page <= c.opts.MaxPages && !seen[current]; page++ {
		seen[current] = true
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if err := browser.NavigateWithRetry(ctx, c.session, current, 2, c.opts.RetryDelay); err != nil {
			return total, fmt.Errorf("%s page %d: %w", sec.Label, page, err)
		}
		settle(ctx, c.opts.Settle)

		source, err := c.session.PageSource()
		if err != nil {
			return total, err
		}
		items, next, err := ParsePage(source, current)
		if err != nil {
			return total, err
		}
		c.logger.Info("Notification items found", "section", sec.Label, "page", page, "count", len(items))

		stamp := c.opts.Now().In(normalize.PKT).Format(capturedStamp)
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			row := it.Row(stamp, sec.Label)
			if err := c.sink.InsertRow(ctx, sec.Sheet, row, 2); err != nil {
				c.logger.Warn("Row insert failed", "sheet", sec.Sheet, "key", it.RelKey(), "err", err)
				continue
			}
			rows = append(rows, row)
			total++
		}
		if len(rows) > 0 {
			if err := storage.AppendCSV(export, Header, rows); err != nil {
				c.logger.Warn("CSV export failed", "path", export, "err", err)
			}
		}

		if next == "" {
			break
		}
		current = next
	}
	return total, nil
}

func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Item is one notification block
type Item struct {
	Type         string
	Author       string
	Snippet      string
	Time         string
	PostLink     string
	ImageLink    string
	Thumbnail    string
	Caption      string
	TID          string
	OBID         string
	POID         string
	TUID         string
	Origin       string
	HasReplyForm bool
	CSRFPresent  bool
	PageURL      string
}

// RelKey identifies the conversation an item belongs to
func (it Item) RelKey() string {
	if it.TID != "" {
		return "tid:" + it.TID
	}
	return fmt.Sprintf("tuid:%s|poid:%s|obid:%s|origin:%s", it.TUID, it.POID, it.OBID, it.Origin)
}

// Row renders the item in Header order
func (it Item) Row(capturedAt, section string) []string {
	return []string{
		capturedAt, section, it.Type, it.Author, it.Snippet, it.Time, it.PostLink,
		it.ImageLink, it.Thumbnail, it.Caption, it.TID, it.OBID, it.POID, it.TUID,
		it.Origin, it.RelKey(), yesNo(it.HasReplyForm), yesNo(it.CSRFPresent), it.PageURL,
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ParsePage extracts the items of one listing and the absolute "Next" link, if any
func ParsePage(source, pageURL string) ([]Item, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, "", err
	}

	var items []Item
	doc.Find(itemSelector).Each(func(_ int, s *goquery.Selection) {
		items = append(items, parseItem(s, pageURL))
	})
	return items, nextLink(doc, pageURL), nil
}

func parseItem(s *goquery.Selection, pageURL string) Item {
	it := Item{
		PageURL:      pageURL,
		CSRFPresent:  s.Find(`input[name="csrfmiddlewaretoken"]`).Length() > 0,
		HasReplyForm: s.Find(replyForm).Length() > 0,
	}
	switch {
	case s.Find(oneOnOneForm).Length() > 0:
		it.Type = "1on1"
	case s.Find(imageLink).Length() > 0:
		it.Type = "image_reply"
	case it.HasReplyForm:
		it.Type = "text_reply"
	default:
		it.Type = "unknown"
	}

	if it.Type == "1on1" {
		it.TID = attr(s, `button[name="tid"]`, "value")
		it.Caption = text(s, "div.cm.sp")
		return it
	}

	it.Snippet = text(s, "div.cl.lsp.nos span bdi bdi")
	if it.Snippet == "" {
		it.Snippet = text(s, "div.cl.lsp.nos span bdi")
	}
	it.Author = text(s, "div.cl.lsp.nos bdi")
	it.Time = text(s, "span.cxs.sp")
	it.ImageLink = attr(s, imageLink, "href")
	it.Thumbnail = attr(s, `img[src*="cloudfront"]`, "src")
	it.Caption = text(s, "div.cm.sp span.ct")

	it.OBID = attr(s, replyForm+` input[name="obid"]`, "value")
	it.POID = attr(s, replyForm+` input[name="poid"]`, "value")
	it.TUID = attr(s, replyForm+` input[name="tuid"]`, "value")
	it.Origin = attr(s, replyForm+` input[name="origin"]`, "value")

	it.PostLink = attr(s, `a[href^="/comments/text/"]`, "href")
	if it.PostLink == "" {
		it.PostLink = attr(s, `a[href^="/content/"]`, "href")
	}
	return it
}

func text(s *goquery.Selection, sel string) string {
	return strings.Join(strings.Fields(s.Find(sel).First().Text()), " ")
}

func attr(s *goquery.Selection, sel, name string) string {
	return strings.TrimSpace(s.Find(sel).First().AttrOr(name, ""))
}

// nextLink finds an anchor labelled Next, or one wrapping a Next button
func nextLink(doc *goquery.Document, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	next := ""
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := a.Text()
		if !strings.Contains(label, "Next") && !strings.Contains(label, "NEXT") {
			return true
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		u, err := base.Parse(href)
		if err != nil || !strings.HasPrefix(u.Scheme, "http") {
			return true
		}
		next = u.String()
		return false
	})
	return next
}
