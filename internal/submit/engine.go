package submit

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/message"
	"github.com/qepting91/threadbot/internal/normalize"
)

const (
	replyForms    = "form[action*='direct-response/send']"
	replyTextarea = "textarea[name='direct_response']"
	csrfField     = "csrfmiddlewaretoken"
	followMarker  = "FOLLOW TO REPLY"
)

var textareaSelectors = []string{
	replyTextarea,
	"textarea#id_direct_response",
	"textarea.inp",
}

type Options struct {
	BaseURL string
	// Username is the acting account's nickname, used by verification
	Username string
	// Pauses after the thread loads, after the submit click, and after the reload
	LoadSettle   time.Duration
	SubmitSettle time.Duration
	ReloadSettle time.Duration
	RetryDelay   time.Duration
}

// Engine posts one reply and classifies what happened. It never resubmits.
type Engine struct {
	session domain.Session
	opts    Options
	host    string
	logger  *slog.Logger
}

func NewEngine(session domain.Session, opts Options, logger *slog.Logger) *Engine {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	host := ""
	if u, err := url.Parse(opts.BaseURL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	return &Engine{session: session, opts: opts, host: host, logger: logger}
}

// SubmitAndVerify loads threadURL, submits msg through the live reply form and
// checks the reloaded thread for the reply.
func (e *Engine) SubmitAndVerify(ctx context.Context, threadURL, msg string) domain.Outcome {
	log := e.logger.With("thread", threadURL)

	if err := browser.NavigateWithRetry(ctx, e.session, threadURL, 2, e.opts.RetryDelay); err != nil {
		return domain.Failure(short(err))
	}
	if err := pause(ctx, e.opts.LoadSettle); err != nil {
		return domain.Failure(short(err))
	}

	if current := e.session.CurrentURL(); !e.onSite(current) {
		log.Warn("Redirected off site", "url", current)
		return domain.Redirected(current)
	}

	source, err := e.session.PageSource()
	if err != nil {
		return domain.Failure(short(err))
	}
	if strings.Contains(strings.ToUpper(source), followMarker) {
		log.Info("Need to follow user first")
		return domain.NotFollowing(threadURL)
	}

	form, err := e.liveForm()
	if err != nil {
		return domain.Failure(short(err))
	}
	if form == nil {
		log.Info("No visible reply form")
		return domain.CommentsClosed(threadURL)
	}

	if _, err := form.Find("input[name='" + csrfField + "']"); err != nil {
		return missing(threadURL, csrfField, err)
	}
	hidden, _ := form.FindAll("input[type='hidden']")
	log.Debug("Reply form found", "hidden_fields", len(hidden))

	var box domain.Element
	for _, sel := range textareaSelectors {
		if box, err = form.Find(sel); err == nil {
			break
		}
	}
	if box == nil {
		return missing(threadURL, "direct_response", err)
	}

	msg = message.Truncate(msg, message.MaxLength)
	if err := box.Clear(); err != nil {
		return domain.Failure(short(err))
	}
	if err := box.SendKeys(msg); err != nil {
		return domain.Failure(short(err))
	}
	log.Info("Typed message", "chars", len([]rune(msg)))

	send, err := form.Find("button[type='submit']")
	if err != nil {
		return missing(threadURL, "submit", err)
	}
	_ = send.ScrollIntoView()
	if err := send.Click(); err != nil {
		log.Debug("Click failed, falling back to script click", "err", err)
		if err := send.ScriptClick(); err != nil {
			return domain.Failure(short(err))
		}
	}

	if err := pause(ctx, e.opts.SubmitSettle); err != nil {
		return domain.Failure(short(err))
	}
	if err := browser.NavigateWithRetry(ctx, e.session, threadURL, 2, e.opts.RetryDelay); err != nil {
		log.Warn("Reload after submit failed", "err", err)
		return domain.Failure("reload: " + short(err))
	}
	if err := pause(ctx, e.opts.ReloadSettle); err != nil {
		return domain.Failure(short(err))
	}

	fresh, err := e.session.PageSource()
	if err != nil {
		return domain.Failure(short(err))
	}
	signals := Verify(fresh, e.opts.Username, msg)
	for _, s := range signals {
		log.Debug("Verification check", "signal", s.Name, "passed", s.Passed)
	}
	if anyPassed(signals) {
		log.Info("Message verified")
		return domain.Posted(normalize.CleanURL(threadURL, e.opts.BaseURL), msg)
	}
	log.Warn("Message sent but not verified")
	return domain.PendingVerification(threadURL, msg)
}

// liveForm picks the first displayed reply form that holds the message box.
// Hidden template copies of the form are skipped.
func (e *Engine) liveForm() (domain.Element, error) {
	forms, err := e.session.FindAll(replyForms)
	if err != nil {
		return nil, err
	}
	for _, f := range forms {
		visible, err := f.IsDisplayed()
		if err != nil || !visible {
			continue
		}
		if _, err := f.Find(replyTextarea); err == nil {
			return f, nil
		}
	}
	return nil, nil
}

func (e *Engine) onSite(current string) bool {
	u, err := url.Parse(current)
	if err != nil || e.host == "" {
		return false
	}
	h := strings.ToLower(u.Hostname())
	return h == e.host || strings.HasSuffix(h, "."+e.host)
}

func missing(link, field string, err error) domain.Outcome {
	if err != nil && !errors.Is(err, domain.ErrElementNotFound) {
		return domain.Failure(short(err))
	}
	return domain.FormFieldMissing(link, field)
}

// short keeps diagnostics small enough for a NOTES cell
func short(err error) string {
	r := []rune(err.Error())
	if len(r) > 60 {
		r = r[:60]
	}
	return string(r)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
