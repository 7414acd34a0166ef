package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/ingest"
	"github.com/qepting91/threadbot/internal/message"
	"github.com/qepting91/threadbot/internal/normalize"
	"github.com/qepting91/threadbot/internal/worklist"
)

type ProfileScraper interface {
	Scrape(ctx context.Context, nick string) (*domain.ProfileSnapshot, error)
}

type ThreadLocator interface {
	FindFirstOpenPost(ctx context.Context, nick string) (*domain.ThreadHandle, error)
}

type Submitter interface {
	SubmitAndVerify(ctx context.Context, threadURL, msg string) domain.Outcome
}

// Worklist is the MsgList sheet as the orchestrator sees it
type Worklist interface {
	Snapshot(ctx context.Context) ([]worklist.Row, error)
	SetCell(ctx context.Context, row, col int, value string) error
	WriteResult(ctx context.Context, row int, status, notes, resultURL, doneAt string) error
}

type History interface {
	Record(ctx context.Context, s domain.RunSummary) error
}

// LookupLoader fetches the Profiles lookup. It is only called when a NICK target is pending.
type LookupLoader func(ctx context.Context) (worklist.Lookup, error)

// Deps are the collaborators of one run. Lookup, History, APICalls and Results are optional.
type Deps struct {
	Worklist  Worklist
	Profiles  ProfileScraper
	Threads   ThreadLocator
	Submitter Submitter
	Lookup    LookupLoader
	History   History
	APICalls  func() int64
	Hooks     []Hook
	Results   chan<- domain.TargetResult
}

type Options struct {
	BaseURL    string
	Mode       string
	MaxTargets int
	// Pause between consecutive targets
	Pause time.Duration
	Now   func() time.Time
}

// Orchestrator drives pending worklist rows through scrape, locate, compose,
// submit and write-back, one target at a time.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

func New(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Now == nil {
		opts.Now = normalize.Now
	}
	if opts.Mode == "" {
		opts.Mode = "msg"
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}
}

// RunPendingTargets processes every pending row in sheet order. Cancelling ctx
// stops the run after the target in progress has been written back.
func (o *Orchestrator) RunPendingTargets(ctx context.Context) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID:     uuid.NewString(),
		Mode:      o.opts.Mode,
		StartedAt: o.opts.Now(),
	}

	rows, err := o.deps.Worklist.Snapshot(ctx)
	if err != nil {
		return summary, fmt.Errorf("snapshot worklist: %w", err)
	}
	targets := ingest.PendingTargets(rows, o.opts.BaseURL)
	if o.opts.MaxTargets > 0 && len(targets) > o.opts.MaxTargets {
		targets = targets[:o.opts.MaxTargets]
	}
	summary.Pending = len(targets)
	o.logger.Info("Pending targets loaded", "run_id", summary.RunID, "count", len(targets))

	lookup := o.loadLookup(ctx, targets)

	for i, t := range targets {
		if ctx.Err() != nil {
			summary.Interrupted = true
			o.logger.Warn("Run interrupted", "run_id", summary.RunID, "remaining", len(targets)-i)
			break
		}
		o.logger.Info("Processing target", "n", i+1, "of", len(targets), "row", t.Row, "target", ingest.Key(t))

		res := o.runTarget(context.WithoutCancel(ctx), summary.RunID, t, lookup)
		summary.Add(res)
		if o.deps.Results != nil {
			o.deps.Results <- res
		}
		if i < len(targets)-1 {
			pause(ctx, o.opts.Pause)
		}
	}

	summary.FinishedAt = o.opts.Now()
	o.afterRun(context.WithoutCancel(ctx), &summary)
	return summary, nil
}

func (o *Orchestrator) loadLookup(ctx context.Context, targets []domain.Target) worklist.Lookup {
	if o.deps.Lookup == nil {
		return nil
	}
	needed := false
	for _, t := range targets {
		if t.Mode == domain.ModeNick {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	lookup, err := o.deps.Lookup(ctx)
	if err != nil {
		o.logger.Warn("Profiles lookup unavailable", "err", err)
		return nil
	}
	o.logger.Info("Profiles lookup loaded", "entries", len(lookup))
	return lookup
}

// runTarget never panics and always returns a terminal result
func (o *Orchestrator) runTarget(ctx context.Context, runID string, t domain.Target, lookup worklist.Lookup) (res domain.TargetResult) {
	res = domain.TargetResult{
		RunID:  runID,
		Row:    t.Row,
		Mode:   t.Mode,
		Target: ingest.Key(t),
		Name:   t.DisplayName,
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Target failed unexpectedly", "row", t.Row, "panic", r)
			res = o.finishAfterPanic(ctx, res, r)
		}
	}()

	if err := ingest.Validate(t); err != nil {
		o.logger.Warn("Target cannot be resolved", "row", t.Row, "err", err)
		return o.finish(ctx, res, domain.RowError, errorNote(err.Error()), "", domain.OutcomeError)
	}

	var threadURL string
	switch t.Mode {
	case domain.ModeURL:
		o.prefill(ctx, &t, lookup, t.DisplayName)
		threadURL = t.Destination

	case domain.ModeNick:
		o.prefill(ctx, &t, lookup, t.Nickname)

		snap, err := o.deps.Profiles.Scrape(ctx, t.Nickname)
		if err != nil || snap == nil {
			o.logger.Warn("Profile scrape failed", "nick", t.Nickname, "err", err)
			return o.finish(ctx, res, domain.RowFailed, "Profile scrape failed", "", "")
		}
		o.backfill(ctx, &t, snap)

		if snap.Status == domain.StatusSuspended {
			return o.finish(ctx, res, domain.RowSkipped, "Account suspended", "", "")
		}
		if postCount(t.Posts) == 0 {
			return o.finish(ctx, res, domain.RowSkipped, "No posts", "", "")
		}

		handle, err := o.deps.Threads.FindFirstOpenPost(ctx, t.Nickname)
		if err != nil {
			return o.finish(ctx, res, domain.RowError, errorNote(err.Error()), "", domain.OutcomeError)
		}
		if handle == nil {
			return o.finish(ctx, res, domain.RowFailed, "No open posts", "", "")
		}
		threadURL = handle.URL
	}

	name := t.DisplayName
	if name == "" {
		name = t.Nickname
	}
	msg := message.ApplyTemplate(t.MessageTemplate, message.Fields{
		Name:      name,
		Nick:      t.Nickname,
		City:      t.City,
		Posts:     t.Posts,
		Followers: t.Followers,
	})
	res.Message = msg
	o.logger.Debug("Message composed", "row", t.Row, "message", msg)

	out := o.deps.Submitter.SubmitAndVerify(ctx, threadURL, msg)
	if out.Message != "" {
		res.Message = out.Message
	}
	status, notes := o.classify(out)
	link := ""
	if out.Success() && out.Link != "" {
		link = normalize.CleanURL(out.Link, o.opts.BaseURL)
	}
	return o.finish(ctx, res, status, notes, link, out.Kind)
}

// classify maps a submission outcome onto the STATUS and NOTES cells
func (o *Orchestrator) classify(out domain.Outcome) (status, notes string) {
	at := o.opts.Now().In(normalize.PKT).Format("03:04 PM")
	switch out.Kind {
	case domain.OutcomePosted:
		return domain.RowDone, "Posted @ " + at
	case domain.OutcomePending:
		return domain.RowDone, "Check manually @ " + at
	case domain.OutcomeNotFollowing:
		return domain.RowSkipped, out.String()
	case domain.OutcomeCommentsClosed, domain.OutcomeFormFieldMissing, domain.OutcomeRedirected:
		return domain.RowFailed, out.String()
	default:
		return domain.RowError, errorNote(out.Reason)
	}
}

// finish writes the terminal row state. Write failures are logged; the result
// still counts.
func (o *Orchestrator) finish(ctx context.Context, res domain.TargetResult, status, notes, link string, kind domain.OutcomeKind) domain.TargetResult {
	now := o.opts.Now()
	res.Status = status
	res.Notes = notes
	res.ResultURL = link
	res.Outcome = kind
	res.ProcessedAt = now

	doneAt := now.In(normalize.PKT).Format(normalize.DateLayout + " 03:04 PM")
	if err := o.deps.Worklist.WriteResult(ctx, res.Row, status, notes, link, doneAt); err != nil {
		o.logger.Error("Worklist write-back failed", "row", res.Row, "err", err)
	}

	attrs := []any{"row", res.Row, "status", status, "notes", notes}
	if link != "" {
		attrs = append(attrs, "url", link)
	}
	if res.Success() {
		o.logger.Info("Target done", attrs...)
	} else {
		o.logger.Warn("Target not done", attrs...)
	}
	return res
}

// finishAfterPanic records the Error row for a recovered panic. A second panic
// from the write-back is contained here so the loop moves on to the next target.
func (o *Orchestrator) finishAfterPanic(ctx context.Context, res domain.TargetResult, cause any) (out domain.TargetResult) {
	note := errorNote(fmt.Sprint(cause))
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Worklist write-back panicked", "row", res.Row, "panic", r)
			out = res
			out.Status = domain.RowError
			out.Notes = note
			out.ResultURL = ""
			out.Outcome = domain.OutcomeError
			out.ProcessedAt = o.opts.Now()
		}
	}()
	return o.finish(ctx, res, domain.RowError, note, "", domain.OutcomeError)
}

// prefill overwrites CITY/POSTS/FOLLOWERS with differing Profiles values
func (o *Orchestrator) prefill(ctx context.Context, t *domain.Target, lookup worklist.Lookup, key string) {
	rec, ok := lookup.Get(key)
	if !ok {
		return
	}
	var updated []string
	set := func(col int, field string, cur *string, val string) {
		val = normalize.CleanText(val)
		if val == "" || normalize.CleanText(*cur) == val {
			return
		}
		*cur = val
		if err := o.deps.Worklist.SetCell(ctx, t.Row, col, val); err != nil {
			o.logger.Warn("Prefill write failed", "row", t.Row, "field", field, "err", err)
		}
		updated = append(updated, field)
	}
	set(worklist.ColCity, "city", &t.City, rec.City)
	set(worklist.ColPosts, "posts", &t.Posts, rec.Posts)
	set(worklist.ColFollowers, "followers", &t.Followers, rec.Followers)
	if len(updated) > 0 {
		o.logger.Info("Prefilled from Profiles", "row", t.Row, "fields", strings.Join(updated, ","))
	}
}

// backfill copies scraped values into empty cells only
func (o *Orchestrator) backfill(ctx context.Context, t *domain.Target, snap *domain.ProfileSnapshot) {
	fill := func(col int, cur *string, scraped string) {
		scraped = normalize.CleanText(scraped)
		if normalize.CleanText(*cur) != "" || scraped == "" {
			return
		}
		*cur = scraped
		if err := o.deps.Worklist.SetCell(ctx, t.Row, col, scraped); err != nil {
			o.logger.Warn("Backfill write failed", "row", t.Row, "col", col, "err", err)
		}
	}
	fill(worklist.ColCity, &t.City, snap.City)
	fill(worklist.ColPosts, &t.Posts, snap.Posts)
	fill(worklist.ColFollowers, &t.Followers, snap.Followers)
}

func (o *Orchestrator) afterRun(ctx context.Context, s *domain.RunSummary) {
	if o.deps.APICalls != nil {
		s.APICalls = o.deps.APICalls()
	}
	o.logger.Info("Run finished",
		"run_id", s.RunID,
		"processed", s.Processed(),
		"success", s.Success,
		"failed", s.Failed,
		"interrupted", s.Interrupted,
	)
	if o.deps.History != nil {
		if err := o.deps.History.Record(ctx, *s); err != nil {
			o.logger.Warn("Run history not written", "err", err)
		}
	}
	for _, h := range o.deps.Hooks {
		if err := h.AfterRun(ctx, *s); err != nil {
			o.logger.Warn("Post-run hook failed", "hook", h.Name(), "err", err)
		}
	}
}

// postCount reads a POSTS cell. Unreadable counts are -1 so the locator decides.
func postCount(v string) int {
	v = strings.ReplaceAll(normalize.CleanText(v), ",", "")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func errorNote(reason string) string {
	r := []rune(reason)
	if len(r) > 40 {
		r = r[:40]
	}
	return "Error: " + string(r)
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
