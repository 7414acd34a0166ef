package submit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestVerifySignals(t *testing.T) {
	const user, msg = "bot_01", "Salam dost, kya haal hai?"

	cases := []struct {
		name   string
		page   string
		signal string
		only   bool
	}{
		{"profile link", `<a href="/users/bot_01/">x</a>`, "username_href", false},
		{"bold name", `<b>bot_01</b>`, "username_bold", false},
		{"quoted message", `<bdi>Salam dost, kya haal hai?</bdi>`, "message_in_bdi", false},
		{"relative time", `<span>12 secs ago</span>`, "recent_time", true},
		{"name anywhere", `<p>reply by bot_01</p>`, "simple_username", true},
		{"message anywhere", `<p>Salam dost, kya haal hai?</p>`, "simple_message", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals := Verify("<html><body>"+tc.page+"</body></html>", user, msg)
			require.Len(t, signals, 6)
			passed := 0
			for _, s := range signals {
				if s.Passed {
					passed++
				}
				if s.Name == tc.signal {
					require.True(t, s.Passed)
				}
			}
			if tc.only {
				require.Equal(t, 1, passed)
			}
			require.True(t, anyPassed(signals))
		})
	}

	none := Verify("<html><body><p>someone else said hi 3 mins ago</p></body></html>", user, msg)
	require.False(t, anyPassed(none))
}

func TestVerifyIgnoresEmptyInputs(t *testing.T) {
	require.False(t, anyPassed(Verify("<html></html>", "", "")))
}

func TestVerifyEscapedMessage(t *testing.T) {
	signals := Verify(`<bdi>it&#39;s me</bdi>`, "nobody", "it's me")
	require.True(t, anyPassed(signals))
}

const templateForm = `<div style="display:none"><form action="/direct-response/send/" method="POST">
<input type="hidden" name="csrfmiddlewaretoken" value="template"><textarea name="direct_response"></textarea>
<button type="submit">Send</button></form></div>`

type fakeThread struct {
	mu         sync.Mutex
	page       string
	echo       bool
	posted     []string
	tokens     []string
	redirectTo string
}

func (f *fakeThread) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/comments/text/55/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.redirectTo != "" {
			http.Redirect(w, r, f.redirectTo, http.StatusFound)
			return
		}
		body := f.page
		if f.echo {
			for _, p := range f.posted {
				body += "<div><b>someone</b> <bdi>" + p + "</bdi></div>"
			}
		}
		fmt.Fprint(w, "<html><body>"+body+"</body></html>")
	})
	mux.HandleFunc("/direct-response/send/", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.posted = append(f.posted, r.PostForm.Get("direct_response"))
		f.tokens = append(f.tokens, r.PostForm.Get("csrfmiddlewaretoken"))
		f.mu.Unlock()
		http.Redirect(w, r, "/comments/text/55/", http.StatusFound)
	})
	return mux
}

func liveForm(token string) string {
	csrf := ""
	if token != "" {
		csrf = `<input type="hidden" name="csrfmiddlewaretoken" value="` + token + `">`
	}
	return `<form action="/direct-response/send/" method="POST">` + csrf + `
<input type="hidden" name="obid" value="55"><textarea name="direct_response"></textarea>
<button type="submit">Send</button></form>`
}

func newEngine(t *testing.T, f *fakeThread) (*Engine, string) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session, err := browser.NewHTTPSession(context.Background(), browser.HTTPOptions{BaseURL: srv.URL}, logger)
	require.NoError(t, err)
	return NewEngine(session, Options{BaseURL: srv.URL, Username: "nobody_here"}, logger), srv.URL + "/comments/text/55/"
}

func TestSubmitAndVerifyPosted(t *testing.T) {
	f := &fakeThread{page: templateForm + liveForm("tok-live"), echo: true}
	e, thread := newEngine(t, f)

	out := e.SubmitAndVerify(context.Background(), thread, "Hi Bob, from Lahore!")
	require.Equal(t, domain.OutcomePosted, out.Kind)
	require.Equal(t, "Hi Bob, from Lahore!", out.Message)
	require.Equal(t, strings.TrimSuffix(thread, "/"), out.Link)
	require.Equal(t, []string{"Hi Bob, from Lahore!"}, f.posted)
	require.Equal(t, []string{"tok-live"}, f.tokens)
}

func TestSubmitAndVerifyPending(t *testing.T) {
	f := &fakeThread{page: liveForm("tok")}
	e, thread := newEngine(t, f)

	out := e.SubmitAndVerify(context.Background(), thread, "hello")
	require.Equal(t, domain.OutcomePending, out.Kind)
	require.True(t, out.Success())
	require.Len(t, f.posted, 1)
}

func TestSubmitAndVerifyTruncates(t *testing.T) {
	f := &fakeThread{page: liveForm("tok"), echo: true}
	e, thread := newEngine(t, f)

	out := e.SubmitAndVerify(context.Background(), thread, strings.Repeat("a", 500))
	require.Equal(t, domain.OutcomePosted, out.Kind)
	require.Len(t, f.posted[0], 350)
	require.Len(t, out.Message, 350)
}

func TestSubmitAndVerifyTerminalStates(t *testing.T) {
	cases := []struct {
		name string
		page string
		want domain.OutcomeKind
	}{
		{"follow gate", `<p>Follow to reply</p>` + liveForm("tok"), domain.OutcomeNotFollowing},
		{"only hidden template", templateForm, domain.OutcomeCommentsClosed},
		{"no forms", `<p>Comments are off</p>`, domain.OutcomeCommentsClosed},
		{"missing token", liveForm(""), domain.OutcomeFormFieldMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeThread{page: tc.page}
			e, thread := newEngine(t, f)
			out := e.SubmitAndVerify(context.Background(), thread, "hello")
			require.Equal(t, tc.want, out.Kind)
			require.False(t, out.Success())
			require.Empty(t, f.posted, "nothing should be submitted")
		})
	}
}

func TestSubmitAndVerifyRedirected(t *testing.T) {
	elsewhere := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>ads</body></html>")
	}))
	defer elsewhere.Close()

	f := &fakeThread{redirectTo: strings.Replace(elsewhere.URL, "127.0.0.1", "localhost", 1) + "/landing"}
	e, thread := newEngine(t, f)

	out := e.SubmitAndVerify(context.Background(), thread, "hello")
	require.Equal(t, domain.OutcomeRedirected, out.Kind)
	require.Contains(t, out.Link, "/landing")
}

func TestCommentsClosedMessage(t *testing.T) {
	require.Equal(t, "Comments closed", domain.CommentsClosed("x").String())
}

func TestSubmitFinishesAfterShutdownSignal(t *testing.T) {
	f := &fakeThread{page: liveForm("tok-live"), echo: true}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	root, cancel := context.WithCancel(context.Background())
	session, err := browser.NewHTTPSession(root, browser.HTTPOptions{BaseURL: srv.URL}, logger)
	require.NoError(t, err)
	cancel()

	e := NewEngine(session, Options{BaseURL: srv.URL, Username: "nobody_here"}, logger)
	out := e.SubmitAndVerify(context.WithoutCancel(root), srv.URL+"/comments/text/55/", "still here")
	require.Equal(t, domain.OutcomePosted, out.Kind)
	require.Equal(t, []string{"still here"}, f.posted)
}
