package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/qepting91/threadbot/internal/domain"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, srv *httptest.Server) *HTTPSession {
	t.Helper()
	s, err := NewHTTPSession(context.Background(), HTTPOptions{BaseURL: srv.URL}, quietLogger())
	require.NoError(t, err)
	return s
}

const formsPage = `<html><body>
<div style="display: none">
  <form action="/direct-response/send/" method="POST">
    <input type="hidden" name="csrfmiddlewaretoken" value="template">
    <textarea name="direct_response"></textarea>
    <button type="submit">Send</button>
  </form>
</div>
<form action="/direct-response/send/" method="POST">
  <input type="hidden" name="csrfmiddlewaretoken" value="tok-123">
  <input type="hidden" name="obid" value="55">
  <input type="checkbox" name="notify">
  <textarea name="direct_response">old</textarea>
  <button type="submit" name="dec" value="1">Send</button>
</form>
<p hidden>secret</p>
<a id="next" href="/page/2/">Next</a>
</body></html>`

func TestHTTPSessionDisplayAndSubmit(t *testing.T) {
	var got map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/thread/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, formsPage)
	})
	mux.HandleFunc("/direct-response/send/", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		got = r.PostForm
		http.Redirect(w, r, "/thread/", http.StatusFound)
	})
	mux.HandleFunc("/page/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>two</h1></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestSession(t, srv)
	require.NoError(t, s.Navigate(context.Background(), "/thread/"))
	require.Equal(t, srv.URL+"/thread/", s.CurrentURL())

	forms, err := s.FindAll("form[action*='direct-response/send']")
	require.NoError(t, err)
	require.Len(t, forms, 2)

	visible, err := forms[0].IsDisplayed()
	require.NoError(t, err)
	require.False(t, visible)
	visible, err = forms[1].IsDisplayed()
	require.NoError(t, err)
	require.True(t, visible)

	hidden, err := s.Find("p")
	require.NoError(t, err)
	visible, _ = hidden.IsDisplayed()
	require.False(t, visible)

	token, err := forms[1].Find("input[name='csrfmiddlewaretoken']")
	require.NoError(t, err)
	visible, _ = token.IsDisplayed()
	require.False(t, visible)

	box, err := forms[1].Find("textarea[name='direct_response']")
	require.NoError(t, err)
	require.NoError(t, box.Clear())
	require.NoError(t, box.SendKeys("hello there"))

	btn, err := forms[1].Find("button[type='submit']")
	require.NoError(t, err)
	require.NoError(t, btn.Click())

	require.Equal(t, []string{"tok-123"}, got["csrfmiddlewaretoken"])
	require.Equal(t, []string{"55"}, got["obid"])
	require.Equal(t, []string{"hello there"}, got["direct_response"])
	require.Equal(t, []string{"1"}, got["dec"])
	require.NotContains(t, got, "notify")
	require.Equal(t, srv.URL+"/thread/", s.CurrentURL())

	next, err := s.Find("a#next")
	require.NoError(t, err)
	require.NoError(t, next.Click())
	require.Equal(t, srv.URL+"/page/2/", s.CurrentURL())

	_, err = s.Find("form")
	require.ErrorIs(t, err, domain.ErrElementNotFound)
	_, err = s.WaitUntilPresent(context.Background(), "form", 0)
	require.ErrorIs(t, err, domain.ErrTimeout)
	require.ErrorIs(t, s.ExecuteScript(context.Background(), "() => 1"), domain.ErrUnsupported)
}

func TestLoginWithFormThenCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err == nil && c.Value == "abc" {
			fmt.Fprint(w, `<html><body><a href="/users/bot/">bot</a></body></html>`)
			return
		}
		http.Redirect(w, r, "/login/", http.StatusFound)
	})
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if r.FormValue("nick") == "bot" && r.FormValue("pass") == "pw" {
				http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "abc", Path: "/"})
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		}
		fmt.Fprint(w, `<html><body><form method="POST" action="/login/">
<input id="nick" name="nick"><input id="pass" name="pass" type="password">
<button type="submit">Login</button></form></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cookieFile := filepath.Join(t.TempDir(), "cookies.json")
	creds := Credentials{BaseURL: srv.URL, Nick: "bot", Pass: "pw", CookieFile: cookieFile}

	s := newTestSession(t, srv)
	require.NoError(t, Login(context.Background(), s, creds, quietLogger()))
	saved, err := LoadCookies(cookieFile)
	require.NoError(t, err)
	require.NotEmpty(t, saved)

	// A fresh session should get in on the saved cookies alone
	creds.Pass = ""
	fresh := newTestSession(t, srv)
	require.NoError(t, Login(context.Background(), fresh, creds, quietLogger()))
	require.Equal(t, srv.URL+"/", fresh.CurrentURL())
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login/", http.StatusFound)
	})
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form method="POST" action="/login/"><input name="nick"><input name="pass"><button type="submit">Go</button></form>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	creds := Credentials{BaseURL: srv.URL, Nick: "bot", Pass: "bad", CookieFile: filepath.Join(t.TempDir(), "c.json")}
	err := Login(context.Background(), newTestSession(t, srv), creds, quietLogger())
	require.ErrorIs(t, err, ErrLoginFailed)
}

type flakySession struct {
	domain.Session
	failures int
	calls    int
	stops    int
}

func (f *flakySession) Navigate(ctx context.Context, url string) error {
	f.calls++
	if f.calls <= f.failures {
		return fmt.Errorf("net::ERR_TIMED_OUT")
	}
	return nil
}

func (f *flakySession) ExecuteScript(ctx context.Context, js string) error {
	f.stops++
	return nil
}

func TestNavigateWithRetry(t *testing.T) {
	s := &flakySession{failures: 1}
	require.NoError(t, NavigateWithRetry(context.Background(), s, "http://x/", 2, 0))
	require.Equal(t, 2, s.calls)
	require.Equal(t, 1, s.stops)

	s = &flakySession{failures: 5}
	require.Error(t, NavigateWithRetry(context.Background(), s, "http://x/", 2, 0))
	require.Equal(t, 2, s.calls)
}

func TestLoadCookiesMissingFile(t *testing.T) {
	cookies, err := LoadCookies(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	require.Nil(t, cookies)
}
