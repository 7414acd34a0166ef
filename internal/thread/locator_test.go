package thread

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/qepting91/threadbot/internal/browser"
	"github.com/stretchr/testify/require"
)

type site struct {
	srv   *httptest.Server
	hits  atomic.Int32
	pages map[string]string
}

func newSite(t *testing.T, pages map[string]string) *site {
	t.Helper()
	s := &site{pages: pages}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		body, ok := s.pages[r.URL.RequestURI()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) locator(t *testing.T, maxPages int) *Locator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session, err := browser.NewHTTPSession(context.Background(), browser.HTTPOptions{BaseURL: s.srv.URL}, logger)
	require.NoError(t, err)
	return NewLocator(session, Options{BaseURL: s.srv.URL, MaxPages: maxPages}, logger)
}

func TestFindFirstOpenPostPrefersTextLinks(t *testing.T) {
	s := newSite(t, map[string]string{
		"/profile/public/alice/": `<html><body>
<article class="mbl"><p>closed post, no trigger</p></article>
<article class="mbl">
  <a href="/content/12/"><button itemprop="discussionUrl">Reply</button></a>
  <a href="/comments/text/12/3/#reply">comments</a>
</article>
</body></html>`,
	})

	handle, err := s.locator(t, 4).FindFirstOpenPost(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, handle)
	require.Equal(t, s.srv.URL+"/comments/text/12", handle.URL)
	require.Equal(t, 2, handle.Index)
}

func TestFindFirstOpenPostDiscussionButton(t *testing.T) {
	s := newSite(t, map[string]string{
		"/profile/public/bob/": `<html><body>
<article class="mbl"><a href="/content/99/g/"><button itemprop="discussionUrl">Reply</button></a></article>
</body></html>`,
	})

	handle, err := s.locator(t, 4).FindFirstOpenPost(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, s.srv.URL+"/content/99/g", handle.URL)
}

func TestFindFirstOpenPostFollowsPagination(t *testing.T) {
	s := newSite(t, map[string]string{
		"/profile/public/carol/": `<html><body>
<article class="mbl"><p>nothing</p></article>
<a rel="next" href="?page=2">Next</a></body></html>`,
		"/profile/public/carol/?page=2": `<html><body>
<article class="mbl"><a href="/comments/image/7/">img</a></article></body></html>`,
	})

	handle, err := s.locator(t, 4).FindFirstOpenPost(context.Background(), "carol")
	require.NoError(t, err)
	require.Equal(t, s.srv.URL+"/comments/image/7", handle.URL)
	require.Equal(t, int32(2), s.hits.Load())
}

func TestFindFirstOpenPostRespectsPageCap(t *testing.T) {
	closed := `<html><body><article class="mbl"><p>closed</p></article><a rel="next" href="/profile/public/dave/?page=%d">Next</a></body></html>`
	pages := map[string]string{"/profile/public/dave/": fmt.Sprintf(closed, 2)}
	for i := 2; i <= 10; i++ {
		pages[fmt.Sprintf("/profile/public/dave/?page=%d", i)] = fmt.Sprintf(closed, i+1)
	}
	s := newSite(t, pages)

	handle, err := s.locator(t, 3).FindFirstOpenPost(context.Background(), "dave")
	require.NoError(t, err)
	require.Nil(t, handle)
	require.Equal(t, int32(3), s.hits.Load())
}

func TestFindFirstOpenPostStopsWithoutNextLink(t *testing.T) {
	s := newSite(t, map[string]string{
		"/profile/public/erin/": `<html><body><article class="mbl"><p>closed</p></article></body></html>`,
	})

	handle, err := s.locator(t, 4).FindFirstOpenPost(context.Background(), "erin")
	require.NoError(t, err)
	require.Nil(t, handle)
	require.Equal(t, int32(1), s.hits.Load())
}
