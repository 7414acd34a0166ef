package inbox

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/worklist"
	"github.com/stretchr/testify/require"
)

const textReply = `<div class="mbl mtl" style="border:2px solid #ccc">
  <div class="cl lsp nos"><b><bdi>sana_22</bdi></b> replied: <span><bdi>thanks <bdi>bhai</bdi></bdi></span></div>
  <span class="cxs sp">5 mins ago</span>
  <a href="/comments/text/901/">view</a>
  <form action="/direct-response/send/" method="POST">
    <input type="hidden" name="csrfmiddlewaretoken" value="tok">
    <input type="hidden" name="obid" value="901"><input type="hidden" name="poid" value="77">
    <input type="hidden" name="tuid" value="12"><input type="hidden" name="origin" value="9">
    <textarea name="direct_response"></textarea>
  </form>
</div>`

const imageReply = `<div class="mbl mtl" style="border:2px solid #ccc">
  <div class="cl lsp nos"><bdi>omar</bdi> <span><bdi>nice pic</bdi></span></div>
  <a href="/comments/image/33/"><img src="https://d1.cloudfront.net/t/33.jpg"></a>
  <div class="cm sp"><span class="ct">sunset</span></div>
</div>`

const oneOnOne = `<div class="mbl mtl" style="border:2px solid #ccc">
  <form action="/1-on-1/from-single-notif/" method="POST"><button name="tid" value="4455">Reply</button></form>
  <div class="cm sp">New 1on1 message</div>
</div>`

func TestParsePage(t *testing.T) {
	page := "<html><body>" + textReply + imageReply + oneOnOne +
		`<div class="mbl mtl">not a notification</div><a href="?page=2"><button>Next</button></a></body></html>`

	items, next, err := ParsePage(page, "https://damadam.pk/inbox/")
	require.NoError(t, err)
	require.Equal(t, "https://damadam.pk/inbox/?page=2", next)
	require.Len(t, items, 3)

	text := items[0]
	require.Equal(t, "text_reply", text.Type)
	require.Equal(t, "sana_22", text.Author)
	require.Equal(t, "bhai", text.Snippet)
	require.Equal(t, "5 mins ago", text.Time)
	require.Equal(t, "/comments/text/901/", text.PostLink)
	require.True(t, text.HasReplyForm)
	require.True(t, text.CSRFPresent)
	require.Equal(t, "tuid:12|poid:77|obid:901|origin:9", text.RelKey())

	img := items[1]
	require.Equal(t, "image_reply", img.Type)
	require.Equal(t, "/comments/image/33/", img.ImageLink)
	require.Equal(t, "https://d1.cloudfront.net/t/33.jpg", img.Thumbnail)
	require.Equal(t, "sunset", img.Caption)
	require.Equal(t, "nice pic", img.Snippet)
	require.False(t, img.HasReplyForm)

	dm := items[2]
	require.Equal(t, "1on1", dm.Type)
	require.Equal(t, "4455", dm.TID)
	require.Equal(t, "tid:4455", dm.RelKey())
	require.Equal(t, "New 1on1 message", dm.Caption)

	row := dm.Row("19-Oct-26 03:04 PM", "Replies")
	require.Len(t, row, len(Header))
	require.Equal(t, "No", row[16])
}

func TestCaptureFollowsNextUntilRevisit(t *testing.T) {
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.RequestURI()]++
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, "<html><body>"+textReply+`<a href="/inbox/?page=2">Next</a></body></html>`)
		default:
			fmt.Fprint(w, "<html><body>"+imageReply+oneOnOne+`<a href="/inbox/">Next</a></body></html>`)
		}
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session, err := browser.NewHTTPSession(context.Background(), browser.HTTPOptions{BaseURL: srv.URL}, logger)
	require.NoError(t, err)

	grid, err := worklist.NewXLSXGrid(filepath.Join(t.TempDir(), "inbox.xlsx"))
	require.NoError(t, err)
	defer grid.Close()
	sink := worklist.NewClient(grid, worklist.ClientOptions{BaseDelay: time.Millisecond}, logger)

	exportDir := t.TempDir()
	c := NewCapturer(session, sink, Options{
		BaseURL:   srv.URL,
		ExportDir: exportDir,
		Now:       func() time.Time { return time.Date(2026, 10, 19, 10, 4, 0, 0, time.UTC) },
	}, logger)

	n, err := c.Capture(context.Background(), Inbox)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 1, hits["/inbox/"])
	require.Equal(t, 1, hits["/inbox/?page=2"])

	rows, err := grid.GetAllRows(context.Background(), "Inbox")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, Header, rows[0])
	// newest insert sits at row 2
	require.Equal(t, "1on1", rows[1][2])
	require.Equal(t, "text_reply", rows[3][2])
	require.Equal(t, "19-Oct-26 03:04 PM", rows[3][0])

	f, err := os.Open(filepath.Join(exportDir, "inbox.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, "text_reply", records[1][2])
}
