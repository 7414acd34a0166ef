package worklist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// sheetsAPI serves the handful of Sheets v4 endpoints SheetsGrid.InsertRow uses
type sheetsAPI struct {
	mu        sync.Mutex
	inserts   int
	updates   int
	failWrite int
	written   [][]string
}

func (a *sheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sheet-1":
		fmt.Fprint(w, `{"sheets":[{"properties":{"sheetId":7,"title":"Inbox"}}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		a.inserts++
		fmt.Fprint(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/values/"):
		a.updates++
		if a.updates <= a.failWrite {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"code":503,"message":"The service is currently unavailable.","status":"UNAVAILABLE"}}`)
			return
		}
		var body struct {
			Values [][]string `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.written = append(a.written, body.Values...)
		fmt.Fprint(w, `{"updatedRows":1}`)
	default:
		http.NotFound(w, r)
	}
}

func newSheetsAPI(t *testing.T, api *sheetsAPI) *SheetsGrid {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	g, err := newSheetsGrid(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return g
}

func TestSheetsInsertRowRetryKeepsOneRow(t *testing.T) {
	api := &sheetsAPI{failWrite: 1}
	c := NewClient(newSheetsAPI(t, api), ClientOptions{BaseDelay: time.Millisecond}, quietLogger())

	require.NoError(t, c.InsertRow(context.Background(), "Inbox", []string{"19-Oct-26", "bob"}, 2))
	require.Equal(t, 1, api.inserts)
	require.Equal(t, 2, api.updates)
	require.Equal(t, [][]string{{"19-Oct-26", "bob"}}, api.written)
	require.EqualValues(t, 2, c.APICalls())

	require.NoError(t, c.InsertRow(context.Background(), "Inbox", []string{"19-Oct-26", "zara"}, 2))
	require.Equal(t, 2, api.inserts)
}
