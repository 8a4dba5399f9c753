package schools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/czedu/internal/fetcher"
	"github.com/sells-group/czedu/internal/resilience"
)

// newRegistryServer serves a miniature registry: a frameset entry page, the
// search form, result pages keyed by school type and detail pages.
func newRegistryServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var posts atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/rejskol/default.aspx", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(entryHTML))
	})
	mux.HandleFunc("/rejskol/search.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "abc"})
			_, _ = w.Write([]byte(searchHTML))
			return
		}

		posts.Add(1)
		if _, err := r.Cookie("ASP.NET_SessionId"); err != nil {
			http.Error(w, "session expired", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.Equal(t, "vs123", r.PostForm.Get("__VIEWSTATE"))
		assert.Equal(t, "9999", r.PostForm.Get("txtPocetZaznamu"))
		assert.Equal(t, "Vybrat", r.PostForm.Get("btnVybrat"))

		switch r.PostForm.Get("ctl38") + "/" + r.PostForm.Get("ctl39") {
		case "B10/CZ064":
			_, _ = w.Write([]byte(resultHTML(
				detailPath+"?ID=1",
				detailPath+"?ID=2",
				detailPath+"?ID=3",
			)))
		default:
			_, _ = w.Write([]byte(noResultHTML))
		}
	})
	mux.HandleFunc("/rejskol/"+detailPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		id := r.URL.Query().Get("ID")
		_, _ = w.Write([]byte(detailHTML(facilityHeader,
			[]string{"60000" + id, "B10 Základní škola", "ZŠ " + id, "Brno", "Husova", id, "", "", "602 00", "", "300"},
		)))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &posts
}

func TestHTTPSession_SearchForm(t *testing.T) {
	srv, _ := newRegistryServer(t)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second})

	sess := NewHTTPSession(f.Session(), testSpec(srv.URL+"/rejskol/default.aspx"))
	form, err := sess.SearchForm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/rejskol/search.aspx", form.PageURL)
	assert.Equal(t, srv.URL+"/rejskol/search.aspx?lang=cs", form.Action)
	assert.Len(t, form.Options("ctl38"), 3)
	assert.NoError(t, sess.Close())
}

func TestHTTPSession_ScrapeEndToEnd(t *testing.T) {
	srv, posts := newRegistryServer(t)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout: 5 * time.Second,
		Retry:   resilience.RetryConfig{MaxAttempts: 1},
	})

	opts := testOptions()
	opts.Spec = testSpec(srv.URL + "/rejskol/default.aspx")
	s := New(HTTPSessionFactory(f, opts.Spec), opts)

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 4)

	res, err := s.Scrape(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, int32(4), posts.Load())
	assert.Empty(t, res.Failures)
	require.Len(t, res.Schools, 3)
	assert.Equal(t, "600001", res.Schools[0].ID)
	assert.Equal(t, "ZŠ 1", res.Schools[0].Name)
	assert.Equal(t, "Brno, Husova 1", res.Schools[0].Address)
	assert.Equal(t, "60200", res.Schools[0].ZipCode)
	require.NotNil(t, res.Schools[2].Capacity)
	assert.Equal(t, 300, *res.Schools[2].Capacity)
}
