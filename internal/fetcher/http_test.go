package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/czedu/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("file content here"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := newTestFetcher().DownloadToFile(context.Background(), srv.URL+"/f21.xlsx", path)
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file content here", string(data))
}

func TestDownloadToFile_BadPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	_, err := newTestFetcher().DownloadToFile(context.Background(), srv.URL, filepath.Join(t.TempDir(), "missing", "out"))
	assert.ErrorContains(t, err, "create file")
}

func TestDownload_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestDownload_InvalidURL(t *testing.T) {
	_, err := newTestFetcher().Download(context.Background(), "://bad")
	assert.Error(t, err)
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDownload_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Download(ctx, srv.URL)
	assert.Error(t, err)
}

func TestPostForm_ReplaysBodyOnRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "Praha", r.PostForm.Get("ctl39"))
		assert.Equal(t, "9999", r.PostForm.Get("txtPocetZaznamu"))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>výsledky</p>"))
	}))
	defer srv.Close()

	form := url.Values{"ctl39": {"Praha"}, "txtPocetZaznamu": {"9999"}}
	page, err := newTestFetcher().PostForm(context.Background(), srv.URL+"/search.aspx", form)
	require.NoError(t, err)
	assert.Equal(t, "<p>výsledky</p>", string(page.Body))
	assert.Equal(t, srv.URL+"/search.aspx", page.URL)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestGetPage_FollowsRedirectAndDecodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/page.aspx", http.StatusFound)
	})
	mux.HandleFunc("/new/page.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1250")
		_, _ = w.Write([]byte{0x9e, 0xe1, 'k'}) // "žák"
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := newTestFetcher().GetPage(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new/page.aspx", page.URL)
	assert.Equal(t, "žák", string(page.Body))
}

func TestSession_KeepsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("ASP.NET_SessionId")
		if err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(c.Value))
	}))
	defer srv.Close()

	base := newTestFetcher()
	s1 := base.Session()
	s2 := base.Session()

	_, err := s1.GetPage(context.Background(), srv.URL+"/login")
	require.NoError(t, err)

	page, err := s1.GetPage(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(page.Body))

	_, err = s2.GetPage(context.Background(), srv.URL+"/data")
	assert.ErrorContains(t, err, "unexpected status 403", "sessions must not share cookies")

	_, err = base.GetPage(context.Background(), srv.URL+"/data")
	assert.Error(t, err)
}

func TestSession_SharesLimiters(t *testing.T) {
	base := newTestFetcher()
	s := base.Session()
	u, _ := url.Parse("https://" + RegistryHost + "/rejskol/default.aspx")
	assert.Same(t, base.adaptiveLimiterFor(u), s.adaptiveLimiterFor(u))
	assert.NotSame(t, base.client, s.client)
	assert.NotNil(t, s.client.Jar)
}

func TestLimiterFor(t *testing.T) {
	custom := rate.NewLimiter(1, 1)
	f := NewHTTPFetcher(HTTPOptions{RateLimiters: map[string]*rate.Limiter{"example.com": custom}})

	u, _ := url.Parse("https://example.com:8443/x")
	assert.Same(t, custom, f.limiterFor(u))

	dsia, _ := url.Parse("https://" + DSIAHost + "/vystupy/f2/f21.xlsx")
	assert.InDelta(t, 2.0, float64(f.limiterFor(dsia).Limit()), 0.001)

	other, _ := url.Parse("https://unknown.test/")
	assert.Same(t, f.fallback, f.limiterFor(other))
	assert.Nil(t, f.adaptiveLimiterFor(other))
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "czedu/1.0", f.opts.UserAgent)
	assert.Equal(t, 60*time.Second, f.opts.Timeout)
	assert.Nil(t, f.client.Jar)

	u, _ := url.Parse("https://" + RegistryHost + "/")
	require.NotNil(t, f.adaptiveLimiterFor(u))
	assert.InDelta(t, 10.0, float64(f.adaptiveLimiterFor(u).Limit()), 0.001)

	transport, ok := f.client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 20, transport.MaxConnsPerHost)
}

func TestAdaptiveLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 0.001)

	for range 10 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.001, "capped at 2x")

	for range 10 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.001, "floored at 1/4")

	require.NoError(t, lim.Wait(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}

func TestDoWithRetry_429_AdaptiveBackoff(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	u, _ := url.Parse(srv.URL)
	f.adaptiveLimiters[u.Hostname()] = NewAdaptiveLimiter(100, 100)
	initialRate := f.adaptiveLimiters[u.Hostname()].Limit()

	body, err := f.Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	_ = body.Close()

	assert.Equal(t, int32(3), attempts.Load())
	// 100 → 50 → 25 → 30
	assert.Less(t, float64(f.adaptiveLimiters[u.Hostname()].Limit()), float64(initialRate))
}
