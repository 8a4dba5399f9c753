package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/czedu/internal/resilience"
)

// Hosts of the ministry sites.
const (
	RegistryHost = "rejstriky.msmt.cz"
	DSIAHost     = "dsia.msmt.cz"
)

// maxPageSize caps HTML bodies read into memory.
const maxPageSize = 32 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// RegistryRate is the initial request rate against the school registry.
	RegistryRate float64
	RateLimiters map[string]*rate.Limiter
	// CookieJar enables a cookie jar; ASP.NET forms keep session state in cookies.
	CookieJar bool
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher and PageFetcher using net/http with retry
// and per-host rate limiting.
type HTTPFetcher struct {
	client           *http.Client
	opts             HTTPOptions
	limiters         map[string]*rate.Limiter
	adaptiveLimiters map[string]*AdaptiveLimiter
	fallback         *rate.Limiter
}

// DefaultRateLimiters returns the fixed per-host rate limiters.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		DSIAHost: rate.NewLimiter(2, 2),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "czedu/1.0"
	}
	if opts.RegistryRate <= 0 {
		opts.RegistryRate = 10
	}
	limiters := DefaultRateLimiters()
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	burst := max(int(opts.RegistryRate), 1)

	f := &HTTPFetcher{
		opts:     opts,
		limiters: limiters,
		adaptiveLimiters: map[string]*AdaptiveLimiter{
			RegistryHost: NewAdaptiveLimiter(rate.Limit(opts.RegistryRate), burst),
		},
		fallback: rate.NewLimiter(20, 20),
	}
	f.client = f.newClient()
	return f
}

func (f *HTTPFetcher) newClient() *http.Client {
	c := &http.Client{
		Timeout: f.opts.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if f.opts.CookieJar {
		jar, _ := cookiejar.New(nil) // only fails on a non-nil PublicSuffixList
		c.Jar = jar
	}
	return c
}

// Session returns a fetcher with its own cookie jar that shares this
// fetcher's rate limiters. Each registry worker holds one session.
func (f *HTTPFetcher) Session() *HTTPFetcher {
	opts := f.opts
	opts.CookieJar = true
	s := &HTTPFetcher{
		opts:             opts,
		limiters:         f.limiters,
		adaptiveLimiters: f.adaptiveLimiters,
		fallback:         f.fallback,
	}
	s.client = s.newClient()
	return s
}

func (f *HTTPFetcher) adaptiveLimiterFor(u *url.URL) *AdaptiveLimiter {
	return f.adaptiveLimiters[u.Hostname()]
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *rate.Limiter {
	if lim, ok := f.limiters[u.Hostname()]; ok {
		return lim
	}
	return f.fallback
}

func (f *HTTPFetcher) wait(ctx context.Context, u *url.URL) error {
	if adaptive := f.adaptiveLimiterFor(u); adaptive != nil {
		return adaptive.Wait(ctx)
	}
	return f.limiterFor(u).Wait(ctx)
}

// doWithRetry sends req, retrying network errors, 429 and 5xx responses.
// Request bodies are replayed through req.GetBody.
func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	adaptive := f.adaptiveLimiterFor(req.URL)
	target := req.URL.String()

	retry := f.opts.Retry
	retry.OnRetry = resilience.RetryLogger("http", target)

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		if err := f.wait(ctx, req.URL); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		cloned := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, eris.Wrap(err, "replay request body")
			}
			cloned.Body = body
		}

		resp, err := f.client.Do(cloned)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, resilience.NewTransientError(err, 0)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if adaptive != nil {
				adaptive.OnRateLimit()
			}
			return nil, resilience.NewTransientError(eris.Errorf("http 429 from %s", target), resp.StatusCode)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(eris.Errorf("http %d from %s", resp.StatusCode, target), resp.StatusCode)
		}

		if adaptive != nil {
			adaptive.OnSuccess()
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "all retries exhausted")
	}
	return resp, nil
}

func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Language", "cs,en;q=0.8")

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL)
	}
	return resp, nil
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}

	return n, nil
}

// GetPage fetches an HTML page and decodes it to UTF-8.
func (f *HTTPFetcher) GetPage(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	return f.page(ctx, req)
}

// PostForm submits form values as application/x-www-form-urlencoded and
// returns the resulting page.
func (f *HTTPFetcher) PostForm(ctx context.Context, rawURL string, form url.Values) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.page(ctx, req)
}

func (f *HTTPFetcher) page(ctx context.Context, req *http.Request) (*Page, error) {
	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "read %s", req.URL), 0)
	}
	body, err := ToUTF8(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return &Page{URL: resp.Request.URL.String(), Body: body}, nil
}
