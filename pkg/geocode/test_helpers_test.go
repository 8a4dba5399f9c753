package geocode

import (
	"net/http"
	"net/http/httptest"
	"net/url"

	"golang.org/x/time/rate"
)

// unlimited never blocks.
func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// serverClient returns a client that sends every request to srv, keeping
// the path and query of the original URL.
func serverClient(srv *httptest.Server) *http.Client {
	target, _ := url.Parse(srv.URL)
	return &http.Client{Transport: redirectTransport{target: target}}
}

type redirectTransport struct {
	target *url.URL
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(out)
}
