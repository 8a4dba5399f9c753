package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/czedu/internal/resilience"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	PlaceRank   int    `json:"place_rank"`
}

// NominatimProvider geocodes with the OpenStreetMap Nominatim search API.
// The public instance allows one request per second and requires an
// identifying user agent.
type NominatimProvider struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	countryCodes string
	limiter      *rate.Limiter
	retry        resilience.RetryConfig
}

// NominatimOption configures a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimURL points the provider at another Nominatim instance.
func WithNominatimURL(u string) NominatimOption {
	return func(p *NominatimProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithCountryCodes restricts results to the given ISO 3166-1 codes ("cz").
func WithCountryCodes(codes string) NominatimOption {
	return func(p *NominatimProvider) { p.countryCodes = codes }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) { p.httpClient = hc }
}

// WithNominatimRetry sets the retry policy for transient failures.
func WithNominatimRetry(cfg resilience.RetryConfig) NominatimOption {
	return func(p *NominatimProvider) { p.retry = cfg }
}

// NewNominatimProvider creates a Nominatim provider.
func NewNominatimProvider(userAgent string, opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		httpClient: defaultHTTPClient(),
		baseURL:    DefaultNominatimURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return p.userAgent != "" }

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	retry := p.retry
	retry.OnRetry = resilience.RetryLogger("nominatim", query)
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*Result, error) {
		return p.search(ctx, query)
	})
}

func (p *NominatimProvider) search(ctx context.Context, query string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"limit":           {"1"},
		"accept-language": {"cs"},
	}
	if p.countryCodes != "" {
		params.Set("countrycodes", p.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: nominatim request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return &Result{Query: query, Matched: false, Source: "nominatim"}, nil
	}

	place := places[0]
	lat, latErr := strconv.ParseFloat(place.Lat, 64)
	lon, lonErr := strconv.ParseFloat(place.Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, eris.Errorf("geocode: nominatim returned invalid coordinates %q, %q", place.Lat, place.Lon)
	}

	return &Result{
		Query:     query,
		Latitude:  lat,
		Longitude: lon,
		Address:   place.DisplayName,
		Source:    "nominatim",
		Quality:   placeRankToQuality(place.PlaceRank),
		Matched:   true,
	}, nil
}

// placeRankToQuality maps Nominatim's place_rank to our quality taxonomy.
func placeRankToQuality(rank int) string {
	switch {
	case rank >= 30:
		return "rooftop"
	case rank >= 26:
		return "street"
	case rank >= 13:
		return "centroid"
	default:
		return "approximate"
	}
}
