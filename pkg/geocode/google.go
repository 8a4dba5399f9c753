package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/czedu/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleProvider geocodes with the Google Geocoding API. It is available
// only when an API key is configured.
type GoogleProvider struct {
	httpClient *http.Client
	key        string
	region     string
	limiter    *rate.Limiter
}

// NewGoogleProvider creates a Google provider biased to the given region ("cz").
func NewGoogleProvider(key, region string, hc *http.Client) *GoogleProvider {
	if hc == nil {
		hc = defaultHTTPClient()
	}
	return &GoogleProvider{
		httpClient: hc,
		key:        key,
		region:     region,
		limiter:    rate.NewLimiter(40, 40),
	}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.key != "" }

// Geocode implements Provider.
func (p *GoogleProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if p.key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{
		"address":  {query},
		"key":      {p.key},
		"language": {"cs"},
	}
	if p.region != "" {
		params.Set("region", p.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleGeocodeURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch googleResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Query: query, Matched: false, Source: "google"}, nil
	case "OVER_QUERY_LIMIT":
		return nil, resilience.NewTransientError(eris.New("geocode: google over query limit"), http.StatusTooManyRequests)
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", googleResp.Status, googleResp.ErrorMessage)
	}
	if len(googleResp.Results) == 0 {
		return &Result{Query: query, Matched: false, Source: "google"}, nil
	}

	result := googleResp.Results[0]
	return &Result{
		Query:     query,
		Latitude:  result.Geometry.Location.Lat,
		Longitude: result.Geometry.Location.Lng,
		Address:   result.FormattedAddress,
		Source:    "google",
		Quality:   googleLocationTypeToQuality(result.Geometry.LocationType),
		Matched:   true,
	}, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "street"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
