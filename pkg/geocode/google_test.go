package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/czedu/internal/resilience"
)

func newTestGoogle(t *testing.T, body string) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "cz", r.URL.Query().Get("region"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleProvider("test-key", "cz", serverClient(srv))
	p.limiter = unlimited()
	return p
}

func TestGoogleGeocode_Rooftop(t *testing.T) {
	p := newTestGoogle(t, `{
		"status": "OK",
		"results": [{
			"geometry": {
				"location": {"lat": 49.1951, "lng": 16.6068},
				"location_type": "ROOFTOP"
			},
			"formatted_address": "Žerotínovo nám. 617/9, 601 77 Brno"
		}]
	}`)

	result, err := p.Geocode(context.Background(), "Masarykova univerzita")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 49.1951, result.Latitude, 0.0001)
	assert.InDelta(t, 16.6068, result.Longitude, 0.0001)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, "rooftop", result.Quality)
	assert.Equal(t, "Žerotínovo nám. 617/9, 601 77 Brno", result.Address)
}

func TestGoogleGeocode_ZeroResults(t *testing.T) {
	p := newTestGoogle(t, `{"status": "ZERO_RESULTS", "results": []}`)

	result, err := p.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGoogleGeocode_OverQueryLimitIsTransient(t *testing.T) {
	p := newTestGoogle(t, `{"status": "OVER_QUERY_LIMIT", "results": []}`)

	_, err := p.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestGoogleGeocode_RequestDenied(t *testing.T) {
	p := newTestGoogle(t, `{"status": "REQUEST_DENIED", "error_message": "bad key", "results": []}`)

	_, err := p.Geocode(context.Background(), "x")
	assert.ErrorContains(t, err, "bad key")
}

func TestGoogleGeocode_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key", "", serverClient(srv))
	p.limiter = unlimited()
	_, err := p.Geocode(context.Background(), "x")
	assert.ErrorContains(t, err, "status 500")
}

func TestGoogleGeocode_NoKey(t *testing.T) {
	p := NewGoogleProvider("", "cz", nil)
	assert.False(t, p.Available())
	_, err := p.Geocode(context.Background(), "x")
	assert.ErrorContains(t, err, "not configured")
}

func TestGoogleLocationTypeToQuality(t *testing.T) {
	tests := map[string]string{
		"ROOFTOP":            "rooftop",
		"RANGE_INTERPOLATED": "street",
		"GEOMETRIC_CENTER":   "centroid",
		"APPROXIMATE":        "approximate",
		"":                   "approximate",
	}
	for in, want := range tests {
		assert.Equal(t, want, googleLocationTypeToQuality(in), in)
	}
}
