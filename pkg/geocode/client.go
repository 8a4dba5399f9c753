// Package geocode resolves addresses and place names to WGS 84 coordinates
// via OpenStreetMap Nominatim (primary) and Google (fallback).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
)

// Client geocodes free-text queries: composed postal addresses for schools
// and institution names for universities.
type Client interface {
	// Geocode geocodes a single query.
	Geocode(ctx context.Context, query string) (*Result, error)

	// BatchGeocode geocodes many queries. Results align with the input
	// slice; a query that cannot be resolved yields Matched=false.
	BatchGeocode(ctx context.Context, queries []string) ([]Result, error)
}

// Result holds the geocoding output for a query.
type Result struct {
	Query     string
	Latitude  float64
	Longitude float64
	Address   string // display address reported by the provider
	Source    string // "nominatim", "google" or "cache"
	Quality   string // "rooftop", "street", "centroid", "approximate"
	Matched   bool
}

// Point returns the result as a WGS 84 point, or nil when unmatched.
func (r *Result) Point() *geom.Point {
	if r == nil || !r.Matched {
		return nil
	}
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{r.Longitude, r.Latitude}).SetSRID(4326)
}

// normalizeQuery collapses whitespace so trivially different spellings of a
// query share one lookup.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
