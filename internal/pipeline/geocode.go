package pipeline

import (
	"context"

	"github.com/sells-group/czedu/pkg/geocode"
)

// geocodeUnique geocodes each distinct non-empty query once and returns the
// matched results by query.
func (p *Pipeline) geocodeUnique(ctx context.Context, queries []string) (map[string]geocode.Result, error) {
	seen := make(map[string]bool, len(queries))
	var unique []string
	for _, q := range queries {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		unique = append(unique, q)
	}
	if len(unique) == 0 {
		return map[string]geocode.Result{}, nil
	}

	results, err := p.geocoder.BatchGeocode(ctx, unique)
	if err != nil {
		return nil, err
	}

	matched := make(map[string]geocode.Result, len(results))
	for i, r := range results {
		if r.Matched && i < len(unique) {
			matched[unique[i]] = r
		}
	}
	return matched, nil
}
