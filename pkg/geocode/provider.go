package geocode

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// CascadeClient tries geocode providers in order until one matches.
type CascadeClient struct {
	providers        []Provider
	cache            *Cache
	batchConcurrency int
	group            singleflight.Group
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache stores results in c and consults it before any provider.
func WithCache(c *Cache) CascadeOption {
	return func(cc *CascadeClient) {
		cc.cache = c
	}
}

// WithBatchConcurrency sets the max parallel lookups in BatchGeocode.
// Provider rate limiters still bound the request rate.
func WithBatchConcurrency(n int) CascadeOption {
	return func(c *CascadeClient) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:        providers,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers returns the names of the available providers, in order.
func (c *CascadeClient) Providers() []string {
	var names []string
	for _, p := range c.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Geocode implements Client. Provider errors are logged and the next provider
// is tried; when nothing matches the result is unmatched, not an error.
// Concurrent calls for the same query share one lookup.
func (c *CascadeClient) Geocode(ctx context.Context, query string) (*Result, error) {
	query = normalizeQuery(query)
	if query == "" {
		return &Result{Matched: false, Source: "cascade"}, nil
	}

	v, err, _ := c.group.Do(query, func() (any, error) {
		return c.lookup(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	r := *v.(*Result)
	return &r, nil
}

func (c *CascadeClient) lookup(ctx context.Context, query string) (*Result, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, query)
		if err != nil {
			zap.L().Warn("geocode cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	providerFailed := false
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			providerFailed = true
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			result.Query = query
			c.store(ctx, query, result)
			return result, nil
		}
	}

	noMatch := &Result{Query: query, Matched: false, Source: "cascade"}
	// Only definite misses are cached; a provider outage may succeed next run.
	if !providerFailed {
		c.store(ctx, query, noMatch)
	}
	return noMatch, nil
}

func (c *CascadeClient) store(ctx context.Context, query string, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, query, r); err != nil {
		zap.L().Warn("geocode cache store failed", zap.Error(err))
	}
}

// BatchGeocode implements Client by geocoding queries in parallel.
// Individual failures yield unmatched results and never fail the batch;
// only context cancellation does.
func (c *CascadeClient) BatchGeocode(ctx context.Context, queries []string) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([]Result, len(queries))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, q := range queries {
		eg.Go(func() error {
			r, gcErr := c.Geocode(gCtx, q)
			if gcErr != nil || r == nil {
				results[i] = Result{Query: q, Matched: false, Source: "cascade"}
				return nil //nolint:nilerr // individual geocode failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
