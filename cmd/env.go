package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/czedu/internal/config"
	"github.com/sells-group/czedu/internal/fetcher"
	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/pipeline"
	"github.com/sells-group/czedu/internal/resilience"
	"github.com/sells-group/czedu/internal/schools"
	"github.com/sells-group/czedu/internal/universities"
	"github.com/sells-group/czedu/pkg/crs"
	"github.com/sells-group/czedu/pkg/geocode"
)

// datasetFlags holds the flags shared by the dataset commands. A flag set on
// the command line overrides the config value.
type datasetFlags struct {
	processes int
	crs       string
	sheet     int
	limit     int
	backend   string
}

func (f *datasetFlags) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("processes") {
		c.Registry.Processes = f.processes
	}
	if flags.Changed("crs") {
		c.Output.CRS = f.crs
	}
	if flags.Changed("sheet") {
		c.Universities.SheetIndex = f.sheet
	}
	if flags.Changed("backend") {
		c.Registry.Backend = f.backend
	}
}

// envOptions selects which datasets an environment is built for.
type envOptions struct {
	Universities bool
	Schools      bool
	// Limit caps the number of registry search entries.
	Limit int
}

// runEnv holds the clients and the pipeline used by the dataset commands.
type runEnv struct {
	Fetcher  *fetcher.HTTPFetcher
	Geocoder *geocode.CascadeClient
	Cache    *geocode.Cache
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *runEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initEnv builds the pipeline from cfg. Callers should defer env.Close().
func initEnv(ctx context.Context, opts envOptions) (*runEnv, error) {
	outCRS, err := crs.Parse(cfg.Output.CRS)
	if err != nil {
		return nil, resilience.NewEnvironmentError("parse output crs", err)
	}

	f := newFetcher()
	gc, cache, err := newGeocoder(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(gc, pipeline.Options{
		CRS:          outCRS,
		FallbackLon:  cfg.Geocode.FallbackLon,
		FallbackLat:  cfg.Geocode.FallbackLat,
		CSVDelimiter: rune(cfg.Output.CSVDelimiter[0]),
	})

	if opts.Universities {
		p.SetUniversities(universities.NewSource(f, universities.Options{
			URL:        cfg.Universities.URL,
			SheetIndex: cfg.Universities.SheetIndex,
			TempDir:    cfg.Universities.TempDir,
		}))
	}
	if opts.Schools {
		scraper, err := newScraper(f, scraperOptions(opts.Limit))
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		p.SetSchools(scraper)
	}

	zap.L().Info("environment ready",
		zap.String("crs", outCRS.String()),
		zap.Strings("geocoders", gc.Providers()),
		zap.String("backend", cfg.Registry.Backend),
	)

	return &runEnv{Fetcher: f, Geocoder: gc, Cache: cache, Pipeline: p}, nil
}

func retryConfig() resilience.RetryConfig {
	return cfg.Retry.Policy()
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Registry.UserAgent,
		Timeout:      time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
		Retry:        retryConfig(),
		RegistryRate: float64(cfg.Registry.RequestsPerS),
		CookieJar:    true,
	})
}

// newGeocoder builds the provider cascade: Nominatim first, then Google when
// a key is configured. Results are cached in SQLite.
func newGeocoder(ctx context.Context) (*geocode.CascadeClient, *geocode.Cache, error) {
	providers := []geocode.Provider{
		geocode.NewNominatimProvider(cfg.Geocode.UserAgent,
			geocode.WithNominatimURL(cfg.Geocode.NominatimURL),
			geocode.WithCountryCodes(cfg.Geocode.CountryCodes),
			geocode.WithRateLimit(cfg.Geocode.RateLimit),
			geocode.WithNominatimRetry(retryConfig()),
		),
	}
	if cfg.Geocode.GoogleKey != "" {
		providers = append(providers, geocode.NewGoogleProvider(cfg.Geocode.GoogleKey, cfg.Geocode.CountryCodes, nil))
	}

	ttl := time.Duration(cfg.Geocode.CacheTTLDays) * 24 * time.Hour
	cache, err := geocode.OpenCache(ctx, cfg.Geocode.CachePath, ttl)
	if err != nil {
		return nil, nil, resilience.NewEnvironmentError("open geocode cache", err)
	}

	gc := geocode.NewCascadeClient(providers,
		geocode.WithCache(cache),
		geocode.WithBatchConcurrency(cfg.Geocode.Concurrency),
	)
	return gc, cache, nil
}

func formSpec() schools.FormSpec {
	return schools.FormSpec{
		EntryURL:    cfg.Registry.URL,
		FrameName:   cfg.Registry.FrameName,
		TypeField:   cfg.Registry.TypeField,
		RegionField: cfg.Registry.RegionField,
		RowsField:   cfg.Registry.RowsField,
		SubmitField: cfg.Registry.SubmitField,
		MaxRows:     cfg.Registry.MaxRows,
	}
}

func scraperOptions(limit int) schools.Options {
	return schools.Options{
		Spec:          formSpec(),
		Processes:     cfg.Registry.Processes,
		Retry:         retryConfig(),
		DetailPath:    cfg.Registry.DetailPath,
		NoResult:      cfg.Registry.NoResult,
		Shuffle:       cfg.Registry.Shuffle,
		Limit:         limit,
		RecycleOnFail: cfg.Registry.Backend == "browser" && cfg.Browser.RecycleOnFail,
	}
}

// newScraper builds a registry scraper on the configured session backend.
func newScraper(f *fetcher.HTTPFetcher, opts schools.Options) (*schools.Scraper, error) {
	switch cfg.Registry.Backend {
	case "browser":
		path, err := cfg.BrowserPath()
		if err != nil {
			return nil, resilience.NewEnvironmentError("locate browser", err)
		}
		open := schools.BrowserSessionFactory(opts.Spec, schools.BrowserOptions{
			ExecPath:  path,
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Registry.UserAgent,
			Settle:    time.Duration(cfg.Browser.SettleMillis) * time.Millisecond,
			Timeout:   time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
		})
		return schools.New(open, opts), nil
	default:
		return schools.New(schools.HTTPSessionFactory(f, opts.Spec), opts), nil
	}
}

// printSummaries writes run summaries as YAML.
func printSummaries(w io.Writer, summaries []*model.RunSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summaries); err != nil {
		return err
	}
	return enc.Close()
}
