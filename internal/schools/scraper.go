package schools

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/czedu/internal/fetcher"
	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/resilience"
)

// Options configures a registry scrape.
type Options struct {
	Spec FormSpec
	// Processes is the number of workers; zero means one per CPU.
	Processes  int
	Retry      resilience.RetryConfig
	DetailPath string
	NoResult   string
	Shuffle    bool
	// Limit caps the number of entries returned by Entries; zero means all.
	Limit int
	// RecycleOnFail reopens a worker's session after a failed entry.
	RecycleOnFail bool
}

// Result is the outcome of a scrape.
type Result struct {
	Schools []model.School
	// Failures holds one RecordError per failed entry, detail page or row.
	Failures []error

	Entries       int
	FailedEntries int
	Pages         int
	Details       int
}

// Scraper walks the registry with a pool of sessions.
type Scraper struct {
	open SessionFactory
	opts Options
}

// New creates a scraper that opens sessions with open.
func New(open SessionFactory, opts Options) *Scraper {
	return &Scraper{open: open, opts: opts}
}

func (s *Scraper) retry(kind, entity string) resilience.RetryConfig {
	cfg := s.opts.Retry
	cfg.ShouldRetry = resilience.RetryAll
	cfg.OnRetry = resilience.RetryLogger(kind, entity)
	return cfg
}

// openSession opens a session and loads the search form. Both steps failing
// means the registry or the browser is unusable, so the error is fatal.
func (s *Scraper) openSession(ctx context.Context) (Session, *Form, error) {
	sess, err := s.open(ctx)
	if err != nil {
		if resilience.IsFatal(err) {
			return nil, nil, err
		}
		return nil, nil, resilience.NewEnvironmentError("open registry session", err)
	}

	form, err := resilience.DoVal(ctx, s.retry("form", s.opts.Spec.EntryURL), func(ctx context.Context) (*Form, error) {
		return sess.SearchForm(ctx)
	})
	if err != nil {
		_ = sess.Close()
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, resilience.NewEnvironmentError("load registry search form", err)
	}
	return sess, form, nil
}

// Entries discovers the search entries offered by the registry form.
func (s *Scraper) Entries(ctx context.Context) ([]Entry, error) {
	sess, form, err := s.openSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	var rnd *rand.Rand
	if s.opts.Shuffle {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}

	types := form.Options(s.opts.Spec.TypeField)
	regions := form.Options(s.opts.Spec.RegionField)
	entries := BuildEntries(types, regions, rnd)
	if len(entries) == 0 {
		return nil, resilience.NewEnvironmentError("discover search entries",
			eris.Errorf("form has %d type and %d region options", len(types), len(regions)))
	}
	if s.opts.Limit > 0 && len(entries) > s.opts.Limit {
		entries = entries[:s.opts.Limit]
	}

	zap.L().Info("discovered search entries",
		zap.String("component", "schools"),
		zap.Int("types", len(nonEmpty(types))),
		zap.Int("regions", len(nonEmpty(regions))),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// collector gathers worker output.
type collector struct {
	mu       sync.Mutex
	batches  [][]model.School
	failures []error
	// parsed holds detail URLs that were fetched and parsed; inflight holds
	// the ones a worker is fetching, closed when it finishes.
	parsed   map[string]bool
	inflight map[string]chan struct{}
	// detailFailures keeps the last error of detail pages that never parsed.
	detailFailures map[string]error

	done, failedEntries, pages, details atomic.Int64
}

func newCollector() *collector {
	return &collector{
		parsed:         make(map[string]bool),
		inflight:       make(map[string]chan struct{}),
		detailFailures: make(map[string]error),
	}
}

func (c *collector) add(schools []model.School) {
	c.mu.Lock()
	c.batches = append(c.batches, schools)
	c.mu.Unlock()
}

func (c *collector) fail(errs ...error) {
	c.mu.Lock()
	c.failures = append(c.failures, errs...)
	c.mu.Unlock()
}

// claim reserves url for the caller and reports false when the page was
// already parsed. Legal entities that run several school types show up under
// several entries. While another worker holds url, claim waits for it; a page
// that failed there is handed to the caller for another try.
func (c *collector) claim(ctx context.Context, url string) (bool, error) {
	for {
		c.mu.Lock()
		if c.parsed[url] {
			c.mu.Unlock()
			return false, nil
		}
		wait, busy := c.inflight[url]
		if !busy {
			c.inflight[url] = make(chan struct{})
			c.mu.Unlock()
			return true, nil
		}
		c.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// release ends the caller's claim on url. A nil err marks the page parsed.
func (c *collector) release(url string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.parsed[url] = true
		delete(c.detailFailures, url)
	} else {
		c.detailFailures[url] = err
	}
	if wait, ok := c.inflight[url]; ok {
		close(wait)
		delete(c.inflight, url)
	}
}

// allFailures returns the recorded failures followed by the detail pages
// that never parsed, ordered by URL.
func (c *collector) allFailures() []error {
	urls := make([]string, 0, len(c.detailFailures))
	for u := range c.detailFailures {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	out := append([]error(nil), c.failures...)
	for _, u := range urls {
		out = append(out, resilience.NewRecordError(u, c.detailFailures[u]))
	}
	return out
}

// Scrape runs every entry through the worker pool and merges the schools by
// ID. Failed entries and pages are recorded in the result; only fatal
// environment errors and cancellation abort the scrape.
func (s *Scraper) Scrape(ctx context.Context, entries []Entry) (*Result, error) {
	log := zap.L().With(zap.String("component", "schools"))

	workers := s.opts.Processes
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	c := newCollector()
	if len(entries) == 0 {
		return &Result{}, nil
	}

	log.Info("scraping registry",
		zap.Int("entries", len(entries)),
		zap.Int("workers", workers),
	)
	start := time.Now()

	ch := make(chan Entry)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ch)
		for _, e := range entries {
			select {
			case ch <- e:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for i := range workers {
		g.Go(func() error {
			return s.worker(gctx, i, len(entries), ch, c)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Schools:       model.MergeSchools(c.batches...),
		Failures:      c.allFailures(),
		Entries:       len(entries),
		FailedEntries: int(c.failedEntries.Load()),
		Pages:         int(c.pages.Load()),
		Details:       int(c.details.Load()),
	}

	log.Info("registry scrape complete",
		zap.Int("schools", len(res.Schools)),
		zap.Int("details", res.Details),
		zap.Int("failed_entries", res.FailedEntries),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (s *Scraper) worker(ctx context.Context, id, total int, entries <-chan Entry, c *collector) error {
	log := zap.L().With(zap.String("component", "schools"), zap.Int("worker", id))

	sess, form, err := s.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if sess != nil {
			_ = sess.Close()
		}
	}()

	for e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.scrapeEntry(ctx, sess, form, e, c)
		done := c.done.Add(1)
		if err == nil {
			log.Info("entry complete",
				zap.String("entry", e.String()),
				zap.Int64("done", done),
				zap.Int("total", total),
			)
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if resilience.IsFatal(err) {
			return err
		}

		log.Warn("entry failed", zap.String("entry", e.String()), zap.Error(err))
		c.failedEntries.Add(1)
		c.fail(resilience.NewRecordError(e.String(), err))

		if s.opts.RecycleOnFail {
			_ = sess.Close()
			sess, form, err = s.openSession(ctx)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scraper) scrapeEntry(ctx context.Context, sess Session, form *Form, e Entry, c *collector) error {
	page, err := resilience.DoVal(ctx, s.retry("entry", e.String()), func(ctx context.Context) (*fetcher.Page, error) {
		return sess.Search(ctx, form, e)
	})
	if err != nil {
		return err
	}
	c.pages.Add(1)

	if HasNoResults(page, s.opts.NoResult) {
		zap.L().Debug("no results", zap.String("component", "schools"), zap.String("entry", e.String()))
		return nil
	}

	links, err := DetailLinks(page, s.opts.DetailPath)
	if err != nil {
		return err
	}

	for _, link := range links {
		ok, err := c.claim(ctx, link)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		res, err := resilience.DoVal(ctx, s.retry("detail", link), func(ctx context.Context) (*DetailResult, error) {
			p, err := sess.Page(ctx, link)
			if err != nil {
				return nil, err
			}
			return ParseDetail(p)
		})
		c.release(link, err)
		if err != nil {
			if ctx.Err() != nil || resilience.IsFatal(err) {
				return err
			}
			zap.L().Warn("detail page failed",
				zap.String("component", "schools"),
				zap.String("url", link),
				zap.Error(err),
			)
			continue
		}

		c.details.Add(1)
		c.add(res.Schools)
		if len(res.Rejected) > 0 {
			for _, rej := range res.Rejected {
				zap.L().Warn("rejected facility row", zap.String("component", "schools"), zap.Error(rej))
			}
			c.fail(res.Rejected...)
		}
	}
	return nil
}
