package schools

import (
	"context"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/czedu/internal/fetcher"
	"github.com/sells-group/czedu/internal/resilience"
)

// BrowserOptions configures the headless browser backend.
type BrowserOptions struct {
	ExecPath  string
	Headless  bool
	UserAgent string
	// Settle is the pause after each form interaction; the registry updates
	// its selects through postbacks.
	Settle  time.Duration
	Timeout time.Duration
}

// BrowserSession drives the registry through a real browser, for when the
// site rejects plain postbacks. Each session runs its own browser process.
type BrowserSession struct {
	spec        FormSpec
	opts        BrowserOptions
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewBrowserSession starts a browser. Failing to start it is an environment
// error.
func NewBrowserSession(ctx context.Context, spec FormSpec, opts BrowserOptions) (*BrowserSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run launches the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, resilience.NewEnvironmentError("start browser", err)
	}

	return &BrowserSession{
		spec:        spec,
		opts:        opts,
		ctx:         tabCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// BrowserSessionFactory opens one browser per session.
func BrowserSessionFactory(spec FormSpec, opts BrowserOptions) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return NewBrowserSession(ctx, spec, opts)
	}
}

// run executes actions in the tab, bounded by the caller's context and the
// configured timeout.
func (s *BrowserSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if s.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, s.opts.Timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *BrowserSession) load(ctx context.Context, url string) (*fetcher.Page, error) {
	var html, location string
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "schools: browser load %s", url)
	}
	return &fetcher.Page{URL: location, Body: []byte(html)}, nil
}

// SearchForm implements Session.
func (s *BrowserSession) SearchForm(ctx context.Context) (*Form, error) {
	entry, err := s.load(ctx, s.spec.EntryURL)
	if err != nil {
		return nil, err
	}
	frameURL, err := FrameURL(entry, s.spec.FrameName)
	if err != nil {
		return nil, err
	}

	page := entry
	if frameURL != entry.URL {
		if page, err = s.load(ctx, frameURL); err != nil {
			return nil, err
		}
	}
	return ParseForm(page)
}

// Search implements Session. The form page is reloaded for every search so
// that a previous result never leaks into the next one.
func (s *BrowserSession) Search(ctx context.Context, form *Form, e Entry) (*fetcher.Page, error) {
	byName := func(name string) string { return `[name="` + name + `"]` }

	actions := []chromedp.Action{
		chromedp.Navigate(form.PageURL),
		chromedp.WaitReady(byName(s.spec.RegionField), chromedp.ByQuery),
		chromedp.SetValue(byName(s.spec.RegionField), e.Region.Value, chromedp.ByQuery),
		chromedp.Sleep(s.opts.Settle),
		chromedp.SetValue(byName(s.spec.TypeField), e.Type.Value, chromedp.ByQuery),
		chromedp.Sleep(s.opts.Settle),
	}
	if s.spec.RowsField != "" && s.spec.MaxRows > 0 {
		actions = append(actions,
			chromedp.SetValue(byName(s.spec.RowsField), strconv.Itoa(s.spec.MaxRows), chromedp.ByQuery))
	}

	var html, location string
	actions = append(actions,
		chromedp.Click(byName(s.spec.SubmitField), chromedp.ByQuery),
		chromedp.Sleep(s.opts.Settle),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	)

	if err := s.run(ctx, actions...); err != nil {
		return nil, eris.Wrapf(err, "schools: browser search %s", e)
	}
	return &fetcher.Page{URL: location, Body: []byte(html)}, nil
}

// Page implements Session.
func (s *BrowserSession) Page(ctx context.Context, url string) (*fetcher.Page, error) {
	return s.load(ctx, url)
}

// Close implements Session.
func (s *BrowserSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
