package schools

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/czedu/internal/fetcher"
)

// HTTPSession drives the registry with plain form postbacks. Each session
// keeps its own cookie jar because ASP.NET ties view state to the session.
type HTTPSession struct {
	pages fetcher.PageFetcher
	spec  FormSpec
}

// NewHTTPSession creates a session on top of pages, which must keep cookies.
func NewHTTPSession(pages fetcher.PageFetcher, spec FormSpec) *HTTPSession {
	return &HTTPSession{pages: pages, spec: spec}
}

// HTTPSessionFactory opens sessions that share f's rate limits.
func HTTPSessionFactory(f *fetcher.HTTPFetcher, spec FormSpec) SessionFactory {
	return func(context.Context) (Session, error) {
		return NewHTTPSession(f.Session(), spec), nil
	}
}

// SearchForm implements Session.
func (s *HTTPSession) SearchForm(ctx context.Context) (*Form, error) {
	entry, err := s.pages.GetPage(ctx, s.spec.EntryURL)
	if err != nil {
		return nil, eris.Wrap(err, "schools: load entry page")
	}

	frameURL, err := FrameURL(entry, s.spec.FrameName)
	if err != nil {
		return nil, err
	}

	page := entry
	if frameURL != entry.URL {
		page, err = s.pages.GetPage(ctx, frameURL)
		if err != nil {
			return nil, eris.Wrap(err, "schools: load search frame")
		}
	}
	return ParseForm(page)
}

// Search implements Session.
func (s *HTTPSession) Search(ctx context.Context, form *Form, e Entry) (*fetcher.Page, error) {
	page, err := s.pages.PostForm(ctx, form.Action, form.SearchValues(s.spec, e))
	if err != nil {
		return nil, eris.Wrapf(err, "schools: search %s", e)
	}
	return page, nil
}

// Page implements Session.
func (s *HTTPSession) Page(ctx context.Context, url string) (*fetcher.Page, error) {
	return s.pages.GetPage(ctx, url)
}

// Close implements Session.
func (s *HTTPSession) Close() error { return nil }
