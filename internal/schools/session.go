package schools

import (
	"context"

	"github.com/sells-group/czedu/internal/fetcher"
)

// Session is one worker's connection to the registry.
type Session interface {
	// SearchForm loads the entry page, resolves the search frame and
	// parses its form.
	SearchForm(ctx context.Context) (*Form, error)

	// Search submits one (type, region) search and returns the result page.
	Search(ctx context.Context, form *Form, e Entry) (*fetcher.Page, error)

	// Page fetches a detail page.
	Page(ctx context.Context, url string) (*fetcher.Page, error)

	// Close releases the session's resources.
	Close() error
}

// SessionFactory opens a new session.
type SessionFactory func(ctx context.Context) (Session, error)
