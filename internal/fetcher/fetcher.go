// Package fetcher downloads source documents: registry pages, form
// postbacks and the student-count workbook.
package fetcher

import (
	"context"
	"io"
	"net/url"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// PageFetcher retrieves HTML pages and submits forms within one session.
type PageFetcher interface {
	GetPage(ctx context.Context, url string) (*Page, error)
	PostForm(ctx context.Context, url string, form url.Values) (*Page, error)
}

// Page is a fetched HTML document decoded to UTF-8.
type Page struct {
	// URL is the final URL after redirects; relative links resolve against it.
	URL  string
	Body []byte
}
