package schools

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/czedu/internal/fetcher"
)

// HasNoResults reports whether a search result page carries the registry's
// "no records match" message.
func HasNoResults(page *fetcher.Page, marker string) bool {
	return marker != "" && bytes.Contains(page.Body, []byte(marker))
}

// DetailLinks returns the absolute URLs of all links on page whose href
// contains detailPath, de-duplicated in document order.
func DetailLinks(page *fetcher.Page, detailPath string) ([]string, error) {
	doc, err := newDocument(page)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string
	var resolveErr error
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, detailPath) {
			return true
		}
		abs, err := resolve(page.URL, href)
		if err != nil {
			resolveErr = err
			return false
		}
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
		return true
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return links, nil
}
