// Package schools scrapes the Czech school registry (rejstriky.msmt.cz).
//
// The registry is an ASP.NET application inside a frameset. A search is a
// (school type, region) pair submitted through the search form; the result
// page links to legal entity detail pages, and each detail page lists the
// entity's facilities in a table. Every facility becomes one model.School.
//
// Two session backends drive the site: HTTPSession posts the form directly
// and BrowserSession drives a headless Chrome through chromedp. Scraper runs
// a pool of workers, each owning one session.
package schools
