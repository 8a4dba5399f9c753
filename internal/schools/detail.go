package schools

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/czedu/internal/fetcher"
	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/resilience"
)

// idHeader identifies the facility table on a detail page.
const idHeader = "Id. zařízení"

// columns maps facility table headers to school fields.
var columns = map[string]func(s *model.School, v string){
	idHeader:               func(s *model.School, v string) { s.ID = v },
	"Typ":                  func(s *model.School, v string) { s.Type = v },
	"Název zařízení":       func(s *model.School, v string) { s.Name = v },
	"Obec":                 func(s *model.School, v string) { s.City = v },
	"Ulice":                func(s *model.School, v string) { s.Street = v },
	"Č.p.":                 func(s *model.School, v string) { s.LRN = v },
	"Č.o.":                 func(s *model.School, v string) { s.HN = v },
	"M.část.":              func(s *model.School, v string) { s.CityPart = v },
	"PSČ":                  func(s *model.School, v string) { s.ZipCode = model.NormalizeZip(v) },
	"Cizí vyučovací jazyk": func(s *model.School, v string) { s.ForeignLanguages = model.SplitLanguages(v) },
	"Kapacita":             func(s *model.School, v string) { s.Capacity = parseCapacity(v) },
	"Platnost zařízení":    func(s *model.School, v string) { s.Validity = v },
}

// DetailResult is the outcome of parsing one detail page.
type DetailResult struct {
	Schools []model.School
	// Rejected holds rows that lack an ID or type.
	Rejected []error
}

// ParseDetail extracts the facilities listed on a legal entity detail page.
// It fails when the page has no facility table.
func ParseDetail(page *fetcher.Page) (*DetailResult, error) {
	doc, err := newDocument(page)
	if err != nil {
		return nil, err
	}

	table := facilityTable(doc)
	if table == nil {
		return nil, eris.Errorf("schools: no facility table on %s", page.URL)
	}

	rows := tableRows(table)
	if len(rows) == 0 {
		return nil, eris.Errorf("schools: empty facility table on %s", page.URL)
	}

	header := rows[0]
	setters := make([]func(*model.School, string), len(header))
	mapped := 0
	for i, h := range header {
		if set, ok := columns[h]; ok {
			setters[i] = set
			mapped++
		}
	}
	if mapped == 0 {
		return nil, eris.Errorf("schools: facility table on %s has no known columns (%s)", page.URL, strings.Join(header, " | "))
	}

	res := &DetailResult{}
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var s model.School
		for i, cell := range row {
			if i < len(setters) && setters[i] != nil && cell != "" {
				setters[i](&s, cell)
			}
		}
		if err := s.Validate(); err != nil {
			res.Rejected = append(res.Rejected, resilience.NewRecordError(
				page.URL+" row "+strconv.Itoa(n+1), err))
			continue
		}
		s.ComposeAddress()
		res.Schools = append(res.Schools, s)
	}
	return res, nil
}

// facilityTable picks the table whose header row names the facility ID.
// Pages whose header text differs fall back to the table position used by
// the registry layout: the third table when the page has exactly three,
// otherwise the fourth.
func facilityTable(doc *goquery.Document) *goquery.Selection {
	tables := doc.Find("table")

	var found *goquery.Selection
	tables.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		rows := tableRows(t)
		for _, cell := range firstRow(rows) {
			if cell == idHeader {
				found = t
				return false
			}
		}
		return true
	})
	if found != nil {
		return found
	}

	idx := 3
	if tables.Length() == 3 {
		idx = 2
	}
	if idx >= tables.Length() {
		return nil
	}
	return tables.Eq(idx)
}

// tableRows returns the cell texts of the table's own rows, skipping rows of
// nested tables and rows with no cells.
func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		var cells []string
		tr.ChildrenFiltered("td, th").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cleanText(td.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

func firstRow(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// parseCapacity reads a capacity cell ("1 250"). Non-numeric cells yield nil.
func parseCapacity(v string) *int {
	n, err := strconv.Atoi(strings.Join(strings.Fields(v), ""))
	if err != nil {
		return nil
	}
	return &n
}
