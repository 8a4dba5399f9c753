package schools

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/czedu/internal/fetcher"
)

// FormSpec names the registry search form and its fields.
type FormSpec struct {
	EntryURL    string
	FrameName   string
	TypeField   string
	RegionField string
	RowsField   string
	SubmitField string
	MaxRows     int
}

// Form is the parsed registry search form.
type Form struct {
	// PageURL is the URL of the document holding the form.
	PageURL string
	// Action is the absolute URL the form posts to.
	Action string
	// Fields holds the form's default values: hidden ASP.NET state,
	// text inputs and the selected option of each select.
	Fields  url.Values
	Selects map[string][]Option
	Submits map[string]string
}

// Options returns the options of the named select.
func (f *Form) Options(field string) []Option {
	return f.Selects[field]
}

// SearchValues builds the postback for one search entry.
func (f *Form) SearchValues(spec FormSpec, e Entry) url.Values {
	v := url.Values{}
	for k, vals := range f.Fields {
		v[k] = append([]string(nil), vals...)
	}
	v.Set(spec.TypeField, e.Type.Value)
	v.Set(spec.RegionField, e.Region.Value)
	if spec.RowsField != "" && spec.MaxRows > 0 {
		v.Set(spec.RowsField, strconv.Itoa(spec.MaxRows))
	}
	if spec.SubmitField != "" {
		label, ok := f.Submits[spec.SubmitField]
		if !ok {
			label = "Vybrat"
		}
		v.Set(spec.SubmitField, label)
	}
	return v
}

func newDocument(page *fetcher.Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "schools: parse html from %s", page.URL)
	}
	return doc, nil
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrapf(err, "schools: parse url %q", base)
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", eris.Wrapf(err, "schools: parse link %q", ref)
	}
	return b.ResolveReference(r).String(), nil
}

// FrameURL returns the absolute URL of the named frame. A page without the
// frame is taken to be the frame document itself.
func FrameURL(page *fetcher.Page, name string) (string, error) {
	doc, err := newDocument(page)
	if err != nil {
		return "", err
	}
	sel := doc.Find(`frame[name="` + name + `"], iframe[name="` + name + `"]`).First()
	src, ok := sel.Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return page.URL, nil
	}
	return resolve(page.URL, src)
}

// ParseForm extracts the first form of page.
func ParseForm(page *fetcher.Page) (*Form, error) {
	doc, err := newDocument(page)
	if err != nil {
		return nil, err
	}
	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, eris.Errorf("schools: no form on %s", page.URL)
	}

	action, _ := sel.Attr("action")
	actionURL, err := resolve(page.URL, action)
	if err != nil {
		return nil, err
	}

	f := &Form{
		PageURL: page.URL,
		Action:  actionURL,
		Fields:  url.Values{},
		Selects: map[string][]Option{},
		Submits: map[string]string{},
	}

	sel.Find("input").Each(func(_ int, in *goquery.Selection) {
		name, ok := in.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := in.Attr("value")
		switch strings.ToLower(in.AttrOr("type", "text")) {
		case "submit", "button", "image":
			f.Submits[name] = value
		case "checkbox", "radio":
			if _, checked := in.Attr("checked"); checked {
				f.Fields.Add(name, value)
			}
		default:
			f.Fields.Add(name, value)
		}
	})

	sel.Find("select").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		var opts []Option
		selected := ""
		s.Find("option").Each(func(i int, o *goquery.Selection) {
			text := cleanText(o.Text())
			value, hasValue := o.Attr("value")
			if !hasValue {
				value = text
			}
			opts = append(opts, Option{Value: value, Text: text})
			if _, ok := o.Attr("selected"); ok || i == 0 {
				selected = value
			}
		})
		f.Selects[name] = opts
		f.Fields.Set(name, selected)
	})

	return f, nil
}

// cleanText collapses whitespace, including the non-breaking spaces the
// registry pads table cells with.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
