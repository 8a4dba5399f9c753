package model

import (
	"regexp"
	"strings"
)

var pragueDistrict = regexp.MustCompile(`Praha \d+`)

// ComposeAddress builds the geocoding query for a school:
// "<city>, <street> <lrn>/<hn>" with absent parts left out. Prague district
// names ("Praha 4") are collapsed to "Praha", which geocoders resolve better.
func ComposeAddress(city, street, lrn, hn string) string {
	city = strings.TrimSpace(city)
	street = strings.TrimSpace(street)
	lrn = strings.TrimSpace(lrn)
	hn = strings.TrimSpace(hn)

	var b strings.Builder
	b.WriteString(city)
	b.WriteByte(',')
	if street != "" {
		b.WriteString(" " + street)
	}
	if lrn != "" {
		b.WriteString(" " + lrn)
	}
	if hn != "" {
		b.WriteString("/" + hn)
	}

	addr := pragueDistrict.ReplaceAllString(b.String(), "Praha")
	return strings.TrimSuffix(addr, ",")
}

// NormalizeZip removes the spaces the registry puts inside postal codes.
func NormalizeZip(zip string) string {
	return strings.Join(strings.Fields(zip), "")
}

// SplitLanguages splits a registry language cell ("anglický, německý") into
// its items.
func SplitLanguages(cell string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
