package model

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// School is one facility ("zařízení") listed on a legal entity's detail page
// in the school registry.
type School struct {
	ID               string      `json:"id" yaml:"id"`
	Type             string      `json:"type" yaml:"type"`
	Name             string      `json:"name" yaml:"name"`
	City             string      `json:"city" yaml:"city"`
	Street           string      `json:"street,omitempty" yaml:"street,omitempty"`
	LRN              string      `json:"lrn,omitempty" yaml:"lrn,omitempty"` // land-registry number (č.p.)
	HN               string      `json:"hn,omitempty" yaml:"hn,omitempty"`   // house number (č.o.)
	CityPart         string      `json:"city_part,omitempty" yaml:"city_part,omitempty"`
	ZipCode          string      `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	ForeignLanguages []string    `json:"foreign_lg,omitempty" yaml:"foreign_lg,omitempty"`
	Capacity         *int        `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Validity         string      `json:"validity,omitempty" yaml:"validity,omitempty"`
	Address          string      `json:"address" yaml:"address"`
	Location         *geom.Point `json:"-" yaml:"-"`
}

// Validate checks the fields every school must carry.
func (s *School) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return eris.New("school: missing id")
	}
	if strings.TrimSpace(s.Type) == "" {
		return eris.Errorf("school %s: missing type", s.ID)
	}
	return nil
}

// ComposeAddress fills Address from the address parts.
func (s *School) ComposeAddress() {
	s.Address = ComposeAddress(s.City, s.Street, s.LRN, s.HN)
}

// Languages returns the foreign teaching languages joined for flat output.
func (s *School) Languages() string {
	return strings.Join(s.ForeignLanguages, ", ")
}

// MergeSchools de-duplicates schools by ID and returns them sorted by ID.
// The same facility is listed under several search entries; the occurrence
// with the most populated fields wins, ties going to the smallest field tuple
// so the result does not depend on batch order.
func MergeSchools(batches ...[]School) []School {
	byID := make(map[string]School)
	for _, batch := range batches {
		for _, s := range batch {
			prev, ok := byID[s.ID]
			if !ok || s.preferredTo(&prev) {
				byID[s.ID] = s
			}
		}
	}

	out := make([]School, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// preferredTo reports whether s should replace other in a merge.
func (s *School) preferredTo(other *School) bool {
	if n, m := s.populated(), other.populated(); n != m {
		return n > m
	}
	return s.mergeKey() < other.mergeKey()
}

func (s *School) mergeKey() string {
	capacity := ""
	if s.Capacity != nil {
		capacity = strconv.Itoa(*s.Capacity)
	}
	return strings.Join([]string{
		s.Type, s.Name, s.City, s.Street, s.LRN, s.HN, s.CityPart,
		s.ZipCode, s.Languages(), capacity, s.Validity, s.Address,
	}, "\x00")
}

func (s *School) populated() int {
	n := 0
	for _, v := range []string{s.Type, s.Name, s.City, s.Street, s.LRN, s.HN, s.CityPart, s.ZipCode, s.Validity} {
		if v != "" {
			n++
		}
	}
	if len(s.ForeignLanguages) > 0 {
		n++
	}
	if s.Capacity != nil {
		n++
	}
	return n
}
