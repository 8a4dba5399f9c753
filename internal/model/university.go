package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Kind classifies a row of the university student-count workbook.
type Kind string

const (
	KindUniversity Kind = "university"
	KindFaculty    Kind = "faculty"
	KindOther      Kind = "other"
	// KindIndicator marks section subtotal rows; they never reach the output.
	KindIndicator Kind = "indicator"
)

// indicatorCodes are the subtotal rows of the workbook. 60000 opens the
// private universities section.
var indicatorCodes = map[string]bool{
	"00000":            true,
	"10000":            true,
	PrivateSectionCode: true,
}

// PrivateSectionCode is the indicator row after which all rows describe
// private universities.
const PrivateSectionCode = "60000"

// ClassifyUniversity derives the kind of a workbook row from its code and name.
func ClassifyUniversity(code, name string) Kind {
	if strings.HasSuffix(code, "000") {
		if indicatorCodes[code] {
			return KindIndicator
		}
		return KindUniversity
	}
	lname := strings.ToLower(name)
	// "falulta" is a misspelling present in the published workbook.
	if strings.Contains(lname, "fakulta") || strings.Contains(lname, "falulta") {
		return KindFaculty
	}
	return KindOther
}

// StudentCounts holds enrollment by study form and degree level.
// FT is full-time study, DC distant or combined study.
type StudentCounts struct {
	Total     int `json:"total"`
	FTTotal   int `json:"ft_total"`
	FTBach    int `json:"ft_bach"`
	FTMaster  int `json:"ft_master"`
	FTFMaster int `json:"ft_fmaster"`
	FTPhD     int `json:"ft_phd"`
	DCTotal   int `json:"dc_total"`
	DCBach    int `json:"dc_bach"`
	DCMaster  int `json:"dc_master"`
	DCFMaster int `json:"dc_fmaster"`
	DCPhD     int `json:"dc_phd"`
}

// University is a university, faculty or other university unit.
type University struct {
	Code       string        `json:"code"`
	Kind       Kind          `json:"type"`
	Name       string        `json:"name"`
	University string        `json:"university,omitempty"`
	Faculty    string        `json:"faculty,omitempty"`
	Other      string        `json:"other,omitempty"`
	FullName   string        `json:"full_name"`
	Address    string        `json:"address,omitempty"`
	Private    bool          `json:"private"`
	Counts     StudentCounts `json:"counts"`
	Location   *geom.Point   `json:"-"`
}

// Validate checks the fields every university record must carry.
func (u *University) Validate() error {
	if strings.TrimSpace(u.Code) == "" {
		return eris.New("university: missing code")
	}
	switch u.Kind {
	case KindUniversity, KindFaculty, KindOther:
		return nil
	case "":
		return eris.Errorf("university %s: missing kind", u.Code)
	default:
		return eris.Errorf("university %s: unexpected kind %q", u.Code, u.Kind)
	}
}
