package export

import (
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/pkg/crs"
)

// SchoolSchema is the attribute table of the schools shapefile.
var SchoolSchema = mustSchema(
	Column{Name: "id", Size: 20},
	Column{Name: "type", Size: 254},
	Column{Name: "name", Size: 254},
	Column{Name: "city", Size: 100},
	Column{Name: "street", Size: 100},
	Column{Name: "lrn", Size: 20},
	Column{Name: "hn", Size: 20},
	Column{Name: "city_part", Size: 100},
	Column{Name: "zip_code", Size: 10},
	Column{Name: "foreign_lg", Size: 254},
	Column{Name: "capacity", Kind: Number, Size: 10},
	Column{Name: "validity", Size: 50},
	Column{Name: "address", Size: 254},
	Column{Name: "geocoded", Kind: Number, Size: 1},
)

// UniversitySchema is the attribute table of the universities shapefile.
var UniversitySchema = mustSchema(
	Column{Name: "code", Size: 10},
	Column{Name: "type", Size: 20},
	Column{Name: "name", Size: 254},
	Column{Name: "university", Size: 254},
	Column{Name: "faculty", Size: 254},
	Column{Name: "other", Size: 254},
	Column{Name: "full_name", Size: 254},
	Column{Name: "address", Size: 254},
	Column{Name: "private", Kind: Number, Size: 1},
	Column{Name: "total", Kind: Number, Size: 10},
	Column{Name: "ft_total", Kind: Number, Size: 10},
	Column{Name: "ft_bach", Kind: Number, Size: 10},
	Column{Name: "ft_master", Kind: Number, Size: 10},
	Column{Name: "ft_fmaster", Kind: Number, Size: 10},
	Column{Name: "ft_phd", Kind: Number, Size: 10},
	Column{Name: "dc_total", Kind: Number, Size: 10},
	Column{Name: "dc_bach", Kind: Number, Size: 10},
	Column{Name: "dc_master", Kind: Number, Size: 10},
	Column{Name: "dc_fmaster", Kind: Number, Size: 10},
	Column{Name: "dc_phd", Kind: Number, Size: 10},
	Column{Name: "geocoded", Kind: Number, Size: 1},
)

func schoolValues(s *model.School, geocoded bool) []any {
	var capacity any
	if s.Capacity != nil {
		capacity = *s.Capacity
	}
	return []any{
		s.ID, s.Type, s.Name, s.City, s.Street, s.LRN, s.HN, s.CityPart,
		s.ZipCode, s.Languages(), capacity, s.Validity, s.Address, flag(geocoded),
	}
}

func universityValues(u *model.University, geocoded bool) []any {
	c := u.Counts
	return []any{
		u.Code, string(u.Kind), u.Name, u.University, u.Faculty, u.Other, u.FullName, u.Address,
		flag(u.Private),
		c.Total, c.FTTotal, c.FTBach, c.FTMaster, c.FTFMaster, c.FTPhD,
		c.DCTotal, c.DCBach, c.DCMaster, c.DCFMaster, c.DCPhD,
		flag(geocoded),
	}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// record is one point to write; values renders its attributes once the
// geocoded flag is known.
type record struct {
	point  *geom.Point
	values func(geocoded bool) []any
}

// WriteSchools writes schools sorted by ID. Schools without a location are
// placed at fallback with geocoded=0. Locations and fallback must already be
// in the output CRS.
func WriteSchools(path string, schools []model.School, c crs.CRS, fallback *geom.Point) (int, error) {
	sorted := append([]model.School(nil), schools...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	records := make([]record, len(sorted))
	for i := range sorted {
		s := &sorted[i]
		records[i] = record{s.Location, func(geocoded bool) []any { return schoolValues(s, geocoded) }}
	}
	return writeAll(path, SchoolSchema, c, fallback, records)
}

// WriteUniversities writes universities sorted by code, with the same
// fallback rule as WriteSchools.
func WriteUniversities(path string, unis []model.University, c crs.CRS, fallback *geom.Point) (int, error) {
	sorted := append([]model.University(nil), unis...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	records := make([]record, len(sorted))
	for i := range sorted {
		u := &sorted[i]
		records[i] = record{u.Location, func(geocoded bool) []any { return universityValues(u, geocoded) }}
	}
	return writeAll(path, UniversitySchema, c, fallback, records)
}

func writeAll(path string, schema *Schema, c crs.CRS, fallback *geom.Point, records []record) (int, error) {
	w, err := CreateShapefile(path, schema, c)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	unresolved := 0
	for _, r := range records {
		p, geocoded := r.point, r.point != nil
		if !geocoded {
			p = fallback
			unresolved++
		}
		if err := w.Write(p, r.values(geocoded)); err != nil {
			return w.Rows(), err
		}
	}

	zap.L().Info("wrote shapefile",
		zap.String("component", "export"),
		zap.String("path", w.Path()),
		zap.String("crs", c.String()),
		zap.Int("rows", w.Rows()),
		zap.Int("unresolved", unresolved),
	)
	return w.Rows(), nil
}
