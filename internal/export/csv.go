package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/czedu/internal/model"
	"github.com/sells-group/czedu/internal/resilience"
	"github.com/sells-group/czedu/pkg/crs"
)

// WriteSchoolsCSV writes schools sorted by ID as a delimited table with the
// shapefile columns plus WGS 84 lon and lat written with a decimal comma.
// Unresolved schools have empty coordinates.
func WriteSchoolsCSV(path string, schools []model.School, delimiter rune) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, resilience.NewEnvironmentError("create output dir", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, resilience.NewEnvironmentError("create csv", err)
	}
	defer f.Close() //nolint:errcheck

	sorted := append([]model.School(nil), schools...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	w := csv.NewWriter(f)
	w.Comma = delimiter
	if err := w.Write(append(SchoolSchema.Names(), "lon", "lat")); err != nil {
		return 0, eris.Wrap(err, "export: write csv header")
	}

	wgs84 := crs.MustFromEPSG(crs.WGS84)
	for i := range sorted {
		s := &sorted[i]
		lon, lat, err := lonLat(s.Location, wgs84)
		if err != nil {
			return i, eris.Wrapf(err, "export: school %s", s.ID)
		}

		values := schoolValues(s, s.Location != nil)
		row := make([]string, 0, len(values)+2)
		for _, v := range values {
			row = append(row, cell(v))
		}
		row = append(row, lon, lat)
		if err := w.Write(row); err != nil {
			return i, eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, eris.Wrap(err, "export: flush csv")
	}
	if err := f.Close(); err != nil {
		return 0, eris.Wrap(err, "export: close csv")
	}

	zap.L().Info("wrote csv",
		zap.String("component", "export"),
		zap.String("path", path),
		zap.Int("rows", len(sorted)),
	)
	return len(sorted), nil
}

func lonLat(p *geom.Point, wgs84 crs.CRS) (string, string, error) {
	if p == nil {
		return "", "", nil
	}
	p, err := crs.Transform(p, wgs84)
	if err != nil {
		return "", "", err
	}
	return decimalComma(p.X()), decimalComma(p.Y()), nil
}

func decimalComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 7, 64), ".", ",", 1)
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return decimalComma(v)
	default:
		return ""
	}
}
