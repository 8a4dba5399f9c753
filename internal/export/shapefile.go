package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/czedu/internal/resilience"
	"github.com/sells-group/czedu/pkg/crs"
)

// ShapefileWriter writes a point shapefile with .prj and .cpg sidecars.
type ShapefileWriter struct {
	w      *shp.Writer
	schema *Schema
	path   string
	rows   int
}

// CreateShapefile creates path (and its directory) for points in the given
// CRS. Failing to create the files is an environment error.
func CreateShapefile(path string, schema *Schema, c crs.CRS) (*ShapefileWriter, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		path += ".shp"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, resilience.NewEnvironmentError("create output dir", err)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.WriteFile(base+".prj", []byte(c.WKT()), 0o644); err != nil {
		return nil, resilience.NewEnvironmentError("write .prj", err)
	}
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644); err != nil {
		return nil, resilience.NewEnvironmentError("write .cpg", err)
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return nil, resilience.NewEnvironmentError("create shapefile", err)
	}
	if err := w.SetFields(schema.fields()); err != nil {
		w.Close()
		return nil, eris.Wrapf(err, "export: set fields of %s", path)
	}
	return &ShapefileWriter{w: w, schema: schema, path: path}, nil
}

// Path returns the .shp path.
func (sw *ShapefileWriter) Path() string { return sw.path }

// Rows returns the number of points written.
func (sw *ShapefileWriter) Rows() int { return sw.rows }

// Write appends a point with one value per schema column. Values may be
// string, int, float64 or nil; nil leaves the attribute empty. Values are
// checked before anything is written, so a rejected row leaves no record.
func (sw *ShapefileWriter) Write(p *geom.Point, values []any) error {
	if p == nil {
		return eris.Errorf("export: row %d of %s has no point", sw.rows, sw.path)
	}
	if len(values) != sw.schema.Len() {
		return eris.Errorf("export: got %d values for %d columns", len(values), sw.schema.Len())
	}

	cells := make([]any, len(values))
	for i, v := range values {
		cell, err := sw.schema.cols[i].encode(v)
		if err != nil {
			return eris.Wrapf(err, "export: row %d of %s", sw.rows, sw.path)
		}
		cells[i] = cell
	}

	row := int(sw.w.Write(&shp.Point{X: p.X(), Y: p.Y()}))
	for i, v := range cells {
		if v == nil {
			continue
		}
		if err := sw.w.WriteAttribute(row, i, v); err != nil {
			return eris.Wrapf(err, "export: write %s of row %d", sw.schema.cols[i].Name, row)
		}
	}
	sw.rows++
	return nil
}

// encode checks that v fits the column. Strings are truncated to the column
// width; numbers that do not fit are an error.
func (c Column) encode(v any) (any, error) {
	var text string
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return truncate(x, int(c.Size)), nil
	case int:
		text = strconv.Itoa(x)
	case float64:
		text = strconv.FormatFloat(x, 'f', int(c.Decimals), 64)
	default:
		return nil, eris.Errorf("column %s: unsupported value type %T", c.Name, v)
	}
	if len(text) > int(c.Size) {
		return nil, eris.Errorf("column %s: %s exceeds width %d", c.Name, text, c.Size)
	}
	return v, nil
}

// Close flushes the shapefile.
func (sw *ShapefileWriter) Close() {
	sw.w.Close()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Feature is one point read back from a shapefile.
type Feature struct {
	X, Y       float64
	Attributes map[string]string
}

// ReadShapefile reads the points and attributes of a point shapefile.
func ReadShapefile(path string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	fields := reader.Fields()
	var out []Feature
	for reader.Next() {
		n, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			return nil, eris.Errorf("export: shape %d of %s is %T, not a point", n, path, shape)
		}
		f := Feature{X: pt.X, Y: pt.Y, Attributes: make(map[string]string, len(fields))}
		for i, field := range fields {
			name := strings.TrimRight(field.String(), "\x00")
			f.Attributes[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		out = append(out, f)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "export: read shapefile %s", path)
	}
	return out, nil
}
