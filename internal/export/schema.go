// Package export writes records as point shapefiles and CSV tables.
package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// maxFieldName is the dBase limit on attribute names.
const maxFieldName = 10

// ColumnKind is the dBase type of an attribute column.
type ColumnKind int

const (
	String ColumnKind = iota
	Number
	Float
)

// Column is one attribute of a shapefile.
type Column struct {
	Name string
	Kind ColumnKind
	// Size is the width in bytes; strings longer than Size are truncated.
	Size     uint8
	Decimals uint8
}

// Schema is an ordered, validated set of columns.
type Schema struct {
	cols []Column
}

// NewSchema validates column names (non-empty, unique, at most 10 bytes)
// and widths.
func NewSchema(cols ...Column) (*Schema, error) {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		switch {
		case c.Name == "":
			return nil, eris.New("export: empty column name")
		case len(c.Name) > maxFieldName:
			return nil, eris.Errorf("export: column name %q longer than %d bytes", c.Name, maxFieldName)
		case seen[c.Name]:
			return nil, eris.Errorf("export: duplicate column %q", c.Name)
		case c.Size == 0:
			return nil, eris.Errorf("export: column %q has zero width", c.Name)
		}
		seen[c.Name] = true
	}
	return &Schema{cols: cols}, nil
}

func mustSchema(cols ...Column) *Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.cols) }

func (s *Schema) fields() []shp.Field {
	fields := make([]shp.Field, len(s.cols))
	for i, c := range s.cols {
		switch c.Kind {
		case Number:
			fields[i] = shp.NumberField(c.Name, c.Size)
		case Float:
			fields[i] = shp.FloatField(c.Name, c.Size, c.Decimals)
		default:
			fields[i] = shp.StringField(c.Name, c.Size)
		}
	}
	return fields
}
