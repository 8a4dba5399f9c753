// Package crs converts point coordinates between WGS 84 and the coordinate
// reference systems supported for output: geographic WGS 84 and ETRS89, Web
// Mercator, UTM (WGS 84, both hemispheres) and the Czech national grid
// S-JTSK / Krovak East North.
package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// EPSG codes with built-in support.
const (
	WGS84       = 4326
	ETRS89      = 4258
	WebMercator = 3857
	SJTSK       = 5514
)

// projection maps geographic WGS 84 degrees to projected coordinates and back.
type projection interface {
	forward(lon, lat float64) (x, y float64)
	inverse(x, y float64) (lon, lat float64)
}

// CRS is a supported coordinate reference system.
type CRS struct {
	EPSG int
	Name string
	proj projection
	wkt  string
}

// String returns the "epsg:NNNN" form accepted by Parse.
func (c CRS) String() string {
	return "epsg:" + strconv.Itoa(c.EPSG)
}

// Geographic reports whether coordinates are longitude/latitude degrees.
func (c CRS) Geographic() bool {
	_, ok := c.proj.(identity)
	return ok
}

// WKT returns the ESRI flavored WKT written into .prj files.
func (c CRS) WKT() string {
	return c.wkt
}

// Parse resolves "epsg:5514", "EPSG:5514" or "5514". An empty string is WGS 84.
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return FromEPSG(WGS84)
	}
	s = strings.TrimPrefix(s, "epsg:")
	code, err := strconv.Atoi(s)
	if err != nil {
		return CRS{}, eris.Errorf("crs: invalid code %q, expected epsg:XXXX", s)
	}
	return FromEPSG(code)
}

// FromEPSG returns the CRS for a supported EPSG code.
func FromEPSG(code int) (CRS, error) {
	switch {
	case code == WGS84:
		return CRS{EPSG: code, Name: "WGS 84", proj: identity{}, wkt: wktWGS84}, nil
	case code == ETRS89:
		return CRS{EPSG: code, Name: "ETRS89", proj: identity{}, wkt: wktETRS89}, nil
	case code == WebMercator:
		return CRS{EPSG: code, Name: "WGS 84 / Pseudo-Mercator", proj: mercator{}, wkt: wktWebMercator}, nil
	case code == SJTSK:
		return CRS{EPSG: code, Name: "S-JTSK / Krovak East North", proj: newKrovak(), wkt: wktKrovak}, nil
	case code > 32600 && code <= 32660:
		zone := code - 32600
		return CRS{EPSG: code, Name: fmt.Sprintf("WGS 84 / UTM zone %dN", zone), proj: newUTM(zone, false), wkt: utmWKT(zone, false)}, nil
	case code > 32700 && code <= 32760:
		zone := code - 32700
		return CRS{EPSG: code, Name: fmt.Sprintf("WGS 84 / UTM zone %dS", zone), proj: newUTM(zone, true), wkt: utmWKT(zone, true)}, nil
	default:
		return CRS{}, eris.Errorf("crs: unsupported EPSG code %d", code)
	}
}

// MustFromEPSG is FromEPSG for codes known to be supported.
func MustFromEPSG(code int) CRS {
	c, err := FromEPSG(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Forward converts WGS 84 longitude/latitude to this CRS.
func (c CRS) Forward(lon, lat float64) (x, y float64, err error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, eris.Errorf("crs: coordinate out of range (lon=%f, lat=%f)", lon, lat)
	}
	x, y = c.proj.forward(lon, lat)
	return x, y, nil
}

// Inverse converts coordinates of this CRS to WGS 84 longitude/latitude.
func (c CRS) Inverse(x, y float64) (lon, lat float64, err error) {
	lon, lat = c.proj.inverse(x, y)
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, 0, eris.Errorf("crs: cannot invert (%f, %f) from %s", x, y, c)
	}
	return lon, lat, nil
}

// Point builds a point in this CRS from WGS 84 longitude/latitude.
func (c CRS) Point(lon, lat float64) (*geom.Point, error) {
	x, y, err := c.Forward(lon, lat)
	if err != nil {
		return nil, err
	}
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y}).SetSRID(c.EPSG), nil
}

// Transform reprojects p into the target CRS. A point without SRID is taken
// as WGS 84.
func Transform(p *geom.Point, to CRS) (*geom.Point, error) {
	if p == nil {
		return nil, nil
	}
	srid := p.SRID()
	if srid == 0 {
		srid = WGS84
	}
	if srid == to.EPSG {
		return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{p.X(), p.Y()}).SetSRID(srid), nil
	}

	from, err := FromEPSG(srid)
	if err != nil {
		return nil, err
	}
	lon, lat, err := from.Inverse(p.X(), p.Y())
	if err != nil {
		return nil, err
	}
	return to.Point(lon, lat)
}

type identity struct{}

func (identity) forward(lon, lat float64) (float64, float64) { return lon, lat }
func (identity) inverse(x, y float64) (float64, float64)     { return x, y }
