package crs

import "math"

const (
	mercatorRadius = 6378137.0
	mercatorMaxLat = 85.0511287798066
)

// mercator is the spherical Web Mercator used by EPSG:3857.
type mercator struct{}

func (mercator) forward(lon, lat float64) (float64, float64) {
	lat = math.Max(-mercatorMaxLat, math.Min(mercatorMaxLat, lat))
	x := mercatorRadius * lon * deg
	y := mercatorRadius * math.Log(math.Tan(math.Pi/4+lat*deg/2))
	return x, y
}

func (mercator) inverse(x, y float64) (float64, float64) {
	lon := x / mercatorRadius / deg
	lat := (2*math.Atan(math.Exp(y/mercatorRadius)) - math.Pi/2) / deg
	return lon, lat
}
