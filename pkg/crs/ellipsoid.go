package crs

import "math"

type ellipsoid struct {
	a  float64 // semi-major axis, meters
	e2 float64 // first eccentricity squared
}

func newEllipsoid(a, invf float64) ellipsoid {
	f := 1 / invf
	return ellipsoid{a: a, e2: f * (2 - f)}
}

var (
	wgs84Ellipsoid  = newEllipsoid(6378137.0, 298.257223563)
	besselEllipsoid = newEllipsoid(6377397.155, 299.1528128)
)

// toGeocentric converts geodetic degrees and ellipsoidal height to ECEF meters.
func (el ellipsoid) toGeocentric(lon, lat, h float64) (x, y, z float64) {
	phi, lam := lat*deg, lon*deg
	sinPhi := math.Sin(phi)
	n := el.a / math.Sqrt(1-el.e2*sinPhi*sinPhi)
	x = (n + h) * math.Cos(phi) * math.Cos(lam)
	y = (n + h) * math.Cos(phi) * math.Sin(lam)
	z = (n*(1-el.e2) + h) * sinPhi
	return x, y, z
}

// fromGeocentric converts ECEF meters to geodetic degrees and height.
func (el ellipsoid) fromGeocentric(x, y, z float64) (lon, lat, h float64) {
	p := math.Hypot(x, y)
	lam := math.Atan2(y, x)
	phi := math.Atan2(z, p*(1-el.e2))
	for i := 0; i < 10; i++ {
		sinPhi := math.Sin(phi)
		n := el.a / math.Sqrt(1-el.e2*sinPhi*sinPhi)
		h = p/math.Cos(phi) - n
		next := math.Atan2(z, p*(1-el.e2*n/(n+h)))
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	return lam / deg, phi / deg, h
}

// datumShift is a three-parameter geocentric translation to WGS 84.
type datumShift struct {
	el         ellipsoid
	dx, dy, dz float64
}

// S-JTSK to WGS 84 translation (EPSG:1623 area average).
var sjtskShift = datumShift{el: besselEllipsoid, dx: 589, dy: 76, dz: 480}

// toLocal converts WGS 84 degrees to the local datum's geodetic degrees.
func (d datumShift) toLocal(lon, lat float64) (float64, float64) {
	x, y, z := wgs84Ellipsoid.toGeocentric(lon, lat, 0)
	lon, lat, _ = d.el.fromGeocentric(x-d.dx, y-d.dy, z-d.dz)
	return lon, lat
}

// toWGS84 converts the local datum's geodetic degrees to WGS 84 degrees.
func (d datumShift) toWGS84(lon, lat float64) (float64, float64) {
	x, y, z := d.el.toGeocentric(lon, lat, 0)
	lon, lat, _ = wgs84Ellipsoid.fromGeocentric(x+d.dx, y+d.dy, z+d.dz)
	return lon, lat
}

const deg = math.Pi / 180
