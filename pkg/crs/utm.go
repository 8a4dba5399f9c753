package crs

import "math"

const (
	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0
)

// utm is a transverse Mercator zone on WGS 84 (Snyder, USGS PP 1395).
type utm struct {
	zone    int
	south   bool
	lon0    float64 // central meridian, radians
	e2, ep2 float64
	a       float64
}

func newUTM(zone int, south bool) utm {
	el := wgs84Ellipsoid
	return utm{
		zone:  zone,
		south: south,
		lon0:  float64(zone*6-183) * deg,
		a:     el.a,
		e2:    el.e2,
		ep2:   el.e2 / (1 - el.e2),
	}
}

// meridianArc is the distance along the meridian from the equator to phi.
func (u utm) meridianArc(phi float64) float64 {
	e2, e4, e6 := u.e2, u.e2*u.e2, u.e2*u.e2*u.e2
	return u.a * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

func (u utm) forward(lon, lat float64) (float64, float64) {
	phi := lat * deg
	sinPhi, cosPhi, tanPhi := math.Sin(phi), math.Cos(phi), math.Tan(phi)

	n := u.a / math.Sqrt(1-u.e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := u.ep2 * cosPhi * cosPhi
	a := (lon*deg - u.lon0) * cosPhi
	m := u.meridianArc(phi)

	x := utmScale*n*(a+(1-t+c)*math.Pow(a, 3)/6+
		(5-18*t+t*t+72*c-58*u.ep2)*math.Pow(a, 5)/120) + utmFalseEasting
	y := utmScale * (m + n*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*u.ep2)*math.Pow(a, 6)/720))
	if u.south {
		y += utmFalseNorthing
	}
	return x, y
}

func (u utm) inverse(x, y float64) (float64, float64) {
	x -= utmFalseEasting
	if u.south {
		y -= utmFalseNorthing
	}

	e2, e4, e6 := u.e2, u.e2*u.e2, u.e2*u.e2*u.e2
	m := y / utmScale
	mu := m / (u.a * (1 - e2/4 - 3*e4/64 - 5*e6/256))
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	phi1 := mu + (3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin1, cos1, tan1 := math.Sin(phi1), math.Cos(phi1), math.Tan(phi1)
	c1 := u.ep2 * cos1 * cos1
	t1 := tan1 * tan1
	n1 := u.a / math.Sqrt(1-e2*sin1*sin1)
	r1 := u.a * (1 - e2) / math.Pow(1-e2*sin1*sin1, 1.5)
	d := x / (n1 * utmScale)

	phi := phi1 - (n1*tan1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*u.ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*u.ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := u.lon0 + (d-(1+2*t1+c1)*math.Pow(d, 3)/6+
		(5-2*c1+28*t1-3*c1*c1+8*u.ep2+24*t1*t1)*math.Pow(d, 5)/120)/cos1

	return lam / deg, phi / deg
}
