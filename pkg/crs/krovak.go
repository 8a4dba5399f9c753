package crs

import "math"

// krovak is the oblique conformal conic projection of S-JTSK in its East
// North axis order (EPSG method 1041), with a geocentric datum shift between
// WGS 84 and the Bessel 1841 ellipsoid.
type krovak struct {
	e, e2        float64
	alphaC, lon0 float64
	b, t0, n, r0 float64
	tanPhiPTerm  float64
	shift        datumShift
}

func newKrovak() krovak {
	const (
		phiC   = 49.5 * deg
		lon0   = (24.0 + 50.0/60) * deg
		alphaC = 30.28813975277778 * deg
		phiP   = 78.5 * deg
		kP     = 0.9999
	)
	el := besselEllipsoid
	e := math.Sqrt(el.e2)
	sinC := math.Sin(phiC)

	a := el.a * math.Sqrt(1-el.e2) / (1 - el.e2*sinC*sinC)
	b := math.Sqrt(1 + el.e2*math.Pow(math.Cos(phiC), 4)/(1-el.e2))
	gamma0 := math.Asin(sinC / b)
	t0 := math.Tan(math.Pi/4+gamma0/2) *
		math.Pow((1+e*sinC)/(1-e*sinC), e*b/2) /
		math.Pow(math.Tan(math.Pi/4+phiC/2), b)
	n := math.Sin(phiP)

	return krovak{
		e:           e,
		e2:          el.e2,
		alphaC:      alphaC,
		lon0:        lon0,
		b:           b,
		t0:          t0,
		n:           n,
		r0:          kP * a / math.Tan(phiP),
		tanPhiPTerm: math.Tan(math.Pi/4 + phiP/2),
		shift:       sjtskShift,
	}
}

// project maps Bessel geodetic degrees to southing/westing meters.
func (k krovak) project(lon, lat float64) (southing, westing float64) {
	phi, lam := lat*deg, lon*deg
	esin := k.e * math.Sin(phi)

	u := 2 * (math.Atan(k.t0*math.Pow(math.Tan(phi/2+math.Pi/4), k.b)/
		math.Pow((1+esin)/(1-esin), k.e*k.b/2)) - math.Pi/4)
	v := k.b * (k.lon0 - lam)
	t := math.Asin(math.Cos(k.alphaC)*math.Sin(u) + math.Sin(k.alphaC)*math.Cos(u)*math.Cos(v))
	d := math.Asin(math.Cos(u) * math.Sin(v) / math.Cos(t))
	theta := k.n * d
	r := k.r0 * math.Pow(k.tanPhiPTerm, k.n) / math.Pow(math.Tan(t/2+math.Pi/4), k.n)

	return r * math.Cos(theta), r * math.Sin(theta)
}

// unproject maps southing/westing meters to Bessel geodetic degrees.
func (k krovak) unproject(southing, westing float64) (lon, lat float64) {
	r := math.Hypot(southing, westing)
	theta := math.Atan2(westing, southing)
	d := theta / k.n
	t := 2 * (math.Atan(math.Pow(k.r0/r, 1/k.n)*k.tanPhiPTerm) - math.Pi/4)
	u := math.Asin(math.Cos(k.alphaC)*math.Sin(t) - math.Sin(k.alphaC)*math.Cos(t)*math.Cos(d))
	v := math.Asin(math.Cos(t) * math.Sin(d) / math.Cos(u))
	lam := k.lon0 - v/k.b

	base := math.Pow(k.t0, -1/k.b) * math.Pow(math.Tan(u/2+math.Pi/4), 1/k.b)
	phi := u
	for i := 0; i < 20; i++ {
		esin := k.e * math.Sin(phi)
		next := 2 * (math.Atan(base*math.Pow((1+esin)/(1-esin), k.e/2)) - math.Pi/4)
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	return lam / deg, phi / deg
}

func (k krovak) forward(lon, lat float64) (float64, float64) {
	blon, blat := k.shift.toLocal(lon, lat)
	southing, westing := k.project(blon, blat)
	return -westing, -southing
}

func (k krovak) inverse(x, y float64) (float64, float64) {
	blon, blat := k.unproject(-y, -x)
	return k.shift.toWGS84(blon, blat)
}
