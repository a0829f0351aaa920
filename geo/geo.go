// Package geo converts between geodetic, ECEF and local NED frames on the
// WGS-84 ellipsoid, and turns static pressure into barometric altitude.
package geo

import "math"

// WGS-84
const (
	SemiMajor     = 6378137.0
	SemiMinor     = 6356752.3142
	Flattening    = 1 / 298.257223563
	Eccentricity2 = 0.00669437999014
	MeanRadius    = 6371000.0
)

// Standard atmosphere constants for BaroAltitude.
const (
	SeaLevelPressure = 101325.0 // Pa
	baroScale        = 44330.76923
	baroExponent     = 0.1902632
)

const maxGeodeticIter = 100

// LLA is a geodetic position. Lat/Lon units depend on the function using it.
type LLA struct {
	Lat, Lon, Alt float64
}

// ECEF is an Earth-centred, Earth-fixed position in metres.
type ECEF struct {
	X, Y, Z float64
}

// NED is a local north-east-down offset in metres.
type NED struct {
	North, East, Down float64
}

// GeoToECEF converts geodetic coordinates (radians, metres) to ECEF.
func GeoToECEF(lat, lon, alt float64) ECEF {
	sLat, cLat := math.Sincos(lat)
	sLon, cLon := math.Sincos(lon)
	n := SemiMajor / math.Sqrt(1-Eccentricity2*sLat*sLat)

	return ECEF{
		X: (n + alt) * cLat * cLon,
		Y: (n + alt) * cLat * sLon,
		Z: ((1-Eccentricity2)*n + alt) * sLat,
	}
}

// ECEFToGeo converts ECEF to geodetic coordinates (radians, metres) using
// Bowring's iteration on the reduced latitude.
func ECEFToGeo(p ECEF) LLA {
	lon := math.Atan2(p.Y, p.X)
	s := math.Hypot(p.X, p.Y)

	k := Eccentricity2 * (1 - Flattening) / (1 - Eccentricity2) * SemiMajor
	geodetic := func(beta float64) float64 {
		sb, cb := math.Sincos(beta)
		return math.Atan((p.Z + k*sb*sb*sb) / (s - Eccentricity2*SemiMajor*cb*cb*cb))
	}

	beta := math.Atan(p.Z / ((1 - Flattening) * s))
	mu := geodetic(beta)
	for range maxGeodeticIter {
		beta = math.Atan((1 - Flattening) * math.Tan(mu))
		last := mu
		mu = geodetic(beta)
		if math.Abs(last-mu) <= 1e-10 {
			break
		}
	}

	sMu, cMu := math.Sincos(mu)
	n := SemiMajor / math.Sqrt(1-Eccentricity2*sMu*sMu)
	h := s*cMu + (p.Z+Eccentricity2*n*sMu)*sMu - n

	return LLA{Lat: mu, Lon: lon, Alt: h}
}

// ECEFToNED expresses p relative to the origin (radians, metres) in its NED frame.
func ECEFToNED(p ECEF, lat0, lon0, alt0 float64) NED {
	o := GeoToECEF(lat0, lon0, alt0)
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z

	sLat, cLat := math.Sincos(lat0)
	sLon, cLon := math.Sincos(lon0)

	return NED{
		North: -sLat*cLon*dx - sLat*sLon*dy + cLat*dz,
		East:  -sLon*dx + cLon*dy,
		Down:  -cLat*cLon*dx - cLat*sLon*dy - sLat*dz,
	}
}

// NEDToECEF is the inverse of ECEFToNED.
func NEDToECEF(d NED, lat0, lon0, alt0 float64) ECEF {
	o := GeoToECEF(lat0, lon0, alt0)

	sLat, cLat := math.Sincos(lat0)
	sLon, cLon := math.Sincos(lon0)

	return ECEF{
		X: o.X - sLat*cLon*d.North - sLon*d.East - cLat*cLon*d.Down,
		Y: o.Y - sLat*sLon*d.North + cLon*d.East - cLat*sLon*d.Down,
		Z: o.Z + cLat*d.North - sLat*d.Down,
	}
}

// GeoToNED returns the NED offset of p from origin. Latitudes and longitudes
// are in degrees.
func GeoToNED(origin, p LLA) NED {
	e := GeoToECEF(radians(p.Lat), radians(p.Lon), p.Alt)
	return ECEFToNED(e, radians(origin.Lat), radians(origin.Lon), origin.Alt)
}

// NEDToGeo returns the geodetic position (degrees) of offset d from origin (degrees).
func NEDToGeo(origin LLA, d NED) LLA {
	e := NEDToECEF(d, radians(origin.Lat), radians(origin.Lon), origin.Alt)
	g := ECEFToGeo(e)
	return LLA{Lat: degrees(g.Lat), Lon: degrees(g.Lon), Alt: g.Alt}
}

// Distance is the great-circle (haversine) distance in metres between two
// points given in degrees.
func Distance(lat0, lon0, lat1, lon1 float64) float64 {
	lat0, lon0, lat1, lon1 = radians(lat0), radians(lon0), radians(lat1), radians(lon1)

	sdLat := math.Sin((lat1 - lat0) / 2)
	sdLon := math.Sin((lon1 - lon0) / 2)
	a := sdLat*sdLat + sdLon*sdLon*math.Cos(lat0)*math.Cos(lat1)

	return MeanRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bearing is the initial great-circle bearing from point 0 to point 1, in
// radians within [0, 2π). Inputs are in degrees.
func Bearing(lat0, lon0, lat1, lon1 float64) float64 {
	lat0, lon0, lat1, lon1 = radians(lat0), radians(lon0), radians(lat1), radians(lon1)

	cLat1 := math.Cos(lat1)
	dLon := lon1 - lon0

	y := math.Sin(dLon) * cLat1
	x := math.Cos(lat0)*math.Sin(lat1) - math.Sin(lat0)*cLat1*math.Cos(dLon)

	return math.Mod(math.Atan2(y, x)+2*math.Pi, 2*math.Pi)
}

// BaroAltitude converts static pressure in Pa to altitude above the
// standard-atmosphere sea level in metres.
func BaroAltitude(pressure float64) float64 {
	return baroScale * (1 - math.Pow(pressure/SeaLevelPressure, baroExponent))
}

// PressureAtAltitude is the inverse of BaroAltitude.
func PressureAtAltitude(altitude float64) float64 {
	return SeaLevelPressure * math.Pow(1-altitude/baroScale, 1/baroExponent)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
