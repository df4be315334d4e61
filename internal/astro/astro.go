// Package astro computes sun and moon geometry for a ground observer and
// maps it onto the score penalties used by the visibility prediction.
//
// The positions come from the low-precision Meeus formulas, good to a few
// tenths of a degree in elevation. That is plenty for twilight banding and
// moon glare estimates; refraction is deliberately ignored.
package astro

import (
	"math"
	"time"
)

const degToRad = math.Pi / 180

// julianDay converts a time to the Julian day number.
func julianDay(t time.Time) float64 {
	return float64(t.UTC().UnixMilli())/86400000.0 + 2440587.5
}

// greenwichSiderealDeg returns the Greenwich mean sidereal time in degrees.
func greenwichSiderealDeg(jd float64) float64 {
	d := jd - 2451545.0
	return normalizeDeg(280.46061837 + 360.98564736629*d)
}

// normalizeDeg wraps an angle into [0, 360).
func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// obliquityDeg returns the mean obliquity of the ecliptic.
func obliquityDeg(T float64) float64 {
	return 23.439291 - 0.0130042*T
}

// equatorial converts ecliptic longitude/latitude (degrees) to right
// ascension and declination (radians).
func equatorial(lambdaDeg, betaDeg, epsDeg float64) (ra, dec float64) {
	lambda := lambdaDeg * degToRad
	beta := betaDeg * degToRad
	eps := epsDeg * degToRad

	dec = math.Asin(math.Sin(beta)*math.Cos(eps) + math.Cos(beta)*math.Sin(eps)*math.Sin(lambda))
	ra = math.Atan2(math.Sin(lambda)*math.Cos(eps)-math.Tan(beta)*math.Sin(eps), math.Cos(lambda))
	return ra, dec
}

// elevationRad returns the elevation of a body above the horizon for an
// observer at lat/lon (degrees), given the body's ra/dec (radians).
func elevationRad(lat, lon, jd, ra, dec float64) float64 {
	gmst := greenwichSiderealDeg(jd)
	hourAngle := normalizeDeg(gmst+lon-ra/degToRad) * degToRad

	latRad := lat * degToRad
	sinAlt := math.Sin(latRad)*math.Sin(dec) + math.Cos(latRad)*math.Cos(dec)*math.Cos(hourAngle)
	return math.Asin(sinAlt)
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
