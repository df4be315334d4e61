package astro

import (
	"math"
	"time"
)

// MoonMetrics describes the moon's contribution to the visibility score.
type MoonMetrics struct {
	Illumination float64 `json:"illumination"` // 0 = new moon, 1 = full moon
	ElevationDeg float64 `json:"elevationDeg"`
	PenaltyPts   float64 `json:"penaltyPts"`
}

// Moon computes the moon's illuminated fraction and elevation at lat/lon for
// the given instant, plus the resulting score penalty. A bright moon high in
// the sky washes out faint aurora; a moon below the horizon never penalizes.
func Moon(lat, lon float64, t time.Time) MoonMetrics {
	jd := julianDay(t)
	T := (jd - 2451545.0) / 36525

	lambda, beta := moonEclipticDeg(T)
	ra, dec := equatorial(lambda, beta, obliquityDeg(T))

	elevDeg := elevationRad(lat, lon, jd, ra, dec) / degToRad
	illumination := moonIllumination(lambda, beta, sunEclipticLongitudeDeg(jd))

	return MoonMetrics{
		Illumination: math.Round(illumination*1000) / 1000,
		ElevationDeg: round1(elevDeg),
		PenaltyPts:   moonPenaltyPoints(illumination, elevDeg),
	}
}

// moonPenaltyPoints implements the glare penalty:
//
//	factor  = illumination * max(0, sin(elevation))
//	penalty = min(15, round(factor*15, 1))
func moonPenaltyPoints(illumination, elevDeg float64) float64 {
	factor := illumination * math.Max(0, math.Sin(elevDeg*degToRad))
	return math.Min(15, round1(factor*15))
}

// moonEclipticDeg returns the moon's geocentric ecliptic longitude and
// latitude in degrees (Meeus ch. 47, truncated to the dominant terms).
func moonEclipticDeg(T float64) (lambda, beta float64) {
	meanLon := normalizeDeg(218.3164477 + 481267.88123421*T)
	elongation := normalizeDeg(297.8501921+445267.1114034*T) * degToRad
	sunAnomaly := normalizeDeg(357.5291092+35999.0502909*T) * degToRad
	moonAnomaly := normalizeDeg(134.9633964+477198.8675055*T) * degToRad
	argLat := normalizeDeg(93.272095+483202.0175233*T) * degToRad

	lambda = normalizeDeg(meanLon +
		6.289*math.Sin(moonAnomaly) +
		1.274*math.Sin(2*elongation-moonAnomaly) +
		0.658*math.Sin(2*elongation) +
		0.214*math.Sin(2*moonAnomaly) -
		0.186*math.Sin(sunAnomaly) -
		0.114*math.Sin(2*argLat))

	beta = 5.128*math.Sin(argLat) +
		0.281*math.Sin(moonAnomaly+argLat) +
		0.278*math.Sin(moonAnomaly-argLat) +
		0.173*math.Sin(2*elongation-argLat)

	return lambda, beta
}

// moonIllumination derives the illuminated fraction from the geocentric
// elongation between the sun and the moon.
func moonIllumination(moonLambda, moonBeta, sunLambda float64) float64 {
	cosElong := math.Cos(moonBeta*degToRad) * math.Cos((moonLambda-sunLambda)*degToRad)
	return (1 - cosElong) / 2
}
