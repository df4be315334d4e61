package astro

import (
	"math"
	"time"
)

// TwilightPhase names a band of solar elevation.
type TwilightPhase string

const (
	Daylight             TwilightPhase = "daylight"
	CivilTwilight        TwilightPhase = "civil_twilight"
	NauticalTwilight     TwilightPhase = "nautical_twilight"
	AstronomicalTwilight TwilightPhase = "astronomical_twilight"
	Darkness             TwilightPhase = "darkness"
)

// SunMetrics describes the sun's contribution to the visibility score.
type SunMetrics struct {
	ElevationDeg  float64       `json:"elevationDeg"`
	TwilightPhase TwilightPhase `json:"twilightPhase"`
	PenaltyPts    float64       `json:"penaltyPts"`
}

// Sun computes the sun's elevation at lat/lon for the given instant and the
// resulting twilight phase and score penalty.
func Sun(lat, lon float64, t time.Time) SunMetrics {
	jd := julianDay(t)
	lambda := sunEclipticLongitudeDeg(jd)

	T := (jd - 2451545.0) / 36525
	ra, dec := equatorial(lambda, 0, obliquityDeg(T))

	elevDeg := elevationRad(lat, lon, jd, ra, dec) / degToRad
	phase, penalty := PhaseForElevation(elevDeg)

	return SunMetrics{
		ElevationDeg:  round1(elevDeg),
		TwilightPhase: phase,
		PenaltyPts:    penalty,
	}
}

// PhaseForElevation maps a solar elevation in degrees to a twilight phase
// and its score penalty.
func PhaseForElevation(elevDeg float64) (TwilightPhase, float64) {
	switch {
	case elevDeg >= 0:
		return Daylight, 50
	case elevDeg >= -6:
		return CivilTwilight, 40
	case elevDeg >= -12:
		return NauticalTwilight, 20
	case elevDeg >= -18:
		return AstronomicalTwilight, 8
	default:
		return Darkness, 0
	}
}

// sunEclipticLongitudeDeg returns the sun's true ecliptic longitude in
// degrees (Meeus ch. 25, low precision).
func sunEclipticLongitudeDeg(jd float64) float64 {
	T := (jd - 2451545.0) / 36525

	meanLon := normalizeDeg(280.46646 + 36000.76983*T)
	meanAnomaly := normalizeDeg(357.52911+35999.05029*T) * degToRad

	center := (1.914602-0.004817*T)*math.Sin(meanAnomaly) +
		(0.019993-0.000101*T)*math.Sin(2*meanAnomaly) +
		0.000289*math.Sin(3*meanAnomaly)

	return normalizeDeg(meanLon + center)
}
