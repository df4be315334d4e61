// Package prediction converts aggregated aurora and weather data into a
// 0-100 visibility score with a human-readable recommendation.
package prediction

import (
	"math"
	"time"

	"github.com/nordskies/aurora-visibility/internal/astro"
	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

// neutralVisibilityKm stands in for a missing visibility value. It lands in
// the middle scoring bucket so an absent field neither helps nor hurts.
const neutralVisibilityKm = 15.0

// Breakdown itemizes the score components. The positive sub-scores cap at
// 40+30+20+10 = 100; the moon and sun entries are deductions.
type Breakdown struct {
	Aurora        float64           `json:"aurora"`        // 0-40
	Clouds        float64           `json:"clouds"`        // 0-30
	Visibility    float64           `json:"visibility"`    // 0-20
	Precipitation float64           `json:"precipitation"` // 0-10
	Moon          astro.MoonMetrics `json:"moon"`          // penalty 0-15
	Sun           astro.SunMetrics  `json:"sun"`           // penalty 0-50
}

// VisibilityScore is the scoring engine's result.
type VisibilityScore struct {
	TotalScore     float64   `json:"totalScore"`
	Breakdown      Breakdown `json:"breakdown"`
	Recommendation string    `json:"recommendation"`
}

// MinKpForLatitude returns the minimum KP index at which aurora becomes
// visible at a latitude. The aurora oval's equatorward edge sits near 65
// degrees at KP 0 and moves about 3 degrees of latitude per KP unit.
func MinKpForLatitude(lat float64) float64 {
	return math.Max(0, (65-math.Abs(lat))/3)
}

// Score computes the visibility score for one aurora record and one weather
// record at a location and instant, including astronomical penalties.
func Score(a aurora.Record, w weather.Record, lat, lon float64, now time.Time) VisibilityScore {
	return ScoreWithAstro(a, w, lat, astro.Moon(lat, lon, now), astro.Sun(lat, lon, now))
}

// ScoreWithAstro is Score with the sun and moon geometry supplied by the
// caller. It is total over its input domain: missing optional fields fall
// back to documented defaults, never to an error.
func ScoreWithAstro(a aurora.Record, w weather.Record, lat float64, moon astro.MoonMetrics, sun astro.SunMetrics) VisibilityScore {
	minKp := MinKpForLatitude(lat)

	auroraScore := auroraSubScore(a.KpIndex, minKp)
	cloudScore := cloudSubScore(w.CloudCoverPct)

	visibilityKm := neutralVisibilityKm
	if w.VisibilityKm != nil {
		visibilityKm = *w.VisibilityKm
	}
	visScore := visibilitySubScore(visibilityKm)
	precipScore := precipitationSubScore(w.PrecipitationMm)

	total := auroraScore + cloudScore + visScore + precipScore - moon.PenaltyPts - sun.PenaltyPts
	total = math.Max(0, round1(total))

	recommendation := recommend(total, a.KpIndex, minKp, w.CloudCoverPct)
	// Sky brightness trumps everything else: the score stands as computed,
	// but the advice must not send anyone out in daylight.
	switch sun.TwilightPhase {
	case astro.Daylight:
		recommendation = "Aurora is not visible during the day. Check back after sunset."
	case astro.CivilTwilight:
		recommendation = "Still too bright for aurora. Wait for full darkness."
	}

	return VisibilityScore{
		TotalScore: total,
		Breakdown: Breakdown{
			Aurora:        round1(auroraScore),
			Clouds:        round1(cloudScore),
			Visibility:    round1(visScore),
			Precipitation: round1(precipScore),
			Moon:          moon,
			Sun:           sun,
		},
		Recommendation: recommendation,
	}
}

// auroraSubScore scales KP against the latitude threshold: up to 10 points
// while activity is below the local minimum, 10-40 points above it.
func auroraSubScore(kp, minKp float64) float64 {
	var score float64
	if kp < minKp {
		score = kp / math.Max(minKp, 1) * 10
	} else {
		score = 10 + (kp-minKp)/math.Max(9-minKp, 1)*30
	}
	return math.Min(40, math.Max(0, score))
}

func cloudSubScore(cloudPct float64) float64 {
	switch {
	case cloudPct < 25:
		return 30
	case cloudPct < 50:
		return 20
	case cloudPct < 75:
		return 10
	default:
		return 0
	}
}

func visibilitySubScore(visibilityKm float64) float64 {
	switch {
	case visibilityKm > 20:
		return 20
	case visibilityKm > 10:
		return 15
	case visibilityKm > 5:
		return 10
	default:
		return 5
	}
}

func precipitationSubScore(precipMm float64) float64 {
	switch {
	case precipMm == 0:
		return 10
	case precipMm < 1:
		return 5
	default:
		return 0
	}
}

// recommend maps the score onto advice bands. Whenever activity is below
// the latitude threshold the text never suggests going outside, regardless
// of how good the sky is.
func recommend(score, kp, minKp, cloudPct float64) string {
	belowThreshold := kp < minKp

	switch {
	case score >= 80:
		if belowThreshold {
			return "Excellent sky conditions, but aurora activity is below what this latitude needs."
		}
		return "Excellent conditions! Great chance to see aurora. Get outside!"
	case score >= 60:
		if belowThreshold {
			return "Good conditions, but aurora activity is low for this latitude."
		}
		if cloudPct > 50 {
			return "Good conditions, though cloud cover may interfere."
		}
		return "Good conditions. Worth checking outside if it's dark."
	case score >= 40:
		if belowThreshold {
			return "Fair conditions, but aurora activity is low for this latitude."
		}
		if cloudPct > 75 {
			return "Fair conditions, but heavy cloud cover may block visibility."
		}
		return "Fair conditions. Aurora may be visible."
	case score >= 20:
		if belowThreshold {
			return "Poor conditions. Aurora activity too low for this latitude."
		}
		return "Poor conditions. Weather not favorable for aurora viewing."
	default:
		return "Very poor conditions. Aurora viewing not recommended."
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
