package prediction

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nordskies/aurora-visibility/internal/astro"
	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

var (
	darkness = astro.SunMetrics{ElevationDeg: -25, TwilightPhase: astro.Darkness, PenaltyPts: 0}
	noMoon   = astro.MoonMetrics{Illumination: 0, ElevationDeg: -10, PenaltyPts: 0}
)

func auroraRecord(kp float64) aurora.Record {
	return aurora.Record{Source: "test", KpIndex: kp, ObservedAt: time.Now().UTC()}
}

func weatherRecord(cloudPct float64, visibilityKm *float64, precipMm float64) weather.Record {
	return weather.Record{
		Source:          "test",
		CloudCoverPct:   cloudPct,
		VisibilityKm:    visibilityKm,
		PrecipitationMm: precipMm,
		ObservedAt:      time.Now().UTC(),
	}
}

func km(v float64) *float64 { return &v }

func TestMinKpForLatitude(t *testing.T) {
	if got := MinKpForLatitude(65); got != 0 {
		t.Errorf("MinKpForLatitude(65) = %v, want 0", got)
	}
	if got := MinKpForLatitude(-65); got != 0 {
		t.Errorf("MinKpForLatitude(-65) = %v, want 0", got)
	}
	if got := MinKpForLatitude(56); math.Abs(got-3) > 1e-9 {
		t.Errorf("MinKpForLatitude(56) = %v, want 3", got)
	}
	if got := MinKpForLatitude(70); got != 0 {
		t.Errorf("MinKpForLatitude(70) = %v, want 0 (never negative)", got)
	}

	// Monotonically non-increasing as |lat| grows.
	prev := math.Inf(1)
	for lat := 0.0; lat <= 90; lat += 5 {
		cur := MinKpForLatitude(lat)
		if cur > prev {
			t.Fatalf("minKp increased from %v to %v at lat %v", prev, cur, lat)
		}
		prev = cur
	}
}

func TestScoreExcellentConditions(t *testing.T) {
	// High KP at a high latitude (minKp ~ 0), clear dark sky.
	score := ScoreWithAstro(auroraRecord(6), weatherRecord(10, km(25), 0), 65, noMoon, darkness)

	if score.TotalScore < 80 {
		t.Errorf("total = %v, want >= 80", score.TotalScore)
	}
	if score.Breakdown.Clouds != 30 {
		t.Errorf("clouds = %v, want 30", score.Breakdown.Clouds)
	}
	if score.Breakdown.Visibility != 20 {
		t.Errorf("visibility = %v, want 20", score.Breakdown.Visibility)
	}
	if score.Breakdown.Precipitation != 10 {
		t.Errorf("precipitation = %v, want 10", score.Breakdown.Precipitation)
	}
	if !strings.Contains(strings.ToLower(score.Recommendation), "excellent") {
		t.Errorf("recommendation = %q, want excellent band", score.Recommendation)
	}
}

func TestScoreFloorsAtZero(t *testing.T) {
	daylight := astro.SunMetrics{ElevationDeg: 20, TwilightPhase: astro.Daylight, PenaltyPts: 50}
	score := ScoreWithAstro(auroraRecord(0), weatherRecord(100, km(1), 3), 65, noMoon, daylight)

	if score.TotalScore != 0 {
		t.Errorf("total = %v, want 0 (floored, never negative)", score.TotalScore)
	}
}

func TestScoreMoonPenaltySubtracted(t *testing.T) {
	// At 56N minKp is 3, so KP 5 yields exactly 20 aurora points and the
	// clear-sky base is exactly 80.
	moon := astro.MoonMetrics{Illumination: 0.95, ElevationDeg: 48, PenaltyPts: 10.6}
	score := ScoreWithAstro(auroraRecord(5), weatherRecord(0, km(30), 0), 56, moon, darkness)

	if math.Abs(score.TotalScore-69.4) > 1e-9 {
		t.Errorf("total = %v, want 69.4", score.TotalScore)
	}
	if math.Abs(score.Breakdown.Aurora-20) > 1e-9 {
		t.Errorf("aurora = %v, want 20", score.Breakdown.Aurora)
	}
}

func TestScoreMissingVisibilityUsesNeutralFallback(t *testing.T) {
	score := ScoreWithAstro(auroraRecord(4), weatherRecord(10, nil, 0), 65, noMoon, darkness)

	// 15 km neutral fallback lands in the >10 bucket.
	if score.Breakdown.Visibility != 15 {
		t.Errorf("visibility = %v, want 15", score.Breakdown.Visibility)
	}
}

func TestScoreSubScoreBuckets(t *testing.T) {
	tests := []struct {
		name              string
		cloudPct          float64
		visKm             float64
		precipMm          float64
		wantClouds        float64
		wantVis           float64
		wantPrecipitation float64
	}{
		{"clear", 0, 25, 0, 30, 20, 10},
		{"light clouds", 30, 15, 0.5, 20, 15, 5},
		{"half cover", 60, 8, 1, 10, 10, 0},
		{"overcast", 90, 3, 5, 0, 5, 0},
		{"cloud boundary 25", 25, 25, 0, 20, 20, 10},
		{"cloud boundary 75", 75, 25, 0, 0, 20, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreWithAstro(auroraRecord(3), weatherRecord(tt.cloudPct, km(tt.visKm), tt.precipMm), 65, noMoon, darkness)
			if score.Breakdown.Clouds != tt.wantClouds {
				t.Errorf("clouds = %v, want %v", score.Breakdown.Clouds, tt.wantClouds)
			}
			if score.Breakdown.Visibility != tt.wantVis {
				t.Errorf("visibility = %v, want %v", score.Breakdown.Visibility, tt.wantVis)
			}
			if score.Breakdown.Precipitation != tt.wantPrecipitation {
				t.Errorf("precipitation = %v, want %v", score.Breakdown.Precipitation, tt.wantPrecipitation)
			}
		})
	}
}

func TestScoreAuroraSubScoreClamped(t *testing.T) {
	score := ScoreWithAstro(auroraRecord(9), weatherRecord(0, km(30), 0), 90, noMoon, darkness)
	if score.Breakdown.Aurora > 40 {
		t.Errorf("aurora = %v, want <= 40", score.Breakdown.Aurora)
	}
}

func TestRecommendationDaylightOverride(t *testing.T) {
	daylight := astro.SunMetrics{ElevationDeg: 10, TwilightPhase: astro.Daylight, PenaltyPts: 50}
	// Even a perfect base score gets the daylight message.
	score := ScoreWithAstro(auroraRecord(9), weatherRecord(0, km(30), 0), 65, noMoon, daylight)
	if !strings.Contains(score.Recommendation, "not visible during the day") {
		t.Errorf("recommendation = %q, want daylight override", score.Recommendation)
	}

	civil := astro.SunMetrics{ElevationDeg: -3, TwilightPhase: astro.CivilTwilight, PenaltyPts: 40}
	score = ScoreWithAstro(auroraRecord(9), weatherRecord(0, km(30), 0), 65, noMoon, civil)
	if !strings.Contains(score.Recommendation, "too bright") {
		t.Errorf("recommendation = %q, want civil twilight override", score.Recommendation)
	}
}

func TestRecommendationNeverSendsOutsideBelowThreshold(t *testing.T) {
	// KP 2 at 50N (minKp = 5): whatever the score, no "outside" language.
	for _, w := range []weather.Record{
		weatherRecord(0, km(30), 0),
		weatherRecord(60, km(8), 0.5),
		weatherRecord(100, km(1), 3),
	} {
		score := ScoreWithAstro(auroraRecord(2), w, 50, noMoon, darkness)
		if strings.Contains(strings.ToLower(score.Recommendation), "outside") {
			t.Errorf("recommendation %q suggests going outside with kp below threshold", score.Recommendation)
		}
	}
}

func TestRecommendationCloudQualifiers(t *testing.T) {
	// Good band with heavy clouds mentions clouds.
	score := ScoreWithAstro(auroraRecord(7), weatherRecord(60, km(25), 0), 65, noMoon, darkness)
	if score.TotalScore < 60 || score.TotalScore >= 80 {
		t.Fatalf("total = %v, expected good band for this fixture", score.TotalScore)
	}
	if !strings.Contains(strings.ToLower(score.Recommendation), "cloud") {
		t.Errorf("recommendation = %q, want cloud qualifier", score.Recommendation)
	}
}

func TestScoreEndToEndWithEphemeris(t *testing.T) {
	// Midwinter midnight in northern Sweden: dark enough that the sun
	// penalty must be zero.
	at := time.Date(2025, time.December, 21, 0, 0, 0, 0, time.UTC)
	score := Score(auroraRecord(5), weatherRecord(10, km(25), 0), 68, 20, at)

	if score.Breakdown.Sun.TwilightPhase != astro.Darkness {
		t.Errorf("twilight phase = %v, want darkness", score.Breakdown.Sun.TwilightPhase)
	}
	if score.Breakdown.Sun.PenaltyPts != 0 {
		t.Errorf("sun penalty = %v, want 0", score.Breakdown.Sun.PenaltyPts)
	}
	if score.TotalScore <= 0 {
		t.Errorf("total = %v, want positive", score.TotalScore)
	}
}
