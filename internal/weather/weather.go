// Package weather defines the normalized weather record and the client
// contract for weather data sources.
package weather

import (
	"time"

	"github.com/nordskies/aurora-visibility/internal/upstream"
)

// Record is the normalized weather view from a single source. CloudCoverPct
// and PrecipitationMm are always present; VisibilityKm is nil for providers
// that do not report a visibility distance, and TemperatureC is informational
// only.
type Record struct {
	Source          string    `json:"source"`
	CloudCoverPct   float64   `json:"cloudCoverPct"`          // 0-100
	VisibilityKm    *float64  `json:"visibilityKm,omitempty"` // >= 0
	PrecipitationMm float64   `json:"precipitationMm"`        // >= 0
	TemperatureC    *float64  `json:"temperatureC,omitempty"`
	ObservedAt      time.Time `json:"observedAt"` // always UTC
}

// Client fetches a normalized weather Record for a location.
type Client = upstream.Client[Record]

// Combined holds weather records in source priority order.
type Combined = upstream.Combined[Record]

// OktasToPercent converts an eighths-based cloud cover report to percent.
func OktasToPercent(oktas float64) float64 {
	return oktas / 8.0 * 100
}

// VisibilityFromFogFraction estimates visibility distance in km from a
// fog-area fraction in percent, for providers that report fog but no direct
// visibility field.
func VisibilityFromFogFraction(fogPct float64) float64 {
	switch {
	case fogPct < 20:
		return 50
	case fogPct < 50:
		return 20
	case fogPct < 80:
		return 5
	default:
		return 1
	}
}
