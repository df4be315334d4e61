// Package aurora defines the normalized geomagnetic-activity record and the
// client contract for aurora data sources.
package aurora

import (
	"time"

	"github.com/nordskies/aurora-visibility/internal/upstream"
)

// Record is the normalized aurora activity view from a single source.
// KpIndex is always present; Probability is nil for sources that do not
// report one.
type Record struct {
	Source      string    `json:"source"`
	KpIndex     float64   `json:"kpIndex"`
	Probability *float64  `json:"probability,omitempty"` // percent, 0-100
	ObservedAt  time.Time `json:"observedAt"`            // always UTC
}

// Client fetches a normalized aurora Record for a location.
type Client = upstream.Client[Record]

// Combined holds aurora records in source priority order.
type Combined = upstream.Combined[Record]
