// Package upstream defines the contract every data-source client satisfies
// and the shared resilient HTTP plumbing the concrete clients are built on.
package upstream

import (
	"context"
	"fmt"
)

// Client is the capability "fetch a normalized record for a location".
// One implementation exists per (domain, provider) pair; the aggregator
// holds an ordered list of these and never sees concrete provider types.
type Client[T any] interface {
	// SourceName identifies the provider in cache keys, logs, and records.
	SourceName() string

	// Fetch returns a fully normalized record for the coordinates, or a
	// FetchError when the provider is unreachable, answers with a
	// non-success status, or returns a payload that cannot be parsed.
	Fetch(ctx context.Context, lat, lon float64) (T, error)
}

// Combined holds records from up to three sources, ordered by configured
// source priority. Primary is always set once aggregation succeeds.
type Combined[T any] struct {
	Primary   T  `json:"primary"`
	Secondary *T `json:"secondary,omitempty"`
	Tertiary  *T `json:"tertiary,omitempty"`
}

// FetchError marks a single source as down for this round. The aggregator
// treats network failures, bad statuses, and malformed payloads identically.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
