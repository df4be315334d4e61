// Package geocode resolves between place names and coordinates. Reverse
// lookups proxy Nominatim so browser clients avoid CORS restrictions;
// forward lookups use the Google geocoding API when a key is configured.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kelvins/geocoder"
)

const nominatimURL = "https://nominatim.openstreetmap.org/reverse"

// Service proxies reverse geocoding lookups to Nominatim.
type Service struct {
	client *resty.Client
}

// NewService creates a reverse geocoding proxy. Nominatim requires an
// identifying User-Agent.
func NewService(timeout time.Duration, userAgent string) *Service {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetHeader("User-Agent", userAgent)

	return &Service{client: client}
}

// Reverse looks up the place description for coordinates and returns the
// upstream JSON document as-is.
func (s *Service) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":             fmt.Sprintf("%f", lat),
			"lon":             fmt.Sprintf("%f", lon),
			"format":          "json",
			"accept-language": "en",
		}).
		Get(nominatimURL)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reverse geocoding upstream returned status %d", resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

// Forward resolves a city/country pair to coordinates through the Google
// geocoding API. Used at startup when the default location is configured by
// name instead of coordinates.
func Forward(apiKey, city, country string) (lat, lon float64, err error) {
	if apiKey == "" {
		return 0, 0, fmt.Errorf("forward geocoding requires a Google API key")
	}
	geocoder.ApiKey = apiKey

	location, err := geocoder.Geocoding(geocoder.Address{
		City:    city,
		Country: country,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("forward geocoding of %s, %s failed: %w", city, country, err)
	}
	return location.Latitude, location.Longitude, nil
}
