package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nordskies/aurora-visibility/internal/upstream"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

// OpenMeteoClient fetches hourly forecasts from Open-Meteo, a keyless API.
// It reports visibility in meters, converted to km here.
type OpenMeteoClient struct {
	name    string
	baseURL string
	httpCfg upstream.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoClient(client *http.Client) *OpenMeteoClient {
	return &OpenMeteoClient{
		name:    "open_meteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: upstream.HTTPClientConfig{
			Client:  client,
			Backoff: upstream.DefaultBackoff,
		},
		circuit: upstream.NewBreaker("open_meteo"),
	}
}

func (c *OpenMeteoClient) SourceName() string {
	return c.name
}

func (c *OpenMeteoClient) Fetch(ctx context.Context, lat, lon float64) (weather.Record, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("hourly", "cloud_cover,visibility,precipitation,temperature_2m")
		values.Set("forecast_days", "1")
		values.Set("timezone", "UTC")

		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := upstream.DoRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time          []string   `json:"time"`
			CloudCover    []float64  `json:"cloud_cover"`
			Visibility    []float64  `json:"visibility"` // meters
			Precipitation []float64  `json:"precipitation"`
			Temperature   []*float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	if len(payload.Hourly.Time) == 0 {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: fmt.Errorf("no hourly data in response")}
	}

	// First hourly entry is the current/nearest hour.
	observedAt, err := time.ParseInLocation("2006-01-02T15:04", payload.Hourly.Time[0], time.UTC)
	if err != nil {
		observedAt = time.Now().UTC()
	}

	record := weather.Record{
		Source:     c.name,
		ObservedAt: observedAt,
	}
	if len(payload.Hourly.CloudCover) > 0 {
		record.CloudCoverPct = math.Round(payload.Hourly.CloudCover[0]*10) / 10
	}
	if len(payload.Hourly.Precipitation) > 0 {
		record.PrecipitationMm = payload.Hourly.Precipitation[0]
	}
	if len(payload.Hourly.Visibility) > 0 {
		visKm := math.Round(payload.Hourly.Visibility[0]/1000*10) / 10
		record.VisibilityKm = &visKm
	}
	if len(payload.Hourly.Temperature) > 0 && payload.Hourly.Temperature[0] != nil {
		record.TemperatureC = payload.Hourly.Temperature[0]
	}
	return record, nil
}
