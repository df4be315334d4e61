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

// MetNoClient fetches Nordic weather forecasts from the Norwegian
// Meteorological Institute. Met.no reports no visibility distance; when the
// forecast carries a fog-area fraction, visibility is estimated from it.
// The API requires an identifying User-Agent.
type MetNoClient struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   upstream.HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewMetNoClient(client *http.Client, userAgent string) *MetNoClient {
	return &MetNoClient{
		name:      "met_no",
		baseURL:   "https://api.met.no/weatherapi/locationforecast/2.0/compact",
		userAgent: userAgent,
		httpCfg: upstream.HTTPClientConfig{
			Client:  client,
			Backoff: upstream.DefaultBackoff,
		},
		circuit: upstream.NewBreaker("met_no"),
	}
}

func (c *MetNoClient) SourceName() string {
	return c.name
}

func (c *MetNoClient) Fetch(ctx context.Context, lat, lon float64) (weather.Record, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	}

	resp, err := upstream.DoRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		Properties struct {
			Timeseries []struct {
				Time string `json:"time"`
				Data struct {
					Instant struct {
						Details struct {
							CloudAreaFraction *float64 `json:"cloud_area_fraction"`
							FogAreaFraction   *float64 `json:"fog_area_fraction"`
							AirTemperature    *float64 `json:"air_temperature"`
						} `json:"details"`
					} `json:"instant"`
					Next1Hours struct {
						Details struct {
							PrecipitationAmount *float64 `json:"precipitation_amount"`
						} `json:"details"`
					} `json:"next_1_hours"`
				} `json:"data"`
			} `json:"timeseries"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	if len(payload.Properties.Timeseries) == 0 {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: fmt.Errorf("no timeseries in response")}
	}

	current := payload.Properties.Timeseries[0]

	observedAt, err := time.Parse(time.RFC3339, current.Time)
	if err != nil {
		observedAt = time.Now().UTC()
	}

	details := current.Data.Instant.Details

	var cloudCover float64
	if details.CloudAreaFraction != nil {
		cloudCover = math.Round(*details.CloudAreaFraction*10) / 10
	}

	var precipitation float64
	if p := current.Data.Next1Hours.Details.PrecipitationAmount; p != nil {
		precipitation = *p
	}

	record := weather.Record{
		Source:          c.name,
		CloudCoverPct:   cloudCover,
		PrecipitationMm: precipitation,
		TemperatureC:    details.AirTemperature,
		ObservedAt:      observedAt.UTC(),
	}
	if details.FogAreaFraction != nil {
		vis := weather.VisibilityFromFogFraction(*details.FogAreaFraction)
		record.VisibilityKm = &vis
	}
	return record, nil
}
