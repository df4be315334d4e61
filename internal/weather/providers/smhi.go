package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nordskies/aurora-visibility/internal/upstream"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

// SMHIClient fetches forecasts from the Swedish Meteorological and
// Hydrological Institute. SMHI reports cloud cover in oktas (eighths), which
// is converted to a percentage, and visibility directly in km.
type SMHIClient struct {
	name    string
	baseURL string
	httpCfg upstream.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewSMHIClient(client *http.Client) *SMHIClient {
	return &SMHIClient{
		name:    "smhi",
		baseURL: "https://opendata-download-metfcst.smhi.se/api/category/pmp3g/version/2",
		httpCfg: upstream.HTTPClientConfig{
			Client:  client,
			Backoff: upstream.DefaultBackoff,
		},
		circuit: upstream.NewBreaker("smhi"),
	}
}

func (c *SMHIClient) SourceName() string {
	return c.name
}

func (c *SMHIClient) Fetch(ctx context.Context, lat, lon float64) (weather.Record, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/geotype/point/lon/%.6f/lat/%.6f/data.json", c.baseURL, lon, lat)
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := upstream.DoRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		TimeSeries []struct {
			ValidTime  string `json:"validTime"`
			Parameters []struct {
				Name   string    `json:"name"`
				Values []float64 `json:"values"`
			} `json:"parameters"`
		} `json:"timeSeries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	if len(payload.TimeSeries) == 0 {
		return weather.Record{}, &upstream.FetchError{Source: c.name, Err: fmt.Errorf("no timeseries in response")}
	}

	current := payload.TimeSeries[0]

	observedAt, err := time.Parse(time.RFC3339, current.ValidTime)
	if err != nil {
		observedAt = time.Now().UTC()
	}

	params := make(map[string]float64, len(current.Parameters))
	for _, p := range current.Parameters {
		if len(p.Values) > 0 {
			params[p.Name] = p.Values[0]
		}
	}

	// tcc_mean is total cloud cover in oktas; assume half cover if absent.
	oktas, ok := params["tcc_mean"]
	if !ok {
		oktas = 4
	}

	record := weather.Record{
		Source:          c.name,
		CloudCoverPct:   math.Round(weather.OktasToPercent(oktas)*10) / 10,
		PrecipitationMm: params["pmean"],
		ObservedAt:      observedAt.UTC(),
	}
	if vis, ok := params["vis"]; ok {
		record.VisibilityKm = &vis
	}
	if temp, ok := params["t"]; ok {
		record.TemperatureC = &temp
	}
	return record, nil
}
