package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/geo"
	"github.com/nordskies/aurora-visibility/internal/upstream"
)

const (
	ovationRows = 181 // latitudes 90..-90
	ovationCols = 360 // longitudes 0..359
)

// NOAAClient fetches the NOAA SWPC OVATION aurora forecast: a global
// 360x181 grid with one aurora probability value per cell. The local
// probability is interpolated at the requested coordinates and converted to
// a KP-index estimate.
type NOAAClient struct {
	name    string
	baseURL string
	httpCfg upstream.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNOAAClient(client *http.Client) *NOAAClient {
	return &NOAAClient{
		name:    "noaa_swpc",
		baseURL: "https://services.swpc.noaa.gov/json/ovation_aurora_latest.json",
		httpCfg: upstream.HTTPClientConfig{
			Client:  client,
			Backoff: upstream.DefaultBackoff,
		},
		circuit: upstream.NewBreaker("noaa_swpc"),
	}
}

func (c *NOAAClient) SourceName() string {
	return c.name
}

func (c *NOAAClient) Fetch(ctx context.Context, lat, lon float64) (aurora.Record, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := upstream.DoRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		ObservationTime string      `json:"Observation Time"`
		Coordinates     [][]float64 `json:"coordinates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}
	if len(payload.Coordinates) == 0 {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: fmt.Errorf("no coordinate data in response")}
	}

	observedAt, err := time.Parse("2006-01-02T15:04:05Z", payload.ObservationTime)
	if err != nil {
		observedAt = time.Now().UTC()
	}

	// Reorganize the flat [lon, lat, value] triplets into grid[lat][lon]
	// with row 0 at 90N and columns indexed by longitude 0..359.
	grid := make([][]float64, ovationRows)
	for i := range grid {
		grid[i] = make([]float64, ovationCols)
	}
	for _, coord := range payload.Coordinates {
		if len(coord) < 3 {
			continue
		}
		latIdx := int(90 - coord[1])
		lonIdx := int(coord[0]) % ovationCols
		if latIdx < 0 || latIdx >= ovationRows || lonIdx < 0 {
			continue
		}
		grid[latIdx][lonIdx] = coord[2]
	}

	// The grid columns cover longitudes 0..359 east, so normalize negative
	// longitudes before interpolating.
	gridLon := math.Mod(lon+360, 360)
	probability, err := geo.Interpolate(grid, lat, gridLon, -90, 90, 0, ovationCols-1)
	if err != nil {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}

	kp := kpFromProbability(probability, lat)
	prob := math.Round(probability*10) / 10

	return aurora.Record{
		Source:      c.name,
		KpIndex:     kp,
		Probability: &prob,
		ObservedAt:  observedAt.UTC(),
	}, nil
}

// kpFromProbability converts a local aurora probability (0-100 percent) to a
// KP-index estimate. Probability buckets map linearly onto KP ranges, and
// mid-latitude observers get a fixed offset because the oval must expand
// further before aurora reaches them.
func kpFromProbability(probability, lat float64) float64 {
	var kp float64
	switch {
	case probability < 10:
		kp = probability / 10 * 2 // 0-2
	case probability < 30:
		kp = 2 + (probability-10)/20*2 // 2-4
	case probability < 60:
		kp = 4 + (probability-30)/30*2 // 4-6
	default:
		kp = 6 + (probability-60)/40*3 // 6-9
	}

	if math.Abs(lat) < 60 {
		kp += 0.5
	}

	kp = math.Max(0, math.Min(9, kp))
	return math.Round(kp*10) / 10
}
