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

	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/upstream"
)

// AurorasLiveClient fetches the real-time KP index and, when present, a
// local aurora probability from the auroras.live API.
type AurorasLiveClient struct {
	name    string
	baseURL string
	httpCfg upstream.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAurorasLiveClient(client *http.Client) *AurorasLiveClient {
	return &AurorasLiveClient{
		name:    "auroras_live",
		baseURL: "https://api.auroras.live/v1/",
		httpCfg: upstream.HTTPClientConfig{
			Client:  client,
			Backoff: upstream.DefaultBackoff,
		},
		circuit: upstream.NewBreaker("auroras_live"),
	}
}

func (c *AurorasLiveClient) SourceName() string {
	return c.name
}

func (c *AurorasLiveClient) Fetch(ctx context.Context, lat, lon float64) (aurora.Record, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("type", "all")
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("long", strconv.FormatFloat(lon, 'f', -1, 64))

		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), nil)
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

	// The API reports kp as a string and probability as a number.
	var payload struct {
		Kp          string   `json:"kp"`
		Probability *float64 `json:"probability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}

	kp, err := strconv.ParseFloat(payload.Kp, 64)
	if err != nil {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: fmt.Errorf("invalid kp value %q", payload.Kp)}
	}

	record := aurora.Record{
		Source:     c.name,
		KpIndex:    math.Round(kp*10) / 10,
		ObservedAt: time.Now().UTC(),
	}
	if payload.Probability != nil {
		prob := math.Round(*payload.Probability*10) / 10
		record.Probability = &prob
	}
	return record, nil
}
