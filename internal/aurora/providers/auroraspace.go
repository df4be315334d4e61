package providers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/upstream"
)

// AuroraSpaceClient is a simple fallback source: it reports the current
// planetary KP index only, with no location-specific probability.
type AuroraSpaceClient struct {
	name    string
	baseURL string
	httpCfg upstream.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAuroraSpaceClient(client *http.Client) *AuroraSpaceClient {
	return &AuroraSpaceClient{
		name:    "aurora_space",
		baseURL: "https://auroraforecast.space/api/kp/now",
		httpCfg: upstream.HTTPClientConfig{
			Client:  client,
			Backoff: upstream.DefaultBackoff,
		},
		circuit: upstream.NewBreaker("aurora_space"),
	}
}

func (c *AuroraSpaceClient) SourceName() string {
	return c.name
}

// Fetch ignores the coordinates: this API is planetary, not local.
func (c *AuroraSpaceClient) Fetch(ctx context.Context, lat, lon float64) (aurora.Record, error) {
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
		Kp float64 `json:"kp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return aurora.Record{}, &upstream.FetchError{Source: c.name, Err: err}
	}

	return aurora.Record{
		Source:     c.name,
		KpIndex:    math.Round(payload.Kp*10) / 10,
		ObservedAt: time.Now().UTC(),
	}, nil
}
