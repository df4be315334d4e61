package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/cache"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

// stubAuroraClient returns a fixed record or a fixed error and counts calls.
type stubAuroraClient struct {
	name   string
	record aurora.Record
	err    error
	calls  atomic.Int32
}

func (s *stubAuroraClient) SourceName() string { return s.name }

func (s *stubAuroraClient) Fetch(ctx context.Context, lat, lon float64) (aurora.Record, error) {
	s.calls.Add(1)
	if s.err != nil {
		return aurora.Record{}, s.err
	}
	return s.record, nil
}

type stubWeatherClient struct {
	name   string
	record weather.Record
	err    error
}

func (s *stubWeatherClient) SourceName() string { return s.name }

func (s *stubWeatherClient) Fetch(ctx context.Context, lat, lon float64) (weather.Record, error) {
	if s.err != nil {
		return weather.Record{}, s.err
	}
	return s.record, nil
}

func auroraRecord(source string, kp float64) aurora.Record {
	return aurora.Record{Source: source, KpIndex: kp, ObservedAt: time.Now().UTC()}
}

func weatherRecord(source string, visibilityKm *float64) weather.Record {
	return weather.Record{
		Source:          source,
		CloudCoverPct:   20,
		VisibilityKm:    visibilityKm,
		PrecipitationMm: 0,
		ObservedAt:      time.Now().UTC(),
	}
}

func km(v float64) *float64 { return &v }

var errDown = errors.New("provider down")

func newAuroraAggregator(clients ...aurora.Client) *Aggregator {
	return New(cache.New(), clients, nil, 5*time.Minute, 30*time.Minute)
}

func newWeatherAggregator(clients ...weather.Client) *Aggregator {
	return New(cache.New(), nil, clients, 5*time.Minute, 30*time.Minute)
}

func TestFetchAuroraAllSourcesPresent(t *testing.T) {
	agg := newAuroraAggregator(
		&stubAuroraClient{name: "a", record: auroraRecord("a", 3)},
		&stubAuroraClient{name: "b", record: auroraRecord("b", 4)},
		&stubAuroraClient{name: "c", record: auroraRecord("c", 5)},
	)

	combined, err := agg.FetchAurora(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if combined.Primary.Source != "a" {
		t.Errorf("primary = %q, want a", combined.Primary.Source)
	}
	if combined.Secondary == nil || combined.Secondary.Source != "b" {
		t.Errorf("secondary = %v, want b", combined.Secondary)
	}
	if combined.Tertiary == nil || combined.Tertiary.Source != "c" {
		t.Errorf("tertiary = %v, want c", combined.Tertiary)
	}
}

func TestFetchAuroraPrimaryFailurePromotesSecondary(t *testing.T) {
	agg := newAuroraAggregator(
		&stubAuroraClient{name: "a", err: errDown},
		&stubAuroraClient{name: "b", record: auroraRecord("b", 4)},
		&stubAuroraClient{name: "c", record: auroraRecord("c", 5)},
	)

	combined, err := agg.FetchAurora(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if combined.Primary.Source != "b" {
		t.Errorf("primary = %q, want b", combined.Primary.Source)
	}
	if combined.Secondary == nil || combined.Secondary.Source != "c" {
		t.Errorf("secondary = %v, want c", combined.Secondary)
	}
	if combined.Tertiary != nil {
		t.Errorf("tertiary = %v, want absent", combined.Tertiary)
	}
}

func TestFetchAuroraOnlyTertiarySucceeds(t *testing.T) {
	agg := newAuroraAggregator(
		&stubAuroraClient{name: "a", err: errDown},
		&stubAuroraClient{name: "b", err: errDown},
		&stubAuroraClient{name: "c", record: auroraRecord("c", 5)},
	)

	combined, err := agg.FetchAurora(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if combined.Primary.Source != "c" {
		t.Errorf("primary = %q, want c", combined.Primary.Source)
	}
	if combined.Secondary != nil || combined.Tertiary != nil {
		t.Errorf("secondary/tertiary = %v/%v, want both absent", combined.Secondary, combined.Tertiary)
	}
}

func TestFetchAuroraAllSourcesFailed(t *testing.T) {
	agg := newAuroraAggregator(
		&stubAuroraClient{name: "a", err: errDown},
		&stubAuroraClient{name: "b", err: errDown},
	)

	_, err := agg.FetchAurora(context.Background(), 55.7, 13.4)
	var asf *AllSourcesFailedError
	if !errors.As(err, &asf) {
		t.Fatalf("error = %v, want AllSourcesFailedError", err)
	}
	if asf.Domain != "aurora" {
		t.Errorf("domain = %q, want aurora", asf.Domain)
	}
}

func TestFetchAuroraExtraSourcesStillFetched(t *testing.T) {
	fourth := &stubAuroraClient{name: "d", record: auroraRecord("d", 1)}
	agg := newAuroraAggregator(
		&stubAuroraClient{name: "a", record: auroraRecord("a", 3)},
		&stubAuroraClient{name: "b", record: auroraRecord("b", 4)},
		&stubAuroraClient{name: "c", record: auroraRecord("c", 5)},
		fourth,
	)

	combined, err := agg.FetchAurora(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The fourth source is dropped from the combined view but still fetched.
	if combined.Tertiary == nil || combined.Tertiary.Source != "c" {
		t.Errorf("tertiary = %v, want c", combined.Tertiary)
	}
	if fourth.calls.Load() != 1 {
		t.Errorf("fourth source fetched %d times, want 1", fourth.calls.Load())
	}
}

func TestFetchAuroraUsesCache(t *testing.T) {
	client := &stubAuroraClient{name: "a", record: auroraRecord("a", 3)}
	agg := newAuroraAggregator(client)

	for i := 0; i < 3; i++ {
		if _, err := agg.FetchAurora(context.Background(), 55.7, 13.4); err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}
	if got := client.calls.Load(); got != 1 {
		t.Errorf("upstream fetched %d times, want 1 (cache should serve repeats)", got)
	}

	// A different location is a different cache key.
	if _, err := agg.FetchAurora(context.Background(), 68.0, 20.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.calls.Load(); got != 2 {
		t.Errorf("upstream fetched %d times, want 2 after new location", got)
	}
}

func TestFetchAuroraFailuresAreNotCached(t *testing.T) {
	client := &stubAuroraClient{name: "a", err: errDown}
	ok := &stubAuroraClient{name: "b", record: auroraRecord("b", 2)}
	agg := newAuroraAggregator(client, ok)

	if _, err := agg.FetchAurora(context.Background(), 55.7, 13.4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The failed source recovers; the next round must retry it.
	client.err = nil
	client.record = auroraRecord("a", 6)

	combined, err := agg.FetchAurora(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if combined.Primary.Source != "a" {
		t.Errorf("primary = %q, want recovered source a", combined.Primary.Source)
	}
}

func TestFetchWeatherPatchesVisibilityFromSecondary(t *testing.T) {
	agg := newWeatherAggregator(
		&stubWeatherClient{name: "met_no", record: weatherRecord("met_no", nil)},
		&stubWeatherClient{name: "smhi", record: weatherRecord("smhi", km(12.5))},
		&stubWeatherClient{name: "open_meteo", record: weatherRecord("open_meteo", km(9.0))},
	)

	combined, err := agg.FetchWeather(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if combined.Primary.Source != "met_no" {
		t.Errorf("primary = %q, want met_no (source must not change on patch)", combined.Primary.Source)
	}
	if combined.Primary.VisibilityKm == nil || *combined.Primary.VisibilityKm != 12.5 {
		t.Errorf("patched visibility = %v, want 12.5", combined.Primary.VisibilityKm)
	}
	// The donor record keeps its own value.
	if combined.Secondary == nil || *combined.Secondary.VisibilityKm != 12.5 {
		t.Errorf("secondary visibility changed: %v", combined.Secondary)
	}
}

func TestFetchWeatherPatchesVisibilityFromTertiary(t *testing.T) {
	agg := newWeatherAggregator(
		&stubWeatherClient{name: "met_no", record: weatherRecord("met_no", nil)},
		&stubWeatherClient{name: "smhi", record: weatherRecord("smhi", nil)},
		&stubWeatherClient{name: "open_meteo", record: weatherRecord("open_meteo", km(8.0))},
	)

	combined, err := agg.FetchWeather(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if combined.Primary.Source != "met_no" {
		t.Errorf("primary = %q, want met_no", combined.Primary.Source)
	}
	if combined.Primary.VisibilityKm == nil || *combined.Primary.VisibilityKm != 8.0 {
		t.Errorf("patched visibility = %v, want 8.0", combined.Primary.VisibilityKm)
	}
}

func TestFetchWeatherDoesNotPatchPresentVisibility(t *testing.T) {
	agg := newWeatherAggregator(
		&stubWeatherClient{name: "met_no", record: weatherRecord("met_no", km(11.0))},
		&stubWeatherClient{name: "smhi", record: weatherRecord("smhi", km(18.0))},
	)

	combined, err := agg.FetchWeather(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *combined.Primary.VisibilityKm != 11.0 {
		t.Errorf("visibility = %v, want untouched 11.0", *combined.Primary.VisibilityKm)
	}
}

func TestFetchWeatherVisibilityStaysAbsent(t *testing.T) {
	agg := newWeatherAggregator(
		&stubWeatherClient{name: "met_no", record: weatherRecord("met_no", nil)},
		&stubWeatherClient{name: "smhi", record: weatherRecord("smhi", nil)},
		&stubWeatherClient{name: "open_meteo", record: weatherRecord("open_meteo", nil)},
	)

	combined, err := agg.FetchWeather(context.Background(), 55.7, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No synthetic value at the aggregation layer; the scoring engine owns
	// the neutral fallback.
	if combined.Primary.VisibilityKm != nil {
		t.Errorf("visibility = %v, want absent", *combined.Primary.VisibilityKm)
	}
}

func TestFetchWeatherAllSourcesFailed(t *testing.T) {
	agg := newWeatherAggregator(
		&stubWeatherClient{name: "met_no", err: errDown},
		&stubWeatherClient{name: "smhi", err: errDown},
		&stubWeatherClient{name: "open_meteo", err: errDown},
	)

	_, err := agg.FetchWeather(context.Background(), 55.7, 13.4)
	var asf *AllSourcesFailedError
	if !errors.As(err, &asf) {
		t.Fatalf("error = %v, want AllSourcesFailedError", err)
	}
	if asf.Domain != "weather" {
		t.Errorf("domain = %q, want weather", asf.Domain)
	}
}
