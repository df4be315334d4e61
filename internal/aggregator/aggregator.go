// Package aggregator orchestrates prioritized lists of aurora and weather
// source clients, consulting the shared TTL cache, promoting fallback
// sources into vacated slots, and patching missing weather fields across
// sources.
package aggregator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/cache"
	"github.com/nordskies/aurora-visibility/internal/upstream"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

// AllSourcesFailedError reports that every configured client in a domain
// failed for one aggregation round. Individual source failures are absorbed;
// only total domain failure surfaces to the caller.
type AllSourcesFailedError struct {
	Domain string
}

func (e *AllSourcesFailedError) Error() string {
	return fmt.Sprintf("all %s data sources failed", e.Domain)
}

// Aggregator fetches aurora and weather data through ordered client lists.
// The cache is the only shared mutable state; the aggregator itself is safe
// for concurrent use.
type Aggregator struct {
	cache          *cache.TTLCache
	auroraClients  []aurora.Client
	weatherClients []weather.Client
	auroraTTL      time.Duration
	weatherTTL     time.Duration
}

// New creates an Aggregator. Client slices are in priority order: the first
// client is the primary source for its domain.
func New(c *cache.TTLCache, auroraClients []aurora.Client, weatherClients []weather.Client, auroraTTL, weatherTTL time.Duration) *Aggregator {
	return &Aggregator{
		cache:          c,
		auroraClients:  auroraClients,
		weatherClients: weatherClients,
		auroraTTL:      auroraTTL,
		weatherTTL:     weatherTTL,
	}
}

// FetchAurora aggregates aurora records for a location across all configured
// sources. It fails only when every source failed.
func (a *Aggregator) FetchAurora(ctx context.Context, lat, lon float64) (aurora.Combined, error) {
	slots := collect(ctx, a.cache, "aurora", a.auroraClients, a.auroraTTL, lat, lon)
	combined, ok := combine(slots)
	if !ok {
		return aurora.Combined{}, &AllSourcesFailedError{Domain: "aurora"}
	}
	return combined, nil
}

// FetchWeather aggregates weather records for a location across all
// configured sources. When the promoted primary lacks a visibility value,
// the first fallback source that has one patches it in.
func (a *Aggregator) FetchWeather(ctx context.Context, lat, lon float64) (weather.Combined, error) {
	slots := collect(ctx, a.cache, "weather", a.weatherClients, a.weatherTTL, lat, lon)
	combined, ok := combine(slots)
	if !ok {
		return weather.Combined{}, &AllSourcesFailedError{Domain: "weather"}
	}
	patchVisibility(&combined)
	return combined, nil
}

// collect resolves every configured client to a record or an absent slot.
// Cache hits fill their slot immediately; misses fetch concurrently, but the
// slot a source lands in depends only on its configured priority, never on
// completion timing. Failed fetches leave their slot nil.
func collect[T any](ctx context.Context, c *cache.TTLCache, domain string, clients []upstream.Client[T], ttl time.Duration, lat, lon float64) []*T {
	slots := make([]*T, len(clients))

	var wg sync.WaitGroup
	for i, client := range clients {
		key := cacheKey(domain, client.SourceName(), lat, lon)

		if v, ok := c.Get(key); ok {
			if rec, ok := v.(T); ok {
				log.Printf("INFO: using cached %s data from %s", domain, client.SourceName())
				slots[i] = &rec
				continue
			}
		}

		wg.Add(1)
		go func(i int, client upstream.Client[T], key string) {
			defer wg.Done()

			rec, err := client.Fetch(ctx, lat, lon)
			if err != nil {
				log.Printf("WARN: %s fetch from %s failed: %v", domain, client.SourceName(), err)
				return
			}
			slots[i] = &rec
			c.Set(key, rec, ttl)
		}(i, client, key)
	}
	wg.Wait()

	return slots
}

// combine fills the priority slots: the first present result becomes
// primary, the next two present results become secondary and tertiary.
// Results beyond the third present source are dropped from the combined
// view (they were still fetched and cached).
func combine[T any](slots []*T) (upstream.Combined[T], bool) {
	present := make([]*T, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			present = append(present, s)
		}
	}
	if len(present) == 0 {
		return upstream.Combined[T]{}, false
	}

	combined := upstream.Combined[T]{Primary: *present[0]}
	if len(present) > 1 {
		combined.Secondary = present[1]
	}
	if len(present) > 2 {
		combined.Tertiary = present[2]
	}
	return combined, true
}

// patchVisibility copies the first available fallback visibility value into
// a primary that lacks one. Only the visibility field moves; the primary
// keeps every other field, including its source name. When no source has a
// value, visibility stays absent and the scoring engine applies its own
// neutral fallback.
func patchVisibility(c *weather.Combined) {
	if c.Primary.VisibilityKm != nil {
		return
	}
	for _, candidate := range []*weather.Record{c.Secondary, c.Tertiary} {
		if candidate != nil && candidate.VisibilityKm != nil {
			vis := *candidate.VisibilityKm
			c.Primary.VisibilityKm = &vis
			log.Printf("INFO: patched primary visibility with %s value: %.1f km", candidate.Source, vis)
			return
		}
	}
}

func cacheKey(domain, source string, lat, lon float64) string {
	return fmt.Sprintf("%s:%s:%.4f:%.4f", domain, source, lat, lon)
}
