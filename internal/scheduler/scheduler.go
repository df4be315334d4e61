package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/nordskies/aurora-visibility/internal/aggregator"
	"github.com/nordskies/aurora-visibility/internal/cache"
)

// Scheduler periodically sweeps expired cache entries and keeps the default
// location warm so the first request after a quiet period is served from
// cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	agg       *aggregator.Aggregator
	cache     *cache.TTLCache
	lat, lon  float64
	interval  time.Duration
}

// New creates a new Scheduler for the given default location.
func New(agg *aggregator.Aggregator, c *cache.TTLCache, lat, lon float64, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		agg:       agg,
		cache:     c,
		lat:       lat,
		lon:       lon,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 600
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() {
		if removed := s.cache.CleanupExpired(); removed > 0 {
			log.Printf("scheduler: evicted %d expired cache entries", removed)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.agg.FetchAurora(ctx, s.lat, s.lon); err != nil {
			log.Printf("scheduler: aurora prefetch failed for %.4f,%.4f: %v", s.lat, s.lon, err)
		}
		if _, err := s.agg.FetchWeather(ctx, s.lat, s.lon); err != nil {
			log.Printf("scheduler: weather prefetch failed for %.4f,%.4f: %v", s.lat, s.lon, err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
