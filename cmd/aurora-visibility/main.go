package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/nordskies/aurora-visibility/internal/api/http"
	"github.com/nordskies/aurora-visibility/internal/aggregator"
	"github.com/nordskies/aurora-visibility/internal/aurora"
	auroraproviders "github.com/nordskies/aurora-visibility/internal/aurora/providers"
	"github.com/nordskies/aurora-visibility/internal/cache"
	"github.com/nordskies/aurora-visibility/internal/config"
	"github.com/nordskies/aurora-visibility/internal/geocode"
	"github.com/nordskies/aurora-visibility/internal/scheduler"
	"github.com/nordskies/aurora-visibility/internal/weather"
	weatherproviders "github.com/nordskies/aurora-visibility/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// If the default location is configured by name instead of coordinates,
	// resolve it once at startup.
	if !config.HasConfiguredCoordinates() && cfg.LocationCity != "" && cfg.GoogleAPIKey != "" {
		lat, lon, err := geocode.Forward(cfg.GoogleAPIKey, cfg.LocationCity, cfg.LocationCountry)
		if err != nil {
			log.Printf("WARN: forward geocoding failed, keeping default coordinates: %v", err)
		} else {
			cfg.DefaultLat = lat
			cfg.DefaultLon = lon
			cfg.LocationName = cfg.LocationCity
			log.Printf("INFO: resolved %s to %.4f,%.4f", cfg.LocationCity, lat, lon)
		}
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Ordered clients with resilience (backoff + circuit breaker), built from
	// the configured source priority lists.
	auroraClients, err := buildAuroraClients(cfg, httpClient)
	if err != nil {
		log.Fatalf("failed to build aurora clients: %v", err)
	}
	weatherClients, err := buildWeatherClients(cfg, httpClient)
	if err != nil {
		log.Fatalf("failed to build weather clients: %v", err)
	}

	// Shared TTL cache and the aggregator orchestrating the client lists.
	ttlCache := cache.New()
	agg := aggregator.New(ttlCache, auroraClients, weatherClients, cfg.AuroraTTL, cfg.WeatherTTL)

	geocoder := geocode.NewService(cfg.HTTPTimeout, cfg.GeocodeUserAgent)

	// Scheduler that sweeps the cache and prefetches the default location.
	sched := scheduler.New(agg, ttlCache, cfg.DefaultLat, cfg.DefaultLon, cfg.CleanupInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "aurora-visibility",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aurora-visibility",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Aggregator:     agg,
		Geocoder:       geocoder,
		DefaultLat:     cfg.DefaultLat,
		DefaultLon:     cfg.DefaultLon,
		LocationName:   cfg.LocationName,
		AuroraSources:  cfg.AuroraSources,
		WeatherSources: cfg.WeatherSources,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func buildAuroraClients(cfg *config.AppConfig, httpClient *http.Client) ([]aurora.Client, error) {
	clients := make([]aurora.Client, 0, len(cfg.AuroraSources))
	for _, name := range cfg.AuroraSources {
		switch name {
		case "noaa_swpc":
			clients = append(clients, auroraproviders.NewNOAAClient(httpClient))
		case "auroras_live":
			clients = append(clients, auroraproviders.NewAurorasLiveClient(httpClient))
		case "aurora_space":
			clients = append(clients, auroraproviders.NewAuroraSpaceClient(httpClient))
		default:
			log.Printf("WARN: unknown aurora source %q, skipping", name)
		}
	}
	if len(clients) == 0 {
		return nil, errNoSources("aurora")
	}
	return clients, nil
}

func buildWeatherClients(cfg *config.AppConfig, httpClient *http.Client) ([]weather.Client, error) {
	clients := make([]weather.Client, 0, len(cfg.WeatherSources))
	for _, name := range cfg.WeatherSources {
		switch name {
		case "met_no":
			clients = append(clients, weatherproviders.NewMetNoClient(httpClient, cfg.MetNoUserAgent))
		case "smhi":
			clients = append(clients, weatherproviders.NewSMHIClient(httpClient))
		case "open_meteo":
			clients = append(clients, weatherproviders.NewOpenMeteoClient(httpClient))
		default:
			log.Printf("WARN: unknown weather source %q, skipping", name)
		}
	}
	if len(clients) == 0 {
		return nil, errNoSources("weather")
	}
	return clients, nil
}

type errNoSources string

func (e errNoSources) Error() string {
	return "no valid " + string(e) + " sources configured"
}
