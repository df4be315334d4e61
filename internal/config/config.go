package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Default observer location, used when requests omit coordinates and by
	// the background prefetch job.
	DefaultLat   float64
	DefaultLon   float64
	LocationName string

	// Optional named location. When coordinates are not configured and a
	// Google API key is present, the location is forward geocoded at startup.
	LocationCity    string
	LocationCountry string
	GoogleAPIKey    string

	// Cache retention per data domain.
	AuroraTTL  time.Duration
	WeatherTTL time.Duration

	// Ordered source priority lists. The first healthy source becomes the
	// primary value in combined responses.
	AuroraSources  []string
	WeatherSources []string

	// HTTPTimeout bounds each upstream request.
	HTTPTimeout time.Duration

	// MetNoUserAgent identifies this service to api.met.no, which rejects
	// anonymous clients.
	MetNoUserAgent string

	// GeocodeUserAgent identifies this service to Nominatim, which has the
	// same identification policy.
	GeocodeUserAgent string

	// CleanupInterval controls how often expired cache entries are swept and
	// the default location is prefetched.
	CleanupInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	lat, err := getenvFloat("DEFAULT_LAT", 55.7)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LAT: %w", err)
	}
	lon, err := getenvFloat("DEFAULT_LON", 13.4)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LON: %w", err)
	}
	cfg.DefaultLat = lat
	cfg.DefaultLon = lon
	cfg.LocationName = getenvDefault("LOCATION_NAME", "Lund, Sweden")

	cfg.LocationCity = os.Getenv("LOCATION_CITY")
	cfg.LocationCountry = os.Getenv("LOCATION_COUNTRY")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")

	auroraTTL, err := getenvDuration("CACHE_TTL_AURORA", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_AURORA: %w", err)
	}
	cfg.AuroraTTL = auroraTTL

	weatherTTL, err := getenvDuration("CACHE_TTL_WEATHER", "30m")
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_WEATHER: %w", err)
	}
	cfg.WeatherTTL = weatherTTL

	cfg.AuroraSources = getenvList("AURORA_SOURCES", "noaa_swpc,auroras_live,aurora_space")
	cfg.WeatherSources = getenvList("WEATHER_SOURCES", "met_no,smhi,open_meteo")

	timeout, err := getenvDuration("HTTP_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	defaultUA := "aurora-visibility/1.0 github.com/nordskies/aurora-visibility"
	cfg.MetNoUserAgent = getenvDefault("METNO_USER_AGENT", defaultUA)
	cfg.GeocodeUserAgent = getenvDefault("GEOCODE_USER_AGENT", defaultUA)

	cleanup, err := getenvDuration("CLEANUP_INTERVAL", "10m")
	if err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_INTERVAL: %w", err)
	}
	cfg.CleanupInterval = cleanup

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// HasConfiguredCoordinates reports whether the default location came from the
// environment rather than the built-in fallback.
func HasConfiguredCoordinates() bool {
	return os.Getenv("DEFAULT_LAT") != "" && os.Getenv("DEFAULT_LON") != ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}

func getenvList(key, def string) []string {
	parts := strings.Split(getenvDefault(key, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
