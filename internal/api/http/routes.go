package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nordskies/aurora-visibility/internal/aggregator"
	"github.com/nordskies/aurora-visibility/internal/aurora"
	"github.com/nordskies/aurora-visibility/internal/geocode"
	"github.com/nordskies/aurora-visibility/internal/prediction"
	"github.com/nordskies/aurora-visibility/internal/weather"
)

var validate = validator.New()

// Deps holds the services the HTTP handlers depend on.
type Deps struct {
	Aggregator *aggregator.Aggregator
	Geocoder   *geocode.Service

	// Default observer location for requests that omit coordinates.
	DefaultLat   float64
	DefaultLon   float64
	LocationName string

	// Configured source priority, exposed on the sources endpoints.
	AuroraSources  []string
	WeatherSources []string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	h := handlers{deps: deps}
	v1 := app.Group("/api/v1")

	v1.Get("/prediction/current", h.currentPrediction)
	v1.Get("/prediction/forecast", h.forecastPrediction)
	v1.Get("/aurora/sources", h.auroraSources)
	v1.Get("/weather/sources", h.weatherSources)
	v1.Get("/geocode/reverse", h.reverseGeocode)
}

type handlers struct {
	deps Deps
}

// locationInfo describes the observer location a prediction was computed for.
type locationInfo struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}

type predictionResponse struct {
	ID              string                     `json:"id"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
	Location        locationInfo               `json:"location"`
	Aurora          aurora.Combined            `json:"aurora"`
	Weather         weather.Combined           `json:"weather"`
	VisibilityScore prediction.VisibilityScore `json:"visibilityScore"`
}

func (h handlers) currentPrediction(c *fiber.Ctx) error {
	loc, err := h.parseCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	now := time.Now().UTC()
	resp, err := h.buildPrediction(c, loc, now)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// forecastItem carries the projected score for one future hour.
type forecastItem struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

type forecastResponse struct {
	ID        string         `json:"id"`
	Location  locationInfo   `json:"location"`
	BaseScore float64        `json:"baseScore"`
	Hours     int            `json:"hours"`
	Forecast  []forecastItem `json:"forecast"`
}

func (h handlers) forecastPrediction(c *fiber.Ctx) error {
	loc, err := h.parseCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	hours := 24
	if s := c.Query("hours"); s != "" {
		hours, err = strconv.Atoi(s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "hours must be an integer")
		}
	}
	if hours < 1 || hours > 72 {
		return fiber.NewError(fiber.StatusBadRequest, "hours must be between 1 and 72")
	}

	now := time.Now().UTC()
	base, err := h.buildPrediction(c, loc, now)
	if err != nil {
		return err
	}

	items := make([]forecastItem, 0, hours)
	for i := 1; i <= hours; i++ {
		ts := now.Add(time.Duration(i) * time.Hour)
		items = append(items, forecastItem{
			Timestamp: ts,
			Score:     projectScore(base.VisibilityScore.TotalScore, ts),
		})
	}

	return c.JSON(forecastResponse{
		ID:        uuid.NewString(),
		Location:  base.Location,
		BaseScore: base.VisibilityScore.TotalScore,
		Hours:     hours,
		Forecast:  items,
	})
}

// projectScore nudges the current score for future hours: evenings tend to
// be slightly better and the middle of the night better still, since darkness
// dominates short-horizon visibility changes.
func projectScore(base float64, ts time.Time) float64 {
	score := base
	hour := ts.Hour()
	switch {
	case hour >= 18:
		score += 5
	case hour <= 6:
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (h handlers) auroraSources(c *fiber.Ctx) error {
	loc, err := h.parseCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	combined, err := h.deps.Aggregator.FetchAurora(c.Context(), loc.Lat, loc.Lon)
	if err != nil {
		return mapAggregatorError(err)
	}

	return c.JSON(fiber.Map{
		"configured": h.deps.AuroraSources,
		"location":   loc,
		"data":       combined,
	})
}

func (h handlers) weatherSources(c *fiber.Ctx) error {
	loc, err := h.parseCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	combined, err := h.deps.Aggregator.FetchWeather(c.Context(), loc.Lat, loc.Lon)
	if err != nil {
		return mapAggregatorError(err)
	}

	return c.JSON(fiber.Map{
		"configured": h.deps.WeatherSources,
		"location":   loc,
		"data":       combined,
	})
}

func (h handlers) reverseGeocode(c *fiber.Ctx) error {
	if c.Query("lat") == "" || c.Query("lon") == "" {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
	}
	loc, err := h.parseCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	raw, err := h.deps.Geocoder.Reverse(c.Context(), loc.Lat, loc.Lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "reverse geocoding temporarily unavailable")
	}
	return c.Type("json").Send(raw)
}

func (h handlers) buildPrediction(c *fiber.Ctx, loc locationInfo, now time.Time) (*predictionResponse, error) {
	aur, err := h.deps.Aggregator.FetchAurora(c.Context(), loc.Lat, loc.Lon)
	if err != nil {
		return nil, mapAggregatorError(err)
	}
	wx, err := h.deps.Aggregator.FetchWeather(c.Context(), loc.Lat, loc.Lon)
	if err != nil {
		return nil, mapAggregatorError(err)
	}

	score := prediction.Score(aur.Primary, wx.Primary, loc.Lat, loc.Lon, now)

	return &predictionResponse{
		ID:              uuid.NewString(),
		GeneratedAt:     now,
		Location:        loc,
		Aurora:          aur,
		Weather:         wx,
		VisibilityScore: score,
	}, nil
}

// coordsQuery holds optional lat/lon query parameters.
type coordsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func (h handlers) parseCoords(c *fiber.Ctx) (locationInfo, error) {
	q := coordsQuery{Lat: h.deps.DefaultLat, Lon: h.deps.DefaultLon}
	usedDefault := true

	if s := c.Query("lat"); s != "" {
		lat, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return locationInfo{}, errors.New("lat must be a number")
		}
		q.Lat = lat
		usedDefault = false
	}
	if s := c.Query("lon"); s != "" {
		lon, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return locationInfo{}, errors.New("lon must be a number")
		}
		q.Lon = lon
		usedDefault = false
	}

	if err := validate.Struct(q); err != nil {
		return locationInfo{}, errors.New("lat must be within [-90, 90] and lon within [-180, 180]")
	}

	loc := locationInfo{Lat: q.Lat, Lon: q.Lon}
	if usedDefault {
		loc.Name = h.deps.LocationName
	}
	return loc, nil
}

func mapAggregatorError(err error) error {
	var allFailed *aggregator.AllSourcesFailedError
	if errors.As(err, &allFailed) {
		return fiber.NewError(fiber.StatusBadGateway, allFailed.Domain+" data temporarily unavailable from all sources")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to build prediction")
}
