// Package httpapi exposes the query pipeline over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/askwx/askwx/internal/geoip"
	"github.com/askwx/askwx/internal/query"
	"github.com/askwx/askwx/internal/weather"
)

var validate = validator.New()

// Deps bundles what the handlers need. The query service handed in here
// must be the HTTP variant (geolocation falls back to the default city).
type Deps struct {
	Query        *query.Service
	Geo          geoip.Resolver
	DefaultUnits weather.Units
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Post("/weather", handleWeather(deps))
	app.Get("/forecast", handleForecast(deps))
	app.Post("/compare", handleCompare(deps))
	app.Get("/location", handleLocation(deps))
	app.Get("/health", handleHealth)
}

// All responses share one envelope.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondOK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondError(c *fiber.Ctx, status int, errTag, message string) error {
	return c.Status(status).JSON(envelope{
		Success:   false,
		Error:     errTag,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func respondValidation(c *fiber.Ctx, err error) error {
	return respondError(c, fiber.StatusBadRequest, "validation_failed", fieldErrors(err))
}

// fieldErrors itemizes validator failures per field.
func fieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	items := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		items = append(items, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(items, "; ")
}

// respondUpstream maps provider/geoip error kinds onto status codes.
func respondUpstream(c *fiber.Ctx, err error) error {
	log.Printf("upstream failure: %v", err)

	var pe *weather.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case weather.ErrLocationNotFound:
			return respondError(c, fiber.StatusNotFound, string(pe.Kind), "location not found")
		case weather.ErrRateLimited, weather.ErrTimeout:
			return respondError(c, fiber.StatusServiceUnavailable, string(pe.Kind), "weather provider temporarily unavailable")
		default:
			return respondError(c, fiber.StatusBadGateway, string(pe.Kind), "weather provider error")
		}
	}

	var ge *geoip.Error
	if errors.As(err, &ge) {
		return respondError(c, fiber.StatusBadGateway, "geolocation_failed", "failed to resolve location")
	}

	return respondError(c, fiber.StatusInternalServerError, "internal_error", "internal error")
}

type weatherRequest struct {
	Query   string `json:"query" validate:"required"`
	Units   string `json:"units" validate:"omitempty,oneof=metric imperial"`
	Summary bool   `json:"summary"`
}

func handleWeather(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req weatherRequest
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, fiber.StatusBadRequest, "invalid_body", err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return respondValidation(c, err)
		}

		resp, err := deps.Query.Process(c.Context(), query.Request{
			Query:          req.Query,
			Units:          weather.Units(req.Units),
			IncludeSummary: req.Summary,
		})
		if err != nil {
			return respondUpstream(c, err)
		}

		data := fiber.Map{
			"weather": resp.Results[0],
			"query":   resp.Query,
		}
		if resp.Summary != nil {
			data["summary"] = resp.Summary
		}
		if resp.Location != nil {
			data["location"] = resp.Location
		}
		return respondOK(c, data)
	}
}

type forecastRequest struct {
	City    string `validate:"required"`
	Units   string `validate:"omitempty,oneof=metric imperial"`
	Days    int    `validate:"min=1,max=5"`
	Summary bool
}

func handleForecast(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := forecastRequest{
			City:    c.Query("city"),
			Units:   c.Query("units"),
			Days:    3,
			Summary: c.QueryBool("summary"),
		}
		if daysStr := c.Query("days"); daysStr != "" {
			days, err := strconv.Atoi(daysStr)
			if err != nil {
				return respondError(c, fiber.StatusBadRequest, "validation_failed", "days: must be an integer")
			}
			req.Days = days
		}
		if err := validate.Struct(req); err != nil {
			return respondValidation(c, err)
		}

		units := weather.Units(req.Units)
		if !units.Valid() {
			units = deps.DefaultUnits
		}

		result, err := deps.Query.ForecastFor(c.Context(), req.City, req.Days, units)
		if err != nil {
			return respondUpstream(c, err)
		}

		data := fiber.Map{
			"current":  result.Current,
			"forecast": result.Forecast,
			"city":     result.City,
			"days":     req.Days,
		}
		if req.Summary {
			if sum, err := deps.Query.Summarize(c.Context(), result, nil); err != nil {
				log.Printf("summary generation failed, omitting summary: %v", err)
			} else {
				data["summary"] = sum
			}
		}
		return respondOK(c, data)
	}
}

type compareRequest struct {
	Cities  []string `json:"cities" validate:"required,min=2,dive,required"`
	Units   string   `json:"units" validate:"omitempty,oneof=metric imperial"`
	Summary bool     `json:"summary"`
}

func handleCompare(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req compareRequest
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, fiber.StatusBadRequest, "invalid_body", err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return respondValidation(c, err)
		}

		units := weather.Units(req.Units)
		if !units.Valid() {
			units = deps.DefaultUnits
		}

		results, err := deps.Query.Compare(c.Context(), req.Cities, units)
		if err != nil {
			return respondUpstream(c, err)
		}

		data := fiber.Map{
			"cities":         results,
			"comparedCities": req.Cities,
		}
		if req.Summary && len(results) > 0 {
			if sum, err := deps.Query.Summarize(c.Context(), results[0], nil); err != nil {
				log.Printf("summary generation failed, omitting summary: %v", err)
			} else {
				data["summary"] = sum
			}
		}
		return respondOK(c, data)
	}
}

func handleLocation(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := deps.Geo.CurrentLocation(c.Context())
		if err != nil {
			return respondUpstream(c, err)
		}
		return respondOK(c, loc)
	}
}

func handleHealth(c *fiber.Ctx) error {
	return respondOK(c, fiber.Map{
		"status":  "ok",
		"service": "askwx",
	})
}
