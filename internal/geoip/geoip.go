// Package geoip resolves the caller's current location from their public IP.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/askwx/askwx/internal/resilience"
)

// Location is a resolved IP-based location. City and country are mandatory:
// a provider response missing either is an error, not a partial result.
type Location struct {
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Region   string  `json:"region"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// Error is the geolocation failure type.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("geoip: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Resolver looks up the current location.
type Resolver interface {
	CurrentLocation(ctx context.Context) (Location, error)
}

// Client resolves via ip-api.com, which geolocates the requesting IP when
// no address is given.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    resilience.Config
	circuit    *gobreaker.CircuitBreaker
}

func NewClient(client *http.Client, backoff resilience.Config) *Client {
	return &Client{
		baseURL:    "http://ip-api.com/json/",
		httpClient: client,
		backoff:    backoff,
		circuit:    resilience.NewBreaker("geoip"),
	}
}

type ipAPIPayload struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	City        string  `json:"city"`
	Region      string  `json:"regionName"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

// CurrentLocation fetches and validates the caller's location. Rate limits
// and transport failures are retried; an incomplete response is permanent.
func (c *Client) CurrentLocation(ctx context.Context) (Location, error) {
	u := c.baseURL + "?fields=status,message,city,regionName,country,countryCode,lat,lon,timezone"

	loc, err := resilience.Do(ctx, c.backoff, c.circuit, func() (Location, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return Location{}, resilience.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return Location{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return Location{}, errors.New("rate limited")
		}
		if resp.StatusCode != http.StatusOK {
			return Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var payload ipAPIPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return Location{}, resilience.Permanent(fmt.Errorf("decode response: %w", err))
		}

		if payload.Status != "success" {
			return Location{}, resilience.Permanent(fmt.Errorf("lookup failed: %s", payload.Message))
		}
		// (0,0) is a legitimate fix, so coordinates are not checked here;
		// a successful ip-api response always carries the requested fields.
		if payload.City == "" || payload.CountryCode == "" {
			return Location{}, resilience.Permanent(errors.New("incomplete location in response"))
		}

		return Location{
			City:     payload.City,
			Country:  payload.CountryCode,
			Region:   payload.Region,
			Lat:      payload.Lat,
			Lon:      payload.Lon,
			Timezone: payload.Timezone,
		}, nil
	})
	if err != nil {
		return Location{}, &Error{Err: err}
	}
	return loc, nil
}
