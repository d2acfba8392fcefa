package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/askwx/askwx/internal/resilience"
	"github.com/askwx/askwx/internal/weather"
)

// Forecast samples arrive in 3-hour intervals, 8 per day; the provider
// caps a single request at 40 samples (5 days).
const (
	samplesPerDay = 8
	maxSamples    = 40
)

// OpenWeatherClient implements weather.Provider against OpenWeatherMap.
// Units are passed straight through to the provider, making this the
// authoritative unit-conversion path.
type OpenWeatherClient struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    resilience.Config
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenWeatherClient(client *http.Client, apiKey string, backoff resilience.Config) *OpenWeatherClient {
	return &OpenWeatherClient{
		name:       "openweathermap",
		apiKey:     apiKey,
		baseURL:    "https://api.openweathermap.org/data/2.5",
		httpClient: client,
		backoff:    backoff,
		circuit:    resilience.NewBreaker("openweather"),
	}
}

func (c *OpenWeatherClient) Name() string {
	return c.name
}

type conditionEntry struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentPayload struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []conditionEntry `json:"weather"`
}

// Current fetches current conditions for city in the requested units.
func (c *OpenWeatherClient) Current(ctx context.Context, city string, units weather.Units) (weather.NormalizedWeather, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", string(units))

	payload, err := fetchJSON[currentPayload](ctx, c, fmt.Sprintf("%s/weather?%s", c.baseURL, values.Encode()))
	if err != nil {
		return weather.NormalizedWeather{}, err
	}

	if len(payload.Weather) == 0 {
		return weather.NormalizedWeather{}, &weather.ProviderError{
			Provider: c.name,
			Kind:     weather.ErrUnknown,
			Err:      errors.New("provider returned no condition entries"),
		}
	}
	cond := payload.Weather[0]

	return weather.NormalizedWeather{
		City:    payload.Name,
		Country: payload.Sys.Country,
		Units:   units,
		Current: &weather.CurrentConditions{
			Temperature: payload.Main.Temp,
			FeelsLike:   payload.Main.FeelsLike,
			Humidity:    int(payload.Main.Humidity),
			Pressure:    int(payload.Main.Pressure),
			Visibility:  payload.Visibility,
			WindSpeed:   payload.Wind.Speed,
			WindDeg:     int(payload.Wind.Deg) % 360,
			Description: cond.Description,
			Icon:        cond.Icon,
			Main:        cond.Main,
			ObservedAt:  time.Unix(payload.Dt, 0).UTC(),
		},
	}, nil
}

type forecastPayload struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []conditionEntry `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Forecast fetches up to days daily aggregates built from the provider's
// 3-hour samples.
func (c *OpenWeatherClient) Forecast(ctx context.Context, city string, days int, units weather.Units) (weather.NormalizedWeather, error) {
	cnt := days * samplesPerDay
	if cnt > maxSamples {
		cnt = maxSamples
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", string(units))
	values.Set("cnt", fmt.Sprintf("%d", cnt))

	payload, err := fetchJSON[forecastPayload](ctx, c, fmt.Sprintf("%s/forecast?%s", c.baseURL, values.Encode()))
	if err != nil {
		return weather.NormalizedWeather{}, err
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		s := weather.ForecastSample{
			Timestamp:  time.Unix(item.Dt, 0).UTC(),
			Temp:       item.Main.Temp,
			Humidity:   item.Main.Humidity,
			WindSpeed:  item.Wind.Speed,
			PrecipProb: item.Pop,
		}
		if len(item.Weather) > 0 {
			s.Main = item.Weather[0].Main
			s.Description = item.Weather[0].Description
			s.Icon = item.Weather[0].Icon
			s.HasCondition = true
		}
		samples = append(samples, s)
	}

	return weather.NormalizedWeather{
		City:     payload.City.Name,
		Country:  payload.City.Country,
		Units:    units,
		Forecast: weather.AggregateDays(samples, days),
	}, nil
}

// fetchJSON performs one resilient GET and decodes the 2xx body into T.
// Rate limits, server errors and timeouts are retried; credential and
// not-found failures, and malformed bodies, are permanent.
func fetchJSON[T any](ctx context.Context, c *OpenWeatherClient, u string) (T, error) {
	return resilience.Do(ctx, c.backoff, c.circuit, func() (T, error) {
		var zero T

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return zero, resilience.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return zero, &weather.ProviderError{Provider: c.name, Kind: classifyTransportError(err), Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return zero, resilience.Permanent(&weather.ProviderError{
				Provider: c.name, Kind: weather.ErrInvalidCredentials,
				Err: errors.New("invalid API key"),
			})
		case resp.StatusCode == http.StatusNotFound:
			return zero, resilience.Permanent(&weather.ProviderError{
				Provider: c.name, Kind: weather.ErrLocationNotFound,
				Err: errors.New("location not found"),
			})
		case resp.StatusCode == http.StatusTooManyRequests:
			return zero, &weather.ProviderError{
				Provider: c.name, Kind: weather.ErrRateLimited,
				Err: errors.New("rate limited"),
			}
		case resp.StatusCode >= 500:
			return zero, &weather.ProviderError{
				Provider: c.name, Kind: weather.ErrUnknown,
				Err: fmt.Errorf("server error: status %d", resp.StatusCode),
			}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return zero, resilience.Permanent(&weather.ProviderError{
				Provider: c.name, Kind: weather.ErrUnknown,
				Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
			})
		}

		var payload T
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return zero, resilience.Permanent(&weather.ProviderError{
				Provider: c.name, Kind: weather.ErrUnknown,
				Err: fmt.Errorf("decode response: %w", err),
			})
		}
		return payload, nil
	})
}

func classifyTransportError(err error) weather.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return weather.ErrTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return weather.ErrTimeout
	}
	return weather.ErrUnknown
}
