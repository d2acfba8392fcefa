// Package query orchestrates one natural-language weather query:
// parse intent, resolve location, fetch weather, summarize.
package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/askwx/askwx/internal/geoip"
	"github.com/askwx/askwx/internal/intent"
	"github.com/askwx/askwx/internal/summary"
	"github.com/askwx/askwx/internal/weather"
)

// Options fixes per-surface policy. LocationFallback names the city to
// substitute when geolocation fails; when empty the failure propagates.
type Options struct {
	LocationFallback string
}

// Request is one query invocation. Units, when set, overrides whatever the
// parser inferred: an explicit caller setting beats inference.
type Request struct {
	Query          string
	Units          weather.Units
	IncludeSummary bool
}

// Response is the combined result consumed by both renderers.
type Response struct {
	Query    string                      `json:"query"`
	Intent   intent.Intent               `json:"intent"`
	Results  []weather.NormalizedWeather `json:"results"`
	Summary  *summary.WeatherSummary     `json:"summary,omitempty"`
	Location *geoip.Location             `json:"location,omitempty"`
}

// Service wires the pipeline stages together.
type Service struct {
	parser     *intent.Parser
	geo        geoip.Resolver
	provider   weather.Provider
	summarizer *summary.Generator
	opts       Options
}

func NewService(parser *intent.Parser, geo geoip.Resolver, provider weather.Provider, summarizer *summary.Generator, opts Options) *Service {
	return &Service{
		parser:     parser,
		geo:        geo,
		provider:   provider,
		summarizer: summarizer,
		opts:       opts,
	}
}

// Process runs the full pipeline. Intent-parse failures degrade to the
// fallback parser and summary failures degrade to no summary; location and
// provider failures are terminal (subject to Options.LocationFallback).
func (s *Service) Process(ctx context.Context, req Request) (*Response, error) {
	it, err := s.parser.Parse(ctx, req.Query)
	if err != nil {
		log.Printf("intent parse failed, using fallback: %v", err)
		it = s.parser.Fallback(req.Query)
	}

	if req.Units.Valid() {
		it.Units = string(req.Units)
	}

	resp := &Response{Query: req.Query, Intent: it}

	if it.UseIPLocation {
		loc, err := s.geo.CurrentLocation(ctx)
		switch {
		case err == nil:
			resp.Location = &loc
			substituteCity(it.Cities, loc.City)
		case s.opts.LocationFallback != "":
			log.Printf("geolocation failed, using default city %s: %v", s.opts.LocationFallback, err)
			substituteCity(it.Cities, s.opts.LocationFallback)
		default:
			return nil, fmt.Errorf("failed to resolve your location: %w", err)
		}
		resp.Intent = it
	}

	units := weather.Units(it.Units)

	if it.Compare && len(it.Cities) >= 2 {
		results, err := s.fetchCompare(ctx, it.Cities, units)
		if err != nil {
			return nil, err
		}
		resp.Results = results
	} else {
		result, err := s.fetchSingle(ctx, it.Cities[0], it.Date, units)
		if err != nil {
			return nil, err
		}
		resp.Results = []weather.NormalizedWeather{result}
	}

	if req.IncludeSummary && len(resp.Results) > 0 {
		sum, err := s.summarizer.Generate(ctx, resp.Results[0], it.Extras)
		if err != nil {
			// A weather answer without commentary beats no answer.
			log.Printf("summary generation failed, omitting summary: %v", err)
		} else {
			resp.Summary = &sum
		}
	}

	return resp, nil
}

// Compare fetches current conditions for each city concurrently, with the
// same partial-success semantics as comparison queries.
func (s *Service) Compare(ctx context.Context, cities []string, units weather.Units) ([]weather.NormalizedWeather, error) {
	return s.fetchCompare(ctx, cities, units)
}

// ForecastFor fetches current conditions plus a days-long daily forecast
// for one city.
func (s *Service) ForecastFor(ctx context.Context, city string, days int, units weather.Units) (weather.NormalizedWeather, error) {
	return s.fetchSingle(ctx, city, intent.DateSpec{Kind: intent.DateRange, Days: days}, units)
}

// Summarize generates the optional narrative for a fetched record.
func (s *Service) Summarize(ctx context.Context, w weather.NormalizedWeather, extras []string) (*summary.WeatherSummary, error) {
	sum, err := s.summarizer.Generate(ctx, w, extras)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// fetchSingle gets current conditions and, for anything but a plain "today"
// question, the aggregated forecast. An explicit range of one day still
// fetches that day. "tomorrow" fetches two days and keeps the one dated
// after the first bucket, since the provider has no direct tomorrow query.
func (s *Service) fetchSingle(ctx context.Context, city string, date intent.DateSpec, units weather.Units) (weather.NormalizedWeather, error) {
	result, err := s.provider.Current(ctx, city, units)
	if err != nil {
		return weather.NormalizedWeather{}, err
	}

	if date.Kind == intent.DateToday {
		return result, nil
	}

	days := date.ForecastDays()
	if days < 1 {
		days = 1
	}

	fc, err := s.provider.Forecast(ctx, city, days, units)
	if err != nil {
		return weather.NormalizedWeather{}, err
	}

	result.Forecast = fc.Forecast
	if date.Kind == intent.DateTomorrow {
		result.Forecast = dayAfterFirst(result.Forecast)
	}
	return result, nil
}

// dayAfterFirst selects the first entry dated after the leading bucket,
// which is today's. When the provider returned only today, an empty
// forecast beats passing today off as tomorrow.
func dayAfterFirst(days []weather.ForecastDay) []weather.ForecastDay {
	if len(days) < 2 {
		return nil
	}
	first := days[0].Date
	for _, d := range days[1:] {
		if d.Date.After(first) {
			return []weather.ForecastDay{d}
		}
	}
	return nil
}

// fetchCompare fans out one current-conditions call per city. Failures are
// independent; input order is preserved among the cities that succeeded,
// and only a total failure fails the comparison.
func (s *Service) fetchCompare(ctx context.Context, cities []string, units weather.Units) ([]weather.NormalizedWeather, error) {
	var wg sync.WaitGroup
	results := make([]*weather.NormalizedWeather, len(cities))
	errs := make([]error, len(cities))

	for i, city := range cities {
		wg.Add(1)
		go func(i int, city string) {
			defer wg.Done()

			r, err := s.provider.Current(ctx, city, units)
			if err != nil {
				log.Printf("compare fetch failed for %s: %v", city, err)
				errs[i] = err
				return
			}
			results[i] = &r
		}(i, city)
	}

	wg.Wait()

	collected := make([]weather.NormalizedWeather, 0, len(cities))
	for _, r := range results {
		if r != nil {
			collected = append(collected, *r)
		}
	}

	if len(collected) == 0 {
		return nil, fmt.Errorf("all comparison fetches failed: %w", errors.Join(errs...))
	}
	return collected, nil
}

// substituteCity replaces the geolocation placeholder entries in place.
func substituteCity(cities []string, city string) {
	for i, c := range cities {
		if c == intent.PlaceholderCity {
			cities[i] = city
		}
	}
}
