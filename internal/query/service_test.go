package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/askwx/askwx/internal/geoip"
	"github.com/askwx/askwx/internal/intent"
	"github.com/askwx/askwx/internal/summary"
	"github.com/askwx/askwx/internal/weather"
)

type fetchCall struct {
	city  string
	days  int
	units weather.Units
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    []fetchCall
	failures map[string]error

	// maxForecastDays caps how many days Forecast returns, regardless of
	// what was requested. Zero means no cap.
	maxForecastDays int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) record(c fetchCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeProvider) Current(ctx context.Context, city string, units weather.Units) (weather.NormalizedWeather, error) {
	f.record(fetchCall{city: city, units: units})
	if err := f.failures[city]; err != nil {
		return weather.NormalizedWeather{}, err
	}
	return weather.NormalizedWeather{
		City:  city,
		Units: units,
		Current: &weather.CurrentConditions{
			Temperature: 20,
			Description: "clear sky",
			Main:        "Clear",
		},
	}, nil
}

func (f *fakeProvider) Forecast(ctx context.Context, city string, days int, units weather.Units) (weather.NormalizedWeather, error) {
	f.record(fetchCall{city: city, days: days, units: units})
	if err := f.failures[city]; err != nil {
		return weather.NormalizedWeather{}, err
	}

	if f.maxForecastDays > 0 && days > f.maxForecastDays {
		days = f.maxForecastDays
	}

	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	fc := make([]weather.ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		fc = append(fc, weather.ForecastDay{
			Date:    base.AddDate(0, 0, i),
			TempMin: 10,
			TempMax: 20,
			Main:    "Clear",
		})
	}
	return weather.NormalizedWeather{City: city, Units: units, Forecast: fc}, nil
}

type fakeGeo struct {
	loc geoip.Location
	err error
}

func (f *fakeGeo) CurrentLocation(ctx context.Context) (geoip.Location, error) {
	return f.loc, f.err
}

func newTestService(provider *fakeProvider, geo geoip.Resolver, opts Options) *Service {
	return NewService(
		intent.NewParser(nil, "metric"),
		geo,
		provider,
		summary.NewGenerator(nil),
		opts,
	)
}

func TestProcessFiveDayForecast(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{Query: "5 day forecast for Tokyo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	it := resp.Intent
	if len(it.Cities) != 1 || it.Cities[0] != "Tokyo" {
		t.Fatalf("cities = %v", it.Cities)
	}
	if it.Date.Kind != intent.DateRange || it.Date.Days != 5 || it.Compare || it.UseIPLocation {
		t.Fatalf("intent = %+v", it)
	}

	var forecastCall *fetchCall
	for i := range provider.calls {
		if provider.calls[i].days > 0 {
			forecastCall = &provider.calls[i]
		}
	}
	if forecastCall == nil || forecastCall.days != 5 {
		t.Fatalf("forecast call = %+v, want days=5", forecastCall)
	}
	if len(resp.Results) != 1 || len(resp.Results[0].Forecast) > 5 {
		t.Fatalf("results = %+v", resp.Results)
	}
}

func TestProcessHereResolvesLocation(t *testing.T) {
	provider := &fakeProvider{}
	geo := &fakeGeo{loc: geoip.Location{City: "Berlin", Country: "DE", Lat: 52.5, Lon: 13.4}}
	svc := newTestService(provider, geo, Options{})

	resp, err := svc.Process(context.Background(), Request{Query: "weather here"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Intent.UseIPLocation {
		t.Fatal("expected useIpLocation intent")
	}
	if resp.Intent.Cities[0] != "Berlin" {
		t.Fatalf("placeholder not substituted: %v", resp.Intent.Cities)
	}
	if len(provider.calls) == 0 || provider.calls[0].city != "Berlin" {
		t.Fatalf("provider calls = %+v", provider.calls)
	}
	if resp.Location == nil || resp.Location.City != "Berlin" {
		t.Fatalf("location = %+v", resp.Location)
	}
}

func TestProcessGeoFailureFailsWithoutFallback(t *testing.T) {
	provider := &fakeProvider{}
	geo := &fakeGeo{err: &geoip.Error{Err: errors.New("rate limited")}}
	svc := newTestService(provider, geo, Options{})

	if _, err := svc.Process(context.Background(), Request{Query: "weather here"}); err == nil {
		t.Fatal("expected location resolution failure")
	}
	if len(provider.calls) != 0 {
		t.Fatalf("provider called despite location failure: %+v", provider.calls)
	}
}

func TestProcessGeoFailureUsesConfiguredFallback(t *testing.T) {
	provider := &fakeProvider{}
	geo := &fakeGeo{err: &geoip.Error{Err: errors.New("rate limited")}}
	svc := newTestService(provider, geo, Options{LocationFallback: "London"})

	resp, err := svc.Process(context.Background(), Request{Query: "weather here"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Intent.Cities[0] != "London" {
		t.Fatalf("cities = %v, want fallback London", resp.Intent.Cities)
	}
	if resp.Location != nil {
		t.Fatalf("location should be absent on fallback, got %+v", resp.Location)
	}
}

func TestProcessCompareConcurrentFetches(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{Query: "compare London and Paris weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Intent.Compare {
		t.Fatalf("intent = %+v", resp.Intent)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].City != "London" || resp.Results[1].City != "Paris" {
		t.Fatalf("result order = %s, %s; want input order", resp.Results[0].City, resp.Results[1].City)
	}
	if len(provider.calls) != 2 {
		t.Fatalf("provider calls = %+v, want one per city", provider.calls)
	}
}

func TestProcessComparePartialFailure(t *testing.T) {
	provider := &fakeProvider{failures: map[string]error{
		"Paris": &weather.ProviderError{Provider: "fake", Kind: weather.ErrTimeout},
	}}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{Query: "compare London and Paris weather"})
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].City != "London" {
		t.Fatalf("results = %+v, want only London", resp.Results)
	}
}

func TestProcessCompareTotalFailure(t *testing.T) {
	provider := &fakeProvider{failures: map[string]error{
		"London": &weather.ProviderError{Provider: "fake", Kind: weather.ErrTimeout},
		"Paris":  &weather.ProviderError{Provider: "fake", Kind: weather.ErrTimeout},
	}}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	if _, err := svc.Process(context.Background(), Request{Query: "compare London and Paris weather"}); err == nil {
		t.Fatal("expected failure when every comparison fetch fails")
	}
}

func TestProcessTomorrowSelectsSecondDay(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{Query: "weather in Oslo tomorrow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var forecastCall *fetchCall
	for i := range provider.calls {
		if provider.calls[i].days > 0 {
			forecastCall = &provider.calls[i]
		}
	}
	if forecastCall == nil || forecastCall.days != 2 {
		t.Fatalf("forecast call = %+v, want days=2", forecastCall)
	}

	fc := resp.Results[0].Forecast
	if len(fc) != 1 {
		t.Fatalf("forecast entries = %d, want the single tomorrow entry", len(fc))
	}
	wantDate := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !fc[0].Date.Equal(wantDate) {
		t.Fatalf("selected day = %v, want second day %v", fc[0].Date, wantDate)
	}
}

func TestForecastForSingleDay(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	result, err := svc.ForecastFor(context.Background(), "Paris", 1, weather.UnitsMetric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var forecastCall *fetchCall
	for i := range provider.calls {
		if provider.calls[i].days > 0 {
			forecastCall = &provider.calls[i]
		}
	}
	if forecastCall == nil || forecastCall.days != 1 {
		t.Fatalf("forecast call = %+v, want days=1", forecastCall)
	}
	if len(result.Forecast) != 1 {
		t.Fatalf("forecast entries = %d, want 1 for an explicit one-day range", len(result.Forecast))
	}
}

func TestProcessTomorrowWithTodayOnlyForecast(t *testing.T) {
	provider := &fakeProvider{maxForecastDays: 1}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{Query: "weather in Oslo tomorrow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results[0].Forecast) != 0 {
		t.Fatalf("forecast = %+v, want empty rather than today relabeled as tomorrow", resp.Results[0].Forecast)
	}
}

func TestProcessUnitsOverride(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{
		Query: "weather in Denver",
		Units: weather.UnitsImperial,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Intent.Units != "imperial" {
		t.Fatalf("units = %q, want explicit override", resp.Intent.Units)
	}
	if provider.calls[0].units != weather.UnitsImperial {
		t.Fatalf("provider units = %q", provider.calls[0].units)
	}
}

func TestProcessSummaryIncluded(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeGeo{}, Options{})

	resp, err := svc.Process(context.Background(), Request{
		Query:          "weather in Paris",
		IncludeSummary: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Summary == nil || resp.Summary.Briefing == "" {
		t.Fatalf("summary = %+v", resp.Summary)
	}
}
