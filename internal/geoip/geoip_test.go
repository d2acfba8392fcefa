package geoip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/askwx/askwx/internal/resilience"
)

func testBackoff() resilience.Config {
	return resilience.Config{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.Client(), testBackoff())
	c.baseURL = srv.URL + "/json/"
	return c
}

func TestCurrentLocation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","city":"Berlin","regionName":"Berlin","country":"Germany","countryCode":"DE","lat":52.52,"lon":13.405,"timezone":"Europe/Berlin"}`))
	})

	loc, err := c.CurrentLocation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.City != "Berlin" || loc.Country != "DE" {
		t.Fatalf("location = %+v", loc)
	}
	if loc.Lat == 0 || loc.Lon == 0 {
		t.Fatalf("missing coordinates: %+v", loc)
	}
}

func TestCurrentLocationZeroCoordinates(t *testing.T) {
	// (0,0) is a real place; only missing city/country marks a response
	// incomplete.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","city":"Null Island","regionName":"","country":"None","countryCode":"XX","lat":0,"lon":0,"timezone":"Etc/UTC"}`))
	})

	loc, err := c.CurrentLocation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.City != "Null Island" {
		t.Fatalf("location = %+v", loc)
	}
}

func TestCurrentLocationIncompleteResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","country":"Germany","countryCode":"DE"}`))
	})

	_, err := c.CurrentLocation(context.Background())
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error = %v, want *Error", err)
	}
}

func TestCurrentLocationFailStatus(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"status":"fail","message":"private range"}`))
	})

	if _, err := c.CurrentLocation(context.Background()); err == nil {
		t.Fatal("expected error for fail status")
	}
	if calls.Load() != 1 {
		t.Fatalf("provider-reported failure retried %d times, want no retries", calls.Load())
	}
}

func TestCurrentLocationRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":"success","city":"Berlin","regionName":"Berlin","country":"Germany","countryCode":"DE","lat":52.52,"lon":13.405,"timezone":"Europe/Berlin"}`))
	})

	loc, err := c.CurrentLocation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.City != "Berlin" {
		t.Fatalf("location = %+v", loc)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", calls.Load())
	}
}
