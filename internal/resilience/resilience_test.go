package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func cfg() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), cfg(), nil, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Fatalf("got %d after %d calls", got, calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	sentinel := errors.New("bad credentials")
	calls := 0
	_, err := Do(context.Background(), cfg(), nil, func() (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want unwrapped sentinel", err)
	}
	if calls != 1 {
		t.Fatalf("permanent error retried %d times", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), cfg(), nil, func() (int, error) {
		calls++
		return 0, errors.New("always failing")
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want initial attempt plus 3 retries", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, cfg(), nil, func() (int, error) {
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestDoWithCircuitBreaker(t *testing.T) {
	cb := NewBreaker("test")
	got, err := Do(context.Background(), cfg(), cb, func() (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, err %v", got, err)
	}
}

func TestDoRejectsInvalidConfig(t *testing.T) {
	if _, err := Do(context.Background(), Config{MaxRetries: -1, InitialInterval: time.Millisecond}, nil, func() (int, error) {
		return 1, nil
	}); err == nil {
		t.Fatal("expected config validation error")
	}
}
