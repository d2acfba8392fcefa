// Package resilience provides the single retry/backoff/circuit-breaker
// combinator shared by every outbound client (weather provider, geoip,
// language model).
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
)

// Config controls exponential backoff behaviour.
type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// PermanentError marks an error that must not be retried (bad credentials,
// unknown location, malformed payloads). Do unwraps it before returning.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Do executes op with retries, exponential backoff, and a circuit breaker.
// Only transient failures are retried; errors wrapped with Permanent
// propagate on the first attempt. The breaker may be nil when a caller
// does not want circuit protection.
func Do[T any](ctx context.Context, cfg Config, cb *gobreaker.CircuitBreaker, op func() (T, error)) (T, error) {
	var zero T

	if cfg.MaxRetries < 0 || cfg.InitialInterval <= 0 {
		return zero, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := execute(cb, op)
		if err == nil {
			return result, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Err
		}

		lastErr = err
		if attempt >= cfg.MaxRetries {
			return zero, lastErr
		}

		// Backoff with exponential delay.
		delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.MaxInterval && cfg.MaxInterval > 0 {
			delay = cfg.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker, op func() (T, error)) (T, error) {
	var zero T

	if cb == nil {
		return op()
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return op()
	})
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return typed, nil
}

// NewBreaker returns a circuit breaker with the settings used for all
// outbound services.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}
