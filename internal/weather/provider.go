package weather

import (
	"context"
	"errors"
	"fmt"
)

// Provider abstracts the upstream weather source.
type Provider interface {
	Name() string
	Current(ctx context.Context, city string, units Units) (NormalizedWeather, error)
	Forecast(ctx context.Context, city string, days int, units Units) (NormalizedWeather, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	ErrInvalidCredentials ErrorKind = "invalid_credentials"
	ErrLocationNotFound   ErrorKind = "location_not_found"
	ErrRateLimited        ErrorKind = "rate_limited"
	ErrTimeout            ErrorKind = "timeout"
	ErrUnknown            ErrorKind = "unknown"
)

// ProviderError wraps an upstream failure with its classification.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, defaulting to ErrUnknown.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrUnknown
}
