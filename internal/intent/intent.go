package intent

import (
	"fmt"
	"strings"
)

// Date kinds produced by both parser paths.
const (
	DateToday    = "today"
	DateTomorrow = "tomorrow"
	DateRange    = "range"
)

// PlaceholderCity stands in for the caller's own location until the
// geolocation resolver substitutes a real city.
const PlaceholderCity = "Unknown"

const (
	defaultRangeDays   = 3
	defaultWeekendDays = 2
)

// DateSpec describes which day(s) the query asks about.
type DateSpec struct {
	Kind    string `json:"kind" validate:"required,oneof=today tomorrow range"`
	Days    int    `json:"days,omitempty" validate:"omitempty,gt=0"`
	Weekend bool   `json:"weekend,omitempty"`
}

// ForecastDays returns how many days of forecast the spec needs. "tomorrow"
// needs two fetched days because the provider has no direct tomorrow query;
// the caller selects the second one.
func (d DateSpec) ForecastDays() int {
	switch d.Kind {
	case DateTomorrow:
		return 2
	case DateRange:
		return d.Days
	default:
		return 1
	}
}

// Intent is the structured form of a natural-language weather query.
// Both parser paths produce the same shape.
type Intent struct {
	Cities        []string `json:"cities" validate:"required,min=1,dive,required"`
	Date          DateSpec `json:"date"`
	Units         string   `json:"units" validate:"required,oneof=metric imperial"`
	Extras        []string `json:"extras"`
	UseIPLocation bool     `json:"useIpLocation"`
	Compare       bool     `json:"compare"`
}

// Normalize fills derived defaults and enforces cross-field invariants:
// a range without a day count defaults to 3 (2 for weekends) and compare
// requires at least two cities.
func (it *Intent) Normalize() {
	if it.Date.Kind == DateRange && it.Date.Days <= 0 {
		if it.Date.Weekend {
			it.Date.Days = defaultWeekendDays
		} else {
			it.Date.Days = defaultRangeDays
		}
	}
	if it.Compare && len(it.Cities) < 2 {
		it.Compare = false
	}
	if it.Extras == nil {
		it.Extras = []string{}
	}
}

// ParseError reports a primary-path parse failure: a model call error or a
// schema violation in the model's output.
type ParseError struct {
	Fields []string
	Err    error
}

func (e *ParseError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("intent parse failed (fields: %s): %v", strings.Join(e.Fields, ", "), e.Err)
	}
	return fmt.Sprintf("intent parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
