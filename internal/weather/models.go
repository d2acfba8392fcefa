package weather

import (
	"time"
)

// Units identifies the unit system a record was normalized into.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// Valid reports whether u is one of the two supported systems.
func (u Units) Valid() bool {
	return u == UnitsMetric || u == UnitsImperial
}

// CurrentConditions is the normalized "right now" view.
type CurrentConditions struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    int       `json:"humidity"`    // percent, 0-100
	Pressure    int       `json:"pressure"`    // hPa
	Visibility  int       `json:"visibility"`  // meters
	WindSpeed   float64   `json:"windSpeed"`
	WindDeg     int       `json:"windDirectionDegrees"` // 0-359
	Description string    `json:"description"`
	Icon        string    `json:"iconId"`
	Main        string    `json:"conditionMain"`
	ObservedAt  time.Time `json:"observedAt"` // always UTC
}

// ForecastDay is one aggregated calendar day of forecast.
type ForecastDay struct {
	Date        time.Time `json:"date"` // midnight UTC
	TempMin     float64   `json:"temperatureMin"`
	TempMax     float64   `json:"temperatureMax"`
	Description string    `json:"description"`
	Icon        string    `json:"iconId"`
	Main        string    `json:"conditionMain"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	PrecipProb  int       `json:"precipitationProbability"` // 0-100
}

// NormalizedWeather is the provider-agnostic weather record. Units are
// fixed once at construction and tagged on the record; nothing downstream
// re-interprets the numbers.
type NormalizedWeather struct {
	City     string             `json:"city"`
	Country  string             `json:"country"`
	Units    Units              `json:"units"`
	Current  *CurrentConditions `json:"current,omitempty"`
	Forecast []ForecastDay      `json:"forecast,omitempty"`
}
