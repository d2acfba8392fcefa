package weather

import "math"

// Pure unit/formatting helpers. The provider is queried directly in the
// requested unit system, so these conversions exist for presentation and
// for callers that receive values in the other system.

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 {
	return c*9/5 + 32
}

// FToC converts Fahrenheit to Celsius.
func FToC(f float64) float64 {
	return (f - 32) * 5 / 9
}

// MSToMPH converts meters/second to miles/hour.
func MSToMPH(ms float64) float64 {
	return ms * 2.237
}

// MSToKMH converts meters/second to kilometers/hour.
func MSToKMH(ms float64) float64 {
	return ms * 3.6
}

// MPHToKMH converts miles/hour to kilometers/hour.
func MPHToKMH(mph float64) float64 {
	return mph * 1.609
}

// MetersToKM converts meters to kilometers.
func MetersToKM(m int) float64 {
	return float64(m) / 1000
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m int) float64 {
	return float64(m) / 1609.344
}

var compassLabels = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// CompassIndex buckets a wind direction into one of 16 sectors of 22.5°.
func CompassIndex(degrees float64) int {
	return int(math.Round(degrees/22.5)) % 16
}

// CompassLabel returns the 16-point compass label for a wind direction.
func CompassLabel(degrees float64) string {
	return compassLabels[CompassIndex(degrees)]
}

// TempSymbol returns the display symbol for temperatures in u.
func (u Units) TempSymbol() string {
	if u == UnitsImperial {
		return "°F"
	}
	return "°C"
}

// SpeedSymbol returns the display symbol for wind speed in u. OpenWeatherMap
// reports m/s for metric and mph for imperial.
func (u Units) SpeedSymbol() string {
	if u == UnitsImperial {
		return "mph"
	}
	return "m/s"
}

// ConditionGlyph maps an OpenWeatherMap condition group to a display glyph.
func ConditionGlyph(main string) string {
	switch main {
	case "Clear":
		return "☀"
	case "Clouds":
		return "☁"
	case "Rain", "Drizzle":
		return "🌧"
	case "Thunderstorm":
		return "⛈"
	case "Snow":
		return "❄"
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return "🌫"
	case "Squall", "Tornado":
		return "🌪"
	default:
		return "🌡"
	}
}
