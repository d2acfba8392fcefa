package intent

import (
	"regexp"
	"strings"

	"github.com/askwx/askwx/internal/common"
)

// cityRe grabs the phrase after a location preposition; the capture is
// trimmed back at the first temporal/noise keyword afterwards.
var cityRe = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([a-zA-Z][a-zA-Z\s\-']*)`)

// compareRe handles "compare X and Y" phrasings that carry no preposition.
var compareRe = regexp.MustCompile(`(?i)\bcompare\s+([a-zA-Z][a-zA-Z\s\-']*?)\s+(?:and|vs\.?|versus)\s+([a-zA-Z][a-zA-Z\s\-']*)`)

// vsRe handles bare "X vs Y" with neither "compare" nor a preposition.
var vsRe = regexp.MustCompile(`(?i)\b([a-zA-Z][a-zA-Z\s\-']*?)\s+(?:vs\.?|versus)\s+([a-zA-Z][a-zA-Z\s\-']*)`)

// citySplitRe separates multi-city phrases ("London and Paris", "Oslo vs Bergen").
var citySplitRe = regexp.MustCompile(`(?i)\s*(?:,|\band\b|\bvs\.?\b|\bversus\b)\s*`)

// stopWords end a city phrase; anything from the first stop word on is noise.
var stopWords = map[string]bool{
	"today": true, "tomorrow": true, "tonight": true, "this": true,
	"next": true, "weekend": true, "week": true, "now": true, "right": true,
	"weather": true, "forecast": true, "please": true, "the": true,
	"in": true, "with": true, "using": true, "celsius": true,
	"fahrenheit": true, "metric": true, "imperial": true, "degrees": true,
}

// Fallback is the deterministic secondary parser. It never fails: for any
// input it returns a structurally valid Intent with the same field shape
// the model path produces.
func (p *Parser) Fallback(query string) Intent {
	q := strings.ToLower(query)

	it := Intent{
		Units:  p.defaultUnits,
		Extras: []string{},
	}

	switch {
	case strings.Contains(q, "tomorrow"):
		it.Date.Kind = DateTomorrow
	case strings.Contains(q, "weekend"):
		it.Date.Kind = DateRange
		it.Date.Weekend = true
		it.Date.Days = defaultWeekendDays
	case common.HasAny(q, "forecast", "next"):
		it.Date.Kind = DateRange
		it.Date.Days = 5
	default:
		it.Date.Kind = DateToday
	}

	if common.HasAny(q, "fahrenheit", "imperial", "°f") {
		it.Units = "imperial"
	} else if common.HasAny(q, "celsius", "metric", "°c") {
		it.Units = "metric"
	}

	if strings.Contains(q, "umbrella") {
		it.Extras = append(it.Extras, "umbrella")
	}
	if common.HasAny(q, "rain", "precipitation") {
		it.Extras = append(it.Extras, "rain")
	}
	if strings.Contains(q, "wind") {
		it.Extras = append(it.Extras, "wind")
	}
	if common.HasAny(q, "uv", "sun") {
		it.Extras = append(it.Extras, "uv")
	}

	it.Cities = extractCities(query)
	if len(it.Cities) == 0 {
		// No recognizable city: answer for wherever the caller is. Queries
		// saying "here"/"my location" mean this explicitly; for the rest it
		// is the only total answer the fallback can give.
		it.Cities = []string{PlaceholderCity}
		it.UseIPLocation = true
	}

	if common.HasAny(q, "compare", " vs ", " vs. ", "versus") && len(it.Cities) >= 2 {
		it.Compare = true
	}

	it.Normalize()
	return it
}

func extractCities(query string) []string {
	var phrases []string

	if m := compareRe.FindStringSubmatch(query); m != nil {
		phrases = append(phrases, m[1], m[2])
	} else if m := vsRe.FindStringSubmatch(query); m != nil {
		phrases = append(phrases, m[1], m[2])
	}
	for _, m := range cityRe.FindAllStringSubmatch(query, -1) {
		phrases = append(phrases, m[1])
	}

	var cities []string
	seen := make(map[string]bool)
	for _, phrase := range phrases {
		for _, part := range citySplitRe.Split(phrase, -1) {
			city := cleanCity(part)
			if city == "" || seen[strings.ToLower(city)] {
				continue
			}
			seen[strings.ToLower(city)] = true
			cities = append(cities, city)
		}
	}
	return cities
}

// cleanCity trims punctuation, skips leading noise words, and cuts the
// phrase at the first stop word after the city name starts.
func cleanCity(phrase string) string {
	words := strings.Fields(strings.Trim(phrase, " ?.,!"))

	var kept []string
	for _, w := range words {
		if stopWords[strings.ToLower(strings.Trim(w, "?.,!"))] {
			if len(kept) == 0 {
				continue
			}
			break
		}
		kept = append(kept, strings.Trim(w, "?.,!"))
	}

	city := strings.Join(kept, " ")
	if strings.EqualFold(city, "here") || strings.EqualFold(city, "my location") {
		return ""
	}
	return city
}
