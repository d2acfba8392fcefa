package weather

import (
	"math"
	"sort"
	"time"
)

// ForecastSample is a single sub-daily (3-hour) forecast reading as
// delivered by the provider, before day-bucketing.
type ForecastSample struct {
	Timestamp  time.Time
	Temp       float64
	Humidity   float64
	WindSpeed  float64
	PrecipProb float64 // 0-1 as reported by the provider

	Main         string
	Description  string
	Icon         string
	HasCondition bool
}

const (
	fallbackMain        = "Unknown"
	fallbackDescription = "Clear"
	fallbackIcon        = "01d"
)

// AggregateDays buckets sub-daily samples by UTC calendar day and reduces
// each bucket to one ForecastDay. Buckets are ordered by date ascending and
// at most days entries are returned. Numeric fields use min/max for
// temperature and means for humidity and wind; precipitation probability is
// the bucket maximum scaled to 0-100. The day's condition is the
// (main, description) pair with the most samples, ties broken by the pair
// seen first.
func AggregateDays(samples []ForecastSample, days int) []ForecastDay {
	if len(samples) == 0 || days <= 0 {
		return nil
	}

	buckets := make(map[string][]ForecastSample)
	for _, s := range samples {
		key := s.Timestamp.UTC().Format("2006-01-02")
		buckets[key] = append(buckets[key], s)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > days {
		keys = keys[:days]
	}

	forecast := make([]ForecastDay, 0, len(keys))
	for _, k := range keys {
		date, _ := time.ParseInLocation("2006-01-02", k, time.UTC)
		forecast = append(forecast, aggregateBucket(date, buckets[k]))
	}

	return forecast
}

func aggregateBucket(date time.Time, samples []ForecastSample) ForecastDay {
	day := ForecastDay{
		Date:    date,
		TempMin: samples[0].Temp,
		TempMax: samples[0].Temp,
	}

	var sumHumidity, sumWind, maxPrecip float64
	for _, s := range samples {
		if s.Temp < day.TempMin {
			day.TempMin = s.Temp
		}
		if s.Temp > day.TempMax {
			day.TempMax = s.Temp
		}
		sumHumidity += s.Humidity
		sumWind += s.WindSpeed
		if s.PrecipProb > maxPrecip {
			maxPrecip = s.PrecipProb
		}
	}

	n := float64(len(samples))
	day.Humidity = int(math.Round(sumHumidity / n))
	day.WindSpeed = math.Round(sumWind/n*10) / 10
	day.PrecipProb = int(math.Round(maxPrecip * 100))

	day.Main, day.Description = majorityCondition(samples)
	day.Icon = iconFor(samples, day.Main, day.Description)

	return day
}

// majorityCondition tallies (main, description) pairs and picks the most
// frequent one; a strict > comparison over first-seen order breaks ties.
func majorityCondition(samples []ForecastSample) (string, string) {
	type pair struct{ main, desc string }

	counts := make(map[pair]int)
	var order []pair

	for _, s := range samples {
		if !s.HasCondition {
			continue
		}
		p := pair{s.Main, s.Description}
		if _, seen := counts[p]; !seen {
			order = append(order, p)
		}
		counts[p]++
	}

	if len(order) == 0 {
		return fallbackMain, fallbackDescription
	}

	best := order[0]
	for _, p := range order[1:] {
		if counts[p] > counts[best] {
			best = p
		}
	}
	return best.main, best.desc
}

func iconFor(samples []ForecastSample, main, description string) string {
	for _, s := range samples {
		if s.HasCondition && s.Main == main && s.Description == description && s.Icon != "" {
			return s.Icon
		}
	}
	return fallbackIcon
}
