package models

import (
	"sort"
	"time"
)

// Trend classifications for the revenue forecast.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

const (
	forecastMinimumDays  = 7
	forecastLookbackDays = 90
)

// ForecastPoint is one projected day of revenue with a ±20% band.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Projected  float64 `json:"projected"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// RevenueForecast is a naive heuristic projection, not a statistical
// model. Insufficient history is a valid tagged result, never an
// error.
type RevenueForecast struct {
	Trend      string          `json:"trend"`
	DailyAvg   float64         `json:"daily_avg"`
	RecentAvg  float64         `json:"recent_avg"`
	Confidence float64         `json:"confidence"`
	DataPoints int             `json:"data_points"`
	Forecast   []ForecastPoint `json:"forecast"`
}

// BuildRevenueForecast aggregates daily revenue over the conversions
// (assumed limited to the 90-day lookback by the caller), compares the
// trailing 7-day average to the overall average and projects forward
// with a compounding multiplier. Requires at least 7 days of history;
// with fewer it returns trend "insufficient_data" and an empty
// forecast.
func BuildRevenueForecast(conversions []Conversion, forecastDays int, now time.Time) RevenueForecast {
	if forecastDays <= 0 {
		forecastDays = 30
	}

	dailyRevenue := make(map[string]float64)
	for _, conv := range conversions {
		dailyRevenue[conv.ConvertedAt.UTC().Format("2006-01-02")] += conv.Amount
	}

	if len(dailyRevenue) < forecastMinimumDays {
		return RevenueForecast{
			Trend:      TrendInsufficientData,
			DataPoints: len(dailyRevenue),
			Forecast:   []ForecastPoint{},
		}
	}

	dates := make([]string, 0, len(dailyRevenue))
	for date := range dailyRevenue {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var total float64
	for _, date := range dates {
		total += dailyRevenue[date]
	}
	overallAvg := total / float64(len(dates))

	var recentTotal float64
	recentDates := dates[len(dates)-forecastMinimumDays:]
	for _, date := range recentDates {
		recentTotal += dailyRevenue[date]
	}
	recentAvg := recentTotal / float64(len(recentDates))

	// A 10% band around the overall average separates noise from a
	// real trend.
	trend := TrendStable
	multiplier := 1.0
	switch {
	case recentAvg > overallAvg*1.1:
		trend = TrendIncreasing
		multiplier = 1.02
	case recentAvg < overallAvg*0.9:
		trend = TrendDecreasing
		multiplier = 0.98
	}

	forecast := make([]ForecastPoint, 0, forecastDays)
	projected := recentAvg
	for day := 1; day <= forecastDays; day++ {
		projected *= multiplier
		forecast = append(forecast, ForecastPoint{
			Date:       now.UTC().AddDate(0, 0, day).Format("2006-01-02"),
			Projected:  round2(projected),
			LowerBound: round2(projected * 0.8),
			UpperBound: round2(projected * 1.2),
		})
	}

	confidence := float64(2 * len(dates))
	if confidence > 95 {
		confidence = 95
	}

	return RevenueForecast{
		Trend:      trend,
		DailyAvg:   round2(overallAvg),
		RecentAvg:  round2(recentAvg),
		Confidence: confidence,
		DataPoints: len(dates),
		Forecast:   forecast,
	}
}
