package models

import (
	"math"
	"sort"
	"strings"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ChannelPerformance is one channel's slice of an attribution report.
type ChannelPerformance struct {
	Channel     string  `json:"channel"`
	Revenue     float64 `json:"revenue"`
	Percentage  float64 `json:"percentage"`
	Conversions int     `json:"conversions"`
	AvgRevenue  float64 `json:"avg_revenue"`
}

// AttributionReport sums one model's credited revenue per channel.
type AttributionReport struct {
	Model            string               `json:"model"`
	TotalRevenue     float64              `json:"total_revenue"`
	TotalConversions int                  `json:"total_conversions"`
	Channels         []ChannelPerformance `json:"channels"`
}

// BuildAttributionReport aggregates the frozen attribution splits of
// the given conversions under one model. Channels are sorted
// descending by credited revenue.
func BuildAttributionReport(conversions []Conversion, model string) (*AttributionReport, error) {
	if !IsValidModel(model) {
		return nil, ErrInvalidModel
	}

	revenueByChannel := make(map[string]float64)
	conversionsByChannel := make(map[string]int)
	var totalRevenue float64

	for _, conv := range conversions {
		totalRevenue += conv.Amount
		for channel, credit := range conv.Attributions[model] {
			revenueByChannel[channel] += credit
			conversionsByChannel[channel]++
		}
	}

	channels := make([]ChannelPerformance, 0, len(revenueByChannel))
	for channel, revenue := range revenueByChannel {
		perf := ChannelPerformance{
			Channel:     channel,
			Revenue:     round2(revenue),
			Conversions: conversionsByChannel[channel],
		}
		if totalRevenue > 0 {
			perf.Percentage = round2(revenue / totalRevenue * 100)
		}
		if perf.Conversions > 0 {
			perf.AvgRevenue = round2(revenue / float64(perf.Conversions))
		}
		channels = append(channels, perf)
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].Revenue != channels[j].Revenue {
			return channels[i].Revenue > channels[j].Revenue
		}
		return channels[i].Channel < channels[j].Channel
	})

	return &AttributionReport{
		Model:            model,
		TotalRevenue:     round2(totalRevenue),
		TotalConversions: len(conversions),
		Channels:         channels,
	}, nil
}

// ChannelROI derives spend-side economics for one channel using the
// linear model as the revenue baseline and the fixed per-channel unit
// cost table.
type ChannelROI struct {
	Channel     string  `json:"channel"`
	Revenue     float64 `json:"revenue"`
	Conversions int     `json:"conversions"`
	Cost        float64 `json:"cost"`
	Profit      float64 `json:"profit"`
	ROI         float64 `json:"roi"`
	CPA         float64 `json:"cpa"`
}

// BuildChannelROI computes per-channel cost, profit, ROI percentage
// and cost-per-acquisition, sorted descending by revenue.
func BuildChannelROI(conversions []Conversion) []ChannelROI {
	revenueByChannel := make(map[string]float64)
	conversionsByChannel := make(map[string]int)
	for _, conv := range conversions {
		for channel, credit := range conv.Attributions[ModelLinear] {
			revenueByChannel[channel] += credit
			conversionsByChannel[channel]++
		}
	}

	rois := make([]ChannelROI, 0, len(revenueByChannel))
	for channel, revenue := range revenueByChannel {
		count := conversionsByChannel[channel]
		cost := float64(count) * DefaultChannelCost[channel]
		roi := ChannelROI{
			Channel:     channel,
			Revenue:     round2(revenue),
			Conversions: count,
			Cost:        round2(cost),
			Profit:      round2(revenue - cost),
		}
		if cost > 0 {
			roi.ROI = round2((revenue - cost) / cost * 100)
		}
		if count > 0 {
			roi.CPA = round2(cost / float64(count))
		}
		rois = append(rois, roi)
	}
	sort.Slice(rois, func(i, j int) bool {
		if rois[i].Revenue != rois[j].Revenue {
			return rois[i].Revenue > rois[j].Revenue
		}
		return rois[i].Channel < rois[j].Channel
	})
	return rois
}

// BuildModelComparison lays all five models' channel totals side by
// side so divergence between models can be charted.
func BuildModelComparison(conversions []Conversion) map[string]map[string]float64 {
	comparison := make(map[string]map[string]float64, len(AttributionModels))
	for _, model := range AttributionModels {
		comparison[model] = make(map[string]float64)
	}
	for _, conv := range conversions {
		for model, channels := range conv.Attributions {
			if _, ok := comparison[model]; !ok {
				continue
			}
			for channel, credit := range channels {
				comparison[model][channel] += credit
			}
		}
	}
	for _, channels := range comparison {
		for channel, total := range channels {
			channels[channel] = round2(total)
		}
	}
	return comparison
}

// JourneyPath is a ranked group of identical channel paths that led to
// conversion.
type JourneyPath struct {
	Path            string  `json:"path"`
	Count           int     `json:"count"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgRevenue      float64 `json:"avg_revenue"`
	AvgDurationDays float64 `json:"avg_duration_days"`
}

// BuildJourneyPaths reconstructs, for each conversion, the ordered
// channel path of the contact's touchpoints up to the conversion
// moment, groups identical paths and ranks the most frequent. Paths
// are joined with " → ". touchpointsByContact must be ascending by
// occurrence time per contact.
func BuildJourneyPaths(conversions []Conversion, touchpointsByContact map[uint][]Touchpoint, limit int) []JourneyPath {
	type pathAgg struct {
		count    int
		revenue  float64
		duration float64 // days, summed
	}
	agg := make(map[string]*pathAgg)

	for _, conv := range conversions {
		var channels []string
		var firstTouch *Touchpoint
		for i, tp := range touchpointsByContact[conv.ContactID] {
			if tp.OccurredAt.After(conv.ConvertedAt) {
				break
			}
			if firstTouch == nil {
				firstTouch = &touchpointsByContact[conv.ContactID][i]
			}
			channels = append(channels, tp.Channel)
		}
		if len(channels) == 0 {
			continue
		}

		path := strings.Join(channels, " → ")
		a, ok := agg[path]
		if !ok {
			a = &pathAgg{}
			agg[path] = a
		}
		a.count++
		a.revenue += conv.Amount
		a.duration += conv.ConvertedAt.Sub(firstTouch.OccurredAt).Hours() / 24
	}

	paths := make([]JourneyPath, 0, len(agg))
	for path, a := range agg {
		paths = append(paths, JourneyPath{
			Path:            path,
			Count:           a.count,
			TotalRevenue:    round2(a.revenue),
			AvgRevenue:      round2(a.revenue / float64(a.count)),
			AvgDurationDays: round2(a.duration / float64(a.count)),
		})
	}
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Count != paths[j].Count {
			return paths[i].Count > paths[j].Count
		}
		return paths[i].Path < paths[j].Path
	})

	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}

// TrendPoint is one day of one channel's linear-model revenue.
type TrendPoint struct {
	Date        string  `json:"date"`
	Channel     string  `json:"channel"`
	Revenue     float64 `json:"revenue"`
	Conversions int     `json:"conversions"`
}

// BuildChannelTrends buckets linear-model revenue per day per channel,
// ascending by date, for time-series charting.
func BuildChannelTrends(conversions []Conversion) []TrendPoint {
	type key struct {
		date    string
		channel string
	}
	revenue := make(map[key]float64)
	counts := make(map[key]int)

	for _, conv := range conversions {
		date := conv.ConvertedAt.UTC().Format("2006-01-02")
		for channel, credit := range conv.Attributions[ModelLinear] {
			k := key{date: date, channel: channel}
			revenue[k] += credit
			counts[k]++
		}
	}

	points := make([]TrendPoint, 0, len(revenue))
	for k, rev := range revenue {
		points = append(points, TrendPoint{
			Date:        k.date,
			Channel:     k.channel,
			Revenue:     round2(rev),
			Conversions: counts[k],
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Channel < points[j].Channel
	})
	return points
}
