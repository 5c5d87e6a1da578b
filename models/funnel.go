package models

import (
	"fmt"
	"sort"
)

// FunnelStage is one row of the conversion funnel.
type FunnelStage struct {
	Stage          string  `json:"stage"`
	Count          int     `json:"count"`
	DropOff        int     `json:"drop_off"`
	ConversionRate float64 `json:"conversion_rate"`
}

// BuildConversionFunnel counts, per stage in canonical order, the
// distinct contacts that entered the stage among the given
// transitions. Drop-off is the previous stage's count minus this
// one's; conversion rate is count/previous*100 (100 for the first
// stage by definition).
func BuildConversionFunnel(transitions []JourneyTransition) []FunnelStage {
	entered := make(map[string]map[uint]struct{})
	for _, t := range transitions {
		if entered[t.ToStage] == nil {
			entered[t.ToStage] = make(map[uint]struct{})
		}
		entered[t.ToStage][t.ContactID] = struct{}{}
	}

	funnel := make([]FunnelStage, 0, len(Stages))
	prevCount := 0
	for i, stage := range Stages {
		count := len(entered[stage])
		fs := FunnelStage{Stage: stage, Count: count}
		if i == 0 {
			fs.ConversionRate = 100
		} else {
			fs.DropOff = prevCount - count
			if prevCount > 0 {
				fs.ConversionRate = round2(float64(count) / float64(prevCount) * 100)
			}
		}
		funnel = append(funnel, fs)
		prevCount = count
	}
	return funnel
}

// Bottleneck flags a stage-to-stage transition with an abnormally low
// forward-conversion rate over a minimum sample size.
type Bottleneck struct {
	Transition     string  `json:"transition"`
	FromStage      string  `json:"from_stage"`
	ToStage        string  `json:"to_stage"`
	Attempts       int     `json:"attempts"`
	Successful     int     `json:"successful"`
	ConversionRate float64 `json:"conversion_rate"`
}

// DropoffAnalysis summarizes every observed transition pair plus the
// pairs flagged as bottlenecks, worst first.
type DropoffAnalysis struct {
	Transitions []Bottleneck `json:"transitions"`
	Bottlenecks []Bottleneck `json:"bottlenecks"`
}

const (
	bottleneckRateThreshold   = 50.0
	bottleneckMinimumAttempts = 5
)

// BuildDropoffAnalysis groups transitions by from_to pair and scores
// each pair by how often it moves forward in canonical stage order.
// Any forward movement counts as success, stage skips included. Pairs
// under a 50 percent rate with at least 5 attempts are bottlenecks,
// sorted ascending by rate.
func BuildDropoffAnalysis(transitions []JourneyTransition) DropoffAnalysis {
	type pairAgg struct {
		from, to   string
		attempts   int
		successful int
	}
	pairs := make(map[string]*pairAgg)

	for _, t := range transitions {
		key := fmt.Sprintf("%s_to_%s", t.FromStage, t.ToStage)
		p, ok := pairs[key]
		if !ok {
			p = &pairAgg{from: t.FromStage, to: t.ToStage}
			pairs[key] = p
		}
		p.attempts++
		if IsForwardTransition(t.FromStage, t.ToStage) {
			p.successful++
		}
	}

	analysis := DropoffAnalysis{Transitions: []Bottleneck{}, Bottlenecks: []Bottleneck{}}
	for key, p := range pairs {
		rate := round2(float64(p.successful) / float64(p.attempts) * 100)
		b := Bottleneck{
			Transition:     key,
			FromStage:      p.from,
			ToStage:        p.to,
			Attempts:       p.attempts,
			Successful:     p.successful,
			ConversionRate: rate,
		}
		analysis.Transitions = append(analysis.Transitions, b)
		if rate < bottleneckRateThreshold && p.attempts >= bottleneckMinimumAttempts {
			analysis.Bottlenecks = append(analysis.Bottlenecks, b)
		}
	}

	byRate := func(s []Bottleneck) {
		sort.Slice(s, func(i, j int) bool {
			if s[i].ConversionRate != s[j].ConversionRate {
				return s[i].ConversionRate < s[j].ConversionRate
			}
			return s[i].Transition < s[j].Transition
		})
	}
	byRate(analysis.Transitions)
	byRate(analysis.Bottlenecks)
	return analysis
}

// Suggestion is one rule-based optimization hint.
type Suggestion struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// BuildOptimizationSuggestions runs independent heuristics over the
// current stage headcounts and recent channel diversity. Rules emit in
// a fixed order; each fires on its own, none depends on another.
func BuildOptimizationSuggestions(stageCounts map[string]int, distinctChannels int) []Suggestion {
	suggestions := []Suggestion{}

	awareness := stageCounts[StageAwareness]
	consideration := stageCounts[StageConsideration]
	decision := stageCounts[StageDecision]
	retention := stageCounts[StageRetention]
	advocacy := stageCounts[StageAdvocacy]

	if awareness > 0 && float64(consideration)/float64(awareness) < 0.3 {
		suggestions = append(suggestions, Suggestion{
			Type:     "low_consideration_rate",
			Severity: "warning",
			Message:  "Less than 30% of awareness-stage contacts reach consideration. Consider nurture campaigns targeting new contacts.",
		})
	}
	if consideration > 0 && float64(decision)/float64(consideration) < 0.4 {
		suggestions = append(suggestions, Suggestion{
			Type:     "low_decision_rate",
			Severity: "warning",
			Message:  "Less than 40% of consideration-stage contacts reach decision. Review mid-funnel content and follow-up timing.",
		})
	}
	if decision > 0 && float64(retention)/float64(decision) < 0.6 {
		suggestions = append(suggestions, Suggestion{
			Type:     "low_retention_rate",
			Severity: "warning",
			Message:  "Less than 60% of decision-stage contacts are retained. Strengthen onboarding and post-purchase engagement.",
		})
	}
	if retention > 0 && float64(advocacy)/float64(retention) > 0.2 {
		suggestions = append(suggestions, Suggestion{
			Type:     "strong_advocacy",
			Severity: "positive",
			Message:  "More than 20% of retained contacts become advocates. Consider a referral program to capitalize on this.",
		})
	}
	if distinctChannels < 3 {
		suggestions = append(suggestions, Suggestion{
			Type:     "low_channel_diversity",
			Severity: "warning",
			Message:  fmt.Sprintf("Only %d distinct channels were active in the last 30 days. Diversifying channels reduces acquisition risk.", distinctChannels),
		})
	}

	return suggestions
}
