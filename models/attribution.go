package models

import "math"

// Attribution model names. Closed set; reporting rejects anything else.
const (
	ModelFirstTouch    = "first_touch"
	ModelLastTouch     = "last_touch"
	ModelLinear        = "linear"
	ModelTimeDecay     = "time_decay"
	ModelPositionBased = "position_based"
)

// AttributionModels lists the supported models in a stable order.
var AttributionModels = []string{
	ModelFirstTouch,
	ModelLastTouch,
	ModelLinear,
	ModelTimeDecay,
	ModelPositionBased,
}

// IsValidModel reports whether name is a supported attribution model.
func IsValidModel(name string) bool {
	for _, m := range AttributionModels {
		if m == name {
			return true
		}
	}
	return false
}

// timeDecayBase halves each step back from the most recent touchpoint.
const timeDecayBase = 0.5

// CalculateAttributions splits revenue across the channels of the given
// touchpoints under all five models. Touchpoints must be non-empty and
// sorted ascending by occurrence time; both are the caller's
// responsibility. Each returned channel map sums to revenue modulo
// floating-point rounding.
func CalculateAttributions(touchpoints []Touchpoint, revenue float64) map[string]map[string]float64 {
	return map[string]map[string]float64{
		ModelFirstTouch:    firstTouchCredit(touchpoints, revenue),
		ModelLastTouch:     lastTouchCredit(touchpoints, revenue),
		ModelLinear:        linearCredit(touchpoints, revenue),
		ModelTimeDecay:     timeDecayCredit(touchpoints, revenue),
		ModelPositionBased: positionBasedCredit(touchpoints, revenue),
	}
}

func firstTouchCredit(tps []Touchpoint, revenue float64) map[string]float64 {
	return map[string]float64{tps[0].Channel: revenue}
}

func lastTouchCredit(tps []Touchpoint, revenue float64) map[string]float64 {
	return map[string]float64{tps[len(tps)-1].Channel: revenue}
}

func linearCredit(tps []Touchpoint, revenue float64) map[string]float64 {
	credit := make(map[string]float64)
	share := revenue / float64(len(tps))
	for _, tp := range tps {
		credit[tp.Channel] += share
	}
	return credit
}

// timeDecayCredit weights touchpoint i as 0.5^(n-1-i): the most recent
// touch carries weight 1, each earlier one half of the next. Weights
// are normalized to sum to 1 before multiplying by revenue.
func timeDecayCredit(tps []Touchpoint, revenue float64) map[string]float64 {
	n := len(tps)
	weights := make([]float64, n)
	var total float64
	for i := range tps {
		w := math.Pow(timeDecayBase, float64(n-1-i))
		weights[i] = w
		total += w
	}

	credit := make(map[string]float64)
	for i, tp := range tps {
		credit[tp.Channel] += revenue * weights[i] / total
	}
	return credit
}

// positionBasedCredit is the edge-weighted U-shape: 40% first, 40%
// last, 20% spread evenly across the middle. Degenerates to 100% for a
// single touch and 50/50 for two.
func positionBasedCredit(tps []Touchpoint, revenue float64) map[string]float64 {
	credit := make(map[string]float64)
	n := len(tps)

	switch n {
	case 1:
		credit[tps[0].Channel] = revenue
	case 2:
		credit[tps[0].Channel] += revenue * 0.5
		credit[tps[1].Channel] += revenue * 0.5
	default:
		credit[tps[0].Channel] += revenue * 0.4
		credit[tps[n-1].Channel] += revenue * 0.4
		middleShare := revenue * 0.2 / float64(n-2)
		for _, tp := range tps[1 : n-1] {
			credit[tp.Channel] += middleShare
		}
	}
	return credit
}
