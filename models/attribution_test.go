package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchpointsFor(channels ...string) []Touchpoint {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	tps := make([]Touchpoint, len(channels))
	for i, ch := range channels {
		tps[i] = Touchpoint{
			Channel:    ch,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return tps
}

func sumCredits(credits map[string]float64) float64 {
	var total float64
	for _, v := range credits {
		total += v
	}
	return total
}

func TestCalculateAttributions_SumsToRevenue(t *testing.T) {
	sequences := [][]string{
		{ChannelEmail},
		{ChannelEmail, ChannelSocial},
		{ChannelEmail, ChannelSocial, ChannelPaid},
		{ChannelDirect, ChannelDirect, ChannelOrganic, ChannelPaid, ChannelEmail},
		{ChannelReferral, ChannelReferral, ChannelReferral, ChannelReferral, ChannelReferral, ChannelReferral, ChannelReferral},
	}

	for _, channels := range sequences {
		attributions := CalculateAttributions(touchpointsFor(channels...), 1234.56)
		require.Len(t, attributions, 5)
		for _, model := range AttributionModels {
			credits, ok := attributions[model]
			require.True(t, ok, "model %s missing for %v", model, channels)
			assert.InDelta(t, 1234.56, sumCredits(credits), 1e-9,
				"model %s does not sum to revenue for %v", model, channels)
		}
	}
}

func TestCalculateAttributions_SingleTouchpointDegeneracy(t *testing.T) {
	attributions := CalculateAttributions(touchpointsFor(ChannelSocial), 500)

	for _, model := range AttributionModels {
		credits := attributions[model]
		require.Len(t, credits, 1, "model %s", model)
		assert.InDelta(t, 500, credits[ChannelSocial], 1e-9, "model %s", model)
	}
}

func TestFirstAndLastTouch(t *testing.T) {
	attributions := CalculateAttributions(touchpointsFor(ChannelEmail, ChannelSocial, ChannelPaid), 300)

	assert.Equal(t, map[string]float64{ChannelEmail: 300}, attributions[ModelFirstTouch])
	assert.Equal(t, map[string]float64{ChannelPaid: 300}, attributions[ModelLastTouch])
}

func TestLinear_AccumulatesDuplicateChannels(t *testing.T) {
	credits := CalculateAttributions(touchpointsFor(ChannelEmail, ChannelEmail, ChannelPaid, ChannelEmail), 400)[ModelLinear]

	assert.InDelta(t, 300, credits[ChannelEmail], 1e-9)
	assert.InDelta(t, 100, credits[ChannelPaid], 1e-9)
}

func TestPositionBased_Boundaries(t *testing.T) {
	t.Run("two touchpoints split 50/50", func(t *testing.T) {
		credits := CalculateAttributions(touchpointsFor(ChannelEmail, ChannelPaid), 100)[ModelPositionBased]
		assert.InDelta(t, 50, credits[ChannelEmail], 1e-9)
		assert.InDelta(t, 50, credits[ChannelPaid], 1e-9)
	})

	t.Run("three touchpoints are 40/20/40", func(t *testing.T) {
		credits := CalculateAttributions(touchpointsFor(ChannelEmail, ChannelSocial, ChannelPaid), 100)[ModelPositionBased]
		assert.InDelta(t, 40, credits[ChannelEmail], 1e-9)
		assert.InDelta(t, 20, credits[ChannelSocial], 1e-9)
		assert.InDelta(t, 40, credits[ChannelPaid], 1e-9)
	})

	t.Run("five touchpoints split middle 20% three ways", func(t *testing.T) {
		credits := CalculateAttributions(
			touchpointsFor(ChannelEmail, ChannelSocial, ChannelOrganic, ChannelReferral, ChannelPaid), 300,
		)[ModelPositionBased]
		assert.InDelta(t, 120, credits[ChannelEmail], 1e-9)
		assert.InDelta(t, 120, credits[ChannelPaid], 1e-9)
		assert.InDelta(t, 20, credits[ChannelSocial], 1e-9)
		assert.InDelta(t, 20, credits[ChannelOrganic], 1e-9)
		assert.InDelta(t, 20, credits[ChannelReferral], 1e-9)
	})

	t.Run("duplicate edge channel accumulates", func(t *testing.T) {
		credits := CalculateAttributions(touchpointsFor(ChannelEmail, ChannelSocial, ChannelEmail), 100)[ModelPositionBased]
		assert.InDelta(t, 80, credits[ChannelEmail], 1e-9)
		assert.InDelta(t, 20, credits[ChannelSocial], 1e-9)
	})
}

func TestTimeDecay_MostRecentWeighsMost(t *testing.T) {
	credits := CalculateAttributions(
		touchpointsFor(ChannelEmail, ChannelSocial, ChannelOrganic, ChannelPaid), 1000,
	)[ModelTimeDecay]

	// One touchpoint per channel: credit order must follow recency.
	assert.Greater(t, credits[ChannelPaid], credits[ChannelOrganic])
	assert.Greater(t, credits[ChannelOrganic], credits[ChannelSocial])
	assert.Greater(t, credits[ChannelSocial], credits[ChannelEmail])

	// Each step back halves the weight.
	assert.InDelta(t, credits[ChannelPaid]/2, credits[ChannelOrganic], 1e-9)
	assert.InDelta(t, credits[ChannelOrganic]/2, credits[ChannelSocial], 1e-9)
}

func TestCalculateAttributions_EndToEndScenario(t *testing.T) {
	// email@t0, social@t1, paid@t2, converting for $300.
	attributions := CalculateAttributions(touchpointsFor(ChannelEmail, ChannelSocial, ChannelPaid), 300)

	assert.InDelta(t, 300, attributions[ModelFirstTouch][ChannelEmail], 1e-9)
	assert.InDelta(t, 300, attributions[ModelLastTouch][ChannelPaid], 1e-9)

	assert.InDelta(t, 100, attributions[ModelLinear][ChannelEmail], 1e-9)
	assert.InDelta(t, 100, attributions[ModelLinear][ChannelSocial], 1e-9)
	assert.InDelta(t, 100, attributions[ModelLinear][ChannelPaid], 1e-9)

	assert.InDelta(t, 120, attributions[ModelPositionBased][ChannelEmail], 1e-9)
	assert.InDelta(t, 60, attributions[ModelPositionBased][ChannelSocial], 1e-9)
	assert.InDelta(t, 120, attributions[ModelPositionBased][ChannelPaid], 1e-9)

	// Weights 0.25, 0.5, 1.0 normalized over 1.75.
	assert.InDelta(t, 300*0.25/1.75, attributions[ModelTimeDecay][ChannelEmail], 1e-9)
	assert.InDelta(t, 300*0.5/1.75, attributions[ModelTimeDecay][ChannelSocial], 1e-9)
	assert.InDelta(t, 300*1.0/1.75, attributions[ModelTimeDecay][ChannelPaid], 1e-9)
}

func TestIsValidModel(t *testing.T) {
	for _, model := range AttributionModels {
		assert.True(t, IsValidModel(model))
	}
	assert.False(t, IsValidModel("markov_chain"))
	assert.False(t, IsValidModel(""))
}

func TestIsValidChannel(t *testing.T) {
	for _, ch := range Channels {
		assert.True(t, IsValidChannel(ch))
	}
	assert.False(t, IsValidChannel("billboard"))
	assert.False(t, IsValidChannel(""))
}
