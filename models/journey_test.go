package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStage(t *testing.T) {
	for _, stage := range Stages {
		assert.True(t, IsValidStage(stage))
	}
	assert.False(t, IsValidStage(StageNone), "the sentinel is not enterable")
	assert.False(t, IsValidStage("churned"))
	assert.False(t, IsValidStage(""))
}

func TestNextStage(t *testing.T) {
	assert.Equal(t, StageConsideration, NextStage(StageAwareness))
	assert.Equal(t, StageDecision, NextStage(StageConsideration))
	assert.Equal(t, StageRetention, NextStage(StageDecision))
	assert.Equal(t, StageAdvocacy, NextStage(StageRetention))
	assert.Empty(t, NextStage(StageAdvocacy))
	assert.Empty(t, NextStage("churned"))
}

func TestIsForwardTransition(t *testing.T) {
	assert.True(t, IsForwardTransition(StageNone, StageAwareness))
	assert.True(t, IsForwardTransition(StageAwareness, StageConsideration))
	assert.True(t, IsForwardTransition(StageAwareness, StageAdvocacy), "skips count as forward")
	assert.False(t, IsForwardTransition(StageConsideration, StageAwareness))
	assert.False(t, IsForwardTransition(StageDecision, StageDecision))
}

func TestEligibleForAdvancement(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-8 * 24 * time.Hour)

	assert.True(t, EligibleForAdvancement(StageAwareness, recent, now))
	assert.True(t, EligibleForAdvancement(StageConsideration, recent, now))

	assert.False(t, EligibleForAdvancement(StageAwareness, stale, now), "engagement outside the 7-day window")
	assert.False(t, EligibleForAdvancement(StageDecision, recent, now), "later stages never auto-advance")
	assert.False(t, EligibleForAdvancement(StageRetention, recent, now))
	assert.False(t, EligibleForAdvancement(StageAdvocacy, recent, now))

	boundary := now.Add(-7 * 24 * time.Hour)
	assert.False(t, EligibleForAdvancement(StageAwareness, boundary, now), "window is exclusive at exactly 7 days")
}
