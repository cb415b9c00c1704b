package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackConfidenceStrongCandidate(t *testing.T) {
	// Deep, well-placed candidate hits every top tier and clamps at 1.0.
	score := FallbackConfidence(3.5, 12000, 15, 2.5)
	assert.Equal(t, 1.0, score)
}

func TestFallbackConfidenceNoSignal(t *testing.T) {
	assert.Equal(t, 0.0, FallbackConfidence(0, 0, 0, 0))
}

func TestFallbackConfidenceDeterministic(t *testing.T) {
	first := FallbackConfidence(12.0, 800, 6.2, 3.1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FallbackConfidence(12.0, 800, 6.2, 3.1))
	}
}

func TestFallbackConfidenceBounded(t *testing.T) {
	cases := []struct{ period, depth, snr, duration float64 }{
		{0, 0, 0, 0},
		{1e9, 1e9, 1e9, 1e9},
		{-5, -20000, -3, -1},
		{2.5, 1500, 8, 4},
		{0.7, 300, 1.5, 0.5},
	}

	for _, c := range cases {
		score := FallbackConfidence(c.period, c.depth, c.snr, c.duration)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestFallbackConfidenceDepthTiers(t *testing.T) {
	// Depth alone, holding everything else outside its tiers.
	depths := []struct {
		depthPpm float64
		expected float64
	}{
		{10000, 0.40},
		{5000, 0.35},
		{2000, 0.30},
		{1000, 0.25},
		{500, 0.15},
		{200, 0.10},
		{199, 0.0},
	}

	for _, c := range depths {
		assert.Equal(t, c.expected, FallbackConfidence(0, c.depthPpm, 0, 0), "depth %v", c.depthPpm)
	}
}

func TestFallbackConfidenceNegativeDepthCountsAsMagnitude(t *testing.T) {
	assert.Equal(t,
		FallbackConfidence(3.5, 2500, 8, 3),
		FallbackConfidence(3.5, -2500, 8, 3))
}

func TestFallbackConfidenceMonotonicInDepth(t *testing.T) {
	previous := -1.0
	for _, depth := range []float64{0, 100, 250, 600, 1200, 2500, 6000, 15000} {
		score := FallbackConfidence(3.5, depth, 4, 3)
		assert.GreaterOrEqual(t, score, previous, "depth %v", depth)
		previous = score
	}
}

func TestFallbackConfidenceMonotonicInSNR(t *testing.T) {
	previous := -1.0
	for _, snr := range []float64{0, 0.5, 1.5, 4, 6, 8, 12} {
		score := FallbackConfidence(3.5, 1000, snr, 3)
		assert.GreaterOrEqual(t, score, previous, "snr %v", snr)
		previous = score
	}
}

func TestFallbackConfidencePeriodAndDurationBonuses(t *testing.T) {
	// Period inside [1, 50] earns both period bonuses.
	assert.Equal(t, 0.25, FallbackConfidence(10, 0, 0, 0))
	// Period inside [0.5, 300] but outside [1, 50] earns only the broad bonus.
	assert.Equal(t, 0.15, FallbackConfidence(200, 0, 0, 0))
	// Duration inside [1, 12] hours earns both duration bonuses.
	assert.Equal(t, 0.20, FallbackConfidence(0, 0, 0, 6))
	// Duration inside [0.1, 24] but outside [1, 12] earns only the broad bonus.
	assert.Equal(t, 0.15, FallbackConfidence(0, 0, 0, 20))
}
