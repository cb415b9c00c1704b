package core

// FallbackConfidence derives a bounded [0,1] detection confidence from raw
// transit parameters. It is used only when the engine's own score is missing
// or implausible (exactly 0, or above 1).
//
// The model is additive over four independently capped contributions so that
// no single noisy metric can dominate, with tiered thresholds instead of a
// single cliff. Deterministic and side-effect-free.
func FallbackConfidence(periodDays, depthPpm, snr, durationHours float64) float64 {
	score := depthContribution(depthPpm) +
		periodContribution(periodDays) +
		durationContribution(durationHours) +
		snrContribution(snr)

	if score > 1.0 {
		return 1.0
	}
	return score
}

// depthContribution tiers on absolute depth in parts-per-million, max 0.40.
func depthContribution(depthPpm float64) float64 {
	depth := depthPpm
	if depth < 0 {
		depth = -depth
	}

	switch {
	case depth >= 10000:
		return 0.40
	case depth >= 5000:
		return 0.35
	case depth >= 2000:
		return 0.30
	case depth >= 1000:
		return 0.25
	case depth >= 500:
		return 0.15
	case depth >= 200:
		return 0.10
	default:
		return 0
	}
}

// periodContribution rewards periods in the broad plausible range, with a
// bonus for the typical sub-range, max 0.25.
func periodContribution(periodDays float64) float64 {
	contribution := 0.0
	if periodDays >= 0.5 && periodDays <= 300 {
		contribution += 0.15
	}
	if periodDays >= 1 && periodDays <= 50 {
		contribution += 0.10
	}
	return contribution
}

// durationContribution mirrors periodContribution for transit duration in
// hours, max 0.20.
func durationContribution(durationHours float64) float64 {
	contribution := 0.0
	if durationHours >= 0.1 && durationHours <= 24 {
		contribution += 0.15
	}
	if durationHours >= 1 && durationHours <= 12 {
		contribution += 0.05
	}
	return contribution
}

// snrContribution tiers on signal-to-noise ratio, max 0.15.
func snrContribution(snr float64) float64 {
	switch {
	case snr > 10:
		return 0.15
	case snr > 7:
		return 0.12
	case snr > 5:
		return 0.10
	case snr > 3:
		return 0.08
	case snr > 1:
		return 0.05
	case snr > 0.1:
		return 0.02
	default:
		return 0
	}
}
