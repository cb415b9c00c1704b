package core

import (
	"math"

	"transit-backend/pkg/models"
)

// TransitWindows enumerates every transit interval of the detection that
// intersects [visibleStart, visibleEnd], with each interval clamped to the
// visible range. Transit n is centered at epoch + n*period and spans
// duration/2 on either side; period, epoch, and duration share the series
// time base (days).
//
// Degenerate inputs (non-positive or non-finite period/duration, non-finite
// epoch) yield an empty result, never an error or an unbounded loop.
func TransitWindows(det models.Detection, visibleStart, visibleEnd float64) []models.TransitWindow {
	windows := []models.TransitWindow{}

	if det.Period <= 0 || det.Duration <= 0 {
		return windows
	}
	if !isFinite(det.Period) || !isFinite(det.Epoch) || !isFinite(det.Duration) {
		return windows
	}
	if !isFinite(visibleStart) || !isFinite(visibleEnd) || visibleEnd < visibleStart {
		return windows
	}

	// The ±1 margin covers boundary transits that floor/ceil rounding would
	// otherwise miss.
	nMin := int(math.Floor((visibleStart-det.Epoch)/det.Period)) - 1
	nMax := int(math.Ceil((visibleEnd-det.Epoch)/det.Period)) + 1

	half := det.Duration / 2
	for n := nMin; n <= nMax; n++ {
		center := det.Epoch + float64(n)*det.Period
		start := center - half
		end := center + half

		if end < visibleStart || start > visibleEnd {
			continue
		}

		windows = append(windows, models.TransitWindow{
			Start: math.Max(start, visibleStart),
			End:   math.Min(end, visibleEnd),
		})
	}

	return windows
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
