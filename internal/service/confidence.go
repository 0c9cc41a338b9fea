package service

import "github.com/deskmind/deskmind/internal/domain"

// ConfidenceThresholds holds the cosine-distance cut points for routing.
// High and Low are distances, so High < Low: a smaller distance means a
// closer match.
type ConfidenceThresholds struct {
	High float64
	Low  float64
}

// DefaultConfidenceThresholds returns the standard routing thresholds.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{High: 0.20, Low: 0.35}
}

// Assessment is the routing decision for one retrieval pass.
type Assessment struct {
	Level         domain.ConfidenceLevel
	TopDistance   float64
	MeanDistance  float64
	AttemptAnswer bool
}

// Classify routes a retrieval by its cosine distances, in any order.
// High confidence needs both a close top match and at least three
// retrieved entries; a distant top match deflects without attempting
// an answer. Everything in between answers with caveats.
func (t ConfidenceThresholds) Classify(distances []float64) Assessment {
	if len(distances) == 0 {
		return Assessment{
			Level:         domain.ConfidenceLow,
			TopDistance:   1.0,
			MeanDistance:  1.0,
			AttemptAnswer: false,
		}
	}

	// The closest match decides routing regardless of input order.
	top := distances[0]
	var sum float64
	for _, d := range distances {
		sum += d
		if d < top {
			top = d
		}
	}
	mean := sum / float64(len(distances))

	switch {
	case top <= t.High && len(distances) >= 3:
		return Assessment{
			Level:         domain.ConfidenceHigh,
			TopDistance:   top,
			MeanDistance:  mean,
			AttemptAnswer: true,
		}
	case top >= t.Low:
		return Assessment{
			Level:         domain.ConfidenceLow,
			TopDistance:   top,
			MeanDistance:  mean,
			AttemptAnswer: false,
		}
	default:
		return Assessment{
			Level:         domain.ConfidenceMedium,
			TopDistance:   top,
			MeanDistance:  mean,
			AttemptAnswer: true,
		}
	}
}
