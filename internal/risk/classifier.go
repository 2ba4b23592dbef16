// Package risk maps indicator detections onto a risk level and score.
package risk

import "github.com/Veraticus/callguard/internal/model"

// AuthoritativeZero is the quiet score for a zero-detection result that
// came from a real classifier rather than a simulation.
const AuthoritativeZero = 0

// QuietScoreLimit bounds the score of a result with nothing detected.
const QuietScoreLimit = 15

const (
	mediumFloor = 40
	highFloor   = 80
)

// Classify bands detections into a level and an integer score in [0,100].
// quietScore is used only when nothing was detected and is clamped into
// [0, QuietScoreLimit).
func Classify(detections []model.IndicatorDetection, quietScore int) (model.RiskLevel, int) {
	var high, medium int
	for _, d := range detections {
		if !d.Detected {
			continue
		}
		switch d.Severity {
		case model.SeverityHigh:
			high++
		case model.SeverityMedium:
			medium++
		}
	}

	switch {
	case high >= 2:
		return model.RiskHigh, clamp(70+min(high*10, 30), 0, 100)
	case high == 1 || medium >= 2:
		return model.RiskMedium, clamp(40+high*15+medium*10, 0, 100)
	case medium == 1:
		return model.RiskLow, clamp(15+medium*10, 0, 100)
	default:
		return model.RiskLow, clamp(quietScore, 0, QuietScoreLimit-1)
	}
}

// BandFor returns the level a score belongs to.
func BandFor(score int) model.RiskLevel {
	switch {
	case score >= highFloor:
		return model.RiskHigh
	case score >= mediumFloor:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// Consistent reports whether level and score agree with the banding.
func Consistent(level model.RiskLevel, score int) bool {
	return score >= 0 && score <= 100 && BandFor(score) == level
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
