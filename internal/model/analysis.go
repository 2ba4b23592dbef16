package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the coarse three-band classification of a call.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevels lists every level from least to most severe.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh}
}

// ParseRiskLevel parses a risk level name, ignoring case and surrounding space.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", s)
	}
}

// ResultSource records which path produced an analysis.
type ResultSource string

// Result sources.
const (
	SourceSimulated ResultSource = "simulated"
	SourceRemote    ResultSource = "remote"
	SourceFallback  ResultSource = "fallback"
)

// AnalysisResult is one complete evaluation of a call.
type AnalysisResult struct {
	Timestamp  time.Time            `json:"timestamp"`
	RiskLevel  RiskLevel            `json:"riskLevel"`
	Source     ResultSource         `json:"source"`
	Indicators []IndicatorDetection `json:"indicators"`
	Guidance   []string             `json:"guidance"`
	RiskScore  int                  `json:"riskScore"`
}

// DetectedIndicators returns the detected subset in catalog order.
func (r AnalysisResult) DetectedIndicators() []IndicatorDetection {
	out := make([]IndicatorDetection, 0, len(r.Indicators))
	for _, ind := range r.Indicators {
		if ind.Detected {
			out = append(out, ind)
		}
	}
	return out
}

// MarshalJSON adds the "type" field the wire format carries next to each id.
func (d IndicatorDetection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         IndicatorID `json:"id"`
		Type       IndicatorID `json:"type"`
		Severity   Severity    `json:"severity"`
		Detected   bool        `json:"detected"`
		Confidence float64     `json:"confidence"`
		Evidence   string      `json:"evidence,omitempty"`
	}{
		ID:         d.ID,
		Type:       d.ID,
		Severity:   d.Severity,
		Detected:   d.Detected,
		Confidence: d.Confidence,
		Evidence:   d.Evidence,
	})
}
