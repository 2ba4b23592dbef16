package model

import (
	"time"

	"github.com/google/uuid"
)

// CallKind distinguishes live monitoring sessions from uploaded recordings.
type CallKind string

// Call kinds.
const (
	CallLive   CallKind = "live"
	CallUpload CallKind = "upload"
)

// CallRecord summarizes one completed call. Records are immutable once built.
type CallRecord struct {
	StartedAt       time.Time            `json:"startedAt"`
	ID              string               `json:"id"`
	RiskLevel       RiskLevel            `json:"riskLevel"`
	Kind            CallKind             `json:"kind"`
	Indicators      []IndicatorDetection `json:"indicators"`
	DurationSeconds int                  `json:"durationSeconds"`
	RiskScore       int                  `json:"riskScore"`
}

// NewCallRecord builds a record from the final analysis of a call. Only the
// detected indicators are kept.
func NewCallRecord(startedAt time.Time, duration time.Duration, result AnalysisResult, kind CallKind) CallRecord {
	seconds := int(duration / time.Second)
	if seconds < 0 {
		seconds = 0
	}

	return CallRecord{
		ID:              uuid.NewString(),
		StartedAt:       startedAt,
		DurationSeconds: seconds,
		RiskLevel:       result.RiskLevel,
		RiskScore:       result.RiskScore,
		Indicators:      result.DetectedIndicators(),
		Kind:            kind,
	}
}
