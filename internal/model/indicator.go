// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"math"
	"strings"
)

// Severity is the fixed weight an indicator carries in risk banding.
type Severity string

// Severity constants.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IndicatorID identifies one of the recognized scam indicators.
type IndicatorID string

// Indicator identifiers, in catalog order.
const (
	IndicatorImpersonation IndicatorID = "impersonation"
	IndicatorUrgency       IndicatorID = "urgency"
	IndicatorEmotional     IndicatorID = "emotional"
	IndicatorAuthority     IndicatorID = "authority"
	IndicatorOTPRequest    IndicatorID = "otp_request"
	IndicatorMoneyRequest  IndicatorID = "money_request"
	IndicatorVoicePattern  IndicatorID = "voice_pattern"
)

// IndicatorDefinition is the static description of an indicator.
type IndicatorDefinition struct {
	ID       IndicatorID `json:"id"`
	Severity Severity    `json:"severity"`
}

// LabelKey returns the locale key of the indicator's display label.
func (d IndicatorDefinition) LabelKey() string {
	return "indicator." + string(d.ID)
}

// DescriptionKey returns the locale key of the indicator's description.
func (d IndicatorDefinition) DescriptionKey() string {
	return d.LabelKey() + ".desc"
}

var catalog = [...]IndicatorDefinition{
	{ID: IndicatorImpersonation, Severity: SeverityHigh},
	{ID: IndicatorUrgency, Severity: SeverityHigh},
	{ID: IndicatorEmotional, Severity: SeverityMedium},
	{ID: IndicatorAuthority, Severity: SeverityHigh},
	{ID: IndicatorOTPRequest, Severity: SeverityHigh},
	{ID: IndicatorMoneyRequest, Severity: SeverityHigh},
	{ID: IndicatorVoicePattern, Severity: SeverityMedium},
}

// CatalogSize is the number of recognized indicators.
const CatalogSize = len(catalog)

// Catalog returns the indicator definitions in their fixed order.
func Catalog() []IndicatorDefinition {
	out := make([]IndicatorDefinition, CatalogSize)
	copy(out, catalog[:])
	return out
}

// Lookup finds the definition for id.
func Lookup(id IndicatorID) (IndicatorDefinition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return IndicatorDefinition{}, false
}

// CatalogIndex returns the position of id in the catalog, or -1.
func CatalogIndex(id IndicatorID) int {
	for i, def := range catalog {
		if def.ID == id {
			return i
		}
	}
	return -1
}

// IndicatorDetection is the per-analysis observation of one indicator.
type IndicatorDetection struct {
	IndicatorDefinition
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence"`
	Detected   bool    `json:"detected"`
}

// NewDetection builds a detection, zeroing confidence when nothing was
// detected and clamping it into [0,1] otherwise.
func NewDetection(def IndicatorDefinition, detected bool, confidence float64, evidence string) IndicatorDetection {
	if !detected {
		confidence = 0
		evidence = ""
	}
	switch {
	case confidence < 0 || math.IsNaN(confidence):
		confidence = 0
	case confidence > 1:
		confidence = 1
	}

	return IndicatorDetection{
		IndicatorDefinition: def,
		Detected:            detected,
		Confidence:          confidence,
		Evidence:            strings.TrimSpace(evidence),
	}
}

// EmptyDetections returns one undetected entry per catalog indicator.
func EmptyDetections() []IndicatorDetection {
	out := make([]IndicatorDetection, CatalogSize)
	for i, def := range catalog {
		out[i] = NewDetection(def, false, 0, "")
	}
	return out
}

// ValidateDetections checks that dets covers the catalog exactly, in order,
// and that undetected entries carry zero confidence.
func ValidateDetections(dets []IndicatorDetection) error {
	if len(dets) != CatalogSize {
		return fmt.Errorf("expected %d indicators, got %d", CatalogSize, len(dets))
	}
	for i, det := range dets {
		if det.ID != catalog[i].ID {
			return fmt.Errorf("indicator %d: expected %q, got %q", i, catalog[i].ID, det.ID)
		}
		if det.Severity != catalog[i].Severity {
			return fmt.Errorf("indicator %q: severity %q does not match catalog", det.ID, det.Severity)
		}
		if !det.Detected && det.Confidence != 0 {
			return fmt.Errorf("indicator %q: undetected with confidence %v", det.ID, det.Confidence)
		}
		if det.Confidence < 0 || det.Confidence > 1 {
			return fmt.Errorf("indicator %q: confidence %v out of range", det.ID, det.Confidence)
		}
	}
	return nil
}
