package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogOrderAndSeverity(t *testing.T) {
	want := []IndicatorDefinition{
		{ID: IndicatorImpersonation, Severity: SeverityHigh},
		{ID: IndicatorUrgency, Severity: SeverityHigh},
		{ID: IndicatorEmotional, Severity: SeverityMedium},
		{ID: IndicatorAuthority, Severity: SeverityHigh},
		{ID: IndicatorOTPRequest, Severity: SeverityHigh},
		{ID: IndicatorMoneyRequest, Severity: SeverityHigh},
		{ID: IndicatorVoicePattern, Severity: SeverityMedium},
	}
	assert.Equal(t, want, Catalog())
	assert.Equal(t, 7, CatalogSize)
}

func TestCatalogReturnsCopy(t *testing.T) {
	c := Catalog()
	c[0].Severity = SeverityLow

	def, ok := Lookup(IndicatorImpersonation)
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, def.Severity)
}

func TestLookup(t *testing.T) {
	def, ok := Lookup(IndicatorOTPRequest)
	require.True(t, ok)
	assert.Equal(t, "indicator.otp_request", def.LabelKey())
	assert.Equal(t, "indicator.otp_request.desc", def.DescriptionKey())

	_, ok = Lookup("caller_id_spoof")
	assert.False(t, ok)
	assert.Equal(t, -1, CatalogIndex("caller_id_spoof"))
	assert.Equal(t, 6, CatalogIndex(IndicatorVoicePattern))
}

func TestNewDetection(t *testing.T) {
	def, _ := Lookup(IndicatorUrgency)

	tests := []struct {
		name       string
		detected   bool
		confidence float64
		evidence   string
		wantConf   float64
		wantEvid   string
	}{
		{name: "undetected zeroes confidence", detected: false, confidence: 0.7, evidence: "act now", wantConf: 0},
		{name: "detected keeps confidence", detected: true, confidence: 0.7, evidence: " act now ", wantConf: 0.7, wantEvid: "act now"},
		{name: "confidence above one is clamped", detected: true, confidence: 3, wantConf: 1},
		{name: "negative confidence is clamped", detected: true, confidence: -0.2, wantConf: 0},
		{name: "NaN confidence becomes zero", detected: true, confidence: math.NaN(), wantConf: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetection(def, tt.detected, tt.confidence, tt.evidence)
			assert.Equal(t, tt.detected, d.Detected)
			assert.InDelta(t, tt.wantConf, d.Confidence, 1e-9)
			assert.Equal(t, tt.wantEvid, d.Evidence)
		})
	}
}

func TestEmptyDetectionsValidate(t *testing.T) {
	dets := EmptyDetections()
	require.NoError(t, ValidateDetections(dets))
	for _, d := range dets {
		assert.False(t, d.Detected)
		assert.Zero(t, d.Confidence)
	}
}

func TestValidateDetections(t *testing.T) {
	t.Run("wrong length", func(t *testing.T) {
		assert.Error(t, ValidateDetections(EmptyDetections()[:6]))
	})

	t.Run("wrong order", func(t *testing.T) {
		dets := EmptyDetections()
		dets[0], dets[1] = dets[1], dets[0]
		assert.Error(t, ValidateDetections(dets))
	})

	t.Run("undetected with confidence", func(t *testing.T) {
		dets := EmptyDetections()
		dets[2].Confidence = 0.4
		assert.Error(t, ValidateDetections(dets))
	})
}

func TestIndicatorDetectionJSON(t *testing.T) {
	def, _ := Lookup(IndicatorMoneyRequest)
	data, err := json.Marshal(NewDetection(def, true, 0.8, "send a gift card"))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "money_request", wire["id"])
	assert.Equal(t, "money_request", wire["type"])
	assert.Equal(t, "high", wire["severity"])
	assert.Equal(t, true, wire["detected"])
	assert.Equal(t, "send a gift card", wire["evidence"])
}

func TestNewCallRecordKeepsDetectedOnly(t *testing.T) {
	dets := EmptyDetections()
	dets[4] = NewDetection(dets[4].IndicatorDefinition, true, 0.9, "")
	result := AnalysisResult{
		RiskLevel:  RiskMedium,
		RiskScore:  55,
		Indicators: dets,
		Guidance:   []string{"careful"},
	}
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := NewCallRecord(started, 42*time.Second+900*time.Millisecond, result, CallLive)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, started, rec.StartedAt)
	assert.Equal(t, 42, rec.DurationSeconds)
	assert.Equal(t, RiskMedium, rec.RiskLevel)
	assert.Equal(t, 55, rec.RiskScore)
	require.Len(t, rec.Indicators, 1)
	assert.Equal(t, IndicatorOTPRequest, rec.Indicators[0].ID)

	other := NewCallRecord(started, -time.Second, result, CallUpload)
	assert.Zero(t, other.DurationSeconds)
	assert.NotEqual(t, rec.ID, other.ID)
}

func TestParseRiskLevel(t *testing.T) {
	level, err := ParseRiskLevel(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, level)

	_, err = ParseRiskLevel("severe")
	assert.Error(t, err)
}
