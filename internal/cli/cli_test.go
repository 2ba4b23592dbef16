package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func detections(ids ...model.IndicatorID) []model.IndicatorDetection {
	dets := model.EmptyDetections()
	for _, id := range ids {
		i := model.CatalogIndex(id)
		dets[i] = model.NewDetection(dets[i].IndicatorDefinition, true, 0.8, "share the OTP")
	}
	return dets
}

func TestRendererResult(t *testing.T) {
	r := NewRenderer(guidance.MustDefault(), "en")

	tests := []struct {
		name     string
		result   model.AnalysisResult
		expected []string
		absent   []string
	}{
		{
			name: "high risk",
			result: model.AnalysisResult{
				RiskLevel:  model.RiskHigh,
				RiskScore:  90,
				Source:     model.SourceRemote,
				Indicators: detections(model.IndicatorOTPRequest, model.IndicatorUrgency),
				Guidance:   []string{"Hang up immediately"},
			},
			expected: []string{"HIGH RISK", "90/100", "OTP Request", "Urgency Pressure", "80%", "Hang up immediately", `"share the OTP"`},
			absent:   []string{"offline estimate", "Caller Impersonation"},
		},
		{
			name: "fallback without detections",
			result: model.AnalysisResult{
				RiskLevel:  model.RiskMedium,
				RiskScore:  50,
				Source:     model.SourceFallback,
				Indicators: model.EmptyDetections(),
			},
			expected: []string{"MEDIUM RISK", "50/100", "offline estimate", "No risk indicators detected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Result(tt.result)
			for _, s := range tt.expected {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestRendererHistory(t *testing.T) {
	r := NewRenderer(nil, "en")

	assert.Contains(t, r.History(nil), "No calls analyzed yet")

	out := r.History([]model.CallRecord{
		{
			ID:              "a",
			StartedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			DurationSeconds: 95,
			RiskLevel:       model.RiskHigh,
			RiskScore:       80,
			Kind:            model.CallLive,
			Indicators:      detections(model.IndicatorMoneyRequest)[5:6],
		},
		{
			ID:              "b",
			StartedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			DurationSeconds: 60,
			RiskLevel:       model.RiskLow,
			Kind:            model.CallUpload,
		},
	})
	assert.Contains(t, out, "1:35")
	assert.Contains(t, out, "Money Request")
	assert.Contains(t, out, "upload")
	assert.Contains(t, out, "high 80")
}

func TestRendererTipsAndGuidance(t *testing.T) {
	r := NewRenderer(nil, "en")

	tips := r.Tips()
	assert.Contains(t, tips, "How to Stay Safe")
	assert.Contains(t, tips, "Emergency Contacts")
	assert.Contains(t, tips, "1930")

	g := r.Guidance(model.RiskLow)
	assert.Contains(t, g, "LOW RISK")
	assert.Contains(t, g, "Call appears safe")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		want    string
		seconds int
	}{
		{seconds: 0, want: "0:00"},
		{seconds: 59, want: "0:59"},
		{seconds: 60, want: "1:00"},
		{seconds: 3725, want: "62:05"},
		{seconds: -4, want: "0:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestRiskStyling(t *testing.T) {
	assert.Equal(t, ErrorColor, RiskColor(model.RiskHigh))
	assert.Equal(t, WarningColor, RiskColor(model.RiskMedium))
	assert.Equal(t, SuccessColor, RiskColor(model.RiskLow))
	assert.Equal(t, AlertIcon, RiskIcon(model.RiskHigh))
	assert.Equal(t, ShieldIcon, RiskIcon(model.RiskLow))
}

type lineCollector struct {
	lines []string
	mu    sync.Mutex
}

func (c *lineCollector) Append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func TestTranscriptReader(t *testing.T) {
	t.Run("pump until eof", func(t *testing.T) {
		tr := NewTranscriptReader(strings.NewReader("hello\n\n  this is your bank  \nshare the otp"))
		sink := &lineCollector{}

		require.NoError(t, tr.Pump(context.Background(), sink))
		assert.Equal(t, []string{"hello", "this is your bank", "share the otp"}, sink.lines)
	})

	t.Run("cancel while blocked", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer func() { _ = pw.Close() }()

		tr := NewTranscriptReader(pr)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := tr.ReadLine(ctx)
		assert.ErrorIs(t, err, ErrInputCancelled)
	})

	t.Run("read error", func(t *testing.T) {
		pr, pw := io.Pipe()
		boom := errors.New("device gone")
		require.NoError(t, pw.CloseWithError(boom))

		tr := NewTranscriptReader(pr)
		err := tr.Pump(context.Background(), &lineCollector{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestInterruptHandler(t *testing.T) {
	out := &syncBuffer{}
	h := NewInterruptHandler(out, "Saving the call to history")

	ctx := h.HandleInterrupts(context.Background())
	assert.False(t, h.WasInterrupted())

	h.interrupt()
	h.interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be canceled after interrupt")
	}

	assert.True(t, h.WasInterrupted())
	assert.Equal(t, 1, strings.Count(out.String(), "Interrupted"))
	assert.Contains(t, out.String(), "Saving the call to history")
}

func TestSpinner(t *testing.T) {
	out := &syncBuffer{}
	s := StartSpinner(out, "Analyzing call")
	time.Sleep(250 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Contains(t, out.String(), "Analyzing call")
}
