package simulate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/risk"
)

// scriptedRand replays fixed draws, cycling when exhausted.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)] % n
	r.ii++
	return v
}

func TestSimulateScripted(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name         string
		floats       []float64
		ints         []int
		wantLevel    model.RiskLevel
		wantScore    int
		wantDetected []model.IndicatorID
	}{
		{
			name:      "nothing crosses the threshold",
			floats:    []float64{0.1, 0.7, 0.2, 0.0, 0.69, 0.3, 0.5},
			ints:      []int{11},
			wantLevel: model.RiskLow,
			wantScore: 11,
		},
		{
			name: "otp and money request fire",
			// impersonation, urgency, emotional, authority, otp(+conf), money(+conf), voice
			floats:       []float64{0.1, 0.2, 0.3, 0.4, 0.9, 0.8, 0.95, 0.4, 0.5},
			wantLevel:    model.RiskHigh,
			wantScore:    90,
			wantDetected: []model.IndicatorID{model.IndicatorOTPRequest, model.IndicatorMoneyRequest},
		},
		{
			name:         "one medium keeps low band at 25",
			floats:       []float64{0.1, 0.2, 0.71, 0.0, 0.4, 0.3, 0.2, 0.1},
			wantLevel:    model.RiskLow,
			wantScore:    25,
			wantDetected: []model.IndicatorID{model.IndicatorEmotional},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := New(guidance.MustDefault(),
				WithRand(&scriptedRand{floats: tt.floats, ints: tt.ints}),
				WithClock(func() time.Time { return fixed }))

			res := sim.Simulate()
			assert.Equal(t, tt.wantLevel, res.RiskLevel)
			assert.Equal(t, tt.wantScore, res.RiskScore)
			assert.Equal(t, fixed, res.Timestamp)
			assert.Equal(t, model.SourceSimulated, res.Source)
			require.NoError(t, model.ValidateDetections(res.Indicators))

			var got []model.IndicatorID
			for _, d := range res.DetectedIndicators() {
				got = append(got, d.ID)
			}
			assert.Equal(t, tt.wantDetected, got)
		})
	}
}

func TestSimulateConfidenceRange(t *testing.T) {
	// Every indicator fires; confidence draws hit both ends of [0,1).
	sim := New(nil, WithRand(&scriptedRand{floats: []float64{0.99, 0.0, 0.75, 0.999999}}))
	res := sim.Simulate()

	for _, d := range res.Indicators {
		require.True(t, d.Detected)
		assert.GreaterOrEqual(t, d.Confidence, 0.5)
		assert.Less(t, d.Confidence, 1.0)
	}
}

func TestSimulateForLocale(t *testing.T) {
	gen := guidance.MustDefault()
	sim := New(gen, WithLocale("en"), WithRand(&scriptedRand{floats: []float64{0.1}}))

	tests := []struct {
		name   string
		locale string
		want   string
	}{
		{name: "requested locale", locale: "ta", want: "ta"},
		{name: "empty uses simulator locale", locale: "", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sim.SimulateFor(tt.locale)
			assert.Equal(t, gen.Guidance(res.RiskLevel, tt.want), res.Guidance)
		})
	}
}

func TestSimulateInvariantsHoldForRandomDraws(t *testing.T) {
	gen := guidance.MustDefault()
	sim := New(gen, WithLocale("hi"))

	for i := 0; i < 500; i++ {
		res := sim.Simulate()

		require.NoError(t, model.ValidateDetections(res.Indicators))
		assert.True(t, risk.Consistent(res.RiskLevel, res.RiskScore), "%s/%d", res.RiskLevel, res.RiskScore)
		assert.Equal(t, gen.Guidance(res.RiskLevel, "hi"), res.Guidance)
		for _, d := range res.Indicators {
			if d.Detected {
				assert.GreaterOrEqual(t, d.Confidence, 0.5)
				assert.Less(t, d.Confidence, 1.0)
			} else {
				assert.Zero(t, d.Confidence)
			}
		}
		if len(res.DetectedIndicators()) == 0 {
			assert.Less(t, res.RiskScore, 15)
		}
	}
}

func TestSimulateConcurrent(t *testing.T) {
	sim := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res := sim.Simulate()
				assert.Len(t, res.Indicators, model.CatalogSize)
			}
		}()
	}
	wg.Wait()
}
