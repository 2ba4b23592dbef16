// Package simulate manufactures plausible indicator detections when no
// transcript or acoustic signal is available.
package simulate

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/risk"
)

const (
	// detectionThreshold is exceeded by a uniform draw 30% of the time.
	detectionThreshold = 0.7
	minConfidence      = 0.5
)

// Rand is the random source the simulator draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Simulator produces randomized analysis results. It is safe for concurrent use.
type Simulator struct {
	rng      Rand
	guidance *guidance.Generator
	now      func() time.Time
	locale   string
	mu       sync.Mutex
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand replaces the random source.
func WithRand(r Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithLocale sets the guidance locale.
func WithLocale(locale string) Option {
	return func(s *Simulator) { s.locale = locale }
}

// New creates a simulator that draws guidance from gen.
func New(gen *guidance.Generator, opts ...Option) *Simulator {
	s := &Simulator{
		guidance: gen,
		locale:   guidance.DefaultLocale,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if s.guidance == nil {
		s.guidance = guidance.MustDefault()
	}
	return s
}

// Simulate draws a fresh detection set and bands it.
func (s *Simulator) Simulate() model.AnalysisResult {
	return s.SimulateFor(s.locale)
}

// SimulateFor is Simulate with guidance in locale. An empty locale uses the
// simulator's own.
func (s *Simulator) SimulateFor(locale string) model.AnalysisResult {
	if locale == "" {
		locale = s.locale
	}
	dets, quiet := s.draw()
	level, score := risk.Classify(dets, quiet)

	return model.AnalysisResult{
		RiskLevel:  level,
		RiskScore:  score,
		Indicators: dets,
		Guidance:   s.guidance.Guidance(level, locale),
		Timestamp:  s.now(),
		Source:     model.SourceSimulated,
	}
}

func (s *Simulator) draw() ([]model.IndicatorDetection, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dets := make([]model.IndicatorDetection, 0, model.CatalogSize)
	for _, def := range model.Catalog() {
		detected := s.rng.Float64() > detectionThreshold
		confidence := 0.0
		if detected {
			confidence = minConfidence + s.rng.Float64()*(1-minConfidence)
		}
		dets = append(dets, model.NewDetection(def, detected, confidence, ""))
	}
	return dets, s.rng.IntN(risk.QuietScoreLimit)
}
