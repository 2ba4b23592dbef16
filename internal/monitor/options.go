package monitor

import (
	"log/slog"
	"time"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/service"
	"github.com/Veraticus/callguard/internal/simulate"
	"github.com/Veraticus/callguard/internal/source"
)

// Option configures a Controller.
type Option func(*Controller)

// WithSource sets the live signal source.
func WithSource(src source.Source) Option {
	return func(c *Controller) { c.source = src }
}

// WithClassifier enables remote classification of uploaded transcripts.
func WithClassifier(classifier service.Classifier) Option {
	return func(c *Controller) { c.classifier = classifier }
}

// WithTranscriber enables transcription of uploaded audio.
func WithTranscriber(t service.Transcriber) Option {
	return func(c *Controller) { c.transcriber = t }
}

// WithHistory sets where completed calls are recorded.
func WithHistory(sink service.HistorySink) Option {
	return func(c *Controller) { c.history = sink }
}

// WithSimulator sets the simulator used for uploads without a transcript.
func WithSimulator(s *simulate.Simulator) Option {
	return func(c *Controller) { c.simulator = s }
}

// WithGuidance sets the guidance generator.
func WithGuidance(g *guidance.Generator) Option {
	return func(c *Controller) { c.guidance = g }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLocale sets the default locale.
func WithLocale(locale string) Option {
	return func(c *Controller) { c.locale = locale }
}

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithUploadDelay sets the minimum latency of simulated upload analysis.
func WithUploadDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.uploadDelay = d
		}
	}
}

// WithUploadDuration sets the duration recorded for uploads that carry none.
func WithUploadDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.uploadDuration = d
		}
	}
}

// WithTicker replaces the interval ticker.
func WithTicker(f TickerFactory) Option {
	return func(c *Controller) { c.newTicker = f }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Ticker delivers interval ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker for an interval.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

func (r realTicker) C() <-chan time.Time { return r.t.C }

func (r realTicker) Stop() { r.t.Stop() }
