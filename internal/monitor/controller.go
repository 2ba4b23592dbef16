// Package monitor owns the lifecycle of a call analysis session: live
// monitoring on a fixed interval and one-shot analysis of uploaded calls.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/llm"
	"github.com/Veraticus/callguard/internal/metrics"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/service"
	"github.com/Veraticus/callguard/internal/simulate"
	"github.com/Veraticus/callguard/internal/source"
)

// Controller state errors.
var (
	ErrAlreadyMonitoring = errors.New("already monitoring")
	ErrNotMonitoring     = errors.New("not monitoring")
)

// Defaults for the controller timings.
const (
	DefaultInterval       = 3 * time.Second
	DefaultUploadDelay    = 2 * time.Second
	DefaultUploadDuration = 60 * time.Second
)

// State is the controller's lifecycle state.
type State int

// Controller states.
const (
	StateIdle State = iota
	StateMonitoring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

// Upload is one recorded call submitted for analysis. At least one of
// Transcript and Audio must be set.
type Upload struct {
	Transcript string
	Locale     string
	Audio      []byte
	Duration   time.Duration
}

// Controller runs monitoring sessions. All methods are safe for concurrent use.
type Controller struct {
	startedAt      time.Time
	source         source.Source
	classifier     service.Classifier
	transcriber    service.Transcriber
	history        service.HistorySink
	simulator      *simulate.Simulator
	guidance       *guidance.Generator
	logger         *slog.Logger
	newTicker      TickerFactory
	now            func() time.Time
	cancel         context.CancelFunc
	done           chan struct{}
	subscribers    map[int]chan model.AnalysisResult
	current        atomic.Pointer[model.AnalysisResult]
	locale         string
	interval       time.Duration
	uploadDelay    time.Duration
	uploadDuration time.Duration
	generation     uint64
	nextSub        int
	state          State
	mu             sync.Mutex
}

// New creates an idle controller. Without WithSource it monitors with the
// local simulator.
func New(opts ...Option) *Controller {
	c := &Controller{
		interval:       DefaultInterval,
		uploadDelay:    DefaultUploadDelay,
		uploadDuration: DefaultUploadDuration,
		newTicker:      newRealTicker,
		now:            time.Now,
		logger:         slog.Default(),
		subscribers:    make(map[int]chan model.AnalysisResult),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.guidance == nil {
		c.guidance = guidance.MustDefault()
	}
	if c.simulator == nil {
		c.simulator = simulate.New(c.guidance, simulate.WithLocale(c.locale), simulate.WithClock(c.now))
	}
	if c.source == nil {
		c.source = source.Simulated{Simulator: c.simulator}
	}
	return c
}

// Start begins a monitoring session and returns its first result.
func (c *Controller) Start(ctx context.Context) (model.AnalysisResult, error) {
	c.mu.Lock()
	if c.state == StateMonitoring {
		c.mu.Unlock()
		return model.AnalysisResult{}, ErrAlreadyMonitoring
	}

	c.generation++
	gen := c.generation
	c.state = StateMonitoring
	c.startedAt = c.now()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	first := make(chan model.AnalysisResult, 1)
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	metrics.MonitorActive.Set(1)
	c.logger.Info("monitoring started", "generation", gen, "interval", c.interval)

	go c.run(loopCtx, gen, first, done)

	return <-first, nil
}

// run produces the first result, then one result per tick until ctx ends.
func (c *Controller) run(ctx context.Context, gen uint64, first chan<- model.AnalysisResult, done chan<- struct{}) {
	defer close(done)

	result, err := c.source.Next(ctx)
	if err != nil {
		common.LogError(c.logger, err, "first analysis failed, using fallback")
		result = llm.Fallback(c.guidance, c.locale, c.now())
	}
	c.observe(result)
	c.install(gen, result)
	first <- result

	ticker := c.newTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			result, err := c.source.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				common.LogError(c.logger, err, "tick analysis failed, keeping previous result", "generation", gen)
				continue
			}
			c.observe(result)
			c.install(gen, result)
		}
	}
}

// install makes result current if it belongs to the running session.
func (c *Controller) install(gen uint64, result model.AnalysisResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateMonitoring || gen != c.generation {
		metrics.TicksDroppedTotal.Inc()
		c.logger.Debug("dropping stale analysis", "generation", gen, "current_generation", c.generation)
		return false
	}
	c.publish(result)
	return true
}

// publish must be called with mu held.
func (c *Controller) publish(result model.AnalysisResult) {
	c.current.Store(&result)
	for id, ch := range c.subscribers {
		select {
		case ch <- result:
		default:
			c.logger.Debug("subscriber is behind, skipping result", "subscriber", id)
		}
	}
}

// Stop ends the session, waits for the tick loop to exit and records the call.
func (c *Controller) Stop(ctx context.Context) (model.CallRecord, error) {
	c.mu.Lock()
	if c.state != StateMonitoring {
		c.mu.Unlock()
		return model.CallRecord{}, ErrNotMonitoring
	}

	c.generation++
	c.state = StateIdle
	cancel, done, startedAt := c.cancel, c.done, c.startedAt
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	cancel()
	<-done
	metrics.MonitorActive.Set(0)

	result, ok := c.Current()
	if !ok {
		result = llm.Fallback(c.guidance, c.locale, c.now())
	}

	record := model.NewCallRecord(startedAt, c.now().Sub(startedAt), result, model.CallLive)
	c.logger.Info("monitoring stopped",
		"call_id", record.ID,
		"duration_seconds", record.DurationSeconds,
		"risk_level", record.RiskLevel)

	c.record(ctx, record)
	return record, nil
}

// AnalyzeOnce analyzes an uploaded call without touching the monitoring
// session. When idle, the result also becomes the current result.
func (c *Controller) AnalyzeOnce(ctx context.Context, up Upload) (model.AnalysisResult, model.CallRecord, error) {
	transcript := strings.TrimSpace(up.Transcript)
	if transcript == "" && len(up.Audio) == 0 {
		return model.AnalysisResult{}, model.CallRecord{}, fmt.Errorf("%w: upload has neither transcript nor audio", common.ErrInvalidInput)
	}

	locale := up.Locale
	if locale == "" {
		locale = c.locale
	}

	if transcript == "" && c.transcriber != nil {
		text, err := c.transcriber.Transcribe(ctx, up.Audio)
		switch {
		case err != nil:
			common.LogError(c.logger, err, "transcription failed, simulating")
		case strings.TrimSpace(text) == "":
			c.logger.Warn("transcription produced no text, simulating")
		default:
			transcript = strings.TrimSpace(text)
		}
	}

	var (
		result model.AnalysisResult
		err    error
	)
	switch {
	case transcript != "" && c.classifier != nil:
		result, err = c.classifier.Classify(ctx, transcript, locale)
	default:
		if transcript != "" {
			c.logger.Warn("no classifier configured, simulating transcript analysis")
		}
		result, err = c.simulateUpload(ctx, locale)
	}
	if err != nil {
		return model.AnalysisResult{}, model.CallRecord{}, err
	}

	duration := up.Duration
	if duration <= 0 {
		duration = c.uploadDuration
	}
	record := model.NewCallRecord(c.now(), duration, result, model.CallUpload)

	c.mu.Lock()
	if c.state == StateIdle {
		c.publish(result)
	}
	c.mu.Unlock()

	c.record(ctx, record)
	return result, record, nil
}

func (c *Controller) simulateUpload(ctx context.Context, locale string) (model.AnalysisResult, error) {
	result := c.simulator.SimulateFor(locale)

	if c.uploadDelay > 0 {
		timer := time.NewTimer(c.uploadDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.AnalysisResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	c.observe(result)
	return result, nil
}

func (c *Controller) record(ctx context.Context, record model.CallRecord) {
	if c.history == nil {
		return
	}
	if err := c.history.Record(ctx, record); err != nil {
		common.LogError(c.logger, err, "failed to record call history", "call_id", record.ID)
	}
}

// observe counts results the classifier did not already count.
func (c *Controller) observe(result model.AnalysisResult) {
	if result.Source == model.SourceSimulated {
		metrics.ObserveAnalysis(string(result.Source), string(result.RiskLevel))
	}
}

// Current returns the latest installed result.
func (c *Controller) Current() (model.AnalysisResult, bool) {
	ptr := c.current.Load()
	if ptr == nil {
		return model.AnalysisResult{}, false
	}
	return *ptr, true
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel receiving each installed result. Results are
// skipped while the channel is full. The returned func unsubscribes and
// closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan model.AnalysisResult, func()) {
	if buffer < 1 {
		buffer = 1
	}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan model.AnalysisResult, buffer)
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

// Locale returns the default locale for analyses.
func (c *Controller) Locale() string {
	return c.locale
}
